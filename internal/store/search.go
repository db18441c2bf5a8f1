package store

import (
	"context"
	"time"

	"github.com/meshapp/mesh-cache/internal/domain"
	"github.com/meshapp/mesh-cache/internal/nexus"
)

// Scan search. These are full-table scans with field-equality filtering —
// there is no index-backed query planner. O(n) over the table, which is
// acceptable at local-cache scale.

// UserQuery filters a user scan. Zero-valued fields match everything.
type UserQuery struct {
	Name       string
	Status     string
	SyncStatus domain.SyncStatus
	Stale      bool // Only users whose freshness window has passed.
}

func (q UserQuery) matches(u *domain.User, nowUnix int64) bool {
	if q.Name != "" && u.Details.Name != q.Name {
		return false
	}
	if q.Status != "" && u.Details.Status != q.Status {
		return false
	}
	if q.SyncStatus != "" && u.SyncStatus != q.SyncStatus {
		return false
	}
	if q.Stale && nowUnix <= u.SyncTTL {
		return false
	}
	return true
}

// PostQuery filters a post scan. Zero-valued fields match everything.
type PostQuery struct {
	Author     string
	Kind       nexus.PostKind
	SyncStatus domain.SyncStatus
	Bookmarked bool // Only posts carrying a viewer bookmark.
	Tombstoned bool // Only content-tombstoned posts.
	Stale      bool
}

func (q PostQuery) matches(p *domain.Post, nowUnix int64) bool {
	if q.Author != "" && p.Details.Author != q.Author {
		return false
	}
	if q.Kind != "" && p.Details.Kind != q.Kind {
		return false
	}
	if q.SyncStatus != "" && p.SyncStatus != q.SyncStatus {
		return false
	}
	if q.Bookmarked && p.Bookmark == nil {
		return false
	}
	if q.Tombstoned && !p.IsTombstone() {
		return false
	}
	if q.Stale && nowUnix <= p.SyncTTL {
		return false
	}
	return true
}

// SearchUsers scans the user table and returns a page of matches.
func (s *Store) SearchUsers(ctx context.Context, q UserQuery, page Page) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page.Normalize()
	nowUnix := time.Now().Unix()

	var out []*domain.User
	skipped := 0
	err := s.scanUsers(func(u *domain.User) bool {
		if !q.matches(u, nowUnix) {
			return true
		}
		if skipped < page.Skip {
			skipped++
			return true
		}
		out = append(out, u)
		return len(out) < page.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountUsers scans the user table and counts matches.
func (s *Store) CountUsers(ctx context.Context, q UserQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	nowUnix := time.Now().Unix()

	count := 0
	err := s.scanUsers(func(u *domain.User) bool {
		if q.matches(u, nowUnix) {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SearchPosts scans the post table and returns a page of matches.
func (s *Store) SearchPosts(ctx context.Context, q PostQuery, page Page) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page.Normalize()
	nowUnix := time.Now().Unix()

	var out []*domain.Post
	skipped := 0
	err := s.scanPosts(func(p *domain.Post) bool {
		if !q.matches(p, nowUnix) {
			return true
		}
		if skipped < page.Skip {
			skipped++
			return true
		}
		out = append(out, p)
		return len(out) < page.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountPosts scans the post table and counts matches.
func (s *Store) CountPosts(ctx context.Context, q PostQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	nowUnix := time.Now().Unix()

	count := 0
	err := s.scanPosts(func(p *domain.Post) bool {
		if q.matches(p, nowUnix) {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
