package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/meshapp/mesh-cache/internal/domain"
	"github.com/meshapp/mesh-cache/internal/nexus"
)

// postIndexKeys computes every secondary index key a post record owns.
func postIndexKeys(p *domain.Post) []string {
	keys := make([]string, 0, 5+len(p.Tags))
	keys = append(keys,
		indexKey(postByAuthorPrefix, p.Details.Author, p.ID),
		indexKey(postByKindPrefix, string(p.Details.Kind), p.ID),
		indexKey(postBySyncPrefix, string(p.SyncStatus), p.ID),
	)
	if p.Bookmark != nil {
		keys = append(keys, indexKey(postByBookmarkPrefix, p.ID))
	}
	for _, t := range p.Tags {
		keys = append(keys, indexKey(postByTagPrefix, t.Label, p.ID))
	}
	if p.Relationships.Replied != "" {
		keys = append(keys, indexKey(postByRepliedPrefix, p.Relationships.Replied, p.ID))
	}
	if p.Relationships.Reposted != "" {
		keys = append(keys, indexKey(postByRepostedPrefix, p.Relationships.Reposted, p.ID))
	}
	return keys
}

// getPostInTxn loads a post record inside an open transaction.
func getPostInTxn(txn *badger.Txn, id string) (*domain.Post, error) {
	key := buildKey(postPrefix, id)
	defer releaseKey(key)

	var p domain.Post
	if err := getInTxn(txn, key, &p); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &p, nil
}

// putPostInTxn writes a post record and reconciles its index keys against
// oldKeys, the key set of the previous version. Callers must snapshot
// oldKeys with postIndexKeys BEFORE mutating the loaded record; nil means a
// fresh record.
func putPostInTxn(txn *badger.Txn, p *domain.Post, oldKeys []string) error {
	// Badger holds on to key slices until the transaction commits, so write
	// keys must not come from the pool.
	key := []byte(postPrefix + p.ID)
	if err := setInTxn(txn, key, p); err != nil {
		return fmt.Errorf("put post %s: %w", p.ID, err)
	}

	return replaceIndexKeys(txn, oldKeys, postIndexKeys(p), p.ID)
}

// CreatePost creates a new post record. The author must already be cached;
// the author's post counters and, for replies and reposts, the original
// post's counters move inside the same transaction.
func (s *Store) CreatePost(ctx context.Context, p *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		if _, err := getPostInTxn(txn, p.ID); err == nil {
			return ErrPostExists
		} else if !errors.Is(err, ErrPostNotFound) {
			return err
		}

		author, err := getUserInTxn(txn, p.Details.Author)
		if errors.Is(err, ErrUserNotFound) {
			return ErrAuthorNotFound
		}
		if err != nil {
			return err
		}

		authorKeys := userIndexKeys(author)
		author.Counts.Posts++
		if p.Relationships.Replied != "" {
			author.Counts.Replies++
		}
		if err := putUserInTxn(txn, author, authorKeys); err != nil {
			return err
		}

		if parentID := p.Relationships.Replied; parentID != "" {
			if err := s.bumpOriginalInTxn(txn, parentID, func(orig *domain.Post) { orig.AddReply() }); err != nil {
				return err
			}
		}
		if origID := p.Relationships.Reposted; origID != "" {
			if err := s.bumpOriginalInTxn(txn, origID, func(orig *domain.Post) { orig.AddRepost() }); err != nil {
				return err
			}
		}

		return putPostInTxn(txn, p, nil)
	})
}

// bumpOriginalInTxn mutates the original post a reply/repost points at.
// A missing original is tolerated: the pointer may refer to a post the cache
// hasn't fetched yet.
func (s *Store) bumpOriginalInTxn(txn *badger.Txn, id string, mutate func(*domain.Post)) error {
	orig, err := getPostInTxn(txn, id)
	if errors.Is(err, ErrPostNotFound) {
		s.logger.Debug("original post not cached, skipping counter update", "post_id", id)
		return nil
	}
	if err != nil {
		return err
	}
	oldKeys := postIndexKeys(orig)
	mutate(orig)
	return putPostInTxn(txn, orig, oldKeys)
}

// PutPost upserts a post record, replacing whatever was cached under its id.
// Counters of related records are not touched; use CreatePost for the
// counter-moving creation path.
func (s *Store) PutPost(ctx context.Context, p *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		var oldKeys []string
		old, err := getPostInTxn(txn, p.ID)
		if err != nil && !errors.Is(err, ErrPostNotFound) {
			return err
		}
		if old != nil {
			oldKeys = postIndexKeys(old)
		}
		return putPostInTxn(txn, p, oldKeys)
	})
}

// GetPost retrieves a post by its composite id.
// Returns ErrPostNotFound if the post is not cached.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p *domain.Post
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getPostInTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPostsByIDs retrieves multiple posts, silently omitting missing ids.
// Each miss is logged at warn level; the call itself never fails on a miss.
func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			p, err := getPostInTxn(txn, id)
			if errors.Is(err, ErrPostNotFound) {
				s.logger.Warn("post not cached, omitting from batch", "post_id", id)
				continue
			}
			if err != nil {
				return err
			}
			posts = append(posts, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPosts returns a page of post records in key order.
func (s *Store) ListPosts(ctx context.Context, page Page) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page.Normalize()

	var posts []*domain.Post
	skipped := 0
	err := s.scanPosts(func(p *domain.Post) bool {
		if skipped < page.Skip {
			skipped++
			return true
		}
		posts = append(posts, p)
		return len(posts) < page.Limit
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPostsByAuthor returns the cached posts of one author via the author index.
func (s *Store) GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.collectIndexedIDs(indexKey(postByAuthorPrefix, authorID) + ":")
	if err != nil {
		return nil, err
	}
	return s.GetPostsByIDs(ctx, ids)
}

// GetReplies returns the cached replies to a post via the replied index.
func (s *Store) GetReplies(ctx context.Context, postID string) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.collectIndexedIDs(indexKey(postByRepliedPrefix, postID) + ":")
	if err != nil {
		return nil, err
	}
	return s.GetPostsByIDs(ctx, ids)
}

// GetReposts returns the cached reposts of a post via the reposted index.
func (s *Store) GetReposts(ctx context.Context, postID string) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.collectIndexedIDs(indexKey(postByRepostedPrefix, postID) + ":")
	if err != nil {
		return nil, err
	}
	return s.GetPostsByIDs(ctx, ids)
}

// GetBookmarkedPosts returns every post carrying a viewer bookmark.
func (s *Store) GetBookmarkedPosts(ctx context.Context) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.collectIndexedIDs(postByBookmarkPrefix)
	if err != nil {
		return nil, err
	}
	return s.GetPostsByIDs(ctx, ids)
}

// DeletePost applies the delete policy: a relationship-bearing post (one
// with mentions, a reply/repost pointer, tags, or a bookmark) is content-
// tombstoned so everything pointing at it keeps a valid target; anything
// else is removed outright. Returns ErrPostNotFound if the post is not
// cached and reports whether a tombstone survived.
func (s *Store) DeletePost(ctx context.Context, id string) (tombstoned bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err = s.update(func(txn *badger.Txn) error {
		// The closure may run again after a conflict; the outcome of the
		// aborted attempt must not leak into this one.
		tombstoned = false

		p, err := getPostInTxn(txn, id)
		if err != nil {
			return err
		}

		if p.HasRelationships() {
			oldKeys := postIndexKeys(p)
			p.MarkAsDeleted()
			p.Refresh(s.syncTTL)
			tombstoned = true
			return putPostInTxn(txn, p, oldKeys)
		}

		// Hard delete: nothing points at this post. The author's counters
		// move back inside the same transaction.
		author, err := getUserInTxn(txn, p.Details.Author)
		if err == nil {
			authorKeys := userIndexKeys(author)
			if author.Counts.Posts > 0 {
				author.Counts.Posts--
			}
			if err := putUserInTxn(txn, author, authorKeys); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		if err := replaceIndexKeys(txn, postIndexKeys(p), nil, id); err != nil {
			return err
		}

		return txn.Delete([]byte(postPrefix + id))
	})
	return tombstoned, err
}

// ApplyPostTag adds or removes a tag edge between a user and a post inside
// one transaction: the post's tag set and counters and the tagger's tagged
// counter move together or not at all.
func (s *Store) ApplyPostTag(ctx context.Context, taggerID, postID, label string, action nexus.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !action.Valid() {
		return ErrInvalidAction
	}

	return s.update(func(txn *badger.Txn) error {
		p, err := getPostInTxn(txn, postID)
		if err != nil {
			return err
		}
		tagger, err := getUserInTxn(txn, taggerID)
		if err != nil {
			return err
		}

		postKeys := postIndexKeys(p)
		taggerKeys := userIndexKeys(tagger)

		if !p.ApplyTag(action, taggerID, label) {
			return nil // No-op: nothing to persist.
		}

		switch action {
		case nexus.ActionPut:
			tagger.Counts.Tagged++
		case nexus.ActionDel:
			if tagger.Counts.Tagged > 0 {
				tagger.Counts.Tagged--
			}
		}

		p.Refresh(s.syncTTL)
		if err := putPostInTxn(txn, p, postKeys); err != nil {
			return err
		}
		return putUserInTxn(txn, tagger, taggerKeys)
	})
}

// ApplyBookmark sets or clears the viewer bookmark on a post.
func (s *Store) ApplyBookmark(ctx context.Context, postID string, action nexus.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !action.Valid() {
		return ErrInvalidAction
	}

	return s.update(func(txn *badger.Txn) error {
		p, err := getPostInTxn(txn, postID)
		if err != nil {
			return err
		}
		oldKeys := postIndexKeys(p)
		if !p.ApplyBookmark(action, time.Now()) {
			return nil
		}
		p.Refresh(s.syncTTL)
		return putPostInTxn(txn, p, oldKeys)
	})
}
