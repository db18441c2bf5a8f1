package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meshapp/mesh-cache/internal/domain"
	apperrors "github.com/meshapp/mesh-cache/internal/errors"
	"github.com/meshapp/mesh-cache/internal/id"
	"github.com/meshapp/mesh-cache/internal/nexus"
	"github.com/meshapp/mesh-cache/internal/store"
	"github.com/meshapp/mesh-cache/internal/validation"
)

// PostController manages cached posts, their tags and bookmarks.
type PostController struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPostController creates a new post controller.
func NewPostController(st *store.Store, validator *validation.Validator, logger *slog.Logger) *PostController {
	return &PostController{
		store:     st,
		validator: validator,
		logger:    logger,
	}
}

// Get returns the cached post with the given composite id.
func (c *PostController) Get(ctx context.Context, postID string) (*domain.Post, error) {
	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		if apperrors.Is(err, store.ErrPostNotFound) {
			return nil, apperrors.NotFound("post %s not found", postID)
		}
		return nil, fmt.Errorf("getting post %s: %w", postID, err)
	}
	return post, nil
}

// GetAll returns a page of cached posts.
func (c *PostController) GetAll(ctx context.Context, page store.Page) ([]*domain.Post, error) {
	posts, err := c.store.ListPosts(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// GetByIDs returns the cached posts for the given composite ids. Ids with no
// cached record are silently omitted from the result.
func (c *PostController) GetByIDs(ctx context.Context, ids []string) ([]*domain.Post, error) {
	posts, err := c.store.GetPostsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("getting posts by ids: %w", err)
	}
	return posts, nil
}

// GetByAuthor returns the cached posts written by the given user.
func (c *PostController) GetByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	return c.store.GetPostsByAuthor(ctx, authorID)
}

// GetReplies returns the cached replies to the given post.
func (c *PostController) GetReplies(ctx context.Context, postID string) ([]*domain.Post, error) {
	return c.store.GetReplies(ctx, postID)
}

// GetReposts returns the cached reposts of the given post.
func (c *PostController) GetReposts(ctx context.Context, postID string) ([]*domain.Post, error) {
	return c.store.GetReposts(ctx, postID)
}

// GetBookmarked returns every cached post the viewer has bookmarked.
func (c *PostController) GetBookmarked(ctx context.Context) ([]*domain.Post, error) {
	return c.store.GetBookmarkedPosts(ctx)
}

// Save creates or edits the cached post for an indexer payload. Creating a
// post requires its author to already be cached; editing replaces content,
// counters, relationships and tags with the payload's values.
func (c *PostController) Save(ctx context.Context, payload nexus.Post) (*domain.Post, error) {
	if err := c.validator.Validate(payload); err != nil {
		return nil, err
	}

	ttl := c.store.SyncTTL()
	postID := domain.PostID(payload.Details.Author, payload.Details.ID)
	existing, err := c.store.GetPost(ctx, postID)
	if err != nil && !apperrors.Is(err, store.ErrPostNotFound) {
		return nil, fmt.Errorf("loading post %s: %w", postID, err)
	}

	post := domain.NewPostFromNexus(payload, ttl)
	if payload.Details.IndexedAt > 0 {
		post.MarkIndexed(time.UnixMilli(payload.Details.IndexedAt), domain.SyncStatusNexus)
	}

	if existing != nil {
		post.CreatedAt = existing.CreatedAt
		if post.Bookmark == nil {
			post.Bookmark = existing.Bookmark
		}
		if err := c.store.PutPost(ctx, post); err != nil {
			return nil, fmt.Errorf("saving post %s: %w", post.ID, err)
		}
		return post, nil
	}

	if err := c.store.CreatePost(ctx, post); err != nil {
		if apperrors.Is(err, store.ErrAuthorNotFound) {
			return nil, apperrors.Validation("author %s is not cached", payload.Details.Author)
		}
		return nil, fmt.Errorf("creating post %s: %w", post.ID, err)
	}
	return post, nil
}

// CreateLocal authors a brand new post on this device. The post gets a
// generated local identifier and starts in local sync status until the
// homeserver and indexer confirm it.
func (c *PostController) CreateLocal(ctx context.Context, authorID, content string, kind nexus.PostKind, rel domain.PostRelationships) (*domain.Post, error) {
	if content == "" {
		return nil, apperrors.Validation("post content must not be empty")
	}
	if kind == "" {
		kind = nexus.PostKindShort
	}
	if !kind.Valid() {
		return nil, apperrors.Validation("invalid post kind %q", kind)
	}

	local, err := id.Generate("post")
	if err != nil {
		return nil, fmt.Errorf("generating post id: %w", err)
	}

	if rel.Mentioned == nil {
		rel.Mentioned = []string{}
	}
	post := &domain.Post{
		ID: domain.PostID(authorID, local),
		Details: domain.PostDetails{
			ID:      local,
			Author:  authorID,
			Content: content,
			Kind:    kind,
		},
		Relationships: rel,
		Tags:          []*domain.Tag{},
	}
	post.InitLocal(c.store.SyncTTL())

	if err := c.store.CreatePost(ctx, post); err != nil {
		if apperrors.Is(err, store.ErrAuthorNotFound) {
			return nil, apperrors.Validation("author %s is not cached", authorID)
		}
		return nil, fmt.Errorf("creating post %s: %w", post.ID, err)
	}
	return post, nil
}

// Edit applies a partial update to a cached post on behalf of a user. Only
// the author of a post may edit it.
func (c *PostController) Edit(ctx context.Context, userID, postID string, edit domain.PostEdit) (*domain.Post, error) {
	post, err := c.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.CanUserEdit(userID) {
		return nil, apperrors.Conflict("user %s cannot edit post %s", userID, postID)
	}
	post.ApplyEdit(edit, c.store.SyncTTL())
	if err := c.store.PutPost(ctx, post); err != nil {
		return nil, fmt.Errorf("saving post %s: %w", postID, err)
	}
	return post, nil
}

// Delete removes the cached post with the given composite id. A post that
// other cached entities still point at is tombstoned instead of removed.
func (c *PostController) Delete(ctx context.Context, postID string) error {
	tombstoned, err := c.store.DeletePost(ctx, postID)
	if err != nil {
		if apperrors.Is(err, store.ErrPostNotFound) {
			return apperrors.NotFound("post %s not found", postID)
		}
		return fmt.Errorf("deleting post %s: %w", postID, err)
	}
	if tombstoned {
		c.logger.Debug("post tombstoned instead of removed", "post_id", postID)
	}
	return nil
}

// BulkSave caches every payload it can and drops the rest. Failed payloads
// are logged and excluded from the returned slice.
func (c *PostController) BulkSave(ctx context.Context, payloads []nexus.Post) []*domain.Post {
	saved := make([]*domain.Post, 0, len(payloads))

	var wg sync.WaitGroup
	var resMu sync.Mutex
	// Creating posts bumps the author's counters, so payloads sharing an
	// author write the same user record; serialize to keep those writes
	// from aborting each other.
	var applyMu sync.Mutex
	for _, payload := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()

			applyMu.Lock()
			post, err := c.Save(ctx, payload)
			applyMu.Unlock()
			if err != nil {
				c.logger.Warn("bulk save skipped post",
					"post_id", payload.Details.ID, "author_id", payload.Details.Author, "error", err)
				return
			}

			resMu.Lock()
			saved = append(saved, post)
			resMu.Unlock()
		}()
	}
	wg.Wait()
	return saved
}

// BulkDelete removes the cached posts for the given composite ids, reporting
// which succeeded and which failed.
func (c *PostController) BulkDelete(ctx context.Context, ids []string) *BulkResult {
	return runBulk(ids, func(postID string) error {
		err := c.Delete(ctx, postID)
		if err != nil {
			c.logger.Warn("bulk delete skipped post", "post_id", postID, "error", err)
		}
		return err
	})
}

// Tag applies or removes a label from a post on behalf of a cached user.
func (c *PostController) Tag(ctx context.Context, taggerID, postID, label string, action nexus.Action) error {
	if !action.Valid() {
		return apperrors.Validation("invalid tag action %q", action)
	}
	if label == "" {
		return apperrors.Validation("tag label must not be empty")
	}
	if _, _, ok := domain.SplitPostID(postID); !ok {
		return apperrors.Validation("malformed post id %q", postID)
	}
	if err := c.store.ApplyPostTag(ctx, taggerID, postID, label, action); err != nil {
		switch {
		case apperrors.Is(err, store.ErrPostNotFound):
			return apperrors.NotFound("post %s not found", postID)
		case apperrors.Is(err, store.ErrUserNotFound):
			return apperrors.NotFound("user %s not found", taggerID)
		}
		return fmt.Errorf("tagging post %s: %w", postID, err)
	}
	return nil
}

// Bookmark sets or clears the viewer's bookmark on a post.
func (c *PostController) Bookmark(ctx context.Context, postID string, action nexus.Action) error {
	if !action.Valid() {
		return apperrors.Validation("invalid bookmark action %q", action)
	}
	if _, _, ok := domain.SplitPostID(postID); !ok {
		return apperrors.Validation("malformed post id %q", postID)
	}
	if err := c.store.ApplyBookmark(ctx, postID, action); err != nil {
		if apperrors.Is(err, store.ErrPostNotFound) {
			return apperrors.NotFound("post %s not found", postID)
		}
		return fmt.Errorf("bookmarking post %s: %w", postID, err)
	}
	return nil
}

// Search returns the cached posts matching the query. The scan is linear in
// the number of cached posts.
func (c *PostController) Search(ctx context.Context, q store.PostQuery, page store.Page) ([]*domain.Post, error) {
	return c.store.SearchPosts(ctx, q, page)
}

// Count returns the number of cached posts matching the query.
func (c *PostController) Count(ctx context.Context, q store.PostQuery) (int, error) {
	return c.store.CountPosts(ctx, q)
}
