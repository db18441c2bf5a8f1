package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meshapp/mesh-cache/internal/domain"
	apperrors "github.com/meshapp/mesh-cache/internal/errors"
	"github.com/meshapp/mesh-cache/internal/nexus"
	"github.com/meshapp/mesh-cache/internal/store"
	"github.com/meshapp/mesh-cache/internal/validation"
)

// UserController manages cached user profiles and the relationship edges
// between them.
type UserController struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserController creates a new user controller.
func NewUserController(st *store.Store, validator *validation.Validator, logger *slog.Logger) *UserController {
	return &UserController{
		store:     st,
		validator: validator,
		logger:    logger,
	}
}

// Get returns the cached user with the given id.
func (c *UserController) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := c.store.GetUser(ctx, id)
	if err != nil {
		if apperrors.Is(err, store.ErrUserNotFound) {
			return nil, apperrors.NotFound("user %s not found", id)
		}
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return user, nil
}

// GetAll returns a page of cached users.
func (c *UserController) GetAll(ctx context.Context, page store.Page) ([]*domain.User, error) {
	users, err := c.store.ListUsers(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetByIDs returns the cached users for the given ids. Ids with no cached
// record are silently omitted from the result.
func (c *UserController) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	users, err := c.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("getting users by ids: %w", err)
	}
	return users, nil
}

// Save creates or edits the cached user for an indexer payload. An existing
// record keeps its locally built id lists; profile fields, counters, viewer
// relationship, and tags are replaced by the payload.
func (c *UserController) Save(ctx context.Context, payload nexus.User) (*domain.User, error) {
	if err := c.validator.Validate(payload); err != nil {
		return nil, err
	}

	ttl := c.store.SyncTTL()
	existing, err := c.store.GetUser(ctx, payload.Details.ID)
	if err != nil && !apperrors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("loading user %s: %w", payload.Details.ID, err)
	}

	var user *domain.User
	if existing != nil {
		user = mergeUserPayload(existing, payload, ttl)
	} else {
		user = domain.NewUserFromNexus(payload, ttl)
		if payload.Details.IndexedAt > 0 {
			user.MarkIndexed(time.UnixMilli(payload.Details.IndexedAt), domain.SyncStatusNexus)
		}
	}

	if err := c.store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user %s: %w", user.ID, err)
	}
	return user, nil
}

// mergeUserPayload folds a fresh indexer payload into an already cached
// user. The payload is authoritative for everything it carries; the local
// follow/mute id lists survive because the indexer never sends them.
func mergeUserPayload(existing *domain.User, payload nexus.User, ttl time.Duration) *domain.User {
	fresh := domain.NewUserFromNexus(payload, ttl)
	fresh.Following = existing.Following
	fresh.Followers = existing.Followers
	fresh.Muted = existing.Muted
	fresh.CreatedAt = existing.CreatedAt
	if payload.Details.IndexedAt > 0 {
		fresh.MarkIndexed(time.UnixMilli(payload.Details.IndexedAt), domain.SyncStatusNexus)
	}
	return fresh
}

// Edit applies a partial update to a cached user's profile. The id lists
// and counters stay under the relationship algorithms' control; a provided
// tag list replaces the tag set wholesale.
func (c *UserController) Edit(ctx context.Context, id string, edit domain.UserEdit) (*domain.User, error) {
	user, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.ApplyEdit(edit, c.store.SyncTTL())
	if err := c.store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user %s: %w", id, err)
	}
	return user, nil
}

// Delete removes the cached user with the given id.
func (c *UserController) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteUser(ctx, id); err != nil {
		if apperrors.Is(err, store.ErrUserNotFound) {
			return apperrors.NotFound("user %s not found", id)
		}
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	return nil
}

// BulkSave caches every payload it can and drops the rest. Failed payloads
// are logged and excluded from the returned slice.
func (c *UserController) BulkSave(ctx context.Context, payloads []nexus.User) []*domain.User {
	saved := make([]*domain.User, 0, len(payloads))

	var wg sync.WaitGroup
	var resMu sync.Mutex
	// Duplicate ids in one batch write the same record; serialize so they
	// cannot abort each other at commit.
	var applyMu sync.Mutex
	for _, payload := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()

			applyMu.Lock()
			user, err := c.Save(ctx, payload)
			applyMu.Unlock()
			if err != nil {
				c.logger.Warn("bulk save skipped user",
					"user_id", payload.Details.ID, "error", err)
				return
			}

			resMu.Lock()
			saved = append(saved, user)
			resMu.Unlock()
		}()
	}
	wg.Wait()
	return saved
}

// BulkDelete removes the cached users for the given ids, reporting which
// succeeded and which failed.
func (c *UserController) BulkDelete(ctx context.Context, ids []string) *BulkResult {
	return runBulk(ids, func(id string) error {
		err := c.Delete(ctx, id)
		if err != nil {
			c.logger.Warn("bulk delete skipped user", "user_id", id, "error", err)
		}
		return err
	})
}

// Follow applies a follow (PUT) or unfollow (DEL) between two cached users,
// keeping both sides and their friend counters consistent.
func (c *UserController) Follow(ctx context.Context, selfID, otherID string, action nexus.Action) error {
	return c.applyEdge(ctx, "follow", selfID, otherID, action, func() error {
		return c.store.ApplyFollow(ctx, selfID, otherID, action)
	})
}

// MuteUser sets or clears the viewer's mute on another user. The mutation is
// single-sided; the muted user's record is untouched.
func (c *UserController) MuteUser(ctx context.Context, selfID, otherID string, action nexus.Action) error {
	return c.applyEdge(ctx, "mute", selfID, otherID, action, func() error {
		return c.store.ApplyMute(ctx, selfID, otherID, action)
	})
}

// Tag applies or removes a label from another user on behalf of the viewer.
func (c *UserController) Tag(ctx context.Context, selfID, otherID, label string, action nexus.Action) error {
	if label == "" {
		return apperrors.Validation("tag label must not be empty")
	}
	return c.applyEdge(ctx, "tag", selfID, otherID, action, func() error {
		return c.store.ApplyUserTag(ctx, selfID, otherID, label, action)
	})
}

// applyEdge maps the store's edge errors onto the controller's error
// vocabulary.
func (c *UserController) applyEdge(ctx context.Context, verb, selfID, otherID string, action nexus.Action, apply func() error) error {
	if !action.Valid() {
		return apperrors.Validation("invalid %s action %q", verb, action)
	}
	if err := apply(); err != nil {
		switch {
		case apperrors.Is(err, store.ErrUserNotFound):
			if _, lookErr := c.store.GetUser(ctx, selfID); lookErr != nil {
				return apperrors.NotFound("user %s not found", selfID)
			}
			return apperrors.NotFound("user %s not found", otherID)
		case apperrors.Is(err, store.ErrSelfEdge):
			return apperrors.Validation("%s cannot target its own source", verb)
		}
		return fmt.Errorf("applying %s %s -> %s: %w", verb, selfID, otherID, err)
	}
	return nil
}

// checkBulkSource rejects a bulk relationship call outright when the action
// verb is invalid or the acting user is not cached. Per-target problems are
// reported per item instead.
func (c *UserController) checkBulkSource(ctx context.Context, verb, selfID string, action nexus.Action) error {
	if !action.Valid() {
		return apperrors.Validation("invalid %s action %q", verb, action)
	}
	if _, err := c.store.GetUser(ctx, selfID); err != nil {
		if apperrors.Is(err, store.ErrUserNotFound) {
			return apperrors.NotFound("user %s not found", selfID)
		}
		return fmt.Errorf("loading user %s: %w", selfID, err)
	}
	return nil
}

// BulkFollow applies a follow action from one user toward many targets.
// An invalid action or an uncached acting user fails the whole call; a
// failing target only lands in the Failed list.
func (c *UserController) BulkFollow(ctx context.Context, selfID string, targetIDs []string, action nexus.Action) (*BulkResult, error) {
	if err := c.checkBulkSource(ctx, "follow", selfID, action); err != nil {
		return nil, err
	}
	return runBulk(targetIDs, func(otherID string) error {
		err := c.store.ApplyFollow(ctx, selfID, otherID, action)
		if err != nil {
			c.logger.Warn("bulk follow skipped target",
				"self_id", selfID, "target_id", otherID, "error", err)
		}
		return err
	}), nil
}

// BulkMuteUser applies a mute action from one user toward many targets.
func (c *UserController) BulkMuteUser(ctx context.Context, selfID string, targetIDs []string, action nexus.Action) (*BulkResult, error) {
	if err := c.checkBulkSource(ctx, "mute", selfID, action); err != nil {
		return nil, err
	}
	return runBulk(targetIDs, func(otherID string) error {
		err := c.store.ApplyMute(ctx, selfID, otherID, action)
		if err != nil {
			c.logger.Warn("bulk mute skipped target",
				"self_id", selfID, "target_id", otherID, "error", err)
		}
		return err
	}), nil
}

// BulkTag applies a label from one user toward many targets.
func (c *UserController) BulkTag(ctx context.Context, selfID string, targetIDs []string, label string, action nexus.Action) (*BulkResult, error) {
	if label == "" {
		return nil, apperrors.Validation("tag label must not be empty")
	}
	if err := c.checkBulkSource(ctx, "tag", selfID, action); err != nil {
		return nil, err
	}
	return runBulk(targetIDs, func(otherID string) error {
		err := c.store.ApplyUserTag(ctx, selfID, otherID, label, action)
		if err != nil {
			c.logger.Warn("bulk tag skipped target",
				"self_id", selfID, "target_id", otherID, "error", err)
		}
		return err
	}), nil
}

// Search returns the cached users matching the query. The scan is linear in
// the number of cached users.
func (c *UserController) Search(ctx context.Context, q store.UserQuery, page store.Page) ([]*domain.User, error) {
	return c.store.SearchUsers(ctx, q, page)
}

// Count returns the number of cached users matching the query.
func (c *UserController) Count(ctx context.Context, q store.UserQuery) (int, error) {
	return c.store.CountUsers(ctx, q)
}

// Followers returns the ids of every cached user following the given user.
func (c *UserController) Followers(ctx context.Context, id string) ([]string, error) {
	return c.store.FollowersOf(ctx, id)
}
