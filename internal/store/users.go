package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/meshapp/mesh-cache/internal/domain"
)

// userIndexKeys computes every secondary index key a user record owns.
// The follower/following/muted entries are multi-valued: one key per edge,
// keyed by the far side so reverse lookups are a prefix scan.
func userIndexKeys(u *domain.User) []string {
	keys := make([]string, 0, 2+len(u.Following)+len(u.Followers)+len(u.Muted)+len(u.Tags))
	if u.Details.Name != "" {
		keys = append(keys, indexKey(userByNamePrefix, u.Details.Name, u.ID))
	}
	keys = append(keys, indexKey(userBySyncPrefix, string(u.SyncStatus), u.ID))
	for _, target := range u.Following {
		keys = append(keys, indexKey(userByFollowingPrefix, target, u.ID))
	}
	for _, follower := range u.Followers {
		keys = append(keys, indexKey(userByFollowerPrefix, follower, u.ID))
	}
	for _, muted := range u.Muted {
		keys = append(keys, indexKey(userByMutedPrefix, muted, u.ID))
	}
	for _, t := range u.Tags {
		keys = append(keys, indexKey(userByTagPrefix, t.Label, u.ID))
	}
	return keys
}

// getUserInTxn loads a user record inside an open transaction.
func getUserInTxn(txn *badger.Txn, id string) (*domain.User, error) {
	key := buildKey(userPrefix, id)
	defer releaseKey(key)

	var u domain.User
	if err := getInTxn(txn, key, &u); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// putUserInTxn writes a user record and reconciles its index keys against
// oldKeys, the key set of the previous version. Callers must snapshot
// oldKeys with userIndexKeys BEFORE mutating the loaded record; nil means a
// fresh record.
func putUserInTxn(txn *badger.Txn, u *domain.User, oldKeys []string) error {
	// Badger holds on to key slices until the transaction commits, so write
	// keys must not come from the pool.
	key := []byte(userPrefix + u.ID)
	if err := setInTxn(txn, key, u); err != nil {
		return fmt.Errorf("put user %s: %w", u.ID, err)
	}

	return replaceIndexKeys(txn, oldKeys, userIndexKeys(u), u.ID)
}

// CreateUser creates a new user record.
// Returns ErrUserExists if the id is already cached.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		if _, err := getUserInTxn(txn, u.ID); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		return putUserInTxn(txn, u, nil)
	})
}

// PutUser upserts a user record, replacing whatever was cached under its id.
func (s *Store) PutUser(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		var oldKeys []string
		old, err := getUserInTxn(txn, u.ID)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if old != nil {
			oldKeys = userIndexKeys(old)
		}
		return putUserInTxn(txn, u, oldKeys)
	})
}

// GetUser retrieves a user by ID.
// Returns ErrUserNotFound if the user is not cached.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var u *domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		u, err = getUserInTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUsersByIDs retrieves multiple users, silently omitting missing ids.
// Each miss is logged at warn level; the call itself never fails on a miss.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			u, err := getUserInTxn(txn, id)
			if errors.Is(err, ErrUserNotFound) {
				s.logger.Warn("user not cached, omitting from batch", "user_id", id)
				continue
			}
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers returns a page of user records in key order.
func (s *Store) ListUsers(ctx context.Context, page Page) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page.Normalize()

	var users []*domain.User
	skipped := 0
	err := s.scanUsers(func(u *domain.User) bool {
		if skipped < page.Skip {
			skipped++
			return true
		}
		users = append(users, u)
		return len(users) < page.Limit
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user record and its index keys.
// Returns ErrUserNotFound if the user is not cached.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		u, err := getUserInTxn(txn, id)
		if err != nil {
			return err
		}

		if err := replaceIndexKeys(txn, userIndexKeys(u), nil, id); err != nil {
			return err
		}

		return txn.Delete([]byte(userPrefix + id))
	})
}

// FollowersOf returns the ids of cached users that follow id, via the
// multi-valued following index.
func (s *Store) FollowersOf(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.collectIndexedIDs(indexKey(userByFollowingPrefix, id) + ":")
}

// MutersOf returns the ids of cached users that muted id.
func (s *Store) MutersOf(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.collectIndexedIDs(indexKey(userByMutedPrefix, id) + ":")
}

// UsersTaggedWith returns the ids of cached users carrying the given tag label.
func (s *Store) UsersTaggedWith(ctx context.Context, label string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.collectIndexedIDs(indexKey(userByTagPrefix, label) + ":")
}
