package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/meshapp/mesh-cache/internal/domain"
	"github.com/meshapp/mesh-cache/internal/nexus"
)

// Two-sided relationship mutations. Each verb loads the pair, runs the
// domain transition and persists every touched side inside one Badger
// update transaction: a crash between sides cannot leave a half-applied
// edge, and readers never observe one. The transitions themselves are
// idempotent, so a retried write after a crash cannot double-apply.

// ApplyFollow applies a follow edge mutation between two cached users.
func (s *Store) ApplyFollow(ctx context.Context, selfID, otherID string, action nexus.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !action.Valid() {
		return ErrInvalidAction
	}
	if selfID == otherID {
		return ErrSelfEdge
	}

	return s.update(func(txn *badger.Txn) error {
		self, err := getUserInTxn(txn, selfID)
		if err != nil {
			return err
		}
		other, err := getUserInTxn(txn, otherID)
		if err != nil {
			return err
		}

		selfKeys := userIndexKeys(self)
		otherKeys := userIndexKeys(other)

		if !domain.ApplyFollow(self, other, action) {
			return nil // No-op: nothing to persist.
		}

		self.Refresh(s.syncTTL)
		other.Refresh(s.syncTTL)

		if err := putUserInTxn(txn, self, selfKeys); err != nil {
			return err
		}
		return putUserInTxn(txn, other, otherKeys)
	})
}

// ApplyUserTag applies a tag edge mutation: self tags other with label.
func (s *Store) ApplyUserTag(ctx context.Context, selfID, otherID, label string, action nexus.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !action.Valid() {
		return ErrInvalidAction
	}

	return s.update(func(txn *badger.Txn) error {
		self, err := getUserInTxn(txn, selfID)
		if err != nil {
			return err
		}

		// Self-tagging is allowed; both sides are the same record then.
		other := self
		var otherKeys []string
		if otherID != selfID {
			other, err = getUserInTxn(txn, otherID)
			if err != nil {
				return err
			}
			otherKeys = userIndexKeys(other)
		}

		selfKeys := userIndexKeys(self)

		if !domain.ApplyUserTag(self, other, label, action) {
			return nil
		}

		self.Refresh(s.syncTTL)
		if err := putUserInTxn(txn, self, selfKeys); err != nil {
			return err
		}
		if other == self {
			return nil
		}
		other.Refresh(s.syncTTL)
		return putUserInTxn(txn, other, otherKeys)
	})
}

// ApplyMute toggles otherID in self's muted list. Single-sided: the other
// record is loaded only to confirm it is cached, never written.
func (s *Store) ApplyMute(ctx context.Context, selfID, otherID string, action nexus.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !action.Valid() {
		return ErrInvalidAction
	}

	return s.update(func(txn *badger.Txn) error {
		self, err := getUserInTxn(txn, selfID)
		if err != nil {
			return err
		}
		if _, err := getUserInTxn(txn, otherID); err != nil {
			return err
		}

		selfKeys := userIndexKeys(self)

		if !domain.ApplyMute(self, otherID, action) {
			return nil
		}

		self.Refresh(s.syncTTL)
		return putUserInTxn(txn, self, selfKeys)
	})
}
