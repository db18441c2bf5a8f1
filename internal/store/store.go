// Package store implements the versioned local entity store: a Badger-backed
// table set for users and posts with secondary indexes, a transactional
// boundary for two-sided relationship mutations, and the tombstone delete
// policy for relationship-bearing posts.
package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/meshapp/mesh-cache/internal/domain"
	apperrors "github.com/meshapp/mesh-cache/internal/errors"
)

// schemaVersion is the on-disk layout version. Bumping it causes a
// destructive full-store recreation on the next open: the cache is not the
// source of truth, so dropping it is cheaper than migrating it.
const schemaVersion = 2

// Store wraps a Badger database instance. It is passed explicitly into
// controllers; there is no process-wide handle.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// syncTTL is the freshness window stamped onto locally written records.
	syncTTL time.Duration
}

// Options configures a Store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory opens the store without a backing directory.
	InMemory bool
	// SyncTTL overrides the freshness window for locally written records.
	SyncTTL time.Duration
	// Logger receives store-level events. Nil disables logging.
	Logger *slog.Logger
}

// Open opens (or recreates) the local entity store at the given path.
// A schema version mismatch between the running code and the on-disk store
// triggers deletion of all local data and a fresh start; callers must
// tolerate total cache loss after a version bump.
func Open(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
		badgerOpts.SyncWrites = true
		badgerOpts.CompactL0OnClose = true
	}
	badgerOpts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, apperrors.StoreInit("failed to open badger db", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ttl := opts.SyncTTL
	if ttl <= 0 {
		ttl = domain.DefaultSyncTTL
	}

	s := &Store{
		db:      db,
		logger:  logger,
		syncTTL: ttl,
	}

	if err := s.ensureSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("entity store opened", "path", opts.Path, "in_memory", opts.InMemory, "schema_version", schemaVersion)

	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing entity store")
	return s.db.Close()
}

// SyncTTL returns the freshness window stamped onto locally written records.
func (s *Store) SyncTTL() time.Duration {
	return s.syncTTL
}

// ensureSchemaVersion compares the on-disk schema version with the one this
// build expects and drops every table on mismatch.
func (s *Store) ensureSchemaVersion() error {
	var onDisk int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaVersionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("corrupt schema version %q: %w", val, err)
			}
			onDisk = v
			return nil
		})
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		// Fresh store.
		onDisk = 0
	case err != nil:
		return apperrors.StoreInit("failed to read schema version", err)
	}

	if onDisk == schemaVersion {
		return nil
	}

	if onDisk != 0 {
		s.logger.Warn("schema version mismatch, recreating local store",
			"on_disk", onDisk, "expected", schemaVersion)
		if err := s.db.DropAll(); err != nil {
			return apperrors.StoreInit("failed to drop outdated store", err)
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaVersionKey), []byte(strconv.Itoa(schemaVersion)))
	})
	if err != nil {
		return apperrors.StoreInit("failed to write schema version", err)
	}
	return nil
}

// update runs a mutating transaction, retrying on optimistic-concurrency
// conflicts with jittered backoff so colliding callers spread out instead
// of re-aborting each other. Safe because every transition applied inside
// is idempotent.
func (s *Store) update(fn func(*badger.Txn) error) error {
	const maxRetries = 16
	var err error
	for attempt := range maxRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		backoff := time.Duration(1<<min(attempt, 6)) * time.Millisecond
		time.Sleep(rand.N(backoff))
	}
	return fmt.Errorf("transaction conflict persisted after %d retries: %w", maxRetries, err)
}

// Transaction helpers shared by the user and post tables.

// getInTxn unmarshals the record at key into dest.
func getInTxn(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// unmarshalRecord decodes a raw record value.
func unmarshalRecord(val []byte, dest any) error {
	return json.Unmarshal(val, dest)
}

// setInTxn marshals value and writes it at key.
func setInTxn(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return txn.Set(key, data)
}

// replaceIndexKeys diffs the old and new index key sets of a record and
// applies the delta inside the transaction. Every index key stores the
// record id as its value.
func replaceIndexKeys(txn *badger.Txn, old, new []string, id string) error {
	oldSet := make(map[string]bool, len(old))
	for _, k := range old {
		oldSet[k] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, k := range new {
		newSet[k] = true
	}

	for _, k := range old {
		if newSet[k] {
			continue
		}
		if err := txn.Delete([]byte(k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete index key %s: %w", k, err)
		}
	}
	for _, k := range new {
		if oldSet[k] {
			continue
		}
		if err := txn.Set([]byte(k), []byte(id)); err != nil {
			return fmt.Errorf("set index key %s: %w", k, err)
		}
	}
	return nil
}

// collectIndexedIDs scans an index prefix and returns the referenced ids in
// key order.
func (s *Store) collectIndexedIDs(prefix string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
