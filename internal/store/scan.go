package store

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/meshapp/mesh-cache/internal/domain"
)

// scanUsers iterates the full user table in key order, yielding each record
// until fn returns false.
func (s *Store) scanUsers(fn func(*domain.User) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(userPrefix)); it.ValidForPrefix([]byte(userPrefix)); it.Next() {
			var u domain.User
			err := it.Item().Value(func(val []byte) error {
				return unmarshalRecord(val, &u)
			})
			if err != nil {
				return err
			}
			if !fn(&u) {
				return nil
			}
		}
		return nil
	})
}

// scanPosts iterates the full post table in key order, yielding each record
// until fn returns false.
func (s *Store) scanPosts(fn func(*domain.Post) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(postPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(postPrefix)); it.ValidForPrefix([]byte(postPrefix)); it.Next() {
			var p domain.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalRecord(val, &p)
			})
			if err != nil {
				return err
			}
			if !fn(&p) {
				return nil
			}
		}
		return nil
	})
}
