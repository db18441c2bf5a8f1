// Package main provides a read-only inspection tool for the local entity
// store. It prints record totals, sync status breakdowns, and the most used
// tag labels.
//
// Usage:
//
//	STORE_PATH=~/.mesh-cache/db go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/meshapp/mesh-cache/internal/domain"
)

func main() {
	storePath := os.Getenv("STORE_PATH")
	if storePath == "" {
		storePath = os.ExpandEnv("$HOME/.mesh-cache/db")
	}

	opts := badger.DefaultOptions(storePath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Store Inspection ===")
	fmt.Println()

	userCount := 0
	userByStatus := map[domain.SyncStatus]int{}
	tagUse := map[string]int{}

	err = db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = []byte("user:")
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var user domain.User
				if err := json.Unmarshal(val, &user); err != nil {
					return err
				}
				userCount++
				userByStatus[user.SyncStatus]++
				for _, tag := range user.Tags {
					tagUse[tag.Label] += len(tag.Taggers)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan users: %v", err)
	}

	postCount := 0
	tombstones := 0
	bookmarked := 0
	postByStatus := map[domain.SyncStatus]int{}

	err = db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = []byte("post:")
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var post domain.Post
				if err := json.Unmarshal(val, &post); err != nil {
					return err
				}
				postCount++
				postByStatus[post.SyncStatus]++
				if post.IsTombstone() {
					tombstones++
				}
				if post.Bookmark != nil {
					bookmarked++
				}
				for _, tag := range post.Tags {
					tagUse[tag.Label] += len(tag.Taggers)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan posts: %v", err)
	}

	fmt.Printf("Users: %d\n", userCount)
	for status, n := range userByStatus {
		fmt.Printf("  %s: %d\n", status, n)
	}
	fmt.Println()

	fmt.Printf("Posts: %d (tombstoned: %d, bookmarked: %d)\n", postCount, tombstones, bookmarked)
	for status, n := range postByStatus {
		fmt.Printf("  %s: %d\n", status, n)
	}
	fmt.Println()

	type labelCount struct {
		label string
		count int
	}
	labels := make([]labelCount, 0, len(tagUse))
	for label, n := range tagUse {
		labels = append(labels, labelCount{label, n})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].count != labels[j].count {
			return labels[i].count > labels[j].count
		}
		return labels[i].label < labels[j].label
	})

	fmt.Printf("Top tags (%d distinct labels):\n", len(labels))
	for i, lc := range labels {
		if i >= 10 {
			break
		}
		fmt.Printf("  %-20s %d\n", lc.label, lc.count)
	}
	if len(labels) == 0 {
		fmt.Println("  (none)")
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 26))
}
