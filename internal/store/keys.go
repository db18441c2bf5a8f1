package store

import "sync"

// Key layout. Records live under their table prefix; secondary indexes are
// separate keys written in the same transaction as the record, holding the
// record id as value.
const (
	schemaVersionKey = "schema:version"

	userPrefix = "user:"
	postPrefix = "post:"

	// User indexes. Multi-valued entries append the record id to keep the
	// key unique per (value, id) pair.
	userByNamePrefix      = "idx:users:name:"
	userBySyncPrefix      = "idx:users:sync:"
	userByFollowerPrefix  = "idx:users:follower:"  // follower id -> users they follow
	userByFollowingPrefix = "idx:users:following:" // followed id -> users following them
	userByMutedPrefix     = "idx:users:muted:"     // muted id -> users muting them
	userByTagPrefix       = "idx:users:tag:"       // tag label -> tagged users

	// Post indexes.
	postByAuthorPrefix     = "idx:posts:author:"
	postByKindPrefix       = "idx:posts:kind:"
	postBySyncPrefix       = "idx:posts:sync:"
	postByBookmarkPrefix   = "idx:posts:bookmarked:"
	postByTagPrefix        = "idx:posts:tag:"
	postByRepliedPrefix    = "idx:posts:replied:"  // parent post id -> replies
	postByRepostedPrefix   = "idx:posts:reposted:" // original post id -> reposts
)

// keyPool provides reusable byte slices for building database keys.
// This reduces allocations on the hot path of database operations.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled
// buffer. Callers MUST call releaseKey when done with the key. Read paths
// only: Badger keeps a reference to keys passed to Set and Delete until the
// transaction commits, so write keys need fresh allocations.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Only pool buffers of reasonable capacity.
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// indexKey joins an index prefix with one or two path segments.
func indexKey(prefix string, parts ...string) string {
	k := prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}
