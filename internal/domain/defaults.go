package domain

import "time"

// TombstoneContent replaces a deleted post's content when the record must
// survive to keep replies, reposts, tags or bookmarks pointing at something.
const TombstoneContent = "[DELETED]"

// Pagination bounds shared by every list slice (taggers, followers,
// following, muted) and by store-level listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// DefaultSyncTTL is the freshness window granted to a locally written record
// before the sync layer should re-fetch it.
const DefaultSyncTTL = 5 * time.Minute

// clampPage normalizes a skip/limit pair against the shared bounds.
func clampPage(skip, limit, size int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if skip > size {
		skip = size
	}
	end := skip + limit
	if end > size {
		end = size
	}
	return skip, end
}

// pageSlice returns a bounded, order-preserving copy of list.
func pageSlice(list []string, skip, limit int) []string {
	start, end := clampPage(skip, limit, len(list))
	out := make([]string, end-start)
	copy(out, list[start:end])
	return out
}
