package domain

import "time"

// SyncStatus is the provenance tag of a cached record.
type SyncStatus string

const (
	// SyncStatusLocal marks a record written by this client and not yet
	// confirmed by any remote.
	SyncStatusLocal SyncStatus = "local"
	// SyncStatusHomeserver marks a record confirmed by the user's homeserver.
	SyncStatusHomeserver SyncStatus = "homeserver"
	// SyncStatusNexus marks a record confirmed by the Nexus indexer.
	SyncStatusNexus SyncStatus = "nexus"
)

// Syncable provides the sync-freshness fields shared by every cached entity.
// It gets embedded in any domain type that mirrors remote state.
type Syncable struct {
	// IndexedAt is the confirmed-by-remote timestamp, nil until the record
	// has been seen by the indexer.
	IndexedAt *time.Time `json:"indexed_at,omitempty"`
	// CreatedAt is the local write timestamp.
	CreatedAt time.Time `json:"created_at"`
	// SyncStatus records which side last confirmed this copy.
	SyncStatus SyncStatus `json:"sync_status"`
	// SyncTTL is the unix time until which the local copy is considered
	// fresh. It is a data-freshness mark for the sync layer, not a timeout.
	SyncTTL int64 `json:"sync_ttl"`
}

// Refresh stamps the local write time and extends the freshness window.
// Call this whenever the record changes locally.
func (s *Syncable) Refresh(ttl time.Duration) {
	now := time.Now()
	s.CreatedAt = now
	s.SyncTTL = now.Add(ttl).Unix()
}

// InitLocal initializes the sync fields for a record written by this client.
func (s *Syncable) InitLocal(ttl time.Duration) {
	s.IndexedAt = nil
	s.SyncStatus = SyncStatusLocal
	s.Refresh(ttl)
}

// MarkIndexed records remote confirmation at the given time.
func (s *Syncable) MarkIndexed(t time.Time, status SyncStatus) {
	s.IndexedAt = &t
	s.SyncStatus = status
}

// IsStale reports whether the freshness window has passed and the sync layer
// should re-fetch this record.
func (s *Syncable) IsStale(now time.Time) bool {
	return now.Unix() > s.SyncTTL
}
