package domain

import (
	"slices"
	"time"

	"github.com/meshapp/mesh-cache/internal/nexus"
)

// UserDetails holds the profile fields of a cached user.
type UserDetails struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Bio       string      `json:"bio,omitempty"`
	Image     string      `json:"image,omitempty"`
	Links     []UserLink  `json:"links,omitempty"`
	Status    string      `json:"status,omitempty"`
	IndexedAt int64       `json:"indexed_at,omitempty"`
}

// UserLink is a labeled URL on a user profile.
type UserLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// UserCounts holds the denormalized counters of a cached user.
// Every decrement clamps at zero; a counter never goes negative.
type UserCounts struct {
	Tagged     int `json:"tagged"`
	Tags       int `json:"tags"`
	UniqueTags int `json:"unique_tags"`
	Posts      int `json:"posts"`
	Replies    int `json:"replies"`
	Following  int `json:"following"`
	Followers  int `json:"followers"`
	Friends    int `json:"friends"`
	Bookmarks  int `json:"bookmarks"`
}

// UserRelationship describes how the current viewer relates to this user.
type UserRelationship struct {
	FollowedBy bool `json:"followed_by"`
	Following  bool `json:"following"`
	Muted      bool `json:"muted"`
}

// User is a cached profile record. It owns its follower/following/muted id
// lists and its tag set; the relationship algorithms keep paired User
// records and their counters consistent.
type User struct {
	Syncable
	ID           string           `json:"id"`
	Details      UserDetails      `json:"details"`
	Counts       UserCounts       `json:"counts"`
	Relationship UserRelationship `json:"relationship"`
	Tags         []*Tag           `json:"tags"`
	Following    []string         `json:"following"`
	Followers    []string         `json:"followers"`
	Muted        []string         `json:"muted"`
}

// NewUserFromNexus builds a cache entity from an indexer payload.
// The local id lists start empty: the indexer supplies counters and viewer
// relationship flags, not the full edge lists.
func NewUserFromNexus(u nexus.User, ttl time.Duration) *User {
	links := make([]UserLink, 0, len(u.Details.Links))
	for _, l := range u.Details.Links {
		links = append(links, UserLink{Title: l.Title, URL: l.URL})
	}

	user := &User{
		ID: u.Details.ID,
		Details: UserDetails{
			ID:        u.Details.ID,
			Name:      u.Details.Name,
			Bio:       u.Details.Bio,
			Image:     u.Details.Image,
			Links:     links,
			Status:    u.Details.Status,
			IndexedAt: u.Details.IndexedAt,
		},
		Counts: UserCounts(u.Counts),
		Relationship: UserRelationship{
			FollowedBy: u.Relationship.FollowedBy,
			Following:  u.Relationship.Following,
			Muted:      u.Relationship.Muted,
		},
		Tags:      dedupeTags(u.Tags),
		Following: []string{},
		Followers: []string{},
		Muted:     []string{},
	}
	user.InitLocal(ttl)
	return user
}

// UserDetailsEdit carries the details fields of a partial update.
// Nil fields are left untouched.
type UserDetailsEdit struct {
	Name      *string     `json:"name,omitempty"`
	Bio       *string     `json:"bio,omitempty"`
	Image     *string     `json:"image,omitempty"`
	Links     *[]UserLink `json:"links,omitempty"`
	Status    *string     `json:"status,omitempty"`
	IndexedAt *int64      `json:"indexed_at,omitempty"`
}

// UserEdit is a partial update of a user profile. The id lists and counters
// are owned by the relationship algorithms and are not editable directly;
// a provided tag list replaces the tag set wholesale.
type UserEdit struct {
	Details *UserDetailsEdit `json:"details,omitempty"`
	Tags    *[]nexus.Tag     `json:"tags,omitempty"`
}

// ApplyEdit merges a partial update into the user and refreshes its sync
// freshness window.
func (u *User) ApplyEdit(edit UserEdit, ttl time.Duration) {
	if d := edit.Details; d != nil {
		if d.Name != nil {
			u.Details.Name = *d.Name
		}
		if d.Bio != nil {
			u.Details.Bio = *d.Bio
		}
		if d.Image != nil {
			u.Details.Image = *d.Image
		}
		if d.Links != nil {
			u.Details.Links = slices.Clone(*d.Links)
		}
		if d.Status != nil {
			u.Details.Status = *d.Status
		}
		if d.IndexedAt != nil {
			u.Details.IndexedAt = *d.IndexedAt
		}
	}
	if edit.Tags != nil {
		u.Tags = dedupeTags(*edit.Tags)
		u.Counts.Tags = sumTaggers(u.Tags)
		u.Counts.UniqueTags = len(u.Tags)
	}
	u.Refresh(ttl)
}

// IsFollowing reports whether u follows otherID.
func (u *User) IsFollowing(otherID string) bool {
	return slices.Contains(u.Following, otherID)
}

// IsMuting reports whether u muted otherID.
func (u *User) IsMuting(otherID string) bool {
	return slices.Contains(u.Muted, otherID)
}

// GetFollowing returns a bounded, order-preserving slice of the following list.
func (u *User) GetFollowing(skip, limit int) []string {
	return pageSlice(u.Following, skip, limit)
}

// GetFollowers returns a bounded, order-preserving slice of the follower list.
func (u *User) GetFollowers(skip, limit int) []string {
	return pageSlice(u.Followers, skip, limit)
}

// GetMuted returns a bounded, order-preserving slice of the muted list.
func (u *User) GetMuted(skip, limit int) []string {
	return pageSlice(u.Muted, skip, limit)
}

// ApplyFollow applies a follow edge mutation to both sides of the pair.
// Idempotent: a repeated PUT or a DEL on a missing edge changes nothing.
// The friends counter moves on both records exactly when the edge becomes or
// stops being mutual. Both records must be persisted together by the caller.
func ApplyFollow(self, other *User, action nexus.Action) bool {
	switch action {
	case nexus.ActionPut:
		if self.IsFollowing(other.ID) {
			return false
		}
		self.Following = append(self.Following, other.ID)
		self.Counts.Following++
		self.Relationship.Following = true

		other.Followers = append(other.Followers, self.ID)
		other.Counts.Followers++
		other.Relationship.FollowedBy = true

		// The edge just appeared; it is mutual iff the reverse edge exists.
		if other.IsFollowing(self.ID) {
			self.Counts.Friends++
			other.Counts.Friends++
		}
		return true

	case nexus.ActionDel:
		if !self.IsFollowing(other.ID) {
			return false
		}
		wasMutual := other.IsFollowing(self.ID)

		i := slices.Index(self.Following, other.ID)
		self.Following = slices.Delete(self.Following, i, i+1)
		if self.Counts.Following > 0 {
			self.Counts.Following--
		}
		self.Relationship.Following = false

		if j := slices.Index(other.Followers, self.ID); j >= 0 {
			other.Followers = slices.Delete(other.Followers, j, j+1)
		}
		if other.Counts.Followers > 0 {
			other.Counts.Followers--
		}
		other.Relationship.FollowedBy = false

		if wasMutual {
			if self.Counts.Friends > 0 {
				self.Counts.Friends--
			}
			if other.Counts.Friends > 0 {
				other.Counts.Friends--
			}
		}
		return true
	}
	return false
}

// ApplyUserTag applies a tag edge between two users: self tags other with
// label. Keeps other's tag set and tags/unique_tags counters consistent and
// moves self's tagged counter. Both records must be persisted together.
func ApplyUserTag(self, other *User, label string, action nexus.Action) bool {
	switch action {
	case nexus.ActionPut:
		tag := findTag(other.Tags, label)
		if tag == nil {
			other.Tags = append(other.Tags, NewTag(label, self.ID))
			other.Counts.Tags++
			other.Counts.UniqueTags++
			self.Counts.Tagged++
			return true
		}
		if !tag.AddTagger(self.ID) {
			return false
		}
		other.Counts.Tags++
		self.Counts.Tagged++
		return true

	case nexus.ActionDel:
		tag := findTag(other.Tags, label)
		if tag == nil || !tag.RemoveTagger(self.ID) {
			return false
		}
		if other.Counts.Tags > 0 {
			other.Counts.Tags--
		}
		if tag.TaggersCount == 0 {
			other.Tags = removeTag(other.Tags, label)
			if other.Counts.UniqueTags > 0 {
				other.Counts.UniqueTags--
			}
		}
		if self.Counts.Tagged > 0 {
			self.Counts.Tagged--
		}
		return true
	}
	return false
}

// ApplyMute toggles otherID's membership in self's muted list and keeps the
// muted relationship flag in step. Single-sided: the other record is never
// touched.
func ApplyMute(self *User, otherID string, action nexus.Action) bool {
	switch action {
	case nexus.ActionPut:
		if self.IsMuting(otherID) {
			return false
		}
		self.Muted = append(self.Muted, otherID)
		self.Relationship.Muted = true
		return true
	case nexus.ActionDel:
		i := slices.Index(self.Muted, otherID)
		if i < 0 {
			return false
		}
		self.Muted = slices.Delete(self.Muted, i, i+1)
		self.Relationship.Muted = false
		return true
	}
	return false
}
