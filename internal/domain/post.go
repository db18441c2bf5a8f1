package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/meshapp/mesh-cache/internal/nexus"
)

// PostID builds the composite post key. Post identity is author-scoped:
// the same local identifier under two authors names two different posts.
func PostID(author, local string) string {
	return author + ":" + local
}

// SplitPostID splits a composite post key back into author and local parts.
// Author ids may themselves contain colons while generated local
// identifiers never do, so the last separator is authoritative.
func SplitPostID(id string) (author, local string, ok bool) {
	i := strings.LastIndex(id, ":")
	if i < 0 {
		return id, "", false
	}
	return id[:i], id[i+1:], true
}

// PostDetails holds the content fields of a cached post.
type PostDetails struct {
	ID          string         `json:"id"`
	Author      string         `json:"author"`
	Content     string         `json:"content"`
	Kind        nexus.PostKind `json:"kind"`
	URI         string         `json:"uri,omitempty"`
	Attachments []string       `json:"attachments,omitempty"`
	IndexedAt   int64          `json:"indexed_at,omitempty"`
}

// PostCounts holds the denormalized counters of a cached post.
type PostCounts struct {
	Tags       int `json:"tags"`
	UniqueTags int `json:"unique_tags"`
	Replies    int `json:"replies"`
	Reposts    int `json:"reposts"`
}

// PostRelationships holds the relationship pointers of a cached post.
type PostRelationships struct {
	Mentioned []string `json:"mentioned"`
	Replied   string   `json:"replied,omitempty"`
	Reposted  string   `json:"reposted,omitempty"`
}

// Bookmark records when the viewer bookmarked a post.
type Bookmark struct {
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Post is a cached social post, reply or repost. It owns its tag set and its
// relationship pointers; the counters are kept consistent with both by the
// mutation methods below.
type Post struct {
	Syncable
	ID            string            `json:"id"`
	Details       PostDetails       `json:"details"`
	Counts        PostCounts        `json:"counts"`
	Relationships PostRelationships `json:"relationships"`
	Tags          []*Tag            `json:"tags"`
	Bookmark      *Bookmark         `json:"bookmark,omitempty"`
}

// NewPostFromNexus builds a cache entity from an indexer payload.
// Tags are deduplicated by label (first occurrence wins) and the tag counters
// are recomputed from the deduplicated set — payload-supplied counts for tags
// are ignored. Relationships default to empty when the payload has none.
func NewPostFromNexus(p nexus.Post, ttl time.Duration) *Post {
	tags := dedupeTags(p.Tags)

	post := &Post{
		ID: PostID(p.Details.Author, p.Details.ID),
		Details: PostDetails{
			ID:          p.Details.ID,
			Author:      p.Details.Author,
			Content:     p.Details.Content,
			Kind:        p.Details.Kind,
			URI:         p.Details.URI,
			Attachments: slices.Clone(p.Details.Attachments),
			IndexedAt:   p.Details.IndexedAt,
		},
		Counts: PostCounts{
			Tags:       sumTaggers(tags),
			UniqueTags: len(tags),
			Replies:    p.Counts.Replies,
			Reposts:    p.Counts.Reposts,
		},
		Relationships: PostRelationships{
			Mentioned: slices.Clone(p.Relationships.Mentioned),
			Replied:   p.Relationships.Replied,
			Reposted:  p.Relationships.Reposted,
		},
		Tags: tags,
	}
	if post.Relationships.Mentioned == nil {
		post.Relationships.Mentioned = []string{}
	}
	if post.Bookmark == nil && p.Bookmark != nil {
		post.Bookmark = &Bookmark{
			CreatedAt: p.Bookmark.CreatedAt,
			UpdatedAt: p.Bookmark.UpdatedAt,
		}
	}
	post.InitLocal(ttl)
	return post
}

// PostDetailsEdit carries the details fields of a partial update.
// Nil fields are left untouched.
type PostDetailsEdit struct {
	Content     *string         `json:"content,omitempty"`
	Kind        *nexus.PostKind `json:"kind,omitempty"`
	URI         *string         `json:"uri,omitempty"`
	Attachments *[]string       `json:"attachments,omitempty"`
	IndexedAt   *int64          `json:"indexed_at,omitempty"`
}

// PostCountsEdit carries the counter fields of a partial update.
type PostCountsEdit struct {
	Tags       *int `json:"tags,omitempty"`
	UniqueTags *int `json:"unique_tags,omitempty"`
	Replies    *int `json:"replies,omitempty"`
	Reposts    *int `json:"reposts,omitempty"`
}

// PostRelationshipsEdit carries the relationship fields of a partial update.
type PostRelationshipsEdit struct {
	Mentioned *[]string `json:"mentioned,omitempty"`
	Replied   *string   `json:"replied,omitempty"`
	Reposted  *string   `json:"reposted,omitempty"`
}

// PostEdit is a partial update of a post. Each provided sub-object merges
// field-by-field; a provided tag list replaces the tag set wholesale.
type PostEdit struct {
	Details       *PostDetailsEdit       `json:"details,omitempty"`
	Counts        *PostCountsEdit        `json:"counts,omitempty"`
	Relationships *PostRelationshipsEdit `json:"relationships,omitempty"`
	Tags          *[]nexus.Tag           `json:"tags,omitempty"`
}

// ApplyEdit merges a partial update into the post and refreshes its sync
// freshness window.
func (p *Post) ApplyEdit(edit PostEdit, ttl time.Duration) {
	if d := edit.Details; d != nil {
		if d.Content != nil {
			p.Details.Content = *d.Content
		}
		if d.Kind != nil {
			p.Details.Kind = *d.Kind
		}
		if d.URI != nil {
			p.Details.URI = *d.URI
		}
		if d.Attachments != nil {
			p.Details.Attachments = slices.Clone(*d.Attachments)
		}
		if d.IndexedAt != nil {
			p.Details.IndexedAt = *d.IndexedAt
		}
	}
	if c := edit.Counts; c != nil {
		if c.Tags != nil {
			p.Counts.Tags = *c.Tags
		}
		if c.UniqueTags != nil {
			p.Counts.UniqueTags = *c.UniqueTags
		}
		if c.Replies != nil {
			p.Counts.Replies = *c.Replies
		}
		if c.Reposts != nil {
			p.Counts.Reposts = *c.Reposts
		}
	}
	if r := edit.Relationships; r != nil {
		if r.Mentioned != nil {
			p.Relationships.Mentioned = slices.Clone(*r.Mentioned)
		}
		if r.Replied != nil {
			p.Relationships.Replied = *r.Replied
		}
		if r.Reposted != nil {
			p.Relationships.Reposted = *r.Reposted
		}
	}
	if edit.Tags != nil {
		p.Tags = dedupeTags(*edit.Tags)
		// The replaced tag set determines the tag counters unless the edit
		// set them explicitly.
		if edit.Counts == nil || edit.Counts.Tags == nil {
			p.Counts.Tags = sumTaggers(p.Tags)
		}
		if edit.Counts == nil || edit.Counts.UniqueTags == nil {
			p.Counts.UniqueTags = len(p.Tags)
		}
	}
	p.Refresh(ttl)
}

// HasRelationships reports whether anything still points at this post:
// a mention, a reply or repost pointer, a tag, or a bookmark. The predicate
// gates whether a delete tombstones the record or removes it outright.
func (p *Post) HasRelationships() bool {
	return len(p.Relationships.Mentioned) > 0 ||
		p.Relationships.Replied != "" ||
		p.Relationships.Reposted != "" ||
		len(p.Tags) > 0 ||
		p.Bookmark != nil
}

// CanUserEdit reports whether userID authored this post.
func (p *Post) CanUserEdit(userID string) bool {
	return userID == p.Details.Author
}

// MarkAsDeleted overwrites the content with the tombstone sentinel, leaving
// counts and relationships untouched so replies, reposts, tags and bookmarks
// keep a valid target.
func (p *Post) MarkAsDeleted() {
	p.Details.Content = TombstoneContent
}

// IsTombstone reports whether this post was content-tombstoned.
func (p *Post) IsTombstone() bool {
	return p.Details.Content == TombstoneContent
}

// ApplyTag adds or removes tagger on the tag with the given label, keeping
// counts.tags and counts.unique_tags consistent with the tag set.
// Returns true iff anything changed.
func (p *Post) ApplyTag(action nexus.Action, tagger, label string) bool {
	switch action {
	case nexus.ActionPut:
		tag := findTag(p.Tags, label)
		if tag == nil {
			p.Tags = append(p.Tags, NewTag(label, tagger))
			p.Counts.Tags++
			p.Counts.UniqueTags++
			return true
		}
		if !tag.AddTagger(tagger) {
			return false
		}
		p.Counts.Tags++
		return true

	case nexus.ActionDel:
		tag := findTag(p.Tags, label)
		if tag == nil || !tag.RemoveTagger(tagger) {
			return false
		}
		if p.Counts.Tags > 0 {
			p.Counts.Tags--
		}
		if tag.TaggersCount == 0 {
			p.Tags = removeTag(p.Tags, label)
			if p.Counts.UniqueTags > 0 {
				p.Counts.UniqueTags--
			}
		}
		return true
	}
	return false
}

// ApplyBookmark sets or clears the viewer bookmark.
// Returns true iff anything changed.
func (p *Post) ApplyBookmark(action nexus.Action, now time.Time) bool {
	switch action {
	case nexus.ActionPut:
		if p.Bookmark != nil {
			p.Bookmark.UpdatedAt = now.Unix()
			return true
		}
		p.Bookmark = &Bookmark{CreatedAt: now.Unix(), UpdatedAt: now.Unix()}
		return true
	case nexus.ActionDel:
		if p.Bookmark == nil {
			return false
		}
		p.Bookmark = nil
		return true
	}
	return false
}

// AddReply bumps the reply counter; called on the original post when a reply
// to it is cached.
func (p *Post) AddReply() { p.Counts.Replies++ }

// RemoveReply decrements the reply counter with a zero floor.
func (p *Post) RemoveReply() {
	if p.Counts.Replies > 0 {
		p.Counts.Replies--
	}
}

// AddRepost bumps the repost counter; called on the original post when a
// repost of it is cached.
func (p *Post) AddRepost() { p.Counts.Reposts++ }

// RemoveRepost decrements the repost counter with a zero floor.
func (p *Post) RemoveRepost() {
	if p.Counts.Reposts > 0 {
		p.Counts.Reposts--
	}
}
