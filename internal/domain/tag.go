package domain

import (
	"slices"

	"github.com/meshapp/mesh-cache/internal/nexus"
)

// Tag is a label plus the ordered set of users who applied it. A tag is
// owned by whichever Post or User record embeds it; it exists only while it
// has at least one tagger — the owner removes it when the last tagger leaves.
type Tag struct {
	Label        string   `json:"label"`
	Taggers      []string `json:"taggers"`
	TaggersCount int      `json:"taggers_count"`
}

// NewTag creates a tag with its first tagger.
func NewTag(label, tagger string) *Tag {
	return &Tag{
		Label:        label,
		Taggers:      []string{tagger},
		TaggersCount: 1,
	}
}

// TagFromNexus wraps a raw wire tag, recomputing the count from the tagger
// list rather than trusting the payload's.
func TagFromNexus(t nexus.Tag) *Tag {
	taggers := slices.Clone(t.Taggers)
	if taggers == nil {
		taggers = []string{}
	}
	return &Tag{
		Label:        t.Label,
		Taggers:      taggers,
		TaggersCount: len(taggers),
	}
}

// HasTagger reports whether userID already applied this tag.
func (t *Tag) HasTagger(userID string) bool {
	return slices.Contains(t.Taggers, userID)
}

// AddTagger appends userID preserving application order.
// Returns false without changing anything if the user is already a tagger.
func (t *Tag) AddTagger(userID string) bool {
	if t.HasTagger(userID) {
		return false
	}
	t.Taggers = append(t.Taggers, userID)
	t.TaggersCount++
	return true
}

// RemoveTagger removes userID if present. Returns true iff a removal
// happened. The owner is responsible for dropping the tag from its set once
// TaggersCount reaches zero.
func (t *Tag) RemoveTagger(userID string) bool {
	i := slices.Index(t.Taggers, userID)
	if i < 0 {
		return false
	}
	t.Taggers = slices.Delete(t.Taggers, i, i+1)
	t.TaggersCount--
	return true
}

// GetTaggers returns a bounded, order-preserving slice of the tagger list.
func (t *Tag) GetTaggers(skip, limit int) []string {
	return pageSlice(t.Taggers, skip, limit)
}

// findTag returns the tag with the given label, or nil.
func findTag(tags []*Tag, label string) *Tag {
	for _, t := range tags {
		if t.Label == label {
			return t
		}
	}
	return nil
}

// dedupeTags wraps raw wire tags, keeping the first occurrence of each label.
func dedupeTags(raw []nexus.Tag) []*Tag {
	tags := make([]*Tag, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, rt := range raw {
		if seen[rt.Label] {
			continue
		}
		seen[rt.Label] = true
		tags = append(tags, TagFromNexus(rt))
	}
	return tags
}

// removeTag drops the tag with the given label from the set.
func removeTag(tags []*Tag, label string) []*Tag {
	for i, t := range tags {
		if t.Label == label {
			return slices.Delete(tags, i, i+1)
		}
	}
	return tags
}

// sumTaggers returns the total tagger count across the set.
func sumTaggers(tags []*Tag) int {
	total := 0
	for _, t := range tags {
		total += t.TaggersCount
	}
	return total
}
