// Package nexus defines the wire shapes produced by the remote Nexus indexer
// and the homeserver action verb. These are the input contract of the cache:
// field names and nesting are accepted unchanged.
package nexus

// Action is the mutation direction accepted by follow/tag/mute/bookmark.
// Anything other than PUT or DEL is a programming error.
type Action string

const (
	ActionPut Action = "PUT"
	ActionDel Action = "DEL"
)

// Valid checks if the action is one of the two accepted verbs.
func (a Action) Valid() bool {
	return a == ActionPut || a == ActionDel
}

// PostKind classifies a post payload.
type PostKind string

const (
	PostKindShort  PostKind = "short"
	PostKindLong   PostKind = "long"
	PostKindReply  PostKind = "reply"
	PostKindRepost PostKind = "repost"
)

// Valid checks if the kind is a known post kind.
func (k PostKind) Valid() bool {
	switch k {
	case PostKindShort, PostKindLong, PostKindReply, PostKindRepost:
		return true
	default:
		return false
	}
}

// Tag is a label plus the ordered set of users who applied it.
type Tag struct {
	Label        string   `json:"label"`
	Taggers      []string `json:"taggers"`
	TaggersCount int      `json:"taggers_count"`
}

// UserDetails holds the profile fields of a user payload.
type UserDetails struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name"`
	Bio       string     `json:"bio,omitempty"`
	Image     string     `json:"image,omitempty"`
	Links     []UserLink `json:"links,omitempty"`
	Status    string     `json:"status,omitempty"`
	IndexedAt int64      `json:"indexed_at,omitempty"`
}

// UserLink is a labeled URL on a user profile.
type UserLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// UserCounts holds the denormalized counters of a user payload.
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

// User is the user payload shape produced by the indexer.
type User struct {
	Details      UserDetails      `json:"details" validate:"required"`
	Counts       UserCounts       `json:"counts"`
	Relationship UserRelationship `json:"relationship"`
	Tags         []Tag            `json:"tags,omitempty"`
}

// PostDetails holds the content fields of a post payload.
type PostDetails struct {
	ID          string   `json:"id" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Content     string   `json:"content"`
	Kind        PostKind `json:"kind"`
	URI         string   `json:"uri,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	IndexedAt   int64    `json:"indexed_at,omitempty"`
}

// PostCounts holds the denormalized counters of a post payload.
type PostCounts struct {
	Tags       int `json:"tags"`
	UniqueTags int `json:"unique_tags"`
	Replies    int `json:"replies"`
	Reposts    int `json:"reposts"`
}

// PostRelationships holds the relationship pointers of a post payload.
type PostRelationships struct {
	Mentioned []string `json:"mentioned,omitempty"`
	Replied   string   `json:"replied,omitempty"`
	Reposted  string   `json:"reposted,omitempty"`
}

// Bookmark marks a post as bookmarked by the viewer.
type Bookmark struct {
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Post is the post payload shape produced by the indexer.
type Post struct {
	Details       PostDetails       `json:"details" validate:"required"`
	Counts        PostCounts        `json:"counts"`
	Relationships PostRelationships `json:"relationships"`
	Tags          []Tag             `json:"tags,omitempty"`
	Bookmark      *Bookmark         `json:"bookmark,omitempty"`
}
