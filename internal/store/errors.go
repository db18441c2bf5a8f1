package store

import "errors"

// Store errors. Controllers translate these into the domain error taxonomy;
// raw Badger errors never leave this package.
var (
	// ErrUserNotFound is returned when a user cannot be found by ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrPostNotFound is returned when a post cannot be found by ID.
	ErrPostNotFound = errors.New("post not found")
	// ErrUserExists is returned when creating a user with an existing ID.
	ErrUserExists = errors.New("user already exists")
	// ErrPostExists is returned when creating a post with an existing ID.
	ErrPostExists = errors.New("post already exists")
	// ErrAuthorNotFound is returned when creating a post whose author is
	// not cached.
	ErrAuthorNotFound = errors.New("post author not cached")
	// ErrInvalidAction is returned when an action verb is neither PUT nor
	// DEL. This is a programming error at the call site.
	ErrInvalidAction = errors.New("invalid homeserver action")
	// ErrSelfEdge is returned when a follow targets its own source.
	ErrSelfEdge = errors.New("relationship cannot target its own source")
)
