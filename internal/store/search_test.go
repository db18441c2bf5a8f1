package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshapp/mesh-cache/internal/nexus"
)

func TestStore_SearchUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:u1")
	createTestUser(t, s, "pk:u2")
	createTestUser(t, s, "pk:u3")

	all, err := s.SearchUsers(ctx, UserQuery{}, DefaultPage())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := s.SearchUsers(ctx, UserQuery{Name: "User pk:u2"}, DefaultPage())
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "pk:u2", byName[0].ID)

	n, err := s.CountUsers(ctx, UserQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	fresh, err := s.SearchUsers(ctx, UserQuery{Stale: true}, DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestStore_SearchPosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestUser(t, s, "pk:b")
	createTestPost(t, s, "pk:a", "p1")
	createTestPost(t, s, "pk:a", "p2")
	createTestPost(t, s, "pk:b", "p3")

	byAuthor, err := s.SearchPosts(ctx, PostQuery{Author: "pk:a"}, DefaultPage())
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byKind, err := s.SearchPosts(ctx, PostQuery{Kind: nexus.PostKindShort}, DefaultPage())
	require.NoError(t, err)
	assert.Len(t, byKind, 3)

	// Tombstone filter finds only deleted-but-surviving posts
	require.NoError(t, s.ApplyPostTag(ctx, "pk:b", "pk:a:p1", "dev", nexus.ActionPut))
	_, err = s.DeletePost(ctx, "pk:a:p1")
	require.NoError(t, err)

	tombstoned, err := s.SearchPosts(ctx, PostQuery{Tombstoned: true}, DefaultPage())
	require.NoError(t, err)
	require.Len(t, tombstoned, 1)
	assert.Equal(t, "pk:a:p1", tombstoned[0].ID)

	n, err := s.CountPosts(ctx, PostQuery{Author: "pk:a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
