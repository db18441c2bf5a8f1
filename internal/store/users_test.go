package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshapp/mesh-cache/internal/nexus"
)

func TestStore_CreateAndGetUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created := createTestUser(t, s, "pk:u1")

	got, err := s.GetUser(ctx, "pk:u1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Details.Name, got.Details.Name)

	// Duplicate creation is rejected
	err = s.CreateUser(ctx, created)
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.GetUser(ctx, "pk:missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_GetUsersByIDs_OmitsMissing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:u1")
	createTestUser(t, s, "pk:u2")

	users, err := s.GetUsersByIDs(ctx, []string{"pk:u1", "pk:missing", "pk:u2"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "pk:u1", users[0].ID)
	assert.Equal(t, "pk:u2", users[1].ID)
}

func TestStore_ListUsers_Pages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"pk:a", "pk:b", "pk:c", "pk:d"} {
		createTestUser(t, s, id)
	}

	page, err := s.ListUsers(ctx, Page{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "pk:b", page[0].ID)
	assert.Equal(t, "pk:c", page[1].ID)
}

func TestStore_DeleteUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:u1")
	require.NoError(t, s.DeleteUser(ctx, "pk:u1"))

	_, err := s.GetUser(ctx, "pk:u1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, "pk:u1"), ErrUserNotFound)
}

func TestStore_FollowersOf_UsesIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:u1")
	createTestUser(t, s, "pk:u2")
	createTestUser(t, s, "pk:u3")

	require.NoError(t, s.ApplyFollow(ctx, "pk:u1", "pk:u3", nexus.ActionPut))
	require.NoError(t, s.ApplyFollow(ctx, "pk:u2", "pk:u3", nexus.ActionPut))

	followers, err := s.FollowersOf(ctx, "pk:u3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pk:u1", "pk:u2"}, followers)

	// Unfollow removes the index entry
	require.NoError(t, s.ApplyFollow(ctx, "pk:u1", "pk:u3", nexus.ActionDel))
	followers, err = s.FollowersOf(ctx, "pk:u3")
	require.NoError(t, err)
	assert.Equal(t, []string{"pk:u2"}, followers)
}

func TestStore_UsersTaggedWith_UsesIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:u1")
	createTestUser(t, s, "pk:u2")

	require.NoError(t, s.ApplyUserTag(ctx, "pk:u1", "pk:u2", "dev", nexus.ActionPut))

	tagged, err := s.UsersTaggedWith(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"pk:u2"}, tagged)

	// Removing the last tagger cleans the index up
	require.NoError(t, s.ApplyUserTag(ctx, "pk:u1", "pk:u2", "dev", nexus.ActionDel))
	tagged, err = s.UsersTaggedWith(ctx, "dev")
	require.NoError(t, err)
	assert.Empty(t, tagged)
}

func TestStore_MutersOf(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:u1")
	createTestUser(t, s, "pk:u2")

	require.NoError(t, s.ApplyMute(ctx, "pk:u1", "pk:u2", nexus.ActionPut))

	muters, err := s.MutersOf(ctx, "pk:u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"pk:u1"}, muters)
}
