package controller

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshapp/mesh-cache/internal/domain"
	apperrors "github.com/meshapp/mesh-cache/internal/errors"
	"github.com/meshapp/mesh-cache/internal/nexus"
	"github.com/meshapp/mesh-cache/internal/store"
)

func postPayload(author, local string) nexus.Post {
	return nexus.Post{
		Details: nexus.PostDetails{
			ID:      local,
			Author:  author,
			Content: "post " + local,
			Kind:    nexus.PostKindShort,
		},
	}
}

func saveTestPost(t *testing.T, posts *PostController, author, local string) *domain.Post {
	t.Helper()
	p, err := posts.Save(context.Background(), postPayload(author, local))
	require.NoError(t, err)
	return p
}

func TestPostController_SaveCreatesThenEdits(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")

	created := saveTestPost(t, posts, "pk:a", "p1")
	assert.Equal(t, "pk:a:p1", created.ID)

	payload := postPayload("pk:a", "p1")
	payload.Details.Content = "edited"
	edited, err := posts.Save(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Details.Content)

	got, err := posts.Get(ctx, "pk:a:p1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Details.Content)

	// Editing must not double-count on the author
	author, err := users.Get(ctx, "pk:a")
	require.NoError(t, err)
	assert.Equal(t, 1, author.Counts.Posts)
}

func TestPostController_SaveRequiresCachedAuthor(t *testing.T) {
	_, posts := setupTestControllers(t)

	_, err := posts.Save(context.Background(), postPayload("pk:ghost", "p1"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestPostController_SavePreservesBookmark(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	saveTestPost(t, posts, "pk:a", "p1")
	require.NoError(t, posts.Bookmark(ctx, "pk:a:p1", nexus.ActionPut))

	// A payload without a bookmark must not clear the local one
	_, err := posts.Save(ctx, postPayload("pk:a", "p1"))
	require.NoError(t, err)

	got, err := posts.Get(ctx, "pk:a:p1")
	require.NoError(t, err)
	assert.NotNil(t, got.Bookmark)
}

func TestPostController_CreateLocal(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")

	p, err := posts.CreateLocal(ctx, "pk:a", "hello world", nexus.PostKindShort, domain.PostRelationships{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusLocal, p.SyncStatus)
	assert.Equal(t, "pk:a", p.Details.Author)
	assert.NotEmpty(t, p.Details.ID)
	assert.Equal(t, domain.PostID("pk:a", p.Details.ID), p.ID)

	got, err := posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Details.Content)

	author, _ := users.Get(ctx, "pk:a")
	assert.Equal(t, 1, author.Counts.Posts)
}

func TestPostController_CreateLocalValidation(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")

	_, err := posts.CreateLocal(ctx, "pk:a", "", nexus.PostKindShort, domain.PostRelationships{})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = posts.CreateLocal(ctx, "pk:a", "x", "bogus", domain.PostRelationships{})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = posts.CreateLocal(ctx, "pk:ghost", "x", nexus.PostKindShort, domain.PostRelationships{})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestPostController_EditAuthorOnly(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	saveTestPost(t, posts, "pk:a", "p1")

	content := "rewritten"
	edited, err := posts.Edit(ctx, "pk:a", "pk:a:p1", domain.PostEdit{
		Details: &domain.PostDetailsEdit{Content: &content},
	})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", edited.Details.Content)

	_, err = posts.Edit(ctx, "pk:b", "pk:a:p1", domain.PostEdit{
		Details: &domain.PostDetailsEdit{Content: &content},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestPostController_DeleteTombstoneVsHard(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	saveTestUser(t, users, "pk:b")
	saveTestPost(t, posts, "pk:a", "bare")
	saveTestPost(t, posts, "pk:a", "tagged")
	require.NoError(t, posts.Tag(ctx, "pk:b", "pk:a:tagged", "dev", nexus.ActionPut))

	require.NoError(t, posts.Delete(ctx, "pk:a:bare"))
	_, err := posts.Get(ctx, "pk:a:bare")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, posts.Delete(ctx, "pk:a:tagged"))
	survivor, err := posts.Get(ctx, "pk:a:tagged")
	require.NoError(t, err)
	assert.True(t, survivor.IsTombstone())
}

func TestPostController_BulkSaveDropsFailures(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")

	saved := posts.BulkSave(ctx, []nexus.Post{
		postPayload("pk:a", "p1"),
		postPayload("pk:ghost", "p2"), // Author not cached
		postPayload("pk:a", "p3"),
	})

	ids := make([]string, 0, len(saved))
	for _, p := range saved {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"pk:a:p1", "pk:a:p3"}, ids)
}

func TestPostController_BulkSaveSharedAuthor(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	payloads := make([]nexus.Post, 0, 50)
	for i := range 50 {
		payloads = append(payloads, postPayload("pk:a", fmt.Sprintf("p%02d", i)))
	}

	// Every create bumps the same author record; none may drop just
	// because the batch is large.
	saved := posts.BulkSave(ctx, payloads)
	assert.Len(t, saved, 50)

	author, err := users.Get(ctx, "pk:a")
	require.NoError(t, err)
	assert.Equal(t, 50, author.Counts.Posts)
}

func TestPostController_BulkDeletePartialFailure(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	saveTestPost(t, posts, "pk:a", "p1")
	saveTestPost(t, posts, "pk:a", "p2")

	res := posts.BulkDelete(ctx, []string{"pk:a:p1", "pk:a:p2", "pk:a:missing"})
	assert.ElementsMatch(t, []string{"pk:a:p1", "pk:a:p2"}, res.Success)
	assert.Equal(t, []string{"pk:a:missing"}, res.Failed)
}

func TestPostController_TagValidation(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	saveTestPost(t, posts, "pk:a", "p1")

	err := posts.Tag(ctx, "pk:a", "pk:a:p1", "", nexus.ActionPut)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	err = posts.Tag(ctx, "pk:a", "pk:a:p1", "dev", "SET")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	err = posts.Tag(ctx, "pk:ghost", "pk:a:p1", "dev", nexus.ActionPut)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	err = posts.Tag(ctx, "pk:a", "pk:a:missing", "dev", nexus.ActionPut)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// A post id with no author separator is rejected up front
	err = posts.Tag(ctx, "pk:a", "nodelimiter", "dev", nexus.ActionPut)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestPostController_SearchByKind(t *testing.T) {
	users, posts := setupTestControllers(t)
	ctx := context.Background()

	saveTestUser(t, users, "pk:a")
	saveTestPost(t, posts, "pk:a", "p1")

	long := postPayload("pk:a", "p2")
	long.Details.Kind = nexus.PostKindLong
	_, err := posts.Save(ctx, long)
	require.NoError(t, err)

	got, err := posts.Search(ctx, store.PostQuery{Kind: nexus.PostKindLong}, store.DefaultPage())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pk:a:p2", got[0].ID)

	n, err := posts.Count(ctx, store.PostQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
