package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshapp/mesh-cache/internal/domain"
	"github.com/meshapp/mesh-cache/internal/nexus"
)

func TestStore_CreatePost_RequiresAuthor(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := domain.NewPostFromNexus(nexus.Post{
		Details: nexus.PostDetails{ID: "p1", Author: "pk:ghost", Content: "x"},
	}, domain.DefaultSyncTTL)

	err := s.CreatePost(ctx, p)
	assert.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestStore_CreatePost_BumpsAuthorCounters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestPost(t, s, "pk:a", "p1")

	author, err := s.GetUser(ctx, "pk:a")
	require.NoError(t, err)
	assert.Equal(t, 1, author.Counts.Posts)
	assert.Equal(t, 0, author.Counts.Replies)

	// A reply bumps both the author's reply counter and the original's
	reply := domain.NewPostFromNexus(nexus.Post{
		Details:       nexus.PostDetails{ID: "p2", Author: "pk:a", Content: "re", Kind: nexus.PostKindReply},
		Relationships: nexus.PostRelationships{Replied: "pk:a:p1"},
	}, domain.DefaultSyncTTL)
	require.NoError(t, s.CreatePost(ctx, reply))

	author, _ = s.GetUser(ctx, "pk:a")
	assert.Equal(t, 2, author.Counts.Posts)
	assert.Equal(t, 1, author.Counts.Replies)

	orig, err := s.GetPost(ctx, "pk:a:p1")
	require.NoError(t, err)
	assert.Equal(t, 1, orig.Counts.Replies)
}

func TestStore_CreatePost_ToleratesMissingOriginal(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")

	repost := domain.NewPostFromNexus(nexus.Post{
		Details:       nexus.PostDetails{ID: "p1", Author: "pk:a", Content: "rt", Kind: nexus.PostKindRepost},
		Relationships: nexus.PostRelationships{Reposted: "pk:elsewhere:unfetched"},
	}, domain.DefaultSyncTTL)

	require.NoError(t, s.CreatePost(ctx, repost))
}

func TestStore_DeletePost_HardDeleteWhenBare(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestPost(t, s, "pk:a", "p1")

	tombstoned, err := s.DeletePost(ctx, "pk:a:p1")
	require.NoError(t, err)
	assert.False(t, tombstoned)

	_, err = s.GetPost(ctx, "pk:a:p1")
	assert.ErrorIs(t, err, ErrPostNotFound)

	// The author's post counter moved back
	author, _ := s.GetUser(ctx, "pk:a")
	assert.Equal(t, 0, author.Counts.Posts)
}

func TestStore_DeletePost_TombstonesWhenRelationshipBearing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestUser(t, s, "pk:b")
	createTestPost(t, s, "pk:a", "p1")

	require.NoError(t, s.ApplyPostTag(ctx, "pk:b", "pk:a:p1", "dev", nexus.ActionPut))

	tombstoned, err := s.DeletePost(ctx, "pk:a:p1")
	require.NoError(t, err)
	assert.True(t, tombstoned)

	// The record survives with tombstoned content; tags stay intact
	p, err := s.GetPost(ctx, "pk:a:p1")
	require.NoError(t, err)
	assert.True(t, p.IsTombstone())
	assert.Equal(t, domain.TombstoneContent, p.Details.Content)
	require.Len(t, p.Tags, 1)
	assert.Equal(t, "dev", p.Tags[0].Label)
}

func TestStore_DeletePost_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.DeletePost(context.Background(), "pk:a:missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestStore_DeletePost_ReportsFinalOutcomeUnderContention(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, s, "pk:a")

	// A concurrent bookmark toggle can force the delete transaction to
	// retry after deciding; the reported outcome must reflect the attempt
	// that actually committed, not an aborted one.
	for i := range 8 {
		p := createTestPost(t, s, "pk:a", fmt.Sprintf("contended%d", i))
		require.NoError(t, s.ApplyBookmark(ctx, p.ID, nexus.ActionPut))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 40 {
				_ = s.ApplyBookmark(ctx, p.ID, nexus.ActionDel)
				_ = s.ApplyBookmark(ctx, p.ID, nexus.ActionPut)
			}
		}()

		tombstoned, err := s.DeletePost(ctx, p.ID)
		wg.Wait()
		require.NoError(t, err)

		_, getErr := s.GetPost(ctx, p.ID)
		if tombstoned {
			assert.NoError(t, getErr, "tombstoned delete must leave the record")
		} else {
			assert.ErrorIs(t, getErr, ErrPostNotFound, "hard delete must remove the record")
		}
	}
}

func TestStore_ApplyPostTag_MovesTaggerCounter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestUser(t, s, "pk:b")
	createTestPost(t, s, "pk:a", "p1")

	require.NoError(t, s.ApplyPostTag(ctx, "pk:b", "pk:a:p1", "dev", nexus.ActionPut))

	p, _ := s.GetPost(ctx, "pk:a:p1")
	tagger, _ := s.GetUser(ctx, "pk:b")
	assert.Equal(t, 1, p.Counts.Tags)
	assert.Equal(t, 1, tagger.Counts.Tagged)

	// Repeated PUT changes nothing on either side
	require.NoError(t, s.ApplyPostTag(ctx, "pk:b", "pk:a:p1", "dev", nexus.ActionPut))
	p, _ = s.GetPost(ctx, "pk:a:p1")
	tagger, _ = s.GetUser(ctx, "pk:b")
	assert.Equal(t, 1, p.Counts.Tags)
	assert.Equal(t, 1, tagger.Counts.Tagged)

	require.NoError(t, s.ApplyPostTag(ctx, "pk:b", "pk:a:p1", "dev", nexus.ActionDel))
	p, _ = s.GetPost(ctx, "pk:a:p1")
	tagger, _ = s.GetUser(ctx, "pk:b")
	assert.Empty(t, p.Tags)
	assert.Equal(t, 0, tagger.Counts.Tagged)
}

func TestStore_ApplyBookmark(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestPost(t, s, "pk:a", "p1")

	require.NoError(t, s.ApplyBookmark(ctx, "pk:a:p1", nexus.ActionPut))

	p, err := s.GetPost(ctx, "pk:a:p1")
	require.NoError(t, err)
	require.NotNil(t, p.Bookmark)

	bookmarked, err := s.GetBookmarkedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarked, 1)
	assert.Equal(t, "pk:a:p1", bookmarked[0].ID)

	require.NoError(t, s.ApplyBookmark(ctx, "pk:a:p1", nexus.ActionDel))
	bookmarked, err = s.GetBookmarkedPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, bookmarked)
}

func TestStore_GetRepliesAndReposts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "pk:a")
	createTestUser(t, s, "pk:b")
	createTestPost(t, s, "pk:a", "orig")

	reply := domain.NewPostFromNexus(nexus.Post{
		Details:       nexus.PostDetails{ID: "re1", Author: "pk:b", Content: "re", Kind: nexus.PostKindReply},
		Relationships: nexus.PostRelationships{Replied: "pk:a:orig"},
	}, domain.DefaultSyncTTL)
	require.NoError(t, s.CreatePost(ctx, reply))

	repost := domain.NewPostFromNexus(nexus.Post{
		Details:       nexus.PostDetails{ID: "rt1", Author: "pk:b", Content: "rt", Kind: nexus.PostKindRepost},
		Relationships: nexus.PostRelationships{Reposted: "pk:a:orig"},
	}, domain.DefaultSyncTTL)
	require.NoError(t, s.CreatePost(ctx, repost))

	replies, err := s.GetReplies(ctx, "pk:a:orig")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "pk:b:re1", replies[0].ID)

	reposts, err := s.GetReposts(ctx, "pk:a:orig")
	require.NoError(t, err)
	require.Len(t, reposts, 1)
	assert.Equal(t, "pk:b:rt1", reposts[0].ID)

	byAuthor, err := s.GetPostsByAuthor(ctx, "pk:b")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)
}
