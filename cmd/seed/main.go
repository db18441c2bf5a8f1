// Package main provides a tool to seed the local entity store with test
// social data. It either replays a JSON fixture of indexer payloads or
// generates synthetic users, posts, follows, tags and bookmarks for
// exercising reads, search and the relationship counters.
//
// Usage:
//
//	STORE_PATH=~/.mesh-cache/db go run ./cmd/seed
//	STORE_PATH=~/.mesh-cache/db go run ./cmd/seed --users 50 --posts 200
//	go run ./cmd/seed --fixture testdata/fixture.json
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/meshapp/mesh-cache/internal/controller"
	"github.com/meshapp/mesh-cache/internal/di"
	"github.com/meshapp/mesh-cache/internal/logger"
	"github.com/meshapp/mesh-cache/internal/nexus"
)

var (
	userCount = flag.Int("users", 20, "Number of synthetic users to create")
	postCount = flag.Int("posts", 100, "Number of synthetic posts to create")
	fixture   = flag.String("fixture", "", "JSON fixture of indexer payloads to replay instead of synthetic data")
)

var tagLabels = []string{"dev", "music", "art", "golang", "photography", "news", "memes"}

// Fixture is the replayable seed file shape: raw indexer payloads plus the
// relationship actions to apply after caching them.
type Fixture struct {
	Users   []nexus.User `json:"users"`
	Posts   []nexus.Post `json:"posts"`
	Follows []struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"follows,omitempty"`
}

func main() {
	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = injector.Shutdown() }()

	log_ := do.MustInvoke[*logger.Logger](injector)
	users := do.MustInvoke[*controller.UserController](injector)
	posts := do.MustInvoke[*controller.PostController](injector)

	ctx := context.Background()

	if *fixture != "" {
		replayFixture(ctx, users, posts, *fixture)
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	userIDs := seedUsers(ctx, users)
	fmt.Printf("Created %d users\n", len(userIDs))

	postIDs := seedPosts(ctx, posts, rng, userIDs)
	fmt.Printf("Created %d posts\n", len(postIDs))

	seedRelationships(ctx, users, posts, rng, userIDs, postIDs)

	log_.Info("Seeding finished", "users", len(userIDs), "posts", len(postIDs))
	fmt.Println("Done.")
}

func replayFixture(ctx context.Context, users *controller.UserController, posts *controller.PostController, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read fixture: %v", err)
	}

	var fx Fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		log.Fatalf("Failed to parse fixture: %v", err)
	}

	savedUsers := users.BulkSave(ctx, fx.Users)
	fmt.Printf("Cached %d/%d users\n", len(savedUsers), len(fx.Users))

	savedPosts := posts.BulkSave(ctx, fx.Posts)
	fmt.Printf("Cached %d/%d posts\n", len(savedPosts), len(fx.Posts))

	follows := 0
	for _, f := range fx.Follows {
		if err := users.Follow(ctx, f.From, f.To, nexus.ActionPut); err != nil {
			log.Printf("follow %s -> %s: %v", f.From, f.To, err)
			continue
		}
		follows++
	}
	fmt.Printf("Applied %d/%d follows\n", follows, len(fx.Follows))
	fmt.Println("Done.")
}

func seedUsers(ctx context.Context, users *controller.UserController) []string {
	payloads := make([]nexus.User, 0, *userCount)
	for i := range *userCount {
		payloads = append(payloads, nexus.User{
			Details: nexus.UserDetails{
				ID:   fmt.Sprintf("pk:user%03d", i),
				Name: fmt.Sprintf("Test User %d", i),
				Bio:  "Synthetic seed profile",
			},
		})
	}

	saved := users.BulkSave(ctx, payloads)
	ids := make([]string, 0, len(saved))
	for _, u := range saved {
		ids = append(ids, u.ID)
	}
	return ids
}

func seedPosts(ctx context.Context, posts *controller.PostController, rng *rand.Rand, userIDs []string) []string {
	payloads := make([]nexus.Post, 0, *postCount)
	for i := range *postCount {
		author := userIDs[rng.Intn(len(userIDs))]
		kind := nexus.PostKindShort
		if rng.Intn(4) == 0 {
			kind = nexus.PostKindLong
		}
		payloads = append(payloads, nexus.Post{
			Details: nexus.PostDetails{
				ID:      fmt.Sprintf("seed%04d", i),
				Author:  author,
				Content: fmt.Sprintf("Seed post number %d", i),
				Kind:    kind,
			},
		})
	}

	saved := posts.BulkSave(ctx, payloads)
	ids := make([]string, 0, len(saved))
	for _, p := range saved {
		ids = append(ids, p.ID)
	}
	return ids
}

func seedRelationships(
	ctx context.Context,
	users *controller.UserController,
	posts *controller.PostController,
	rng *rand.Rand,
	userIDs, postIDs []string,
) {
	follows := 0
	for _, selfID := range userIDs {
		for range rng.Intn(5) {
			otherID := userIDs[rng.Intn(len(userIDs))]
			if otherID == selfID {
				continue
			}
			if err := users.Follow(ctx, selfID, otherID, nexus.ActionPut); err != nil {
				log.Printf("follow %s -> %s: %v", selfID, otherID, err)
				continue
			}
			follows++
		}
	}
	fmt.Printf("Applied %d follows\n", follows)

	tags := 0
	for _, postID := range postIDs {
		if rng.Intn(3) != 0 {
			continue
		}
		taggerID := userIDs[rng.Intn(len(userIDs))]
		label := tagLabels[rng.Intn(len(tagLabels))]
		if err := posts.Tag(ctx, taggerID, postID, label, nexus.ActionPut); err != nil {
			log.Printf("tag %s on %s: %v", label, postID, err)
			continue
		}
		tags++
	}
	fmt.Printf("Applied %d post tags\n", tags)

	bookmarks := 0
	for _, postID := range postIDs {
		if rng.Intn(10) != 0 {
			continue
		}
		if err := posts.Bookmark(ctx, postID, nexus.ActionPut); err != nil {
			log.Printf("bookmark %s: %v", postID, err)
			continue
		}
		bookmarks++
	}
	fmt.Printf("Applied %d bookmarks\n", bookmarks)
}
