package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"creddit/internal/apperror"
	"creddit/internal/models"
	"creddit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walk pages through the whole feed and returns post ids in order plus the
// hasMore flag of each page.
func walk(t *testing.T, feed *Feed, viewer uint, limit int) ([]uint, []bool) {
	t.Helper()
	var (
		ids    []uint
		flags  []bool
		cursor string
	)
	for i := 0; i < 100; i++ {
		page, err := feed.ListPosts(context.Background(), viewer, limit, cursor)
		require.NoError(t, err)
		for _, p := range page.Posts {
			ids = append(ids, p.ID)
		}
		flags = append(flags, page.HasMore)
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			return ids, flags
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}
	t.Fatal("feed did not terminate")
	return nil, nil
}

func TestListPostsBoundaries(t *testing.T) {
	const limit = 3

	for _, n := range []int{0, 1, limit, limit + 1, 2*limit + 1} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			env := newEnv(t)
			alice := env.register(t, "alice")
			seeded := env.seedPosts(t, alice.ID, n)

			ids, flags := walk(t, env.feed, 0, limit)

			want := make([]uint, 0, n)
			for i := len(seeded) - 1; i >= 0; i-- {
				want = append(want, seeded[i].ID)
			}
			assert.Equal(t, want, nonNil(ids))

			for i, more := range flags {
				assert.Equal(t, i < len(flags)-1, more, "page %d", i)
			}
			wantPages := (n + limit - 1) / limit
			if wantPages == 0 {
				wantPages = 1
			}
			assert.Len(t, flags, wantPages)
		})
	}
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}

func TestListPostsTiedTimestamps(t *testing.T) {
	env := newEnv(t)
	alice := env.register(t, "alice")

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seen := map[uint]int{}
	for i := 0; i < 7; i++ {
		p := &models.Post{AuthorID: alice.ID, Title: "same instant", Text: "x", CreatedAt: at}
		require.NoError(t, env.postRepo.Create(context.Background(), p))
		seen[p.ID] = 0
	}

	ids, _ := walk(t, env.feed, 0, 2)
	for _, id := range ids {
		seen[id]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "post %d", id)
	}
	assert.Len(t, ids, 7)
}

func TestListPostsClampsLimit(t *testing.T) {
	env := newEnv(t)
	alice := env.register(t, "alice")
	env.seedPosts(t, alice.ID, MaxPageSize+5)

	page, err := env.feed.ListPosts(context.Background(), 0, 1000, "")
	require.NoError(t, err)
	assert.Len(t, page.Posts, MaxPageSize)
	assert.True(t, page.HasMore)

	page, err = env.feed.ListPosts(context.Background(), 0, 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Posts, DefaultPageSize)
}

func TestListPostsRejectsBadCursor(t *testing.T) {
	env := newEnv(t)

	_, err := env.feed.ListPosts(context.Background(), 0, 10, "not a cursor!")
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "cursor", apperror.Fields(err)[0].Field)
}

func TestListPostsAcceptsMillisecondCursor(t *testing.T) {
	env := newEnv(t)
	alice := env.register(t, "alice")
	seeded := env.seedPosts(t, alice.ID, 3)

	cursor := fmt.Sprint(seeded[2].CreatedAt.UnixMilli())
	page, err := env.feed.ListPosts(context.Background(), 0, 10, cursor)
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, seeded[1].ID, page.Posts[0].ID)
}

func TestListPostsEnrichesForViewer(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bobby")

	long := strings.Repeat("word ", 30)
	post, err := env.posts.Create(ctx, alice.ID, "Hello", long)
	require.NoError(t, err)
	_, err = env.ledger.CastVote(ctx, bob.ID, post.ID, models.VoteDown)
	require.NoError(t, err)

	page, err := env.feed.ListPosts(ctx, alice.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "alice@example.com", page.Posts[0].Author.Email)
	assert.Equal(t, long[:50], page.Posts[0].TextSnippet)
	assert.Equal(t, 0, page.Posts[0].VoteStatus)

	page, err = env.feed.ListPosts(ctx, bob.ID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Posts[0].Author.Email)
	assert.Equal(t, "alice", page.Posts[0].Author.Username)
	assert.Equal(t, models.VoteDown, page.Posts[0].VoteStatus)
	assert.Equal(t, -1, page.Posts[0].Points)
}

func TestCursorRoundTrip(t *testing.T) {
	c := repository.Cursor{CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), ID: 42}

	got, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.ID, got.ID)
}
