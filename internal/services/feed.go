package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"creddit/internal/apperror"
	"creddit/internal/models"
	"creddit/internal/repository"
	"creddit/internal/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	snippetLength   = 50
)

type PostLister interface {
	ListPage(ctx context.Context, limit int, after *repository.Cursor) ([]models.Post, error)
}

// voteStatuser is satisfied by *Ledger.
type voteStatuser interface {
	VoteStatus(ctx context.Context, userID uint, postIDs []uint) (map[uint]int, error)
}

// Page is one slice of the feed.
type Page struct {
	Posts      []models.Post `json:"posts"`
	HasMore    bool          `json:"hasMore"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// Feed pages through posts newest first.
type Feed struct {
	posts   PostLister
	votes   voteStatuser
	timeout time.Duration
}

func NewFeed(posts PostLister, votes voteStatuser, timeout time.Duration) *Feed {
	return &Feed{posts: posts, votes: votes, timeout: timeout}
}

// ListPosts returns up to limit posts older than cursor. An empty cursor
// starts at the newest post.
func (f *Feed) ListPosts(ctx context.Context, viewerID uint, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var after *repository.Cursor
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		after = &c
	}

	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	posts, err := f.posts.ListPage(ctx, limit+1, after)
	if err != nil {
		return Page{}, err
	}

	page := Page{Posts: posts, HasMore: len(posts) > limit}
	if page.HasMore {
		page.Posts = posts[:limit]
		last := page.Posts[limit-1]
		page.NextCursor = EncodeCursor(repository.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	ids := make([]uint, len(page.Posts))
	for i := range page.Posts {
		ids[i] = page.Posts[i].ID
	}
	status, err := f.votes.VoteStatus(ctx, viewerID, ids)
	if err != nil {
		return Page{}, err
	}

	for i := range page.Posts {
		p := &page.Posts[i]
		p.Author = p.Author.PublicFor(viewerID)
		p.TextSnippet = utils.Snippet(p.Text, snippetLength)
		p.VoteStatus = status[p.ID]
	}
	if page.Posts == nil {
		page.Posts = []models.Post{}
	}
	return page, nil
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c repository.Cursor) string {
	raw := fmt.Sprintf("%d:%d", c.CreatedAt.UnixMicro(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from EncodeCursor. A bare millisecond
// timestamp is also accepted and yields a timestamp-only cursor.
func DecodeCursor(s string) (repository.Cursor, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		if micros, id, ok := strings.Cut(string(raw), ":"); ok {
			us, err1 := strconv.ParseInt(micros, 10, 64)
			pk, err2 := strconv.ParseUint(id, 10, 64)
			if err1 == nil && err2 == nil && pk > 0 {
				return repository.Cursor{CreatedAt: time.UnixMicro(us).UTC(), ID: uint(pk)}, nil
			}
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return repository.Cursor{CreatedAt: time.UnixMilli(ms).UTC()}, nil
	}
	return repository.Cursor{}, apperror.ValidationFailed("cursor", "Invalid cursor")
}
