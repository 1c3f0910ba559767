package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"creddit/internal/apperror"
	"creddit/internal/models"
	"creddit/internal/utils"

	"github.com/sirupsen/logrus"
)

const maxTitleLength = 255

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	UpdateTitle(ctx context.Context, id uint, title string) error
	Delete(ctx context.Context, id uint) error
}

// PostService owns post records. Only the author may rename or delete.
type PostService struct {
	posts   PostRepository
	votes   voteStatuser
	cache   *RenderCache
	timeout time.Duration
	log     *logrus.Logger
}

func NewPostService(posts PostRepository, votes voteStatuser, cache *RenderCache, timeout time.Duration, log *logrus.Logger) *PostService {
	return &PostService{posts: posts, votes: votes, cache: cache, timeout: timeout, log: log}
}

func (s *PostService) Create(ctx context.Context, authorID uint, title, text string) (*models.Post, error) {
	if authorID == 0 {
		return nil, apperror.Unauthenticated()
	}
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "Text is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	post := &models.Post{AuthorID: authorID, Title: title, Text: text}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"post_id": post.ID, "author_id": authorID}).Info("post created")
	return s.present(created, authorID, 0), nil
}

// Get returns the post with rendered HTML, as seen by viewerID.
func (s *PostService) Get(ctx context.Context, viewerID, id uint) (*models.Post, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key := renderKey(post)
	rendered, ok := s.cache.Get(key)
	if !ok {
		rendered = utils.RenderMarkdown(post.Text)
		s.cache.Set(key, rendered, renderCacheTTL)
	}
	post.TextHTML = rendered

	status, err := s.votes.VoteStatus(ctx, viewerID, []uint{id})
	if err != nil {
		return nil, err
	}
	return s.present(post, viewerID, status[id]), nil
}

// Rename changes the title of a post owned by actorID.
func (s *PostService) Rename(ctx context.Context, postID, actorID uint, title string) (*models.Post, error) {
	if actorID == 0 {
		return nil, apperror.Unauthenticated()
	}
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.ownedBy(ctx, postID, actorID); err != nil {
		return nil, err
	}
	if err := s.posts.UpdateTitle(ctx, postID, title); err != nil {
		return nil, err
	}

	updated, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	status, err := s.votes.VoteStatus(ctx, actorID, []uint{postID})
	if err != nil {
		return nil, err
	}
	return s.present(updated, actorID, status[postID]), nil
}

// Delete removes a post owned by actorID together with its votes.
func (s *PostService) Delete(ctx context.Context, postID, actorID uint) error {
	if actorID == 0 {
		return apperror.Unauthenticated()
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.ownedBy(ctx, postID, actorID)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	s.cache.Delete(renderKey(post))
	s.log.WithFields(logrus.Fields{"post_id": postID, "actor_id": actorID}).Info("post deleted")
	return nil
}

func (s *PostService) ownedBy(ctx context.Context, postID, actorID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, apperror.Forbidden("not authorized to modify this post")
	}
	return post, nil
}

func (s *PostService) present(post *models.Post, viewerID uint, vote int) *models.Post {
	out := *post
	out.Author = post.Author.PublicFor(viewerID)
	if out.TextSnippet == "" {
		out.TextSnippet = utils.Snippet(out.Text, snippetLength)
	}
	out.VoteStatus = vote
	return &out
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apperror.ValidationFailed("title", "Title must be at most 255 characters")
	}
	return nil
}
