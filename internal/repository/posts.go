package repository

import (
	"context"
	"errors"
	"time"

	"creddit/internal/apperror"
	"creddit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cursor is a position in the newest-first feed. A zero ID means only the
// timestamp is known and every post at that instant is excluded.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

type PostRepo struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) *PostRepo {
	return &PostRepo{db: db}
}

func (r *PostRepo) Create(ctx context.Context, post *models.Post) error {
	post.Points = 0
	if !post.CreatedAt.IsZero() {
		post.CreatedAt = post.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
	return wrap("create post", err)
}

// GetByID loads a post together with its author.
func (r *PostRepo) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, wrap("get post", err)
	}
	return &post, nil
}

// UpdateTitle changes the title only; points are never touched here.
func (r *PostRepo) UpdateTitle(ctx context.Context, id uint, title string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("title", title)
	if res.Error != nil {
		return wrap("update post", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

// Delete removes the post and its ledger rows in one transaction.
func (r *PostRepo) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("post", id)
		}
		return nil
	})
	return wrap("delete post", err)
}

// ListPage returns up to limit posts strictly older than after, newest
// first, with ties on created_at broken by id.
func (r *PostRepo) ListPage(ctx context.Context, limit int, after *Cursor) ([]models.Post, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	if after != nil {
		if after.ID == 0 {
			q = q.Where("created_at < ?", after.CreatedAt)
		} else {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
		}
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, wrap("list posts", err)
	}
	return posts, nil
}
