package repository

import (
	"context"
	"errors"

	"creddit/internal/apperror"
	"creddit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteResult describes what one Apply did to the ledger.
type VoteResult struct {
	Previous int // value before the call, 0 if none
	Delta    int // change applied to post.points
	Points   int // post.points after the call
}

type VoteRepo struct {
	db *gorm.DB
}

func NewVoteRepo(db *gorm.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Apply records userID's vote on postID and adjusts the post's points by
// the resulting delta. The post row is locked for the whole transaction so
// concurrent voters on one post serialise.
func (r *VoteRepo) Apply(ctx context.Context, userID, postID uint, value int) (VoteResult, error) {
	var result VoteResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		var existing models.Vote
		err = tx.Where("user_id = ? AND post_id = ?", userID, postID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{UserID: userID, PostID: postID, Value: value}
			if err := tx.Omit(clause.Associations).Create(&vote).Error; err != nil {
				return err
			}
			result.Delta = value
		case err != nil:
			return err
		case existing.Value == value:
			result.Previous = existing.Value
		default:
			result.Previous = existing.Value
			res := tx.Model(&models.Vote{}).
				Where("user_id = ? AND post_id = ?", userID, postID).
				Update("value", value)
			if res.Error != nil {
				return res.Error
			}
			result.Delta = value - existing.Value
		}

		if result.Delta != 0 {
			err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("points", gorm.Expr("points + ?", result.Delta)).Error
			if err != nil {
				return err
			}
		}
		result.Points = post.Points + result.Delta
		return nil
	})
	if err != nil {
		return VoteResult{}, wrap("apply vote", err)
	}
	return result, nil
}

// Recount rebuilds post.points from the ledger and returns the new value.
func (r *VoteRepo) Recount(ctx context.Context, postID uint) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		var err error
		if sum, err = ledgerSum(tx, postID); err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumn("points", sum).Error
	})
	if err != nil {
		return 0, wrap("recount", err)
	}
	return sum, nil
}

// LedgerSum is the sum of vote values recorded for postID.
func (r *VoteRepo) LedgerSum(ctx context.Context, postID uint) (int, error) {
	sum, err := ledgerSum(r.db.WithContext(ctx), postID)
	return sum, wrap("ledger sum", err)
}

// StatusFor returns userID's vote on each of postIDs. Posts without a vote
// are absent from the map.
func (r *VoteRepo) StatusFor(ctx context.Context, userID uint, postIDs []uint) (map[uint]int, error) {
	status := make(map[uint]int, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return status, nil
	}

	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Select("post_id", "value").
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Find(&votes).Error
	if err != nil {
		return nil, wrap("vote status", err)
	}
	for _, v := range votes {
		status[v.PostID] = v.Value
	}
	return status, nil
}

func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "points").
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("post", postID)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func ledgerSum(db *gorm.DB, postID uint) (int, error) {
	var sum int
	err := db.Model(&models.Vote{}).
		Where("post_id = ?", postID).
		Select("COALESCE(SUM(value), 0)").
		Scan(&sum).Error
	return sum, err
}
