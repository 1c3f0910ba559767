package services

import (
	"context"
	"errors"
	"time"

	"creddit/internal/apperror"
	"creddit/internal/models"
	"creddit/internal/repository"

	"github.com/sirupsen/logrus"
)

// VoteStore is the persistence the ledger needs.
type VoteStore interface {
	Apply(ctx context.Context, userID, postID uint, value int) (repository.VoteResult, error)
	Recount(ctx context.Context, postID uint) (int, error)
	StatusFor(ctx context.Context, userID uint, postIDs []uint) (map[uint]int, error)
}

// Ledger records votes and keeps each post's points equal to the sum of
// its votes.
type Ledger struct {
	votes   VoteStore
	timeout time.Duration
	metrics *Metrics
	log     *logrus.Logger
}

func NewLedger(votes VoteStore, timeout time.Duration, metrics *Metrics, log *logrus.Logger) *Ledger {
	return &Ledger{votes: votes, timeout: timeout, metrics: metrics, log: log}
}

// CastVote applies value (+1 or -1) from userID to postID and returns the
// post's points afterwards. Repeating the current direction changes nothing;
// reversing it moves points by 2.
func (l *Ledger) CastVote(ctx context.Context, userID, postID uint, value int) (int, error) {
	if userID == 0 {
		return 0, apperror.Unauthenticated()
	}
	if !models.ValidVote(value) {
		l.metrics.Votes.WithLabelValues("rejected").Inc()
		return 0, apperror.ValidationFailed("value", "Vote must be 1 or -1")
	}

	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	res, err := l.votes.Apply(ctx, userID, postID, value)
	if err != nil {
		l.countFailure(err)
		return 0, err
	}

	switch {
	case res.Delta == 0:
		l.metrics.Votes.WithLabelValues("unchanged").Inc()
	case res.Previous == 0:
		l.metrics.Votes.WithLabelValues("created").Inc()
	default:
		l.metrics.Votes.WithLabelValues("changed").Inc()
	}

	l.log.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
		"value":   value,
		"delta":   res.Delta,
	}).Debug("vote applied")
	return res.Points, nil
}

// VoteStatus returns userID's current vote per post; missing posts are 0.
func (l *Ledger) VoteStatus(ctx context.Context, userID uint, postIDs []uint) (map[uint]int, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()
	return l.votes.StatusFor(ctx, userID, postIDs)
}

// Recount rebuilds a post's points from its ledger rows.
func (l *Ledger) Recount(ctx context.Context, postID uint) (int, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	points, err := l.votes.Recount(ctx, postID)
	if err != nil {
		l.countFailure(err)
		return 0, err
	}
	l.log.WithFields(logrus.Fields{"post_id": postID, "points": points}).Info("points recounted")
	return points, nil
}

func (l *Ledger) countFailure(err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		l.metrics.Votes.WithLabelValues("not_found").Inc()
	case errors.Is(err, apperror.ErrStorageConflict):
		l.metrics.Votes.WithLabelValues("conflict").Inc()
		l.metrics.StorageConflicts.Inc()
		l.log.WithError(err).Warn("vote storage conflict")
	default:
		l.metrics.Votes.WithLabelValues("error").Inc()
	}
}
