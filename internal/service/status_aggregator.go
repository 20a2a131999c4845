package service

import (
	"context"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// StatusAggregator recomputes submission counters from the staged rows themselves.
type StatusAggregator struct{}

// NewStatusAggregator constructs the aggregator.
func NewStatusAggregator() *StatusAggregator {
	return &StatusAggregator{}
}

// Compute counts the submission's staged entries and derives its status without persisting.
func (a *StatusAggregator) Compute(ctx context.Context, entries StagedEntryStore, submission *models.Submission) (models.SubmissionAggregate, error) {
	counts, matched, err := entries.CountByStatus(ctx, submission.SubmissionType, submission.ID)
	if err != nil {
		return models.SubmissionAggregate{}, storageError(err, "failed to count staged entries")
	}
	return models.SubmissionAggregate{
		Counts:       counts,
		MatchedCount: matched,
		Status:       models.DeriveSubmissionStatus(counts),
	}, nil
}

// Recompute computes the aggregate, persists it and copies it onto submission.
func (a *StatusAggregator) Recompute(ctx context.Context, stores Stores, submission *models.Submission) (models.SubmissionAggregate, error) {
	agg, err := a.Compute(ctx, stores.Entries, submission)
	if err != nil {
		return agg, err
	}
	if err := stores.Submissions.UpdateAggregate(ctx, submission.ID, agg); err != nil {
		return agg, storageError(err, "failed to update submission counters")
	}
	agg.Apply(submission)
	return agg, nil
}
