package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/models"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
)

// DeletionCascade removes entries or whole submissions while keeping counters consistent.
type DeletionCascade struct {
	resolver   *MatchKeyResolver
	aggregator *StatusAggregator
	logger     *zap.Logger
}

// NewDeletionCascade constructs the cascade.
func NewDeletionCascade(resolver *MatchKeyResolver, aggregator *StatusAggregator, logger *zap.Logger) *DeletionCascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionCascade{resolver: resolver, aggregator: aggregator, logger: logger}
}

// EntryDeletion reports the effect of deleting one entry.
type EntryDeletion struct {
	ProductionRowID   string
	SubmissionDeleted bool
	Remaining         int
	Aggregate         models.SubmissionAggregate
}

// DeleteEntry removes entry from submission. An approved entry's production row goes first and a
// failure there aborts before the staged row is touched. The submission is deleted with its last entry.
func (d *DeletionCascade) DeleteEntry(ctx context.Context, stores Stores, submission *models.Submission, entry models.StagedEntry) (EntryDeletion, error) {
	var result EntryDeletion
	base := entry.Base()

	if base.ItemStatus == models.ItemStatusApproved {
		id, found, err := d.resolver.ResolveOne(ctx, stores.Production, submission, entry.BusinessKey())
		if err != nil {
			return result, err
		}
		if found {
			if err := stores.Production.Delete(ctx, submission.SubmissionType, id); err != nil {
				return result, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete production row; entry kept")
			}
			result.ProductionRowID = id
		}
	}

	if err := stores.Entries.Delete(ctx, submission.SubmissionType, base.ID); err != nil {
		return result, lookupError(err, "entry not found", "failed to delete entry")
	}

	remaining, err := stores.Entries.Count(ctx, submission.SubmissionType, submission.ID)
	if err != nil {
		return result, storageError(err, "failed to count remaining entries")
	}
	if remaining == 0 {
		if err := stores.Submissions.Delete(ctx, submission.ID); err != nil {
			return result, storageError(err, "failed to delete empty submission")
		}
		result.SubmissionDeleted = true
		return result, nil
	}

	agg, err := d.aggregator.Recompute(ctx, stores, submission)
	if err != nil {
		return result, err
	}
	result.Remaining = remaining
	result.Aggregate = agg
	return result, nil
}

// DeleteSubmission clears production back-references and deletes the submission. Staged rows
// are removed by the foreign key cascade; production rows survive.
func (d *DeletionCascade) DeleteSubmission(ctx context.Context, stores Stores, submission *models.Submission) (int64, error) {
	detached, err := stores.Production.DetachSubmission(ctx, submission.ID)
	if err != nil {
		return 0, storageError(err, "failed to detach production rows")
	}
	if err := stores.Submissions.Delete(ctx, submission.ID); err != nil {
		return detached, lookupError(err, "submission not found", "failed to delete submission")
	}
	d.logger.Debug("submission deleted",
		zap.String("submission_id", submission.ID),
		zap.Int64("production_rows_detached", detached),
	)
	return detached, nil
}
