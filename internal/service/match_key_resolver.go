package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/models"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
)

// MatchKeyResolver locates production rows by business key and applies the ambiguity policy.
type MatchKeyResolver struct {
	strict  bool
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMatchKeyResolver constructs the resolver. With strict set, several matches fail the lookup.
func NewMatchKeyResolver(strict bool, metrics *MetricsService, logger *zap.Logger) *MatchKeyResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchKeyResolver{strict: strict, metrics: metrics, logger: logger}
}

// Resolve returns every production row id matching key within the submission's clan.
func (r *MatchKeyResolver) Resolve(ctx context.Context, store ProductionStore, submission *models.Submission, key models.BusinessKey) ([]string, error) {
	ids, err := store.FindIDs(ctx, submission.SubmissionType, submission.ClanID, key)
	if err != nil {
		return nil, storageError(err, "failed to resolve production row")
	}
	return ids, nil
}

// ResolveOne returns the single production row for key. found is false when nothing matches.
func (r *MatchKeyResolver) ResolveOne(ctx context.Context, store ProductionStore, submission *models.Submission, key models.BusinessKey) (id string, found bool, err error) {
	ids, err := r.Resolve(ctx, store, submission, key)
	if err != nil {
		return "", false, err
	}
	switch len(ids) {
	case 0:
		return "", false, nil
	case 1:
		return ids[0], true, nil
	}

	r.metrics.RecordAmbiguousMatch(string(submission.SubmissionType))
	if r.strict {
		return "", false, appErrors.Clone(appErrors.ErrAmbiguousMatch, "business key matched more than one production row")
	}
	r.logger.Warn("ambiguous production match, using first row",
		zap.String("submission_id", submission.ID),
		zap.String("submission_type", string(submission.SubmissionType)),
		zap.Strings("key_columns", key.Columns()),
		zap.Strings("production_ids", ids),
	)
	return ids[0], true, nil
}
