package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// ProductionSyncEngine carries changes made to approved staged entries into production.
type ProductionSyncEngine struct {
	resolver *MatchKeyResolver
	logger   *zap.Logger
}

// NewProductionSyncEngine constructs the engine.
func NewProductionSyncEngine(resolver *MatchKeyResolver, logger *zap.Logger) *ProductionSyncEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductionSyncEngine{resolver: resolver, logger: logger}
}

// ReassignmentResult reports what a reassignment touched.
type ReassignmentResult struct {
	ProductionRows int64
	Siblings       int64
}

// PropagateReassignment points every production row of the entry's player in the submission at
// accountID, then moves the player's other approved entries to the same account.
func (e *ProductionSyncEngine) PropagateReassignment(ctx context.Context, stores Stores, entry models.StagedEntry, accountID *string) (ReassignmentResult, error) {
	base := entry.Base()
	rows, err := stores.Production.UpdateAccount(ctx, entry.Kind(), models.PlayerScopeKey(entry), accountID)
	if err != nil {
		return ReassignmentResult{}, err
	}
	siblings, err := stores.Entries.ReassignApprovedSiblings(ctx, entry.Kind(), base.SubmissionID, base.PlayerName, base.ID, accountID)
	if err != nil {
		return ReassignmentResult{ProductionRows: rows}, err
	}
	if rows == 0 {
		e.logger.Info("approved entry has no production rows in player scope",
			zap.String("submission_id", base.SubmissionID),
			zap.String("entry_id", base.ID),
		)
	}
	return ReassignmentResult{ProductionRows: rows, Siblings: siblings}, nil
}

// EditTarget is the production row an approved entry's edits land on. Found is false when the
// entry has no production counterpart.
type EditTarget struct {
	ID    string
	Found bool
}

// LocateEditTarget resolves the production row matched by the entry's pre-edit business key.
// It runs before the staged write so that lookup and ambiguity failures leave nothing changed.
func (e *ProductionSyncEngine) LocateEditTarget(ctx context.Context, stores Stores, submission *models.Submission, preEditKey models.BusinessKey) (EditTarget, error) {
	id, found, err := e.resolver.ResolveOne(ctx, stores.Production, submission, preEditKey)
	if err != nil {
		return EditTarget{}, err
	}
	if !found {
		e.logger.Info("approved entry has no matching production row",
			zap.String("submission_id", submission.ID),
			zap.Strings("key_columns", preEditKey.Columns()),
		)
	}
	return EditTarget{ID: id, Found: found}, nil
}

// PropagateEdits applies edits to target. synced is false when there is no production row.
func (e *ProductionSyncEngine) PropagateEdits(ctx context.Context, stores Stores, kind models.SubmissionType, target EditTarget, edits []models.FieldEdit) (synced bool, err error) {
	if !target.Found {
		return false, nil
	}
	if err := stores.Production.UpdateFields(ctx, kind, target.ID, edits); err != nil {
		return false, err
	}
	return true, nil
}
