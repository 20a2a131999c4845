package service

import (
	"context"
	"time"

	"github.com/noah-isme/clanstats-api/internal/models"
	"github.com/noah-isme/clanstats-api/internal/repository"
)

// SubmissionStore persists submission headers.
type SubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	UpdateAggregate(ctx context.Context, id string, agg models.SubmissionAggregate) error
	UpdateMetadata(ctx context.Context, params repository.UpdateSubmissionMetadataParams) error
	FindReferenceDateConflicts(ctx context.Context, submission *models.Submission, date time.Time) ([]string, error)
	FindLinkedEventConflicts(ctx context.Context, submissionID, eventID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// StagedEntryStore reads and writes the per-type staged tables.
type StagedEntryStore interface {
	Get(ctx context.Context, kind models.SubmissionType, submissionID, entryID string) (models.StagedEntry, error)
	List(ctx context.Context, kind models.SubmissionType, filter models.StagedEntryFilter) ([]models.StagedEntry, int, error)
	CountByStatus(ctx context.Context, kind models.SubmissionType, submissionID string) (models.StatusCounts, int, error)
	Count(ctx context.Context, kind models.SubmissionType, submissionID string) (int, error)
	UpdateAssignment(ctx context.Context, kind models.SubmissionType, entryID string, accountID *string, status models.ItemStatus) error
	ReassignApprovedSiblings(ctx context.Context, kind models.SubmissionType, submissionID, playerName, excludeID string, accountID *string) (int64, error)
	UpdateFields(ctx context.Context, kind models.SubmissionType, entryID string, edits []models.FieldEdit) error
	Delete(ctx context.Context, kind models.SubmissionType, entryID string) error
	DistinctValues(ctx context.Context, kind models.SubmissionType, submissionID, column string) ([]string, error)
}

// ProductionStore reads and writes the canonical per-type tables.
type ProductionStore interface {
	FindIDs(ctx context.Context, kind models.SubmissionType, clanID string, key models.BusinessKey) ([]string, error)
	UpdateAccount(ctx context.Context, kind models.SubmissionType, key models.BusinessKey, accountID *string) (int64, error)
	UpdateFields(ctx context.Context, kind models.SubmissionType, id string, edits []models.FieldEdit) error
	Delete(ctx context.Context, kind models.SubmissionType, id string) error
	DetachSubmission(ctx context.Context, submissionID string) (int64, error)
}

// CorrectionStore records learned OCR corrections.
type CorrectionStore interface {
	Upsert(ctx context.Context, correction models.OCRCorrection) error
}

// AccountStore resolves verified accounts within a clan.
type AccountStore interface {
	FindClanAccount(ctx context.Context, clanID, accountID string) (*models.GameAccount, error)
	ListActiveByClan(ctx context.Context, clanID string) ([]models.GameAccount, error)
}

// EventStore loads clan events.
type EventStore interface {
	FindByID(ctx context.Context, id string) (*models.ClanEvent, error)
}

// Stores bundles the stores bound to one connection or transaction.
type Stores struct {
	Submissions SubmissionStore
	Entries     StagedEntryStore
	Production  ProductionStore
	Corrections CorrectionStore
	Accounts    AccountStore
	Events      EventStore
}

// UnitOfWork hands out stores for reads and runs mutations as one unit.
type UnitOfWork interface {
	// Stores returns stores bound to the connection pool.
	Stores() Stores
	// WithinTx runs fn with stores bound to a transaction when the unit is transactional.
	WithinTx(ctx context.Context, fn func(Stores) error) error
	Transactional() bool
}
