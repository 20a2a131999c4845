package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// SubmissionRepository persists data_submissions rows.
type SubmissionRepository struct {
	db Querier
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db Querier) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// GetByID loads a submission together with the submitter's display name.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT s.id, s.clan_id, s.submitted_by, p.display_name AS submitter_name, s.submission_type, s.status,
       s.item_count, s.matched_count, s.approved_count, s.rejected_count, s.reference_date, s.linked_event_id,
       s.created_at, s.updated_at
	FROM data_submissions s LEFT JOIN profiles p ON p.id = s.submitted_by
	WHERE s.id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// UpdateAggregate overwrites the counters and derived status with a freshly computed aggregate.
func (r *SubmissionRepository) UpdateAggregate(ctx context.Context, id string, agg models.SubmissionAggregate) error {
	const query = `UPDATE data_submissions
	SET item_count = $1, matched_count = $2, approved_count = $3, rejected_count = $4, status = $5, updated_at = $6
	WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query,
		agg.ItemCount(),
		agg.MatchedCount,
		agg.Counts.Approved,
		agg.Counts.Rejected,
		agg.Status,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update submission aggregate: %w", err)
	}
	return requireAffected(result, "update submission aggregate")
}

// UpdateSubmissionMetadataParams groups the optional metadata columns.
type UpdateSubmissionMetadataParams struct {
	ID               string
	SetReferenceDate bool
	ReferenceDate    *time.Time
	SetLinkedEvent   bool
	LinkedEventID    *string
}

// UpdateMetadata writes the reference date and/or linked event.
func (r *SubmissionRepository) UpdateMetadata(ctx context.Context, params UpdateSubmissionMetadataParams) error {
	update := psql.Update("data_submissions").Set("updated_at", time.Now().UTC())
	if params.SetReferenceDate {
		update = update.Set("reference_date", params.ReferenceDate)
	}
	if params.SetLinkedEvent {
		update = update.Set("linked_event_id", params.LinkedEventID)
	}
	query, args, err := update.Where(sq.Eq{"id": params.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build submission metadata update: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update submission metadata: %w", err)
	}
	return requireAffected(result, "update submission metadata")
}

// FindReferenceDateConflicts returns other submissions of the same clan and type sharing the reference date.
func (r *SubmissionRepository) FindReferenceDateConflicts(ctx context.Context, submission *models.Submission, date time.Time) ([]string, error) {
	const query = `SELECT id FROM data_submissions
	WHERE clan_id = $1 AND submission_type = $2 AND reference_date = $3 AND id <> $4
	ORDER BY created_at`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, submission.ClanID, submission.SubmissionType, date, submission.ID); err != nil {
		return nil, fmt.Errorf("find reference date conflicts: %w", err)
	}
	return ids, nil
}

// FindLinkedEventConflicts returns other submissions already linked to the event.
func (r *SubmissionRepository) FindLinkedEventConflicts(ctx context.Context, submissionID, eventID string) ([]string, error) {
	const query = `SELECT id FROM data_submissions WHERE linked_event_id = $1 AND id <> $2 ORDER BY created_at`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, eventID, submissionID); err != nil {
		return nil, fmt.Errorf("find linked event conflicts: %w", err)
	}
	return ids, nil
}

// Delete removes the submission. Staged rows go with it through ON DELETE CASCADE.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM data_submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return requireAffected(result, "delete submission")
}

func requireAffected(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
