package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// ProductionRepository reads and writes the canonical chests, member_snapshots and event_results tables.
type ProductionRepository struct {
	db Querier
}

// NewProductionRepository constructs the repository.
func NewProductionRepository(db Querier) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// FindIDs returns the ids of the clan's production rows matching key, ordered by id.
func (r *ProductionRepository) FindIDs(ctx context.Context, kind models.SubmissionType, clanID string, key models.BusinessKey) ([]string, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id").
		From(tables.production).
		Where(sq.Eq{"clan_id": clanID}).
		Where(keyPredicate(key)).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build production lookup: %w", err)
	}
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("find production rows: %w", err)
	}
	return ids, nil
}

// UpdateAccount sets game_account_id on every row selected by key and reports how many changed.
func (r *ProductionRepository) UpdateAccount(ctx context.Context, kind models.SubmissionType, key models.BusinessKey, accountID *string) (int64, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return 0, err
	}
	if len(key) == 0 {
		return 0, fmt.Errorf("update production account: empty key")
	}
	query, args, err := psql.Update(tables.production).
		Set("game_account_id", accountID).
		Where(keyPredicate(key)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build production account update: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update production account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update production account rows: %w", err)
	}
	return rows, nil
}

// UpdateFields applies edits to one production row using their production column names.
func (r *ProductionRepository) UpdateFields(ctx context.Context, kind models.SubmissionType, id string, edits []models.FieldEdit) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	if len(edits) == 0 {
		return nil
	}
	set := make(map[string]interface{}, len(edits))
	for _, edit := range edits {
		set[edit.ProductionColumn] = edit.Value
	}
	query, args, err := psql.Update(tables.production).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build production field update: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update production fields: %w", err)
	}
	return requireAffected(result, "update production fields")
}

// Delete removes one production row.
func (r *ProductionRepository) Delete(ctx context.Context, kind models.SubmissionType, id string) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tables.production), id)
	if err != nil {
		return fmt.Errorf("delete production row: %w", err)
	}
	return requireAffected(result, "delete production row")
}

// DetachSubmission clears the submission back-reference on every production table.
func (r *ProductionRepository) DetachSubmission(ctx context.Context, submissionID string) (int64, error) {
	var total int64
	for _, kind := range []models.SubmissionType{models.SubmissionTypeChests, models.SubmissionTypeMembers, models.SubmissionTypeEvents} {
		tables := kinds[kind]
		result, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET submission_id = NULL WHERE submission_id = $1`, tables.production), submissionID)
		if err != nil {
			return total, fmt.Errorf("detach %s from submission: %w", tables.production, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("detach %s rows: %w", tables.production, err)
		}
		total += rows
	}
	return total, nil
}
