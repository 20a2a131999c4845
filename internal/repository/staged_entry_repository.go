package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// StagedEntryRepository manages the three staged entry tables.
type StagedEntryRepository struct {
	db Querier
}

// NewStagedEntryRepository constructs the repository.
func NewStagedEntryRepository(db Querier) *StagedEntryRepository {
	return &StagedEntryRepository{db: db}
}

// Get fetches an entry scoped to its submission.
func (r *StagedEntryRepository) Get(ctx context.Context, kind models.SubmissionType, submissionID, entryID string) (models.StagedEntry, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	entry, _ := models.NewStagedEntry(kind)
	query, args, err := psql.Select(tables.selectColumns("")...).
		From(tables.staged).
		Where(sq.Eq{"id": entryID, "submission_id": submissionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build staged entry query: %w", err)
	}
	if err := r.db.GetContext(ctx, entry, query, args...); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns one page of entries joined with the matched account's username, plus the filtered total.
func (r *StagedEntryRepository) List(ctx context.Context, kind models.SubmissionType, filter models.StagedEntryFilter) ([]models.StagedEntry, int, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, 0, err
	}

	where := sq.And{sq.Eq{"e.submission_id": filter.SubmissionID}}
	if filter.ItemStatus != "" {
		where = append(where, sq.Eq{"e.item_status": filter.ItemStatus})
	}
	if filter.Unmatched {
		where = append(where, sq.Eq{"e.matched_game_account_id": nil})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		or := make(sq.Or, 0, len(tables.searchColumns))
		for _, col := range tables.searchColumns {
			or = append(or, sq.ILike{col: pattern})
		}
		where = append(where, or)
	}
	for _, col := range tables.facetColumns {
		if value, ok := filter.Facets[col]; ok && value != "" {
			where = append(where, sq.Eq{"e." + col: value})
		}
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(tables.staged + " e").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build staged count query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count staged entries: %w", err)
	}

	sortColumn, ok := tables.sortColumns[filter.SortBy]
	if !ok {
		sortColumn = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	columns := append(tables.selectColumns("e"), "ga.game_username AS matched_account_name")
	query, args, err := psql.Select(columns...).
		From(tables.staged + " e").
		LeftJoin("game_accounts ga ON ga.id = e.matched_game_account_id").
		Where(where).
		OrderBy(fmt.Sprintf("%s %s", sortColumn, order), "e.id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build staged list query: %w", err)
	}

	entries, err := r.selectEntries(ctx, kind, query, args)
	if err != nil {
		return nil, 0, fmt.Errorf("list staged entries: %w", err)
	}
	return entries, total, nil
}

func (r *StagedEntryRepository) selectEntries(ctx context.Context, kind models.SubmissionType, query string, args []interface{}) ([]models.StagedEntry, error) {
	switch kind {
	case models.SubmissionTypeChests:
		return selectAs[models.ChestEntry](ctx, r.db, query, args)
	case models.SubmissionTypeMembers:
		return selectAs[models.MemberEntry](ctx, r.db, query, args)
	case models.SubmissionTypeEvents:
		return selectAs[models.EventEntry](ctx, r.db, query, args)
	default:
		return nil, &UnsupportedTypeError{Type: kind}
	}
}

func selectAs[T any, P interface {
	*T
	models.StagedEntry
}](ctx context.Context, db Querier, query string, args []interface{}) ([]models.StagedEntry, error) {
	var rows []T
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	entries := make([]models.StagedEntry, len(rows))
	for i := range rows {
		entries[i] = P(&rows[i])
	}
	return entries, nil
}

type statusCountRow struct {
	ItemStatus models.ItemStatus `db:"item_status"`
	Total      int               `db:"total"`
	Matched    int               `db:"matched"`
}

// CountByStatus tallies every entry of the submission by item status and counts matched entries.
func (r *StagedEntryRepository) CountByStatus(ctx context.Context, kind models.SubmissionType, submissionID string) (models.StatusCounts, int, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return models.StatusCounts{}, 0, err
	}
	query := fmt.Sprintf(`SELECT item_status, COUNT(*) AS total, COUNT(matched_game_account_id) AS matched
	FROM %s WHERE submission_id = $1 GROUP BY item_status`, tables.staged)
	var rows []statusCountRow
	if err := r.db.SelectContext(ctx, &rows, query, submissionID); err != nil {
		return models.StatusCounts{}, 0, fmt.Errorf("count staged entries by status: %w", err)
	}
	var counts models.StatusCounts
	matched := 0
	for _, row := range rows {
		counts.Add(row.ItemStatus, row.Total)
		matched += row.Matched
	}
	return counts, matched, nil
}

// Count returns how many entries remain in the submission.
func (r *StagedEntryRepository) Count(ctx context.Context, kind models.SubmissionType, submissionID string) (int, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return 0, err
	}
	var total int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE submission_id = $1`, tables.staged)
	if err := r.db.GetContext(ctx, &total, query, submissionID); err != nil {
		return 0, fmt.Errorf("count staged entries: %w", err)
	}
	return total, nil
}

// UpdateAssignment sets the matched account and item status of one entry.
func (r *StagedEntryRepository) UpdateAssignment(ctx context.Context, kind models.SubmissionType, entryID string, accountID *string, status models.ItemStatus) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET matched_game_account_id = $1, item_status = $2 WHERE id = $3`, tables.staged)
	result, err := r.db.ExecContext(ctx, query, accountID, status, entryID)
	if err != nil {
		return fmt.Errorf("update staged assignment: %w", err)
	}
	return requireAffected(result, "update staged assignment")
}

// ReassignApprovedSiblings points every other approved entry of the same player in the submission at accountID.
func (r *StagedEntryRepository) ReassignApprovedSiblings(ctx context.Context, kind models.SubmissionType, submissionID, playerName, excludeID string, accountID *string) (int64, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`UPDATE %s SET matched_game_account_id = $1
	WHERE submission_id = $2 AND player_name = $3 AND item_status = $4 AND id <> $5`, tables.staged)
	result, err := r.db.ExecContext(ctx, query, accountID, submissionID, playerName, models.ItemStatusApproved, excludeID)
	if err != nil {
		return 0, fmt.Errorf("reassign approved siblings: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign approved siblings rows: %w", err)
	}
	return rows, nil
}

// UpdateFields writes decoded edits onto one entry.
func (r *StagedEntryRepository) UpdateFields(ctx context.Context, kind models.SubmissionType, entryID string, edits []models.FieldEdit) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	if len(edits) == 0 {
		return nil
	}
	set := make(map[string]interface{}, len(edits))
	for _, edit := range edits {
		set[edit.Column] = edit.Value
	}
	query, args, err := psql.Update(tables.staged).SetMap(set).Where(sq.Eq{"id": entryID}).ToSql()
	if err != nil {
		return fmt.Errorf("build staged field update: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update staged fields: %w", err)
	}
	return requireAffected(result, "update staged fields")
}

// Delete removes one entry.
func (r *StagedEntryRepository) Delete(ctx context.Context, kind models.SubmissionType, entryID string) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tables.staged), entryID)
	if err != nil {
		return fmt.Errorf("delete staged entry: %w", err)
	}
	return requireAffected(result, "delete staged entry")
}

// DistinctValues returns the sorted, non-null distinct values of a facet column.
func (r *StagedEntryRepository) DistinctValues(ctx context.Context, kind models.SubmissionType, submissionID, column string) ([]string, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, c := range tables.facetColumns {
		if c == column {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("column %q is not a facet of %s", column, kind)
	}
	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM %[2]s WHERE submission_id = $1 AND %[1]s IS NOT NULL ORDER BY %[1]s`, column, tables.staged)
	values := []string{}
	if err := r.db.SelectContext(ctx, &values, query, submissionID); err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	return values, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
