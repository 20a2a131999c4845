package repository

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// psql builds Postgres-flavoured statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// kindTables is the per-type dispatch table for staged and production storage.
type kindTables struct {
	staged        string
	production    string
	stagedColumns []string
	searchColumns []string
	facetColumns  []string
	sortColumns   map[string]string
}

var commonSortColumns = map[string]string{
	"player_name": "e.player_name",
	"item_status": "e.item_status",
	"created_at":  "e.created_at",
}

var kinds = map[models.SubmissionType]kindTables{
	models.SubmissionTypeChests: {
		staged:        "staged_chest_entries",
		production:    "chests",
		stagedColumns: []string{"chest_name", "source", "level", "opened_at"},
		searchColumns: []string{"e.player_name", "e.chest_name", "e.source"},
		facetColumns:  []string{"player_name", "chest_name", "source"},
		sortColumns: withCommonSorts(map[string]string{
			"chest_name": "e.chest_name",
			"source":     "e.source",
			"level":      "e.level",
			"opened_at":  "e.opened_at",
		}),
	},
	models.SubmissionTypeMembers: {
		staged:        "staged_member_entries",
		production:    "member_snapshots",
		stagedColumns: []string{"coordinates", "score", "captured_at"},
		searchColumns: []string{"e.player_name", "e.coordinates"},
		facetColumns:  []string{"player_name"},
		sortColumns: withCommonSorts(map[string]string{
			"coordinates": "e.coordinates",
			"score":       "e.score",
			"captured_at": "e.captured_at",
		}),
	},
	models.SubmissionTypeEvents: {
		staged:        "staged_event_entries",
		production:    "event_results",
		stagedColumns: []string{"event_name", "event_points", "captured_at"},
		searchColumns: []string{"e.player_name", "e.event_name"},
		facetColumns:  []string{"player_name", "event_name"},
		sortColumns: withCommonSorts(map[string]string{
			"event_name":   "e.event_name",
			"event_points": "e.event_points",
			"captured_at":  "e.captured_at",
		}),
	},
}

func withCommonSorts(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra)+len(commonSortColumns))
	for k, v := range commonSortColumns {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// UnsupportedTypeError is returned when a submission carries a type outside the known set.
type UnsupportedTypeError struct {
	Type models.SubmissionType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported submission type %q", string(e.Type))
}

func tablesFor(kind models.SubmissionType) (kindTables, error) {
	t, ok := kinds[kind]
	if !ok {
		return kindTables{}, &UnsupportedTypeError{Type: kind}
	}
	return t, nil
}

// SortColumns reports whether column is sortable for the kind.
func SortColumns(kind models.SubmissionType, column string) bool {
	t, ok := kinds[kind]
	if !ok {
		return false
	}
	_, ok = t.sortColumns[column]
	return ok
}

// FacetColumns lists the staged columns exposing distinct-value filters for the kind.
func FacetColumns(kind models.SubmissionType) []string {
	t, ok := kinds[kind]
	if !ok {
		return nil
	}
	return append([]string(nil), t.facetColumns...)
}

func (t kindTables) selectColumns(alias string) []string {
	base := []string{"id", "submission_id", "player_name", "matched_game_account_id", "item_status", "created_at"}
	cols := make([]string, 0, len(base)+len(t.stagedColumns))
	for _, c := range append(base, t.stagedColumns...) {
		if alias != "" {
			c = alias + "." + c
		}
		cols = append(cols, c)
	}
	return cols
}

// keyPredicate turns a business key into a WHERE clause. squirrel.Eq renders nil
// pointers as IS NULL, so nullable key columns never compare with "= NULL".
func keyPredicate(key models.BusinessKey) sq.And {
	pred := make(sq.And, 0, len(key))
	for _, field := range key {
		pred = append(pred, sq.Eq{field.Column: field.Value})
	}
	return pred
}
