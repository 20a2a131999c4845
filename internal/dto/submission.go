package dto

import (
	"bytes"
	"encoding/json"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// MaxPage bounds the page parameter so the row offset cannot overflow.
const MaxPage = 1000000

// DetailQuery mirrors the supported submission detail query parameters.
type DetailQuery struct {
	Page              int    `form:"page" validate:"omitempty,min=1,max=1000000"`
	PerPage           int    `form:"per_page" validate:"omitempty,min=1"`
	ItemStatus        string `form:"item_status" validate:"omitempty,oneof=pending auto_matched approved rejected"`
	Search            string `form:"search" validate:"max=200"`
	Unmatched         bool   `form:"unmatched"`
	PlayerName        string `form:"player_name"`
	ChestName         string `form:"chest_name"`
	Source            string `form:"source"`
	EventName         string `form:"event_name"`
	SortBy            string `form:"sort_by"`
	SortDir           string `form:"sort_dir" validate:"omitempty,oneof=asc desc ASC DESC"`
	SkipFilterOptions bool   `form:"skip_filter_options"`
}

// FilterOptions lists distinct values for the facet filters relevant to a submission type.
type FilterOptions struct {
	PlayerNames []string `json:"playerNames"`
	ChestNames  []string `json:"chestNames,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	EventNames  []string `json:"eventNames,omitempty"`
}

// SubmissionFacets is the cacheable part of a detail response.
type SubmissionFacets struct {
	ClanGameAccounts []models.GameAccount `json:"clanGameAccounts"`
	FilterOptions    FilterOptions        `json:"filterOptions"`
}

// SubmissionDetail is the query detail payload.
type SubmissionDetail struct {
	Submission       *models.Submission   `json:"submission"`
	Items            []models.StagedEntry `json:"items"`
	Total            int                  `json:"total"`
	StatusCounts     models.StatusCounts  `json:"statusCounts"`
	ClanGameAccounts []models.GameAccount `json:"clanGameAccounts,omitempty"`
	FilterOptions    *FilterOptions       `json:"filterOptions,omitempty"`
	// FacetsCached is set when the roster and filter options came from the cache.
	FacetsCached bool `json:"-"`
}

// DeleteResult reports what a delete request removed.
type DeleteResult struct {
	Deleted           bool `json:"deleted"`
	SubmissionDeleted bool `json:"submissionDeleted"`
	RemainingCount    *int `json:"remainingCount,omitempty"`
}

// OptionalString distinguishes an absent JSON key from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// PatchSubmissionRequest carries one of three mutually exclusive shapes: an entry field
// edit, an entry account assignment, or a submission metadata update.
type PatchSubmissionRequest struct {
	EntryID            string                     `json:"entryId"`
	EditFields         map[string]json.RawMessage `json:"editFields"`
	MatchGameAccountID OptionalString             `json:"matchGameAccountId"`
	SaveCorrection     bool                       `json:"saveCorrection"`
	ReferenceDate      OptionalString             `json:"referenceDate"`
	LinkedEventID      OptionalString             `json:"linkedEventId"`
}

// PatchKind identifies which request shape a patch body uses.
type PatchKind int

const (
	PatchInvalid PatchKind = iota
	PatchEditFields
	PatchAssignAccount
	PatchMetadata
)

// Kind classifies the request. Mixed or empty shapes are PatchInvalid.
func (r PatchSubmissionRequest) Kind() PatchKind {
	hasEdit := r.EditFields != nil
	hasAssign := r.MatchGameAccountID.Set
	hasMeta := r.ReferenceDate.Set || r.LinkedEventID.Set
	switch {
	case hasMeta && (hasEdit || hasAssign || r.EntryID != ""):
		return PatchInvalid
	case hasMeta:
		return PatchMetadata
	case r.EntryID == "":
		return PatchInvalid
	case hasEdit && !hasAssign:
		return PatchEditFields
	case hasAssign && !hasEdit:
		return PatchAssignAccount
	default:
		return PatchInvalid
	}
}

// AssignEntryRequest is the service input for an account assignment.
type AssignEntryRequest struct {
	EntryID            string
	MatchGameAccountID *string
	SaveCorrection     bool
}

// EditEntryRequest is the service input for a field correction.
type EditEntryRequest struct {
	EntryID    string
	EditFields map[string]json.RawMessage
}

// MetadataRequest is the service input for a submission metadata update.
type MetadataRequest struct {
	ReferenceDate OptionalString
	LinkedEventID OptionalString
}

// EditEntryResult is returned after a field correction.
type EditEntryResult struct {
	Entry            models.StagedEntry `json:"entry"`
	ProductionSynced bool               `json:"productionSynced"`
}

// AssignEntryResult is returned after an account assignment.
type AssignEntryResult struct {
	Entry           models.StagedEntry `json:"entry"`
	Submission      *models.Submission `json:"submission"`
	CorrectionSaved bool               `json:"correctionSaved"`
}

// MetadataResult is returned after a metadata update; warnings are advisory.
type MetadataResult struct {
	Submission *models.Submission `json:"submission"`
	Warnings   []string           `json:"warnings"`
}
