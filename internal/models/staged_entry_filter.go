package models

// StagedEntryFilter constrains the staged-entry page query.
type StagedEntryFilter struct {
	SubmissionID string
	ItemStatus   ItemStatus
	Search       string
	Unmatched    bool
	// Facets holds exact-match filters keyed by staged column.
	Facets    map[string]string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}
