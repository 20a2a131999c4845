package models

import "time"

// SubmissionType enumerates the closed set of staged-entry kinds.
type SubmissionType string

const (
	SubmissionTypeChests  SubmissionType = "chests"
	SubmissionTypeMembers SubmissionType = "members"
	SubmissionTypeEvents  SubmissionType = "events"
)

// Valid reports whether the type is one of the known kinds.
func (t SubmissionType) Valid() bool {
	switch t {
	case SubmissionTypeChests, SubmissionTypeMembers, SubmissionTypeEvents:
		return true
	default:
		return false
	}
}

// SubmissionStatus is derived from the statuses of a submission's staged entries.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
	SubmissionStatusPartial  SubmissionStatus = "partial"
)

// Submission is one imported batch awaiting review.
type Submission struct {
	ID             string           `db:"id" json:"id"`
	ClanID         string           `db:"clan_id" json:"clanId"`
	SubmittedBy    string           `db:"submitted_by" json:"submittedBy"`
	SubmitterName  *string          `db:"submitter_name" json:"submitterName,omitempty"`
	SubmissionType SubmissionType   `db:"submission_type" json:"submissionType"`
	Status         SubmissionStatus `db:"status" json:"status"`
	ItemCount      int              `db:"item_count" json:"itemCount"`
	MatchedCount   int              `db:"matched_count" json:"matchedCount"`
	ApprovedCount  int              `db:"approved_count" json:"approvedCount"`
	RejectedCount  int              `db:"rejected_count" json:"rejectedCount"`
	ReferenceDate  *time.Time       `db:"reference_date" json:"referenceDate,omitempty"`
	LinkedEventID  *string          `db:"linked_event_id" json:"linkedEventId,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

// StatusCounts tallies staged entries per tracked item status.
type StatusCounts struct {
	Pending     int `json:"pending"`
	AutoMatched int `json:"auto_matched"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
}

// Total is the number of tracked entries.
func (c StatusCounts) Total() int {
	return c.Pending + c.AutoMatched + c.Approved + c.Rejected
}

// Add records count entries under status. Untracked statuses are ignored.
func (c *StatusCounts) Add(status ItemStatus, count int) {
	switch status {
	case ItemStatusPending:
		c.Pending += count
	case ItemStatusAutoMatched:
		c.AutoMatched += count
	case ItemStatusApproved:
		c.Approved += count
	case ItemStatusRejected:
		c.Rejected += count
	}
}

// DeriveSubmissionStatus applies the aggregate rule: pending when empty, approved or
// rejected when every entry shares that status, partial otherwise.
func DeriveSubmissionStatus(counts StatusCounts) SubmissionStatus {
	total := counts.Total()
	switch {
	case total == 0:
		return SubmissionStatusPending
	case counts.Approved == total:
		return SubmissionStatusApproved
	case counts.Rejected == total:
		return SubmissionStatusRejected
	default:
		return SubmissionStatusPartial
	}
}

// SubmissionAggregate is the recomputed counter state persisted onto a submission.
type SubmissionAggregate struct {
	Counts       StatusCounts     `json:"statusCounts"`
	MatchedCount int              `json:"matchedCount"`
	Status       SubmissionStatus `json:"status"`
}

// ItemCount mirrors the submission's item_count column.
func (a SubmissionAggregate) ItemCount() int {
	return a.Counts.Total()
}

// Apply copies the aggregate onto the submission.
func (a SubmissionAggregate) Apply(s *Submission) {
	if s == nil {
		return
	}
	s.ItemCount = a.ItemCount()
	s.MatchedCount = a.MatchedCount
	s.ApprovedCount = a.Counts.Approved
	s.RejectedCount = a.Counts.Rejected
	s.Status = a.Status
}
