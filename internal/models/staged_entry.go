package models

import (
	"encoding/json"
	"time"
)

// ItemStatus captures the review state of a single staged entry.
type ItemStatus string

const (
	ItemStatusPending     ItemStatus = "pending"
	ItemStatusAutoMatched ItemStatus = "auto_matched"
	ItemStatusApproved    ItemStatus = "approved"
	ItemStatusRejected    ItemStatus = "rejected"
)

// Valid reports whether the status is one of the tracked values.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusAutoMatched, ItemStatusApproved, ItemStatusRejected:
		return true
	default:
		return false
	}
}

// Preserved reports whether the status is sticky across account reassignment.
func (s ItemStatus) Preserved() bool {
	return s == ItemStatusApproved || s == ItemStatusRejected
}

// ResolveAssignmentStatus returns the status an entry takes after its account changes.
// Approved and rejected entries keep their status; otherwise a non-nil account makes
// the entry auto_matched and a nil account puts it back to pending.
func ResolveAssignmentStatus(current ItemStatus, accountID *string) ItemStatus {
	if current.Preserved() {
		return current
	}
	if accountID != nil {
		return ItemStatusAutoMatched
	}
	return ItemStatusPending
}

// EntryBase holds the columns every staged table shares.
type EntryBase struct {
	ID                   string     `db:"id" json:"id"`
	SubmissionID         string     `db:"submission_id" json:"submissionId"`
	PlayerName           string     `db:"player_name" json:"playerName"`
	MatchedGameAccountID *string    `db:"matched_game_account_id" json:"matchedGameAccountId"`
	MatchedAccountName   *string    `db:"matched_account_name" json:"matchedAccountName,omitempty"`
	ItemStatus           ItemStatus `db:"item_status" json:"itemStatus"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
}

// StagedEntry is implemented by exactly one row type per submission kind.
type StagedEntry interface {
	Base() *EntryBase
	Kind() SubmissionType
	// BusinessKey identifies the production counterpart using production column names.
	BusinessKey() BusinessKey
	// EditableFields lists the allow-listed staged columns and their production names.
	EditableFields() []EditableField
	// ApplyEdits decodes allow-listed values onto the entry and returns what changed.
	ApplyEdits(raw map[string]json.RawMessage) ([]FieldEdit, error)
}

// NewStagedEntry returns an empty row of the kind's concrete type.
func NewStagedEntry(kind SubmissionType) (StagedEntry, bool) {
	switch kind {
	case SubmissionTypeChests:
		return &ChestEntry{}, true
	case SubmissionTypeMembers:
		return &MemberEntry{}, true
	case SubmissionTypeEvents:
		return &EventEntry{}, true
	default:
		return nil, false
	}
}

// PlayerScopeKey selects every production row created from a player's entries in a submission.
func PlayerScopeKey(entry StagedEntry) BusinessKey {
	base := entry.Base()
	return BusinessKey{
		{Column: "submission_id", Value: base.SubmissionID},
		{Column: "player_name", Value: base.PlayerName},
	}
}

// ChestEntry is a staged chest opening.
type ChestEntry struct {
	EntryBase
	ChestName string    `db:"chest_name" json:"chestName"`
	Source    *string   `db:"source" json:"source"`
	Level     *string   `db:"level" json:"level"`
	OpenedAt  time.Time `db:"opened_at" json:"openedAt"`
}

var chestEditableFields = []EditableField{
	{Staged: "player_name", Production: "player_name"},
	{Staged: "chest_name", Production: "chest_name"},
	{Staged: "source", Production: "source"},
	{Staged: "level", Production: "level"},
	{Staged: "opened_at", Production: "opened_at"},
}

func (e *ChestEntry) Base() *EntryBase               { return &e.EntryBase }
func (e *ChestEntry) Kind() SubmissionType           { return SubmissionTypeChests }
func (e *ChestEntry) EditableFields() []EditableField { return chestEditableFields }

func (e *ChestEntry) BusinessKey() BusinessKey {
	return BusinessKey{
		{Column: "player_name", Value: e.PlayerName},
		{Column: "chest_name", Value: e.ChestName},
		{Column: "source", Value: e.Source},
		{Column: "level", Value: e.Level},
		{Column: "opened_at", Value: e.OpenedAt},
	}
}

func (e *ChestEntry) ApplyEdits(raw map[string]json.RawMessage) ([]FieldEdit, error) {
	d := newEditDecoder(raw, chestEditableFields)
	d.requiredString("player_name", &e.PlayerName)
	d.requiredString("chest_name", &e.ChestName)
	d.nullableString("source", &e.Source)
	d.nullableString("level", &e.Level)
	d.timestamp("opened_at", &e.OpenedAt)
	return d.result()
}

// MemberEntry is a staged roster snapshot row.
type MemberEntry struct {
	EntryBase
	Coordinates *string   `db:"coordinates" json:"coordinates"`
	Score       *int64    `db:"score" json:"score"`
	CapturedAt  time.Time `db:"captured_at" json:"capturedAt"`
}

var memberEditableFields = []EditableField{
	{Staged: "player_name", Production: "player_name"},
	{Staged: "coordinates", Production: "coordinates"},
	{Staged: "score", Production: "score"},
	{Staged: "captured_at", Production: "snapshot_date"},
}

func (e *MemberEntry) Base() *EntryBase               { return &e.EntryBase }
func (e *MemberEntry) Kind() SubmissionType           { return SubmissionTypeMembers }
func (e *MemberEntry) EditableFields() []EditableField { return memberEditableFields }

func (e *MemberEntry) BusinessKey() BusinessKey {
	return BusinessKey{
		{Column: "player_name", Value: e.PlayerName},
		{Column: "coordinates", Value: e.Coordinates},
		{Column: "score", Value: e.Score},
		{Column: "snapshot_date", Value: e.CapturedAt},
	}
}

func (e *MemberEntry) ApplyEdits(raw map[string]json.RawMessage) ([]FieldEdit, error) {
	d := newEditDecoder(raw, memberEditableFields)
	d.requiredString("player_name", &e.PlayerName)
	d.nullableString("coordinates", &e.Coordinates)
	d.nullableInt("score", &e.Score)
	d.timestamp("captured_at", &e.CapturedAt)
	return d.result()
}

// EventEntry is a staged event score row.
type EventEntry struct {
	EntryBase
	EventName   string    `db:"event_name" json:"eventName"`
	EventPoints *int64    `db:"event_points" json:"eventPoints"`
	CapturedAt  time.Time `db:"captured_at" json:"capturedAt"`
}

var eventEditableFields = []EditableField{
	{Staged: "player_name", Production: "player_name"},
	{Staged: "event_name", Production: "event_name"},
	{Staged: "event_points", Production: "event_points"},
	{Staged: "captured_at", Production: "event_date"},
}

func (e *EventEntry) Base() *EntryBase               { return &e.EntryBase }
func (e *EventEntry) Kind() SubmissionType           { return SubmissionTypeEvents }
func (e *EventEntry) EditableFields() []EditableField { return eventEditableFields }

func (e *EventEntry) BusinessKey() BusinessKey {
	return BusinessKey{
		{Column: "player_name", Value: e.PlayerName},
		{Column: "event_name", Value: e.EventName},
		{Column: "event_points", Value: e.EventPoints},
		{Column: "event_date", Value: e.CapturedAt},
	}
}

func (e *EventEntry) ApplyEdits(raw map[string]json.RawMessage) ([]FieldEdit, error) {
	d := newEditDecoder(raw, eventEditableFields)
	d.requiredString("player_name", &e.PlayerName)
	d.requiredString("event_name", &e.EventName)
	d.nullableInt("event_points", &e.EventPoints)
	d.timestamp("captured_at", &e.CapturedAt)
	return d.result()
}
