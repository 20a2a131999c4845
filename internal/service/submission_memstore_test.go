package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/clanstats-api/internal/models"
	"github.com/noah-isme/clanstats-api/internal/repository"
)

type prodRow struct {
	ID     string
	ClanID string
	Kind   models.SubmissionType
	// Fields holds normalised column values, including submission_id and game_account_id.
	Fields map[string]interface{}
}

type memDB struct {
	submissions map[string]*models.Submission
	entries     map[string]models.StagedEntry
	entryOrder  []string
	production  map[string]*prodRow
	corrections map[string]models.OCRCorrection
	accounts    map[string]models.GameAccount
	members     map[string]map[string]bool
	events      map[string]models.ClanEvent

	failProductionAccount error
	failProductionFields  error
	failProductionDelete  error
	failCorrection        error

	productionAccountCalls int
	productionFieldCalls   int
}

func newMemDB() *memDB {
	return &memDB{
		submissions: map[string]*models.Submission{},
		entries:     map[string]models.StagedEntry{},
		production:  map[string]*prodRow{},
		corrections: map[string]models.OCRCorrection{},
		accounts:    map[string]models.GameAccount{},
		members:     map[string]map[string]bool{},
		events:      map[string]models.ClanEvent{},
	}
}

type memSnapshot struct {
	submissions map[string]models.Submission
	entries     map[string]models.StagedEntry
	entryOrder  []string
	production  map[string]prodRow
	corrections map[string]models.OCRCorrection
}

func (db *memDB) snapshot() memSnapshot {
	snap := memSnapshot{
		submissions: map[string]models.Submission{},
		entries:     map[string]models.StagedEntry{},
		entryOrder:  append([]string(nil), db.entryOrder...),
		production:  map[string]prodRow{},
		corrections: map[string]models.OCRCorrection{},
	}
	for id, s := range db.submissions {
		snap.submissions[id] = *s
	}
	for id, e := range db.entries {
		snap.entries[id] = cloneEntry(e)
	}
	for id, row := range db.production {
		fields := make(map[string]interface{}, len(row.Fields))
		for k, v := range row.Fields {
			fields[k] = v
		}
		copied := *row
		copied.Fields = fields
		snap.production[id] = copied
	}
	for k, v := range db.corrections {
		snap.corrections[k] = v
	}
	return snap
}

func (db *memDB) restore(snap memSnapshot) {
	db.submissions = map[string]*models.Submission{}
	for id, s := range snap.submissions {
		s := s
		db.submissions[id] = &s
	}
	db.entries = snap.entries
	db.entryOrder = snap.entryOrder
	db.production = map[string]*prodRow{}
	for id, row := range snap.production {
		row := row
		db.production[id] = &row
	}
	db.corrections = snap.corrections
}

func cloneEntry(e models.StagedEntry) models.StagedEntry {
	switch v := e.(type) {
	case *models.ChestEntry:
		c := *v
		return &c
	case *models.MemberEntry:
		c := *v
		return &c
	case *models.EventEntry:
		c := *v
		return &c
	default:
		panic(fmt.Sprintf("unexpected entry %T", e))
	}
}

func normalise(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	case time.Time:
		return t.UTC().UnixNano()
	case models.ItemStatus:
		return string(t)
	default:
		return v
	}
}

func (db *memDB) addSubmission(s models.Submission) *models.Submission {
	copied := s
	db.submissions[s.ID] = &copied
	return &copied
}

func (db *memDB) addEntry(e models.StagedEntry) {
	db.entries[e.Base().ID] = e
	db.entryOrder = append(db.entryOrder, e.Base().ID)
}

func (db *memDB) addAccount(clanID, id, username string) {
	db.accounts[id] = models.GameAccount{ID: id, GameUsername: username}
	if db.members[clanID] == nil {
		db.members[clanID] = map[string]bool{}
	}
	db.members[clanID][id] = true
}

// addProductionFor creates a production row mirroring entry as if it had been approved.
func (db *memDB) addProductionFor(id, clanID string, entry models.StagedEntry) *prodRow {
	fields := map[string]interface{}{
		"submission_id":   entry.Base().SubmissionID,
		"game_account_id": normalise(entry.Base().MatchedGameAccountID),
	}
	for _, f := range entry.BusinessKey() {
		fields[f.Column] = normalise(f.Value)
	}
	row := &prodRow{ID: id, ClanID: clanID, Kind: entry.Kind(), Fields: fields}
	db.production[id] = row
	return row
}

func (db *memDB) liveEntries(submissionID string) []models.StagedEntry {
	var out []models.StagedEntry
	for _, id := range db.entryOrder {
		if e, ok := db.entries[id]; ok && e.Base().SubmissionID == submissionID {
			out = append(out, e)
		}
	}
	return out
}

func (db *memDB) stores() Stores {
	return Stores{
		Submissions: &memSubmissions{db},
		Entries:     &memEntries{db},
		Production:  &memProduction{db},
		Corrections: &memCorrections{db},
		Accounts:    &memAccounts{db},
		Events:      &memEvents{db},
	}
}

type memUnit struct {
	db            *memDB
	transactional bool
}

func (u *memUnit) Stores() Stores { return u.db.stores() }

func (u *memUnit) WithinTx(ctx context.Context, fn func(Stores) error) error {
	if !u.transactional {
		return fn(u.db.stores())
	}
	snap := u.db.snapshot()
	if err := fn(u.db.stores()); err != nil {
		u.db.restore(snap)
		return err
	}
	return nil
}

func (u *memUnit) Transactional() bool { return u.transactional }

type memSubmissions struct{ db *memDB }

func (m *memSubmissions) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	s, ok := m.db.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *memSubmissions) UpdateAggregate(ctx context.Context, id string, agg models.SubmissionAggregate) error {
	s, ok := m.db.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	agg.Apply(s)
	return nil
}

func (m *memSubmissions) UpdateMetadata(ctx context.Context, params repository.UpdateSubmissionMetadataParams) error {
	s, ok := m.db.submissions[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if params.SetReferenceDate {
		s.ReferenceDate = params.ReferenceDate
	}
	if params.SetLinkedEvent {
		s.LinkedEventID = params.LinkedEventID
	}
	return nil
}

func (m *memSubmissions) FindReferenceDateConflicts(ctx context.Context, submission *models.Submission, date time.Time) ([]string, error) {
	var ids []string
	for id, s := range m.db.submissions {
		if id != submission.ID && s.ClanID == submission.ClanID && s.SubmissionType == submission.SubmissionType &&
			s.ReferenceDate != nil && s.ReferenceDate.Equal(date) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memSubmissions) FindLinkedEventConflicts(ctx context.Context, submissionID, eventID string) ([]string, error) {
	var ids []string
	for id, s := range m.db.submissions {
		if id != submissionID && s.LinkedEventID != nil && *s.LinkedEventID == eventID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memSubmissions) Delete(ctx context.Context, id string) error {
	if _, ok := m.db.submissions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.submissions, id)
	for entryID, e := range m.db.entries {
		if e.Base().SubmissionID == id {
			delete(m.db.entries, entryID)
		}
	}
	return nil
}

type memEntries struct{ db *memDB }

func (m *memEntries) Get(ctx context.Context, kind models.SubmissionType, submissionID, entryID string) (models.StagedEntry, error) {
	e, ok := m.db.entries[entryID]
	if !ok || e.Base().SubmissionID != submissionID || e.Kind() != kind {
		return nil, sql.ErrNoRows
	}
	return cloneEntry(e), nil
}

func (m *memEntries) List(ctx context.Context, kind models.SubmissionType, filter models.StagedEntryFilter) ([]models.StagedEntry, int, error) {
	var matched []models.StagedEntry
	for _, e := range m.db.liveEntries(filter.SubmissionID) {
		base := e.Base()
		if filter.ItemStatus != "" && base.ItemStatus != filter.ItemStatus {
			continue
		}
		if filter.Unmatched && base.MatchedGameAccountID != nil {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(base.PlayerName), strings.ToLower(filter.Search)) {
			continue
		}
		if name, ok := filter.Facets["player_name"]; ok && base.PlayerName != name {
			continue
		}
		matched = append(matched, cloneEntry(e))
	}
	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memEntries) CountByStatus(ctx context.Context, kind models.SubmissionType, submissionID string) (models.StatusCounts, int, error) {
	var counts models.StatusCounts
	matched := 0
	for _, e := range m.db.liveEntries(submissionID) {
		counts.Add(e.Base().ItemStatus, 1)
		if e.Base().MatchedGameAccountID != nil {
			matched++
		}
	}
	return counts, matched, nil
}

func (m *memEntries) Count(ctx context.Context, kind models.SubmissionType, submissionID string) (int, error) {
	return len(m.db.liveEntries(submissionID)), nil
}

func (m *memEntries) UpdateAssignment(ctx context.Context, kind models.SubmissionType, entryID string, accountID *string, status models.ItemStatus) error {
	e, ok := m.db.entries[entryID]
	if !ok {
		return sql.ErrNoRows
	}
	e.Base().MatchedGameAccountID = accountID
	e.Base().ItemStatus = status
	return nil
}

func (m *memEntries) ReassignApprovedSiblings(ctx context.Context, kind models.SubmissionType, submissionID, playerName, excludeID string, accountID *string) (int64, error) {
	var rows int64
	for _, e := range m.db.liveEntries(submissionID) {
		base := e.Base()
		if base.ID != excludeID && base.PlayerName == playerName && base.ItemStatus == models.ItemStatusApproved {
			base.MatchedGameAccountID = accountID
			rows++
		}
	}
	return rows, nil
}

func (m *memEntries) UpdateFields(ctx context.Context, kind models.SubmissionType, entryID string, edits []models.FieldEdit) error {
	e, ok := m.db.entries[entryID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, edit := range edits {
		setStagedField(e, edit.Column, edit.Value)
	}
	return nil
}

func setStagedField(e models.StagedEntry, column string, value interface{}) {
	if column == "player_name" {
		e.Base().PlayerName = value.(string)
		return
	}
	switch v := e.(type) {
	case *models.ChestEntry:
		switch column {
		case "chest_name":
			v.ChestName = value.(string)
		case "source":
			v.Source = value.(*string)
		case "level":
			v.Level = value.(*string)
		case "opened_at":
			v.OpenedAt = value.(time.Time)
		}
	case *models.MemberEntry:
		switch column {
		case "coordinates":
			v.Coordinates = value.(*string)
		case "score":
			v.Score = value.(*int64)
		case "captured_at":
			v.CapturedAt = value.(time.Time)
		}
	case *models.EventEntry:
		switch column {
		case "event_name":
			v.EventName = value.(string)
		case "event_points":
			v.EventPoints = value.(*int64)
		case "captured_at":
			v.CapturedAt = value.(time.Time)
		}
	}
}

func (m *memEntries) Delete(ctx context.Context, kind models.SubmissionType, entryID string) error {
	if _, ok := m.db.entries[entryID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.entries, entryID)
	return nil
}

func (m *memEntries) DistinctValues(ctx context.Context, kind models.SubmissionType, submissionID, column string) ([]string, error) {
	seen := map[string]bool{}
	values := []string{}
	for _, e := range m.db.liveEntries(submissionID) {
		var value string
		switch column {
		case "player_name":
			value = e.Base().PlayerName
		case "chest_name":
			value = e.(*models.ChestEntry).ChestName
		case "event_name":
			value = e.(*models.EventEntry).EventName
		case "source":
			if src := e.(*models.ChestEntry).Source; src != nil {
				value = *src
			}
		}
		if value != "" && !seen[value] {
			seen[value] = true
			values = append(values, value)
		}
	}
	sort.Strings(values)
	return values, nil
}

type memProduction struct{ db *memDB }

func (m *memProduction) matches(row *prodRow, key models.BusinessKey) bool {
	for _, f := range key {
		if row.Fields[f.Column] != normalise(f.Value) {
			return false
		}
	}
	return true
}

func (m *memProduction) FindIDs(ctx context.Context, kind models.SubmissionType, clanID string, key models.BusinessKey) ([]string, error) {
	ids := []string{}
	for id, row := range m.db.production {
		if row.Kind == kind && row.ClanID == clanID && m.matches(row, key) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memProduction) UpdateAccount(ctx context.Context, kind models.SubmissionType, key models.BusinessKey, accountID *string) (int64, error) {
	m.db.productionAccountCalls++
	if m.db.failProductionAccount != nil {
		return 0, m.db.failProductionAccount
	}
	var rows int64
	for _, row := range m.db.production {
		if row.Kind == kind && m.matches(row, key) {
			row.Fields["game_account_id"] = normalise(accountID)
			rows++
		}
	}
	return rows, nil
}

func (m *memProduction) UpdateFields(ctx context.Context, kind models.SubmissionType, id string, edits []models.FieldEdit) error {
	m.db.productionFieldCalls++
	if m.db.failProductionFields != nil {
		return m.db.failProductionFields
	}
	row, ok := m.db.production[id]
	if !ok {
		return sql.ErrNoRows
	}
	for _, edit := range edits {
		row.Fields[edit.ProductionColumn] = normalise(edit.Value)
	}
	return nil
}

func (m *memProduction) Delete(ctx context.Context, kind models.SubmissionType, id string) error {
	if m.db.failProductionDelete != nil {
		return m.db.failProductionDelete
	}
	if _, ok := m.db.production[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.production, id)
	return nil
}

func (m *memProduction) DetachSubmission(ctx context.Context, submissionID string) (int64, error) {
	var rows int64
	for _, row := range m.db.production {
		if row.Fields["submission_id"] == submissionID {
			row.Fields["submission_id"] = nil
			rows++
		}
	}
	return rows, nil
}

type memCorrections struct{ db *memDB }

func (m *memCorrections) Upsert(ctx context.Context, correction models.OCRCorrection) error {
	if m.db.failCorrection != nil {
		return m.db.failCorrection
	}
	key := correction.ClanID + "|" + correction.EntityType + "|" + correction.OCRText
	m.db.corrections[key] = correction
	return nil
}

type memAccounts struct{ db *memDB }

func (m *memAccounts) FindClanAccount(ctx context.Context, clanID, accountID string) (*models.GameAccount, error) {
	if !m.db.members[clanID][accountID] {
		return nil, sql.ErrNoRows
	}
	account := m.db.accounts[accountID]
	return &account, nil
}

func (m *memAccounts) ListActiveByClan(ctx context.Context, clanID string) ([]models.GameAccount, error) {
	accounts := []models.GameAccount{}
	for id := range m.db.members[clanID] {
		accounts = append(accounts, m.db.accounts[id])
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].GameUsername < accounts[j].GameUsername })
	return accounts, nil
}

type memEvents struct{ db *memDB }

func (m *memEvents) FindByID(ctx context.Context, id string) (*models.ClanEvent, error) {
	event, ok := m.db.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &event, nil
}
