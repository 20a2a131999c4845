package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/dto"
	"github.com/noah-isme/clanstats-api/internal/models"
	"github.com/noah-isme/clanstats-api/internal/repository"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
)

// Operation names used for metrics and error reports.
const (
	OpQueryDetail      = "query_detail"
	OpDeleteEntry      = "delete_entry"
	OpDeleteSubmission = "delete_submission"
	OpEditEntry        = "edit_entry"
	OpAssignEntry      = "assign_entry"
	OpUpdateMetadata   = "update_metadata"
)

const referenceDateLayout = "2006-01-02"

// SubmissionServiceConfig tunes paging, caching and the ambiguity policy.
type SubmissionServiceConfig struct {
	DefaultPerPage int
	MaxPerPage     int
	StrictMatch    bool
	FacetCacheTTL  time.Duration
}

// SubmissionServiceOption configures optional collaborators.
type SubmissionServiceOption func(*SubmissionService)

// WithSubmissionCache serves facets through the cache and invalidates it after mutations.
func WithSubmissionCache(cache *CacheService) SubmissionServiceOption {
	return func(s *SubmissionService) { s.cache = cache }
}

// WithSubmissionMetrics records reconcile counters.
func WithSubmissionMetrics(metrics *MetricsService) SubmissionServiceOption {
	return func(s *SubmissionService) { s.metrics = metrics }
}

// WithAuditRecorder overrides where audit events go.
func WithAuditRecorder(recorder AuditRecorder) SubmissionServiceOption {
	return func(s *SubmissionService) { s.audit = recorder }
}

// WithErrorReporter overrides the error capture collaborator.
func WithErrorReporter(reporter ErrorReporter) SubmissionServiceOption {
	return func(s *SubmissionService) { s.reporter = reporter }
}

// SubmissionService sequences the reconciliation components for each external operation.
type SubmissionService struct {
	uow         UnitOfWork
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         SubmissionServiceConfig
	cache       *CacheService
	metrics     *MetricsService
	audit       AuditRecorder
	reporter    ErrorReporter
	resolver    *MatchKeyResolver
	assignments *AssignmentResolver
	sync        *ProductionSyncEngine
	aggregator  *StatusAggregator
	deletion    *DeletionCascade
	learner     *CorrectionLearner
}

// NewSubmissionService wires the orchestrator and its components.
func NewSubmissionService(uow UnitOfWork, validate *validator.Validate, logger *zap.Logger, cfg SubmissionServiceConfig, opts ...SubmissionServiceOption) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPerPage <= 0 {
		cfg.DefaultPerPage = 50
	}
	if cfg.MaxPerPage < cfg.DefaultPerPage {
		cfg.MaxPerPage = cfg.DefaultPerPage
	}
	s := &SubmissionService{uow: uow, validator: validate, logger: logger, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = NewZapErrorReporter(logger)
	}
	if s.audit == nil {
		s.audit = noopAuditRecorder{}
	}
	s.resolver = NewMatchKeyResolver(cfg.StrictMatch, s.metrics, logger)
	s.assignments = NewAssignmentResolver()
	s.sync = NewProductionSyncEngine(s.resolver, logger)
	s.aggregator = NewStatusAggregator()
	s.deletion = NewDeletionCascade(s.resolver, s.aggregator, logger)
	s.learner = NewCorrectionLearner()
	return s
}

// GetDetail returns one page of staged entries with the submission header, status counts and,
// unless skipped, the clan roster and facet values.
func (s *SubmissionService) GetDetail(ctx context.Context, submissionID string, query dto.DetailQuery) (detail *dto.SubmissionDetail, pagination *models.Pagination, err error) {
	report := ErrorReport{Operation: OpQueryDetail, SubmissionID: submissionID}
	err = s.run(ctx, report, func() error {
		if err := s.validator.Struct(query); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
		}
		page := query.Page
		if page <= 0 {
			page = 1
		}
		perPage := query.PerPage
		if perPage <= 0 {
			perPage = s.cfg.DefaultPerPage
		}
		if perPage > s.cfg.MaxPerPage {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("per_page must not exceed %d", s.cfg.MaxPerPage))
		}

		stores := s.uow.Stores()
		submission, err := s.loadSubmission(ctx, stores, submissionID)
		if err != nil {
			return err
		}
		kind := submission.SubmissionType
		if query.SortBy != "" && !repository.SortColumns(kind, query.SortBy) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot sort %s submissions by %q", kind, query.SortBy))
		}

		filter := models.StagedEntryFilter{
			SubmissionID: submission.ID,
			ItemStatus:   models.ItemStatus(query.ItemStatus),
			Search:       query.Search,
			Unmatched:    query.Unmatched,
			Facets:       facetFilters(kind, query),
			SortBy:       query.SortBy,
			SortOrder:    query.SortDir,
			Limit:        perPage,
			Offset:       (page - 1) * perPage,
		}
		items, total, err := stores.Entries.List(ctx, kind, filter)
		if err != nil {
			return storageError(err, "failed to list staged entries")
		}
		agg, err := s.aggregator.Compute(ctx, stores.Entries, submission)
		if err != nil {
			return err
		}

		detail = &dto.SubmissionDetail{
			Submission:   submission,
			Items:        items,
			Total:        total,
			StatusCounts: agg.Counts,
		}
		if !query.SkipFilterOptions {
			facets, cached, err := s.loadFacets(ctx, stores, submission)
			if err != nil {
				return err
			}
			detail.ClanGameAccounts = facets.ClanGameAccounts
			detail.FilterOptions = &facets.FilterOptions
			detail.FacetsCached = cached
		}
		pagination = &models.Pagination{Page: page, PageSize: perPage, TotalCount: total}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return detail, pagination, nil
}

func facetFilters(kind models.SubmissionType, query dto.DetailQuery) map[string]string {
	requested := map[string]string{
		"player_name": strings.TrimSpace(query.PlayerName),
		"chest_name":  strings.TrimSpace(query.ChestName),
		"source":      strings.TrimSpace(query.Source),
		"event_name":  strings.TrimSpace(query.EventName),
	}
	facets := make(map[string]string)
	for _, column := range repository.FacetColumns(kind) {
		if value := requested[column]; value != "" {
			facets[column] = value
		}
	}
	return facets
}

func (s *SubmissionService) loadFacets(ctx context.Context, stores Stores, submission *models.Submission) (dto.SubmissionFacets, bool, error) {
	var facets dto.SubmissionFacets
	key := SubmissionFacetsKey(submission.ID)
	if hit, _ := s.cache.Get(ctx, key, &facets); hit {
		return facets, true, nil
	}

	accounts, err := stores.Accounts.ListActiveByClan(ctx, submission.ClanID)
	if err != nil {
		return facets, false, storageError(err, "failed to load clan game accounts")
	}
	facets.ClanGameAccounts = accounts
	facets.FilterOptions.PlayerNames = []string{}

	for _, column := range repository.FacetColumns(submission.SubmissionType) {
		values, err := stores.Entries.DistinctValues(ctx, submission.SubmissionType, submission.ID, column)
		if err != nil {
			return facets, false, storageError(err, "failed to load filter options")
		}
		switch column {
		case "player_name":
			facets.FilterOptions.PlayerNames = values
		case "chest_name":
			facets.FilterOptions.ChestNames = values
		case "source":
			facets.FilterOptions.Sources = values
		case "event_name":
			facets.FilterOptions.EventNames = values
		}
	}

	_ = s.cache.Set(ctx, key, facets, s.cfg.FacetCacheTTL)
	return facets, false, nil
}

// DeleteEntry removes one staged entry, deleting the submission along with its last entry.
func (s *SubmissionService) DeleteEntry(ctx context.Context, submissionID, entryID string, actor *models.JWTClaims) (*dto.DeleteResult, error) {
	report := ErrorReport{Operation: OpDeleteEntry, SubmissionID: submissionID, EntryID: entryID}
	var (
		result  dto.DeleteResult
		removed models.StagedEntry
	)
	err := s.run(ctx, report, func() error {
		return s.uow.WithinTx(ctx, func(stores Stores) error {
			submission, err := s.loadSubmission(ctx, stores, submissionID)
			if err != nil {
				return err
			}
			entry, err := s.loadEntry(ctx, stores, submission, entryID)
			if err != nil {
				return err
			}
			deletion, err := s.deletion.DeleteEntry(ctx, stores, submission, entry)
			if err != nil {
				return err
			}
			removed = entry
			remaining := deletion.Remaining
			result = dto.DeleteResult{Deleted: true, SubmissionDeleted: deletion.SubmissionDeleted, RemainingCount: &remaining}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, submissionID)
	s.audit.Record(ctx, AuditEvent{Action: models.AuditActionEntryDelete, Actor: actor, SubmissionID: submissionID, EntryID: entryID, OldValues: removed, NewValues: result})
	return &result, nil
}

// DeleteSubmission removes the submission and its staged entries; production rows are detached.
func (s *SubmissionService) DeleteSubmission(ctx context.Context, submissionID string, actor *models.JWTClaims) (*dto.DeleteResult, error) {
	report := ErrorReport{Operation: OpDeleteSubmission, SubmissionID: submissionID}
	var (
		removed  *models.Submission
		detached int64
	)
	err := s.run(ctx, report, func() error {
		return s.uow.WithinTx(ctx, func(stores Stores) error {
			submission, err := s.loadSubmission(ctx, stores, submissionID)
			if err != nil {
				return err
			}
			if detached, err = s.deletion.DeleteSubmission(ctx, stores, submission); err != nil {
				return err
			}
			removed = submission
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, submissionID)
	s.audit.Record(ctx, AuditEvent{
		Action:       models.AuditActionSubmissionDelete,
		Actor:        actor,
		SubmissionID: submissionID,
		OldValues:    removed,
		NewValues:    map[string]interface{}{"productionRowsDetached": detached},
	})
	return &dto.DeleteResult{Deleted: true, SubmissionDeleted: true}, nil
}

// EditEntry applies allow-listed field corrections to an entry and, when the entry is approved,
// to the production row matched by its pre-edit business key. That row is resolved before the
// staged write, so an ambiguous or failed lookup changes nothing.
func (s *SubmissionService) EditEntry(ctx context.Context, submissionID string, req dto.EditEntryRequest, actor *models.JWTClaims) (*dto.EditEntryResult, error) {
	report := ErrorReport{Operation: OpEditEntry, SubmissionID: submissionID, EntryID: req.EntryID}
	var (
		result   dto.EditEntryResult
		previous json.RawMessage
		edits    []models.FieldEdit
	)
	err := s.run(ctx, report, func() error {
		if len(req.EditFields) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "editFields must contain at least one field")
		}
		return s.uow.WithinTx(ctx, func(stores Stores) error {
			submission, err := s.loadSubmission(ctx, stores, submissionID)
			if err != nil {
				return err
			}
			entry, err := s.loadEntry(ctx, stores, submission, req.EntryID)
			if err != nil {
				return err
			}
			if previous, err = json.Marshal(entry); err != nil {
				return err
			}
			preEditKey := entry.BusinessKey()

			edits, err = entry.ApplyEdits(req.EditFields)
			if err != nil {
				var fieldErr *models.FieldError
				if errors.As(err, &fieldErr) {
					return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fieldErr.Error())
				}
				return err
			}
			approved := entry.Base().ItemStatus == models.ItemStatusApproved
			var target EditTarget
			if approved {
				if target, err = s.sync.LocateEditTarget(ctx, stores, submission, preEditKey); err != nil {
					return err
				}
			}
			if err := stores.Entries.UpdateFields(ctx, submission.SubmissionType, entry.Base().ID, edits); err != nil {
				return lookupError(err, "entry not found", "failed to update entry")
			}

			result.Entry = entry
			if !approved {
				return nil
			}
			synced, err := s.sync.PropagateEdits(ctx, stores, submission.SubmissionType, target, edits)
			if err != nil {
				return s.syncError(submission, err)
			}
			result.ProductionSynced = synced
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, submissionID)
	s.audit.Record(ctx, AuditEvent{
		Action:       models.AuditActionEntryEdit,
		Actor:        actor,
		SubmissionID: submissionID,
		EntryID:      req.EntryID,
		OldValues:    previous,
		NewValues:    editValues(edits),
	})
	return &result, nil
}

func editValues(edits []models.FieldEdit) map[string]interface{} {
	values := make(map[string]interface{}, len(edits))
	for _, edit := range edits {
		values[edit.Column] = edit.Value
	}
	return values
}

// AssignEntry points an entry at a clan account, or clears it with a nil id. Approved entries keep
// their status and carry the new account into production and onto their approved siblings.
func (s *SubmissionService) AssignEntry(ctx context.Context, submissionID string, req dto.AssignEntryRequest, actor *models.JWTClaims) (*dto.AssignEntryResult, error) {
	report := ErrorReport{Operation: OpAssignEntry, SubmissionID: submissionID, EntryID: req.EntryID}
	var (
		result     dto.AssignEntryResult
		submission *models.Submission
		account    *models.GameAccount
		assignment Assignment
		changed    bool
		ocrText    string
	)
	err := s.run(ctx, report, func() error {
		return s.uow.WithinTx(ctx, func(stores Stores) error {
			var err error
			if submission, err = s.loadSubmission(ctx, stores, submissionID); err != nil {
				return err
			}
			entry, err := s.loadEntry(ctx, stores, submission, req.EntryID)
			if err != nil {
				return err
			}
			if req.MatchGameAccountID != nil {
				account, err = stores.Accounts.FindClanAccount(ctx, submission.ClanID, *req.MatchGameAccountID)
				if err != nil {
					return lookupError(err, "game account not found in clan", "failed to load game account")
				}
			}

			assignment = s.assignments.Resolve(entry, req.MatchGameAccountID)
			changed = assignment.Changed(entry)
			base := entry.Base()
			if err := stores.Entries.UpdateAssignment(ctx, submission.SubmissionType, base.ID, assignment.AccountID, assignment.Status); err != nil {
				return lookupError(err, "entry not found", "failed to update entry assignment")
			}
			base.MatchedGameAccountID = assignment.AccountID
			base.ItemStatus = assignment.Status
			base.MatchedAccountName = nil
			if account != nil {
				name := account.GameUsername
				base.MatchedAccountName = &name
			}

			if assignment.Propagate {
				if _, err := s.sync.PropagateReassignment(ctx, stores, entry, assignment.AccountID); err != nil {
					return s.syncError(submission, err)
				}
			}
			if _, err := s.aggregator.Recompute(ctx, stores, submission); err != nil {
				return err
			}
			ocrText = base.PlayerName
			result.Entry = entry
			result.Submission = submission
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if req.SaveCorrection && account != nil {
		saved, err := s.learner.Learn(ctx, s.uow.Stores().Corrections, submission.ClanID, ocrText, account.GameUsername)
		if err != nil {
			s.logger.Warn("failed to save ocr correction",
				zap.String("submission_id", submissionID),
				zap.String("entry_id", req.EntryID),
				zap.Error(err),
			)
		}
		result.CorrectionSaved = saved
	}

	s.afterCommit(ctx, submissionID)
	if changed {
		s.audit.Record(ctx, AuditEvent{
			Action:       models.AuditActionEntryAssign,
			Actor:        actor,
			SubmissionID: submissionID,
			EntryID:      req.EntryID,
			OldValues:    map[string]interface{}{"itemStatus": assignment.PreviousStatus},
			NewValues:    map[string]interface{}{"itemStatus": assignment.Status, "matchedGameAccountId": assignment.AccountID},
		})
	}
	return &result, nil
}

// UpdateMetadata sets or clears the reference date and linked event. Conflicts with other
// submissions are returned as warnings and do not block the update.
func (s *SubmissionService) UpdateMetadata(ctx context.Context, submissionID string, req dto.MetadataRequest, actor *models.JWTClaims) (*dto.MetadataResult, error) {
	report := ErrorReport{Operation: OpUpdateMetadata, SubmissionID: submissionID}
	var (
		result   dto.MetadataResult
		previous models.Submission
	)
	err := s.run(ctx, report, func() error {
		if !req.ReferenceDate.Set && !req.LinkedEventID.Set {
			return appErrors.Clone(appErrors.ErrValidation, "no metadata fields to update")
		}
		var referenceDate *time.Time
		if req.ReferenceDate.Set && req.ReferenceDate.Value != nil {
			parsed, err := time.Parse(referenceDateLayout, strings.TrimSpace(*req.ReferenceDate.Value))
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenceDate must be YYYY-MM-DD")
			}
			referenceDate = &parsed
		}
		var linkedEventID *string
		if req.LinkedEventID.Set && req.LinkedEventID.Value != nil {
			id := strings.TrimSpace(*req.LinkedEventID.Value)
			if _, err := uuid.Parse(id); err != nil {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "linkedEventId must be a UUID")
			}
			linkedEventID = &id
		}

		return s.uow.WithinTx(ctx, func(stores Stores) error {
			submission, err := s.loadSubmission(ctx, stores, submissionID)
			if err != nil {
				return err
			}
			previous = *submission
			warnings := []string{}

			if req.LinkedEventID.Set {
				if submission.SubmissionType != models.SubmissionTypeEvents {
					return appErrors.Clone(appErrors.ErrValidation, "linkedEventId is only supported for events submissions")
				}
				if linkedEventID != nil {
					event, err := stores.Events.FindByID(ctx, *linkedEventID)
					if err != nil {
						return lookupError(err, "event not found", "failed to load event")
					}
					if event.ClanID != submission.ClanID {
						return appErrors.Clone(appErrors.ErrForbidden, "event belongs to another clan")
					}
					conflicts, err := stores.Submissions.FindLinkedEventConflicts(ctx, submission.ID, event.ID)
					if err != nil {
						return storageError(err, "failed to check linked event conflicts")
					}
					for _, id := range conflicts {
						warnings = append(warnings, fmt.Sprintf("submission %s is already linked to event %q", id, event.Title))
					}
				}
			}
			if referenceDate != nil {
				conflicts, err := stores.Submissions.FindReferenceDateConflicts(ctx, submission, *referenceDate)
				if err != nil {
					return storageError(err, "failed to check reference date conflicts")
				}
				for _, id := range conflicts {
					warnings = append(warnings, fmt.Sprintf("submission %s already uses reference date %s", id, referenceDate.Format(referenceDateLayout)))
				}
			}

			params := repository.UpdateSubmissionMetadataParams{
				ID:               submission.ID,
				SetReferenceDate: req.ReferenceDate.Set,
				ReferenceDate:    referenceDate,
				SetLinkedEvent:   req.LinkedEventID.Set,
				LinkedEventID:    linkedEventID,
			}
			if err := stores.Submissions.UpdateMetadata(ctx, params); err != nil {
				return lookupError(err, "submission not found", "failed to update submission metadata")
			}
			if params.SetReferenceDate {
				submission.ReferenceDate = referenceDate
			}
			if params.SetLinkedEvent {
				submission.LinkedEventID = linkedEventID
			}
			submission.UpdatedAt = time.Now().UTC()

			result = dto.MetadataResult{Submission: submission, Warnings: warnings}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, submissionID)
	s.audit.Record(ctx, AuditEvent{
		Action:       models.AuditActionMetadataUpdate,
		Actor:        actor,
		SubmissionID: submissionID,
		OldValues:    map[string]interface{}{"referenceDate": previous.ReferenceDate, "linkedEventId": previous.LinkedEventID},
		NewValues:    map[string]interface{}{"referenceDate": result.Submission.ReferenceDate, "linkedEventId": result.Submission.LinkedEventID},
	})
	return &result, nil
}

func (s *SubmissionService) loadSubmission(ctx context.Context, stores Stores, id string) (*models.Submission, error) {
	submission, err := stores.Submissions.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "submission not found", "failed to load submission")
	}
	if !submission.SubmissionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedType, fmt.Sprintf("unsupported submission type %q", submission.SubmissionType))
	}
	return submission, nil
}

func (s *SubmissionService) loadEntry(ctx context.Context, stores Stores, submission *models.Submission, entryID string) (models.StagedEntry, error) {
	entry, err := stores.Entries.Get(ctx, submission.SubmissionType, submission.ID, entryID)
	if err != nil {
		return nil, lookupError(err, "entry not found", "failed to load entry")
	}
	return entry, nil
}

// syncError marks a production propagation failure. The message tells operators whether the
// staged write survived.
func (s *SubmissionService) syncError(submission *models.Submission, err error) error {
	s.metrics.RecordSyncFailure(string(submission.SubmissionType))
	message := "staged change saved but production sync failed; production may be stale"
	if s.uow.Transactional() {
		message = "production sync failed; staged change rolled back"
	}
	return appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, message)
}

// afterCommit drops cached facets. Failures are logged by the cache service.
func (s *SubmissionService) afterCommit(ctx context.Context, submissionID string) {
	_ = s.cache.InvalidateSubmission(ctx, submissionID)
}

// run executes fn, turning panics into internal errors, and reports server-side failures.
func (s *SubmissionService) run(ctx context.Context, report ErrorReport, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = appErrors.Wrap(fmt.Errorf("panic: %v", p), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		s.metrics.RecordReconcileOperation(report.Operation, err)
		if err == nil {
			return
		}
		appErr := appErrors.FromError(err)
		if appErr.Status >= http.StatusInternalServerError {
			s.reporter.Report(ctx, err, report)
		}
		err = appErr
	}()
	return fn()
}
