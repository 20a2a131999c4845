package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/models"
	"github.com/noah-isme/clanstats-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditRecorder accepts audit events without blocking the caller on storage.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditEvent is one reviewer action against a submission.
type AuditEvent struct {
	Action       string
	Actor        *models.JWTClaims
	SubmissionID string
	EntryID      string
	OldValues    interface{}
	NewValues    interface{}
}

// AuditSource identifies where a request came from.
type AuditSource struct {
	IPAddress string
	UserAgent string
}

type auditSourceKey struct{}

// WithAuditSource attaches request origin details to ctx.
func WithAuditSource(ctx context.Context, source AuditSource) context.Context {
	return context.WithValue(ctx, auditSourceKey{}, source)
}

// AuditSourceFrom returns the request origin attached by WithAuditSource.
func AuditSourceFrom(ctx context.Context) AuditSource {
	if source, ok := ctx.Value(auditSourceKey{}).(AuditSource); ok {
		return source
	}
	return AuditSource{}
}

type auditEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// AuditDispatcher turns audit events into audit_logs rows on a background queue.
type AuditDispatcher struct {
	repo   auditLogger
	queue  auditEnqueuer
	logger *zap.Logger
}

// NewAuditDispatcher constructs a dispatcher. Attach a queue with NewAuditQueue; without one,
// records are written synchronously.
func NewAuditDispatcher(repo auditLogger, logger *zap.Logger) *AuditDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditDispatcher{repo: repo, logger: logger}
}

// NewAuditQueue builds the worker queue that persists this dispatcher's records and attaches it.
func (d *AuditDispatcher) NewAuditQueue(cfg jobs.QueueConfig) *jobs.Queue {
	if cfg.Logger == nil {
		cfg.Logger = d.logger
	}
	queue := jobs.NewQueue("audit", d.handle, cfg)
	d.queue = queue
	return queue
}

// Record implements AuditRecorder. Failures are logged, never returned.
func (d *AuditDispatcher) Record(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	log, err := d.build(ctx, event)
	if err != nil {
		d.logger.Warn("audit event dropped", zap.String("action", event.Action), zap.Error(err))
		return
	}
	if d.queue == nil {
		if err := d.repo.CreateAuditLog(ctx, log); err != nil {
			d.logger.Warn("audit write failed", zap.String("action", event.Action), zap.Error(err))
		}
		return
	}
	if err := d.queue.TryEnqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log}); err != nil {
		d.logger.Warn("audit enqueue failed", zap.String("action", event.Action), zap.Error(err))
	}
}

func (d *AuditDispatcher) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return d.repo.CreateAuditLog(ctx, log)
}

func (d *AuditDispatcher) build(ctx context.Context, event AuditEvent) (*models.AuditLog, error) {
	source := AuditSourceFrom(ctx)
	log := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    event.Action,
		Resource:  "submission",
		IPAddress: source.IPAddress,
		UserAgent: source.UserAgent,
	}
	if event.Actor != nil && event.Actor.UserID != "" {
		userID := event.Actor.UserID
		log.UserID = &userID
	}
	resourceID := event.SubmissionID
	if event.EntryID != "" {
		log.Resource = "submission_entry"
		resourceID = event.EntryID
	}
	log.ResourceID = &resourceID

	var err error
	if log.OldValues, err = marshalAuditValues(event.OldValues); err != nil {
		return nil, err
	}
	if log.NewValues, err = marshalAuditValues(event.NewValues); err != nil {
		return nil, err
	}
	return log, nil
}

func marshalAuditValues(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit values: %w", err)
	}
	return payload, nil
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEvent) {}
