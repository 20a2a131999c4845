package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// AuditRepository appends rows to audit_logs.
type AuditRepository struct {
	db Querier
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db Querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog stores an audit log entry, assigning id and timestamp when absent.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
