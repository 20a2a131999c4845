package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/repository"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
)

// ErrorReport carries the operation context attached to a reported failure.
type ErrorReport struct {
	Operation    string
	SubmissionID string
	EntryID      string
}

// ErrorReporter receives every server-side failure of the reconciliation engine.
type ErrorReporter interface {
	Report(ctx context.Context, err error, report ErrorReport)
}

// ZapErrorReporter logs reported errors through zap.
type ZapErrorReporter struct {
	logger *zap.Logger
}

// NewZapErrorReporter constructs the default reporter.
func NewZapErrorReporter(logger *zap.Logger) *ZapErrorReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapErrorReporter{logger: logger}
}

// Report implements ErrorReporter.
func (r *ZapErrorReporter) Report(_ context.Context, err error, report ErrorReport) {
	appErr := appErrors.FromError(err)
	r.logger.Error("submission operation failed",
		zap.String("operation", report.Operation),
		zap.String("submission_id", report.SubmissionID),
		zap.String("entry_id", report.EntryID),
		zap.String("code", appErr.Code),
		zap.Error(err),
	)
}

// storageError classifies a repository failure. Typed errors pass through untouched.
func storageError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	var unsupported *repository.UnsupportedTypeError
	if errors.As(err, &unsupported) {
		return appErrors.Wrap(err, appErrors.ErrUnsupportedType.Code, appErrors.ErrUnsupportedType.Status, unsupported.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, message)
}

// lookupError maps sql.ErrNoRows to a not-found error carrying message.
func lookupError(err error, notFound, failed string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return storageError(err, failed)
}
