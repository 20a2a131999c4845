package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// CorrectionRepository stores learned OCR corrections.
type CorrectionRepository struct {
	db Querier
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db Querier) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// Upsert records the correction, overwriting corrected_text for an existing (clan, entity, ocr text) key.
func (r *CorrectionRepository) Upsert(ctx context.Context, correction models.OCRCorrection) error {
	const query = `INSERT INTO ocr_corrections (clan_id, entity_type, ocr_text, corrected_text, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (clan_id, entity_type, ocr_text)
	DO UPDATE SET corrected_text = EXCLUDED.corrected_text, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query,
		correction.ClanID,
		correction.EntityType,
		correction.OCRText,
		correction.CorrectedText,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("upsert ocr correction: %w", err)
	}
	return nil
}
