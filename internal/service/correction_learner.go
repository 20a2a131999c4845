package service

import (
	"context"
	"strings"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// CorrectionLearner records OCR text that a reviewer resolved to a real account name.
type CorrectionLearner struct{}

// NewCorrectionLearner constructs the learner.
func NewCorrectionLearner() *CorrectionLearner {
	return &CorrectionLearner{}
}

// Learn upserts the (clan, player, ocrText) mapping. It reports false without writing when
// either side is blank or the OCR text already equals the corrected text.
func (l *CorrectionLearner) Learn(ctx context.Context, store CorrectionStore, clanID, ocrText, correctedText string) (bool, error) {
	ocrText = strings.TrimSpace(ocrText)
	correctedText = strings.TrimSpace(correctedText)
	if ocrText == "" || correctedText == "" || ocrText == correctedText {
		return false, nil
	}
	err := store.Upsert(ctx, models.OCRCorrection{
		ClanID:        clanID,
		EntityType:    models.CorrectionEntityPlayer,
		OCRText:       ocrText,
		CorrectedText: correctedText,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
