package models

// GameAccount is a verified player account.
type GameAccount struct {
	ID           string `db:"id" json:"id"`
	GameUsername string `db:"game_username" json:"gameUsername"`
}

// ClanEvent is a clan calendar event a submission can be linked to.
type ClanEvent struct {
	ID     string `db:"id" json:"id"`
	ClanID string `db:"clan_id" json:"clanId"`
	Title  string `db:"title" json:"title"`
}

// CorrectionEntityPlayer is the entity type recorded for player-name corrections.
const CorrectionEntityPlayer = "player"

// OCRCorrection maps OCR-extracted text to its human-corrected form.
type OCRCorrection struct {
	ClanID        string `db:"clan_id" json:"clanId"`
	EntityType    string `db:"entity_type" json:"entityType"`
	OCRText       string `db:"ocr_text" json:"ocrText"`
	CorrectedText string `db:"corrected_text" json:"correctedText"`
}
