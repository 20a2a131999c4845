package repository

import (
	"context"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// EventRepository reads clan calendar events.
type EventRepository struct {
	db Querier
}

// NewEventRepository constructs the repository.
func NewEventRepository(db Querier) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID loads an event regardless of clan; callers enforce ownership.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.ClanEvent, error) {
	var event models.ClanEvent
	if err := r.db.GetContext(ctx, &event, `SELECT id, clan_id, title FROM events WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &event, nil
}
