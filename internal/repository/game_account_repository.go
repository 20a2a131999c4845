package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/clanstats-api/internal/models"
)

// GameAccountRepository reads verified accounts and their clan memberships.
type GameAccountRepository struct {
	db Querier
}

// NewGameAccountRepository constructs the repository.
func NewGameAccountRepository(db Querier) *GameAccountRepository {
	return &GameAccountRepository{db: db}
}

// FindClanAccount returns the account when it is an active member of the clan.
func (r *GameAccountRepository) FindClanAccount(ctx context.Context, clanID, accountID string) (*models.GameAccount, error) {
	const query = `SELECT ga.id, ga.game_username
	FROM game_accounts ga
	JOIN game_account_clan_memberships m ON m.game_account_id = ga.id
	WHERE m.clan_id = $1 AND ga.id = $2 AND m.is_active = TRUE`
	var account models.GameAccount
	if err := r.db.GetContext(ctx, &account, query, clanID, accountID); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListActiveByClan returns the clan's active roster sorted by username.
func (r *GameAccountRepository) ListActiveByClan(ctx context.Context, clanID string) ([]models.GameAccount, error) {
	const query = `SELECT ga.id, ga.game_username
	FROM game_accounts ga
	JOIN game_account_clan_memberships m ON m.game_account_id = ga.id
	WHERE m.clan_id = $1 AND m.is_active = TRUE
	ORDER BY ga.game_username`
	accounts := []models.GameAccount{}
	if err := r.db.SelectContext(ctx, &accounts, query, clanID); err != nil {
		return nil, fmt.Errorf("list clan game accounts: %w", err)
	}
	return accounts, nil
}
