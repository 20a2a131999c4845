package app

import (
	"context"

	"github.com/noah-isme/clanstats-api/internal/repository"
	"github.com/noah-isme/clanstats-api/internal/service"
)

// UnitOfWork binds repositories to the pool or to the transaction opened by the TxManager.
type UnitOfWork struct {
	tx *repository.TxManager
}

// NewUnitOfWork constructs the adapter.
func NewUnitOfWork(tx *repository.TxManager) *UnitOfWork {
	return &UnitOfWork{tx: tx}
}

// Stores implements service.UnitOfWork.
func (u *UnitOfWork) Stores() service.Stores {
	return storesFor(u.tx.DB())
}

// WithinTx implements service.UnitOfWork.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(service.Stores) error) error {
	return u.tx.WithinTx(ctx, func(q repository.Querier) error {
		return fn(storesFor(q))
	})
}

// Transactional implements service.UnitOfWork.
func (u *UnitOfWork) Transactional() bool {
	return u.tx.Transactional()
}

func storesFor(q repository.Querier) service.Stores {
	return service.Stores{
		Submissions: repository.NewSubmissionRepository(q),
		Entries:     repository.NewStagedEntryRepository(q),
		Production:  repository.NewProductionRepository(q),
		Corrections: repository.NewCorrectionRepository(q),
		Accounts:    repository.NewGameAccountRepository(q),
		Events:      repository.NewEventRepository(q),
	}
}
