package service

import (
	"github.com/noah-isme/clanstats-api/internal/models"
)

// Assignment describes the outcome of pointing a staged entry at an account.
type Assignment struct {
	PreviousStatus models.ItemStatus
	Status         models.ItemStatus
	AccountID      *string
	// Propagate is set when the entry was approved and production must follow the new account.
	Propagate bool
}

// Changed reports whether the entry's stored state differs from the assignment.
func (a Assignment) Changed(entry models.StagedEntry) bool {
	base := entry.Base()
	return base.ItemStatus != a.Status || !sameAccount(base.MatchedGameAccountID, a.AccountID)
}

// AssignmentResolver derives the status an entry takes after a manual assignment.
type AssignmentResolver struct{}

// NewAssignmentResolver constructs the resolver.
func NewAssignmentResolver() *AssignmentResolver {
	return &AssignmentResolver{}
}

// Resolve computes the new status for entry assigned to accountID, which may be nil.
func (r *AssignmentResolver) Resolve(entry models.StagedEntry, accountID *string) Assignment {
	current := entry.Base().ItemStatus
	return Assignment{
		PreviousStatus: current,
		Status:         models.ResolveAssignmentStatus(current, accountID),
		AccountID:      accountID,
		Propagate:      current == models.ItemStatusApproved,
	}
}

func sameAccount(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
