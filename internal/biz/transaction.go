package biz

import (
	"context"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
)

// Transaction is a persisted payment record for a user. The "active
// subscription" fact is derived, not stored: the most recent completed
// subscription transaction whose expiry is absent or in the future.
type Transaction struct {
	// ID is the provider transaction id and the idempotence key.
	ID          string
	UID         string
	Status      string // pending, completed, failed, expired
	Intent      string // subscription, one-off
	Entitlement string
	PlanID      string
	ExpiresAt   *time.Time
	// CanceledAt marks a provider-side cancellation; the entitlement stays
	// valid until ExpiresAt (grace period).
	CanceledAt  *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveAt reports whether the transaction grants entitlement at the given
// instant.
func (t *Transaction) ActiveAt(now time.Time) bool {
	if t.Status != constants.StatusCompleted || t.Intent != constants.IntentSubscription {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}

// TransactionRepo is the transaction data-layer interface.
type TransactionRepo interface {
	// CreateIfAbsent inserts the transaction unless its id already exists.
	// The returned bool is false when the row was already present; this is
	// the conditional write that makes event replay safe.
	CreateIfAbsent(ctx context.Context, txn *Transaction) (bool, error)
	// GetTransaction returns nil, nil when the id is unknown.
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	SaveTransaction(ctx context.Context, txn *Transaction) error
	// ListTransactions returns the user's transactions, newest first by
	// logical completion time.
	ListTransactions(ctx context.Context, uid string) ([]*Transaction, error)
	// LatestCompleted returns the user's most recent completed subscription
	// transaction by logical completion time, or nil, nil.
	LatestCompleted(ctx context.Context, uid string) (*Transaction, error)
	// ExpireUser flips the user's completed subscription transactions to
	// expired, returning how many rows changed.
	ExpireUser(ctx context.Context, uid string, now time.Time) (int, error)
	// ExpireOverdue flips every completed subscription transaction whose
	// expiry has passed, returning the affected count and user ids.
	ExpireOverdue(ctx context.Context, now time.Time) (int, []string, error)
	// ListExpiring returns completed subscription transactions expiring
	// within the given number of days, soonest first.
	ListExpiring(ctx context.Context, withinDays, page, pageSize int) ([]*Transaction, int, error)
}
