package biz

import (
	"context"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
)

// SubscriptionHistory is an append-only audit record of one applied
// reconciliation action.
type SubscriptionHistory struct {
	SubscriptionHistoryID uint64
	UID                   string
	TransactionID         string
	Action                string // created, renewed, cancelled, expired, downgrade_sweep
	Entitlement           string
	ExpiresAt             *time.Time
	CreatedAt             time.Time
}

// SubscriptionHistoryRepo is the history data-layer interface.
type SubscriptionHistoryRepo interface {
	AddSubscriptionHistory(ctx context.Context, history *SubscriptionHistory) error
	GetSubscriptionHistory(ctx context.Context, uid string, page, pageSize int) ([]*SubscriptionHistory, int, error)
}

// GetSubscriptionHistory returns the user's reconciliation history,
// newest first, paginated.
func (uc *SubscriptionUsecase) GetSubscriptionHistory(ctx context.Context, uid string, page, pageSize int) ([]*SubscriptionHistory, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	items, total, err := uc.historyRepo.GetSubscriptionHistory(ctx, uid, page, pageSize)
	if err != nil {
		uc.log.Errorf("Failed to get subscription history: %v", err)
		return nil, 0, err
	}
	return items, total, nil
}
