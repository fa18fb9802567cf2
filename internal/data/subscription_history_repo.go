package data

import (
	"context"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// historyRepo history repository implementation
type historyRepo struct {
	data *Data
	log  *log.Helper
}

// NewSubscriptionHistoryRepo creates the subscription history repository.
func NewSubscriptionHistoryRepo(data *Data, logger log.Logger) biz.SubscriptionHistoryRepo {
	return &historyRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// AddSubscriptionHistory appends one audit row.
func (r *historyRepo) AddSubscriptionHistory(ctx context.Context, history *biz.SubscriptionHistory) error {
	m := &model.SubscriptionHistory{
		UID:           history.UID,
		TransactionID: history.TransactionID,
		Action:        history.Action,
		Entitlement:   history.Entitlement,
		ExpiresAt:     history.ExpiresAt,
		CreatedAt:     history.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to add subscription history for user %s: %v", history.UID, err)
		return err
	}
	return nil
}

// GetSubscriptionHistory returns the user's history, newest first.
func (r *historyRepo) GetSubscriptionHistory(ctx context.Context, uid string, page, pageSize int) ([]*biz.SubscriptionHistory, int, error) {
	var models []model.SubscriptionHistory
	var total int64

	if err := r.data.DB(ctx).Model(&model.SubscriptionHistory{}).Where("uid = ?", uid).Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count subscription history for user %s: %v", uid, err)
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := r.data.DB(ctx).
		Where("uid = ?", uid).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to get subscription history for user %s: %v", uid, err)
		return nil, 0, err
	}

	items := make([]*biz.SubscriptionHistory, len(models))
	for i, m := range models {
		items[i] = &biz.SubscriptionHistory{
			SubscriptionHistoryID: m.ID,
			UID:                   m.UID,
			TransactionID:         m.TransactionID,
			Action:                m.Action,
			Entitlement:           m.Entitlement,
			ExpiresAt:             m.ExpiresAt,
			CreatedAt:             m.CreatedAt,
		}
	}

	return items, int(total), nil
}
