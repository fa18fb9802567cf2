package data

import (
	"context"
	"errors"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// transactionRepo transaction repository implementation
type transactionRepo struct {
	data *Data
	log  *log.Helper
}

// NewTransactionRepo creates the transaction repository.
func NewTransactionRepo(data *Data, logger log.Logger) biz.TransactionRepo {
	return &transactionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateIfAbsent inserts the transaction unless its id already exists.
// ON CONFLICT DO NOTHING keyed on the primary key makes concurrent webhook
// redeliveries race-free: exactly one delivery inserts the row.
func (r *transactionRepo) CreateIfAbsent(ctx context.Context, txn *biz.Transaction) (bool, error) {
	m := toModelTransaction(txn)
	res := r.data.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		r.log.Errorf("Failed to create transaction %s: %v", txn.ID, res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetTransaction returns nil, nil for an unknown id.
func (r *transactionRepo) GetTransaction(ctx context.Context, id string) (*biz.Transaction, error) {
	var m model.Transaction
	err := r.data.DB(ctx).Where("transaction_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get transaction %s: %v", id, err)
		return nil, err
	}
	return toBizTransaction(&m), nil
}

// SaveTransaction persists the transaction.
func (r *transactionRepo) SaveTransaction(ctx context.Context, txn *biz.Transaction) error {
	if err := r.data.DB(ctx).Save(toModelTransaction(txn)).Error; err != nil {
		r.log.Errorf("Failed to save transaction %s: %v", txn.ID, err)
		return err
	}
	return nil
}

// ListTransactions returns the user's transactions, newest first by
// completion time.
func (r *transactionRepo) ListTransactions(ctx context.Context, uid string) ([]*biz.Transaction, error) {
	var models []model.Transaction
	if err := r.data.DB(ctx).
		Where("uid = ?", uid).
		Order("completed_at DESC, created_at DESC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list transactions for user %s: %v", uid, err)
		return nil, err
	}

	txns := make([]*biz.Transaction, len(models))
	for i := range models {
		txns[i] = toBizTransaction(&models[i])
	}
	return txns, nil
}

// LatestCompleted returns the user's completed subscription transaction
// with the greatest logical validity: an open-ended expiry beats any dated
// one, later expiries beat earlier, completion time breaks ties.
func (r *transactionRepo) LatestCompleted(ctx context.Context, uid string) (*biz.Transaction, error) {
	var m model.Transaction
	err := r.data.DB(ctx).
		Where("uid = ? AND status = ? AND intent = ?", uid, constants.StatusCompleted, constants.IntentSubscription).
		Order("(expires_at IS NULL) DESC, expires_at DESC, completed_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get latest completed transaction for user %s: %v", uid, err)
		return nil, err
	}
	return toBizTransaction(&m), nil
}

// ExpireUser flips the user's completed subscription transactions to
// expired.
func (r *transactionRepo) ExpireUser(ctx context.Context, uid string, now time.Time) (int, error) {
	result := r.data.DB(ctx).Model(&model.Transaction{}).
		Where("uid = ? AND status = ? AND intent = ?", uid, constants.StatusCompleted, constants.IntentSubscription).
		Updates(map[string]interface{}{
			"status":     constants.StatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		r.log.Errorf("Failed to expire transactions for user %s: %v", uid, result.Error)
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ExpireOverdue flips every completed subscription transaction whose
// expiry has passed, returning the affected user ids.
func (r *transactionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int, []string, error) {
	overdue := func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND intent = ? AND expires_at IS NOT NULL AND expires_at < ?",
			constants.StatusCompleted, constants.IntentSubscription, now)
	}

	var uids []string
	if err := r.data.DB(ctx).Model(&model.Transaction{}).
		Scopes(overdue).
		Distinct("uid").
		Pluck("uid", &uids).Error; err != nil {
		r.log.Errorf("Failed to query overdue transactions: %v", err)
		return 0, nil, err
	}
	if len(uids) == 0 {
		return 0, []string{}, nil
	}

	result := r.data.DB(ctx).Model(&model.Transaction{}).
		Scopes(overdue).
		Updates(map[string]interface{}{
			"status":     constants.StatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		r.log.Errorf("Failed to expire overdue transactions: %v", result.Error)
		return 0, nil, result.Error
	}

	r.log.Infof("Expired %d overdue transactions", result.RowsAffected)
	return int(result.RowsAffected), uids, nil
}

// ListExpiring returns completed subscription transactions expiring within
// the given number of days, soonest first.
func (r *transactionRepo) ListExpiring(ctx context.Context, withinDays, page, pageSize int) ([]*biz.Transaction, int, error) {
	var models []model.Transaction
	var total int64

	now := time.Now().UTC()
	expiryDate := now.AddDate(0, 0, withinDays)

	q := r.data.DB(ctx).Model(&model.Transaction{}).
		Where("status = ? AND intent = ? AND expires_at BETWEEN ? AND ?",
			constants.StatusCompleted, constants.IntentSubscription, now, expiryDate)

	if err := q.Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count expiring transactions: %v", err)
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := q.
		Order("expires_at ASC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list expiring transactions: %v", err)
		return nil, 0, err
	}

	txns := make([]*biz.Transaction, len(models))
	for i := range models {
		txns[i] = toBizTransaction(&models[i])
	}
	return txns, int(total), nil
}

func toModelTransaction(t *biz.Transaction) *model.Transaction {
	return &model.Transaction{
		TransactionID: t.ID,
		UID:           t.UID,
		Status:        t.Status,
		Intent:        t.Intent,
		Entitlement:   t.Entitlement,
		PlanID:        t.PlanID,
		ExpiresAt:     t.ExpiresAt,
		CanceledAt:    t.CanceledAt,
		CompletedAt:   t.CompletedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toBizTransaction(m *model.Transaction) *biz.Transaction {
	return &biz.Transaction{
		ID:          m.TransactionID,
		UID:         m.UID,
		Status:      m.Status,
		Intent:      m.Intent,
		Entitlement: m.Entitlement,
		PlanID:      m.PlanID,
		ExpiresAt:   m.ExpiresAt,
		CanceledAt:  m.CanceledAt,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
