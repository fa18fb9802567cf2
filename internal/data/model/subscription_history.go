package model

import "time"

// SubscriptionHistory is an append-only audit row per applied
// reconciliation action.
type SubscriptionHistory struct {
	ID            uint64     `gorm:"primaryKey;column:subscription_history_id;autoIncrement"`
	UID           string     `gorm:"column:uid;index"`
	TransactionID string     `gorm:"column:transaction_id"`
	Action        string     `gorm:"column:action"` // created, renewed, cancelled, expired, downgrade_sweep
	Entitlement   string     `gorm:"column:entitlement"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (SubscriptionHistory) TableName() string { return "subscription_history" }
