package model

import "time"

// Transaction is a persisted payment record. The primary key is the
// provider transaction id, which doubles as the idempotence key for
// webhook replays.
type Transaction struct {
	TransactionID string     `gorm:"primaryKey;column:transaction_id"`
	UID           string     `gorm:"column:uid;index"`
	Status        string     `gorm:"column:status"` // pending, completed, failed, expired
	Intent        string     `gorm:"column:intent"` // subscription, one-off
	Entitlement   string     `gorm:"column:entitlement"`
	PlanID        string     `gorm:"column:plan_id"`
	ExpiresAt     *time.Time `gorm:"column:expires_at;index"`
	CanceledAt    *time.Time `gorm:"column:canceled_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (Transaction) TableName() string { return "transaction" }
