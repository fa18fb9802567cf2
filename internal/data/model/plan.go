package model

// Plan is a purchasable subscription plan.
type Plan struct {
	PlanID       string  `gorm:"primaryKey;column:plan_id"`
	Name         string  `gorm:"column:name"`
	Description  string  `gorm:"column:description"`
	Entitlement  string  `gorm:"column:entitlement"`
	DurationDays int     `gorm:"column:duration_days"`
	Price        float64 `gorm:"column:price"`
	Currency     string  `gorm:"column:currency"`
}

func (Plan) TableName() string { return "plan" }
