package model

import "time"

// Listing is a bookable resource page.
type Listing struct {
	ListingID string    `gorm:"primaryKey;column:listing_id"`
	Slug      string    `gorm:"column:slug;uniqueIndex"`
	Title     string    `gorm:"column:title"`
	OwnerUID  string    `gorm:"column:owner_uid;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Listing) TableName() string { return "listing" }
