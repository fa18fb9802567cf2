package model

import "time"

// UnavailableDate is one blocked-out calendar date on a listing. Dates are
// stored as zero-padded YYYY-MM-DD strings so string order is date order.
type UnavailableDate struct {
	ID        uint64    `gorm:"primaryKey;column:unavailable_date_id;autoIncrement"`
	ListingID string    `gorm:"column:listing_id;uniqueIndex:idx_listing_date"`
	Date      string    `gorm:"column:date;size:10;uniqueIndex:idx_listing_date"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UnavailableDate) TableName() string { return "unavailable_date" }
