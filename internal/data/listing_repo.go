package data

import (
	"context"
	"errors"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// listingRepo listing repository implementation
type listingRepo struct {
	data *Data
	log  *log.Helper
}

// NewListingRepo creates the listing repository.
func NewListingRepo(data *Data, logger log.Logger) biz.ListingRepo {
	return &listingRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetListingBySlug finds a listing by slug.
func (r *listingRepo) GetListingBySlug(ctx context.Context, slug string) (*biz.Listing, error) {
	var m model.Listing
	err := r.data.DB(ctx).Where("slug = ?", slug).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get listing by slug %s: %v", slug, err)
		return nil, err
	}
	return toBizListing(&m), nil
}

// GetListingByID finds a listing by id.
func (r *listingRepo) GetListingByID(ctx context.Context, id string) (*biz.Listing, error) {
	var m model.Listing
	err := r.data.DB(ctx).Where("listing_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get listing %s: %v", id, err)
		return nil, err
	}
	return toBizListing(&m), nil
}

// GetUnavailableDates returns the listing's blocked-out dates, ascending.
func (r *listingRepo) GetUnavailableDates(ctx context.Context, listingID string) ([]string, error) {
	var models []model.UnavailableDate
	if err := r.data.DB(ctx).
		Where("listing_id = ?", listingID).
		Order("date ASC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to get unavailable dates for listing %s: %v", listingID, err)
		return nil, err
	}

	dates := make([]string, len(models))
	for i, m := range models {
		dates[i] = m.Date
	}
	return dates, nil
}

// ReplaceUnavailableDates swaps the listing's blocked-out set in one
// transaction.
func (r *listingRepo) ReplaceUnavailableDates(ctx context.Context, listingID string, dates []string) error {
	return r.data.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&model.UnavailableDate{}).Error; err != nil {
			return err
		}
		if len(dates) == 0 {
			return nil
		}
		now := time.Now().UTC()
		rows := make([]model.UnavailableDate, len(dates))
		for i, d := range dates {
			rows[i] = model.UnavailableDate{
				ListingID: listingID,
				Date:      d,
				CreatedAt: now,
			}
		}
		return tx.Create(&rows).Error
	})
}

func toBizListing(m *model.Listing) *biz.Listing {
	return &biz.Listing{
		ID:        m.ListingID,
		Slug:      m.Slug,
		Title:     m.Title,
		OwnerUID:  m.OwnerUID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
