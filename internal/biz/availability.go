package biz

import (
	"context"
	"sort"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Listing is a bookable resource (a retreat, villa or experience page).
type Listing struct {
	ID        string
	Slug      string
	Title     string
	OwnerUID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListingRepo is the listing data-layer interface.
type ListingRepo interface {
	GetListingBySlug(ctx context.Context, slug string) (*Listing, error)
	GetListingByID(ctx context.Context, id string) (*Listing, error)
	// GetUnavailableDates returns the listing's blocked-out calendar dates
	// as zero-padded YYYY-MM-DD strings.
	GetUnavailableDates(ctx context.Context, listingID string) ([]string, error)
	// ReplaceUnavailableDates swaps the listing's blocked-out set atomically.
	ReplaceUnavailableDates(ctx context.Context, listingID string, dates []string) error
}

// IsUnavailable reports whether any blocked date falls inside the
// open-start, closed-end interval (start, end]. A blocked date equal to
// start does NOT block: a checkout day may be another booking's check-in
// day. A blocked date equal to end does block. Dates are zero-padded ISO
// date strings, so lexicographic comparison is correct and no timezone
// arithmetic happens here.
//
// An empty blocked set or start == end always yields false. The result is
// independent of the order of unavailableDates.
func IsUnavailable(unavailableDates []string, start, end string) (bool, error) {
	if !validDate(start) || !validDate(end) {
		return false, ErrInvalidDate
	}
	if end < start {
		return false, ErrInvalidDateRange
	}
	for _, d := range unavailableDates {
		if !validDate(d) {
			return false, ErrInvalidDate
		}
	}
	for _, d := range unavailableDates {
		if d > start && d <= end {
			return true, nil
		}
	}
	return false, nil
}

func validDate(s string) bool {
	_, err := time.Parse(constants.DateLayout, s)
	return err == nil
}

// AvailabilityUsecase evaluates booking availability for listings.
type AvailabilityUsecase struct {
	listingRepo ListingRepo
	log         *log.Helper
}

// NewAvailabilityUsecase creates the availability usecase.
func NewAvailabilityUsecase(listingRepo ListingRepo, logger log.Logger) *AvailabilityUsecase {
	return &AvailabilityUsecase{
		listingRepo: listingRepo,
		log:         log.NewHelper(logger),
	}
}

// ResolveListing finds a listing by slug or id; slug wins when both are set.
func (uc *AvailabilityUsecase) ResolveListing(ctx context.Context, slug, id string) (*Listing, error) {
	var (
		listing *Listing
		err     error
	)
	switch {
	case slug != "":
		listing, err = uc.listingRepo.GetListingBySlug(ctx, slug)
	case id != "":
		listing, err = uc.listingRepo.GetListingByID(ctx, id)
	default:
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeListingNotFound)
	}
	return listing, nil
}

// GetUnavailableDates returns the listing's blocked-out dates, ascending.
func (uc *AvailabilityUsecase) GetUnavailableDates(ctx context.Context, slug, id string) ([]string, error) {
	listing, err := uc.ResolveListing(ctx, slug, id)
	if err != nil {
		return nil, err
	}

	dates, err := uc.listingRepo.GetUnavailableDates(ctx, listing.ID)
	if err != nil {
		uc.log.Errorf("Failed to load unavailable dates for listing %s: %v", listing.ID, err)
		return nil, err
	}
	sort.Strings(dates)
	return dates, nil
}

// CheckAvailability evaluates whether the interval (start, end] is free of
// blocked dates for the listing. Callers treat an error as "unavailable"
// (fail closed) to avoid double bookings.
func (uc *AvailabilityUsecase) CheckAvailability(ctx context.Context, slug, id, start, end string) (bool, error) {
	dates, err := uc.GetUnavailableDates(ctx, slug, id)
	if err != nil {
		return false, err
	}

	blocked, err := IsUnavailable(dates, start, end)
	switch err {
	case nil:
	case ErrInvalidDate:
		return false, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidDate)
	case ErrInvalidDateRange:
		return false, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidDateRange)
	default:
		return false, err
	}
	return !blocked, nil
}

// ReplaceUnavailableDates swaps the listing's blocked-out set (admin only).
func (uc *AvailabilityUsecase) ReplaceUnavailableDates(ctx context.Context, id string, dates []string) error {
	listing, err := uc.ResolveListing(ctx, "", id)
	if err != nil {
		return err
	}
	for _, d := range dates {
		if !validDate(d) {
			return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidDate)
		}
	}
	if err := uc.listingRepo.ReplaceUnavailableDates(ctx, listing.ID, dates); err != nil {
		uc.log.Errorf("Failed to replace unavailable dates for listing %s: %v", listing.ID, err)
		return err
	}
	return nil
}
