package service

import (
	"context"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/auth"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// BookingService serves booking availability queries.
type BookingService struct {
	uc *biz.AvailabilityUsecase
}

// NewBookingService creates the booking service.
func NewBookingService(uc *biz.AvailabilityUsecase) *BookingService {
	return &BookingService{uc: uc}
}

type GetUnavailableDatesRequest struct {
	Slug      string `json:"slug"`
	ListingID string `json:"listingId"`
}

type GetUnavailableDatesReply struct {
	Dates []string `json:"dates"`
}

// GetUnavailableDates returns the blocked-out dates for a listing.
// Requires an authenticated caller.
func (s *BookingService) GetUnavailableDates(ctx context.Context, req *GetUnavailableDatesRequest) (*GetUnavailableDatesReply, error) {
	if _, err := auth.RequireUser(ctx); err != nil {
		return nil, err
	}
	if req.Slug == "" && req.ListingID == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	dates, err := s.uc.GetUnavailableDates(ctx, req.Slug, req.ListingID)
	if err != nil {
		return nil, err
	}
	return &GetUnavailableDatesReply{Dates: dates}, nil
}

type CheckAvailabilityRequest struct {
	Slug      string `json:"slug"`
	ListingID string `json:"listingId"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

type CheckAvailabilityReply struct {
	Available bool `json:"available"`
}

// CheckAvailability reports whether the interval (start, end] is free of
// blocked dates. The booking UI treats any error as unavailable (fail
// closed).
func (s *BookingService) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityReply, error) {
	if err := validate.Struct(req); err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	if req.Slug == "" && req.ListingID == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	available, err := s.uc.CheckAvailability(ctx, req.Slug, req.ListingID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	return &CheckAvailabilityReply{Available: available}, nil
}

type ReplaceUnavailableDatesRequest struct {
	ListingID string   `json:"listingId" validate:"required"`
	Dates     []string `json:"dates" validate:"required,dive,datetime=2006-01-02"`
}

type ReplaceUnavailableDatesReply struct {
	Updated bool `json:"updated"`
}

// ReplaceUnavailableDates swaps a listing's blocked-out set. Admin only.
func (s *BookingService) ReplaceUnavailableDates(ctx context.Context, req *ReplaceUnavailableDatesRequest) (*ReplaceUnavailableDatesReply, error) {
	if err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	if err := s.uc.ReplaceUnavailableDates(ctx, req.ListingID, req.Dates); err != nil {
		return nil, err
	}
	return &ReplaceUnavailableDatesReply{Updated: true}, nil
}
