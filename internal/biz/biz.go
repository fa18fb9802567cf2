package biz

import (
	"context"
	"errors"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewAvailabilityUsecase,
	NewSubscriptionUsecase,
)

// Sentinel errors for pure helpers; usecases map them onto biz error codes
// at the boundary.
var (
	ErrInvalidDate      = errors.New("invalid date: expected YYYY-MM-DD")
	ErrInvalidDateRange = errors.New("invalid date range: end precedes start")
)

// Transactor runs fn inside a single data-layer transaction. Implemented by
// the data layer; repo calls made with the ctx passed to fn join the
// transaction.
type Transactor interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}
