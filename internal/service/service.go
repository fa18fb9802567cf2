package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewBookingService,
	NewSubscriptionService,
)

// validate is shared by all services; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()
