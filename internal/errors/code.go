package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// Booking-service error codes.
// Format: SSMMEE (6 digits), SS=14 for booking-service.
// Modules:
//   01: bookings / availability
//   02: subscriptions / reconciliation
//   03: webhooks
//   04: plans

// Bookings module (140100-140199)
const (
	// ErrCodeListingNotFound the referenced listing does not exist
	ErrCodeListingNotFound = 140101
	// ErrCodeInvalidDate a date string is not a valid YYYY-MM-DD value
	ErrCodeInvalidDate = 140102
	// ErrCodeInvalidDateRange the interval end precedes the start
	ErrCodeInvalidDateRange = 140103
)

// Subscription module (140200-140299)
const (
	// ErrCodeTransactionNotFound the referenced transaction does not exist
	ErrCodeTransactionNotFound = 140201
	// ErrCodeEventMissingUser the event has no user id
	ErrCodeEventMissingUser = 140202
	// ErrCodeEventUnknownKind the event kind is not recognised
	ErrCodeEventUnknownKind = 140203
	// ErrCodeEnqueueFailed the event could not be queued
	ErrCodeEnqueueFailed = 140204
)

// Webhook module (140300-140399)
const (
	// ErrCodeWebhookBadSignature the webhook signature did not verify
	ErrCodeWebhookBadSignature = 140301
	// ErrCodeWebhookBadPayload the webhook body is not an event or event array
	ErrCodeWebhookBadPayload = 140302
)

// Plan module (140400-140499)
const (
	// ErrCodePlanNotFound the referenced plan does not exist
	ErrCodePlanNotFound = 140401
)

// NotFoundCodes lists the biz codes that surface as HTTP 404 rather than 400.
var NotFoundCodes = map[int]bool{
	ErrCodeListingNotFound:     true,
	ErrCodeTransactionNotFound: true,
	ErrCodePlanNotFound:        true,
}

// UnauthorizedCodes lists the biz codes that surface as HTTP 401.
var UnauthorizedCodes = map[int]bool{
	ErrCodeWebhookBadSignature: true,
}
