package constants

import "time"

// Pagination
const (
	// DefaultPageSize is the default page size for list endpoints.
	DefaultPageSize = 10
	// MaxPageSize is the largest page size a caller may request.
	MaxPageSize = 100
)

// Transaction status
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Transaction intent
const (
	IntentSubscription = "subscription"
	IntentOneOff       = "one-off"
)

// Entitlement levels granted by a subscription.
const (
	EntitlementStandard = "standard"
	EntitlementPro      = "pro"
)

// Subscription event kinds delivered by the payment provider.
const (
	EventInitialPurchase = "INITIAL_PURCHASE"
	EventRenewed         = "RENEWED"
	EventTrialEnded      = "TRIAL_ENDED"
	EventCanceled        = "CANCELED"
	EventExpired         = "EXPIRED"
)

// Reconciliation actions recorded in subscription history.
const (
	ActionCreated  = "created"
	ActionRenewed  = "renewed"
	ActionCanceled = "cancelled"
	ActionExpired  = "expired"
	ActionSweep    = "downgrade_sweep"
)

// Queue task kinds.
const (
	TaskEvent = "event"
	TaskSweep = "sweep"
)

// Distributed lock settings for the downgrade sweep. The cron binary and
// an admin-triggered sweep may run concurrently; the lock serializes them.
const (
	// SweepLockKey is the redsync mutex name for the downgrade sweep.
	SweepLockKey = "subscription:sweep:lock"
	// SweepLockExpiration is how long the sweep may hold the lock.
	SweepLockExpiration = 10 * time.Minute
	// SweepLockRetries is the number of acquisition attempts. A single try
	// means a busy lock skips the run instead of waiting.
	SweepLockRetries = 1
)

// Date layout for unavailable-date comparison. Zero-padded ISO dates
// compare correctly as strings, so no timezone arithmetic is needed.
const DateLayout = "2006-01-02"
