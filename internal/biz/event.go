package biz

import (
	"context"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// SubscriptionEvent is a payment-provider event, immutable once received.
// It arrives from the Yoco webhook or an admin-triggered reconciliation job
// and is queued for asynchronous processing.
type SubscriptionEvent struct {
	// Kind is one of the constants.Event* values.
	Kind string `json:"event"`
	// UID is the platform user the event belongs to.
	UID string `json:"userId"`
	// TransactionID is the idempotence key; duplicate deliveries of the
	// same id must not change persisted state beyond the first.
	TransactionID string `json:"transactionId,omitempty"`
	// PlanID optionally names the purchased plan.
	PlanID string `json:"plan,omitempty"`
	// Entitlement optionally carries the granted entitlement level.
	Entitlement string `json:"entitlement,omitempty"`
	// ExpiresAt is when the purchased validity ends; nil means open-ended.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	// OccurredAt is the provider-side event time. Events are ordered by
	// this logical time, never by arrival order.
	OccurredAt time.Time `json:"occurredAt,omitempty"`
}

// Validate rejects malformed events before they are queued (fail fast).
func (e *SubscriptionEvent) Validate(ctx context.Context) error {
	if e.UID == "" {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeEventMissingUser)
	}
	switch e.Kind {
	case constants.EventInitialPurchase,
		constants.EventRenewed,
		constants.EventTrialEnded,
		constants.EventCanceled,
		constants.EventExpired:
		return nil
	}
	return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeEventUnknownKind)
}

// LogicalTime is the instant used to decide whether this event supersedes
// recorded state: expiry when present, else the provider event time, else
// zero (the caller substitutes arrival time).
func (e *SubscriptionEvent) LogicalTime() time.Time {
	if e.ExpiresAt != nil {
		return *e.ExpiresAt
	}
	return e.OccurredAt
}

// Task is a unit of queued work. Delivery is at-least-once; handlers must
// be idempotent.
type Task struct {
	// Kind is constants.TaskEvent or constants.TaskSweep.
	Kind string `json:"kind"`
	// Event is set for TaskEvent tasks.
	Event *SubscriptionEvent `json:"event,omitempty"`
	// Deliveries counts how many times the task has been handed to a
	// worker, for bounded redelivery.
	Deliveries int `json:"deliveries"`
}

// EventQueue is the durable work queue interface (at-least-once delivery).
type EventQueue interface {
	Enqueue(ctx context.Context, task *Task) error
	// Dequeue blocks up to timeout; returns nil when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// Len reports the queue depth.
	Len(ctx context.Context) (int64, error)
}

// YocoClient is the payment-provider anti-corruption layer.
type YocoClient interface {
	// VerifyWebhook checks the provider's HMAC signature over the raw
	// request body.
	VerifyWebhook(payload []byte, signature string) bool
}

// TrackingClient reports server-side conversion events to the marketing
// analytics backend. Implementations are no-ops when no tracking ID is
// configured.
type TrackingClient interface {
	TrackConversion(ctx context.Context, uid, action, planID string) error
}
