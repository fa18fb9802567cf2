package biz

import (
	"context"
	"sort"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
)

// ReconcileResult describes what applying one event changed.
type ReconcileResult struct {
	UID    string
	Action string
	// Duplicate is set when the event had already been applied (same
	// transaction id) and nothing changed.
	Duplicate bool
	// Superseded is set when a later event for the same user was already
	// on record, so this one was ignored.
	Superseded bool
}

// SubscriptionStatus is the derived entitlement view for one user.
type SubscriptionStatus struct {
	HasActiveSubscription bool
	ActiveEntitlements    []string
	// ExpiresAt is the latest expiry among active transactions; nil when
	// any active transaction is open-ended.
	ExpiresAt    *time.Time
	Transactions []*Transaction
}

// SubscriptionUsecase reconciles persisted subscription state against
// payment-provider events. ApplyEvent is idempotent and safe under
// at-least-once redelivery; events are ordered by logical time, never by
// arrival order.
type SubscriptionUsecase struct {
	planRepo    PlanRepo
	txnRepo     TransactionRepo
	historyRepo SubscriptionHistoryRepo
	queue       EventQueue
	tracking    TrackingClient
	tm          Transactor
	rs          *redsync.Redsync
	config      *conf.Bootstrap
	log         *log.Helper
}

// NewSubscriptionUsecase creates the subscription usecase.
func NewSubscriptionUsecase(
	planRepo PlanRepo,
	txnRepo TransactionRepo,
	historyRepo SubscriptionHistoryRepo,
	queue EventQueue,
	tracking TrackingClient,
	tm Transactor,
	rs *redsync.Redsync,
	config *conf.Bootstrap,
	logger log.Logger,
) *SubscriptionUsecase {
	return &SubscriptionUsecase{
		planRepo:    planRepo,
		txnRepo:     txnRepo,
		historyRepo: historyRepo,
		queue:       queue,
		tracking:    tracking,
		tm:          tm,
		rs:          rs,
		config:      config,
		log:         log.NewHelper(logger),
	}
}

// EnqueueEvents validates and queues provider events for asynchronous
// processing. Validation happens before anything is queued: a malformed
// event fails the whole batch and nothing is enqueued (fail fast).
func (uc *SubscriptionUsecase) EnqueueEvents(ctx context.Context, events []*SubscriptionEvent) (int, error) {
	for _, e := range events {
		if err := e.Validate(ctx); err != nil {
			return 0, err
		}
	}
	for i, e := range events {
		if err := uc.queue.Enqueue(ctx, &Task{Kind: constants.TaskEvent, Event: e}); err != nil {
			uc.log.Errorf("Failed to enqueue event for user %s: %v", e.UID, err)
			if i > 0 {
				// The queue consumer is idempotent, so a partially queued
				// batch plus a provider retry is harmless.
				uc.log.Warnf("Enqueued %d of %d events before failure", i, len(events))
			}
			return i, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeEnqueueFailed)
		}
	}
	return len(events), nil
}

// EnqueueSweep queues a downgrade sweep task (admin reconciliation).
func (uc *SubscriptionUsecase) EnqueueSweep(ctx context.Context) error {
	if err := uc.queue.Enqueue(ctx, &Task{Kind: constants.TaskSweep}); err != nil {
		uc.log.Errorf("Failed to enqueue sweep task: %v", err)
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeEnqueueFailed)
	}
	return nil
}

// ApplyEvent applies one provider event to persisted state. Invoked once
// per queued task, potentially redelivered; applying the same event twice
// changes nothing after the first application.
func (uc *SubscriptionUsecase) ApplyEvent(ctx context.Context, event *SubscriptionEvent) (*ReconcileResult, error) {
	if err := event.Validate(ctx); err != nil {
		return nil, err
	}

	res := &ReconcileResult{UID: event.UID}
	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		switch event.Kind {
		case constants.EventInitialPurchase, constants.EventRenewed:
			return uc.applyPurchase(ctx, event, res)
		case constants.EventTrialEnded:
			return uc.applyTrialEnded(ctx, event, res)
		case constants.EventCanceled:
			return uc.applyCanceled(ctx, event, res)
		case constants.EventExpired:
			return uc.applyExpired(ctx, event, res)
		}
		return nil
	})
	if err != nil {
		uc.log.Errorf("Failed to apply %s event for user %s: %v", event.Kind, event.UID, err)
		return nil, err
	}

	// Conversion tracking is best effort and stays outside the transaction.
	if res.Action == constants.ActionCreated || res.Action == constants.ActionRenewed {
		if err := uc.tracking.TrackConversion(ctx, event.UID, res.Action, event.PlanID); err != nil {
			uc.log.Warnf("Failed to track conversion for user %s: %v", event.UID, err)
		}
	}
	return res, nil
}

// applyPurchase handles INITIAL_PURCHASE and RENEWED: record a completed
// transaction keyed by the provider transaction id.
func (uc *SubscriptionUsecase) applyPurchase(ctx context.Context, event *SubscriptionEvent, res *ReconcileResult) error {
	now := time.Now().UTC()
	completedAt := event.OccurredAt
	if completedAt.IsZero() {
		completedAt = now
	}

	entitlement, expiresAt, err := uc.resolveEntitlement(ctx, event, completedAt)
	if err != nil {
		return err
	}

	action := constants.ActionCreated
	if event.Kind == constants.EventRenewed {
		action = constants.ActionRenewed
	}

	txnID := event.TransactionID
	if txnID == "" {
		// Provider events occasionally omit the transaction id; such events
		// cannot be deduplicated and get a synthetic id.
		txnID = uuid.New().String()
	}

	txn := &Transaction{
		ID:          txnID,
		UID:         event.UID,
		Status:      constants.StatusCompleted,
		Intent:      constants.IntentSubscription,
		Entitlement: entitlement,
		PlanID:      event.PlanID,
		ExpiresAt:   expiresAt,
		CompletedAt: &completedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := uc.txnRepo.CreateIfAbsent(ctx, txn)
	if err != nil {
		return err
	}
	if !created {
		existing, err := uc.txnRepo.GetTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		if existing == nil {
			return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeTransactionNotFound)
		}
		if existing.Status == constants.StatusCompleted {
			// Redelivery of an already applied event.
			res.Duplicate = true
			uc.log.Infof("Event for transaction %s already applied, skipping (idempotent)", txnID)
			return nil
		}
		// A pending checkout record exists for this id; complete it.
		existing.Status = constants.StatusCompleted
		existing.Intent = constants.IntentSubscription
		existing.Entitlement = entitlement
		existing.PlanID = txn.PlanID
		existing.ExpiresAt = expiresAt
		existing.CompletedAt = &completedAt
		existing.UpdatedAt = now
		if err := uc.txnRepo.SaveTransaction(ctx, existing); err != nil {
			return err
		}
	}

	res.Action = action
	uc.addHistory(ctx, event.UID, txnID, action, entitlement, expiresAt, now)
	uc.log.Infof("Applied %s for user %s: transaction=%s entitlement=%s", event.Kind, event.UID, txnID, entitlement)
	return nil
}

// applyTrialEnded expires the user unless a later completed purchase is
// already on record.
func (uc *SubscriptionUsecase) applyTrialEnded(ctx context.Context, event *SubscriptionEvent, res *ReconcileResult) error {
	now := time.Now().UTC()
	eventTime := event.OccurredAt
	if eventTime.IsZero() {
		eventTime = now
	}

	latest, err := uc.txnRepo.LatestCompleted(ctx, event.UID)
	if err != nil {
		return err
	}
	if latest != nil && latest.CompletedAt != nil && latest.CompletedAt.After(eventTime) {
		// A purchase newer than the trial outcome supersedes it.
		res.Superseded = true
		uc.log.Infof("TRIAL_ENDED for user %s superseded by purchase %s", event.UID, latest.ID)
		return nil
	}

	count, err := uc.txnRepo.ExpireUser(ctx, event.UID, now)
	if err != nil {
		return err
	}
	res.Action = constants.ActionExpired
	if count > 0 {
		uc.addHistory(ctx, event.UID, event.TransactionID, constants.ActionExpired, "", nil, now)
	}
	uc.log.Infof("Applied TRIAL_ENDED for user %s: %d transactions expired", event.UID, count)
	return nil
}

// applyCanceled marks the current subscription cancelled; entitlement
// remains valid until its expiry (grace period), after which the sweep
// flips it to expired.
func (uc *SubscriptionUsecase) applyCanceled(ctx context.Context, event *SubscriptionEvent, res *ReconcileResult) error {
	now := time.Now().UTC()
	canceledAt := event.OccurredAt
	if canceledAt.IsZero() {
		canceledAt = now
	}
	eventTime := event.LogicalTime()
	if eventTime.IsZero() {
		eventTime = now
	}

	latest, err := uc.txnRepo.LatestCompleted(ctx, event.UID)
	if err != nil {
		return err
	}
	if latest == nil {
		// Nothing to cancel; the provider state already matches ours.
		res.Action = constants.ActionCanceled
		return nil
	}
	if latest.CanceledAt != nil {
		res.Duplicate = true
		return nil
	}
	if latest.CompletedAt != nil && latest.CompletedAt.After(eventTime) {
		// A purchase newer than the cancellation supersedes it: a stale
		// CANCELED from a prior billing cycle must not downgrade a renewal.
		res.Superseded = true
		uc.log.Infof("CANCELED for user %s superseded by purchase %s", event.UID, latest.ID)
		return nil
	}

	latest.CanceledAt = &canceledAt
	if event.ExpiresAt != nil {
		// The provider tells us when the paid-up period ends.
		latest.ExpiresAt = event.ExpiresAt
	}
	latest.UpdatedAt = now
	if err := uc.txnRepo.SaveTransaction(ctx, latest); err != nil {
		return err
	}

	res.Action = constants.ActionCanceled
	uc.addHistory(ctx, event.UID, latest.ID, constants.ActionCanceled, latest.Entitlement, latest.ExpiresAt, now)
	uc.log.Infof("Applied CANCELED for user %s: grace until %v", event.UID, latest.ExpiresAt)
	return nil
}

// applyExpired clears the user's entitlement regardless of prior state.
func (uc *SubscriptionUsecase) applyExpired(ctx context.Context, event *SubscriptionEvent, res *ReconcileResult) error {
	now := time.Now().UTC()
	count, err := uc.txnRepo.ExpireUser(ctx, event.UID, now)
	if err != nil {
		return err
	}
	if count == 0 {
		res.Duplicate = true
		return nil
	}
	res.Action = constants.ActionExpired
	uc.addHistory(ctx, event.UID, event.TransactionID, constants.ActionExpired, "", nil, now)
	uc.log.Infof("Applied EXPIRED for user %s: %d transactions expired", event.UID, count)
	return nil
}

// resolveEntitlement fills in entitlement and expiry from the plan catalog
// when the event omits them.
func (uc *SubscriptionUsecase) resolveEntitlement(ctx context.Context, event *SubscriptionEvent, completedAt time.Time) (string, *time.Time, error) {
	entitlement := event.Entitlement
	expiresAt := event.ExpiresAt

	if (entitlement == "" || expiresAt == nil) && event.PlanID != "" {
		plan, err := uc.planRepo.GetPlan(ctx, event.PlanID)
		if err != nil {
			return "", nil, err
		}
		if plan != nil {
			if entitlement == "" {
				entitlement = plan.Entitlement
			}
			if expiresAt == nil && plan.DurationDays > 0 {
				e := completedAt.AddDate(0, 0, plan.DurationDays)
				expiresAt = &e
			}
		}
	}
	if entitlement == "" {
		entitlement = constants.EntitlementStandard
	}
	return entitlement, expiresAt, nil
}

// CheckSubscription derives the user's current entitlement state from
// persisted transactions. Two concurrently valid plans both contribute to
// the entitlement set.
func (uc *SubscriptionUsecase) CheckSubscription(ctx context.Context, uid string) (*SubscriptionStatus, error) {
	txns, err := uc.txnRepo.ListTransactions(ctx, uid)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := &SubscriptionStatus{Transactions: txns}

	entitlements := make(map[string]bool)
	openEnded := false
	var latestExpiry *time.Time
	for _, t := range txns {
		if !t.ActiveAt(now) {
			continue
		}
		status.HasActiveSubscription = true
		if t.Entitlement != "" {
			entitlements[t.Entitlement] = true
		}
		if t.ExpiresAt == nil {
			openEnded = true
		} else if latestExpiry == nil || t.ExpiresAt.After(*latestExpiry) {
			latestExpiry = t.ExpiresAt
		}
	}

	for e := range entitlements {
		status.ActiveEntitlements = append(status.ActiveEntitlements, e)
	}
	sort.Strings(status.ActiveEntitlements)
	if !openEnded {
		status.ExpiresAt = latestExpiry
	}
	return status, nil
}

// DowngradeExpired flips transactions whose expiry has passed without
// waiting for a webhook. It is a reconciliation pass guarding against
// missed deliveries; the redsync mutex serializes the cron run, worker
// sweep tasks and admin-triggered runs. A busy lock skips the run.
func (uc *SubscriptionUsecase) DowngradeExpired(ctx context.Context) (int, []string, error) {
	mutex := uc.rs.NewMutex(
		constants.SweepLockKey,
		redsync.WithExpiry(constants.SweepLockExpiration),
		redsync.WithTries(constants.SweepLockRetries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		uc.log.Infof("Downgrade sweep already running elsewhere, skipping")
		return 0, nil, nil
	}
	defer func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			uc.log.Warnf("Failed to unlock downgrade sweep mutex: %v", err)
		}
	}()

	now := time.Now().UTC()
	count, uids, err := uc.txnRepo.ExpireOverdue(ctx, now)
	if err != nil {
		uc.log.Errorf("Failed to expire overdue transactions: %v", err)
		return 0, nil, err
	}

	for _, uid := range uids {
		uc.addHistory(ctx, uid, "", constants.ActionSweep, "", nil, now)
	}

	uc.log.Infof("Downgrade sweep expired %d transactions for %d users", count, len(uids))
	return count, uids, nil
}

// GetExpiringTransactions lists subscriptions expiring within the given
// number of days, for the cron renewal reminder.
func (uc *SubscriptionUsecase) GetExpiringTransactions(ctx context.Context, withinDays, page, pageSize int) ([]*Transaction, int, error) {
	if withinDays < 1 || withinDays > 30 {
		withinDays = 7
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return uc.txnRepo.ListExpiring(ctx, withinDays, page, pageSize)
}

func (uc *SubscriptionUsecase) addHistory(ctx context.Context, uid, txnID, action, entitlement string, expiresAt *time.Time, now time.Time) {
	history := &SubscriptionHistory{
		UID:           uid,
		TransactionID: txnID,
		Action:        action,
		Entitlement:   entitlement,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
	}
	if err := uc.historyRepo.AddSubscriptionHistory(ctx, history); err != nil {
		// History is an audit trail, not part of reconciled state.
		uc.log.Errorf("Failed to add subscription history for user %s: %v", uid, err)
	}
}

func (uc *SubscriptionUsecase) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	return uc.tm.Exec(ctx, fn)
}
