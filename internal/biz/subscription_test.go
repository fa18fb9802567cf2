package biz

import (
	"context"
	"testing"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakePlanRepo struct {
	plans map[string]*Plan
}

func (f *fakePlanRepo) ListPlans(ctx context.Context) ([]*Plan, error) {
	out := make([]*Plan, 0, len(f.plans))
	for _, p := range f.plans {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePlanRepo) GetPlan(ctx context.Context, id string) (*Plan, error) {
	return f.plans[id], nil
}

type fakeTxnRepo struct {
	txns []*Transaction
}

func (f *fakeTxnRepo) find(id string) *Transaction {
	for _, t := range f.txns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (f *fakeTxnRepo) CreateIfAbsent(ctx context.Context, txn *Transaction) (bool, error) {
	if f.find(txn.ID) != nil {
		return false, nil
	}
	cp := *txn
	f.txns = append(f.txns, &cp)
	return true, nil
}

func (f *fakeTxnRepo) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	t := f.find(id)
	if t == nil {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTxnRepo) SaveTransaction(ctx context.Context, txn *Transaction) error {
	if t := f.find(txn.ID); t != nil {
		*t = *txn
		return nil
	}
	cp := *txn
	f.txns = append(f.txns, &cp)
	return nil
}

func (f *fakeTxnRepo) ListTransactions(ctx context.Context, uid string) ([]*Transaction, error) {
	var out []*Transaction
	for _, t := range f.txns {
		if t.UID == uid {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// LatestCompleted orders by logical validity: open-ended first, then latest
// expiry, then latest completion, mirroring the SQL ordering.
func (f *fakeTxnRepo) LatestCompleted(ctx context.Context, uid string) (*Transaction, error) {
	var best *Transaction
	for _, t := range f.txns {
		if t.UID != uid || t.Status != constants.StatusCompleted || t.Intent != constants.IntentSubscription {
			continue
		}
		if best == nil || laterByValidity(t, best) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func laterByValidity(a, b *Transaction) bool {
	if (a.ExpiresAt == nil) != (b.ExpiresAt == nil) {
		return a.ExpiresAt == nil
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt) {
		return a.ExpiresAt.After(*b.ExpiresAt)
	}
	at, bt := time.Time{}, time.Time{}
	if a.CompletedAt != nil {
		at = *a.CompletedAt
	}
	if b.CompletedAt != nil {
		bt = *b.CompletedAt
	}
	return at.After(bt)
}

func (f *fakeTxnRepo) ExpireUser(ctx context.Context, uid string, now time.Time) (int, error) {
	count := 0
	for _, t := range f.txns {
		if t.UID == uid && t.Status == constants.StatusCompleted && t.Intent == constants.IntentSubscription {
			t.Status = constants.StatusExpired
			t.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (f *fakeTxnRepo) ExpireOverdue(ctx context.Context, now time.Time) (int, []string, error) {
	count := 0
	seen := make(map[string]bool)
	var uids []string
	for _, t := range f.txns {
		if t.Status != constants.StatusCompleted || t.Intent != constants.IntentSubscription {
			continue
		}
		if t.ExpiresAt == nil || t.ExpiresAt.After(now) {
			continue
		}
		t.Status = constants.StatusExpired
		t.UpdatedAt = now
		count++
		if !seen[t.UID] {
			seen[t.UID] = true
			uids = append(uids, t.UID)
		}
	}
	return count, uids, nil
}

func (f *fakeTxnRepo) ListExpiring(ctx context.Context, withinDays, page, pageSize int) ([]*Transaction, int, error) {
	now := time.Now().UTC()
	limit := now.AddDate(0, 0, withinDays)
	var out []*Transaction
	for _, t := range f.txns {
		if t.Status != constants.StatusCompleted || t.Intent != constants.IntentSubscription || t.ExpiresAt == nil {
			continue
		}
		if t.ExpiresAt.After(now) && !t.ExpiresAt.After(limit) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type fakeHistoryRepo struct {
	entries []*SubscriptionHistory
}

func (f *fakeHistoryRepo) AddSubscriptionHistory(ctx context.Context, h *SubscriptionHistory) error {
	f.entries = append(f.entries, h)
	return nil
}

func (f *fakeHistoryRepo) GetSubscriptionHistory(ctx context.Context, uid string, page, pageSize int) ([]*SubscriptionHistory, int, error) {
	var out []*SubscriptionHistory
	for _, h := range f.entries {
		if h.UID == uid {
			out = append(out, h)
		}
	}
	return out, len(out), nil
}

type fakeQueue struct {
	tasks []*Task
}

func (f *fakeQueue) Enqueue(ctx context.Context, task *Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	if len(f.tasks) == 0 {
		return nil, nil
	}
	t := f.tasks[0]
	f.tasks = f.tasks[1:]
	return t, nil
}

func (f *fakeQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(f.tasks)), nil
}

type fakeTracking struct {
	actions []string
}

func (f *fakeTracking) TrackConversion(ctx context.Context, uid, action, planID string) error {
	f.actions = append(f.actions, action)
	return nil
}

type passthroughTransactor struct{}

func (passthroughTransactor) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type subscriptionFixture struct {
	uc       *SubscriptionUsecase
	txns     *fakeTxnRepo
	history  *fakeHistoryRepo
	queue    *fakeQueue
	tracking *fakeTracking
	rs       *redsync.Redsync
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rs := redsync.New(goredis.NewPool(client))

	plans := &fakePlanRepo{plans: map[string]*Plan{
		"plan-pro-monthly": {
			PlanID:       "plan-pro-monthly",
			Entitlement:  constants.EntitlementPro,
			DurationDays: 30,
		},
	}}
	txns := &fakeTxnRepo{}
	history := &fakeHistoryRepo{}
	queue := &fakeQueue{}
	tracking := &fakeTracking{}

	uc := NewSubscriptionUsecase(plans, txns, history, queue, tracking,
		passthroughTransactor{}, rs, &conf.Bootstrap{}, log.DefaultLogger)

	return &subscriptionFixture{
		uc:       uc,
		txns:     txns,
		history:  history,
		queue:    queue,
		tracking: tracking,
		rs:       rs,
	}
}

func futureTime(d time.Duration) *time.Time {
	v := time.Now().UTC().Add(d)
	return &v
}

func TestApplyEvent_PurchaseIdempotent(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	event := &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		Entitlement:   constants.EntitlementStandard,
		ExpiresAt:     futureTime(30 * 24 * time.Hour),
	}

	res, err := fx.uc.ApplyEvent(ctx, event)
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	require.Equal(t, constants.ActionCreated, res.Action)

	// Redelivery of the same event changes nothing.
	res, err = fx.uc.ApplyEvent(ctx, event)
	require.NoError(t, err)
	require.True(t, res.Duplicate)

	require.Len(t, fx.txns.txns, 1)
	require.Len(t, fx.history.entries, 1)
	require.Len(t, fx.tracking.actions, 1)
}

func TestApplyEvent_OutOfOrderDelivery(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	renewExpiry := futureTime(60 * 24 * time.Hour)
	purchaseExpiry := futureTime(30 * 24 * time.Hour)

	// The renewal arrives before the purchase it extends.
	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventRenewed,
		UID:           "u1",
		TransactionID: "txn-2",
		Entitlement:   constants.EntitlementStandard,
		ExpiresAt:     renewExpiry,
		OccurredAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		Entitlement:   constants.EntitlementStandard,
		ExpiresAt:     purchaseExpiry,
		OccurredAt:    time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	// The derived state reflects the logically latest validity, not the
	// arrival order.
	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.True(t, status.HasActiveSubscription)
	require.NotNil(t, status.ExpiresAt)
	require.True(t, status.ExpiresAt.Equal(*renewExpiry))
}

func TestApplyEvent_ExpiredClearsEntitlement(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		ExpiresAt:     futureTime(24 * time.Hour),
	})
	require.NoError(t, err)

	res, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind: constants.EventExpired,
		UID:  "u1",
	})
	require.NoError(t, err)
	require.Equal(t, constants.ActionExpired, res.Action)

	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.False(t, status.HasActiveSubscription)
	require.Empty(t, status.ActiveEntitlements)

	// A second EXPIRED finds nothing left to expire.
	res, err = fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind: constants.EventExpired,
		UID:  "u1",
	})
	require.NoError(t, err)
	require.True(t, res.Duplicate)
}

func TestApplyEvent_TrialEndedSupersededByPurchase(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	purchasedAt := time.Now().UTC()
	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		ExpiresAt:     futureTime(30 * 24 * time.Hour),
		OccurredAt:    purchasedAt,
	})
	require.NoError(t, err)

	// The trial outcome is older than the purchase; it must not clobber it.
	res, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:       constants.EventTrialEnded,
		UID:        "u1",
		OccurredAt: purchasedAt.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.True(t, res.Superseded)

	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.True(t, status.HasActiveSubscription)
}

func TestApplyEvent_TrialEndedExpiresWithoutPurchase(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		ExpiresAt:     futureTime(30 * 24 * time.Hour),
		OccurredAt:    time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	res, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:       constants.EventTrialEnded,
		UID:        "u1",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.False(t, res.Superseded)
	require.Equal(t, constants.ActionExpired, res.Action)

	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.False(t, status.HasActiveSubscription)
}

func TestApplyEvent_CanceledKeepsGracePeriod(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	expiry := futureTime(14 * 24 * time.Hour)
	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		ExpiresAt:     expiry,
	})
	require.NoError(t, err)

	res, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:      constants.EventCanceled,
		UID:       "u1",
		ExpiresAt: expiry,
	})
	require.NoError(t, err)
	require.Equal(t, constants.ActionCanceled, res.Action)

	// Entitlement survives until the paid-up period ends.
	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.True(t, status.HasActiveSubscription)

	txn := fx.txns.find("txn-1")
	require.NotNil(t, txn.CanceledAt)

	// A repeated cancellation is a no-op.
	res, err = fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind: constants.EventCanceled,
		UID:  "u1",
	})
	require.NoError(t, err)
	require.True(t, res.Duplicate)
}

func TestApplyEvent_StaleCanceledSupersededByRenewal(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	renewExpiry := futureTime(60 * 24 * time.Hour)
	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventRenewed,
		UID:           "u1",
		TransactionID: "txn-renew",
		Entitlement:   constants.EntitlementStandard,
		ExpiresAt:     renewExpiry,
		OccurredAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	// A redelivered CANCELED from the prior billing cycle: both its event
	// time and its expiry predate the renewal.
	stale := time.Now().UTC().Add(-24 * time.Hour)
	res, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:       constants.EventCanceled,
		UID:        "u1",
		ExpiresAt:  &stale,
		OccurredAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, res.Superseded)

	// The renewal is untouched and the user stays entitled.
	txn := fx.txns.find("txn-renew")
	require.Nil(t, txn.CanceledAt)
	require.True(t, txn.ExpiresAt.Equal(*renewExpiry))

	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.True(t, status.HasActiveSubscription)
}

func TestApplyEvent_EntitlementResolvedFromPlan(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	occurred := time.Now().UTC()
	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
		PlanID:        "plan-pro-monthly",
		OccurredAt:    occurred,
	})
	require.NoError(t, err)

	txn := fx.txns.find("txn-1")
	require.Equal(t, constants.EntitlementPro, txn.Entitlement)
	require.NotNil(t, txn.ExpiresAt)
	require.True(t, txn.ExpiresAt.Equal(occurred.AddDate(0, 0, 30)))
}

func TestApplyEvent_MissingTransactionIDGetsSynthetic(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:      constants.EventInitialPurchase,
		UID:       "u1",
		ExpiresAt: futureTime(24 * time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, fx.txns.txns, 1)
	require.NotEmpty(t, fx.txns.txns[0].ID)
}

func TestApplyEvent_RejectsInvalid(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{Kind: constants.EventRenewed})
	require.Error(t, err)

	_, err = fx.uc.ApplyEvent(ctx, &SubscriptionEvent{Kind: "UNKNOWN", UID: "u1"})
	require.Error(t, err)
}

func TestCheckSubscription_UnionOfEntitlements(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-std",
		Entitlement:   constants.EntitlementStandard,
		ExpiresAt:     futureTime(10 * 24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-pro",
		Entitlement:   constants.EntitlementPro,
		ExpiresAt:     futureTime(20 * 24 * time.Hour),
	})
	require.NoError(t, err)

	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.True(t, status.HasActiveSubscription)
	require.Equal(t, []string{constants.EntitlementPro, constants.EntitlementStandard}, status.ActiveEntitlements)
}

func TestCheckSubscription_OpenEndedHasNoExpiry(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := fx.uc.ApplyEvent(ctx, &SubscriptionEvent{
		Kind:          constants.EventInitialPurchase,
		UID:           "u1",
		TransactionID: "txn-1",
	})
	require.NoError(t, err)

	status, err := fx.uc.CheckSubscription(ctx, "u1")
	require.NoError(t, err)
	require.True(t, status.HasActiveSubscription)
	require.Nil(t, status.ExpiresAt)
}

func TestCheckSubscription_NoTransactions(t *testing.T) {
	fx := newSubscriptionFixture(t)

	status, err := fx.uc.CheckSubscription(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, status.HasActiveSubscription)
	require.Empty(t, status.ActiveEntitlements)
}

func TestDowngradeExpired(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	fx.txns.txns = append(fx.txns.txns, &Transaction{
		ID:          "txn-old",
		UID:         "u1",
		Status:      constants.StatusCompleted,
		Intent:      constants.IntentSubscription,
		Entitlement: constants.EntitlementStandard,
		ExpiresAt:   &past,
	})

	count, uids, err := fx.uc.DowngradeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, []string{"u1"}, uids)
	require.Equal(t, constants.StatusExpired, fx.txns.find("txn-old").Status)
	require.Len(t, fx.history.entries, 1)
	require.Equal(t, constants.ActionSweep, fx.history.entries[0].Action)
}

func TestDowngradeExpired_SkipsWhenLockBusy(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	held := fx.rs.NewMutex(constants.SweepLockKey)
	require.NoError(t, held.LockContext(ctx))
	defer held.UnlockContext(ctx)

	past := time.Now().UTC().Add(-time.Hour)
	fx.txns.txns = append(fx.txns.txns, &Transaction{
		ID:        "txn-old",
		UID:       "u1",
		Status:    constants.StatusCompleted,
		Intent:    constants.IntentSubscription,
		ExpiresAt: &past,
	})

	count, uids, err := fx.uc.DowngradeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, uids)
	// Nothing changed while the lock was held elsewhere.
	require.Equal(t, constants.StatusCompleted, fx.txns.find("txn-old").Status)
}

func TestEnqueueEvents_FailFast(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	events := []*SubscriptionEvent{
		{Kind: constants.EventInitialPurchase, UID: "u1", TransactionID: "txn-1"},
		{Kind: constants.EventRenewed}, // missing user id
	}

	n, err := fx.uc.EnqueueEvents(ctx, events)
	require.Error(t, err)
	require.Zero(t, n)
	require.Empty(t, fx.queue.tasks)
}

func TestEnqueueEvents_QueuesAll(t *testing.T) {
	fx := newSubscriptionFixture(t)
	ctx := context.Background()

	events := []*SubscriptionEvent{
		{Kind: constants.EventInitialPurchase, UID: "u1", TransactionID: "txn-1"},
		{Kind: constants.EventCanceled, UID: "u2"},
	}

	n, err := fx.uc.EnqueueEvents(ctx, events)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, fx.queue.tasks, 2)
	require.Equal(t, constants.TaskEvent, fx.queue.tasks[0].Kind)
}
