package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/auth"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// SubscriptionService serves entitlement checks, provider webhooks and
// admin reconciliation.
type SubscriptionService struct {
	uc   *biz.SubscriptionUsecase
	yoco biz.YocoClient
}

// NewSubscriptionService creates the subscription service.
func NewSubscriptionService(uc *biz.SubscriptionUsecase, yoco biz.YocoClient) *SubscriptionService {
	return &SubscriptionService{uc: uc, yoco: yoco}
}

type TransactionInfo struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Intent      string     `json:"intent"`
	Entitlement string     `json:"entitlement,omitempty"`
	PlanID      string     `json:"plan,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type CheckSubscriptionReply struct {
	HasActiveSubscription bool               `json:"hasActiveSubscription"`
	ActiveEntitlements    []string           `json:"activeEntitlements"`
	ExpiresAt             *time.Time         `json:"expiresAt,omitempty"`
	Transactions          []*TransactionInfo `json:"transactions"`
}

// CheckSubscription returns the caller's derived subscription state.
// Clients treat any failure as "no active subscription" (fail closed).
func (s *SubscriptionService) CheckSubscription(ctx context.Context) (*CheckSubscriptionReply, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	status, err := s.uc.CheckSubscription(ctx, uid)
	if err != nil {
		return nil, err
	}

	reply := &CheckSubscriptionReply{
		HasActiveSubscription: status.HasActiveSubscription,
		ActiveEntitlements:    status.ActiveEntitlements,
		ExpiresAt:             status.ExpiresAt,
		Transactions:          make([]*TransactionInfo, len(status.Transactions)),
	}
	if reply.ActiveEntitlements == nil {
		reply.ActiveEntitlements = []string{}
	}
	for i, t := range status.Transactions {
		reply.Transactions[i] = &TransactionInfo{
			ID:          t.ID,
			Status:      t.Status,
			Intent:      t.Intent,
			Entitlement: t.Entitlement,
			PlanID:      t.PlanID,
			ExpiresAt:   t.ExpiresAt,
			CompletedAt: t.CompletedAt,
		}
	}
	return reply, nil
}

type WebhookReply struct {
	Queued int `json:"queued"`
}

// HandleYocoWebhook verifies and queues provider events. The body may be a
// single event or an array; malformed events are rejected before anything
// is queued. Processing is asynchronous: 202 means accepted, not applied.
func (s *SubscriptionService) HandleYocoWebhook(ctx context.Context, payload []byte, signature string) (*WebhookReply, error) {
	if !s.yoco.VerifyWebhook(payload, signature) {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeWebhookBadSignature)
	}

	events, err := decodeEvents(ctx, payload)
	if err != nil {
		return nil, err
	}

	queued, err := s.uc.EnqueueEvents(ctx, events)
	if err != nil {
		return nil, err
	}
	return &WebhookReply{Queued: queued}, nil
}

// decodeEvents accepts either one event object or an array of them.
func decodeEvents(ctx context.Context, payload []byte) ([]*biz.SubscriptionEvent, error) {
	var events []*biz.SubscriptionEvent
	if err := json.Unmarshal(payload, &events); err == nil {
		return events, nil
	}

	var event biz.SubscriptionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeWebhookBadPayload)
	}
	return []*biz.SubscriptionEvent{&event}, nil
}

type ReconcileReply struct {
	Queued bool `json:"queued"`
}

// ReconcileSubscriptions queues a downgrade sweep. Admin only.
func (s *SubscriptionService) ReconcileSubscriptions(ctx context.Context) (*ReconcileReply, error) {
	if err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.uc.EnqueueSweep(ctx); err != nil {
		return nil, err
	}
	return &ReconcileReply{Queued: true}, nil
}

type GetHistoryRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type HistoryItem struct {
	ID            uint64     `json:"id"`
	TransactionID string     `json:"transactionId,omitempty"`
	Action        string     `json:"action"`
	Entitlement   string     `json:"entitlement,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type GetHistoryReply struct {
	Items    []*HistoryItem `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// GetHistory returns the caller's reconciliation history.
func (s *SubscriptionService) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryReply, error) {
	uid, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	// Clamp here too so the reply reports the page actually served.
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	items, total, err := s.uc.GetSubscriptionHistory(ctx, uid, page, pageSize)
	if err != nil {
		return nil, err
	}

	reply := &GetHistoryReply{
		Items:    make([]*HistoryItem, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i, item := range items {
		reply.Items[i] = &HistoryItem{
			ID:            item.SubscriptionHistoryID,
			TransactionID: item.TransactionID,
			Action:        item.Action,
			Entitlement:   item.Entitlement,
			ExpiresAt:     item.ExpiresAt,
			CreatedAt:     item.CreatedAt,
		}
	}
	return reply, nil
}

type PlanInfo struct {
	PlanID       string  `json:"planId"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Entitlement  string  `json:"entitlement"`
	DurationDays int     `json:"durationDays"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
}

type ListPlansReply struct {
	Plans []*PlanInfo `json:"plans"`
}

// ListPlans returns all purchasable plans.
func (s *SubscriptionService) ListPlans(ctx context.Context) (*ListPlansReply, error) {
	plans, err := s.uc.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	reply := &ListPlansReply{Plans: make([]*PlanInfo, len(plans))}
	for i, p := range plans {
		reply.Plans[i] = &PlanInfo{
			PlanID:       p.PlanID,
			Name:         p.Name,
			Description:  p.Description,
			Entitlement:  p.Entitlement,
			DurationDays: p.DurationDays,
			Price:        p.Price,
			Currency:     p.Currency,
		}
	}
	return reply, nil
}
