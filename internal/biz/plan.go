package biz

import "context"

// Plan is a purchasable subscription plan. Plans map a provider plan id to
// the entitlement level it grants and a default validity window, used when
// a webhook event omits those fields.
type Plan struct {
	PlanID       string
	Name         string
	Description  string
	Entitlement  string
	DurationDays int
	Price        float64
	Currency     string
}

// PlanRepo is the plan data-layer interface.
type PlanRepo interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	// GetPlan returns nil, nil when the plan id is unknown.
	GetPlan(ctx context.Context, id string) (*Plan, error)
}

// ListPlans returns all purchasable plans.
func (uc *SubscriptionUsecase) ListPlans(ctx context.Context) ([]*Plan, error) {
	return uc.planRepo.ListPlans(ctx)
}
