package data

import (
	"context"
	"errors"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// planRepo plan repository implementation
type planRepo struct {
	data *Data
	log  *log.Helper
}

// NewPlanRepo creates the plan repository.
func NewPlanRepo(data *Data, logger log.Logger) biz.PlanRepo {
	return &planRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListPlans returns all plans.
func (r *planRepo) ListPlans(ctx context.Context) ([]*biz.Plan, error) {
	var models []model.Plan
	if err := r.data.DB(ctx).Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list plans: %v", err)
		return nil, err
	}

	plans := make([]*biz.Plan, len(models))
	for i, m := range models {
		plans[i] = &biz.Plan{
			PlanID:       m.PlanID,
			Name:         m.Name,
			Description:  m.Description,
			Entitlement:  m.Entitlement,
			DurationDays: m.DurationDays,
			Price:        m.Price,
			Currency:     m.Currency,
		}
	}
	return plans, nil
}

// GetPlan returns nil, nil for an unknown plan id.
func (r *planRepo) GetPlan(ctx context.Context, id string) (*biz.Plan, error) {
	var m model.Plan
	err := r.data.DB(ctx).Where("plan_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get plan %s: %v", id, err)
		return nil, err
	}
	return &biz.Plan{
		PlanID:       m.PlanID,
		Name:         m.Name,
		Description:  m.Description,
		Entitlement:  m.Entitlement,
		DurationDays: m.DurationDays,
		Price:        m.Price,
		Currency:     m.Currency,
	}, nil
}
