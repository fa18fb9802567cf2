package service

import (
	"context"
	"testing"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/auth"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

type rejectingYoco struct{}

func (rejectingYoco) VerifyWebhook(payload []byte, signature string) bool { return false }

func TestHandleYocoWebhook_RejectsBadSignature(t *testing.T) {
	// The usecase is never reached on a failed signature check.
	svc := NewSubscriptionService(nil, rejectingYoco{})

	_, err := svc.HandleYocoWebhook(context.Background(), []byte(`{"event":"RENEWED","userId":"u1"}`), "bad")
	require.Error(t, err)
}

type stubHistoryRepo struct {
	gotPage     int
	gotPageSize int
}

func (s *stubHistoryRepo) AddSubscriptionHistory(ctx context.Context, h *biz.SubscriptionHistory) error {
	return nil
}

func (s *stubHistoryRepo) GetSubscriptionHistory(ctx context.Context, uid string, page, pageSize int) ([]*biz.SubscriptionHistory, int, error) {
	s.gotPage, s.gotPageSize = page, pageSize
	return []*biz.SubscriptionHistory{{UID: uid, Action: constants.ActionCreated, CreatedAt: time.Now().UTC()}}, 1, nil
}

func TestGetHistory_ReportsNormalizedPaging(t *testing.T) {
	repo := &stubHistoryRepo{}
	uc := biz.NewSubscriptionUsecase(nil, nil, repo, nil, nil, nil, nil, nil, log.DefaultLogger)
	svc := NewSubscriptionService(uc, rejectingYoco{})
	ctx := auth.WithIdentity(context.Background(), "u1", []auth.Role{auth.RoleCustomer})

	// Out-of-range paging is clamped, and the reply echoes the values the
	// query actually used.
	reply, err := svc.GetHistory(ctx, &GetHistoryRequest{Page: 0, PageSize: 0})
	require.NoError(t, err)
	require.Equal(t, 1, reply.Page)
	require.Equal(t, constants.DefaultPageSize, reply.PageSize)
	require.Equal(t, 1, repo.gotPage)
	require.Equal(t, constants.DefaultPageSize, repo.gotPageSize)

	reply, err = svc.GetHistory(ctx, &GetHistoryRequest{Page: 2, PageSize: constants.MaxPageSize + 1})
	require.NoError(t, err)
	require.Equal(t, 2, reply.Page)
	require.Equal(t, constants.DefaultPageSize, reply.PageSize)
}
