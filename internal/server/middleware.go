package server

import (
	"context"
	"strings"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/auth"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// Operation names set on each route, used to decide which routes require a
// session token.
const (
	OperationUnavailableDates  = "/booking/unavailable-dates"
	OperationCheckAvailability = "/booking/availability"
	OperationReplaceDates      = "/booking/replace-unavailable-dates"
	OperationCheckSubscription = "/subscription/check"
	OperationHistory           = "/subscription/history"
	OperationListPlans         = "/subscription/plans"
	OperationWebhook           = "/subscription/webhook"
	OperationReconcile         = "/subscription/reconcile"
)

// publicOperations need no session token. The webhook authenticates with
// its HMAC signature instead; availability and plans are browsed before
// login.
var publicOperations = map[string]bool{
	OperationCheckAvailability: true,
	OperationListPlans:         true,
	OperationWebhook:           true,
}

// AuthMiddleware resolves the caller identity from the Authorization
// bearer token and stores it in the context. Public operations pass
// through untouched; everything else continues unauthenticated (handlers
// enforce 401/403 via the auth predicates), so an expired token on a
// public page does not break browsing.
func AuthMiddleware(c *conf.Bootstrap) middleware.Middleware {
	secret, issuer := c.Auth.Secret, c.Auth.Issuer
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			if publicOperations[tr.Operation()] {
				return handler(ctx, req)
			}

			header := tr.RequestHeader().Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return handler(ctx, req)
			}

			uid, roles, err := auth.ParseToken(secret, issuer, token)
			if err != nil {
				// A bad token is treated the same as no token.
				return handler(ctx, req)
			}
			return handler(auth.WithIdentity(ctx, uid, roles), req)
		}
	}
}
