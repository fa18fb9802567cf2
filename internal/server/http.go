package server

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"

	"github.com/gaoyong06/go-pkg/health"
	"github.com/gaoyong06/go-pkg/middleware/i18n"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"
	bizErrors "github.com/jamesmaccoy/yocogoogle-sub002/internal/errors"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, booking *service.BookingService, sub *service.SubscriptionService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			i18n.Middleware(),
			AuthMiddleware(c),
		),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	registerRoutes(srv, booking, sub)

	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, health.NewResponse("booking-service"))
	})

	return srv
}

func registerRoutes(srv *http.Server, booking *service.BookingService, sub *service.SubscriptionService) {
	api := srv.Route("/api")

	api.GET("/bookings/unavailable-dates", func(ctx http.Context) error {
		var req service.GetUnavailableDatesRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationUnavailableDates)
		h := ctx.Middleware(func(c context.Context, in interface{}) (interface{}, error) {
			return booking.GetUnavailableDates(c, in.(*service.GetUnavailableDatesRequest))
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	api.GET("/bookings/availability", func(ctx http.Context) error {
		var req service.CheckAvailabilityRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCheckAvailability)
		h := ctx.Middleware(func(c context.Context, in interface{}) (interface{}, error) {
			return booking.CheckAvailability(c, in.(*service.CheckAvailabilityRequest))
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	api.POST("/admin/listings/unavailable-dates", func(ctx http.Context) error {
		var req service.ReplaceUnavailableDatesRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReplaceDates)
		h := ctx.Middleware(func(c context.Context, in interface{}) (interface{}, error) {
			return booking.ReplaceUnavailableDates(c, in.(*service.ReplaceUnavailableDatesRequest))
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	api.GET("/check-subscription", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationCheckSubscription)
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return sub.CheckSubscription(c)
		})
		reply, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	api.GET("/subscriptions/history", func(ctx http.Context) error {
		var req service.GetHistoryRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationHistory)
		h := ctx.Middleware(func(c context.Context, in interface{}) (interface{}, error) {
			return sub.GetHistory(c, in.(*service.GetHistoryRequest))
		})
		reply, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	api.GET("/plans", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationListPlans)
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return sub.ListPlans(c)
		})
		reply, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	api.POST("/webhooks/yoco/subscription", func(ctx http.Context) error {
		payload, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return err
		}
		signature := ctx.Header().Get("Yoco-Signature")

		http.SetOperation(ctx, OperationWebhook)
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return sub.HandleYocoWebhook(c, payload, signature)
		})
		reply, err := h(ctx, nil)
		if err != nil {
			return err
		}
		// Accepted: events are queued, not yet applied.
		return ctx.Result(stdhttp.StatusAccepted, reply)
	})

	api.POST("/admin/subscriptions/reconcile", func(ctx http.Context) error {
		http.SetOperation(ctx, OperationReconcile)
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return sub.ReconcileSubscriptions(c)
		})
		reply, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code))
		response["code"] = se.Code
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	if bizErrors.NotFoundCodes[code] {
		return stdhttp.StatusNotFound
	}
	if bizErrors.UnauthorizedCodes[code] {
		return stdhttp.StatusUnauthorized
	}
	if code >= 140000 && code < 150000 {
		return stdhttp.StatusBadRequest
	}
	return stdhttp.StatusInternalServerError
}
