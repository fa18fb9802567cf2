//go:build wireinject
// +build wireinject

package main

import (
	"os"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// CronApp holds the usecases the scheduled jobs run against.
type CronApp struct {
	subscriptionUsecase *biz.SubscriptionUsecase
}

func wireApp(*conf.Bootstrap) (*CronApp, func(), error) {
	panic(wire.Build(
		newLogger,
		data.ProviderSet,
		biz.ProviderSet,
		wire.Struct(new(CronApp), "*"),
	))
}

func newLogger() log.Logger {
	return log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "booking-cron",
	)
}
