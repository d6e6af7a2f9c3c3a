//go:build wireinject
// +build wireinject

package di

import (
	"stayhub/config"
	"stayhub/infras/geocode"
	"stayhub/infras/jwt"
	"stayhub/infras/kafka"
	"stayhub/infras/otel"
	"stayhub/infras/postgres"
	"stayhub/infras/redis"
	"stayhub/infras/s3"
	"stayhub/internal/workers/bookingcompleted"
	"stayhub/permissions"
	"stayhub/shared/cache"
	"stayhub/transport/http"
	"stayhub/transport/http/middleware"
	"stayhub/transport/http/router"

	listingRepository "stayhub/internal/domains/listing/repository"
	listingService "stayhub/internal/domains/listing/service"
	listingHandler "stayhub/internal/handlers/listing"

	rewardRepository "stayhub/internal/domains/reward/repository"
	rewardService "stayhub/internal/domains/reward/service"
	rewardHandler "stayhub/internal/handlers/reward"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
	geocode.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var listingDomain = wire.NewSet(
	listingRepository.New,
	listingService.New,
)

var rewardDomain = wire.NewSet(
	rewardRepository.New,
	rewardService.New,
)

var domains = wire.NewSet(
	listingDomain,
	rewardDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	listingHandler.New,
	rewardHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

func InitializeWorker() bookingcompleted.Worker {
	wire.Build(
		config.Get,
		postgres.New,
		otel.New,
		redis.New,
		kafka.New,
		s3.New,
		geocode.New,
		sharedHelpers,
		domains,
		bookingcompleted.New,
	)

	return nil
}
