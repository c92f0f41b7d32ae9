//go:build wireinject
// +build wireinject

package di

import (
	"estate/config"
	"estate/infras/jwt"
	"estate/infras/kafka"
	"estate/infras/otel"
	"estate/infras/postgres"
	"estate/infras/redis"
	"estate/internal/events"
	"estate/permissions"
	"estate/shared/cache"
	"estate/transport/http"
	"estate/transport/http/middleware"
	"estate/transport/http/router"

	bookingRepository "estate/internal/domains/booking/repository"
	bookingService "estate/internal/domains/booking/service"
	categoryRepository "estate/internal/domains/category/repository"
	categoryService "estate/internal/domains/category/service"
	paymentProvider "estate/internal/domains/payment/provider"
	paymentRepository "estate/internal/domains/payment/repository"
	paymentService "estate/internal/domains/payment/service"
	propertyRepository "estate/internal/domains/property/repository"
	propertyService "estate/internal/domains/property/service"
	bookingHandler "estate/internal/handlers/booking"
	categoryHandler "estate/internal/handlers/category"
	paymentHandler "estate/internal/handlers/payment"
	propertyHandler "estate/internal/handlers/property"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	permissions.Get,
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	events.NewPublisher,
)

var categoryDomain = wire.NewSet(
	categoryRepository.New,
	categoryService.New,
)

var propertyDomain = wire.NewSet(
	propertyRepository.New,
	propertyService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentProvider.NewDefaultRegistry,
	paymentRepository.New,
	paymentService.New,
)

var domains = wire.NewSet(
	categoryDomain,
	propertyDomain,
	bookingDomain,
	paymentDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	categoryHandler.New,
	propertyHandler.New,
	bookingHandler.New,
	paymentHandler.New,
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
