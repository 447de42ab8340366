package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
)

// Deps are the handlers and settings the routes are built from.  Redis is
// optional; without it caching and rate limiting are skipped.
type Deps struct {
	Bookings     *handler.BookingHandler
	Seats        *handler.ShowSeatsHandler
	DB           handler.Pinger
	JWTSecret    string
	HoldRoles    []string
	ConfirmRoles []string
	Redis        *redis.Client
	Cache        config.CacheConfig
	RateLimit    config.RateLimitConfig
	Log          *zap.Logger
}

// RegisterRoutes registers every route of the booking API on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Metrics())

	// Operational endpoints: no authentication.
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// The public seat grid is cached briefly; seat writes invalidate it.
	e.GET("/v1/shows/:id/seats", d.Seats.GetSeats, middleware.NewRedisCache(d.Cache, d.Redis))

	// Booking routes need a valid access token.  Holding seats may be
	// limited to a narrower set of roles than confirming them.
	auth := e.Group("/v1/bookings", middleware.JWTAuth(d.JWTSecret))
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	auth.POST("/hold", d.Bookings.Hold, middleware.RequireRole(d.HoldRoles...), limiter)
	auth.POST("/confirm", d.Bookings.Confirm, middleware.RequireRole(d.ConfirmRoles...), limiter)
	auth.GET("/:id", d.Bookings.GetBooking, middleware.RequireRole(d.ConfirmRoles...))
}
