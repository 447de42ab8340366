package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/database"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
	"github.com/iliyamo/cinema-booking-core/internal/router"
	"github.com/iliyamo/cinema-booking-core/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	deps := service.Deps{Logger: log}

	var db *sql.DB
	switch cfg.StoreDriver {
	case config.DriverMemory:
		shows := config.DefaultShows()
		if cfg.CatalogSeedFile != "" {
			var err error
			if shows, err = config.LoadCatalogSeed(cfg.CatalogSeedFile); err != nil {
				return err
			}
		}
		store := repository.NewMemoryStore()
		deps.Seats, deps.Bookings = store, store
		deps.Catalog = repository.NewMemoryCatalog(shows...)
		log.Info("using in-memory store", zap.Int("shows", len(shows)))
	case config.DriverMySQL:
		var err error
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.DBMigrate {
			if err := prepareSchema(ctx, db, cfg, log); err != nil {
				return err
			}
		}
		deps.Seats = repository.NewShowSeatRepo(db)
		deps.Bookings = repository.NewBookingRepo(db)
		deps.Catalog = repository.NewShowRepo(db)
	default:
		return errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
	}

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(log.Named("redis"))
	if rdb != nil {
		defer rdb.Close()
		deps.Notifier = middleware.NewGridCacheInvalidator(cacheCfg, rdb, log)
	} else {
		log.Warn("redis unavailable; grid cache and rate limiting disabled")
	}

	var publisher *queue.Publisher
	if cfg.EventsEnabled {
		publisher = queue.NewPublisher(cfg.RabbitURL, log.Named("publisher"))
		defer publisher.Close()
		deps.Events = publisher
	}

	holds := service.NewHoldManager(deps, service.HoldConfig{
		DefaultMinutes: cfg.HoldDefaultMinutes,
		MaxMinutes:     cfg.HoldMaxMinutes,
	})
	reaper := service.NewReaper(deps, service.ReaperConfig{
		Interval:     cfg.ReaperInterval,
		InitialDelay: cfg.ReaperInitialDelay,
		PurgeAfter:   cfg.BookingPurgeAfter,
		BatchSize:    cfg.ReaperBatchSize,
	})

	e := echo.New()
	e.HideBanner = true
	rd := router.Deps{
		Bookings:     handler.NewBookingHandler(holds, service.NewConfirmer(deps), service.NewBookingReader(deps), log),
		Seats:        handler.NewShowSeatsHandler(service.NewSeatGrid(deps), log),
		JWTSecret:    cfg.JWTSecret,
		HoldRoles:    cfg.HoldRoles,
		ConfirmRoles: cfg.ConfirmRoles,
		Redis:        rdb,
		Cache:        cacheCfg,
		RateLimit:    config.LoadRateLimitConfig(),
		Log:          log,
	}
	if db != nil {
		rd.DB = db
	}
	router.RegisterRoutes(e, rd)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reaper.Run(ctx)
	})
	if cfg.EventsEnabled {
		consumer := &queue.Consumer{
			URL:     cfg.RabbitURL,
			LogDir:  cfg.BookingLogDir,
			Expirer: reaper,
			Log:     log.Named("consumer"),
		}
		g.Go(func() error { return consumer.Run(ctx) })
	}
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func prepareSchema(ctx context.Context, db *sql.DB, cfg config.Config, log *zap.Logger) error {
	if err := database.RunMigrations(ctx, db, log); err != nil {
		return err
	}
	if cfg.CatalogSeedFile == "" {
		return nil
	}
	shows, err := config.LoadCatalogSeed(cfg.CatalogSeedFile)
	if err != nil {
		return err
	}
	return database.SeedShows(ctx, db, shows)
}
