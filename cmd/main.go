package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/opsdesk/dispatch-core/internal/api"
	"github.com/opsdesk/dispatch-core/internal/config"
	"github.com/opsdesk/dispatch-core/internal/db"
	"github.com/opsdesk/dispatch-core/internal/model"
	"github.com/opsdesk/dispatch-core/internal/repository"
	"github.com/opsdesk/dispatch-core/internal/server"
	"github.com/opsdesk/dispatch-core/internal/service"
)

func main() {
	// Load .env first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "dispatch-core")
	slog.SetDefault(logger)

	// 1. Config from env.
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2. GORM connection.
	gormDB, err := db.NewGormDB(cfg)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}

	// 3. Migrations.
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("sql DB: %v", err)
	}
	defer sqlDB.Close()

	// 4. Repositories.
	orgRepo := repository.NewGormOrganizationRepository(gormDB)
	workerRepo := repository.NewGormWorkerRepository(gormDB)
	hoursRepo := repository.NewGormWorkingHoursRepository(gormDB)
	timeOffRepo := repository.NewGormTimeOffRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)
	holdRepo := repository.NewGormHoldRepository(gormDB)
	rotationRepo := repository.NewGormRotationRepository(gormDB)

	// 5. Scheduling core.
	availabilitySvc := service.NewAvailabilityService(orgRepo, workerRepo, hoursRepo, timeOffRepo, eventRepo, holdRepo)
	conflictSvc := service.NewConflictService(orgRepo, eventRepo, holdRepo)
	resolverSvc := service.NewResolverService(availabilitySvc, rotationRepo)
	schedulingSvc := service.NewSchedulingService(gormDB, availabilitySvc)

	// 6. HTTP surface.
	router := gin.Default()
	apiGroup := router.Group("/api")
	apiGroup.Use(api.AuthMiddleware(cfg.Auth.StaticTokens, cfg.Auth.JWTSecret))

	handlers := &api.API{
		Hours:        hoursRepo,
		TimeOff:      timeOffRepo,
		Events:       eventRepo,
		Holds:        holdRepo,
		Availability: availabilitySvc,
		Conflicts:    conflictSvc,
		Resolver:     resolverSvc,
		Scheduling:   schedulingSvc,
	}
	handlers.Register(apiGroup)

	srv := server.New(router, cfg.HTTP.Port)

	// 7. Hold expiry sweep: lapsed holds must stop counting as busy even if
	// nobody reads them again.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.HoldSweepSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := holdRepo.ExpireLapsed(sweepCtx, time.Now().UTC())
				if err != nil {
					slog.Error("hold sweep failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("expired lapsed holds", "count", n)
				}
			}
		}
	}()

	// 8. Serve.
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	// 9. Graceful shutdown on signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	stopSweep()
	if err := server.Shutdown(srv, 10*time.Second); err != nil {
		slog.Error("shutdown", "error", err)
	}
}
