package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retail-backend/internal/auth"
	"retail-backend/internal/cache"
	"retail-backend/internal/config"
	"retail-backend/internal/database"
	"retail-backend/internal/db"
	"retail-backend/internal/handlers"
	"retail-backend/internal/health"
	h "retail-backend/internal/http"
	"retail-backend/internal/middleware"
	"retail-backend/internal/repositories"
	"retail-backend/internal/services"
	"retail-backend/internal/storage"
	"retail-backend/internal/timeutil"
	"retail-backend/migrations"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate", false, "Apply pending migrations and exit")
	noSweep := flag.Bool("no-sweep", false, "Do not run the absence sweep in this process")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := timeutil.SetLocation(cfg.Attendance.Timezone); err != nil {
		log.Fatalf("Invalid attendance.timezone: %v", err)
	}

	pool := db.Connect(cfg)
	defer pool.Close()
	log.Printf("[DB] Connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	if err := migrator.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}
	if *migrateOnly {
		return
	}

	if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[Redis] %v (continuing without cache)", err)
	}
	defer cache.Close()

	archive, err := storage.NewReportArchive(context.Background(), cfg)
	if err != nil {
		log.Printf("[Reports] Archive disabled: %v", err)
		archive = nil
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	templateRepo := repositories.NewShiftTemplateRepository(pool)
	scheduleRepo := repositories.NewScheduleRepository(pool)
	shiftRepo := repositories.NewShiftRepository(pool)
	cashRepo := repositories.NewCashMovementRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	changeRepo := repositories.NewShiftChangeRequestRepository(pool)
	txManager := db.NewTxManager(pool, cfg.Attendance.TxTimeout)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	clock := timeutil.SystemClock{}

	userService := services.NewUserService(userRepo, jwtManager)
	scheduleService := services.NewScheduleService(scheduleRepo, templateRepo, userRepo, txManager, clock)
	shiftService := services.NewShiftService(scheduleRepo, shiftRepo, cashRepo, paymentRepo, txManager, clock, cfg.Attendance.GraceMinutes)
	changeService := services.NewShiftChangeService(changeRepo, scheduleRepo, templateRepo, userRepo, txManager, clock)

	// A nil *ReportArchive must not become a non-nil interface
	var uploader services.ReportUploader
	var archivePinger health.Pinger
	if archive != nil {
		uploader = archive
		archivePinger = archive
	}
	reportService := services.NewReportService(shiftRepo, paymentRepo, uploader, clock)

	sweep := services.NewAbsenceSweep(scheduleRepo, clock, cfg.Attendance.SweepInterval, cfg.Attendance.SweepBatchSize)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)
	healthChecker := health.NewHealthChecker(pool, archivePinger)

	router := h.NewRouter(
		handlers.NewAuthHandler(userService),
		handlers.NewShiftHandler(shiftService),
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewShiftChangeHandler(changeService),
		handlers.NewReportHandler(reportService, archive),
		handlers.NewAdminHandler(sweep),
		handlers.NewHealthHandler(healthChecker),
		authMiddleware,
	)

	// Wrap with panic recovery, request ids and CORS
	handler := middleware.PanicRecovery(middleware.RequestLogger(corsMiddleware(router)))

	// Template catalog is immutable; warm it in the background (non-blocking)
	cache.PreWarmKey(cache.ShiftTemplatesKey, func(ctx context.Context) (any, error) {
		return templateRepo.List(ctx)
	}, cache.TemplatesTTL)

	if !*noSweep {
		sweep.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Printf("Received %s, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	if !*noSweep {
		sweep.Stop()
	}
	log.Println("Shutdown complete")
}
