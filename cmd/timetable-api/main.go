package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Timetable generation and teacher conflict detection for schools
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type handlers struct {
	periods     *handler.PeriodHandler
	allocations *handler.AllocationHandler
	generation  *handler.GenerationHandler
	timetables  *handler.TimetableHandler
	metrics     *handler.MetricsHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Sugar().Fatalw("schema setup failed", "error", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Timetable.CacheEnabled || cfg.Timetable.LockBackend == config.LockBackendRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer redisClient.Close()
	}

	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	slotRepo := repository.NewTimetableSlotRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)

	var locker interface {
		LockSchool(ctx context.Context, schoolID string) (func(), error)
		LockClass(ctx context.Context, schoolID, classID string) (func(), error)
	}
	if cfg.Timetable.LockBackend == config.LockBackendRedis {
		locker = repository.NewRedisLockRepository(redisClient, repository.LockConfig{
			TTL:   cfg.Timetable.LockTTL,
			Wait:  cfg.Timetable.LockWait,
			Retry: cfg.Timetable.LockRetry,
		}, logr)
	} else {
		locker = service.NewMemoryLocker(cfg.Timetable.LockWait, cfg.Timetable.LockRetry)
	}

	settingsSvc := service.NewSettingsService(settingsRepo, cacheSvc, cfg.Timetable.DefaultPeriodMinutes, nil, logr)
	periodSvc := service.NewPeriodService(periodRepo, slotRepo, db, locker, cacheSvc, nil, logr)
	allocationSvc := service.NewAllocationService(classRepo, subjectRepo, teacherRepo, allocationRepo, periodRepo, settingsSvc, db, locker, cacheSvc, nil, logr)
	generatorSvc := service.NewTimetableGeneratorService(classRepo, periodRepo, allocationRepo, slotRepo, settingsSvc, db, locker, cacheSvc, metricsSvc, logr)
	conflictSvc := service.NewConflictAuditService(slotRepo, cacheSvc, metricsSvc, logr)

	auditQueue := jobs.NewQueue("timetable-audit", conflictSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Timetable.AuditWorkers,
		MaxRetries: cfg.Timetable.AuditRetries,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	var audits interface {
		Enqueue(job jobs.Job) (bool, error)
	}
	if cfg.Timetable.AuditAfterEdit {
		auditQueue.Start(ctx)
		defer auditQueue.Stop()
		audits = auditQueue
	}

	slotEditSvc := service.NewSlotEditService(classRepo, periodRepo, allocationRepo, teacherRepo, slotRepo, locker, cacheSvc, audits, nil, logr)
	querySvc := service.NewTimetableQueryService(classRepo, teacherRepo, periodRepo, slotRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(querySvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	tokens := service.NewTokenVerifier(cfg.JWT.Secret)

	h := handlers{
		periods:     handler.NewPeriodHandler(periodSvc, settingsSvc),
		allocations: handler.NewAllocationHandler(allocationSvc),
		generation:  handler.NewGenerationHandler(generatorSvc),
		timetables:  handler.NewTimetableHandler(querySvc, exportSvc, slotEditSvc, conflictSvc),
		metrics:     handler.NewMetricsHandler(metricsSvc, db),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))
	registerRoutes(api, h, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "lock_backend", cfg.Timetable.LockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

func registerRoutes(api *gin.RouterGroup, h handlers, logr *zap.Logger) {
	admin := internalmiddleware.RequireRoles(models.RoleAdmin)

	timetable := api.Group("/timetable")
	timetable.GET("/periods", h.periods.List)
	timetable.PUT("/periods", admin, internalmiddleware.ActionLog(logr, "periods.replace"), h.periods.Replace)
	timetable.GET("/settings", h.periods.GetSettings)
	timetable.PUT("/settings", admin, internalmiddleware.ActionLog(logr, "settings.update"), h.periods.UpdateSettings)
	timetable.POST("/generate-all", admin, internalmiddleware.ActionLog(logr, "timetable.generate_all"), h.generation.GenerateAll)
	timetable.GET("/conflicts", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.timetables.Conflicts)

	classes := api.Group("/classes/:classId")
	classes.GET("/allocations", h.allocations.List)
	classes.PUT("/allocations", admin, internalmiddleware.ActionLog(logr, "allocations.replace"), h.allocations.Replace)
	classes.GET("/allocations/validate", h.allocations.Validate)
	classes.GET("/timetable", h.timetables.ClassTimetable)
	classes.GET("/timetable/export", h.timetables.Export)
	classes.POST("/timetable/generate", admin, internalmiddleware.ActionLog(logr, "timetable.generate_class"), h.generation.GenerateClass)
	classes.PUT("/timetable/slots", admin, internalmiddleware.ActionLog(logr, "timetable.upsert_slot"), h.timetables.UpsertSlot)
	classes.DELETE("/timetable/slots", admin, internalmiddleware.ActionLog(logr, "timetable.delete_slot"), h.timetables.DeleteSlot)

	api.GET("/teachers/:teacherId/timetable", h.timetables.TeacherTimetable)
}
