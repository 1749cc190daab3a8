package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/dept-timetable-api/api/swagger"
	"github.com/noah-isme/dept-timetable-api/internal/engine"
	"github.com/noah-isme/dept-timetable-api/internal/handler"
	"github.com/noah-isme/dept-timetable-api/internal/middleware"
	"github.com/noah-isme/dept-timetable-api/internal/repository"
	"github.com/noah-isme/dept-timetable-api/internal/service"
	"github.com/noah-isme/dept-timetable-api/pkg/cache"
	"github.com/noah-isme/dept-timetable-api/pkg/config"
	"github.com/noah-isme/dept-timetable-api/pkg/database"
	"github.com/noah-isme/dept-timetable-api/pkg/jobs"
	"github.com/noah-isme/dept-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dept-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dept-timetable-api/pkg/middleware/requestid"
)

// @title Department Timetable API
// @version 1.0.0
// @description Constraint-based weekly timetable generation and validation for department sections
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient, redisErr := cache.NewRedis(cfg.Redis); redisErr != nil {
		logr.Sugar().Warnw("redis unavailable, timetable reads will not be cached", "error", redisErr)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Timetables.CacheTTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetables.CacheTTL, logr, true)
	}

	departmentRepo := repository.NewDepartmentRepository(db)
	obligationRepo := repository.NewObligationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	grid := engine.GridConfig{
		Days:          cfg.Engine.DaysPerWeek,
		PeriodsPerDay: cfg.Engine.PeriodsPerDay,
		MorningSpan:   cfg.Engine.MorningSpan,
	}
	rules := engine.RuleConfig{
		LabBlockLength:       cfg.Engine.LabBlockLength,
		TeacherDailyCap:      cfg.Engine.TeacherDailyCap,
		RestrictedStarts:     cfg.Engine.RestrictedLabStarts,
		RelaxedDailyCapBonus: cfg.Engine.TeacherDailyCapBonus,
	}

	generationSvc := service.NewGenerationService(service.GenerationServiceParams{
		Departments: departmentRepo,
		Obligations: obligationRepo,
		Rooms:       roomRepo,
		Bookings:    bookingRepo,
		Timetables:  timetableRepo,
		Tx:          db,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		Config: service.GenerationConfig{
			Grid:       grid,
			Rules:      rules,
			Budget:     cfg.Engine.GenerationBudget,
			CheckEvery: cfg.Engine.DeadlineCheckEvery,
		},
	})
	validationSvc := service.NewValidationService(
		timetableRepo,
		obligationRepo,
		roomRepo,
		bookingRepo,
		metricsSvc,
		logr,
		service.ValidationConfig{Grid: grid, Rules: rules},
	)
	timetableSvc := service.NewTimetableService(timetableRepo, cacheSvc, logr, service.TimetableServiceConfig{
		CacheTTL: cfg.Timetables.CacheTTL,
	})
	catalogSvc := service.NewCatalogService(departmentRepo, obligationRepo, roomRepo, logr)

	auditSvc := service.NewAuditService(timetableRepo, validationSvc, logr, service.AuditServiceConfig{
		Interval: cfg.Audit.Interval,
	})
	auditQueue := jobs.NewQueue("timetable_audit", auditSvc.HandleJob, jobs.QueueConfig{
		Workers: 2,
		Logger:  logr,
	})
	auditSvc.BindQueue(auditQueue)
	if cfg.Audit.Enabled {
		auditQueue.Start(context.Background())
		auditSvc.Start(context.Background())
	}

	timetableHandler := handler.NewTimetableHandler(generationSvc, validationSvc, timetableSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetables/generate", timetableHandler.Generate)
		api.GET("/timetables/active", timetableHandler.Active)
		api.GET("/timetables/versions", timetableHandler.Versions)
		api.GET("/timetables/:id", timetableHandler.Get)
		api.POST("/timetables/:id/validate", timetableHandler.Validate)

		api.GET("/departments", catalogHandler.Departments)
		api.GET("/departments/:id", catalogHandler.Department)
		api.GET("/departments/:id/obligations", catalogHandler.Obligations)
		api.GET("/departments/:id/rooms", catalogHandler.Rooms)

		api.GET("/stats", metricsHandler.Stats)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
