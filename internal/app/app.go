package app

import (
	"context"
	"examhub_backend/internal/config"
	"examhub_backend/internal/controller"
	"examhub_backend/internal/repository"
	"examhub_backend/internal/repository/memstore"
	"examhub_backend/internal/service"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/cache"
	"examhub_backend/pkg/configwatcher"
	"examhub_backend/pkg/database"
	"examhub_backend/pkg/logger"
	"examhub_backend/pkg/monitoring"
	"examhub_backend/pkg/security"
	"examhub_backend/pkg/storage"
	"examhub_backend/pkg/tracing"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type stores struct {
	exams       service.ExamStore
	submissions service.SubmissionStore
}

type services struct {
	exam    *service.ExamService
	session *service.ExamSessionService
	stats   *service.ExamStatsService
	grading *service.GradingService
	export  *service.ExportService
}

type controllers struct {
	exam       *controller.ExamController
	session    *controller.ExamSessionController
	submission *controller.SubmissionController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initStores(cfg *config.Config) (*stores, error) {
	var st *stores
	switch cfg.Database.Driver {
	case util.DriverMemory:
		mem := memstore.New()
		st = &stores{exams: mem, submissions: mem}
	case util.DriverMySQL, "":
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
		if err != nil {
			return nil, err
		}
		if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
			if err := database.Migrate(db); err != nil {
				return nil, err
			}
		}
		a.DB = db
		st = &stores{
			exams:       repository.NewExamRepository(db),
			submissions: repository.NewSubmissionRepository(db),
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(context.Background(), &cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = rdb
		st.exams = service.NewCachedExamStore(st.exams, cache.NewRedisExamCache(rdb, cfg.Exam.CacheTTL))
	}
	return st, nil
}

func (a *App) initServices(st *stores, cfg *config.Config) (*services, error) {
	provider, err := storage.New(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	s := &services{}
	s.exam = service.NewExamService(st.exams)
	s.session = service.NewExamSessionService(st.exams, st.submissions)
	s.stats = service.NewExamStatsService(st.exams, st.submissions, cfg.Exam.DefaultPassingScore)
	s.grading = service.NewGradingService(st.exams, st.submissions)
	s.export = service.NewExportService(s.grading, provider)
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		exam:       controller.NewExamController(s.exam, s.stats, s.export),
		session:    controller.NewExamSessionController(s.session),
		submission: controller.NewSubmissionController(s.grading),
		health:     controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 按配置周期推进考试状态，直到 ctx 结束
func (a *App) startBackgroundTasks(ctx context.Context) {
	interval := a.Config.Exam.SchedulerInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, _, err := a.services.exam.TransitionScheduledExams(ctx); err != nil {
					logger.Log.Error("scheduled exam transition error", zap.Error(err))
				}
			}
		}
	}()
}

func (a *App) applyConfig(cfg *config.Config) {
	logger.SetMode(cfg.Server.Mode)
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if err := util.RegisterValidators(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	st, err := app.initStores(cfg)
	if err != nil {
		return nil, err
	}
	services, err := app.initServices(st, cfg)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(&cfg.Tracing)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	logger.Log.Info("Application initialized",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.String("storage", cfg.Storage.Type))
	return app, nil
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundTasks(ctx)

	go func() {
		path := filepath.Join(a.Config.ConfigDir, "config.yaml")
		if err := configwatcher.WatchConfig(ctx, path, a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
}

// Close releases the tracer, redis and database handles.
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Log.Sync()
}
