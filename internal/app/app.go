package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/internal/controller"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/service"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/configwatcher"
	"corp_learning_backend/pkg/database"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"
	"corp_learning_backend/pkg/monitoring"
	"corp_learning_backend/pkg/security"
	"corp_learning_backend/pkg/tracing"

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
	API             *mockapi.Client
	services        *services
	limiter         *security.RateLimiter
	scheduler       *service.Scheduler
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user      *repository.UserRepository
	course    *repository.CourseRepository
	progress  *repository.ProgressRepository
	assess    *repository.AssessmentRepository
	generated *repository.GeneratedQuestionRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	storage    *service.StorageService
	course     *service.CourseService
	assessment *service.AssessmentService
	review     *service.QuestionReviewService
	report     *service.ReportService
	hub        *service.AttemptHub
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	course     *controller.CourseController
	assessment *controller.AssessmentController
	review     *controller.QuestionReviewController
	report     *controller.ReportController
	health     *controller.HealthController
}

// RegisterConfigCallback 配置文件变更后依次回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		course:    repository.NewCourseRepository(db),
		progress:  repository.NewProgressRepository(db),
		assess:    repository.NewAssessmentRepository(db),
		generated: repository.NewGeneratedQuestionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}
	cache := service.NewCatalogCache(a.Redis, cfg.Redis.CacheTTL)

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, a.API, cfg)
	s.user = service.NewUserService(repos.user, a.API)
	s.course = service.NewCourseService(repos.course, repos.progress, s.storage, a.API, cache)

	s.hub = service.NewAttemptHub()
	s.assessment = service.NewAssessmentService(repos.assess, a.API, cache, s.hub,
		service.WithTicker(time.Duration(cfg.Assessment.TickSeconds)*time.Second, service.NewTimeTicker))

	s.review = service.NewQuestionReviewService(repos.generated, repos.assess, service.NewAIService(cfg.AI), s.storage, a.API)
	s.report = service.NewReportService(repos.course, repos.progress, repos.assess, repos.user, a.API, cache)
	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		user:       controller.NewUserController(s.user),
		course:     controller.NewCourseController(s.course),
		assessment: controller.NewAssessmentController(s.assessment, s.hub),
		review:     controller.NewQuestionReviewController(s.review),
		report:     controller.NewReportController(s.report),
		health:     controller.NewHealthController(a.DB, a.Redis, s.assessment),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerHotReload 模拟网络参数与限流阈值支持热更新，其余配置需重启
func (a *App) registerHotReload() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.API.Configure(cfg.Mock.Latency(), cfg.Mock.Jitter(), cfg.Mock.FailureRate)
		logger.Log.Info("Mock network settings updated",
			zap.Int("latencyMs", cfg.Mock.LatencyMS),
			zap.Float64("failureRate", cfg.Mock.FailureRate))
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.limiter.SetLimit(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Seed || cfg.SeedOnly {
		if err := database.Seed(db); err != nil {
			return nil, err
		}
	}

	app := &App{Config: cfg, DB: db}
	if cfg.SeedOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不是必需组件，连接失败时退化为直读数据库
		logger.Log.Warn("Redis unavailable, caching disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	app.API = mockapi.New(
		mockapi.WithLatency(cfg.Mock.Latency(), cfg.Mock.Jitter()),
		mockapi.WithFailureRate(cfg.Mock.FailureRate),
	)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("corp-learning-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg)
	controllers := app.initControllers(app.services)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.scheduler, err = service.NewScheduler(cfg.Scheduler, app.services.report, app.services.assessment)
	if err != nil {
		return nil, err
	}
	app.registerHotReload()

	return app, nil
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	a.scheduler.Start()
	go a.limiter.Cleanup(ctx, time.Minute)

	go func() {
		configFile := filepath.Join("configs", "config.yaml")
		err := configwatcher.Watch(ctx, configFile, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.startBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 关闭 WebSocket 连接与定时任务
	a.services.hub.Close()
	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
	return nil
}
