// Package main runs the program-enrollment HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noor-academy/backend/config"
	"github.com/noor-academy/backend/internal/accounts"
	"github.com/noor-academy/backend/internal/auth"
	"github.com/noor-academy/backend/internal/dashboard"
	"github.com/noor-academy/backend/internal/enrollments"
	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/media"
	"github.com/noor-academy/backend/internal/memstore"
	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/internal/mosques"
	"github.com/noor-academy/backend/internal/programs"
	"github.com/noor-academy/backend/internal/removal"
	"github.com/noor-academy/backend/internal/worker"
	"github.com/noor-academy/backend/pkg/cache"
	"github.com/noor-academy/backend/pkg/database"
	"github.com/noor-academy/backend/pkg/queue"
	"github.com/noor-academy/backend/pkg/redis"
	"github.com/noor-academy/backend/pkg/response"
	"github.com/noor-academy/backend/pkg/storage"
)

// stores groups the persistence ports for one storage driver.
type stores struct {
	accounts    accounts.Store
	credentials auth.CredentialStore
	mosques     mosques.Store
	programs    programs.Store
	enrollments enrollments.Store
	cache       cache.Cache
	queue       *queue.Queue
	closers     []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer st.close()

	var mediaStore media.Store
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			mediaStore = s3Client
		}
	}

	defaultRole, _ := models.ParseRole(cfg.Accounts.DefaultRole)
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	// Identity and authorization
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)
	provider := auth.NewProvider(st.credentials, jwtService, logger)
	g := guard.New(accounts.NewResolver(st.accounts, logger), logger)

	// Accounts
	accountService := accounts.NewService(st.accounts, g, defaultRole, logger)
	accountHandler := accounts.NewHandler(accountService)
	authHandler := auth.NewHandler(st.credentials, jwtService, accountService, logger)

	// Mosques and programs
	mosqueHandler := mosques.NewHandler(mosques.NewService(st.mosques, g, logger))
	catalog := programs.NewCatalog(st.programs, st.accounts, g, st.cache, cacheTTL, logger)

	// Enrollments
	lifecycle := enrollments.NewLifecycle(st.enrollments, catalog, g, st.cache, enrollments.Options{
		AutoApprove: cfg.Enrollment.AutoApprove,
		CacheTTL:    cacheTTL,
	}, logger)
	enrollmentHandler := enrollments.NewHandler(lifecycle)
	programHandler := programs.NewHandler(catalog, lifecycle, logger)

	// Removal
	var revocations removal.RevocationQueue
	if st.queue != nil {
		revocations = st.queue
	}
	removalHandler := removal.NewHandler(removal.NewProtocol(st.accounts, g, provider, revocations, removal.Views{
		Cache:       st.cache,
		Programs:    st.programs,
		Enrollments: st.enrollments,
	}, logger))

	dashboardHandler := dashboard.NewHandler(catalog, lifecycle, accountService)
	mediaHandler := media.NewHandler(mediaStore, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Identity(provider))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public catalog; signed-in callers get their enrollment overlay
	router.GET("/programs", programHandler.List)
	router.GET("/programs/:id", programHandler.Get)
	router.GET("/mosques", mosqueHandler.List)
	router.GET("/media/*path", mediaHandler.Get)

	staff := middleware.RequireRole(g, models.RoleAdmin, models.RoleTeacher)
	manager := programs.RequireProgramManager(catalog)

	// Protected API (identity required)
	api := router.Group("")
	api.Use(middleware.RequireIdentity())
	{
		api.GET("/me", accountHandler.Me)
		api.GET("/dashboard", middleware.RequireRole(g, models.RoleAdmin, models.RoleTeacher, models.RoleStudent), dashboardHandler.Get)
		api.GET("/teachers", staff, accountHandler.Teachers)

		// Mosques and programs
		api.POST("/mosques", staff, mosqueHandler.Create)
		api.POST("/programs", staff, programHandler.Create)
		api.GET("/teacher/programs", staff, programHandler.ListMine)
		api.POST("/programs/:id/deactivate", manager, programHandler.Deactivate)

		// Enrollments
		api.POST("/programs/:id/enroll", middleware.RequireRole(g, models.RoleStudent), enrollmentHandler.Enroll)
		api.DELETE("/programs/:id/enroll", enrollmentHandler.Withdraw)
		api.GET("/me/enrollments", middleware.RequireRole(g, models.RoleStudent, models.RoleAdmin), enrollmentHandler.ListMine)
		api.GET("/programs/:id/enrollments", manager, enrollmentHandler.Roster)
		api.POST("/programs/:id/enrollments/:student_id/approve", manager, enrollmentHandler.Approve)
		api.POST("/programs/:id/enrollments/:student_id/reject", manager, enrollmentHandler.Reject)

		// Admin
		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(g, models.RoleAdmin))
		admin.GET("/users", accountHandler.List)
		admin.PATCH("/users/:id/role", accountHandler.UpdateRole)
		admin.DELETE("/users/:id", removalHandler.Remove)
		admin.POST("/users/:id/revoke", removalHandler.RetryRevocation)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (identity revocation retries)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if st.queue != nil {
		processor := worker.NewRevocationProcessor(st.accounts, provider, st.queue, logger)
		go processor.Run(workerCtx)
		logger.Info("revocation worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openStores connects the configured storage driver. The memory driver keeps
// everything in process and has no revocation queue.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		mem := memstore.New()
		logger.Warn("using in-memory store; data is lost on restart")
		return &stores{
			accounts:    mem,
			credentials: mem,
			mosques:     mem,
			programs:    mem,
			enrollments: mem,
			cache:       cache.NewMemory(),
		}, nil
	}

	st := &stores{}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, pool.Close)
	if err := database.Migrate(ctx, pool, logger); err != nil {
		st.close()
		return nil, err
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		st.close()
		return nil, err
	}
	st.closers = append(st.closers, func() { _ = rdb.Close() })

	st.accounts = accounts.NewRepository(pool)
	st.credentials = auth.NewRepository(pool)
	st.mosques = mosques.NewRepository(pool)
	st.programs = programs.NewRepository(pool)
	st.enrollments = enrollments.NewRepository(pool)
	st.cache = cache.NewRedis(rdb.Client, cfg.Cache.Prefix, logger)
	if cfg.Revocation.QueueEnabled {
		st.queue = queue.NewQueue(rdb.Client, logger)
	}
	return st, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
