package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gen-gallery/internal/config"
	"gen-gallery/internal/jobs"
	"gen-gallery/internal/models"
	"gen-gallery/internal/repository"
	"gen-gallery/internal/router"
	"gen-gallery/internal/service"
	"gen-gallery/internal/storage"
	"gen-gallery/internal/utils"
	"gen-gallery/pkg/image_caller"
	"gen-gallery/pkg/redis_limiter"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	// 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := models.InitDB(cfg)
	if err != nil {
		logger.Fatalf("初始化数据库失败: %v", err)
	}

	// 初始化Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddress(),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("Redis连接失败，限流和提示词暂存不可用: %v", err)
	}
	cancel()

	// 初始化存储
	bucket, err := storage.NewLocalBucket(cfg.Upload.StorageDir, cfg.Server.PublicURL)
	if err != nil {
		logger.Fatalf("初始化存储失败: %v", err)
	}
	bucket.WithMaxThumbnailPixels(cfg.Upload.MaxThumbnailPixels)

	// 初始化Repository
	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewImageRepository(db)

	// 初始化工具
	jwtManager := utils.NewJWTManager(
		cfg.JWT.SecretKey,
		cfg.JWT.Algorithm,
		cfg.JWT.GetExpireDuration(),
	)
	generateLimiter := redis_limiter.NewRedisLimiter(
		redisClient,
		cfg.Generation.RateLimit.Limit,
		cfg.Generation.RateLimit.GetWindow(),
		"ratelimit:generate:",
	)
	uploadLimiter := redis_limiter.NewRedisLimiter(
		redisClient,
		cfg.Upload.RateLimit.Limit,
		cfg.Upload.RateLimit.GetWindow(),
		"ratelimit:upload:",
	)
	imageCaller := image_caller.NewImageCaller(
		cfg.Generation.APIBase,
		cfg.Generation.APIToken,
		cfg.Generation.GetTimeout(),
		cfg.Generation.GetPollInterval(),
	)

	// 初始化Service
	authService := service.NewAuthService(userRepo, jwtManager, cfg)
	promptStore := service.NewPromptStore(redisClient, cfg.PromptStorage.GetTTL())
	uploadService := service.NewUploadService(imageRepo, promptStore, bucket, cfg, logger)
	galleryService := service.NewGalleryService(imageRepo)
	generationService, err := service.NewGenerationService(imageCaller, generateLimiter, &cfg.Generation, logger)
	if err != nil {
		logger.Fatalf("初始化生成服务失败: %v", err)
	}

	// 初始化管理员账户
	if err := authService.InitAdmin(); err != nil {
		logger.Warnf("初始化管理员失败: %v", err)
	}

	// 定时清理孤儿文件
	sweeper := jobs.NewOrphanSweeper(bucket, imageRepo, cfg.Jobs.GetOrphanGrace(), logger)
	if _, err := jobs.ScheduleOrphanSweep(ctx, cfg.Jobs.OrphanSweepSpec, sweeper); err != nil {
		logger.Fatalf("启动定时任务失败: %v", err)
	}

	// 设置路由
	r := router.SetupRouter(&router.Dependencies{
		Config:            cfg,
		Logger:            logger,
		JWTManager:        jwtManager,
		UserRepo:          userRepo,
		AuthService:       authService,
		GenerationService: generationService,
		PromptStore:       promptStore,
		UploadService:     uploadService,
		GalleryService:    galleryService,
		UploadLimiter:     uploadLimiter,
		Bucket:            bucket,
	})

	// 启动服务器
	addr := cfg.Server.GetAddress()
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("服务器启动在 %s", addr)
		if !cfg.Server.ProductionMode {
			logger.Infof("开发模式: 管理员账号 %s", cfg.Admin.Username)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("启动服务器失败: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("正在关闭服务器")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("关闭服务器失败: %v", err)
	}
}
