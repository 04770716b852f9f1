package router

import (
	"net/http"

	"gen-gallery/internal/config"
	"gen-gallery/internal/handler"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/repository"
	"gen-gallery/internal/service"
	"gen-gallery/internal/storage"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Dependencies 路由所需的依赖
type Dependencies struct {
	Config            *config.Config
	Logger            *logrus.Logger
	JWTManager        *utils.JWTManager
	UserRepo          *repository.UserRepository
	AuthService       *service.AuthService
	GenerationService *service.GenerationService
	PromptStore       *service.PromptStore
	UploadService     *service.UploadService
	GalleryService    *service.GalleryService
	UploadLimiter     service.RateLimiter
	Bucket            *storage.LocalBucket
}

// SetupRouter 设置路由
func SetupRouter(deps *Dependencies) *gin.Engine {
	cfg := deps.Config

	// 设置Gin模式
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(&cfg.CORS))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "文生图图库服务 API",
			"version": "1.0.0",
		})
	})

	// 存储文件
	r.StaticFS("/files", gin.Dir(deps.Bucket.Root(), false))

	// 初始化Handler
	authHandler := handler.NewAuthHandler(deps.AuthService)
	generationHandler := handler.NewGenerationHandler(deps.GenerationService)
	promptHandler := handler.NewPromptHandler(deps.PromptStore)
	uploadHandler := handler.NewUploadHandler(deps.UploadService, deps.Bucket, &cfg.Upload)
	galleryHandler := handler.NewGalleryHandler(deps.GalleryService)
	adminHandler := handler.NewAdminHandler(deps.UserRepo)

	authRequired := middleware.AuthMiddleware(deps.JWTManager)

	// API路由组
	api := r.Group("/api")
	{
		// 公开路由
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.GET("/models", generationHandler.GetModels)

		// 文生图（按IP限流）
		api.POST("/generate", generationHandler.Generate)
		api.POST("/generate/batch", generationHandler.GenerateBatch)

		// 提示词暂存：写入需要登录，查询支持内部密钥
		api.POST("/prompt-storage", authRequired, promptHandler.Store)
		api.GET("/prompt-storage", middleware.InternalOrUserAuth(cfg.InternalAPI.Key, deps.JWTManager), promptHandler.Lookup)

		// 存储服务回调（内部密钥认证）
		api.POST("/uploads/complete", middleware.InternalAPIAuth(cfg.InternalAPI.Key), uploadHandler.Complete)

		// 认证路由
		authorized := api.Group("")
		authorized.Use(authRequired)
		{
			// 用户信息
			authorized.GET("/me", authHandler.GetMe)

			// 上传
			authorized.POST("/uploads",
				middleware.UploadPermission(deps.AuthService),
				middleware.RateLimit(deps.UploadLimiter, middleware.UserIdentity, deps.Logger),
				uploadHandler.Upload,
			)

			// 图库
			authorized.GET("/images", galleryHandler.ListImages)
			authorized.GET("/images/:id", galleryHandler.GetImage)
			authorized.DELETE("/images/:id", galleryHandler.DeleteImage)

			// 管理员接口
			adminGroup := authorized.Group("/admin")
			adminGroup.Use(middleware.AdminMiddleware())
			{
				adminGroup.GET("/users", adminHandler.ListUsers)
				adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
				adminGroup.PUT("/users/:id/upload-permission", adminHandler.SetUploadPermission)
			}
		}
	}

	return r
}
