package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultModels 默认可用的文生图模型
var DefaultModels = []string{
	"stability-ai/stable-diffusion-3.5-large-turbo",
	"stability-ai/stable-diffusion-3.5-large",
	"black-forest-labs/flux-schnell",
	"black-forest-labs/flux-dev",
	"black-forest-labs/flux-1.1-pro",
	"recraft-ai/recraft-v3",
	"ideogram-ai/ideogram-v2-turbo",
	"luma/photon-flash",
}

// LoadConfig 加载配置文件，文件不存在时仅使用默认值和环境变量
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 设置配置文件路径
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// 默认查找 config.yaml
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	registerDefaults(v)

	// 读取环境变量，例如 JWT_SECRET_KEY 覆盖 jwt.secret_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	setDefaults(&cfg)

	// 验证配置
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// registerDefaults 注册默认值，使环境变量覆盖对所有键生效
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 18080)
	v.SetDefault("server.production_mode", false)
	v.SetDefault("server.public_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./database/gallery.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis_service.host", "localhost")
	v.SetDefault("redis_service.port", 6379)
	v.SetDefault("redis_service.db", 0)
	v.SetDefault("redis_service.password", "")
	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.expire_minutes", 43200) // 30天
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("cors.origins", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("generation.api_base", "https://api.replicate.com/v1")
	v.SetDefault("generation.api_token", "")
	v.SetDefault("generation.models", DefaultModels)
	v.SetDefault("generation.default_model", DefaultModels[0])
	v.SetDefault("generation.size", "1024x1024")
	v.SetDefault("generation.timeout_seconds", 120)
	v.SetDefault("generation.poll_interval_millis", 1000)
	v.SetDefault("generation.max_models_per_request", 4)
	v.SetDefault("generation.rate_limit.limit", 10)
	v.SetDefault("generation.rate_limit.window_seconds", 3600)
	v.SetDefault("prompt_storage.ttl_seconds", 30*60)
	v.SetDefault("prompt_storage.retry_attempts", 3)
	v.SetDefault("prompt_storage.retry_unit_millis", 1000)
	v.SetDefault("upload.storage_dir", "./data/uploads")
	v.SetDefault("upload.max_file_size_mb", 4)
	v.SetDefault("upload.max_file_count", 10)
	v.SetDefault("upload.thumbnail_width", 320)
	v.SetDefault("upload.max_thumbnail_pixels", 40_000_000)
	v.SetDefault("upload.rate_limit.limit", 10)
	v.SetDefault("upload.rate_limit.window_seconds", 3600)
	v.SetDefault("jobs.orphan_sweep_spec", "@every 1h")
	v.SetDefault("jobs.orphan_grace_hours", 24)
	v.SetDefault("internal_api.key", "")
}

// setDefaults 设置无法通过viper默认值表达的字段
func setDefaults(cfg *Config) {
	if cfg.CORS.AllowMethods == nil {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowHeaders == nil {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.Server.PublicURL == "" {
		host := cfg.Server.Host
		if host == "0.0.0.0" || host == "" {
			host = "localhost"
		}
		cfg.Server.PublicURL = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
}

// validateConfig 验证配置
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务器端口: %d", cfg.Server.Port)
	}

	if cfg.JWT.SecretKey == "" {
		return fmt.Errorf("JWT密钥不能为空")
	}

	if cfg.Admin.Password == "" {
		return fmt.Errorf("管理员密码不能为空")
	}

	if cfg.InternalAPI.Key == "" {
		return fmt.Errorf("内部API密钥不能为空")
	}

	if len(cfg.Generation.Models) == 0 {
		return fmt.Errorf("可用模型列表不能为空")
	}
	if !contains(cfg.Generation.Models, cfg.Generation.DefaultModel) {
		return fmt.Errorf("默认模型不在可用列表中: %s", cfg.Generation.DefaultModel)
	}
	if cfg.Generation.MaxModelsPerRequest < 1 {
		return fmt.Errorf("单次请求模型数必须大于0")
	}
	if cfg.Generation.RateLimit.Limit < 1 || cfg.Generation.RateLimit.WindowSeconds < 1 {
		return fmt.Errorf("无效的生成限流配置")
	}
	if cfg.Upload.RateLimit.Limit < 1 || cfg.Upload.RateLimit.WindowSeconds < 1 {
		return fmt.Errorf("无效的上传限流配置")
	}
	if cfg.Upload.MaxFileCount < 1 {
		return fmt.Errorf("单次上传文件数必须大于0")
	}
	if cfg.Upload.MaxFileSizeMB < 1 {
		return fmt.Errorf("单文件大小上限必须大于0")
	}
	if cfg.Upload.MaxThumbnailPixels < 1 {
		return fmt.Errorf("缩略图像素上限必须大于0")
	}

	if cfg.PromptStorage.TTLSeconds < 1 {
		return fmt.Errorf("提示词暂存有效期必须大于0")
	}
	if cfg.PromptStorage.RetryAttempts < 1 {
		return fmt.Errorf("提示词查询重试次数必须大于0")
	}

	switch cfg.Database.Driver {
	case "sqlite":
		// 检查数据库目录是否存在
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("创建数据库目录失败: %w", err)
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("postgres 需要配置 database.dsn")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	if err := os.MkdirAll(cfg.Upload.StorageDir, 0755); err != nil {
		return fmt.Errorf("创建上传目录失败: %w", err)
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
