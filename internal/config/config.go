package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis_service"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Admin         AdminConfig         `mapstructure:"admin"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	PromptStorage PromptStorageConfig `mapstructure:"prompt_storage"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Jobs          JobsConfig          `mapstructure:"jobs"`
	InternalAPI   InternalAPIConfig   `mapstructure:"internal_api"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
	// PublicURL 对外访问地址，用于拼接文件URL
	PublicURL string `mapstructure:"public_url"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Driver sqlite 或 postgres
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// GetExpireDuration 获取过期时间
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// AdminConfig 管理员配置
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// GetWindow 获取窗口长度
func (r *RateLimitConfig) GetWindow() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// GenerationConfig 文生图服务配置
type GenerationConfig struct {
	APIBase             string          `mapstructure:"api_base"`
	APIToken            string          `mapstructure:"api_token"`
	Models              []string        `mapstructure:"models"`
	DefaultModel        string          `mapstructure:"default_model"`
	Size                string          `mapstructure:"size"`
	TimeoutSeconds      int             `mapstructure:"timeout_seconds"`
	PollIntervalMillis  int             `mapstructure:"poll_interval_millis"`
	MaxModelsPerRequest int             `mapstructure:"max_models_per_request"`
	RateLimit           RateLimitConfig `mapstructure:"rate_limit"`
}

// GetTimeout 获取单次生成超时
func (g *GenerationConfig) GetTimeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// GetPollInterval 获取轮询间隔
func (g *GenerationConfig) GetPollInterval() time.Duration {
	return time.Duration(g.PollIntervalMillis) * time.Millisecond
}

// PromptStorageConfig 提示词暂存配置
type PromptStorageConfig struct {
	TTLSeconds      int `mapstructure:"ttl_seconds"`
	RetryAttempts   int `mapstructure:"retry_attempts"`
	RetryUnitMillis int `mapstructure:"retry_unit_millis"`
}

// GetTTL 获取暂存有效期
func (p *PromptStorageConfig) GetTTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

// GetRetryUnit 获取重试间隔单位
func (p *PromptStorageConfig) GetRetryUnit() time.Duration {
	return time.Duration(p.RetryUnitMillis) * time.Millisecond
}

// UploadConfig 上传配置
type UploadConfig struct {
	StorageDir     string `mapstructure:"storage_dir"`
	MaxFileSizeMB  int    `mapstructure:"max_file_size_mb"`
	MaxFileCount   int    `mapstructure:"max_file_count"`
	ThumbnailWidth int    `mapstructure:"thumbnail_width"`
	// MaxThumbnailPixels 生成缩略图前允许的最大像素数（宽x高）
	MaxThumbnailPixels int64           `mapstructure:"max_thumbnail_pixels"`
	RateLimit          RateLimitConfig `mapstructure:"rate_limit"`
}

// GetMaxFileSize 获取单文件大小上限（字节）
func (u *UploadConfig) GetMaxFileSize() int64 {
	return int64(u.MaxFileSizeMB) << 20
}

// JobsConfig 定时任务配置
type JobsConfig struct {
	OrphanSweepSpec  string `mapstructure:"orphan_sweep_spec"`
	OrphanGraceHours int    `mapstructure:"orphan_grace_hours"`
}

// GetOrphanGrace 获取孤儿文件保留时长
func (j *JobsConfig) GetOrphanGrace() time.Duration {
	return time.Duration(j.OrphanGraceHours) * time.Hour
}

// InternalAPIConfig 内部接口配置
type InternalAPIConfig struct {
	Key string `mapstructure:"key"`
}
