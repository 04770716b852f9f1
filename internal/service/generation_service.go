package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gen-gallery/internal/config"
	"gen-gallery/internal/dto"
	"gen-gallery/pkg/image_caller"
	"gen-gallery/pkg/redis_limiter"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
	"golang.org/x/sync/errgroup"
)

const maxSeed = 1000000

var generateShortID = shortid.Generate

// RateLimiter 限流接口
type RateLimiter interface {
	Limit(ctx context.Context, identifier string) (*redis_limiter.Result, error)
}

// ImageSynthesizer 文生图接口
type ImageSynthesizer interface {
	Generate(ctx context.Context, model string, opts *image_caller.GenerateOptions) (*image_caller.GeneratedImage, error)
}

// GenerationResult 单次生成结果
type GenerationResult struct {
	Model     string
	Image     string
	Elapsed   time.Duration
	RateLimit *redis_limiter.Result
}

// GenerationService 文生图服务
type GenerationService struct {
	synthesizer ImageSynthesizer
	limiter     RateLimiter
	cfg         *config.GenerationConfig
	logger      logrus.FieldLogger
	allowed     map[string]struct{}
	width       int
	height      int
	now         func() time.Time
}

// NewGenerationService 创建文生图服务
func NewGenerationService(synthesizer ImageSynthesizer, limiter RateLimiter, cfg *config.GenerationConfig, logger logrus.FieldLogger) (*GenerationService, error) {
	width, height, err := image_caller.ParseSize(cfg.Size)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(cfg.Models))
	for _, m := range cfg.Models {
		allowed[m] = struct{}{}
	}

	return &GenerationService{
		synthesizer: synthesizer,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
		allowed:     allowed,
		width:       width,
		height:      height,
		now:         time.Now,
	}, nil
}

// Models 可用模型列表
func (s *GenerationService) Models() *dto.ModelListResponse {
	return &dto.ModelListResponse{
		Models:       s.cfg.Models,
		DefaultModel: s.cfg.DefaultModel,
		MaxPerBatch:  s.cfg.MaxModelsPerRequest,
	}
}

// Generate 使用单个模型生成图片
func (s *GenerationService) Generate(ctx context.Context, identity, prompt, model string) (*GenerationResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, validationError("提示词不能为空")
	}
	if model == "" {
		model = s.cfg.DefaultModel
	}
	if err := s.checkModel(model); err != nil {
		return nil, err
	}

	return s.generateOne(ctx, identity, prompt, model)
}

// GenerateBatch 并行调用多个模型，单个模型失败不影响其他模型
func (s *GenerationService) GenerateBatch(ctx context.Context, identity, prompt string, models []string) (*dto.BatchGenerateResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, validationError("提示词不能为空")
	}
	if len(models) == 0 || len(models) > s.cfg.MaxModelsPerRequest {
		return nil, validationError("模型数量必须在 1 到 %d 之间", s.cfg.MaxModelsPerRequest)
	}

	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		if _, dup := seen[m]; dup {
			return nil, validationError("模型重复: %s", m)
		}
		seen[m] = struct{}{}
		if err := s.checkModel(m); err != nil {
			return nil, err
		}
	}

	results := make([]*GenerationResult, len(models))
	errs := make([]error, len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxModelsPerRequest)
	for i, m := range models {
		i, m := i, m
		g.Go(func() error {
			results[i], errs[i] = s.generateOne(gctx, identity, prompt, m)
			return nil
		})
	}
	_ = g.Wait()

	resp := &dto.BatchGenerateResponse{
		Images: make([]dto.BatchImage, 0, len(models)),
		Errors: make([]dto.BatchError, 0),
	}
	for i, m := range models {
		if errs[i] != nil {
			resp.Errors = append(resp.Errors, dto.BatchError{Model: m, Error: errs[i].Error()})
			continue
		}
		resp.Images = append(resp.Images, dto.BatchImage{
			Model:     m,
			Image:     results[i].Image,
			ElapsedMs: results[i].Elapsed.Milliseconds(),
		})
	}

	return resp, nil
}

// newRequestID 生成请求ID，shortid 失败时退回UUID
func (s *GenerationService) newRequestID() string {
	id, err := generateShortID()
	if err != nil || id == "" {
		s.logger.WithError(err).Warn("生成shortid失败，改用UUID")
		return uuid.NewString()
	}
	return id
}

func (s *GenerationService) checkModel(model string) error {
	if _, ok := s.allowed[model]; !ok {
		return validationError("不支持的模型: %s", model)
	}
	return nil
}

// generateOne 消耗一次限流配额并调用模型
func (s *GenerationService) generateOne(ctx context.Context, identity, prompt, model string) (*GenerationResult, error) {
	requestID := s.newRequestID()
	entry := s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"model":      model,
		"identity":   identity,
	})

	limit, err := s.limiter.Limit(ctx, identity)
	if err != nil {
		entry.WithError(err).Error("限流检查失败")
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}
	if !limit.Success {
		entry.WithField("reset", limit.Reset).Warn("请求被限流")
		return nil, NewRateLimitError(limit, s.now())
	}

	start := s.now()
	img, err := s.synthesizer.Generate(ctx, model, &image_caller.GenerateOptions{
		Prompt: prompt,
		Seed:   rand.Intn(maxSeed),
		Width:  s.width,
		Height: s.height,
	})
	elapsed := s.now().Sub(start)
	if err != nil {
		entry.WithError(err).WithField("elapsed", elapsed).Error("图片生成失败")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	entry.WithFields(logrus.Fields{
		"elapsed":   elapsed,
		"bytes":     len(img.Data),
		"remaining": limit.Remaining,
	}).Info("图片生成完成")

	return &GenerationResult{
		Model:     model,
		Image:     base64.StdEncoding.EncodeToString(img.Data),
		Elapsed:   elapsed,
		RateLimit: limit,
	}, nil
}
