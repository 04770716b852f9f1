package service_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gen-gallery/internal/config"
	"gen-gallery/internal/service"
	"gen-gallery/pkg/image_caller"
	"gen-gallery/pkg/redis_limiter"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSynthesizer returns fixed bytes per model, or an error for models listed in failures
type stubSynthesizer struct {
	failures map[string]error
	calls    int32
	lastOpts atomic.Value
}

func (s *stubSynthesizer) Generate(ctx context.Context, model string, opts *image_caller.GenerateOptions) (*image_caller.GeneratedImage, error) {
	atomic.AddInt32(&s.calls, 1)
	s.lastOpts.Store(*opts)
	if err, ok := s.failures[model]; ok {
		return nil, err
	}
	return &image_caller.GeneratedImage{Data: []byte("img:" + model), ContentType: "image/png"}, nil
}

// stubLimiter allows the first quota calls and rejects the rest
type stubLimiter struct {
	quota int32
	used  int32
	reset int64
	err   error
}

func (l *stubLimiter) Limit(ctx context.Context, identifier string) (*redis_limiter.Result, error) {
	if l.err != nil {
		return nil, l.err
	}
	n := atomic.AddInt32(&l.used, 1)
	if n > l.quota {
		return &redis_limiter.Result{Success: false, Limit: int(l.quota), Remaining: 0, Reset: l.reset}, nil
	}
	return &redis_limiter.Result{Success: true, Limit: int(l.quota), Remaining: int(l.quota - n), Reset: l.reset}, nil
}

func generationConfig() *config.GenerationConfig {
	return &config.GenerationConfig{
		Models:              []string{"owner/model-a", "owner/model-b", "owner/model-c"},
		DefaultModel:        "owner/model-a",
		Size:                "512x768",
		MaxModelsPerRequest: 4,
	}
}

func newGenerationService(t *testing.T, synth *stubSynthesizer, limiter *stubLimiter) *service.GenerationService {
	logger, _ := test.NewNullLogger()
	svc, err := service.NewGenerationService(synth, limiter, generationConfig(), logger)
	require.NoError(t, err)
	return svc
}

func TestGenerate_DefaultModelAndOptions(t *testing.T) {
	synth := &stubSynthesizer{}
	svc := newGenerationService(t, synth, &stubLimiter{quota: 10})

	res, err := svc.Generate(context.Background(), "1.2.3.4", "  a red fox  ", "")
	require.NoError(t, err)
	assert.Equal(t, "owner/model-a", res.Model)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img:owner/model-a")), res.Image)
	assert.Equal(t, 9, res.RateLimit.Remaining)

	opts := synth.lastOpts.Load().(image_caller.GenerateOptions)
	assert.Equal(t, "a red fox", opts.Prompt)
	assert.Equal(t, 512, opts.Width)
	assert.Equal(t, 768, opts.Height)
	assert.GreaterOrEqual(t, opts.Seed, 0)
	assert.Less(t, opts.Seed, 1000000)
}

func TestGenerate_Validation(t *testing.T) {
	synth := &stubSynthesizer{}
	limiter := &stubLimiter{quota: 10}
	svc := newGenerationService(t, synth, limiter)

	_, err := svc.Generate(context.Background(), "ip", "   ", "")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Generate(context.Background(), "ip", "fox", "someone/unknown")
	assert.ErrorIs(t, err, service.ErrValidation)

	assert.EqualValues(t, 0, atomic.LoadInt32(&limiter.used))
	assert.EqualValues(t, 0, atomic.LoadInt32(&synth.calls))
}

func TestGenerate_RateLimited(t *testing.T) {
	synth := &stubSynthesizer{}
	reset := time.Now().Add(90 * time.Second).UnixMilli()
	svc := newGenerationService(t, synth, &stubLimiter{quota: 1, reset: reset})

	_, err := svc.Generate(context.Background(), "ip", "fox", "")
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "ip", "fox", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrRateLimited)

	var rlErr *service.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 2, rlErr.RetryMinutes())
	assert.Contains(t, rlErr.Error(), "2 分钟")
	assert.EqualValues(t, 1, atomic.LoadInt32(&synth.calls))
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	synth := &stubSynthesizer{failures: map[string]error{"owner/model-a": errors.New("boom")}}
	svc := newGenerationService(t, synth, &stubLimiter{quota: 10})

	_, err := svc.Generate(context.Background(), "ip", "fox", "owner/model-a")
	assert.ErrorIs(t, err, service.ErrUpstream)
}

func TestGenerateBatch_PartialFailure(t *testing.T) {
	synth := &stubSynthesizer{failures: map[string]error{
		"owner/model-b": &image_caller.APIError{StatusCode: 422, Body: "invalid input"},
	}}
	svc := newGenerationService(t, synth, &stubLimiter{quota: 10})

	resp, err := svc.GenerateBatch(context.Background(), "ip", "a red fox", []string{"owner/model-a", "owner/model-b"})
	require.NoError(t, err)

	require.Len(t, resp.Images, 1)
	assert.Equal(t, "owner/model-a", resp.Images[0].Model)
	assert.NotEmpty(t, resp.Images[0].Image)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "owner/model-b", resp.Errors[0].Model)
	assert.Contains(t, resp.Errors[0].Error, "422")
}

func TestGenerateBatch_EachModelConsumesQuota(t *testing.T) {
	synth := &stubSynthesizer{}
	limiter := &stubLimiter{quota: 2, reset: time.Now().Add(time.Hour).UnixMilli()}
	svc := newGenerationService(t, synth, limiter)

	resp, err := svc.GenerateBatch(context.Background(), "ip", "fox", []string{"owner/model-a", "owner/model-b", "owner/model-c"})
	require.NoError(t, err)
	assert.Len(t, resp.Images, 2)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Error, "分钟后重试")
	assert.EqualValues(t, 3, atomic.LoadInt32(&limiter.used))
}

func TestGenerateBatch_Validation(t *testing.T) {
	svc := newGenerationService(t, &stubSynthesizer{}, &stubLimiter{quota: 10})
	ctx := context.Background()

	cases := map[string][]string{
		"empty":     {},
		"duplicate": {"owner/model-a", "owner/model-a"},
		"unknown":   {"owner/model-a", "x/y"},
		"too many":  {"owner/model-a", "owner/model-b", "owner/model-c", "owner/model-d", "owner/model-e"},
	}
	for name, models := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.GenerateBatch(ctx, "ip", "fox", models)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestModels(t *testing.T) {
	svc := newGenerationService(t, &stubSynthesizer{}, &stubLimiter{quota: 10})
	models := svc.Models()
	assert.Len(t, models.Models, 3)
	assert.Equal(t, "owner/model-a", models.DefaultModel)
	assert.Equal(t, 4, models.MaxPerBatch)
}
