package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gen-gallery/internal/service"
	"gen-gallery/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rateLimited := service.NewRateLimitError(&redis_limiter.Result{
		Success: false,
		Limit:   10,
		Reset:   time.Now().Add(10 * time.Minute).UnixMilli(),
	}, time.Now())

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: 提示词不能为空", service.ErrValidation), http.StatusBadRequest},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"prompt not found", service.ErrPromptNotFound, http.StatusNotFound},
		{"store unavailable", fmt.Errorf("%w: dial tcp", service.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"upstream", fmt.Errorf("%w: 422", service.ErrUpstream), http.StatusInternalServerError},
		{"rate limited", rateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestRespondError_RateLimitHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	reset := time.Now().Add(5 * time.Minute).UnixMilli()
	respondError(c, service.NewRateLimitError(&redis_limiter.Result{Limit: 10, Reset: reset}, time.Now()))

	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "5 分钟后重试")
}
