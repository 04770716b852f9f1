package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gen-gallery/internal/config"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"internal": middleware.IsInternal(c)})
	})
	r.GET("/", handlers...)
	return r
}

func serve(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInternalOrUserAuth(t *testing.T) {
	jwtManager := utils.NewJWTManager("secret", "HS256", time.Hour)
	r := newEngine(middleware.InternalOrUserAuth("k", jwtManager))

	w := serve(r, map[string]string{"X-Internal-API-Key": "k"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"internal":true}`, w.Body.String())

	w = serve(r, map[string]string{"X-Internal-API-Key": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _ := jwtManager.GenerateToken(3, "alice", false)
	w = serve(r, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"internal":false}`, w.Body.String())

	w = serve(r, map[string]string{"Authorization": "Token " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInternalAPIAuth_EmptyKeyRejectsAll(t *testing.T) {
	r := newEngine(middleware.InternalAPIAuth(""))
	w := serve(r, map[string]string{"X-Internal-API-Key": ""})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddleware(t *testing.T) {
	jwtManager := utils.NewJWTManager("secret", "HS256", time.Hour)
	r := newEngine(middleware.AuthMiddleware(jwtManager), middleware.AdminMiddleware())

	token, _ := jwtManager.GenerateToken(3, "alice", false)
	w := serve(r, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusForbidden, w.Code)

	token, _ = jwtManager.GenerateToken(1, "admin", true)
	w = serve(r, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS(&config.CORSConfig{
		Origins:      []string{"http://app.test"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization"},
	}))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
