package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicedash/pkg/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := NewJWTManager(&JWTConfig{
		SecretKey:     "test-secret",
		TokenDuration: time.Hour,
		SkipPaths:     []string{"/health"},
	}, log.DefaultLogger)

	router := gin.New()
	router.Use(manager.Middleware())
	router.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/api/v1/dashboard/live", func(c *gin.Context) {
		c.JSON(200, gin.H{"tenant_id": c.GetString("tenant_id"), "user_id": c.GetString("user_id")})
	})
	return router, manager
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	router, manager := newAuthRouter(t)

	token, err := manager.GenerateToken("user-1", "tenant-1", "viewer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/live", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"tenant-1"`)
	assert.Contains(t, w.Body.String(), `"user_id":"user-1"`)
}

func TestJWTMiddlewareTokenFromQuery(t *testing.T) {
	router, manager := newAuthRouter(t)

	token, err := manager.GenerateToken("user-1", "tenant-1", "viewer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/live?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	router, _ := newAuthRouter(t)

	wrongManager := NewJWTManager(&JWTConfig{SecretKey: "other-secret", TokenDuration: time.Hour}, log.DefaultLogger)
	forged, err := wrongManager.GenerateToken("user-1", "tenant-1", "viewer")
	require.NoError(t, err)

	expired := NewJWTManager(&JWTConfig{SecretKey: "test-secret", TokenDuration: -time.Hour}, log.DefaultLogger)
	expiredToken, err := expired.GenerateToken("user-1", "tenant-1", "viewer")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"缺少凭证", ""},
		{"格式错误", "Token abc"},
		{"伪造签名", "Bearer " + forged},
		{"已过期", "Bearer " + expiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/live", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestJWTMiddlewareSkipsHealthPath(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMiddlewareDisplayKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashDisplayKey("lobby-tv")
	require.NoError(t, err)

	manager := NewJWTManager(&JWTConfig{
		SecretKey:     "test-secret",
		TokenDuration: time.Hour,
		DisplayKeys: auth.NewDisplayKeyVerifier([]auth.DisplayKey{
			{TenantID: "tenant-tv", Hash: hash},
		}),
	}, log.DefaultLogger)

	router := gin.New()
	router.Use(manager.Middleware())
	router.GET("/summary", func(c *gin.Context) {
		c.JSON(200, gin.H{"tenant_id": c.GetString("tenant_id"), "role": c.GetString("role")})
	})

	t.Run("请求头传密钥", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/summary", nil)
		req.Header.Set("X-API-Key", "lobby-tv")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"tenant_id":"tenant-tv"`)
		assert.Contains(t, w.Body.String(), `"role":"display"`)
	})

	t.Run("query 传密钥", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/summary?display_key=lobby-tv", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("密钥错误", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/summary", nil)
		req.Header.Set("X-API-Key", "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("未配置密钥时走 JWT 校验", func(t *testing.T) {
		plain := NewJWTManager(&JWTConfig{SecretKey: "test-secret", TokenDuration: time.Hour}, log.DefaultLogger)
		plainRouter := gin.New()
		plainRouter.Use(plain.Middleware())
		plainRouter.GET("/summary", func(c *gin.Context) { c.Status(200) })

		req := httptest.NewRequest(http.MethodGet, "/summary", nil)
		req.Header.Set("X-API-Key", "lobby-tv")
		w := httptest.NewRecorder()
		plainRouter.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTenantResolverPrecedence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(defaultTenant string, pre gin.HandlerFunc) *gin.Engine {
		router := gin.New()
		if pre != nil {
			router.Use(pre)
		}
		router.Use(TenantResolver(defaultTenant))
		router.GET("/t", func(c *gin.Context) {
			c.String(200, TenantFrom(c))
		})
		return router
	}

	t.Run("claims 优先", func(t *testing.T) {
		router := newRouter("fallback", func(c *gin.Context) { c.Set("tenant_id", "from-claims") })
		req := httptest.NewRequest(http.MethodGet, "/t?tenant_id=from-query", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "from-claims", w.Body.String())
	})

	t.Run("query 其次", func(t *testing.T) {
		router := newRouter("fallback", nil)
		req := httptest.NewRequest(http.MethodGet, "/t?tenant_id=from-query", nil)
		req.Header.Set(TenantHeader, "from-header")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "from-query", w.Body.String())
	})

	t.Run("header 再次", func(t *testing.T) {
		router := newRouter("fallback", nil)
		req := httptest.NewRequest(http.MethodGet, "/t", nil)
		req.Header.Set(TenantHeader, "from-header")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "from-header", w.Body.String())
	})

	t.Run("默认兜底", func(t *testing.T) {
		router := newRouter("fallback", nil)
		req := httptest.NewRequest(http.MethodGet, "/t", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "fallback", w.Body.String())
	})
}
