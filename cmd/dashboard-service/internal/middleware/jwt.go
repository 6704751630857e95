package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/golang-jwt/jwt/v5"

	"voicedash/pkg/auth"
	httperrors "voicedash/pkg/errors"
)

// JWTManager JWT 管理器
type JWTManager struct {
	secretKey     string
	tokenDuration time.Duration
	skipPaths     []string
	apiKeyHeader  string
	displayKeys   *auth.DisplayKeyVerifier
	logger        *log.Helper
}

// Claims JWT Claims
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey     string
	TokenDuration time.Duration
	SkipPaths     []string
	// APIKeyHeader 大屏密钥的请求头名，空值用 X-API-Key
	APIKeyHeader string
	// DisplayKeys 大屏免 JWT 认证的密钥校验器，可为 nil
	DisplayKeys *auth.DisplayKeyVerifier
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(config *JWTConfig, logger log.Logger) *JWTManager {
	if config == nil {
		config = &JWTConfig{
			SecretKey:     "default-secret-key",
			TokenDuration: 24 * time.Hour,
			SkipPaths:     []string{"/health", "/ready", "/metrics"},
		}
	}
	apiKeyHeader := config.APIKeyHeader
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}

	return &JWTManager{
		secretKey:     config.SecretKey,
		tokenDuration: config.TokenDuration,
		skipPaths:     config.SkipPaths,
		apiKeyHeader:  apiKeyHeader,
		displayKeys:   config.DisplayKeys,
		logger:        log.NewHelper(log.With(logger, "module", "jwt")),
	}
}

// Middleware JWT 认证中间件
// 大屏客户端可用预置 display key 代替 JWT。
func (m *JWTManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if m.shouldSkip(path) {
			c.Next()
			return
		}

		if key := m.displayKeyFrom(c); key != "" {
			tenantID, ok := m.displayKeys.Lookup(key)
			if !ok {
				m.logger.Warn("Invalid display key")
				abortUnauthorized(c, "invalid display key")
				return
			}
			c.Set("tenant_id", tenantID)
			c.Set("role", "display")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 大屏 WebSocket 客户端无法带 Authorization 头，允许 query 传 token
			authHeader = tokenFromQuery(c)
		}
		if authHeader == "" {
			m.logger.Warn("Missing authorization header")
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.logger.Warn("Invalid authorization format")
			abortUnauthorized(c, "invalid authorization format, expected 'Bearer <token>'")
			return
		}

		claims, err := m.VerifyToken(parts[1])
		if err != nil {
			m.logger.Warnf("Invalid token: %v", err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("role", claims.Role)

		m.logger.Debugf("Authenticated: user=%s, tenant=%s, role=%s", claims.UserID, claims.TenantID, claims.Role)

		c.Next()
	}
}

// VerifyToken 验证 JWT token
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}

// GenerateToken 生成 JWT token（用于测试或集成）
func (m *JWTManager) GenerateToken(userID, tenantID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "dashboard-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// shouldSkip 检查是否应该跳过认证
func (m *JWTManager) shouldSkip(path string) bool {
	for _, skipPath := range m.skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// tokenFromQuery 从 query 参数取 token，返回统一的 Bearer 形式
func tokenFromQuery(c *gin.Context) string {
	token := c.Query("token")
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

// displayKeyFrom 取出大屏密钥。电视端改不了请求头，也接受 query 传入。
func (m *JWTManager) displayKeyFrom(c *gin.Context) string {
	if !m.displayKeys.HasKeys() {
		return ""
	}
	if key := c.GetHeader(m.apiKeyHeader); key != "" {
		return key
	}
	return c.Query("display_key")
}

// abortUnauthorized 以统一错误格式中断请求
func abortUnauthorized(c *gin.Context, message string) {
	resp := httperrors.Unauthorized(message)
	c.AbortWithStatusJSON(resp.Code, resp)
}
