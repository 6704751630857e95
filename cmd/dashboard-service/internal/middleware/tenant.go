package middleware

import (
	"github.com/gin-gonic/gin"
)

// TenantHeader 租户头名称
const TenantHeader = "X-Tenant-ID"

// TenantResolver 解析请求的租户并写入 gin 上下文。
// 优先级：JWT claims > tenant_id query 参数 > X-Tenant-ID 头 > 默认租户。
// 解析不到时不拦截，由各 handler 决定是否必填。
func TenantResolver(defaultTenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("tenant_id") != "" {
			// 认证中间件已从 claims 注入
			c.Next()
			return
		}

		tenantID := c.Query("tenant_id")
		if tenantID == "" {
			tenantID = c.GetHeader(TenantHeader)
		}
		if tenantID == "" {
			tenantID = defaultTenant
		}
		if tenantID != "" {
			c.Set("tenant_id", tenantID)
		}

		c.Next()
	}
}

// TenantFrom 读取已解析的租户
func TenantFrom(c *gin.Context) string {
	return c.GetString("tenant_id")
}
