package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/cmd/dashboard-service/internal/middleware"
	"voicedash/cmd/dashboard-service/internal/websocket"
)

// newUpgrader 创建带 Origin 校验的升级器。白名单为空时全部放行。
func newUpgrader(allowedOrigins []string) *gorillaws.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// 非浏览器客户端不带 Origin
			if origin == "" {
				return true
			}
			if len(allowed) == 0 {
				return true
			}
			return allowed[origin]
		},
	}
}

// handleDashboardWS 升级 WebSocket 连接并挂入推送 Hub
func (s *HTTPServer) handleDashboardWS(c *gin.Context) {
	tenantID, ok := s.requireTenant(c)
	if !ok {
		return
	}

	mode, err := domain.ParseViewMode(c.DefaultQuery("mode", "desktop"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade to WebSocket",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return
	}

	sub := websocket.Subscription{TenantID: tenantID, Mode: mode}
	client := websocket.NewClient(uuid.New().String(), sub, conn, s.hub, s.wsLogger)

	s.hub.Register <- client
	middleware.IncWebSocketConnections(tenantID, string(mode))

	go client.WritePump()
	go func() {
		// ReadPump 阻塞到连接断开
		client.ReadPump()
		middleware.DecWebSocketConnections(tenantID, string(mode))
	}()

	// 连接建立后立即推送一帧首屏数据，不等下一个刷新周期
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.broadcaster.PushTo(ctx, client)
	}()
}
