package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"voicedash/cmd/dashboard-service/internal/domain"
)

// 消息类型
const (
	MessageTypeWelcome = "welcome"
	MessageTypeSummary = "summary"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
)

// Subscription 订阅维度：租户 + 视图模式
type Subscription struct {
	TenantID string
	Mode     domain.ViewMode
}

// BroadcastMessage 面向订阅组的广播消息
type BroadcastMessage struct {
	Sub     Subscription
	Message []byte
}

// Hub 看板推送连接管理中心
type Hub struct {
	// 已注册的客户端
	Clients map[string]*Client

	// 客户端注册
	Register chan *Client

	// 客户端注销
	Unregister chan *Client

	// 广播消息
	Broadcast chan *BroadcastMessage

	// 按订阅维度索引的客户端
	subscribers map[Subscription]map[string]*Client

	log *log.Helper

	mu sync.RWMutex

	maxTotalConnections int
}

// HubConfig Hub 配置
type HubConfig struct {
	MaxTotalConnections int
	BroadcastBufferSize int
}

// NewHub 创建新的 Hub
func NewHub(logger log.Logger, config *HubConfig) *Hub {
	if config == nil {
		config = &HubConfig{
			MaxTotalConnections: 2000, // 大屏 + 桌面观众的总连接上限
			BroadcastBufferSize: 64,
		}
	}

	return &Hub{
		Clients:             make(map[string]*Client),
		Register:            make(chan *Client),
		Unregister:          make(chan *Client),
		Broadcast:           make(chan *BroadcastMessage, config.BroadcastBufferSize),
		subscribers:         make(map[Subscription]map[string]*Client),
		log:                 log.NewHelper(log.With(logger, "module", "ws-hub")),
		maxTotalConnections: config.MaxTotalConnections,
	}
}

// Run 运行 Hub 事件循环
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub shutting down")
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case broadcast := <-h.Broadcast:
			h.broadcastToGroup(broadcast)
		}
	}
}

// Subscriptions 返回当前至少有一个订阅者的订阅维度
func (h *Hub) Subscriptions() []Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make([]Subscription, 0, len(h.subscribers))
	for sub, clients := range h.subscribers {
		if len(clients) > 0 {
			subs = append(subs, sub)
		}
	}
	return subs
}

// ClientCount 返回当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.Clients) >= h.maxTotalConnections {
		h.log.Warnf("rejected connection: max total connections reached (%d)", h.maxTotalConnections)
		close(client.Send)
		return
	}

	h.Clients[client.ID] = client
	if _, ok := h.subscribers[client.Sub]; !ok {
		h.subscribers[client.Sub] = make(map[string]*Client)
	}
	h.subscribers[client.Sub][client.ID] = client

	h.log.Infof("client registered: client_id=%s, tenant=%s, mode=%s",
		client.ID, client.Sub.TenantID, client.Sub.Mode)

	welcome := map[string]interface{}{
		"type":      MessageTypeWelcome,
		"client_id": client.ID,
		"timestamp": time.Now().Unix(),
	}
	msgBytes, _ := json.Marshal(welcome)
	_ = client.SendMessage(msgBytes)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.Clients[client.ID]; ok {
		delete(h.Clients, client.ID)
		close(client.Send)

		if clients, ok := h.subscribers[client.Sub]; ok {
			delete(clients, client.ID)
			if len(clients) == 0 {
				delete(h.subscribers, client.Sub)
			}
		}

		h.log.Infof("client unregistered: client_id=%s, tenant=%s",
			client.ID, client.Sub.TenantID)
	}
}

// broadcastToGroup 广播给订阅组内的所有客户端
func (h *Hub) broadcastToGroup(broadcast *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.subscribers[broadcast.Sub]; ok {
		for clientID, client := range clients {
			select {
			case client.Send <- broadcast.Message:
			default:
				// 写缓冲已满，慢消费者跳过本帧
				h.log.Warnf("send buffer full, dropping frame for client %s", clientID)
			}
		}
	}
}

// closeAll 关闭所有客户端连接
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.Clients {
		close(client.Send)
		delete(h.Clients, id)
	}
	h.subscribers = make(map[Subscription]map[string]*Client)
}

// HandleMessage 处理客户端上行消息，看板客户端只有心跳
func (h *Hub) HandleMessage(client *Client, message []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		h.log.Warnf("invalid message from %s: %v", client.ID, err)
		return
	}

	switch msg.Type {
	case MessageTypePing:
		pong := map[string]interface{}{
			"type":      MessageTypePong,
			"timestamp": time.Now().Unix(),
		}
		msgBytes, _ := json.Marshal(pong)
		_ = client.SendMessage(msgBytes)
	default:
		// 看板是只读推送通道，忽略其他上行消息
	}
}
