package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/websocket"
)

// ErrSendBufferFull 发送缓冲区已满
var ErrSendBufferFull = errors.New("send buffer is full")

const (
	// writeWait 写入超时
	writeWait = 10 * time.Second

	// pongWait Pong 超时
	pongWait = 60 * time.Second

	// pingPeriod Ping 周期（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize 上行消息大小上限，看板客户端只发心跳
	maxMessageSize = 4 * 1024
)

// Client WebSocket 客户端连接
type Client struct {
	ID   string
	Sub  Subscription
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
	log  *log.Helper
	mu   sync.Mutex
}

// NewClient 创建 WebSocket 客户端
func NewClient(id string, sub Subscription, conn *websocket.Conn, hub *Hub, logger log.Logger) *Client {
	return &Client{
		ID:   id,
		Sub:  sub,
		Conn: conn,
		Send: make(chan []byte, 16),
		Hub:  hub,
		log:  log.NewHelper(log.With(logger, "module", "ws-client", "client_id", id)),
	}
}

// ReadPump 从连接读取上行消息
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Errorf("websocket error: %v", err)
			}
			break
		}

		c.Hub.HandleMessage(c, message)
	}
}

// WritePump 向连接写入下行消息，每帧一条完整 JSON
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 非阻塞发送，缓冲满时返回错误
func (c *Client) SendMessage(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case c.Send <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}
