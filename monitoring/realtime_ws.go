package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType 消息类型
type MessageType string

const (
	PredictionEvent MessageType = "prediction"
	ReloadEvent     MessageType = "reload"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// Message 推送消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

// PredictionMessage 预测事件
type PredictionMessage struct {
	City      string    `json:"city"`
	Price     float64   `json:"price"`
	Formatted string    `json:"formatted,omitempty"`
	Cached    bool      `json:"cached"`
	Error     string    `json:"error,omitempty"`
	ModelType string    `json:"model_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReloadMessage 模型重载事件
type ReloadMessage struct {
	ModelType  string    `json:"model_type"`
	Columns    int       `json:"columns"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
}

// client WebSocket客户端
type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub WebSocket中心
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	done       chan struct{}
}

// NewHub 创建WebSocket中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run 运行WebSocket中心，直到ctx取消
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected", zap.String("client", c.id), zap.Int("total", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", zap.String("client", c.id), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Done 在Run返回后关闭
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP 处理WebSocket连接
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
		id:   uuid.NewString(),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// Publish 广播一条消息，队列满时丢弃
func (h *Hub) Publish(msgType MessageType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	message, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
		ID:        uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue is full, dropping message", zap.String("type", string(msgType)))
	}
	return nil
}

// PublishPrediction 推送预测事件
func (h *Hub) PublishPrediction(msg PredictionMessage) error {
	return h.Publish(PredictionEvent, msg)
}

// PublishReload 推送模型重载事件
func (h *Hub) PublishReload(msg ReloadMessage) error {
	return h.Publish(ReloadEvent, msg)
}

// writePump WebSocket写入泵
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取并丢弃客户端消息，用于感知断开
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}
