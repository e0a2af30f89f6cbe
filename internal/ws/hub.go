package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"slots-server/common/logger"
)

// client 单个 WebSocket 连接
// gorilla/websocket 不允许并发写，同连接的写操作用互斥锁串行化
type client struct {
	conn        *websocket.Conn
	accountID   string
	displayName string
	writeMu     sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub 管理全部在线连接，支持全员广播
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub 构造连接中枢
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Info("ws client connected",
		zap.String("account_id", c.accountID),
		zap.Int("online", n))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	logger.Info("ws client disconnected",
		zap.String("account_id", c.accountID),
		zap.Int("online", n))
}

// Online 返回当前在线连接数
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// bigWinMessage 构造大奖广播消息；只含展示名与派彩，不含账户标识
func bigWinMessage(displayName, roundID string, payout int64) BigWinMsg {
	return BigWinMsg{
		Type:        "big_win",
		DisplayName: displayName,
		RoundID:     roundID,
		Payout:      payout,
	}
}

// BroadcastBigWin 向所有在线连接广播大奖事件
func (h *Hub) BroadcastBigWin(displayName, roundID string, payout int64) {
	h.broadcast(bigWinMessage(displayName, roundID, payout))
}

func (h *Hub) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.writeMu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, b)
		c.writeMu.Unlock()
		if err != nil {
			logger.Warn("ws broadcast write failed",
				zap.String("account_id", c.accountID),
				zap.Error(err))
		}
	}
}
