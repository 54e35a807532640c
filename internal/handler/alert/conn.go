package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"coco/pkg/logger"

	"github.com/gorilla/websocket"
)

// 连续丢弃超过该数量时关闭慢消费者
const maxDropped = 200

type ClientConn struct {
	UserID   string
	ClientID string
	Conn     *websocket.Conn
	Send     chan []byte

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once

	DroppedCount int32
	LastSuccess  int64
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

// writePump 负责写入到 websocket （包括 ping）
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debugf("alert gateway write error: %v", err)
				return
			}
			atomic.StoreInt64(&c.LastSuccess, time.Now().UnixNano())
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debugf("alert gateway ping error: %v", err)
				return
			}
		}
	}
}

// readPump 读取客户端消息（心跳、ack），阻塞直到连接断开
func (c *ClientConn) readPump(g *Gateway) {
	c.Conn.SetReadLimit(64 * 1024)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		g.handleFrame(c, msg)
	}
}

// safeSend 非阻塞发送，通道满时计数
func (c *ClientConn) safeSend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		atomic.StoreInt32(&c.DroppedCount, 0)
		return true
	default:
		if cnt := atomic.AddInt32(&c.DroppedCount, 1); cnt > maxDropped {
			logger.Warnf("alert gateway: client %s/%s dropped > %d, closing", c.UserID, c.ClientID, maxDropped)
			go c.Close()
		}
		return false
	}
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
