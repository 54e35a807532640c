package alert

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"coco/internal/consts"
	"coco/internal/model"
	"coco/internal/service"
	"coco/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// keepalive的ping间隔
const pingPeriod = 30 * time.Second
const pongWait = 60 * time.Second

// client send buffer
const sendBufSize = 256

var _ service.InAppPublisher = (*Gateway)(nil)

// Gateway 站内提醒的 websocket 连接，按用户分组；同一 client_id 重连时替换旧连接
type Gateway struct {
	ns service.NotificationService
	// map[userId]map[clientId]*ClientConn
	mu      sync.RWMutex
	clients map[string]map[string]*ClientConn

	upgrader websocket.Upgrader
}

func NewGateway(ns service.NotificationService) *Gateway {
	return &Gateway{
		ns:      ns,
		clients: make(map[string]map[string]*ClientConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// pushFrame 下发给客户端的消息
type pushFrame struct {
	Type string             `json:"type"` // notification
	Data model.DeliveryTask `json:"data"`
}

// clientFrame 客户端上行消息，目前只有 ack
type clientFrame struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	CoinID string `json:"coinId"`
}

// ServeWS GET /alerts/ws?client_id=
func (g *Gateway) ServeWS(c *gin.Context) {
	userId := c.GetString(consts.UserID)
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = c.Request.RemoteAddr
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("alert gateway upgrade error: %v", err)
		return
	}
	client := &ClientConn{
		UserID:   userId,
		ClientID: clientID,
		Conn:     conn,
		Send:     make(chan []byte, sendBufSize),
	}

	var oldClient *ClientConn
	g.mu.Lock()
	conns, ok := g.clients[userId]
	if !ok {
		conns = make(map[string]*ClientConn)
		g.clients[userId] = conns
	}
	if existing, ok := conns[clientID]; ok {
		oldClient = existing
	}
	conns[clientID] = client
	g.mu.Unlock()

	if oldClient != nil {
		// 异步关闭，防止阻塞ServeWS
		go oldClient.Close()
		logger.Debugf("alert gateway: client %s/%s reconnected, old connection closed", userId, clientID)
	}

	defer func() {
		g.mu.Lock()
		if conns, ok := g.clients[userId]; ok {
			if current, ok := conns[clientID]; ok && current == client {
				delete(conns, clientID)
				if len(conns) == 0 {
					delete(g.clients, userId)
				}
			}
		}
		g.mu.Unlock()
		client.Close()
	}()

	go client.writePump()
	client.readPump(g)
}

// Publish 发给用户的所有在线连接，返回成功写入的连接数
func (g *Gateway) Publish(userId string, task model.DeliveryTask) int {
	data, err := json.Marshal(pushFrame{Type: "notification", Data: task})
	if err != nil {
		logger.Errorf("encode in-app notification: %v", err)
		return 0
	}
	g.mu.RLock()
	targets := make([]*ClientConn, 0, len(g.clients[userId]))
	for _, c := range g.clients[userId] {
		targets = append(targets, c)
	}
	g.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.safeSend(data) {
			sent++
		}
	}
	return sent
}

// Online 用户当前的连接数
func (g *Gateway) Online(userId string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients[userId])
}

func (g *Gateway) handleFrame(c *ClientConn, msg []byte) {
	var f clientFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		logger.Debugf("alert gateway: bad frame from %s: %v", c.UserID, err)
		return
	}
	if f.Action != "ack" || g.ns == nil {
		return
	}
	ctx, cancel := contextWithTimeout()
	defer cancel()
	switch {
	case f.ID != "":
		id, err := strconv.ParseInt(f.ID, 10, 64)
		if err != nil {
			return
		}
		if _, err := g.ns.Acknowledge(ctx, c.UserID, id); err != nil {
			logger.Debugf("alert gateway: ack %d for %s: %v", id, c.UserID, err)
		}
	case f.CoinID != "":
		if _, err := g.ns.AcknowledgeAllForCoin(ctx, c.UserID, f.CoinID); err != nil {
			logger.Debugf("alert gateway: ack coin %s for %s: %v", f.CoinID, c.UserID, err)
		}
	}
}
