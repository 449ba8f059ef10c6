package service

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"corp_learning_backend/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// 推送给学员的事件类型
const (
	EventTick      = "TICK"
	EventFinalized = "FINALIZED"
	EventAbandoned = "ABANDONED"
	EventAnswered  = "ANSWERED"
	EventError     = "ERROR"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// inboundMessage 学员通过 websocket 发来的作答
type inboundMessage struct {
	Type string `json:"type"`
	Data struct {
		QuestionID        string   `json:"questionId"`
		SelectedOptionIDs []string `json:"selectedOptionIds"`
	} `json:"data"`
}

// EventPublisher 作答事件的推送出口
type EventPublisher interface {
	Publish(userID string, msg WSMessage)
}

type wsClient struct {
	hub     *AttemptHub
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	limiter *rate.Limiter
}

// AttemptHub 按学员维护 websocket 连接，一个学员可同时打开多个页面
type AttemptHub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

func NewAttemptHub() *AttemptHub {
	return &AttemptHub{clients: make(map[string]map[*wsClient]struct{})}
}

func (h *AttemptHub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *AttemptHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Publish 非阻塞推送；发送队列已满的连接直接丢弃本条消息
func (h *AttemptHub) Publish(userID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("WebSocket marshal error", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			logger.Log.Warn("WebSocket send buffer full", zap.String("userId", userID), zap.String("type", msg.Type))
		}
	}
}

func (h *AttemptHub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS 升级连接并启动读写协程；onAnswer 处理学员上行的作答消息
func (h *AttemptHub) ServeWS(w http.ResponseWriter, r *http.Request, userID string, onAnswer func(questionID string, selected []string) error) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &wsClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	h.register(c)

	go c.writePump()
	go c.readPump(onAnswer)
	return nil
}

func (c *wsClient) readPump(onAnswer func(string, []string) error) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.String("userId", c.userID))
			}
			break
		}

		if !c.limiter.Allow() {
			continue
		}

		var in inboundMessage
		if err := json.Unmarshal(message, &in); err != nil || in.Type != "ANSWER" {
			continue
		}
		if err := onAnswer(in.Data.QuestionID, in.Data.SelectedOptionIDs); err != nil {
			c.hub.Publish(c.userID, WSMessage{Type: EventError, Data: err.Error()})
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
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

// Close 关闭全部连接，读协程随后自行注销
func (h *AttemptHub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
	}
}
