package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"matchago/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	UserID string
	Hub    *ManagerService
	Conn   *websocket.Conn
	Send   chan models.ChatMessage
	Limit  *RateLimiter
	Log    *zap.SugaredLogger

	mu        sync.Mutex
	roomID    string
	closeOnce sync.Once
}

func NewWebSocketClient(userID string, hub *ManagerService, conn *websocket.Conn,
	limit *RateLimiter, log *zap.SugaredLogger) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan models.ChatMessage, 256),
		Limit:  limit,
		Log:    log,
	}
}

func (c *WebSocketClient) GetUserID() string { return c.UserID }

func (c *WebSocketClient) GetRoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *WebSocketClient) SetRoomID(id string) {
	c.mu.Lock()
	c.roomID = id
	c.mu.Unlock()
}

func (c *WebSocketClient) GetSendChannel() chan<- models.ChatMessage { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Warnw("websocket read error", "user", c.UserID, "err", err)
			}
			return
		}

		var msg models.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.Log.Warnw("bad client payload", "user", c.UserID, "err", err)
			continue
		}
		msg.SenderID = c.UserID

		switch msg.Type {
		case models.MsgJoin:
			// The client learned its room from the match response or the
			// pending poll; from here on relay is room-scoped.
			c.SetRoomID(msg.RoomID)
			continue
		case models.MsgTyping:
			// Typing indicators bypass the rate limit; they are periodic
			// and carry no content.
		default:
			if !c.Limit.Allow() {
				c.Log.Warnw("message rate exceeded, dropping connection", "user", c.UserID)
				return
			}
		}

		msg.RoomID = c.GetRoomID()
		if msg.RoomID == "" {
			continue // not in a room yet
		}
		c.Hub.IncomingCh <- msg
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				c.Log.Warnw("message marshal failed", "user", c.UserID, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
