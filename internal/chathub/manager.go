package chathub

import (
	"context"
	"encoding/json"

	"matchago/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const roomChannelPrefix = "room:"

// CleanupFn is invoked when a client disconnects, so the matchmaking side
// can purge its queue and marker state.
type CleanupFn func(ctx context.Context, userID string)

// ManagerService is the hub: it owns the set of locally connected clients
// and relays room traffic between them. Cross-instance fan-out goes
// through one Redis pub/sub channel per room, so a message published by
// any instance reaches the sockets held by every other one. The Clients
// map is touched only inside Run, which serializes all access.
type ManagerService struct {
	Clients map[string]Client

	IncomingCh   chan models.ChatMessage
	RegisterCh   chan Client
	UnregisterCh chan Client

	Redis   *redis.Client
	Cleanup CleanupFn
	Log     *zap.SugaredLogger

	pubSubCh chan models.ChatMessage
}

func NewManagerService(rdb *redis.Client, cleanup CleanupFn, log *zap.SugaredLogger) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.ChatMessage, 64),
		RegisterCh:   make(chan Client, 16),
		UnregisterCh: make(chan Client, 16),
		Redis:        rdb,
		Cleanup:      cleanup,
		Log:          log,
		pubSubCh:     make(chan models.ChatMessage, 64),
	}
}

// Run is the hub's dispatcher loop.
func (m *ManagerService) Run(ctx context.Context) {
	m.startPubSubListener(ctx)
	m.Log.Infow("chat hub started")

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-m.RegisterCh:
			m.Clients[client.GetUserID()] = client
			m.Log.Infow("client registered", "user", client.GetUserID())

		case client := <-m.UnregisterCh:
			m.handleUnregister(ctx, client)

		case msg := <-m.IncomingCh:
			m.handleIncoming(ctx, msg)

		case msg := <-m.pubSubCh:
			m.deliverLocal(msg)
		}
	}
}

// handleIncoming publishes a client message to its room channel. Typing
// and text events are relayed identically; nothing is persisted.
func (m *ManagerService) handleIncoming(ctx context.Context, msg models.ChatMessage) {
	if msg.RoomID == "" {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		m.Log.Warnw("message marshal failed", "err", err)
		return
	}
	if err := m.Redis.Publish(ctx, roomChannelPrefix+msg.RoomID, data).Err(); err != nil {
		m.Log.Warnw("room publish failed", "room", msg.RoomID, "err", err)
	}
}

// handleUnregister drops a client, notifies its room and triggers
// matchmaking cleanup for the departing identity.
func (m *ManagerService) handleUnregister(ctx context.Context, client Client) {
	userID := client.GetUserID()
	if current, ok := m.Clients[userID]; !ok || current != client {
		return // already replaced by a newer connection
	}
	delete(m.Clients, userID)
	client.Close()

	if roomID := client.GetRoomID(); roomID != "" {
		m.handleIncoming(ctx, models.ChatMessage{
			RoomID:   roomID,
			SenderID: "system",
			Type:     models.MsgLeave,
			Content:  "Your partner left the chat.",
		})
	}
	if m.Cleanup != nil {
		m.Cleanup(ctx, userID)
	}
	m.Log.Infow("client unregistered", "user", userID)
}

// deliverLocal fans a room message out to the locally connected members
// of that room, skipping the sender's own socket.
func (m *ManagerService) deliverLocal(msg models.ChatMessage) {
	for _, client := range m.Clients {
		if client.GetRoomID() != msg.RoomID {
			continue
		}
		if client.GetUserID() == msg.SenderID {
			continue
		}
		select {
		case client.GetSendChannel() <- msg:
		default:
			// Slow consumer: drop the connection rather than block the hub.
			m.UnregisterCh <- client
		}
	}
}

// startPubSubListener subscribes to every room channel and feeds received
// messages into the dispatcher loop.
func (m *ManagerService) startPubSubListener(ctx context.Context) {
	pubsub := m.Redis.PSubscribe(ctx, roomChannelPrefix+"*")

	go func() {
		defer pubsub.Close()
		for raw := range pubsub.Channel() {
			var msg models.ChatMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				m.Log.Warnw("pubsub payload unmarshal failed", "err", err)
				continue
			}
			select {
			case m.pubSubCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
}
