package chathub

import (
	"sync"

	"matchago/backend/internal/models"
)

// mockClient is a transport-free Client for hub tests.
type mockClient struct {
	userID string
	send   chan models.ChatMessage

	mu     sync.Mutex
	roomID string
	closed bool
}

func newMockClient(userID string) *mockClient {
	return &mockClient{
		userID: userID,
		send:   make(chan models.ChatMessage, 8),
	}
}

func (c *mockClient) GetUserID() string { return c.userID }

func (c *mockClient) GetRoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *mockClient) SetRoomID(id string) {
	c.mu.Lock()
	c.roomID = id
	c.mu.Unlock()
}

func (c *mockClient) GetSendChannel() chan<- models.ChatMessage { return c.send }

func (c *mockClient) Run() {}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
