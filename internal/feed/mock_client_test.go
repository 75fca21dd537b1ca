package feed_test

import (
	"complaintbot/backend/internal/models"
	"sync/atomic"
)

type MockClient struct {
	id          string
	RecvChannel chan models.FeedEvent
	closed      atomic.Bool
}

func newMockClient(id string, buffer int) *MockClient {
	return &MockClient{
		id:          id,
		RecvChannel: make(chan models.FeedEvent, buffer),
	}
}

func (c *MockClient) GetClientID() string                     { return c.id }
func (c *MockClient) GetSendChannel() chan<- models.FeedEvent { return c.RecvChannel }
func (c *MockClient) Run()                                    {}
func (c *MockClient) Close()                                  { c.closed.Store(true) }
