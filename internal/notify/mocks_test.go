package notify_test

import (
	"complaintbot/backend/internal/models"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, reply models.Reply) error {
	args := m.Called(ctx, reply)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event models.FeedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

type recordingFeed struct {
	mu     sync.Mutex
	events []models.FeedEvent
}

func (f *recordingFeed) Broadcast(ctx context.Context, event models.FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *recordingFeed) Events() []models.FeedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FeedEvent(nil), f.events...)
}
