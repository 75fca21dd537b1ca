package storage

import (
	"complaintbot/backend/internal/models"
	"context"
	"sync"
	"time"
)

// MemorySessions keeps conversations in process memory. State is lost on restart.
type MemorySessions struct {
	mu    sync.Mutex
	convs map[int64]models.Conversation
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{convs: make(map[int64]models.Conversation)}
}

func (m *MemorySessions) Load(ctx context.Context, reporterID int64) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.convs[reporterID]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (m *MemorySessions) Save(ctx context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.convs[conv.ReporterID] = *conv
	return nil
}

func (m *MemorySessions) Clear(ctx context.Context, reporterID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.convs, reporterID)
	return nil
}

func (m *MemorySessions) Sweep(ctx context.Context, idle time.Duration, now time.Time) (int, error) {
	if idle <= 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, conv := range m.convs {
		if now.Sub(conv.UpdatedAt) > idle {
			delete(m.convs, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored conversations.
func (m *MemorySessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}
