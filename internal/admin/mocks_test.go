package admin_test

import (
	"complaintbot/backend/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ForwardNew(rec models.ComplaintRecord) {
	m.Called(rec)
}

func (m *MockNotifier) PushStatus(reporterID int64, rec models.ComplaintRecord, status models.Status) {
	m.Called(reporterID, rec, status)
}

func (m *MockNotifier) EvidenceRelayed(rec models.ComplaintRecord) {
	m.Called(rec)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) CopyMedia(ctx context.Context, toChatID int64, media models.Media, caption string) error {
	args := m.Called(ctx, toChatID, media, caption)
	return args.Error(0)
}
