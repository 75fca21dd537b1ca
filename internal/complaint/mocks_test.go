package complaint_test

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

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Append(ctx context.Context, rec *models.ComplaintRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordStore) ReadAll(ctx context.Context) ([]models.ComplaintRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.ComplaintRecord), args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, id int64) (*models.ComplaintRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*models.ComplaintRecord)
	return rec, args.Error(1)
}

func (m *MockRecordStore) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error) {
	args := m.Called(ctx, id, status)
	rec, _ := args.Get(0).(*models.ComplaintRecord)
	return rec, args.Error(1)
}

func (m *MockRecordStore) FilterByStatus(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]models.ComplaintRecord), args.Error(1)
}

func (m *MockRecordStore) Close() error { return nil }
