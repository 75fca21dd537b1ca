// Package complaint holds the filing and status pipelines shared by the dialog,
// the operator console and the HTTP API.
package complaint

import (
	"complaintbot/backend/internal/analysis"
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Notifier is the outbound side of the pipelines. Both calls must return without
// waiting for delivery.
type Notifier interface {
	ForwardNew(rec models.ComplaintRecord)
	PushStatus(reporterID int64, rec models.ComplaintRecord, status models.Status)
}

// Service handles the business logic for complaints.
type Service struct {
	Store    storage.RecordStore
	Notifier Notifier
	now      func() time.Time
}

// NewService creates a new complaint service.
func NewService(store storage.RecordStore, notifier Notifier) *Service {
	return &Service{Store: store, Notifier: notifier, now: time.Now}
}

// File classifies, persists and forwards a completed complaint.
// Nothing is forwarded when persisting fails.
func (s *Service) File(ctx context.Context, reporter models.Reporter, fields models.ComplaintFields, description string) (*models.ComplaintRecord, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.New("complaint description is empty")
	}
	if !fields.Aspect.Valid() {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidAspect, fields.Aspect)
	}

	rec := &models.ComplaintRecord{
		ReporterID:       reporter.ID,
		ReporterHandle:   reporter.DisplayName(),
		Object:           models.RouteObject(fields.RouteNumber),
		RouteNumber:      fields.RouteNumber,
		Aspect:           fields.Aspect,
		IncidentDateTime: strings.TrimSpace(fields.IncidentDate + " " + fields.IncidentTime),
		Location:         fields.Location,
		Description:      description,
		Severity:         analysis.Classify(description, fields.Aspect),
		Status:           models.StatusNew,
		Recommendation:   analysis.Recommend(fields.Aspect),
		Lang:             reporter.Lang,
		FiledAt:          s.now().UTC(),
	}
	if err := s.Store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("file complaint: %w", err)
	}
	log.Printf("INFO: complaint %d filed by %d (route %s, %s, %s)", rec.ID, rec.ReporterID, rec.RouteNumber, rec.Aspect, rec.Severity)

	if s.Notifier != nil {
		s.Notifier.ForwardNew(*rec)
	}
	return rec, nil
}

// ChangeStatus moves a New complaint to Resolved or Rejected and pushes the change
// to its reporter exactly once. A complaint that is already final is returned with
// errs.ErrStatusFinal and nothing is pushed.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error) {
	if !status.Final() {
		return nil, errs.ErrInvalidStatus
	}
	rec, err := s.Store.UpdateStatus(ctx, id, status)
	if err != nil {
		return rec, err
	}
	log.Printf("INFO: complaint %d set to %s", rec.ID, rec.Status)

	if s.Notifier != nil {
		s.Notifier.PushStatus(rec.ReporterID, *rec, status)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.ComplaintRecord, error) {
	return s.Store.Get(ctx, id)
}

// List returns records with the given status, newest first. An empty status lists everything.
func (s *Service) List(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error) {
	if status != "" {
		return s.Store.FilterByStatus(ctx, status, limit)
	}
	all, err := s.Store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ComplaintRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// CountPending returns the number of New complaints.
func (s *Service) CountPending(ctx context.Context) (int, error) {
	pending, err := s.Store.FilterByStatus(ctx, models.StatusNew, 0)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}
