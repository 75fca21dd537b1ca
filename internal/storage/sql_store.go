package storage

import (
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// complaintRow is the relational shape of a ComplaintRecord.
type complaintRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement:false"`
	ReporterID       int64  `gorm:"not null;index"`
	ReporterHandle   string `gorm:"not null"`
	Object           string `gorm:"not null"`
	RouteNumber      string `gorm:"not null"`
	Aspect           string `gorm:"not null"`
	IncidentDateTime string `gorm:"not null"`
	Location         string `gorm:"not null"`
	Description      string `gorm:"type:text;not null"`
	Severity         string `gorm:"not null"`
	Status           string `gorm:"not null;index"`
	Recommendation   string `gorm:"type:text;not null"`
	Lang             string
	FiledAt          time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}

func (complaintRow) TableName() string { return "complaints" }

func rowFromRecord(rec *models.ComplaintRecord) complaintRow {
	return complaintRow{
		ID:               rec.ID,
		ReporterID:       rec.ReporterID,
		ReporterHandle:   rec.ReporterHandle,
		Object:           rec.Object,
		RouteNumber:      rec.RouteNumber,
		Aspect:           string(rec.Aspect),
		IncidentDateTime: rec.IncidentDateTime,
		Location:         rec.Location,
		Description:      rec.Description,
		Severity:         string(rec.Severity),
		Status:           string(rec.Status),
		Recommendation:   rec.Recommendation,
		Lang:             rec.Lang,
		FiledAt:          rec.FiledAt,
	}
}

func (r complaintRow) record() models.ComplaintRecord {
	return models.ComplaintRecord{
		ID:               r.ID,
		ReporterID:       r.ReporterID,
		ReporterHandle:   r.ReporterHandle,
		Object:           r.Object,
		RouteNumber:      r.RouteNumber,
		Aspect:           models.Aspect(r.Aspect),
		IncidentDateTime: r.IncidentDateTime,
		Location:         r.Location,
		Description:      r.Description,
		Severity:         models.Severity(r.Severity),
		Status:           models.Status(r.Status),
		Recommendation:   r.Recommendation,
		Lang:             r.Lang,
		FiledAt:          r.FiledAt,
	}
}

// SQLStore keeps complaints in the complaints table. The schema is owned by the
// database package migrations.
type SQLStore struct {
	DB  *gorm.DB
	now func() time.Time

	// serializes id allocation within this process
	mu sync.Mutex
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{DB: db, now: time.Now}
}

func (s *SQLStore) Append(ctx context.Context, rec *models.ComplaintRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if stored.Status == "" {
		stored.Status = models.StatusNew
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&complaintRow{}).Select("COALESCE(MAX(id), 0)").Scan(&last).Error; err != nil {
			return err
		}
		stored.ID = nextID(s.now(), last)
		row := rowFromRecord(&stored)
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	*rec = stored
	return nil
}

func (s *SQLStore) ReadAll(ctx context.Context) ([]models.ComplaintRecord, error) {
	var rows []complaintRow
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return records(rows), nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*models.ComplaintRecord, error) {
	var row complaintRow
	if err := s.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRecordNotFound
		}
		return nil, err
	}
	rec := row.record()
	return &rec, nil
}

func (s *SQLStore) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error) {
	if !status.Final() {
		return nil, errs.ErrInvalidStatus
	}

	var out *models.ComplaintRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&complaintRow{}).
			Where("id = ? AND status = ?", id, string(models.StatusNew)).
			Updates(map[string]any{"status": string(status), "updated_at": s.now().UTC()})
		if res.Error != nil {
			return res.Error
		}

		var row complaintRow
		if err := tx.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrRecordNotFound
			}
			return err
		}
		rec := row.record()
		out = &rec
		if res.RowsAffected == 0 {
			return errs.ErrStatusFinal
		}
		return nil
	})
	if errors.Is(err, errs.ErrStatusFinal) {
		return out, err
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) FilterByStatus(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", string(status)).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []complaintRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return records(rows), nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func records(rows []complaintRow) []models.ComplaintRecord {
	out := make([]models.ComplaintRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out
}
