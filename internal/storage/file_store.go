package storage

import (
	"bufio"
	"bytes"
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const maxLineSize = 1 << 20

// statusEntry is one line of the status log.
type statusEntry struct {
	ID        int64         `json:"complaint_id"`
	Status    models.Status `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
}

// FileStore keeps complaints in a JSON-lines record log. Records are only ever
// appended to it; status changes go to a separate append-only status log
// (<path>.status) that is replayed over the records on open.
//
// A writable store holds an exclusive lock on <path>.lock for its lifetime, so
// only one process at a time can append records or change statuses.
type FileStore struct {
	path       string
	statusPath string
	now        func() time.Time
	lock       *flock.Flock
	readOnly   bool

	mu      sync.Mutex
	records []models.ComplaintRecord
	index   map[int64]int
	lastID  int64
}

// OpenFileStore locks and loads the record and status logs at path. Missing
// files are treated as empty. It fails with errs.ErrStoreLocked while another
// process has the store open.
func OpenFileStore(path string) (*FileStore, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, errs.ErrStoreLocked)
	}

	s := newFileStore(path)
	s.lock = lock
	if err := s.load(); err != nil {
		lock.Unlock()
		return nil, err
	}
	return s, nil
}

// OpenFileSnapshot loads the logs at path without taking the lock. The snapshot
// never writes: Append, UpdateStatus and Compact return errs.ErrReadOnly.
func OpenFileSnapshot(path string) (*FileStore, error) {
	s := newFileStore(path)
	s.readOnly = true
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func newFileStore(path string) *FileStore {
	return &FileStore{
		path:       path,
		statusPath: path + ".status",
		now:        time.Now,
		index:      make(map[int64]int),
	}
}

// SetClock replaces the clock used for ids and timestamps.
func (s *FileStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Path returns the record log location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() error {
	err := readLines(s.path, func(n int, line []byte) error {
		var rec models.ComplaintRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("%s:%d: %w", s.path, n, err)
		}
		if _, dup := s.index[rec.ID]; dup {
			return fmt.Errorf("%s:%d: duplicate complaint id %d", s.path, n, rec.ID)
		}
		s.index[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
		if rec.ID > s.lastID {
			s.lastID = rec.ID
		}
		return nil
	})
	if err != nil {
		return err
	}

	return readLines(s.statusPath, func(n int, line []byte) error {
		var entry statusEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s:%d: %w", s.statusPath, n, err)
		}
		i, ok := s.index[entry.ID]
		if !ok {
			log.Printf("WARN: status log entry for unknown complaint %d ignored", entry.ID)
			return nil
		}
		// the first terminal status recorded for a complaint wins
		if !models.CanTransition(s.records[i].Status, entry.Status) {
			log.Printf("WARN: %s:%d: complaint %d is already %s, %s ignored",
				s.statusPath, n, entry.ID, s.records[i].Status, entry.Status)
			return nil
		}
		s.records[i].Status = entry.Status
		return nil
	})
}

func readLines(path string, fn func(n int, line []byte) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) Append(ctx context.Context, rec *models.ComplaintRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.readOnly {
		return errs.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	stored.ID = nextID(s.now(), s.lastID)
	if stored.Status == "" {
		stored.Status = models.StatusNew
	}
	if err := appendLine(s.path, stored); err != nil {
		return fmt.Errorf("append complaint: %w", err)
	}

	s.index[stored.ID] = len(s.records)
	s.records = append(s.records, stored)
	s.lastID = stored.ID
	*rec = stored
	return nil
}

func (s *FileStore) ReadAll(ctx context.Context) ([]models.ComplaintRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ComplaintRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, id int64) (*models.ComplaintRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	rec := s.records[i]
	return &rec, nil
}

func (s *FileStore) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error) {
	if !status.Final() {
		return nil, errs.ErrInvalidStatus
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.readOnly {
		return nil, errs.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	current := s.records[i]
	if !models.CanTransition(current.Status, status) {
		return &current, errs.ErrStatusFinal
	}

	entry := statusEntry{ID: id, Status: status, ChangedAt: s.now().UTC()}
	if err := appendLine(s.statusPath, entry); err != nil {
		return nil, fmt.Errorf("append status: %w", err)
	}
	s.records[i].Status = status
	updated := s.records[i]
	return &updated, nil
}

func (s *FileStore) FilterByStatus(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ComplaintRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Status != status {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Compact folds the status log into the record log. The record log is replaced
// atomically and the status log removed afterwards; replaying a status entry
// twice is harmless, so a crash in between loses nothing.
func (s *FileStore) Compact(ctx context.Context) error {
	if s.readOnly {
		return errs.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range s.records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("compact: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("compact: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("compact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("compact: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	if err := os.Remove(s.statusPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

// Close releases the store lock. It is safe to call more than once.
func (s *FileStore) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}
