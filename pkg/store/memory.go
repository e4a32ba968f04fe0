package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentstation/confmap/pkg/constants"
	"github.com/agentstation/confmap/pkg/errors"
	"github.com/agentstation/confmap/pkg/reconcile"
)

// MemoryStore is an in-memory Store for tests and dry runs. It mirrors
// the FileStore's semantics, including backups, without touching disk.
type MemoryStore struct {
	mu       sync.RWMutex
	entities []reconcile.ValidatedEntity
	report   reconcile.ValidationReport
	applied  bool
	backups  []memoryBackup
	seq      int
	clock    func() time.Time
}

type memoryBackup struct {
	id        string
	createdAt time.Time
	entities  []reconcile.ValidatedEntity
	report    reconcile.ValidationReport
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clock: time.Now}
}

// Snapshot implements Reader.
func (s *MemoryStore) Snapshot(_ context.Context) ([]reconcile.ValidatedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.applied {
		return nil, errors.NewNotFoundError("snapshot", "memory")
	}
	out := make([]reconcile.ValidatedEntity, len(s.entities))
	copy(out, s.entities)
	return out, nil
}

// Report implements Reader.
func (s *MemoryStore) Report(_ context.Context) (reconcile.ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.applied {
		return reconcile.ValidationReport{}, errors.NewNotFoundError("report", "memory")
	}
	return s.report, nil
}

// Query implements Reader.
func (s *MemoryStore) Query(ctx context.Context, f Filter) ([]reconcile.ValidatedEntity, error) {
	entities, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var matched []reconcile.ValidatedEntity
	for _, e := range entities {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Apply implements Writer.
func (s *MemoryStore) Apply(_ context.Context, result *reconcile.Result) (*ApplyResult, error) {
	if result == nil {
		return nil, errors.NewConfigError("store", "nil result", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := diff(s.entities, result.Entities)
	if s.applied && len(s.entities) > 0 {
		applied.BackupID = s.backupLocked()
	}

	s.entities = make([]reconcile.ValidatedEntity, len(result.Entities))
	copy(s.entities, result.Entities)
	s.report = result.Report
	s.applied = true
	return &applied, nil
}

// Backups implements Restorer.
func (s *MemoryStore) Backups(_ context.Context) ([]Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Backup, 0, len(s.backups))
	for i := len(s.backups) - 1; i >= 0; i-- { // newest first
		b := s.backups[i]
		out = append(out, Backup{ID: b.id, CreatedAt: b.createdAt, Entities: len(b.entities)})
	}
	return out, nil
}

// Restore implements Restorer.
func (s *MemoryStore) Restore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.backups {
		if b.id == id {
			if s.applied && len(s.entities) > 0 {
				s.backupLocked()
			}
			s.entities = make([]reconcile.ValidatedEntity, len(b.entities))
			copy(s.entities, b.entities)
			s.report = b.report
			s.applied = true
			return nil
		}
	}
	return errors.NewNotFoundError("backup", id)
}

// backupLocked snapshots the current state. Caller holds the lock.
func (s *MemoryStore) backupLocked() string {
	now := s.clock().UTC()
	s.seq++
	// A sequence suffix keeps IDs unique within one second.
	b := memoryBackup{
		id:        fmt.Sprintf("%s-%03d", now.Format(constants.BackupTimeFormat), s.seq),
		createdAt: now,
		entities:  make([]reconcile.ValidatedEntity, len(s.entities)),
		report:    s.report,
	}
	copy(b.entities, s.entities)
	s.backups = append(s.backups, b)
	if len(s.backups) > constants.MaxBackups {
		s.backups = s.backups[len(s.backups)-constants.MaxBackups:]
	}
	return b.id
}

var _ Store = (*MemoryStore)(nil)
