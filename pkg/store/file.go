package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/confmap/pkg/constants"
	"github.com/agentstation/confmap/pkg/errors"
	"github.com/agentstation/confmap/pkg/logging"
	"github.com/agentstation/confmap/pkg/reconcile"
)

// FileStore persists snapshots as YAML under a base directory:
//
//	<base>/entities.yaml
//	<base>/report.yaml
//	<base>/backups/<timestamp>/entities.yaml
//	<base>/backups/<timestamp>/report.yaml
//
// Writes go through a temp file and rename, so a crash mid-write never
// leaves a half-written snapshot. A mutex serializes Apply and Restore.
type FileStore struct {
	mu         sync.Mutex
	baseDir    string
	maxBackups int
	clock      func() time.Time
}

// FileOption configures a FileStore.
type FileOption func(*FileStore) error

// WithMaxBackups bounds how many backups are kept before the oldest
// are pruned. Zero disables backups entirely.
func WithMaxBackups(n int) FileOption {
	return func(s *FileStore) error {
		if n < 0 {
			return errors.NewConfigError("max_backups", "must not be negative", nil)
		}
		s.maxBackups = n
		return nil
	}
}

// WithClock replaces the wall clock, for tests that need stable backup
// names.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) error {
		s.clock = now
		return nil
	}
}

// NewFileStore creates a file-backed store rooted at baseDir, creating
// the directory if needed.
func NewFileStore(baseDir string, opts ...FileOption) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.NewConfigError("store", "no base directory configured", nil)
	}
	s := &FileStore{
		baseDir:    baseDir,
		maxBackups: constants.MaxBackups,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(baseDir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", baseDir, err)
	}
	return s, nil
}

// snapshotFile is the on-disk shape of entities.yaml.
type snapshotFile struct {
	SavedAt  time.Time                   `yaml:"saved_at"`
	Entities []reconcile.ValidatedEntity `yaml:"entities"`
}

// Snapshot implements Reader.
func (s *FileStore) Snapshot(_ context.Context) ([]reconcile.ValidatedEntity, error) {
	snap, err := s.readSnapshot(filepath.Join(s.baseDir, constants.EntitiesFile))
	if err != nil {
		return nil, err
	}
	return snap.Entities, nil
}

// Report implements Reader.
func (s *FileStore) Report(_ context.Context) (reconcile.ValidationReport, error) {
	path := filepath.Join(s.baseDir, constants.ReportFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reconcile.ValidationReport{}, errors.NewNotFoundError("report", path)
		}
		return reconcile.ValidationReport{}, errors.WrapIO("read", path, err)
	}
	var report reconcile.ValidationReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return reconcile.ValidationReport{}, errors.WrapParse("yaml", path, err)
	}
	return report, nil
}

// Query implements Reader.
func (s *FileStore) Query(ctx context.Context, f Filter) ([]reconcile.ValidatedEntity, error) {
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
func (s *FileStore) Apply(_ context.Context, result *reconcile.Result) (*ApplyResult, error) {
	if result == nil {
		return nil, errors.NewConfigError("store", "nil result", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entitiesPath := filepath.Join(s.baseDir, constants.EntitiesFile)
	previous, err := s.readSnapshot(entitiesPath)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	applied := diff(previous.Entities, result.Entities)
	if len(previous.Entities) > 0 && s.maxBackups > 0 {
		id, err := s.backup()
		if err != nil {
			return nil, err
		}
		applied.BackupID = id
	}

	if err := s.writeSnapshot(result.Entities, result.Report); err != nil {
		return nil, err
	}

	logging.Default().Info().
		Int("added", applied.Added).
		Int("updated", applied.Updated).
		Int("removed", applied.Removed).
		Str("backup", applied.BackupID).
		Msg("applied reconciliation result")
	return &applied, nil
}

// Backups implements Restorer.
func (s *FileStore) Backups(_ context.Context) ([]Backup, error) {
	dir := filepath.Join(s.baseDir, constants.BackupsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapIO("read", dir, err)
	}

	var backups []Backup
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		createdAt, err := time.Parse(constants.BackupTimeFormat, entry.Name())
		if err != nil {
			continue // foreign directory, not ours
		}
		snap, err := s.readSnapshot(filepath.Join(dir, entry.Name(), constants.EntitiesFile))
		if err != nil {
			continue
		}
		backups = append(backups, Backup{
			ID:        entry.Name(),
			CreatedAt: createdAt.UTC(),
			Entities:  len(snap.Entities),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].ID > backups[j].ID })
	return backups, nil
}

// Restore implements Restorer.
func (s *FileStore) Restore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backupDir := filepath.Join(s.baseDir, constants.BackupsDir, id)
	snap, err := s.readSnapshot(filepath.Join(backupDir, constants.EntitiesFile))
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError("backup", id)
		}
		return err
	}
	var report reconcile.ValidationReport
	if data, err := os.ReadFile(filepath.Join(backupDir, constants.ReportFile)); err == nil {
		_ = yaml.Unmarshal(data, &report)
	}

	// The snapshot being replaced becomes a backup itself, so a restore
	// is never destructive.
	current := filepath.Join(s.baseDir, constants.EntitiesFile)
	if prev, err := s.readSnapshot(current); err == nil && len(prev.Entities) > 0 && s.maxBackups > 0 {
		if _, err := s.backup(); err != nil {
			return err
		}
	}

	if err := s.writeSnapshot(snap.Entities, report); err != nil {
		return err
	}
	logging.Default().Info().Str("backup", id).Int("entities", len(snap.Entities)).
		Msg("restored snapshot from backup")
	return nil
}

// readSnapshot loads and decodes one entities.yaml.
func (s *FileStore) readSnapshot(path string) (snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snapshotFile{}, errors.NewNotFoundError("snapshot", path)
		}
		return snapshotFile{}, errors.WrapIO("read", path, err)
	}
	var snap snapshotFile
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snapshotFile{}, errors.WrapParse("yaml", path, err)
	}
	return snap, nil
}

// writeSnapshot writes entities.yaml and report.yaml atomically.
func (s *FileStore) writeSnapshot(entities []reconcile.ValidatedEntity, report reconcile.ValidationReport) error {
	snap := snapshotFile{SavedAt: s.clock().UTC(), Entities: entities}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return errors.WrapParse("yaml", constants.EntitiesFile, err)
	}
	if err := s.atomicWrite(filepath.Join(s.baseDir, constants.EntitiesFile), data); err != nil {
		return err
	}

	reportData, err := yaml.Marshal(report)
	if err != nil {
		return errors.WrapParse("yaml", constants.ReportFile, err)
	}
	return s.atomicWrite(filepath.Join(s.baseDir, constants.ReportFile), reportData)
}

// atomicWrite writes data through a temp file in the same directory and
// renames it into place.
func (s *FileStore) atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("write", tmpName, err)
	}
	if err := os.Chmod(tmpName, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// backup copies the current snapshot into a timestamped backup
// directory and prunes old backups beyond the limit.
func (s *FileStore) backup() (string, error) {
	id := s.clock().UTC().Format(constants.BackupTimeFormat)
	dir := filepath.Join(s.baseDir, constants.BackupsDir, id)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("backup", dir, err)
	}
	for _, name := range []string{constants.EntitiesFile, constants.ReportFile} {
		src := filepath.Join(s.baseDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", errors.WrapIO("backup", src, err)
		}
		dst := filepath.Join(dir, name)
		if err := os.WriteFile(dst, data, constants.FilePermissions); err != nil {
			return "", errors.WrapIO("backup", dst, err)
		}
	}
	if err := s.prune(); err != nil {
		return "", err
	}
	return id, nil
}

// prune removes the oldest backups beyond maxBackups.
func (s *FileStore) prune() error {
	dir := filepath.Join(s.baseDir, constants.BackupsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapIO("backup", dir, err)
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := time.Parse(constants.BackupTimeFormat, entry.Name()); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	if len(ids) <= s.maxBackups {
		return nil
	}
	sort.Strings(ids) // timestamp format sorts chronologically
	for _, id := range ids[:len(ids)-s.maxBackups] {
		if err := os.RemoveAll(filepath.Join(dir, id)); err != nil {
			return errors.WrapIO("backup", id, err)
		}
	}
	return nil
}

// Path returns the store's base directory.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)

// String implements fmt.Stringer.
func (s *FileStore) String() string {
	return fmt.Sprintf("file store at %s", s.baseDir)
}
