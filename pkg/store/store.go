// Package store persists the output of reconciliation runs: validated
// entities and their validation reports. The file-backed store keeps
// timestamped backups so a bad run can be rolled back; the memory store
// backs tests and dry runs.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/agentstation/confmap/pkg/reconcile"
	"github.com/agentstation/confmap/pkg/records"
)

// Reader provides read-only access to persisted reconciliation output.
type Reader interface {
	// Snapshot returns the validated entities of the latest applied run,
	// ordered by entity key.
	Snapshot(ctx context.Context) ([]reconcile.ValidatedEntity, error)

	// Report returns the validation report of the latest applied run.
	Report(ctx context.Context) (reconcile.ValidationReport, error)

	// Query returns the entities matching the filter, ordered by key.
	Query(ctx context.Context, f Filter) ([]reconcile.ValidatedEntity, error)
}

// Writer applies reconciliation output to the store.
type Writer interface {
	// Apply replaces the stored snapshot with the result of a run. The
	// previous snapshot is backed up first; Apply either fully succeeds
	// or leaves the store as it was.
	Apply(ctx context.Context, result *reconcile.Result) (*ApplyResult, error)
}

// Restorer manages and restores backups of previous snapshots.
type Restorer interface {
	// Backups lists available backups, newest first.
	Backups(ctx context.Context) ([]Backup, error)

	// Restore replaces the current snapshot with the named backup. The
	// snapshot being replaced is itself backed up first.
	Restore(ctx context.Context, id string) error
}

// Store is the complete interface combining all store capabilities.
type Store interface {
	Reader
	Writer
	Restorer
}

// ApplyResult summarizes what one Apply changed.
type ApplyResult struct {
	// Added counts entity keys new to the store.
	Added int `yaml:"added"`
	// Updated counts entity keys whose content changed.
	Updated int `yaml:"updated"`
	// Removed counts entity keys present before but absent now.
	Removed int `yaml:"removed"`
	// Unchanged counts entity keys carried over untouched.
	Unchanged int `yaml:"unchanged"`
	// BackupID names the backup taken before the write, empty when the
	// store was empty or keeps no backups.
	BackupID string `yaml:"backup_id,omitempty"`
}

// Total returns the number of entities the apply wrote.
func (r ApplyResult) Total() int {
	return r.Added + r.Updated + r.Unchanged
}

// Backup identifies one stored snapshot of a previous run.
type Backup struct {
	// ID names the backup; pass it to Restore.
	ID string `yaml:"id"`
	// CreatedAt is when the backup was taken.
	CreatedAt time.Time `yaml:"created_at"`
	// Entities counts the entities the backup holds.
	Entities int `yaml:"entities"`
}

// Filter selects entities from a snapshot. Zero-value fields match
// everything; set fields combine with AND.
type Filter struct {
	// Rank matches entities whose rank or quartile field resolved to
	// this value.
	Rank records.Rank
	// Category matches the category field, case-insensitively.
	Category string
	// Status matches the verification status.
	Status reconcile.VerificationStatus
	// DeadlineFrom and DeadlineTo bound the entity's deadline field,
	// inclusive. A zero bound is open.
	DeadlineFrom records.Date
	DeadlineTo   records.Date
}

// Match reports whether the entity passes the filter.
func (f Filter) Match(e reconcile.ValidatedEntity) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Rank != "" {
		v, ok := fieldOfKind(e, records.KindRank)
		if !ok {
			return false
		}
		if r, ok := v.Rank(); !ok || r != f.Rank {
			return false
		}
	}
	if f.Category != "" {
		v, ok := fieldByName(e, "category")
		if !ok || !strings.EqualFold(v.Text, f.Category) {
			return false
		}
	}
	if !f.DeadlineFrom.IsZero() || !f.DeadlineTo.IsZero() {
		v, ok := fieldOfKind(e, records.KindDate)
		if !ok {
			return false
		}
		d := v.Date
		if !f.DeadlineFrom.IsZero() && d.Before(f.DeadlineFrom) {
			return false
		}
		if !f.DeadlineTo.IsZero() && d.After(f.DeadlineTo) {
			return false
		}
	}
	return true
}

// fieldOfKind returns the first resolved field of the given kind.
// Fields are in schema order, so for dates this is the entity's key
// deadline field.
func fieldOfKind(e reconcile.ValidatedEntity, kind records.ValueKind) (records.Value, bool) {
	for _, rf := range e.Fields {
		if rf.Method == reconcile.ManualRequired {
			continue
		}
		if rf.Value.Kind == kind {
			return rf.Value, true
		}
	}
	return records.Value{}, false
}

func fieldByName(e reconcile.ValidatedEntity, name string) (records.Value, bool) {
	rf, ok := e.Field(name)
	if !ok || rf.Method == reconcile.ManualRequired {
		return records.Value{}, false
	}
	return rf.Value, true
}

// diff compares the previous snapshot with the incoming one, keyed by
// entity key.
func diff(old, incoming []reconcile.ValidatedEntity) ApplyResult {
	prev := make(map[string]reconcile.ValidatedEntity, len(old))
	for _, e := range old {
		prev[e.Key] = e
	}

	var result ApplyResult
	seen := make(map[string]bool, len(incoming))
	for _, e := range incoming {
		seen[e.Key] = true
		before, ok := prev[e.Key]
		switch {
		case !ok:
			result.Added++
		case entityEqual(before, e):
			result.Unchanged++
		default:
			result.Updated++
		}
	}
	for key := range prev {
		if !seen[key] {
			result.Removed++
		}
	}
	return result
}

// entityEqual compares the durable parts of two entities. Provenance
// order and rationale wording count: a change in either is a change
// worth recording.
func entityEqual(a, b reconcile.ValidatedEntity) bool {
	if a.Key != b.Key || a.Name != b.Name || a.Status != b.Status ||
		a.OverallConfidence != b.OverallConfidence ||
		len(a.Fields) != len(b.Fields) || len(a.Provenance) != len(b.Provenance) {
		return false
	}
	for i := range a.Provenance {
		if a.Provenance[i] != b.Provenance[i] {
			return false
		}
	}
	for i := range a.Fields {
		fa, fb := a.Fields[i], b.Fields[i]
		if fa.Field != fb.Field || fa.Method != fb.Method ||
			fa.Confidence != fb.Confidence || fa.Rationale != fb.Rationale ||
			!fa.Value.Equal(fb.Value) {
			return false
		}
	}
	return true
}
