package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/confmap/pkg/errors"
	"github.com/agentstation/confmap/pkg/reconcile"
	"github.com/agentstation/confmap/pkg/records"
	"github.com/agentstation/confmap/pkg/store"
)

func entity(key, name string, rank records.Rank, deadline records.Date, status reconcile.VerificationStatus) reconcile.ValidatedEntity {
	return reconcile.ValidatedEntity{
		Key:    key,
		Name:   name,
		Status: status,
		Fields: []reconcile.ResolvedField{
			{Field: "deadline", Value: records.DateValue(deadline),
				Method: reconcile.Uncontested, Confidence: 1.0, Rationale: "all reporting sources agree"},
			{Field: "rank", Value: records.RankValue(rank),
				Method: reconcile.Uncontested, Confidence: 1.0, Rationale: "all reporting sources agree"},
			{Field: "category", Value: records.TextValue("machine learning"),
				Method: reconcile.Uncontested, Confidence: 1.0, Rationale: "all reporting sources agree"},
		},
		OverallConfidence: 0.9,
		Provenance:        []string{"ccf-official"},
	}
}

func result(entities ...reconcile.ValidatedEntity) *reconcile.Result {
	return &reconcile.Result{
		Entities: entities,
		Report: reconcile.ValidationReport{
			AsOf:              time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			EntitiesProcessed: len(entities),
		},
	}
}

// testClock hands out strictly increasing instants so successive
// backups never collide on the same second.
func testClock() func() time.Time {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newFileStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir(), store.WithClock(testClock()))
	require.NoError(t, err)
	return s
}

var (
	jan28 = records.NewDate(2026, time.January, 28)
	mar01 = records.NewDate(2026, time.March, 1)
)

func TestFileStore_ApplyAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	t.Run("empty store has no snapshot", func(t *testing.T) {
		_, err := s.Snapshot(ctx)
		assert.True(t, errors.IsNotFound(err))
	})

	icml := entity("icml|2026-01-28", "ICML", records.RankA, jan28, reconcile.StatusVerified)

	t.Run("first apply adds everything without a backup", func(t *testing.T) {
		applied, err := s.Apply(ctx, result(icml))
		require.NoError(t, err)
		assert.Equal(t, 1, applied.Added)
		assert.Zero(t, applied.Updated)
		assert.Empty(t, applied.BackupID)

		got, err := s.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, icml, got[0])
	})

	t.Run("report round-trips", func(t *testing.T) {
		report, err := s.Report(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.EntitiesProcessed)
	})

	t.Run("identical apply counts unchanged", func(t *testing.T) {
		applied, err := s.Apply(ctx, result(icml))
		require.NoError(t, err)
		assert.Equal(t, 1, applied.Unchanged)
		assert.Zero(t, applied.Added)
		assert.NotEmpty(t, applied.BackupID, "a non-empty store is backed up before writing")
	})

	t.Run("changed entity counts updated", func(t *testing.T) {
		changed := icml
		changed.Status = reconcile.StatusNeedsReview
		applied, err := s.Apply(ctx, result(changed))
		require.NoError(t, err)
		assert.Equal(t, 1, applied.Updated)
	})

	t.Run("dropped entity counts removed", func(t *testing.T) {
		other := entity("jmlr|2026-03-01", "JMLR", records.RankQ1, mar01, reconcile.StatusVerified)
		applied, err := s.Apply(ctx, result(other))
		require.NoError(t, err)
		assert.Equal(t, 1, applied.Added)
		assert.Equal(t, 1, applied.Removed)
	})
}

func TestFileStore_Query(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	icml := entity("icml|2026-01-28", "ICML", records.RankA, jan28, reconcile.StatusVerified)
	jmlr := entity("jmlr|2026-03-01", "JMLR", records.RankQ1, mar01, reconcile.StatusNeedsReview)
	_, err := s.Apply(ctx, result(icml, jmlr))
	require.NoError(t, err)

	t.Run("empty filter matches all", func(t *testing.T) {
		got, err := s.Query(ctx, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by rank", func(t *testing.T) {
		got, err := s.Query(ctx, store.Filter{Rank: records.RankQ1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "JMLR", got[0].Name)
	})

	t.Run("by status", func(t *testing.T) {
		got, err := s.Query(ctx, store.Filter{Status: reconcile.StatusVerified})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ICML", got[0].Name)
	})

	t.Run("by category case-insensitively", func(t *testing.T) {
		got, err := s.Query(ctx, store.Filter{Category: "Machine Learning"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by deadline range", func(t *testing.T) {
		got, err := s.Query(ctx, store.Filter{
			DeadlineFrom: records.NewDate(2026, time.February, 1),
			DeadlineTo:   records.NewDate(2026, time.March, 31),
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "JMLR", got[0].Name)
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		got, err := s.Query(ctx, store.Filter{
			Rank:   records.RankA,
			Status: reconcile.StatusNeedsReview,
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestFileStore_BackupsAndRestore(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	icml := entity("icml|2026-01-28", "ICML", records.RankA, jan28, reconcile.StatusVerified)
	jmlr := entity("jmlr|2026-03-01", "JMLR", records.RankQ1, mar01, reconcile.StatusVerified)

	_, err := s.Apply(ctx, result(icml))
	require.NoError(t, err)
	applied, err := s.Apply(ctx, result(jmlr))
	require.NoError(t, err)
	require.NotEmpty(t, applied.BackupID)

	t.Run("backups list newest first", func(t *testing.T) {
		backups, err := s.Backups(ctx)
		require.NoError(t, err)
		require.Len(t, backups, 1)
		assert.Equal(t, applied.BackupID, backups[0].ID)
		assert.Equal(t, 1, backups[0].Entities)
	})

	t.Run("restore brings the old snapshot back", func(t *testing.T) {
		require.NoError(t, s.Restore(ctx, applied.BackupID))

		got, err := s.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ICML", got[0].Name)
	})

	t.Run("restore backs up the replaced snapshot", func(t *testing.T) {
		backups, err := s.Backups(ctx)
		require.NoError(t, err)
		assert.Len(t, backups, 2)
	})

	t.Run("unknown backup id fails", func(t *testing.T) {
		err := s.Restore(ctx, "29991231T235959Z")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestFileStore_BackupPruning(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewFileStore(t.TempDir(),
		store.WithClock(testClock()), store.WithMaxBackups(2))
	require.NoError(t, err)

	icml := entity("icml|2026-01-28", "ICML", records.RankA, jan28, reconcile.StatusVerified)
	for i := 0; i < 5; i++ {
		e := icml
		e.OverallConfidence = 0.5 + float64(i)*0.1
		_, err := s.Apply(ctx, result(e))
		require.NoError(t, err)
	}

	backups, err := s.Backups(ctx)
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := store.NewFileStore(dir, store.WithClock(testClock()))
	require.NoError(t, err)
	icml := entity("icml|2026-01-28", "ICML", records.RankA, jan28, reconcile.StatusVerified)
	_, err = first.Apply(ctx, result(icml))
	require.NoError(t, err)

	second, err := store.NewFileStore(dir, store.WithClock(testClock()))
	require.NoError(t, err)
	got, err := second.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, icml, got[0])
}
