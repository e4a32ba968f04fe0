package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/confmap/pkg/reconcile"
	"github.com/agentstation/confmap/pkg/records"
)

func record(sourceID string, fields map[string]records.Value) records.SourceRecord {
	return records.SourceRecord{
		SourceID:  sourceID,
		Name:      "ICML",
		FetchedAt: asOf,
		Fields:    fields,
	}
}

func TestDetector_Detect(t *testing.T) {
	detector := reconcile.NewDetector(records.Conference())
	weights := map[string]float64{"a": 0.9, "b": 0.6, "c": 0.5}

	t.Run("agreement yields no conflict", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("a", map[string]records.Value{"rank": records.RankValue(records.RankA)}),
			record("b", map[string]records.Value{"rank": records.RankValue(records.RankA)}),
		}}
		conflicts := detector.Detect(g, weights)
		assert.Empty(t, conflicts)
	})

	t.Run("distinct values yield a typed mismatch", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("a", map[string]records.Value{
				"deadline": records.DateValue(records.NewDate(2026, time.January, 28)),
				"rank":     records.RankValue(records.RankA),
			}),
			record("b", map[string]records.Value{
				"deadline": records.DateValue(records.NewDate(2026, time.January, 30)),
				"rank":     records.RankValue(records.RankB),
			}),
		}}
		conflicts := detector.Detect(g, weights)
		require.Len(t, conflicts, 2)

		// Schema order: deadline before rank.
		assert.Equal(t, "deadline", conflicts[0].Field)
		assert.Equal(t, reconcile.DateMismatch, conflicts[0].Kind)
		assert.Equal(t, "rank", conflicts[1].Field)
		assert.Equal(t, reconcile.RankMismatch, conflicts[1].Kind)
	})

	t.Run("claims carry weights ordered by weight then source", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("b", map[string]records.Value{"rank": records.RankValue(records.RankB)}),
			record("a", map[string]records.Value{"rank": records.RankValue(records.RankA)}),
		}}
		conflicts := detector.Detect(g, weights)
		require.Len(t, conflicts, 1)
		claims := conflicts[0].Claims
		require.Len(t, claims, 2)
		assert.Equal(t, "a", claims[0].SourceID)
		assert.Equal(t, 0.9, claims[0].Weight)
		assert.Equal(t, "b", claims[1].SourceID)
	})

	t.Run("silent sources yield missing-in-some", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("a", map[string]records.Value{"website": records.URLValue("https://icml.cc")}),
			record("b", map[string]records.Value{}),
		}}
		conflicts := detector.Detect(g, weights)
		require.Len(t, conflicts, 1)
		assert.Equal(t, reconcile.MissingInSome, conflicts[0].Kind)
		assert.Len(t, conflicts[0].Claims, 1)
	})

	t.Run("mismatch dominates missing-in-some per field", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("a", map[string]records.Value{"category": records.TextValue("ml")}),
			record("b", map[string]records.Value{"category": records.TextValue("ai")}),
			record("c", map[string]records.Value{}),
		}}
		conflicts := detector.Detect(g, weights)
		require.Len(t, conflicts, 1)
		assert.Equal(t, reconcile.TextMismatch, conflicts[0].Kind)
	})

	t.Run("singleton group has nothing to disagree about", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("a", map[string]records.Value{"rank": records.RankValue(records.RankA)}),
		}}
		assert.Empty(t, detector.Detect(g, weights))
	})

	t.Run("equivalent text is not a conflict", func(t *testing.T) {
		g := reconcile.EntityGroup{Key: "icml", Records: []records.SourceRecord{
			record("a", map[string]records.Value{"website": records.URLValue("https://icml.cc/")}),
			record("b", map[string]records.Value{"website": records.URLValue("HTTPS://icml.cc")}),
		}}
		assert.Empty(t, detector.Detect(g, weights))
	})
}
