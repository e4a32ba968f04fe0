package records_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/confmap/pkg/records"
)

const recordsYAML = `
sources:
  - source_id: ccf-official
    priority: 10
    fetched_at: 2026-08-01T00:00:00Z
    entries:
      - name: International Conference on Machine Learning
        external_id: icml
        fields:
          deadline: "2026-01-28"
          rank: "A"
          category: "machine learning"
          website: "https://icml.cc"
  - source_id: community-wiki
    priority: 1
    fetched_at: 2026-07-15T00:00:00Z
    entries:
      - name: ICML 2026
        external_id: icml
        fields:
          deadline: "2026-01-28"
          rank: "a"
          venue: "Vienna"
      - name: Mystery Conf
        fields:
          deadline: "late january"
`

func TestLoad(t *testing.T) {
	schema := records.Conference()
	recs, warnings, err := records.Load(strings.NewReader(recordsYAML), schema)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	t.Run("source metadata flows onto each record", func(t *testing.T) {
		icml := recs[0]
		assert.Equal(t, "ccf-official", icml.SourceID)
		assert.Equal(t, 10, icml.Priority)
		assert.Equal(t, "icml", icml.ExternalID)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), icml.FetchedAt)
	})

	t.Run("fields are typed per schema", func(t *testing.T) {
		icml := recs[0]
		v, ok := icml.Field("deadline")
		require.True(t, ok)
		assert.Equal(t, records.KindDate, v.Kind)

		v, ok = icml.Field("rank")
		require.True(t, ok)
		r, ok := v.Rank()
		require.True(t, ok)
		assert.Equal(t, records.RankA, r)
	})

	t.Run("unknown fields are dropped with a warning", func(t *testing.T) {
		wiki := recs[1]
		_, ok := wiki.Field("venue")
		assert.False(t, ok)

		var found bool
		for _, w := range warnings {
			if strings.Contains(w, "venue") {
				found = true
			}
		}
		assert.True(t, found, "expected a warning naming the unknown field")
	})

	t.Run("unparsable key date marks the record malformed", func(t *testing.T) {
		mystery := recs[2]
		assert.True(t, mystery.Malformed(schema))
		_, ok := mystery.KeyDate(schema)
		assert.False(t, ok)
	})
}

func TestSourceRecord_Malformed(t *testing.T) {
	schema := records.Conference()
	deadline := records.DateValue(records.NewDate(2026, time.January, 28))

	t.Run("empty name", func(t *testing.T) {
		r := records.SourceRecord{SourceID: "s", Fields: map[string]records.Value{"deadline": deadline}}
		assert.True(t, r.Malformed(schema))
	})

	t.Run("missing key date is allowed", func(t *testing.T) {
		r := records.SourceRecord{SourceID: "s", Name: "ICML", Fields: map[string]records.Value{}}
		assert.False(t, r.Malformed(schema))
	})

	t.Run("well formed", func(t *testing.T) {
		r := records.SourceRecord{SourceID: "s", Name: "ICML",
			Fields: map[string]records.Value{"deadline": deadline}}
		assert.False(t, r.Malformed(schema))
	})
}

func TestSchema(t *testing.T) {
	t.Run("lookup by entity name", func(t *testing.T) {
		conf, ok := records.ByName("conference")
		require.True(t, ok)
		assert.Equal(t, "deadline", conf.KeyField)

		jour, ok := records.ByName("journal")
		require.True(t, ok)
		assert.Equal(t, "submission_deadline", jour.KeyField)

		_, ok = records.ByName("workshop")
		assert.False(t, ok)
	})

	t.Run("importance defaults to one for unknown fields", func(t *testing.T) {
		conf := records.Conference()
		assert.Equal(t, 3.0, conf.Importance("deadline"))
		assert.Equal(t, 1.0, conf.Importance("nonexistent"))
	})

	t.Run("expected fields exclude optional ones", func(t *testing.T) {
		conf := records.Conference()
		assert.NotContains(t, conf.ExpectedFields(), "location")
		assert.Contains(t, conf.ExpectedFields(), "rank")
	})
}
