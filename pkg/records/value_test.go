package records_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/confmap/pkg/records"
)

func TestParseRank(t *testing.T) {
	t.Run("accepts known ranks", func(t *testing.T) {
		for raw, want := range map[string]records.Rank{
			"A":    records.RankA,
			"b":    records.RankB,
			" C ":  records.RankC,
			"n/a":  records.RankNA,
			"Q1":   records.RankQ1,
			"q4":   records.RankQ4,
		} {
			got, err := records.ParseRank(raw)
			require.NoError(t, err, "input %q", raw)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown ranks", func(t *testing.T) {
		for _, raw := range []string{"A+", "D", "Q5", "first", ""} {
			_, err := records.ParseRank(raw)
			assert.Error(t, err, "input %q", raw)
		}
	})
}

func TestValue_Equal(t *testing.T) {
	t.Run("dates compare by calendar day", func(t *testing.T) {
		a := records.DateValue(records.NewDate(2026, time.March, 15))
		b := records.DateValue(records.NewDate(2026, time.March, 15))
		c := records.DateValue(records.NewDate(2026, time.March, 16))
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	})

	t.Run("ranks compare exactly", func(t *testing.T) {
		assert.True(t, records.RankValue(records.RankA).Equal(records.RankValue(records.RankA)))
		assert.False(t, records.RankValue(records.RankA).Equal(records.RankValue(records.RankB)))
	})

	t.Run("text compares case-folded", func(t *testing.T) {
		assert.True(t, records.TextValue("Machine Learning").Equal(records.TextValue("machine learning")))
		assert.True(t, records.TextValue("  ai  ").Equal(records.TextValue("AI")))
		assert.False(t, records.TextValue("ai").Equal(records.TextValue("ml")))
	})

	t.Run("urls ignore trailing slash and case", func(t *testing.T) {
		a := records.URLValue("https://icml.cc/")
		b := records.URLValue("HTTPS://ICML.CC")
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(records.URLValue("https://icml.cc/2026")))
	})

	t.Run("kinds never cross-compare", func(t *testing.T) {
		assert.False(t, records.TextValue("A").Equal(records.RankValue(records.RankA)))
	})
}

func TestParseValue(t *testing.T) {
	t.Run("date", func(t *testing.T) {
		v, err := records.ParseValue(records.KindDate, "2026-06-01")
		require.NoError(t, err)
		assert.Equal(t, records.KindDate, v.Kind)
		assert.Equal(t, "2026-06-01", v.String())
	})

	t.Run("rank", func(t *testing.T) {
		v, err := records.ParseValue(records.KindRank, "q2")
		require.NoError(t, err)
		r, ok := v.Rank()
		require.True(t, ok)
		assert.Equal(t, records.RankQ2, r)
	})

	t.Run("bad date fails", func(t *testing.T) {
		_, err := records.ParseValue(records.KindDate, "soon")
		assert.Error(t, err)
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		_, err := records.ParseValue(records.ValueKind("blob"), "x")
		assert.Error(t, err)
	})
}

func TestValue_IsZero(t *testing.T) {
	assert.True(t, records.Value{}.IsZero())
	assert.False(t, records.TextValue("").IsZero(), "typed empty text is present, not absent")
}
