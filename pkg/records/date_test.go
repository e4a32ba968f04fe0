package records_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/confmap/pkg/records"
)

func TestParseDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := records.ParseDate("2026-03-15")
		require.NoError(t, err)
		assert.Equal(t, 2026, d.Year)
		assert.Equal(t, time.March, d.Month)
		assert.Equal(t, 15, d.Day)
	})

	t.Run("rejects other layouts", func(t *testing.T) {
		for _, s := range []string{"15/03/2026", "2026-3-15", "March 15, 2026", "not a date", ""} {
			_, err := records.ParseDate(s)
			assert.Error(t, err, "input %q", s)
		}
	})

	t.Run("rejects impossible days", func(t *testing.T) {
		_, err := records.ParseDate("2026-02-30")
		assert.Error(t, err)
	})
}

func TestDate_Comparisons(t *testing.T) {
	a := records.NewDate(2026, time.March, 15)
	b := records.NewDate(2026, time.March, 18)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(records.NewDate(2026, time.March, 15)))
}

func TestDate_DaysApart(t *testing.T) {
	a := records.NewDate(2026, time.March, 15)
	b := records.NewDate(2026, time.March, 18)

	assert.Equal(t, 3, a.DaysApart(b))
	assert.Equal(t, 3, b.DaysApart(a), "symmetric")
	assert.Equal(t, 0, a.DaysApart(a))

	// Across a month boundary.
	c := records.NewDate(2026, time.April, 2)
	assert.Equal(t, 18, a.DaysApart(c))
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "2026-03-05", records.NewDate(2026, time.March, 5).String())
	assert.Empty(t, records.Date{}.String())
}

func TestDate_IsZero(t *testing.T) {
	assert.True(t, records.Date{}.IsZero())
	assert.False(t, records.NewDate(2026, time.January, 1).IsZero())
}
