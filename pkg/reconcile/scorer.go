package reconcile

import (
	"time"

	"github.com/hashicorp/go-set/v2"

	"github.com/agentstation/confmap/pkg/records"
)

// Scorer assigns a trust weight in [0,1] to each source record. The
// weight is a pure function of the record, the configuration, and the
// run's reference instant: no clock reads, no hidden state.
type Scorer struct {
	cfg           Config
	schema        records.Schema
	authoritative *set.Set[string]
}

// NewScorer creates a scorer for the given schema and config.
func NewScorer(schema records.Schema, cfg Config) *Scorer {
	return &Scorer{
		cfg:           cfg,
		schema:        schema,
		authoritative: set.From(cfg.AuthoritativeSources),
	}
}

// Authoritative reports whether the source overrides disagreement
// unconditionally.
func (s *Scorer) Authoritative(sourceID string) bool {
	return s.authoritative.Contains(sourceID)
}

// Weight computes the trust weight for one record at the reference
// instant asOf: base trust for the source, decayed by staleness and
// discounted by incompleteness.
func (s *Scorer) Weight(r records.SourceRecord, asOf time.Time) float64 {
	w := s.base(r.SourceID) * s.recency(r.FetchedAt, asOf) * s.completeness(r)
	return clamp01(w)
}

// base returns the configured base trust for a source. Authoritative
// sources default to full trust when no explicit weight is set.
func (s *Scorer) base(sourceID string) float64 {
	if w, ok := s.cfg.BaseWeights[sourceID]; ok {
		return w
	}
	if s.Authoritative(sourceID) {
		return 1.0
	}
	return s.cfg.DefaultBaseWeight
}

// recency is 1.0 inside the freshness window, then decays linearly,
// reaching the floor at twice the window. Older stays at the floor.
func (s *Scorer) recency(fetchedAt, asOf time.Time) float64 {
	window := time.Duration(s.cfg.FreshnessWindowDays) * 24 * time.Hour
	age := asOf.Sub(fetchedAt)
	if age <= window {
		return 1.0
	}
	excess := float64(age-window) / float64(window)
	if excess > 1 {
		excess = 1
	}
	return 1.0 - (1.0-s.cfg.RecencyFloor)*excess
}

// completeness maps the fraction of expected fields present into
// [0.5, 1.0], so even a sparse record keeps half its base trust.
func (s *Scorer) completeness(r records.SourceRecord) float64 {
	expected := s.schema.ExpectedFields()
	if len(expected) == 0 {
		return 1.0
	}
	present := 0
	for _, name := range expected {
		if _, ok := r.Field(name); ok {
			present++
		}
	}
	fraction := float64(present) / float64(len(expected))
	return 0.5 + 0.5*fraction
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
