// Package reconcile implements the cross-source record reconciliation
// engine: it groups source records that denote the same entity, detects
// and classifies field-level disagreement, weighs each source, resolves
// every conflict deterministically, and emits merged entities together
// with an auditable validation report.
package reconcile

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/confmap/pkg/errors"
	"github.com/agentstation/confmap/pkg/records"
)

// Verification thresholds.
const (
	verifiedThreshold   = 0.75
	unverifiedThreshold = 0.4
)

// Engine orchestrates matching, detection, scoring, and resolution over
// an immutable snapshot of source records. It holds no mutable state
// across runs; concurrent runs over different snapshots are safe.
type Engine struct {
	cfg      Config
	schema   records.Schema
	matcher  *Matcher
	detector *Detector
	scorer   *Scorer
	resolver *Resolver
	asOf     time.Time
	parallel int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) error {
		e.cfg = cfg
		return nil
	}
}

// WithAsOf pins the reference instant used for recency decay. Defaults
// to the wall clock at construction; pin it for reproducible runs.
func WithAsOf(t time.Time) Option {
	return func(e *Engine) error {
		e.asOf = t.UTC()
		return nil
	}
}

// WithParallelism bounds how many entity groups resolve concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return errors.NewConfigError("parallelism", "must be at least 1", nil)
		}
		e.parallel = n
		return nil
	}
}

// New creates an Engine for the given entity schema. Configuration is
// validated here, before any run starts.
func New(schema records.Schema, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      DefaultConfig(),
		schema:   schema,
		asOf:     time.Now().UTC(),
		parallel: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	e.matcher = NewMatcher(e.schema, e.cfg)
	e.detector = NewDetector(e.schema)
	e.scorer = NewScorer(e.schema, e.cfg)
	e.resolver = NewResolver(e.cfg)
	return e, nil
}

// Schema returns the entity schema the engine was built for.
func (e *Engine) Schema() records.Schema {
	return e.schema
}

// Result is the output of one reconciliation run.
type Result struct {
	// Entities holds the merged records, ordered by entity key.
	Entities []ValidatedEntity
	// Report is the run's audit trail.
	Report ValidationReport
}

// Run reconciles a snapshot of source records. Zero records is a valid,
// non-fatal run: the result is empty and the report says so. Identical
// input and configuration produce identical results.
func (e *Engine) Run(ctx context.Context, input []records.SourceRecord) (*Result, error) {
	valid, excluded := e.splitMalformed(input)
	groups := e.matcher.Group(valid)

	entities := make([]ValidatedEntity, len(groups))
	resolutions := make([][]ResolvedConflict, len(groups))

	// Groups share no mutable state once partitioned, so they resolve
	// independently. Indexed writes keep the output order stable.
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(e.parallel)
	for i, g := range groups {
		eg.Go(func() error {
			entity, resolved := e.reconcileGroup(g)
			entities[i] = entity
			resolutions[i] = resolved
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := buildReport(e.asOf, entities, resolutions, excluded)
	return &Result{Entities: entities, Report: report}, nil
}

// splitMalformed separates records missing their entity key fields.
// They are excluded from matching but never dropped without trace: the
// report carries them.
func (e *Engine) splitMalformed(input []records.SourceRecord) (valid []records.SourceRecord, excluded []ExcludedRecord) {
	for _, r := range input {
		if r.Malformed(e.schema) {
			reason := "missing name"
			if r.Name != "" {
				reason = "unparsable key date"
			}
			excluded = append(excluded, ExcludedRecord{
				SourceID: r.SourceID,
				Name:     r.Name,
				Reason:   reason,
			})
			continue
		}
		valid = append(valid, r)
	}
	return valid, excluded
}

// reconcileGroup resolves every field of one entity group.
func (e *Engine) reconcileGroup(g EntityGroup) (ValidatedEntity, []ResolvedConflict) {
	weights := make(map[string]float64, len(g.Records))
	for _, r := range g.Records {
		weights[r.SourceID] = e.scorer.Weight(r, e.asOf)
	}

	conflicts := e.detector.Detect(g, weights)
	conflicted := make(map[string]Conflict, len(conflicts))
	for _, c := range conflicts {
		conflicted[c.Field] = c
	}

	var (
		fields   []ResolvedField
		resolved []ResolvedConflict
	)
	for _, spec := range e.schema.Fields {
		if c, ok := conflicted[spec.Name]; ok {
			rf := e.resolver.Resolve(c)
			fields = append(fields, rf)
			resolved = append(resolved, ResolvedConflict{Conflict: c, Resolution: rf})
			continue
		}
		if rf, ok := e.passthrough(g, spec.Name); ok {
			fields = append(fields, rf)
		}
	}

	entity := ValidatedEntity{
		Key:        g.Key,
		Name:       g.Records[0].Name, // most trusted source names the entity
		Fields:     fields,
		Provenance: provenance(g),
	}
	entity.OverallConfidence = e.overallConfidence(g, fields)
	entity.Status = e.status(entity)
	return entity, resolved
}

// passthrough carries an uncontested field into the merged entity at
// full confidence.
func (e *Engine) passthrough(g EntityGroup, field string) (ResolvedField, bool) {
	for _, r := range g.Records {
		if v, ok := r.Field(field); ok {
			return ResolvedField{
				Field:      field,
				Value:      v,
				Method:     Uncontested,
				Confidence: 1.0,
				Rationale:  "all reporting sources agree",
			}, true
		}
	}
	return ResolvedField{}, false
}

// overallConfidence is the importance-weighted mean of the per-field
// confidences. Entities a single source reported stay capped below
// full trust regardless of that source's weight.
func (e *Engine) overallConfidence(g EntityGroup, fields []ResolvedField) float64 {
	var weighted, total float64
	for _, f := range fields {
		imp := e.schema.Importance(f.Field)
		weighted += imp * f.Confidence
		total += imp
	}
	if total == 0 {
		return 0
	}
	confidence := weighted / total
	if len(g.Records) == 1 && confidence > e.cfg.SingletonCap {
		confidence = e.cfg.SingletonCap
	}
	return clamp01(confidence)
}

// status derives the verification outcome from confidence and any
// fields left for manual review.
func (e *Engine) status(entity ValidatedEntity) VerificationStatus {
	switch {
	case entity.NeedsManual():
		return StatusNeedsReview
	case entity.OverallConfidence >= verifiedThreshold:
		return StatusVerified
	case entity.OverallConfidence >= unverifiedThreshold:
		return StatusNeedsReview
	default:
		return StatusUnverified
	}
}

// provenance lists the contributing source IDs, most trusted first,
// without duplicates.
func provenance(g EntityGroup) []string {
	seen := make(map[string]bool, len(g.Records))
	var ids []string
	for _, r := range g.Records { // records are already priority-ordered
		if !seen[r.SourceID] {
			seen[r.SourceID] = true
			ids = append(ids, r.SourceID)
		}
	}
	return ids
}
