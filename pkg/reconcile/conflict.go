package reconcile

import (
	"github.com/agentstation/confmap/pkg/records"
)

// ConflictKind classifies a detected disagreement. The set is closed:
// every resolution site switches over it exhaustively, so a new kind
// fails to compile until every site handles it.
type ConflictKind string

const (
	// DateMismatch means sources disagree on a calendar day.
	DateMismatch ConflictKind = "date_mismatch"
	// RankMismatch means sources disagree on a rank or quartile.
	RankMismatch ConflictKind = "rank_mismatch"
	// TextMismatch means sources disagree on a text or URL field.
	TextMismatch ConflictKind = "text_mismatch"
	// MissingInSome means some sources omit a field others provide.
	// This is partial corroboration, not a value disagreement.
	MissingInSome ConflictKind = "missing_in_some"
)

// Claim is one source's weighted assertion about a field value.
type Claim struct {
	SourceID string        `yaml:"source_id"`
	Value    records.Value `yaml:"value"`
	Weight   float64       `yaml:"weight"`
}

// Conflict records a disagreement between source records on one field
// of one entity. Conflicts are pure data: the detector emits them and
// never mutates the records they describe.
type Conflict struct {
	EntityKey string       `yaml:"entity_key"`
	Field     string       `yaml:"field"`
	Kind      ConflictKind `yaml:"kind"`
	// Claims lists every distinct claim, ordered by descending weight
	// then source ID for stable output.
	Claims []Claim `yaml:"claims"`
}

// ResolutionMethod identifies the rule that produced a resolved field.
// Closed set, matched exhaustively wherever resolutions are rendered.
type ResolutionMethod string

const (
	// AuthoritativeSource means a single authoritative claim won
	// regardless of other weights.
	AuthoritativeSource ResolutionMethod = "authoritative_source"
	// MajorityVote means at least two sources agreed and no
	// authoritative source dissented.
	MajorityVote ResolutionMethod = "majority_vote"
	// HighestWeight means the single best-weighted claim won.
	HighestWeight ResolutionMethod = "highest_weight"
	// ManualRequired means the claims tied within epsilon; no value was
	// chosen and a human has to decide.
	ManualRequired ResolutionMethod = "manual_required"
	// Uncontested means every source that spoke agreed, so the value
	// passed through without resolution.
	Uncontested ResolutionMethod = "uncontested"
)

// ResolvedField is one field of a merged entity together with how and
// how confidently it was chosen. When Method is ManualRequired the
// Value is absent; callers must check Method before using Value.
type ResolvedField struct {
	Field      string           `yaml:"field"`
	Value      records.Value    `yaml:"value,omitempty"`
	Method     ResolutionMethod `yaml:"method"`
	Confidence float64          `yaml:"confidence"`
	// Rationale explains the choice in a sentence, for the audit trail.
	Rationale string `yaml:"rationale"`
}

// VerificationStatus is the per-entity outcome of a reconciliation run.
type VerificationStatus string

const (
	// StatusVerified means high confidence and nothing left for a human.
	StatusVerified VerificationStatus = "verified"
	// StatusNeedsReview means a manual field or middling confidence.
	StatusNeedsReview VerificationStatus = "needs_review"
	// StatusUnverified means confidence too low to trust.
	StatusUnverified VerificationStatus = "unverified"
)

// ValidatedEntity is the merged, authoritative record for one entity.
// A run's output supersedes the previous run's entity for the same key;
// entities are never mutated in place.
type ValidatedEntity struct {
	// Key is the deterministic entity key the matcher derived.
	Key string `yaml:"key"`
	// Name is the display name, taken from the most trusted source.
	Name string `yaml:"name"`
	// Fields holds the resolved fields in schema order.
	Fields []ResolvedField `yaml:"fields"`
	// OverallConfidence aggregates per-field confidence, weighted by
	// field importance.
	OverallConfidence float64 `yaml:"overall_confidence"`
	// Status is the verification outcome.
	Status VerificationStatus `yaml:"status"`
	// Provenance lists contributing source IDs, most trusted first.
	Provenance []string `yaml:"provenance"`
}

// Field returns the resolved field with the given name.
func (e ValidatedEntity) Field(name string) (ResolvedField, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return ResolvedField{}, false
}

// NeedsManual reports whether any field was left for human review.
func (e ValidatedEntity) NeedsManual() bool {
	for _, f := range e.Fields {
		if f.Method == ManualRequired {
			return true
		}
	}
	return false
}
