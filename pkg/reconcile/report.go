package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// ExcludedRecord is the trace of an input record that never reached
// matching because its entity key fields were malformed.
type ExcludedRecord struct {
	SourceID string `yaml:"source_id"`
	Name     string `yaml:"name,omitempty"`
	Reason   string `yaml:"reason"`
}

// ResolvedConflict pairs a detected conflict with its resolution, for
// the audit trail.
type ResolvedConflict struct {
	Conflict   Conflict      `yaml:"conflict"`
	Resolution ResolvedField `yaml:"resolution"`
}

// ValidationReport is the audit record of one reconciliation run: what
// was processed, what disagreed, how disagreement was settled, and what
// a human still has to look at.
type ValidationReport struct {
	// AsOf is the instant recency decay was computed against. The
	// report carries no wall-clock timestamps: identical input and
	// configuration must yield an identical report.
	AsOf time.Time `yaml:"as_of"`

	// EntitiesProcessed counts the entity groups reconciled.
	EntitiesProcessed int `yaml:"entities_processed"`
	// ExcludedInputs counts malformed records kept out of matching.
	ExcludedInputs int `yaml:"excluded_inputs"`
	// ConflictsByKind counts detected conflicts per kind.
	ConflictsByKind map[ConflictKind]int `yaml:"conflicts_by_kind"`
	// NeedsReview counts entities a human has to look at.
	NeedsReview int `yaml:"needs_review"`
	// AverageConfidence is the mean overall confidence across entities.
	AverageConfidence float64 `yaml:"average_confidence"`

	// Statuses counts entities per verification status.
	Statuses map[VerificationStatus]int `yaml:"statuses"`

	// Excluded lists the malformed inputs with their reasons.
	Excluded []ExcludedRecord `yaml:"excluded,omitempty"`
	// Conflicts lists every conflict with its resolution.
	Conflicts []ResolvedConflict `yaml:"conflicts,omitempty"`
}

// buildReport assembles the report for one run.
func buildReport(asOf time.Time, entities []ValidatedEntity,
	resolutions [][]ResolvedConflict, excluded []ExcludedRecord) ValidationReport {

	report := ValidationReport{
		AsOf:              asOf,
		EntitiesProcessed: len(entities),
		ExcludedInputs:    len(excluded),
		ConflictsByKind:   make(map[ConflictKind]int),
		Statuses:          make(map[VerificationStatus]int),
		Excluded:          excluded,
	}

	var totalConfidence float64
	for _, e := range entities {
		totalConfidence += e.OverallConfidence
		report.Statuses[e.Status]++
		if e.Status == StatusNeedsReview {
			report.NeedsReview++
		}
	}
	if len(entities) > 0 {
		report.AverageConfidence = totalConfidence / float64(len(entities))
	}

	for _, rs := range resolutions {
		for _, rc := range rs {
			report.ConflictsByKind[rc.Conflict.Kind]++
			report.Conflicts = append(report.Conflicts, rc)
		}
	}
	return report
}

// TotalConflicts returns the number of conflicts across all kinds.
func (r ValidationReport) TotalConflicts() int {
	total := 0
	for _, n := range r.ConflictsByKind {
		total += n
	}
	return total
}

// Summary renders the report for terminal display.
func (r ValidationReport) Summary() string {
	var b strings.Builder

	b.WriteString("Validation Report\n")
	b.WriteString("=================\n")
	fmt.Fprintf(&b, "Entities processed: %d\n", r.EntitiesProcessed)
	fmt.Fprintf(&b, "Excluded inputs:    %d\n", r.ExcludedInputs)
	fmt.Fprintf(&b, "Conflicts found:    %d\n", r.TotalConflicts())
	fmt.Fprintf(&b, "Needs review:       %d\n", r.NeedsReview)
	fmt.Fprintf(&b, "Average confidence: %.2f\n", r.AverageConfidence)

	if r.TotalConflicts() > 0 {
		b.WriteString("\nConflicts by kind:\n")
		for _, kind := range []ConflictKind{DateMismatch, RankMismatch, TextMismatch, MissingInSome} {
			if n := r.ConflictsByKind[kind]; n > 0 {
				fmt.Fprintf(&b, "  %-16s %d\n", kind, n)
			}
		}
	}

	if len(r.Statuses) > 0 {
		b.WriteString("\nStatuses:\n")
		for _, status := range []VerificationStatus{StatusVerified, StatusNeedsReview, StatusUnverified} {
			if n := r.Statuses[status]; n > 0 {
				fmt.Fprintf(&b, "  %-13s %d\n", status, n)
			}
		}
	}

	if len(r.Excluded) > 0 {
		b.WriteString("\nExcluded inputs:\n")
		for _, ex := range r.Excluded {
			fmt.Fprintf(&b, "  %s: %q (%s)\n", ex.SourceID, ex.Name, ex.Reason)
		}
	}
	return b.String()
}

// Detail renders every conflict and its resolution, for audit output.
func (r ValidationReport) Detail() string {
	if len(r.Conflicts) == 0 {
		return "No conflicts detected.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conflicts (%d):\n", len(r.Conflicts))
	for _, rc := range r.Conflicts {
		fmt.Fprintf(&b, "\n%s / %s [%s]\n", rc.Conflict.EntityKey, rc.Conflict.Field, rc.Conflict.Kind)
		for _, cl := range rc.Conflict.Claims {
			fmt.Fprintf(&b, "  claim: %-12s %q (weight %.2f)\n", cl.SourceID, cl.Value.String(), cl.Weight)
		}
		switch rc.Resolution.Method {
		case ManualRequired:
			fmt.Fprintf(&b, "  -> manual review required: %s\n", rc.Resolution.Rationale)
		case AuthoritativeSource, MajorityVote, HighestWeight, Uncontested:
			fmt.Fprintf(&b, "  -> %q via %s (confidence %.2f): %s\n",
				rc.Resolution.Value.String(), rc.Resolution.Method,
				rc.Resolution.Confidence, rc.Resolution.Rationale)
		}
	}
	return b.String()
}
