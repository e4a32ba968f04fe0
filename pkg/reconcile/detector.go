package reconcile

import (
	"sort"

	"github.com/agentstation/confmap/pkg/records"
)

// Detector compares the records of one entity group field by field and
// emits typed conflicts. It is pure: input records are never mutated
// and no resolution decisions are taken here.
type Detector struct {
	schema records.Schema
}

// NewDetector creates a detector for the given schema.
func NewDetector(schema records.Schema) *Detector {
	return &Detector{schema: schema}
}

// Detect returns the conflicts within one group, in schema field order.
// weights supplies the per-source trust weights the claims carry.
//
// Per field: all present values equal means no conflict; distinct
// values mean a mismatch of the field's kind; a field some sources omit
// while the rest agree is partial corroboration (MissingInSome). When
// present values disagree and some sources are also silent, the value
// mismatch dominates — one conflict per field, never two.
func (d *Detector) Detect(g EntityGroup, weights map[string]float64) []Conflict {
	var conflicts []Conflict

	for _, spec := range d.schema.Fields {
		claims := d.claims(g, spec.Name, weights)
		if len(claims) == 0 {
			continue
		}

		distinct := distinctValues(claims)
		switch {
		case len(distinct) > 1:
			conflicts = append(conflicts, Conflict{
				EntityKey: g.Key,
				Field:     spec.Name,
				Kind:      mismatchKind(spec.Kind),
				Claims:    claims,
			})
		case len(claims) < len(g.Records) && len(g.Records) > 1:
			conflicts = append(conflicts, Conflict{
				EntityKey: g.Key,
				Field:     spec.Name,
				Kind:      MissingInSome,
				Claims:    claims,
			})
		}
	}
	return conflicts
}

// claims collects the weighted claims for one field, ordered by
// descending weight then source ID.
func (d *Detector) claims(g EntityGroup, field string, weights map[string]float64) []Claim {
	var claims []Claim
	for _, r := range g.Records {
		v, ok := r.Field(field)
		if !ok {
			continue
		}
		claims = append(claims, Claim{
			SourceID: r.SourceID,
			Value:    v,
			Weight:   weights[r.SourceID],
		})
	}
	sort.SliceStable(claims, func(i, j int) bool {
		if claims[i].Weight != claims[j].Weight {
			return claims[i].Weight > claims[j].Weight
		}
		return claims[i].SourceID < claims[j].SourceID
	})
	return claims
}

// distinctValues groups claims by field-equality and returns one
// claim slice per distinct value, preserving claim order.
func distinctValues(claims []Claim) [][]Claim {
	var groups [][]Claim
outer:
	for _, c := range claims {
		for i, g := range groups {
			if g[0].Value.Equal(c.Value) {
				groups[i] = append(groups[i], c)
				continue outer
			}
		}
		groups = append(groups, []Claim{c})
	}
	return groups
}

// mismatchKind maps a field's value kind to its conflict kind.
func mismatchKind(k records.ValueKind) ConflictKind {
	switch k {
	case records.KindDate:
		return DateMismatch
	case records.KindRank:
		return RankMismatch
	case records.KindText, records.KindURL:
		return TextMismatch
	default:
		return TextMismatch
	}
}
