// Package records defines the data model shared by the reconciliation
// engine and the store: typed field values, source records, and the
// entity schemas that parameterize the engine for conferences and
// journals.
package records

import (
	"fmt"
	"strings"
)

// ValueKind discriminates the closed set of field value representations.
type ValueKind string

const (
	// KindDate is a calendar-day value, compared by day.
	KindDate ValueKind = "date"
	// KindRank is a closed enum rank, compared exactly.
	KindRank ValueKind = "rank"
	// KindText is free text, compared case-folded.
	KindText ValueKind = "text"
	// KindURL is a URL, compared after trivial normalization.
	KindURL ValueKind = "url"
)

// Valid reports whether the kind is a member of the closed set.
func (k ValueKind) Valid() bool {
	switch k {
	case KindDate, KindRank, KindText, KindURL:
		return true
	default:
		return false
	}
}

// Rank is a quality tier claimed for an entity: CCF conference ranks or
// JCR journal quartiles.
type Rank string

// Known ranks.
const (
	RankA  Rank = "A"
	RankB  Rank = "B"
	RankC  Rank = "C"
	RankNA Rank = "N/A"
	RankQ1 Rank = "Q1"
	RankQ2 Rank = "Q2"
	RankQ3 Rank = "Q3"
	RankQ4 Rank = "Q4"
)

// ParseRank parses a rank string, tolerating case and surrounding space.
func ParseRank(s string) (Rank, error) {
	r := Rank(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RankA, RankB, RankC, RankNA, RankQ1, RankQ2, RankQ3, RankQ4:
		return r, nil
	default:
		return "", fmt.Errorf("unknown rank %q", s)
	}
}

// Value is a tagged union over the field value kinds. Use the
// constructor functions; the zero Value is "absent".
type Value struct {
	Kind ValueKind `yaml:"kind"`
	Date Date      `yaml:"date,omitempty"`
	Text string    `yaml:"text,omitempty"`
}

// DateValue wraps a calendar day.
func DateValue(d Date) Value {
	return Value{Kind: KindDate, Date: d}
}

// RankValue wraps a rank.
func RankValue(r Rank) Value {
	return Value{Kind: KindRank, Text: string(r)}
}

// TextValue wraps free text.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// URLValue wraps a URL.
func URLValue(u string) Value {
	return Value{Kind: KindURL, Text: u}
}

// IsZero reports whether the value is absent.
func (v Value) IsZero() bool {
	return v.Kind == ""
}

// Rank returns the rank payload; the second result is false for other kinds.
func (v Value) Rank() (Rank, bool) {
	if v.Kind != KindRank {
		return "", false
	}
	return Rank(v.Text), true
}

// Equal reports field-equality under the per-kind semantics: dates by
// calendar day, ranks exactly, text case-folded, URLs after trimming a
// trailing slash.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindDate:
		return v.Date.Equal(other.Date)
	case KindRank:
		return v.Text == other.Text
	case KindText:
		return strings.EqualFold(strings.TrimSpace(v.Text), strings.TrimSpace(other.Text))
	case KindURL:
		return normalizeURL(v.Text) == normalizeURL(other.Text)
	default:
		return false
	}
}

// String returns the payload in display form.
func (v Value) String() string {
	switch v.Kind {
	case KindDate:
		return v.Date.String()
	case KindRank, KindText, KindURL:
		return v.Text
	default:
		return ""
	}
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(u)), "/")
}

// ParseValue parses a raw string into a Value of the given kind.
func ParseValue(kind ValueKind, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case KindDate:
		d, err := ParseDate(raw)
		if err != nil {
			return Value{}, err
		}
		return DateValue(d), nil
	case KindRank:
		r, err := ParseRank(raw)
		if err != nil {
			return Value{}, err
		}
		return RankValue(r), nil
	case KindText:
		return TextValue(raw), nil
	case KindURL:
		return URLValue(raw), nil
	default:
		return Value{}, fmt.Errorf("unknown value kind %q", kind)
	}
}
