package reconcile

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/confmap/pkg/records"
)

// EntityGroup is a set of source records believed to denote one
// real-world entity. Groups are built fresh each run and partition the
// input: every record lands in exactly one group.
type EntityGroup struct {
	// Key deterministically identifies the entity across runs.
	Key string
	// Records holds the members, most trusted source first.
	Records []records.SourceRecord
}

// Matcher groups source records that likely describe the same entity.
type Matcher struct {
	cfg    Config
	schema records.Schema
	metric *metrics.Levenshtein
}

// NewMatcher creates a matcher for the given schema and config.
func NewMatcher(schema records.Schema, cfg Config) *Matcher {
	m := metrics.NewLevenshtein()
	m.CaseSensitive = false
	return &Matcher{cfg: cfg, schema: schema, metric: m}
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// abbreviations maps common name-token variants to one canonical form
// so "Intl. Conf. on Machine Learning" groups with the spelled-out name.
var abbreviations = map[string]string{
	"intl":  "international",
	"int":   "international",
	"conf":  "conference",
	"symp":  "symposium",
	"proc":  "proceedings",
	"trans": "transactions",
	"jour":  "journal",
	"natl":  "national",
	"wksp":  "workshop",
}

// foldTransform strips diacritics so "Zürich" and "Zurich" compare equal.
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName reduces an entity name to its comparison form: fold
// case, strip diacritics, drop years, expand known abbreviations, keep
// alphanumerics only.
func NormalizeName(name string) string {
	folded, _, err := transform.String(foldTransform, name)
	if err != nil {
		folded = name
	}
	folded = cases.Fold().String(folded)
	folded = yearPattern.ReplaceAllString(folded, " ")

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, tok := range tokens {
		if canonical, ok := abbreviations[tok]; ok {
			tok = canonical
		}
		b.WriteString(tok)
	}
	return b.String()
}

// Similarity returns the edit-distance-based ratio between two
// normalized names, in [0,1].
func (m *Matcher) Similarity(a, b string) float64 {
	return strutil.Similarity(a, b, m.metric)
}

// Group partitions the input into entity groups via transitive closure
// over the similarity graph. Two records link when their normalized
// names reach the similarity threshold and their key dates are absent
// or within tolerance, or when they share a non-empty external ID.
// Output is stable regardless of input order.
func (m *Matcher) Group(input []records.SourceRecord) []EntityGroup {
	if len(input) == 0 {
		return nil
	}

	// Sorting up front fixes the union order: candidate pairs are
	// visited by (priority desc, source_id), which is the documented
	// tie-break for partition stability.
	sorted := make([]records.SourceRecord, len(input))
	copy(sorted, input)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.Name < b.Name
	})

	names := make([]string, len(sorted))
	for i, r := range sorted {
		names[i] = NormalizeName(r.Name)
	}

	parent := make([]int, len(sorted))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			if ri < rj {
				parent[rj] = ri
			} else {
				parent[ri] = rj
			}
		}
	}

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if m.linked(sorted[i], sorted[j], names[i], names[j]) {
				union(i, j)
			}
		}
	}

	// The component root is always the lowest member index, i.e. the
	// most trusted record of the group.
	members := make(map[int][]int)
	for i := range sorted {
		root := find(i)
		members[root] = append(members[root], i)
	}

	groups := make([]EntityGroup, 0, len(members))
	for root, idxs := range members {
		g := EntityGroup{Records: make([]records.SourceRecord, 0, len(idxs))}
		for _, i := range idxs {
			g.Records = append(g.Records, sorted[i])
		}
		g.Key = m.groupKey(sorted[root], names[root])
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// linked decides whether two records may denote the same entity.
func (m *Matcher) linked(a, b records.SourceRecord, nameA, nameB string) bool {
	if a.ExternalID != "" && a.ExternalID == b.ExternalID {
		return true
	}
	if m.Similarity(nameA, nameB) < m.cfg.SimilarityThreshold {
		return false
	}
	// Similar names alone are not enough when both carry explicit
	// dates: unrelated editions of a recurring event share a name.
	dateA, okA := a.KeyDate(m.schema)
	dateB, okB := b.KeyDate(m.schema)
	if okA && okB {
		return dateA.DaysApart(dateB) <= m.cfg.DateToleranceDays
	}
	return true
}

// groupKey derives the stable entity key from the group's most trusted
// member: normalized name plus the key date when one exists.
func (m *Matcher) groupKey(rep records.SourceRecord, normName string) string {
	if d, ok := rep.KeyDate(m.schema); ok {
		return normName + "|" + d.String()
	}
	return normName
}
