package records

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// SourceRecord is one source's normalized claim about one entity.
// Records are immutable once fetched: the engine never writes to them.
type SourceRecord struct {
	// SourceID identifies the origin of the claim.
	SourceID string `yaml:"source_id"`
	// Name is the entity name as the source reported it.
	Name string `yaml:"name"`
	// ExternalID is an optional source-independent identifier (e.g. a
	// registry slug or an ISSN). Records sharing a non-empty ExternalID
	// always denote the same entity.
	ExternalID string `yaml:"external_id,omitempty"`
	// Fields maps tracked field names to their claimed values.
	Fields map[string]Value `yaml:"fields"`
	// FetchedAt is when the source was read, in UTC.
	FetchedAt time.Time `yaml:"fetched_at"`
	// Priority is the configured ordinal trust rank for the source.
	// Higher means more trusted.
	Priority int `yaml:"priority"`
}

// Field returns the claimed value for a named field; the second result
// is false when the source omits the field.
func (r SourceRecord) Field(name string) (Value, bool) {
	v, ok := r.Fields[name]
	if !ok || v.IsZero() {
		return Value{}, false
	}
	return v, true
}

// KeyDate returns the record's key date under the given schema.
func (r SourceRecord) KeyDate(schema Schema) (Date, bool) {
	v, ok := r.Field(schema.KeyField)
	if !ok || v.Kind != KindDate || v.Date.IsZero() {
		return Date{}, false
	}
	return v.Date, true
}

// Malformed reports whether the record is missing its entity key
// fields: an empty name, or a key date that never parsed.
func (r SourceRecord) Malformed(schema Schema) bool {
	if r.Name == "" {
		return true
	}
	// A record may legitimately omit the key date; malformed means the
	// field is present but carries no usable day.
	if v, ok := r.Fields[schema.KeyField]; ok && !v.IsZero() {
		if v.Kind != KindDate || v.Date.IsZero() {
			return true
		}
	}
	return false
}

// recordsFile is the on-disk shape of a multi-source records file.
type recordsFile struct {
	Sources []sourceBlock `yaml:"sources"`
}

// sourceBlock groups the raw entries reported by one source.
type sourceBlock struct {
	SourceID  string      `yaml:"source_id"`
	Priority  int         `yaml:"priority"`
	FetchedAt time.Time   `yaml:"fetched_at"`
	Entries   []rawRecord `yaml:"entries"`
}

// rawRecord is one entry before field typing.
type rawRecord struct {
	Name       string            `yaml:"name"`
	ExternalID string            `yaml:"external_id"`
	Fields     map[string]string `yaml:"fields"`
}

// Load decodes a multi-source records stream against a schema. Field
// values that fail to parse are dropped from the record and reported as
// warnings; records stay in the result so the engine can count the
// malformed ones rather than losing them without trace.
func Load(r io.Reader, schema Schema) ([]SourceRecord, []string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading records: %w", err)
	}

	var file recordsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decoding records: %w", err)
	}

	var (
		out      []SourceRecord
		warnings []string
	)
	for _, src := range file.Sources {
		for _, entry := range src.Entries {
			rec := SourceRecord{
				SourceID:   src.SourceID,
				Name:       entry.Name,
				ExternalID: entry.ExternalID,
				Fields:     make(map[string]Value, len(entry.Fields)),
				FetchedAt:  src.FetchedAt.UTC(),
				Priority:   src.Priority,
			}
			for name, raw := range entry.Fields {
				spec, ok := schema.Field(name)
				if !ok {
					warnings = append(warnings, fmt.Sprintf(
						"source %s: %q: unknown field %q", src.SourceID, entry.Name, name))
					continue
				}
				if raw == "" {
					continue
				}
				v, err := ParseValue(spec.Kind, raw)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf(
						"source %s: %q: field %s: %v", src.SourceID, entry.Name, name, err))
					if name == schema.KeyField {
						// An unparsable key date makes the whole record
						// malformed; keep a zero-day marker so the engine
						// excludes and counts it instead of treating the
						// record as merely date-less.
						rec.Fields[name] = Value{Kind: KindDate}
					}
					continue
				}
				rec.Fields[name] = v
			}
			out = append(out, rec)
		}
	}
	return out, warnings, nil
}

// ReadFile decodes a multi-source records file against a schema.
func ReadFile(path string, schema Schema) ([]SourceRecord, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening records file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return Load(f, schema)
}
