package records

// FieldSpec describes one tracked field of an entity schema.
type FieldSpec struct {
	// Name is the field name as it appears in records and reports.
	Name string
	// Kind is the value representation for the field.
	Kind ValueKind
	// Importance weights the field in overall-confidence aggregation.
	// Date and rank fields carry more weight than descriptive text.
	Importance float64
	// Expected marks fields that count toward source completeness.
	Expected bool
}

// Schema is an entity schema: the tracked fields of one entity kind and
// the key-date field used to guard entity matching. Conferences and
// journals share the engine through composition over a Schema rather
// than through subtyping.
type Schema struct {
	// Entity names the entity kind, e.g. "conference".
	Entity string
	// KeyField names the date field that, together with the name,
	// identifies an entity across sources.
	KeyField string
	// Fields lists the tracked fields in report order.
	Fields []FieldSpec
}

// Conference returns the schema for conference deadlines.
func Conference() Schema {
	return Schema{
		Entity:   "conference",
		KeyField: "deadline",
		Fields: []FieldSpec{
			{Name: "deadline", Kind: KindDate, Importance: 3.0, Expected: true},
			{Name: "rank", Kind: KindRank, Importance: 3.0, Expected: true},
			{Name: "conference_date", Kind: KindDate, Importance: 2.0, Expected: true},
			{Name: "category", Kind: KindText, Importance: 1.0, Expected: true},
			{Name: "website", Kind: KindURL, Importance: 1.0, Expected: true},
			{Name: "location", Kind: KindText, Importance: 1.0},
		},
	}
}

// Journal returns the schema for journal submission deadlines.
func Journal() Schema {
	return Schema{
		Entity:   "journal",
		KeyField: "submission_deadline",
		Fields: []FieldSpec{
			{Name: "submission_deadline", Kind: KindDate, Importance: 3.0, Expected: true},
			{Name: "quartile", Kind: KindRank, Importance: 3.0, Expected: true},
			{Name: "impact_factor", Kind: KindText, Importance: 2.0, Expected: true},
			{Name: "category", Kind: KindText, Importance: 1.0, Expected: true},
			{Name: "website", Kind: KindURL, Importance: 1.0, Expected: true},
			{Name: "issn", Kind: KindText, Importance: 1.0},
		},
	}
}

// ByName returns the schema with the given entity name.
func ByName(entity string) (Schema, bool) {
	switch entity {
	case "conference":
		return Conference(), true
	case "journal":
		return Journal(), true
	default:
		return Schema{}, false
	}
}

// Field returns the spec for a named field.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Importance returns the aggregation weight for a named field, or 1.0
// for fields the schema does not know about.
func (s Schema) Importance(name string) float64 {
	if f, ok := s.Field(name); ok {
		return f.Importance
	}
	return 1.0
}

// ExpectedFields returns the names of fields that count toward
// completeness scoring.
func (s Schema) ExpectedFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Expected {
			names = append(names, f.Name)
		}
	}
	return names
}
