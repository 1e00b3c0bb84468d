package queryir

// Request is a read of an entity set with the system query options that
// shape the result.
//
// Semantics:
//
//	SELECT <select> FROM <entity set>
//	WHERE <filter>
//	ORDER BY <orderby>, <key>
//	LIMIT <top> OFFSET <skip>
//
// Filter and OrderBy hold raw expressions; they are parsed and resolved
// against the entity set by the backend compiler. Empty strings mean the
// option is absent. An empty Select selects every declared property.
//
// Example:
//
//	Request{
//	  EntitySet: "flights",
//	  Filter:    "code eq 'lhr' and (gate gt 3 or gate lt 1)",
//	  OrderBy:   "gate desc",
//	  Select:    []string{"id", "gate"},
//	  Top:       Int64(10),
//	}
type Request struct {
	EntitySet string
	Filter    string
	OrderBy   string
	Select    []string
	Top       *int64
	Skip      *int64
}

// Int64 returns a pointer to v, for Top and Skip literals.
func Int64(v int64) *int64 {
	return &v
}
