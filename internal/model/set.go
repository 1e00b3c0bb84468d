package model

// NavigationBinding binds a navigation property of an entity set's type to
// the entity set holding its targets.
type NavigationBinding struct {
	Path   *NavigationProperty
	Target *EntitySet
}

// EntitySet is a queryable relation backed by a table.
type EntitySet struct {
	Name  string
	Table string
	Type  *EntityType

	// columns maps property names to column names where they differ.
	columns  map[string]string
	bindings []*NavigationBinding
}

// NewEntitySet creates an entity set whose table has the same name as the set.
func NewEntitySet(name string, typ *EntityType) *EntitySet {
	return &EntitySet{
		Name:    name,
		Table:   name,
		Type:    typ,
		columns: make(map[string]string),
	}
}

// SetTable overrides the backing table name.
func (s *EntitySet) SetTable(table string) *EntitySet {
	s.Table = table
	return s
}

// MapColumn stores a property under a different column name.
func (s *EntitySet) MapColumn(property, column string) *EntitySet {
	s.columns[property] = column
	return s
}

// Field returns the column holding the property.
func (s *EntitySet) Field(p *Property) string {
	if column, ok := s.columns[p.Name]; ok {
		return column
	}
	return p.Name
}

// AddBinding binds a navigation property to its target set.
func (s *EntitySet) AddBinding(path *NavigationProperty, target *EntitySet) *EntitySet {
	s.bindings = append(s.bindings, &NavigationBinding{Path: path, Target: target})
	return s
}

// Bindings returns the navigation bindings in declaration order.
func (s *EntitySet) Bindings() []*NavigationBinding {
	return s.bindings
}

// BindingFor returns the binding for a navigation property, or nil if the
// property is not bound on this set.
func (s *EntitySet) BindingFor(n *NavigationProperty) *NavigationBinding {
	for _, b := range s.bindings {
		if b.Path == n || (b.Path != nil && n != nil && b.Path.Name == n.Name) {
			return b
		}
	}
	return nil
}
