package model

import "fmt"

// Property is a declared, primitive-typed property of an entity type.
type Property struct {
	Name     string
	Type     PrimitiveType
	Nullable bool
}

// NewProperty creates a nullable property.
func NewProperty(name string, typ PrimitiveType) *Property {
	return &Property{Name: name, Type: typ, Nullable: true}
}

// ReferentialConstraint is one join key between a source and a target type.
type ReferentialConstraint struct {
	Property           *Property
	ReferencedProperty *Property
}

// NavigationProperty links an entity type to another entity type.
type NavigationProperty struct {
	Name        string
	Target      *EntityType
	Collection  bool
	Constraints []ReferentialConstraint
}

// NewNavigationProperty creates a navigation property without constraints.
func NewNavigationProperty(name string, target *EntityType, collection bool) *NavigationProperty {
	return &NavigationProperty{Name: name, Target: target, Collection: collection}
}

// AddConstraint appends a referential constraint. Declaration order is
// preserved and is the order in which subqueries are emitted.
func (n *NavigationProperty) AddConstraint(property, referenced *Property) *NavigationProperty {
	n.Constraints = append(n.Constraints, ReferentialConstraint{
		Property:           property,
		ReferencedProperty: referenced,
	})
	return n
}

// EntityType is an ordered set of declared and navigation properties.
type EntityType struct {
	Name       string
	Key        []string
	properties []*Property
	navigation []*NavigationProperty
}

// NewEntityType creates an empty entity type.
func NewEntityType(name string) *EntityType {
	return &EntityType{Name: name}
}

// AddProperty appends a declared property.
func (t *EntityType) AddProperty(p *Property) *EntityType {
	t.properties = append(t.properties, p)
	return t
}

// SetKey declares the key properties by name.
func (t *EntityType) SetKey(names ...string) *EntityType {
	t.Key = names
	return t
}

// AddNavigationProperty appends a navigation property.
func (t *EntityType) AddNavigationProperty(n *NavigationProperty) *EntityType {
	t.navigation = append(t.navigation, n)
	return t
}

// Properties returns the declared properties in declaration order.
func (t *EntityType) Properties() []*Property {
	return t.properties
}

// NavigationProperties returns the navigation properties in declaration order.
func (t *EntityType) NavigationProperties() []*NavigationProperty {
	return t.navigation
}

// Property looks up a declared property by name. Returns nil if not found.
func (t *EntityType) Property(name string) *Property {
	for _, p := range t.properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// NavigationProperty looks up a navigation property by name. Returns nil if
// not found.
func (t *EntityType) NavigationProperty(name string) *NavigationProperty {
	for _, n := range t.navigation {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// KeyProperties resolves the key names to properties.
func (t *EntityType) KeyProperties() ([]*Property, error) {
	keys := make([]*Property, 0, len(t.Key))
	for _, name := range t.Key {
		p := t.Property(name)
		if p == nil {
			return nil, fmt.Errorf("entity type %s: key property %q is not declared", t.Name, name)
		}
		keys = append(keys, p)
	}
	return keys, nil
}
