package model

import (
	"fmt"
	"sort"
)

// Model is the registry of entity types and entity sets.
type Model struct {
	types map[string]*EntityType
	sets  map[string]*EntitySet
}

// New creates an empty model.
func New() *Model {
	return &Model{
		types: make(map[string]*EntityType),
		sets:  make(map[string]*EntitySet),
	}
}

// AddType registers an entity type. Returns an error on duplicate names.
func (m *Model) AddType(t *EntityType) error {
	if _, exists := m.types[t.Name]; exists {
		return fmt.Errorf("duplicate entity type %q", t.Name)
	}
	m.types[t.Name] = t
	return nil
}

// AddSet registers an entity set. Returns an error on duplicate names.
func (m *Model) AddSet(s *EntitySet) error {
	if _, exists := m.sets[s.Name]; exists {
		return fmt.Errorf("duplicate entity set %q", s.Name)
	}
	m.sets[s.Name] = s
	return nil
}

// Type returns the entity type with the given name, or nil.
func (m *Model) Type(name string) *EntityType {
	return m.types[name]
}

// Set returns the entity set with the given name, or nil.
func (m *Model) Set(name string) *EntitySet {
	return m.sets[name]
}

// Types returns all entity types sorted by name.
func (m *Model) Types() []*EntityType {
	names := make([]string, 0, len(m.types))
	for name := range m.types {
		names = append(names, name)
	}
	sort.Strings(names)

	types := make([]*EntityType, len(names))
	for i, name := range names {
		types[i] = m.types[name]
	}
	return types
}

// Sets returns all entity sets sorted by name.
func (m *Model) Sets() []*EntitySet {
	names := make([]string, 0, len(m.sets))
	for name := range m.sets {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]*EntitySet, len(names))
	for i, name := range names {
		sets[i] = m.sets[name]
	}
	return sets
}
