package model

import "fmt"

// Validation error codes (E200-E299)
const (
	ErrNoKey              = "E201" // entity type has no key
	ErrUnknownKey         = "E202" // key names an undeclared property
	ErrDuplicateName      = "E203" // duplicate property or navigation name
	ErrUnknownTarget      = "E204" // navigation target type not registered
	ErrNoConstraints      = "E205" // navigation has no referential constraints
	ErrForeignConstraint  = "E206" // constraint property belongs to another type
	ErrUnboundTarget      = "E207" // binding target set not registered
	ErrTargetTypeMismatch = "E208" // binding target set has a different type
	ErrUnknownSetType     = "E209" // entity set type not registered
)

// ValidationError represents a model consistency problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the model for inconsistencies that would surface as
// server faults during compilation. Returns all errors found (does not
// fail-fast).
func (m *Model) Validate() []ValidationError {
	var errs []ValidationError

	for _, t := range m.Types() {
		errs = append(errs, m.validateType(t)...)
	}
	for _, s := range m.Sets() {
		errs = append(errs, m.validateSet(s)...)
	}

	return errs
}

func (m *Model) validateType(t *EntityType) []ValidationError {
	var errs []ValidationError

	if len(t.Key) == 0 {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("types.%s.key", t.Name),
			Message: "entity type must declare a key",
			Code:    ErrNoKey,
		})
	}
	for _, name := range t.Key {
		if t.Property(name) == nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("types.%s.key", t.Name),
				Message: fmt.Sprintf("key property %q is not declared", name),
				Code:    ErrUnknownKey,
			})
		}
	}

	names := make(map[string]bool)
	for _, p := range t.properties {
		if names[p.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("types.%s.properties.%s", t.Name, p.Name),
				Message: fmt.Sprintf("duplicate property name: %q", p.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[p.Name] = true
	}

	for _, n := range t.navigation {
		field := fmt.Sprintf("types.%s.navigation.%s", t.Name, n.Name)
		if names[n.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate property name: %q", n.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[n.Name] = true

		if n.Target == nil || m.types[n.Target.Name] != n.Target {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "navigation target type is not registered",
				Code:    ErrUnknownTarget,
			})
			continue
		}
		if len(n.Constraints) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "navigation property must declare at least one referential constraint",
				Code:    ErrNoConstraints,
			})
		}
		for i, c := range n.Constraints {
			if c.Property == nil || t.Property(c.Property.Name) != c.Property {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.constraints[%d].property", field, i),
					Message: fmt.Sprintf("constraint property is not declared on %s", t.Name),
					Code:    ErrForeignConstraint,
				})
			}
			if c.ReferencedProperty == nil || n.Target.Property(c.ReferencedProperty.Name) != c.ReferencedProperty {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.constraints[%d].referenced", field, i),
					Message: fmt.Sprintf("referenced property is not declared on %s", n.Target.Name),
					Code:    ErrForeignConstraint,
				})
			}
		}
	}

	return errs
}

func (m *Model) validateSet(s *EntitySet) []ValidationError {
	var errs []ValidationError

	if s.Type == nil || m.types[s.Type.Name] != s.Type {
		return append(errs, ValidationError{
			Field:   fmt.Sprintf("sets.%s.type", s.Name),
			Message: "entity set type is not registered",
			Code:    ErrUnknownSetType,
		})
	}

	for _, b := range s.bindings {
		field := fmt.Sprintf("sets.%s.bindings.%s", s.Name, b.Path.Name)
		if b.Target == nil || m.sets[b.Target.Name] != b.Target {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "binding target set is not registered",
				Code:    ErrUnboundTarget,
			})
			continue
		}
		if b.Path.Target != nil && b.Path.Target != b.Target.Type {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("binding target set %s holds %s, navigation expects %s", b.Target.Name, b.Target.Type.Name, b.Path.Target.Name),
				Code:    ErrTargetTypeMismatch,
			})
		}
	}

	return errs
}
