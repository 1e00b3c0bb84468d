package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/odataql/internal/model"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileString compiles CUE source text into a model.
func CompileString(src string) (*model.Model, error) {
	v := cuecontext.New().CompileString(src)
	return Compile(v)
}

// Compile builds a model from a CUE value with top-level "types" and "sets"
// structs:
//
//	types: flight: {
//		key: ["id"]
//		properties: {
//			id:   {type: "Int32", nullable: false}
//			gate: "Int32"
//		}
//		navigation: airports: {
//			target:      "airport"
//			collection:  true
//			constraints: [{property: "origin", referenced: "code"}]
//		}
//	}
//	sets: flights: {
//		type:     "flight"
//		bindings: airports: "airports"
//	}
//
// Declaration order of properties, navigation properties and constraints is
// preserved. Compile does not check model consistency; see model.Validate.
func Compile(v cue.Value) (*model.Model, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	m := model.New()

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &CompileError{
			Field:   "types",
			Message: "at least one entity type is required",
			Pos:     v.Pos(),
		}
	}

	// Types first, navigation second: targets may be declared later.
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := compileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := m.AddType(t); err != nil {
			return nil, &CompileError{Field: "types." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}

	iter, err = typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if err := compileNavigation(m, m.Type(iter.Label()), iter.Value()); err != nil {
			return nil, err
		}
	}

	setsVal := v.LookupPath(cue.ParsePath("sets"))
	if !setsVal.Exists() {
		return m, nil
	}
	if err := compileSets(m, setsVal); err != nil {
		return nil, err
	}
	return m, nil
}

func compileType(name string, v cue.Value) (*model.EntityType, error) {
	t := model.NewEntityType(name)

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if keyVal.Exists() {
		var key []string
		if err := keyVal.Decode(&key); err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("types.%s.key", name),
				Message: "key must be a list of property names",
				Pos:     keyVal.Pos(),
			}
		}
		t.SetKey(key...)
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("types.%s.properties", name),
			Message: "at least one property is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		p, err := compileProperty(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		t.AddProperty(p)
	}
	return t, nil
}

// compileProperty accepts the short form `name: "String"` or the long form
// `name: {type: "String", nullable: false}`.
func compileProperty(typeName, name string, v cue.Value) (*model.Property, error) {
	field := fmt.Sprintf("types.%s.properties.%s", typeName, name)

	typeVal := v
	nullable := true
	if v.Kind() == cue.StructKind {
		typeVal = v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{Field: field, Message: "type is required", Pos: v.Pos()}
		}
		if nv := v.LookupPath(cue.ParsePath("nullable")); nv.Exists() {
			b, err := nv.Bool()
			if err != nil {
				return nil, &CompileError{Field: field + ".nullable", Message: "nullable must be a boolean", Pos: nv.Pos()}
			}
			nullable = b
		}
	}

	typeStr, err := typeVal.String()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "type must be a string", Pos: typeVal.Pos()}
	}
	typ, err := model.ParsePrimitiveType(typeStr)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: typeVal.Pos()}
	}

	p := model.NewProperty(name, typ)
	p.Nullable = nullable
	return p, nil
}

func compileNavigation(m *model.Model, t *model.EntityType, v cue.Value) error {
	navVal := v.LookupPath(cue.ParsePath("navigation"))
	if !navVal.Exists() {
		return nil
	}

	iter, err := navVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		nv := iter.Value()
		field := fmt.Sprintf("types.%s.navigation.%s", t.Name, name)

		var decl struct {
			Target      string `json:"target"`
			Collection  bool   `json:"collection"`
			Constraints []struct {
				Property   string `json:"property"`
				Referenced string `json:"referenced"`
			} `json:"constraints"`
		}
		if err := nv.Decode(&decl); err != nil {
			return &CompileError{Field: field, Message: fmt.Sprintf("malformed navigation property: %v", err), Pos: nv.Pos()}
		}

		target := m.Type(decl.Target)
		if target == nil {
			return &CompileError{Field: field + ".target", Message: fmt.Sprintf("unknown entity type %q", decl.Target), Pos: nv.Pos()}
		}

		nav := model.NewNavigationProperty(name, target, decl.Collection)
		for i, c := range decl.Constraints {
			local := t.Property(c.Property)
			if local == nil {
				return &CompileError{
					Field:   fmt.Sprintf("%s.constraints[%d].property", field, i),
					Message: fmt.Sprintf("property %q is not declared on %s", c.Property, t.Name),
					Pos:     nv.Pos(),
				}
			}
			remote := target.Property(c.Referenced)
			if remote == nil {
				return &CompileError{
					Field:   fmt.Sprintf("%s.constraints[%d].referenced", field, i),
					Message: fmt.Sprintf("property %q is not declared on %s", c.Referenced, target.Name),
					Pos:     nv.Pos(),
				}
			}
			nav.AddConstraint(local, remote)
		}
		t.AddNavigationProperty(nav)
	}
	return nil
}

func compileSets(m *model.Model, v cue.Value) error {
	type setDecl struct {
		Type     string            `json:"type"`
		Table    string            `json:"table"`
		Columns  map[string]string `json:"columns"`
		Bindings map[string]string `json:"bindings"`
	}

	decls := make(map[string]setDecl)
	var order []string

	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		sv := iter.Value()
		field := "sets." + name

		var decl setDecl
		if err := sv.Decode(&decl); err != nil {
			return &CompileError{Field: field, Message: fmt.Sprintf("malformed entity set: %v", err), Pos: sv.Pos()}
		}
		t := m.Type(decl.Type)
		if t == nil {
			return &CompileError{Field: field + ".type", Message: fmt.Sprintf("unknown entity type %q", decl.Type), Pos: sv.Pos()}
		}

		set := model.NewEntitySet(name, t)
		if decl.Table != "" {
			set.SetTable(decl.Table)
		}
		for prop, col := range decl.Columns {
			if t.Property(prop) == nil {
				return &CompileError{Field: field + ".columns." + prop, Message: fmt.Sprintf("property %q is not declared on %s", prop, t.Name), Pos: sv.Pos()}
			}
			set.MapColumn(prop, col)
		}
		if err := m.AddSet(set); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: sv.Pos()}
		}
		decls[name] = decl
		order = append(order, name)
	}

	// Bindings are resolved after every set exists. They follow the
	// navigation declaration order of the set's type.
	for _, name := range order {
		set := m.Set(name)
		decl := decls[name]
		for path := range decl.Bindings {
			if set.Type.NavigationProperty(path) == nil {
				return &CompileError{Field: fmt.Sprintf("sets.%s.bindings.%s", name, path), Message: fmt.Sprintf("navigation property %q is not declared on %s", path, set.Type.Name)}
			}
		}
		for _, nav := range set.Type.NavigationProperties() {
			targetName, ok := decl.Bindings[nav.Name]
			if !ok {
				continue
			}
			target := m.Set(targetName)
			if target == nil {
				return &CompileError{Field: fmt.Sprintf("sets.%s.bindings.%s", name, nav.Name), Message: fmt.Sprintf("unknown entity set %q", targetName)}
			}
			set.AddBinding(nav, target)
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
