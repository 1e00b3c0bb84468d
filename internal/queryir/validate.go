package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists the structural problems of a request.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
}

// Error joins the problems into one message.
func (r ValidationResult) Error() string {
	return strings.Join(r.Problems, "; ")
}

// Validate checks the parts of a request that do not need the data model:
// an entity set is named, $top and $skip are not negative, and $select
// names are non-empty and distinct.
//
// Expressions are not inspected here; they are validated when compiled
// against the entity set. Validate is a pure function.
func Validate(req Request) ValidationResult {
	v := &validator{problems: []string{}}

	if strings.TrimSpace(req.EntitySet) == "" {
		v.addProblem("entity set is required")
	}
	if req.Top != nil && *req.Top < 0 {
		v.addProblem("$top must not be negative, got %d", *req.Top)
	}
	if req.Skip != nil && *req.Skip < 0 {
		v.addProblem("$skip must not be negative, got %d", *req.Skip)
	}
	v.validateSelect(req.Select)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelect(names []string) {
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" {
			v.addProblem("$select item %d is empty", i)
			continue
		}
		if seen[name] {
			v.addProblem("$select names %s more than once", name)
		}
		seen[name] = true
	}
}
