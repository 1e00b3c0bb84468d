package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/odataql/internal/model"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a schema directory.
type LoadResult struct {
	Model     *model.Model
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared by every command that loads a schema.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Schema declaration errors
	ErrCodeNoTypes       = "E101" // No entity types declared
	ErrCodeInvalidType   = "E102" // Unknown primitive type
	ErrCodeInvalidNav    = "E103" // Malformed navigation property
	ErrCodeInvalidSet    = "E104" // Malformed entity set
	ErrCodeInvalidBind   = "E105" // Binding names an unknown set or navigation
	ErrCodeCUEConstraint = "E106" // CUE evaluation error
)

// Load loads, compiles and validates the CUE schema in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, compile succeeds and every model
// validation error is returned.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	m, err := Compile(value)
	if err != nil {
		return result, []error{convertCompileError(err)}
	}
	result.Model = m

	var errs []error
	for _, verr := range m.Validate() {
		errs = append(errs, &LoadError{Code: verr.Code, Message: fmt.Sprintf("%s: %s", verr.Field, verr.Message)})
		if mode == LoadModeFailFast {
			return result, errs
		}
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compile error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "types":
		return ErrCodeNoTypes
	case field == "cue":
		return ErrCodeCUEConstraint
	case matchField(field, "types", "navigation"):
		return ErrCodeInvalidNav
	case matchField(field, "types", ""):
		return ErrCodeInvalidType
	case matchField(field, "sets", "bindings"):
		return ErrCodeInvalidBind
	case matchField(field, "sets", ""):
		return ErrCodeInvalidSet
	default:
		return ErrCodeGeneric
	}
}

// matchField reports whether a dotted field path starts with root and, when
// part is non-empty, contains part as a later segment.
func matchField(field, root, part string) bool {
	segs := strings.Split(field, ".")
	if len(segs) == 0 || segs[0] != root {
		return false
	}
	if part == "" {
		return true
	}
	for _, s := range segs[1:] {
		if s == part {
			return true
		}
	}
	return false
}
