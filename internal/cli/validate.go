package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odataql/internal/schema"
)

// ValidationError is one schema problem reported by validate.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Types  int               `json:"types"`
	Sets   int               `json:"sets"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a CUE data model",
		Long: `Validate the entity types, entity sets and navigation bindings
declared in a directory of CUE files.

Every model consistency problem is reported, not only the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loaded, loadErrors := schema.Load(schemaDir, schema.LoadModeCollectAll)

	// Directory not found, no files, CUE errors: nothing was compiled
	if loaded == nil || loaded.Model == nil {
		code, message := schema.ErrCodeGeneric, "schema did not compile"
		if len(loadErrors) > 0 {
			code, message = errorCode(loadErrors[0]), errorMessage(loadErrors[0])
		}
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, schemaDir)

	result := ValidationResult{
		Valid: len(loadErrors) == 0,
		Types: len(loaded.Model.Types()),
		Sets:  len(loaded.Model.Sets()),
	}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toValidationError(err))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func toValidationError(err error) ValidationError {
	var loadErr *schema.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationError{Code: schema.ErrCodeGeneric, Message: err.Error()}
	}
	v := ValidationError{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		v.File = loadErr.Pos.Filename()
		v.Line = loadErr.Pos.Line()
	}
	return v
}

func errorCode(err error) string {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return schema.ErrCodeGeneric
}

func errorMessage(err error) string {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message
	}
	return err.Error()
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d type(s), %d set(s)\n", result.Types, result.Sets)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
