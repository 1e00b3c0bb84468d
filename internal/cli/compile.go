package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/odataql/internal/engine"
	"github.com/roach88/odataql/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	RequestFlags
	MaxRows int64
	Output  string // output file path
}

// CompilationResult is a compiled request.
type CompilationResult struct {
	EntitySet string   `json:"entity_set"`
	SQL       string   `json:"sql"`
	Params    []any    `json:"params"`
	Where     string   `json:"where,omitempty"`
	Columns   []string `json:"columns"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir>",
		Short: "Compile a request to parameterized SQL",
		Long: `Compile the system query options of a request against a CUE data model
and print the resulting SELECT statement with its parameters.

Nothing is executed; no database is needed.

Examples:
  odataql compile ./schema --set flights --filter "gate gt 3"
  odataql compile ./schema --set flights --query '$filter=passengers/any(p: p/age gt 60)&$top=10'
  odataql compile ./schema --set flights --filter "code eq 'lhr'" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.RequestFlags.bind(cmd)
	cmd.Flags().Int64Var(&opts.MaxRows, "max-rows", 0, "page size limit applied as the default $top (0 = unlimited)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	req, err := opts.request()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidFlags, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid request flags", err)
	}

	m, err := loadModel(formatter, schemaDir)
	if err != nil {
		return err
	}

	eng := engine.New(nil, m, engine.UUIDv7Generator{},
		engine.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())),
		engine.WithMaxRows(opts.MaxRows),
	)

	stmt, err := eng.Compile(req)
	if err != nil {
		return formatter.RequestError(err)
	}

	result := newCompilationResult(req.EntitySet, stmt)
	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	return outputCompileSuccess(formatter, result)
}

func newCompilationResult(set string, stmt querysql.Statement) CompilationResult {
	params := stmt.Params
	if params == nil {
		params = []any{}
	}
	return CompilationResult{
		EntitySet: set,
		SQL:       stmt.SQL,
		Params:    params,
		Where:     stmt.Where,
		Columns:   stmt.Columns,
	}
}

// outputCompileSuccess prints the statement and its parameters.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	writeParams(formatter, result.Params)
	return nil
}

func writeParams(formatter *OutputFormatter, params []any) {
	for i, p := range params {
		fmt.Fprintf(formatter.Writer, "  $%d = %v (%T)\n", i+1, p, p)
	}
}

// writeResultToFile writes v as indented JSON to path.
func writeResultToFile(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
