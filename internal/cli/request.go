package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/odataql/internal/model"
	"github.com/roach88/odataql/internal/queryir"
	"github.com/roach88/odataql/internal/schema"
	"github.com/roach88/odataql/internal/store"
)

// Error codes of the commands that compile or run requests. Schema load
// errors keep their schema.ErrCode* codes.
const (
	ErrCodeInvalidFlags = "E010" // Conflicting or missing request flags
	ErrCodeDatabase     = "E011" // Database open or bootstrap failed
	ErrCodeWriteFailed  = "E007" // File write error
)

// RequestFlags are the system query option flags shared by compile and query.
type RequestFlags struct {
	Set     string
	Query   string
	Filter  string
	OrderBy string
	Select  string
	Top     int64
	Skip    int64
}

func (f *RequestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Set, "set", "", "entity set to query (required)")
	_ = cmd.MarkFlagRequired("set")
	cmd.Flags().StringVar(&f.Query, "query", "", `raw query string, e.g. "$filter=gate gt 3&$top=10"`)
	cmd.Flags().StringVar(&f.Filter, "filter", "", "$filter expression")
	cmd.Flags().StringVar(&f.OrderBy, "orderby", "", "$orderby expression")
	cmd.Flags().StringVar(&f.Select, "select", "", "comma-separated $select properties")
	cmd.Flags().Int64Var(&f.Top, "top", -1, "$top (omitted when negative)")
	cmd.Flags().Int64Var(&f.Skip, "skip", -1, "$skip (omitted when negative)")
}

// request builds the request described by the flags. --query excludes the
// individual option flags.
func (f *RequestFlags) request() (queryir.Request, error) {
	if f.Query != "" {
		if f.Filter != "" || f.OrderBy != "" || f.Select != "" || f.Top >= 0 || f.Skip >= 0 {
			return queryir.Request{}, errors.New("--query cannot be combined with --filter, --orderby, --select, --top or --skip")
		}
		return queryir.ParseQuery(f.Set, f.Query)
	}

	req := queryir.Request{
		EntitySet: f.Set,
		Filter:    f.Filter,
		OrderBy:   f.OrderBy,
	}
	if f.Select != "" {
		for _, name := range strings.Split(f.Select, ",") {
			req.Select = append(req.Select, strings.TrimSpace(name))
		}
	}
	if f.Top >= 0 {
		req.Top = queryir.Int64(f.Top)
	}
	if f.Skip >= 0 {
		req.Skip = queryir.Int64(f.Skip)
	}
	return req, nil
}

// DatabaseFlags select the database a command runs against.
type DatabaseFlags struct {
	Database string
	Driver   string
}

func (f *DatabaseFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Database, "db", "", "database path or DSN (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&f.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|postgres|mysql)")
}

func (f *DatabaseFlags) open() (*store.Store, error) {
	st, err := store.OpenDriver(f.Driver, f.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadModel loads the schema in dir, reporting the first error through
// formatter.
func loadModel(formatter *OutputFormatter, dir string) (*model.Model, error) {
	loaded, errs := schema.Load(dir, schema.LoadModeFailFast)
	if len(errs) > 0 {
		code, message := schema.ErrCodeGeneric, errs[0].Error()
		var loadErr *schema.LoadError
		if errors.As(errs[0], &loadErr) {
			code, message = loadErr.Code, loadErr.Message
		}
		_ = formatter.Error(code, message, nil)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, dir)
	return loaded.Model, nil
}

// newLogger returns the engine logger: debug level with --verbose, and
// discarded otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	if !opts.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
