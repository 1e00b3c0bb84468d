package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/odataql/internal/queryir"
)

// RowQuota caps the page size of a request.
//
// A request without $top gets the quota as its page size. A request whose
// $top exceeds the quota is rejected rather than silently truncated, so
// the client never mistakes a partial page for the whole result.
type RowQuota struct {
	maxRows int64
}

// NewRowQuota creates a quota of maxRows rows per request. Zero or a
// negative value disables the quota.
func NewRowQuota(maxRows int64) *RowQuota {
	return &RowQuota{maxRows: maxRows}
}

// Apply checks req against the quota and fills in a default $top.
func (q *RowQuota) Apply(req *queryir.Request) error {
	if q == nil || q.maxRows <= 0 {
		return nil
	}
	if req.Top == nil {
		req.Top = queryir.Int64(q.maxRows)
		return nil
	}
	if *req.Top > q.maxRows {
		return &RowsExceededError{Requested: *req.Top, Limit: q.maxRows}
	}
	return nil
}

// MaxRows returns the configured limit.
func (q *RowQuota) MaxRows() int64 {
	if q == nil {
		return 0
	}
	return q.maxRows
}

// RowsExceededError is returned when $top asks for more rows than the
// quota allows.
type RowsExceededError struct {
	Requested int64
	Limit     int64
}

// Error implements the error interface.
func (e *RowsExceededError) Error() string {
	return fmt.Sprintf("$top %d exceeds the page size limit of %d", e.Requested, e.Limit)
}

// IsRowsExceededError returns true if the error is a RowsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRowsExceededError(err error) bool {
	var re *RowsExceededError
	return errors.As(err, &re)
}
