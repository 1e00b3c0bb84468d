package engine

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/odataql/internal/expression"
	"github.com/roach88/odataql/internal/querysql"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"lex", expression.NewLexError(3, "bad"), "LEX_ERROR", http.StatusBadRequest},
		{"wrapped parse", fmt.Errorf("compile $filter: %w", expression.NewParseError(0, "bad")), "PARSE_ERROR", http.StatusBadRequest},
		{"not implemented", expression.NewNotImplementedError(0, "has"), "NOT_IMPLEMENTED", http.StatusNotImplemented},
		{"model", expression.NewModelError("no constraints"), "MODEL_INCONSISTENT", http.StatusInternalServerError},
		{"unknown set", fmt.Errorf("%w: %q", querysql.ErrUnknownEntitySet, "trains"), ErrCodeUnknownEntitySet, http.StatusNotFound},
		{"quota", &RowsExceededError{Requested: 2, Limit: 1}, ErrCodeRowsExceeded, http.StatusBadRequest},
		{"database", errors.New("disk I/O error"), ErrCodeExecution, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := classify("req-1", tt.err)
			assert.Equal(t, tt.code, re.Code)
			assert.Equal(t, tt.status, re.Status)
			assert.Equal(t, "req-1", re.RequestID)
			assert.ErrorIs(t, re, tt.err)
		})
	}
}

func TestClassify_AlreadyClassified(t *testing.T) {
	orig := &RequestError{Code: ErrCodeInvalidRequest, Message: "bad", Status: http.StatusBadRequest}
	re := classify("req-9", fmt.Errorf("outer: %w", orig))
	assert.Same(t, orig, re)
	assert.Equal(t, "req-9", re.RequestID)
}

func TestRequestError_Error(t *testing.T) {
	re := &RequestError{Code: ErrCodeExecution, Message: "boom"}
	assert.Equal(t, "EXECUTION_FAILED: boom", re.Error())

	re.RequestID = "req-1"
	assert.Equal(t, "EXECUTION_FAILED: boom (request=req-1)", re.Error())
}

func TestRequestError_Client(t *testing.T) {
	assert.True(t, (&RequestError{Status: http.StatusBadRequest}).Client())
	assert.True(t, (&RequestError{Status: http.StatusNotFound}).Client())
	assert.True(t, (&RequestError{Status: http.StatusNotImplemented}).Client())
	assert.False(t, (&RequestError{Status: http.StatusInternalServerError}).Client())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(fmt.Errorf("x: %w", &RequestError{Status: http.StatusBadRequest})))
	assert.False(t, IsClientError(errors.New("plain")))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}
