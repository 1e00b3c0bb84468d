package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/odataql/internal/model"
)

// marshalParams converts bound parameters to JSON TEXT for the query log.
// Decimals, GUIDs and timestamps serialize as strings through their own
// JSON marshalers. HTML escaping is disabled so the text matches what was
// bound.
func marshalParams(params []any) (string, error) {
	if params == nil {
		params = []any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalParams parses logged parameters. Numbers decode as json.Number
// to avoid float64 precision loss for values > 2^53.
func unmarshalParams(data string) ([]any, error) {
	if data == "" || data == "[]" {
		return []any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var params []any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return params, nil
}

// paramType names the primitive type of a bound parameter. Dates and times
// of day are bound as text and log as strings.
func paramType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return model.Boolean.Short()
	case int, int32, int64:
		return model.Int64.Short()
	case float64:
		return model.Double.Short()
	case decimal.Decimal:
		return model.Decimal.Short()
	case uuid.UUID:
		return model.Guid.Short()
	case time.Time:
		return model.DateTimeOffset.Short()
	}
	return model.String.Short()
}

// marshalParamTypes records the type of each parameter alongside the JSON
// values so replay can bind what was originally bound.
func marshalParamTypes(params []any) (string, error) {
	types := make([]string, len(params))
	for i, v := range params {
		types[i] = paramType(v)
	}
	data, err := json.Marshal(types)
	if err != nil {
		return "", fmt.Errorf("marshal param types: %w", err)
	}
	return string(data), nil
}

func unmarshalParamTypes(data string) ([]string, error) {
	types := []string{}
	if data == "" {
		return types, nil
	}
	if err := json.Unmarshal([]byte(data), &types); err != nil {
		return nil, fmt.Errorf("unmarshal param types: %w", err)
	}
	return types, nil
}

// bindParam converts a logged parameter back to the Go type recorded for
// it. An empty type falls back to the JSON value, with whole numbers bound
// as int64.
func bindParam(v any, typ string) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, isNumber := v.(json.Number)
	s, isString := v.(string)

	switch {
	case typ == model.Int64.Short() && isNumber:
		return n.Int64()
	case typ == model.Double.Short() && isNumber:
		return n.Float64()
	case typ == model.Decimal.Short() && isString:
		return decimal.NewFromString(s)
	case typ == model.Guid.Short() && isString:
		return uuid.Parse(s)
	case typ == model.DateTimeOffset.Short() && isString:
		t, err := dateparse.ParseStrict(s)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case typ == "" && isNumber:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return v, nil
}

// BindParams returns the logged parameters converted back to the types
// they were bound with when the request ran.
func (e QueryLogEntry) BindParams() ([]any, error) {
	params := make([]any, len(e.Params))
	for i, v := range e.Params {
		var typ string
		if i < len(e.ParamTypes) {
			typ = e.ParamTypes[i]
		}
		p, err := bindParam(v, typ)
		if err != nil {
			return nil, fmt.Errorf("request %s: param %d: %w", e.RequestID, i+1, err)
		}
		params[i] = p
	}
	return params, nil
}
