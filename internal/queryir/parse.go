package queryir

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseQuery builds a Request from a URL query string such as
// "$filter=gate gt 3&$top=10". Unknown options starting with '$' are
// rejected; other parameters are ignored.
func ParseQuery(entitySet, rawQuery string) (Request, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Request{}, fmt.Errorf("parse query string: %w", err)
	}

	req := Request{EntitySet: entitySet}
	for name, vals := range values {
		if !strings.HasPrefix(name, "$") {
			continue
		}
		if len(vals) != 1 {
			return Request{}, fmt.Errorf("system query option %s given %d times", name, len(vals))
		}
		val := vals[0]

		switch name {
		case "$filter":
			req.Filter = val
		case "$orderby":
			req.OrderBy = val
		case "$select":
			req.Select = splitSelect(val)
		case "$top":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return Request{}, fmt.Errorf("$top: %q is not an integer", val)
			}
			req.Top = &n
		case "$skip":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return Request{}, fmt.Errorf("$skip: %q is not an integer", val)
			}
			req.Skip = &n
		default:
			return Request{}, fmt.Errorf("unsupported system query option %s", name)
		}
	}
	return req, nil
}

func splitSelect(val string) []string {
	if strings.TrimSpace(val) == "*" {
		return nil
	}
	parts := strings.Split(val, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
