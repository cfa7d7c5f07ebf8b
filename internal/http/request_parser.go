// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"payables/internal/core"
)

// ErrInvalidParam is returned for query values that do not parse.
var ErrInvalidParam = errors.New("invalid parameter")

// UserHeader carries the id of the authenticated user.
const UserHeader = "X-User-ID"

// maxBodyBytes bounds JSON and form bodies.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters. Zero
// values mean the parameter was absent.
type MonthParams struct {
	Year  int
	Month time.Month
	Next  bool
	Prev  bool
}

// ParseMonthParams reads year, month, next and previous from the query.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	var params MonthParams
	var err error
	if params.Year, err = intParam(query, "year", 0); err != nil {
		return MonthParams{}, err
	}
	month, err := intParam(query, "month", 0)
	if err != nil {
		return MonthParams{}, err
	}
	params.Month = time.Month(month)
	if params.Next, err = boolParam(query, "next"); err != nil {
		return MonthParams{}, err
	}
	if params.Prev, err = boolParam(query, "previous"); err != nil {
		return MonthParams{}, err
	}
	return params, nil
}

// ParseListOptions reads filter, order_by, desc, limit and offset. Range
// checks are left to core.ListOptions.Normalize.
func ParseListOptions(query url.Values) (core.ListOptions, error) {
	var opts core.ListOptions
	var err error
	if opts.Filter, err = core.ParseInvoiceFilter(query.Get("filter")); err != nil {
		return core.ListOptions{}, err
	}
	if opts.Sort, err = core.ParseSortKey(query.Get("order_by")); err != nil {
		return core.ListOptions{}, err
	}
	if opts.Desc, err = boolParam(query, "desc"); err != nil {
		return core.ListOptions{}, err
	}
	if opts.Limit, err = intParam(query, "limit", 0); err != nil {
		return core.ListOptions{}, err
	}
	if opts.Offset, err = intParam(query, "offset", 0); err != nil {
		return core.ListOptions{}, err
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return core.ListOptions{}, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidParam)
	}
	return opts, nil
}

// ParseBoolParam reads a required boolean query parameter.
func ParseBoolParam(query url.Values, key string) (bool, error) {
	if strings.TrimSpace(query.Get(key)) == "" {
		return false, fmt.Errorf("%w: %s is required", ErrInvalidParam, key)
	}
	return boolParam(query, key)
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, v)
	}
	return n, nil
}

func boolParam(query url.Values, key string) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, v)
	}
	return b, nil
}

// UserID returns the trimmed X-User-ID header.
func UserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

// RequestBodyParser handles JSON and form-encoded bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", ErrInvalidParam)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", ErrInvalidParam)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters and caps the length.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
