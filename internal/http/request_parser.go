// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading submitted fields. Handlers accept
// both form-encoded bodies (HTMX) and JSON objects.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"fintrack/internal/query"
	"fintrack/internal/services"
)

// maxBodyBytes caps request bodies; transaction forms are tiny.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// NewQueryParser exposes URL query parameters through the parser API.
func NewQueryParser(values url.Values) *RequestBodyParser {
	return &RequestBodyParser{formData: values, parsed: true}
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

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was submitted at all, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
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

// createInput maps the add form. An absent amount means 0; a submitted empty
// amount is left empty and rejected by the service.
func (p *RequestBodyParser) createInput() services.CreateInput {
	in := p.fields()
	if !p.Has("amount") {
		in.Amount = "0"
	}
	return in
}

// updateInput maps the update form; absent and empty fields both keep the
// stored value.
func (p *RequestBodyParser) updateInput() services.UpdateInput {
	return services.UpdateInput(p.fields())
}

func (p *RequestBodyParser) fields() services.CreateInput {
	return services.CreateInput{
		Date:          p.Get("date"),
		Type:          p.Get("type"),
		Category:      p.Get("category"),
		Amount:        p.Get("amount"),
		PaymentMethod: p.Get("payment_method"),
		Description:   p.Get("description"),
	}
}

// searchParams maps the search form. Absent amount bounds default to "0";
// a submitted empty bound is left empty and rejected by the engine.
func (p *RequestBodyParser) searchParams() query.SearchParams {
	bound := func(key string) string {
		if !p.Has(key) {
			return "0"
		}
		return p.Get(key)
	}
	return query.SearchParams{
		Mode:     p.Get("mode"),
		Date:     p.Get("date_search"),
		Category: p.Get("category_search"),
		Min:      bound("min_amt"),
		Max:      bound("max_amt"),
	}
}
