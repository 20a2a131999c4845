package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// KeyField is one column of a business key. A nil pointer value means the column must be NULL.
type KeyField struct {
	Column string
	Value  interface{}
}

// BusinessKey is an ordered set of column predicates.
type BusinessKey []KeyField

// Columns returns the key's column names in order.
func (k BusinessKey) Columns() []string {
	cols := make([]string, len(k))
	for i, f := range k {
		cols[i] = f.Column
	}
	return cols
}

// EditableField maps an allow-listed staged column to its production column.
type EditableField struct {
	Staged     string
	Production string
}

// FieldEdit is a decoded change to one staged column.
type FieldEdit struct {
	Column           string
	ProductionColumn string
	Value            interface{}
}

// FieldError reports an edit value that could not be decoded.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrNoEditableFields is returned when none of the submitted keys are allow-listed.
var ErrNoEditableFields = &FieldError{Field: "editFields", Reason: "no valid fields to update"}

var editDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

type editDecoder struct {
	raw        map[string]json.RawMessage
	production map[string]string
	edits      []FieldEdit
	err        error
}

func newEditDecoder(raw map[string]json.RawMessage, fields []EditableField) *editDecoder {
	production := make(map[string]string, len(fields))
	for _, f := range fields {
		production[f.Staged] = f.Production
	}
	return &editDecoder{raw: raw, production: production}
}

func (d *editDecoder) lookup(field string) (json.RawMessage, bool) {
	if d.err != nil {
		return nil, false
	}
	value, ok := d.raw[field]
	return value, ok
}

func (d *editDecoder) record(field string, value interface{}) {
	d.edits = append(d.edits, FieldEdit{Column: field, ProductionColumn: d.production[field], Value: value})
}

func (d *editDecoder) fail(field, reason string) {
	d.err = &FieldError{Field: field, Reason: reason}
}

func (d *editDecoder) requiredString(field string, dest *string) {
	value, ok := d.lookup(field)
	if !ok {
		return
	}
	var s *string
	if err := json.Unmarshal(value, &s); err != nil {
		d.fail(field, "must be a string")
		return
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		d.fail(field, "must not be empty")
		return
	}
	*dest = strings.TrimSpace(*s)
	d.record(field, *dest)
}

func (d *editDecoder) nullableString(field string, dest **string) {
	value, ok := d.lookup(field)
	if !ok {
		return
	}
	var s *string
	if err := json.Unmarshal(value, &s); err != nil {
		d.fail(field, "must be a string or null")
		return
	}
	if s != nil {
		trimmed := strings.TrimSpace(*s)
		if trimmed == "" {
			s = nil
		} else {
			s = &trimmed
		}
	}
	*dest = s
	d.record(field, s)
}

func (d *editDecoder) nullableInt(field string, dest **int64) {
	value, ok := d.lookup(field)
	if !ok {
		return
	}
	var n *int64
	dec := json.NewDecoder(bytes.NewReader(value))
	if err := dec.Decode(&n); err != nil {
		d.fail(field, "must be an integer or null")
		return
	}
	*dest = n
	d.record(field, n)
}

func (d *editDecoder) timestamp(field string, dest *time.Time) {
	value, ok := d.lookup(field)
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		d.fail(field, "must be a date string")
		return
	}
	parsed, err := parseEditTime(strings.TrimSpace(s))
	if err != nil {
		d.fail(field, "must be an ISO-8601 date or timestamp")
		return
	}
	*dest = parsed
	d.record(field, parsed)
}

func (d *editDecoder) result() ([]FieldEdit, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(d.edits) == 0 {
		return nil, ErrNoEditableFields
	}
	return d.edits, nil
}

func parseEditTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range editDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
