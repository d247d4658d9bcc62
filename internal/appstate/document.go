package appstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidJSON is returned when bytes are not syntactically valid JSON.
	ErrInvalidJSON = errors.New("document is not valid JSON")
	// ErrNotObject is returned for valid JSON that is not a non-null object.
	ErrNotObject = errors.New("document must be a JSON object")
)

// Document is an immutable AppState: the raw bytes of one JSON object.
// The zero value is an empty (not yet loaded) document.
type Document struct {
	raw []byte
}

// Parse validates data as a non-null JSON object and returns a Document
// holding a private compacted copy of it.
func Parse(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Document{}, ErrInvalidJSON
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Document{}, ErrNotObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return Document{raw: buf.Bytes()}, nil
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(data string) Document {
	doc, err := Parse([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("appstate: invalid document literal: %v", err))
	}
	return doc
}

// IsZero reports whether the document was never populated.
func (d Document) IsZero() bool {
	return len(d.raw) == 0
}

// Bytes returns a copy of the compact JSON encoding.
func (d Document) Bytes() []byte {
	return bytes.Clone(d.raw)
}

// Len is the size of the compact encoding in bytes.
func (d Document) Len() int {
	return len(d.raw)
}

// Indent returns the 2-space indented form used for db.json on disk.
func (d Document) Indent() ([]byte, error) {
	if d.IsZero() {
		return nil, ErrNotObject
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON emits the document unchanged.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return d.Bytes(), nil
}

// UnmarshalJSON accepts only a JSON object.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Equal reports structural equality: key order and whitespace are ignored,
// numbers are compared by their literal text.
func (d Document) Equal(other Document) bool {
	if bytes.Equal(d.raw, other.raw) {
		return true
	}
	if d.IsZero() || other.IsZero() {
		return false
	}
	a, err := d.decode()
	if err != nil {
		return false
	}
	b, err := other.decode()
	if err != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func (d Document) decode() (any, error) {
	dec := json.NewDecoder(bytes.NewReader(d.raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// AdminLobs reads users.Admin.adminLobs for operator logging. It reports
// false when the field is absent; the document is never modified.
func (d Document) AdminLobs() (json.Number, bool) {
	var probe struct {
		Users map[string]struct {
			AdminLobs *json.Number `json:"adminLobs"`
		} `json:"users"`
	}
	dec := json.NewDecoder(bytes.NewReader(d.raw))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return "", false
	}
	admin, ok := probe.Users["Admin"]
	if !ok || admin.AdminLobs == nil {
		return "", false
	}
	return *admin.AdminLobs, true
}
