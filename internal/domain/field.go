// Package domain defines the core types for the site provisioning workflow:
// the field type system shared by the codecs, list items, and the records
// projected out of the Sites list.
package domain

import (
	"bytes"
	"encoding/json/v2"
	"fmt"
	"strconv"
)

// FieldType identifies the transformation a tagged field value flows through.
// The set is closed; anything else falls through to passthrough handling.
type FieldType string

// Supported field type tags.
const (
	FieldTypeLookup        FieldType = "Lookup"
	FieldTypeLookupMulti   FieldType = "LookupMulti"
	FieldTypeTaxonomy      FieldType = "Taxonomy"
	FieldTypeTaxonomyMulti FieldType = "TaxonomyMulti"
	FieldTypeURL           FieldType = "Url"
	FieldTypeChoiceMulti   FieldType = "ChoiceMulti"
	FieldTypePerson        FieldType = "Person"
	FieldTypePersonMulti   FieldType = "PersonMulti"
)

// LookupRef points at another list item, optionally carrying its display title.
type LookupRef struct {
	ID    int    `json:"Id"`
	Title string `json:"Title,omitempty"`
}

// PersonRef points at a resolved user identifier.
type PersonRef struct {
	ID int `json:"Id"`
}

// TaxonomyRef points into the term vocabulary. WssId -1 means "resolve on write".
type TaxonomyRef struct {
	Label    string `json:"Label"`
	TermGUID string `json:"TermGuid"`
	WssID    int    `json:"WssId"`
}

// URLValue is a URL with a human-readable description.
// This implementation always sets the description to the URL itself.
type URLValue struct {
	URL         string `json:"Url"`
	Description string `json:"Description"`
}

// TaggedValue is the payload of a tagged inbound field value. The expected
// sub-keys depend on Type; unrecognized payloads are kept for passthrough.
type TaggedValue struct {
	Type    FieldType
	Payload map[string]any
}

// FieldValue is one field of an inbound site request: either a plain JSON
// scalar or a tagged object carrying a field type and its payload.
type FieldValue struct {
	Scalar any
	Tagged *TaggedValue
}

// IsTagged reports whether the value carries a field type tag.
func (v FieldValue) IsTagged() bool {
	return v.Tagged != nil
}

// UnmarshalJSON decodes either form of field value. An object with a string
// "type" member becomes a tagged value; everything else is kept as a scalar.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var payload map[string]any
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return fmt.Errorf("decode field value object: %w", err)
		}
		if tag, ok := payload["type"].(string); ok {
			v.Tagged = &TaggedValue{Type: FieldType(tag), Payload: payload}
			return nil
		}
		// Untyped objects pass through as-is.
		v.Scalar = payload
		return nil
	}

	var scalar any
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return fmt.Errorf("decode field value: %w", err)
	}
	v.Scalar = scalar
	return nil
}

// MarshalJSON re-encodes the value in the shape it was received.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.Tagged != nil {
		return json.Marshal(v.Tagged.Payload)
	}
	return json.Marshal(v.Scalar)
}

// PayloadString extracts a payload sub-key coerced to its string form.
// The second return reports whether the key was present at all; numbers are
// rendered without a decimal point when integral.
func (t *TaggedValue) PayloadString(key string) (string, bool) {
	raw, ok := t.Payload[key]
	if !ok || raw == nil {
		return "", ok && raw != nil
	}
	return CoerceString(raw), true
}

// PayloadStrings extracts a payload sub-key holding a sequence of values,
// each coerced to string form.
func (t *TaggedValue) PayloadStrings(key string) ([]string, bool) {
	raw, ok := t.Payload[key]
	if !ok || raw == nil {
		return nil, false
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		out = append(out, CoerceString(item))
	}
	return out, true
}

// CoerceString renders a decoded JSON value as a string. Integral floats are
// rendered without a fraction so lookup ids survive the JSON number round trip.
func CoerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
