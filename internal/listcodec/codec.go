// Package listcodec translates between flat request records and the native
// field values the list store writes. Each tagged field value flows through a
// fixed transformation selected by its type tag; plain scalars pass through
// untouched.
package listcodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// FieldError reports a field whose value could not be translated.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Codec translates inbound records into native list writes.
//
// In lenient mode (the default), a tagged value missing its expected sub-key
// maps to null instead of failing; strict mode surfaces those as FieldError.
// Non-integer id strings are an error in both modes. The store would reject
// them anyway, and silently dropping a lookup the caller thought they set is
// worse than failing loudly.
type Codec struct {
	Strict bool
}

// EncodeItem translates a full inbound record into the native field map for a
// single list write. Field order in the input does not matter; fields are
// independent. A nil native value means "write null".
func (c Codec) EncodeItem(fields map[string]domain.FieldValue) (map[string]any, error) {
	native := make(map[string]any, len(fields))
	for name, value := range fields {
		encoded, err := c.EncodeField(name, value)
		if err != nil {
			return nil, err
		}
		native[name] = encoded
	}
	return native, nil
}

// EncodeField translates one field value. Untagged scalars pass through
// unchanged; tagged values dispatch on their type tag.
func (c Codec) EncodeField(name string, value domain.FieldValue) (any, error) {
	if !value.IsTagged() {
		return value.Scalar, nil
	}

	tagged := value.Tagged
	switch tagged.Type {
	case domain.FieldTypeLookup:
		return c.encodeLookup(name, tagged)
	case domain.FieldTypeLookupMulti:
		return c.encodeLookupMulti(name, tagged)
	case domain.FieldTypeChoiceMulti:
		return c.encodeChoiceMulti(name, tagged)
	case domain.FieldTypeTaxonomy:
		return c.encodeTaxonomy(name, tagged)
	case domain.FieldTypeTaxonomyMulti:
		return c.encodeTaxonomyMulti(name, tagged)
	case domain.FieldTypeURL:
		return c.encodeURL(name, tagged)
	case domain.FieldTypePerson:
		return c.encodePerson(name, tagged)
	case domain.FieldTypePersonMulti:
		return c.encodePersonMulti(name, tagged)
	default:
		// Unknown tags pass the raw value member through. The store may
		// reject the write; that is the caller's problem, not the codec's.
		if raw, ok := tagged.Payload["value"]; ok {
			return raw, nil
		}
		return tagged.Payload, nil
	}
}

// payloadValue pulls the designated sub-key out of a tagged payload,
// applying the empty and strict policies uniformly across tags.
func (c Codec) payloadValue(name string, tagged *domain.TaggedValue, key string) (string, bool, error) {
	val, present := tagged.PayloadString(key)
	if !present {
		if c.Strict {
			return "", false, &FieldError{Field: name, Reason: fmt.Sprintf("missing %q member for %s value", key, tagged.Type)}
		}
		return "", false, nil
	}
	if val == "" {
		return "", false, nil
	}
	return val, true, nil
}

func (c Codec) encodeLookup(name string, tagged *domain.TaggedValue) (any, error) {
	val, ok, err := c.payloadValue(name, tagged, "value")
	if err != nil || !ok {
		return nil, err
	}
	id, err := parseID(name, val)
	if err != nil {
		return nil, err
	}
	return domain.LookupRef{ID: id}, nil
}

func (c Codec) encodeLookupMulti(name string, tagged *domain.TaggedValue) (any, error) {
	val, ok, err := c.payloadValue(name, tagged, "value")
	if err != nil || !ok {
		return nil, err
	}

	parts := strings.Split(val, ",")
	refs := make([]domain.LookupRef, 0, len(parts))
	for _, part := range parts {
		id, err := parseID(name, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		refs = append(refs, domain.LookupRef{ID: id})
	}
	return refs, nil
}

func (c Codec) encodeChoiceMulti(name string, tagged *domain.TaggedValue) (any, error) {
	choices, present := tagged.PayloadStrings("results")
	if !present {
		if c.Strict {
			return nil, &FieldError{Field: name, Reason: "missing \"results\" member for ChoiceMulti value"}
		}
		return nil, nil
	}
	if len(choices) == 0 {
		return nil, nil
	}
	return choices, nil
}

func (c Codec) encodeTaxonomy(name string, tagged *domain.TaggedValue) (any, error) {
	label, labelOK, err := c.payloadValue(name, tagged, "Label")
	if err != nil {
		return nil, err
	}
	guid, guidOK, err := c.payloadValue(name, tagged, "TermGuid")
	if err != nil {
		return nil, err
	}
	if !labelOK || !guidOK {
		return nil, nil
	}
	return domain.TaxonomyRef{Label: label, TermGUID: guid, WssID: -1}, nil
}

func (c Codec) encodeTaxonomyMulti(name string, tagged *domain.TaggedValue) (any, error) {
	// The multi-term encoding is produced by the client codec; it passes
	// through opaque here.
	val, ok, err := c.payloadValue(name, tagged, "value")
	if err != nil || !ok {
		return nil, err
	}
	return val, nil
}

func (c Codec) encodeURL(name string, tagged *domain.TaggedValue) (any, error) {
	val, ok, err := c.payloadValue(name, tagged, "value")
	if err != nil || !ok {
		return nil, err
	}
	return domain.URLValue{URL: val, Description: val}, nil
}

func (c Codec) encodePerson(name string, tagged *domain.TaggedValue) (any, error) {
	val, ok, err := c.payloadValue(name, tagged, "value")
	if err != nil || !ok {
		return nil, err
	}
	id, err := parseID(name, val)
	if err != nil {
		return nil, err
	}
	return domain.PersonRef{ID: id}, nil
}

func (c Codec) encodePersonMulti(name string, tagged *domain.TaggedValue) (any, error) {
	val, ok, err := c.payloadValue(name, tagged, "value")
	if err != nil || !ok {
		return nil, err
	}

	parts := strings.Split(val, ",")
	refs := make([]domain.PersonRef, 0, len(parts))
	for _, part := range parts {
		id, err := parseID(name, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		refs = append(refs, domain.PersonRef{ID: id})
	}
	return refs, nil
}

func parseID(name, val string) (int, error) {
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, &FieldError{Field: name, Reason: fmt.Sprintf("non-integer id %q", val)}
	}
	return id, nil
}
