// Package client mirrors the provisioning form: it captures form values,
// encodes them into one of two wire shapes, validates them, and submits the
// request either through the provisioning API or directly against the list
// store's item endpoint.
package client

import (
	"strings"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// EncodedField is one pending field value ready for submission: the wire key
// it is stored under and the wire value.
type EncodedField struct {
	Key   string
	Value any
}

// FieldEncoder produces the wire shape for each supported field type. Two
// implementations exist, selected once per form session: APIShapeEncoder for
// the provisioning API's tagged shapes, DirectStoreShapeEncoder for the list
// store's native write shapes. Every field type has both shapes.
type FieldEncoder interface {
	Text(name, value string) EncodedField
	Lookup(name, id string) EncodedField
	LookupMulti(name string, ids []string) EncodedField
	ChoiceMulti(name string, choices []string) EncodedField
	Taxonomy(name string, term domain.Term) EncodedField
	TaxonomyMulti(name string, terms []domain.Term) EncodedField
	URL(name, url string) EncodedField
	Person(name, id string) EncodedField
	PersonMulti(name string, ids []string) EncodedField
}

// directIDSuffix lists the field types whose direct-store key carries an
// "Id" suffix. This is the single place the two encoders' key conventions
// diverge; keeping it in one table keeps them auditable against each other.
var directIDSuffix = map[domain.FieldType]bool{
	domain.FieldTypeLookup:      true,
	domain.FieldTypeLookupMulti: true,
	domain.FieldTypePerson:      true,
	domain.FieldTypePersonMulti: true,
}

// fieldKey returns the wire key for a field in the given mode.
func fieldKey(name string, tag domain.FieldType, direct bool) string {
	if direct && directIDSuffix[tag] {
		return name + "Id"
	}
	return name
}

// APIShapeEncoder produces the tagged-object shapes the provisioning API's
// inbound codec expects.
type APIShapeEncoder struct{}

func (APIShapeEncoder) Text(name, value string) EncodedField {
	return EncodedField{Key: name, Value: value}
}

func (APIShapeEncoder) Lookup(name, id string) EncodedField {
	return EncodedField{
		Key:   fieldKey(name, domain.FieldTypeLookup, false),
		Value: map[string]any{"value": id, "type": string(domain.FieldTypeLookup)},
	}
}

func (APIShapeEncoder) LookupMulti(name string, ids []string) EncodedField {
	return EncodedField{
		Key:   fieldKey(name, domain.FieldTypeLookupMulti, false),
		Value: map[string]any{"value": strings.Join(ids, ","), "type": string(domain.FieldTypeLookupMulti)},
	}
}

func (APIShapeEncoder) ChoiceMulti(name string, choices []string) EncodedField {
	return EncodedField{
		Key:   name,
		Value: map[string]any{"results": choices, "type": string(domain.FieldTypeChoiceMulti)},
	}
}

func (APIShapeEncoder) Taxonomy(name string, term domain.Term) EncodedField {
	return EncodedField{
		Key: name,
		Value: map[string]any{
			"Label":    term.Name,
			"TermGuid": term.Key,
			"type":     string(domain.FieldTypeTaxonomy),
		},
	}
}

func (APIShapeEncoder) TaxonomyMulti(name string, terms []domain.Term) EncodedField {
	return EncodedField{
		Key:   name,
		Value: map[string]any{"value": EncodeTerms(terms), "type": string(domain.FieldTypeTaxonomyMulti)},
	}
}

func (APIShapeEncoder) URL(name, url string) EncodedField {
	return EncodedField{
		Key:   name,
		Value: map[string]any{"value": url, "type": string(domain.FieldTypeURL)},
	}
}

func (APIShapeEncoder) Person(name, id string) EncodedField {
	return EncodedField{
		Key:   name,
		Value: map[string]any{"value": id, "type": string(domain.FieldTypePerson)},
	}
}

func (APIShapeEncoder) PersonMulti(name string, ids []string) EncodedField {
	return EncodedField{
		Key:   name,
		Value: map[string]any{"value": strings.Join(ids, ","), "type": string(domain.FieldTypePersonMulti)},
	}
}

// DirectStoreShapeEncoder produces the list store's own item-creation
// shapes: bare ids under Id-suffixed keys, {results: [...]} sequences, and
// __metadata-typed objects for URL and taxonomy values.
type DirectStoreShapeEncoder struct{}

func (DirectStoreShapeEncoder) Text(name, value string) EncodedField {
	return EncodedField{Key: name, Value: value}
}

func (DirectStoreShapeEncoder) Lookup(name, id string) EncodedField {
	return EncodedField{Key: fieldKey(name, domain.FieldTypeLookup, true), Value: id}
}

func (DirectStoreShapeEncoder) LookupMulti(name string, ids []string) EncodedField {
	return EncodedField{
		Key:   fieldKey(name, domain.FieldTypeLookupMulti, true),
		Value: map[string]any{"results": ids},
	}
}

func (DirectStoreShapeEncoder) ChoiceMulti(name string, choices []string) EncodedField {
	return EncodedField{Key: name, Value: map[string]any{"results": choices}}
}

func (DirectStoreShapeEncoder) Taxonomy(name string, term domain.Term) EncodedField {
	return EncodedField{
		Key: name,
		Value: map[string]any{
			"__metadata": map[string]any{"type": "SP.Taxonomy.TaxonomyFieldValue"},
			"Label":      term.Name,
			"TermGuid":   term.Key,
			"WssId":      -1,
		},
	}
}

func (DirectStoreShapeEncoder) TaxonomyMulti(name string, terms []domain.Term) EncodedField {
	return EncodedField{Key: name, Value: EncodeTerms(terms)}
}

func (DirectStoreShapeEncoder) URL(name, url string) EncodedField {
	return EncodedField{
		Key: name,
		Value: map[string]any{
			"__metadata":  map[string]any{"type": "SP.FieldUrlValue"},
			"Url":         url,
			"Description": url,
		},
	}
}

func (DirectStoreShapeEncoder) Person(name, id string) EncodedField {
	return EncodedField{Key: fieldKey(name, domain.FieldTypePerson, true), Value: id}
}

func (DirectStoreShapeEncoder) PersonMulti(name string, ids []string) EncodedField {
	return EncodedField{
		Key:   fieldKey(name, domain.FieldTypePersonMulti, true),
		Value: map[string]any{"results": ids},
	}
}

// EncodeTerms joins taxonomy term selections into the multi-term wire
// encoding: each term as "-1;#Label|Guid", joined with ";", no trailing
// separator.
func EncodeTerms(terms []domain.Term) string {
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		parts = append(parts, "-1;#"+term.Name+"|"+term.Key)
	}
	return strings.Join(parts, ";")
}
