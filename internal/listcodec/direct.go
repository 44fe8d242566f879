package listcodec

import (
	"strings"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// Wire type markers carried in the __metadata member of direct write shapes.
const (
	metaTypeURL      = "SP.FieldUrlValue"
	metaTypeTaxonomy = "SP.Taxonomy.TaxonomyFieldValue"
)

// DecodeDirectItem translates a record in the list store's own item-creation
// shape into native field values. The direct shape differs from the tagged
// API shape in its key conventions: reference fields arrive under an
// Id-suffixed key carrying the bare id (or an id sequence wrapped in
// {results: [...]}), URL and taxonomy values carry a __metadata type marker,
// and multi-choice values arrive as {results: [...]} under the plain key.
func DecodeDirectItem(body map[string]any) map[string]any {
	native := make(map[string]any, len(body))
	for key, value := range body {
		name, decoded := decodeDirectField(key, value)
		native[name] = decoded
	}
	return native
}

func decodeDirectField(key string, value any) (string, any) {
	if base, isRef := strings.CutSuffix(key, "Id"); isRef && base != "" {
		if decoded, ok := decodeRefValue(value); ok {
			return base, decoded
		}
	}

	obj, isObj := value.(map[string]any)
	if !isObj {
		return key, value
	}

	switch metadataType(obj) {
	case metaTypeURL:
		url, _ := obj["Url"].(string)
		desc, _ := obj["Description"].(string)
		return key, domain.URLValue{URL: url, Description: desc}
	case metaTypeTaxonomy:
		label, _ := obj["Label"].(string)
		guid, _ := obj["TermGuid"].(string)
		return key, domain.TaxonomyRef{Label: label, TermGUID: guid, WssID: -1}
	}

	if results, ok := obj["results"].([]any); ok {
		choices := make([]string, 0, len(results))
		for _, entry := range results {
			choices = append(choices, domain.CoerceString(entry))
		}
		return key, choices
	}

	return key, value
}

// decodeRefValue handles the value side of an Id-suffixed key: a bare id or
// a {results: [ids]} sequence. Non-integer values are left for the plain-key
// path, since a field name can legitimately end in "Id".
func decodeRefValue(value any) (any, bool) {
	switch val := value.(type) {
	case float64:
		return domain.LookupRef{ID: int(val)}, true
	case string:
		id, ok := atoiStrict(val)
		if !ok {
			return nil, false
		}
		return domain.LookupRef{ID: id}, true
	case map[string]any:
		results, ok := val["results"].([]any)
		if !ok {
			return nil, false
		}
		refs := make([]domain.LookupRef, 0, len(results))
		for _, entry := range results {
			id, ok := atoiStrict(domain.CoerceString(entry))
			if !ok {
				return nil, false
			}
			refs = append(refs, domain.LookupRef{ID: id})
		}
		return refs, true
	default:
		return nil, false
	}
}

func metadataType(obj map[string]any) string {
	meta, ok := obj["__metadata"].(map[string]any)
	if !ok {
		return ""
	}
	typ, _ := meta["type"].(string)
	return typ
}

func atoiStrict(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
