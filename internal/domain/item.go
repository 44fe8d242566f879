package domain

// Item is one record in a list: a store-assigned integer id plus a flat
// mapping of field internal names to values. Values are either native field
// values (LookupRef, TaxonomyRef, URLValue, PersonRef, sequences of those,
// []string choices) or plain scalars. Items read back from a store may carry
// JSON-decoded forms (map[string]any, []any); the accessors below normalize
// both representations.
type Item struct {
	ID     int            `json:"Id"`
	Fields map[string]any `json:"Fields"`
}

// String returns the string form of a scalar field. The second return is
// false when the field is absent or null.
func (it Item) String(name string) (string, bool) {
	raw, ok := it.Fields[name]
	if !ok || raw == nil {
		return "", false
	}
	return CoerceString(raw), true
}

// Lookup returns a lookup field as a reference, handling both the native
// LookupRef type and the map form it decodes to after a store round trip.
// Returns nil, false when the field is absent or null.
func (it Item) Lookup(name string) (*LookupRef, bool) {
	raw, ok := it.Fields[name]
	if !ok || raw == nil {
		return nil, false
	}

	switch val := raw.(type) {
	case LookupRef:
		ref := val
		return &ref, true
	case *LookupRef:
		if val == nil {
			return nil, false
		}
		ref := *val
		return &ref, true
	case map[string]any:
		id, hasID := val["Id"]
		if !hasID {
			return nil, false
		}
		ref := &LookupRef{ID: coerceInt(id)}
		if title, hasTitle := val["Title"].(string); hasTitle {
			ref.Title = title
		}
		return ref, true
	default:
		return nil, false
	}
}

// Lookups returns a multi-lookup field as an ordered sequence of references.
func (it Item) Lookups(name string) ([]LookupRef, bool) {
	raw, ok := it.Fields[name]
	if !ok || raw == nil {
		return nil, false
	}

	switch val := raw.(type) {
	case []LookupRef:
		return val, true
	case []any:
		refs := make([]LookupRef, 0, len(val))
		for _, entry := range val {
			m, isMap := entry.(map[string]any)
			if !isMap {
				continue
			}
			ref := LookupRef{ID: coerceInt(m["Id"])}
			if title, hasTitle := m["Title"].(string); hasTitle {
				ref.Title = title
			}
			refs = append(refs, ref)
		}
		return refs, true
	default:
		return nil, false
	}
}

// Bool returns a boolean field, accepting native bools and the string forms
// produced by form clients ("true"/"false", "1"/"0").
func (it Item) Bool(name string) bool {
	raw, ok := it.Fields[name]
	if !ok || raw == nil {
		return false
	}
	switch val := raw.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1" || val == "True"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceInt(v any) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return 0
	}
}
