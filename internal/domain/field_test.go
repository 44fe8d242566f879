package domain

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValue_UnmarshalScalar(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`"Team Phoenix"`), &v))

	assert.False(t, v.IsTagged())
	assert.Equal(t, "Team Phoenix", v.Scalar)
}

func TestFieldValue_UnmarshalTagged(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`{"value":"12","type":"Lookup"}`), &v))

	require.True(t, v.IsTagged())
	assert.Equal(t, FieldTypeLookup, v.Tagged.Type)

	got, ok := v.Tagged.PayloadString("value")
	assert.True(t, ok)
	assert.Equal(t, "12", got)
}

func TestFieldValue_UnmarshalUntypedObject(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`{"results":["A","B"]}`), &v))

	assert.False(t, v.IsTagged(), "object without a type tag stays a scalar passthrough")
	payload, ok := v.Scalar.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "results")
}

func TestFieldValue_RequestRoundTrip(t *testing.T) {
	body := []byte(`{"Title":"Test","EUMDivision":{"value":"3","type":"Lookup"},"EUMCreateTeam":false}`)

	var fields map[string]FieldValue
	require.NoError(t, json.Unmarshal(body, &fields))

	require.Len(t, fields, 3)
	assert.False(t, fields["Title"].IsTagged())
	assert.True(t, fields["EUMDivision"].IsTagged())
	assert.Equal(t, false, fields["EUMCreateTeam"].Scalar)

	// Echoing the body back reproduces the same shapes.
	encoded, err := json.Marshal(fields)
	require.NoError(t, err)

	var again map[string]FieldValue
	require.NoError(t, json.Unmarshal(encoded, &again))
	assert.True(t, again["EUMDivision"].IsTagged())
	assert.Equal(t, FieldTypeLookup, again["EUMDivision"].Tagged.Type)
}

func TestTaggedValue_PayloadString_NumberCoercion(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`{"value":7,"type":"Person"}`), &v))

	got, ok := v.Tagged.PayloadString("value")
	assert.True(t, ok)
	assert.Equal(t, "7", got, "JSON numbers must not grow a decimal point")
}

func TestTaggedValue_PayloadString_Missing(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Url"}`), &v))

	_, ok := v.Tagged.PayloadString("value")
	assert.False(t, ok)
}

func TestTaggedValue_PayloadStrings(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`{"results":["Red","Blue"],"type":"ChoiceMulti"}`), &v))

	got, ok := v.Tagged.PayloadStrings("results")
	assert.True(t, ok)
	assert.Equal(t, []string{"Red", "Blue"}, got)
}

func TestItem_Lookup_DecodedForm(t *testing.T) {
	it := Item{
		ID: 4,
		Fields: map[string]any{
			"EUMDivision": map[string]any{"Id": float64(9), "Title": "Finance"},
			"Title":       "Budget Site",
		},
	}

	ref, ok := it.Lookup("EUMDivision")
	require.True(t, ok)
	assert.Equal(t, 9, ref.ID)
	assert.Equal(t, "Finance", ref.Title)

	_, ok = it.Lookup("EUMSiteTemplate")
	assert.False(t, ok, "absent lookup must report not-present")
}

func TestItem_String_NullIsAbsent(t *testing.T) {
	it := Item{ID: 1, Fields: map[string]any{"Title": nil}}

	_, ok := it.String("Title")
	assert.False(t, ok, "null field must never render as a string")
}
