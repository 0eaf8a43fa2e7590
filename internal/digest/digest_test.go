package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hi", `"hi"`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"control chars", "a\nb\x01", `"a\nb\u0001"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"bool", true, `true`},
		{"int64", int64(-3), `-3`},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"sorted keys", map[string]any{"b": 1, "a": "x", "aa": false}, `{"a":"x","aa":false,"b":1}`},
		{"nested", map[string]any{"k": []any{"v", 2}}, `{"k":["v",2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as 0xD83D 0xDE00 in UTF-16 and sorts before U+E000, the reverse of UTF-8 byte order.
	got, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "\ue000": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\ue000\":2}", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for _, v := range []any{nil, 1.5, struct{}{}, map[string]any{"x": nil}} {
		_, err := MarshalCanonical(v)
		assert.Error(t, err, "%#v", v)
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"
	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestSubmissionID(t *testing.T) {
	id1 := MustSubmissionID("s1", 1, "x := 1")
	id2 := MustSubmissionID("s1", 1, "x := 1")
	assert.Equal(t, id1, id2, "deterministic")
	assert.Len(t, id1, 64)

	assert.NotEqual(t, id1, MustSubmissionID("s1", 2, "x := 1"))
	assert.NotEqual(t, id1, MustSubmissionID("s2", 1, "x := 1"))
	assert.NotEqual(t, id1, MustSubmissionID("s1", 1, "x := 2"))
}

func TestScriptHash(t *testing.T) {
	assert.Equal(t, ScriptHash("a"), ScriptHash("a"))
	assert.NotEqual(t, ScriptHash("a"), ScriptHash("b"))
	assert.NotEqual(t, ScriptHash("a"), hashWithDomain(DomainSubmission, []byte(`"a"`)))
}
