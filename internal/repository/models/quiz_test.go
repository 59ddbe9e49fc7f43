package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice_Value(t *testing.T) {
	v, err := StringSlice(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringSlice{"a|b", `quote "x"`}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a|b","quote \"x\""]`, v)
}

func TestStringSlice_Scan(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    StringSlice
		wantErr bool
	}{
		{name: "nil", input: nil, want: StringSlice{}},
		{name: "empty string", input: "", want: StringSlice{}},
		{name: "json null", input: []byte("null"), want: StringSlice{}},
		{name: "string json", input: `["A","B","C","D"]`, want: StringSlice{"A", "B", "C", "D"}},
		{name: "bytes json", input: []byte(`["x"]`), want: StringSlice{"x"}},
		{name: "unsupported type", input: 42, wantErr: true},
		{name: "invalid json", input: "[oops", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StringSlice
			err := s.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}
