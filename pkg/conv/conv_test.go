package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{true, 1, true},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"k": 10, "eps": 0.05, "name": "x", "f": 3.0, "list": []any{"a", 1}}

	assert.Equal(t, "x", ConfigGet(m, "name", ""))
	assert.Equal(t, "d", ConfigGet(m, "missing", "d"))
	assert.Equal(t, "d", ConfigGet(m, "k", "d"))
	assert.Equal(t, int64(10), ConfigGetInt64(m, "k", 0))
	assert.Equal(t, int64(3), ConfigGetInt64(m, "f", 0))
	assert.Equal(t, 0.05, ConfigGetFloat64(m, "eps", 0))
	assert.Equal(t, 10.0, ConfigGetFloat64(m, "k", 0))
	assert.Equal(t, 1.0, ConfigGetFloat64(nil, "k", 1))
	assert.Equal(t, []string{"a", "1"}, SliceAnyToString(m["list"]))
}
