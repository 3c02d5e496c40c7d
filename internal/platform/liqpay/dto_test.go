package liqpay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberUnmarshal(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    Number
		asFloat float64
		asInt   int64
	}{
		"integer":      {in: `7`, want: "7", asFloat: 7, asInt: 7},
		"float":        {in: `100.5`, want: "100.5", asFloat: 100.5, asInt: 100},
		"numeric text": {in: `"42"`, want: "42", asFloat: 42, asInt: 42},
		"null":         {in: `null`, want: ""},
		"non numeric":  {in: `"n/a"`, want: "n/a"},
		"unexpected":   {in: `{"a":1}`, want: `{"a":1}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
			assert.Equal(t, tt.asFloat, n.Float64())
			assert.Equal(t, tt.asInt, n.Int64())
		})
	}
}
