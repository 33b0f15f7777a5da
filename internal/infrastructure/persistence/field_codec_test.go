package persistence

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int64
		wantErr bool
	}{
		{"int", 7, 7, false},
		{"whole float", float64(42), 42, false},
		{"negative float", float64(-3), -3, false},
		{"smallest int64 as float", float64(math.MinInt64), math.MinInt64, false},
		{"json number", json.Number("9007199254740993"), 9007199254740993, false},
		{"fraction", 1.5, 0, true},
		{"above int64 range", 1e30, 0, true},
		{"below int64 range", -1e30, 0, true},
		{"two to the 63", math.Exp2(63), 0, true},
		{"infinity", math.Inf(1), 0, true},
		{"not a number", math.NaN(), 0, true},
		{"json number fraction", json.Number("2.5"), 0, true},
		{"string", "12", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt64(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, errNotInteger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
