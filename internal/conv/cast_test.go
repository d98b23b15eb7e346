package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint16(t *testing.T) {
	got, err := IntToUint16(math.MaxUint16)
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), got)

	_, err = IntToUint16(math.MaxUint16 + 1)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = IntToUint16(-1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestIntToUint32(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want uint32
		err  bool
	}{
		{"zero", 0, 0, false},
		{"positive", 123, 123, false},
		{"max int32", math.MaxInt32, math.MaxInt32, false},
		{"negative", -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntToUint32(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Uint64ToInt(math.MaxUint64)
	require.ErrorIs(t, err, ErrOverflow)

	n, err := Uint32ToInt(7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMulInt(t *testing.T) {
	got, err := MulInt(7, 49)
	require.NoError(t, err)
	assert.Equal(t, 343, got)

	got, err = MulInt(0, math.MaxInt)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = MulInt(math.MaxInt/2, 3)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = MulInt(-1, 3)
	require.ErrorIs(t, err, ErrOverflow)
}
