package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Archive {
	t.Helper()
	a := New()
	feats := make([]float64, 3*4*2)
	for i := range feats {
		feats[i] = float64(i) * 0.25
	}
	feats[5] = math.Inf(-1)
	feats[6] = math.Copysign(0, -1)
	require.NoError(t, a.PutFloat64("features", []int{3, 4, 2}, feats))
	require.NoError(t, a.PutInt64("labels", []int{3}, []int64{7, -1, 42}))
	require.NoError(t, a.PutInt64("empty", []int{0}, nil))
	return a
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			a := sample(t)
			data, err := Marshal(a, c)
			require.NoError(t, err)

			got, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, []string{"features", "labels", "empty"}, got.Names())

			want, wantShape, err := a.Float64("features")
			require.NoError(t, err)
			feats, shape, err := got.Float64("features")
			require.NoError(t, err)
			assert.Equal(t, wantShape, shape)
			require.Len(t, feats, len(want))
			for i := range want {
				assert.Equal(t, math.Float64bits(want[i]), math.Float64bits(feats[i]), "index %d", i)
			}

			labels, shape, err := got.Int64("labels")
			require.NoError(t, err)
			assert.Equal(t, []int{3}, shape)
			assert.Equal(t, []int64{7, -1, 42}, labels)

			empty, shape, err := got.Int64("empty")
			require.NoError(t, err)
			assert.Equal(t, []int{0}, shape)
			assert.Empty(t, empty)
		})
	}
}

func TestHeaderLayout(t *testing.T) {
	assert.Equal(t, headerSize, binary.Size(Header{}))

	data, err := Marshal(sample(t), CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, "1WVB", string(data[:4]))
	assert.Equal(t, uint32(Version), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[12:]))
}

func TestCorruption(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := Marshal(sample(t), c)
			require.NoError(t, err)

			// Flip a bit in the payload.
			bad := bytes.Clone(data)
			bad[len(bad)-1] ^= 0x01
			_, err = Unmarshal(bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrCorrupt), "got %v", err)

			// Tamper with the stored checksum.
			bad = bytes.Clone(data)
			bad[24] ^= 0xFF
			_, err = Unmarshal(bad)
			var cm *ChecksumMismatchError
			require.ErrorAs(t, err, &cm)
		})
	}
}

func TestCorruptPayloadLength(t *testing.T) {
	lengths := map[string]uint64{
		"huge":       1 << 62,
		"above max":  MaxPayloadLen + 1,
		"large":      1 << 30,
		"off by one": 0, // filled in per archive
	}
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		for name, n := range lengths {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				data, err := Marshal(sample(t), c)
				require.NoError(t, err)

				bad := bytes.Clone(data)
				if n == 0 {
					n = binary.LittleEndian.Uint64(data[16:]) + 1
				}
				binary.LittleEndian.PutUint64(bad[16:], n)

				require.NotPanics(t, func() {
					_, err = Unmarshal(bad)
				})
				require.ErrorIs(t, err, ErrCorrupt)
			})
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	data, err := Marshal(sample(t), CompressionNone)
	require.NoError(t, err)

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		_, err := Unmarshal(bad)
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint32(bad[4:], 99)
		_, err := Unmarshal(bad)
		require.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := Unmarshal(data[:10])
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := Unmarshal(data[:len(data)-8])
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("compression", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[8] = 9
		_, err := Unmarshal(bad)
		require.ErrorIs(t, err, ErrUnknownCompression)
	})
}

func TestArchiveAccess(t *testing.T) {
	a := sample(t)

	_, _, err := a.Float64("missing")
	require.ErrorIs(t, err, ErrMissingArray)

	_, _, err = a.Int64("features")
	require.ErrorIs(t, err, ErrTypeMismatch)

	require.ErrorIs(t, a.PutFloat64("bad", []int{2, 2}, []float64{1}), ErrShape)
	require.Error(t, a.PutFloat64("", nil, nil))

	require.NoError(t, a.PutInt64("labels", []int{1}, []int64{5}))
	labels, _, err := a.Int64("labels")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, labels)
	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Has("empty"))
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{
		"":     CompressionNone,
		"none": CompressionNone,
		"LZ4":  CompressionLZ4,
		"zstd": CompressionZstd,
	} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("gzip")
	require.ErrorIs(t, err, ErrUnknownCompression)
}
