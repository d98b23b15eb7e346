package export

import (
	"bytes"
	"testing"

	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/feature"
	"github.com/hupe1980/bovw/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c := corpus.New(2, 49)
	for i := 0; i < 3; i++ {
		ten := feature.NewTensor(7, 7, 2)
		for j := range ten.Data {
			ten.Data[j] = float64(i*100 + j%10)
		}
		require.NoError(t, c.AddImage(ten, int64(i+1)))
	}
	c.Batches = []int64{3}
	return c
}

func TestVocabularyNPY(t *testing.T) {
	v, err := vocab.New(3, 2, []float64{1, 2, 3, 4, 5, 6.5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteVocabularyNPY(&buf, v))
	assert.Equal(t, "\x93NUMPY", buf.String()[:6])

	got, err := ReadVocabularyNPY(&buf)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestCorpusNPZ(t *testing.T) {
	c := testCorpus(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCorpusNPZ(&buf, c))

	got, err := ReadCorpusNPZ(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, c.Alpha, got.Alpha)
	assert.Equal(t, c.RowsPerImage, got.RowsPerImage)
	assert.Equal(t, c.Labels, got.Labels)
	assert.Equal(t, c.Features, got.Features)

	require.Error(t, WriteCorpusNPZ(&buf, corpus.New(2, 49)))
}

func TestHistogramsParquet(t *testing.T) {
	c := testCorpus(t)
	v, err := vocab.New(2, 2, []float64{0, 0, 200, 200})
	require.NoError(t, err)

	rows, err := Histograms(v, c)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{1, 0}, rows[0].Histogram)
	assert.Equal(t, []float64{0, 1}, rows[2].Histogram)
	assert.Equal(t, int64(3), rows[2].Label)

	var buf bytes.Buffer
	require.NoError(t, WriteHistogramsParquet(&buf, rows))

	got, err := ReadHistogramsParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
