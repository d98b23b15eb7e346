package export

import (
	"fmt"
	"io"

	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/vocab"
	"github.com/parquet-go/parquet-go"
)

// HistogramsParquet is the default file name of the histogram export.
const HistogramsParquet = "bow_histograms.parquet"

// HistogramRow is one image of the Parquet histogram export.
type HistogramRow struct {
	Image     int64     `parquet:"image"`
	Label     int64     `parquet:"label"`
	Histogram []float64 `parquet:"histogram,list"`
}

// Histograms computes the word histogram of every corpus image.
func Histograms(v *vocab.Vocabulary, c *corpus.Corpus) ([]HistogramRow, error) {
	hists, err := v.CorpusHistograms(c)
	if err != nil {
		return nil, err
	}
	rows := make([]HistogramRow, len(hists))
	for i, h := range hists {
		rows[i] = HistogramRow{Image: int64(i), Label: c.Labels[i], Histogram: h}
	}
	return rows, nil
}

// WriteHistogramsParquet writes rows as a zstd-compressed Parquet file.
func WriteHistogramsParquet(w io.Writer, rows []HistogramRow) error {
	writer := parquet.NewGenericWriter[HistogramRow](w, parquet.Compression(&parquet.Zstd))

	const batchSize = 1024
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if _, err := writer.Write(rows[start:end]); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write histogram rows: %w", err)
		}
	}
	return writer.Close()
}

// ReadHistogramsParquet reads a file written by WriteHistogramsParquet.
func ReadHistogramsParquet(r io.ReaderAt, size int64) ([]HistogramRow, error) {
	rows, err := parquet.Read[HistogramRow](r, size)
	if err != nil {
		return nil, fmt.Errorf("read histogram rows: %w", err)
	}
	return rows, nil
}
