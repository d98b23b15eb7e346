package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/bovw"
	"github.com/hupe1980/bovw/blobstore"
	"github.com/hupe1980/bovw/codec"
	"github.com/hupe1980/bovw/export"
)

// entry is one manifest line.
type entry struct {
	Path  string `json:"path"`
	Label int64  `json:"label"`
}

func readManifest(path string, c codec.Codec) ([]string, []int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []entry
	if err := c.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	paths := make([]string, len(entries))
	labels := make([]int64, len(entries))
	for i, e := range entries {
		if e.Path == "" {
			return nil, nil, fmt.Errorf("manifest %s: entry %d has no path", path, i)
		}
		paths[i] = e.Path
		labels[i] = e.Label
	}
	return paths, labels, nil
}

func runAggregate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	manifest := fs.String("manifest", "", "JSON array of {\"path\", \"label\"} entries")
	skipFailed := fs.Bool("skip-failed", false, "drop unreadable images instead of failing the batch")
	strict := fs.Bool("strict", false, "fail on an unreadable stored corpus instead of starting fresh")
	quiet := fs.Bool("quiet", false, "do not print progress markers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifest == "" {
		return fmt.Errorf("aggregate: -manifest is required")
	}

	var opts []bovw.Option
	if *skipFailed {
		opts = append(opts, bovw.WithSkipFailed())
	}
	if *strict {
		opts = append(opts, bovw.WithStrictPrior())
	}
	if !*quiet {
		opts = append(opts, bovw.WithProgress(os.Stderr))
	}

	p, cleanup, err := common.setup(ctx, opts...)
	if err != nil {
		return err
	}
	defer cleanup()

	c := p.Config().ManifestCodec()
	paths, labels, err := readManifest(*manifest, c)
	if err != nil {
		return err
	}

	report, err := p.Aggregate(ctx, paths, labels)
	if err != nil {
		return err
	}
	return printJSON(stdout, c, map[string]any{
		"batch_id":     report.BatchID.String(),
		"images":       report.Images,
		"skipped":      report.Skipped.ToArray(),
		"total_images": report.TotalImages,
		"total_rows":   report.TotalRows,
		"prior_found":  report.PriorFound,
		"duration":     report.Duration.String(),
	})
}

func runLearn(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("learn", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	_, report, err := p.Learn(ctx)
	if err != nil {
		return err
	}
	return printJSON(stdout, p.Config().ManifestCodec(), map[string]any{
		"rows":       report.Rows,
		"k":          report.K,
		"iterations": report.Iterations,
		"converged":  report.Converged,
		"inertia":    report.Inertia,
		"empty":      report.EmptyClusters,
		"duration":   report.Duration.String(),
	})
}

func runAssign(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("assign", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	image := fs.String("image", "", "image to map, relative to data_dir")
	withHistogram := fs.Bool("histogram", false, "also print the normalized word histogram")
	withKeypoints := fs.Bool("keypoints", false, "also print the detected keypoints in channel order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *image == "" {
		return fmt.Errorf("assign: -image is required")
	}

	p, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	v, err := p.LoadVocabulary(ctx)
	if err != nil {
		return err
	}
	wm, err := p.WordMap(ctx, v, *image)
	if err != nil {
		return err
	}

	out := map[string]any{
		"h":     wm.H,
		"w":     wm.W,
		"words": wm.Words,
	}
	if *withHistogram {
		h, err := wm.Histogram(v.K)
		if err != nil {
			return err
		}
		out["histogram"] = h
	}
	if *withKeypoints {
		kps, err := p.Keypoints(ctx, *image)
		if err != nil {
			return err
		}
		rows := make([]map[string]any, len(kps))
		for i, kp := range kps {
			rows[i] = map[string]any{"row": kp.Row, "col": kp.Col, "response": kp.Response}
		}
		out["keypoints"] = rows
	}
	return printJSON(stdout, p.Config().ManifestCodec(), out)
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	format := fs.String("format", "npz", "npz (corpus), npy (vocabulary) or parquet (histograms)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	outDir := p.Config().OutDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	var name string
	var write func(io.Writer) error
	switch *format {
	case "npz":
		c, err := p.Corpus(ctx)
		if err != nil {
			return err
		}
		name = export.CorpusNPZ
		write = func(w io.Writer) error { return export.WriteCorpusNPZ(w, c) }
	case "npy":
		v, err := p.LoadVocabulary(ctx)
		if err != nil {
			return err
		}
		name = export.VocabularyNPY
		write = func(w io.Writer) error { return export.WriteVocabularyNPY(w, v) }
	case "parquet":
		v, err := p.LoadVocabulary(ctx)
		if err != nil {
			return err
		}
		c, err := p.Corpus(ctx)
		if err != nil {
			return err
		}
		rows, err := export.Histograms(v, c)
		if err != nil {
			return err
		}
		name = export.HistogramsParquet
		write = func(w io.Writer) error { return export.WriteHistogramsParquet(w, rows) }
	default:
		return fmt.Errorf("export: unknown format %q", *format)
	}

	path := filepath.Join(outDir, name)
	if err := blobstore.WriteFileAtomic(path, write); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	_, err = fmt.Fprintln(stdout, path)
	return err
}

func printJSON(w io.Writer, c codec.Codec, v any) error {
	data, err := codec.MarshalIndent(c, v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
