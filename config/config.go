package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/codec"
	"github.com/hupe1980/bovw/feature"
)

// HOG configures the orientation histogram descriptor.
type HOG struct {
	Orientations  int    `json:"orientations"`
	PixelsPerCell [2]int `json:"pixels_per_cell"`
	CellsPerBlock [2]int `json:"cells_per_block"`
}

// Config is the run configuration.
type Config struct {
	Alpha       int     `json:"alpha"`
	Threshold   float64 `json:"threshold"`
	PatternSize int     `json:"pattern_size"`
	K           int     `json:"K"`
	// FilterScales is carried for sibling filter-bank tools and unused here.
	FilterScales []float64 `json:"filter_scales"`

	DataDir string `json:"data_dir"`
	FeatDir string `json:"feat_dir"`
	OutDir  string `json:"out_dir"`

	FastN            int     `json:"fast_n"`
	MinDistance      int     `json:"min_distance"`
	PeakThresholdRel float64 `json:"peak_threshold_rel"`
	KeypointOrder    string  `json:"keypoint_order"`
	HOG              HOG     `json:"hog"`
	ImageSize        [2]int  `json:"image_size"`

	Workers int   `json:"workers"`
	MaxIter int   `json:"max_iter"`
	NumInit int   `json:"n_init"`
	Seed    int64 `json:"seed"`

	Compression string `json:"compression"`
	// Codec encodes CLI manifests and reports: "go-json" or "json".
	Codec     string `json:"codec"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Alpha:            5,
		Threshold:        0.15,
		PatternSize:      7,
		K:                10,
		FilterScales:     []float64{1, 2},
		DataDir:          "../data",
		FeatDir:          "../feat",
		OutDir:           ".",
		FastN:            7,
		MinDistance:      1,
		PeakThresholdRel: 0.1,
		KeypointOrder:    feature.OrderByPosition.String(),
		HOG: HOG{
			Orientations:  8,
			PixelsPerCell: [2]int{2, 2},
			CellsPerBlock: [2]int{1, 1},
		},
		MaxIter:     300,
		NumInit:     10,
		Compression: archive.CompressionZstd.String(),
		Codec:       codec.Default.Name(),
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads a JSON configuration file. Fields absent from the file keep
// their defaults. The result is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON configuration on top of the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := (codec.GoJSON{}).Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FieldError reports an invalid configuration field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate reports every invalid field, joined with errors.Join.
func (c Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if c.Alpha <= 0 {
		add("alpha", "must be positive, got %d", c.Alpha)
	}
	if c.Threshold < 0 {
		add("threshold", "must be non-negative, got %g", c.Threshold)
	}
	if c.PatternSize != 0 && (c.PatternSize < 3 || c.PatternSize%2 == 0) {
		add("pattern_size", "must be odd and at least 3, got %d", c.PatternSize)
	}
	if c.K <= 0 {
		add("K", "must be positive, got %d", c.K)
	}
	if c.FastN < 1 || c.FastN > 16 {
		add("fast_n", "must be in [1,16], got %d", c.FastN)
	}
	if c.MinDistance < 1 {
		add("min_distance", "must be at least 1, got %d", c.MinDistance)
	}
	if c.PeakThresholdRel < 0 || c.PeakThresholdRel > 1 {
		add("peak_threshold_rel", "must be in [0,1], got %g", c.PeakThresholdRel)
	}
	if _, err := c.Order(); err != nil {
		add("keypoint_order", "%v", err)
	}
	if err := c.HOGParams().Validate(); err != nil {
		add("hog", "%v", err)
	}
	if c.ImageSize[0] < 0 || c.ImageSize[1] < 0 {
		add("image_size", "must be non-negative, got %v", c.ImageSize)
	}
	if c.MaxIter < 0 {
		add("max_iter", "must be non-negative, got %d", c.MaxIter)
	}
	if c.NumInit < 0 {
		add("n_init", "must be non-negative, got %d", c.NumInit)
	}
	if _, err := archive.ParseCompression(c.Compression); err != nil {
		add("compression", "%v", err)
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		add("codec", "unknown codec %q", c.Codec)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		add("log_level", "unknown level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		add("log_format", "unknown format %q", c.LogFormat)
	}

	if len(errs) == 0 {
		// The patch must hold one HOG block; checked last so it does not
		// duplicate a reported hog error.
		if _, err := feature.NewExtractor(c.ExtractorParams()); err != nil {
			add("hog", "%v", err)
		}
	}
	return errors.Join(errs...)
}

// Order parses KeypointOrder.
func (c Config) Order() (feature.KeypointOrder, error) {
	switch strings.ToLower(c.KeypointOrder) {
	case "", "position":
		return feature.OrderByPosition, nil
	case "response":
		return feature.OrderByResponse, nil
	default:
		return 0, fmt.Errorf("unknown keypoint order %q", c.KeypointOrder)
	}
}

// HOGParams returns the descriptor parameters.
func (c Config) HOGParams() feature.HOGParams {
	return feature.HOGParams{
		Orientations:  c.HOG.Orientations,
		PixelsPerCell: c.HOG.PixelsPerCell,
		CellsPerBlock: c.HOG.CellsPerBlock,
	}
}

// ExtractorParams returns the descriptor extractor parameters.
func (c Config) ExtractorParams() feature.Params {
	order, _ := c.Order()
	return feature.Params{
		Alpha:            c.Alpha,
		Threshold:        c.Threshold,
		FastN:            c.FastN,
		MinDistance:      c.MinDistance,
		PeakThresholdRel: c.PeakThresholdRel,
		Order:            order,
		HOG:              c.HOGParams(),
	}
}

// CompressionType parses Compression.
func (c Config) CompressionType() archive.Compression {
	comp, err := archive.ParseCompression(c.Compression)
	if err != nil {
		return archive.CompressionZstd
	}
	return comp
}

// ManifestCodec resolves Codec, falling back to codec.Default.
func (c Config) ManifestCodec() codec.Codec {
	if cc, ok := codec.ByName(c.Codec); ok {
		return cc
	}
	return codec.Default
}
