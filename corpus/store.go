package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/blobstore"
)

// DefaultName is the blob name of the corpus artifact.
const DefaultName = "bow_feature.bvw"

// Lookup is the result of loading a prior corpus.
// Corpus is nil unless Found is true.
type Lookup struct {
	Corpus *Corpus
	Found  bool
}

// Store persists a corpus in a blob store.
type Store struct {
	blobs       blobstore.Store
	name        string
	compression archive.Compression
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithName overrides the artifact name.
func WithName(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// WithCompression sets the compression used by Save. Defaults to zstd.
func WithCompression(c archive.Compression) StoreOption {
	return func(s *Store) {
		s.compression = c
	}
}

// NewStore creates a corpus store on top of blobs.
func NewStore(blobs blobstore.Store, opts ...StoreOption) *Store {
	s := &Store{
		blobs:       blobs,
		name:        DefaultName,
		compression: archive.CompressionZstd,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the artifact name.
func (s *Store) Name() string { return s.name }

// Load reads the corpus artifact. A missing artifact is not an error and
// yields Lookup{Found: false}. An artifact that exists but cannot be decoded
// returns an error matching ErrUnreadable.
func (s *Store) Load(ctx context.Context) (Lookup, error) {
	data, err := s.blobs.Get(ctx, s.name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return Lookup{}, nil
		}
		return Lookup{}, fmt.Errorf("read corpus %s: %w", s.name, err)
	}

	c, err := Decode(data)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, s.name, err)
	}
	return Lookup{Corpus: c, Found: true}, nil
}

// Save replaces the corpus artifact atomically.
func (s *Store) Save(ctx context.Context, c *Corpus) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := Encode(c, s.compression)
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := s.blobs.Put(ctx, s.name, data); err != nil {
		return fmt.Errorf("write corpus %s: %w", s.name, err)
	}
	return nil
}
