package vocab

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/blobstore"
)

// DefaultName is the blob name of the vocabulary artifact.
const DefaultName = "bow_dictionary.bvw"

const arrayCentroids = "centroids"

// Store persists a vocabulary in a blob store.
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

// NewStore creates a vocabulary store on top of blobs.
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

// Save replaces the vocabulary artifact. Values round-trip bit-identically.
func (s *Store) Save(ctx context.Context, v *Vocabulary) error {
	a := archive.New()
	if err := a.PutFloat64(arrayCentroids, []int{v.K, v.Dim}, v.Centroids); err != nil {
		return err
	}
	data, err := archive.Marshal(a, s.compression)
	if err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	if err := s.blobs.Put(ctx, s.name, data); err != nil {
		return fmt.Errorf("write vocabulary %s: %w", s.name, err)
	}
	return nil
}

// Load reads the vocabulary artifact. A missing artifact returns an error
// matching ErrNoVocabulary.
func (s *Store) Load(ctx context.Context) (*Vocabulary, error) {
	data, err := s.blobs.Get(ctx, s.name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoVocabulary, s.name)
		}
		return nil, fmt.Errorf("read vocabulary %s: %w", s.name, err)
	}

	a, err := archive.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode vocabulary %s: %w", s.name, err)
	}
	centroids, shape, err := a.Float64(arrayCentroids)
	if err != nil {
		return nil, fmt.Errorf("decode vocabulary %s: %w", s.name, err)
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("decode vocabulary %s: expected 2 dimensions, got %v", s.name, shape)
	}
	return New(shape[0], shape[1], centroids)
}
