package imageio

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

// Loader loads a decoded image given a path.
// Implementations must be safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, path string) (*Image, error)
}

// FileLoader decodes images from the local file system.
type FileLoader struct {
	// Root is prepended to relative paths.
	Root string
	// Size resizes decoded images when both dimensions are positive.
	Size image.Point
}

// NewFileLoader creates a FileLoader rooted at root.
func NewFileLoader(root string, size image.Point) *FileLoader {
	return &FileLoader{Root: root, Size: size}
}

// Load decodes the image at path.
func (l *FileLoader) Load(ctx context.Context, path string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := path
	if l.Root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.Root, path)
	}

	src, err := imgio.Open(full)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if l.Size.X > 0 && l.Size.Y > 0 {
		b := src.Bounds()
		if b.Dx() != l.Size.X || b.Dy() != l.Size.Y {
			src = transform.Resize(src, l.Size.X, l.Size.Y, transform.Linear)
		}
	}

	img, err := FromImage(src)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return img, nil
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (*Image, error)

// Load calls f(ctx, path).
func (f LoaderFunc) Load(ctx context.Context, path string) (*Image, error) {
	return f(ctx, path)
}
