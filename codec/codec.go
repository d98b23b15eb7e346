// Package codec centralizes the JSON encoding of run configurations and
// batch manifests.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Indenter is implemented by codecs that can produce human-readable output.
type Indenter interface {
	MarshalIndent(v any) ([]byte, error)
}

// MarshalIndent encodes v indented when c supports it and compact otherwise.
func MarshalIndent(c Codec, v any) ([]byte, error) {
	if ind, ok := c.(Indenter); ok {
		return ind.MarshalIndent(v)
	}
	return c.Marshal(v)
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
