package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/hupe1980/bovw/internal/conv"
)

// Encode writes a to w using compression c.
func Encode(w io.Writer, a *Archive, c Compression) error {
	entries, err := conv.IntToUint32(a.Len())
	if err != nil {
		return fmt.Errorf("entry count: %w", err)
	}
	payload := encodePayload(a)

	body, used, err := compress(payload, c)
	if err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}

	h := Header{
		Magic:       Magic,
		Version:     Version,
		Compression: used,
		Entries:     entries,
		PayloadLen:  uint64(len(payload)),
		Checksum:    crc32.ChecksumIEEE(payload),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Marshal encodes a into a byte slice.
func Marshal(a *Archive, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, a, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads an archive from r. It consumes r to EOF.
func Decode(r io.Reader) (*Archive, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: %08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	payload, err := decompress(body, h.Compression, h.PayloadLen)
	if err != nil {
		return nil, err
	}

	if sum := crc32.ChecksumIEEE(payload); sum != h.Checksum {
		return nil, &ChecksumMismatchError{Expected: h.Checksum, Actual: sum}
	}

	entries, err := conv.Uint32ToInt(h.Entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return decodePayload(payload, entries)
}

// Unmarshal decodes an archive from data.
func Unmarshal(data []byte) (*Archive, error) {
	return Decode(bytes.NewReader(data))
}

func encodePayload(a *Archive) []byte {
	size := 0
	for _, arr := range a.arrays {
		size += 2 + len(arr.name) + 2 + 8*len(arr.shape) + 8*arr.len()
	}

	buf := make([]byte, 0, size)
	for _, arr := range a.arrays {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(arr.name)))
		buf = append(buf, arr.name...)
		buf = append(buf, byte(arr.dtype), byte(len(arr.shape)))
		for _, d := range arr.shape {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(d))
		}
		switch arr.dtype {
		case Float64:
			for _, v := range arr.f64 {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		case Int64:
			for _, v := range arr.i64 {
				buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
			}
		}
	}
	return buf
}

type payloadReader struct {
	buf []byte
	off int
}

func (p *payloadReader) next(n int) ([]byte, error) {
	if n < 0 || p.off+n > len(p.buf) {
		return nil, fmt.Errorf("%w: truncated payload at offset %d", ErrCorrupt, p.off)
	}
	b := p.buf[p.off : p.off+n]
	p.off += n
	return b, nil
}

func decodePayload(payload []byte, entries int) (*Archive, error) {
	a := New()
	pr := &payloadReader{buf: payload}

	for e := 0; e < entries; e++ {
		b, err := pr.next(2)
		if err != nil {
			return nil, err
		}
		name, err := pr.next(int(binary.LittleEndian.Uint16(b)))
		if err != nil {
			return nil, err
		}
		meta, err := pr.next(2)
		if err != nil {
			return nil, err
		}
		dtype, ndim := DType(meta[0]), int(meta[1])

		shape := make([]int, ndim)
		n := 1
		for i := range shape {
			b, err := pr.next(8)
			if err != nil {
				return nil, err
			}
			d, err := conv.Uint64ToInt(binary.LittleEndian.Uint64(b))
			if err != nil || d > len(payload) {
				return nil, fmt.Errorf("%w: dimension %d of %q too large", ErrCorrupt, binary.LittleEndian.Uint64(b), name)
			}
			shape[i] = d
			if n, err = conv.MulInt(n, d); err != nil || n > len(payload) {
				return nil, fmt.Errorf("%w: array %q too large", ErrCorrupt, name)
			}
		}
		if n > (len(payload)-pr.off)/8 {
			return nil, fmt.Errorf("%w: array %q exceeds payload", ErrCorrupt, name)
		}

		data, err := pr.next(n * 8)
		if err != nil {
			return nil, err
		}

		switch dtype {
		case Float64:
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
			}
			err = a.PutFloat64(string(name), shape, vals)
		case Int64:
			vals := make([]int64, n)
			for i := range vals {
				vals[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
			}
			err = a.PutInt64(string(name), shape, vals)
		default:
			return nil, fmt.Errorf("%w: unknown dtype %d for %q", ErrCorrupt, uint8(dtype), name)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	if pr.off != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(payload)-pr.off)
	}
	return a, nil
}
