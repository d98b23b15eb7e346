// Package archive implements the container format for persisted arrays.
//
// An archive holds named, typed, n-dimensional arrays (float64 or int64).
// On disk it is a 32-byte little-endian header followed by a payload that
// may be compressed with LZ4 or zstd:
//
//	[magic u32][version u32][compression u8][pad 3][entries u32]
//	[payload len u64][crc32 u32][reserved u32]
//
// The payload is a sequence of entries
//
//	[name len u16][name][dtype u8][ndim u8][dims u64...][data]
//
// and the CRC32 (IEEE) covers the uncompressed payload, so corruption is
// detected regardless of compression.
package archive
