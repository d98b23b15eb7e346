// Package blobstore provides the storage abstraction for persisted artifacts
// (the descriptor corpus and the vocabulary).
//
// Store implementations must be safe for concurrent use and must make Put
// atomic: readers observe either the previous blob or the new one, never a
// partial write.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, temp file + rename
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
