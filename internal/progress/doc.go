// Package progress reports per-item completion of long-running batches.
//
// Every completed item writes a single marker byte to a writer, and a
// structured progress line is logged at most once per interval.
package progress
