// Package corpus accumulates filter response tensors of labelled image batches
// into a persisted descriptor corpus.
//
// A Corpus stores one RowsPerImage×Alpha block of feature rows per image and
// one label per image. Batches are appended in submission order, so row
// blocks and labels stay aligned across any number of Aggregate calls.
//
// Only one Aggregate call may target a given corpus artifact at a time. This
// is not enforced.
package corpus
