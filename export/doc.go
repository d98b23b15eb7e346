// Package export converts corpus and vocabulary artifacts into formats read
// by downstream tools: NumPy .npy/.npz files and Parquet word histograms.
package export
