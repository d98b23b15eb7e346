// Package testutil provides testing utilities for bovw.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG, synthetic images with predictable corners and
// Gaussian cluster fixtures for vocabulary learning.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	data, means := rng.GaussianClusters(4, 25, 3, 10, 0.1)
//
// # Synthetic Images
//
//	img := testutil.Squares(32, 32, 4)
package testutil
