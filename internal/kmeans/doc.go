// Package kmeans implements k-means clustering for vocabulary learning.
//
// Centroids are seeded with k-means++ from a deterministic RNG and refined
// with Lloyd's algorithm. Several restarts may be run; the solution with the
// lowest inertia wins.
package kmeans
