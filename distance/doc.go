// Package distance provides vector distance calculations.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance (word assignment)
//   - MetricSquaredL2: Squared Euclidean distance (k-means inner loop)
//
// # Usage
//
//	d := distance.Euclidean(a, b)
//	dm, err := distance.Pairwise(rows, centroids, distance.MetricL2)
//	words := distance.ArgminRows(dm)
package distance
