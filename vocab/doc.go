// Package vocab learns a visual vocabulary from the descriptor corpus and
// maps filter response tensors to visual words.
//
// A Vocabulary is K centroids in the Alpha-dimensional descriptor space.
// Assign labels every spatial location of a tensor with the index of its
// nearest centroid (Euclidean distance, lowest index on ties).
package vocab
