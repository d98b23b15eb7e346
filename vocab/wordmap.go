package vocab

import "fmt"

// WordMap holds the word index of every spatial location of a tensor.
type WordMap struct {
	H, W  int
	Words []int
}

// At returns the word at (r, c).
func (m *WordMap) At(r, c int) int {
	return m.Words[r*m.W+c]
}

// Histogram returns the L1-normalized histogram of the map over k words.
func (m *WordMap) Histogram(k int) ([]float64, error) {
	for _, w := range m.Words {
		if w < 0 || w >= k {
			return nil, fmt.Errorf("word %d out of range [0,%d)", w, k)
		}
	}
	return histogram(m.Words, k), nil
}
