package deduplication

import "math"

// SimilarityRow returns the cosine similarity of row index against every row
// of m, in row order. The entry for index itself is always exactly 1.0, and
// identical rows score exactly 1.0 against each other.
func SimilarityRow(m *Matrix, index int) []float64 {
	scores := make([]float64, m.Len())
	for j := range scores {
		if j == index {
			scores[j] = 1
			continue
		}
		scores[j] = m.cosine(index, j)
	}
	return scores
}

func (m *Matrix) cosine(i, j int) float64 {
	ni, nj := m.norms[i], m.norms[j]
	if ni == 0 || nj == 0 {
		return 0
	}
	d := dot(m.rows[i], m.rows[j])
	if d == ni && d == nj {
		return 1
	}
	c := d / math.Sqrt(ni*nj)
	switch {
	case c > 1:
		return 1
	case c < -1:
		return -1
	}
	return c
}
