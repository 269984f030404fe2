package deduplication

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when a vectorizer is asked to fit zero documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmptyVocabulary is returned when no document yields a single token.
	ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain no tokens")
	// ErrMissingBody is returned when a stored article has no body text.
	ErrMissingBody = errors.New("article body missing")
	// ErrDimensionMismatch is returned when vectors or identifiers disagree in size.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Row is one document vector. A nil Indices slice marks a dense row whose
// Values cover every dimension; otherwise Indices are strictly ascending
// column positions paired with Values.
type Row struct {
	Indices []int
	Values  []float64
}

func (r Row) dense() bool { return r.Indices == nil }

// Matrix holds one row per document, all in the same vector space.
type Matrix struct {
	dim   int
	rows  []Row
	norms []float64 // squared L2 norm per row
}

// NewDenseMatrix builds a matrix from equally sized dense vectors.
func NewDenseMatrix(vectors [][]float64) (*Matrix, error) {
	if len(vectors) == 0 {
		return &Matrix{}, nil
	}
	dim := len(vectors[0])
	rows := make([]Row, len(vectors))
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vec), dim)
		}
		rows[i] = Row{Values: vec}
	}
	return newMatrix(dim, rows), nil
}

// NewSparseMatrix builds a matrix from sparse rows over a dim-wide space.
func NewSparseMatrix(dim int, rows []Row) (*Matrix, error) {
	for i, row := range rows {
		if row.dense() {
			if len(row.Values) != dim {
				return nil, fmt.Errorf("%w: row %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(row.Values), dim)
			}
			continue
		}
		if len(row.Indices) != len(row.Values) {
			return nil, fmt.Errorf("%w: row %d has %d indices and %d values", ErrDimensionMismatch, i, len(row.Indices), len(row.Values))
		}
		for j, idx := range row.Indices {
			if idx < 0 || idx >= dim || (j > 0 && idx <= row.Indices[j-1]) {
				return nil, fmt.Errorf("%w: row %d has invalid column %d", ErrDimensionMismatch, i, idx)
			}
		}
	}
	return newMatrix(dim, rows), nil
}

func newMatrix(dim int, rows []Row) *Matrix {
	m := &Matrix{dim: dim, rows: rows, norms: make([]float64, len(rows))}
	for i, row := range rows {
		m.norms[i] = dot(row, row)
	}
	return m
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Dim returns the width of the vector space.
func (m *Matrix) Dim() int {
	if m == nil {
		return 0
	}
	return m.dim
}

// Row returns the i-th document vector.
func (m *Matrix) Row(i int) Row {
	return m.rows[i]
}

func dot(a, b Row) float64 {
	switch {
	case a.dense() && b.dense():
		var sum float64
		for i := range a.Values {
			sum += a.Values[i] * b.Values[i]
		}
		return sum
	case a.dense():
		return sparseDenseDot(b, a.Values)
	case b.dense():
		return sparseDenseDot(a, b.Values)
	}

	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func sparseDenseDot(sparse Row, dense []float64) float64 {
	var sum float64
	for k, idx := range sparse.Indices {
		sum += sparse.Values[k] * dense[idx]
	}
	return sum
}
