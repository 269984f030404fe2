package deduplication

import "fmt"

// Resolve walks the corpus in order and returns the keys to delete so that
// one representative of every near-duplicate cluster survives.
//
// For each document not yet marked, every document scoring at or above
// threshold against it (itself included) is marked, then the first key
// appended in that round is unmarked again. Rows already marked in an
// earlier round can be reached again by a later round; when that happens
// the earlier row is the one unmarked, so chains such as A~B, B~C with A
// unlike C end up keeping only A.
//
// The result is unique and ordered by first marking.
func Resolve(ids []string, m *Matrix, threshold float64) ([]string, error) {
	if len(ids) != m.Len() {
		return nil, fmt.Errorf("%w: %d ids for %d rows", ErrDimensionMismatch, len(ids), m.Len())
	}

	var marked []string
	pending := make(map[string]int, len(ids))

	for index, id := range ids {
		if pending[id] > 0 {
			continue
		}

		hits := 0
		for other, score := range SimilarityRow(m, index) {
			if score >= threshold {
				marked = append(marked, ids[other])
				pending[ids[other]]++
				hits++
			}
		}
		if hits > 0 {
			pos := len(marked) - hits
			pending[marked[pos]]--
			marked = append(marked[:pos], marked[pos+1:]...)
		}
	}

	seen := make(map[string]struct{}, len(marked))
	deletions := make([]string, 0, len(marked))
	for _, id := range marked {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deletions = append(deletions, id)
	}
	return deletions, nil
}
