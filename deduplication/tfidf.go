package deduplication

import (
	"context"
	"math"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// tokenPattern matches runs of two or more word characters, where word
// characters include every Unicode letter, mark and digit.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// TFIDFVectorizer fits a lexical TF-IDF model over the corpus it is given.
//
// Terms are lowercased tokens, the vocabulary is sorted, term frequencies are
// raw counts, idf(t) = ln((1+n)/(1+df(t))) + 1 and every row is L2
// normalised.
type TFIDFVectorizer struct {
	workers int
}

// NewTFIDFVectorizer returns a vectorizer that tokenizes with up to workers
// goroutines. Non-positive values fall back to GOMAXPROCS.
func NewTFIDFVectorizer(workers int) *TFIDFVectorizer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &TFIDFVectorizer{workers: workers}
}

func (v *TFIDFVectorizer) Name() string { return string(StrategyLexical) }

// Tokenize splits text into lowercased terms.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func (v *TFIDFVectorizer) Fit(ctx context.Context, corpus []string) (*Matrix, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	counts := make([]map[string]int, len(corpus))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, doc := range corpus {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tf := make(map[string]int)
			for _, term := range Tokenize(doc) {
				tf[term]++
			}
			counts[i] = tf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	df := make(map[string]int)
	for _, tf := range counts {
		for term := range tf {
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocabulary := make([]string, 0, len(df))
	for term := range df {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	n := float64(len(corpus))
	column := make(map[string]int, len(vocabulary))
	idf := make([]float64, len(vocabulary))
	for i, term := range vocabulary {
		column[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([]Row, len(corpus))
	for i, tf := range counts {
		indices := make([]int, 0, len(tf))
		for term := range tf {
			indices = append(indices, column[term])
		}
		sort.Ints(indices)

		values := make([]float64, len(indices))
		var sumSquares float64
		for k, col := range indices {
			w := float64(tf[vocabulary[col]]) * idf[col]
			values[k] = w
			sumSquares += w * w
		}
		if sumSquares > 0 {
			norm := math.Sqrt(sumSquares)
			for k := range values {
				values[k] /= norm
			}
		}
		rows[i] = Row{Indices: indices, Values: values}
	}

	return newMatrix(len(vocabulary), rows), nil
}
