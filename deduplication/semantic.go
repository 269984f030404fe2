package deduplication

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultEmbedBatchSize is the largest batch the Cohere embed endpoint accepts.
	DefaultEmbedBatchSize = 96
	defaultEmbedWorkers   = 4
)

// SemanticVectorizer embeds every document with a pretrained sentence model.
type SemanticVectorizer struct {
	provider  EmbeddingsProvider
	batchSize int
	workers   int
}

// NewSemanticVectorizer wraps provider. Non-positive batchSize or workers
// take defaults.
func NewSemanticVectorizer(provider EmbeddingsProvider, batchSize, workers int) *SemanticVectorizer {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	if workers <= 0 {
		workers = defaultEmbedWorkers
	}
	return &SemanticVectorizer{provider: provider, batchSize: batchSize, workers: workers}
}

func (v *SemanticVectorizer) Name() string { return string(StrategySemantic) }

// Model returns the underlying embedding model name.
func (v *SemanticVectorizer) Model() string { return v.provider.ModelName() }

func (v *SemanticVectorizer) Fit(ctx context.Context, corpus []string) (*Matrix, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	vectors := make([][]float64, len(corpus))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for start := 0; start < len(corpus); start += v.batchSize {
		end := min(start+v.batchSize, len(corpus))
		g.Go(func() error {
			embedded, err := v.provider.EmbedTexts(gctx, corpus[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed documents %d-%d: %w", start, end-1, err)
			}
			if len(embedded) != end-start {
				return fmt.Errorf("%w: got %d embeddings for %d documents", ErrDimensionMismatch, len(embedded), end-start)
			}
			for i, vec := range embedded {
				row := make([]float64, len(vec))
				for j, x := range vec {
					row[j] = float64(x)
				}
				vectors[start+i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewDenseMatrix(vectors)
}
