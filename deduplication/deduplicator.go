package deduplication

import (
	"context"
	"fmt"
	"time"

	"newsbot/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultSimilarityThreshold only collapses documents that are identical in
// vector space.
const DefaultSimilarityThreshold float64 = 1.0

// DeduplicatorConfig holds configuration for the deduplicator
type DeduplicatorConfig struct {
	SimilarityThreshold float64 // Default: 1.0
}

// Deduplicator runs whole-corpus deduplication passes against a Store.
type Deduplicator struct {
	store               Store
	vectorizer          Vectorizer
	similarityThreshold float64
}

// NewDeduplicator creates a new instance of the deduplicator
func NewDeduplicator(store Store, vectorizer Vectorizer, config DeduplicatorConfig) (*Deduplicator, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if vectorizer == nil {
		return nil, fmt.Errorf("vectorizer cannot be nil")
	}
	cfg := applyConfigDefaults(config)
	return &Deduplicator{
		store:               store,
		vectorizer:          vectorizer,
		similarityThreshold: cfg.SimilarityThreshold,
	}, nil
}

func applyConfigDefaults(config DeduplicatorConfig) DeduplicatorConfig {
	cfg := config
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return cfg
}

// Threshold returns the configured similarity threshold.
func (d *Deduplicator) Threshold() float64 { return d.similarityThreshold }

// Strategy returns the name of the configured vectorizer.
func (d *Deduplicator) Strategy() string { return d.vectorizer.Name() }

// Run performs one pass: load the corpus, vectorize it, delete every
// near-duplicate except one representative per cluster and renumber the
// survivors.
func (d *Deduplicator) Run(ctx context.Context) (*types.PassResult, error) {
	return d.RunWithThreshold(ctx, d.similarityThreshold)
}

// RunWithThreshold is Run with a one-off threshold.
func (d *Deduplicator) RunWithThreshold(ctx context.Context, threshold float64) (*types.PassResult, error) {
	started := time.Now()
	result := &types.PassResult{
		RunID:     uuid.NewString(),
		Strategy:  d.vectorizer.Name(),
		Threshold: threshold,
		StartedAt: started.UTC(),
		Deleted:   []string{},
	}

	docs, err := d.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	result.Total = len(docs)

	ids := make([]string, len(docs))
	corpus := make([]string, len(docs))
	titles := make(map[string]string, len(docs))
	for i, doc := range docs {
		if doc.Body == nil {
			return nil, fmt.Errorf("%w: article %s", ErrMissingBody, doc.Key)
		}
		ids[i] = doc.Key
		corpus[i] = Normalize(*doc.Body)
		titles[doc.Key] = doc.Title
	}

	if len(docs) > 0 {
		matrix, err := d.vectorizer.Fit(ctx, corpus)
		if err != nil {
			return nil, fmt.Errorf("failed to vectorize corpus: %w", err)
		}

		deleted, err := Resolve(ids, matrix, threshold)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve duplicates: %w", err)
		}

		for _, key := range deleted {
			log.Info().Str("key", key).Msgf("deleting article %s", titles[key])
		}
		if err := Apply(ctx, d.store, deleted); err != nil {
			return nil, err
		}
		result.Deleted = deleted
	}

	survivors, err := Renumber(ctx, d.store)
	if err != nil {
		return nil, err
	}
	result.Survivors = survivors
	result.Duration = time.Since(started)

	log.Info().
		Str("run_id", result.RunID).
		Str("strategy", result.Strategy).
		Float64("threshold", threshold).
		Int("total", result.Total).
		Int("deleted", len(result.Deleted)).
		Int("survivors", survivors).
		Dur("elapsed", result.Duration).
		Msg("deduplication pass complete")

	return result, nil
}
