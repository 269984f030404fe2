package deduplication

import (
	"context"
	"fmt"
)

// Document is the projection of a stored article needed for a pass. A nil
// Body means the stored record has no body text.
type Document struct {
	Key     string
	Ordinal int
	Title   string
	Body    *string
}

// Store is the minimal storage surface a deduplication pass needs.
//
// FindAll returns every stored article in a stable order. Delete of an
// unknown key is a no-op.
type Store interface {
	FindAll(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, key string) error
	UpdateOrdinal(ctx context.Context, key string, ordinal int) error
}

// Apply deletes every key in keys. It stops at the first failure.
func Apply(ctx context.Context, store Store, keys []string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete article %s: %w", key, err)
		}
	}
	return nil
}

// Renumber rewrites ordinals 0..N-1 over the remaining articles in the order
// FindAll returns them, and reports how many were written.
func Renumber(ctx context.Context, store Store) (int, error) {
	docs, err := store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load articles for renumbering: %w", err)
	}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := store.UpdateOrdinal(ctx, doc.Key, i); err != nil {
			return i, fmt.Errorf("failed to update ordinal of article %s: %w", doc.Key, err)
		}
	}
	return len(docs), nil
}
