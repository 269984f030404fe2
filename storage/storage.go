// Package storage persists articles and exposes them to ingestion and
// deduplication passes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsbot/deduplication"
	"newsbot/types"
)

var (
	// ErrArticleNotFound is returned when a key does not name a stored article.
	ErrArticleNotFound = errors.New("article not found")
	// ErrDuplicateArticle is returned when an insert collides on key or URL.
	ErrDuplicateArticle = errors.New("article already stored")
)

// Store is implemented by every backend. FindAll and List traverse articles
// in insertion order.
type Store interface {
	deduplication.Store

	Insert(ctx context.Context, article *types.Article) error
	Get(ctx context.Context, key string) (*types.Article, error)
	List(ctx context.Context) ([]*types.Article, error)
	ExistsURL(ctx context.Context, url string) (bool, error)
	ExistsTitle(ctx context.Context, title string) (bool, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	RedisURL    string
	RedisPrefix string
	SQLitePath  string
	PostgresURL string
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.RedisPrefix), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func prepareInsert(article *types.Article) error {
	if article == nil {
		return fmt.Errorf("nil article")
	}
	if article.Key == "" {
		article.Key = types.NewKey()
	}
	return nil
}

func toDocument(a *types.Article) deduplication.Document {
	body := a.Body
	return deduplication.Document{Key: a.Key, Ordinal: a.Ordinal, Title: a.Title, Body: &body}
}
