package storage

import (
	"context"
	"errors"
	"fmt"

	"newsbot/deduplication"
	"newsbot/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
    seq          BIGSERIAL PRIMARY KEY,
    article_key  TEXT NOT NULL UNIQUE,
    ordinal      INTEGER NOT NULL DEFAULT 0,
    title        TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    body         TEXT,
    url          TEXT NOT NULL UNIQUE,
    published_at TIMESTAMPTZ,
    keywords     TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_articles_title ON articles(title);
`

// PostgresStore persists articles in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) Insert(ctx context.Context, article *types.Article) error {
	if err := prepareInsert(article); err != nil {
		return err
	}
	keywords := article.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO articles (article_key, ordinal, title, source, body, url, published_at, keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, article.Key, article.Ordinal, article.Title, article.Source, article.Body, article.URL, article.Timestamp, keywords)
	if isUniqueViolation(err) {
		return ErrDuplicateArticle
	}
	if err != nil {
		return fmt.Errorf("failed to insert article %s: %w", article.Key, err)
	}
	return nil
}

const postgresArticleColumns = `article_key, ordinal, title, source, COALESCE(body, ''), url, COALESCE(published_at, 'epoch'::timestamptz), keywords`

func scanPostgresArticle(row pgx.Row) (*types.Article, error) {
	var a types.Article
	if err := row.Scan(&a.Key, &a.Ordinal, &a.Title, &a.Source, &a.Body, &a.URL, &a.Timestamp, &a.Keywords); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*types.Article, error) {
	a, err := scanPostgresArticle(s.pool.QueryRow(ctx, `SELECT `+postgresArticleColumns+` FROM articles WHERE article_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	return a, err
}

func (s *PostgresStore) List(ctx context.Context) ([]*types.Article, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+postgresArticleColumns+` FROM articles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var out []*types.Article
	for rows.Next() {
		a, err := scanPostgresArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]deduplication.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT article_key, ordinal, title, body FROM articles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	defer rows.Close()

	var docs []deduplication.Document
	for rows.Next() {
		var doc deduplication.Document
		if err := rows.Scan(&doc.Key, &doc.Ordinal, &doc.Title, &doc.Body); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE article_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete article %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) UpdateOrdinal(ctx context.Context, key string, ordinal int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE articles SET ordinal = $1 WHERE article_key = $2`, ordinal, key)
	if err != nil {
		return fmt.Errorf("failed to update ordinal of article %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (s *PostgresStore) ExistsURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) ExistsTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE title = $1)`, title).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
