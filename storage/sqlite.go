package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newsbot/deduplication"
	"newsbot/types"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    article_key  TEXT NOT NULL UNIQUE,
    ordinal      INTEGER NOT NULL DEFAULT 0,
    title        TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    body         TEXT,
    url          TEXT NOT NULL UNIQUE,
    published_at TEXT NOT NULL DEFAULT '',
    keywords     TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_articles_title ON articles(title);
`

// SQLiteStore persists articles in a single SQLite table. The seq column
// fixes the traversal order.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "data/newsbot.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func isSQLiteUnique(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStore) Insert(ctx context.Context, article *types.Article) error {
	if err := prepareInsert(article); err != nil {
		return err
	}
	keywords, err := json.Marshal(article.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (article_key, ordinal, title, source, body, url, published_at, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, article.Key, article.Ordinal, article.Title, article.Source, article.Body, article.URL,
		article.Timestamp.Format(time.RFC3339Nano), string(keywords))
	if isSQLiteUnique(err) {
		return ErrDuplicateArticle
	}
	if err != nil {
		return fmt.Errorf("failed to insert article %s: %w", article.Key, err)
	}
	return nil
}

const sqliteArticleColumns = `article_key, ordinal, title, source, body, url, published_at, keywords`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteArticle(row rowScanner) (*types.Article, error) {
	var (
		a         types.Article
		body      sql.NullString
		published string
		keywords  string
	)
	if err := row.Scan(&a.Key, &a.Ordinal, &a.Title, &a.Source, &body, &a.URL, &published, &keywords); err != nil {
		return nil, err
	}
	a.Body = body.String
	if published != "" {
		ts, err := time.Parse(time.RFC3339Nano, published)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp for article %s: %w", a.Key, err)
		}
		a.Timestamp = ts
	}
	if err := json.Unmarshal([]byte(keywords), &a.Keywords); err != nil {
		return nil, fmt.Errorf("invalid keywords for article %s: %w", a.Key, err)
	}
	return &a, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*types.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteArticleColumns+` FROM articles WHERE article_key = ?`, key)
	a, err := scanSQLiteArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	return a, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]*types.Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteArticleColumns+` FROM articles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var out []*types.Article
	for rows.Next() {
		a, err := scanSQLiteArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindAll(ctx context.Context) ([]deduplication.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT article_key, ordinal, title, body FROM articles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	defer rows.Close()

	var docs []deduplication.Document
	for rows.Next() {
		var (
			doc  deduplication.Document
			body sql.NullString
		)
		if err := rows.Scan(&doc.Key, &doc.Ordinal, &doc.Title, &body); err != nil {
			return nil, err
		}
		if body.Valid {
			b := body.String
			doc.Body = &b
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE article_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete article %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateOrdinal(ctx context.Context, key string, ordinal int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET ordinal = ? WHERE article_key = ?`, ordinal, key)
	if err != nil {
		return fmt.Errorf("failed to update ordinal of article %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (s *SQLiteStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) ExistsURL(ctx context.Context, url string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM articles WHERE url = ? LIMIT 1`, url)
}

func (s *SQLiteStore) ExistsTitle(ctx context.Context, title string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM articles WHERE title = ? LIMIT 1`, title)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
