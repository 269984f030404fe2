package storage

import (
	"context"
	"sync"

	"newsbot/deduplication"
	"newsbot/types"
)

// MemoryStore keeps articles in process memory. It backs tests and
// single-shot CLI runs.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []string
	articles map[string]*types.Article
	urls     map[string]string
	titles   map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]*types.Article),
		urls:     make(map[string]string),
		titles:   make(map[string]int),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, article *types.Article) error {
	if err := prepareInsert(article); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[article.Key]; ok {
		return ErrDuplicateArticle
	}
	if _, ok := s.urls[article.URL]; ok && article.URL != "" {
		return ErrDuplicateArticle
	}

	stored := *article
	stored.Keywords = append([]string(nil), article.Keywords...)
	s.articles[stored.Key] = &stored
	s.order = append(s.order, stored.Key)
	if stored.URL != "" {
		s.urls[stored.URL] = stored.Key
	}
	s.titles[stored.Title]++
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[key]
	if !ok {
		return nil, ErrArticleNotFound
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Article, 0, len(s.order))
	for _, key := range s.order {
		a := *s.articles[key]
		out = append(out, &a)
	}
	return out, nil
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]deduplication.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]deduplication.Document, 0, len(s.order))
	for _, key := range s.order {
		docs = append(docs, toDocument(s.articles[key]))
	}
	return docs, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[key]
	if !ok {
		return nil
	}
	delete(s.articles, key)
	if s.urls[a.URL] == key {
		delete(s.urls, a.URL)
	}
	if s.titles[a.Title]--; s.titles[a.Title] <= 0 {
		delete(s.titles, a.Title)
	}
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) UpdateOrdinal(ctx context.Context, key string, ordinal int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[key]
	if !ok {
		return ErrArticleNotFound
	}
	a.Ordinal = ordinal
	return nil
}

func (s *MemoryStore) ExistsURL(ctx context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok, nil
}

func (s *MemoryStore) ExistsTitle(ctx context.Context, title string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.titles[title] > 0, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *MemoryStore) Close() error { return nil }
