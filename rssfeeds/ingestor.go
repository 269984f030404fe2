package rssfeeds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsbot/storage"
	"newsbot/types"

	"github.com/rs/zerolog/log"
)

// DefaultBudget is the number of articles one ingestion run may add.
const DefaultBudget = 350

// Budget bounds a single ingestion run.
type Budget struct {
	Limit int
}

// ArticleStore is the storage surface ingestion appends to.
type ArticleStore interface {
	Insert(ctx context.Context, article *types.Article) error
	ExistsURL(ctx context.Context, url string) (bool, error)
	ExistsTitle(ctx context.Context, title string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// ExactDuplicateFilter is a probabilistic URL+title membership check.
type ExactDuplicateFilter interface {
	Seen(ctx context.Context, article *types.Article) (bool, error)
	Remember(ctx context.Context, article *types.Article) error
}

// IngestorConfig wires the collaborators of an Ingestor. Keywords, Forum and
// Bloom are optional.
type IngestorConfig struct {
	Sources   []Source
	Feeds     FeedFetcher
	Extractor BodyExtractor
	Forum     ForumSource
	Keywords  *KeywordFilter
	Bloom     ExactDuplicateFilter
	Workers   int
}

// Ingestor appends newly published articles to the store.
type Ingestor struct {
	store     ArticleStore
	sources   []Source
	feeds     FeedFetcher
	extractor BodyExtractor
	forum     ForumSource
	keywords  *KeywordFilter
	bloom     ExactDuplicateFilter
	workers   int
}

func NewIngestor(store ArticleStore, cfg IngestorConfig) (*Ingestor, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Feeds == nil || cfg.Extractor == nil {
		return nil, fmt.Errorf("feed fetcher and body extractor are required")
	}
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = WorkerCount
	}
	return &Ingestor{
		store:     store,
		sources:   byPriority(sources),
		feeds:     cfg.Feeds,
		extractor: cfg.Extractor,
		forum:     cfg.Forum,
		keywords:  cfg.Keywords,
		bloom:     cfg.Bloom,
		workers:   workers,
	}, nil
}

type ingestRun struct {
	limit  int
	start  int
	count  int
	urls   map[string]struct{}
	titles map[string]struct{}
	result *types.IngestResult
}

func (r *ingestRun) full() bool { return r.count >= r.limit }

// Run ingests from every source, high priority first, then fills what is
// left of the budget from the forum.
func (in *Ingestor) Run(ctx context.Context, budget Budget) (*types.IngestResult, error) {
	started := time.Now()
	limit := budget.Limit
	if limit <= 0 {
		limit = DefaultBudget
	}

	start, err := in.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stored articles: %w", err)
	}

	run := &ingestRun{
		limit:  limit,
		start:  start,
		urls:   make(map[string]struct{}),
		titles: make(map[string]struct{}),
		result: &types.IngestResult{BySource: make(map[string]int)},
	}

	for _, src := range in.sources {
		if run.full() {
			break
		}
		if err := ctx.Err(); err != nil {
			return run.result, err
		}
		in.ingestSource(ctx, src, run)
	}

	if in.forum != nil && !run.full() {
		in.ingestForum(ctx, run)
	}

	log.Info().
		Int("inserted", run.result.Inserted).
		Int("skipped", run.result.Skipped).
		Int("failed", run.result.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("ingestion complete")
	return run.result, nil
}

// admissible applies the store and in-run uniqueness checks shared by feeds
// and the forum. An admitted item reserves its link and title for the rest of
// the run.
func (in *Ingestor) admissible(ctx context.Context, run *ingestRun, source, title, link string, published time.Time) bool {
	logger := log.With().Str("source", source).Str("url", link).Logger()
	switch {
	case link == "":
		logger.Error().Msg("link for current article not found, skipping article")
		return false
	case title == "":
		logger.Error().Msg("article title not found")
		return false
	case published.IsZero():
		logger.Error().Msg("article does not have timestamp")
		return false
	}
	if _, ok := run.urls[link]; ok {
		return false
	}
	if _, ok := run.titles[title]; ok {
		return false
	}
	if exists, err := in.store.ExistsURL(ctx, link); err != nil || exists {
		if err != nil {
			logger.Warn().Err(err).Msg("url lookup failed")
		} else {
			logger.Debug().Msg("link already exists in database, skipping")
		}
		return false
	}
	if exists, err := in.store.ExistsTitle(ctx, title); err != nil || exists {
		if err != nil {
			logger.Warn().Err(err).Msg("title lookup failed")
		} else {
			logger.Debug().Msg("title already exists in database, skipping")
		}
		return false
	}
	run.urls[link] = struct{}{}
	run.titles[title] = struct{}{}
	return true
}

func (in *Ingestor) matchKeywords(title, body string) ([]string, bool) {
	if in.keywords == nil {
		return nil, true
	}
	found := in.keywords.Match(title, body)
	return found, len(found) > 0
}

func (in *Ingestor) seen(ctx context.Context, article *types.Article) bool {
	if in.bloom == nil {
		return false
	}
	seen, err := in.bloom.Seen(ctx, article)
	if err != nil {
		log.Warn().Err(err).Msg("bloom check failed")
		return false
	}
	return seen
}

func (in *Ingestor) ingestSource(ctx context.Context, src Source, run *ingestRun) {
	started := time.Now()
	items, err := in.feeds.Fetch(ctx, src)
	if err != nil {
		log.Error().Err(err).Str("source", src.Name).Msg("failed to fetch feed")
		run.result.Failed++
		return
	}

	candidates := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if !in.admissible(ctx, run, src.Name, item.Title, item.Link, item.Published) {
			run.result.Skipped++
			continue
		}
		candidates = append(candidates, item)
	}

	extracted := in.extractAll(ctx, src, candidates)

	var batch []*types.Article
	for i, item := range candidates {
		if run.full() {
			break
		}
		body := in.resolveBody(src, item, extracted[i])
		if body == "" {
			log.Error().Str("source", src.Name).Str("url", item.Link).Msg("no body text found, article skipped")
			run.result.Skipped++
			continue
		}
		keywords, ok := in.matchKeywords(item.Title, body)
		if !ok {
			log.Debug().Str("url", item.Link).Msg("no keywords found, article skipped")
			run.result.Skipped++
			continue
		}

		article := &types.Article{
			Key:       types.NewKey(),
			Ordinal:   run.start + run.count,
			Title:     item.Title,
			Source:    src.Name,
			Body:      body,
			URL:       item.Link,
			Timestamp: item.Published,
			Keywords:  keywords,
		}
		if in.seen(ctx, article) {
			run.result.Skipped++
			continue
		}

		run.count++
		batch = append(batch, article)
	}

	in.insertBatch(ctx, src.Name, batch, run)
	log.Info().
		Str("source", src.Name).
		Int("articles", len(batch)).
		Dur("elapsed", time.Since(started)).
		Msg("fetched source")
}

// extractAll downloads candidate pages with a fixed pool of workers. Results
// keep the candidates' order.
func (in *Ingestor) extractAll(ctx context.Context, src Source, candidates []FeedItem) []Extraction {
	results := make([]Extraction, len(candidates))
	jobs := make(chan int, len(candidates))

	var wg sync.WaitGroup
	for w := 0; w < in.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				out, err := in.extractor.Extract(ctx, candidates[i].Link, src.Rule)
				if err != nil {
					log.Warn().Err(err).Int("worker", workerID).Str("url", candidates[i].Link).Msg("failed to extract")
					continue
				}
				results[i] = out
			}
		}(w)
	}

	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (in *Ingestor) resolveBody(src Source, item FeedItem, ex Extraction) string {
	if ex.RuleText != "" {
		return ex.RuleText
	}
	if desc := StripHTML(item.Description); desc != "" {
		log.Error().Str("source", src.Name).Str("url", item.Link).Msg("no body text found, RSS description used")
		return desc
	}
	return ex.ReadableText
}

func (in *Ingestor) ingestForum(ctx context.Context, run *ingestRun) {
	remaining := run.limit - run.count
	keywordsByURL := make(map[string][]string)

	accept := func(post ForumPost) bool {
		if !in.admissible(ctx, run, in.forum.Name(), post.Title, post.URL, post.Timestamp) || post.Body == "" {
			run.result.Skipped++
			return false
		}
		keywords, ok := in.matchKeywords(post.Title, post.Body)
		if !ok {
			run.result.Skipped++
			return false
		}
		keywordsByURL[post.URL] = keywords
		return true
	}

	posts, err := in.forum.Fetch(ctx, remaining, accept)
	if err != nil {
		log.Error().Err(err).Str("source", in.forum.Name()).Msg("forum scrape stopped early")
	}

	batch := make([]*types.Article, 0, len(posts))
	for _, post := range posts {
		if run.full() {
			break
		}
		batch = append(batch, &types.Article{
			Key:       types.NewKey(),
			Ordinal:   run.start + run.count,
			Title:     post.Title,
			Source:    in.forum.Name(),
			Body:      post.Body,
			URL:       post.URL,
			Timestamp: post.Timestamp,
			Keywords:  keywordsByURL[post.URL],
		})
		run.count++
	}
	in.insertBatch(ctx, in.forum.Name(), batch, run)
}

func (in *Ingestor) insertBatch(ctx context.Context, source string, batch []*types.Article, run *ingestRun) {
	for _, article := range batch {
		if err := in.store.Insert(ctx, article); err != nil {
			if errors.Is(err, storage.ErrDuplicateArticle) {
				log.Debug().Str("source", source).Str("url", article.URL).Msg("article already stored, skipping")
				run.result.Skipped++
				continue
			}
			log.Error().Err(err).Str("source", source).Str("url", article.URL).Msg("failed to store article")
			run.result.Failed++
			continue
		}
		run.result.Inserted++
		run.result.BySource[source]++
		if in.bloom != nil {
			if err := in.bloom.Remember(ctx, article); err != nil {
				log.Warn().Err(err).Msg("failed to add article to bloom filter")
			}
		}
	}
}
