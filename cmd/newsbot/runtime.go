package main

import (
	"context"
	"fmt"

	"newsbot/common"
	"newsbot/config"
	"newsbot/deduplication"
	"newsbot/orchestrator"
	"newsbot/rssfeeds"
	"newsbot/shared/kafka"
	"newsbot/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// runtimeOptions override configured values for a single command.
type runtimeOptions struct {
	strategy string
	ingest   bool
}

// runtime holds every long-lived collaborator of a command.
type runtime struct {
	store    storage.Store
	runner   *orchestrator.Runner
	producer *kafka.Producer
	archiver *common.Archiver
	closers  []func() error
}

func newRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	rt.store = store
	rt.closers = append(rt.closers, store.Close)
	log.Info().Str("backend", cfg.Store.Backend).Msg("store ready")

	vectorizer, err := buildVectorizer(cfg, opts.strategy)
	if err != nil {
		return nil, err
	}

	deduper, err := deduplication.NewDeduplicator(store, vectorizer, deduplication.DeduplicatorConfig{SimilarityThreshold: cfg.Threshold})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize deduplicator: %w", err)
	}

	runnerCfg := orchestrator.RunnerConfig{
		Deduplicator: deduper,
		Budget:       rssfeeds.Budget{Limit: cfg.Budget},
	}

	if opts.ingest {
		ingestor, err := rt.buildIngestor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runnerCfg.Ingestor = ingestor
	}

	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Warn().Err(err).Msg("Warning: failed to init Kafka producer (publishing disabled)")
		} else {
			rt.producer = producer
			rt.closers = append(rt.closers, producer.Close)
			runnerCfg.Publisher = producer
		}
	}

	if cfg.S3Enabled() {
		s3Client, err := common.NewS3(ctx, cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("Warning: failed to init S3 client (archive disabled)")
		} else {
			rt.archiver = common.NewArchiver(s3Client, cfg.S3Bucket, cfg.S3Prefix)
			runnerCfg.Archiver = rt.archiver
		}
	}

	runner, err := orchestrator.NewRunner(runnerCfg)
	if err != nil {
		return nil, err
	}
	rt.runner = runner
	ok = true
	return rt, nil
}

func buildVectorizer(cfg *config.Config, override string) (deduplication.Vectorizer, error) {
	strategy := cfg.Strategy
	if override != "" {
		parsed, err := deduplication.ParseStrategy(override)
		if err != nil {
			return nil, err
		}
		strategy = parsed
	}

	switch strategy {
	case deduplication.StrategySemantic:
		provider, err := deduplication.NewEmbeddingsProvider(cfg.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embeddings provider: %w", err)
		}
		log.Info().Str("model", provider.ModelName()).Msg("using semantic similarity")
		return deduplication.NewSemanticVectorizer(provider, 0, cfg.Workers), nil
	default:
		return deduplication.NewTFIDFVectorizer(cfg.Workers), nil
	}
}

func (rt *runtime) buildIngestor(ctx context.Context, cfg *config.Config) (*rssfeeds.Ingestor, error) {
	sources := rssfeeds.DefaultSources()
	if cfg.SourcesPath != "" {
		loaded, err := rssfeeds.LoadSources(cfg.SourcesPath)
		if err != nil {
			return nil, err
		}
		sources = loaded
	}

	ingestCfg := rssfeeds.IngestorConfig{
		Sources:   sources,
		Feeds:     rssfeeds.NewGofeedFetcher(cfg.UserAgent),
		Extractor: rssfeeds.NewHTMLExtractor(nil, cfg.UserAgent),
	}

	if cfg.PTTEnabled {
		ingestCfg.Forum = rssfeeds.NewPTTSource(nil, cfg.PTTBaseURL)
	}

	if len(cfg.KeywordFiles) > 0 {
		keywords, err := rssfeeds.LoadKeywordFilter(cfg.KeywordFiles...)
		if err != nil {
			return nil, err
		}
		log.Info().Int("keywords", keywords.Len()).Msg("keyword filter loaded")
		ingestCfg.Keywords = keywords
	} else {
		log.Warn().Msg("Warning: no keyword files configured; every article is kept")
	}

	if cfg.BloomEnabled {
		if bloom := rt.buildBloom(ctx, cfg); bloom != nil {
			ingestCfg.Bloom = bloom
		}
	}

	return rssfeeds.NewIngestor(rt.store, ingestCfg)
}

// buildBloom reuses the store's Redis connection when there is one.
func (rt *runtime) buildBloom(ctx context.Context, cfg *config.Config) *deduplication.RedisBloom {
	var client redis.UniversalClient
	if rs, ok := rt.store.(*storage.RedisStore); ok {
		client = rs.Client()
	} else {
		c, err := storage.NewRedisClient(ctx, cfg.Store.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Warning: failed to connect bloom filter redis (bloom disabled)")
			return nil
		}
		client = c
		rt.closers = append(rt.closers, c.Close)
	}

	bloom, err := deduplication.NewRedisBloom(ctx, client, cfg.Bloom)
	if err != nil {
		log.Warn().Err(err).Msg("Warning: failed to init bloom filter (bloom disabled)")
		return nil
	}
	return bloom
}

// Close releases collaborators in reverse order of creation.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Warning: failed to close resource")
		}
	}
	rt.closers = nil
}
