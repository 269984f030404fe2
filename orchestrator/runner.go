package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsbot/rssfeeds"
	"newsbot/shared/kafka"
	"newsbot/types"

	"github.com/rs/zerolog/log"
)

// ErrBusy is returned when a cycle is requested while another one is still running.
var ErrBusy = errors.New("a run is already in progress")

// Ingester fills the store from the configured sources.
type Ingester interface {
	Run(ctx context.Context, budget rssfeeds.Budget) (*types.IngestResult, error)
}

// Deduper runs one deduplication pass over the whole store.
type Deduper interface {
	Run(ctx context.Context) (*types.PassResult, error)
	RunWithThreshold(ctx context.Context, threshold float64) (*types.PassResult, error)
}

// Publisher announces events to downstream consumers.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

// Archiver keeps a durable copy of each pass report.
type Archiver interface {
	ArchivePassResult(ctx context.Context, result *types.PassResult) (string, error)
}

// RunnerConfig wires the collaborators. Only Deduplicator is required.
type RunnerConfig struct {
	Ingestor     Ingester
	Deduplicator Deduper
	Publisher    Publisher
	Archiver     Archiver
	Budget       rssfeeds.Budget
	// ArchiveTimeout bounds each archive upload. Defaults to 30s.
	ArchiveTimeout time.Duration
}

// Report summarises one cycle.
type Report struct {
	Ingest     *types.IngestResult `json:"ingest,omitempty"`
	Pass       *types.PassResult   `json:"pass"`
	ArchiveKey string              `json:"archive_key,omitempty"`
}

// Runner executes ingest and deduplication cycles. Cycles never overlap.
type Runner struct {
	cfg RunnerConfig

	running sync.Mutex
	state   *tracker

	mu   sync.RWMutex
	last *types.PassResult
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Deduplicator == nil {
		return nil, fmt.Errorf("deduplicator is required")
	}
	if cfg.Budget.Limit <= 0 {
		cfg.Budget.Limit = rssfeeds.DefaultBudget
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = 30 * time.Second
	}
	return &Runner{cfg: cfg, state: newTracker()}, nil
}

// RunOnce executes a single end-to-end cycle: ingest, deduplicate, publish and archive.
func (r *Runner) RunOnce(ctx context.Context) (*Report, error) {
	if !r.running.TryLock() {
		return nil, ErrBusy
	}
	defer r.running.Unlock()

	log.Info().Msg("=== newsbot cycle ===")
	report := &Report{}

	if r.cfg.Ingestor != nil {
		res, err := r.ingest(ctx)
		if err != nil {
			return nil, err
		}
		report.Ingest = res
	} else {
		log.Info().Msg("Ingestor not configured; skipping ingestion")
	}

	pass, key, err := r.pass(ctx, nil)
	if err != nil {
		return report, err
	}
	report.Pass = pass
	report.ArchiveKey = key

	log.Info().Msg("=== cycle complete ===")
	return report, nil
}

// Ingest runs ingestion alone and announces the new articles on the ingested topic.
func (r *Runner) Ingest(ctx context.Context) (*types.IngestResult, error) {
	if r.cfg.Ingestor == nil {
		return nil, fmt.Errorf("ingestor is not configured")
	}
	if !r.running.TryLock() {
		return nil, ErrBusy
	}
	defer r.running.Unlock()

	res, err := r.ingest(ctx)
	if err != nil {
		return nil, err
	}
	r.state.set(StateIdle, "")
	if res.Inserted > 0 && r.cfg.Publisher != nil {
		event := types.IngestEvent{Inserted: res.Inserted, At: time.Now().UTC()}
		if err := r.cfg.Publisher.PublishJSON(ctx, kafka.TopicIngested, "", event); err != nil {
			log.Warn().Err(err).Msg("Warning: failed to publish ingest event")
		}
	}
	return res, nil
}

// RunPass runs a deduplication pass. A nil threshold uses the configured one.
func (r *Runner) RunPass(ctx context.Context, threshold *float64) (*types.PassResult, error) {
	if !r.running.TryLock() {
		return nil, ErrBusy
	}
	defer r.running.Unlock()

	pass, _, err := r.pass(ctx, threshold)
	return pass, err
}

// Status returns the current phase and recent activity.
func (r *Runner) Status() Status {
	return r.state.snapshot()
}

// Last returns the most recent successful pass, or nil.
func (r *Runner) Last() *types.PassResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Runner) ingest(ctx context.Context) (*types.IngestResult, error) {
	r.state.set(StateIngesting, fmt.Sprintf("ingesting up to %d article(s)", r.cfg.Budget.Limit))
	res, err := r.cfg.Ingestor.Run(ctx, r.cfg.Budget)
	if err != nil {
		err = fmt.Errorf("failed to ingest articles: %w", err)
		r.state.fail(err)
		return nil, err
	}
	r.state.set(StateIngesting, fmt.Sprintf("ingested %d article(s)", res.Inserted))
	return res, nil
}

func (r *Runner) pass(ctx context.Context, threshold *float64) (*types.PassResult, string, error) {
	r.state.set(StateDeduplicating, "running deduplication pass")
	var (
		result *types.PassResult
		err    error
	)
	if threshold != nil {
		result, err = r.cfg.Deduplicator.RunWithThreshold(ctx, *threshold)
	} else {
		result, err = r.cfg.Deduplicator.Run(ctx)
	}
	if err != nil {
		err = fmt.Errorf("failed to run deduplication pass: %w", err)
		r.state.fail(err)
		return nil, "", err
	}
	r.state.set(StateDeduplicating, fmt.Sprintf("deleted %d of %d article(s)", len(result.Deleted), result.Total))

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()

	if r.cfg.Publisher != nil {
		r.state.set(StatePublishing, "")
		if err := r.cfg.Publisher.PublishJSON(ctx, kafka.TopicDeduplicated, result.RunID, result); err != nil {
			log.Warn().Err(err).Str("run_id", result.RunID).Msg("Warning: failed to publish pass result")
		}
	} else {
		log.Info().Msg("Kafka not configured; skipping publish")
	}

	var key string
	if r.cfg.Archiver != nil {
		r.state.set(StateArchiving, "")
		actx, cancel := context.WithTimeout(ctx, r.cfg.ArchiveTimeout)
		key, err = r.cfg.Archiver.ArchivePassResult(actx, result)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("run_id", result.RunID).Msg("Warning: failed to archive pass result")
			key = ""
		}
	} else {
		log.Info().Msg("S3 not configured; skipping archive")
	}

	r.state.finish(result.RunID)
	return result, key, nil
}
