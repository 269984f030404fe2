package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"newsbot/types"

	"github.com/rs/zerolog/log"
)

// ErrObjectNotFound is returned when an archived object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of S3 the archive needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, payload []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Archiver stores pass reports as JSON objects under <prefix>dedup/<run_id>.json.
type Archiver struct {
	store  ObjectStore
	bucket string
	prefix string
}

func NewArchiver(store ObjectStore, bucket, prefix string) *Archiver {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archiver{store: store, bucket: bucket, prefix: prefix}
}

// PassResultKey returns the object key of a run's report.
func (a *Archiver) PassResultKey(runID string) string {
	return a.prefix + path.Join("dedup", runID+".json")
}

// ArchivePassResult uploads result and returns its object key.
func (a *Archiver) ArchivePassResult(ctx context.Context, result *types.PassResult) (string, error) {
	if result == nil || result.RunID == "" {
		return "", fmt.Errorf("pass result has no run id")
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode pass result: %w", err)
	}

	key := a.PassResultKey(result.RunID)
	if err := a.store.Put(ctx, a.bucket, key, payload, "application/json"); err != nil {
		return "", fmt.Errorf("failed to archive pass result: %w", err)
	}
	log.Info().Str("bucket", a.bucket).Str("key", key).Msg("archived pass result")
	return key, nil
}

// LoadPassResult reads back an archived report.
func (a *Archiver) LoadPassResult(ctx context.Context, runID string) (*types.PassResult, error) {
	payload, err := a.store.Get(ctx, a.bucket, a.PassResultKey(runID))
	if err != nil {
		return nil, err
	}

	var result types.PassResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode pass result %s: %w", runID, err)
	}
	return &result, nil
}
