package common

import (
	"context"
	"testing"
	"time"

	"newsbot/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) Put(ctx context.Context, bucket, key string, payload []byte, contentType string) error {
	m.objects[bucket+"/"+key] = append([]byte(nil), payload...)
	m.types[bucket+"/"+key] = contentType
	return nil
}

func (m *memoryObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return b, nil
}

func TestArchivePassResultRoundTrip(t *testing.T) {
	objects := newMemoryObjects()
	a := NewArchiver(objects, "news", "reports")

	result := &types.PassResult{
		RunID:     "7f1c",
		Strategy:  "lexical",
		Threshold: 0.95,
		Total:     3,
		Deleted:   []string{"b"},
		Survivors: 2,
		StartedAt: time.Date(2024, 10, 16, 1, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}

	key, err := a.ArchivePassResult(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, "reports/dedup/7f1c.json", key)
	assert.Equal(t, "application/json", objects.types["news/reports/dedup/7f1c.json"])

	loaded, err := a.LoadPassResult(context.Background(), "7f1c")
	require.NoError(t, err)
	assert.Equal(t, result, loaded)

	_, err = a.LoadPassResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestArchiverKeyWithoutPrefix(t *testing.T) {
	a := NewArchiver(newMemoryObjects(), "news", "")
	assert.Equal(t, "dedup/abc.json", a.PassResultKey("abc"))

	_, err := a.ArchivePassResult(context.Background(), &types.PassResult{})
	assert.Error(t, err)
}
