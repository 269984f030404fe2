package deduplication

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	docs       []Document
	deletes    int
	updates    int
	failDelete error
}

func newFakeStore(bodies ...string) *fakeStore {
	s := &fakeStore{}
	for i, body := range bodies {
		b := body
		s.docs = append(s.docs, Document{
			Key:     string(rune('A' + i)),
			Ordinal: i,
			Title:   "title " + string(rune('A'+i)),
			Body:    &b,
		})
	}
	return s
}

func (f *fakeStore) FindAll(ctx context.Context) ([]Document, error) {
	out := make([]Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deletes++
	for i, doc := range f.docs {
		if doc.Key == key {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) UpdateOrdinal(ctx context.Context, key string, ordinal int) error {
	f.updates++
	for i := range f.docs {
		if f.docs[i].Key == key {
			f.docs[i].Ordinal = ordinal
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) keys() []string {
	out := make([]string, len(f.docs))
	for i, doc := range f.docs {
		out[i] = doc.Key
	}
	return out
}

func (f *fakeStore) ordinals() []int {
	out := make([]int, len(f.docs))
	for i, doc := range f.docs {
		out[i] = doc.Ordinal
	}
	sort.Ints(out)
	return out
}

func newLexical(t *testing.T, store Store, threshold float64) *Deduplicator {
	t.Helper()
	d, err := NewDeduplicator(store, NewTFIDFVectorizer(2), DeduplicatorConfig{SimilarityThreshold: threshold})
	require.NoError(t, err)
	return d
}

func TestRunNearDuplicateScenario(t *testing.T) {
	store := newFakeStore(
		"TSMC reports record profit.",
		"TSMC reports record profit!",
		"Central bank raises interest rates.",
	)
	result, err := newLexical(t, store, 0.95).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, result.Deleted)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Survivors)
	assert.Equal(t, "lexical", result.Strategy)
	assert.Equal(t, []string{"A", "C"}, store.keys())
	assert.Equal(t, []int{0, 1}, store.ordinals())
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore(
		"Foxconn expands plant in Mexico",
		"Foxconn expands plant in Mexico.",
		"MediaTek unveils new chip",
		"Foxconn expands plant in Mexico\n",
	)
	d := newLexical(t, store, 1.0)

	first, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D"}, first.Deleted)

	after := store.keys()
	second, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Deleted)
	assert.Equal(t, after, store.keys())
	assert.Equal(t, []int{0, 1}, store.ordinals())
}

func TestRunSingleDocument(t *testing.T) {
	store := newFakeStore("only one article here")
	result, err := newLexical(t, store, 0.1).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Deleted)
	assert.Equal(t, []int{0}, store.ordinals())
}

func TestRunEmptyCorpus(t *testing.T) {
	store := newFakeStore()
	result, err := newLexical(t, store, 1.0).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Deleted)
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.Survivors)
	assert.Zero(t, store.deletes)
	assert.Zero(t, store.updates)
}

func TestRunRenumbersGappedOrdinals(t *testing.T) {
	store := newFakeStore("first story", "second story", "third story")
	store.docs[0].Ordinal = 7
	store.docs[1].Ordinal = 7
	store.docs[2].Ordinal = 42

	_, err := newLexical(t, store, 1.0).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, store.docs[0].Ordinal)
	assert.Equal(t, 1, store.docs[1].Ordinal)
	assert.Equal(t, 2, store.docs[2].Ordinal)
}

func TestRunMissingBodyFailsFast(t *testing.T) {
	store := newFakeStore("a real body", "another body")
	store.docs[1].Body = nil

	_, err := newLexical(t, store, 1.0).Run(context.Background())
	require.ErrorIs(t, err, ErrMissingBody)
	assert.Zero(t, store.deletes)
	assert.Zero(t, store.updates)
}

func TestRunDeleteFailureSkipsRenumber(t *testing.T) {
	store := newFakeStore("same words", "same words")
	store.failDelete = errors.New("boom")

	_, err := newLexical(t, store, 1.0).Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, store.updates)
}

func TestRunWithThresholdOverride(t *testing.T) {
	store := newFakeStore("apple banana cherry", "apple banana durian")
	d := newLexical(t, store, 1.0)

	result, err := d.RunWithThreshold(context.Background(), 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.3, result.Threshold)
	assert.Equal(t, []string{"B"}, result.Deleted)
	assert.Equal(t, 1.0, d.Threshold())
}

func TestNewDeduplicatorDefaults(t *testing.T) {
	d, err := NewDeduplicator(newFakeStore(), NewTFIDFVectorizer(1), DeduplicatorConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSimilarityThreshold, d.Threshold())
	assert.Equal(t, "lexical", d.Strategy())

	_, err = NewDeduplicator(nil, NewTFIDFVectorizer(1), DeduplicatorConfig{})
	assert.Error(t, err)
	_, err = NewDeduplicator(newFakeStore(), nil, DeduplicatorConfig{})
	assert.Error(t, err)
}

func TestApplyIgnoresUnknownKeys(t *testing.T) {
	store := newFakeStore("x1 y1", "x2 y2")
	require.NoError(t, Apply(context.Background(), store, []string{"Z", "A", "A"}))
	assert.Equal(t, []string{"B"}, store.keys())
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyLexical, s)

	s, err = ParseStrategy(" Semantic ")
	require.NoError(t, err)
	assert.Equal(t, StrategySemantic, s)

	_, err = ParseStrategy("bm25")
	assert.Error(t, err)
}
