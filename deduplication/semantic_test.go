package deduplication

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   [][]string
	vectors map[string][]float32
	err     error
}

func (f *fakeProvider) ModelName() string { return "fake-embed" }

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, texts)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

func TestSemanticVectorizerBatches(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {1, 0, 0},
		"d": {0, 0, 1},
		"e": {0, 1, 0},
	}}
	v := NewSemanticVectorizer(provider, 2, 3)
	assert.Equal(t, "semantic", v.Name())
	assert.Equal(t, "fake-embed", v.Model())

	m, err := v.Fit(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, provider.calls, 3)
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, 3, m.Dim())

	deleted, err := Resolve([]string{"a", "b", "c", "d", "e"}, m, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e"}, deleted)
}

func TestSemanticVectorizerErrors(t *testing.T) {
	v := NewSemanticVectorizer(&fakeProvider{}, 0, 0)
	_, err := v.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	boom := errors.New("rate limited")
	v = NewSemanticVectorizer(&fakeProvider{err: boom}, 0, 0)
	_, err = v.Fit(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)

	v = NewSemanticVectorizer(&fakeProvider{vectors: map[string][]float32{
		"x": {1, 2},
		"y": {1, 2, 3},
	}}, 0, 0)
	_, err = v.Fit(context.Background(), []string{"x", "y"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOpenAIEmbeddingsOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm-l6-v2", req.Model)
		assert.Equal(t, []string{"first", "second"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	provider, err := NewEmbeddingsProvider(EmbeddingsConfig{
		Model:          "all-minilm-l6-v2",
		OpenAIAPIKey:   "secret",
		OpenAIEndpoint: server.URL,
	})
	require.NoError(t, err)

	out, err := provider.EmbedTexts(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}

func TestOpenAIEmbeddingsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	provider, err := NewEmbeddingsProvider(EmbeddingsConfig{OpenAIEndpoint: server.URL})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, provider.ModelName())

	_, err = provider.EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "status 429")
}

func TestNewEmbeddingsProviderSelection(t *testing.T) {
	_, err := NewEmbeddingsProvider(EmbeddingsConfig{})
	assert.ErrorIs(t, err, ErrNoEmbeddingsProvider)

	p, err := NewEmbeddingsProvider(EmbeddingsConfig{CohereAPIKey: "k", OpenAIAPIKey: "o"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCohereModel, p.ModelName())
}
