package deduplication

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

const (
	DefaultCohereModel = "embed-multilingual-light-v3.0"
	DefaultOpenAIModel = "text-embedding-3-small"
	defaultOpenAIURL   = "https://api.openai.com/v1/embeddings"
)

// ErrNoEmbeddingsProvider is returned when no embeddings backend is configured.
var ErrNoEmbeddingsProvider = errors.New("no embeddings provider configured")

// EmbeddingsProvider abstracts a text->embedding generator
// Implementations should return one embedding vector per input text.
type EmbeddingsProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// EmbeddingsConfig selects and configures an embeddings backend.
type EmbeddingsConfig struct {
	Model        string
	CohereAPIKey string
	OpenAIAPIKey string
	// OpenAIEndpoint points at any OpenAI-compatible embeddings endpoint,
	// such as a self-hosted sentence-transformers server.
	OpenAIEndpoint string
	OpenAIOrgID    string
	Timeout        time.Duration
}

// NewEmbeddingsProvider prefers Cohere when a key is present and falls back to
// an OpenAI-compatible endpoint.
func NewEmbeddingsProvider(cfg EmbeddingsConfig) (EmbeddingsProvider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if cfg.CohereAPIKey != "" {
		model := cfg.Model
		if model == "" || !strings.HasPrefix(model, "embed-") {
			model = DefaultCohereModel
		}
		// Force HTTP/1.1; the Cohere endpoint has produced HTTP/2 stream errors.
		httpClient := &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
				ForceAttemptHTTP2: false,
			},
		}
		client := cohereclient.NewClient(
			cohereclient.WithToken(cfg.CohereAPIKey),
			cohereclient.WithHTTPClient(httpClient),
		)
		return &CohereEmbeddings{client: client, model: model}, nil
	}

	if cfg.OpenAIAPIKey != "" || cfg.OpenAIEndpoint != "" {
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		return &OpenAIEmbeddings{
			apiKey:   cfg.OpenAIAPIKey,
			model:    model,
			endpoint: cfg.OpenAIEndpoint,
			orgID:    cfg.OpenAIOrgID,
			client:   &http.Client{Timeout: timeout},
		}, nil
	}

	return nil, ErrNoEmbeddingsProvider
}

// CohereEmbeddings implements EmbeddingsProvider using the Cohere Embed API (v2)
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

func (c *CohereEmbeddings) ModelName() string { return c.model }

func (c *CohereEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          c.model,
			InputType:      cohere.EmbedInputTypeSearchDocument,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, fmt.Errorf("%w: cohere returned %d embeddings for %d texts", ErrDimensionMismatch, len(floats), len(texts))
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

// OpenAIEmbeddings implements EmbeddingsProvider against the OpenAI
// embeddings wire format:
// Request: {"input": ["text1", ...], "model": "text-embedding-3-small"}
// Response: {"data": [{"embedding": [...], "index": 0}, ...]}
type OpenAIEmbeddings struct {
	apiKey   string
	model    string
	endpoint string
	orgID    string
	client   *http.Client
}

func (o *OpenAIEmbeddings) ModelName() string { return o.model }

func (o *OpenAIEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIURL
	}

	b, err := json.Marshal(map[string]interface{}{
		"input": texts,
		"model": o.model,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	if o.orgID != "" {
		req.Header.Set("OpenAI-Organization", o.orgID)
	}

	client := o.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("openai embeddings error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: endpoint returned %d embeddings for %d texts", ErrDimensionMismatch, len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
