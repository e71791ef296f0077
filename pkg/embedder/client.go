package embedder

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/uniQorn-org/graphiti/pkg/nlp"
)

// Client is the interface every embedding provider in this package implements.
type Client interface {
	// Embed generates embeddings for a batch of texts in a single request.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle is a convenience wrapper around Embed for one text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length produced by this client.
	Dimensions() int

	// Close releases any resources held by the client.
	Close() error

	// GetCapabilities returns the tasks this client supports.
	GetCapabilities() []nlp.TaskCapability
}

// Config configures an embedding client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	BatchSize  int
	Dimensions int
}

// defaultDimensionsByModel holds the known output width for OpenAI's current
// embedding models, used when Config.Dimensions is left unset.
var defaultDimensionsByModel = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

const defaultEmbeddingModel = "text-embedding-3-small"
const defaultEmbeddingDimensions = 1536
const defaultBatchSize = 100

// OpenAIEmbedder implements Client against the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *goopenai.Client
	model      string
	dimensions int
	batchSize  int
}

// NewOpenAIEmbedder creates a new OpenAI embedding client.
func NewOpenAIEmbedder(apiKey string, config Config) *OpenAIEmbedder {
	model := config.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	dimensions := config.Dimensions
	if dimensions == 0 {
		dimensions = defaultDimensionsByModel[model]
	}
	if dimensions == 0 {
		dimensions = defaultEmbeddingDimensions
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	clientConfig := goopenai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIEmbedder{
		client:     goopenai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
	}
}

// Embed generates embeddings for the given texts, batching requests to stay
// under the provider's per-call input limit.
func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := o.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
			Input: texts[start:end],
			Model: goopenai.EmbeddingModel(o.model),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}

		for _, data := range resp.Data {
			vec := make([]float32, len(data.Embedding))
			copy(vec, data.Embedding)
			results = append(results, vec)
		}
	}

	return results, nil
}

// EmbedSingle generates an embedding for a single text.
func (o *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := o.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// Dimensions returns the number of dimensions in the embeddings produced by
// this client's configured model.
func (o *OpenAIEmbedder) Dimensions() int {
	return o.dimensions
}

// Close implements the Client interface; the OpenAI HTTP client needs no
// explicit teardown.
func (o *OpenAIEmbedder) Close() error {
	return nil
}

// GetCapabilities implements the Client interface.
func (o *OpenAIEmbedder) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskEmbedding}
}

var _ Client = (*OpenAIEmbedder)(nil)
