package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// Config is the legacy, pointer-optional configuration shape accepted by
// NewOpenAIClient. Callers that already have an *LLMConfig should build an
// OpenAIClient via NewBaseOpenAIClient directly; Config exists for sites that
// predate LLMConfig and only want to override a handful of fields.
type Config struct {
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   *int
	TopP        *float32
	TopK        *int
	MinP        *float32
	Stop        []string
}

// OpenAIClient implements the Client interface for OpenAI and OpenAI-compatible
// services (Ollama, LocalAI, vLLM, text-generation-inference, ...).
type OpenAIClient struct {
	*BaseOpenAIClient
	client *openai.Client
	stop   []string
}

// NewOpenAIClient creates a client against the OpenAI API or, when config.BaseURL
// is set, against any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey string, config Config) (*OpenAIClient, error) {
	llmConfig := &LLMConfig{
		APIKey:  apiKey,
		Model:   config.Model,
		BaseURL: config.BaseURL,
	}
	if config.Temperature != nil {
		llmConfig.Temperature = *config.Temperature
	}
	if config.MaxTokens != nil {
		llmConfig.MaxTokens = *config.MaxTokens
	}
	if config.TopP != nil {
		llmConfig.TopP = *config.TopP
	}
	if config.TopK != nil {
		llmConfig.TopK = *config.TopK
	}
	if config.MinP != nil {
		llmConfig.MinP = *config.MinP
	}

	baseClient := NewBaseOpenAIClient(llmConfig, DefaultReasoning, DefaultVerbosity)

	var client *openai.Client
	if llmConfig.BaseURL != "" {
		if err := validateBaseURL(llmConfig.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}

		clientConfig := openai.DefaultConfig(llmConfig.APIKey)
		clientConfig.BaseURL = llmConfig.BaseURL
		if !hasAPIPath(llmConfig.BaseURL) {
			clientConfig.BaseURL = strings.TrimRight(llmConfig.BaseURL, "/") + "/v1"
		}

		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(llmConfig.APIKey)
	}

	return &OpenAIClient{
		BaseOpenAIClient: baseClient,
		client:           client,
		stop:             config.Stop,
	}, nil
}

// validateBaseURL rejects base URLs that are missing a scheme or carry one
// other than http/https, producing the distinct messages callers match on.
func validateBaseURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://): %q", baseURL)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme, got %q", parsed.Scheme)
	}

	return nil
}

// hasAPIPath reports whether baseURL already ends in a versioned API path
// segment, so callers know not to append the default "/v1".
func hasAPIPath(baseURL string) bool {
	trimmed := strings.TrimRight(baseURL, "/")
	return strings.HasSuffix(trimmed, "/v1") || strings.HasSuffix(trimmed, "/api")
}

// isReasoningModel reports whether model belongs to an OpenAI reasoning
// family (o1/o3/o4/gpt-5), which reject temperature and expect
// max_completion_tokens instead of max_tokens.
func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// buildRequest adapts BuildChatRequest for reasoning-model parameter quirks:
// temperature is dropped and max_tokens becomes max_completion_tokens.
func (c *OpenAIClient) buildRequest(messages []openai.ChatCompletionMessage, model string, maxTokens int) openai.ChatCompletionRequest {
	req := c.BuildChatRequest(messages, model, maxTokens)
	req.Stop = c.stop

	if isReasoningModel(model) {
		req.Temperature = 0
		if req.MaxTokens > 0 {
			req.MaxCompletionTokens = req.MaxTokens
			req.MaxTokens = 0
		}
	}

	return req
}

// Chat implements the Client interface for OpenAI.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.generate(ctx, messages, nil, 0, ModelSizeMedium)
}

// ChatWithStructuredOutput implements the Client interface for OpenAI, forcing
// a JSON-object response and strictening the schema for proxies that require
// additionalProperties:false and every field marked required.
func (c *OpenAIClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema interface{}) (*types.Response, error) {
	strict := strictenSchema(schema)
	return c.generate(ctx, messages, strict, 0, ModelSizeMedium)
}

func (c *OpenAIClient) generate(ctx context.Context, messages []types.Message, responseModel interface{}, maxTokens int, modelSize ModelSize) (*types.Response, error) {
	preparedMessages, err := c.PrepareMessages(messages, responseModel)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare messages: %w", err)
	}

	openaiMessages := c.ConvertMessagesToOpenAIFormat(preparedMessages)
	model := c.GetModelForSize(modelSize)

	req := c.buildRequest(openaiMessages, model, maxTokens)
	if responseModel != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "rate limit") || strings.Contains(err.Error(), "rate_limit") {
			return nil, NewRateLimitError(err.Error())
		}
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewEmptyResponseError("no choices returned from API")
	}

	response := &types.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}
	if resp.Usage.TotalTokens > 0 {
		response.TokensUsed = &types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return response, nil
}

// strictenSchema returns a copy of schema with additionalProperties:false set
// and every object property marked required, as several OpenAI-compatible
// corporate proxies reject structured-output schemas that omit either.
func strictenSchema(schema interface{}) interface{} {
	raw, err := json.Marshal(schema)
	if err != nil {
		return schema
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return schema
	}

	strictenObject(m)
	return m
}

func strictenObject(m map[string]interface{}) {
	if typ, _ := m["type"].(string); typ != "object" {
		return
	}

	props, ok := m["properties"].(map[string]interface{})
	if !ok {
		return
	}

	m["additionalProperties"] = false

	required := make([]string, 0, len(props))
	for name, prop := range props {
		required = append(required, name)
		if nested, ok := prop.(map[string]interface{}); ok {
			strictenObject(nested)
		}
	}
	m["required"] = required
}

// GetCapabilities implements the Client interface for OpenAI.
func (c *OpenAIClient) GetCapabilities() []TaskCapability {
	return []TaskCapability{TaskTextGeneration, TaskStructuredOutput}
}

// GetClient returns the underlying go-openai client for advanced usage.
func (c *OpenAIClient) GetClient() *openai.Client {
	return c.client
}

// GetConfig returns the client configuration.
func (c *OpenAIClient) GetConfig() *LLMConfig {
	return c.config
}

// Close implements the Client interface; the OpenAI HTTP client needs no
// explicit teardown.
func (c *OpenAIClient) Close() error {
	return nil
}
