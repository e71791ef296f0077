package llm

import (
	"context"

	"github.com/uniQorn-org/graphiti/pkg/types"
)

// Client is the interface every LLM provider gateway in this package implements.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// ChatWithStructuredOutput sends a chat completion request constrained to
	// a JSON schema and returns the parsed/validated response text.
	ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema interface{}) (*types.Response, error)

	// GetCapabilities returns the list of capabilities supported by this client.
	GetCapabilities() []TaskCapability

	// Close cleans up any resources.
	Close() error
}

// TaskCapability describes a task a Client can be asked to perform.
type TaskCapability string

const (
	TaskTextGeneration   TaskCapability = "text_generation"
	TaskStructuredOutput TaskCapability = "structured_output"
)

// ModelSize selects between a provider's primary and small/cheap model.
type ModelSize string

const (
	ModelSizeSmall  ModelSize = "small"
	ModelSizeMedium ModelSize = "medium"
)

const (
	RoleSystem    types.Role = "system"
	RoleUser      types.Role = "user"
	RoleAssistant types.Role = "assistant"
)

// NewLLMConfig creates a new LLMConfig with default values.
func NewLLMConfig() *LLMConfig {
	return &LLMConfig{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Default configuration values.
const (
	DefaultMaxTokens   = 8192
	DefaultTemperature = 1.0
)

// LLMConfig holds provider configuration for clients in this package.
type LLMConfig struct {
	APIKey      string  `json:"-"`
	Model       string  `json:"model,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	MinP        float32 `json:"min_p,omitempty"`
	MaxRetries  int     `json:"max_retries,omitempty"`
	SmallModel  string  `json:"small_model,omitempty"`
}

// EmptyResponseError signals that a provider returned a syntactically valid
// but empty completion (no choices, no content) that the caller cannot use.
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	return e.Message
}

// NewEmptyResponseError constructs an EmptyResponseError.
func NewEmptyResponseError(message string) error {
	return &EmptyResponseError{Message: message}
}

var (
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*OpenAIClient)(nil)
)
