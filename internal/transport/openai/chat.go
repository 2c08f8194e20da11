package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// Supported chat providers.
const (
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderLMStudio = "lmstudio"
)

type providerDefaults struct {
	model   string
	baseURL string
	apiKey  string
}

var providerTable = map[string]providerDefaults{
	ProviderOpenAI:   {model: "gpt-4o-mini"},
	ProviderOllama:   {model: "qwen3:4b", baseURL: "http://localhost:11434", apiKey: "ollama"},
	ProviderLMStudio: {model: "local-model", baseURL: "http://localhost:1234/v1", apiKey: "lm-studio"},
}

// ChatClient answers questions via an OpenAI-compatible chat completion API.
type ChatClient struct {
	client   *openai.Client
	provider string
	model    string
	logger   *zap.Logger
}

// NewChatClient resolves the provider name to a configured client.
// An empty provider defaults to openai; unknown names are rejected with
// a typed error listing the supported providers. Non-empty apiKey and
// baseURL override the environment resolution.
func NewChatClient(provider, model, apiKey, baseURL string, logger *zap.Logger) (*ChatClient, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = ProviderOpenAI
	}

	defaults, ok := providerTable[name]
	if !ok {
		return nil, domain.ErrInvalidProvider(
			fmt.Sprintf("Use one of: %s.", strings.Join(supportedProviders(), ", ")))
	}

	if model == "" {
		model = os.Getenv("LLM_MODEL")
	}
	if model == "" {
		model = defaults.model
	}

	envKey, envBase := resolveEndpoint(name, defaults)
	if apiKey == "" {
		apiKey = envKey
	}
	if baseURL == "" {
		baseURL = envBase
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &ChatClient{
		client:   openai.NewClientWithConfig(clientCfg),
		provider: name,
		model:    model,
		logger:   logger,
	}, nil
}

func resolveEndpoint(name string, defaults providerDefaults) (apiKey, baseURL string) {
	switch name {
	case ProviderOpenAI:
		apiKey = os.Getenv("OPENAI_API_KEY")
		baseURL = os.Getenv("OPENAI_API_BASE")

	case ProviderOllama:
		apiKey = defaults.apiKey
		baseURL = os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = defaults.baseURL
		}
		// ollama exposes the OpenAI-compatible API under /v1
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}

	case ProviderLMStudio:
		apiKey = os.Getenv("LMSTUDIO_API_KEY")
		if apiKey == "" {
			apiKey = defaults.apiKey
		}
		baseURL = os.Getenv("LMSTUDIO_BASE_URL")
		if baseURL == "" {
			baseURL = defaults.baseURL
		}
	}
	return apiKey, baseURL
}

func supportedProviders() []string {
	return []string{ProviderOpenAI, ProviderOllama, ProviderLMStudio}
}

// Provider returns the resolved provider name.
func (c *ChatClient) Provider() string { return c.provider }

// ModelName returns the resolved chat model.
func (c *ChatClient) ModelName() string { return c.model }

// Complete sends a single-turn completion and returns the answer text.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", parseAPIError("chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
