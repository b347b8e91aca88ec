// Package llm provides thin HTTP clients for hosted LLM providers and a
// multi-provider wrapper with per-provider circuit breakers and fallback.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// Provider represents an LLM provider
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// CompletionRequest represents a request to the LLM
type CompletionRequest struct {
	Provider    Provider
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	SystemMsg   string // Optional system message
}

// CompletionResponse represents the LLM response
type CompletionResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Model   string `json:"model"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client is the interface for LLM clients
type Client interface {
	// Complete sends a completion request and returns the response
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Config holds LLM client configuration
type Config struct {
	DefaultProvider Provider
	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// MultiClient manages multiple LLM providers. Each provider call goes
// through its own circuit breaker so a flapping upstream fails fast
// instead of stacking request timeouts.
type MultiClient struct {
	providers       map[Provider]Client
	breakers        map[Provider]*gobreaker.CircuitBreaker[*CompletionResponse]
	fallbacks       map[Provider][]Provider
	defaultProvider Provider
}

// NewMultiClient creates a new multi-provider client
func NewMultiClient(config Config) (*MultiClient, error) {
	mc := &MultiClient{
		providers:       make(map[Provider]Client),
		breakers:        make(map[Provider]*gobreaker.CircuitBreaker[*CompletionResponse]),
		fallbacks:       make(map[Provider][]Provider),
		defaultProvider: config.DefaultProvider,
	}

	if config.AnthropicAPIKey != "" {
		client, err := NewAnthropicClient(config.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		mc.addProvider(ProviderAnthropic, client)
	}

	if config.OpenAIAPIKey != "" {
		client, err := NewOpenAIClient(config.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		mc.addProvider(ProviderOpenAI, client)
	}

	if len(mc.providers) == 0 {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	if _, ok := mc.providers[mc.defaultProvider]; !ok {
		for p := range mc.providers {
			mc.defaultProvider = p
			break
		}
	}

	mc.fallbacks[ProviderAnthropic] = []Provider{ProviderOpenAI}
	mc.fallbacks[ProviderOpenAI] = []Provider{ProviderAnthropic}

	return mc, nil
}

func (mc *MultiClient) addProvider(p Provider, client Client) {
	mc.providers[p] = client
	mc.breakers[p] = gobreaker.NewCircuitBreaker[*CompletionResponse](gobreaker.Settings{
		Name:        string(p),
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("llm circuit breaker state change")
		},
	})
}

func (mc *MultiClient) complete(ctx context.Context, p Provider, req CompletionRequest) (*CompletionResponse, error) {
	client, ok := mc.providers[p]
	if !ok {
		return nil, fmt.Errorf("provider %s not available", p)
	}

	return mc.breakers[p].Execute(func() (*CompletionResponse, error) {
		return client.Complete(ctx, req)
	})
}

// Complete sends a completion request, using fallbacks if needed
func (mc *MultiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	provider := req.Provider
	if provider == "" {
		provider = mc.defaultProvider
	}

	resp, err := mc.complete(ctx, provider, req)
	if err == nil {
		return resp, nil
	}
	log.Warn().Err(err).Str("provider", string(provider)).Msg("llm provider failed, trying fallbacks")

	for _, fallback := range mc.fallbacks[provider] {
		if _, ok := mc.providers[fallback]; !ok {
			continue
		}
		req.Provider = fallback
		resp, err = mc.complete(ctx, fallback, req)
		if err == nil {
			return resp, nil
		}
		log.Warn().Err(err).Str("provider", string(fallback)).Msg("llm fallback provider failed")
	}

	return nil, fmt.Errorf("all LLM providers failed: %w", err)
}

// IsProviderAvailable checks if a provider is configured and available
func (mc *MultiClient) IsProviderAvailable(provider Provider) bool {
	_, ok := mc.providers[provider]
	return ok
}
