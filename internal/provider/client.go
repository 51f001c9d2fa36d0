package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"noddy-ai-backend/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// chatRequest is the OpenAI-compatible chat completions payload all three
// providers accept.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Usage is the token cost of one upstream call, taken from the provider's
// usage block when present and estimated otherwise.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Client performs the single synchronous upstream call for a resolved
// provider. A circuit breaker and a rate limiter sit in front of the HTTP
// call; neither retries — a tripped breaker surfaces as the provider being
// unavailable.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

func NewClient(timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "UpstreamLLM",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
	}
}

// Chat sends the message list to the provider and returns the assistant reply
// with its token usage. Non-2xx responses and malformed payloads become
// *UpstreamError; the core never retries them.
func (c *Client) Chat(ctx context.Context, desc Descriptor, model string, messages []Message) (string, Usage, error) {
	tracer := otel.Tracer("provider-client")
	ctx, span := tracer.Start(ctx, "provider.chat")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.provider", desc.Name),
		attribute.String("llm.model", model),
		attribute.Int("llm.message_count", len(messages)),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("llm.rate_limited", true))
		return "", Usage{}, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, desc, model, messages)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("llm.error", true))
		if err == gobreaker.ErrOpenState {
			return "", Usage{}, &UpstreamError{Provider: desc.Name, Status: http.StatusServiceUnavailable, Body: "circuit breaker open"}
		}
		return "", Usage{}, err
	}

	resp := result.(*chatResponse)
	reply := resp.Choices[0].Message.Content
	usage := extractUsage(resp, messages, reply)

	span.SetAttributes(
		attribute.Int("llm.input_tokens", usage.InputTokens),
		attribute.Int("llm.output_tokens", usage.OutputTokens),
	)
	return reply, usage, nil
}

func (c *Client) doRequest(ctx context.Context, desc Descriptor, model string, messages []Message) (*chatResponse, error) {
	payload, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, desc.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+desc.APIKey)
	for k, v := range desc.ExtraHeaders {
		req.Header.Set(k, v)
	}

	logger.Debug("dispatching upstream request", "provider", desc.Name, "model", model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Provider: desc.Name, Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Provider: desc.Name, Status: resp.StatusCode, Body: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Provider: desc.Name, Status: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &UpstreamError{Provider: desc.Name, Status: resp.StatusCode, Body: "malformed response payload"}
	}
	if len(parsed.Choices) == 0 {
		return nil, &UpstreamError{Provider: desc.Name, Status: resp.StatusCode, Body: "no choices in response"}
	}

	return &parsed, nil
}

func extractUsage(resp *chatResponse, messages []Message, reply string) Usage {
	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if usage.InputTokens == 0 {
		usage.InputTokens = estimateTokens(messages)
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = estimateTokenCount(reply)
	}
	return usage
}

// estimateTokens approximates prompt size when the provider omits a usage
// block: ~4 characters per token.
func estimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return estimateFromChars(total)
}

func estimateTokenCount(text string) int {
	return estimateFromChars(len(text))
}

func estimateFromChars(chars int) int {
	estimated := chars / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}
