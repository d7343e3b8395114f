package openai_provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/thinkbridge/factsheet/config"
)

const (
	chatCompletionsURL = "https://api.openai.com/v1/chat/completions"
	embeddingsURL      = "https://api.openai.com/v1/embeddings"

	// Fallback pricing per 1K tokens when a model has no config entry.
	defaultCostPer1KInput  = 0.03
	defaultCostPer1KOutput = 0.06
	embeddingCostPer1K     = 0.00002
)

// Client implements the provider interface using OpenAI's HTTP API.
type Client struct {
	cfg  config.LLMConfig
	http *HTTPClient
}

// Message represents a message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int64 `json:"prompt_tokens"`
		TotalTokens  int64 `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates an OpenAI client from LLM configuration.
func NewClient(cfg config.LLMConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 2
	}
	return &Client{
		cfg:  cfg,
		http: NewHTTPClient(&http.Client{Timeout: timeout}, retries, 2*time.Second),
	}
}

// Complete sends a single-turn chat completion and returns the text along
// with prompt and completion token usage.
func (c *Client) Complete(ctx context.Context, prompt string, model string) (string, int64, int64, error) {
	mc := c.modelConfig(model)
	req := chatRequest{
		Model:       c.apiName(model),
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
	}

	var resp chatResponse
	if err := c.http.DoJSON(ctx, "POST", chatCompletionsURL, c.headers(), req, &resp); err != nil {
		return "", 0, 0, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("chat completion: no choices in response")
	}
	return resp.Choices[0].Message.Content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

// Embed generates embeddings for the given texts, reporting the token
// usage the API billed. Result order matches input order.
func (c *Client) Embed(ctx context.Context, model string, texts []string) ([][]float32, int64, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}
	req := embeddingRequest{Model: c.apiName(model), Input: texts}

	var resp embeddingResponse
	if err := c.http.DoJSON(ctx, "POST", embeddingsURL, c.headers(), req, &resp); err != nil {
		return nil, 0, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, 0, fmt.Errorf("embedding: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, 0, fmt.Errorf("embedding: index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, resp.Usage.TotalTokens, nil
}

// CalculateCost returns the USD cost of a completion call.
func (c *Client) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	in := defaultCostPer1KInput
	out := defaultCostPer1KOutput
	if mc, ok := c.cfg.Models[model]; ok {
		if mc.CostPer1K > 0 {
			in = mc.CostPer1K
		}
		if mc.CostPer1KOutput > 0 {
			out = mc.CostPer1KOutput
		}
	}
	return float64(inputTokens)/1000*in + float64(outputTokens)/1000*out
}

// EmbeddingCost returns the USD cost of embedding the given token count.
func (c *Client) EmbeddingCost(tokens int64, model string) float64 {
	per1K := embeddingCostPer1K
	if mc, ok := c.cfg.Models[model]; ok && mc.CostPer1K > 0 {
		per1K = mc.CostPer1K
	}
	return float64(tokens) / 1000 * per1K
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
}

func (c *Client) modelConfig(model string) config.LLMModel {
	if mc, ok := c.cfg.Models[model]; ok {
		return mc
	}
	return config.LLMModel{Temperature: 0.2}
}

func (c *Client) apiName(model string) string {
	if mc, ok := c.cfg.Models[model]; ok && mc.APIName != "" {
		return mc.APIName
	}
	return model
}
