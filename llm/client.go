package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"catalert/apperrors"
	"catalert/config"
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     cfg.LLMBaseURL,
		apiKey:      cfg.LLMAPIKey,
		model:       cfg.LLMModel,
		maxTokens:   cfg.LLMMaxTokens,
		temperature: cfg.LLMTemperature,
	}
}

// Model reports the configured model name, for interaction records.
func (c *Client) Model() string {
	return c.model
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Content          string
	FinishReason     string
	Usage            Usage
	Model            string
	ProcessingTimeMS int
}

func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (*Completion, error) {
	start := time.Now()

	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewAgent("failed to encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, apperrors.NewAgent("failed to build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalService("llm", fmt.Sprintf("completion request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, apperrors.NewExternalService("llm", fmt.Sprintf("completion returned status %d: %v", resp.StatusCode, errResp))
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewAgent("failed to decode completion response", err)
	}
	if len(result.Choices) == 0 {
		return nil, apperrors.NewExternalService("llm", "completion returned no choices")
	}

	completion := &Completion{
		Content:          result.Choices[0].Message.Content,
		FinishReason:     result.Choices[0].FinishReason,
		Usage:            result.Usage,
		Model:            result.Model,
		ProcessingTimeMS: int(time.Since(start).Milliseconds()),
	}

	slog.Info("llm completion finished",
		"model", c.model,
		"tokens_used", completion.Usage.TotalTokens,
		"processing_time_ms", completion.ProcessingTimeMS)

	return completion, nil
}
