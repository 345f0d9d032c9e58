// Package genai is a small client for the Gemini generateContent REST API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/labang-online/portal/internal/config"
	"github.com/labang-online/portal/internal/logger"
)

// Roles used in a conversation.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

var (
	ErrNotConfigured = errors.New("generative AI is not configured")
	ErrNoModel       = errors.New("no generative AI model produced a response")
)

// Part is one piece of message content.
type Part struct {
	Text string `json:"text"`
}

// Content is one turn of a conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
	Contents          []Content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Client calls generateContent, falling back through an ordered model list.
type Client struct {
	http    *resty.Client
	log     *logger.Logger
	apiKey  string
	models  []string
	timeout time.Duration
}

// NewClient creates a client from configuration.
func NewClient(cfg config.GeminiConfig, log *logger.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		log:     log.Component("genai"),
		apiKey:  cfg.APIKey,
		models:  cfg.Models,
		timeout: cfg.Timeout,
	}
}

// Configured reports whether an API key and at least one model are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && len(c.models) > 0
}

// Generate sends the conversation to each configured model in order and
// returns the first non-empty reply.
func (c *Client) Generate(ctx context.Context, system string, contents []Content) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body := generateRequest{Contents: contents}
	if system != "" {
		body.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}

	var lastErr error
	for _, model := range c.models {
		reply, err := c.generateWith(ctx, model, body)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		c.log.Warn("Model call failed, trying next model", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
	}

	return "", fmt.Errorf("%w: %v", ErrNoModel, lastErr)
}

func (c *Client) generateWith(ctx context.Context, model string, body generateRequest) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var result generateResponse
	var failure apiError
	resp, err := c.http.R().
		SetContext(callCtx).
		SetQueryParam("key", c.apiKey).
		SetPathParam("model", model).
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", model, err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("%s returned %d: %s", model, resp.StatusCode(), msg)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%s blocked the prompt: %s", model, result.PromptFeedback.BlockReason)
	}

	var sb strings.Builder
	for _, cand := range result.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}

	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", fmt.Errorf("%s returned an empty response", model)
	}
	return reply, nil
}
