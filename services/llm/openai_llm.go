// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aleutian.llm")

// =============================================================================
// OpenAI Wire Types
// =============================================================================

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel   = "gpt-4o-mini"

	// maxResponseBytes bounds the body read from the API.
	maxResponseBytes = 1 << 20
)

type openaiRequest struct {
	Model               string          `json:"model"`
	Messages            []openaiMessage `json:"messages"`
	Temperature         *float32        `json:"temperature,omitempty"`
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// OpenAIClient implements Generator against the OpenAI Chat Completions API
// using raw net/http.
//
// Thread Safety: OpenAIClient is safe for concurrent use.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	params     GenerationParams
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Params  GenerationParams
}

// NewOpenAIClient creates an OpenAIClient.
//
// Description:
//
//	Model defaults to gpt-4o-mini, BaseURL to the public endpoint and
//	Timeout to 30s. Replies are phrased by a small model, so the default
//	timeout is shorter than a general-purpose client would use.
//
// Outputs:
//
//	*OpenAIClient - The configured client.
//	error - Non-nil if the API key is missing.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is missing (OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	slog.Info("Initializing OpenAI client", slog.String("model", cfg.Model))
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		params:     cfg.Params,
	}, nil
}

// Model returns the configured model name.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Generate phrases an answer to userMessage from systemContext.
//
// Description:
//
//	Sends one system message (the instructions plus the knowledge excerpt)
//	and one user message. The model sees nothing else.
//
// Inputs:
//
//	ctx - Cancellation and deadline.
//	systemContext - Instructions and the bounded knowledge excerpt.
//	userMessage - The customer's message.
//
// Outputs:
//
//	string - The generated reply.
//	error - Non-nil on transport, status or decoding failure, or an empty answer.
//
// Thread Safety: This method is safe for concurrent use.
func (o *OpenAIClient) Generate(ctx context.Context, systemContext, userMessage string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.OpenAIClient.Generate",
		trace.WithAttributes(
			attribute.String("llm.provider", "openai"),
			attribute.String("llm.model", o.model),
			attribute.Int("llm.context_len", len(systemContext)),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := o.generate(ctx, systemContext, userMessage)
	recordGenerateMetrics("openai", o.model, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_len", len(out)))
	return out, nil
}

func (o *OpenAIClient) generate(ctx context.Context, systemContext, userMessage string) (string, error) {
	reqPayload := openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemContext},
			{Role: "user", Content: userMessage},
		},
		Temperature:         o.params.Temperature,
		MaxCompletionTokens: o.params.MaxTokens,
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("openai: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("openai: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	slog.Debug("Sending request to OpenAI",
		slog.String("model", o.model),
		slog.Int("context_len", len(systemContext)),
	)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: HTTP request failed: %s", SafeLogString(err.Error()))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("openai: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("openai: parsing response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("openai: API error: %s - %s", apiResp.Error.Type, SafeLogString(apiResp.Error.Message))
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("openai: returned no choices")
	}

	content := apiResp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("openai: empty completion (finish_reason=%s)", apiResp.Choices[0].FinishReason)
	}

	slog.Debug("Received OpenAI response",
		slog.String("finish_reason", apiResp.Choices[0].FinishReason),
		slog.Int("response_len", len(content)),
	)
	return content, nil
}
