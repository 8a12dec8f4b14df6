package ai

import (
	"ai-test-agent/internal/config"
	"ai-test-agent/internal/ports"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	aiClientName = "PlannerClient"
	aiTracer     = "ai.client"

	retryInitialInterval = time.Second
	retryMaxInterval     = 8 * time.Second
)

// Client asks an OpenAI-compatible chat completions endpoint for step plans.
type Client struct {
	config     *config.AIConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	cfg := params.Config.AIConfig

	return &Client{
		config: cfg,
		logger: params.Logger.With(zap.String(logg.Layer, aiClientName)),
		tracer: otel.Tracer(aiTracer),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	return b
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// PlanStep returns the raw plan document produced for one step. Transient
// failures are retried with exponential backoff.
func (c *Client) PlanStep(ctx context.Context, req ports.PlanRequest) (raw string, err error) {
	const op = "PlanStep"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.StepID, req.StepID))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("step_id", req.StepID),
		attribute.Int("inventory_size", len(req.Inventory)))
	defer func() {
		step.End(err)
	}()

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(req, c.config.MaxBodyChars, c.config.MaxInventory)},
	}

	attempts := c.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(attempts-1)), ctx)

	err = backoff.Retry(func() error {
		attempt++
		step.AddEvent("calling planner", attribute.Int("attempt", attempt))

		content, callErr := c.complete(ctx, messages)
		if callErr != nil {
			logger.Warn("Planner call failed", zap.Int("attempt", attempt), zap.Error(callErr))

			return callErr
		}

		raw = content

		return nil
	}, policy)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "planner_unavailable",
			apperr.MetaStage:  apperr.StagePlanning,
			apperr.MetaStepID: req.StepID,
			"attempts":        attempt,
		})
	}

	logger.Debug("Plan document received", zap.Int("length", len(raw)), zap.Int("attempts", attempt))

	return raw, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	const op = "complete"

	body, err := json.Marshal(chatRequest{
		Model:          c.config.Model,
		Messages:       messages,
		Temperature:    c.config.Temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", backoff.Permanent(apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		}))
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		}))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := apperr.Wrap(op, apperr.CodePlannerError,
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500)),
			map[string]any{
				apperr.MetaReason: "api_error",
				apperr.MetaStage:  apperr.StagePlanning,
				"status_code":     resp.StatusCode,
			})

		if retryableStatus(resp.StatusCode) {
			return "", apiErr
		}

		return "", backoff.Permanent(apiErr)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	if len(parsed.Choices) == 0 {
		return "{}", nil
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		return "{}", nil
	}

	return content, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
