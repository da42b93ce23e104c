package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// DiagnosePath is the diagnosis endpoint relative to the service base URL
const DiagnosePath = "/api/diagnose"

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 4 << 20

// Client calls the remote diagnosis service. It never retries; a failed call
// is reported to the caller as an intake.SubmissionError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ intake.Diagnoser = (*Client)(nil)

// NewClient creates a diagnosis client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("diagnosis service base URL is required")
	}
	if timeout <= 0 {
		timeout = intake.DefaultSubmitTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Diagnose posts the intake and returns the ranked candidates in server order
func (c *Client) Diagnose(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error) {
	startTime := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &intake.SubmissionError{Kind: intake.FailurePayload, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+DiagnosePath, bytes.NewReader(body))
	if err != nil {
		return nil, &intake.SubmissionError{Kind: intake.FailureTransport, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("diagnosis request failed", zap.Error(err), zap.Duration("elapsed", time.Since(startTime)))
		return nil, &intake.SubmissionError{Kind: intake.FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &intake.SubmissionError{Kind: intake.FailureTransport, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("diagnosis service returned error status",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_size", len(data)),
		)
		return nil, &intake.SubmissionError{
			Kind:       intake.FailureStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var envelope model.DiagnosisResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &intake.SubmissionError{Kind: intake.FailurePayload, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if !envelope.Success || envelope.Data == nil {
		reason := envelope.Message
		if reason == "" {
			reason = "invalid response format"
		}
		return nil, &intake.SubmissionError{Kind: intake.FailurePayload, Err: errors.New(reason)}
	}

	result := envelope.Data
	for i := range result.Candidates {
		result.Candidates[i].Score = c.clampScore(result.Candidates[i])
	}

	c.logger.Info("diagnosis received",
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return result, nil
}

func (c *Client) clampScore(cand model.Candidate) float64 {
	switch {
	case cand.Score < model.MinScore:
		c.logger.Warn("candidate score below range, clamping", zap.String("disease", cand.DiseaseName), zap.Float64("score", cand.Score))
		return model.MinScore
	case cand.Score > model.MaxScore:
		c.logger.Warn("candidate score above range, clamping", zap.String("disease", cand.DiseaseName), zap.Float64("score", cand.Score))
		return model.MaxScore
	default:
		return cand.Score
	}
}
