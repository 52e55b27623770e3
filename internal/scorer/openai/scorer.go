// Package openai implements the secondary scorer against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

const scorePrompt = `Post Title: %s
Post Content: %s

Keywords I care about: %s

Rate how relevant this post is to those keywords on a scale of 0-1.
Respond with just a number between 0 and 1.`

// Config controls the remote scoring endpoint.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Scorer calls a chat completions API and parses a single numeric score.
// Valid numbers are clamped into [0,1]; anything non-numeric is an error
// so the caller can substitute its neutral fallback.
type Scorer struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs a Scorer with sane defaults for endpoint and timeout.
func New(cfg Config, logger *zap.Logger) *Scorer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scorer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score implements monitor.SecondaryScorer.
func (s *Scorer) Score(ctx context.Context, req monitor.ScoreRequest) (float64, error) {
	prompt := fmt.Sprintf(scorePrompt, req.Title, req.BodyPrefix, strings.Join(req.Keywords, ", "))

	body, err := json.Marshal(chatRequest{
		Model:       s.cfg.Model,
		Temperature: 0.3,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal score request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("score call: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn("close score response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("score call returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode score response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("score response has no choices")
	}

	return parseScore(parsed.Choices[0].Message.Content)
}

// parseScore accepts a bare number, clamped into [0,1]. Any other shape of
// reply is a failure, never silently trusted.
func parseScore(content string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric score %q: %w", content, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
