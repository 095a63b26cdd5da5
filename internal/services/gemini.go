package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/royal-court/pkg/generation"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 0.7
	DefaultGeminiTopK        = 40
	DefaultGeminiTopP        = 0.8
	DefaultGeminiMaxTokens   = 512
)

var ErrEmptyResponse = errors.New("generator returned no content")

// GeminiService implements generation.Generator against the Gemini
// generateContent endpoint. Without a credential it reports
// generation.ErrNoCredential and makes no request.
type GeminiService struct {
	credentials *Credentials
	modelName   string
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ generation.Generator = (*GeminiService)(nil)

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

// GeminiRequest represents the request structure for generateContent
type GeminiRequest struct {
	Contents         []GeminiContent        `json:"contents"`
	GenerationConfig GeminiGenerationConfig `json:"generationConfig"`
}

// GeminiResponse represents the response structure for generateContent
type GeminiResponse struct {
	Candidates []struct {
		Content      GeminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiService creates a new Gemini generator
func NewGeminiService(credentials *Credentials, modelName string, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		credentials: credentials,
		modelName:   modelName,
		baseURL:     geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the service at another endpoint.
// Returns the GeminiService for method chaining
func (g *GeminiService) WithBaseURL(baseURL string) *GeminiService {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

// WithTimeout sets the per-request timeout.
// Returns the GeminiService for method chaining
func (g *GeminiService) WithTimeout(timeout time.Duration) *GeminiService {
	if timeout > 0 {
		g.httpClient.Timeout = timeout
	}
	return g
}

// Generate sends prompt to the model and returns the first candidate's text.
func (g *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	if g.credentials == nil {
		return "", generation.ErrNoCredential
	}
	apiKey, ok := g.credentials.Get()
	if !ok {
		return "", generation.ErrNoCredential
	}

	reqBody, err := json.Marshal(GeminiRequest{
		Contents: []GeminiContent{{Parts: []GeminiPart{{Text: prompt}}}},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     DefaultGeminiTemperature,
			TopK:            DefaultGeminiTopK,
			TopP:            DefaultGeminiTopP,
			MaxOutputTokens: DefaultGeminiMaxTokens,
			CandidateCount:  1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.modelName), url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		// The key travels in the query string; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if g.logger != nil {
		g.logger.Debug("Gemini response received",
			"model", g.modelName,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("API error (%d %s): %s", geminiResp.Error.Code, geminiResp.Error.Status, geminiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
