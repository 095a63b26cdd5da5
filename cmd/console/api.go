package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/internal/handlers"
	"github.com/jwebster45206/royal-court/pkg/ledger"
	"github.com/jwebster45206/royal-court/pkg/state"
	"github.com/jwebster45206/royal-court/pkg/story"
)

// apiClient is a thin wrapper over the court HTTP API.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func newAPIClient(client *http.Client, baseURL string) *apiClient {
	return &apiClient{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (a *apiClient) testConnection() bool {
	resp, err := a.client.Get(a.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends an optional JSON body and decodes the response into out when the
// status matches want.
func (a *apiClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (a *apiClient) createGame(maxTurns int) (*handlers.GameResponse, error) {
	var game handlers.GameResponse
	if err := a.do(http.MethodPost, "/v1/games", handlers.CreateGameRequest{MaxTurns: maxTurns}, http.StatusCreated, &game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return &game, nil
}

func (a *apiClient) getGame(gameID uuid.UUID) (*handlers.GameResponse, error) {
	var game handlers.GameResponse
	if err := a.do(http.MethodGet, "/v1/games/"+gameID.String(), nil, http.StatusOK, &game); err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &game, nil
}

func (a *apiClient) presentEncounter(gameID uuid.UUID) (*state.Encounter, error) {
	var enc state.Encounter
	if err := a.do(http.MethodPost, "/v1/games/"+gameID.String()+"/encounter", nil, http.StatusOK, &enc); err != nil {
		return nil, fmt.Errorf("failed to present encounter: %w", err)
	}
	return &enc, nil
}

func (a *apiClient) choose(gameID uuid.UUID, choice int) (*state.ActionResult, error) {
	var res state.ActionResult
	if err := a.do(http.MethodPost, "/v1/games/"+gameID.String()+"/choices", handlers.ChoiceRequest{Choice: &choice}, http.StatusOK, &res); err != nil {
		return nil, fmt.Errorf("failed to submit choice: %w", err)
	}
	return &res, nil
}

func (a *apiClient) preview(gameID uuid.UUID, choice int) (*state.Preview, error) {
	var p state.Preview
	if err := a.do(http.MethodPost, "/v1/games/"+gameID.String()+"/preview", handlers.ChoiceRequest{Choice: &choice}, http.StatusOK, &p); err != nil {
		return nil, fmt.Errorf("failed to preview choice: %w", err)
	}
	return &p, nil
}

func (a *apiClient) reset(gameID uuid.UUID) (*handlers.GameResponse, error) {
	var game handlers.GameResponse
	if err := a.do(http.MethodPost, "/v1/games/"+gameID.String()+"/reset", nil, http.StatusOK, &game); err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}
	return &game, nil
}

func (a *apiClient) characters(gameID uuid.UUID) ([]*ledger.Character, error) {
	var chars []*ledger.Character
	if err := a.do(http.MethodGet, "/v1/games/"+gameID.String()+"/characters", nil, http.StatusOK, &chars); err != nil {
		return nil, fmt.Errorf("failed to get characters: %w", err)
	}
	return chars, nil
}

func (a *apiClient) story(gameID uuid.UUID) (*story.Snapshot, error) {
	var snap story.Snapshot
	if err := a.do(http.MethodGet, "/v1/games/"+gameID.String()+"/story", nil, http.StatusOK, &snap); err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &snap, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// listenToSSE connects to the SSE endpoint and streams events to a channel
func (a *apiClient) listenToSSE(ctx context.Context, gameID uuid.UUID, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/games/%s/events", a.baseURL, gameID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The shared client has a timeout that would cut the stream.
	streamClient := &http.Client{Transport: a.client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	return readSSE(ctx, resp.Body, eventChan)
}

func readSSE(ctx context.Context, r io.Reader, eventChan chan<- SSEEvent) error {
	scanner := bufio.NewScanner(r)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case eventChan <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataJSON := strings.TrimPrefix(line, "data: ")
			var data map[string]interface{}
			if err := json.Unmarshal([]byte(dataJSON), &data); err == nil {
				currentEvent.Data = data
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
