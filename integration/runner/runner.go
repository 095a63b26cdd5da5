package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/royal-court/internal/handlers"
	"github.com/jwebster45206/royal-court/pkg/ledger"
	"github.com/jwebster45206/royal-court/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running royal-court API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite against a fresh game
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	var game handlers.GameResponse
	if _, err := r.call(ctx, http.MethodPost, "/v1/games", handlers.CreateGameRequest{MaxTurns: suite.MaxTurns}, &game); err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = game.ID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, game.ID, suite.Name, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, suiteName string, step TestStep) TestResult {
	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	start := time.Now()
	err := r.executeStep(stepCtx, gameID, step)
	return TestResult{
		TestName: suiteName,
		StepName: step.Name,
		Success:  err == nil,
		Error:    err,
		Duration: time.Since(start),
	}
}

func (r *Runner) executeStep(ctx context.Context, gameID uuid.UUID, step TestStep) error {
	exp := step.Expectations
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}

	base := "/v1/games/" + gameID.String()
	var (
		status int
		err    error
	)

	switch step.Action {
	case ActionEncounter:
		var enc state.Encounter
		status, err = r.call(ctx, http.MethodPost, base+"/encounter", nil, &enc)
		if err == nil && status == http.StatusOK {
			if cerr := checkEncounter(exp, &enc); cerr != nil {
				return cerr
			}
		}
	case ActionChoose:
		var res state.ActionResult
		choice := step.Choice
		status, err = r.call(ctx, http.MethodPost, base+"/choices", handlers.ChoiceRequest{Choice: &choice}, &res)
		if err == nil && status == http.StatusOK {
			if exp.PopularityChange != nil && res.Action.PopularityChange != *exp.PopularityChange {
				return fmt.Errorf("expected popularity change %d, got %d", *exp.PopularityChange, res.Action.PopularityChange)
			}
			if exp.Affinity != nil && res.Affinity != *exp.Affinity {
				return fmt.Errorf("expected affinity %v, got %v", *exp.Affinity, res.Affinity)
			}
		}
	case ActionPreview:
		var p state.Preview
		choice := step.Choice
		status, err = r.call(ctx, http.MethodPost, base+"/preview", handlers.ChoiceRequest{Choice: &choice}, &p)
		if err == nil && status == http.StatusOK && exp.PopularityChange != nil && p.PopularityChange != *exp.PopularityChange {
			return fmt.Errorf("expected previewed change %d, got %d", *exp.PopularityChange, p.PopularityChange)
		}
	case ActionReset:
		status, err = r.call(ctx, http.MethodPost, base+"/reset", nil, nil)
	case ActionDelete:
		status, err = r.call(ctx, http.MethodDelete, base, nil, nil)
	default:
		return fmt.Errorf("unknown step action %q", step.Action)
	}

	if err != nil {
		return err
	}
	if status != wantStatus {
		return fmt.Errorf("expected status %d, got %d", wantStatus, status)
	}
	if step.Action == ActionDelete {
		return nil
	}

	return r.checkGame(ctx, gameID, exp)
}

func checkEncounter(exp Expectations, enc *state.Encounter) error {
	if exp.NPCID != nil && enc.NPC.ID != *exp.NPCID {
		return fmt.Errorf("expected npc %s, got %s", *exp.NPCID, enc.NPC.ID)
	}
	if exp.MinChoices != nil && len(enc.NPC.Choices) < *exp.MinChoices {
		return fmt.Errorf("expected at least %d choices, got %d", *exp.MinChoices, len(enc.NPC.Choices))
	}
	for _, s := range exp.DialogueContains {
		if !strings.Contains(strings.ToLower(enc.NPC.Dialogue), strings.ToLower(s)) {
			return fmt.Errorf("expected dialogue to contain %q, got %q", s, enc.NPC.Dialogue)
		}
	}
	return nil
}

// checkGame reads the game back and compares it against the expectations
func (r *Runner) checkGame(ctx context.Context, gameID uuid.UUID, exp Expectations) error {
	base := "/v1/games/" + gameID.String()

	var game handlers.GameResponse
	if _, err := r.call(ctx, http.MethodGet, base, nil, &game); err != nil {
		return fmt.Errorf("failed to read game: %w", err)
	}

	var errs []string
	if exp.Popularity != nil && game.Popularity != *exp.Popularity {
		errs = append(errs, fmt.Sprintf("expected popularity %d, got %d", *exp.Popularity, game.Popularity))
	}
	if exp.Turn != nil && game.Turn != *exp.Turn {
		errs = append(errs, fmt.Sprintf("expected turn %d, got %d", *exp.Turn, game.Turn))
	}
	if exp.CanContinue != nil && game.CanContinue != *exp.CanContinue {
		errs = append(errs, fmt.Sprintf("expected can_continue %v, got %v", *exp.CanContinue, game.CanContinue))
	}
	if exp.Completed != nil && len(game.Completed) != *exp.Completed {
		errs = append(errs, fmt.Sprintf("expected %d completed npcs, got %d", *exp.Completed, len(game.Completed)))
	}
	if exp.DominantTheme != nil && game.DominantTheme != *exp.DominantTheme {
		errs = append(errs, fmt.Sprintf("expected dominant theme %s, got %s", *exp.DominantTheme, game.DominantTheme))
	}

	if len(exp.CharacterStatus) > 0 {
		var chars []*ledger.Character
		if _, err := r.call(ctx, http.MethodGet, base+"/characters", nil, &chars); err != nil {
			return fmt.Errorf("failed to read characters: %w", err)
		}
		byID := make(map[string]*ledger.Character, len(chars))
		for _, c := range chars {
			byID[c.ID] = c
		}
		for id, want := range exp.CharacterStatus {
			c, ok := byID[id]
			switch {
			case !ok && want != "":
				errs = append(errs, fmt.Sprintf("expected character %s to be tracked", id))
			case ok && string(c.Status) != want:
				errs = append(errs, fmt.Sprintf("expected character %s status %s, got %s", id, want, c.Status))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// call sends a JSON request and decodes 2xx responses into out. Non-2xx
// statuses are returned without error so steps can assert on them.
func (r *Runner) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if method == http.MethodPost && path == "/v1/games" {
			return resp.StatusCode, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		if method == http.MethodGet {
			return resp.StatusCode, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return resp.StatusCode, nil
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
