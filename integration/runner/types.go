package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions understood by the runner
const (
	ActionEncounter = "encounter"
	ActionChoose    = "choose"
	ActionPreview   = "preview"
	ActionReset     = "reset"
	ActionDelete    = "delete"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name     string     `json:"name"`
	MaxTurns int        `json:"max_turns,omitempty"` // Used for regular tests; 0 keeps the server default
	Steps    []TestStep `json:"steps,omitempty"`     // Used for regular tests
	Cases    []string   `json:"cases,omitempty"`     // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single API interaction and its expected outcomes
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Choice       int          `json:"choice,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes.
// Nil pointers are not checked.
type Expectations struct {
	Status *int `json:"status,omitempty"` // HTTP status of the step itself, default 200

	// Game properties read back after the step
	Popularity    *int    `json:"popularity,omitempty"`
	Turn          *int    `json:"turn,omitempty"`
	CanContinue   *bool   `json:"can_continue,omitempty"`
	Completed     *int    `json:"completed,omitempty"` // number of NPCs heard
	DominantTheme *string `json:"dominant_theme,omitempty"`

	// Encounter properties
	NPCID            *string  `json:"npc_id,omitempty"`
	DialogueContains []string `json:"dialogue_contains,omitempty"`
	MinChoices       *int     `json:"min_choices,omitempty"`

	// Choice and preview properties
	PopularityChange *int     `json:"popularity_change,omitempty"`
	Affinity         *float64 `json:"affinity,omitempty"`

	// Character ledger, id -> status
	CharacterStatus map[string]string `json:"character_status,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID // ID of the game used for this test
}
