package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	MaxTurns   int // 0 uses the server default
}

func main() {
	_ = godotenv.Load()

	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    60 * time.Second,
	}
	if v, err := strconv.Atoi(os.Getenv("CONSOLE_MAX_TURNS")); err == nil && v > 0 {
		cfg.MaxTurns = v
	}

	api := newAPIClient(&http.Client{Timeout: cfg.Timeout}, cfg.APIBaseURL)

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	game, err := api.createGame(cfg.MaxTurns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create game: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventChan := make(chan SSEEvent, 16)
	go func() {
		// The console still works without the stream.
		_ = api.listenToSSE(ctx, game.ID, eventChan)
	}()

	p := tea.NewProgram(NewConsoleUI(cfg, api, game, eventChan),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
