package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateBytes_EmbeddedCourtIsValid(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "pkg", "catalog", "data", "court.json"))
	if err != nil {
		t.Fatalf("failed to read court catalog: %v", err)
	}
	v := &CatalogValidator{}
	if err := v.validateBytes(data); err != nil {
		t.Errorf("Expected court catalog to be valid, got %v", err)
	}
}

func TestValidateBytes(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "valid minimal",
			doc:  `{"version":1,"npcs":[{"id":"farmer_john","name":"John","role":"Peasant","dialogue":"Sire","base_complaint":"taxes","choices":[{"text":"Help","popularity_change":5,"type":"merciful"}]}]}`,
		},
		{
			name:    "invalid json",
			doc:     `{"version":1,`,
			wantErr: "invalid JSON",
		},
		{
			name:    "unknown field",
			doc:     `{"version":1,"npcs":[],"extra":true}`,
			wantErr: "strict JSON",
		},
		{
			name:    "duplicate id",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x"}]},{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x"}]}]}`,
			wantErr: "duplicate npc id",
		},
		{
			name:    "empty catalog",
			doc:     `{"version":1,"npcs":[]}`,
			wantErr: "catalog has no npcs",
		},
		{
			name:    "bad id and missing fields",
			doc:     `{"version":1,"npcs":[{"id":"Farmer-John","choices":[]}]}`,
			wantErr: "should be lowercase snake_case",
		},
		{
			name:    "no choices",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[]}]}`,
			wantErr: "has no choices",
		},
		{
			name:    "oversized popularity change",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x","popularity_change":40}]}]}`,
			wantErr: "will be clamped",
		},
		{
			name:    "inverted turn window",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","min_turn":8,"max_turn":3,"choices":[{"text":"x"}]}]}`,
			wantErr: "is after max_turn",
		},
		{
			name:    "preferred turn outside window",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","min_turn":5,"preferred_turn":2,"choices":[{"text":"x"}]}]}`,
			wantErr: "preferred_turn 2 is outside",
		},
		{
			name:    "missing prerequisite",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","prerequisites":["ghost"],"choices":[{"text":"x"}]}]}`,
			wantErr: "prerequisite 'ghost' does not exist",
		},
		{
			name:    "prerequisite cycle",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","prerequisites":["b"],"choices":[{"text":"x"}]},{"id":"b","name":"B","role":"r","dialogue":"d","prerequisites":["a"],"choices":[{"text":"x"}]}]}`,
			wantErr: "prerequisite cycle: a -> b -> a",
		},
		{
			name:    "unknown relationship target",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","relationships":[{"affected_by":["nobody"]}],"choices":[{"text":"x"}]}]}`,
			wantErr: "affected_by 'nobody' does not exist",
		},
		{
			name:    "unknown relationship type",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d"},{"id":"b","name":"B","role":"r","dialogue":"d","relationships":[{"character_id":"a","type":"nemesis"}],"choices":[{"text":"x"}]}]}`,
			wantErr: "unknown type 'nemesis'",
		},
		{
			name:    "action trigger out of range",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x"}],"character_actions":[{"type":"exile","character_id":"a","trigger_choice":3}]}]}`,
			wantErr: "trigger_choice 3 does not match a choice",
		},
		{
			name:    "unknown action type",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x"}],"character_actions":[{"type":"promote","character_id":"a","trigger_choice":-1}]}]}`,
			wantErr: "unknown type 'promote'",
		},
		{
			name:    "modify without target",
			doc:     `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x"}],"character_actions":[{"type":"modify","affinity_change":5,"trigger_choice":0}]}]}`,
			wantErr: "(modify) needs character_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &CatalogValidator{}
			err := v.validateBytes([]byte(tt.doc))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "court.txt")
	if err := os.WriteFile(txt, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	v := &CatalogValidator{}
	if err := v.validateFile(txt); err == nil || !strings.Contains(err.Error(), ".json extension") {
		t.Errorf("Expected extension error, got %v", err)
	}

	if err := v.validateFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	good := filepath.Join(dir, "court.json")
	doc := `{"version":1,"npcs":[{"id":"a","name":"A","role":"r","dialogue":"d","choices":[{"text":"x"}]}]}`
	if err := os.WriteFile(good, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := v.validateFile(good); err != nil {
		t.Errorf("Expected valid file, got %v", err)
	}
}

func TestIsValidID(t *testing.T) {
	tests := map[string]bool{
		"farmer_john": true,
		"a":           true,
		"npc2":        true,
		"Farmer":      false,
		"farmer-john": false,
		"farmer_":     false,
		"_farmer":     false,
		"":            false,
	}
	for id, want := range tests {
		if got := isValidID(id); got != want {
			t.Errorf("isValidID(%q): expected %v, got %v", id, want, got)
		}
	}
}
