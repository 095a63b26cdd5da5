package ledger

import (
	"errors"
	"testing"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/dice"
)

type stubFinder map[string]catalog.NPCDefinition

func (s stubFinder) FindByID(id string) (catalog.NPCDefinition, bool) {
	d, ok := s[id]
	return d, ok
}

func TestEnsureTracked(t *testing.T) {
	finder := stubFinder{
		"farmer_john": {ID: "farmer_john", Name: "Farmer John", Role: catalog.RolePeasant, Image: "/images/characters/john.svg"},
	}
	l := New()

	c := l.EnsureTracked("farmer_john", finder)
	if c.Name != "Farmer John" || c.Role != catalog.RolePeasant {
		t.Errorf("Expected Farmer John the Peasant, got %s the %s", c.Name, c.Role)
	}
	if c.Affinity != DefaultAffinity {
		t.Errorf("Expected affinity %v, got %v", DefaultAffinity, c.Affinity)
	}
	if c.Status != StatusAlive {
		t.Errorf("Expected status alive, got %s", c.Status)
	}

	c.Affinity = 70
	again := l.EnsureTracked("farmer_john", finder)
	if again.Affinity != 70 {
		t.Errorf("EnsureTracked should not reset an existing character, got affinity %v", again.Affinity)
	}

	unknown := l.EnsureTracked("stranger", finder)
	if unknown.Role != UnknownRole || unknown.Image != DefaultImage {
		t.Errorf("Expected defaulted role and image, got %q and %q", unknown.Role, unknown.Image)
	}

	all := l.All()
	if len(all) != 2 || all[0].ID != "farmer_john" || all[1].ID != "stranger" {
		t.Errorf("All() should preserve insertion order, got %+v", all)
	}
}

func TestAll_ReturnsSnapshot(t *testing.T) {
	l := New()
	l.EnsureTracked("a", nil)
	snap := l.All()
	snap[0].Affinity = 0

	c, _ := l.ByID("a")
	if c.Affinity != DefaultAffinity {
		t.Errorf("mutating a snapshot changed the ledger: affinity %v", c.Affinity)
	}
}

func TestApplyAffinityDelta_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		delta float64
		want  float64
	}{
		{"within bounds", 50, 30, 80},
		{"over max", 90, 40, 100},
		{"under min", 10, -50, 0},
		{"zero", 50, 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.EnsureTracked("x", nil).Affinity = tt.start
			got, err := l.ApplyAffinityDelta("x", tt.delta)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	l := New()
	if _, err := l.ApplyAffinityDelta("ghost", 5); !errors.Is(err, ErrCharacterNotFound) {
		t.Errorf("Expected ErrCharacterNotFound, got %v", err)
	}
}

func TestRecordInteraction(t *testing.T) {
	l := New()
	l.EnsureTracked("x", nil)
	if err := l.RecordInteraction("x", Interaction{Turn: 1, Choice: "Pardon", AffinityChange: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := l.ByID("x")
	if len(c.Interactions) != 1 || c.Interactions[0].Choice != "Pardon" {
		t.Errorf("Expected one interaction, got %+v", c.Interactions)
	}
	if err := l.RecordInteraction("ghost", Interaction{}); err == nil {
		t.Error("Expected error for unknown character")
	}
}

func TestMaybeKill(t *testing.T) {
	tests := []struct {
		name       string
		affinity   float64
		choiceType string
		roll       float64
		wantDead   bool
	}{
		{"harsh low affinity lucky roll", 5, catalog.ChoiceHarsh, 0.1, true},
		{"threatening at threshold", 10, catalog.ChoiceThreatening, 0.1, true},
		{"harsh unlucky roll", 5, catalog.ChoiceHarsh, 0.9, false},
		{"affinity too high", 11, catalog.ChoiceHarsh, 0.0, false},
		{"merciful never kills", 0, catalog.ChoiceMerciful, 0.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.EnsureTracked("x", nil).Affinity = tt.affinity
			got := l.MaybeKill("x", tt.choiceType, 0.3, dice.Always(tt.roll))
			if got != tt.wantDead {
				t.Errorf("Expected died=%v, got %v", tt.wantDead, got)
			}
			c, _ := l.ByID("x")
			if tt.wantDead && c.Status != StatusDead {
				t.Errorf("Expected status dead, got %s", c.Status)
			}
		})
	}
}

func TestKillAndExile_NoResurrection(t *testing.T) {
	l := New()
	l.EnsureTracked("x", nil)

	if !l.Kill("x", "plague") {
		t.Fatal("first Kill should succeed")
	}
	if l.Kill("x", "again") {
		t.Error("killing a dead character should be a no-op")
	}
	if l.Exile("x", "banished") {
		t.Error("exiling a dead character should be a no-op")
	}
	c, _ := l.ByID("x")
	if c.DeathReason != "plague" || c.Status != StatusDead {
		t.Errorf("Expected dead with reason plague, got %s / %q", c.Status, c.DeathReason)
	}
}

func TestAddGenerated(t *testing.T) {
	l := New()
	c, err := l.AddGenerated(Character{ID: "ai_1_abc", Name: "Sir Roland", Role: "Knight", Affinity: 140})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsGenerated || c.Status != StatusAlive || c.Affinity != MaxAffinity {
		t.Errorf("unexpected generated character: %+v", c)
	}
	if len(l.GeneratedCharacters()) != 1 {
		t.Errorf("Expected 1 generated character, got %d", len(l.GeneratedCharacters()))
	}

	def, ok := l.FindByID("ai_1_abc")
	if !ok || def.Role != "Knight" {
		t.Errorf("Expected generated character to be findable, got %+v, %v", def, ok)
	}

	if _, err := l.AddGenerated(Character{ID: "ai_1_abc"}); err == nil {
		t.Error("Expected duplicate id error")
	}
	if _, err := l.AddGenerated(Character{}); err == nil {
		t.Error("Expected missing id error")
	}
}

func TestFindByName(t *testing.T) {
	l := New()
	l.EnsureTracked("priest", stubFinder{"priest": {Name: "Father Marcus"}})
	l.EnsureTracked("captain", stubFinder{"captain": {Name: "Captain Steel"}})

	tests := []struct {
		query  string
		wantID string
	}{
		{"marcus", "priest"},
		{"Father Marcus the Elder", "priest"},
		{"STEEL", "captain"},
		{"nobody", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, ok := l.FindByName(tt.query)
			if tt.wantID == "" {
				if ok {
					t.Errorf("Expected no match, got %s", c.ID)
				}
				return
			}
			if !ok || c.ID != tt.wantID {
				t.Errorf("Expected %s, got %+v", tt.wantID, c)
			}
		})
	}
}

func TestMintID(t *testing.T) {
	l := New()
	suffix := func() string { return "fixed" }

	first := l.MintID(suffix)
	second := l.MintID(suffix)
	if first != "ai_1_fixed" || second != "ai_2_fixed" {
		t.Errorf("Expected ai_1_fixed and ai_2_fixed, got %s and %s", first, second)
	}

	if len(RandomSuffix()) != 9 {
		t.Errorf("Expected a 9 character suffix, got %q", RandomSuffix())
	}
}
