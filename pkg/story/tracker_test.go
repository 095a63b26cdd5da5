package story

import (
	"math"
	"testing"
	"time"

	"github.com/jwebster45206/royal-court/pkg/catalog"
	"github.com/jwebster45206/royal-court/pkg/dice"
	"github.com/jwebster45206/royal-court/pkg/ledger"
)

type stubFinder map[string]catalog.NPCDefinition

func (s stubFinder) FindByID(id string) (catalog.NPCDefinition, bool) {
	d, ok := s[id]
	return d, ok
}

func act(npc, choiceType string, change int) ledger.Action {
	return ledger.Action{
		NPC:              npc,
		Choice:           catalog.Choice{Text: "choice", Type: choiceType, PopularityChange: change},
		PopularityChange: change,
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newTestTracker(finder catalog.Finder, l *ledger.Ledger) (*Tracker, *State) {
	st := NewState()
	tr := NewTracker(st, l, finder, nil).
		WithRoller(dice.Always(0.99)).
		WithClock(func() time.Time { return time.Unix(0, 0) })
	return tr, st
}

func TestThemes_Dominant(t *testing.T) {
	tests := []struct {
		name   string
		themes Themes
		want   string
	}{
		{"all zero", Themes{}, ThemeBalanced},
		{"negative magnitude wins", Themes{Justice: -3, Military: 2}, ThemeJustice},
		{"tie favors first listed", Themes{Diplomacy: 2, Economy: -2}, ThemeDiplomacy},
		{"military", Themes{Military: 1.5}, ThemeMilitary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.themes.Dominant(); got != tt.want {
				t.Errorf("Dominant() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUpdateThemes(t *testing.T) {
	finder := stubFinder{
		"elena":  {ID: "elena", Role: catalog.RoleBurgher},
		"marcus": {ID: "marcus", Role: catalog.RoleClergy},
		"john":   {ID: "john", Role: catalog.RolePeasant},
	}

	tests := []struct {
		name   string
		action ledger.Action
		want   Themes
	}{
		{"harsh", act("john", catalog.ChoiceHarsh, -10), Themes{Justice: -1, Military: 0.5}},
		{"merciful", act("john", catalog.ChoiceMerciful, 10), Themes{Justice: 1, Diplomacy: 0.3}},
		{"diplomatic", act("john", catalog.ChoiceDiplomatic, 20), Themes{Diplomacy: 2}},
		{"threatening", act("john", catalog.ChoiceThreatening, -10), Themes{Military: 1, Diplomacy: -0.5}},
		{"generous to clergy", act("marcus", catalog.ChoiceGenerous, 10), Themes{Tradition: 0.9, Economy: -0.3}},
		{"protective to burgher", act("elena", catalog.ChoiceProtective, 10), Themes{Military: 0.3, Diplomacy: 0.2, Economy: 0.5}},
		{"untyped", act("john", "whimsical", 10), Themes{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, st := newTestTracker(finder, ledger.New())
			tr.UpdateThemes(tt.action)
			got := st.Themes
			if !approxEqual(got.Justice, tt.want.Justice) ||
				!approxEqual(got.Diplomacy, tt.want.Diplomacy) ||
				!approxEqual(got.Tradition, tt.want.Tradition) ||
				!approxEqual(got.Economy, tt.want.Economy) ||
				!approxEqual(got.Military, tt.want.Military) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPropagateRelationships(t *testing.T) {
	finder := stubFinder{
		"tim":    {ID: "tim", Name: "Orphan Tim"},
		"anne":   {ID: "anne", Name: "Healer Anne", Relationships: []catalog.Relationship{{CharacterID: "tim", Type: catalog.RelationFamily}}},
		"rival":  {ID: "rival", Name: "Rival", Relationships: []catalog.Relationship{{CharacterID: "tim", Type: catalog.RelationRival}}},
		"casual": {ID: "casual", Name: "Casual", Relationships: []catalog.Relationship{{AffectedBy: []string{"tim"}}}},
		"other":  {ID: "other", Name: "Stranger"},
	}
	l := ledger.New()
	for _, id := range []string{"tim", "anne", "rival", "casual", "other"} {
		l.EnsureTracked(id, finder)
	}

	tr, _ := newTestTracker(finder, l)
	tr.PropagateRelationships(act("tim", catalog.ChoiceMerciful, 10), 2)

	tests := []struct {
		id           string
		wantAffinity float64
		wantRecorded bool
	}{
		{"tim", 50, false},
		{"anne", 70, true},
		{"rival", 42, true},
		{"casual", 55, false},
		{"other", 50, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			c, _ := l.ByID(tt.id)
			if !approxEqual(c.Affinity, tt.wantAffinity) {
				t.Errorf("Expected affinity %v, got %v", tt.wantAffinity, c.Affinity)
			}
			if recorded := len(c.Interactions) > 0; recorded != tt.wantRecorded {
				t.Errorf("Expected recorded=%v, got %v", tt.wantRecorded, recorded)
			}
		})
	}

	anne, _ := l.ByID("anne")
	if anne.Interactions[0].Choice != "Reacted to treatment of Orphan Tim" {
		t.Errorf("unexpected interaction text: %q", anne.Interactions[0].Choice)
	}
	if anne.Interactions[0].RelationshipContext != catalog.RelationFamily {
		t.Errorf("Expected relationship context family, got %q", anne.Interactions[0].RelationshipContext)
	}
}

func TestPropagateRelationships_SymmetricLookup(t *testing.T) {
	// Only the acted-upon NPC declares the link; the observer still reacts.
	finder := stubFinder{
		"tim":  {ID: "tim", Relationships: []catalog.Relationship{{CharacterID: "anne", Type: catalog.RelationFriend}}},
		"anne": {ID: "anne"},
	}
	l := ledger.New()
	l.EnsureTracked("tim", finder)
	l.EnsureTracked("anne", finder)

	tr, _ := newTestTracker(finder, l)
	tr.PropagateRelationships(act("tim", catalog.ChoiceHarsh, -20), 1)

	anne, _ := l.ByID("anne")
	if anne.Affinity != 20 {
		t.Errorf("Expected affinity 20, got %v", anne.Affinity)
	}
}

func TestCheckArcTriggers_RebellionOnce(t *testing.T) {
	l := ledger.New()
	tr, st := newTestTracker(stubFinder{}, l)

	var history []ledger.Action
	for i, npc := range []string{"a", "b", "c", "d"} {
		a := act(npc, catalog.ChoiceHarsh, -5)
		if i == 1 {
			a = act(npc, catalog.ChoiceThreatening, -5)
		}
		history = append(history, a)
		created := tr.CheckArcTriggers(a, history)

		switch i {
		case 0, 1:
			if len(created) != 0 || st.HasArc(ArcRebellion) {
				t.Fatalf("rebellion triggered early on action %d", i+1)
			}
		case 2:
			if len(created) != 1 || created[0].Type != ArcRebellion {
				t.Fatalf("Expected rebellion on third action, got %+v", created)
			}
			if created[0].TriggeredBy.NPC != "c" {
				t.Errorf("Expected arc triggered by c, got %s", created[0].TriggeredBy.NPC)
			}
		case 3:
			if len(created) != 0 {
				t.Fatalf("rebellion duplicated: %+v", created)
			}
		}
	}
	if len(st.Arcs) != 1 {
		t.Errorf("Expected exactly 1 arc, got %d", len(st.Arcs))
	}
}

func TestCheckArcTriggers_AllianceAndDivineFavor(t *testing.T) {
	finder := stubFinder{
		"marcus":  {ID: "marcus", Role: catalog.RoleClergy},
		"brother": {ID: "brother", Role: catalog.RoleClergy},
		"john":    {ID: "john", Role: catalog.RolePeasant},
	}
	l := ledger.New()
	l.EnsureTracked("marcus", finder).Affinity = 80
	l.EnsureTracked("john", finder).Affinity = 75
	l.EnsureTracked("brother", finder)

	tr, st := newTestTracker(finder, l)

	history := []ledger.Action{
		act("john", catalog.ChoiceGenerous, 5),
		act("marcus", catalog.ChoiceGenerous, 5),
	}
	created := tr.CheckArcTriggers(history[1], history)
	if len(created) != 0 {
		t.Fatalf("only one generous action targeted clergy, got %+v", created)
	}

	history = append(history, act("brother", catalog.ChoiceGenerous, 5))
	created = tr.CheckArcTriggers(history[2], history)
	if len(created) != 1 || created[0].Type != ArcDivineFavor {
		t.Fatalf("Expected divine_favor, got %+v", created)
	}
	if len(created[0].Characters) != 2 {
		t.Errorf("Expected both clergy in the snapshot, got %v", created[0].Characters)
	}

	history = append(history,
		act("john", catalog.ChoiceMerciful, 5),
		act("john", catalog.ChoiceDiplomatic, 5),
		act("john", catalog.ChoiceMerciful, 5),
	)
	created = tr.CheckArcTriggers(history[len(history)-1], history)
	if len(created) != 1 || created[0].Type != ArcAlliance {
		t.Fatalf("Expected alliance, got %+v", created)
	}
	if len(created[0].Characters) != 2 {
		t.Errorf("Expected loyal snapshot of marcus and john, got %v", created[0].Characters)
	}
	if len(st.ArcsInvolving("marcus")) != 2 {
		t.Errorf("Expected marcus in two arcs, got %d", len(st.ArcsInvolving("marcus")))
	}
}

func TestUpdateConflicts(t *testing.T) {
	finder := stubFinder{"blackwood": {ID: "blackwood", Name: "Lord Blackwood"}}
	tr, st := newTestTracker(finder, ledger.New())

	if created := tr.UpdateConflicts(act("blackwood", catalog.ChoiceDismissive, -9)); len(created) != 0 {
		t.Fatalf("-9 should not open a conflict, got %+v", created)
	}

	created := tr.UpdateConflicts(act("blackwood", catalog.ChoiceDismissive, -12))
	if len(created) != 1 {
		t.Fatalf("Expected a new conflict, got %+v", created)
	}
	if created[0].Intensity != 12 || created[0].Description != "Growing tension with Lord Blackwood" {
		t.Errorf("unexpected conflict: %+v", created[0])
	}

	tr.UpdateConflicts(act("blackwood", catalog.ChoiceHarsh, -15))
	if len(st.Conflicts) != 1 || st.Conflicts[0].Intensity != 22 {
		t.Fatalf("Expected one conflict at intensity 22, got %+v", st.Conflicts)
	}

	for range 4 {
		tr.UpdateConflicts(act("blackwood", catalog.ChoiceMerciful, 5))
	}
	if st.Conflicts[0].Intensity != 2 {
		t.Fatalf("Expected intensity 2, got %d", st.Conflicts[0].Intensity)
	}
	tr.UpdateConflicts(act("blackwood", catalog.ChoiceMerciful, 5))
	if len(st.Conflicts) != 0 {
		t.Errorf("Expected conflict pruned, got %+v", st.Conflicts)
	}
}

func TestGenerateWorldEvents(t *testing.T) {
	setup := func(dead, unhappy int) *ledger.Ledger {
		l := ledger.New()
		for i := range dead {
			id := string(rune('a' + i))
			l.EnsureTracked(id, nil)
			l.Kill(id, "test")
		}
		for i := range unhappy {
			id := string(rune('m' + i))
			l.EnsureTracked(id, nil).Affinity = 10
		}
		return l
	}

	t.Run("unrest fires under probability", func(t *testing.T) {
		st := NewState()
		tr := NewTracker(st, setup(2, 0), nil, nil).WithRoller(dice.Always(0.1))
		fired := tr.GenerateWorldEvents(4)
		if len(fired) != 1 || fired[0].Type != EventUnrest || fired[0].Effects.PopularityModifier != -10 {
			t.Fatalf("Expected unrest, got %+v", fired)
		}
		if again := tr.GenerateWorldEvents(4); len(again) != 0 {
			t.Errorf("Expected at most one unrest per turn, got %+v", again)
		}
	})

	t.Run("unrest misses over probability", func(t *testing.T) {
		st := NewState()
		tr := NewTracker(st, setup(2, 0), nil, nil).WithRoller(dice.Always(0.3))
		if fired := tr.GenerateWorldEvents(4); len(fired) != 0 {
			t.Errorf("Expected no event, got %+v", fired)
		}
	})

	t.Run("discontent fires", func(t *testing.T) {
		st := NewState()
		tr := NewTracker(st, setup(0, 4), nil, nil).WithRoller(dice.Always(0.2))
		fired := tr.GenerateWorldEvents(6)
		if len(fired) != 1 || fired[0].Type != EventDiscontent || fired[0].Effects.PopularityModifier != -5 {
			t.Fatalf("Expected discontent, got %+v", fired)
		}
	})

	t.Run("no roll without precondition", func(t *testing.T) {
		roller := dice.Always(0)
		tr := NewTracker(NewState(), setup(1, 3), nil, nil).WithRoller(roller)
		if fired := tr.GenerateWorldEvents(1); len(fired) != 0 {
			t.Errorf("Expected no event, got %+v", fired)
		}
		if roller.Calls() != 0 {
			t.Errorf("Expected no rolls, got %d", roller.Calls())
		}
	})
}

func TestApply_RunsInOrder(t *testing.T) {
	finder := stubFinder{"john": {ID: "john", Name: "Farmer John", Role: catalog.RolePeasant}}
	l := ledger.New()
	l.EnsureTracked("john", finder)
	tr, st := newTestTracker(finder, l)

	a := act("john", catalog.ChoiceHarsh, -15)
	res := tr.Apply(a, []ledger.Action{a}, 1)

	if st.Themes.Justice != -1.5 {
		t.Errorf("Expected justice -1.5, got %v", st.Themes.Justice)
	}
	if len(res.NewConflicts) != 1 {
		t.Errorf("Expected a conflict, got %+v", res.NewConflicts)
	}
	if len(res.NewArcs) != 0 || len(res.NewEvents) != 0 {
		t.Errorf("Expected no arcs or events, got %+v", res)
	}

	snap := st.Snapshot()
	if snap.DominantTheme != ThemeJustice {
		t.Errorf("Expected dominant justice, got %s", snap.DominantTheme)
	}
}
