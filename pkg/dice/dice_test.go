package dice

import "testing"

func TestFixed(t *testing.T) {
	f := NewFixed(0.1, 0.9)
	if got := f.Float64(); got != 0.1 {
		t.Errorf("first roll = %v, want 0.1", got)
	}
	if got := f.Float64(); got != 0.9 {
		t.Errorf("second roll = %v, want 0.9", got)
	}
	if got := f.Float64(); got != 0.9 {
		t.Errorf("exhausted roll = %v, want last value 0.9", got)
	}
	if f.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", f.Calls())
	}
}

func TestChance(t *testing.T) {
	tests := []struct {
		name string
		roll float64
		p    float64
		want bool
	}{
		{"under", 0.29, 0.3, true},
		{"equal is a miss", 0.3, 0.3, false},
		{"over", 0.5, 0.3, false},
		{"zero probability", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Chance(Always(tt.roll), tt.p); got != tt.want {
				t.Errorf("Chance(%v, %v) = %v, want %v", tt.roll, tt.p, got, tt.want)
			}
		})
	}

	if Chance(nil, 1) {
		t.Error("nil roller should never succeed")
	}
}

func TestNewSeeded_Deterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 5; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("roll %d differs: %v vs %v", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("roll %d out of range: %v", i, va)
		}
	}
}
