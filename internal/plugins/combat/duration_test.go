package combat

import "testing"

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in     string
		rounds int
		ok     bool
	}{
		{"1 round", 1, true},
		{"1 turn", 1, true},
		{"1 minute", 10, true},
		{"10 minutes", 100, true},
		{"1 hour", 600, true},
		{"8 hours", 4800, true},
		{"Concentration, up to 1 minute", 10, true},
		{"Concentration, up to 1 hour", 600, true},
		{"Instantaneous", 0, false},
		{"", 0, false},
		{"Until dispelled", 0, false},
		{"Special", 0, false},
	}
	for _, tt := range tests {
		rounds, ok := ParseDuration(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDuration(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && rounds != tt.rounds {
			t.Errorf("ParseDuration(%q) = %d rounds, want %d", tt.in, rounds, tt.rounds)
		}
	}
}
