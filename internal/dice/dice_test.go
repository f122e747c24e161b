package dice

import (
	"errors"
	"testing"
)

// fixedRoller returns a Roller whose dice land on the given faces in order.
// Panics if more dice are rolled than faces provided.
func fixedRoller(faces ...int) *Roller {
	i := 0
	return &Roller{intn: func(n int) int {
		face := faces[i]
		i++
		return face - 1
	}}
}

func TestParse(t *testing.T) {
	tests := []struct {
		formula string
		want    Formula
		wantErr bool
	}{
		{"1d20", Formula{1, 20, 0}, false},
		{"1d20+8", Formula{1, 20, 8}, false},
		{"2d6+3", Formula{2, 6, 3}, false},
		{"4d8-1", Formula{4, 8, -1}, false},
		{"10d10+10", Formula{10, 10, 10}, false},
		{"", Formula{}, true},
		{"d20", Formula{}, true},
		{"1d", Formula{}, true},
		{"2x6", Formula{}, true},
		{"1d20+", Formula{}, true},
		{"x2d6+3", Formula{}, true},
		{"2d6+3y", Formula{}, true},
		{"0d6", Formula{}, true},
		{"1d0", Formula{}, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.formula)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %+v", tt.formula, got)
			} else if !errors.Is(err, ErrInvalidFormula) {
				t.Errorf("Parse(%q): error %v is not ErrInvalidFormula", tt.formula, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.formula, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.formula, got, tt.want)
		}
	}
}

func TestMaxValue(t *testing.T) {
	tests := []struct {
		formula string
		want    int
	}{
		{"1d20+5", 25},
		{"2d6", 12},
		{"4d8", 32},
		{"2d6+3", 15},
		{"1d8-2", 6},
	}
	for _, tt := range tests {
		got, err := MaxValue(tt.formula)
		if err != nil {
			t.Fatalf("MaxValue(%q): %v", tt.formula, err)
		}
		if got != tt.want {
			t.Errorf("MaxValue(%q) = %d, want %d", tt.formula, got, tt.want)
		}
	}

	if _, err := MaxValue("bogus"); err == nil {
		t.Error("MaxValue(bogus): expected error")
	}
}

func TestRollCriticalDetection(t *testing.T) {
	// A single d20 landing on 20 is a critical.
	res, err := fixedRoller(20).Roll("1d20+5")
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if !res.IsCritical || res.IsFumble {
		t.Errorf("1d20 on 20: IsCritical=%v IsFumble=%v, want true/false", res.IsCritical, res.IsFumble)
	}
	if res.Total != 25 {
		t.Errorf("1d20+5 on 20: total = %d, want 25", res.Total)
	}

	// A single d20 landing on 1 is a fumble.
	res, err = fixedRoller(1).Roll("1d20+5")
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if res.IsCritical || !res.IsFumble {
		t.Errorf("1d20 on 1: IsCritical=%v IsFumble=%v, want false/true", res.IsCritical, res.IsFumble)
	}

	// Two d20s never flag, even on double 20s.
	res, err = fixedRoller(20, 20).Roll("2d20+5")
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if res.IsCritical || res.IsFumble {
		t.Errorf("2d20 on 20,20: flags set, want none")
	}

	// Non-d20 dice never flag regardless of face.
	res, err = fixedRoller(6).Roll("1d6+2")
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if res.IsCritical || res.IsFumble {
		t.Errorf("1d6 on 6: flags set, want none")
	}
}

func TestRollTotalsAndBounds(t *testing.T) {
	roller := NewSeeded(42)
	formulas := []string{"1d20+5", "2d6+3", "4d8", "8d4-2", "1d100"}

	for _, formula := range formulas {
		maxVal, err := MaxValue(formula)
		if err != nil {
			t.Fatalf("MaxValue(%q): %v", formula, err)
		}
		f, _ := Parse(formula)

		for i := 0; i < 200; i++ {
			res, err := roller.Roll(formula)
			if err != nil {
				t.Fatalf("Roll(%q): %v", formula, err)
			}
			if len(res.Rolls) != f.Count {
				t.Fatalf("Roll(%q): %d dice, want %d", formula, len(res.Rolls), f.Count)
			}
			sum := res.Modifier
			for _, die := range res.Rolls {
				if die < 1 || die > f.Sides {
					t.Fatalf("Roll(%q): die %d out of [1,%d]", formula, die, f.Sides)
				}
				sum += die
			}
			if res.Total != sum {
				t.Fatalf("Roll(%q): total %d != sum(rolls)+modifier %d", formula, res.Total, sum)
			}
			if res.Total > maxVal {
				t.Fatalf("Roll(%q): total %d exceeds max %d", formula, res.Total, maxVal)
			}
		}
	}
}

func TestRollInvalidFormula(t *testing.T) {
	if _, err := New().Roll("not-a-formula"); !errors.Is(err, ErrInvalidFormula) {
		t.Errorf("expected ErrInvalidFormula, got %v", err)
	}
}

func TestRollDie(t *testing.T) {
	roller := NewSeeded(7)
	for i := 0; i < 100; i++ {
		if die := roller.RollDie(10); die < 1 || die > 10 {
			t.Fatalf("RollDie(10) = %d, out of range", die)
		}
	}
}
