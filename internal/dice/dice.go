// Package dice implements formula parsing and rolling for standard dice
// notation ("1d20+8", "2d6", "4d8-1"). It is pure: no persistence, no
// network, and a swappable random source so callers can make rolls
// deterministic in tests.
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
)

// ErrInvalidFormula indicates a string that does not match NdM[+/-K] notation.
var ErrInvalidFormula = errors.New("invalid dice formula")

// formulaRe matches the whole formula: count, 'd', sides, optional signed
// modifier. Partial matches ("x2d6y") are rejected.
var formulaRe = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Formula is a parsed dice expression.
type Formula struct {
	Count    int
	Sides    int
	Modifier int
}

// Result captures a single executed roll.
type Result struct {
	Rolls      []int `json:"rolls"`
	Modifier   int   `json:"modifier"`
	Total      int   `json:"total"`
	IsCritical bool  `json:"isCritical"`
	IsFumble   bool  `json:"isFumble"`
}

// Parse parses a dice formula like "2d6+3". Count and sides must be at
// least 1.
func Parse(formula string) (Formula, error) {
	m := formulaRe.FindStringSubmatch(formula)
	if m == nil {
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormula, formula)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil || count < 1 {
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormula, formula)
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil || sides < 1 {
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormula, formula)
	}

	modifier := 0
	if m[3] != "" {
		// The sign is part of the capture, Atoi handles it.
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormula, formula)
		}
	}

	return Formula{Count: count, Sides: sides, Modifier: modifier}, nil
}

// MaxValue returns the highest possible total for a formula:
// count*sides + modifier. Used for critical hits, which add the maximum
// of the damage dice instead of re-rolling them.
func MaxValue(formula string) (int, error) {
	f, err := Parse(formula)
	if err != nil {
		return 0, err
	}
	return f.Count*f.Sides + f.Modifier, nil
}

// Roller executes rolls. The zero value is not usable; construct with New
// or NewSeeded.
type Roller struct {
	// intn returns a uniform value in [0, n).
	intn func(n int) int
}

// New returns a Roller backed by the shared math/rand/v2 generator.
func New() *Roller {
	return &Roller{intn: rand.IntN}
}

// NewSeeded returns a deterministic Roller for tests and replays.
func NewSeeded(seed uint64) *Roller {
	r := rand.New(rand.NewPCG(seed, 0))
	return &Roller{intn: r.IntN}
}

// Roll parses and executes a formula. Each die is drawn uniformly from
// [1, sides]. IsCritical and IsFumble are only ever set for a single d20
// landing on 20 or 1; multi-die and non-d20 rolls never set them.
func (r *Roller) Roll(formula string) (Result, error) {
	f, err := Parse(formula)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Rolls:    make([]int, 0, f.Count),
		Modifier: f.Modifier,
		Total:    f.Modifier,
	}
	for i := 0; i < f.Count; i++ {
		die := r.intn(f.Sides) + 1
		res.Rolls = append(res.Rolls, die)
		res.Total += die
	}

	if f.Count == 1 && f.Sides == 20 {
		res.IsCritical = res.Rolls[0] == 20
		res.IsFumble = res.Rolls[0] == 1
	}

	return res, nil
}

// RollDie rolls a single bare die with the given number of sides.
func (r *Roller) RollDie(sides int) int {
	return r.intn(sides) + 1
}
