package combat

import "time"

// Condition duration types.
const (
	DurationPermanent = "permanent"
	DurationRounds    = "rounds"
)

// Condition is a named timed status effect attached to the character.
// At most one active row exists per name; re-applying resets the
// countdown instead of duplicating. A permanent condition has no
// countdown and lasts until removed by hand.
type Condition struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	DurationType  string     `json:"duration_type"`
	DurationValue *int       `json:"duration_value"`
	RoundsLeft    *int       `json:"rounds_left"`
	Active        bool       `json:"active"`
	AppliedAt     time.Time  `json:"applied_at"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
}

// ToggleResult reports which way a toggle went.
type ToggleResult struct {
	Name   string `json:"name"`
	Action string `json:"action"` // "added" or "removed"
}

// Death save outcomes.
const (
	OutcomeCriticalSuccess = "critical_success"
	OutcomeCriticalFailure = "critical_failure"
	OutcomeSuccess         = "success"
	OutcomeFailure         = "failure"
	OutcomeStabilized      = "stabilized"
	OutcomeDead            = "dead"
)

// DeathSaveState tracks accumulated death saving throws while the
// character is at 0 HP.
type DeathSaveState struct {
	Successes int  `json:"successes"`
	Failures  int  `json:"failures"`
	IsStable  bool `json:"is_stable"`
}

// DeathSaveTransition is the result of applying one d20 roll to a
// DeathSaveState. SetHP, when non-nil, is the hit point value the
// character must be set to (a natural 20 or stabilization restores
// consciousness at 1 HP).
type DeathSaveTransition struct {
	State   DeathSaveState
	Outcome string
	SetHP   *int
	Message string
}

// ApplyDeathSave is the pure transition function for one death save.
// Rules: a natural 20 restores 1 HP and clears the counters; a natural 1
// counts as two failures; 10 or higher is a success; three successes
// stabilize the character at 1 HP; three failures are terminal. A dead
// state never transitions further.
func ApplyDeathSave(s DeathSaveState, roll int) DeathSaveTransition {
	if s.Failures >= 3 {
		return DeathSaveTransition{State: s, Outcome: OutcomeDead,
			Message: "The character is dead."}
	}

	one := 1
	switch {
	case roll == 20:
		return DeathSaveTransition{
			State:   DeathSaveState{},
			Outcome: OutcomeCriticalSuccess,
			SetHP:   &one,
			Message: "Natural 20! Back on your feet with 1 HP.",
		}
	case roll == 1:
		s.Failures = min(3, s.Failures+2)
		out := DeathSaveTransition{State: s, Outcome: OutcomeCriticalFailure,
			Message: "Natural 1. Two failures."}
		if s.Failures >= 3 {
			out.Outcome = OutcomeDead
			out.Message = "Natural 1. Three failures. The character has died."
		}
		return out
	case roll >= 10:
		s.Successes++
		if s.Successes >= 3 {
			return DeathSaveTransition{
				State:   DeathSaveState{IsStable: true},
				Outcome: OutcomeStabilized,
				SetHP:   &one,
				Message: "Three successes. Stabilized at 1 HP.",
			}
		}
		return DeathSaveTransition{State: s, Outcome: OutcomeSuccess,
			Message: "Success."}
	default:
		s.Failures++
		out := DeathSaveTransition{State: s, Outcome: OutcomeFailure,
			Message: "Failure."}
		if s.Failures >= 3 {
			out.Outcome = OutcomeDead
			out.Message = "Three failures. The character has died."
		}
		return out
	}
}

// Concentration termination reasons.
const (
	ReasonManual   = "manual"
	ReasonNewSpell = "new_spell"
	ReasonDuration = "duration"
)

// ConcentrationState is the single concentration slot. Spell nil means
// nothing is being concentrated on.
type ConcentrationState struct {
	Spell      *string `json:"spell"`
	Duration   *int    `json:"duration"`
	RoundsLeft *int    `json:"rounds_left"`
	SaveDC     int     `json:"save_dc"`
}

// Active reports whether a concentration spell is running.
func (c ConcentrationState) Active() bool {
	return c.Spell != nil
}

// TrackerState is the round/turn tracker for the current encounter.
type TrackerState struct {
	InCombat     bool `json:"in_combat"`
	Initiative   int  `json:"initiative"`
	CurrentRound int  `json:"current_round"`
	ReactionUsed bool `json:"reaction_used"`
}

// State is the combined combat snapshot returned to the dashboard.
type State struct {
	Tracker       TrackerState       `json:"tracker"`
	Conditions    []Condition        `json:"conditions"`
	Concentration ConcentrationState `json:"concentration"`
	DeathSaves    DeathSaveState     `json:"death_saves"`
}

// DeathSaveResult is the API response for one rolled death save.
type DeathSaveResult struct {
	Roll      int            `json:"roll"`
	Outcome   string         `json:"outcome"`
	State     DeathSaveState `json:"state"`
	HP        *int           `json:"hp,omitempty"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// TurnAdvance reports what expired when a turn ended.
type TurnAdvance struct {
	Round                int      `json:"round"`
	ExpiredConditions    []string `json:"expired_conditions,omitempty"`
	ConcentrationExpired *string  `json:"concentration_expired,omitempty"`
}
