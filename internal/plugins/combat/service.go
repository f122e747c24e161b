package combat

import (
	"context"
	"time"

	"github.com/dmowen/warsheet/internal/apperror"
	"github.com/dmowen/warsheet/internal/broadcast"
)

// Minimum DC for a concentration saving throw.
const minConcentrationDC = 10

// DiceRoller rolls a single die. Satisfied by *dice.Roller.
type DiceRoller interface {
	RollDie(sides int) int
}

// HitPoints is the narrow slice of the character service that death
// saves need. Defined here so the combat plugin does not depend on the
// character plugin.
type HitPoints interface {
	CurrentHP(ctx context.Context) (int, error)
	SetCurrentHP(ctx context.Context, hp int) error
}

// Service owns all combat state transitions. Every mutation persists
// first and broadcasts after, so a failed write never announces a change
// that did not happen.
type Service interface {
	State(ctx context.Context) (*State, error)

	// Conditions.
	ToggleCondition(ctx context.Context, name string, rounds *int) (*ToggleResult, error)
	Apply(ctx context.Context, name string, rounds *int) error
	RemoveCondition(ctx context.Context, name string) error
	ClearConditions(ctx context.Context) error
	ActiveConditionNames(ctx context.Context) ([]string, error)

	// Concentration.
	StartConcentration(ctx context.Context, spell string, rounds *int) error
	ReplaceConcentration(ctx context.Context, spell string, rounds *int) error
	EndConcentration(ctx context.Context, reason string) error
	ConcentrationCheck(ctx context.Context, damage int) (int, error)

	// Tracker.
	StartCombat(ctx context.Context, initiative int) (*TrackerState, error)
	NextTurn(ctx context.Context) (*TurnAdvance, error)
	NextRound(ctx context.Context) (*TrackerState, error)
	ResetRound(ctx context.Context) (*TrackerState, error)
	EndCombat(ctx context.Context) (*TrackerState, error)
	ToggleReaction(ctx context.Context) (*TrackerState, error)

	// Death saves.
	RollDeathSave(ctx context.Context) (*DeathSaveResult, error)
	ResetDeathSaves(ctx context.Context) error
}

type service struct {
	repo   Repository
	pub    broadcast.Publisher
	roller DiceRoller
	hp     HitPoints
}

// NewService creates the combat service.
func NewService(repo Repository, pub broadcast.Publisher, roller DiceRoller, hp HitPoints) Service {
	return &service{repo: repo, pub: pub, roller: roller, hp: hp}
}

func (s *service) State(ctx context.Context) (*State, error) {
	tracker, err := s.repo.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	conditions, err := s.repo.ActiveConditions(ctx)
	if err != nil {
		return nil, err
	}
	concentration, err := s.repo.Concentration(ctx)
	if err != nil {
		return nil, err
	}
	deathSaves, err := s.repo.DeathSaves(ctx)
	if err != nil {
		return nil, err
	}
	return &State{
		Tracker:       tracker,
		Conditions:    conditions,
		Concentration: concentration,
		DeathSaves:    deathSaves,
	}, nil
}

// --- Conditions ---

// ToggleCondition adds the condition if inactive, removes it if active.
// The check-then-insert is not atomic; for a single-user dashboard a
// duplicate from two simultaneous toggles is harmless and cleaned up by
// the next toggle.
func (s *service) ToggleCondition(ctx context.Context, name string, rounds *int) (*ToggleResult, error) {
	if name == "" {
		return nil, apperror.NewBadRequest("condition name is required")
	}
	existing, err := s.repo.FindActiveCondition(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.DeactivateCondition(ctx, existing.ID); err != nil {
			return nil, err
		}
		s.pub.Publish(ctx, broadcast.EventConditionRemoved, broadcast.ConditionPayload{Name: name})
		return &ToggleResult{Name: name, Action: "removed"}, nil
	}

	if _, err := s.repo.InsertCondition(ctx, name, rounds); err != nil {
		return nil, err
	}
	s.publishConditionAdded(ctx, name, rounds)
	return &ToggleResult{Name: name, Action: "added"}, nil
}

// Apply adds the condition, or resets its countdown when it is already
// active. Unlike Toggle it never removes, so features and spells can
// re-apply safely.
func (s *service) Apply(ctx context.Context, name string, rounds *int) error {
	if name == "" {
		return apperror.NewBadRequest("condition name is required")
	}
	existing, err := s.repo.FindActiveCondition(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := s.repo.RefreshCondition(ctx, existing.ID, rounds); err != nil {
			return err
		}
		s.publishConditionAdded(ctx, name, rounds)
		return nil
	}
	if _, err := s.repo.InsertCondition(ctx, name, rounds); err != nil {
		return err
	}
	s.publishConditionAdded(ctx, name, rounds)
	return nil
}

func (s *service) RemoveCondition(ctx context.Context, name string) error {
	existing, err := s.repo.FindActiveCondition(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperror.NewNotFound("no active condition named " + name)
	}
	if err := s.repo.DeactivateCondition(ctx, existing.ID); err != nil {
		return err
	}
	s.pub.Publish(ctx, broadcast.EventConditionRemoved, broadcast.ConditionPayload{Name: name})
	return nil
}

func (s *service) ClearConditions(ctx context.Context) error {
	names, err := s.repo.DeactivateAllConditions(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		s.pub.Publish(ctx, broadcast.EventConditionRemoved, broadcast.ConditionPayload{Name: name})
	}
	return nil
}

func (s *service) ActiveConditionNames(ctx context.Context) ([]string, error) {
	conditions, err := s.repo.ActiveConditions(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(conditions))
	for _, c := range conditions {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *service) publishConditionAdded(ctx context.Context, name string, rounds *int) {
	payload := broadcast.ConditionPayload{Name: name}
	if rounds != nil {
		payload.DurationType = DurationRounds
		payload.DurationValue = rounds
	}
	s.pub.Publish(ctx, broadcast.EventConditionAdded, payload)
}

// --- Concentration ---

// StartConcentration begins concentrating on a spell. It refuses when a
// spell is already running; callers that want the D&D auto-replacement
// use ReplaceConcentration.
func (s *service) StartConcentration(ctx context.Context, spell string, rounds *int) error {
	if spell == "" {
		return apperror.NewBadRequest("spell name is required")
	}
	current, err := s.repo.Concentration(ctx)
	if err != nil {
		return err
	}
	if current.Active() {
		return apperror.NewConflict("already concentrating on " + *current.Spell)
	}
	return s.beginConcentration(ctx, current, spell, rounds)
}

// ReplaceConcentration ends any running concentration spell with reason
// "new_spell" and starts the given one. The ended event is published
// before the started event so observers see the handoff in order.
func (s *service) ReplaceConcentration(ctx context.Context, spell string, rounds *int) error {
	if spell == "" {
		return apperror.NewBadRequest("spell name is required")
	}
	current, err := s.repo.Concentration(ctx)
	if err != nil {
		return err
	}
	if current.Active() {
		previous := *current.Spell
		if err := s.clearConcentration(ctx, &current); err != nil {
			return err
		}
		s.pub.Publish(ctx, broadcast.EventConcentrationEnded,
			broadcast.ConcentrationPayload{Spell: previous, Reason: ReasonNewSpell})
		if err := s.dropSpellCondition(ctx, previous); err != nil {
			return err
		}
	}
	return s.beginConcentration(ctx, current, spell, rounds)
}

func (s *service) EndConcentration(ctx context.Context, reason string) error {
	if reason == "" {
		reason = ReasonManual
	}
	current, err := s.repo.Concentration(ctx)
	if err != nil {
		return err
	}
	if !current.Active() {
		return apperror.NewNotFound("not concentrating on anything")
	}
	spell := *current.Spell
	if err := s.clearConcentration(ctx, &current); err != nil {
		return err
	}
	s.pub.Publish(ctx, broadcast.EventConcentrationEnded,
		broadcast.ConcentrationPayload{Spell: spell, Reason: reason})
	return s.dropSpellCondition(ctx, spell)
}

// ConcentrationCheck records the saving throw DC after taking damage:
// half the damage, minimum 10. The roll itself is adjudicated at the
// table; a failed save is reported back as a manual end.
func (s *service) ConcentrationCheck(ctx context.Context, damage int) (int, error) {
	if damage < 0 {
		return 0, apperror.NewBadRequest("damage cannot be negative")
	}
	current, err := s.repo.Concentration(ctx)
	if err != nil {
		return 0, err
	}
	if !current.Active() {
		return 0, apperror.NewNotFound("not concentrating on anything")
	}
	dc := max(minConcentrationDC, damage/2)
	current.SaveDC = dc
	if err := s.repo.SaveConcentration(ctx, current); err != nil {
		return 0, err
	}
	return dc, nil
}

func (s *service) beginConcentration(ctx context.Context, state ConcentrationState, spell string, rounds *int) error {
	state.Spell = &spell
	state.Duration = rounds
	state.RoundsLeft = rounds
	state.SaveDC = minConcentrationDC
	if err := s.repo.SaveConcentration(ctx, state); err != nil {
		return err
	}
	s.pub.Publish(ctx, broadcast.EventConcentrationStarted,
		broadcast.ConcentrationPayload{Spell: spell, Duration: rounds})
	return nil
}

func (s *service) clearConcentration(ctx context.Context, state *ConcentrationState) error {
	state.Spell = nil
	state.Duration = nil
	state.RoundsLeft = nil
	state.SaveDC = minConcentrationDC
	return s.repo.SaveConcentration(ctx, *state)
}

// tickConcentration decrements the remaining duration by one round and
// ends the spell with reason "duration" when it runs out. Reports the
// name of the expired spell, if any.
func (s *service) tickConcentration(ctx context.Context) (*string, error) {
	current, err := s.repo.Concentration(ctx)
	if err != nil {
		return nil, err
	}
	if !current.Active() || current.RoundsLeft == nil {
		return nil, nil
	}
	left := *current.RoundsLeft - 1
	if left > 0 {
		current.RoundsLeft = &left
		return nil, s.repo.SaveConcentration(ctx, current)
	}

	spell := *current.Spell
	if err := s.clearConcentration(ctx, &current); err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, broadcast.EventConcentrationEnded,
		broadcast.ConcentrationPayload{Spell: spell, Reason: ReasonDuration})
	if err := s.dropSpellCondition(ctx, spell); err != nil {
		return nil, err
	}
	return &spell, nil
}

// dropSpellCondition removes the condition tracking a concentration
// spell's effect, if one exists with the same name.
func (s *service) dropSpellCondition(ctx context.Context, spell string) error {
	existing, err := s.repo.FindActiveCondition(ctx, spell)
	if err != nil || existing == nil {
		return err
	}
	if err := s.repo.DeactivateCondition(ctx, existing.ID); err != nil {
		return err
	}
	s.pub.Publish(ctx, broadcast.EventConditionRemoved,
		broadcast.ConditionPayload{Name: spell})
	return nil
}

// --- Tracker ---

func (s *service) StartCombat(ctx context.Context, initiative int) (*TrackerState, error) {
	tracker := TrackerState{
		InCombat:     true,
		Initiative:   initiative,
		CurrentRound: 1,
		ReactionUsed: false,
	}
	if err := s.repo.SaveTracker(ctx, tracker); err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, broadcast.EventCombatStarted, broadcast.CombatPayload{Initiative: initiative})
	return &tracker, nil
}

// NextTurn ends the character's turn: the reaction refreshes and timed
// conditions and concentration each lose one round.
func (s *service) NextTurn(ctx context.Context) (*TurnAdvance, error) {
	tracker, err := s.repo.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	if !tracker.InCombat {
		return nil, apperror.NewBadRequest("not in combat")
	}

	tracker.ReactionUsed = false
	if err := s.repo.SaveTracker(ctx, tracker); err != nil {
		return nil, err
	}

	expired, err := s.repo.TickConditions(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range expired {
		s.pub.Publish(ctx, broadcast.EventConditionRemoved, broadcast.ConditionPayload{Name: name})
	}

	expiredSpell, err := s.tickConcentration(ctx)
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, broadcast.EventTurnAdvanced, nil)
	return &TurnAdvance{
		Round:                tracker.CurrentRound,
		ExpiredConditions:    expired,
		ConcentrationExpired: expiredSpell,
	}, nil
}

func (s *service) NextRound(ctx context.Context) (*TrackerState, error) {
	tracker, err := s.repo.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	if !tracker.InCombat {
		return nil, apperror.NewBadRequest("not in combat")
	}
	tracker.CurrentRound++
	if err := s.repo.SaveTracker(ctx, tracker); err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, broadcast.EventRoundAdvanced, broadcast.RoundPayload{Round: tracker.CurrentRound})
	return &tracker, nil
}

func (s *service) ResetRound(ctx context.Context) (*TrackerState, error) {
	tracker, err := s.repo.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	tracker.CurrentRound = 1
	if err := s.repo.SaveTracker(ctx, tracker); err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, broadcast.EventRoundAdvanced, broadcast.RoundPayload{Round: tracker.CurrentRound})
	return &tracker, nil
}

func (s *service) EndCombat(ctx context.Context) (*TrackerState, error) {
	tracker := TrackerState{}
	if err := s.repo.SaveTracker(ctx, tracker); err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, broadcast.EventCombatEnded, nil)
	return &tracker, nil
}

func (s *service) ToggleReaction(ctx context.Context) (*TrackerState, error) {
	tracker, err := s.repo.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	tracker.ReactionUsed = !tracker.ReactionUsed
	if err := s.repo.SaveTracker(ctx, tracker); err != nil {
		return nil, err
	}
	return &tracker, nil
}

// --- Death saves ---

func (s *service) RollDeathSave(ctx context.Context) (*DeathSaveResult, error) {
	hp, err := s.hp.CurrentHP(ctx)
	if err != nil {
		return nil, err
	}
	if hp > 0 {
		return nil, apperror.NewBadRequest("death saves only apply at 0 HP")
	}

	state, err := s.repo.DeathSaves(ctx)
	if err != nil {
		return nil, err
	}
	if state.Failures >= 3 {
		return nil, apperror.NewConflict("the character is dead")
	}
	if state.IsStable {
		return nil, apperror.NewConflict("the character is stable")
	}

	roll := s.roller.RollDie(20)
	transition := ApplyDeathSave(state, roll)

	if err := s.repo.SaveDeathSaves(ctx, transition.State); err != nil {
		return nil, err
	}
	if transition.SetHP != nil {
		if err := s.hp.SetCurrentHP(ctx, *transition.SetHP); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	s.pub.Publish(ctx, broadcast.EventDeathSaveRolled, broadcast.DeathSavePayload{
		Roll:      roll,
		Result:    transition.Outcome,
		Successes: transition.State.Successes,
		Failures:  transition.State.Failures,
		Message:   transition.Message,
		Timestamp: now.Format(time.RFC3339),
	})

	return &DeathSaveResult{
		Roll:      roll,
		Outcome:   transition.Outcome,
		State:     transition.State,
		HP:        transition.SetHP,
		Message:   transition.Message,
		Timestamp: now,
	}, nil
}

func (s *service) ResetDeathSaves(ctx context.Context) error {
	return s.repo.SaveDeathSaves(ctx, DeathSaveState{})
}
