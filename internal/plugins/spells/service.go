// Package spells handles spell slot accounting and spellcasting: slot
// validation and spending, the concentration handoff for concentration
// spells, and tracked conditions for timed buff effects.
package spells

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmowen/warsheet/internal/apperror"
	"github.com/dmowen/warsheet/internal/broadcast"
	"github.com/dmowen/warsheet/internal/plugins/character"
	"github.com/dmowen/warsheet/internal/plugins/combat"
)

const maxSpellLevel = 9

// Concentrator is the slice of the combat service spellcasting needs to
// take over the concentration slot.
type Concentrator interface {
	ReplaceConcentration(ctx context.Context, spell string, rounds *int) error
}

// ConditionApplier applies a timed condition for a buff spell's effect.
type ConditionApplier interface {
	Apply(ctx context.Context, name string, rounds *int) error
}

// CastInput is the validated input for casting a spell.
type CastInput struct {
	Spell         string
	Level         int
	Concentration *bool
	Duration      string
	Effect        string
}

// CastResult reports a completed cast.
type CastResult struct {
	Spell          string `json:"spell"`
	Level          int    `json:"level"`
	SlotsRemaining int    `json:"slotsRemaining"`
	Concentration  bool   `json:"concentration"`
	Rounds         *int   `json:"rounds,omitempty"`
	Message        string `json:"message"`
}

// SlotState reports slot counts after a restore.
type SlotState struct {
	Level     int `json:"level"`
	Remaining int `json:"remaining"`
	Max       int `json:"max"`
}

// Catalog is the spell list plus slot state, as the dashboard renders it.
type Catalog struct {
	Spells       map[string][]character.Spell `json:"spells"`
	SpellSlots   map[int]int                  `json:"spell_slots"`
	SlotsCurrent map[int]int                  `json:"spell_slots_current"`
}

// Service exposes the spellcasting operations.
type Service interface {
	Catalog(ctx context.Context) (*Catalog, error)
	Cast(ctx context.Context, in CastInput) (*CastResult, error)
	RestoreSlot(ctx context.Context, level int) (*SlotState, error)
}

type service struct {
	repo          character.Repository
	concentration Concentrator
	conditions    ConditionApplier
	pub           broadcast.Publisher
}

// NewService creates the spells service.
func NewService(repo character.Repository, concentration Concentrator, conditions ConditionApplier, pub broadcast.Publisher) Service {
	return &service{repo: repo, concentration: concentration, conditions: conditions, pub: pub}
}

func (s *service) Catalog(ctx context.Context) (*Catalog, error) {
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	catalog := &Catalog{Spells: ch.Sheet.Spells}
	if sc := ch.Sheet.Spellcasting; sc != nil {
		catalog.SpellSlots = sc.SpellSlots
		catalog.SlotsCurrent = sc.SlotsCurrent
	}
	return catalog, nil
}

// Cast spends a spell slot and applies the spell's tracked side effects.
// For a concentration spell any running concentration is replaced, which
// announces the handoff before the new spell starts. The slot is spent
// before side effects run so a failed broadcast can never refund it.
func (s *service) Cast(ctx context.Context, in CastInput) (*CastResult, error) {
	if in.Spell == "" {
		return nil, apperror.NewBadRequest("spell name is required")
	}
	if in.Level < 1 || in.Level > maxSpellLevel {
		return nil, apperror.NewBadRequest(
			fmt.Sprintf("spell level must be between 1 and %d", maxSpellLevel))
	}

	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	sc := ch.Sheet.Spellcasting
	if sc == nil {
		return nil, apperror.NewBadRequest("character has no spellcasting")
	}
	if sc.SlotsCurrent[in.Level] <= 0 {
		return nil, apperror.NewInsufficientResource(
			fmt.Sprintf("no level %d spell slots remaining", in.Level))
	}

	// The sheet's spell catalog supplies duration and concentration when
	// the request leaves them out. A duration like "Concentration, up to
	// 1 minute" marks the spell even when the catalog does not know it.
	concentration := false
	duration := in.Duration
	if entry := findSpell(ch.Sheet.Spells, in.Spell); entry != nil {
		concentration = entry.Concentration
		if duration == "" {
			duration = entry.Duration
		}
	}
	if strings.Contains(strings.ToLower(duration), "concentration") {
		concentration = true
	}
	if in.Concentration != nil {
		concentration = *in.Concentration
	}

	sc.SlotsCurrent[in.Level]--
	if err := s.repo.SaveSheet(ctx, &ch.Sheet); err != nil {
		return nil, err
	}

	var rounds *int
	if n, ok := combat.ParseDuration(duration); ok {
		rounds = &n
	}

	if concentration {
		if err := s.concentration.ReplaceConcentration(ctx, in.Spell, rounds); err != nil {
			return nil, err
		}
	}
	if rounds != nil {
		if err := s.conditions.Apply(ctx, in.Spell, rounds); err != nil {
			return nil, err
		}
	}

	s.pub.Publish(ctx, broadcast.EventSpellCast, broadcast.SpellCastPayload{
		Spell:  in.Spell,
		Level:  in.Level,
		Effect: in.Effect,
	})

	return &CastResult{
		Spell:          in.Spell,
		Level:          in.Level,
		SlotsRemaining: sc.SlotsCurrent[in.Level],
		Concentration:  concentration,
		Rounds:         rounds,
		Message:        fmt.Sprintf("Cast %s using a level %d slot", in.Spell, in.Level),
	}, nil
}

// RestoreSlot refunds one spent slot of the given level, for table
// corrections and abilities that recover slots.
func (s *service) RestoreSlot(ctx context.Context, level int) (*SlotState, error) {
	if level < 1 || level > maxSpellLevel {
		return nil, apperror.NewBadRequest(
			fmt.Sprintf("spell level must be between 1 and %d", maxSpellLevel))
	}
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	sc := ch.Sheet.Spellcasting
	if sc == nil {
		return nil, apperror.NewBadRequest("character has no spellcasting")
	}
	maxSlots := sc.SpellSlots[level]
	if maxSlots == 0 {
		return nil, apperror.NewBadRequest(
			fmt.Sprintf("character has no level %d spell slots", level))
	}
	if sc.SlotsCurrent[level] >= maxSlots {
		return nil, apperror.NewBadRequest(
			fmt.Sprintf("level %d slots are already at maximum", level))
	}
	sc.SlotsCurrent[level]++
	if err := s.repo.SaveSheet(ctx, &ch.Sheet); err != nil {
		return nil, err
	}
	return &SlotState{Level: level, Remaining: sc.SlotsCurrent[level], Max: maxSlots}, nil
}

func findSpell(spells map[string][]character.Spell, name string) *character.Spell {
	for _, level := range spells {
		for i := range level {
			if strings.EqualFold(level[i].Name, name) {
				return &level[i]
			}
		}
	}
	return nil
}
