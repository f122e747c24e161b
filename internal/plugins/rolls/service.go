package rolls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmowen/warsheet/internal/apperror"
	"github.com/dmowen/warsheet/internal/broadcast"
	"github.com/dmowen/warsheet/internal/dice"
	"github.com/dmowen/warsheet/internal/plugins/character"
)

// Divine Smite dice: 2 + slot level, capped at 5, plus one versus undead
// or fiends.
const maxSmiteDice = 5

// Roller is the dice engine surface the service needs. Satisfied by
// *dice.Roller.
type Roller interface {
	Roll(formula string) (dice.Result, error)
	RollDie(sides int) int
}

// ConditionSource reports active condition names, which drive attack and
// damage bonuses.
type ConditionSource interface {
	ActiveConditionNames(ctx context.Context) ([]string, error)
}

// Service resolves dice rolls, logs them and broadcasts each one to the
// viewer clients.
type Service interface {
	Roll(ctx context.Context, formula, rollType, details string) (*DiceRollRecord, error)
	Attack(ctx context.Context, in AttackInput) (*AttackResult, error)
	Damage(ctx context.Context, in DamageInput) (*DamageResult, error)
	History(ctx context.Context, limit int) ([]DiceRollRecord, error)
}

type service struct {
	repo       Repository
	characters character.Repository
	conditions ConditionSource
	roller     Roller
	pub        broadcast.Publisher
}

// NewService creates the rolls service.
func NewService(repo Repository, characters character.Repository, conditions ConditionSource, roller Roller, pub broadcast.Publisher) Service {
	return &service{
		repo:       repo,
		characters: characters,
		conditions: conditions,
		roller:     roller,
		pub:        pub,
	}
}

func (s *service) Roll(ctx context.Context, formula, rollType, details string) (*DiceRollRecord, error) {
	result, err := s.roller.Roll(formula)
	if err != nil {
		if errors.Is(err, dice.ErrInvalidFormula) {
			return nil, apperror.NewBadRequest("invalid dice formula: " + formula)
		}
		return nil, err
	}
	if rollType == "" {
		rollType = "custom"
	}

	rec := &DiceRollRecord{
		Formula:    formula,
		RollType:   rollType,
		Details:    details,
		Rolls:      result.Rolls,
		Modifier:   result.Modifier,
		Total:      result.Total,
		IsCritical: result.IsCritical,
		IsFumble:   result.IsFumble,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	s.publishRoll(ctx, rec)
	return rec, nil
}

// Attack rolls 1d20 plus the weapon's attack bonus, folding in bonuses
// from active conditions: Sacred Weapon adds a flat +5, Bless adds 1d4
// and Bane subtracts 1d4. The manual Sacred Weapon modifier covers the
// case where the feature is on but was never tracked as a condition.
func (s *service) Attack(ctx context.Context, in AttackInput) (*AttackResult, error) {
	_, weapon, err := s.findWeapon(ctx, in.Weapon)
	if err != nil {
		return nil, err
	}

	active, err := s.activeSet(ctx)
	if err != nil {
		return nil, err
	}

	d20 := s.roller.RollDie(20)
	result := &AttackResult{
		Weapon:     weapon.Name,
		D20:        d20,
		Bonus:      weapon.AttackBonus,
		Total:      d20 + weapon.AttackBonus,
		IsCritical: d20 == 20,
		IsFumble:   d20 == 1,
	}

	if active["Sacred Weapon"] || in.Modifiers.SacredWeapon {
		result.Bonuses = append(result.Bonuses, RollBonus{Source: "Sacred Weapon", Value: 5})
		result.Total += 5
	}
	if active["Bless"] {
		roll := s.roller.RollDie(4)
		result.Bonuses = append(result.Bonuses, RollBonus{Source: "Bless", Roll: &roll, Value: roll})
		result.Total += roll
	}
	if active["Bane"] {
		roll := s.roller.RollDie(4)
		result.Bonuses = append(result.Bonuses, RollBonus{Source: "Bane", Roll: &roll, Value: -roll})
		result.Total -= roll
	}

	rec := &DiceRollRecord{
		Formula:    fmt.Sprintf("1d20%+d", weapon.AttackBonus),
		RollType:   "attack",
		Details:    weapon.Name,
		Rolls:      []int{d20},
		Modifier:   result.Total - d20,
		Total:      result.Total,
		IsCritical: result.IsCritical,
		IsFumble:   result.IsFumble,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	s.publishRoll(ctx, rec)
	return result, nil
}

// Damage rolls the weapon's damage dice plus magic damage, Improved
// Divine Smite when the sheet carries the feature, and Divine Smite when
// a slot level is given. A critical hit adds the maximum of every damage die on top
// of the rolled values. Divine Smite consumes the spell slot.
func (s *service) Damage(ctx context.Context, in DamageInput) (*DamageResult, error) {
	ch, weapon, err := s.findWeapon(ctx, in.Weapon)
	if err != nil {
		return nil, err
	}
	active, err := s.activeSet(ctx)
	if err != nil {
		return nil, err
	}

	result := &DamageResult{Weapon: weapon.Name, Critical: in.Critical}

	base, err := s.rollComponent(weapon.Name, weapon.Damage, weapon.DamageType, in.Critical)
	if err != nil {
		return nil, err
	}
	result.Components = append(result.Components, *base)

	if weapon.MagicDamage != "" {
		magic, err := s.rollComponent(weapon.Name+" (magic)", weapon.MagicDamage, weapon.MagicDamageType, in.Critical)
		if err != nil {
			return nil, err
		}
		result.Components = append(result.Components, *magic)
	}

	if _, ok := ch.Sheet.Features["improved_divine_smite"]; ok {
		ids, err := s.rollComponent("Improved Divine Smite", "1d8", "radiant", in.Critical)
		if err != nil {
			return nil, err
		}
		result.Components = append(result.Components, *ids)
	}

	if in.DivineSmiteLevel > 0 {
		smite, err := s.rollDivineSmite(ctx, ch, in)
		if err != nil {
			return nil, err
		}
		result.Components = append(result.Components, *smite)
		result.SlotSpent = &in.DivineSmiteLevel
	}

	if active["Radiant Soul"] {
		result.Components = append(result.Components, DamageComponent{
			Source:     "Radiant Soul",
			Formula:    fmt.Sprintf("+%d", ch.Level),
			Total:      ch.Level,
			DamageType: "radiant",
		})
	}

	for _, comp := range result.Components {
		result.Total += comp.Total
	}

	rec := &DiceRollRecord{
		Formula:    weapon.Damage,
		RollType:   "damage",
		Details:    weapon.Name,
		Rolls:      base.Rolls,
		Modifier:   result.Total - base.Total,
		Total:      result.Total,
		IsCritical: in.Critical,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	s.publishRoll(ctx, rec)
	return result, nil
}

func (s *service) History(ctx context.Context, limit int) ([]DiceRollRecord, error) {
	return s.repo.ListRecent(ctx, limit)
}

// rollComponent rolls one damage formula. On a crit the maximum of the
// dice (not the modifier) is added on top of the rolled values.
func (s *service) rollComponent(source, formula, damageType string, crit bool) (*DamageComponent, error) {
	f, err := dice.Parse(formula)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("bad damage formula for %s: %w", source, err))
	}
	result, err := s.roller.Roll(formula)
	if err != nil {
		return nil, err
	}
	total := result.Total
	if crit {
		total += f.Count * f.Sides
	}
	return &DamageComponent{
		Source:     source,
		Formula:    formula,
		Rolls:      result.Rolls,
		Total:      total,
		DamageType: damageType,
	}, nil
}

func (s *service) rollDivineSmite(ctx context.Context, ch *character.Character, in DamageInput) (*DamageComponent, error) {
	level := in.DivineSmiteLevel
	if level < 1 || level > 9 {
		return nil, apperror.NewBadRequest("invalid spell slot level for Divine Smite")
	}
	sc := ch.Sheet.Spellcasting
	if sc == nil || sc.SlotsCurrent[level] <= 0 {
		return nil, apperror.NewInsufficientResource(
			fmt.Sprintf("no level %d spell slots remaining for Divine Smite", level))
	}

	count := min(2+level, maxSmiteDice)
	if in.VersusUndead {
		count++
	}
	formula := fmt.Sprintf("%dd8", count)
	comp, err := s.rollComponent("Divine Smite", formula, "radiant", in.Critical)
	if err != nil {
		return nil, err
	}

	sc.SlotsCurrent[level]--
	if err := s.characters.SaveSheet(ctx, &ch.Sheet); err != nil {
		return nil, err
	}
	return comp, nil
}

func (s *service) findWeapon(ctx context.Context, key string) (*character.Character, *character.Weapon, error) {
	if key == "" {
		return nil, nil, apperror.NewBadRequest("weapon is required")
	}
	ch, err := s.characters.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if w, ok := ch.Sheet.Weapons[key]; ok {
		return ch, w, nil
	}
	for _, w := range ch.Sheet.Weapons {
		if strings.EqualFold(w.Name, key) {
			return ch, w, nil
		}
	}
	return nil, nil, apperror.NewNotFound("no weapon named " + key)
}

func (s *service) activeSet(ctx context.Context) (map[string]bool, error) {
	names, err := s.conditions.ActiveConditionNames(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

func (s *service) publishRoll(ctx context.Context, rec *DiceRollRecord) {
	animation := "normal"
	if rec.IsCritical {
		animation = "critical"
	} else if rec.IsFumble {
		animation = "fumble"
	}
	s.pub.Publish(ctx, broadcast.EventDiceRoll, broadcast.DiceRollPayload{
		Result:         rec.Total,
		Formula:        rec.Formula,
		RollType:       rec.RollType,
		Details:        rec.Details,
		Rolls:          rec.Rolls,
		Modifier:       rec.Modifier,
		IsCritical:     rec.IsCritical,
		IsFumble:       rec.IsFumble,
		AnimationClass: animation,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}
