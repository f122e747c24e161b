package character

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmowen/warsheet/internal/apperror"
	"github.com/dmowen/warsheet/internal/plugins/combat"
)

// acBonusByCondition maps active conditions to the flat AC bonus they
// grant. The bonus is applied as a read-time overlay and never written
// back to the sheet.
var acBonusByCondition = map[string]int{
	"Shield of Faith": 2,
	"Haste":           2,
}

// DiceRoller rolls a single die. Satisfied by *dice.Roller.
type DiceRoller interface {
	RollDie(sides int) int
}

// ConditionSource reports the names of currently active conditions, used
// to compute the read-time overlay on the sheet.
type ConditionSource interface {
	ActiveConditionNames(ctx context.Context) ([]string, error)
}

// ConditionApplier applies a timed condition when a feature with a
// duration is activated. A nil rounds value means the condition lasts
// until removed by hand.
type ConditionApplier interface {
	Apply(ctx context.Context, name string, rounds *int) error
}

// Service exposes character sheet reads and the mutations that belong to
// the character itself: hit points, rests and feature resources.
type Service interface {
	Get(ctx context.Context) (*Character, error)
	UpdateHP(ctx context.Context, hp, tempHP *int) (*HPState, error)
	AdjustHP(ctx context.Context, delta int) (*HPAdjustment, error)
	GrantTempHP(ctx context.Context, amount int) (*HPState, error)
	ShortRest(ctx context.Context, hitDiceSpent int) (*RestResult, error)
	LongRest(ctx context.Context) (*RestResult, error)
	UseFeature(ctx context.Context, in UseFeatureInput) (*FeatureResult, error)

	// CurrentHP and SetCurrentHP give the combat plugin narrow access to
	// hit points for death save outcomes.
	CurrentHP(ctx context.Context) (int, error)
	SetCurrentHP(ctx context.Context, hp int) error
}

type service struct {
	repo       Repository
	conditions ConditionSource
	applier    ConditionApplier
	roller     DiceRoller
}

// NewService creates the character service.
func NewService(repo Repository, conditions ConditionSource, applier ConditionApplier, roller DiceRoller) Service {
	return &service{repo: repo, conditions: conditions, applier: applier, roller: roller}
}

func (s *service) Get(ctx context.Context) (*Character, error) {
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	names, err := s.conditions.ActiveConditionNames(ctx)
	if err != nil {
		return nil, err
	}
	ch.Sheet.ActiveConditions = names
	for _, name := range names {
		if bonus, ok := acBonusByCondition[name]; ok {
			ch.Sheet.Stats.AC += bonus
			ch.Sheet.Stats.ACBonuses = append(ch.Sheet.Stats.ACBonuses,
				fmt.Sprintf("%s +%d", name, bonus))
		}
	}
	return ch, nil
}

func (s *service) UpdateHP(ctx context.Context, hp, tempHP *int) (*HPState, error) {
	if hp == nil && tempHP == nil {
		return nil, apperror.NewBadRequest("nothing to update")
	}
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := &ch.Sheet.Stats
	if hp != nil {
		stats.HPCurrent = clamp(*hp, 0, stats.HPMax)
	}
	if tempHP != nil {
		stats.TempHP = max(0, *tempHP)
	}
	if err := s.repo.SaveSheet(ctx, &ch.Sheet); err != nil {
		return nil, err
	}
	return &HPState{HP: stats.HPCurrent, TempHP: stats.TempHP}, nil
}

// AdjustHP applies a signed delta. Damage drains temporary hit points
// before real ones; healing never exceeds the maximum.
func (s *service) AdjustHP(ctx context.Context, delta int) (*HPAdjustment, error) {
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := &ch.Sheet.Stats

	absorbed := 0
	if delta < 0 {
		damage := -delta
		absorbed = min(stats.TempHP, damage)
		stats.TempHP -= absorbed
		stats.HPCurrent = max(0, stats.HPCurrent-(damage-absorbed))
	} else {
		stats.HPCurrent = min(stats.HPMax, stats.HPCurrent+delta)
	}

	if err := s.repo.SaveSheet(ctx, &ch.Sheet); err != nil {
		return nil, err
	}
	return &HPAdjustment{HP: stats.HPCurrent, TempHP: stats.TempHP, Absorbed: absorbed}, nil
}

// GrantTempHP sets temporary hit points from a new source. Temporary HP
// does not stack: the character keeps the larger of the current and the
// granted amount.
func (s *service) GrantTempHP(ctx context.Context, amount int) (*HPState, error) {
	if amount < 0 {
		return nil, apperror.NewBadRequest("temporary hit points cannot be negative")
	}
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := &ch.Sheet.Stats
	stats.TempHP = max(stats.TempHP, amount)
	if err := s.repo.SaveSheet(ctx, &ch.Sheet); err != nil {
		return nil, err
	}
	return &HPState{HP: stats.HPCurrent, TempHP: stats.TempHP}, nil
}

func (s *service) ShortRest(ctx context.Context, hitDiceSpent int) (*RestResult, error) {
	if hitDiceSpent < 0 {
		return nil, apperror.NewBadRequest("hit dice spent cannot be negative")
	}
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	sheet := &ch.Sheet

	result := &RestResult{Restored: []string{}}
	for _, key := range sortedKeys(sheet.Features) {
		f := sheet.Features[key]
		if f.Recharge == RechargeShortRest && f.UsesMax > 0 && f.Uses < f.UsesMax {
			f.Uses = f.UsesMax
			result.Restored = append(result.Restored, f.Name)
		}
	}

	if hitDiceSpent > 0 {
		spent := min(hitDiceSpent, ch.Level)
		conMod := sheet.Stats.ConstitutionModifier()
		healing := &RestHealing{Rolls: make([]HitDiceRoll, 0, spent)}
		for i := 0; i < spent; i++ {
			roll := s.roller.RollDie(sheet.Stats.HitDie)
			heal := max(0, roll+conMod)
			healing.Rolls = append(healing.Rolls, HitDiceRoll{Roll: roll, Healing: heal})
			healing.Total += heal
		}
		sheet.Stats.HPCurrent = min(sheet.Stats.HPMax, sheet.Stats.HPCurrent+healing.Total)
		healing.NewHP = sheet.Stats.HPCurrent
		result.Healing = healing
	}

	if err := s.repo.SaveSheet(ctx, sheet); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) LongRest(ctx context.Context) (*RestResult, error) {
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	sheet := &ch.Sheet

	result := &RestResult{Restored: []string{"Hit Points"}}
	sheet.Stats.HPCurrent = sheet.Stats.HPMax
	sheet.Stats.TempHP = 0

	for _, key := range sortedKeys(sheet.Features) {
		f := sheet.Features[key]
		restored := false
		if f.UsesMax > 0 && f.Uses < f.UsesMax {
			f.Uses = f.UsesMax
			restored = true
		}
		if f.PoolMax > 0 && f.Pool < f.PoolMax {
			f.Pool = f.PoolMax
			restored = true
		}
		if restored {
			result.Restored = append(result.Restored, f.Name)
		}
	}

	if sc := sheet.Spellcasting; sc != nil {
		for level, maxSlots := range sc.SpellSlots {
			if sc.SlotsCurrent[level] < maxSlots {
				sc.SlotsCurrent[level] = maxSlots
			}
		}
		result.Restored = append(result.Restored, "Spell Slots")
	}

	for _, key := range sortedKeys(sheet.Weapons) {
		w := sheet.Weapons[key]
		if w.ChargesMax > 0 && w.Charges < w.ChargesMax {
			w.Charges = w.ChargesMax
			result.Restored = append(result.Restored, w.Name)
		}
	}
	for i := range sheet.Inventory {
		item := &sheet.Inventory[i]
		if item.ChargesMax > 0 && item.Charges < item.ChargesMax {
			item.Charges = item.ChargesMax
			result.Restored = append(result.Restored, item.Name)
		}
	}

	if err := s.repo.SaveSheet(ctx, sheet); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UseFeature(ctx context.Context, in UseFeatureInput) (*FeatureResult, error) {
	if in.Feature == "" {
		return nil, apperror.NewBadRequest("feature is required")
	}
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	sheet := &ch.Sheet

	var result *FeatureResult
	if in.Feature == "lay_on_hands" {
		result, err = s.useLayOnHands(sheet, in)
	} else {
		result, err = s.useCountedFeature(sheet, in)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveSheet(ctx, sheet); err != nil {
		return nil, err
	}

	// Features with a listed duration become tracked conditions
	// (e.g. Sacred Weapon for 1 minute).
	if in.Duration != "" {
		name := in.Name
		if name == "" {
			if f, ok := sheet.Features[in.Feature]; ok {
				name = f.Name
			} else {
				name = in.Feature
			}
		}
		if rounds, ok := combat.ParseDuration(in.Duration); ok {
			if err := s.applier.Apply(ctx, name, &rounds); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (s *service) useLayOnHands(sheet *Sheet, in UseFeatureInput) (*FeatureResult, error) {
	f, ok := sheet.Features["lay_on_hands"]
	if !ok {
		return nil, apperror.NewBadRequest("unknown feature: lay_on_hands")
	}
	amount := in.Amount
	if amount <= 0 {
		amount = 1
	}
	if f.Pool < amount {
		return nil, apperror.NewInsufficientResource(
			fmt.Sprintf("Lay on Hands has only %d points left", f.Pool))
	}
	f.Pool -= amount

	result := &FeatureResult{
		Message:   fmt.Sprintf("Spent %d points of Lay on Hands", amount),
		Remaining: f.Pool,
	}
	if in.Action == "heal" {
		stats := &sheet.Stats
		healed := min(amount, stats.HPMax-stats.HPCurrent)
		stats.HPCurrent += healed
		result.Message = fmt.Sprintf("Lay on Hands heals %d HP", healed)
		result.Healing = &FeatureHealing{Amount: healed, NewHP: stats.HPCurrent}
	}
	return result, nil
}

func (s *service) useCountedFeature(sheet *Sheet, in UseFeatureInput) (*FeatureResult, error) {
	f, ok := sheet.Features[in.Feature]
	if !ok {
		return nil, apperror.NewBadRequest("unknown feature: " + in.Feature)
	}
	if f.Uses <= 0 {
		return nil, apperror.NewInsufficientResource(f.Name + " has no uses left")
	}
	f.Uses--
	return &FeatureResult{
		Message:   fmt.Sprintf("Used %s (%d/%d remaining)", f.Name, f.Uses, f.UsesMax),
		Remaining: f.Uses,
	}, nil
}

func (s *service) CurrentHP(ctx context.Context) (int, error) {
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	return ch.Sheet.Stats.HPCurrent, nil
}

func (s *service) SetCurrentHP(ctx context.Context, hp int) error {
	ch, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	ch.Sheet.Stats.HPCurrent = clamp(hp, 0, ch.Sheet.Stats.HPMax)
	return s.repo.SaveSheet(ctx, &ch.Sheet)
}

func clamp(v, lo, hi int) int {
	return min(hi, max(lo, v))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
