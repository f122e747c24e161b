package rolls

import (
	"context"
	"errors"
	"testing"

	"github.com/dmowen/warsheet/internal/apperror"
	"github.com/dmowen/warsheet/internal/broadcast"
	"github.com/dmowen/warsheet/internal/dice"
	"github.com/dmowen/warsheet/internal/plugins/character"
)

// --- Mocks ---

// scriptRoller returns faces from a fixed script, in order.
type scriptRoller struct {
	faces []int
	i     int
}

func (r *scriptRoller) next() int {
	if r.i >= len(r.faces) {
		return 1
	}
	v := r.faces[r.i]
	r.i++
	return v
}

func (r *scriptRoller) RollDie(int) int { return r.next() }

func (r *scriptRoller) Roll(formula string) (dice.Result, error) {
	f, err := dice.Parse(formula)
	if err != nil {
		return dice.Result{}, err
	}
	result := dice.Result{Modifier: f.Modifier}
	for range f.Count {
		v := r.next()
		result.Rolls = append(result.Rolls, v)
		result.Total += v
	}
	result.Total += f.Modifier
	if f.Count == 1 && f.Sides == 20 {
		result.IsCritical = result.Rolls[0] == 20
		result.IsFumble = result.Rolls[0] == 1
	}
	return result, nil
}

type memoryRollRepo struct {
	records []DiceRollRecord
}

func (m *memoryRollRepo) Insert(_ context.Context, rec *DiceRollRecord) error {
	rec.ID = len(m.records) + 1
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryRollRepo) ListRecent(_ context.Context, limit int) ([]DiceRollRecord, error) {
	if limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]DiceRollRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

type mockCharacterRepo struct {
	ch        *character.Character
	saveCalls int
}

func (m *mockCharacterRepo) Load(context.Context) (*character.Character, error) {
	return m.ch, nil
}

func (m *mockCharacterRepo) SaveSheet(context.Context, *character.Sheet) error {
	m.saveCalls++
	return nil
}

func (m *mockCharacterRepo) Seed(context.Context, *character.Character) (bool, error) {
	return false, nil
}

type mockConditions struct {
	names []string
}

func (m *mockConditions) ActiveConditionNames(context.Context) ([]string, error) {
	return m.names, nil
}

type capturePublisher struct {
	events []string
	data   []any
}

func (p *capturePublisher) Publish(_ context.Context, event string, data any) {
	p.events = append(p.events, event)
	p.data = append(p.data, data)
}

func testCharacter(level int) *character.Character {
	return &character.Character{
		ID:    1,
		Level: level,
		Sheet: character.Sheet{
			Weapons: map[string]*character.Weapon{
				"longsword": {
					Name:        "Longsword",
					AttackBonus: 11,
					Damage:      "2d6",
					DamageType:  "slashing",
				},
			},
			Spellcasting: &character.Spellcasting{
				SpellSlots:   map[int]int{1: 4, 2: 3, 4: 1},
				SlotsCurrent: map[int]int{1: 4, 2: 3, 4: 1},
			},
		},
	}
}

func newTestService(chars *mockCharacterRepo, conditions []string, faces ...int) (Service, *memoryRollRepo, *capturePublisher) {
	repo := &memoryRollRepo{}
	pub := &capturePublisher{}
	svc := NewService(repo, chars, &mockConditions{names: conditions}, &scriptRoller{faces: faces}, pub)
	return svc, repo, pub
}

func expectAppError(t *testing.T, err error, code int) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected status code %d, got %d (message: %s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

// --- Raw rolls ---

func TestRoll_LogsAndBroadcasts(t *testing.T) {
	svc, repo, pub := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil, 4, 5)

	rec, err := svc.Roll(context.Background(), "2d6+3", "custom", "sneak attack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Total != 12 {
		t.Errorf("expected total 12, got %d", rec.Total)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected 1 logged roll, got %d", len(repo.records))
	}
	if len(pub.events) != 1 || pub.events[0] != broadcast.EventDiceRoll {
		t.Fatalf("expected dice_roll event, got %v", pub.events)
	}
	payload := pub.data[0].(broadcast.DiceRollPayload)
	if payload.Result != 12 || payload.AnimationClass != "normal" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestRoll_InvalidFormula(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil)
	_, err := svc.Roll(context.Background(), "d20+", "custom", "")
	expectAppError(t, err, 400)
}

func TestRoll_CriticalAnimation(t *testing.T) {
	svc, _, pub := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil, 20)

	if _, err := svc.Roll(context.Background(), "1d20+5", "save", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := pub.data[0].(broadcast.DiceRollPayload)
	if !payload.IsCritical || payload.AnimationClass != "critical" {
		t.Errorf("expected critical animation, got %+v", payload)
	}
}

// --- Attack rolls ---

func TestAttack_AppliesConditionBonuses(t *testing.T) {
	// d20 then the Bless d4.
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)},
		[]string{"Sacred Weapon", "Bless"}, 14, 3)

	result, err := svc.Attack(context.Background(), AttackInput{Weapon: "longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 14 (d20) + 11 (weapon) + 5 (Sacred Weapon) + 3 (Bless).
	if result.Total != 33 {
		t.Errorf("expected total 33, got %d", result.Total)
	}
	if len(result.Bonuses) != 2 {
		t.Fatalf("expected 2 bonuses, got %+v", result.Bonuses)
	}
	if result.Bonuses[0].Source != "Sacred Weapon" || result.Bonuses[0].Value != 5 {
		t.Errorf("unexpected first bonus: %+v", result.Bonuses[0])
	}
	if result.Bonuses[1].Source != "Bless" || result.Bonuses[1].Value != 3 {
		t.Errorf("unexpected second bonus: %+v", result.Bonuses[1])
	}
}

func TestAttack_NoBonusesWithoutConditions(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil, 14)

	result, err := svc.Attack(context.Background(), AttackInput{Weapon: "longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 25 || len(result.Bonuses) != 0 {
		t.Errorf("expected plain 25, got %+v", result)
	}
}

func TestAttack_ManualSacredWeaponModifier(t *testing.T) {
	// No tracked conditions; the player flags Sacred Weapon by hand.
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil, 14)

	result, err := svc.Attack(context.Background(), AttackInput{
		Weapon:    "longsword",
		Modifiers: AttackModifiers{SacredWeapon: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 14 (d20) + 11 (weapon) + 5 (Sacred Weapon).
	if result.Total != 30 {
		t.Errorf("expected total 30, got %d", result.Total)
	}
	if len(result.Bonuses) != 1 || result.Bonuses[0].Source != "Sacred Weapon" {
		t.Fatalf("expected manual Sacred Weapon bonus, got %+v", result.Bonuses)
	}
}

func TestAttack_BaneSubtracts(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)},
		[]string{"Bane"}, 14, 2)

	result, err := svc.Attack(context.Background(), AttackInput{Weapon: "longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 23 {
		t.Errorf("expected total 23, got %d", result.Total)
	}
	if result.Bonuses[0].Value != -2 {
		t.Errorf("expected -2 bonus, got %+v", result.Bonuses[0])
	}
}

func TestAttack_NaturalTwentyIsCritical(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil, 20)

	result, err := svc.Attack(context.Background(), AttackInput{Weapon: "Longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsCritical {
		t.Error("expected critical")
	}
}

func TestAttack_UnknownWeapon(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(14)}, nil, 14)
	_, err := svc.Attack(context.Background(), AttackInput{Weapon: "glaive"})
	expectAppError(t, err, 404)
}

// --- Damage rolls ---

func TestDamage_DivineSmiteAddsDiceAndSpendsSlot(t *testing.T) {
	chars := &mockCharacterRepo{ch: testCharacter(8)}
	// Base 2d6 then 4d8 smite (2 + slot level 2).
	svc, _, _ := newTestService(chars, nil, 3, 4, 5, 6, 2, 8)

	result, err := svc.Damage(context.Background(), DamageInput{
		Weapon:           "longsword",
		DivineSmiteLevel: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Components) != 2 {
		t.Fatalf("expected 2 components, got %+v", result.Components)
	}
	smite := result.Components[1]
	if smite.Formula != "4d8" || smite.Total != 21 {
		t.Errorf("unexpected smite component: %+v", smite)
	}
	if result.Total != 28 {
		t.Errorf("expected total 28, got %d", result.Total)
	}
	if result.SlotSpent == nil || *result.SlotSpent != 2 {
		t.Errorf("expected level 2 slot spent, got %v", result.SlotSpent)
	}
	if chars.ch.Sheet.Spellcasting.SlotsCurrent[2] != 2 {
		t.Errorf("expected 2 slots left, got %d", chars.ch.Sheet.Spellcasting.SlotsCurrent[2])
	}
	if chars.saveCalls != 1 {
		t.Errorf("expected sheet saved once, got %d", chars.saveCalls)
	}
}

func TestDamage_SmiteDiceCapAndUndeadBonus(t *testing.T) {
	chars := &mockCharacterRepo{ch: testCharacter(8)}
	svc, _, _ := newTestService(chars, nil, 1, 1, 1, 1, 1, 1, 1, 1)

	result, err := svc.Damage(context.Background(), DamageInput{
		Weapon:           "longsword",
		DivineSmiteLevel: 4,
		VersusUndead:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// min(2+4, 5) = 5 dice, plus one versus undead.
	if result.Components[1].Formula != "6d8" {
		t.Errorf("expected 6d8 smite, got %q", result.Components[1].Formula)
	}
}

func TestDamage_NoSlotsForSmite(t *testing.T) {
	ch := testCharacter(8)
	ch.Sheet.Spellcasting.SlotsCurrent[2] = 0
	svc, _, _ := newTestService(&mockCharacterRepo{ch: ch}, nil, 3, 4)

	_, err := svc.Damage(context.Background(), DamageInput{
		Weapon:           "longsword",
		DivineSmiteLevel: 2,
	})
	appErr := expectAppError(t, err, 400)
	if appErr.Type != "insufficient_resource" {
		t.Errorf("expected insufficient_resource, got %q", appErr.Type)
	}
}

func TestDamage_CriticalAddsMaxDice(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(8)}, nil, 3, 4)

	result, err := svc.Damage(context.Background(), DamageInput{
		Weapon:   "longsword",
		Critical: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3+4 rolled plus the 12 maximum of 2d6.
	if result.Total != 19 {
		t.Errorf("expected total 19, got %d", result.Total)
	}
}

func TestDamage_ImprovedSmiteWithFeature(t *testing.T) {
	ch := testCharacter(11)
	ch.Sheet.Features = map[string]*character.Feature{
		"improved_divine_smite": {Name: "Improved Divine Smite"},
	}
	svc, _, _ := newTestService(&mockCharacterRepo{ch: ch}, nil, 3, 4, 6)

	result, err := svc.Damage(context.Background(), DamageInput{Weapon: "longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Components) != 2 {
		t.Fatalf("expected weapon + Improved Divine Smite, got %+v", result.Components)
	}
	ids := result.Components[1]
	if ids.Source != "Improved Divine Smite" || ids.Total != 6 {
		t.Errorf("unexpected component: %+v", ids)
	}
	if result.Total != 13 {
		t.Errorf("expected total 13, got %d", result.Total)
	}
}

func TestDamage_NoImprovedSmiteWithoutFeature(t *testing.T) {
	// Level alone does not grant the extra die.
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(11)}, nil, 3, 4)

	result, err := svc.Damage(context.Background(), DamageInput{Weapon: "longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Components) != 1 {
		t.Fatalf("expected weapon damage only, got %+v", result.Components)
	}
}

func TestDamage_RadiantSoulAddsLevel(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(8)},
		[]string{"Radiant Soul"}, 3, 4)

	result, err := svc.Damage(context.Background(), DamageInput{Weapon: "longsword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := result.Components[len(result.Components)-1]
	if last.Source != "Radiant Soul" || last.Total != 8 {
		t.Errorf("unexpected component: %+v", last)
	}
	if result.Total != 15 {
		t.Errorf("expected total 15, got %d", result.Total)
	}
}

// --- History ---

func TestHistory_NewestFirst(t *testing.T) {
	svc, _, _ := newTestService(&mockCharacterRepo{ch: testCharacter(8)}, nil, 2, 3, 4)

	for _, formula := range []string{"1d6", "1d6+1", "1d6+2"} {
		if _, err := svc.Roll(context.Background(), formula, "custom", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	records, err := svc.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Formula != "1d6+2" {
		t.Errorf("expected newest first, got %q", records[0].Formula)
	}
}
