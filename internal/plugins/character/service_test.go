package character

import (
	"context"
	"errors"
	"testing"

	"github.com/dmowen/warsheet/internal/apperror"
)

// --- Mocks ---

type mockRepo struct {
	ch        *Character
	saved     *Sheet
	saveCalls int
	loadErr   error
	saveErr   error
}

func (m *mockRepo) Load(context.Context) (*Character, error) {
	return m.ch, m.loadErr
}

func (m *mockRepo) SaveSheet(_ context.Context, sheet *Sheet) error {
	m.saveCalls++
	m.saved = sheet
	return m.saveErr
}

func (m *mockRepo) Seed(context.Context, *Character) (bool, error) {
	return false, nil
}

type mockConditions struct {
	names []string
}

func (m *mockConditions) ActiveConditionNames(context.Context) ([]string, error) {
	return m.names, nil
}

type mockApplier struct {
	name   string
	rounds *int
	calls  int
}

func (m *mockApplier) Apply(_ context.Context, name string, rounds *int) error {
	m.calls++
	m.name = name
	m.rounds = rounds
	return nil
}

// scriptRoller returns faces from a fixed script, in order.
type scriptRoller struct {
	faces []int
	i     int
}

func (r *scriptRoller) RollDie(int) int {
	if r.i >= len(r.faces) {
		return 1
	}
	v := r.faces[r.i]
	r.i++
	return v
}

func testCharacter() *Character {
	return &Character{
		ID:    1,
		Level: 14,
		Sheet: Sheet{
			Stats: Stats{
				Constitution: 16,
				AC:           20,
				HPCurrent:    80,
				HPMax:        117,
				TempHP:       0,
				HitDie:       10,
			},
			Features: map[string]*Feature{
				"lay_on_hands": {
					Name: "Lay on Hands", Pool: 70, PoolMax: 70, Recharge: RechargeLongRest,
				},
				"channel_divinity": {
					Name: "Channel Divinity", Uses: 0, UsesMax: 1, Recharge: RechargeShortRest,
				},
				"divine_sense": {
					Name: "Divine Sense", Uses: 2, UsesMax: 5, Recharge: RechargeLongRest,
				},
			},
			Spellcasting: &Spellcasting{
				SpellSlots:   map[int]int{1: 4, 2: 3},
				SlotsCurrent: map[int]int{1: 1, 2: 0},
			},
			Weapons: map[string]*Weapon{
				"wand": {Name: "Wand of the War Mage", Charges: 0, ChargesMax: 3},
			},
		},
	}
}

func newTestService(repo *mockRepo, conditions []string, faces ...int) Service {
	return NewService(repo, &mockConditions{names: conditions}, &mockApplier{}, &scriptRoller{faces: faces})
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

func intPtr(v int) *int { return &v }

// --- Get ---

func TestGet_AppliesConditionOverlay(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, []string{"Shield of Faith", "Bless"})

	ch, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Sheet.Stats.AC != 22 {
		t.Errorf("expected AC 22 with Shield of Faith, got %d", ch.Sheet.Stats.AC)
	}
	if len(ch.Sheet.Stats.ACBonuses) != 1 || ch.Sheet.Stats.ACBonuses[0] != "Shield of Faith +2" {
		t.Errorf("unexpected AC bonuses: %v", ch.Sheet.Stats.ACBonuses)
	}
	if len(ch.Sheet.ActiveConditions) != 2 {
		t.Errorf("expected 2 active conditions, got %v", ch.Sheet.ActiveConditions)
	}
}

func TestGet_NoOverlayWithoutConditions(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	ch, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Sheet.Stats.AC != 20 || len(ch.Sheet.Stats.ACBonuses) != 0 {
		t.Errorf("expected untouched AC, got %d %v", ch.Sheet.Stats.AC, ch.Sheet.Stats.ACBonuses)
	}
}

// --- Hit points ---

func TestUpdateHP_ClampsToRange(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{999, 117},
		{-5, 0},
		{60, 60},
		{0, 0},
		{117, 117},
	}
	for _, tt := range tests {
		repo := &mockRepo{ch: testCharacter()}
		svc := newTestService(repo, nil)

		state, err := svc.UpdateHP(context.Background(), intPtr(tt.requested), nil)
		if err != nil {
			t.Fatalf("hp %d: unexpected error: %v", tt.requested, err)
		}
		if state.HP != tt.want {
			t.Errorf("hp %d: expected %d, got %d", tt.requested, tt.want, state.HP)
		}
	}
}

func TestUpdateHP_NothingToUpdate(t *testing.T) {
	svc := newTestService(&mockRepo{ch: testCharacter()}, nil)
	_, err := svc.UpdateHP(context.Background(), nil, nil)
	expectAppError(t, err, 400)
}

func TestAdjustHP_TempAbsorbsDamageFirst(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Stats.TempHP = 5
	svc := newTestService(repo, nil)

	adj, err := svc.AdjustHP(context.Background(), -3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adj.TempHP != 2 || adj.HP != 80 || adj.Absorbed != 3 {
		t.Errorf("unexpected adjustment: %+v", adj)
	}
}

func TestAdjustHP_DamageOverflowsTemp(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Stats.TempHP = 5
	svc := newTestService(repo, nil)

	adj, err := svc.AdjustHP(context.Background(), -8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adj.TempHP != 0 || adj.HP != 77 || adj.Absorbed != 5 {
		t.Errorf("unexpected adjustment: %+v", adj)
	}
}

func TestAdjustHP_DamageFloorsAtZero(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	adj, err := svc.AdjustHP(context.Background(), -500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adj.HP != 0 {
		t.Errorf("expected 0 HP, got %d", adj.HP)
	}
}

func TestAdjustHP_HealClampsToMax(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	adj, err := svc.AdjustHP(context.Background(), 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adj.HP != 117 {
		t.Errorf("expected max HP 117, got %d", adj.HP)
	}
	if adj.TempHP != 0 {
		t.Errorf("healing must not grant temp HP, got %d", adj.TempHP)
	}
}

func TestGrantTempHP_DoesNotStack(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Stats.TempHP = 8
	svc := newTestService(repo, nil)

	state, err := svc.GrantTempHP(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.TempHP != 8 {
		t.Errorf("expected temp HP to stay at 8, got %d", state.TempHP)
	}

	state, err = svc.GrantTempHP(context.Background(), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.TempHP != 12 {
		t.Errorf("expected temp HP 12, got %d", state.TempHP)
	}
}

func TestGrantTempHP_RejectsNegative(t *testing.T) {
	svc := newTestService(&mockRepo{ch: testCharacter()}, nil)
	_, err := svc.GrantTempHP(context.Background(), -1)
	expectAppError(t, err, 400)
}

// --- Rests ---

func TestShortRest_RestoresFeaturesAndRollsHitDice(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil, 6, 4)

	result, err := svc.ShortRest(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Restored) != 1 || result.Restored[0] != "Channel Divinity" {
		t.Errorf("unexpected restored list: %v", result.Restored)
	}
	if repo.ch.Sheet.Features["channel_divinity"].Uses != 1 {
		t.Error("expected Channel Divinity restored")
	}
	if repo.ch.Sheet.Features["divine_sense"].Uses != 2 {
		t.Error("long-rest feature must not restore on a short rest")
	}
	// Two d10 hit dice with +3 Constitution: (6+3) + (4+3) = 16.
	if result.Healing == nil || result.Healing.Total != 16 {
		t.Fatalf("expected 16 healing, got %+v", result.Healing)
	}
	if result.Healing.NewHP != 96 {
		t.Errorf("expected 96 HP, got %d", result.Healing.NewHP)
	}
}

func TestShortRest_NoHitDiceNoHealing(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	result, err := svc.ShortRest(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Healing != nil {
		t.Errorf("expected no healing, got %+v", result.Healing)
	}
}

func TestShortRest_CapsHitDiceAtLevel(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	result, err := svc.ShortRest(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Healing.Rolls) != 14 {
		t.Errorf("expected 14 hit dice at level 14, got %d", len(result.Healing.Rolls))
	}
}

func TestLongRest_RestoresEverything(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Stats.TempHP = 7
	repo.ch.Sheet.Features["lay_on_hands"].Pool = 10
	svc := newTestService(repo, nil)

	result, err := svc.LongRest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := repo.ch.Sheet.Stats
	if stats.HPCurrent != stats.HPMax {
		t.Errorf("expected full HP, got %d", stats.HPCurrent)
	}
	if stats.TempHP != 0 {
		t.Errorf("expected temp HP reset, got %d", stats.TempHP)
	}
	if repo.ch.Sheet.Features["lay_on_hands"].Pool != 70 {
		t.Error("expected Lay on Hands pool restored")
	}
	if repo.ch.Sheet.Features["divine_sense"].Uses != 5 {
		t.Error("expected Divine Sense restored")
	}
	sc := repo.ch.Sheet.Spellcasting
	if sc.SlotsCurrent[1] != 4 || sc.SlotsCurrent[2] != 3 {
		t.Errorf("expected full slots, got %v", sc.SlotsCurrent)
	}
	if repo.ch.Sheet.Weapons["wand"].Charges != 3 {
		t.Error("expected weapon charges restored")
	}
	if len(result.Restored) == 0 || result.Restored[0] != "Hit Points" {
		t.Errorf("unexpected restored list: %v", result.Restored)
	}
}

// --- Features ---

func TestUseFeature_LayOnHandsHeals(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	result, err := svc.UseFeature(context.Background(), UseFeatureInput{
		Feature: "lay_on_hands",
		Amount:  20,
		Action:  "heal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Remaining != 50 {
		t.Errorf("expected 50 points left, got %d", result.Remaining)
	}
	if result.Healing == nil || result.Healing.Amount != 20 || result.Healing.NewHP != 100 {
		t.Errorf("unexpected healing: %+v", result.Healing)
	}
}

func TestUseFeature_LayOnHandsClampsHealingToMissingHP(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Stats.HPCurrent = 110
	svc := newTestService(repo, nil)

	result, err := svc.UseFeature(context.Background(), UseFeatureInput{
		Feature: "lay_on_hands",
		Amount:  20,
		Action:  "heal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Healing.Amount != 7 || result.Healing.NewHP != 117 {
		t.Errorf("unexpected healing: %+v", result.Healing)
	}
	// The pool still spends the full amount.
	if result.Remaining != 50 {
		t.Errorf("expected 50 points left, got %d", result.Remaining)
	}
}

func TestUseFeature_LayOnHandsCureSpendsWithoutHealing(t *testing.T) {
	// Spending points to cure a disease or poison leaves HP alone.
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Stats.HPCurrent = 50
	svc := newTestService(repo, nil)

	result, err := svc.UseFeature(context.Background(), UseFeatureInput{
		Feature: "lay_on_hands",
		Amount:  5,
		Action:  "cure",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Healing != nil {
		t.Errorf("expected no healing, got %+v", result.Healing)
	}
	if repo.ch.Sheet.Stats.HPCurrent != 50 {
		t.Errorf("expected HP unchanged, got %d", repo.ch.Sheet.Stats.HPCurrent)
	}
	if result.Remaining != 65 {
		t.Errorf("expected 65 points left, got %d", result.Remaining)
	}
}

func TestUseFeature_LayOnHandsPoolExhausted(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Features["lay_on_hands"].Pool = 3
	svc := newTestService(repo, nil)

	_, err := svc.UseFeature(context.Background(), UseFeatureInput{
		Feature: "lay_on_hands",
		Amount:  10,
	})
	appErr := expectAppError(t, err, 400)
	if appErr.Type != "insufficient_resource" {
		t.Errorf("expected insufficient_resource, got %q", appErr.Type)
	}
}

func TestUseFeature_CountedFeatureDecrements(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	result, err := svc.UseFeature(context.Background(), UseFeatureInput{Feature: "divine_sense"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Remaining != 1 {
		t.Errorf("expected 1 use left, got %d", result.Remaining)
	}
}

func TestUseFeature_NoUsesLeft(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	_, err := svc.UseFeature(context.Background(), UseFeatureInput{Feature: "channel_divinity"})
	appErr := expectAppError(t, err, 400)
	if appErr.Type != "insufficient_resource" {
		t.Errorf("expected insufficient_resource, got %q", appErr.Type)
	}
}

func TestUseFeature_UnknownFeature(t *testing.T) {
	svc := newTestService(&mockRepo{ch: testCharacter()}, nil)
	_, err := svc.UseFeature(context.Background(), UseFeatureInput{Feature: "rage"})
	expectAppError(t, err, 400)
}

func TestUseFeature_DurationBecomesCondition(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	repo.ch.Sheet.Features["channel_divinity"].Uses = 1
	applier := &mockApplier{}
	svc := NewService(repo, &mockConditions{}, applier, &scriptRoller{})

	_, err := svc.UseFeature(context.Background(), UseFeatureInput{
		Feature:  "channel_divinity",
		Name:     "Sacred Weapon",
		Duration: "1 minute",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applier.calls != 1 || applier.name != "Sacred Weapon" {
		t.Fatalf("expected Sacred Weapon condition, got %+v", applier)
	}
	if applier.rounds == nil || *applier.rounds != 10 {
		t.Errorf("expected 10 rounds, got %v", applier.rounds)
	}
}

func TestUseFeature_InstantaneousDurationSkipsCondition(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	applier := &mockApplier{}
	svc := NewService(repo, &mockConditions{}, applier, &scriptRoller{})

	_, err := svc.UseFeature(context.Background(), UseFeatureInput{
		Feature:  "divine_sense",
		Duration: "Instantaneous",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applier.calls != 0 {
		t.Errorf("expected no condition, got %+v", applier)
	}
}

// --- Combat access ---

func TestSetCurrentHP_Clamps(t *testing.T) {
	repo := &mockRepo{ch: testCharacter()}
	svc := newTestService(repo, nil)

	if err := svc.SetCurrentHP(context.Background(), 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.ch.Sheet.Stats.HPCurrent != 117 {
		t.Errorf("expected clamp to 117, got %d", repo.ch.Sheet.Stats.HPCurrent)
	}

	hp, err := svc.CurrentHP(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hp != 117 {
		t.Errorf("expected 117, got %d", hp)
	}
}
