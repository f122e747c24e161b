// Package character manages the tracked character: the persistent sheet
// document (stats, features, spellcasting, weapons, inventory) and the
// combat state that hangs off it — hit points, temporary hit points,
// rests, and feature resource spending.
//
// Warsheet tracks exactly one character; the aggregate always lives at a
// fixed row and operations are not parameterized by character ID.
package character

import "time"

// Feature recharge cadences.
const (
	RechargeShortRest = "short_rest"
	RechargeLongRest  = "long_rest"
)

// Character is the root aggregate: identity columns, the JSON sheet
// document, and the flat combat-state columns that the combat plugin
// maintains. It is read as one unit so the dashboard renders from a
// single response.
type Character struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Class      string `json:"class"`
	Subclass   string `json:"subclass,omitempty"`
	Race       string `json:"race,omitempty"`
	Subrace    string `json:"subrace,omitempty"`
	Background string `json:"background,omitempty"`

	Sheet Sheet `json:"data"`

	// Death saves.
	DeathSaveSuccesses int  `json:"death_saves_successes"`
	DeathSaveFailures  int  `json:"death_saves_failures"`
	IsStable           bool `json:"is_stable"`

	// Concentration.
	ConcentrationSpell      *string `json:"concentration_spell"`
	ConcentrationDuration   *int    `json:"concentration_duration"`
	ConcentrationRoundsLeft *int    `json:"concentration_rounds_left"`
	ConcentrationDC         int     `json:"concentration_dc"`

	// Combat tracker.
	Initiative   int  `json:"initiative"`
	InCombat     bool `json:"in_combat"`
	CurrentRound int  `json:"current_round"`
	ReactionUsed bool `json:"reaction_used"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Sheet is the nested attribute document stored as one JSON column and
// always mutated as a whole (read-modify-write).
type Sheet struct {
	Info         Info                `json:"character_info"`
	Stats        Stats               `json:"stats"`
	Features     map[string]*Feature `json:"features"`
	Spellcasting *Spellcasting       `json:"spellcasting,omitempty"`
	Spells       map[string][]Spell  `json:"spells,omitempty"`
	Weapons      map[string]*Weapon  `json:"weapons,omitempty"`
	Inventory    []Item              `json:"inventory,omitempty"`
	Money        Money               `json:"money"`
	SessionNotes string              `json:"session_notes,omitempty"`

	// ActiveConditions and Stats.ACBonuses are a derived overlay computed
	// on read; they are never persisted.
	ActiveConditions []string `json:"active_conditions,omitempty"`
}

// Info mirrors the identity block inside the sheet document.
type Info struct {
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Class      string `json:"class"`
	Subclass   string `json:"subclass,omitempty"`
	Race       string `json:"race,omitempty"`
	Subrace    string `json:"subrace,omitempty"`
	Background string `json:"background,omitempty"`
}

// Stats holds ability scores and the combat-relevant numbers.
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`

	AC               int      `json:"ac"`
	ACBonuses        []string `json:"ac_bonuses,omitempty"`
	Speed            int      `json:"speed"`
	ProficiencyBonus int      `json:"proficiency_bonus"`

	HPCurrent int `json:"hp_current"`
	HPMax     int `json:"hp_max"`
	TempHP    int `json:"temp_hp"`

	// HitDie is the size of the class hit die (10 for a paladin),
	// used for short-rest hit dice healing.
	HitDie int `json:"hit_die"`
}

// ConstitutionModifier returns the ability modifier for Constitution,
// flooring toward negative infinity for scores below 10.
func (s Stats) ConstitutionModifier() int {
	return abilityModifier(s.Constitution)
}

func abilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		// Integer division truncates toward zero; shift so 9 -> -1.
		return (d - 1) / 2
	}
	return d / 2
}

// Feature is a class or racial resource pool. Uses-based features
// (Channel Divinity, Divine Sense) track Uses/UsesMax; point-pool
// features (Lay on Hands) track Pool/PoolMax.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Uses        int    `json:"uses,omitempty"`
	UsesMax     int    `json:"uses_max,omitempty"`
	Pool        int    `json:"pool,omitempty"`
	PoolMax     int    `json:"pool_max,omitempty"`
	Recharge    string `json:"recharge,omitempty"`
}

// Spellcasting tracks slot maximums and current counts per spell level.
// Keys are spell levels 1-9.
type Spellcasting struct {
	Ability       string      `json:"ability,omitempty"`
	SaveDC        int         `json:"save_dc,omitempty"`
	AttackBonus   int         `json:"attack_bonus,omitempty"`
	SpellSlots    map[int]int `json:"spell_slots"`
	SlotsCurrent  map[int]int `json:"spell_slots_current"`
	PreparedCount int         `json:"prepared_count,omitempty"`
}

// Spell is a catalog entry grouped by level under Sheet.Spells.
type Spell struct {
	Name          string `json:"name"`
	Duration      string `json:"duration,omitempty"`
	Concentration bool   `json:"concentration,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Weapon describes an equipped weapon, including optional magic damage
// dice and limited charges restored on a long rest.
type Weapon struct {
	Name            string `json:"name"`
	AttackBonus     int    `json:"attack_bonus"`
	Damage          string `json:"damage"`
	DamageType      string `json:"damage_type"`
	MagicDamage     string `json:"magic_damage,omitempty"`
	MagicDamageType string `json:"magic_damage_type,omitempty"`
	Charges         int    `json:"charges,omitempty"`
	ChargesMax      int    `json:"charges_max,omitempty"`
}

// Item is an inventory entry. Inventory management is handled by the
// client; the server only restores charge-based items on a long rest.
type Item struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity,omitempty"`
	Charges    int    `json:"charges,omitempty"`
	ChargesMax int    `json:"charges_max,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Money is the coin purse.
type Money struct {
	PP int `json:"pp"`
	GP int `json:"gp"`
	EP int `json:"ep"`
	SP int `json:"sp"`
	CP int `json:"cp"`
}

// --- DTOs ---

// HPState reports hit points after a mutation.
type HPState struct {
	HP     int `json:"hp"`
	TempHP int `json:"tempHp"`
}

// HPAdjustment reports the outcome of a damage/heal delta, including how
// much temporary HP absorbed the hit.
type HPAdjustment struct {
	HP       int `json:"hp"`
	TempHP   int `json:"tempHp"`
	Absorbed int `json:"absorbed,omitempty"`
}

// HitDiceRoll is one spent hit die during a short rest.
type HitDiceRoll struct {
	Roll    int `json:"roll"`
	Healing int `json:"healing"`
}

// RestHealing summarizes hit-dice healing applied during a short rest.
type RestHealing struct {
	Total int           `json:"total"`
	Rolls []HitDiceRoll `json:"rolls"`
	NewHP int           `json:"newHP"`
}

// RestResult is the manifest of what a rest restored, for UI display.
type RestResult struct {
	Restored []string     `json:"restored"`
	Healing  *RestHealing `json:"healing,omitempty"`
}

// UseFeatureInput is the validated input for spending a feature resource.
type UseFeatureInput struct {
	Feature  string
	Amount   int
	Action   string
	Name     string
	Duration string
}

// FeatureHealing reports HP gained from a pool-based heal, where the
// effective healing is clamped to missing HP.
type FeatureHealing struct {
	Amount int `json:"amount"`
	NewHP  int `json:"newHP"`
}

// FeatureResult reports a feature use.
type FeatureResult struct {
	Message   string          `json:"message"`
	Remaining int             `json:"remaining"`
	Healing   *FeatureHealing `json:"healing,omitempty"`
}
