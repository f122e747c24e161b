// Package rolls exposes the dice endpoints: raw formula rolls, attack
// rolls with active-condition bonuses, damage rolls with smite and crit
// handling, and the persisted roll history.
package rolls

import "time"

// DiceRollRecord is one logged roll, kept for the history panel.
type DiceRollRecord struct {
	ID         int       `json:"id"`
	Formula    string    `json:"formula"`
	RollType   string    `json:"rollType"`
	Details    string    `json:"details,omitempty"`
	Rolls      []int     `json:"rolls"`
	Modifier   int       `json:"modifier"`
	Total      int       `json:"total"`
	IsCritical bool      `json:"isCritical"`
	IsFumble   bool      `json:"isFumble"`
	CreatedAt  time.Time `json:"created_at"`
}

// RollBonus is one additive bonus applied to an attack roll, either a
// flat value or a rolled die.
type RollBonus struct {
	Source string `json:"source"`
	Roll   *int   `json:"roll,omitempty"`
	Value  int    `json:"value"`
}

// AttackResult is a resolved attack roll.
type AttackResult struct {
	Weapon     string      `json:"weapon"`
	D20        int         `json:"d20"`
	Bonus      int         `json:"bonus"`
	Bonuses    []RollBonus `json:"bonuses,omitempty"`
	Total      int         `json:"total"`
	IsCritical bool        `json:"isCritical"`
	IsFumble   bool        `json:"isFumble"`
}

// DamageComponent is one source of damage in a damage roll.
type DamageComponent struct {
	Source     string `json:"source"`
	Formula    string `json:"formula"`
	Rolls      []int  `json:"rolls"`
	Total      int    `json:"total"`
	DamageType string `json:"damage_type,omitempty"`
}

// DamageResult is a resolved damage roll with its component breakdown.
type DamageResult struct {
	Weapon     string            `json:"weapon"`
	Components []DamageComponent `json:"components"`
	Total      int               `json:"total"`
	Critical   bool              `json:"critical"`
	SlotSpent  *int              `json:"slotSpent,omitempty"`
}

// AttackModifiers are manual bonus toggles for an attack roll, used when
// the player wants a bonus the condition registry does not show as active.
type AttackModifiers struct {
	SacredWeapon bool `json:"sacredWeapon"`
}

// AttackInput selects the weapon and manual modifiers for an attack roll.
type AttackInput struct {
	Weapon    string
	Modifiers AttackModifiers
}

// DamageInput selects the weapon and damage options.
type DamageInput struct {
	Weapon           string
	Critical         bool
	DivineSmiteLevel int
	VersusUndead     bool
}
