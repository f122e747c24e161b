package character

// DefaultCharacter is the sheet inserted on first boot when the
// database has no character yet. It describes a level 14 Oath of
// Devotion paladin with the standard complement of class features.
func DefaultCharacter() *Character {
	return &Character{
		Name:       "Thalric Dawnward",
		Level:      14,
		Class:      "Paladin",
		Subclass:   "Oath of Devotion",
		Race:       "Human",
		Background: "Soldier",
		Sheet: Sheet{
			Info: Info{
				Name:       "Thalric Dawnward",
				Level:      14,
				Class:      "Paladin",
				Subclass:   "Oath of Devotion",
				Race:       "Human",
				Background: "Soldier",
			},
			Stats: Stats{
				Strength:     20,
				Dexterity:    10,
				Constitution: 16,
				Intelligence: 10,
				Wisdom:       12,
				Charisma:     18,

				AC:               20,
				Speed:            30,
				ProficiencyBonus: 5,

				HPCurrent: 117,
				HPMax:     117,
				TempHP:    0,
				HitDie:    10,
			},
			Features: map[string]*Feature{
				"lay_on_hands": {
					Name:        "Lay on Hands",
					Description: "Restore hit points from a pool of 5 x paladin level.",
					Pool:        70,
					PoolMax:     70,
					Recharge:    RechargeLongRest,
				},
				"channel_divinity": {
					Name:        "Channel Divinity",
					Description: "Sacred Weapon or Turn the Unholy.",
					Uses:        1,
					UsesMax:     1,
					Recharge:    RechargeShortRest,
				},
				"divine_sense": {
					Name:        "Divine Sense",
					Description: "Detect celestials, fiends and undead within 60 feet.",
					Uses:        5,
					UsesMax:     5,
					Recharge:    RechargeLongRest,
				},
				"cleansing_touch": {
					Name:        "Cleansing Touch",
					Description: "End one spell on yourself or a willing creature you touch.",
					Uses:        4,
					UsesMax:     4,
					Recharge:    RechargeLongRest,
				},
				"improved_divine_smite": {
					Name:        "Improved Divine Smite",
					Description: "Melee weapon hits deal an extra 1d8 radiant damage.",
				},
			},
			Spellcasting: &Spellcasting{
				Ability:     "Charisma",
				SaveDC:      17,
				AttackBonus: 9,
				SpellSlots: map[int]int{
					1: 4, 2: 3, 3: 3, 4: 1,
				},
				SlotsCurrent: map[int]int{
					1: 4, 2: 3, 3: 3, 4: 1,
				},
			},
			Spells: map[string][]Spell{
				"1": {
					{Name: "Bless", Duration: "1 minute", Concentration: true},
					{Name: "Shield of Faith", Duration: "10 minutes", Concentration: true},
					{Name: "Divine Favor", Duration: "1 minute", Concentration: true},
					{Name: "Cure Wounds", Duration: "Instantaneous"},
				},
				"2": {
					{Name: "Aid", Duration: "8 hours"},
					{Name: "Lesser Restoration", Duration: "Instantaneous"},
				},
				"3": {
					{Name: "Haste", Duration: "1 minute", Concentration: true},
					{Name: "Revivify", Duration: "Instantaneous"},
					{Name: "Dispel Magic", Duration: "Instantaneous"},
				},
				"4": {
					{Name: "Death Ward", Duration: "8 hours"},
				},
			},
			Weapons: map[string]*Weapon{
				"dawnbringer": {
					Name:            "Dawnbringer",
					AttackBonus:     11,
					Damage:          "1d8+6",
					DamageType:      "slashing",
					MagicDamage:     "1d8",
					MagicDamageType: "radiant",
				},
				"javelin": {
					Name:        "Javelin",
					AttackBonus: 10,
					Damage:      "1d6+5",
					DamageType:  "piercing",
				},
			},
			Inventory: []Item{
				{Name: "Potion of Greater Healing", Quantity: 2},
				{Name: "Holy Symbol of Lathander", Quantity: 1},
			},
			Money: Money{GP: 212, SP: 40},
		},
	}
}
