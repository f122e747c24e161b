// Package broadcast implements the real-time event channel between the
// server and connected clients (dashboard and read-only viewer).
//
// Handlers publish events to a Redis pub/sub channel after their database
// writes commit; the Hub subscribes to that channel and fans each event out
// to every connected WebSocket. Delivery is best-effort, at-most-once per
// connected session: a client that misses events while disconnected is
// expected to re-fetch full state on reconnect. The channel keeps no
// backlog.
package broadcast

// Event names carried on the wire. Clients switch on these.
const (
	EventDiceRoll             = "dice_roll"
	EventConditionAdded       = "condition_added"
	EventConditionRemoved     = "condition_removed"
	EventConcentrationStarted = "concentration_started"
	EventConcentrationEnded   = "concentration_ended"
	EventCombatStarted        = "combat_started"
	EventCombatEnded          = "combat_ended"
	EventRoundAdvanced        = "round_advanced"
	EventTurnAdvanced         = "turn_advanced"
	EventDeathSaveRolled      = "death_save_rolled"
	EventSpellCast            = "spell_cast"
)

// Envelope is the wire format for every broadcast message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// DiceRollPayload carries a roll outcome plus display metadata for the
// viewer's roll ticker.
type DiceRollPayload struct {
	Result         int    `json:"result"`
	Formula        string `json:"formula"`
	RollType       string `json:"rollType"`
	Details        string `json:"details,omitempty"`
	Rolls          []int  `json:"rolls,omitempty"`
	Modifier       int    `json:"modifier"`
	IsCritical     bool   `json:"is_critical"`
	IsFumble       bool   `json:"is_fumble"`
	AnimationClass string `json:"animation_class"`
	Timestamp      string `json:"timestamp"`
}

// ConditionPayload describes a condition being added or removed.
type ConditionPayload struct {
	Name          string `json:"name"`
	DurationType  string `json:"duration_type,omitempty"`
	DurationValue *int   `json:"duration_value,omitempty"`
}

// ConcentrationPayload describes a concentration spell starting or ending.
// Reason is set only on concentration_ended: "manual", "new_spell", or
// "duration".
type ConcentrationPayload struct {
	Spell    string `json:"spell"`
	Duration *int   `json:"duration,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CombatPayload carries the initiative recorded at combat start.
type CombatPayload struct {
	Initiative int `json:"initiative"`
}

// RoundPayload carries the new round number after an advance or reset.
type RoundPayload struct {
	Round int `json:"round"`
}

// DeathSavePayload carries a full death-save roll outcome plus a narrative
// message for the viewer.
type DeathSavePayload struct {
	Roll      int    `json:"roll"`
	Result    string `json:"result"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SpellCastPayload feeds the shared activity log; it is display-only and
// never authoritative state.
type SpellCastPayload struct {
	Spell   string `json:"spell"`
	Level   int    `json:"level"`
	Effect  string `json:"effect,omitempty"`
	Details string `json:"details,omitempty"`
}
