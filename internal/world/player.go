package world

import (
	"github.com/gridrealm/server/internal/data"
)

// SkillSet tracks per-skill experience. Levels derive from XP.
type SkillSet struct {
	xp map[string]int64
}

// MaxSkillLevel caps skill progression.
const MaxSkillLevel = 99

func NewSkillSet() *SkillSet {
	return &SkillSet{xp: make(map[string]int64)}
}

// xpForLevel is the cumulative XP needed to reach a level. Quadratic
// curve: level 2 at 100 XP, level 10 at 4,500, level 99 at ~485k.
func xpForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level)
	return 50 * l * (l - 1)
}

// Level returns the skill's current level, minimum 1.
func (s *SkillSet) Level(skill string) int {
	xp := s.xp[skill]
	level := 1
	for level < MaxSkillLevel && xp >= xpForLevel(level+1) {
		level++
	}
	return level
}

// AddXP grants experience and reports whether a level-up happened.
func (s *SkillSet) AddXP(skill string, amount int64) (leveledUp bool) {
	if amount <= 0 {
		return false
	}
	before := s.Level(skill)
	s.xp[skill] += amount
	return s.Level(skill) > before
}

// XP returns raw experience in a skill.
func (s *SkillSet) XP(skill string) int64 { return s.xp[skill] }

// SetXP loads experience from the warm tier.
func (s *SkillSet) SetXP(skill string, xp int64) { s.xp[skill] = xp }

// ToMap copies the raw XP table for wire/DB use.
func (s *SkillSet) ToMap() map[string]int64 {
	out := make(map[string]int64, len(s.xp))
	for k, v := range s.xp {
		out[k] = v
	}
	return out
}

// Known tracks what one session has been told exists, so broadcasts can
// diff instead of resending the world every tick.
type Known struct {
	Players     map[int64]struct{}
	Entities    map[int64]struct{}
	GroundItems map[int64]struct{}
}

func newKnown() *Known {
	return &Known{
		Players:     make(map[int64]struct{}),
		Entities:    make(map[int64]struct{}),
		GroundItems: make(map[int64]struct{}),
	}
}

// PlayerInfo is the per-session runtime the tick loop and handlers
// share: identity, containers, skills, and broadcast bookkeeping.
// Position and HP truth lives in the hot store; this never duplicates
// it.
type PlayerInfo struct {
	SessionID int64
	PlayerID  int64
	Username  string
	Role      string

	Appearance Appearance
	Inventory  *Inventory
	Equipment  *Equipment
	Skills     *SkillSet

	Known *Known

	// StateDirty marks the personal warm stream (inventory, equipment,
	// stats) for the next 5 Hz flush.
	StateDirty bool
	// PersistDirty marks the record for the next warm-tier flush.
	PersistDirty bool

	send func(frameType string, payload any)
}

// NewPlayerInfo wires a runtime record to its session send function.
func NewPlayerInfo(sessionID, playerID int64, username, role string, items *data.ItemTable, send func(frameType string, payload any)) *PlayerInfo {
	return &PlayerInfo{
		SessionID:  sessionID,
		PlayerID:   playerID,
		Username:   username,
		Role:       role,
		Appearance: DefaultAppearance(),
		Inventory:  NewInventory(items),
		Equipment:  NewEquipment(items),
		Skills:     NewSkillSet(),
		Known:      newKnown(),
		send:       send,
	}
}

// Send queues an event frame on the player's session.
func (p *PlayerInfo) Send(frameType string, payload any) {
	if p.send != nil {
		p.send(frameType, payload)
	}
}

// VisualState assembles the player's current renderable state.
func (p *PlayerInfo) VisualState() *VisualState {
	return &VisualState{
		Appearance:      p.Appearance.ToMap(),
		EquippedVisuals: p.Equipment.Visuals(),
	}
}

// IsAdmin reports whether the player may use admin commands.
func (p *PlayerInfo) IsAdmin() bool { return p.Role == "admin" }

// CombatStats folds equipment bonuses for combat rolls.
func (p *PlayerInfo) CombatStats() data.Stats {
	return p.Equipment.StatTotals()
}
