package game

import (
	"sync"

	"github.com/gridrealm/server/internal/proto"
)

// Target kinds on the wire.
const (
	TargetEntity = "entity"
	TargetPlayer = "player"
)

// Effects collects per-map transient combat output (hit splats, combat
// actions) during a tick; the broadcast phase drains it. AI and combat
// run on per-map workers while handlers run on the input phase, so the
// buffer locks.
type Effects struct {
	mu      sync.Mutex
	splats  map[string][]proto.HitSplat
	actions map[string][]proto.CombatActionPayload
}

func NewEffects() *Effects {
	return &Effects{
		splats:  make(map[string][]proto.HitSplat),
		actions: make(map[string][]proto.CombatActionPayload),
	}
}

// AddHit records one resolved swing on a map.
func (e *Effects) AddHit(mapID string, action proto.CombatActionPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actions[mapID] = append(e.actions[mapID], action)
	e.splats[mapID] = append(e.splats[mapID], proto.HitSplat{
		TargetKind: action.TargetKind,
		TargetID:   action.TargetID,
		Damage:     action.Damage,
		Miss:       !action.Hit,
	})
}

// Drain removes and returns the map's buffered effects.
func (e *Effects) Drain(mapID string) ([]proto.HitSplat, []proto.CombatActionPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	splats, actions := e.splats[mapID], e.actions[mapID]
	delete(e.splats, mapID)
	delete(e.actions, mapID)
	return splats, actions
}

// CombatProfile is one side of an exchange, already folded from levels
// and equipment bonuses.
type CombatProfile struct {
	AttackLevel   int
	StrengthLevel int
	DefenceLevel  int
	AttackBonus   int
	StrengthBonus int
	DefenceBonus  int
}

// MaxHit is the damage ceiling for the profile's swings.
func (p CombatProfile) MaxHit() int {
	return 1 + (p.StrengthLevel+p.StrengthBonus)/4
}

// RollAttack resolves one swing. Accuracy is the attacker's effective
// attack against the defender's effective defence; a hit rolls uniform
// damage in [1, MaxHit]. randInt(n) must return a uniform value in
// [0, n).
func RollAttack(attacker, defender CombatProfile, randInt func(int) int) (hit bool, damage int) {
	atk := attacker.AttackLevel + attacker.AttackBonus + 8
	def := defender.DefenceLevel + defender.DefenceBonus + 8
	if randInt(atk+def) >= def {
		hit = true
		damage = 1 + randInt(attacker.MaxHit())
	}
	return hit, damage
}

// MeleeXP converts damage dealt into attack/strength/hitpoints XP.
func MeleeXP(damage int) map[string]int64 {
	if damage <= 0 {
		return nil
	}
	d := int64(damage)
	return map[string]int64{
		"attack":    d * 4,
		"strength":  d * 4,
		"hitpoints": d * 2,
	}
}
