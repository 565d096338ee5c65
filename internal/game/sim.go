package game

import (
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/config"
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// Tick-denominated timing for ground items and death handling.
const (
	// GroundItemTTLTicks is how long a dropped stack survives (3 min
	// at 20 Hz).
	GroundItemTTLTicks = 3600
	// LootProtectionTicks is how long a drop stays owner-only (1 min).
	LootProtectionTicks = 1200
	// DyingWindowTicks is the on-screen death pause before respawn.
	DyingWindowTicks = 40
	// EntityDyingTicks keeps a killed entity's corpse visible for the
	// death animation before it despawns into the respawn queue.
	EntityDyingTicks = 20
	// RespawnSearchRadius bounds the spiral search for a free spawn
	// tile.
	RespawnSearchRadius = 3
)

// Sim bundles the simulation dependencies every system and handler
// shares, plus the cross-cutting rules: damage application, death,
// drops, respawn.
type Sim struct {
	Cfg     *config.Config
	Store   *store.Store
	Maps    *data.MapSet
	State   *world.State
	Items   *data.ItemTable
	Ents    *data.EntityTable
	Effects *Effects
	Log     *zap.Logger

	// RandInt returns a uniform value in [0, n). Injected for
	// deterministic tests.
	RandInt func(n int) int
}

// Occupancy builds the set of tiles actors stand on, for pathing and
// movement checks. The mover itself must be excluded by the caller via
// skip keys from PlayerKey/EntityKey.
func (s *Sim) Occupancy(mapID string, skip map[string]struct{}) map[Point]struct{} {
	occ := make(map[Point]struct{})
	for _, p := range s.Store.GetPlayersOnMap(mapID) {
		if _, ok := skip[world.PlayerKey(p.PlayerID)]; ok {
			continue
		}
		occ[Point{p.X, p.Y}] = struct{}{}
	}
	for _, e := range s.Store.GetMapEntities(mapID) {
		if e.State == store.StateDying || e.State == store.StateDead {
			continue
		}
		if _, ok := skip[world.EntityKey(e.InstanceID)]; ok {
			continue
		}
		occ[Point{e.X, e.Y}] = struct{}{}
	}
	return occ
}

// TileFree reports whether an actor may step onto (x, y).
func (s *Sim) TileFree(mapID string, x, y int, skip map[string]struct{}) bool {
	m := s.Maps.Get(mapID)
	if m == nil || m.IsBlocked(x, y) {
		return false
	}
	occ := s.Occupancy(mapID, skip)
	_, taken := occ[Point{x, y}]
	return !taken
}

// PlayerProfile folds a player's levels and equipment into a combat
// profile.
func (s *Sim) PlayerProfile(p *world.PlayerInfo) CombatProfile {
	bonus := p.CombatStats()
	return CombatProfile{
		AttackLevel:   p.Skills.Level("attack"),
		StrengthLevel: p.Skills.Level("strength"),
		DefenceLevel:  p.Skills.Level("defence"),
		AttackBonus:   bonus.Attack,
		StrengthBonus: bonus.Strength,
		DefenceBonus:  bonus.PhysicalDefence,
	}
}

// EntityProfile folds a template's skills and stat bonuses. Monsters
// carry innate bonuses; humanoid NPCs derive theirs from what they wear.
func (s *Sim) EntityProfile(tpl *data.EntityTemplate) CombatProfile {
	bonus := tpl.Bonuses
	if tpl.Kind == data.KindHumanoid {
		for _, itemName := range tpl.EquippedItems {
			if it := s.Items.Get(itemName); it != nil {
				bonus = bonus.Add(it.Stats)
			}
		}
	}
	return CombatProfile{
		AttackLevel:   tpl.Skills["attack"],
		StrengthLevel: tpl.Skills["strength"],
		DefenceLevel:  tpl.Skills["defence"],
		AttackBonus:   bonus.Attack,
		StrengthBonus: bonus.Strength,
		DefenceBonus:  bonus.PhysicalDefence,
	}
}

// DamageEntity applies one resolved swing from a player to an entity.
// Kills open the dying window; neutral and aggressive survivors
// retaliate.
func (s *Sim) DamageEntity(tick int64, attacker *world.PlayerInfo, instanceID int64, hit bool, damage int) {
	ent, ok := s.Store.GetEntity(instanceID)
	if !ok || ent.State == store.StateDying {
		return
	}
	if !hit {
		damage = 0
	}
	newHP := ent.HP - damage
	s.Effects.AddHit(ent.MapID, proto.CombatActionPayload{
		AttackerKind: TargetPlayer, AttackerID: attacker.PlayerID,
		TargetKind: TargetEntity, TargetID: instanceID,
		Hit: hit, Damage: damage,
		TargetHP: clampMin(newHP, 0), TargetMaxHP: ent.MaxHP,
	})
	if damage > 0 {
		for skill, xp := range MeleeXP(damage) {
			if attacker.Skills.AddXP(skill, xp) {
				attacker.StateDirty = true
			}
		}
		attacker.StateDirty = true
		attacker.PersistDirty = true
	}
	if newHP <= 0 {
		s.killEntity(tick, attacker, &ent)
		return
	}
	tpl := s.Ents.Get(ent.Template)
	s.Store.MutateEntity(instanceID, func(e *store.EntityRecord) {
		e.HP = newHP
		// Only neutral and aggressive templates fight back; passive
		// ones take the hit and keep doing whatever they were doing.
		// Returning entities stay disengaged either way.
		if retaliates(tpl) && e.State != store.StateReturning {
			e.State = store.StateCombat
			e.TargetPlayerID = attacker.PlayerID
		}
	})
}

func retaliates(tpl *data.EntityTemplate) bool {
	if tpl == nil {
		return false
	}
	return tpl.Behavior == data.BehaviorNeutral || tpl.Behavior == data.BehaviorAggressive
}

func (s *Sim) killEntity(tick int64, killer *world.PlayerInfo, ent *store.EntityRecord) {
	tpl := s.Ents.Get(ent.Template)
	if tpl != nil && tpl.XPReward > 0 && killer != nil {
		if killer.Skills.AddXP("hitpoints", tpl.XPReward) {
			killer.StateDirty = true
		}
	}
	s.dropEntityLoot(tick, ent, killer)
	// The corpse lingers through the death animation; the AI system
	// despawns it into the respawn queue once the window lapses.
	s.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.HP = 0
		e.State = store.StateDying
		e.TargetPlayerID = 0
		e.DyingUntilTick = tick + EntityDyingTicks
	})
}

// dropEntityLoot places template-driven drops under loot protection for
// the killer.
func (s *Sim) dropEntityLoot(tick int64, ent *store.EntityRecord, killer *world.PlayerInfo) {
	tpl := s.Ents.Get(ent.Template)
	if tpl == nil || tpl.Kind != data.KindMonster {
		return
	}
	// Flat coin drop scaled by level keeps early loot simple.
	qty := tpl.Level * 3
	if qty <= 0 {
		return
	}
	var owner int64
	if killer != nil {
		owner = killer.PlayerID
	}
	s.Store.AddGroundItem(store.GroundItemRecord{
		MapID: ent.MapID, X: ent.X, Y: ent.Y,
		Item: "gold_coin", Quantity: qty,
		OwnerID: owner, PublicAtTick: tick + LootProtectionTicks,
		ExpireAtTick: tick + GroundItemTTLTicks,
	})
}

// DamagePlayer applies one resolved swing to a player from an entity or
// another player. Lethal damage opens the dying window; the respawn
// system finishes the job.
func (s *Sim) DamagePlayer(tick int64, attackerKind string, attackerID int64, playerID int64, hit bool, damage int) {
	rec, ok := s.Store.GetPlayer(playerID)
	if !ok || !rec.Online || rec.DyingUntilTick > 0 {
		return
	}
	if !hit {
		damage = 0
	}
	newHP := clampMin(rec.HP-damage, 0)
	s.Effects.AddHit(rec.MapID, proto.CombatActionPayload{
		AttackerKind: attackerKind, AttackerID: attackerID,
		TargetKind: TargetPlayer, TargetID: playerID,
		Hit: hit, Damage: damage,
		TargetHP: newHP, TargetMaxHP: rec.MaxHP,
	})
	dead := newHP <= 0
	s.Store.MutatePlayer(playerID, func(p *store.PlayerRecord) {
		p.HP = newHP
		if dead {
			p.DyingUntilTick = tick + DyingWindowTicks
			p.TargetKind = ""
			p.TargetID = 0
		} else if p.AutoRetaliate && p.TargetKind == "" {
			p.TargetKind = targetKindForAttacker(attackerKind)
			p.TargetID = attackerID
		}
	})
	if p := s.State.ByPlayerID(playerID); p != nil {
		p.StateDirty = true
		if damage > 0 {
			if p.Skills.AddXP("defence", int64(damage)*2) {
				p.StateDirty = true
			}
		}
	}
	if dead {
		s.onPlayerDeath(tick, playerID, attackerKind, attackerID, rec)
	}
}

func targetKindForAttacker(kind string) string {
	if kind == TargetPlayer {
		return TargetPlayer
	}
	return TargetEntity
}

func (s *Sim) onPlayerDeath(tick int64, playerID int64, killerKind string, killerID int64, rec store.PlayerRecord) {
	// Entities chasing a dead player go home.
	for _, e := range s.Store.GetEntitiesTargetingPlayer(playerID) {
		s.Store.MutateEntity(e.InstanceID, func(r *store.EntityRecord) {
			r.TargetPlayerID = 0
			r.State = store.StateReturning
		})
	}
	// Carried items hit the floor where the player fell, protected
	// against strangers but not against the victim.
	if p := s.State.ByPlayerID(playerID); p != nil {
		stacks := p.Inventory.Clear()
		stacks = append(stacks, p.Equipment.Clear()...)
		for _, st := range stacks {
			s.Store.AddGroundItem(store.GroundItemRecord{
				MapID: rec.MapID, X: rec.X, Y: rec.Y,
				Item: st.Item, Quantity: st.Quantity,
				OwnerID: playerID, PublicAtTick: tick + LootProtectionTicks,
				ExpireAtTick: tick + GroundItemTTLTicks,
			})
		}
		p.StateDirty = true
		p.PersistDirty = true
		s.publishVisual(p)
	}
	died := proto.PlayerDiedPayload{PlayerID: playerID, KillerID: killerID, KillerKind: killerKind}
	s.BroadcastToMap(rec.MapID, proto.EventPlayerDied, died)
	s.Log.Info("player died",
		zap.Int64("player", playerID),
		zap.String("killer_kind", killerKind),
		zap.Int64("killer", killerID))
}

// FinishRespawns moves players whose dying window lapsed back to their
// map's spawn tile at full HP.
func (s *Sim) FinishRespawns(tick int64) {
	for _, rec := range s.Store.OnlinePlayers() {
		if rec.DyingUntilTick == 0 || tick < rec.DyingUntilTick {
			continue
		}
		m := s.Maps.Get(rec.MapID)
		if m == nil {
			continue
		}
		spawn := Point{m.SpawnX, m.SpawnY}
		occ := s.Occupancy(rec.MapID, map[string]struct{}{world.PlayerKey(rec.PlayerID): {}})
		if open, ok := NearestOpenTile(m.TileMap, spawn, occ, RespawnSearchRadius); ok {
			spawn = open
		}
		s.Store.MutatePlayer(rec.PlayerID, func(p *store.PlayerRecord) {
			p.X, p.Y = spawn.X, spawn.Y
			p.HP = p.MaxHP
			p.DyingUntilTick = 0
			p.Facing = proto.South
		})
		s.BroadcastToMap(rec.MapID, proto.EventPlayerRespawn, proto.PlayerRespawnPayload{
			PlayerID: rec.PlayerID, X: spawn.X, Y: spawn.Y,
			MapID: rec.MapID, HP: rec.MaxHP, MaxHP: rec.MaxHP,
		})
		if p := s.State.ByPlayerID(rec.PlayerID); p != nil {
			p.StateDirty = true
			p.PersistDirty = true
		}
	}
}

// publishVisual recomputes and publishes a player's visual fingerprint.
func (s *Sim) publishVisual(p *world.PlayerInfo) string {
	return s.State.Visuals.Publish(world.PlayerKey(p.PlayerID), p.VisualState())
}

// PublishVisual is the handler-facing variant.
func (s *Sim) PublishVisual(p *world.PlayerInfo) string { return s.publishVisual(p) }

// PublishEntityVisual registers a humanoid NPC's renderable state so the
// hash protocol covers entities too. Sprite-sheet monsters carry no
// visual state and are skipped.
func (s *Sim) PublishEntityVisual(tpl *data.EntityTemplate, instanceID int64) {
	if tpl.Kind != data.KindHumanoid {
		return
	}
	visuals := make(map[string]*proto.SpriteRef, len(tpl.EquippedItems))
	for slot, itemName := range tpl.EquippedItems {
		it := s.Items.Get(itemName)
		if it == nil || it.Sprite == "" {
			continue
		}
		visuals[slot] = &proto.SpriteRef{Sprite: it.Sprite, Tint: it.Tint}
	}
	s.State.Visuals.Publish(world.EntityKey(instanceID), &world.VisualState{
		Appearance:      tpl.Appearance,
		EquippedVisuals: visuals,
	})
}

// BroadcastToMap queues an event frame on every session on the map.
func (s *Sim) BroadcastToMap(mapID string, frameType string, payload any) {
	for _, rec := range s.Store.GetPlayersOnMap(mapID) {
		if p := s.State.ByPlayerID(rec.PlayerID); p != nil {
			p.Send(frameType, payload)
		}
	}
}

// BroadcastAll queues an event frame on every session.
func (s *Sim) BroadcastAll(frameType string, payload any) {
	s.State.ForEach(func(p *world.PlayerInfo) {
		p.Send(frameType, payload)
	})
}

func clampMin(n, floor int) int {
	if n < floor {
		return floor
	}
	return n
}
