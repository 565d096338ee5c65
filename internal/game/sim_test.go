package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/config"
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// testSim builds a sim over one open 64x64 map with deterministic
// randomness (always rolls 0 unless overridden).
func testSim(t *testing.T, blocked ...Point) *Sim {
	t.Helper()
	m := gridMap(64, 64, blocked...)
	info := &data.MapInfo{TileMap: m, DisplayName: "Test", SpawnX: 32, SpawnY: 32}
	m.ID = "test"
	return &Sim{
		Cfg:     config.Defaults(),
		Store:   store.New(30 * time.Minute),
		Maps:    data.NewMapSet(info),
		State:   world.NewState(),
		Items:   data.Items(),
		Ents:    data.Entities(),
		Effects: NewEffects(),
		Log:     zap.NewNop(),
		RandInt: func(n int) int { return 0 },
	}
}

type sentFrame struct {
	Type    string
	Payload any
}

// joinPlayer registers a player in both tiers and captures its frames.
func joinPlayer(t *testing.T, sim *Sim, sessionID, playerID int64, name string, x, y int) (*world.PlayerInfo, *[]sentFrame) {
	t.Helper()
	frames := &[]sentFrame{}
	p := world.NewPlayerInfo(sessionID, playerID, name, "player", sim.Items, func(ft string, pl any) {
		*frames = append(*frames, sentFrame{Type: ft, Payload: pl})
	})
	sim.State.Add(p)
	_, err := sim.Store.RegisterOnline(store.PlayerRecord{
		PlayerID: playerID, Username: name, Role: "player",
		MapID: "test", X: x, Y: y, Facing: proto.South,
		HP: 10, MaxHP: 10, AutoRetaliate: true,
	}, false, time.Time{})
	require.NoError(t, err)
	sim.PublishVisual(p)
	return p, frames
}

func spawnGoblin(sim *Sim, x, y int) store.EntityRecord {
	tpl := sim.Ents.Get("goblin")
	return sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: "goblin", MapID: "test",
		X: x, Y: y, HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(),
		SpawnX: x, SpawnY: y,
		WanderRadius: 3, AggroRadius: tpl.AggroRadius,
		DisengageRadius: tpl.DisengageRadius, RespawnTicks: tpl.RespawnTicks,
	})
}

func TestDamageEntityKillQueuesRespawnAndLoot(t *testing.T) {
	sim := testSim(t)
	p, _ := joinPlayer(t, sim, 1, 100, "alice", 30, 30)
	ent := spawnGoblin(sim, 31, 30)

	sim.DamageEntity(1000, p, ent.InstanceID, true, ent.MaxHP)

	// The corpse lingers through the death animation first.
	got, alive := sim.Store.GetEntity(ent.InstanceID)
	require.True(t, alive)
	require.Equal(t, store.StateDying, got.State)
	require.Zero(t, got.HP)
	require.Zero(t, sim.Store.PendingRespawns())

	// Hitting the corpse again is a no-op: no extra loot, no XP.
	xpBefore := p.Skills.XP("attack")
	sim.DamageEntity(1001, p, ent.InstanceID, true, 5)
	require.Equal(t, xpBefore, p.Skills.XP("attack"))

	// The lapsed window despawns into the respawn queue.
	runAI(sim, 1000+EntityDyingTicks)
	_, alive = sim.Store.GetEntity(ent.InstanceID)
	require.False(t, alive)
	require.Equal(t, 1, sim.Store.PendingRespawns())

	// Killer XP landed.
	require.Greater(t, p.Skills.XP("attack"), int64(0))
	require.Greater(t, p.Skills.XP("hitpoints"), int64(0))

	// Loot dropped under the killer's protection.
	items := sim.Store.GetMapGroundItems("test")
	require.Len(t, items, 1)
	require.Equal(t, "gold_coin", items[0].Item)
	require.Equal(t, int64(100), items[0].OwnerID)
	require.Equal(t, int64(1000+LootProtectionTicks), items[0].PublicAtTick)
}

func TestDamageEntitySurvivorRetaliates(t *testing.T) {
	sim := testSim(t)
	p, _ := joinPlayer(t, sim, 1, 100, "alice", 30, 30)
	ent := spawnGoblin(sim, 31, 30)

	sim.DamageEntity(1000, p, ent.InstanceID, true, 3)

	got, ok := sim.Store.GetEntity(ent.InstanceID)
	require.True(t, ok)
	require.Equal(t, ent.MaxHP-3, got.HP)
	require.Equal(t, store.StateCombat, got.State)
	require.Equal(t, int64(100), got.TargetPlayerID)
}

func TestPassiveEntityDoesNotRetaliate(t *testing.T) {
	sim := testSim(t)
	p, _ := joinPlayer(t, sim, 1, 100, "alice", 30, 30)
	tpl := sim.Ents.Get("meadow_rat")
	ent := sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: "meadow_rat", MapID: "test", X: 31, Y: 30,
		HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(), SpawnX: 31, SpawnY: 30,
		RespawnTicks: tpl.RespawnTicks,
	})

	sim.DamageEntity(1000, p, ent.InstanceID, true, 2)

	got, ok := sim.Store.GetEntity(ent.InstanceID)
	require.True(t, ok)
	require.Equal(t, tpl.MaxHP()-2, got.HP)
	require.Equal(t, store.StateIdle, got.State)
	require.Zero(t, got.TargetPlayerID)
}

func TestHumanoidProfileDerivedFromEquipment(t *testing.T) {
	sim := testSim(t)
	prof := sim.EntityProfile(sim.Ents.Get("town_guard"))

	// iron_shortsword carries the offence, chainmail and cap the
	// defence; the template itself has no innate bonuses.
	require.Equal(t, 18, prof.AttackLevel)
	require.Equal(t, 8, prof.AttackBonus)
	require.Equal(t, 6, prof.StrengthBonus)
	require.Equal(t, 13, prof.DefenceBonus)

	// Monsters keep their innate bonuses.
	mob := sim.EntityProfile(sim.Ents.Get("goblin"))
	require.Equal(t, 2, mob.AttackBonus)
}

func TestDamagePlayerDeathDropsAndRespawn(t *testing.T) {
	sim := testSim(t)
	p, frames := joinPlayer(t, sim, 1, 100, "alice", 10, 10)
	p.Inventory.Add("copper_ore", 30)
	p.Equipment.Set(data.SlotHead, &world.ItemStack{Item: "leather_cap", Quantity: 1})
	ent := spawnGoblin(sim, 11, 10)

	sim.DamagePlayer(500, TargetEntity, ent.InstanceID, 100, true, 10)

	rec, _ := sim.Store.GetPlayer(100)
	require.Zero(t, rec.HP)
	require.Equal(t, int64(500+DyingWindowTicks), rec.DyingUntilTick)

	// Carried items hit the floor at the death tile.
	drops := sim.Store.GetMapGroundItems("test")
	require.Len(t, drops, 2)
	for _, d := range drops {
		require.Equal(t, 10, d.X)
		require.Equal(t, int64(100), d.OwnerID)
	}
	require.Equal(t, world.InventoryCapacity, p.Inventory.FreeSlots())

	// The death event went out.
	var sawDeath bool
	for _, f := range *frames {
		if f.Type == proto.EventPlayerDied {
			sawDeath = true
		}
	}
	require.True(t, sawDeath)

	// Attacking a dying player is a no-op.
	sim.DamagePlayer(501, TargetEntity, ent.InstanceID, 100, true, 5)
	rec, _ = sim.Store.GetPlayer(100)
	require.Zero(t, rec.HP)

	// The dying window lapses into a spawn-point respawn at full HP.
	sim.FinishRespawns(500 + DyingWindowTicks)
	rec, _ = sim.Store.GetPlayer(100)
	require.Equal(t, rec.MaxHP, rec.HP)
	require.Zero(t, rec.DyingUntilTick)
	require.Equal(t, 32, rec.X)
	require.Equal(t, 32, rec.Y)
}

func TestDamagePlayerAutoRetaliate(t *testing.T) {
	sim := testSim(t)
	joinPlayer(t, sim, 1, 100, "alice", 10, 10)
	ent := spawnGoblin(sim, 11, 10)

	sim.DamagePlayer(500, TargetEntity, ent.InstanceID, 100, true, 2)

	rec, _ := sim.Store.GetPlayer(100)
	require.Equal(t, TargetEntity, rec.TargetKind)
	require.Equal(t, ent.InstanceID, rec.TargetID)
}

func TestRollAttack(t *testing.T) {
	atk := CombatProfile{AttackLevel: 10, StrengthLevel: 12, AttackBonus: 4, StrengthBonus: 3}
	def := CombatProfile{DefenceLevel: 5, DefenceBonus: 2}

	// randInt pinned to the defence roll → miss.
	hit, dmg := RollAttack(atk, def, func(int) int { return 0 })
	require.False(t, hit)
	require.Zero(t, dmg)

	// randInt above the defence threshold → hit with max-range damage.
	hit, dmg = RollAttack(atk, def, func(n int) int { return n - 1 })
	require.True(t, hit)
	require.Equal(t, atk.MaxHit(), dmg)
}

func TestMeleeXP(t *testing.T) {
	xp := MeleeXP(5)
	require.Equal(t, int64(20), xp["attack"])
	require.Equal(t, int64(10), xp["hitpoints"])
	require.Nil(t, MeleeXP(0))
}
