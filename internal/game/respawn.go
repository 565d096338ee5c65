package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/core/system"
	"github.com/gridrealm/server/internal/store"
)

// RespawnSystem revives dead entities whose timer lapsed and finishes
// player respawns. It runs in the global pre-map stage because the
// respawn queue spans maps.
type RespawnSystem struct {
	sim *Sim
}

func NewRespawnSystem(sim *Sim) *RespawnSystem { return &RespawnSystem{sim: sim} }

func (r *RespawnSystem) Name() string        { return "respawn" }
func (r *RespawnSystem) Phase() system.Phase { return system.PhaseRespawn }

func (r *RespawnSystem) Run(ctx *system.Context) error {
	for _, seed := range r.sim.Store.PopReadyRespawns(ctx.Tick) {
		if err := r.spawnFromSeed(ctx.Tick, seed); err != nil {
			r.sim.Log.Warn("respawn failed",
				zap.String("template", seed.Template),
				zap.String("map", seed.MapID),
				zap.Error(err))
		}
	}
	r.sim.FinishRespawns(ctx.Tick)
	return nil
}

func (r *RespawnSystem) spawnFromSeed(tick int64, seed store.RespawnSeed) error {
	m := r.sim.Maps.Get(seed.MapID)
	if m == nil {
		return fmt.Errorf("unknown map %s", seed.MapID)
	}
	tpl := r.sim.Ents.Get(seed.Template)
	if tpl == nil {
		return fmt.Errorf("unknown entity template %s", seed.Template)
	}
	spawn := Point{seed.SpawnX, seed.SpawnY}
	occ := r.sim.Occupancy(seed.MapID, nil)
	pos, ok := NearestOpenTile(m.TileMap, spawn, occ, RespawnSearchRadius)
	if !ok {
		// Spawn area packed solid: push the respawn back a little.
		r.requeue(tick, seed)
		return nil
	}
	ent := r.sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: seed.Template, MapID: seed.MapID,
		X: pos.X, Y: pos.Y,
		HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(),
		State:  store.StateIdle,
		SpawnX: seed.SpawnX, SpawnY: seed.SpawnY,
		WanderRadius:    seed.WanderRadius,
		AggroRadius:     seed.AggroRadius,
		DisengageRadius: seed.DisengageRadius,
		RespawnTicks:    seed.RespawnTicks,
	})
	r.sim.PublishEntityVisual(tpl, ent.InstanceID)
	return nil
}

func (r *RespawnSystem) requeue(tick int64, seed store.RespawnSeed) {
	// Re-despawning a synthetic record re-inserts into the queue with
	// a short delay.
	tmp := r.sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: seed.Template, MapID: seed.MapID,
		SpawnX: seed.SpawnX, SpawnY: seed.SpawnY,
		WanderRadius: seed.WanderRadius, AggroRadius: seed.AggroRadius,
		DisengageRadius: seed.DisengageRadius, RespawnTicks: 40,
		State: store.StateDead,
	})
	r.sim.Store.DespawnEntity(tmp.InstanceID, tick)
}

// SpawnInitial populates every map from its TMX spawn points at server
// start.
func SpawnInitial(sim *Sim) int {
	spawned := 0
	for _, mapID := range sim.Maps.IDs() {
		m := sim.Maps.Get(mapID)
		for _, sp := range m.Spawns {
			tpl := sim.Ents.Get(sp.EntityID)
			if tpl == nil {
				sim.Log.Warn("spawn point references unknown entity",
					zap.String("map", mapID),
					zap.String("entity", sp.EntityID))
				continue
			}
			aggro, disengage := tpl.AggroRadius, tpl.DisengageRadius
			if sp.AggroOverride >= 0 {
				aggro = sp.AggroOverride
			}
			if sp.DisengageOverride >= 0 {
				disengage = sp.DisengageOverride
			}
			ent := sim.Store.SpawnEntityInstance(store.EntityRecord{
				Template: tpl.Name, MapID: mapID,
				X: sp.X, Y: sp.Y,
				HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(),
				State:  store.StateIdle,
				SpawnX: sp.X, SpawnY: sp.Y,
				WanderRadius:    sp.WanderRadius,
				AggroRadius:     aggro,
				DisengageRadius: disengage,
				RespawnTicks:    tpl.RespawnTicks,
			})
			sim.PublishEntityVisual(tpl, ent.InstanceID)
			spawned++
		}
	}
	return spawned
}
