package game

import (
	"github.com/gridrealm/server/internal/core/system"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// BroadcastSystem assembles and queues each session's 20 Hz
// EVENT_GAME_UPDATE: everything inside the interest window, removals
// for what left it, and this tick's combat effects. Detailed combat
// resolutions go out as separate EVENT_COMBAT_ACTION frames to anyone
// whose window covers the target. Visual state rides along hash-first:
// the fingerprint always, the full state only on an observer's first
// sight of it.
type BroadcastSystem struct {
	sim *Sim
}

func NewBroadcastSystem(sim *Sim) *BroadcastSystem { return &BroadcastSystem{sim: sim} }

func (b *BroadcastSystem) Name() string        { return "broadcast" }
func (b *BroadcastSystem) Phase() system.Phase { return system.PhaseBroadcast }

func (b *BroadcastSystem) Run(ctx *system.Context) error {
	splats, actions := b.sim.Effects.Drain(ctx.MapID)
	vr := VisibleRange(ChunkRadius)
	for _, rec := range b.sim.Store.GetPlayersOnMap(ctx.MapID) {
		p := b.sim.State.ByPlayerID(rec.PlayerID)
		if p == nil {
			continue
		}
		payload := b.buildUpdate(ctx.Tick, rec, p, vr, splats)
		p.Send(proto.EventGameUpdate, payload)
		for i := range actions {
			if b.targetVisible(actions[i].TargetKind, actions[i].TargetID, rec, vr) {
				p.Send(proto.EventCombatAction, &actions[i])
			}
		}
	}
	return nil
}

func (b *BroadcastSystem) buildUpdate(tick int64, rec store.PlayerRecord, p *world.PlayerInfo, rng int, splats []proto.HitSplat) *proto.GameUpdatePayload {
	v := computeView(b.sim.Store, rec.MapID, rec.X, rec.Y, rng, rec.PlayerID)
	out := &proto.GameUpdatePayload{Tick: tick}

	// The observer's own state travels on its personal stream, never in
	// the other-player list.
	seenPlayers := make(map[int64]struct{}, len(v.players))
	for _, other := range v.players {
		seenPlayers[other.PlayerID] = struct{}{}
		out.Players = append(out.Players, b.playerView(p.SessionID, other))
	}

	seenEntities := make(map[int64]struct{}, len(v.entities))
	for _, ent := range v.entities {
		seenEntities[ent.InstanceID] = struct{}{}
		out.Entities = append(out.Entities, b.entityView(p.SessionID, ent))
	}

	seenItems := make(map[int64]struct{}, len(v.groundItems))
	for _, g := range v.groundItems {
		seenItems[g.GroundItemID] = struct{}{}
		if _, known := p.Known.GroundItems[g.GroundItemID]; !known {
			out.GroundItems = append(out.GroundItems, proto.GroundItemView{
				GroundItemID: g.GroundItemID, Item: g.Item,
				X: g.X, Y: g.Y, Quantity: g.Quantity,
			})
		}
	}

	// Removals: everything known that fell out of the window or
	// despawned.
	for id := range p.Known.Players {
		if _, ok := seenPlayers[id]; !ok {
			out.RemovedPlayers = append(out.RemovedPlayers, id)
		}
	}
	for id := range p.Known.Entities {
		if _, ok := seenEntities[id]; !ok {
			out.RemovedEntities = append(out.RemovedEntities, id)
		}
	}
	for id := range p.Known.GroundItems {
		if _, ok := seenItems[id]; !ok {
			out.RemovedGroundItems = append(out.RemovedGroundItems, id)
		}
	}
	p.Known.Players = seenPlayers
	p.Known.Entities = seenEntities
	p.Known.GroundItems = seenItems

	// Effects clip to the window like everything else.
	for _, sp := range splats {
		if b.targetVisible(sp.TargetKind, sp.TargetID, rec, rng) {
			out.Effects = append(out.Effects, sp)
		}
	}
	return out
}

func (b *BroadcastSystem) targetVisible(kind string, id int64, rec store.PlayerRecord, rng int) bool {
	switch kind {
	case TargetPlayer:
		if t, ok := b.sim.Store.GetPlayer(id); ok {
			return inWindow(rec.X, rec.Y, t.X, t.Y, rng)
		}
	case TargetEntity:
		if t, ok := b.sim.Store.GetEntity(id); ok {
			return inWindow(rec.X, rec.Y, t.X, t.Y, rng)
		}
	}
	// Target already gone: show the killing blow anyway.
	return true
}

func (b *BroadcastSystem) playerView(observer int64, rec store.PlayerRecord) proto.PlayerView {
	hash, full := b.sim.State.Visuals.StateForObserver(observer, world.PlayerKey(rec.PlayerID))
	pv := proto.PlayerView{
		PlayerID: rec.PlayerID, Username: rec.Username,
		X: rec.X, Y: rec.Y, Facing: rec.Facing,
		HP: rec.HP, MaxHP: rec.MaxHP,
		VisualHash: hash,
	}
	if full != nil {
		pv.VisualState = full.View()
	}
	return pv
}

func (b *BroadcastSystem) entityView(observer int64, ent store.EntityRecord) proto.EntityView {
	tpl := b.sim.Ents.Get(ent.Template)
	ev := proto.EntityView{
		InstanceID: ent.InstanceID, Template: ent.Template,
		X: ent.X, Y: ent.Y, State: ent.State,
		HP: ent.HP, MaxHP: ent.MaxHP,
	}
	if tpl != nil {
		ev.DisplayName = tpl.DisplayName
		ev.SpriteSheet = tpl.SpriteSheet
	}
	hash, full := b.sim.State.Visuals.StateForObserver(observer, world.EntityKey(ent.InstanceID))
	ev.VisualHash = hash
	if full != nil {
		ev.VisualState = full.View()
	}
	return ev
}
