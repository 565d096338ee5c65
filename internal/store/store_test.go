package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridrealm/server/internal/proto"
)

func newTestStore() *Store {
	return New(30 * time.Minute)
}

func basePlayer(id int64, name string) PlayerRecord {
	return PlayerRecord{
		PlayerID: id, Username: name, Role: proto.RolePlayer,
		MapID: "overworld", X: 10, Y: 10, Facing: proto.South,
		HP: 10, MaxHP: 10,
	}
}

func TestRegisterOnlineIdempotent(t *testing.T) {
	s := newTestStore()

	first, err := s.RegisterOnline(basePlayer(1, "alice"), false, time.Time{})
	require.NoError(t, err)
	require.True(t, first.Online)

	// Hot state moves, then a duplicate register must not reset it.
	_, _, err = s.SetPlayerPosition(1, 15, 9, proto.East)
	require.NoError(t, err)

	again, err := s.RegisterOnline(basePlayer(1, "alice"), false, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 15, again.X)
	require.Equal(t, 9, again.Y)
}

func TestRegisterOnlineRejectsBannedAndTimedOut(t *testing.T) {
	s := newTestStore()

	_, err := s.RegisterOnline(basePlayer(1, "alice"), true, time.Time{})
	require.ErrorIs(t, err, ErrPlayerBanned)

	_, err = s.RegisterOnline(basePlayer(1, "alice"), false, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrPlayerTimedOut)

	// A lapsed timeout no longer blocks.
	_, err = s.RegisterOnline(basePlayer(1, "alice"), false, time.Now().Add(-time.Hour))
	require.NoError(t, err)
}

func TestSetPlayerPositionReturnsPrevious(t *testing.T) {
	s := newTestStore()
	_, err := s.RegisterOnline(basePlayer(1, "alice"), false, time.Time{})
	require.NoError(t, err)

	px, py, err := s.SetPlayerPosition(1, 11, 10, proto.East)
	require.NoError(t, err)
	require.Equal(t, 10, px)
	require.Equal(t, 10, py)

	_, _, err = s.SetPlayerPosition(99, 0, 0, proto.North)
	require.ErrorIs(t, err, ErrNotOnline)
}

func TestGetNearbyPlayers(t *testing.T) {
	s := newTestStore()
	for i, name := range []string{"alice", "bob", "carol"} {
		p := basePlayer(int64(i+1), name)
		p.X = 10 + i*20 // 10, 30, 50
		_, err := s.RegisterOnline(p, false, time.Time{})
		require.NoError(t, err)
	}

	near := s.GetNearbyPlayers("overworld", 10, 10, 32)
	require.Len(t, near, 2) // alice and bob; carol is 40 tiles away

	require.Len(t, s.GetNearbyPlayers("dungeon", 10, 10, 32), 0)
}

func TestOfflineRecordSurvivesUntilSweep(t *testing.T) {
	s := newTestStore()
	s.now = func() time.Time { return time.Unix(1000, 0) }

	_, err := s.RegisterOnline(basePlayer(1, "alice"), false, time.Time{})
	require.NoError(t, err)
	s.MarkOffline(1)

	// Still resident before the TTL lapses.
	require.Empty(t, s.Sweep())
	_, ok := s.GetPlayer(1)
	require.True(t, ok)
	_, ok = s.LookupByUsername("alice")
	require.False(t, ok, "offline players must not resolve by username")

	s.now = func() time.Time { return time.Unix(1000, 0).Add(31 * time.Minute) }
	require.Equal(t, []int64{1}, s.Sweep())
	_, ok = s.GetPlayer(1)
	require.False(t, ok)
}

func TestSpawnEntityAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore()
	a := s.SpawnEntityInstance(EntityRecord{Template: "goblin", MapID: "overworld", HP: 12, MaxHP: 12})
	b := s.SpawnEntityInstance(EntityRecord{Template: "goblin", MapID: "overworld", HP: 12, MaxHP: 12})
	require.Greater(t, b.InstanceID, a.InstanceID)
	require.Equal(t, StateIdle, a.State)

	require.NoError(t, s.UpdateEntityHP(a.InstanceID, -5))
	got, ok := s.GetEntity(a.InstanceID)
	require.True(t, ok)
	require.Zero(t, got.HP)

	require.NoError(t, s.UpdateEntityHP(a.InstanceID, 99))
	got, _ = s.GetEntity(a.InstanceID)
	require.Equal(t, 12, got.HP)
}

func TestRespawnQueueOrdering(t *testing.T) {
	s := newTestStore()
	slow := s.SpawnEntityInstance(EntityRecord{
		Template: "cave_spider", MapID: "overworld",
		SpawnX: 5, SpawnY: 5, RespawnTicks: 800,
	})
	fast := s.SpawnEntityInstance(EntityRecord{
		Template: "meadow_rat", MapID: "overworld",
		SpawnX: 1, SpawnY: 1, RespawnTicks: 200,
	})

	// Slow dies first but must come out of the queue second.
	require.NoError(t, s.DespawnEntity(slow.InstanceID, 100))
	require.NoError(t, s.DespawnEntity(fast.InstanceID, 100))
	require.Equal(t, 2, s.PendingRespawns())

	require.Empty(t, s.PopReadyRespawns(299))

	ready := s.PopReadyRespawns(300)
	require.Len(t, ready, 1)
	require.Equal(t, "meadow_rat", ready[0].Template)

	ready = s.PopReadyRespawns(900)
	require.Len(t, ready, 1)
	require.Equal(t, "cave_spider", ready[0].Template)
	require.Zero(t, s.PendingRespawns())
}

func TestGetEntitiesTargetingPlayer(t *testing.T) {
	s := newTestStore()
	e := s.SpawnEntityInstance(EntityRecord{Template: "goblin", MapID: "overworld"})
	require.NoError(t, s.MutateEntity(e.InstanceID, func(r *EntityRecord) {
		r.State = StateCombat
		r.TargetPlayerID = 7
	}))

	targeting := s.GetEntitiesTargetingPlayer(7)
	require.Len(t, targeting, 1)
	require.Equal(t, e.InstanceID, targeting[0].InstanceID)
	require.Empty(t, s.GetEntitiesTargetingPlayer(8))
}

func TestGroundItemLootProtection(t *testing.T) {
	s := newTestStore()
	g := s.AddGroundItem(GroundItemRecord{
		MapID: "overworld", X: 4, Y: 4, Item: "copper_ore", Quantity: 3,
		OwnerID: 1, PublicAtTick: 500, ExpireAtTick: 2000,
	})

	// A stranger cannot take it while protected.
	_, ok := s.TakeGroundItem(g.GroundItemID, 2, 100)
	require.False(t, ok)

	// The owner always can.
	taken, ok := s.TakeGroundItem(g.GroundItemID, 1, 100)
	require.True(t, ok)
	require.Equal(t, 3, taken.Quantity)

	// Once public, anyone can.
	g2 := s.AddGroundItem(GroundItemRecord{
		MapID: "overworld", Item: "oak_log", Quantity: 1,
		OwnerID: 1, PublicAtTick: 500, ExpireAtTick: 2000,
	})
	_, ok = s.TakeGroundItem(g2.GroundItemID, 2, 500)
	require.True(t, ok)

	// Taken stacks are gone.
	_, ok = s.TakeGroundItem(g2.GroundItemID, 2, 600)
	require.False(t, ok)
}

func TestExpireGroundItems(t *testing.T) {
	s := newTestStore()
	a := s.AddGroundItem(GroundItemRecord{MapID: "overworld", Item: "oak_log", Quantity: 1, ExpireAtTick: 100})
	s.AddGroundItem(GroundItemRecord{MapID: "overworld", Item: "tin_ore", Quantity: 1, ExpireAtTick: 900})

	removed := s.ExpireGroundItems(100)
	require.Equal(t, []int64{a.GroundItemID}, removed["overworld"])
	require.Len(t, s.GetMapGroundItems("overworld"), 1)
}
