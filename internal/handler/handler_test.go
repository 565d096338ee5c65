package handler

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/config"
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/game"
	"github.com/gridrealm/server/internal/net"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// testDeps builds handler deps over one open 64x64 map.
func testDeps(t *testing.T) *Deps {
	t.Helper()
	m := &data.TileMap{
		ID: "test", Width: 64, Height: 64, TileSize: 32,
		Blocked: make([]bool, 64*64),
	}
	info := &data.MapInfo{TileMap: m, DisplayName: "Test", SpawnX: 32, SpawnY: 32}
	sim := &game.Sim{
		Cfg:     config.Defaults(),
		Store:   store.New(30 * time.Minute),
		Maps:    data.NewMapSet(info),
		State:   world.NewState(),
		Items:   data.Items(),
		Ents:    data.Entities(),
		Effects: game.NewEffects(),
		Log:     zap.NewNop(),
		RandInt: func(n int) int { return 0 },
	}
	return &Deps{
		Sim:   sim,
		Sched: game.NewScheduler(sim, zap.NewNop()),
		Log:   zap.NewNop(),
	}
}

type sentFrame struct {
	Type    string
	Payload any
}

// joinPlayer registers a player in both tiers and captures its events.
func joinPlayer(t *testing.T, deps *Deps, sessionID, playerID int64, name, role string, x, y int) (*world.PlayerInfo, *[]sentFrame) {
	t.Helper()
	frames := &[]sentFrame{}
	p := world.NewPlayerInfo(sessionID, playerID, name, role, deps.Sim.Items, func(ft string, pl any) {
		*frames = append(*frames, sentFrame{Type: ft, Payload: pl})
	})
	deps.Sim.State.Add(p)
	_, err := deps.Sim.Store.RegisterOnline(store.PlayerRecord{
		PlayerID: playerID, Username: name, Role: role,
		MapID: "test", X: x, Y: y, Facing: proto.South,
		HP: 10, MaxHP: 10, AutoRetaliate: true,
	}, false, time.Time{})
	require.NoError(t, err)
	deps.Sim.PublishVisual(p)
	return p, frames
}

// call runs one handler with an encoded frame, returning its error.
func call(t *testing.T, deps *Deps, p *world.PlayerInfo, tick int64, fn HandlerFunc, frameType string, payload any) error {
	t.Helper()
	frame, err := proto.NewFrame("1", frameType, payload)
	require.NoError(t, err)
	sess := net.NewSession(nil, deps.Sim.Cfg.Net, zap.NewNop())
	return fn(&Ctx{Deps: deps, Sess: sess, Frame: frame, Player: p, Tick: tick})
}

// wireCode unwraps a handler error into its stable code.
func wireCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	werr, ok := err.(*proto.WireError)
	require.True(t, ok, "expected wire error, got %v", err)
	return werr.Code
}

func TestMoveStepsAndSetsCooldown(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	err := call(t, deps, p, 100, handleMove, proto.CmdMove, proto.MovePayload{Direction: proto.East})
	require.NoError(t, err)

	rec, _ := deps.Sim.Store.GetPlayer(100)
	require.Equal(t, 31, rec.X)
	require.Equal(t, 30, rec.Y)
	require.Equal(t, proto.East, rec.Facing)
	// 200ms cooldown at 20 Hz is 4 ticks.
	require.Equal(t, int64(104), rec.NextMoveTick)
	require.True(t, p.PersistDirty)
}

func TestMoveCooldownRejectsButTurns(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	require.NoError(t, call(t, deps, p, 100, handleMove, proto.CmdMove, proto.MovePayload{Direction: proto.East}))
	err := call(t, deps, p, 102, handleMove, proto.CmdMove, proto.MovePayload{Direction: proto.North})
	require.Equal(t, proto.ErrMoveCooldown, wireCode(t, err))
	require.Greater(t, err.(*proto.WireError).RetryAfter, 0.0)

	rec, _ := deps.Sim.Store.GetPlayer(100)
	require.Equal(t, 31, rec.X)
	require.Equal(t, proto.North, rec.Facing)
}

func TestMoveBlockedAndOccupied(t *testing.T) {
	deps := testDeps(t)
	m := deps.Sim.Maps.Get("test")
	m.Blocked[31*64+30] = true // (30, 31) in row-major y*w+x
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	joinPlayer(t, deps, 2, 200, "bob", "player", 29, 30)

	err := call(t, deps, p, 100, handleMove, proto.CmdMove, proto.MovePayload{Direction: proto.South})
	require.Equal(t, proto.ErrMoveBlocked, wireCode(t, err))

	err = call(t, deps, p, 100, handleMove, proto.CmdMove, proto.MovePayload{Direction: proto.West})
	require.Equal(t, proto.ErrMoveOccupied, wireCode(t, err))

	rec, _ := deps.Sim.Store.GetPlayer(100)
	require.Equal(t, 30, rec.X)
	require.Equal(t, 30, rec.Y)
}

func TestMoveInvalidDirection(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	err := call(t, deps, p, 100, handleMove, proto.CmdMove, proto.MovePayload{Direction: "up"})
	require.Equal(t, proto.ErrMoveInvalidDirection, wireCode(t, err))
}

func TestAttackLocksTarget(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	tpl := deps.Sim.Ents.Get("goblin")
	ent := deps.Sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: "goblin", MapID: "test", X: 32, Y: 30,
		HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(), SpawnX: 32, SpawnY: 30,
	})

	err := call(t, deps, p, 100, handleAttack, proto.CmdAttack,
		proto.AttackPayload{TargetKind: game.TargetEntity, TargetID: ent.InstanceID})
	require.NoError(t, err)

	rec, _ := deps.Sim.Store.GetPlayer(100)
	require.Equal(t, game.TargetEntity, rec.TargetKind)
	require.Equal(t, ent.InstanceID, rec.TargetID)
}

func TestAttackRejectsMerchantAndMissing(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	tpl := deps.Sim.Ents.Get("village_merchant")
	ent := deps.Sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: "village_merchant", MapID: "test", X: 31, Y: 30,
		HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(), SpawnX: 31, SpawnY: 30,
	})

	err := call(t, deps, p, 100, handleAttack, proto.CmdAttack,
		proto.AttackPayload{TargetKind: game.TargetEntity, TargetID: ent.InstanceID})
	require.Equal(t, proto.ErrAttackNotAttackable, wireCode(t, err))

	err = call(t, deps, p, 100, handleAttack, proto.CmdAttack,
		proto.AttackPayload{TargetKind: game.TargetEntity, TargetID: 9999})
	require.Equal(t, proto.ErrAttackNoTarget, wireCode(t, err))

	err = call(t, deps, p, 100, handleAttack, proto.CmdAttack,
		proto.AttackPayload{TargetKind: game.TargetPlayer, TargetID: 100})
	require.Equal(t, proto.ErrAttackNoTarget, wireCode(t, err))
}

func TestAttackRequiresLineOfSight(t *testing.T) {
	deps := testDeps(t)
	m := deps.Sim.Maps.Get("test")
	m.Blocked[30*64+31] = true // wall at (31, 30)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	tpl := deps.Sim.Ents.Get("goblin")
	ent := deps.Sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: "goblin", MapID: "test", X: 32, Y: 30,
		HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(), SpawnX: 32, SpawnY: 30,
	})

	err := call(t, deps, p, 100, handleAttack, proto.CmdAttack,
		proto.AttackPayload{TargetKind: game.TargetEntity, TargetID: ent.InstanceID})
	require.Equal(t, proto.ErrAttackNoLOS, wireCode(t, err))

	rec, _ := deps.Sim.Store.GetPlayer(100)
	require.Empty(t, rec.TargetKind)
}

func TestAttackRejectsDyingTarget(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	tpl := deps.Sim.Ents.Get("goblin")
	ent := deps.Sim.Store.SpawnEntityInstance(store.EntityRecord{
		Template: "goblin", MapID: "test", X: 31, Y: 30,
		HP: tpl.MaxHP(), MaxHP: tpl.MaxHP(), SpawnX: 31, SpawnY: 30,
	})
	require.NoError(t, deps.Sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.State = store.StateDying
		e.HP = 0
	}))

	err := call(t, deps, p, 100, handleAttack, proto.CmdAttack,
		proto.AttackPayload{TargetKind: game.TargetEntity, TargetID: ent.InstanceID})
	require.Equal(t, proto.ErrAttackNoTarget, wireCode(t, err))
}

func TestToggleAutoRetaliate(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	require.NoError(t, call(t, deps, p, 100, handleToggleAutoRetaliate, proto.CmdToggleAutoRetaliate, nil))
	rec, _ := deps.Sim.Store.GetPlayer(100)
	require.False(t, rec.AutoRetaliate)

	require.NoError(t, call(t, deps, p, 101, handleToggleAutoRetaliate, proto.CmdToggleAutoRetaliate, nil))
	rec, _ = deps.Sim.Store.GetPlayer(100)
	require.True(t, rec.AutoRetaliate)
}

func TestChatLocalReachesWindowOnly(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	_, nearFrames := joinPlayer(t, deps, 2, 200, "bob", "player", 40, 30)
	_, farFrames := joinPlayer(t, deps, 3, 300, "carol", "player", 30, 63)

	err := call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelLocal, Message: "hello there"})
	require.NoError(t, err)

	require.NotEmpty(t, *nearFrames)
	msg := (*nearFrames)[len(*nearFrames)-1]
	require.Equal(t, proto.EventChatMessage, msg.Type)
	require.Equal(t, "hello there", msg.Payload.(*proto.ChatMessagePayload).Message)
	for _, f := range *farFrames {
		require.NotEqual(t, proto.EventChatMessage, f.Type)
	}
}

func TestChatValidation(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	err := call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelLocal, Message: "   "})
	require.Equal(t, proto.ErrChatEmpty, wireCode(t, err))

	err = call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: "shout", Message: "hi"})
	require.Equal(t, proto.ErrChatBadChannel, wireCode(t, err))

	err = call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelDM, Message: "hi", Recipient: "nobody"})
	require.Equal(t, proto.ErrChatRecipient, wireCode(t, err))
}

func TestChatGlobalRoleGateAndTruncation(t *testing.T) {
	deps := testDeps(t)
	deps.Sim.Cfg.Chat.GlobalAllowedRoles = []string{"moderator", "admin"}
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	mod, _ := joinPlayer(t, deps, 2, 200, "mara", "moderator", 30, 31)
	_, otherFrames := joinPlayer(t, deps, 3, 300, "carol", "player", 5, 5)

	err := call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelGlobal, Message: "hi"})
	require.Equal(t, proto.ErrChatGlobalDenied, wireCode(t, err))

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	err = call(t, deps, mod, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelGlobal, Message: string(long)})
	require.NoError(t, err)

	last := (*otherFrames)[len(*otherFrames)-1]
	require.Equal(t, proto.EventChatMessage, last.Type)
	require.Len(t, last.Payload.(*proto.ChatMessagePayload).Message, deps.Sim.Cfg.Chat.MaxLenGlobal)
}

func TestChatTruncationKeepsRuneBoundary(t *testing.T) {
	deps := testDeps(t)
	p, frames := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	// The leading byte shifts every two-byte rune off the even offsets,
	// so the byte limit lands inside a rune.
	maxLen := deps.Sim.Cfg.Chat.MaxLenLocal
	msg := "a" + strings.Repeat("é", maxLen)
	err := call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelLocal, Message: msg})
	require.NoError(t, err)

	last := (*frames)[len(*frames)-1]
	require.Equal(t, proto.EventChatMessage, last.Type)
	got := last.Payload.(*proto.ChatMessagePayload).Message
	require.LessOrEqual(t, len(got), maxLen)
	require.True(t, utf8.ValidString(got))
	require.True(t, strings.HasPrefix(msg, got))
}

func TestChatDMDeliversToBoth(t *testing.T) {
	deps := testDeps(t)
	p, senderFrames := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	_, bobFrames := joinPlayer(t, deps, 2, 200, "bob", "player", 5, 5)

	err := call(t, deps, p, 100, handleChatSend, proto.CmdChatSend,
		proto.ChatSendPayload{Channel: proto.ChannelDM, Message: "psst", Recipient: "Bob"})
	require.NoError(t, err)

	require.Equal(t, proto.EventChatMessage, (*bobFrames)[len(*bobFrames)-1].Type)
	require.Equal(t, proto.EventChatMessage, (*senderFrames)[len(*senderFrames)-1].Type)
}

func TestInventoryMoveAndSort(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	p.Inventory.Add("copper_ore", 10)

	err := call(t, deps, p, 100, handleInventoryMove, proto.CmdInventoryMove,
		proto.InventoryMovePayload{FromSlot: 0, ToSlot: 5})
	require.NoError(t, err)
	require.Nil(t, p.Inventory.Get(0))
	require.Equal(t, "copper_ore", p.Inventory.Get(5).Item)

	err = call(t, deps, p, 100, handleInventoryMove, proto.CmdInventoryMove,
		proto.InventoryMovePayload{FromSlot: 3, ToSlot: 4})
	require.Equal(t, proto.ErrInvSlotEmpty, wireCode(t, err))

	err = call(t, deps, p, 100, handleInventoryMove, proto.CmdInventoryMove,
		proto.InventoryMovePayload{FromSlot: 5, ToSlot: 99})
	require.Equal(t, proto.ErrInvInvalidSlot, wireCode(t, err))

	require.NoError(t, call(t, deps, p, 100, handleInventorySort, proto.CmdInventorySort, nil))
	require.Equal(t, "copper_ore", p.Inventory.Get(0).Item)
}

func TestDropAndPickupRoundTrip(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	p.Inventory.Add("copper_ore", 10)

	err := call(t, deps, p, 100, handleItemDrop, proto.CmdItemDrop,
		proto.ItemDropPayload{Slot: 0, Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, 6, p.Inventory.Count("copper_ore"))

	items := deps.Sim.Store.GetMapGroundItems("test")
	require.Len(t, items, 1)
	require.Equal(t, int64(100), items[0].OwnerID)

	err = call(t, deps, p, 101, handleItemPickup, proto.CmdItemPickup,
		proto.ItemPickupPayload{GroundItemID: items[0].GroundItemID})
	require.NoError(t, err)
	require.Equal(t, 10, p.Inventory.Count("copper_ore"))
	require.Empty(t, deps.Sim.Store.GetMapGroundItems("test"))
}

func TestPickupProtectionAndRange(t *testing.T) {
	deps := testDeps(t)
	owner, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	stranger, _ := joinPlayer(t, deps, 2, 200, "bob", "player", 31, 30)
	far, _ := joinPlayer(t, deps, 3, 300, "carol", "player", 50, 50)
	_ = owner

	gi := deps.Sim.Store.AddGroundItem(store.GroundItemRecord{
		MapID: "test", X: 30, Y: 30, Item: "gold_coin", Quantity: 9,
		OwnerID: 100, PublicAtTick: 1200, ExpireAtTick: 3600,
	})

	err := call(t, deps, far, 100, handleItemPickup, proto.CmdItemPickup,
		proto.ItemPickupPayload{GroundItemID: gi.GroundItemID})
	require.Equal(t, proto.ErrPickupTooFar, wireCode(t, err))

	err = call(t, deps, stranger, 100, handleItemPickup, proto.CmdItemPickup,
		proto.ItemPickupPayload{GroundItemID: gi.GroundItemID})
	require.Equal(t, proto.ErrPickupProtected, wireCode(t, err))

	// Protection lapses once the stack goes public.
	err = call(t, deps, stranger, 1500, handleItemPickup, proto.CmdItemPickup,
		proto.ItemPickupPayload{GroundItemID: gi.GroundItemID})
	require.NoError(t, err)
	require.Equal(t, 9, stranger.Inventory.Count("gold_coin"))

	err = call(t, deps, stranger, 1501, handleItemPickup, proto.CmdItemPickup,
		proto.ItemPickupPayload{GroundItemID: gi.GroundItemID})
	require.Equal(t, proto.ErrPickupGone, wireCode(t, err))
}

func TestEquipUnequipFlow(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	p.Inventory.Add("bronze_shortsword", 1)

	err := call(t, deps, p, 100, handleItemEquip, proto.CmdItemEquip, proto.ItemEquipPayload{Slot: 0})
	require.NoError(t, err)
	require.Nil(t, p.Inventory.Get(0))
	require.Equal(t, "bronze_shortsword", p.Equipment.Get(data.SlotMainHand).Item)

	err = call(t, deps, p, 101, handleItemUnequip, proto.CmdItemUnequip,
		proto.ItemUnequipPayload{SlotName: data.SlotMainHand})
	require.NoError(t, err)
	require.Nil(t, p.Equipment.Get(data.SlotMainHand))
	require.Equal(t, 1, p.Inventory.Count("bronze_shortsword"))

	err = call(t, deps, p, 102, handleItemUnequip, proto.CmdItemUnequip,
		proto.ItemUnequipPayload{SlotName: data.SlotMainHand})
	require.Equal(t, proto.ErrEquipSlotEmpty, wireCode(t, err))
}

func TestEquipDisplacesWornItem(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	p.Inventory.Add("bronze_shortsword", 1)
	p.Inventory.Add("iron_shortsword", 1)
	// iron_shortsword needs attack 5
	p.Skills.SetXP("attack", 5000)

	require.NoError(t, call(t, deps, p, 100, handleItemEquip, proto.CmdItemEquip, proto.ItemEquipPayload{Slot: 0}))
	require.NoError(t, call(t, deps, p, 101, handleItemEquip, proto.CmdItemEquip, proto.ItemEquipPayload{Slot: 1}))

	require.Equal(t, "iron_shortsword", p.Equipment.Get(data.SlotMainHand).Item)
	require.Equal(t, 1, p.Inventory.Count("bronze_shortsword"))
}

func TestEquipLevelGate(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	p.Inventory.Add("iron_shortsword", 1)

	err := call(t, deps, p, 100, handleItemEquip, proto.CmdItemEquip, proto.ItemEquipPayload{Slot: 0})
	require.Equal(t, proto.ErrEquipLevelTooLow, wireCode(t, err))
	require.Equal(t, 1, p.Inventory.Count("iron_shortsword"))
}

func TestAdminGiveAuthorizationAndStacking(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	admin, _ := joinPlayer(t, deps, 2, 200, "root", "admin", 30, 31)
	p.Inventory.Add("copper_ore", 30)

	err := call(t, deps, p, 100, handleAdminGive, proto.CmdAdminGive,
		proto.AdminGivePayload{Target: "alice", Item: "copper_ore", Quantity: 5})
	require.Equal(t, proto.ErrAdminNotAuthorized, wireCode(t, err))

	err = call(t, deps, admin, 100, handleAdminGive, proto.CmdAdminGive,
		proto.AdminGivePayload{Target: "alice", Item: "copper_ore", Quantity: 0})
	require.Equal(t, proto.ErrAdminInvalidQuantity, wireCode(t, err))

	err = call(t, deps, admin, 100, handleAdminGive, proto.CmdAdminGive,
		proto.AdminGivePayload{Target: "alice", Item: "unobtainium", Quantity: 5})
	require.Equal(t, proto.ErrAdminItemNotFound, wireCode(t, err))

	err = call(t, deps, admin, 100, handleAdminGive, proto.CmdAdminGive,
		proto.AdminGivePayload{Target: "alice", Item: "copper_ore", Quantity: 75})
	require.NoError(t, err)
	require.Equal(t, 105, p.Inventory.Count("copper_ore"))
	require.True(t, p.StateDirty)

	err = call(t, deps, admin, 100, handleAdminGive, proto.CmdAdminGive,
		proto.AdminGivePayload{Target: "ghost", Item: "copper_ore", Quantity: 5})
	require.Equal(t, proto.ErrPlayerNotOnline, wireCode(t, err))
}

func TestUpdateAppearanceValidatesEnum(t *testing.T) {
	deps := testDeps(t)
	p, frames := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	bad := world.DefaultAppearance().ToMap()
	bad["skin_tone"] = "chartreuse"
	err := call(t, deps, p, 100, handleUpdateAppearance, proto.CmdUpdateAppearance,
		proto.UpdateAppearancePayload{Appearance: bad})
	require.Equal(t, proto.ErrAppearanceInvalid, wireCode(t, err))

	good := world.DefaultAppearance().ToMap()
	good["hair_style"] = "ponytail"
	before := deps.Sim.State.Visuals.CurrentHash(world.PlayerKey(100))
	err = call(t, deps, p, 101, handleUpdateAppearance, proto.CmdUpdateAppearance,
		proto.UpdateAppearancePayload{Appearance: good})
	require.NoError(t, err)
	require.NotEqual(t, before, deps.Sim.State.Visuals.CurrentHash(world.PlayerKey(100)))

	last := (*frames)[len(*frames)-1]
	require.Equal(t, proto.EventAppearanceUpdate, last.Type)
}

func TestQueriesReturnViews(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)
	p.Inventory.Add("copper_ore", 3)

	require.NoError(t, call(t, deps, p, 100, handleQueryInventory, proto.QueryInventory, nil))
	require.NoError(t, call(t, deps, p, 100, handleQueryEquipment, proto.QueryEquipment, nil))
	require.NoError(t, call(t, deps, p, 100, handleQueryStats, proto.QueryStats, nil))
}

func TestQueryMapChunksBounds(t *testing.T) {
	deps := testDeps(t)
	p, _ := joinPlayer(t, deps, 1, 100, "alice", "player", 30, 30)

	err := call(t, deps, p, 100, handleQueryMapChunks, proto.QueryMapChunks,
		proto.MapChunksQuery{CenterX: 1, CenterY: 1, Radius: 1})
	require.NoError(t, err)

	err = call(t, deps, p, 100, handleQueryMapChunks, proto.QueryMapChunks,
		proto.MapChunksQuery{CenterX: 1, CenterY: 1, Radius: 9})
	require.Equal(t, proto.ErrQueryOutOfRange, wireCode(t, err))

	err = call(t, deps, p, 100, handleQueryMapChunks, proto.QueryMapChunks,
		proto.MapChunksQuery{CenterX: 40, CenterY: 40, Radius: 1})
	require.Equal(t, proto.ErrQueryOutOfRange, wireCode(t, err))
}
