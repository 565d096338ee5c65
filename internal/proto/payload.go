package proto

// ── Command payloads (client → server) ─────────────────────────────

type AuthenticatePayload struct {
	Token string `msgpack:"token"`
}

type MovePayload struct {
	Direction Direction `msgpack:"direction"`
}

type ChatSendPayload struct {
	Channel   string `msgpack:"channel"`
	Message   string `msgpack:"message"`
	Recipient string `msgpack:"recipient,omitempty"` // DM only, username
}

// AttackPayload targets either an entity instance or another player.
type AttackPayload struct {
	TargetKind string `msgpack:"target_kind"` // "entity" | "player"
	TargetID   int64  `msgpack:"target_id"`
}

type InventoryMovePayload struct {
	FromSlot int `msgpack:"from_slot"`
	ToSlot   int `msgpack:"to_slot"`
}

type ItemDropPayload struct {
	Slot     int `msgpack:"slot"`
	Quantity int `msgpack:"quantity"`
}

type ItemPickupPayload struct {
	GroundItemID int64 `msgpack:"ground_item_id"`
}

type ItemEquipPayload struct {
	Slot int `msgpack:"slot"` // inventory slot holding the item to equip
}

type ItemUnequipPayload struct {
	SlotName string `msgpack:"slot_name"` // equipment slot to clear
}

type UpdateAppearancePayload struct {
	Appearance map[string]string `msgpack:"appearance"`
}

type AdminGivePayload struct {
	Target   string `msgpack:"target"` // username
	Item     string `msgpack:"item"`   // item template name
	Quantity int    `msgpack:"quantity"`
}

type MapChunksQuery struct {
	CenterX int `msgpack:"center_x"`
	CenterY int `msgpack:"center_y"`
	Radius  int `msgpack:"radius"` // in chunks
}

// ── Shared views ───────────────────────────────────────────────────

// SpriteRef is one visible equipment slot's sprite + optional tint.
type SpriteRef struct {
	Sprite string `msgpack:"sprite"`
	Tint   string `msgpack:"tint,omitempty"` // hex color
}

// VisualStateView is the full visual payload, sent only on first sight
// of its fingerprint per observer.
type VisualStateView struct {
	Appearance      map[string]string     `msgpack:"appearance"`
	EquippedVisuals map[string]*SpriteRef `msgpack:"equipped_visuals"`
}

// PlayerView is a player as seen by another session.
type PlayerView struct {
	PlayerID    int64            `msgpack:"player_id"`
	Username    string           `msgpack:"username"`
	X           int              `msgpack:"x"`
	Y           int              `msgpack:"y"`
	Facing      Direction        `msgpack:"facing"`
	HP          int              `msgpack:"hp"`
	MaxHP       int              `msgpack:"max_hp"`
	VisualHash  string           `msgpack:"visual_hash,omitempty"`
	VisualState *VisualStateView `msgpack:"visual_state,omitempty"`
}

// EntityView is an entity instance as seen by a session.
type EntityView struct {
	InstanceID  int64            `msgpack:"instance_id"`
	Template    string           `msgpack:"template"`
	DisplayName string           `msgpack:"display_name"`
	X           int              `msgpack:"x"`
	Y           int              `msgpack:"y"`
	State       string           `msgpack:"state"`
	HP          int              `msgpack:"hp"`
	MaxHP       int              `msgpack:"max_hp"`
	SpriteSheet string           `msgpack:"sprite_sheet,omitempty"`
	VisualHash  string           `msgpack:"visual_hash,omitempty"`
	VisualState *VisualStateView `msgpack:"visual_state,omitempty"`
}

// GroundItemView is a dropped item stack visible on the floor.
type GroundItemView struct {
	GroundItemID int64  `msgpack:"ground_item_id"`
	Item         string `msgpack:"item"`
	X            int    `msgpack:"x"`
	Y            int    `msgpack:"y"`
	Quantity     int    `msgpack:"quantity"`
}

// HitSplat is a transient combat effect rendered over a target.
type HitSplat struct {
	TargetKind string `msgpack:"target_kind"` // "entity" | "player"
	TargetID   int64  `msgpack:"target_id"`
	Damage     int    `msgpack:"damage"` // 0 = miss
	Miss       bool   `msgpack:"miss,omitempty"`
}

// InventorySlotView is one occupied inventory slot.
type InventorySlotView struct {
	Slot       int    `msgpack:"slot"`
	Item       string `msgpack:"item"`
	Quantity   int    `msgpack:"quantity"`
	Durability *int   `msgpack:"durability,omitempty"`
}

// EquipmentSlotView is one occupied equipment slot.
type EquipmentSlotView struct {
	SlotName   string `msgpack:"slot_name"`
	Item       string `msgpack:"item"`
	Durability *int   `msgpack:"durability,omitempty"`
}

// StatsView is the aggregated stat vector plus per-skill XP.
type StatsView struct {
	Bonuses map[string]int   `msgpack:"bonuses"`
	Skills  map[string]int64 `msgpack:"skills"` // skill → xp
}

// ChunkView is one 16×16 chunk of layered tile IDs.
type ChunkView struct {
	CX     int              `msgpack:"cx"`
	CY     int              `msgpack:"cy"`
	Layers map[string][]int `msgpack:"layers"` // layer name → row-major tile IDs
}

// ── Response payloads ──────────────────────────────────────────────

type MoveResult struct {
	X      int       `msgpack:"x"`
	Y      int       `msgpack:"y"`
	MapID  string    `msgpack:"map_id"`
	Facing Direction `msgpack:"facing"`
}

type InventoryData struct {
	Slots    []InventorySlotView `msgpack:"slots"`
	Capacity int                 `msgpack:"capacity"`
}

type EquipmentData struct {
	Slots []EquipmentSlotView `msgpack:"slots"`
	Stats map[string]int      `msgpack:"stats"`
}

type MapChunksData struct {
	MapID  string      `msgpack:"map_id"`
	Chunks []ChunkView `msgpack:"chunks"`
}

// ── Event payloads ─────────────────────────────────────────────────

type WelcomePayload struct {
	Player      PlayerView          `msgpack:"player"`
	MapID       string              `msgpack:"map_id"`
	ChunkSize   int                 `msgpack:"chunk_size"`
	TickRateHz  int                 `msgpack:"tick_rate_hz"`
	Inventory   []InventorySlotView `msgpack:"inventory"`
	Equipment   []EquipmentSlotView `msgpack:"equipment"`
	Stats       StatsView           `msgpack:"stats"`
	ServerTime  int64               `msgpack:"server_time"`
}

type ChunkUpdatePayload struct {
	MapID  string      `msgpack:"map_id"`
	Chunks []ChunkView `msgpack:"chunks"`
}

// GameUpdatePayload is the hot-path (20 Hz) per-session delta.
type GameUpdatePayload struct {
	Tick               int64            `msgpack:"tick"`
	Players            []PlayerView     `msgpack:"players,omitempty"`
	Entities           []EntityView     `msgpack:"entities,omitempty"`
	RemovedPlayers     []int64          `msgpack:"removed_players,omitempty"`
	RemovedEntities    []int64          `msgpack:"removed_entities,omitempty"`
	GroundItems        []GroundItemView `msgpack:"ground_items,omitempty"`
	RemovedGroundItems []int64          `msgpack:"removed_ground_items,omitempty"`
	Effects            []HitSplat       `msgpack:"effects,omitempty"`
}

// StateUpdatePayload is the warm-path (5 Hz) personal stream.
type StateUpdatePayload struct {
	HP        int                 `msgpack:"hp"`
	MaxHP     int                 `msgpack:"max_hp"`
	Inventory []InventorySlotView `msgpack:"inventory,omitempty"`
	Equipment []EquipmentSlotView `msgpack:"equipment,omitempty"`
	Stats     *StatsView          `msgpack:"stats,omitempty"`
}

type ChatMessagePayload struct {
	SenderID   int64  `msgpack:"sender_id"`
	SenderName string `msgpack:"sender_name"`
	Channel    string `msgpack:"channel"`
	Message    string `msgpack:"message"`
	Recipient  string `msgpack:"recipient,omitempty"`
	Timestamp  int64  `msgpack:"timestamp"`
}

type PlayerJoinedPayload struct {
	PlayerID int64  `msgpack:"player_id"`
	Username string `msgpack:"username"`
}

type PlayerLeftPayload struct {
	PlayerID int64  `msgpack:"player_id"`
	Username string `msgpack:"username"`
}

type PlayerDiedPayload struct {
	PlayerID int64  `msgpack:"player_id"`
	KillerID int64  `msgpack:"killer_id,omitempty"`
	KillerKind string `msgpack:"killer_kind,omitempty"` // "entity" | "player"
}

type PlayerRespawnPayload struct {
	PlayerID int64  `msgpack:"player_id"`
	X        int    `msgpack:"x"`
	Y        int    `msgpack:"y"`
	MapID    string `msgpack:"map_id"`
	HP       int    `msgpack:"hp"`
	MaxHP    int    `msgpack:"max_hp"`
}

type CombatActionPayload struct {
	AttackerKind string `msgpack:"attacker_kind"`
	AttackerID   int64  `msgpack:"attacker_id"`
	TargetKind   string `msgpack:"target_kind"`
	TargetID     int64  `msgpack:"target_id"`
	Hit          bool   `msgpack:"hit"`
	Damage       int    `msgpack:"damage"`
	TargetHP     int    `msgpack:"target_hp"`
	TargetMaxHP  int    `msgpack:"target_max_hp"`
}

type AppearanceUpdatePayload struct {
	PlayerID    int64            `msgpack:"player_id"`
	VisualHash  string           `msgpack:"visual_hash"`
	VisualState *VisualStateView `msgpack:"visual_state,omitempty"`
}

type ServerShutdownPayload struct {
	Message string `msgpack:"message"`
}
