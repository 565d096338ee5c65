package proto

// Message types. The enum is closed: frames carrying any other type are
// rejected at dispatch.
const (
	// Commands (client → server)
	CmdAuthenticate        = "CMD_AUTHENTICATE"
	CmdMove                = "CMD_MOVE"
	CmdChatSend            = "CMD_CHAT_SEND"
	CmdAttack              = "CMD_ATTACK"
	CmdToggleAutoRetaliate = "CMD_TOGGLE_AUTO_RETALIATE"
	CmdInventoryMove       = "CMD_INVENTORY_MOVE"
	CmdInventorySort       = "CMD_INVENTORY_SORT"
	CmdItemDrop            = "CMD_ITEM_DROP"
	CmdItemPickup          = "CMD_ITEM_PICKUP"
	CmdItemEquip           = "CMD_ITEM_EQUIP"
	CmdItemUnequip         = "CMD_ITEM_UNEQUIP"
	CmdUpdateAppearance    = "CMD_UPDATE_APPEARANCE"
	CmdAdminGive           = "CMD_ADMIN_GIVE"

	// Queries (client → server)
	QueryInventory = "QUERY_INVENTORY"
	QueryEquipment = "QUERY_EQUIPMENT"
	QueryStats     = "QUERY_STATS"
	QueryMapChunks = "QUERY_MAP_CHUNKS"

	// Responses (server → client, correlated by frame id)
	RespSuccess = "RESP_SUCCESS"
	RespError   = "RESP_ERROR"
	RespData    = "RESP_DATA"

	// Events (server → client, unsolicited)
	EventWelcome          = "EVENT_WELCOME"
	EventChunkUpdate      = "EVENT_CHUNK_UPDATE"
	EventStateUpdate      = "EVENT_STATE_UPDATE"
	EventGameUpdate       = "EVENT_GAME_UPDATE"
	EventChatMessage      = "EVENT_CHAT_MESSAGE"
	EventPlayerJoined     = "EVENT_PLAYER_JOINED"
	EventPlayerLeft       = "EVENT_PLAYER_LEFT"
	EventPlayerDied       = "EVENT_PLAYER_DIED"
	EventPlayerRespawn    = "EVENT_PLAYER_RESPAWN"
	EventCombatAction     = "EVENT_COMBAT_ACTION"
	EventAppearanceUpdate = "EVENT_APPEARANCE_UPDATE"
	EventServerShutdown   = "EVENT_SERVER_SHUTDOWN"
)

// Direction is the movement/facing enum. Offsets are tile deltas in a
// Y-down coordinate system.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// Offset returns the (dx, dy) tile delta for the direction.
func (d Direction) Offset() (int, int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

// Chat channels.
const (
	ChannelLocal  = "local"
	ChannelGlobal = "global"
	ChannelDM     = "dm"
)

// Roles.
const (
	RolePlayer    = "player"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)
