package proto

// Error categories. The client retries only on "system" (honoring
// RetryAfter when present); validation/permission/conflict surface as a
// system-channel chat line.
const (
	CategoryValidation = "validation"
	CategoryPermission = "permission"
	CategoryConflict   = "conflict"
	CategorySystem     = "system"
)

// Stable error codes.
const (
	ErrAuthInvalidToken    = "AUTH_INVALID_TOKEN"
	ErrAuthRequired        = "AUTH_REQUIRED"
	ErrAuthBanned          = "AUTH_BANNED"
	ErrAuthTimedOut        = "AUTH_TIMED_OUT"
	ErrProtocolBadFrame    = "PROTOCOL_BAD_FRAME"
	ErrProtocolUnknownType = "PROTOCOL_UNKNOWN_TYPE"

	ErrMoveInvalidDirection = "MOVE_INVALID_DIRECTION"
	ErrMoveBlocked          = "MOVE_BLOCKED"
	ErrMoveOccupied         = "MOVE_OCCUPIED"
	ErrMoveCooldown         = "MOVE_COOLDOWN"

	ErrAttackNoTarget      = "ATTACK_NO_TARGET"
	ErrAttackNotAttackable = "ATTACK_NOT_ATTACKABLE"
	ErrAttackOutOfRange    = "ATTACK_OUT_OF_RANGE"
	ErrAttackNoLOS         = "ATTACK_NO_LINE_OF_SIGHT"

	ErrInvInvalidSlot    = "INV_INVALID_SLOT"
	ErrInvSlotEmpty      = "INV_SLOT_EMPTY"
	ErrInvFull           = "INV_FULL"
	ErrInvBadQuantity    = "INV_INVALID_QUANTITY"
	ErrPickupTooFar      = "PICKUP_TOO_FAR"
	ErrPickupProtected   = "PICKUP_PROTECTED"
	ErrPickupGone        = "PICKUP_GONE"

	ErrEquipWrongSlot     = "EQUIP_WRONG_SLOT"
	ErrEquipLevelTooLow   = "EQUIP_LEVEL_TOO_LOW"
	ErrEquipTwoHanded     = "EQUIP_TWO_HANDED_CONFLICT"
	ErrEquipSlotEmpty     = "EQUIP_SLOT_EMPTY"
	ErrEquipNotEquippable = "EQUIP_NOT_EQUIPPABLE"

	ErrChatEmpty         = "CHAT_EMPTY_MESSAGE"
	ErrChatBadChannel    = "CHAT_INVALID_CHANNEL"
	ErrChatGlobalDenied  = "CHAT_GLOBAL_NOT_ALLOWED"
	ErrChatRecipient     = "CHAT_RECIPIENT_NOT_FOUND"

	ErrAppearanceInvalid = "APPEARANCE_INVALID_OPTION"

	ErrAdminNotAuthorized   = "ADMIN_NOT_AUTHORIZED"
	ErrAdminItemNotFound    = "ADMIN_ITEM_NOT_FOUND"
	ErrAdminInventoryFull   = "ADMIN_INVENTORY_FULL"
	ErrAdminInvalidQuantity = "ADMIN_INVALID_QUANTITY"

	ErrPlayerNotOnline = "PLAYER_NOT_ONLINE"
	ErrQueryOutOfRange = "QUERY_OUT_OF_RANGE"
	ErrSysInternal     = "SYS_INTERNAL_ERROR"
)

// ErrorPayload is the body of every RESP_ERROR frame.
type ErrorPayload struct {
	ErrorCode       string         `msgpack:"error_code"`
	Category        string         `msgpack:"category"`
	Message         string         `msgpack:"message"`
	Details         map[string]any `msgpack:"details,omitempty"`
	RetryAfter      float64        `msgpack:"retry_after,omitempty"` // seconds
	SuggestedAction string         `msgpack:"suggested_action,omitempty"`
}

// WireError is a handler failure that maps directly onto a RESP_ERROR
// payload. Handlers return it instead of unwinding.
type WireError struct {
	Code            string
	Category        string
	Message         string
	Details         map[string]any
	RetryAfter      float64
	SuggestedAction string
}

func (e *WireError) Error() string { return e.Code + ": " + e.Message }

// Payload converts the error to its wire form.
func (e *WireError) Payload() *ErrorPayload {
	return &ErrorPayload{
		ErrorCode:       e.Code,
		Category:        e.Category,
		Message:         e.Message,
		Details:         e.Details,
		RetryAfter:      e.RetryAfter,
		SuggestedAction: e.SuggestedAction,
	}
}

// Errorf builds a WireError with a plain message.
func Errorf(code, category, message string) *WireError {
	return &WireError{Code: code, Category: category, Message: message}
}

// SystemError wraps an internal failure as the generic system error.
func SystemError(err error) *WireError {
	return &WireError{
		Code:       ErrSysInternal,
		Category:   CategorySystem,
		Message:    "internal server error",
		RetryAfter: 1,
	}
}
