package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gridrealm/server/internal/proto"
)

// handleChatSend routes one chat line. Local reaches the sender's chunk
// window, global reaches everyone (role-gated), dm reaches one player.
// Messages over the channel limit are truncated, not rejected.
func handleChatSend(c *Ctx) error {
	var req proto.ChatSendPayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad chat payload")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return proto.Errorf(proto.ErrChatEmpty, proto.CategoryValidation, "empty message")
	}

	cfg := c.Sim.Cfg.Chat
	var maxLen int
	switch req.Channel {
	case proto.ChannelLocal:
		maxLen = cfg.MaxLenLocal
	case proto.ChannelGlobal:
		maxLen = cfg.MaxLenGlobal
	case proto.ChannelDM:
		maxLen = cfg.MaxLenDM
	default:
		return proto.Errorf(proto.ErrChatBadChannel, proto.CategoryValidation,
			"unknown channel "+req.Channel)
	}
	msg = truncateMessage(msg, maxLen)

	out := &proto.ChatMessagePayload{
		SenderID:   c.Player.PlayerID,
		SenderName: c.Player.Username,
		Channel:    req.Channel,
		Message:    msg,
		Timestamp:  time.Now().UnixMilli(),
	}

	switch req.Channel {
	case proto.ChannelLocal:
		sendLocalChat(c, out)
	case proto.ChannelGlobal:
		if !cfg.GlobalEnabled || !roleAllowed(cfg.GlobalAllowedRoles, c.Player.Role) {
			return proto.Errorf(proto.ErrChatGlobalDenied, proto.CategoryPermission,
				"global chat not allowed")
		}
		c.Sim.BroadcastAll(proto.EventChatMessage, out)
	case proto.ChannelDM:
		recipient := c.Sim.State.ByName(req.Recipient)
		if recipient == nil {
			return proto.Errorf(proto.ErrChatRecipient, proto.CategoryValidation,
				"player not online: "+req.Recipient)
		}
		out.Recipient = recipient.Username
		recipient.Send(proto.EventChatMessage, out)
		if recipient.PlayerID != c.Player.PlayerID {
			c.Player.Send(proto.EventChatMessage, out)
		}
	}
	c.OK(nil)
	return nil
}

// truncateMessage clamps msg to at most maxLen bytes without splitting
// a multi-byte rune.
func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

// sendLocalChat delivers to every session within the local chat window,
// local_chunk_radius chunks of tiles on each axis.
func sendLocalChat(c *Ctx, out *proto.ChatMessagePayload) {
	rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID)
	if !ok {
		return
	}
	rng := c.Sim.Cfg.Chat.LocalChunkRadius * c.Sim.Cfg.Game.ChunkSize
	for _, other := range c.Sim.Store.GetNearbyPlayers(rec.MapID, rec.X, rec.Y, rng) {
		if p := c.Sim.State.ByPlayerID(other.PlayerID); p != nil {
			p.Send(proto.EventChatMessage, out)
		}
	}
}

func roleAllowed(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
