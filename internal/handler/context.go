// Package handler decodes client frames, validates them, and applies
// them to the simulation. Handlers run on the tick loop's input phase,
// so they touch world state without extra locking beyond the stores'.
package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/auth"
	"github.com/gridrealm/server/internal/game"
	"github.com/gridrealm/server/internal/metrics"
	"github.com/gridrealm/server/internal/net"
	"github.com/gridrealm/server/internal/persist"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/world"
)

// Deps is everything the handlers reach for.
type Deps struct {
	Sim     *game.Sim
	Sched   *game.Scheduler
	Tokens  *auth.Tokens
	Players *persist.PlayerRepo
	Items   *persist.ItemRepo
	Log     *zap.Logger
}

// Ctx carries one frame through its handler.
type Ctx struct {
	*Deps
	Sess   *net.Session
	Frame  *proto.Frame
	Player *world.PlayerInfo // nil before authentication
	Tick   int64
}

// DBCtx is the bounded context for any warm-tier call a handler makes.
func (c *Ctx) DBCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Sim.Cfg.Database.OpTimeout)
}

// OK responds RESP_SUCCESS correlated to the request frame.
func (c *Ctx) OK(payload any) {
	c.Sess.SendFrame(c.Frame.ID, proto.RespSuccess, payload)
}

// Data responds RESP_DATA correlated to the request frame.
func (c *Ctx) Data(payload any) {
	c.Sess.SendFrame(c.Frame.ID, proto.RespData, payload)
}

// Fail responds RESP_ERROR correlated to the request frame.
func (c *Ctx) Fail(werr *proto.WireError) {
	metrics.HandlerErrors.WithLabelValues(werr.Code).Inc()
	c.Sess.SendFrame(c.Frame.ID, proto.RespError, werr.Payload())
}

// HandlerFunc applies one frame. A returned *proto.WireError becomes a
// RESP_ERROR; any other error becomes the generic system error.
type HandlerFunc func(c *Ctx) error

type entry struct {
	fn          HandlerFunc
	requireAuth bool
}

// Registry routes frame types to handlers with state gating: before
// authentication only CMD_AUTHENTICATE passes.
type Registry struct {
	deps     *Deps
	handlers map[string]entry
}

func NewRegistry(deps *Deps) *Registry {
	r := &Registry{deps: deps, handlers: make(map[string]entry)}
	r.registerAll()
	return r
}

func (r *Registry) register(msgType string, requireAuth bool, fn HandlerFunc) {
	r.handlers[msgType] = entry{fn: fn, requireAuth: requireAuth}
}

func (r *Registry) registerAll() {
	r.register(proto.CmdAuthenticate, false, handleAuthenticate)

	r.register(proto.CmdMove, true, handleMove)
	r.register(proto.CmdAttack, true, handleAttack)
	r.register(proto.CmdToggleAutoRetaliate, true, handleToggleAutoRetaliate)
	r.register(proto.CmdChatSend, true, handleChatSend)
	r.register(proto.CmdInventoryMove, true, handleInventoryMove)
	r.register(proto.CmdInventorySort, true, handleInventorySort)
	r.register(proto.CmdItemDrop, true, handleItemDrop)
	r.register(proto.CmdItemPickup, true, handleItemPickup)
	r.register(proto.CmdItemEquip, true, handleItemEquip)
	r.register(proto.CmdItemUnequip, true, handleItemUnequip)
	r.register(proto.CmdUpdateAppearance, true, handleUpdateAppearance)
	r.register(proto.CmdAdminGive, true, handleAdminGive)

	r.register(proto.QueryInventory, true, handleQueryInventory)
	r.register(proto.QueryEquipment, true, handleQueryEquipment)
	r.register(proto.QueryStats, true, handleQueryStats)
	r.register(proto.QueryMapChunks, true, handleQueryMapChunks)
}

// Dispatch routes one frame. Handler panics are contained: the client
// gets the generic system error and the loop keeps ticking.
func (r *Registry) Dispatch(sess *net.Session, frame *proto.Frame, tick int64) {
	c := &Ctx{Deps: r.deps, Sess: sess, Frame: frame, Tick: tick}

	ent, ok := r.handlers[frame.Type]
	if !ok {
		c.Fail(proto.Errorf(proto.ErrProtocolUnknownType, proto.CategoryValidation,
			"unknown message type "+frame.Type))
		return
	}
	if ent.requireAuth {
		if sess.State() != net.StateAuthed {
			c.Fail(proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission,
				"authenticate first"))
			return
		}
		c.Player = r.deps.Sim.State.BySession(sess.ID)
		if c.Player == nil {
			c.Fail(proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission,
				"session has no player"))
			return
		}
	}
	r.safeCall(c, ent.fn)
}

func (r *Registry) safeCall(c *Ctx, fn HandlerFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Log.Error("handler panicked",
				zap.String("type", c.Frame.Type),
				zap.Int64("session", c.Sess.ID),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			c.Fail(proto.SystemError(nil))
		}
	}()
	if err := fn(c); err != nil {
		if werr, ok := err.(*proto.WireError); ok {
			c.Fail(werr)
			return
		}
		r.deps.Log.Error("handler failed",
			zap.String("type", c.Frame.Type),
			zap.Int64("session", c.Sess.ID),
			zap.Error(err))
		c.Fail(proto.SystemError(err))
	}
}

// DrainAll is the input phase: pop each session's queued frames and
// dispatch them, bounded per session per tick.
func (r *Registry) DrainAll(sessions []*net.Session, tick int64) {
	max := r.deps.Sim.Cfg.Net.MaxFramesPerTick
	for _, sess := range sessions {
		for _, frame := range sess.DrainInput(max) {
			r.Dispatch(sess, frame, tick)
		}
	}
}
