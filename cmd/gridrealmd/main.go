// Command gridrealmd is the authoritative game server: it terminates
// websockets, runs the two-rate tick loop, and persists player state to
// Postgres.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridrealm/server/internal/auth"
	"github.com/gridrealm/server/internal/config"
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/game"
	"github.com/gridrealm/server/internal/handler"
	"github.com/gridrealm/server/internal/net"
	"github.com/gridrealm/server/internal/persist"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// offlineTTL is how long a disconnected player's hot record survives
// before the sweep reclaims it.
const offlineTTL = 30 * time.Minute

func main() {
	defaultConfig := "config/server.toml"
	if env := os.Getenv("GRIDREALM_CONFIG"); env != "" {
		defaultConfig = env
	}
	configPath := flag.String("config", defaultConfig, "path to server config")
	mapsPath := flag.String("maps", "data/maps/worlds.yaml", "path to the map manifest")
	createPlayer := flag.String("create-player", "", "create an account (username:password) and exit")
	flag.Parse()

	if err := run(*configPath, *mapsPath, *createPlayer); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(configPath, mapsPath, createPlayer string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persist.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := persist.Migrate(db.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	players := persist.NewPlayerRepo(db)
	itemRepo := persist.NewItemRepo(db)
	entityRepo := persist.NewEntityRepo(db)

	items := data.Items()
	ents := data.Entities()
	if err := itemRepo.SyncCatalog(ctx, items); err != nil {
		return fmt.Errorf("sync item catalog: %w", err)
	}
	if err := entityRepo.SyncCatalog(ctx, ents); err != nil {
		return fmt.Errorf("sync entity catalog: %w", err)
	}

	maps, err := data.LoadMapSet(mapsPath)
	if err != nil {
		return fmt.Errorf("load maps: %w", err)
	}
	log.Info("maps loaded", zap.Int("count", maps.Count()), zap.String("default", maps.DefaultID()))

	if createPlayer != "" {
		return createAccount(ctx, players, maps, createPlayer, log)
	}

	sim := &game.Sim{
		Cfg:     cfg,
		Store:   store.New(offlineTTL),
		Maps:    maps,
		State:   world.NewState(),
		Items:   items,
		Ents:    ents,
		Effects: game.NewEffects(),
		Log:     log,
		RandInt: rand.Intn,
	}
	spawned := game.SpawnInitial(sim)
	log.Info("initial entities spawned", zap.Int("count", spawned))

	sched := game.NewScheduler(sim, log)
	tokens := auth.NewTokens(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	deps := &handler.Deps{
		Sim:     sim,
		Sched:   sched,
		Tokens:  tokens,
		Players: players,
		Items:   itemRepo,
		Log:     log,
	}
	registry := handler.NewRegistry(deps)

	server := net.NewServer(cfg, tokens, func() map[string]any {
		return map[string]any{
			"players_online": sim.Store.OnlineCount(),
			"entities_live":  sim.Store.EntityCount(),
			"tick":           sched.Tick(),
			"maps":           maps.IDs(),
		}
	}, log)

	server.Login = func(ctx context.Context, username, password string) (string, error) {
		row, err := players.GetByUsername(ctx, username)
		if errors.Is(err, persist.ErrPlayerNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if row.Banned || !auth.CheckPassword(row.PasswordHash, password) {
			return "", nil
		}
		return tokens.Mint(row.ID), nil
	}

	flush := newFlusher(sim, players, itemRepo, log)

	server.OnConnect = func(sess *net.Session, tokenPlayerID int64) {
		sess.OnClose = func(dead *net.Session) {
			onDisconnect(sim, flush, dead, log)
		}
	}
	sched.Input = func(tick int64) { registry.DrainAll(server.Sessions(), tick) }
	sched.FlushOutputs = server.FlushAll
	sched.PersistFlush = flush.flushDirty

	go sched.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdown(sim, flush, server, log)
	}()

	return server.ListenAndServe()
}

// createAccount is the bootstrap path for -create-player: insert the
// account at the default spawn and exit.
func createAccount(ctx context.Context, players *persist.PlayerRepo, maps *data.MapSet, arg string, log *zap.Logger) error {
	username, password, ok := strings.Cut(arg, ":")
	if !ok || username == "" || password == "" {
		return errors.New("create-player wants username:password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	m := maps.Get(maps.DefaultID())
	id, err := players.Create(ctx, username, hash, maps.DefaultID(),
		m.SpawnX, m.SpawnY, world.DefaultAppearance().ToMap())
	if err != nil {
		return err
	}
	log.Info("account created",
		zap.Int64("player", id),
		zap.String("username", username),
		zap.String("map", maps.DefaultID()))
	return nil
}

// onDisconnect tears a dead session's player out of the runtime and
// flushes it once.
func onDisconnect(sim *game.Sim, flush *flusher, dead *net.Session, log *zap.Logger) {
	p := sim.State.Remove(dead.ID)
	if p == nil {
		return
	}
	rec, ok := sim.Store.GetPlayer(p.PlayerID)
	sim.Store.MarkOffline(p.PlayerID)
	if ok {
		sim.BroadcastToMap(rec.MapID, proto.EventPlayerLeft, &proto.PlayerLeftPayload{
			PlayerID: p.PlayerID, Username: p.Username,
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := flush.flushOne(ctx, p); err != nil {
		log.Warn("disconnect flush failed", zap.Int64("player", p.PlayerID), zap.Error(err))
	}
	log.Info("player left", zap.Int64("player", p.PlayerID), zap.String("username", p.Username))
}

// shutdown drains the world before the process exits: warn clients,
// flush sockets, persist everything, stop accepting.
func shutdown(sim *game.Sim, flush *flusher, server *net.Server, log *zap.Logger) {
	log.Info("shutting down")
	sim.BroadcastAll(proto.EventServerShutdown, &proto.ServerShutdownPayload{
		Message: "server is going down",
	})
	server.FlushAll()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := flush.flushAll(ctx); err != nil {
		log.Error("final persistence flush failed", zap.Error(err))
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}

// flusher writes runtime player state to the warm tier.
type flusher struct {
	sim     *game.Sim
	players *persist.PlayerRepo
	items   *persist.ItemRepo
	log     *zap.Logger
}

func newFlusher(sim *game.Sim, players *persist.PlayerRepo, items *persist.ItemRepo, log *zap.Logger) *flusher {
	return &flusher{sim: sim, players: players, items: items, log: log}
}

// snapshot copies the runtime list so DB writes happen outside the
// registry lock.
func (f *flusher) snapshot(dirtyOnly bool) []*world.PlayerInfo {
	var out []*world.PlayerInfo
	f.sim.State.ForEach(func(p *world.PlayerInfo) {
		if dirtyOnly && !p.PersistDirty {
			return
		}
		out = append(out, p)
	})
	return out
}

// flushDirty persists every player marked dirty since the last flush.
func (f *flusher) flushDirty(ctx context.Context) error {
	var firstErr error
	for _, p := range f.snapshot(true) {
		if err := f.flushOne(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// flushAll persists every online player regardless of dirtiness.
func (f *flusher) flushAll(ctx context.Context) error {
	var firstErr error
	for _, p := range f.snapshot(false) {
		if err := f.flushOne(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *flusher) flushOne(ctx context.Context, p *world.PlayerInfo) error {
	rec, ok := f.sim.Store.GetPlayer(p.PlayerID)
	if !ok {
		return errors.New("no hot record")
	}
	if err := f.players.SaveSnapshot(ctx, p.PlayerID, rec.MapID, rec.X, rec.Y,
		rec.HP, rec.MaxHP, p.Appearance.ToMap()); err != nil {
		return err
	}
	if err := f.players.SaveSkills(ctx, p.PlayerID, p.Skills.ToMap()); err != nil {
		return err
	}
	var inv []persist.InventoryRow
	p.Inventory.Slots(func(slot int, st *world.ItemStack) {
		inv = append(inv, persist.InventoryRow{
			Slot: slot, Item: st.Item, Quantity: st.Quantity, Durability: st.Durability,
		})
	})
	if err := f.items.SaveInventory(ctx, p.PlayerID, inv); err != nil {
		return err
	}
	var eq []persist.EquipmentRow
	p.Equipment.Slots(func(slotName string, st *world.ItemStack) {
		eq = append(eq, persist.EquipmentRow{
			SlotName: slotName, Item: st.Item, Durability: st.Durability,
		})
	})
	if err := f.items.SaveEquipment(ctx, p.PlayerID, eq); err != nil {
		return err
	}
	p.PersistDirty = false
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
