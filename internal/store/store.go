// Package store is the hot tier of the two-tier state model: the
// in-memory, mutex-guarded authoritative record set the tick loop reads
// and writes every frame. The warm tier (Postgres, internal/persist)
// absorbs periodic flushes and owns durability.
package store

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridrealm/server/internal/proto"
)

var (
	ErrPlayerBanned   = errors.New("store: player is banned")
	ErrPlayerTimedOut = errors.New("store: player is timed out")
	ErrNotOnline      = errors.New("store: player not online")
	ErrNoSuchEntity   = errors.New("store: no such entity instance")
)

// DefaultRecordTTL keeps a player's hot record alive after disconnect so
// a quick reconnect resumes without a warm-tier round trip.
const DefaultRecordTTL = 30 * time.Minute

// Entity AI states.
const (
	StateIdle      = "idle"
	StateWander    = "wander"
	StateCombat    = "combat"
	StateReturning = "returning"
	StateDying     = "dying"
	StateDead      = "dead"
)

// PlayerRecord is the authoritative hot-tier view of one player.
type PlayerRecord struct {
	PlayerID  int64
	Username  string
	Role      string
	MapID     string
	X, Y      int
	Facing    proto.Direction
	HP, MaxHP int

	// Combat runtime.
	InCombatUntilTick int64
	TargetKind        string // "" = no target
	TargetID          int64
	AutoRetaliate     bool
	NextAttackTick    int64
	DyingUntilTick    int64 // >0 while in the dying window

	// Movement runtime.
	NextMoveTick int64

	Online    bool
	expiresAt time.Time
}

// EntityRecord is one live entity instance.
type EntityRecord struct {
	InstanceID int64
	Template   string
	MapID      string
	X, Y       int
	HP, MaxHP  int
	State      string

	SpawnX, SpawnY    int
	WanderRadius      int
	AggroRadius       int
	DisengageRadius   int
	RespawnTicks      int
	TargetPlayerID   int64 // 0 = none
	NextDecisionTick int64 // next wander step / idle expiry
	NextAttackTick   int64
	LOSLostSinceTick int64 // 0 = target currently in LOS
	DyingUntilTick   int64 // >0 while the death animation plays
	Path             [][2]int
}

// GroundItemRecord is one dropped stack on the floor.
type GroundItemRecord struct {
	GroundItemID int64
	MapID        string
	X, Y         int
	Item         string
	Quantity     int
	OwnerID      int64 // loot protection, 0 = public
	PublicAtTick int64 // tick when protection lapses
	ExpireAtTick int64
}

type pendingRespawn struct {
	readyTick int64
	template  string
	mapID     string
	spawnX    int
	spawnY    int
	wander    int
	aggro     int
	disengage int
	respawn   int
}

// Store holds every hot record behind one lock. Tick systems run on the
// per-map worker goroutines, so contention stays low; the lock protects
// against handler-goroutine access.
type Store struct {
	mu          sync.RWMutex
	players     map[int64]*PlayerRecord
	byUsername  map[string]int64
	entities    map[int64]*EntityRecord
	groundItems map[int64]*GroundItemRecord
	respawns    []pendingRespawn // sorted by readyTick

	nextEntityID     atomic.Int64
	nextGroundItemID atomic.Int64

	recordTTL time.Duration
	now       func() time.Time
}

func New(recordTTL time.Duration) *Store {
	if recordTTL <= 0 {
		recordTTL = DefaultRecordTTL
	}
	return &Store{
		players:     make(map[int64]*PlayerRecord),
		byUsername:  make(map[string]int64),
		entities:    make(map[int64]*EntityRecord),
		groundItems: make(map[int64]*GroundItemRecord),
		recordTTL:   recordTTL,
		now:         time.Now,
	}
}

// ── Players ────────────────────────────────────────────────────────

// RegisterOnline inserts or revives the player's hot record.
// Re-registering an already online player is a no-op returning the
// existing record, so a duplicate authenticate cannot fork state.
func (s *Store) RegisterOnline(rec PlayerRecord, banned bool, timedOutUntil time.Time) (*PlayerRecord, error) {
	if banned {
		return nil, ErrPlayerBanned
	}
	if !timedOutUntil.IsZero() && s.now().Before(timedOutUntil) {
		return nil, ErrPlayerTimedOut
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.players[rec.PlayerID]; ok {
		// Revived record keeps hot position/HP; only liveness changes.
		cur.Online = true
		cur.expiresAt = time.Time{}
		return cur, nil
	}
	r := rec
	r.Online = true
	s.players[r.PlayerID] = &r
	s.byUsername[r.Username] = r.PlayerID
	return &r, nil
}

// MarkOffline flips the record to offline and starts its TTL. The
// record itself survives until Sweep reaps it.
func (s *Store) MarkOffline(playerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Online = false
		p.expiresAt = s.now().Add(s.recordTTL)
	}
}

// GetPlayer returns a copy of the player's record.
func (s *Store) GetPlayer(playerID int64) (PlayerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.players[playerID]; ok {
		return *p, true
	}
	return PlayerRecord{}, false
}

// LookupByUsername resolves a username to an online player's record.
func (s *Store) LookupByUsername(username string) (PlayerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return PlayerRecord{}, false
	}
	p := s.players[id]
	if p == nil || !p.Online {
		return PlayerRecord{}, false
	}
	return *p, true
}

// MutatePlayer applies fn to the live record under the lock. Returns
// ErrNotOnline when no record exists.
func (s *Store) MutatePlayer(playerID int64, fn func(*PlayerRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return ErrNotOnline
	}
	fn(p)
	return nil
}

// SetPlayerPosition moves the player and returns the previous tile.
func (s *Store) SetPlayerPosition(playerID int64, x, y int, facing proto.Direction) (prevX, prevY int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return 0, 0, ErrNotOnline
	}
	prevX, prevY = p.X, p.Y
	p.X, p.Y = x, y
	p.Facing = facing
	return prevX, prevY, nil
}

// GetPlayersOnMap returns copies of every online player on the map.
func (s *Store) GetPlayersOnMap(mapID string) []PlayerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PlayerRecord
	for _, p := range s.players {
		if p.Online && p.MapID == mapID {
			out = append(out, *p)
		}
	}
	return out
}

// GetNearbyPlayers returns online players on the map within the square
// window |dx| <= radius and |dy| <= radius around (x, y).
func (s *Store) GetNearbyPlayers(mapID string, x, y, radius int) []PlayerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PlayerRecord
	for _, p := range s.players {
		if !p.Online || p.MapID != mapID {
			continue
		}
		if abs(p.X-x) <= radius && abs(p.Y-y) <= radius {
			out = append(out, *p)
		}
	}
	return out
}

// OnlineCount returns the number of online players.
func (s *Store) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.players {
		if p.Online {
			n++
		}
	}
	return n
}

// OnlinePlayers returns copies of every online player record.
func (s *Store) OnlinePlayers() []PlayerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PlayerRecord, 0, len(s.players))
	for _, p := range s.players {
		if p.Online {
			out = append(out, *p)
		}
	}
	return out
}

// ── Entities ───────────────────────────────────────────────────────

// SpawnEntityInstance creates a live instance with a fresh ID from the
// monotonic counter and returns a copy.
func (s *Store) SpawnEntityInstance(rec EntityRecord) EntityRecord {
	rec.InstanceID = s.nextEntityID.Add(1)
	if rec.State == "" {
		rec.State = StateIdle
	}
	s.mu.Lock()
	r := rec
	s.entities[r.InstanceID] = &r
	s.mu.Unlock()
	return rec
}

// GetEntity returns a copy of the instance record.
func (s *Store) GetEntity(instanceID int64) (EntityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entities[instanceID]; ok {
		return *e, true
	}
	return EntityRecord{}, false
}

// MutateEntity applies fn to the live instance under the lock.
func (s *Store) MutateEntity(instanceID int64, fn func(*EntityRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[instanceID]
	if !ok {
		return ErrNoSuchEntity
	}
	fn(e)
	return nil
}

// UpdateEntityPosition moves the instance.
func (s *Store) UpdateEntityPosition(instanceID int64, x, y int) error {
	return s.MutateEntity(instanceID, func(e *EntityRecord) { e.X, e.Y = x, y })
}

// UpdateEntityHP sets the instance's HP, clamped to [0, MaxHP].
func (s *Store) UpdateEntityHP(instanceID int64, hp int) error {
	return s.MutateEntity(instanceID, func(e *EntityRecord) {
		if hp < 0 {
			hp = 0
		}
		if hp > e.MaxHP {
			hp = e.MaxHP
		}
		e.HP = hp
	})
}

// SetEntityState transitions the instance's AI state.
func (s *Store) SetEntityState(instanceID int64, state string) error {
	return s.MutateEntity(instanceID, func(e *EntityRecord) { e.State = state })
}

// GetMapEntities returns copies of every live instance on the map.
func (s *Store) GetMapEntities(mapID string) []EntityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EntityRecord
	for _, e := range s.entities {
		if e.MapID == mapID {
			out = append(out, *e)
		}
	}
	return out
}

// GetEntitiesTargetingPlayer returns instances currently locked onto the
// player, used to drop targets when the player dies or logs out.
func (s *Store) GetEntitiesTargetingPlayer(playerID int64) []EntityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EntityRecord
	for _, e := range s.entities {
		if e.TargetPlayerID == playerID {
			out = append(out, *e)
		}
	}
	return out
}

// DespawnEntity removes the instance and, when its template respawns,
// queues it in readyTick order.
func (s *Store) DespawnEntity(instanceID int64, nowTick int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[instanceID]
	if !ok {
		return ErrNoSuchEntity
	}
	delete(s.entities, instanceID)
	if e.RespawnTicks <= 0 {
		return nil
	}
	r := pendingRespawn{
		readyTick: nowTick + int64(e.RespawnTicks),
		template:  e.Template,
		mapID:     e.MapID,
		spawnX:    e.SpawnX,
		spawnY:    e.SpawnY,
		wander:    e.WanderRadius,
		aggro:     e.AggroRadius,
		disengage: e.DisengageRadius,
		respawn:   e.RespawnTicks,
	}
	i := sort.Search(len(s.respawns), func(i int) bool {
		return s.respawns[i].readyTick > r.readyTick
	})
	s.respawns = append(s.respawns, pendingRespawn{})
	copy(s.respawns[i+1:], s.respawns[i:])
	s.respawns[i] = r
	return nil
}

// RespawnSeed carries everything needed to respawn an instance.
type RespawnSeed struct {
	Template        string
	MapID           string
	SpawnX, SpawnY  int
	WanderRadius    int
	AggroRadius     int
	DisengageRadius int
	RespawnTicks    int
}

// PopReadyRespawns drains every queued respawn whose readyTick has
// passed. The queue is sorted, so this is a prefix cut.
func (s *Store) PopReadyRespawns(nowTick int64) []RespawnSeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for n < len(s.respawns) && s.respawns[n].readyTick <= nowTick {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]RespawnSeed, n)
	for i := 0; i < n; i++ {
		r := s.respawns[i]
		out[i] = RespawnSeed{
			Template: r.template, MapID: r.mapID,
			SpawnX: r.spawnX, SpawnY: r.spawnY,
			WanderRadius: r.wander, AggroRadius: r.aggro,
			DisengageRadius: r.disengage, RespawnTicks: r.respawn,
		}
	}
	s.respawns = append(s.respawns[:0], s.respawns[n:]...)
	return out
}

// PendingRespawns returns the queue length.
func (s *Store) PendingRespawns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.respawns)
}

// EntityCount returns the number of live entity instances.
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// ── Ground items ───────────────────────────────────────────────────

// AddGroundItem drops a stack and returns its fresh ID.
func (s *Store) AddGroundItem(rec GroundItemRecord) GroundItemRecord {
	rec.GroundItemID = s.nextGroundItemID.Add(1)
	s.mu.Lock()
	r := rec
	s.groundItems[r.GroundItemID] = &r
	s.mu.Unlock()
	return rec
}

// GetGroundItem returns a copy of the stack.
func (s *Store) GetGroundItem(id int64) (GroundItemRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.groundItems[id]; ok {
		return *g, true
	}
	return GroundItemRecord{}, false
}

// TakeGroundItem removes the stack for pickup by playerID, honoring
// loot protection: before PublicAtTick only the owner may take it.
func (s *Store) TakeGroundItem(id, playerID, nowTick int64) (GroundItemRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groundItems[id]
	if !ok {
		return GroundItemRecord{}, false
	}
	if g.OwnerID != 0 && g.OwnerID != playerID && nowTick < g.PublicAtTick {
		return GroundItemRecord{}, false
	}
	delete(s.groundItems, id)
	return *g, true
}

// GetMapGroundItems returns copies of every stack on the map.
func (s *Store) GetMapGroundItems(mapID string) []GroundItemRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []GroundItemRecord
	for _, g := range s.groundItems {
		if g.MapID == mapID {
			out = append(out, *g)
		}
	}
	return out
}

// ExpireGroundItems removes stacks past their TTL and returns their IDs
// grouped by map, for removal broadcasts.
func (s *Store) ExpireGroundItems(nowTick int64) map[string][]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed map[string][]int64
	for id, g := range s.groundItems {
		if nowTick >= g.ExpireAtTick {
			if removed == nil {
				removed = make(map[string][]int64)
			}
			removed[g.MapID] = append(removed[g.MapID], id)
			delete(s.groundItems, id)
		}
	}
	return removed
}

// ── Maintenance ────────────────────────────────────────────────────

// Sweep reaps offline player records whose TTL expired and returns the
// reaped IDs so the caller can flush them to the warm tier first.
func (s *Store) Sweep() []int64 {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var reaped []int64
	for id, p := range s.players {
		if !p.Online && !p.expiresAt.IsZero() && now.After(p.expiresAt) {
			delete(s.players, id)
			delete(s.byUsername, p.Username)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
