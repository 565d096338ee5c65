package world

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gridrealm/server/internal/proto"
)

// Visual hash protocol constants.
const (
	// FingerprintLen is the hex length of a visual hash on the wire.
	FingerprintLen = 12
	// hashCacheCap bounds the global hash → state cache.
	hashCacheCap = 10_000
	// seenSetCap bounds each observer's seen-set; when hit, the oldest
	// half is evicted so the observer re-receives at most that many
	// full states.
	seenSetCap = 500
)

// VisualState is everything needed to render an actor: appearance
// fields plus the sprite/tint of each visible equipped item.
type VisualState struct {
	Appearance      map[string]string
	EquippedVisuals map[string]*proto.SpriteRef
}

// View converts to the wire form.
func (v *VisualState) View() *proto.VisualStateView {
	return &proto.VisualStateView{
		Appearance:      v.Appearance,
		EquippedVisuals: v.EquippedVisuals,
	}
}

// Fingerprint computes the 12-hex-char hash of the state. The JSON
// encoding is canonical (maps marshal with sorted keys), so equal
// states always hash equal.
func (v *VisualState) Fingerprint() string {
	type canonical struct {
		Appearance map[string]string           `json:"appearance"`
		Equipped   map[string]*proto.SpriteRef `json:"equipped"`
	}
	raw, err := json.Marshal(canonical{Appearance: v.Appearance, Equipped: v.EquippedVisuals})
	if err != nil {
		// Both maps are plain string/struct data; Marshal cannot fail.
		panic(err)
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}

type cacheEntry struct {
	hash  string
	state *VisualState
}

type seenSet struct {
	hashes map[string]struct{}
	order  []string // insertion order, for half-eviction
}

// VisualRegistry backs the hash-first broadcast protocol: broadcasts
// carry only the fingerprint, and the full state rides along exactly
// when the observer has not seen that fingerprint yet.
type VisualRegistry struct {
	mu sync.Mutex

	// hash → full state, LRU-bounded.
	cache map[string]*list.Element
	lru   *list.List

	// actor key ("p:<id>" / "e:<id>") → current hash.
	current map[string]string

	// observer session key → seen fingerprints.
	seen map[int64]*seenSet
}

func NewVisualRegistry() *VisualRegistry {
	return &VisualRegistry{
		cache:   make(map[string]*list.Element),
		lru:     list.New(),
		current: make(map[string]string),
		seen:    make(map[int64]*seenSet),
	}
}

// Publish records the actor's current state and returns its
// fingerprint. The state enters the hash cache.
func (r *VisualRegistry) Publish(actorKey string, state *VisualState) string {
	hash := state.Fingerprint()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[actorKey] = hash
	if el, ok := r.cache[hash]; ok {
		r.lru.MoveToFront(el)
		return hash
	}
	r.cache[hash] = r.lru.PushFront(&cacheEntry{hash: hash, state: state})
	for r.lru.Len() > hashCacheCap {
		oldest := r.lru.Back()
		r.lru.Remove(oldest)
		delete(r.cache, oldest.Value.(*cacheEntry).hash)
	}
	return hash
}

// CurrentHash returns the actor's published fingerprint, "" if none.
func (r *VisualRegistry) CurrentHash(actorKey string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[actorKey]
}

// Lookup returns the cached state for a fingerprint.
func (r *VisualRegistry) Lookup(hash string) (*VisualState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.cache[hash]
	if !ok {
		return nil, false
	}
	r.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).state, true
}

// StateForObserver resolves what a broadcast to the observer must carry
// for an actor: always the hash, plus the full state exactly when this
// observer has not seen that hash. The hash counts as seen only once
// the full state was actually delivered, so an LRU-evicted state is
// retried on the next sight instead of going dark.
func (r *VisualRegistry) StateForObserver(observer int64, actorKey string) (hash string, full *VisualState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash = r.current[actorKey]
	if hash == "" {
		return "", nil
	}
	ss := r.seen[observer]
	if ss == nil {
		ss = &seenSet{hashes: make(map[string]struct{})}
		r.seen[observer] = ss
	}
	if _, seen := ss.hashes[hash]; seen {
		return hash, nil
	}
	if el, ok := r.cache[hash]; ok {
		full = el.Value.(*cacheEntry).state
		r.lru.MoveToFront(el)
		ss.add(hash)
	}
	return hash, full
}

func (ss *seenSet) add(hash string) {
	ss.hashes[hash] = struct{}{}
	ss.order = append(ss.order, hash)
	if len(ss.order) < seenSetCap {
		return
	}
	// Evict the oldest half.
	cut := len(ss.order) / 2
	for _, h := range ss.order[:cut] {
		delete(ss.hashes, h)
	}
	ss.order = append(ss.order[:0], ss.order[cut:]...)
}

// InvalidateActor drops the actor's current hash, forcing the next
// Publish to re-announce.
func (r *VisualRegistry) InvalidateActor(actorKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.current, actorKey)
}

// ForgetObserver drops a disconnected session's seen-set.
func (r *VisualRegistry) ForgetObserver(observer int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, observer)
}

// SeenCount reports the observer's seen-set size. Test hook.
func (r *VisualRegistry) SeenCount(observer int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ss := r.seen[observer]; ss != nil {
		return len(ss.hashes)
	}
	return 0
}

// CacheLen reports the hash cache size. Test hook.
func (r *VisualRegistry) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}

// PlayerKey and EntityKey build actor keys for the registry.
func PlayerKey(playerID int64) string    { return "p:" + strconv.FormatInt(playerID, 10) }
func EntityKey(instanceID int64) string  { return "e:" + strconv.FormatInt(instanceID, 10) }
