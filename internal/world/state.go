package world

import (
	"strings"
	"sync"
)

// State is the session registry: every authenticated player's runtime,
// indexed three ways. Handlers run on session goroutines and the tick
// loop on map workers, so all access locks.
type State struct {
	mu         sync.RWMutex
	bySession  map[int64]*PlayerInfo
	byPlayerID map[int64]*PlayerInfo
	byName     map[string]*PlayerInfo // lowercase username

	Visuals *VisualRegistry
}

func NewState() *State {
	return &State{
		bySession:  make(map[int64]*PlayerInfo),
		byPlayerID: make(map[int64]*PlayerInfo),
		byName:     make(map[string]*PlayerInfo),
		Visuals:    NewVisualRegistry(),
	}
}

// Add registers an authenticated player. A second session for the same
// player ID replaces the first; the caller disconnects the old socket.
func (s *State) Add(p *PlayerInfo) (evicted *PlayerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byPlayerID[p.PlayerID]; ok {
		delete(s.bySession, old.SessionID)
		evicted = old
	}
	s.bySession[p.SessionID] = p
	s.byPlayerID[p.PlayerID] = p
	s.byName[strings.ToLower(p.Username)] = p
	return evicted
}

// Remove drops the session's player, if the session still owns it.
func (s *State) Remove(sessionID int64) *PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(s.bySession, sessionID)
	if cur := s.byPlayerID[p.PlayerID]; cur == p {
		delete(s.byPlayerID, p.PlayerID)
		delete(s.byName, strings.ToLower(p.Username))
	}
	s.Visuals.ForgetObserver(sessionID)
	return p
}

// BySession resolves the player bound to a session.
func (s *State) BySession(sessionID int64) *PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bySession[sessionID]
}

// ByPlayerID resolves a player by account ID.
func (s *State) ByPlayerID(playerID int64) *PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byPlayerID[playerID]
}

// ByName resolves a player by username, case-insensitively.
func (s *State) ByName(username string) *PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[strings.ToLower(username)]
}

// ForEach visits every registered player.
func (s *State) ForEach(fn func(*PlayerInfo)) {
	s.mu.RLock()
	players := make([]*PlayerInfo, 0, len(s.bySession))
	for _, p := range s.bySession {
		players = append(players, p)
	}
	s.mu.RUnlock()
	for _, p := range players {
		fn(p)
	}
}

// Count returns the number of registered players.
func (s *State) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySession)
}
