package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridrealm/server/internal/data"
)

func testPlayer(sessionID, playerID int64, name string) *PlayerInfo {
	return NewPlayerInfo(sessionID, playerID, name, "player", data.Items(), nil)
}

func TestStateRegistry(t *testing.T) {
	s := NewState()
	p := testPlayer(1, 100, "Alice")
	require.Nil(t, s.Add(p))

	require.Same(t, p, s.BySession(1))
	require.Same(t, p, s.ByPlayerID(100))
	require.Same(t, p, s.ByName("alice"))
	require.Same(t, p, s.ByName("ALICE"))
	require.Equal(t, 1, s.Count())

	removed := s.Remove(1)
	require.Same(t, p, removed)
	require.Nil(t, s.BySession(1))
	require.Nil(t, s.ByName("alice"))
}

func TestStateAddEvictsDuplicateLogin(t *testing.T) {
	s := NewState()
	first := testPlayer(1, 100, "Alice")
	second := testPlayer(2, 100, "Alice")

	require.Nil(t, s.Add(first))
	evicted := s.Add(second)
	require.Same(t, first, evicted)

	// The new session owns the player; removing the stale session must
	// not unregister it.
	require.Same(t, second, s.ByPlayerID(100))
	require.Nil(t, s.Remove(1))
	require.Same(t, second, s.ByPlayerID(100))
	require.Same(t, second, s.ByName("alice"))
}
