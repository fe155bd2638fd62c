package presence

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinLeaveScenario(t *testing.T) {
	tbl := NewTable()

	tbl.Join("R1", "A", "alice")
	tbl.Join("R1", "B", "alice")
	got := tbl.Join("R1", "C", "")
	assert.Equal(t, Counters{Connections: 3, Accounts: 1}, got)

	got, ok := tbl.Leave("R1", "C")
	require.True(t, ok)
	assert.Equal(t, Counters{Connections: 2, Accounts: 1}, got)

	got, ok = tbl.Leave("R1", "B")
	require.True(t, ok)
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, got)

	got, ok = tbl.Leave("R1", "A")
	assert.False(t, ok)
	assert.Equal(t, Counters{}, got)
	assert.Empty(t, tbl.Rooms())
}

func TestLeaveLastConnectionOfAccount(t *testing.T) {
	tbl := NewTable()
	tbl.Join("R1", "A", "alice")
	tbl.Join("R1", "B", "bob")

	got, _ := tbl.Leave("R1", "A")
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, got)
}

func TestRepeatedJoinIsNoOp(t *testing.T) {
	tbl := NewTable()
	first := tbl.Join("R1", "A", "alice")
	second := tbl.Join("R1", "A", "alice")
	assert.Equal(t, first, second)
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, second)
}

func TestRejoinWithDifferentAccount(t *testing.T) {
	tbl := NewTable()
	tbl.Join("R1", "A", "")
	got := tbl.Join("R1", "A", "alice")
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, got)

	got = tbl.Join("R1", "A", "bob")
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, got)

	got, ok := tbl.Leave("R1", "A")
	assert.False(t, ok)
	assert.Equal(t, Counters{}, got)
}

func TestJoinOtherRoomMovesConnection(t *testing.T) {
	tbl := NewTable()
	tbl.Join("R1", "A", "alice")
	tbl.Join("R1", "B", "")
	tbl.Join("R2", "A", "alice")

	assert.Equal(t, Counters{Connections: 1, Accounts: 0}, tbl.Counters("R1"))
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, tbl.Counters("R2"))

	roomID, ok := tbl.RoomOf("A")
	require.True(t, ok)
	assert.Equal(t, "R2", roomID)
}

func TestLeaveUnknownIsNoOp(t *testing.T) {
	tbl := NewTable()

	_, ok := tbl.Leave("nowhere", "A")
	assert.False(t, ok)

	tbl.Join("R1", "A", "alice")
	got, ok := tbl.Leave("R1", "ghost")
	assert.True(t, ok)
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, got)

	// Leaving a room the connection is not in must not touch its real room.
	_, ok = tbl.Leave("R2", "A")
	assert.False(t, ok)
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, tbl.Counters("R1"))
}

func TestDoubleLeaveDecrementsOnce(t *testing.T) {
	tbl := NewTable()
	tbl.Join("R1", "A", "alice")
	tbl.Join("R1", "B", "alice")

	tbl.Leave("R1", "A")
	got, ok := tbl.Leave("R1", "A")
	require.True(t, ok)
	assert.Equal(t, Counters{Connections: 1, Accounts: 1}, got)
}

func TestMembersSnapshot(t *testing.T) {
	tbl := NewTable()
	tbl.Join("R1", "A", "")
	tbl.Join("R1", "B", "")
	tbl.Join("R2", "C", "")

	assert.ElementsMatch(t, []string{"A", "B"}, tbl.Members("R1"))
	assert.Nil(t, tbl.Members("R3"))
	assert.Equal(t, []string{"R1", "R2"}, tbl.Rooms())
}

// Random join/leave sequences must always agree with a naive recount.
func TestCountersMatchModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tbl := NewTable()
	accountOf := map[string]string{}
	live := map[string]bool{}
	accounts := []string{"", "alice", "bob", "carol"}

	for i := 0; i < 2000; i++ {
		conn := fmt.Sprintf("c%d", rng.Intn(25))
		if rng.Intn(3) == 0 {
			tbl.Leave("R", conn)
			delete(live, conn)
		} else {
			acc := accounts[rng.Intn(len(accounts))]
			tbl.Join("R", conn, acc)
			live[conn] = true
			accountOf[conn] = acc
		}

		distinct := map[string]struct{}{}
		for c := range live {
			if a := accountOf[c]; a != "" {
				distinct[a] = struct{}{}
			}
		}
		got := tbl.Counters("R")
		require.Equal(t, len(live), got.Connections, "step %d", i)
		require.Equal(t, len(distinct), got.Accounts, "step %d", i)
		require.LessOrEqual(t, got.Accounts, got.Connections)
	}
}
