// Package presence tracks which connections and which distinct accounts are
// currently present in each room of this process.
package presence

import (
	"sort"
	"sync"
)

// Counters is the pair broadcast to room members in a presence-update.
type Counters struct {
	Connections int `json:"connections"`
	Accounts    int `json:"accounts"`
}

type room struct {
	conns    map[string]string // connectionID -> accountID ("" when anonymous)
	accounts map[string]int    // accountID -> live connections carrying it
}

func newRoom() *room {
	return &room{
		conns:    make(map[string]string),
		accounts: make(map[string]int),
	}
}

func (r *room) counters() Counters {
	return Counters{Connections: len(r.conns), Accounts: len(r.accounts)}
}

func (r *room) dropAccount(account string) {
	if account == "" {
		return
	}
	if r.accounts[account] <= 1 {
		delete(r.accounts, account)
		return
	}
	r.accounts[account]--
}

// Table keeps per-room connection and account sets. A connection id is
// present in at most one room at a time.
type Table struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	roomOf map[string]string // connectionID -> roomID
}

func NewTable() *Table {
	return &Table{
		rooms:  make(map[string]*room),
		roomOf: make(map[string]string),
	}
}

// Join inserts conn into room. Repeating a join for the same room is a no-op
// on the sets, except that a changed account replaces the previous one.
// A connection currently in a different room is moved out of it first.
func (t *Table) Join(roomID, conn, account string) Counters {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.roomOf[conn]; ok && prev != roomID {
		t.leaveLocked(prev, conn)
	}

	r, ok := t.rooms[roomID]
	if !ok {
		r = newRoom()
		t.rooms[roomID] = r
	}
	if old, present := r.conns[conn]; present {
		if old == account {
			return r.counters()
		}
		r.dropAccount(old)
	}
	r.conns[conn] = account
	if account != "" {
		r.accounts[account]++
	}
	t.roomOf[conn] = roomID
	return r.counters()
}

// Leave removes conn from room. The account it carried leaves the account set
// only when no other connection in the room still carries it. The second
// return value reports whether the room still exists afterwards: it is false
// when the room was unknown or its last connection just left. Leaving a room
// conn is not in changes nothing and returns the room's current counters.
func (t *Table) Leave(roomID, conn string) (Counters, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.roomOf[conn] != roomID {
		r, ok := t.rooms[roomID]
		if !ok {
			return Counters{}, false
		}
		return r.counters(), true
	}
	return t.leaveLocked(roomID, conn)
}

func (t *Table) leaveLocked(roomID, conn string) (Counters, bool) {
	delete(t.roomOf, conn)

	r, ok := t.rooms[roomID]
	if !ok {
		return Counters{}, false
	}
	account, present := r.conns[conn]
	if !present {
		return r.counters(), len(r.conns) > 0
	}
	delete(r.conns, conn)
	r.dropAccount(account)

	if len(r.conns) == 0 {
		delete(t.rooms, roomID)
		return Counters{}, false
	}
	return r.counters(), true
}

// Counters returns the presence counters of room; zero for unknown rooms.
func (t *Table) Counters(roomID string) Counters {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if r, ok := t.rooms[roomID]; ok {
		return r.counters()
	}
	return Counters{}
}

// RoomOf returns the room conn is currently in.
func (t *Table) RoomOf(conn string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	roomID, ok := t.roomOf[conn]
	return roomID, ok
}

// Members returns a snapshot of the connection ids in room.
func (t *Table) Members(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Rooms lists the ids of all non-empty rooms, sorted.
func (t *Table) Rooms() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.rooms))
	for id := range t.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
