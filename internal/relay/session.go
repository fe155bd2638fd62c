package relay

// Outbox is the transport side of a connection. Send must not block; it
// reports false when the frame could not be queued.
type Outbox interface {
	Send(frame []byte) bool
}

// Session is the per-connection state: the only holder of the connection's
// current room and account. Its fields are guarded by Engine.mu.
type Session struct {
	id      string
	out     Outbox
	room    string
	account string
	closed  bool
}

func (s *Session) joined() bool { return s.room != "" }

func (s *Session) clear() (room, account string) {
	room, account = s.room, s.account
	s.room, s.account = "", ""
	return room, account
}
