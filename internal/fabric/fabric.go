// Package fabric delivers frames to every connection of a room, either inside
// this process (Local) or through a shared pub/sub broker so that several
// server instances serve the same rooms (Federated).
package fabric

type Mode string

const (
	ModeLocal     Mode = "local"
	ModeFederated Mode = "federated"
)

// Sink re-emits a frame to the connections attached to this process.
// Absent rooms or connections are ignored.
type Sink interface {
	DeliverRoom(roomID string, frame []byte)
	DeliverConn(connID string, frame []byte)
}

// Fabric is selected once at bootstrap and never branched on per event.
type Fabric interface {
	// Attach binds the local sink; it must be called once before publishing.
	Attach(sink Sink)
	PublishRoom(roomID string, frame []byte)
	PublishConn(connID string, frame []byte)
	Mode() Mode
	Close() error
}

// Local fans out within the process. It is complete only when a single
// instance serves every client of a room.
type Local struct {
	sink Sink
}

func NewLocal() *Local { return &Local{} }

func (l *Local) Attach(sink Sink) { l.sink = sink }

func (l *Local) PublishRoom(roomID string, frame []byte) {
	if l.sink != nil {
		l.sink.DeliverRoom(roomID, frame)
	}
}

func (l *Local) PublishConn(connID string, frame []byte) {
	if l.sink != nil {
		l.sink.DeliverConn(connID, frame)
	}
}

func (l *Local) Mode() Mode { return ModeLocal }

func (l *Local) Close() error { return nil }
