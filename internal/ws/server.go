package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meetingrelay/internal/relay"
)

const writeWait = 10 * time.Second

// AccountResolver extracts an authenticated account id from the upgrade
// request. Authentication itself happens elsewhere.
type AccountResolver func(r *http.Request) string

type Options struct {
	ReadLimit       int64
	SendBuffer      int
	PingPeriod      time.Duration // must be < PongWait
	PongWait        time.Duration
	AccountResolver AccountResolver
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 65536
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	return o
}

type WsServer struct {
	engine   *relay.Engine
	router   *Router
	upgrader websocket.Upgrader
	opts     Options
}

func NewWsServer(engine *relay.Engine, opts Options) *WsServer {
	srv := &WsServer{
		engine: engine,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: opts.withDefaults(),
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	var account string
	if s.opts.AccountResolver != nil {
		account = s.opts.AccountResolver(ginCtx.Request)
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.ReadLimit)

	// ─────────────────── Client connected ─────────────────────
	wsConn := newClientConn(rawConn, s.opts.SendBuffer)
	connID := uuid.NewString()
	if err := s.engine.Connect(connID, wsConn); err != nil {
		zap.L().Warn("ws.connect", zap.String("conn", connID), zap.Error(err))
		wsConn.close()
		return
	}

	go s.writer(wsConn)
	go s.reader(&ConnContext{ConnID: connID, Account: account}, wsConn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 join ------------------------------------------------------------------
	Register(s.router, relay.EventJoin,
		func(cc *ConnContext, req JoinRequest) error {
			account := req.Account
			if account == "" {
				account = cc.Account
			}
			return s.engine.Join(cc.ConnID, req.Room, account)
		},
	)

	// 🔹 signal ----------------------------------------------------------------
	Register(s.router, relay.EventSignal,
		func(cc *ConnContext, req SignalRequest) error {
			return s.engine.Signal(cc.ConnID, req.To, req.Data)
		},
	)

	// 🔹 message ---------------------------------------------------------------
	Register(s.router, relay.EventMessage,
		func(cc *ConnContext, body json.RawMessage) error {
			return s.engine.Message(cc.ConnID, body)
		},
	)
}

func (s *WsServer) reader(cc *ConnContext, conn *clientConn) {
	defer func() {
		s.engine.Disconnect(cc.ConnID)
		conn.close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.L().Debug("ws.read", zap.String("conn", cc.ConnID), zap.Error(err))
			}
			return // client closed or errored
		}

		var env relay.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Debug("ws.bad_frame", zap.String("conn", cc.ConnID), zap.Error(err))
			continue
		}
		s.dispatch(cc, env)
	}
}

// dispatch isolates one event: errors and panics are logged, never sent back.
func (s *WsServer) dispatch(cc *ConnContext, env relay.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("ws.handler_panic",
				zap.String("conn", cc.ConnID),
				zap.String("event", env.Event),
				zap.Any("panic", r),
			)
		}
	}()

	if err := s.router.dispatch(cc, env); err != nil {
		zap.L().Debug("ws.event_dropped",
			zap.String("conn", cc.ConnID),
			zap.String("event", env.Event),
			zap.Error(err),
		)
	}
}

func (s *WsServer) writer(conn *clientConn) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-conn.done:
			return
		case frame := <-conn.send:
			if err := conn.write(websocket.TextMessage, frame); err != nil {
				conn.close()
				return
			}
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				conn.close()
				return
			}
		}
	}
}
