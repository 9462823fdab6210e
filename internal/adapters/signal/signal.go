package signal

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/voxify/internal/app/relay"
	"github.com/dkeye/voxify/internal/config"
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WsSignalConn is the websocket side of core.SignalConnection. Frames queue
// in send and are written by the connection's write pump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func NewWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// IdentityResolver returns the authenticated user of a request, or "".
type IdentityResolver func(c *gin.Context) domain.UserID

type SignalWSController struct {
	Gateway  *relay.Gateway
	Identity IdentityResolver

	readLimit  int64
	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
	sendBuffer int
	cleanup    time.Duration
	upgrader   websocket.Upgrader
	pumps      sync.WaitGroup
}

func NewSignalWSController(cfg *config.Config, gw *relay.Gateway, identity IdentityResolver) *SignalWSController {
	ctl := &SignalWSController{
		Gateway:    gw,
		Identity:   identity,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait(),
		writeWait:  cfg.WriteWait,
		sendBuffer: cfg.SendBuffer,
		cleanup:    cfg.Presence.WriteTimeout * 4,
	}
	if ctl.cleanup <= 0 {
		ctl.cleanup = 10 * time.Second
	}
	origins := cfg.CORSOrigins
	ctl.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			return slices.Contains(origins, r.Header.Get("Origin"))
		},
	}
	return ctl
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user := domain.UserID("")
	if ctl.Identity != nil {
		user = ctl.Identity(c)
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sc := NewWsSignalConn(ws, ctl.sendBuffer)
	conn := ctl.Gateway.Connect(user, sc)

	ctl.pumps.Add(1)
	go ctl.writePump(ctx, conn.ID(), sc)
	go ctl.readPump(ctx, conn, sc)
}

// Wait blocks until every read pump has finished its disconnect cleanup, or
// until timeout.
func (ctl *SignalWSController) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		ctl.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
