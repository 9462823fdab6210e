package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkeye/voxify/internal/core"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverConn returns the server side of a fresh websocket pair.
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return <-conns
}

func TestWsSignalConnBackpressure(t *testing.T) {
	c := NewWsSignalConn(serverConn(t), 2)

	require.NoError(t, c.TrySend(core.Frame("a")))
	require.NoError(t, c.TrySend(core.Frame("b")))
	assert.ErrorIs(t, c.TrySend(core.Frame("c")), core.ErrBackpressure)
}

func TestWsSignalConnClose(t *testing.T) {
	c := NewWsSignalConn(serverConn(t), 2)

	c.Close()
	c.Close()

	assert.ErrorIs(t, c.TrySend(core.Frame("a")), core.ErrClosed)
}
