package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/voxify/internal/adapters/rtc"
	"github.com/dkeye/voxify/internal/adapters/signal"
	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/app/relay"
	"github.com/dkeye/voxify/internal/config"
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/metrics"
	"github.com/dkeye/voxify/internal/repository"
	transport "github.com/dkeye/voxify/internal/transport/http"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpsToken = "ops-secret"

type testServer struct {
	srv      *httptest.Server
	registry *app.Registry
	presence *repository.InMemoryPresenceRepository
	members  *repository.InMemoryMembershipRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Mode:         "test",
		Secret:       "0123456789abcdef0123456789abcdef",
		ReadLimit:    4096,
		PingPeriod:   54 * time.Second,
		WriteWait:    time.Second,
		SendBuffer:   16,
		SlowConsumer: "drop",
		Presence:     config.PresenceConfig{WriteTimeout: time.Second},
		ICEServers:   []config.ICEServer{{URLs: []string{"stun:stun.example.com:3478"}}},
	}

	ts := &testServer{
		registry: app.NewRegistry(),
		presence: repository.NewInMemoryPresenceRepository(),
		members:  repository.NewInMemoryMembershipRepository(),
	}
	presence := app.NewPresenceTracker(ts.presence, cfg.Presence.WriteTimeout)
	promReg := prometheus.NewRegistry()
	auth := app.NewCachedAuthorizer(ts.members, 0)
	gw := relay.NewGateway(&relay.Router{
		Registry: ts.registry,
		Presence: presence,
		Auth:     auth,
		Policy:   app.PolicyFromConfig(cfg.SlowConsumer),
		Metrics:  metrics.New(promReg),
	}, app.NewRateLimiter(0, 0))

	engine := SetupRouter(ctx, cfg, Deps{
		Signal:   signal.NewSignalWSController(cfg, gw, SessionIdentity),
		Handlers: &transport.Handlers{
			Registry: ts.registry,
			Presence: presence,
			Auth:     auth,
			ICE:      rtc.Configuration(cfg.ICEServers),
			Identity: SessionIdentity,
			OpsToken: testOpsToken,
		},
		Gatherer: promReg,
	})
	// stands in for the auth service that owns the session cookie
	engine.GET("/test/login/:id", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionUserID, c.Param("id"))
		if err := s.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	ts.srv = httptest.NewServer(engine)
	t.Cleanup(ts.srv.Close)
	return ts
}

// login returns a client carrying the session cookie of user.
func (ts *testServer) login(t *testing.T, user string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}
	resp, err := client.Get(ts.srv.URL + "/test/login/" + user)
	require.NoError(t, err)
	resp.Body.Close()
	return client
}

// dial opens a signaling socket, logged in as user unless user is empty.
func (ts *testServer) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if user != "" {
		client := ts.login(t, user)
		u, _ := url.Parse(ts.srv.URL)
		for _, c := range client.Jar.Cookies(u) {
			header.Add("Cookie", c.String())
		}
	}

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws/signal"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	if user != "" {
		require.Eventually(t, func() bool {
			return len(ts.registry.MembersOf(domain.CallRoom(domain.UserID(user)))) > 0
		}, 2*time.Second, 10*time.Millisecond)
	}
	return ws
}

func send(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(core.Envelope{Type: event, Data: raw}))
}

func read(t *testing.T, ws *websocket.Conn) (string, map[string]any) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env core.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	var data map[string]any
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &data))
	}
	return env.Type, data
}

func TestSignalOfferOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	u1 := ts.dial(t, "U1")
	u2 := ts.dial(t, "U2")

	send(t, u1, relay.EventOffer, map[string]any{"offer": map[string]any{"sdp": "v=0"}, "target_user": "U2"})

	typ, data := read(t, u2)
	assert.Equal(t, relay.EventOffer, typ)
	assert.Equal(t, "U1", data["user_id"])
	assert.Equal(t, map[string]any{"sdp": "v=0"}, data["offer"])
}

func TestAnonymousSocketGetsErrorEvent(t *testing.T) {
	ts := newTestServer(t)
	anon := ts.dial(t, "")

	send(t, anon, relay.EventVoiceCall, map[string]any{"target_user": "U2", "username": "x"})

	typ, data := read(t, anon)
	assert.Equal(t, relay.EventError, typ)
	assert.Equal(t, map[string]any{"event": relay.EventVoiceCall, "error": "unauthenticated"}, data)

	send(t, anon, relay.EventPing, nil)
	typ, _ = read(t, anon)
	assert.Equal(t, relay.EventPong, typ)
}

func TestSocketCloseCleansUpVoiceChannel(t *testing.T) {
	ts := newTestServer(t)
	ts.members.AddChannel("s1", "7")
	ts.members.AddMember("s1", "U1")
	ts.members.AddMember("s1", "U2")
	u1 := ts.dial(t, "U1")
	u2 := ts.dial(t, "U2")

	send(t, u1, relay.EventJoinVoiceChannel, map[string]any{"channel_id": 7, "username": "alice"})
	require.Eventually(t, func() bool {
		return len(ts.registry.MembersOf(domain.VoiceRoom("7"))) == 1
	}, 2*time.Second, 10*time.Millisecond)

	send(t, u2, relay.EventJoinVoiceChannel, map[string]any{"channel_id": "7", "username": "bob"})
	typ, data := read(t, u1)
	assert.Equal(t, relay.EventUserJoinedVoiceChannel, typ)
	assert.Equal(t, map[string]any{"user_id": "U2", "username": "bob"}, data)

	resp, err := ts.login(t, "U2").Get(ts.srv.URL + "/api/channels/7/voice")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view transport.VoiceChannelResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	assert.Len(t, view.Participants, 2)
	assert.Len(t, view.Live, 2)

	require.NoError(t, u1.Close())

	typ, data = read(t, u2)
	assert.Equal(t, relay.EventUserLeftVoiceChannel, typ)
	assert.Equal(t, map[string]any{"user_id": "U1"}, data)
	require.Eventually(t, func() bool {
		ok, err := ts.presence.Exists(context.Background(), "U1", "7")
		return err == nil && !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRESTViews(t *testing.T) {
	ts := newTestServer(t)
	ts.dial(t, "U1")

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}

	code, body := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	code, body = get("/api/ice-servers")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "stun:stun.example.com:3478")

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "voxify_connections 1")
}

func TestRoomListingNeedsOpsToken(t *testing.T) {
	ts := newTestServer(t)
	ts.dial(t, "U1")

	listRooms := func(token string) (int, string) {
		req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/rooms", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}

	code, _ := listRooms("")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = listRooms("wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := listRooms(testOpsToken)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"rooms":[{"room":"user_U1","kind":"call","member_count":1}]}`, body)
}

func TestChannelVoiceViewNeedsMembership(t *testing.T) {
	ts := newTestServer(t)
	ts.members.AddChannel("s1", "7")
	ts.members.AddMember("s1", "U1")

	status := func(client *http.Client, path string) int {
		resp, err := client.Get(ts.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, status(http.DefaultClient, "/api/channels/7/voice"))

	outsider := ts.login(t, "U9")
	assert.Equal(t, http.StatusForbidden, status(outsider, "/api/channels/7/voice"))
	assert.Equal(t, http.StatusForbidden, status(outsider, "/api/channels/404/voice"))

	member := ts.login(t, "U1")
	assert.Equal(t, http.StatusOK, status(member, "/api/channels/7/voice"))
	assert.Equal(t, http.StatusBadRequest, status(member, "/api/channels/"+strings.Repeat("x", domain.MaxIDLen+1)+"/voice"))
}
