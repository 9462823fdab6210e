package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/metrics"
	"github.com/dkeye/voxify/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSignal) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type received struct {
	Type string
	Data map[string]any
}

// take returns and clears every event delivered so far.
func (f *fakeSignal) take(t *testing.T) []received {
	t.Helper()
	f.mu.Lock()
	frames := f.frames
	f.frames = nil
	f.mu.Unlock()

	out := make([]received, 0, len(frames))
	for _, fr := range frames {
		var env core.Envelope
		require.NoError(t, json.Unmarshal(fr, &env))
		ev := received{Type: env.Type}
		if len(env.Data) > 0 {
			require.NoError(t, json.Unmarshal(env.Data, &ev.Data))
		}
		out = append(out, ev)
	}
	return out
}

type failingPresence struct {
	repository.PresenceRepository
}

func (failingPresence) Insert(context.Context, domain.PresenceRecord) (bool, error) {
	return false, context.DeadlineExceeded
}

func (failingPresence) Delete(context.Context, domain.UserID, domain.ChannelID) (bool, error) {
	return false, context.DeadlineExceeded
}

type harness struct {
	gw       *Gateway
	router   *Router
	reg      *app.Registry
	presence *repository.InMemoryPresenceRepository
	members  *repository.InMemoryMembershipRepository
	prom     *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reg:      app.NewRegistry(),
		presence: repository.NewInMemoryPresenceRepository(),
		members:  repository.NewInMemoryMembershipRepository(),
		prom:     prometheus.NewRegistry(),
	}
	h.router = &Router{
		Registry: h.reg,
		Presence: app.NewPresenceTracker(h.presence, 0),
		Auth:     app.NewCachedAuthorizer(h.members, 0),
		Policy:   app.SimplePolicy{},
		Metrics:  metrics.New(h.prom),
	}
	h.gw = NewGateway(h.router, app.NewRateLimiter(0, 0))
	return h
}

func (h *harness) connect(user string) (*Connection, *fakeSignal) {
	sig := &fakeSignal{}
	return h.gw.Connect(domain.UserID(user), sig), sig
}

func (h *harness) send(t *testing.T, conn *Connection, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(core.Envelope{Type: event, Data: raw})
	require.NoError(t, err)
	h.gw.Dispatch(context.Background(), conn, frame)
}

// voiceChannel registers channel in a server that users belong to.
func (h *harness) voiceChannel(channel string, users ...string) {
	h.members.AddChannel("srv-"+channel, domain.ChannelID(channel))
	for _, u := range users {
		h.members.AddMember("srv-"+channel, domain.UserID(u))
	}
}

type obj = map[string]any
