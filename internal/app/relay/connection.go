package relay

import (
	"sync"

	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
)

// Connection is one client socket as seen by the relay. The bound user never
// changes after Connect; an empty user means an anonymous socket.
type Connection struct {
	core.MemberSession

	mu     sync.Mutex
	rooms  map[domain.RoomKey]domain.UserID
	closed bool
}

var _ core.MemberSession = (*Connection)(nil)

func newConnection(id core.SessionID, user domain.UserID, signal core.SignalConnection) *Connection {
	return &Connection{
		MemberSession: core.NewMemberSession(id, user, signal),
		rooms:         make(map[domain.RoomKey]domain.UserID),
	}
}

func (c *Connection) Authenticated() bool {
	return c.User() != ""
}

// Personal returns the call room of the bound user.
func (c *Connection) Personal() (domain.RoomKey, bool) {
	if !c.Authenticated() {
		return "", false
	}
	return domain.CallRoom(c.User()), true
}

// track records key with the user id announced for it. It returns false once
// the connection is closed so that a late join cannot outlive disconnect.
func (c *Connection) track(key domain.RoomKey, announced domain.UserID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.rooms[key] = announced
	return true
}

func (c *Connection) untrack(key domain.RoomKey) (domain.UserID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	announced, ok := c.rooms[key]
	if ok {
		delete(c.rooms, key)
	}
	return announced, ok
}

// drain marks the connection closed and hands back every joined room.
// first is false when the connection was already drained.
func (c *Connection) drain() (rooms map[domain.RoomKey]domain.UserID, first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.closed = true
	rooms = c.rooms
	c.rooms = make(map[domain.RoomKey]domain.UserID)
	return rooms, true
}

func (c *Connection) limitKey() string {
	if c.Authenticated() {
		return "user:" + string(c.User())
	}
	return "conn:" + string(c.ID())
}
