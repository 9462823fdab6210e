package core

import "github.com/dkeye/voxify/internal/domain"

// memberSession implements MemberSession by pairing identity + transport.
type memberSession struct {
	id     SessionID
	user   domain.UserID
	signal SignalConnection
}

func NewMemberSession(id SessionID, user domain.UserID, signal SignalConnection) MemberSession {
	return &memberSession{id: id, user: user, signal: signal}
}

func (m *memberSession) ID() SessionID            { return m.id }
func (m *memberSession) User() domain.UserID      { return m.user }
func (m *memberSession) Signal() SignalConnection { return m.signal }
