package core

import "github.com/dkeye/voxify/internal/domain"

type SessionID string

// MemberSession binds a bound identity and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	// User is empty for anonymous connections.
	User() domain.UserID
	Signal() SignalConnection
}
