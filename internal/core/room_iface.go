package core

import (
	"github.com/dkeye/voxify/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the router.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID  SessionID     `json:"sid"`
	User domain.UserID `json:"user_id,omitempty"`
}

type RoomInfo struct {
	Key         domain.RoomKey `json:"room"`
	Kind        string         `json:"kind"`
	MemberCount int            `json:"member_count"`
}

// RoomRegistry is the single source of truth for who is present where.
// A room exists iff its member set is non-empty.
type RoomRegistry interface {
	Join(key domain.RoomKey, ms MemberSession)
	// Leave reports whether ms was a member.
	Leave(key domain.RoomKey, sid SessionID) bool
	// Depart is Leave that also reports, under the same lock, whether another
	// member bound to user is still in key.
	Depart(key domain.RoomKey, sid SessionID, user domain.UserID) (left, userRemains bool)
	IsMember(key domain.RoomKey, sid SessionID) bool
	MembersOf(key domain.RoomKey) []MemberSession
	Members(key domain.RoomKey) []MemberDTO
	Broadcast(key domain.RoomKey, event string, payload any, exclude SessionID) PublishResult
	// Relay delivers only to members of key bound to target.
	Relay(key domain.RoomKey, target domain.UserID, event string, payload any, exclude SessionID) PublishResult
	List() []RoomInfo
}
