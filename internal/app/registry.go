package app

import (
	"sort"
	"sync"

	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberSet map[core.SessionID]core.MemberSession

// Registry is the in-memory room registry.
// The lock guards only map access; fan-out runs on a snapshot so a slow
// member never holds up joins and leaves in other rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey]memberSet
}

var _ core.RoomRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomKey]memberSet)}
}

func (r *Registry) Join(key domain.RoomKey, ms core.MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[key]
	if !ok {
		set = make(memberSet)
		r.rooms[key] = set
	}
	if _, already := set[ms.ID()]; already {
		return
	}
	set[ms.ID()] = ms
	log.Debug().Str("module", "app.registry").Str("sid", string(ms.ID())).Str("room", string(key)).Msg("member added")
}

func (r *Registry) Leave(key domain.RoomKey, sid core.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(key, sid)
}

func (r *Registry) Depart(key domain.RoomKey, sid core.SessionID, user domain.UserID) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	left := r.remove(key, sid)
	for _, ms := range r.rooms[key] {
		if ms.User() == user {
			return left, true
		}
	}
	return left, false
}

// remove must be called with mu held.
func (r *Registry) remove(key domain.RoomKey, sid core.SessionID) bool {
	set, ok := r.rooms[key]
	if !ok {
		return false
	}
	if _, ok = set[sid]; !ok {
		return false
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.rooms, key)
	}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(key)).Msg("member removed")
	return true
}

func (r *Registry) IsMember(key domain.RoomKey, sid core.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[key][sid]
	return ok
}

func (r *Registry) MembersOf(key domain.RoomKey) []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[key]
	out := make([]core.MemberSession, 0, len(set))
	for _, ms := range set {
		out = append(out, ms)
	}
	return out
}

func (r *Registry) Members(key domain.RoomKey) []core.MemberDTO {
	members := r.MembersOf(key)
	out := make([]core.MemberDTO, 0, len(members))
	for _, ms := range members {
		out = append(out, core.MemberDTO{SID: ms.ID(), User: ms.User()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}

func (r *Registry) Broadcast(key domain.RoomKey, event string, payload any, exclude core.SessionID) core.PublishResult {
	return r.publish(key, event, payload, func(ms core.MemberSession) bool {
		return ms.ID() != exclude
	})
}

func (r *Registry) Relay(key domain.RoomKey, target domain.UserID, event string, payload any, exclude core.SessionID) core.PublishResult {
	return r.publish(key, event, payload, func(ms core.MemberSession) bool {
		return ms.ID() != exclude && ms.User() == target
	})
}

func (r *Registry) publish(key domain.RoomKey, event string, payload any, keep func(core.MemberSession) bool) core.PublishResult {
	members := r.MembersOf(key)
	if len(members) == 0 {
		return core.PublishResult{}
	}
	frame, err := core.EncodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.registry").Str("event", event).Msg("encode event")
		return core.PublishResult{}
	}
	res := core.Fanout(members, frame, keep)
	log.Debug().
		Str("module", "app.registry").
		Str("room", string(key)).
		Str("event", event).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("publish result")
	return res
}

func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for key, set := range r.rooms {
		out = append(out, core.RoomInfo{Key: key, Kind: key.Kind().String(), MemberCount: len(set)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
