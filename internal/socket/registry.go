package socket

import (
	"sort"
	"sync"
)

// Conn is one live connection as seen by the registry and the fan-out.
// Deliver must not block.
type Conn interface {
	ID() string
	UserID() string
	Deliver(data []byte) bool
}

// Registry tracks which connections are subscribed to which channels.
// Membership is per connection, so one user with two tabs holds two entries.
type Registry struct {
	mu          sync.RWMutex
	channels    map[string]map[string]Conn     // channel -> connID -> conn
	memberships map[string]map[string]struct{} // connID -> channels
}

func NewRegistry() *Registry {
	return &Registry{
		channels:    make(map[string]map[string]Conn),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join subscribes conn to channel. Joining twice is the same as joining once;
// the return value reports whether the membership is new.
func (r *Registry) Join(channel string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		members = make(map[string]Conn)
		r.channels[channel] = members
	}
	if _, exists := members[conn.ID()]; exists {
		return false
	}
	members[conn.ID()] = conn

	joined, ok := r.memberships[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[conn.ID()] = joined
	}
	joined[channel] = struct{}{}
	return true
}

// Leave removes one membership. Leaving a channel never joined is a no-op.
func (r *Registry) Leave(channel, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(channel, connID)
}

// LeaveAll drops every membership held by connID and returns the channels left.
func (r *Registry) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.memberships[connID]
	left := make([]string, 0, len(joined))
	for channel := range joined {
		left = append(left, channel)
	}
	for _, channel := range left {
		r.leaveLocked(channel, connID)
	}
	sort.Strings(left)
	return left
}

func (r *Registry) leaveLocked(channel, connID string) bool {
	members, ok := r.channels[channel]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
	if joined, ok := r.memberships[connID]; ok {
		delete(joined, channel)
		if len(joined) == 0 {
			delete(r.memberships, connID)
		}
	}
	return true
}

// MembersOf returns a snapshot of the channel's connections ordered by ID.
func (r *Registry) MembersOf(channel string) []Conn {
	r.mu.RLock()
	members := r.channels[channel]
	out := make([]Conn, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// MemberIDs is MembersOf reduced to connection IDs.
func (r *Registry) MemberIDs(channel string) []string {
	members := r.MembersOf(channel)
	ids := make([]string, len(members))
	for i, c := range members {
		ids[i] = c.ID()
	}
	return ids
}

func (r *Registry) ChannelsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.memberships[connID]))
	for channel := range r.memberships[connID] {
		out = append(out, channel)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Count(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}
