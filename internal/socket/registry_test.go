package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", "u1")

	assert.True(t, r.Join("project:p1", c))
	assert.False(t, r.Join("project:p1", c))
	assert.Equal(t, 1, r.Count("project:p1"))
	assert.Equal(t, []string{"c1"}, r.MemberIDs("project:p1"))
}

func TestRegistryLeave(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", "u1")

	assert.False(t, r.Leave("project:p1", "c1"), "leaving an unjoined channel is a no-op")

	r.Join("project:p1", c)
	assert.True(t, r.Leave("project:p1", "c1"))
	assert.Empty(t, r.MembersOf("project:p1"))
	assert.Empty(t, r.ChannelsOf("c1"))
}

func TestRegistryMembershipIsPerConnection(t *testing.T) {
	r := NewRegistry()
	tab1 := newFakeConn("c1", "u1")
	tab2 := newFakeConn("c2", "u1")

	r.Join("project:p1", tab1)
	r.Join("project:p1", tab2)
	r.Leave("project:p1", "c1")

	assert.Equal(t, []string{"c2"}, r.MemberIDs("project:p1"))
}

func TestRegistryLeaveAll(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", "u1")
	other := newFakeConn("c2", "u2")

	r.Join("user:u1", c)
	r.Join("project:p1", c)
	r.Join("project:p2", c)
	r.Join("project:p1", other)

	left := r.LeaveAll("c1")

	assert.Equal(t, []string{"project:p1", "project:p2", "user:u1"}, left)
	assert.Empty(t, r.ChannelsOf("c1"))
	assert.Equal(t, []string{"c2"}, r.MemberIDs("project:p1"))
	assert.Equal(t, 0, r.Count("project:p2"))
}

func TestRegistryMembersOfSortedByID(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c3", "c1", "c2"} {
		r.Join("project:p1", newFakeConn(id, "u"))
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, r.MemberIDs("project:p1"))
}
