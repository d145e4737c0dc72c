package socket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id   string
	user string

	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func newFakeConn(id, user string) *fakeConn {
	return &fakeConn{id: id, user: user}
}

func (f *fakeConn) ID() string     { return f.id }
func (f *fakeConn) UserID() string { return f.user }

func (f *fakeConn) Deliver(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.frames = append(f.frames, data)
	return true
}

func (f *fakeConn) received(t *testing.T) []RawEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]RawEnvelope, 0, len(f.frames))
	for _, data := range f.frames {
		env, err := DecodeEnvelope(data)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}
