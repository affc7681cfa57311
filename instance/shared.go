package instance

import (
	"sync"

	"github.com/horup/hostess/wire"
)

// sharedInfo guards the InstanceInfo snapshot that the lobby reads
// without blocking the instance's tick loop. The actor goroutine is
// the only writer; reads come from Lobby.Snapshot and from sessions
// rendering Instances{}.
type sharedInfo struct {
	mu   sync.RWMutex
	info wire.InstanceInfo
}

func (s *sharedInfo) snapshot() wire.InstanceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *sharedInfo) mutate(f func(*wire.InstanceInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.info)
}
