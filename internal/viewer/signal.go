package viewer

import (
	"sync"

	"github.com/danmuck/renderframe/internal/render"
)

// Signal announces that diagram content is available. Subscribers register
// up front; Publish calls each of them in registration order.
type Signal struct {
	mu   sync.Mutex
	subs []func(render.DiagramSource)
}

func NewSignal() *Signal {
	return &Signal{}
}

func (s *Signal) Subscribe(fn func(render.DiagramSource)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Signal) Publish(src render.DiagramSource) {
	s.mu.Lock()
	subs := make([]func(render.DiagramSource), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(src)
	}
}
