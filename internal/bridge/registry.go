package bridge

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/renderframe/internal/frame"
)

var (
	ErrFrameNotFound = errors.New("frame not found")
	ErrFrameExists   = errors.New("frame already exists")
)

type entry struct {
	frame  *frame.Frame
	outbox *Outbox
}

// Registry holds the live frames by identity.
type Registry struct {
	mu     sync.RWMutex
	frames map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{frames: make(map[string]entry)}
}

func (r *Registry) Add(f *frame.Frame, outbox *Outbox) error {
	key := strings.TrimSpace(f.Identity())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.frames[key]; ok {
		return ErrFrameExists
	}
	r.frames[key] = entry{frame: f, outbox: outbox}
	return nil
}

func (r *Registry) Get(identity string) (*frame.Frame, *Outbox, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.frames[strings.TrimSpace(identity)]
	if !ok {
		return nil, nil, ErrFrameNotFound
	}
	return e.frame, e.outbox, nil
}

func (r *Registry) Remove(identity string) error {
	r.mu.Lock()
	e, ok := r.frames[strings.TrimSpace(identity)]
	delete(r.frames, strings.TrimSpace(identity))
	r.mu.Unlock()
	if !ok {
		return ErrFrameNotFound
	}
	e.frame.Close()
	return nil
}

func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.frames))
	for id := range r.frames {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close shuts down every frame.
func (r *Registry) Close() {
	r.mu.Lock()
	frames := r.frames
	r.frames = make(map[string]entry)
	r.mu.Unlock()
	for _, e := range frames {
		e.frame.Close()
	}
}
