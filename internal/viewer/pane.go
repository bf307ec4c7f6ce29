package viewer

import "sync"

// Container is the surface a viewer renders into.
type Container interface {
	Width() float64
	Offset() (x, y float64)
	Replace(markup string)
	ApplyTransform(t Transform)
}

// Document resolves a selector to a container.
type Document interface {
	Lookup(selector string) (Container, bool)
}

// StaticDocument is a fixed selector -> container table.
type StaticDocument map[string]Container

func (d StaticDocument) Lookup(selector string) (Container, bool) {
	c, ok := d[selector]
	return c, ok
}

// Pane is an in-memory Container whose width is driven by the host.
type Pane struct {
	mu        sync.RWMutex
	width     float64
	offsetX   float64
	offsetY   float64
	markup    string
	transform Transform
	version   uint64
}

// PaneSnapshot is a read-only copy of a pane.
type PaneSnapshot struct {
	Markup    string    `json:"markup"`
	Width     float64   `json:"width"`
	Transform Transform `json:"transform"`
	CSS       string    `json:"css"`
	Version   uint64    `json:"version"`
}

func NewPane(width float64) *Pane {
	return &Pane{width: width, transform: IdentityTransform()}
}

func (p *Pane) Width() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.width
}

func (p *Pane) SetWidth(width float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
}

func (p *Pane) Offset() (float64, float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offsetX, p.offsetY
}

func (p *Pane) SetOffset(x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offsetX, p.offsetY = x, y
}

func (p *Pane) Replace(markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markup = markup
	p.version++
}

func (p *Pane) ApplyTransform(t Transform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transform = t
}

func (p *Pane) Snapshot() PaneSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PaneSnapshot{
		Markup:    p.markup,
		Width:     p.width,
		Transform: p.transform,
		CSS:       p.transform.CSS(),
		Version:   p.version,
	}
}
