package viewer

import (
	"fmt"
	"math"
	"strconv"
	"sync"
)

const (
	ZoomMin  = 0.5
	ZoomMax  = 8.0
	ZoomStep = 0.1
	MoveStep = 100.0
)

// Transform is the scale and translation applied to rendered output.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// CSS renders t as a CSS transform value.
func (t Transform) CSS() string {
	return fmt.Sprintf("translate(%spx, %spx) scale(%s)", fmtNum(t.TranslateX), fmtNum(t.TranslateY), fmtNum(t.Scale))
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Control is one button of the overlay control panel.
type Control string

const (
	ControlZoomIn  Control = "zoom-in"
	ControlZoomOut Control = "zoom-out"
	ControlReset   Control = "reset"
	ControlUp      Control = "up"
	ControlDown    Control = "down"
	ControlLeft    Control = "left"
	ControlRight   Control = "right"
)

func ParseControl(raw string) (Control, error) {
	switch c := Control(raw); c {
	case ControlZoomIn, ControlZoomOut, ControlReset, ControlUp, ControlDown, ControlLeft, ControlRight:
		return c, nil
	}
	return "", fmt.Errorf("viewer: unknown control %q", raw)
}

// PanZoom owns the transform. Each command mutates it and re-applies the
// whole transform at once.
type PanZoom struct {
	mu    sync.Mutex
	t     Transform
	apply func(Transform)
}

func NewPanZoom(apply func(Transform)) *PanZoom {
	if apply == nil {
		apply = func(Transform) {}
	}
	return &PanZoom{t: IdentityTransform(), apply: apply}
}

// Zoom adds delta to the scale and clamps it to [ZoomMin, ZoomMax]. A
// non-finite delta leaves the scale unchanged.
func (p *PanZoom) Zoom(delta float64) Transform {
	delta = finite(delta)
	return p.mutate(func(t *Transform) {
		t.Scale = math.Min(math.Max(t.Scale+delta, ZoomMin), ZoomMax)
	})
}

func (p *PanZoom) Move(dx, dy float64) Transform {
	dx, dy = finite(dx), finite(dy)
	return p.mutate(func(t *Transform) {
		t.TranslateX += dx
		t.TranslateY += dy
	})
}

func (p *PanZoom) Reset() Transform {
	return p.mutate(func(t *Transform) {
		*t = IdentityTransform()
	})
}

// Reapply pushes the current transform again, e.g. after new output replaced
// the old.
func (p *PanZoom) Reapply() Transform {
	return p.mutate(func(*Transform) {})
}

func (p *PanZoom) Transform() Transform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t
}

// Dispatch is the single entry point for control panel commands.
func (p *PanZoom) Dispatch(c Control) (Transform, error) {
	switch c {
	case ControlZoomIn:
		return p.Zoom(ZoomStep), nil
	case ControlZoomOut:
		return p.Zoom(-ZoomStep), nil
	case ControlReset:
		return p.Reset(), nil
	case ControlUp:
		return p.Move(0, MoveStep), nil
	case ControlDown:
		return p.Move(0, -MoveStep), nil
	case ControlLeft:
		return p.Move(MoveStep, 0), nil
	case ControlRight:
		return p.Move(-MoveStep, 0), nil
	}
	return p.Transform(), fmt.Errorf("viewer: unknown control %q", c)
}

func (p *PanZoom) mutate(fn func(*Transform)) Transform {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.t)
	p.apply(p.t)
	return p.t
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
