// Package viewport tracks the pan/zoom transform of the roadmap canvas and
// turns pointer events into transform updates.
//
// A Controller has a single owner (the active view) and is not safe for
// concurrent use.
package viewport

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Zoom limits and per-tick wheel factors.
const (
	MinZoom     = 0.5
	MaxZoom     = 2.0
	DefaultZoom = 1.0

	ZoomInFactor  = 1.1
	ZoomOutFactor = 0.9
)

// Transform maps world coordinates to screen coordinates:
// screen = world*Scale + Translate.
type Transform struct {
	Scale     float64
	Translate r2.Vec
}

// Apply maps a world point to the screen.
func (t Transform) Apply(world r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(t.Scale, world), t.Translate)
}

// Invert maps a screen point back to world space.
func (t Transform) Invert(screen r2.Vec) r2.Vec {
	if t.Scale == 0 {
		return screen
	}
	return r2.Scale(1/t.Scale, r2.Sub(screen, t.Translate))
}

// Controller holds pan offset, zoom and drag state.
type Controller struct {
	pan      r2.Vec
	zoom     float64
	dragging bool

	dragStart  r2.Vec
	panAtStart r2.Vec
}

// New returns a controller at zoom 1 with no pan.
func New() *Controller {
	return &Controller{zoom: DefaultZoom}
}

// Pan returns the current pan offset.
func (c *Controller) Pan() r2.Vec { return c.pan }

// Zoom returns the current zoom scale.
func (c *Controller) Zoom() float64 { return c.zoom }

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.dragging }

// PointerDown starts a drag when the press landed on empty canvas. Presses on
// nodes are left to the selection logic. Returns whether a drag started.
func (c *Controller) PointerDown(p r2.Vec, onEmpty bool) bool {
	if !onEmpty {
		return false
	}
	c.dragging = true
	c.dragStart = p
	c.panAtStart = c.pan
	return true
}

// PointerMove updates the pan while dragging. Returns whether the pan changed.
func (c *Controller) PointerMove(p r2.Vec) bool {
	if !c.dragging {
		return false
	}
	next := r2.Add(r2.Sub(p, c.dragStart), c.panAtStart)
	if next == c.pan {
		return false
	}
	c.pan = next
	return true
}

// PointerUp ends any drag.
func (c *Controller) PointerUp() {
	c.dragging = false
}

// Wheel applies one wheel tick. Positive deltaY scrolls down and zooms out,
// negative scrolls up and zooms in.
func (c *Controller) Wheel(deltaY float64) {
	switch {
	case deltaY > 0:
		c.setZoom(c.zoom * ZoomOutFactor)
	case deltaY < 0:
		c.setZoom(c.zoom * ZoomInFactor)
	}
}

// ZoomIn is one upward wheel tick.
func (c *Controller) ZoomIn() { c.Wheel(-1) }

// ZoomOut is one downward wheel tick.
func (c *Controller) ZoomOut() { c.Wheel(1) }

// PanBy shifts the pan offset, used for keyboard panning.
func (c *Controller) PanBy(dx, dy float64) {
	c.pan = r2.Add(c.pan, r2.Vec{X: dx, Y: dy})
}

// Reset restores zoom 1 and pan (0,0) and cancels any drag.
func (c *Controller) Reset() {
	c.zoom = DefaultZoom
	c.pan = r2.Vec{}
	c.dragging = false
}

// Transform returns the current world to screen transform.
func (c *Controller) Transform() Transform {
	return Transform{Scale: c.zoom, Translate: c.pan}
}

func (c *Controller) setZoom(z float64) {
	c.zoom = Clamp(z)
}

// Clamp bounds z to [MinZoom, MaxZoom].
func Clamp(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
