package viewport

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"
)

func TestWheel_AlwaysClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New()
		ticks := rapid.SliceOf(rapid.Float64Range(-5, 5)).Draw(t, "ticks")
		for _, d := range ticks {
			c.Wheel(d)
			if z := c.Zoom(); z < MinZoom || z > MaxZoom {
				t.Fatalf("zoom %v escaped [%v, %v]", z, MinZoom, MaxZoom)
			}
		}
	})
}

func TestReset_AlwaysIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New()
		steps := rapid.IntRange(0, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				c.Wheel(rapid.Float64Range(-1, 1).Draw(t, "dy"))
			case 1:
				c.PointerDown(r2.Vec{X: rapid.Float64().Draw(t, "x"), Y: 0}, rapid.Bool().Draw(t, "empty"))
			case 2:
				c.PointerMove(r2.Vec{X: rapid.Float64Range(-1e6, 1e6).Draw(t, "mx"), Y: rapid.Float64Range(-1e6, 1e6).Draw(t, "my")})
			case 3:
				c.PointerUp()
			case 4:
				c.PanBy(rapid.Float64Range(-100, 100).Draw(t, "px"), 3)
			}
		}
		c.Reset()
		if c.Zoom() != 1.0 {
			t.Fatalf("zoom after reset = %v", c.Zoom())
		}
		if c.Pan() != (r2.Vec{}) {
			t.Fatalf("pan after reset = %+v", c.Pan())
		}
		if c.Dragging() {
			t.Fatal("still dragging after reset")
		}
	})
}

func TestWheel_Factors(t *testing.T) {
	c := New()
	c.Wheel(-1)
	if math.Abs(c.Zoom()-1.1) > 1e-12 {
		t.Errorf("scroll up zoom = %v, want 1.1", c.Zoom())
	}
	c.Reset()
	c.Wheel(1)
	if math.Abs(c.Zoom()-0.9) > 1e-12 {
		t.Errorf("scroll down zoom = %v, want 0.9", c.Zoom())
	}
	c.Wheel(0)
	if math.Abs(c.Zoom()-0.9) > 1e-12 {
		t.Errorf("zero delta changed zoom to %v", c.Zoom())
	}
	for i := 0; i < 50; i++ {
		c.ZoomIn()
	}
	if c.Zoom() != MaxZoom {
		t.Errorf("expected clamp at %v, got %v", MaxZoom, c.Zoom())
	}
}

func TestDrag(t *testing.T) {
	c := New()
	c.PanBy(10, 10)

	if c.PointerDown(r2.Vec{X: 5, Y: 5}, false) {
		t.Fatal("press on a node must not start a drag")
	}
	if c.PointerMove(r2.Vec{X: 50, Y: 50}) {
		t.Fatal("move without drag changed pan")
	}

	if !c.PointerDown(r2.Vec{X: 100, Y: 100}, true) {
		t.Fatal("press on empty canvas should start drag")
	}
	c.PointerMove(r2.Vec{X: 130, Y: 90})
	if want := (r2.Vec{X: 40, Y: 0}); c.Pan() != want {
		t.Errorf("pan = %+v, want %+v", c.Pan(), want)
	}
	c.PointerMove(r2.Vec{X: 100, Y: 120})
	if want := (r2.Vec{X: 10, Y: 30}); c.Pan() != want {
		t.Errorf("pan = %+v, want %+v", c.Pan(), want)
	}
	c.PointerUp()
	c.PointerMove(r2.Vec{X: 0, Y: 0})
	if want := (r2.Vec{X: 10, Y: 30}); c.Pan() != want {
		t.Errorf("pan moved after release: %+v", c.Pan())
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	c := New()
	c.Wheel(-1)
	c.PanBy(20, -5)
	tr := c.Transform()

	world := r2.Vec{X: 100, Y: 50}
	screen := tr.Apply(world)
	want := r2.Vec{X: 100*1.1 + 20, Y: 50*1.1 - 5}
	if math.Abs(screen.X-want.X) > 1e-9 || math.Abs(screen.Y-want.Y) > 1e-9 {
		t.Errorf("Apply = %+v, want %+v", screen, want)
	}
	back := tr.Invert(screen)
	if math.Abs(back.X-world.X) > 1e-9 || math.Abs(back.Y-world.Y) > 1e-9 {
		t.Errorf("Invert = %+v, want %+v", back, world)
	}
}
