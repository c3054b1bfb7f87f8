package sharegl

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/Yeicor/sharegl/internal/gles/soft"
	"image/color"
	"time"
)

// ProducerOption configures a Producer
type ProducerOption func(p *Producer)

// ViewerOption configures a Viewer
type ViewerOption func(v *Viewer)

// ContextFactory creates the GL context a render pass uses, sized to its default framebuffer.
type ContextFactory func(width, height int) gles.Context

func softContext(width, height int) gles.Context {
	return soft.New(width, height)
}

// OptPSize sets the size of the shared surface (default 800x600).
func OptPSize(width, height int) ProducerOption {
	return func(p *Producer) {
		p.props.Width = width
		p.props.Height = height
		p.props.BytesPerRow = 0 // Recomputed from the width
	}
}

// OptPGlobal makes the surface visible to other processes (default true). Local surfaces can only
// be looked up from the same process, and work on every platform.
func OptPGlobal(global bool) ProducerOption {
	return func(p *Producer) {
		p.props.Global = global
	}
}

// OptPAttach renders straight into the surface through a framebuffer attachment (default true).
// Otherwise the default framebuffer is read back into the surface after each pass.
func OptPAttach(attach bool) ProducerOption {
	return func(p *Producer) {
		p.attach = attach
	}
}

// OptPClearColor sets the background (default opaque blue).
func OptPClearColor(c color.Color) ProducerOption {
	return func(p *Producer) {
		p.clearColor = toClearColor(c)
	}
}

// OptPGeometry replaces the built-in triangle.
func OptPGeometry(g *Geometry) ProducerOption {
	return func(p *Producer) {
		p.geometry = g
	}
}

// OptPGeometryFile loads the geometry from a YAML file when Run starts. With watch, changes to the
// file are uploaded and redrawn while running (invalid edits are logged and ignored).
func OptPGeometryFile(path string, watch bool) ProducerOption {
	return func(p *Producer) {
		p.geometryFile = path
		p.watchGeometry = watch
	}
}

// OptPRedrawInterval re-runs the render pass periodically, like a display callback
// (default 0: draw once, then only on request).
func OptPRedrawInterval(d time.Duration) ProducerOption {
	return func(p *Producer) {
		p.redrawInterval = d
	}
}

// OptPControl serves the control RPC (status, redraw, shutdown) on a TCP address
// (e.g. "localhost:7070", ":0" picks a free port).
func OptPControl(addr string) ProducerOption {
	return func(p *Producer) {
		p.controlAddr = addr
	}
}

// OptPOnReady is called once the surface holds its first frame, with the ID to hand to viewers
// and the control address (empty without OptPControl).
func OptPOnReady(fn func(id SurfaceID, controlAddr string)) ProducerOption {
	return func(p *Producer) {
		p.onReady = fn
	}
}

// OptPContext replaces the software GL context.
func OptPContext(factory ContextFactory) ProducerOption {
	return func(p *Producer) {
		p.newContext = factory
	}
}

// OptVClearColor sets the color around the quad (default opaque white).
func OptVClearColor(c color.Color) ViewerOption {
	return func(v *Viewer) {
		v.clearColor = toClearColor(c)
	}
}

// OptVTitle sets the window title (default "Servo Viewer").
func OptVTitle(title string) ViewerOption {
	return func(v *Viewer) {
		v.title = title
	}
}

// OptVWait retries the surface lookup with exponential backoff for up to d before failing
// (default 0: the first failure is fatal).
func OptVWait(d time.Duration) ViewerOption {
	return func(v *Viewer) {
		v.wait = d
	}
}

// OptVContext replaces the software GL context.
func OptVContext(factory ContextFactory) ViewerOption {
	return func(v *Viewer) {
		v.newContext = factory
	}
}

func toClearColor(c color.Color) [4]float32 {
	r, g, b, a := c.RGBA()
	return [4]float32{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff, float32(a) / 0xffff}
}
