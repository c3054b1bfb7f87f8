package internal

import (
	"github.com/deadsy/sdfx/sdf"
	"time"
)

// ControlTarget is the producer side of the control service: anything that owns a shared surface
// and can re-run its render pass on request.
type ControlTarget interface {
	// Status returns a snapshot of the producer state (callers may keep and modify it)
	Status() *Status
	// Redraw re-executes the render pass and flushes the surface, blocking until it is done
	Redraw() error
}

// Status is an internal struct that has to be exported for RPC.
type Status struct {
	// SURFACE
	SurfaceID     uint32 // The ID to give to the viewer
	Width, Height int
	BytesPerRow   int
	Global        bool   // Whether other processes can look the surface up
	Frames        uint32 // How many times the surface was flushed
	// RENDERING
	Attached  bool          // Rendering goes straight into the surface (false: read back from the default framebuffer)
	Rendering bool          // A render pass is running right now
	Draws     int           // Completed render passes
	LastError string        // The last render pass error (empty if the last one succeeded)
	Uptime    time.Duration // Time since the surface was created
	Geometry  *GeometryInfo
}

// GeometryInfo describes the geometry currently uploaded by the producer.
type GeometryInfo struct {
	Mode     string
	Vertices int
	Bounds   sdf.Box3
	Source   string // The file it was loaded from (empty for the built-in triangle)
}
