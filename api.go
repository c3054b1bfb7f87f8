// Package sharegl shares rendered pixels between processes through a surface named by an integer
// ID: a Producer creates the surface and renders a triangle into it, a Viewer looks it up by ID
// and displays it in a window as a textured quad.
//
// All GL work goes through an explicit gles.Context (the software implementation by default), so
// both render passes run in tests without a window or a GPU.
package sharegl

import (
	"errors"
	"fmt"
	"github.com/Yeicor/sharegl/internal"
	"github.com/Yeicor/sharegl/internal/surface"
	"strconv"
)

const (
	// DefaultWidth and DefaultHeight are the surface size the demos share.
	DefaultWidth  = 800
	DefaultHeight = 600
	// DefaultTitle is the viewer window title.
	DefaultTitle = "Servo Viewer"
)

// SurfaceID names a shared surface across processes.
type SurfaceID = surface.ID

// Status is a snapshot of a running producer, as returned by Producer.Status and the control RPC.
type Status = internal.Status

// ErrInvalidSurfaceID is returned by ParseSurfaceID for anything but a base-10 uint32.
var ErrInvalidSurfaceID = errors.New("invalid surface ID")

// ParseSurfaceID parses the viewer's positional argument.
func ParseSurfaceID(s string) (SurfaceID, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w %q: expected a base-10 integer", ErrInvalidSurfaceID, s)
	}
	return SurfaceID(id), nil
}
