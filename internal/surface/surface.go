// Package surface manages pixel surfaces that can be shared with other processes by ID.
//
// Pixels are 4 bytes wide (BGRA) and rows are stored bottom-up, the order GL texture uploads
// use. A surface is created by its owner and looked up by any number of consumers; Close on
// the owner destroys it while Close on a looked-up reference only detaches.
package surface

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ID names a surface. Global surfaces use the platform's ID (a System V shmid on linux, an
// IOSurfaceID on darwin).
type ID uint32

// Properties describe a surface to create. Zero BytesPerElement and BytesPerRow take their
// defaults (4 and Width*BytesPerElement).
type Properties struct {
	Width, Height   int
	BytesPerRow     int
	BytesPerElement int
	// Global surfaces can be looked up from other processes.
	Global bool
}

var (
	ErrNotFound          = errors.New("surface not found")
	ErrUnsupported       = errors.New("global surfaces are not supported on this platform")
	ErrInvalidProperties = errors.New("invalid surface properties")
	ErrClosed            = errors.New("surface is closed")
)

func (p Properties) withDefaults() (Properties, error) {
	if p.BytesPerElement == 0 {
		p.BytesPerElement = 4
	}
	if p.BytesPerRow == 0 {
		p.BytesPerRow = p.Width * p.BytesPerElement
	}
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return p, fmt.Errorf("%w: size %dx%d", ErrInvalidProperties, p.Width, p.Height)
	case p.BytesPerElement != 4:
		return p, fmt.Errorf("%w: %d bytes per element (only 4 is supported)", ErrInvalidProperties, p.BytesPerElement)
	case p.BytesPerRow < p.Width*p.BytesPerElement:
		return p, fmt.Errorf("%w: %d bytes per row for width %d", ErrInvalidProperties, p.BytesPerRow, p.Width)
	}
	return p, nil
}

// backing is the platform memory behind a Surface.
type backing interface {
	bytes() []byte
	lock() error
	unlock() error
	// frame returns the flush counter; flush increments it.
	frame() uint32
	flush()
	close(owner bool) error
}

// Surface is a handle to shared pixel memory. Lock, Unlock and Bytes may be used from several
// goroutines; Bytes is only meaningful while locked.
type Surface struct {
	id    ID
	props Properties
	owner bool

	mu     sync.Mutex
	closed atomic.Bool
	b      backing
}

// Create allocates a new surface. Global surfaces use the platform sharing primitive and return
// ErrUnsupported where there is none.
func Create(props Properties) (*Surface, error) {
	props, err := props.withDefaults()
	if err != nil {
		return nil, err
	}
	if !props.Global {
		return createLocal(props), nil
	}
	id, b, err := createGlobal(props)
	if err != nil {
		return nil, err
	}
	return &Surface{id: id, props: props, owner: true, b: b}, nil
}

// Lookup opens a non-owning reference to an existing surface. The process-local registry is
// consulted before global surfaces.
func Lookup(id ID) (*Surface, error) {
	if s, ok := lookupLocal(id); ok {
		return s, nil
	}
	props, b, err := lookupGlobal(id)
	if err != nil {
		return nil, err
	}
	return &Surface{id: id, props: props, b: b}, nil
}

func (s *Surface) ID() ID               { return s.id }
func (s *Surface) Width() int           { return s.props.Width }
func (s *Surface) Height() int          { return s.props.Height }
func (s *Surface) BytesPerRow() int     { return s.props.BytesPerRow }
func (s *Surface) BytesPerElement() int { return s.props.BytesPerElement }
func (s *Surface) Global() bool         { return s.props.Global }

// Owner reports whether this handle created the surface.
func (s *Surface) Owner() bool { return s.owner }

// Lock gives the caller access to Bytes until Unlock.
func (s *Surface) Lock() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	if err := s.b.lock(); err != nil {
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Surface) Unlock() error {
	err := s.b.unlock()
	s.mu.Unlock()
	return err
}

// Bytes returns the pixel memory: Height rows of BytesPerRow bytes, bottom row first.
func (s *Surface) Bytes() []byte {
	if s.closed.Load() {
		return nil
	}
	return s.b.bytes()
}

// Flush publishes the current contents by advancing the frame counter seen by every reference.
func (s *Surface) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.b.flush()
	return nil
}

// Frame returns how many times the surface has been flushed.
func (s *Surface) Frame() uint32 {
	if s.closed.Load() {
		return 0
	}
	return s.b.frame()
}

// Close destroys an owned surface or detaches a looked-up one. Closing twice is a no-op.
func (s *Surface) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.close(s.owner)
}

func (s *Surface) String() string {
	kind := "local"
	if s.props.Global {
		kind = "global"
	}
	return fmt.Sprintf("surface %d (%s %dx%d, %d bytes per row)", s.id, kind, s.props.Width, s.props.Height, s.props.BytesPerRow)
}
