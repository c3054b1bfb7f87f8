package sharegl

import (
	"context"
	"errors"
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/Yeicor/sharegl/internal/gles/glestest"
	"github.com/Yeicor/sharegl/internal/gles/soft"
	"github.com/Yeicor/sharegl/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"image/color"
	"strconv"
	"testing"
	"time"
)

// fakeWindow records the frames a Viewer presents.
type fakeWindow struct {
	w, h  int
	swaps int
	last  *image.NRGBA
}

func (f *fakeWindow) Size() (int, int) { return f.w, f.h }

func (f *fakeWindow) SwapBuffers(frame *image.NRGBA) error {
	f.swaps++
	f.last = image.NewNRGBA(frame.Rect)
	copy(f.last.Pix, frame.Pix)
	return nil
}

// countingContexts wraps every context the viewer creates.
type countingContexts struct {
	created []*glestest.Context
}

func (c *countingContexts) factory(w, h int) gles.Context {
	gl := glestest.Wrap(soft.New(w, h))
	c.created = append(c.created, gl)
	return gl
}

func openViewer(t *testing.T, id SurfaceID, opts ...ViewerOption) *Viewer {
	t.Helper()
	v := NewViewer(id, opts...)
	require.NoError(t, v.Open(context.Background()))
	t.Cleanup(func() { require.NoError(t, v.Close()) })
	return v
}

var (
	frameWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	frameBlue  = color.NRGBA{B: 255, A: 255}
)

func TestViewerEndToEnd(t *testing.T) {
	rp := startProducer(t, OptPGlobal(false))
	id, err := ParseSurfaceID(strconv.FormatUint(uint64(rp.id), 10))
	require.NoError(t, err)
	v := openViewer(t, id)
	assert.Equal(t, DefaultWidth, v.Surface().Width())
	assert.Equal(t, DefaultHeight, v.Surface().Height())
	assert.Equal(t, DefaultWidth*4, v.Surface().BytesPerRow())

	win := &fakeWindow{w: DefaultWidth, h: DefaultHeight}
	require.NoError(t, v.Display(win))
	assert.Equal(t, 1, win.swaps)
	// Right angle at the center of the window, legs going up and right
	assert.Equal(t, frameWhite, win.last.NRGBAAt(500, 225))
	assert.Equal(t, frameWhite, win.last.NRGBAAt(410, 290))
	assert.Equal(t, frameBlue, win.last.NRGBAAt(200, 450))
	assert.Equal(t, frameBlue, win.last.NRGBAAt(700, 100))
	assert.Equal(t, frameBlue, win.last.NRGBAAt(0, 0))
}

func TestViewerTextureCreatedOnce(t *testing.T) {
	rp := startProducer(t, OptPGlobal(false), OptPSize(64, 48))
	contexts := &countingContexts{}
	v := openViewer(t, rp.id, OptVContext(contexts.factory))
	win := &fakeWindow{w: 64, h: 48}
	for i := 1; i <= 5; i++ {
		require.NoError(t, v.Display(win))
		assert.Equal(t, i, win.swaps)
	}
	require.Len(t, contexts.created, 1)
	gl := contexts.created[0]
	assert.Equal(t, 1, gl.Calls("CreateTexture"))
	assert.Equal(t, 1, gl.Calls("TexImageSurface"))
	assert.Equal(t, 1, gl.Calls("CreateProgram"))
	assert.Equal(t, 5, gl.Calls("DrawArrays"))
	assert.Equal(t, gles.NoError, gl.GetError())
}

func TestViewerShowsNewFrames(t *testing.T) {
	rp := startProducer(t, OptPGlobal(false), OptPSize(64, 48))
	v := openViewer(t, rp.id)
	win := &fakeWindow{w: 64, h: 48}
	require.NoError(t, v.Display(win))
	assert.Equal(t, frameBlue, win.last.NRGBAAt(10, 40))

	// The texture aliases the surface memory: new producer frames show up without recreating it
	s := v.Surface()
	require.NoError(t, s.Lock())
	for i := range s.Bytes() {
		s.Bytes()[i] = 255
	}
	require.NoError(t, s.Unlock())
	require.NoError(t, v.Display(win))
	assert.Equal(t, frameWhite, win.last.NRGBAAt(10, 40))
}

func TestViewerContextPerWindow(t *testing.T) {
	rp := startProducer(t, OptPGlobal(false), OptPSize(64, 48))
	contexts := &countingContexts{}
	v := openViewer(t, rp.id, OptVContext(contexts.factory), OptVClearColor(color.Black))
	win1, win2 := &fakeWindow{w: 64, h: 48}, &fakeWindow{w: 32, h: 24}
	require.NoError(t, v.Display(win1))
	require.NoError(t, v.Display(win2))
	require.NoError(t, v.Display(win1))
	require.Len(t, contexts.created, 2)

	// A resize starts over with a new context
	win1.w, win1.h = 128, 96
	require.NoError(t, v.Display(win1))
	require.Len(t, contexts.created, 3)
	assert.Equal(t, 128, win1.last.Rect.Dx())
	for _, gl := range contexts.created {
		assert.Equal(t, 1, gl.Calls("CreateTexture"))
	}

	v.Forget(win2)
	require.NoError(t, v.Display(win2))
	require.Len(t, contexts.created, 4)
}

func TestViewerGLErrorIsReported(t *testing.T) {
	rp := startProducer(t, OptPGlobal(false), OptPSize(16, 16))
	var gl *glestest.Context
	v := openViewer(t, rp.id, OptVContext(func(w, h int) gles.Context {
		gl = glestest.Wrap(soft.New(w, h))
		gl.FailNext("TexImageSurface", gles.InvalidValue)
		return gl
	}))
	win := &fakeWindow{w: 16, h: 16}
	err := v.Display(win)
	var glErr *gles.GLError
	require.True(t, errors.As(err, &glErr), "got %v", err)
	assert.Equal(t, gles.InvalidValue, glErr.Code)
	assert.Equal(t, 0, win.swaps, "no frame is presented on error")

	// The failed texture is not kept: the next frame creates it again in the same context
	require.NoError(t, v.Display(win))
	assert.Equal(t, 1, win.swaps)
	assert.Equal(t, 2, gl.Calls("CreateTexture"))
	assert.Equal(t, 1, gl.Calls("CreateProgram"))
	assert.Equal(t, frameBlue, win.last.NRGBAAt(2, 14))
}

func TestViewerDisplayBeforeOpen(t *testing.T) {
	v := NewViewer(1)
	assert.Equal(t, errViewerNotOpen, v.Display(&fakeWindow{w: 8, h: 8}))
	assert.NoError(t, v.Close())
}

func TestViewerUnknownSurface(t *testing.T) {
	v := NewViewer(SurfaceID(0x7ffffff0))
	err := v.Open(context.Background())
	assert.True(t, errors.Is(err, surface.ErrNotFound), "got %v", err)
}

func TestViewerWaitGivesUp(t *testing.T) {
	v := NewViewer(SurfaceID(0x7ffffff0), OptVWait(300*time.Millisecond))
	start := time.Now()
	err := v.Open(context.Background())
	assert.True(t, errors.Is(err, surface.ErrNotFound), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestViewerWaitForProducer(t *testing.T) {
	// Local IDs are assigned in order: predict the next one
	probe, err := surface.Create(surface.Properties{Width: 1, Height: 1})
	require.NoError(t, err)
	next := probe.ID() + 1
	require.NoError(t, probe.Close())

	v := NewViewer(next, OptVWait(30*time.Second))
	opened := make(chan error, 1)
	go func() { opened <- v.Open(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	rp := startProducer(t, OptPGlobal(false), OptPSize(16, 16))
	require.Equal(t, next, rp.id)
	select {
	case err = <-opened:
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("viewer did not find the surface")
	}
	assert.Equal(t, 16, v.Surface().Width())
	require.NoError(t, v.Close())
}

func TestViewerWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := NewViewer(SurfaceID(0x7ffffff0), OptVWait(time.Minute))
	err := v.Open(ctx)
	require.Error(t, err)
}
