package sharegl

import (
	"context"
	"errors"
	"fmt"
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/Yeicor/sharegl/internal/surface"
	"github.com/cenkalti/backoff/v5"
	"image"
	"log"
	"sync"
	"time"
)

// Window is where a Viewer presents its frames.
type Window interface {
	// Size returns the drawing area in pixels.
	Size() (width, height int)
	// SwapBuffers presents a finished frame, top row first. The frame is reused by the next
	// Display, so implementations must copy anything they keep.
	SwapBuffers(frame *image.NRGBA) error
}

var errViewerNotOpen = errors.New("viewer has no surface: call Open first")

// Viewer displays a surface created by another process (or the same one) in windows.
type Viewer struct {
	id         SurfaceID
	title      string
	clearColor [4]float32
	wait       time.Duration
	newContext ContextFactory

	mu       sync.Mutex
	surf     *surface.Surface
	contexts map[Window]*windowContext
}

// NewViewer creates a viewer of the surface named id. Nothing is looked up until Open.
func NewViewer(id SurfaceID, opts ...ViewerOption) *Viewer {
	v := &Viewer{
		id:         id,
		title:      DefaultTitle,
		clearColor: [4]float32{1, 1, 1, 1},
		newContext: softContext,
		contexts:   map[Window]*windowContext{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open looks the surface up. Without OptVWait a missing surface fails immediately: the producer
// is expected to have created it before the ID was handed over.
func (v *Viewer) Open(ctx context.Context) error {
	var (
		surf *surface.Surface
		err  error
	)
	if v.wait <= 0 {
		surf, err = surface.Lookup(v.id)
	} else {
		surf, err = backoff.Retry(ctx, func() (*surface.Surface, error) {
			s, err := surface.Lookup(v.id)
			if err != nil && !errors.Is(err, surface.ErrNotFound) {
				return nil, backoff.Permanent(err)
			}
			return s, err
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(v.wait),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Printf("[Viewer] %v (retrying in %v)", err, next.Round(time.Millisecond))
			}))
	}
	if err != nil {
		return fmt.Errorf("lookup surface %d: %w", v.id, err)
	}
	v.mu.Lock()
	v.surf = surf
	v.mu.Unlock()
	log.Printf("[Viewer] Opened %v", surf)
	return nil
}

// Surface returns the looked up surface (nil before Open).
func (v *Viewer) Surface() *surface.Surface {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surf
}

// Title is the window title to use.
func (v *Viewer) Title() string {
	return v.title
}

// Display renders one frame for win and presents it with exactly one SwapBuffers call.
// Each window gets its own GL context, created on first use (or again after a resize), and the
// texture aliasing the surface is created once per context.
func (v *Viewer) Display(win Window) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.surf == nil {
		return errViewerNotOpen
	}
	w, h := win.Size()
	wc := v.contexts[win]
	if wc == nil || wc.w != w || wc.h != h {
		if wc != nil {
			wc.release()
		}
		var err error
		if wc, err = v.newWindowContext(w, h); err != nil {
			delete(v.contexts, win)
			return err
		}
		v.contexts[win] = wc
	}
	if err := wc.render(v.surf, v.clearColor); err != nil {
		return err
	}
	return win.SwapBuffers(wc.frame)
}

// Forget releases the GL context of a closed window.
func (v *Viewer) Forget(win Window) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if wc := v.contexts[win]; wc != nil {
		wc.release()
		delete(v.contexts, win)
	}
}

// Close releases every window context and detaches from the surface.
func (v *Viewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for win, wc := range v.contexts {
		wc.release()
		delete(v.contexts, win)
	}
	if v.surf == nil {
		return nil
	}
	err := v.surf.Close()
	v.surf = nil
	return err
}

// windowContext is the GL state of one window.
type windowContext struct {
	w, h     int
	gl       gles.Context
	prog     *ShaderProgram
	quad     *geometryBuffers
	texture  gles.Texture // Aliases the surface, 0 until the first render
	readback []byte
	frame    *image.NRGBA
}

func (v *Viewer) newWindowContext(w, h int) (*windowContext, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("window size %dx%d", w, h)
	}
	gl := v.newContext(w, h)
	gl.Viewport(0, 0, w, h)
	prog, err := InitShaders(gl, ViewerVertexShader, ViewerFragmentShader,
		[]string{attrPosition, attrTexCoord}, []string{uniSampler})
	if err != nil {
		return nil, err
	}
	quad, err := QuadGeometry(v.surf.Width(), v.surf.Height()).upload(gl)
	if err != nil {
		gl.DeleteProgram(prog.Program)
		return nil, err
	}
	return &windowContext{
		w: w, h: h,
		gl:       gl,
		prog:     prog,
		quad:     quad,
		readback: make([]byte, w*h*4),
		frame:    image.NewNRGBA(image.Rect(0, 0, w, h)),
	}, nil
}

// surfaceTexture returns the cached texture aliasing s, creating it on first use.
func (wc *windowContext) surfaceTexture(s gles.Surface) (gles.Texture, error) {
	if wc.texture != 0 {
		return wc.texture, nil
	}
	gl := wc.gl
	tex := gl.CreateTexture()
	gl.BindTexture(gles.TextureRectangle, tex)
	gl.TexParameteri(gles.TextureRectangle, gles.TextureWrapS, int(gles.ClampToEdge))
	gl.TexParameteri(gles.TextureRectangle, gles.TextureWrapT, int(gles.ClampToEdge))
	gl.TexParameteri(gles.TextureRectangle, gles.TextureMinFilter, int(gles.Linear))
	gl.TexParameteri(gles.TextureRectangle, gles.TextureMagFilter, int(gles.Linear))
	gl.TexImageSurface(gles.TextureRectangle, gles.RGBA, s.Width(), s.Height(), gles.BGRA, gles.UnsignedInt8888Rev, s)
	if err := gles.CheckError(gl, "TexImageSurface"); err != nil {
		gl.DeleteTexture(tex)
		return 0, err
	}
	wc.texture = tex
	return tex, nil
}

// render draws the quad and reads the result into frame.
func (wc *windowContext) render(s gles.Surface, clear [4]float32) error {
	gl := wc.gl
	tex, err := wc.surfaceTexture(s)
	if err != nil {
		return err
	}
	gl.ClearColor(clear[0], clear[1], clear[2], clear[3])
	gl.Clear(gles.ColorBufferBit)
	gl.UseProgram(wc.prog.Program)
	gl.ActiveTexture(gles.Texture0)
	gl.BindTexture(gles.TextureRectangle, tex)
	if err = wc.quad.bind(gl, wc.prog); err != nil {
		return err
	}
	gl.Uniform1i(wc.prog.Uniforms[uniSampler], 0)
	if err = wc.quad.draw(gl); err != nil {
		return err
	}
	gl.ReadPixels(wc.readback, 0, 0, wc.w, wc.h, gles.RGBA, gles.UnsignedByte)
	if err = gles.CheckError(gl, "ReadPixels"); err != nil {
		return err
	}
	// GL rows go bottom-up, image rows top-down
	stride := wc.w * 4
	for y := 0; y < wc.h; y++ {
		copy(wc.frame.Pix[y*wc.frame.Stride:y*wc.frame.Stride+stride], wc.readback[(wc.h-1-y)*stride:(wc.h-y)*stride])
	}
	return nil
}

func (wc *windowContext) release() {
	if wc.texture != 0 {
		wc.gl.DeleteTexture(wc.texture)
		wc.texture = 0
	}
	wc.quad.release(wc.gl)
	wc.gl.DeleteProgram(wc.prog.Program)
}
