package sharegl

import (
	"context"
	"errors"
	"fmt"
	"github.com/Yeicor/sharegl/internal"
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/Yeicor/sharegl/internal/surface"
	"github.com/subchen/go-trylock/v2"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

var (
	errNotRunning     = errors.New("producer is not running")
	errAlreadyStarted = errors.New("producer was already started")
)

// Producer creates a shared surface and renders its geometry into it. The surface lives (and
// keeps its last frame) until Run returns.
type Producer struct {
	// Configuration (see the OptP* options)
	props          surface.Properties
	attach         bool
	clearColor     [4]float32
	geometry       *Geometry
	geometryFile   string
	watchGeometry  bool
	redrawInterval time.Duration
	controlAddr    string
	onReady        func(id SurfaceID, controlAddr string)
	newContext     ContextFactory

	renderingLock trylock.TryLocker // Held while a render pass runs
	done          chan os.Signal    // Shutdown requests

	stateLock sync.RWMutex
	started   bool
	surf      *surface.Surface
	thread    *renderThread
	startTime time.Time
	draws     int
	lastErr   error
	geomInfo  *internal.GeometryInfo

	// Only accessed on the render thread
	gl       gles.Context
	prog     *ShaderProgram
	buffers  *geometryBuffers
	tex      gles.Texture
	fb       gles.Framebuffer
	readback []byte
}

// NewProducer creates a producer of a global 800x600 surface showing a white triangle on blue.
func NewProducer(opts ...ProducerOption) *Producer {
	p := &Producer{
		props:         surface.Properties{Width: DefaultWidth, Height: DefaultHeight, Global: true},
		attach:        true,
		clearColor:    [4]float32{0, 0, 1, 1},
		geometry:      TriangleGeometry(),
		newContext:    softContext,
		renderingLock: trylock.New(),
		done:          make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run creates the surface, draws the first frame, reports readiness and then serves redraws
// until ctx is cancelled or Shutdown is called (locally or through the control RPC). The surface
// is destroyed before Run returns. A Producer can only be run once.
func (p *Producer) Run(ctx context.Context) (err error) {
	p.stateLock.Lock()
	if p.started {
		p.stateLock.Unlock()
		return errAlreadyStarted
	}
	p.started = true
	p.stateLock.Unlock()

	if p.geometryFile != "" {
		if p.geometry, err = LoadGeometry(p.geometryFile); err != nil {
			return err
		}
	}
	if err = p.geometry.Validate(); err != nil {
		return err
	}
	surf, err := surface.Create(p.props)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	defer func() {
		err = errors.Join(err, surf.Close())
	}()
	thread := newRenderThread()
	defer thread.Stop()
	p.stateLock.Lock()
	p.surf, p.thread, p.startTime = surf, thread, time.Now()
	p.stateLock.Unlock()

	if err = thread.Do(p.setup); err != nil {
		return err
	}
	defer func() {
		_ = thread.Do(p.teardown)
	}()
	defer func() { // Reject new redraws before releasing the GL resources
		p.stateLock.Lock()
		p.thread = nil
		p.stateLock.Unlock()
	}()
	if err = thread.Do(p.renderPass); err != nil {
		return err
	}

	var controlAddr string
	if p.controlAddr != "" {
		l, err := net.Listen("tcp", p.controlAddr)
		if err != nil {
			return fmt.Errorf("control service: %w", err)
		}
		defer l.Close()
		go internal.NewControlService(p, p.done).Accept(l)
		controlAddr = l.Addr().String()
		log.Println("[Producer] Control service listening on", controlAddr)
	}
	log.Printf("[Producer] ID is %d", surf.ID())
	if p.onReady != nil {
		p.onReady(surf.ID(), controlAddr)
	}

	var tick <-chan time.Time
	if p.redrawInterval > 0 {
		ticker := time.NewTicker(p.redrawInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	var changes <-chan struct{}
	if p.watchGeometry && p.geometryFile != "" {
		w, err := watchFile(p.geometryFile)
		if err != nil {
			log.Println("[Producer] Not watching the geometry file:", err)
		} else {
			defer w.Close()
			changes = w.Changes()
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[Producer] Shutting down:", ctx.Err())
			return nil
		case sig := <-p.done:
			log.Println("[Producer] Shutting down:", sig)
			return nil
		case <-tick:
			if err = thread.Do(p.renderPass); err != nil {
				return err
			}
		case <-changes:
			p.reloadGeometry(thread)
		}
	}
}

// Redraw re-runs the render pass and flushes the surface, waiting for it to finish.
func (p *Producer) Redraw() error {
	p.stateLock.RLock()
	t := p.thread
	p.stateLock.RUnlock()
	if t == nil {
		return errNotRunning
	}
	return t.Do(p.renderPass)
}

// Shutdown asks Run to return, without waiting for it.
func (p *Producer) Shutdown() {
	select {
	case p.done <- os.Interrupt:
	default: // Already requested
	}
}

// Status returns a snapshot of the producer state.
func (p *Producer) Status() *Status {
	p.stateLock.RLock()
	defer p.stateLock.RUnlock()
	st := &Status{
		Width:    p.props.Width,
		Height:   p.props.Height,
		Global:   p.props.Global,
		Attached: p.attach,
		Draws:    p.draws,
	}
	if p.surf != nil {
		st.SurfaceID = uint32(p.surf.ID())
		st.BytesPerRow = p.surf.BytesPerRow()
		st.Frames = p.surf.Frame()
		st.Uptime = time.Since(p.startTime)
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	if p.geomInfo != nil {
		info := *p.geomInfo
		st.Geometry = &info
	}
	ctx, cancelFunc := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancelFunc()
	if p.renderingLock.RTryLock(ctx) {
		p.renderingLock.RUnlock()
	} else {
		st.Rendering = true
	}
	return st
}

// setup creates the GL resources. Render thread only.
func (p *Producer) setup() (err error) {
	w, h := p.surf.Width(), p.surf.Height()
	p.gl = p.newContext(w, h)
	p.gl.Viewport(0, 0, w, h)
	p.prog, err = InitShaders(p.gl, ProducerVertexShader, ProducerFragmentShader, []string{attrPosition}, nil)
	if err != nil {
		return err
	}
	if p.buffers, err = p.geometry.upload(p.gl); err != nil {
		return err
	}
	p.setGeometry(p.geometry)
	if !p.attach {
		p.readback = make([]byte, w*h*4)
		return nil
	}
	return p.attachSurface()
}

// attachSurface makes the surface the color buffer of a framebuffer, so draws land in it directly.
func (p *Producer) attachSurface() error {
	gl := p.gl
	p.tex = gl.CreateTexture()
	gl.BindTexture(gles.TextureRectangle, p.tex)
	gl.TexImageSurface(gles.TextureRectangle, gles.RGBA, p.surf.Width(), p.surf.Height(), gles.BGRA, gles.UnsignedInt8888Rev, p.surf)
	if err := gles.CheckError(gl, "TexImageSurface"); err != nil {
		return err
	}
	p.fb = gl.CreateFramebuffer()
	gl.BindFramebuffer(gles.FramebufferTarget, p.fb)
	gl.FramebufferTexture2D(gles.FramebufferTarget, gles.ColorAttachment0, gles.TextureRectangle, p.tex, 0)
	if err := gles.CheckError(gl, "FramebufferTexture2D"); err != nil {
		return err
	}
	if status := gl.CheckFramebufferStatus(gles.FramebufferTarget); status != gles.FramebufferComplete {
		return &gles.FramebufferError{Status: status}
	}
	return nil
}

func (p *Producer) teardown() error {
	gl := p.gl
	if gl == nil {
		return nil
	}
	if p.fb != 0 {
		gl.BindFramebuffer(gles.FramebufferTarget, 0)
		gl.DeleteFramebuffer(p.fb)
	}
	if p.tex != 0 {
		gl.DeleteTexture(p.tex)
	}
	if p.buffers != nil {
		p.buffers.release(gl)
	}
	if p.prog != nil {
		gl.DeleteProgram(p.prog.Program)
	}
	return gles.CheckError(gl, "teardown")
}

// renderPass draws one frame and publishes it. Render thread only.
func (p *Producer) renderPass() error {
	p.renderingLock.Lock()
	defer p.renderingLock.Unlock()
	err := p.draw()
	p.stateLock.Lock()
	p.lastErr = err
	if err == nil {
		p.draws++
	}
	p.stateLock.Unlock()
	if err != nil {
		log.Println("[Producer] Render error:", err)
	}
	return err
}

func (p *Producer) draw() error {
	gl := p.gl
	c := p.clearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gles.ColorBufferBit)
	gl.UseProgram(p.prog.Program)
	if err := p.buffers.bind(gl, p.prog); err != nil {
		return err
	}
	if err := p.buffers.draw(gl); err != nil {
		return err
	}
	gl.Flush()
	if !p.attach {
		if err := p.readBack(); err != nil {
			return err
		}
	}
	return p.surf.Flush()
}

// readBack copies the default framebuffer into the surface. Both keep the bottom row first.
func (p *Producer) readBack() error {
	w, h := p.surf.Width(), p.surf.Height()
	p.gl.ReadPixels(p.readback, 0, 0, w, h, gles.BGRA, gles.UnsignedInt8888Rev)
	if err := gles.CheckError(p.gl, "ReadPixels"); err != nil {
		return err
	}
	if err := p.surf.Lock(); err != nil {
		return err
	}
	defer p.surf.Unlock()
	dst, bpr := p.surf.Bytes(), p.surf.BytesPerRow()
	for y := 0; y < h; y++ {
		copy(dst[y*bpr:y*bpr+w*4], p.readback[y*w*4:(y+1)*w*4])
	}
	return nil
}

// reloadGeometry uploads the watched file again and redraws. Invalid edits keep the old geometry.
func (p *Producer) reloadGeometry(thread *renderThread) {
	g, err := LoadGeometry(p.geometryFile)
	if err != nil {
		log.Println("[Producer] Ignoring geometry change:", err)
		return
	}
	err = thread.Do(func() error {
		b, err := g.upload(p.gl)
		if err != nil {
			return err
		}
		p.buffers.release(p.gl)
		p.buffers, p.geometry = b, g
		err = p.renderPass()
		p.setGeometry(g)
		return err
	})
	if err != nil {
		log.Println("[Producer] Geometry reload failed:", err)
		return
	}
	log.Printf("[Producer] Reloaded %s (%d vertices)", g.Source, len(g.Positions))
}

func (p *Producer) setGeometry(g *Geometry) {
	p.stateLock.Lock()
	p.geomInfo = g.info()
	p.stateLock.Unlock()
}
