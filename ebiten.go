package sharegl

import (
	"context"
	"errors"
	"github.com/hajimehoshi/ebiten/v2"
	"image"
)

// viewerGame hides the private ebiten implementation while acting as the Window of a *Viewer
type viewerGame struct {
	*Viewer
	ctx        context.Context
	screenSize image.Point
	cached     *ebiten.Image // Last presented frame
	lastFrame  uint32        // Surface frame counter when cached was presented
	showHelp   bool
	err        error
}

// Run opens the surface (unless Open was already called) and shows it in a window until ctx is
// cancelled, the window is closed or Escape/Q is pressed. The surface is detached on return.
func (v *Viewer) Run(ctx context.Context) (err error) {
	if v.Surface() == nil {
		if err = v.Open(ctx); err != nil {
			return err
		}
	}
	defer func() {
		err = errors.Join(err, v.Close())
	}()
	surf := v.Surface()
	ebiten.SetWindowTitle(v.title)
	ebiten.SetWindowSize(surf.Width(), surf.Height())
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetRunnableOnUnfocused(true)
	return ebiten.RunGame(&viewerGame{Viewer: v, ctx: ctx})
}

func (g *viewerGame) Size() (width, height int) {
	return g.screenSize.X, g.screenSize.Y
}

func (g *viewerGame) SwapBuffers(frame *image.NRGBA) error {
	size := frame.Rect.Size()
	if g.cached == nil || g.cached.Bounds().Size() != size {
		if g.cached != nil {
			g.cached.Deallocate()
		}
		g.cached = ebiten.NewImage(size.X, size.Y)
	}
	g.cached.WritePixels(frame.Pix)
	return nil
}

func (g *viewerGame) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	if g.err != nil {
		return g.err
	}
	return g.onUpdateInputs()
}

func (g *viewerGame) Draw(screen *ebiten.Image) {
	// Only render again when the producer flushed a new frame or the window was resized
	frame := g.Surface().Frame()
	if g.cached == nil || frame != g.lastFrame || g.cached.Bounds().Size() != g.screenSize {
		if err := g.Display(g); err != nil {
			g.err = err // Reported by the next Update
			return
		}
		g.lastFrame = frame
	}
	screen.DrawImage(g.cached, nil)
	g.drawUI(screen)
}

func (g *viewerGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.screenSize = image.Point{X: outsideWidth, Y: outsideHeight}
	return outsideWidth, outsideHeight // Use all available pixels, no re-scaling
}
