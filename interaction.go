package sharegl

import (
	"fmt"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
	"image/color"
)

var defaultFace = text.NewGoXFace(basicfont.Face7x13)

// onUpdateInputs handles inputs
func (g *viewerGame) onUpdateInputs() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		g.showHelp = !g.showHelp
	}
	return nil
}

// drawUI draws the help overlay (or the hint to open it)
func (g *viewerGame) drawUI(screen *ebiten.Image) {
	if !g.showHelp {
		drawDefaultTextWithShadow(screen, "Help [H]", 5, 5, color.RGBA{G: 255, A: 255})
		return
	}
	surf := g.Surface()
	msg := fmt.Sprintf("%s\n=============\nTPS: %0.2f/%d\nSurface: %d (%dx%d)\nFrame: %d\nHide help [H]\nQuit [Esc/Q]",
		g.title, ebiten.ActualTPS(), ebiten.TPS(), surf.ID(), surf.Width(), surf.Height(), surf.Frame())
	drawDefaultTextWithShadow(screen, msg, 5, 5, color.RGBA{G: 255, A: 255})
}

func drawDefaultTextWithShadow(screen *ebiten.Image, msg string, x, y int, c color.Color) {
	m := defaultFace.Metrics()
	op := &text.DrawOptions{}
	op.LineSpacing = m.HAscent + m.HDescent + m.HLineGap
	op.GeoM.Translate(float64(x+1), float64(y+1))
	op.ColorScale.ScaleWithColor(color.Black)
	text.Draw(screen, msg, defaultFace, op)
	op.GeoM.Translate(-1, -1)
	op.ColorScale.Reset()
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, msg, defaultFace, op)
}
