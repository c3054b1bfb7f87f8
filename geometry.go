package sharegl

import (
	"errors"
	"fmt"
	"github.com/Yeicor/sharegl/internal"
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"
	"math"
	"os"
)

// DrawMode is how consecutive positions form triangles.
type DrawMode string

const (
	ModeTriangleStrip DrawMode = "triangle_strip"
	ModeTriangles     DrawMode = "triangles"
	ModeTriangleFan   DrawMode = "triangle_fan"
)

func (m DrawMode) glMode() (gles.Enum, bool) {
	switch m {
	case ModeTriangleStrip, "":
		return gles.TriangleStrip, true
	case ModeTriangles:
		return gles.Triangles, true
	case ModeTriangleFan:
		return gles.TriangleFan, true
	}
	return 0, false
}

// Geometry is a table of vertices drawn with a single call. Positions are in clip space;
// texture coordinates, when present, are in surface pixels (rectangle texture addressing).
type Geometry struct {
	Mode      DrawMode `yaml:"mode"`
	Positions []v3.Vec `yaml:"positions"`
	TexCoords []v2.Vec `yaml:"texcoords,omitempty"`
	// Source is the file the geometry was loaded from (empty for built-in tables)
	Source string `yaml:"-"`
}

// ErrInvalidGeometry is wrapped by every Validate failure.
var ErrInvalidGeometry = errors.New("invalid geometry")

// TriangleGeometry is the producer's triangle, covering the upper right quarter of clip space
// below its diagonal.
func TriangleGeometry() *Geometry {
	return &Geometry{
		Mode: ModeTriangleStrip,
		Positions: []v3.Vec{
			{X: 0, Y: 1, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 0, Z: 0},
		},
	}
}

// QuadGeometry is the viewer's quad: it covers the whole viewport and maps a width x height
// surface onto it, bottom row of the surface at the bottom of the viewport.
func QuadGeometry(width, height int) *Geometry {
	w, h := float64(width), float64(height)
	return &Geometry{
		Mode: ModeTriangleStrip,
		Positions: []v3.Vec{
			{X: -1, Y: 1, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: -1, Y: -1, Z: 0},
			{X: 1, Y: -1, Z: 0},
		},
		TexCoords: []v2.Vec{
			{X: 0, Y: h},
			{X: w, Y: h},
			{X: 0, Y: 0},
			{X: w, Y: 0},
		},
	}
}

// ParseGeometry decodes and validates a YAML geometry table.
func ParseGeometry(data []byte) (*Geometry, error) {
	g := &Geometry{}
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if g.Mode == "" {
		g.Mode = ModeTriangleStrip
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadGeometry reads a YAML geometry table from a file.
func LoadGeometry(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := ParseGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	g.Source = path
	return g, nil
}

// Validate checks that the table can be drawn as is.
func (g *Geometry) Validate() error {
	if _, ok := g.Mode.glMode(); !ok {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidGeometry, g.Mode)
	}
	n := len(g.Positions)
	switch {
	case n < 3:
		return fmt.Errorf("%w: %d positions, at least 3 are needed", ErrInvalidGeometry, n)
	case g.Mode == ModeTriangles && n%3 != 0:
		return fmt.Errorf("%w: %d positions is not a multiple of 3", ErrInvalidGeometry, n)
	case len(g.TexCoords) != 0 && len(g.TexCoords) != n:
		return fmt.Errorf("%w: %d texcoords for %d positions", ErrInvalidGeometry, len(g.TexCoords), n)
	}
	if err := internal.CheckFinite(g); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return nil
}

// Bounds returns the box containing every position.
func (g *Geometry) Bounds() sdf.Box3 {
	if len(g.Positions) == 0 {
		return sdf.Box3{}
	}
	bb := sdf.Box3{Min: g.Positions[0], Max: g.Positions[0]}
	for _, p := range g.Positions[1:] {
		bb.Min = v3.Vec{X: math.Min(bb.Min.X, p.X), Y: math.Min(bb.Min.Y, p.Y), Z: math.Min(bb.Min.Z, p.Z)}
		bb.Max = v3.Vec{X: math.Max(bb.Max.X, p.X), Y: math.Max(bb.Max.Y, p.Y), Z: math.Max(bb.Max.Z, p.Z)}
	}
	return bb
}

func (g *Geometry) info() *internal.GeometryInfo {
	mode := g.Mode
	if mode == "" {
		mode = ModeTriangleStrip
	}
	return &internal.GeometryInfo{Mode: string(mode), Vertices: len(g.Positions), Bounds: g.Bounds(), Source: g.Source}
}

func (g *Geometry) positionData() []float32 {
	out := make([]float32, 0, 3*len(g.Positions))
	for _, p := range g.Positions {
		out = append(out, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return out
}

func (g *Geometry) texCoordData() []float32 {
	out := make([]float32, 0, 2*len(g.TexCoords))
	for _, t := range g.TexCoords {
		out = append(out, float32(t.X), float32(t.Y))
	}
	return out
}

// geometryBuffers holds a geometry uploaded to one GL context.
type geometryBuffers struct {
	mode      gles.Enum
	count     int
	positions gles.Buffer
	texCoords gles.Buffer // 0 without texture coordinates
}

// upload validates g and copies it into new vertex buffers.
func (g *Geometry) upload(gl gles.Context) (*geometryBuffers, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	mode, _ := g.Mode.glMode()
	b := &geometryBuffers{mode: mode, count: len(g.Positions)}
	b.positions = gl.CreateBuffer()
	gl.BindBuffer(gles.ArrayBuffer, b.positions)
	gl.BufferData(gles.ArrayBuffer, g.positionData(), gles.StaticDraw)
	if len(g.TexCoords) > 0 {
		b.texCoords = gl.CreateBuffer()
		gl.BindBuffer(gles.ArrayBuffer, b.texCoords)
		gl.BufferData(gles.ArrayBuffer, g.texCoordData(), gles.StaticDraw)
	}
	if err := gles.CheckError(gl, "BufferData"); err != nil {
		b.release(gl)
		return nil, err
	}
	return b, nil
}

// bind points the program's attributes at the buffers. The texture coordinate attribute is
// skipped when the program does not use it.
func (b *geometryBuffers) bind(gl gles.Context, prog *ShaderProgram) error {
	gl.BindBuffer(gles.ArrayBuffer, b.positions)
	gl.VertexAttribPointer(prog.Attribs[attrPosition], 3, gles.Float, false, 0, 0)
	if tc, ok := prog.Attribs[attrTexCoord]; ok {
		if b.texCoords == 0 {
			return fmt.Errorf("%w: the program samples a texture but there are no texcoords", ErrInvalidGeometry)
		}
		gl.BindBuffer(gles.ArrayBuffer, b.texCoords)
		gl.VertexAttribPointer(tc, 2, gles.Float, false, 0, 0)
	}
	return nil
}

func (b *geometryBuffers) draw(gl gles.Context) error {
	gl.DrawArrays(b.mode, 0, b.count)
	return gles.CheckError(gl, "DrawArrays")
}

func (b *geometryBuffers) release(gl gles.Context) {
	gl.DeleteBuffer(b.positions)
	if b.texCoords != 0 {
		gl.DeleteBuffer(b.texCoords)
	}
}
