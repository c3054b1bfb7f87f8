package soft

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/fogleman/fauxgl"
)

// lockAll locks every distinct non-nil surface and returns the matching unlock.
func lockAll(surfaces ...gles.Surface) (func(), error) {
	var locked []gles.Surface
	unlock := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			_ = locked[i].Unlock()
		}
	}
next:
	for _, s := range surfaces {
		if s == nil {
			continue
		}
		for _, l := range locked {
			if l == s {
				continue next
			}
		}
		if err := s.Lock(); err != nil {
			unlock()
			return nil, err
		}
		locked = append(locked, s)
	}
	return unlock, nil
}

// triangles returns the vertex indices of each triangle assembled for mode, or false if the mode
// cannot be rasterized.
func triangles(mode gles.Enum, count int) ([][3]int, bool) {
	var tris [][3]int
	switch mode {
	case gles.Triangles:
		for i := 0; i+2 < count; i += 3 {
			tris = append(tris, [3]int{i, i + 1, i + 2})
		}
	case gles.TriangleStrip:
		for i := 0; i+2 < count; i++ {
			if i%2 == 0 {
				tris = append(tris, [3]int{i, i + 1, i + 2})
			} else {
				tris = append(tris, [3]int{i + 1, i, i + 2})
			}
		}
	case gles.TriangleFan:
		for i := 1; i+1 < count; i++ {
			tris = append(tris, [3]int{0, i, i + 1})
		}
	default:
		return nil, false
	}
	return tris, true
}

// DrawArrays runs the current program over count vertices starting at first. Only triangle
// modes are rasterized; points and lines record INVALID_ENUM.
func (c *Context) DrawArrays(mode gles.Enum, first, count int) {
	tris, ok := triangles(mode, count)
	switch {
	case !ok:
		c.setError(gles.InvalidEnum)
		return
	case first < 0 || count < 0:
		c.setError(gles.InvalidValue)
		return
	case c.current == nil:
		c.setError(gles.InvalidOperation)
		return
	}
	target, status := c.drawTarget()
	if status != gles.FramebufferComplete {
		c.setError(gles.InvalidFramebufferOperation)
		return
	}
	prog := c.current

	// Textures are sampled through a snapshot of the units the program's samplers use.
	uniforms := append([]vec4(nil), prog.uniformValues...)
	units := make([]*sampler, maxTextureUnits)
	sampled := make([]*textureObject, maxTextureUnits)
	surfaces := []gles.Surface{target.surf}
	for _, loc := range prog.samplers {
		unit := int(uniforms[loc][0])
		rect := prog.uniforms[loc].typ == tSampler2DRect
		name := c.units[unit].tex2D
		if rect {
			name = c.units[unit].rect
		}
		tex, ok := c.textures[name]
		if !ok || !tex.img.valid() {
			continue
		}
		sampled[unit] = tex
		surfaces = append(surfaces, tex.img.surf)
		units[unit] = &sampler{
			stride: tex.img.stride,
			w:      tex.img.w,
			h:      tex.img.h,
			order:  tex.img.order(),
			rect:   rect,
			linear: tex.magFilter == gles.Linear,
			wrapS:  tex.wrapS,
			wrapT:  tex.wrapT,
		}
	}
	unlock, err := lockAll(surfaces...)
	if err != nil {
		c.setError(gles.InvalidOperation)
		return
	}
	defer unlock()
	for unit, tex := range sampled {
		if tex == nil {
			continue
		}
		pix, err := tex.img.bytes()
		if err != nil {
			units[unit] = nil
			continue
		}
		units[unit].pix = pix
	}
	sample := sampleFunc(units)

	verts := make([]fauxgl.Vertex, count)
	attribs := make([]vec4, len(prog.attribs))
	for i := range verts {
		if !c.fetch(prog, first+i, attribs) {
			c.setError(gles.InvalidOperation)
			return
		}
		e := env{attribs: attribs, uniforms: uniforms, sample: sample}
		for _, stmt := range prog.vertex {
			stmt(&e)
		}
		verts[i] = fauxgl.Vertex{
			Output:  fauxgl.VectorW{X: e.position[0], Y: e.position[1], Z: e.position[2], W: e.position[3]},
			Texture: fauxgl.Vector{X: e.varyings[0], Y: e.varyings[1], Z: e.varyings[2]},
			Color:   fauxgl.Color{R: e.varyings[3], G: e.varyings[4], B: e.varyings[5], A: e.varyings[6]},
		}
	}

	vx, vy, vw, vh := c.viewport[0], c.viewport[1], c.viewport[2], c.viewport[3]
	if len(tris) == 0 || vw == 0 || vh == 0 {
		return
	}
	pix, err := target.bytes()
	if err != nil {
		c.setError(gles.InvalidOperation)
		return
	}
	dc := c.rasterizer(vw, vh)
	load(dc, target, pix, vx, vy)
	batch := make([]*fauxgl.Triangle, len(tris))
	for i, t := range tris {
		batch[i] = &fauxgl.Triangle{V1: verts[t[0]], V2: verts[t[1]], V3: verts[t[2]]}
	}
	dc.Shader = &fragmentStage{prog: prog, uniforms: uniforms, sample: sample}
	dc.DrawTriangles(batch)
	dc.Shader = nil
	store(dc, target, pix, vx, vy)
}

// fetch reads the attributes of vertex i into dst. Disabled arrays read (0, 0, 0, 1).
func (c *Context) fetch(prog *programObject, i int, dst []vec4) bool {
	for loc := range dst {
		dst[loc] = vec4{0, 0, 0, 1}
		if loc >= maxVertexAttribs {
			continue
		}
		a := c.attribs[loc]
		if !a.enabled {
			continue
		}
		data, ok := c.buffers[a.buffer]
		if !ok {
			return false
		}
		start := (a.offset + i*a.stride) / 4
		if start+a.size > len(data) {
			return false
		}
		for k := 0; k < a.size; k++ {
			dst[loc][k] = float64(data[start+k])
		}
	}
	return true
}

// rasterizer returns a cached fauxgl context covering a w x h viewport. Rendering a viewport
// into its own context clips primitives to the viewport like GL does.
func (c *Context) rasterizer(w, h int) *fauxgl.Context {
	key := [2]int{w, h}
	dc, ok := c.rasterizers[key]
	if !ok {
		dc = fauxgl.NewContext(w, h)
		dc.Cull = fauxgl.CullNone
		dc.ReadDepth = false
		dc.WriteDepth = false
		dc.WriteColor = true
		dc.AlphaBlend = false
		dc.Wireframe = false
		c.rasterizers[key] = dc
	}
	return dc
}

// load copies the viewport area of the target into the rasterizer color buffer. fauxgl rows are
// top-down while storage rows are bottom-up.
func load(dc *fauxgl.Context, dst *storage, pix []byte, vx, vy int) {
	buf := dc.ColorBuffer
	order := dst.order()
	for r := 0; r < dc.Height; r++ {
		y := vy + dc.Height - 1 - r
		if y < 0 || y >= dst.h {
			continue
		}
		for x := 0; x < dc.Width; x++ {
			sx := vx + x
			if sx < 0 || sx >= dst.w {
				continue
			}
			s := pix[y*dst.stride+sx*4:]
			d := buf.Pix[r*buf.Stride+x*4:]
			for ch := 0; ch < 4; ch++ {
				d[ch] = s[order[ch]]
			}
		}
	}
}

// store is the inverse of load.
func store(dc *fauxgl.Context, dst *storage, pix []byte, vx, vy int) {
	buf := dc.ColorBuffer
	order := dst.order()
	for r := 0; r < dc.Height; r++ {
		y := vy + dc.Height - 1 - r
		if y < 0 || y >= dst.h {
			continue
		}
		for x := 0; x < dc.Width; x++ {
			sx := vx + x
			if sx < 0 || sx >= dst.w {
				continue
			}
			s := buf.Pix[r*buf.Stride+x*4:]
			d := pix[y*dst.stride+sx*4:]
			for ch := 0; ch < 4; ch++ {
				d[order[ch]] = s[ch]
			}
		}
	}
}

// fragmentStage adapts a linked program to fauxgl. Varyings travel in the interpolated Texture
// and Color fields of the vertex; Normal is avoided because fauxgl renormalizes it.
type fragmentStage struct {
	prog     *programObject
	uniforms []vec4
	sample   func(unit int, rect bool, s, t float64) vec4
}

func (f *fragmentStage) Vertex(v fauxgl.Vertex) fauxgl.Vertex { return v }

func (f *fragmentStage) Fragment(v fauxgl.Vertex) fauxgl.Color {
	e := env{uniforms: f.uniforms, sample: f.sample}
	e.varyings = [maxVaryingComponents]float64{
		v.Texture.X, v.Texture.Y, v.Texture.Z,
		v.Color.R, v.Color.G, v.Color.B, v.Color.A,
	}
	for _, stmt := range f.prog.fragment {
		stmt(&e)
	}
	return fauxgl.Color{R: clamp01(e.color[0]), G: clamp01(e.color[1]), B: clamp01(e.color[2]), A: clamp01(e.color[3])}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
