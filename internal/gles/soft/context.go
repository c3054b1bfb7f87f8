// Package soft implements gles.Context in software, rasterizing with fauxgl and evaluating a
// GLSL ES 1.0 subset (see compileGLSL).
//
// Pixel storage follows GL conventions: rows are bottom-up and the default framebuffer is RGBA.
// Errors are recorded GL style and reported by GetError, never returned or panicked.
package soft

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/fogleman/fauxgl"
)

const (
	maxVertexAttribs = 8
	maxTextureUnits  = 8
)

type attribState struct {
	enabled bool
	buffer  gles.Buffer
	size    int
	stride  int
	offset  int
}

type framebufferObject struct {
	texture gles.Texture
}

type textureUnit struct {
	tex2D, rect gles.Texture
}

// Context is a software OpenGL ES 2.0 context with a default framebuffer of a fixed size.
// Like any GL context it is not safe for concurrent use.
type Context struct {
	err      gles.Enum
	lastName uint32

	shaders      map[gles.Shader]*shaderObject
	programs     map[gles.Program]*programObject
	buffers      map[gles.Buffer][]float32
	textures     map[gles.Texture]*textureObject
	framebuffers map[gles.Framebuffer]*framebufferObject

	current     *programObject
	currentName gles.Program
	arrayBuffer gles.Buffer
	activeUnit  int
	units       [maxTextureUnits]textureUnit
	framebuffer gles.Framebuffer
	attribs     [maxVertexAttribs]attribState
	viewport    [4]int
	clearColor  [4]float32

	back        storage
	rasterizers map[[2]int]*fauxgl.Context
}

var _ gles.Context = (*Context)(nil)

// New creates a context whose default framebuffer is width x height RGBA pixels. The initial
// viewport covers the whole default framebuffer.
func New(width, height int) *Context {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Context{
		shaders:      map[gles.Shader]*shaderObject{},
		programs:     map[gles.Program]*programObject{},
		buffers:      map[gles.Buffer][]float32{},
		textures:     map[gles.Texture]*textureObject{},
		framebuffers: map[gles.Framebuffer]*framebufferObject{},
		viewport:     [4]int{0, 0, width, height},
		back:         newStorage(width, height, false),
		rasterizers:  map[[2]int]*fauxgl.Context{},
	}
}

// Size returns the dimensions of the default framebuffer.
func (c *Context) Size() (width, height int) {
	return c.back.w, c.back.h
}

func (c *Context) setError(code gles.Enum) {
	if c.err == gles.NoError {
		c.err = code
	}
}

// GetError returns and clears the first error recorded since the previous call.
func (c *Context) GetError() gles.Enum {
	code := c.err
	c.err = gles.NoError
	return code
}

func (c *Context) name() uint32 {
	c.lastName++
	return c.lastName
}

//-----------------------------------------------------------------------------
// SHADERS AND PROGRAMS
//-----------------------------------------------------------------------------

func (c *Context) CreateShader(ty gles.Enum) gles.Shader {
	if ty != gles.VertexShader && ty != gles.FragmentShader {
		c.setError(gles.InvalidEnum)
		return 0
	}
	s := gles.Shader(c.name())
	c.shaders[s] = &shaderObject{stage: ty}
	return s
}

func (c *Context) shader(s gles.Shader) *shaderObject {
	obj, ok := c.shaders[s]
	if !ok || obj.deleted {
		c.setError(gles.InvalidValue)
		return nil
	}
	return obj
}

func (c *Context) ShaderSource(s gles.Shader, src string) {
	if obj := c.shader(s); obj != nil {
		obj.source = src
	}
}

func (c *Context) CompileShader(s gles.Shader) {
	obj := c.shader(s)
	if obj == nil {
		return
	}
	compiled, err := compileGLSL(obj.stage, obj.source)
	if err != nil {
		obj.compiled, obj.log = nil, err.Error()+"\n"
		return
	}
	obj.compiled, obj.log = compiled, ""
}

func (c *Context) GetShaderi(s gles.Shader, pname gles.Enum) int {
	obj := c.shader(s)
	if obj == nil {
		return 0
	}
	switch pname {
	case gles.CompileStatus:
		if obj.compiled != nil {
			return 1
		}
		return 0
	case gles.InfoLogLength:
		if obj.log == "" {
			return 0
		}
		return len(obj.log) + 1
	}
	c.setError(gles.InvalidEnum)
	return 0
}

func (c *Context) GetShaderInfoLog(s gles.Shader) string {
	if obj := c.shader(s); obj != nil {
		return obj.log
	}
	return ""
}

// DeleteShader frees the shader, or flags it for deletion while it is still attached.
func (c *Context) DeleteShader(s gles.Shader) {
	if s == 0 {
		return
	}
	obj := c.shader(s)
	if obj == nil {
		return
	}
	if obj.attached > 0 {
		obj.deleted = true
		return
	}
	delete(c.shaders, s)
}

func (c *Context) CreateProgram() gles.Program {
	p := gles.Program(c.name())
	c.programs[p] = &programObject{}
	return p
}

func (c *Context) program(p gles.Program) *programObject {
	obj, ok := c.programs[p]
	if !ok {
		c.setError(gles.InvalidValue)
		return nil
	}
	return obj
}

func (c *Context) AttachShader(p gles.Program, s gles.Shader) {
	prog, sh := c.program(p), c.shader(s)
	if prog == nil || sh == nil {
		return
	}
	for _, other := range prog.shaders {
		if other == s || c.shaders[other].stage == sh.stage {
			c.setError(gles.InvalidOperation)
			return
		}
	}
	prog.shaders = append(prog.shaders, s)
	sh.attached++
}

func (c *Context) LinkProgram(p gles.Program) {
	if prog := c.program(p); prog != nil {
		prog.link(c.shaders)
	}
}

func (c *Context) GetProgrami(p gles.Program, pname gles.Enum) int {
	prog := c.program(p)
	if prog == nil {
		return 0
	}
	switch pname {
	case gles.LinkStatus:
		if prog.linked {
			return 1
		}
		return 0
	case gles.InfoLogLength:
		if prog.log == "" {
			return 0
		}
		return len(prog.log) + 1
	case gles.ActiveAttributes:
		return len(prog.attribs)
	case gles.ActiveUniforms:
		return len(prog.uniforms)
	}
	c.setError(gles.InvalidEnum)
	return 0
}

func (c *Context) GetProgramInfoLog(p gles.Program) string {
	if prog := c.program(p); prog != nil {
		return prog.infoLog()
	}
	return ""
}

func (c *Context) UseProgram(p gles.Program) {
	if p == 0 {
		c.current, c.currentName = nil, 0
		return
	}
	prog := c.program(p)
	if prog == nil {
		return
	}
	if !prog.linked {
		c.setError(gles.InvalidOperation)
		return
	}
	c.current, c.currentName = prog, p
}

// DeleteProgram frees the program and releases its attached shaders. The program stays usable
// while it is current.
func (c *Context) DeleteProgram(p gles.Program) {
	if p == 0 {
		return
	}
	prog := c.program(p)
	if prog == nil {
		return
	}
	for _, s := range prog.shaders {
		sh := c.shaders[s]
		sh.attached--
		if sh.deleted && sh.attached == 0 {
			delete(c.shaders, s)
		}
	}
	prog.shaders = nil
	delete(c.programs, p)
}

func (c *Context) GetAttribLocation(p gles.Program, name string) gles.Attrib {
	prog := c.program(p)
	if prog == nil {
		return -1
	}
	if !prog.linked {
		c.setError(gles.InvalidOperation)
		return -1
	}
	return prog.attribLocation(name)
}

func (c *Context) GetUniformLocation(p gles.Program, name string) gles.Uniform {
	prog := c.program(p)
	if prog == nil {
		return -1
	}
	if !prog.linked {
		c.setError(gles.InvalidOperation)
		return -1
	}
	return prog.uniformLocation(name)
}

func (c *Context) EnableVertexAttribArray(a gles.Attrib) {
	if a < 0 || int(a) >= maxVertexAttribs {
		c.setError(gles.InvalidValue)
		return
	}
	c.attribs[a].enabled = true
}

func (c *Context) VertexAttribPointer(a gles.Attrib, size int, ty gles.Enum, normalized bool, stride, offset int) {
	switch {
	case a < 0 || int(a) >= maxVertexAttribs, size < 1 || size > 4, stride < 0, offset < 0:
		c.setError(gles.InvalidValue)
		return
	case ty != gles.Float:
		c.setError(gles.InvalidEnum)
		return
	case c.arrayBuffer == 0 || offset%4 != 0 || stride%4 != 0:
		// Client side arrays are not supported.
		c.setError(gles.InvalidOperation)
		return
	}
	if stride == 0 {
		stride = size * 4
	}
	c.attribs[a] = attribState{enabled: c.attribs[a].enabled, buffer: c.arrayBuffer, size: size, stride: stride, offset: offset}
}

// uniform validates a location of the current program. ok is false for the ignored location -1.
func (c *Context) uniform(u gles.Uniform) (d *decl, ok bool) {
	if c.current == nil {
		c.setError(gles.InvalidOperation)
		return nil, false
	}
	if u == -1 {
		return nil, false
	}
	if u < 0 || int(u) >= len(c.current.uniforms) {
		c.setError(gles.InvalidOperation)
		return nil, false
	}
	return c.current.uniforms[u], true
}

func (c *Context) Uniform1i(u gles.Uniform, v int) {
	d, ok := c.uniform(u)
	if !ok {
		return
	}
	if !d.typ.isSampler() {
		c.setError(gles.InvalidOperation)
		return
	}
	if v < 0 || v >= maxTextureUnits {
		c.setError(gles.InvalidValue)
		return
	}
	c.current.uniformValues[u] = vec4{float64(v)}
}

func (c *Context) Uniform4f(u gles.Uniform, v0, v1, v2, v3 float32) {
	d, ok := c.uniform(u)
	if !ok {
		return
	}
	if d.typ != tVec4 {
		c.setError(gles.InvalidOperation)
		return
	}
	c.current.uniformValues[u] = vec4{float64(v0), float64(v1), float64(v2), float64(v3)}
}

//-----------------------------------------------------------------------------
// BUFFERS
//-----------------------------------------------------------------------------

func (c *Context) CreateBuffer() gles.Buffer {
	b := gles.Buffer(c.name())
	c.buffers[b] = nil
	return b
}

func (c *Context) BindBuffer(target gles.Enum, b gles.Buffer) {
	if target != gles.ArrayBuffer {
		c.setError(gles.InvalidEnum)
		return
	}
	if _, ok := c.buffers[b]; b != 0 && !ok {
		c.setError(gles.InvalidValue)
		return
	}
	c.arrayBuffer = b
}

func (c *Context) BufferData(target gles.Enum, data []float32, usage gles.Enum) {
	switch {
	case target != gles.ArrayBuffer, usage != gles.StaticDraw && usage != gles.DynamicDraw:
		c.setError(gles.InvalidEnum)
		return
	case c.arrayBuffer == 0:
		c.setError(gles.InvalidOperation)
		return
	}
	c.buffers[c.arrayBuffer] = append([]float32(nil), data...)
}

func (c *Context) DeleteBuffer(b gles.Buffer) {
	if _, ok := c.buffers[b]; !ok {
		return
	}
	delete(c.buffers, b)
	if c.arrayBuffer == b {
		c.arrayBuffer = 0
	}
	for i := range c.attribs {
		if c.attribs[i].buffer == b {
			c.attribs[i].buffer = 0
		}
	}
}

//-----------------------------------------------------------------------------
// TEXTURES
//-----------------------------------------------------------------------------

func (c *Context) CreateTexture() gles.Texture {
	t := gles.Texture(c.name())
	c.textures[t] = newTextureObject()
	return t
}

func (c *Context) ActiveTexture(unit gles.Enum) {
	i := int(unit) - int(gles.Texture0)
	if i < 0 || i >= maxTextureUnits {
		c.setError(gles.InvalidEnum)
		return
	}
	c.activeUnit = i
}

func (c *Context) BindTexture(target gles.Enum, t gles.Texture) {
	slot := c.unitSlot(target)
	if slot == nil {
		c.setError(gles.InvalidEnum)
		return
	}
	if t != 0 {
		obj, ok := c.textures[t]
		if !ok {
			c.setError(gles.InvalidValue)
			return
		}
		if obj.target != 0 && obj.target != target {
			c.setError(gles.InvalidOperation)
			return
		}
		if obj.target == 0 {
			obj.target = target
			if target == gles.TextureRectangle {
				obj.wrapS, obj.wrapT = gles.ClampToEdge, gles.ClampToEdge
			}
		}
	}
	*slot = t
}

func (c *Context) unitSlot(target gles.Enum) *gles.Texture {
	switch target {
	case gles.Texture2D:
		return &c.units[c.activeUnit].tex2D
	case gles.TextureRectangle:
		return &c.units[c.activeUnit].rect
	}
	return nil
}

// bound returns the texture bound to target on the active unit, recording an error if none is.
func (c *Context) bound(target gles.Enum) *textureObject {
	slot := c.unitSlot(target)
	if slot == nil {
		c.setError(gles.InvalidEnum)
		return nil
	}
	obj, ok := c.textures[*slot]
	if !ok {
		c.setError(gles.InvalidOperation)
		return nil
	}
	return obj
}

func (c *Context) TexParameteri(target, pname gles.Enum, param int) {
	obj := c.bound(target)
	if obj == nil {
		return
	}
	v := gles.Enum(param)
	switch pname {
	case gles.TextureWrapS, gles.TextureWrapT:
		if v != gles.ClampToEdge && (v != gles.Repeat || target == gles.TextureRectangle) {
			c.setError(gles.InvalidEnum)
			return
		}
		if pname == gles.TextureWrapS {
			obj.wrapS = v
		} else {
			obj.wrapT = v
		}
	case gles.TextureMinFilter, gles.TextureMagFilter:
		if v != gles.Nearest && v != gles.Linear {
			c.setError(gles.InvalidEnum)
			return
		}
		if pname == gles.TextureMinFilter {
			obj.minFilter = v
		} else {
			obj.magFilter = v
		}
	default:
		c.setError(gles.InvalidEnum)
	}
}

// pixelFormat validates a client format/type pair and reports whether it is BGRA ordered.
func (c *Context) pixelFormat(format, ty gles.Enum) (bgra, ok bool) {
	switch {
	case format != gles.RGBA && format != gles.BGRA, ty != gles.UnsignedByte && ty != gles.UnsignedInt8888Rev:
		c.setError(gles.InvalidEnum)
		return false, false
	case format == gles.RGBA && ty == gles.UnsignedInt8888Rev:
		c.setError(gles.InvalidOperation)
		return false, false
	}
	return format == gles.BGRA, true
}

func (c *Context) TexImage2D(target gles.Enum, level int, internalFormat gles.Enum, width, height int, format, ty gles.Enum, data []byte) {
	obj := c.bound(target)
	if obj == nil {
		return
	}
	bgra, ok := c.pixelFormat(format, ty)
	if !ok {
		return
	}
	if level != 0 || width < 0 || height < 0 || internalFormat != gles.RGBA && internalFormat != gles.BGRA {
		c.setError(gles.InvalidValue)
		return
	}
	img := newStorage(width, height, bgra)
	if data != nil {
		if len(data) < len(img.pix) {
			c.setError(gles.InvalidValue)
			return
		}
		copy(img.pix, data)
	}
	obj.img = img
}

// TexImageSurface makes the bound texture alias s. width and height must match the surface.
func (c *Context) TexImageSurface(target, internalFormat gles.Enum, width, height int, format, ty gles.Enum, s gles.Surface) {
	obj := c.bound(target)
	if obj == nil {
		return
	}
	bgra, ok := c.pixelFormat(format, ty)
	if !ok {
		return
	}
	switch {
	case s == nil, internalFormat != gles.RGBA && internalFormat != gles.BGRA:
		c.setError(gles.InvalidValue)
		return
	case width <= 0 || height <= 0 || width != s.Width() || height != s.Height():
		c.setError(gles.InvalidValue)
		return
	case s.BytesPerElement() != 4 || s.BytesPerRow() < width*4:
		c.setError(gles.InvalidValue)
		return
	}
	obj.img = storage{w: width, h: height, bgra: bgra, stride: s.BytesPerRow(), surf: s}
}

func (c *Context) DeleteTexture(t gles.Texture) {
	if _, ok := c.textures[t]; !ok {
		return
	}
	delete(c.textures, t)
	for i := range c.units {
		if c.units[i].tex2D == t {
			c.units[i].tex2D = 0
		}
		if c.units[i].rect == t {
			c.units[i].rect = 0
		}
	}
	for _, fb := range c.framebuffers {
		if fb.texture == t {
			fb.texture = 0
		}
	}
}

//-----------------------------------------------------------------------------
// FRAMEBUFFERS
//-----------------------------------------------------------------------------

func (c *Context) CreateFramebuffer() gles.Framebuffer {
	fb := gles.Framebuffer(c.name())
	c.framebuffers[fb] = &framebufferObject{}
	return fb
}

func (c *Context) BindFramebuffer(target gles.Enum, fb gles.Framebuffer) {
	if target != gles.FramebufferTarget {
		c.setError(gles.InvalidEnum)
		return
	}
	if _, ok := c.framebuffers[fb]; fb != 0 && !ok {
		c.setError(gles.InvalidValue)
		return
	}
	c.framebuffer = fb
}

func (c *Context) FramebufferTexture2D(target, attachment, texTarget gles.Enum, t gles.Texture, level int) {
	switch {
	case target != gles.FramebufferTarget, attachment != gles.ColorAttachment0:
		c.setError(gles.InvalidEnum)
		return
	case c.framebuffer == 0:
		c.setError(gles.InvalidOperation)
		return
	case level != 0:
		c.setError(gles.InvalidValue)
		return
	}
	if t != 0 {
		obj, ok := c.textures[t]
		if !ok {
			c.setError(gles.InvalidOperation)
			return
		}
		if obj.target != texTarget {
			c.setError(gles.InvalidOperation)
			return
		}
	}
	c.framebuffers[c.framebuffer].texture = t
}

func (c *Context) CheckFramebufferStatus(target gles.Enum) gles.Enum {
	if target != gles.FramebufferTarget {
		c.setError(gles.InvalidEnum)
		return 0
	}
	_, status := c.drawTarget()
	return status
}

// drawTarget returns the storage rendering goes to and the framebuffer completeness status.
func (c *Context) drawTarget() (*storage, gles.Enum) {
	if c.framebuffer == 0 {
		return &c.back, gles.FramebufferComplete
	}
	fb := c.framebuffers[c.framebuffer]
	if fb.texture == 0 {
		return nil, gles.MissingAttachment
	}
	tex := c.textures[fb.texture]
	if !tex.img.valid() {
		return nil, gles.IncompleteAttachment
	}
	return &tex.img, gles.FramebufferComplete
}

func (c *Context) DeleteFramebuffer(fb gles.Framebuffer) {
	if _, ok := c.framebuffers[fb]; !ok {
		return
	}
	delete(c.framebuffers, fb)
	if c.framebuffer == fb {
		c.framebuffer = 0
	}
}

//-----------------------------------------------------------------------------
// DRAWING
//-----------------------------------------------------------------------------

func (c *Context) Viewport(x, y, width, height int) {
	if width < 0 || height < 0 {
		c.setError(gles.InvalidValue)
		return
	}
	c.viewport = [4]int{x, y, width, height}
}

func (c *Context) ClearColor(r, g, b, a float32) {
	c.clearColor = [4]float32{clamp01f(r), clamp01f(g), clamp01f(b), clamp01f(a)}
}

// Clear fills the whole color buffer; the viewport does not restrict it. There is no depth
// buffer, so DepthBufferBit is accepted and ignored.
func (c *Context) Clear(mask gles.Enum) {
	if mask&^(gles.ColorBufferBit|gles.DepthBufferBit) != 0 {
		c.setError(gles.InvalidValue)
		return
	}
	target, status := c.drawTarget()
	if status != gles.FramebufferComplete {
		c.setError(gles.InvalidFramebufferOperation)
		return
	}
	if mask&gles.ColorBufferBit == 0 {
		return
	}
	unlock, err := lockAll(target.surf)
	if err != nil {
		c.setError(gles.InvalidOperation)
		return
	}
	defer unlock()
	pix, err := target.bytes()
	if err != nil {
		c.setError(gles.InvalidOperation)
		return
	}
	var px [4]byte
	for i, ch := range target.order() {
		px[ch] = toByte(float64(c.clearColor[i]))
	}
	for y := 0; y < target.h; y++ {
		row := pix[y*target.stride : y*target.stride+target.w*4]
		for x := 0; x < len(row); x += 4 {
			copy(row[x:x+4], px[:])
		}
	}
}

// ReadPixels copies a window-space rectangle of the bound framebuffer into dst, bottom row first
// and tightly packed. Pixels outside the framebuffer are left untouched.
func (c *Context) ReadPixels(dst []byte, x, y, width, height int, format, ty gles.Enum) {
	bgra, ok := c.pixelFormat(format, ty)
	if !ok {
		return
	}
	if width < 0 || height < 0 || len(dst) < width*height*4 {
		c.setError(gles.InvalidValue)
		return
	}
	src, status := c.drawTarget()
	if status != gles.FramebufferComplete {
		c.setError(gles.InvalidFramebufferOperation)
		return
	}
	unlock, err := lockAll(src.surf)
	if err != nil {
		c.setError(gles.InvalidOperation)
		return
	}
	defer unlock()
	pix, err := src.bytes()
	if err != nil {
		c.setError(gles.InvalidOperation)
		return
	}
	from := src.order()
	to := (&storage{bgra: bgra}).order()
	for row := 0; row < height; row++ {
		sy := y + row
		if sy < 0 || sy >= src.h {
			continue
		}
		for col := 0; col < width; col++ {
			sx := x + col
			if sx < 0 || sx >= src.w {
				continue
			}
			s := pix[sy*src.stride+sx*4:]
			d := dst[(row*width+col)*4:]
			for ch := 0; ch < 4; ch++ {
				d[to[ch]] = s[from[ch]]
			}
		}
	}
}

// Flush is a no-op: every call completes before it returns.
func (c *Context) Flush() {}

// Finish is a no-op: every call completes before it returns.
func (c *Context) Finish() {}

func clamp01f(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
