package soft

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// memSurface is an in-memory gles.Surface with BGRA pixels.
type memSurface struct {
	w, h   int
	pix    []byte
	locked int
}

func newMemSurface(w, h int) *memSurface {
	return &memSurface{w: w, h: h, pix: make([]byte, w*h*4)}
}

func (s *memSurface) Width() int           { return s.w }
func (s *memSurface) Height() int          { return s.h }
func (s *memSurface) BytesPerRow() int     { return s.w * 4 }
func (s *memSurface) BytesPerElement() int { return 4 }
func (s *memSurface) Lock() error          { s.locked++; return nil }
func (s *memSurface) Unlock() error        { s.locked--; return nil }
func (s *memSurface) Bytes() []byte        { return s.pix }

func (s *memSurface) at(x, y int) []byte {
	o := (y*s.w + x) * 4
	return s.pix[o : o+4]
}

func pixelAt(buf []byte, width, x, y int) []byte {
	o := (y*width + x) * 4
	return buf[o : o+4]
}

func setupTriangle(t *testing.T, gl *Context) {
	t.Helper()
	p, err := gles.CreateProgram(gl, testVertexShader, testFragmentShader)
	require.NoError(t, err)
	gl.UseProgram(p)
	pos := gl.GetAttribLocation(p, "aVertexPosition")
	require.Equal(t, gles.Attrib(0), pos)
	gl.EnableVertexAttribArray(pos)
	buf := gl.CreateBuffer()
	gl.BindBuffer(gles.ArrayBuffer, buf)
	gl.BufferData(gles.ArrayBuffer, []float32{0, 1, 0, 1, 0, 0, 0, 0, 0}, gles.StaticDraw)
	gl.VertexAttribPointer(pos, 3, gles.Float, false, 0, 0)
	require.Equal(t, gles.NoError, gl.GetError())
}

func TestDrawTriangleDefaultFramebuffer(t *testing.T) {
	gl := New(800, 600)
	setupTriangle(t, gl)
	gl.ClearColor(0, 0, 1, 1)
	gl.Clear(gles.ColorBufferBit)
	gl.DrawArrays(gles.TriangleStrip, 0, 3)
	require.Equal(t, gles.NoError, gl.GetError())

	out := make([]byte, 800*600*4)
	gl.ReadPixels(out, 0, 0, 800, 600, gles.RGBA, gles.UnsignedByte)
	require.Equal(t, gles.NoError, gl.GetError())
	assert.Equal(t, []byte{255, 255, 255, 255}, pixelAt(out, 800, 500, 375), "inside the triangle")
	assert.Equal(t, []byte{0, 0, 255, 255}, pixelAt(out, 800, 200, 150), "background")
	assert.Equal(t, []byte{0, 0, 255, 255}, pixelAt(out, 800, 700, 550), "above the hypotenuse")
}

func TestDrawIntoSurfaceFramebuffer(t *testing.T) {
	gl := New(800, 600)
	s := newMemSurface(800, 600)
	setupTriangle(t, gl)

	tex := gl.CreateTexture()
	gl.BindTexture(gles.TextureRectangle, tex)
	gl.TexImageSurface(gles.TextureRectangle, gles.RGBA, 800, 600, gles.BGRA, gles.UnsignedInt8888Rev, s)
	fb := gl.CreateFramebuffer()
	gl.BindFramebuffer(gles.FramebufferTarget, fb)
	assert.Equal(t, gles.MissingAttachment, gl.CheckFramebufferStatus(gles.FramebufferTarget))
	gl.FramebufferTexture2D(gles.FramebufferTarget, gles.ColorAttachment0, gles.TextureRectangle, tex, 0)
	require.Equal(t, gles.FramebufferComplete, gl.CheckFramebufferStatus(gles.FramebufferTarget))

	gl.ClearColor(0, 0, 1, 1)
	gl.Clear(gles.ColorBufferBit)
	gl.DrawArrays(gles.TriangleStrip, 0, 3)
	require.Equal(t, gles.NoError, gl.GetError())
	assert.Zero(t, s.locked)

	assert.Equal(t, []byte{255, 255, 255, 255}, s.at(500, 375))
	assert.Equal(t, []byte{255, 0, 0, 255}, s.at(200, 150), "blue in BGRA")
}

func TestSampleSurfaceTexture(t *testing.T) {
	s := newMemSurface(800, 600)
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			if x < 400 {
				copy(s.at(x, y), []byte{0, 0, 255, 255}) // red
			} else {
				copy(s.at(x, y), []byte{0, 255, 0, 255}) // green
			}
		}
	}

	gl := New(800, 600)
	p, err := gles.CreateProgram(gl, testSamplingVertexShader, testSamplingFragmentShader)
	require.NoError(t, err)
	gl.UseProgram(p)
	pos, coord := gl.GetAttribLocation(p, "aVertexPosition"), gl.GetAttribLocation(p, "aTextureCoord")
	sampler := gl.GetUniformLocation(p, "uSampler")
	require.Equal(t, gles.Attrib(0), pos)
	require.Equal(t, gles.Attrib(1), coord)
	require.Equal(t, gles.Uniform(0), sampler)
	gl.EnableVertexAttribArray(pos)
	gl.EnableVertexAttribArray(coord)

	posBuf, coordBuf := gl.CreateBuffer(), gl.CreateBuffer()
	gl.BindBuffer(gles.ArrayBuffer, posBuf)
	gl.BufferData(gles.ArrayBuffer, []float32{-1, 1, 1, 1, -1, -1, 1, -1}, gles.StaticDraw)
	gl.VertexAttribPointer(pos, 2, gles.Float, false, 0, 0)
	gl.BindBuffer(gles.ArrayBuffer, coordBuf)
	gl.BufferData(gles.ArrayBuffer, []float32{0, 600, 800, 600, 0, 0, 800, 0}, gles.StaticDraw)
	gl.VertexAttribPointer(coord, 2, gles.Float, false, 0, 0)

	tex := gl.CreateTexture()
	gl.BindTexture(gles.TextureRectangle, tex)
	gl.TexParameteri(gles.TextureRectangle, gles.TextureMagFilter, int(gles.Linear))
	gl.TexImageSurface(gles.TextureRectangle, gles.RGBA, 800, 600, gles.BGRA, gles.UnsignedInt8888Rev, s)
	gl.Uniform1i(sampler, 0)
	gl.ClearColor(1, 1, 1, 1)
	gl.Clear(gles.ColorBufferBit)
	gl.DrawArrays(gles.TriangleStrip, 0, 4)
	require.Equal(t, gles.NoError, gl.GetError())

	out := make([]byte, 800*600*4)
	gl.ReadPixels(out, 0, 0, 800, 600, gles.RGBA, gles.UnsignedByte)
	assert.Equal(t, []byte{255, 0, 0, 255}, pixelAt(out, 800, 100, 300))
	assert.Equal(t, []byte{0, 255, 0, 255}, pixelAt(out, 800, 700, 300))
}

func TestViewportRestrictsDrawing(t *testing.T) {
	gl := New(80, 60)
	p, err := gles.CreateProgram(gl, testVertexShader, testFragmentShader)
	require.NoError(t, err)
	gl.UseProgram(p)
	gl.EnableVertexAttribArray(0)
	gl.BindBuffer(gles.ArrayBuffer, gl.CreateBuffer())
	gl.BufferData(gles.ArrayBuffer, []float32{-1, 1, 0, 1, 1, 0, -1, -1, 0, 1, -1, 0}, gles.StaticDraw)
	gl.VertexAttribPointer(0, 3, gles.Float, false, 0, 0)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gles.ColorBufferBit)
	gl.Viewport(0, 0, 40, 30)
	gl.DrawArrays(gles.TriangleStrip, 0, 4)
	require.Equal(t, gles.NoError, gl.GetError())

	out := make([]byte, 80*60*4)
	gl.ReadPixels(out, 0, 0, 80, 60, gles.RGBA, gles.UnsignedByte)
	assert.Equal(t, []byte{255, 255, 255, 255}, pixelAt(out, 80, 20, 15))
	assert.Equal(t, []byte{0, 0, 0, 255}, pixelAt(out, 80, 60, 15))
	assert.Equal(t, []byte{0, 0, 0, 255}, pixelAt(out, 80, 20, 45))
}

func TestGetErrorIsStickyUntilRead(t *testing.T) {
	gl := New(4, 4)
	gl.BindTexture(gles.Float, 0)       // INVALID_ENUM
	gl.DrawArrays(gles.Triangles, 0, 3) // INVALID_OPERATION, not recorded
	assert.Equal(t, gles.InvalidEnum, gl.GetError())
	assert.Equal(t, gles.NoError, gl.GetError())
}

func TestTexImageSurfaceDimensionMismatch(t *testing.T) {
	gl := New(4, 4)
	tex := gl.CreateTexture()
	gl.BindTexture(gles.TextureRectangle, tex)
	gl.TexImageSurface(gles.TextureRectangle, gles.RGBA, 800, 600, gles.BGRA, gles.UnsignedInt8888Rev, newMemSurface(640, 480))
	assert.Equal(t, gles.InvalidValue, gl.GetError())
	gl.TexParameteri(gles.TextureRectangle, gles.TextureWrapS, int(gles.Repeat))
	assert.Equal(t, gles.InvalidEnum, gl.GetError())
}

func TestProgramLocations(t *testing.T) {
	gl := New(4, 4)
	p, err := gles.CreateProgram(gl, testSamplingVertexShader, `
		varying vec2 vTextureCoord;
		uniform vec4 uTint;
		uniform sampler2DRect uSampler;
		void main() { gl_FragColor = texture2DRect(uSampler, vTextureCoord) * uTint; }`)
	require.NoError(t, err)
	assert.Equal(t, gles.Uniform(0), gl.GetUniformLocation(p, "uTint"))
	assert.Equal(t, gles.Uniform(1), gl.GetUniformLocation(p, "uSampler"))
	assert.Equal(t, gles.Uniform(-1), gl.GetUniformLocation(p, "uMissing"))
	assert.Equal(t, gles.Attrib(-1), gl.GetAttribLocation(p, "aMissing"))
	assert.Equal(t, 2, gl.GetProgrami(p, gles.ActiveAttributes))
	assert.Equal(t, 2, gl.GetProgrami(p, gles.ActiveUniforms))

	gl.UseProgram(p)
	gl.Uniform1i(0, 0)
	assert.Equal(t, gles.InvalidOperation, gl.GetError(), "Uniform1i on a vec4")
	gl.Uniform4f(-1, 1, 1, 1, 1)
	assert.Equal(t, gles.NoError, gl.GetError(), "location -1 is ignored")
}

func TestLinkErrors(t *testing.T) {
	gl := New(4, 4)
	_, err := gles.CreateProgram(gl, testVertexShader, "varying vec2 vMissing;\nvoid main() { gl_FragColor = vec4(vMissing, 0.0, 1.0); }")
	var linkErr *gles.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Contains(t, linkErr.Log, `varying "vMissing"`)

	_, err = gles.CreateProgram(gl, testVertexShader, "void main() { gl_FragColor = undefined; }")
	var shaderErr *gles.ShaderError
	require.ErrorAs(t, err, &shaderErr)
	assert.Equal(t, gles.FragmentShader, shaderErr.Type)
}
