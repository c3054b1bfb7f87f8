// Package gles is the small OpenGL ES 2.0 style binding used by the producer and the viewer.
//
// Every call goes through an explicit Context value instead of a thread-implicit "current context",
// so render passes can run against the software implementation (package soft) or a test wrapper.
package gles

import "fmt"

// Enum is a GL enumerant.
type Enum uint32

// Object handles. Zero is never a valid object.
type (
	Shader      uint32
	Program     uint32
	Buffer      uint32
	Texture     uint32
	Framebuffer uint32
)

// Attrib is a vertex attribute location (-1 when the name is unknown).
type Attrib int32

// Uniform is a uniform location (-1 when the name is unknown).
type Uniform int32

// Valid reports whether the location was resolved.
func (a Attrib) Valid() bool { return a >= 0 }

// Valid reports whether the location was resolved.
func (u Uniform) Valid() bool { return u >= 0 }

const (
	NoError                     Enum = 0
	InvalidEnum                 Enum = 0x0500
	InvalidValue                Enum = 0x0501
	InvalidOperation            Enum = 0x0502
	OutOfMemory                 Enum = 0x0505
	InvalidFramebufferOperation Enum = 0x0506

	Points        Enum = 0x0000
	Lines         Enum = 0x0001
	Triangles     Enum = 0x0004
	TriangleStrip Enum = 0x0005
	TriangleFan   Enum = 0x0006

	DepthBufferBit Enum = 0x0100
	ColorBufferBit Enum = 0x4000

	UnsignedByte         Enum = 0x1401
	Float                Enum = 0x1406
	UnsignedInt8888Rev   Enum = 0x8367
	RGBA                 Enum = 0x1908
	BGRA                 Enum = 0x80E1
	ArrayBuffer          Enum = 0x8892
	StaticDraw           Enum = 0x88E4
	DynamicDraw          Enum = 0x88E8
	FragmentShader       Enum = 0x8B30
	VertexShader         Enum = 0x8B31
	CompileStatus        Enum = 0x8B81
	LinkStatus           Enum = 0x8B82
	InfoLogLength        Enum = 0x8B84
	ActiveUniforms       Enum = 0x8B86
	ActiveAttributes     Enum = 0x8B89
	Texture2D            Enum = 0x0DE1
	TextureRectangle     Enum = 0x84F5
	Texture0             Enum = 0x84C0
	TextureMagFilter     Enum = 0x2800
	TextureMinFilter     Enum = 0x2801
	TextureWrapS         Enum = 0x2802
	TextureWrapT         Enum = 0x2803
	Nearest              Enum = 0x2600
	Linear               Enum = 0x2601
	Repeat               Enum = 0x2901
	ClampToEdge          Enum = 0x812F

	FramebufferTarget      Enum = 0x8D40
	ColorAttachment0       Enum = 0x8CE0
	FramebufferComplete    Enum = 0x8CD5
	IncompleteAttachment   Enum = 0x8CD6
	MissingAttachment      Enum = 0x8CD7
	FramebufferUnsupported Enum = 0x8CDD
)

var enumNames = map[Enum]string{
	NoError:                     "NO_ERROR",
	InvalidEnum:                 "INVALID_ENUM",
	InvalidValue:                "INVALID_VALUE",
	InvalidOperation:            "INVALID_OPERATION",
	OutOfMemory:                 "OUT_OF_MEMORY",
	InvalidFramebufferOperation: "INVALID_FRAMEBUFFER_OPERATION",
	Triangles:                   "TRIANGLES",
	TriangleStrip:               "TRIANGLE_STRIP",
	TriangleFan:                 "TRIANGLE_FAN",
	VertexShader:                "VERTEX_SHADER",
	FragmentShader:              "FRAGMENT_SHADER",
	Texture2D:                   "TEXTURE_2D",
	TextureRectangle:            "TEXTURE_RECTANGLE",
	FramebufferComplete:         "FRAMEBUFFER_COMPLETE",
	IncompleteAttachment:        "FRAMEBUFFER_INCOMPLETE_ATTACHMENT",
	MissingAttachment:           "FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT",
	FramebufferUnsupported:      "FRAMEBUFFER_UNSUPPORTED",
}

func (e Enum) String() string {
	if name, ok := enumNames[e]; ok {
		return fmt.Sprintf("%s (0x%x)", name, uint32(e))
	}
	return fmt.Sprintf("0x%x", uint32(e))
}

// Surface is pixel memory shared with another process that a texture can alias
// (the CGLTexImageIOSurface2D model). Bytes is only valid between Lock and Unlock.
type Surface interface {
	Width() int
	Height() int
	BytesPerRow() int
	BytesPerElement() int
	Lock() error
	Unlock() error
	Bytes() []byte
}

// Context is the subset of OpenGL ES 2.0 the demos need, plus TexImageSurface.
// A Context is not safe for concurrent use: callers keep it on one goroutine (see the render
// thread in the root package).
type Context interface {
	CreateShader(ty Enum) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderi(s Shader, pname Enum) int
	GetShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgrami(p Program, pname Enum) int
	GetProgramInfoLog(p Program) string
	UseProgram(p Program)
	DeleteProgram(p Program)
	GetAttribLocation(p Program, name string) Attrib
	GetUniformLocation(p Program, name string) Uniform
	EnableVertexAttribArray(a Attrib)
	VertexAttribPointer(a Attrib, size int, ty Enum, normalized bool, stride, offset int)
	Uniform1i(u Uniform, v int)
	Uniform4f(u Uniform, v0, v1, v2, v3 float32)

	CreateBuffer() Buffer
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []float32, usage Enum)
	DeleteBuffer(b Buffer)

	CreateTexture() Texture
	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	TexParameteri(target, pname Enum, param int)
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, ty Enum, data []byte)
	// TexImageSurface makes the bound texture alias the surface memory without copying.
	TexImageSurface(target, internalFormat Enum, width, height int, format, ty Enum, s Surface)
	DeleteTexture(t Texture)

	CreateFramebuffer() Framebuffer
	BindFramebuffer(target Enum, fb Framebuffer)
	FramebufferTexture2D(target, attachment, texTarget Enum, t Texture, level int)
	CheckFramebufferStatus(target Enum) Enum
	DeleteFramebuffer(fb Framebuffer)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask Enum)
	DrawArrays(mode Enum, first, count int)
	// ReadPixels reads the bound framebuffer, bottom row first, into dst.
	ReadPixels(dst []byte, x, y, width, height int, format, ty Enum)
	Flush()
	Finish()
	GetError() Enum
}
