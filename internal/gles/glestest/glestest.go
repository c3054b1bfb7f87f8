// Package glestest wraps a gles.Context to count calls and inject GL errors in tests.
package glestest

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"sync"
)

// Context forwards every call to the wrapped context, counting calls per method name.
type Context struct {
	gl gles.Context

	mu      sync.Mutex
	calls   map[string]int
	inject  map[string]gles.Enum
	pending gles.Enum
}

var _ gles.Context = (*Context)(nil)

// Wrap returns a counting wrapper around gl.
func Wrap(gl gles.Context) *Context {
	return &Context{gl: gl, calls: map[string]int{}, inject: map[string]gles.Enum{}}
}

// Calls returns how many times the named method was called.
func (c *Context) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// Reset forgets the recorded call counts.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = map[string]int{}
}

// FailNext makes the next call to the named method record code as the GL error. The call itself
// is still forwarded.
func (c *Context) FailNext(name string, code gles.Enum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inject[name] = code
}

func (c *Context) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
	if code, ok := c.inject[name]; ok {
		delete(c.inject, name)
		if c.pending == gles.NoError {
			c.pending = code
		}
	}
}

func (c *Context) GetError() gles.Enum {
	c.record("GetError")
	c.mu.Lock()
	code := c.pending
	c.pending = gles.NoError
	c.mu.Unlock()
	if code != gles.NoError {
		return code
	}
	return c.gl.GetError()
}

func (c *Context) CreateShader(ty gles.Enum) gles.Shader {
	c.record("CreateShader")
	return c.gl.CreateShader(ty)
}

func (c *Context) ShaderSource(s gles.Shader, src string) {
	c.record("ShaderSource")
	c.gl.ShaderSource(s, src)
}

func (c *Context) CompileShader(s gles.Shader) {
	c.record("CompileShader")
	c.gl.CompileShader(s)
}

func (c *Context) GetShaderi(s gles.Shader, pname gles.Enum) int {
	c.record("GetShaderi")
	return c.gl.GetShaderi(s, pname)
}

func (c *Context) GetShaderInfoLog(s gles.Shader) string {
	c.record("GetShaderInfoLog")
	return c.gl.GetShaderInfoLog(s)
}

func (c *Context) DeleteShader(s gles.Shader) {
	c.record("DeleteShader")
	c.gl.DeleteShader(s)
}

func (c *Context) CreateProgram() gles.Program {
	c.record("CreateProgram")
	return c.gl.CreateProgram()
}

func (c *Context) AttachShader(p gles.Program, s gles.Shader) {
	c.record("AttachShader")
	c.gl.AttachShader(p, s)
}

func (c *Context) LinkProgram(p gles.Program) {
	c.record("LinkProgram")
	c.gl.LinkProgram(p)
}

func (c *Context) GetProgrami(p gles.Program, pname gles.Enum) int {
	c.record("GetProgrami")
	return c.gl.GetProgrami(p, pname)
}

func (c *Context) GetProgramInfoLog(p gles.Program) string {
	c.record("GetProgramInfoLog")
	return c.gl.GetProgramInfoLog(p)
}

func (c *Context) UseProgram(p gles.Program) {
	c.record("UseProgram")
	c.gl.UseProgram(p)
}

func (c *Context) DeleteProgram(p gles.Program) {
	c.record("DeleteProgram")
	c.gl.DeleteProgram(p)
}

func (c *Context) GetAttribLocation(p gles.Program, name string) gles.Attrib {
	c.record("GetAttribLocation")
	return c.gl.GetAttribLocation(p, name)
}

func (c *Context) GetUniformLocation(p gles.Program, name string) gles.Uniform {
	c.record("GetUniformLocation")
	return c.gl.GetUniformLocation(p, name)
}

func (c *Context) EnableVertexAttribArray(a gles.Attrib) {
	c.record("EnableVertexAttribArray")
	c.gl.EnableVertexAttribArray(a)
}

func (c *Context) VertexAttribPointer(a gles.Attrib, size int, ty gles.Enum, normalized bool, stride, offset int) {
	c.record("VertexAttribPointer")
	c.gl.VertexAttribPointer(a, size, ty, normalized, stride, offset)
}

func (c *Context) Uniform1i(u gles.Uniform, v int) {
	c.record("Uniform1i")
	c.gl.Uniform1i(u, v)
}

func (c *Context) Uniform4f(u gles.Uniform, v0, v1, v2, v3 float32) {
	c.record("Uniform4f")
	c.gl.Uniform4f(u, v0, v1, v2, v3)
}

func (c *Context) CreateBuffer() gles.Buffer {
	c.record("CreateBuffer")
	return c.gl.CreateBuffer()
}

func (c *Context) BindBuffer(target gles.Enum, b gles.Buffer) {
	c.record("BindBuffer")
	c.gl.BindBuffer(target, b)
}

func (c *Context) BufferData(target gles.Enum, data []float32, usage gles.Enum) {
	c.record("BufferData")
	c.gl.BufferData(target, data, usage)
}

func (c *Context) DeleteBuffer(b gles.Buffer) {
	c.record("DeleteBuffer")
	c.gl.DeleteBuffer(b)
}

func (c *Context) CreateTexture() gles.Texture {
	c.record("CreateTexture")
	return c.gl.CreateTexture()
}

func (c *Context) ActiveTexture(unit gles.Enum) {
	c.record("ActiveTexture")
	c.gl.ActiveTexture(unit)
}

func (c *Context) BindTexture(target gles.Enum, t gles.Texture) {
	c.record("BindTexture")
	c.gl.BindTexture(target, t)
}

func (c *Context) TexParameteri(target, pname gles.Enum, param int) {
	c.record("TexParameteri")
	c.gl.TexParameteri(target, pname, param)
}

func (c *Context) TexImage2D(target gles.Enum, level int, internalFormat gles.Enum, width, height int, format, ty gles.Enum, data []byte) {
	c.record("TexImage2D")
	c.gl.TexImage2D(target, level, internalFormat, width, height, format, ty, data)
}

func (c *Context) TexImageSurface(target, internalFormat gles.Enum, width, height int, format, ty gles.Enum, s gles.Surface) {
	c.record("TexImageSurface")
	c.gl.TexImageSurface(target, internalFormat, width, height, format, ty, s)
}

func (c *Context) DeleteTexture(t gles.Texture) {
	c.record("DeleteTexture")
	c.gl.DeleteTexture(t)
}

func (c *Context) CreateFramebuffer() gles.Framebuffer {
	c.record("CreateFramebuffer")
	return c.gl.CreateFramebuffer()
}

func (c *Context) BindFramebuffer(target gles.Enum, fb gles.Framebuffer) {
	c.record("BindFramebuffer")
	c.gl.BindFramebuffer(target, fb)
}

func (c *Context) FramebufferTexture2D(target, attachment, texTarget gles.Enum, t gles.Texture, level int) {
	c.record("FramebufferTexture2D")
	c.gl.FramebufferTexture2D(target, attachment, texTarget, t, level)
}

func (c *Context) CheckFramebufferStatus(target gles.Enum) gles.Enum {
	c.record("CheckFramebufferStatus")
	return c.gl.CheckFramebufferStatus(target)
}

func (c *Context) DeleteFramebuffer(fb gles.Framebuffer) {
	c.record("DeleteFramebuffer")
	c.gl.DeleteFramebuffer(fb)
}

func (c *Context) Viewport(x, y, width, height int) {
	c.record("Viewport")
	c.gl.Viewport(x, y, width, height)
}

func (c *Context) ClearColor(r, g, b, a float32) {
	c.record("ClearColor")
	c.gl.ClearColor(r, g, b, a)
}

func (c *Context) Clear(mask gles.Enum) {
	c.record("Clear")
	c.gl.Clear(mask)
}

func (c *Context) DrawArrays(mode gles.Enum, first, count int) {
	c.record("DrawArrays")
	c.gl.DrawArrays(mode, first, count)
}

func (c *Context) ReadPixels(dst []byte, x, y, width, height int, format, ty gles.Enum) {
	c.record("ReadPixels")
	c.gl.ReadPixels(dst, x, y, width, height, format, ty)
}

func (c *Context) Flush() {
	c.record("Flush")
	c.gl.Flush()
}

func (c *Context) Finish() {
	c.record("Finish")
	c.gl.Finish()
}
