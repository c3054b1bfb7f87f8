package sharegl

import (
	"fmt"
	"github.com/Yeicor/sharegl/internal/gles"
)

// Shader sources. The producer draws a flat white triangle; the viewer samples the shared surface
// through a rectangle texture, so its texture coordinates are in pixels.
const (
	ProducerVertexShader = `
attribute vec3 aVertexPosition;

void main(void) {
    gl_Position = vec4(aVertexPosition, 1.0);
}
`
	ProducerFragmentShader = `
#ifdef GLES2
    precision mediump float;
#endif

void main(void) {
    gl_FragColor = vec4(1.0, 1.0, 1.0, 1.0);
}
`
	ViewerVertexShader = `
attribute vec3 aVertexPosition;
attribute vec2 aTextureCoord;

varying vec2 vTextureCoord;

void main(void) {
    gl_Position = vec4(aVertexPosition, 1.0);
    vTextureCoord = aTextureCoord;
}
`
	ViewerFragmentShader = `
#ifdef GLES2
    precision mediump float;
#endif

varying vec2 vTextureCoord;

uniform sampler2DRect uSampler;

void main(void) {
    gl_FragColor = texture2DRect(uSampler, vec2(vTextureCoord.s, vTextureCoord.t));
}
`
)

// Attribute and uniform names used by the shaders above.
const (
	attrPosition = "aVertexPosition"
	attrTexCoord = "aTextureCoord"
	uniSampler   = "uSampler"
)

// ShaderProgram is a linked program with its attribute and uniform locations resolved.
// It is created once per GL context and never modified.
type ShaderProgram struct {
	Program  gles.Program
	Attribs  map[string]gles.Attrib
	Uniforms map[string]gles.Uniform
}

// InitShaders compiles and links the two stages, makes the program current and resolves the
// given names. Attributes are enabled. Every name must be active in the linked program: a missing
// one is reported as a *gles.LinkError.
func InitShaders(gl gles.Context, vertexSrc, fragmentSrc string, attribs, uniforms []string) (*ShaderProgram, error) {
	p, err := gles.CreateProgram(gl, vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}
	gl.UseProgram(p)
	sp := &ShaderProgram{Program: p, Attribs: map[string]gles.Attrib{}, Uniforms: map[string]gles.Uniform{}}
	for _, name := range attribs {
		a := gl.GetAttribLocation(p, name)
		if !a.Valid() {
			gl.DeleteProgram(p)
			return nil, &gles.LinkError{Log: fmt.Sprintf("attribute %q is not active", name)}
		}
		gl.EnableVertexAttribArray(a)
		sp.Attribs[name] = a
	}
	for _, name := range uniforms {
		u := gl.GetUniformLocation(p, name)
		if !u.Valid() {
			gl.DeleteProgram(p)
			return nil, &gles.LinkError{Log: fmt.Sprintf("uniform %q is not active", name)}
		}
		sp.Uniforms[name] = u
	}
	if err = gles.CheckError(gl, "InitShaders"); err != nil {
		gl.DeleteProgram(p)
		return nil, err
	}
	return sp, nil
}
