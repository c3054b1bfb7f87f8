package soft

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const testVertexShader = `
attribute vec3 aVertexPosition;
void main() {
    gl_Position = vec4(aVertexPosition, 1.0);
}
`

const testFragmentShader = `
#ifdef GLES2
    precision mediump float;
#endif
void main(void) {
    gl_FragColor = vec4(1.0);
}
`

const testSamplingVertexShader = `
attribute vec2 aVertexPosition;
attribute vec2 aTextureCoord;
varying vec2 vTextureCoord;
void main(void) {
    gl_Position = vec4(aVertexPosition, 0.0, 1.0);
    vTextureCoord = aTextureCoord;
}
`

const testSamplingFragmentShader = `
#ifdef GLES2
    precision mediump float;
#endif
varying vec2 vTextureCoord;
uniform sampler2DRect uSampler;
void main(void) {
    gl_FragColor = texture2DRect(uSampler, vTextureCoord);
}
`

func TestCompileGLSL(t *testing.T) {
	for _, tc := range []struct {
		name  string
		stage gles.Enum
		src   string
	}{
		{"vertex", gles.VertexShader, testVertexShader},
		{"fragment", gles.FragmentShader, testFragmentShader},
		{"sampling vertex", gles.VertexShader, testSamplingVertexShader},
		{"sampling fragment", gles.FragmentShader, testSamplingFragmentShader},
		{"expressions", gles.FragmentShader, `
			uniform vec4 uTint;
			void main() {
				/* locals, swizzles and arithmetic */
				vec3 c = uTint.rgb * 0.5 + vec3(0.25);
				float a = -uTint.a / 2.0;
				gl_FragColor = vec4(c.zyx, 1.0 - a);
			}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := compileGLSL(tc.stage, tc.src)
			require.NoError(t, err)
			assert.NotEmpty(t, s.body)
		})
	}
}

func TestCompileGLSLErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		stage gles.Enum
		src   string
		want  string
	}{
		{"undeclared", gles.FragmentShader, "void main() { gl_FragColor = color; }", `undeclared identifier "color"`},
		{"type mismatch", gles.FragmentShader, "void main() { gl_FragColor = vec3(1.0); }", "cannot assign vec3 to vec4"},
		{"attribute in fragment", gles.FragmentShader, "attribute vec2 a; void main() {}", "attribute qualifier"},
		{"bad swizzle", gles.VertexShader, "attribute vec2 a; void main() { gl_Position = vec4(a.xyz, 1.0); }", "illegal vector field selection"},
		{"mixed swizzle", gles.VertexShader, "attribute vec4 a; void main() { gl_Position = a.xyba; }", "illegal vector field selection"},
		{"missing main", gles.VertexShader, "attribute vec4 a;", "missing main"},
		{"read-only uniform", gles.FragmentShader, "uniform vec4 u; void main() { u = vec4(1.0); }", "l-value required"},
		{"read-only varying", gles.FragmentShader, "varying vec4 v; void main() { v = vec4(1.0); }", "l-value required"},
		{"unterminated ifdef", gles.FragmentShader, "#ifdef GLES2\nvoid main() {}", "unterminated conditional"},
		{"too many arguments", gles.FragmentShader, "void main() { gl_FragColor = vec4(vec4(1.0), 1.0); }", "too many arguments"},
		{"not enough data", gles.FragmentShader, "void main() { gl_FragColor = vec4(1.0, 1.0); }", "not enough data"},
		{"wrong sampler", gles.FragmentShader, "uniform sampler2D s; void main() { gl_FragColor = texture2DRect(s, vec2(0.0)); }", "no matching overload"},
		{"syntax", gles.FragmentShader, "void main() { gl_FragColor = vec4(1.0) }", "syntax error"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compileGLSL(tc.stage, tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Contains(t, err.Error(), "ERROR: 0:")
		})
	}
}

func TestPreprocess(t *testing.T) {
	src := "#version 100\n#ifdef GLES2\nkeep\n#else\ndrop\n#endif\n#ifndef GLES2\ndrop\n#endif\n#define FOO\n#ifdef FOO\nfoo\n#endif"
	out, err := preprocess(src, map[string]bool{"GLES2": true})
	require.NoError(t, err)
	assert.Equal(t, "\n\nkeep\n\n\n\n\n\n\n\n\nfoo\n", out)
}

func TestErrorLineNumbers(t *testing.T) {
	_, err := compileGLSL(gles.FragmentShader, "#ifdef GLES2\nprecision mediump float;\n#endif\nvoid main() {\n  gl_FragColor = nope;\n}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR: 0:5:")
}
