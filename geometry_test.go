package sharegl

import (
	"errors"
	"github.com/Yeicor/sharegl/internal"
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/Yeicor/sharegl/internal/gles/soft"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

const testQuadYAML = `
mode: triangle_strip
positions:
  - {x: -1, y: 1, z: 0}
  - {x: 1, y: 1, z: 0}
  - {x: -1, y: -1, z: 0}
  - {x: 1, y: -1, z: 0}
texcoords:
  - {x: 0, y: 600}
  - {x: 800, y: 600}
  - {x: 0, y: 0}
  - {x: 800, y: 0}
`

func TestBuiltinGeometry(t *testing.T) {
	tri := TriangleGeometry()
	require.NoError(t, tri.Validate())
	assert.Len(t, tri.Positions, 3)
	assert.Empty(t, tri.TexCoords)
	assert.Equal(t, v3.Vec{X: 1, Y: 1}, tri.Bounds().Max)
	assert.Equal(t, v3.Vec{}, tri.Bounds().Min)

	quad := QuadGeometry(800, 600)
	require.NoError(t, quad.Validate())
	assert.Len(t, quad.TexCoords, 4)
	assert.Equal(t, 600.0, quad.TexCoords[0].Y)
	assert.Equal(t, 800.0, quad.TexCoords[3].X)
}

func TestParseGeometry(t *testing.T) {
	g, err := ParseGeometry([]byte(testQuadYAML))
	require.NoError(t, err)
	assert.Equal(t, QuadGeometry(800, 600).Positions, g.Positions)
	assert.Equal(t, QuadGeometry(800, 600).TexCoords, g.TexCoords)

	g, err = ParseGeometry([]byte("positions: [{x: 0, y: 1}, {x: 1}, {}]"))
	require.NoError(t, err)
	assert.Equal(t, ModeTriangleStrip, g.Mode)
	assert.Equal(t, TriangleGeometry().Positions, g.Positions)
}

func TestParseGeometryInvalid(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":          "positions: [",
		"mode":            "mode: points\npositions: [{}, {}, {}]",
		"too few":         "positions: [{}, {}]",
		"triangles":       "mode: triangles\npositions: [{}, {}, {}, {}]",
		"texcoords":       "positions: [{}, {}, {}]\ntexcoords: [{}]",
		"not finite":      "positions: [{}, {x: .nan}, {}]",
		"infinite texels": "positions: [{}, {}, {}]\ntexcoords: [{}, {}, {y: -.inf}]",
	} {
		_, err := ParseGeometry([]byte(src))
		assert.True(t, errors.Is(err, ErrInvalidGeometry), "%s: got %v", name, err)
	}
}

func TestValidateReportsPath(t *testing.T) {
	_, err := ParseGeometry([]byte("positions: [{}, {x: .nan}, {}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Positions[1].X")
	var nf *internal.NonFiniteError
	assert.False(t, errors.As(err, &nf), "the walker error is flattened into the message")
}

func TestLoadGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testQuadYAML), 0o644))
	g, err := LoadGeometry(path)
	require.NoError(t, err)
	assert.Equal(t, path, g.Source)
	info := g.info()
	assert.Equal(t, "triangle_strip", info.Mode)
	assert.Equal(t, 4, info.Vertices)
	assert.Equal(t, v3.Vec{X: -1, Y: -1}, info.Bounds.Min)

	_, err = LoadGeometry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestGeometryUpload(t *testing.T) {
	gl := soft.New(16, 16)
	b, err := QuadGeometry(16, 16).upload(gl)
	require.NoError(t, err)
	assert.Equal(t, gles.TriangleStrip, b.mode)
	assert.Equal(t, 4, b.count)
	assert.NotZero(t, b.positions)
	assert.NotZero(t, b.texCoords)

	b, err = TriangleGeometry().upload(gl)
	require.NoError(t, err)
	assert.Zero(t, b.texCoords)

	// A program sampling a texture needs texcoords
	prog, err := InitShaders(gl, ViewerVertexShader, ViewerFragmentShader, []string{attrPosition, attrTexCoord}, nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(b.bind(gl, prog), ErrInvalidGeometry))
}
