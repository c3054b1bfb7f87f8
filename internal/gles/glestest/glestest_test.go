package glestest

import (
	"github.com/Yeicor/sharegl/internal/gles"
	"github.com/Yeicor/sharegl/internal/gles/soft"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestCountsAndInjects(t *testing.T) {
	gl := Wrap(soft.New(2, 2))
	gl.CreateTexture()
	gl.CreateTexture()
	assert.Equal(t, 2, gl.Calls("CreateTexture"))

	gl.FailNext("DrawArrays", gles.OutOfMemory)
	assert.Equal(t, gles.NoError, gl.GetError())
	gl.DrawArrays(gles.Triangles, 0, 0) // also INVALID_OPERATION in the wrapped context
	assert.Equal(t, gles.OutOfMemory, gl.GetError())
	assert.Equal(t, gles.InvalidOperation, gl.GetError())
	assert.Equal(t, gles.NoError, gl.GetError())

	gl.Reset()
	assert.Zero(t, gl.Calls("CreateTexture"))
}
