package gles

import (
	"fmt"
	"strings"
)

// GLError is a GetError result other than NoError, reported after Op.
type GLError struct {
	Op   string
	Code Enum
}

func (e *GLError) Error() string {
	return fmt.Sprintf("%s: gl error %s", e.Op, e.Code)
}

// ShaderError is a failed shader compilation, carrying the info log.
type ShaderError struct {
	Type Enum
	Log  string
}

func (e *ShaderError) Error() string {
	stage := "vertex"
	if e.Type == FragmentShader {
		stage = "fragment"
	}
	return fmt.Sprintf("failed to compile %s shader: %s", stage, strings.TrimSpace(e.Log))
}

// LinkError is a failed program link, or a name missing from a linked program.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return "failed to link program: " + strings.TrimSpace(e.Log)
}

// FramebufferError is an incomplete framebuffer after attaching its color buffer.
type FramebufferError struct {
	Status Enum
}

func (e *FramebufferError) Error() string {
	return fmt.Sprintf("framebuffer incomplete: status %s", e.Status)
}

// CheckError drains the context error flag and returns it as a *GLError.
func CheckError(gl Context, op string) error {
	if code := gl.GetError(); code != NoError {
		return &GLError{Op: op, Code: code}
	}
	return nil
}
