package gles

// CompileShader creates and compiles one shader stage, deleting it again on failure.
func CompileShader(gl Context, ty Enum, src string) (Shader, error) {
	s := gl.CreateShader(ty)
	if s == 0 {
		return 0, &GLError{Op: "CreateShader", Code: gl.GetError()}
	}
	gl.ShaderSource(s, src)
	gl.CompileShader(s)
	if err := CheckError(gl, "CompileShader"); err != nil {
		gl.DeleteShader(s)
		return 0, err
	}
	if gl.GetShaderi(s, CompileStatus) == 0 {
		log := gl.GetShaderInfoLog(s)
		gl.DeleteShader(s)
		return 0, &ShaderError{Type: ty, Log: log}
	}
	return s, nil
}

// CreateProgram compiles both stages and links them into a program.
// The shader objects are released once the program is linked.
func CreateProgram(gl Context, vertexSrc, fragmentSrc string) (Program, error) {
	vs, err := CompileShader(gl, VertexShader, vertexSrc)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)
	fs, err := CompileShader(gl, FragmentShader, fragmentSrc)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fs)

	p := gl.CreateProgram()
	gl.AttachShader(p, vs)
	gl.AttachShader(p, fs)
	gl.LinkProgram(p)
	if gl.GetProgrami(p, LinkStatus) == 0 {
		log := gl.GetProgramInfoLog(p)
		gl.DeleteProgram(p)
		return 0, &LinkError{Log: log}
	}
	return p, CheckError(gl, "LinkProgram")
}
