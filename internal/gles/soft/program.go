package soft

import (
	"fmt"
	"github.com/Yeicor/sharegl/internal/gles"
	"strings"
)

// maxVaryingComponents is what fits in the interpolated fauxgl vertex (Texture + Color).
const maxVaryingComponents = 7

type vec4 = [4]float64

// env is the per-invocation state of one shader stage.
type env struct {
	attribs  []vec4
	uniforms []vec4
	varyings [maxVaryingComponents]float64
	locals   [maxLocals]vec4
	position vec4
	color    vec4
	sample   func(unit int, rect bool, s, t float64) vec4
}

type eval func(e *env) vec4

type shaderObject struct {
	stage    gles.Enum
	source   string
	compiled *compiledShader
	log      string
	deleted  bool
	attached int
}

type varying struct {
	typ    glslType
	offset int
}

type programObject struct {
	shaders []gles.Shader
	linked  bool
	log     string

	attribs  []*decl
	uniforms []*decl
	// uniformValues holds the current value of every uniform location (samplers store their unit).
	uniformValues []vec4
	varyings      map[string]varying
	vertex        []func(e *env)
	fragment      []func(e *env)
	samplers      []int // uniform locations of sampler uniforms
}

func (p *programObject) attribLocation(name string) gles.Attrib {
	for i, d := range p.attribs {
		if d.name == name {
			return gles.Attrib(i)
		}
	}
	return -1
}

func (p *programObject) uniformLocation(name string) gles.Uniform {
	for i, d := range p.uniforms {
		if d.name == name {
			return gles.Uniform(i)
		}
	}
	return -1
}

// link resolves the interface between the attached stages and builds the evaluators.
// On failure the program keeps its previous state except for linked and log.
func (p *programObject) link(shaders map[gles.Shader]*shaderObject) {
	if err := p.doLink(shaders); err != nil {
		p.linked = false
		p.log = err.Error() + "\n"
		return
	}
	p.linked = true
	p.log = ""
}

func (p *programObject) doLink(shaders map[gles.Shader]*shaderObject) error {
	var vs, fs *compiledShader
	for _, h := range p.shaders {
		s := shaders[h]
		if s == nil || s.compiled == nil {
			return fmt.Errorf("error: shader %d is not compiled", h)
		}
		switch s.stage {
		case gles.VertexShader:
			vs = s.compiled
		case gles.FragmentShader:
			fs = s.compiled
		}
	}
	if vs == nil || fs == nil {
		return fmt.Errorf("error: program needs a compiled vertex and fragment shader")
	}

	var attribs, uniforms []*decl
	uniformByName := map[string]*decl{}
	varyings := map[string]varying{}
	offset := 0
	for _, d := range vs.globals {
		switch d.qual {
		case qAttribute:
			attribs = append(attribs, d)
		case qUniform:
			uniformByName[d.name] = d
			uniforms = append(uniforms, d)
		case qVarying:
			varyings[d.name] = varying{typ: d.typ, offset: offset}
			offset += d.typ.size()
		}
	}
	if len(attribs) > maxVertexAttribs {
		return fmt.Errorf("error: too many attributes (%d, max %d)", len(attribs), maxVertexAttribs)
	}
	if offset > maxVaryingComponents {
		return fmt.Errorf("error: too many varying components (%d, max %d)", offset, maxVaryingComponents)
	}
	for _, d := range fs.globals {
		switch d.qual {
		case qUniform:
			if prev, ok := uniformByName[d.name]; ok {
				if prev.typ != d.typ {
					return fmt.Errorf("error: uniform %q declared as %s and %s", d.name, prev.typ, d.typ)
				}
				continue
			}
			uniformByName[d.name] = d
			uniforms = append(uniforms, d)
		case qVarying:
			v, ok := varyings[d.name]
			if !ok {
				return fmt.Errorf("error: varying %q is not declared in the vertex shader", d.name)
			}
			if v.typ != d.typ {
				return fmt.Errorf("error: varying %q declared as %s and %s", d.name, v.typ, d.typ)
			}
		}
	}

	l := &linker{attribs: map[string]int{}, uniforms: map[string]int{}, varyings: varyings}
	for i, d := range attribs {
		l.attribs[d.name] = i
	}
	var samplers []int
	for i, d := range uniforms {
		l.uniforms[d.name] = i
		if d.typ.isSampler() {
			samplers = append(samplers, i)
		}
	}
	vertex := make([]func(e *env), 0, len(vs.body))
	for _, a := range vs.body {
		vertex = append(vertex, l.assign(a))
	}
	fragment := make([]func(e *env), 0, len(fs.body))
	for _, a := range fs.body {
		fragment = append(fragment, l.assign(a))
	}

	p.attribs = attribs
	p.uniforms = uniforms
	p.uniformValues = make([]vec4, len(uniforms))
	p.varyings = varyings
	p.vertex = vertex
	p.fragment = fragment
	p.samplers = samplers
	return nil
}

func (p *programObject) infoLog() string {
	return strings.TrimRight(p.log, "\n")
}

type linker struct {
	attribs  map[string]int
	uniforms map[string]int
	varyings map[string]varying
}

func (l *linker) assign(a assignment) func(e *env) {
	value := l.expr(a.value)
	d := a.target
	switch d.qual {
	case qPosition:
		return func(e *env) { e.position = value(e) }
	case qFragColor:
		return func(e *env) { e.color = value(e) }
	case qVarying:
		v := l.varyings[d.name]
		n := v.typ.size()
		return func(e *env) {
			r := value(e)
			copy(e.varyings[v.offset:v.offset+n], r[:n])
		}
	default:
		slot := d.slot
		return func(e *env) { e.locals[slot] = value(e) }
	}
}

func (l *linker) ident(d *decl) eval {
	switch d.qual {
	case qAttribute:
		i := l.attribs[d.name]
		return func(e *env) vec4 { return e.attribs[i] }
	case qUniform:
		i := l.uniforms[d.name]
		return func(e *env) vec4 { return e.uniforms[i] }
	case qVarying:
		v := l.varyings[d.name]
		n := v.typ.size()
		return func(e *env) (r vec4) {
			copy(r[:n], e.varyings[v.offset:v.offset+n])
			return r
		}
	case qPosition:
		return func(e *env) vec4 { return e.position }
	case qFragColor:
		return func(e *env) vec4 { return e.color }
	default:
		slot := d.slot
		return func(e *env) vec4 { return e.locals[slot] }
	}
}

func (l *linker) expr(n node) eval {
	switch n := n.(type) {
	case numberNode:
		v := vec4{n.v}
		return func(*env) vec4 { return v }
	case identNode:
		return l.ident(n.d)
	case negNode:
		x := l.expr(n.x)
		return func(e *env) vec4 {
			r := x(e)
			return vec4{-r[0], -r[1], -r[2], -r[3]}
		}
	case swizzleNode:
		x := l.expr(n.x)
		comps := n.comps
		return func(e *env) (r vec4) {
			v := x(e)
			for i, c := range comps {
				r[i] = v[c]
			}
			return r
		}
	case binaryNode:
		return l.binary(n)
	case callNode:
		return l.call(n)
	}
	panic(fmt.Sprintf("soft: unexpected node %T", n))
}

func (l *linker) binary(n binaryNode) eval {
	left, right := l.expr(n.l), l.expr(n.r)
	size := n.typ.size()
	// Scalars are broadcast over the vector operand.
	lScalar := n.l.glslType() == tFloat && size > 1
	rScalar := n.r.glslType() == tFloat && size > 1
	var op func(a, b float64) float64
	switch n.op {
	case '+':
		op = func(a, b float64) float64 { return a + b }
	case '-':
		op = func(a, b float64) float64 { return a - b }
	case '*':
		op = func(a, b float64) float64 { return a * b }
	case '/':
		op = func(a, b float64) float64 { return a / b }
	}
	return func(e *env) (r vec4) {
		a, b := left(e), right(e)
		if lScalar {
			a = vec4{a[0], a[0], a[0], a[0]}
		}
		if rScalar {
			b = vec4{b[0], b[0], b[0], b[0]}
		}
		for i := 0; i < size; i++ {
			r[i] = op(a[i], b[i])
		}
		return r
	}
}

func (l *linker) call(n callNode) eval {
	args := make([]eval, len(n.args))
	sizes := make([]int, len(n.args))
	for i, a := range n.args {
		args[i] = l.expr(a)
		sizes[i] = a.glslType().size()
	}
	switch n.fn {
	case "texture2D", "texture2DRect":
		unit := l.uniforms[n.args[0].(identNode).d.name]
		coord := args[1]
		rect := n.fn == "texture2DRect"
		return func(e *env) vec4 {
			c := coord(e)
			return e.sample(int(e.uniforms[unit][0]), rect, c[0], c[1])
		}
	}
	size := n.typ.size()
	if len(args) == 1 && sizes[0] == 1 {
		x := args[0]
		return func(e *env) (r vec4) {
			v := x(e)[0]
			for i := 0; i < size; i++ {
				r[i] = v
			}
			return r
		}
	}
	return func(e *env) (r vec4) {
		i := 0
		for j, arg := range args {
			v := arg(e)
			for k := 0; k < sizes[j] && i < size; k++ {
				r[i] = v[k]
				i++
			}
		}
		return r
	}
}
