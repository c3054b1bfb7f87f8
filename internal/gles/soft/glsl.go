package soft

import (
	"fmt"
	"github.com/Yeicor/sharegl/internal/gles"
	"strconv"
	"strings"
	"unicode"
)

//-----------------------------------------------------------------------------
// TYPES
//-----------------------------------------------------------------------------

type glslType int

const (
	tInvalid glslType = iota
	tFloat
	tVec2
	tVec3
	tVec4
	tSampler2D
	tSampler2DRect
)

var typeNames = map[string]glslType{
	"float":         tFloat,
	"vec2":          tVec2,
	"vec3":          tVec3,
	"vec4":          tVec4,
	"sampler2D":     tSampler2D,
	"sampler2DRect": tSampler2DRect,
}

func (t glslType) String() string {
	for name, tt := range typeNames {
		if tt == t {
			return name
		}
	}
	return "<invalid>"
}

// size is the number of float components (samplers hold a texture unit).
func (t glslType) size() int {
	switch t {
	case tFloat, tSampler2D, tSampler2DRect:
		return 1
	case tVec2:
		return 2
	case tVec3:
		return 3
	case tVec4:
		return 4
	}
	return 0
}

func (t glslType) isSampler() bool { return t == tSampler2D || t == tSampler2DRect }

func vecType(n int) glslType {
	switch n {
	case 1:
		return tFloat
	case 2:
		return tVec2
	case 3:
		return tVec3
	case 4:
		return tVec4
	}
	return tInvalid
}

type qualifier int

const (
	qAttribute qualifier = iota
	qUniform
	qVarying
	qLocal
	qPosition  // gl_Position
	qFragColor // gl_FragColor
)

type decl struct {
	qual qualifier
	typ  glslType
	name string
	line int
	slot int // local slot, assigned while parsing main
}

// maxLocals bounds the local variables of one main function.
const maxLocals = 16

//-----------------------------------------------------------------------------
// AST
//-----------------------------------------------------------------------------

type node interface {
	glslType() glslType
}

type numberNode struct{ v float64 }

type identNode struct {
	d *decl
}

type swizzleNode struct {
	x     node
	comps []int
}

type callNode struct {
	fn   string
	typ  glslType
	args []node
}

type binaryNode struct {
	op   byte
	typ  glslType
	l, r node
}

type negNode struct{ x node }

func (numberNode) glslType() glslType    { return tFloat }
func (n identNode) glslType() glslType   { return n.d.typ }
func (n swizzleNode) glslType() glslType { return vecType(len(n.comps)) }
func (n callNode) glslType() glslType    { return n.typ }
func (n binaryNode) glslType() glslType  { return n.typ }
func (n negNode) glslType() glslType     { return n.x.glslType() }

type assignment struct {
	target *decl
	value  node
}

// compiledShader is the result of a successful CompileShader.
type compiledShader struct {
	stage   gles.Enum
	globals []*decl
	locals  int
	body    []assignment
}

//-----------------------------------------------------------------------------
// PREPROCESSOR
//-----------------------------------------------------------------------------

type compileError struct {
	line int
	msg  string
}

func (e *compileError) Error() string {
	return fmt.Sprintf("ERROR: 0:%d: %s", e.line, e.msg)
}

func errorf(line int, format string, args ...interface{}) *compileError {
	return &compileError{line: line, msg: fmt.Sprintf(format, args...)}
}

// preprocess resolves conditional blocks. Inactive and directive lines are blanked so that line
// numbers in diagnostics still match the source.
func preprocess(src string, defines map[string]bool) (string, error) {
	type frame struct{ parentActive, active, sawElse bool }
	var stack []frame
	active := true
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if !active {
				lines[i] = ""
			}
			continue
		}
		lines[i] = ""
		fields := strings.Fields(strings.TrimSpace(trimmed[1:]))
		if len(fields) == 0 {
			continue // null directive
		}
		directive, args := fields[0], fields[1:]
		switch directive {
		case "ifdef", "ifndef":
			if len(args) != 1 {
				return "", errorf(lineNo, "#%s expects one macro name", directive)
			}
			cond := defines[args[0]]
			if directive == "ifndef" {
				cond = !cond
			}
			stack = append(stack, frame{parentActive: active, active: active && cond})
			active = active && cond
		case "else":
			if len(stack) == 0 || stack[len(stack)-1].sawElse {
				return "", errorf(lineNo, "unexpected #else")
			}
			top := &stack[len(stack)-1]
			top.sawElse = true
			top.active = top.parentActive && !top.active
			active = top.active
		case "endif":
			if len(stack) == 0 {
				return "", errorf(lineNo, "unexpected #endif")
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		case "define":
			if !active {
				continue
			}
			if len(args) != 1 {
				return "", errorf(lineNo, "macro bodies are not supported")
			}
			defines[args[0]] = true
		case "undef":
			if active && len(args) == 1 {
				delete(defines, args[0])
			}
		case "version", "extension", "pragma":
		default:
			if active {
				return "", errorf(lineNo, "unsupported directive #%s", directive)
			}
		}
	}
	if len(stack) > 0 {
		return "", errorf(len(lines), "unterminated conditional directive")
	}
	return strings.Join(lines, "\n"), nil
}

//-----------------------------------------------------------------------------
// LEXER
//-----------------------------------------------------------------------------

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
}

func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, errorf(line, "unterminated comment")
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i
			for j < len(src) && (src[j] == '_' || unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], line: line})
			i = j
		case unicode.IsDigit(rune(c)) || (c == '.' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				j++
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				for j < len(src) && unicode.IsDigit(rune(src[j])) {
					j++
				}
			}
			if j < len(src) && (src[j] == 'f' || src[j] == 'F') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], line: line})
			i = j
		case strings.IndexByte("(){};,.=+-*/", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), line: line})
			i++
		default:
			return nil, errorf(line, "unexpected character %q", c)
		}
	}
	return append(toks, token{kind: tokEOF, line: line}), nil
}

//-----------------------------------------------------------------------------
// PARSER
//-----------------------------------------------------------------------------

var precisionQualifiers = map[string]bool{"lowp": true, "mediump": true, "highp": true}

type parser struct {
	toks    []token
	pos     int
	stage   gles.Enum
	globals map[string]*decl
	locals  map[string]*decl
	out     *compiledShader
	sawMain bool
}

// compileGLSL parses and type checks one shader stage.
func compileGLSL(stage gles.Enum, src string) (*compiledShader, error) {
	pp, err := preprocess(src, map[string]bool{"GL_ES": true, "GLES2": true})
	if err != nil {
		return nil, err
	}
	toks, err := lex(pp)
	if err != nil {
		return nil, err
	}
	p := &parser{
		toks:    toks,
		stage:   stage,
		globals: map[string]*decl{},
		out:     &compiledShader{stage: stage},
	}
	for p.peek().kind != tokEOF {
		if err := p.topLevel(); err != nil {
			return nil, err
		}
	}
	if !p.sawMain {
		return nil, errorf(p.peek().line, "missing main function")
	}
	return p.out, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if t := p.peek(); t.kind != tokEOF && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if t := p.next(); t.text != text {
		return errorf(t.line, "syntax error: expected %q, found %q", text, t.text)
	}
	return nil
}

func (p *parser) ident() (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, errorf(t.line, "syntax error: expected identifier, found %q", t.text)
	}
	return t, nil
}

func (p *parser) typeName() (glslType, error) {
	t, err := p.ident()
	if err != nil {
		return tInvalid, err
	}
	if precisionQualifiers[t.text] {
		if t, err = p.ident(); err != nil {
			return tInvalid, err
		}
	}
	typ, ok := typeNames[t.text]
	if !ok {
		return tInvalid, errorf(t.line, "unsupported type %q", t.text)
	}
	return typ, nil
}

func (p *parser) topLevel() error {
	t := p.peek()
	switch t.text {
	case "precision":
		p.next()
		if q := p.next(); !precisionQualifiers[q.text] {
			return errorf(q.line, "syntax error: expected precision qualifier, found %q", q.text)
		}
		if _, err := p.typeName(); err != nil {
			return err
		}
		return p.expect(";")
	case "attribute", "uniform", "varying":
		p.next()
		qual := map[string]qualifier{"attribute": qAttribute, "uniform": qUniform, "varying": qVarying}[t.text]
		if qual == qAttribute && p.stage != gles.VertexShader {
			return errorf(t.line, "attribute qualifier is only allowed in vertex shaders")
		}
		typ, err := p.typeName()
		if err != nil {
			return err
		}
		if typ.isSampler() && qual != qUniform {
			return errorf(t.line, "samplers must be uniform")
		}
		name, err := p.ident()
		if err != nil {
			return err
		}
		if _, dup := p.globals[name.text]; dup {
			return errorf(name.line, "redefinition of %q", name.text)
		}
		d := &decl{qual: qual, typ: typ, name: name.text, line: name.line}
		p.globals[name.text] = d
		p.out.globals = append(p.out.globals, d)
		return p.expect(";")
	case "void":
		p.next()
		name, err := p.ident()
		if err != nil {
			return err
		}
		if name.text != "main" {
			return errorf(name.line, "only the main function is supported, found %q", name.text)
		}
		if p.sawMain {
			return errorf(name.line, "redefinition of main")
		}
		p.sawMain = true
		if err := p.expect("("); err != nil {
			return err
		}
		p.accept("void")
		if err := p.expect(")"); err != nil {
			return err
		}
		return p.mainBody()
	}
	return errorf(t.line, "syntax error: unexpected %q", t.text)
}

func (p *parser) mainBody() error {
	if err := p.expect("{"); err != nil {
		return err
	}
	p.locals = map[string]*decl{}
	for !p.accept("}") {
		if p.peek().kind == tokEOF {
			return errorf(p.peek().line, "syntax error: unexpected end of source in main")
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) statement() error {
	t := p.peek()
	if _, isType := typeNames[t.text]; isType || precisionQualifiers[t.text] {
		typ, err := p.typeName()
		if err != nil {
			return err
		}
		if typ.isSampler() {
			return errorf(t.line, "samplers must be uniform")
		}
		name, err := p.ident()
		if err != nil {
			return err
		}
		if _, dup := p.locals[name.text]; dup {
			return errorf(name.line, "redefinition of %q", name.text)
		}
		if p.out.locals == maxLocals {
			return errorf(name.line, "too many local variables (max %d)", maxLocals)
		}
		d := &decl{qual: qLocal, typ: typ, name: name.text, line: name.line, slot: p.out.locals}
		p.out.locals++
		p.locals[name.text] = d
		if p.accept("=") {
			if err := p.assign(d, name.line); err != nil {
				return err
			}
		}
		return p.expect(";")
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	target, err := p.lookup(name)
	if err != nil {
		return err
	}
	switch {
	case target.qual == qLocal, target.qual == qPosition, target.qual == qFragColor:
	case target.qual == qVarying && p.stage == gles.VertexShader:
	default:
		return errorf(name.line, "l-value required: %q is read-only", name.text)
	}
	if p.peek().text == "." {
		return errorf(p.peek().line, "assignment to swizzles is not supported")
	}
	if err := p.expect("="); err != nil {
		return err
	}
	if err := p.assign(target, name.line); err != nil {
		return err
	}
	return p.expect(";")
}

func (p *parser) assign(target *decl, line int) error {
	value, err := p.expr()
	if err != nil {
		return err
	}
	if value.glslType() != target.typ {
		return errorf(line, "cannot assign %s to %s %q", value.glslType(), target.typ, target.name)
	}
	p.out.body = append(p.out.body, assignment{target: target, value: value})
	return nil
}

var (
	positionDecl  = &decl{qual: qPosition, typ: tVec4, name: "gl_Position"}
	fragColorDecl = &decl{qual: qFragColor, typ: tVec4, name: "gl_FragColor"}
)

func (p *parser) lookup(name token) (*decl, error) {
	if d, ok := p.locals[name.text]; ok {
		return d, nil
	}
	if d, ok := p.globals[name.text]; ok {
		return d, nil
	}
	switch {
	case name.text == "gl_Position" && p.stage == gles.VertexShader:
		return positionDecl, nil
	case name.text == "gl_FragColor" && p.stage == gles.FragmentShader:
		return fragColorDecl, nil
	}
	return nil, errorf(name.line, "undeclared identifier %q", name.text)
}

func (p *parser) expr() (node, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.text == "+" || t.text == "-"; t = p.peek() {
		p.next()
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		if l, err = binary(t, l, r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (p *parser) term() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.text == "*" || t.text == "/"; t = p.peek() {
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		if l, err = binary(t, l, r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func binary(op token, l, r node) (node, error) {
	lt, rt := l.glslType(), r.glslType()
	if lt.isSampler() || rt.isSampler() {
		return nil, errorf(op.line, "wrong operand types for %q", op.text)
	}
	typ := lt
	switch {
	case lt == rt:
	case lt == tFloat:
		typ = rt
	case rt == tFloat:
	default:
		return nil, errorf(op.line, "wrong operand types for %q: %s and %s", op.text, lt, rt)
	}
	return binaryNode{op: op.text[0], typ: typ, l: l, r: r}, nil
}

func (p *parser) unary() (node, error) {
	t := p.peek()
	if t.text == "-" || t.text == "+" {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if x.glslType().isSampler() {
			return nil, errorf(t.line, "wrong operand type for unary %q", t.text)
		}
		if t.text == "+" {
			return x, nil
		}
		return negNode{x: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (node, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.accept(".") {
		field, err := p.ident()
		if err != nil {
			return nil, err
		}
		comps, err := swizzle(field, x.glslType())
		if err != nil {
			return nil, err
		}
		x = swizzleNode{x: x, comps: comps}
	}
	return x, nil
}

var swizzleSets = []string{"xyzw", "rgba", "stpq"}

func swizzle(field token, of glslType) ([]int, error) {
	if of.isSampler() || len(field.text) > 4 {
		return nil, errorf(field.line, "illegal vector field selection %q", field.text)
	}
	for _, set := range swizzleSets {
		if strings.IndexByte(set, field.text[0]) < 0 {
			continue
		}
		comps := make([]int, len(field.text))
		for i := range field.text {
			idx := strings.IndexByte(set, field.text[i])
			if idx < 0 || idx >= of.size() {
				return nil, errorf(field.line, "illegal vector field selection %q", field.text)
			}
			comps[i] = idx
		}
		return comps, nil
	}
	return nil, errorf(field.line, "illegal vector field selection %q", field.text)
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(strings.TrimRight(t.text, "fF"), 64)
		if err != nil {
			return nil, errorf(t.line, "invalid number %q", t.text)
		}
		return numberNode{v: v}, nil
	case tokIdent:
		if p.peek().text == "(" {
			p.next()
			var args []node
			if !p.accept(")") {
				for {
					arg, err := p.expr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.accept(")") {
						break
					}
					if err := p.expect(","); err != nil {
						return nil, err
					}
				}
			}
			return call(t, args)
		}
		d, err := p.lookup(t)
		if err != nil {
			return nil, err
		}
		return identNode{d: d}, nil
	case tokPunct:
		if t.text == "(" {
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			return x, p.expect(")")
		}
	}
	return nil, errorf(t.line, "syntax error: unexpected %q", t.text)
}

func call(fn token, args []node) (node, error) {
	switch fn.text {
	case "float", "vec2", "vec3", "vec4":
		typ := typeNames[fn.text]
		if len(args) == 0 {
			return nil, errorf(fn.line, "constructor %s needs arguments", fn.text)
		}
		total := 0
		for i, arg := range args {
			at := arg.glslType()
			if at.isSampler() {
				return nil, errorf(fn.line, "cannot construct %s from a sampler", fn.text)
			}
			if total >= typ.size() && i > 0 {
				return nil, errorf(fn.line, "too many arguments to constructor %s", fn.text)
			}
			total += at.size()
		}
		if total < typ.size() && !(len(args) == 1 && args[0].glslType() == tFloat) {
			return nil, errorf(fn.line, "not enough data provided for construction of %s", fn.text)
		}
		return callNode{fn: fn.text, typ: typ, args: args}, nil
	case "texture2D", "texture2DRect":
		want := tSampler2D
		if fn.text == "texture2DRect" {
			want = tSampler2DRect
		}
		if len(args) != 2 || args[0].glslType() != want || args[1].glslType() != tVec2 {
			return nil, errorf(fn.line, "no matching overload for %s", fn.text)
		}
		if _, ok := args[0].(identNode); !ok {
			return nil, errorf(fn.line, "sampler argument of %s must be a uniform", fn.text)
		}
		return callNode{fn: fn.text, typ: tVec4, args: args}, nil
	}
	return nil, errorf(fn.line, "no matching function %q", fn.text)
}
