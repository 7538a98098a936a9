package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// maxParseDepth bounds expression and block nesting.
const maxParseDepth = 100

type parser struct {
	toks  []token
	pos   int
	depth int
	loops int
}

// parse turns program text into a statement list.
func parse(src string) ([]stmt, error) {
	toks, err := tokenize(dedent(src))
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.file()
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) peek() token { return p.toks[min(p.pos+1, len(p.toks)-1)] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isOp(s string) bool {
	t := p.cur()
	return t.kind == tokOp && t.text == s
}

func (p *parser) isKw(s string) bool {
	t := p.cur()
	return t.kind == tokName && t.text == s
}

func (p *parser) acceptOp(s string) bool {
	if p.isOp(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectOp(s string) error {
	if !p.acceptOp(s) {
		return p.errorf(p.cur(), "expected %q, found %s", s, p.cur())
	}
	return nil
}

func (p *parser) expectKw(s string) error {
	if !p.isKw(s) {
		return p.errorf(p.cur(), "expected %q, found %s", s, p.cur())
	}
	p.next()
	return nil
}

func (p *parser) expect(kind tokenKind) error {
	if p.cur().kind != kind {
		return p.errorf(p.cur(), "expected %s, found %s", kind, p.cur())
	}
	p.next()
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxParseDepth {
		return p.errorf(p.cur(), "nesting deeper than %d levels", maxParseDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) file() ([]stmt, error) {
	var out []stmt
	for p.cur().kind != tokEOF {
		if p.cur().kind == tokNewline {
			p.next()
			continue
		}
		ss, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, ss...)
	}
	return out, nil
}

func (p *parser) statement() ([]stmt, error) {
	t := p.cur()
	if t.kind == tokIndent {
		return nil, p.errorf(t, "unexpected indent")
	}
	if t.kind == tokName {
		switch {
		case t.text == "if":
			s, err := p.ifStatement()
			return []stmt{s}, err
		case t.text == "for":
			s, err := p.forStatement()
			return []stmt{s}, err
		case t.text == "else" || t.text == "elif":
			return nil, p.errorf(t, "%q without matching if", t.text)
		case unsupportedKeywords[t.text]:
			return nil, p.errorf(t, "%q is not supported", t.text)
		}
	}
	return p.simpleStatements()
}

func (p *parser) simpleStatements() ([]stmt, error) {
	var out []stmt
	for {
		s, err := p.smallStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if !p.acceptOp(";") {
			break
		}
		if p.cur().kind == tokNewline {
			break
		}
	}
	if err := p.expect(tokNewline); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) smallStatement() (stmt, error) {
	t := p.cur()
	if t.kind == tokName {
		switch t.text {
		case "pass":
			p.next()
			return &passStmt{at{t.line}}, nil
		case "break", "continue":
			if p.loops == 0 {
				return nil, p.errorf(t, "%q outside loop", t.text)
			}
			p.next()
			if t.text == "break" {
				return &breakStmt{at{t.line}}, nil
			}
			return &continueStmt{at{t.line}}, nil
		}
		if unsupportedKeywords[t.text] {
			return nil, p.errorf(t, "%q is not supported", t.text)
		}
	}

	lhs, err := p.testList()
	if err != nil {
		return nil, err
	}

	if op := p.cur(); op.kind == tokOp && strings.HasSuffix(op.text, "=") && len(op.text) > 1 &&
		op.text != "==" && op.text != "!=" && op.text != "<=" && op.text != ">=" {
		switch op.text {
		case "+=", "-=", "*=", "/=", "//=", "%=", "|=", "&=", "**=":
		default:
			return nil, p.errorf(op, "operator %q is not supported", op.text)
		}
		if err := checkTarget(lhs, false); err != nil {
			return nil, p.errorf(op, "%v", err)
		}
		p.next()
		val, err := p.testList()
		if err != nil {
			return nil, err
		}
		return &augAssignStmt{at: at{t.line}, target: lhs, op: strings.TrimSuffix(op.text, "="), value: val}, nil
	}

	if !p.isOp("=") {
		return &exprStmt{at{t.line}, lhs}, nil
	}

	targets := []expr{lhs}
	var val expr
	for p.acceptOp("=") {
		v, err := p.testList()
		if err != nil {
			return nil, err
		}
		if p.isOp("=") {
			targets = append(targets, v)
			continue
		}
		val = v
	}
	for _, tg := range targets {
		if err := checkTarget(tg, true); err != nil {
			return nil, p.errorf(t, "%v", err)
		}
	}
	return &assignStmt{at: at{t.line}, targets: targets, value: val}, nil
}

// checkTarget reports whether e can be assigned to. Augmented assignment
// does not allow unpacking.
func checkTarget(e expr, unpack bool) error {
	switch x := e.(type) {
	case *nameExpr:
		if keywords[x.ident] {
			return fmt.Errorf("cannot assign to keyword %q", x.ident)
		}
		return nil
	case *indexExpr:
		return nil
	case *tupleExpr:
		if !unpack {
			return fmt.Errorf("illegal target for augmented assignment")
		}
		for _, el := range x.elts {
			if err := checkTarget(el, true); err != nil {
				return err
			}
		}
		return nil
	case *listExpr:
		if !unpack {
			return fmt.Errorf("illegal target for augmented assignment")
		}
		for _, el := range x.elts {
			if err := checkTarget(el, true); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot assign to expression")
}

func (p *parser) suite() ([]stmt, error) {
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	if p.cur().kind != tokNewline {
		return p.simpleStatements()
	}
	p.next()
	if p.cur().kind != tokIndent {
		return nil, p.errorf(p.cur(), "expected an indented block")
	}
	p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	var body []stmt
	for p.cur().kind != tokDedent && p.cur().kind != tokEOF {
		if p.cur().kind == tokNewline {
			p.next()
			continue
		}
		ss, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, ss...)
	}
	if p.cur().kind == tokDedent {
		p.next()
	}
	return body, nil
}

func (p *parser) ifStatement() (stmt, error) {
	t := p.next()
	cond, err := p.test()
	if err != nil {
		return nil, err
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	s := &ifStmt{at: at{t.line}, cond: cond, body: body}
	switch {
	case p.isKw("elif"):
		nested, err := p.ifStatement()
		if err != nil {
			return nil, err
		}
		s.els = []stmt{nested}
	case p.isKw("else"):
		p.next()
		if s.els, err = p.suite(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) forStatement() (stmt, error) {
	t := p.next()
	target, err := p.targetList()
	if err != nil {
		return nil, err
	}
	if err := checkTarget(target, true); err != nil {
		return nil, p.errorf(t, "%v", err)
	}
	if err := p.expectKw("in"); err != nil {
		return nil, err
	}
	iter, err := p.testList()
	if err != nil {
		return nil, err
	}
	p.loops++
	body, err := p.suite()
	p.loops--
	if err != nil {
		return nil, err
	}
	if p.isKw("else") {
		return nil, p.errorf(p.cur(), "for-else is not supported")
	}
	return &forStmt{at: at{t.line}, target: target, iter: iter, body: body}, nil
}

// targetList parses loop targets below the comparison level so that the
// following "in" is not taken as a membership test.
func (p *parser) targetList() (expr, error) {
	line := p.cur().line
	first, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []expr{first}
	for p.acceptOp(",") {
		if p.isKw("in") {
			break
		}
		e, err := p.bitOr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return &tupleExpr{at{line}, elts}, nil
}

// startsExpr reports whether the current token can begin an expression.
func (p *parser) startsExpr() bool {
	t := p.cur()
	switch t.kind {
	case tokName:
		return !keywords[t.text] || t.text == "not" || t.text == "True" ||
			t.text == "False" || t.text == "None" || t.text == "lambda"
	case tokInt, tokFloat, tokString:
		return true
	case tokOp:
		switch t.text {
		case "(", "[", "{", "-", "+", "~":
			return true
		}
	}
	return false
}

func (p *parser) testList() (expr, error) {
	line := p.cur().line
	first, err := p.test()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []expr{first}
	for p.acceptOp(",") {
		if !p.startsExpr() {
			break
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return &tupleExpr{at{line}, elts}, nil
}

func (p *parser) test() (expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.isKw("lambda") {
		return nil, p.errorf(p.cur(), "%q is not supported", "lambda")
	}
	line := p.cur().line
	x, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if !p.isKw("if") {
		return x, nil
	}
	p.next()
	cond, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if err := p.expectKw("else"); err != nil {
		return nil, err
	}
	els, err := p.test()
	if err != nil {
		return nil, err
	}
	return &condExpr{at: at{line}, cond: cond, then: x, els: els}, nil
}

func (p *parser) orTest() (expr, error) {
	x, err := p.andTest()
	if err != nil {
		return nil, err
	}
	for p.isKw("or") {
		t := p.next()
		y, err := p.andTest()
		if err != nil {
			return nil, err
		}
		x = &boolExpr{at: at{t.line}, op: "or", l: x, r: y}
	}
	return x, nil
}

func (p *parser) andTest() (expr, error) {
	x, err := p.notTest()
	if err != nil {
		return nil, err
	}
	for p.isKw("and") {
		t := p.next()
		y, err := p.notTest()
		if err != nil {
			return nil, err
		}
		x = &boolExpr{at: at{t.line}, op: "and", l: x, r: y}
	}
	return x, nil
}

func (p *parser) notTest() (expr, error) {
	if !p.isKw("not") {
		return p.comparison()
	}
	t := p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	x, err := p.notTest()
	if err != nil {
		return nil, err
	}
	return &unaryExpr{at: at{t.line}, op: "not", x: x}, nil
}

func (p *parser) compareOp() (string, bool) {
	t := p.cur()
	switch {
	case t.kind == tokOp:
		switch t.text {
		case "<", ">", "==", "!=", "<=", ">=":
			p.next()
			return t.text, true
		}
	case t.kind == tokName && t.text == "in":
		p.next()
		return "in", true
	case t.kind == tokName && t.text == "not" && p.peek().kind == tokName && p.peek().text == "in":
		p.next()
		p.next()
		return "not in", true
	case t.kind == tokName && t.text == "is":
		p.next()
		if p.isKw("not") {
			p.next()
			return "is not", true
		}
		return "is", true
	}
	return "", false
}

func (p *parser) comparison() (expr, error) {
	line := p.cur().line
	first, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	var ops []string
	var rest []expr
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		y, err := p.bitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		rest = append(rest, y)
	}
	if len(ops) == 0 {
		return first, nil
	}
	return &compareExpr{at: at{line}, first: first, ops: ops, rest: rest}, nil
}

// binaryLevel parses a left-associative chain of the given operators.
func (p *parser) binaryLevel(ops []string, sub func() (expr, error)) (expr, error) {
	x, err := sub()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind != tokOp || !hasOp(ops, t.text) {
			return x, nil
		}
		p.next()
		y, err := sub()
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{at: at{t.line}, op: t.text, l: x, r: y}
	}
}

func hasOp(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (p *parser) bitOr() (expr, error)  { return p.binaryLevel([]string{"|"}, p.bitXor) }
func (p *parser) bitXor() (expr, error) { return p.binaryLevel([]string{"^"}, p.bitAnd) }
func (p *parser) bitAnd() (expr, error) { return p.binaryLevel([]string{"&"}, p.arith) }
func (p *parser) arith() (expr, error)  { return p.binaryLevel([]string{"+", "-"}, p.term) }
func (p *parser) term() (expr, error) {
	return p.binaryLevel([]string{"*", "/", "//", "%"}, p.factor)
}

func (p *parser) factor() (expr, error) {
	t := p.cur()
	if t.kind == tokOp && (t.text == "-" || t.text == "+" || t.text == "~") {
		p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{at: at{t.line}, op: t.text, x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (expr, error) {
	x, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return x, nil
	}
	t := p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	y, err := p.factor()
	if err != nil {
		return nil, err
	}
	return &binaryExpr{at: at{t.line}, op: "**", l: x, r: y}, nil
}

func (p *parser) postfix() (expr, error) {
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		switch {
		case p.isOp("("):
			p.next()
			args, kwargs, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			x = &callExpr{at: at{t.line}, fn: x, args: args, kwargs: kwargs}
		case p.isOp("["):
			p.next()
			if x, err = p.subscript(x, t.line); err != nil {
				return nil, err
			}
		case p.isOp("."):
			p.next()
			name := p.cur()
			if name.kind != tokName {
				return nil, p.errorf(name, "expected attribute name, found %s", name)
			}
			if strings.HasPrefix(name.text, "_") {
				return nil, p.errorf(name, "access to %q is forbidden", name.text)
			}
			p.next()
			if !p.isOp("(") {
				return nil, p.errorf(name, "attribute %q can only be called", name.text)
			}
			p.next()
			args, kwargs, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			if len(kwargs) > 0 {
				return nil, p.errorf(name, "method %q takes no keyword arguments", name.text)
			}
			x = &methodExpr{at: at{t.line}, recv: x, method: name.text, args: args}
		default:
			return x, nil
		}
	}
}

func (p *parser) callArgs() ([]expr, []keywordArg, error) {
	var args []expr
	var kwargs []keywordArg
	for !p.isOp(")") {
		if p.isOp("*") || p.isOp("**") {
			return nil, nil, p.errorf(p.cur(), "argument unpacking is not supported")
		}
		if p.cur().kind == tokName && p.peek().kind == tokOp && p.peek().text == "=" {
			name := p.next()
			p.next()
			v, err := p.test()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, keywordArg{name: name.text, val: v})
		} else {
			if len(kwargs) > 0 {
				return nil, nil, p.errorf(p.cur(), "positional argument follows keyword argument")
			}
			line := p.cur().line
			v, err := p.test()
			if err != nil {
				return nil, nil, err
			}
			if p.isKw("for") {
				gen, err := p.comprehensionTail(compGen, v, nil, line)
				if err != nil {
					return nil, nil, err
				}
				v = gen
				if !p.isOp(")") || len(args) > 0 {
					return nil, nil, p.errorf(p.cur(), "generator expression must be the only argument")
				}
			}
			args = append(args, v)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, nil, err
	}
	return args, kwargs, nil
}

func (p *parser) subscript(x expr, line int) (expr, error) {
	var lo, hi, stride expr
	var err error
	if !p.isOp(":") {
		if lo, err = p.test(); err != nil {
			return nil, err
		}
		if p.acceptOp("]") {
			return &indexExpr{at: at{line}, x: x, index: lo}, nil
		}
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	if !p.isOp("]") && !p.isOp(":") {
		if hi, err = p.test(); err != nil {
			return nil, err
		}
	}
	if p.acceptOp(":") && !p.isOp("]") {
		if stride, err = p.test(); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return &sliceExpr{at: at{line}, x: x, lo: lo, hi: hi, stride: stride}, nil
}

func (p *parser) comprehensionTail(kind compKind, elt, key expr, line int) (expr, error) {
	c := &comprehension{at: at{line}, kind: kind, elt: elt, key: key}
	for p.isKw("for") {
		p.next()
		target, err := p.targetList()
		if err != nil {
			return nil, err
		}
		if err := checkTarget(target, true); err != nil {
			return nil, p.errorf(p.cur(), "%v", err)
		}
		if err := p.expectKw("in"); err != nil {
			return nil, err
		}
		iter, err := p.orTest()
		if err != nil {
			return nil, err
		}
		clause := compClause{target: target, iter: iter}
		for p.isKw("if") {
			p.next()
			cond, err := p.orTest()
			if err != nil {
				return nil, err
			}
			clause.ifs = append(clause.ifs, cond)
		}
		c.clauses = append(c.clauses, clause)
	}
	return c, nil
}

func (p *parser) atom() (expr, error) {
	t := p.cur()
	switch t.kind {
	case tokName:
		switch t.text {
		case "True":
			p.next()
			return &constExpr{at{t.line}, true}, nil
		case "False":
			p.next()
			return &constExpr{at{t.line}, false}, nil
		case "None":
			p.next()
			return &constExpr{at{t.line}, nil}, nil
		}
		if keywords[t.text] {
			if unsupportedKeywords[t.text] {
				return nil, p.errorf(t, "%q is not supported", t.text)
			}
			return nil, p.errorf(t, "unexpected %q", t.text)
		}
		p.next()
		return &nameExpr{at{t.line}, t.text}, nil
	case tokInt:
		p.next()
		if n, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return &constExpr{at{t.line}, n}, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number %q", t.text)
		}
		return &constExpr{at{t.line}, f}, nil
	case tokFloat:
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number %q", t.text)
		}
		return &constExpr{at{t.line}, f}, nil
	case tokString:
		var sb strings.Builder
		for p.cur().kind == tokString {
			sb.WriteString(p.next().text)
		}
		return &constExpr{at{t.line}, sb.String()}, nil
	case tokOp:
		switch t.text {
		case "(":
			p.next()
			return p.parenthesized(t.line)
		case "[":
			p.next()
			return p.listDisplay(t.line)
		case "{":
			p.next()
			return p.braceDisplay(t.line)
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

func (p *parser) parenthesized(line int) (expr, error) {
	if p.acceptOp(")") {
		return &tupleExpr{at: at{line}}, nil
	}
	first, err := p.test()
	if err != nil {
		return nil, err
	}
	if p.isKw("for") {
		gen, err := p.comprehensionTail(compGen, first, nil, line)
		if err != nil {
			return nil, err
		}
		return gen, p.expectOp(")")
	}
	if p.acceptOp(")") {
		return first, nil
	}
	elts := []expr{first}
	for p.acceptOp(",") {
		if p.isOp(")") {
			break
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return &tupleExpr{at{line}, elts}, nil
}

func (p *parser) listDisplay(line int) (expr, error) {
	if p.acceptOp("]") {
		return &listExpr{at: at{line}}, nil
	}
	first, err := p.test()
	if err != nil {
		return nil, err
	}
	if p.isKw("for") {
		c, err := p.comprehensionTail(compList, first, nil, line)
		if err != nil {
			return nil, err
		}
		return c, p.expectOp("]")
	}
	elts := []expr{first}
	for p.acceptOp(",") {
		if p.isOp("]") {
			break
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return &listExpr{at{line}, elts}, nil
}

// braceDisplay parses dict and set displays and their comprehensions.
// An empty pair of braces is a dict.
func (p *parser) braceDisplay(line int) (expr, error) {
	if p.acceptOp("}") {
		return &dictExpr{at: at{line}}, nil
	}
	first, err := p.test()
	if err != nil {
		return nil, err
	}

	if p.acceptOp(":") {
		val, err := p.test()
		if err != nil {
			return nil, err
		}
		if p.isKw("for") {
			c, err := p.comprehensionTail(compDict, val, first, line)
			if err != nil {
				return nil, err
			}
			return c, p.expectOp("}")
		}
		d := &dictExpr{at: at{line}, keys: []expr{first}, vals: []expr{val}}
		for p.acceptOp(",") {
			if p.isOp("}") {
				break
			}
			k, err := p.test()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(":"); err != nil {
				return nil, err
			}
			v, err := p.test()
			if err != nil {
				return nil, err
			}
			d.keys = append(d.keys, k)
			d.vals = append(d.vals, v)
		}
		return d, p.expectOp("}")
	}

	if p.isKw("for") {
		c, err := p.comprehensionTail(compSet, first, nil, line)
		if err != nil {
			return nil, err
		}
		return c, p.expectOp("}")
	}
	elts := []expr{first}
	for p.acceptOp(",") {
		if p.isOp("}") {
			break
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return &setExpr{at{line}, elts}, nil
}
