package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type lexer struct {
	src     []rune
	pos     int
	line    int
	col     int
	depth   int
	indents []int
	toks    []token
}

// tokenize turns program text into a token stream with explicit NEWLINE,
// INDENT and DEDENT tokens. Newlines inside brackets are ignored and a
// backslash at the end of a line joins it with the next.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: []rune(src), line: 1, col: 1, indents: []int{0}}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.toks, nil
}

func (lx *lexer) errorf(format string, args ...any) error {
	return &SyntaxError{Line: lx.line, Col: lx.col, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peek(off int) rune {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

func (lx *lexer) eof() bool { return lx.pos >= len(lx.src) }

func (lx *lexer) advance() rune {
	r := lx.src[lx.pos]
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) emit(kind tokenKind, text string, line, col int) {
	lx.toks = append(lx.toks, token{kind: kind, text: text, line: line, col: col})
}

func (lx *lexer) lastIsNewline() bool {
	return len(lx.toks) == 0 || lx.toks[len(lx.toks)-1].kind == tokNewline ||
		lx.toks[len(lx.toks)-1].kind == tokDedent || lx.toks[len(lx.toks)-1].kind == tokIndent
}

func (lx *lexer) run() error {
	atLineStart := true
	for {
		if atLineStart && lx.depth == 0 {
			blank, err := lx.indentation()
			if err != nil {
				return err
			}
			if lx.eof() {
				break
			}
			if blank {
				continue
			}
			atLineStart = false
		}
		if lx.eof() {
			break
		}

		r := lx.peek(0)
		switch {
		case r == '\n':
			line, col := lx.line, lx.col
			lx.advance()
			if lx.depth == 0 {
				if !lx.lastIsNewline() {
					lx.emit(tokNewline, "", line, col)
				}
				atLineStart = true
			}
		case r == ' ' || r == '\t' || r == '\r' || r == '\f':
			lx.advance()
		case r == '#':
			for !lx.eof() && lx.peek(0) != '\n' {
				lx.advance()
			}
		case r == '\\':
			if lx.peek(1) == '\n' {
				lx.advance()
				lx.advance()
				continue
			}
			if lx.peek(1) == '\r' && lx.peek(2) == '\n' {
				lx.advance()
				lx.advance()
				lx.advance()
				continue
			}
			return lx.errorf("unexpected character after line continuation")
		case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(lx.peek(1))):
			if err := lx.number(); err != nil {
				return err
			}
		case r == '\'' || r == '"':
			if err := lx.str(false); err != nil {
				return err
			}
		case r == '_' || unicode.IsLetter(r):
			if err := lx.name(); err != nil {
				return err
			}
		default:
			if err := lx.operator(); err != nil {
				return err
			}
		}
	}

	if !lx.lastIsNewline() {
		lx.emit(tokNewline, "", lx.line, lx.col)
	}
	if lx.depth > 0 {
		return lx.errorf("unexpected end of input inside brackets")
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.emit(tokDedent, "", lx.line, lx.col)
	}
	lx.emit(tokEOF, "", lx.line, lx.col)
	return nil
}

// indentation consumes leading whitespace of a logical line and emits
// INDENT or DEDENT tokens. It reports blank and comment-only lines so the
// caller can skip them.
func (lx *lexer) indentation() (bool, error) {
	width := 0
scan:
	for !lx.eof() {
		switch lx.peek(0) {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		case '\f', '\r':
		default:
			break scan
		}
		lx.advance()
	}
	if lx.eof() {
		return true, nil
	}
	switch lx.peek(0) {
	case '\n':
		lx.advance()
		return true, nil
	case '#':
		for !lx.eof() && lx.peek(0) != '\n' {
			lx.advance()
		}
		return true, nil
	}

	top := lx.indents[len(lx.indents)-1]
	switch {
	case width > top:
		lx.indents = append(lx.indents, width)
		lx.emit(tokIndent, "", lx.line, lx.col)
	case width < top:
		for width < lx.indents[len(lx.indents)-1] {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.emit(tokDedent, "", lx.line, lx.col)
		}
		if width != lx.indents[len(lx.indents)-1] {
			return false, lx.errorf("unindent does not match any outer indentation level")
		}
	}
	return false, nil
}

func (lx *lexer) number() error {
	line, col := lx.line, lx.col
	var sb strings.Builder
	isFloat := false
	digits := func() {
		for !lx.eof() && (unicode.IsDigit(lx.peek(0)) || lx.peek(0) == '_') {
			if r := lx.advance(); r != '_' {
				sb.WriteRune(r)
			}
		}
	}
	digits()
	if lx.peek(0) == '.' {
		isFloat = true
		sb.WriteRune(lx.advance())
		digits()
	}
	if r := lx.peek(0); r == 'e' || r == 'E' {
		next := lx.peek(1)
		if unicode.IsDigit(next) || ((next == '+' || next == '-') && unicode.IsDigit(lx.peek(2))) {
			isFloat = true
			sb.WriteRune(lx.advance())
			if next == '+' || next == '-' {
				sb.WriteRune(lx.advance())
			}
			digits()
		}
	}
	if r := lx.peek(0); r == '_' || unicode.IsLetter(r) {
		return lx.errorf("invalid number literal")
	}
	kind := tokInt
	if isFloat {
		kind = tokFloat
	}
	lx.emit(kind, sb.String(), line, col)
	return nil
}

func (lx *lexer) name() error {
	line, col := lx.line, lx.col
	start := lx.pos
	for !lx.eof() {
		r := lx.peek(0)
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		lx.advance()
	}
	word := string(lx.src[start:lx.pos])

	if q := lx.peek(0); q == '\'' || q == '"' {
		switch strings.ToLower(word) {
		case "r":
			return lx.strAt(true, line, col)
		case "u":
			return lx.strAt(false, line, col)
		case "b", "f", "rb", "br", "fr", "rf":
			return lx.errorf("%s-prefixed strings are not supported", word)
		}
	}
	lx.emit(tokName, word, line, col)
	return nil
}

func (lx *lexer) str(raw bool) error { return lx.strAt(raw, lx.line, lx.col) }

func (lx *lexer) strAt(raw bool, line, col int) error {
	quote := lx.advance()
	triple := false
	if lx.peek(0) == quote && lx.peek(1) == quote {
		lx.advance()
		lx.advance()
		triple = true
	}

	var sb strings.Builder
	for {
		if lx.eof() {
			return &SyntaxError{Line: line, Col: col, Msg: "unterminated string literal"}
		}
		r := lx.peek(0)
		if r == quote {
			if !triple {
				lx.advance()
				break
			}
			if lx.peek(1) == quote && lx.peek(2) == quote {
				lx.advance()
				lx.advance()
				lx.advance()
				break
			}
		}
		if r == '\n' && !triple {
			return &SyntaxError{Line: line, Col: col, Msg: "unterminated string literal"}
		}
		if r == '\\' && !raw {
			lx.advance()
			if lx.eof() {
				return &SyntaxError{Line: line, Col: col, Msg: "unterminated string literal"}
			}
			if err := lx.escape(&sb); err != nil {
				return err
			}
			continue
		}
		if r == '\\' && raw {
			sb.WriteRune(lx.advance())
			if !lx.eof() {
				sb.WriteRune(lx.advance())
			}
			continue
		}
		sb.WriteRune(lx.advance())
	}
	lx.emit(tokString, sb.String(), line, col)
	return nil
}

func (lx *lexer) escape(sb *strings.Builder) error {
	r := lx.advance()
	switch r {
	case '\n':
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case '\\', '\'', '"':
		sb.WriteRune(r)
	case 'x', 'u', 'U':
		n := map[rune]int{'x': 2, 'u': 4, 'U': 8}[r]
		v := 0
		for i := 0; i < n; i++ {
			if lx.eof() {
				return lx.errorf("truncated \\%c escape", r)
			}
			d := hexDigit(lx.advance())
			if d < 0 {
				return lx.errorf("invalid \\%c escape", r)
			}
			v = v*16 + d
		}
		if v > unicode.MaxRune {
			return lx.errorf("invalid \\%c escape", r)
		}
		sb.WriteRune(rune(v))
	default:
		sb.WriteByte('\\')
		sb.WriteRune(r)
	}
	return nil
}

func hexDigit(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}

func (lx *lexer) operator() error {
	line, col := lx.line, lx.col
	for _, op := range operators {
		n := len(op)
		if lx.pos+n > len(lx.src) || string(lx.src[lx.pos:lx.pos+n]) != op {
			continue
		}
		for i := 0; i < n; i++ {
			lx.advance()
		}
		switch op {
		case "(", "[", "{":
			lx.depth++
		case ")", "]", "}":
			if lx.depth == 0 {
				return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf("unmatched %q", op)}
			}
			lx.depth--
		}
		lx.emit(tokOp, op, line, col)
		return nil
	}
	return lx.errorf("unexpected character %q", lx.peek(0))
}

// dedent strips the whitespace prefix shared by every non-blank line so
// programs embedded with a uniform indent still parse.
func dedent(src string) string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	prefix := ""
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		ws := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first {
			prefix, first = ws, false
			continue
		}
		for !strings.HasPrefix(ws, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return strings.Join(lines, "\n")
	}
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, prefix)
	}
	return strings.Join(lines, "\n")
}
