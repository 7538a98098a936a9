package expr

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIndent
	tokDedent
	tokName
	tokInt
	tokFloat
	tokString
	tokOp
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "newline"
	case tokIndent:
		return "indent"
	case tokDedent:
		return "dedent"
	case tokName:
		return "name"
	case tokInt, tokFloat:
		return "number"
	case tokString:
		return "string"
	default:
		return "operator"
	}
}

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	if t.kind == tokName || t.kind == tokOp {
		return fmt.Sprintf("%q", t.text)
	}
	return t.kind.String()
}

// keywords is the full reserved-word set. Words the language does not
// support are still reserved so they fail with a clear message.
var keywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "in": true,
	"not": true, "and": true, "or": true, "is": true,
	"True": true, "False": true, "None": true,
	"break": true, "continue": true, "pass": true,

	"while": true, "def": true, "lambda": true, "import": true, "from": true,
	"class": true, "return": true, "yield": true, "global": true,
	"nonlocal": true, "del": true, "try": true, "except": true,
	"finally": true, "raise": true, "with": true, "as": true,
	"assert": true, "async": true, "await": true,
}

var unsupportedKeywords = map[string]bool{
	"while": true, "def": true, "lambda": true, "import": true, "from": true,
	"class": true, "return": true, "yield": true, "global": true,
	"nonlocal": true, "del": true, "try": true, "except": true,
	"finally": true, "raise": true, "with": true, "as": true,
	"assert": true, "async": true, "await": true,
}

// Operators ordered longest first so the lexer can match greedily.
var operators = []string{
	"**=", "//=",
	"**", "//", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=",
	"|=", "&=", "->", ":=",
	"+", "-", "*", "/", "%", "<", ">", "=", "(", ")", "[", "]", "{", "}",
	",", ":", ".", ";", "|", "&", "^", "~", "@",
}
