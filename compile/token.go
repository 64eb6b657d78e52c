package compile

import "fmt"

// Kind names a token class, mirroring the Kind-tag idiom the rest of
// this module uses instead of per-token types.
type Kind string

const (
	KindIdent   Kind = "Ident"
	KindNumber  Kind = "Number"
	KindString  Kind = "String"
	KindKeyword Kind = "Keyword"
	KindOp      Kind = "Op"
	KindNewline Kind = "Newline"
	KindEOF     Kind = "EOF"
)

var keywords = map[string]bool{
	"if": true, "else": true, "elif": true, "while": true, "for": true,
	"in": true, "range": true, "def": true, "return": true, "print": true,
	"and": true, "or": true, "not": true, "True": true, "False": true,
	"None": true, "pass": true,
}

// Token is one lexical unit. Indent is the leading-whitespace width of
// the logical line this token starts, and is only meaningful on the
// first token of a line — the parser consults it to find block
// boundaries instead of a separate INDENT/DEDENT stream.
type Token struct {
	Kind   Kind
	Value  string
	Line   int
	Indent int
}

func (t Token) String() string {
	if t.Value == "" {
		return string(t.Kind)
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
}

func (t Token) is(kind Kind, values ...string) bool {
	if t.Kind != kind {
		return false
	}
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == t.Value {
			return true
		}
	}
	return false
}
