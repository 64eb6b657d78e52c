package compile

import (
	"fmt"
	"strings"
)

// SyntaxError is returned by every stage of compile for malformed
// input, per SPEC_FULL.md §7.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

const eof rune = -1

// lexer scans source one rune at a time, grounded on parser/lexer's
// next/peek/backup/commit state-scanning idiom, adapted to also track
// the indentation of each logical line instead of expr's flat token
// stream.
type lexer struct {
	src           []rune
	start, end    int
	line          int
	atLineHead    bool
	pendingIndent int
	tokens        []Token
	err           *SyntaxError
}

func lex(source string) ([]Token, error) {
	l := &lexer{src: []rune(source), line: 1, atLineHead: true}
	for l.err == nil && l.peek() != eof {
		l.scanOne()
	}
	if l.err != nil {
		return nil, l.err
	}
	if !l.atLineHead {
		l.emit(Token{Kind: KindNewline, Line: l.line, Indent: l.pendingIndent})
	}
	l.emit(Token{Kind: KindEOF, Line: l.line})
	return l.tokens, nil
}

func (l *lexer) next() rune {
	if l.end >= len(l.src) {
		l.end++
		return eof
	}
	r := l.src[l.end]
	l.end++
	return r
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) backup() { l.end-- }

func (l *lexer) commit() {
	l.start = l.end
}

func (l *lexer) value() string { return string(l.src[l.start:l.end]) }

func (l *lexer) emit(t Token) {
	l.tokens = append(l.tokens, t)
	l.atLineHead = t.Kind == KindNewline
}

func (l *lexer) fail(msg string) {
	if l.err == nil {
		l.err = &SyntaxError{Line: l.line, Message: msg}
	}
}

func (l *lexer) scanOne() {
	if l.atLineHead {
		indent := l.scanIndent()
		if l.peek() == eof || l.peek() == '\n' || l.peek() == '#' {
			l.skipToNewline()
			return
		}
		l.pendingIndent = indent
		l.atLineHead = false
	}

	r := l.next()
	switch {
	case r == ' ' || r == '\t':
		l.commit()
	case r == '\n':
		l.commit()
		l.line++
		l.emit(Token{Kind: KindNewline, Line: l.line - 1, Indent: l.pendingIndent})
	case r == '#':
		l.skipToNewline()
	case r == '"' || r == '\'':
		l.scanString(r)
	case r >= '0' && r <= '9':
		l.scanNumber()
	case isIdentStart(r):
		l.scanIdent()
	default:
		l.scanOperator(r)
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *lexer) scanIndent() int {
	n := 0
	for {
		r := l.peek()
		if r == ' ' {
			n++
			l.next()
			continue
		}
		if r == '\t' {
			n += 8
			l.next()
			continue
		}
		break
	}
	l.commit()
	return n
}

func (l *lexer) skipToNewline() {
	for l.peek() != '\n' && l.peek() != eof {
		l.next()
	}
	l.commit()
	if l.peek() == '\n' {
		l.next()
		l.commit()
		l.line++
		l.emit(Token{Kind: KindNewline, Line: l.line - 1, Indent: l.pendingIndent})
	}
}

func (l *lexer) scanString(quote rune) {
	startLine := l.line
	l.commit()
	var b strings.Builder
	for {
		r := l.next()
		if r == eof {
			l.fail("unterminated string literal")
			return
		}
		if r == quote {
			break
		}
		if r == '\\' {
			esc := l.next()
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(esc)
			}
			continue
		}
		b.WriteRune(r)
	}
	l.commit()
	l.emit(Token{Kind: KindString, Value: b.String(), Line: startLine, Indent: l.pendingIndent})
}

func (l *lexer) scanNumber() {
	startLine := l.line
	for isDigit(l.peek()) {
		l.next()
	}
	if l.peek() == '.' {
		l.next()
		for isDigit(l.peek()) {
			l.next()
		}
	}
	val := l.value()
	l.commit()
	l.emit(Token{Kind: KindNumber, Value: val, Line: startLine, Indent: l.pendingIndent})
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (l *lexer) scanIdent() {
	startLine := l.line
	for isIdentCont(l.peek()) {
		l.next()
	}
	val := l.value()
	l.commit()
	kind := KindIdent
	if keywords[val] {
		kind = KindKeyword
	}
	l.emit(Token{Kind: kind, Value: val, Line: startLine, Indent: l.pendingIndent})
}

var twoCharOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true,
}

func (l *lexer) scanOperator(r rune) {
	startLine := l.line
	one := string(r)
	if next := l.peek(); twoCharOps[one+string(next)] {
		l.next()
		l.commit()
		l.emit(Token{Kind: KindOp, Value: one + string(next), Line: startLine, Indent: l.pendingIndent})
		return
	}
	switch r {
	case '+', '-', '*', '/', '%', '<', '>', '=', '(', ')', '[', ']', '{', '}', ',', ':', '.':
		l.commit()
		l.emit(Token{Kind: KindOp, Value: one, Line: startLine, Indent: l.pendingIndent})
	default:
		l.fail(fmt.Sprintf("unexpected character %q", r))
	}
}
