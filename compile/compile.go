// Package compile implements a small Python-subset front end (lexer,
// recursive-descent parser, bytecode emitter) so the rest of this
// module can be exercised end to end without an external compiler.
// It is a consumer of vm's public instruction set, not part of the
// VM's purity guarantee.
package compile

import (
	"fmt"

	"github.com/chronovm/chronovm/vm"
)

// Compile lexes, parses, and generates bytecode for source, returning
// the program alongside a pc -> 1-based source line table (line 0
// marks compiler-internal instructions). Compile never panics: malformed
// source surfaces as a *SyntaxError, and any other panic during
// compilation is returned as a plain "internal error" error.
func Compile(source string) (program *vm.Program, sourceMap []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				return
			}
			err = fmt.Errorf("compile: internal error: %v", r)
		}
	}()

	stmts, perr := parseProgram(source)
	if perr != nil {
		return nil, nil, perr
	}
	program, sourceMap = compileProgram(stmts)
	return program, sourceMap, nil
}
