package wat

import (
	"github.com/wippyai/wasmbench/internal/wat/internal/encoder"
	"github.com/wippyai/wasmbench/internal/wat/internal/parser"
	"github.com/wippyai/wasmbench/internal/wat/internal/token"
)

// Compile parses WAT source and encodes it as a binary module.
func Compile(source string) ([]byte, error) {
	tokens := token.Tokenize(source)
	p := parser.New(tokens)
	mod, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return encoder.Encode(mod), nil
}
