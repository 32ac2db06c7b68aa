// Package argv splits raw extra-argument strings into tokens the way a
// shell lexer would, minus escapes and expansions: whitespace separates
// tokens except inside matching single or double quotes, and the quotes
// themselves are stripped. Tokens pass through to the child process
// verbatim otherwise.
package argv

import (
	"strings"
	"unicode"

	"github.com/daverage/TinyLLM/pkg/errors"
)

// Tokenize splits s on whitespace outside of quote pairs. An unterminated
// quote is an error, never silently dropped.
func Tokenize(s string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		seen   bool
	)

	flush := func() {
		if seen || cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
			seen = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0

				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			seen = true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}

	if quote != 0 {
		return nil, errors.ErrUnterminatedQuote
	}
	flush()

	return tokens, nil
}
