package styles

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

// ExpandVars removes `$name: value;` definitions from a stylesheet and
// replaces every later `$name` with its value. Definitions may refer to
// earlier variables. Using an undefined variable is an error.
func ExpandVars(src string) (string, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return "", err
	}

	vars := make(map[string]string)
	var out strings.Builder
	statementStart := true

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if name, ok := varRef(tokens, i); ok {
			j := skipSpace(tokens, i+2)
			if statementStart && isChar(tokens, j, ":") {
				value, end, err := readValue(tokens, j+1, vars)
				if err != nil {
					return "", err
				}
				vars[name] = value
				i = end
				if isChar(tokens, end, "}") {
					// Leave the closing brace for the outer loop.
					i--
				}
				continue
			}

			value, defined := vars[name]
			if !defined {
				return "", fmt.Errorf("line %d: undefined variable $%s", tok.Line, name)
			}
			out.WriteString(value)
			i++
			statementStart = false
			continue
		}

		out.WriteString(tok.Value)

		switch {
		case tok.Type == scanner.TokenChar && (tok.Value == "{" || tok.Value == "}" || tok.Value == ";"):
			statementStart = true
		case tok.Type == scanner.TokenS || tok.Type == scanner.TokenComment:
		default:
			statementStart = false
		}
	}

	return out.String(), nil
}

func tokenize(src string) ([]*scanner.Token, error) {
	s := scanner.New(src)
	var tokens []*scanner.Token
	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			return tokens, nil
		case scanner.TokenError:
			return nil, fmt.Errorf("line %d: %s", tok.Line, tok.Value)
		}
		tokens = append(tokens, tok)
	}
}

// readValue collects a variable value up to `;` or `}` and returns the index
// of the terminating token.
func readValue(tokens []*scanner.Token, start int, vars map[string]string) (string, int, error) {
	var value strings.Builder
	i := start
	for ; i < len(tokens); i++ {
		if isChar(tokens, i, ";") || isChar(tokens, i, "}") {
			break
		}
		if name, ok := varRef(tokens, i); ok {
			v, defined := vars[name]
			if !defined {
				return "", i, fmt.Errorf("line %d: undefined variable $%s", tokens[i].Line, name)
			}
			value.WriteString(v)
			i++
			continue
		}
		value.WriteString(tokens[i].Value)
	}
	return strings.TrimSpace(value.String()), i, nil
}

// varRef reports whether tokens[i:] starts with `$ident`.
func varRef(tokens []*scanner.Token, i int) (string, bool) {
	if !isChar(tokens, i, "$") || i+1 >= len(tokens) {
		return "", false
	}
	next := tokens[i+1]
	if next.Type != scanner.TokenIdent {
		return "", false
	}
	return next.Value, true
}

func isChar(tokens []*scanner.Token, i int, c string) bool {
	return i < len(tokens) && tokens[i].Type == scanner.TokenChar && tokens[i].Value == c
}

func skipSpace(tokens []*scanner.Token, i int) int {
	for i < len(tokens) && tokens[i].Type == scanner.TokenS {
		i++
	}
	return i
}
