package styles

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

// maxMixinDepth bounds mixins that include other mixins.
const maxMixinDepth = 16

type mixin struct {
	name     string
	params   []string
	defaults map[string]string
	body     []*scanner.Token
}

// ExpandMixins removes `@define-mixin name $a, $b: default { ... }` blocks
// and replaces every `@mixin name x, y;` with the block's declarations.
// Parameters are referenced as $a or $(a) inside the block. Other $names
// are left alone for ExpandVars. A mixin must be defined before it is
// included.
func ExpandMixins(src string) (string, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return "", err
	}
	return expandMixins(tokens, make(map[string]*mixin), 0)
}

func expandMixins(tokens []*scanner.Token, mixins map[string]*mixin, depth int) (string, error) {
	if depth > maxMixinDepth {
		return "", fmt.Errorf("mixins nested more than %d deep", maxMixinDepth)
	}

	var out strings.Builder
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type != scanner.TokenAtKeyword {
			out.WriteString(tok.Value)
			continue
		}

		switch tok.Value {
		case "@define-mixin":
			m, end, err := readMixin(tokens, i+1)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", tok.Line, err)
			}
			mixins[m.name] = m
			i = skipSpace(tokens, end+1) - 1
		case "@mixin":
			name, args, end, err := readInclude(tokens, i+1)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", tok.Line, err)
			}
			m, ok := mixins[name]
			if !ok {
				return "", fmt.Errorf("line %d: undefined mixin %s", tok.Line, name)
			}
			body, err := m.apply(args)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", tok.Line, err)
			}
			inner, err := tokenize(body)
			if err != nil {
				return "", err
			}
			expanded, err := expandMixins(inner, mixins, depth+1)
			if err != nil {
				return "", err
			}
			out.WriteString(strings.TrimSpace(expanded))
			i = end
		default:
			out.WriteString(tok.Value)
		}
	}
	return out.String(), nil
}

// readMixin parses a definition starting after @define-mixin and returns
// the index of its closing brace.
func readMixin(tokens []*scanner.Token, start int) (*mixin, int, error) {
	i := skipSpace(tokens, start)
	if i >= len(tokens) || tokens[i].Type != scanner.TokenIdent {
		return nil, i, fmt.Errorf("@define-mixin needs a name")
	}
	m := &mixin{name: tokens[i].Value, defaults: make(map[string]string)}

	open := i + 1
	for open < len(tokens) && !isChar(tokens, open, "{") {
		open++
	}
	if open == len(tokens) {
		return nil, open, fmt.Errorf("mixin %s has no body", m.name)
	}

	for _, p := range splitArgs(tokens[i+1 : open]) {
		if len(p) == 0 {
			continue
		}
		name, ok := varRef(p, 0)
		if !ok {
			return nil, open, fmt.Errorf("mixin %s: parameter %q must start with $", m.name, joinTokens(p))
		}
		m.params = append(m.params, name)
		if j := skipSpace(p, 2); isChar(p, j, ":") {
			m.defaults[name] = strings.TrimSpace(joinTokens(p[j+1:]))
		}
	}

	depth := 0
	for end := open; end < len(tokens); end++ {
		switch {
		case isChar(tokens, end, "{"):
			depth++
		case isChar(tokens, end, "}"):
			depth--
			if depth == 0 {
				m.body = tokens[open+1 : end]
				return m, end, nil
			}
		}
	}
	return nil, len(tokens), fmt.Errorf("mixin %s is not closed", m.name)
}

// readInclude parses `name args` after @mixin up to `;` or the enclosing
// `}` and returns the index of the last consumed token.
func readInclude(tokens []*scanner.Token, start int) (string, []string, int, error) {
	i := skipSpace(tokens, start)
	if i >= len(tokens) || tokens[i].Type != scanner.TokenIdent {
		return "", nil, i, fmt.Errorf("@mixin needs a name")
	}
	name := tokens[i].Value

	end := i + 1
	for end < len(tokens) && !isChar(tokens, end, ";") && !isChar(tokens, end, "}") {
		end++
	}

	var args []string
	for _, a := range splitArgs(tokens[i+1 : end]) {
		if s := strings.TrimSpace(joinTokens(a)); s != "" {
			args = append(args, s)
		}
	}

	if isChar(tokens, end, ";") {
		return name, args, end, nil
	}
	// Leave the closing brace for the caller.
	return name, args, end - 1, nil
}

// apply binds args to the parameters and returns the substituted body.
func (m *mixin) apply(args []string) (string, error) {
	if len(args) > len(m.params) {
		return "", fmt.Errorf("mixin %s takes %d arguments, got %d", m.name, len(m.params), len(args))
	}
	values := make(map[string]string, len(m.params))
	for k, p := range m.params {
		switch {
		case k < len(args):
			values[p] = args[k]
		default:
			d, ok := m.defaults[p]
			if !ok {
				return "", fmt.Errorf("mixin %s: missing argument $%s", m.name, p)
			}
			values[p] = d
		}
	}

	var out strings.Builder
	body := m.body
	for i := 0; i < len(body); i++ {
		// $(name)
		if isChar(body, i, "$") && isChar(body, i+1, "(") && i+3 < len(body) &&
			body[i+2].Type == scanner.TokenIdent && isChar(body, i+3, ")") {
			if v, ok := values[body[i+2].Value]; ok {
				out.WriteString(v)
				i += 3
				continue
			}
		}
		if name, ok := varRef(body, i); ok {
			if v, ok := values[name]; ok {
				out.WriteString(v)
				i++
				continue
			}
		}
		out.WriteString(body[i].Value)
	}
	return out.String(), nil
}

// splitArgs splits tokens on commas outside parentheses.
func splitArgs(tokens []*scanner.Token) [][]*scanner.Token {
	var (
		parts [][]*scanner.Token
		cur   []*scanner.Token
		depth int
	)
	for i, tok := range tokens {
		switch {
		case tok.Type == scanner.TokenFunction || isChar(tokens, i, "("):
			depth++
		case isChar(tokens, i, ")"):
			depth--
		case depth == 0 && isChar(tokens, i, ","):
			parts = append(parts, trimSpace(cur))
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 || len(parts) > 0 {
		parts = append(parts, trimSpace(cur))
	}
	return parts
}

func trimSpace(tokens []*scanner.Token) []*scanner.Token {
	for len(tokens) > 0 && tokens[0].Type == scanner.TokenS {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].Type == scanner.TokenS {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func joinTokens(tokens []*scanner.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Value)
	}
	return b.String()
}
