package engine

import "strings"

// preprocessSource rewrites kerf script source into what zygomys reads:
//
//   - :face-point becomes the string "__kw_face-point", so keywords never
//     collide with user variables;
//   - split-plane becomes split_plane, since zygomys parses a hyphen inside
//     an identifier as subtraction;
//   - ; and ;; line comments become //.
//
// String literals (double-quoted and backtick) pass through untouched, and
// := is left alone.
func preprocessSource(source string) string {
	p := preprocessor{src: source}
	p.out.Grow(len(source) + len(source)/4)
	for p.i < len(p.src) {
		switch c := p.src[p.i]; {
		case c == '"':
			p.quoted('"', true)
		case c == '`':
			p.quoted('`', false)
		case c == ';':
			p.comment()
		case c == ':' && p.peek(1) == '=':
			p.copy(2)
		case c == ':' && isLetter(p.peek(1)):
			p.keyword()
		case c == '-' && p.i > 0 && isIdentChar(p.src[p.i-1]) && isLetter(p.peek(1)):
			p.out.WriteByte('_')
			p.i++
		default:
			p.copy(1)
		}
	}
	return p.out.String()
}

type preprocessor struct {
	src string
	i   int
	out strings.Builder
}

// peek returns the byte n positions ahead, or 0 past the end.
func (p *preprocessor) peek(n int) byte {
	if p.i+n < len(p.src) {
		return p.src[p.i+n]
	}
	return 0
}

func (p *preprocessor) copy(n int) {
	end := min(p.i+n, len(p.src))
	p.out.WriteString(p.src[p.i:end])
	p.i = end
}

// quoted copies a literal through its closing quote. Unterminated literals
// run to the end of the source.
func (p *preprocessor) quoted(q byte, escapes bool) {
	p.copy(1)
	for p.i < len(p.src) {
		c := p.src[p.i]
		if escapes && c == '\\' {
			p.copy(2)
			continue
		}
		p.copy(1)
		if c == q {
			return
		}
	}
}

func (p *preprocessor) comment() {
	for p.i < len(p.src) && p.src[p.i] == ';' {
		p.i++
	}
	p.out.WriteString("//")
	end := strings.IndexByte(p.src[p.i:], '\n')
	if end < 0 {
		end = len(p.src) - p.i
	}
	p.copy(end)
}

func (p *preprocessor) keyword() {
	j := p.i + 1
	for j < len(p.src) && isKWChar(p.src[j]) {
		j++
	}
	p.out.WriteByte('"')
	p.out.WriteString(kwPrefix)
	p.out.WriteString(p.src[p.i+1 : j])
	p.out.WriteByte('"')
	p.i = j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isKWChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
