// Package wire parses the line-oriented reply grammar of the mailbox
// protocol into structured token trees, and handles the two quirks that
// make the stream non-trivial to tokenize: literal payloads announced as
// {N} followed by N raw bytes, and completion lines preceded by an
// arbitrary number of untagged continuation lines.
package wire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Node is one token of a parsed reply. It is either an Atom, a
// parenthesized List, or a bracketed AttrList.
type Node interface {
	node()
}

// Atom is a bare or quoted string token.
type Atom string

// List is a parenthesized token list, possibly nested.
type List []Node

// AttrList is a bracketed attribute list; its contents are
// whitespace-split atoms.
type AttrList []string

func (Atom) node()     {}
func (List) node()     {}
func (AttrList) node() {}

// ParseError reports a malformed reply. The reply carrying it yields no
// usable data but the connection remains usable.
type ParseError struct {
	Msg string
	Raw []byte
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wire: %s in %.80q", e.Msg, e.Raw)
}

// Parse tokenizes one logical response unit into its token sequence.
// The input must already have literals unfolded (see UnfoldLiterals);
// embedded newlines are treated as token separators outside quotes.
func Parse(raw []byte) (List, error) {
	p := &parser{raw: raw}
	list, err := p.parseList(0)
	if err != nil {
		return nil, err
	}
	return list, nil
}

type parser struct {
	raw []byte
	pos int
}

// parseList reads tokens until the closing delimiter (or end of input at
// depth zero).
func (p *parser) parseList(depth int) (List, error) {
	var list List
	for {
		p.skipSpace()
		if p.pos >= len(p.raw) {
			if depth > 0 {
				return nil, &ParseError{Msg: "unterminated list", Raw: p.raw}
			}
			return list, nil
		}
		switch c := p.raw[p.pos]; c {
		case ')':
			if depth == 0 {
				return nil, &ParseError{Msg: "unbalanced ')'", Raw: p.raw}
			}
			p.pos++
			return list, nil
		case '(':
			p.pos++
			sub, err := p.parseList(depth + 1)
			if err != nil {
				return nil, err
			}
			list = append(list, sub)
		case '[':
			attrs, err := p.parseAttrList()
			if err != nil {
				return nil, err
			}
			list = append(list, attrs)
		case '"':
			s, err := p.parseQuoted()
			if err != nil {
				return nil, err
			}
			list = append(list, Atom(s))
		default:
			list = append(list, Atom(p.parseBare()))
		}
	}
}

func (p *parser) parseAttrList() (AttrList, error) {
	start := p.pos
	p.pos++ // consume '['
	depth := 1
	for p.pos < len(p.raw) {
		switch p.raw[p.pos] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				inner := string(p.raw[start+1 : p.pos])
				p.pos++
				return AttrList(strings.Fields(inner)), nil
			}
		}
		p.pos++
	}
	return nil, &ParseError{Msg: "unterminated attribute list", Raw: p.raw}
}

func (p *parser) parseQuoted() (string, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for p.pos < len(p.raw) {
		c := p.raw[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.raw) {
				return "", &ParseError{Msg: "dangling escape", Raw: p.raw}
			}
			sb.WriteByte(p.raw[p.pos+1])
			p.pos += 2
		case '"':
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", &ParseError{Msg: "unterminated quoted string", Raw: p.raw}
}

func (p *parser) parseBare() string {
	start := p.pos
	for p.pos < len(p.raw) {
		switch p.raw[p.pos] {
		case ' ', '\t', '\r', '\n', ')', '(':
			return string(p.raw[start:p.pos])
		}
		p.pos++
	}
	return string(p.raw[start:p.pos])
}

func (p *parser) skipSpace() {
	for p.pos < len(p.raw) {
		switch p.raw[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// UnfoldLiterals replaces every {N} literal announcement (followed by a
// line break and exactly N raw bytes) with an equivalent quoted-string
// token holding those N bytes verbatim, with quote and backslash escaped.
// Announcements whose payload extends past the end of the buffer are left
// untouched.
func UnfoldLiterals(buf []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(buf); {
		c := buf[i]
		if c != '{' {
			out.WriteByte(c)
			i++
			continue
		}
		n, next, ok := literalAt(buf, i)
		if !ok || next+n > len(buf) {
			out.WriteByte(c)
			i++
			continue
		}
		out.WriteByte('"')
		for _, b := range buf[next : next+n] {
			if b == '"' || b == '\\' {
				out.WriteByte('\\')
			}
			out.WriteByte(b)
		}
		out.WriteByte('"')
		i = next + n
	}
	return out.Bytes()
}

// literalAt decodes a {N} announcement starting at offset i. It returns
// the payload length and the offset of the first payload byte.
func literalAt(buf []byte, i int) (n, next int, ok bool) {
	close := bytes.IndexByte(buf[i:], '}')
	if close < 0 {
		return 0, 0, false
	}
	close += i
	count, err := strconv.Atoi(string(buf[i+1 : close]))
	if err != nil || count < 0 {
		return 0, 0, false
	}
	next = close + 1
	if next < len(buf) && buf[next] == '\r' {
		next++
	}
	if next >= len(buf) || buf[next] != '\n' {
		return 0, 0, false
	}
	return count, next + 1, true
}

// IsolateLastUnit returns the response unit the trailing completion line
// belongs to: the completion line itself plus the unbroken run of
// untagged ('*'-prefixed) lines immediately preceding it. One command may
// produce any number of untagged lines before its completion, so the
// scan walks backward until the first line that is not untagged.
func IsolateLastUnit(buf []byte) []byte {
	trimmed := len(buf)
	for trimmed > 0 && (buf[trimmed-1] == '\n' || buf[trimmed-1] == '\r') {
		trimmed--
	}
	start := lineStart(buf, trimmed)
	for start > 0 {
		prev := lineStart(buf, start-1)
		line := bytes.TrimRight(buf[prev:start], "\r\n")
		if len(line) == 0 || line[0] != '*' {
			break
		}
		start = prev
	}
	return buf[start:]
}

// lineStart returns the offset of the start of the line containing
// position pos.
func lineStart(buf []byte, pos int) int {
	if nl := bytes.LastIndexByte(buf[:pos], '\n'); nl >= 0 {
		return nl + 1
	}
	return 0
}
