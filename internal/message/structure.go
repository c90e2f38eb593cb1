// Package message maps body-structure trees to part identifiers and
// rebuilds a message from a fetched header plus a chosen subset of its
// parts. Only enough structure traversal is done to address parts; this
// is not a MIME parser.
package message

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/wire"
)

// Structure describes one node of a message's part layout. A node with
// children is a multipart container; a node without is a leaf part.
type Structure struct {
	Type     string
	Subtype  string
	Params   map[string]string
	ID       string
	Encoding string
	Parts    []*Structure
}

// ParseStructure converts a body-structure reply tree into a Structure.
// Malformed or absent input is an error; falling back to a whole-article
// fetch is the caller's choice.
func ParseStructure(node wire.Node) (*Structure, error) {
	list, isList := node.(wire.List)
	if !isList || len(list) == 0 {
		return nil, errors.New("message: malformed body structure")
	}

	if _, multipart := list[0].(wire.List); multipart {
		s := &Structure{Type: "multipart"}
		i := 0
		for ; i < len(list); i++ {
			sub, isSub := list[i].(wire.List)
			if !isSub {
				break
			}
			child, err := ParseStructure(sub)
			if err != nil {
				return nil, err
			}
			s.Parts = append(s.Parts, child)
		}
		if i < len(list) {
			s.Subtype = lowerAtom(list[i])
			i++
		}
		if i < len(list) {
			s.Params = parseParams(list[i])
		}
		if s.Subtype == "" {
			return nil, errors.New("message: multipart structure missing subtype")
		}
		return s, nil
	}

	// Leaf: type subtype params id description encoding size ...
	if len(list) < 2 {
		return nil, errors.New("message: malformed body structure")
	}
	s := &Structure{
		Type:    lowerAtom(list[0]),
		Subtype: lowerAtom(list[1]),
	}
	if s.Type == "" || s.Subtype == "" {
		return nil, errors.New("message: leaf structure missing content type")
	}
	if len(list) > 2 {
		s.Params = parseParams(list[2])
	}
	if len(list) > 3 {
		if id := lowerAtom(list[3]); id != "nil" {
			s.ID = id
		}
	}
	if len(list) > 5 {
		if enc := lowerAtom(list[5]); enc != "nil" {
			s.Encoding = enc
		}
	}
	return s, nil
}

// ContentType returns the node's type/subtype string.
func (s *Structure) ContentType() string {
	return s.Type + "/" + s.Subtype
}

// Walk visits every leaf with its dotted positional identifier. Leaves
// are numbered 1-based at each nesting level; the same numbering is
// used when requesting parts and when reconstructing, so the two always
// agree.
func (s *Structure) Walk(fn func(id string, leaf *Structure)) {
	walkLeaves(s, "", fn)
}

func walkLeaves(s *Structure, prefix string, fn func(id string, leaf *Structure)) {
	if len(s.Parts) == 0 {
		if prefix == "" {
			prefix = "1"
		}
		fn(prefix, s)
		return
	}
	for i, part := range s.Parts {
		id := strconv.Itoa(i + 1)
		if prefix != "" {
			id = prefix + "." + id
		}
		walkLeaves(part, id, fn)
	}
}

func lowerAtom(n wire.Node) string {
	a, isAtom := n.(wire.Atom)
	if !isAtom {
		return ""
	}
	return strings.ToLower(string(a))
}

// parseParams reads an alternating key/value list; a NIL atom yields no
// params.
func parseParams(n wire.Node) map[string]string {
	list, isList := n.(wire.List)
	if !isList {
		return nil
	}
	params := map[string]string{}
	for i := 0; i+1 < len(list); i += 2 {
		key, keyOK := list[i].(wire.Atom)
		val, valOK := list[i+1].(wire.Atom)
		if keyOK && valOK {
			params[strings.ToLower(string(key))] = string(val)
		}
	}
	return params
}

