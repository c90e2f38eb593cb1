package message

import (
	"bytes"
	"path"
	"strconv"
)

// Policy decides which leaves of a structure are wanted for a partial
// fetch.
type Policy struct {
	firstOnly   bool
	typePattern string
}

// FirstPartOnly wants just the leaf numbered "1".
func FirstPartOnly() Policy {
	return Policy{firstOnly: true}
}

// MatchingType wants every leaf whose type/subtype matches the pattern,
// e.g. "text/*".
func MatchingType(pattern string) Policy {
	return Policy{typePattern: pattern}
}

// WantedParts returns the set of leaf identifiers the policy selects.
func WantedParts(s *Structure, policy Policy) map[string]bool {
	wanted := map[string]bool{}
	s.Walk(func(id string, leaf *Structure) {
		if policy.firstOnly {
			if id == "1" {
				wanted[id] = true
			}
			return
		}
		if matched, err := path.Match(policy.typePattern, leaf.ContentType()); err == nil && matched {
			wanted[id] = true
		}
	})
	return wanted
}

// Reconstruct synthesizes a message from the fetched header block and
// the fetched bytes of the wanted parts, keyed by leaf identifier.
// Every branching node emits a boundary section using its declared
// boundary parameter; every leaf emits its content headers, followed by
// its fetched bytes when present in parts and nothing otherwise.
func Reconstruct(s *Structure, header []byte, parts map[string][]byte) []byte {
	var buf bytes.Buffer
	buf.Write(bytes.TrimRight(header, "\r\n"))
	buf.WriteString("\r\n")
	emitNode(&buf, s, "", parts)
	return buf.Bytes()
}

func emitNode(buf *bytes.Buffer, s *Structure, prefix string, parts map[string][]byte) {
	if len(s.Parts) == 0 {
		emitLeaf(buf, s, prefix, parts)
		return
	}

	boundary := s.Params["boundary"]
	buf.WriteString("Content-type: multipart/" + s.Subtype +
		"; boundary=\"" + boundary + "\"\r\n")
	for i, part := range s.Parts {
		buf.WriteString("--" + boundary + "\r\n")
		id := strconv.Itoa(i + 1)
		if prefix != "" {
			id = prefix + "." + id
		}
		emitNode(buf, part, id, parts)
	}
	buf.WriteString("--" + boundary + "--\r\n")
}

func emitLeaf(buf *bytes.Buffer, s *Structure, id string, parts map[string][]byte) {
	if id == "" {
		id = "1"
	}
	buf.WriteString("Content-type: " + s.ContentType())
	if charset := s.Params["charset"]; charset != "" {
		buf.WriteString("; charset=" + charset)
	}
	buf.WriteString("\r\n")
	if s.Encoding != "" {
		buf.WriteString("Content-transfer-encoding: " + s.Encoding + "\r\n")
	}
	buf.WriteString("\r\n")
	if body, ok := parts[id]; ok {
		buf.Write(body)
		buf.WriteString("\r\n")
	}
}
