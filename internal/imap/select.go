package imap

import (
	"context"
	"strconv"
	"strings"

	"github.com/mailtide/mailtide/internal/wire"
)

// SelectData is the state reported when a mailbox is selected.
type SelectData struct {
	Mailbox        string
	Exists         uint32
	UIDNext        uint32
	UIDValidity    uint32
	Flags          []string
	PermanentFlags []string
	ReadOnly       bool
}

// Select makes mailbox the session's current mailbox and returns the
// server-reported state.
func (s *Session) Select(ctx context.Context, mailbox string) (*SelectData, error) {
	ok, resp, err := s.Run(ctx, "SELECT %s", wire.EncodeMailbox(mailbox))
	if err != nil {
		return nil, err
	}
	if !ok {
		s.mu.Lock()
		s.selected = ""
		s.selData = nil
		s.mu.Unlock()
		return nil, &ProtocolError{Status: resp.Status, Text: resp.Text}
	}

	data := &SelectData{Mailbox: mailbox}
	for _, line := range resp.Lines {
		if len(line) < 3 || atomAt(line, 0) != "*" {
			continue
		}
		switch {
		case strings.EqualFold(string(atomAt(line, 2)), "EXISTS"):
			if n, err := strconv.ParseUint(string(atomAt(line, 1)), 10, 32); err == nil {
				data.Exists = uint32(n)
			}
		case strings.EqualFold(string(atomAt(line, 1)), "FLAGS"):
			if flags, isList := line[2].(wire.List); isList {
				data.Flags = atomStrings(flags)
			}
		case strings.EqualFold(string(atomAt(line, 1)), "OK"):
			attrs, isAttrs := line[2].(wire.AttrList)
			if !isAttrs || len(attrs) == 0 {
				continue
			}
			switch strings.ToUpper(attrs[0]) {
			case "UIDNEXT":
				data.UIDNext = attrNum(attrs)
			case "UIDVALIDITY":
				data.UIDValidity = attrNum(attrs)
			case "PERMANENTFLAGS":
				data.PermanentFlags = attrFlags(attrs)
			}
		}
	}
	data.ReadOnly = strings.HasPrefix(resp.Text, "[READ-ONLY]")

	s.mu.Lock()
	s.selected = mailbox
	s.selData = data
	s.mu.Unlock()
	return data, nil
}

// SelectedData returns the state recorded at the last successful
// select, or nil.
func (s *Session) SelectedData() *SelectData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selData
}

func attrNum(attrs wire.AttrList) uint32 {
	if len(attrs) < 2 {
		return 0
	}
	n, err := strconv.ParseUint(attrs[1], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// attrFlags extracts a parenthesized flag list that was split into
// attribute fields, e.g. ["PERMANENTFLAGS" "(\Deleted" "\Seen" "\*)"].
func attrFlags(attrs wire.AttrList) []string {
	var flags []string
	for _, f := range attrs[1:] {
		f = strings.Trim(f, "()")
		if f != "" {
			flags = append(flags, f)
		}
	}
	return flags
}

func atomStrings(l wire.List) []string {
	out := make([]string, 0, len(l))
	for _, n := range l {
		if a, ok := n.(wire.Atom); ok {
			out = append(out, string(a))
		}
	}
	return out
}
