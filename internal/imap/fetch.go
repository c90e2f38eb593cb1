package imap

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/message"
	"github.com/mailtide/mailtide/internal/rangeset"
	"github.com/mailtide/mailtide/internal/wire"
)

// FlagsSnapshot is the freshly observed flag listing for the selected
// mailbox, the input to reconciliation. Flags keys are upper-cased
// protocol flag tokens; StartUID is the lowest UID included in the
// fetch, marking which portion of the stored ranges this snapshot is
// authoritative for.
type FlagsSnapshot struct {
	Mailbox  string
	Exists   rangeset.Range
	Flags    map[string]rangeset.Range
	UIDNext  uint32
	StartUID uint32
}

// FetchFlags retrieves the UID and flag listing for every article from
// the given UID upward.
func (s *Session) FetchFlags(ctx context.Context, from uint32) (*FlagsSnapshot, error) {
	if from == 0 {
		from = 1
	}
	s.mu.Lock()
	mailbox := s.selected
	var uidnext uint32
	if s.selData != nil {
		uidnext = s.selData.UIDNext
	}
	s.mu.Unlock()
	if mailbox == "" {
		return nil, errors.New("imap: no mailbox selected")
	}

	ok, resp, err := s.Run(ctx, "UID FETCH %d:* (FLAGS)", from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ProtocolError{Status: resp.Status, Text: resp.Text}
	}

	snap := &FlagsSnapshot{
		Mailbox:  mailbox,
		Flags:    map[string]rangeset.Range{},
		UIDNext:  uidnext,
		StartUID: from,
	}
	for _, line := range resp.Lines {
		items, isFetch := fetchItems(line)
		if !isFetch {
			continue
		}
		uid := itemUID(items)
		if uid == 0 {
			continue
		}
		snap.Exists.Add(uid)
		flags, isList := items["FLAGS"].(wire.List)
		if !isList {
			continue
		}
		for _, f := range atomStrings(flags) {
			key := strings.ToUpper(f)
			r := snap.Flags[key]
			r.Add(uid)
			snap.Flags[key] = r
		}
	}
	return snap, nil
}

// FetchWhole retrieves one article's full bytes. ErrNotFound is
// returned when no untagged fetch line announces the article.
func (s *Session) FetchWhole(ctx context.Context, uid uint32) ([]byte, error) {
	return s.fetchSection(ctx, uid, "")
}

// FetchHeader retrieves only the article's header block.
func (s *Session) FetchHeader(ctx context.Context, uid uint32) ([]byte, error) {
	return s.fetchSection(ctx, uid, "HEADER")
}

// FetchPart retrieves the raw bytes of one body part by its dotted
// positional identifier.
func (s *Session) FetchPart(ctx context.Context, uid uint32, partID string) ([]byte, error) {
	return s.fetchSection(ctx, uid, partID)
}

func (s *Session) fetchSection(ctx context.Context, uid uint32, section string) ([]byte, error) {
	ok, resp, err := s.Run(ctx, "UID FETCH %d BODY.PEEK[%s]", uid, section)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ProtocolError{Status: resp.Status, Text: resp.Text}
	}
	key := "BODY[" + strings.ToUpper(section) + "]"
	for _, line := range resp.Lines {
		items, isFetch := fetchItems(line)
		if !isFetch {
			continue
		}
		if u := itemUID(items); u != 0 && u != uid {
			continue
		}
		if body, isAtom := items[key].(wire.Atom); isAtom {
			return []byte(body), nil
		}
	}
	return nil, ErrNotFound
}

// FetchStructure retrieves the article's body-structure tree, parsed
// into the part layout used for partial fetches.
func (s *Session) FetchStructure(ctx context.Context, uid uint32) (*message.Structure, error) {
	ok, resp, err := s.Run(ctx, "UID FETCH %d BODYSTRUCTURE", uid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ProtocolError{Status: resp.Status, Text: resp.Text}
	}
	for _, line := range resp.Lines {
		items, isFetch := fetchItems(line)
		if !isFetch {
			continue
		}
		if node, present := items["BODYSTRUCTURE"]; present {
			return message.ParseStructure(node)
		}
	}
	return nil, ErrNotFound
}

// FetchPartial reconstructs an article from its header plus the wanted
// body parts. The per-part fetches are pipelined: all requests go out
// before any reply is awaited.
func (s *Session) FetchPartial(ctx context.Context, uid uint32, structure *message.Structure, wanted map[string]bool) ([]byte, error) {
	header, err := s.FetchHeader(ctx, uid)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(wanted))
	for id, want := range wanted {
		if want {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	tags := make(map[string]int, len(ids))
	for _, id := range ids {
		tag, err := s.Send("UID FETCH %d BODY.PEEK[%s]", uid, id)
		if err != nil {
			return nil, err
		}
		tags[id] = tag
	}

	parts := make(map[string][]byte, len(ids))
	for _, id := range ids {
		resp, err := s.Await(ctx, tags[id])
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, &ProtocolError{Status: resp.Status, Text: resp.Text}
		}
		key := "BODY[" + id + "]"
		for _, line := range resp.Lines {
			items, isFetch := fetchItems(line)
			if !isFetch {
				continue
			}
			if body, isAtom := items[key].(wire.Atom); isAtom {
				parts[id] = []byte(body)
			}
		}
	}
	return message.Reconstruct(structure, header, parts), nil
}

// fetchItems unpacks an untagged `* <seq> FETCH (<k1> <v1> ...)` line
// into a key/value map with upper-cased keys.
func fetchItems(line wire.List) (map[string]wire.Node, bool) {
	if len(line) < 4 || atomAt(line, 0) != "*" ||
		!strings.EqualFold(string(atomAt(line, 2)), "FETCH") {
		return nil, false
	}
	inner, isList := line[3].(wire.List)
	if !isList {
		return nil, false
	}
	items := map[string]wire.Node{}
	for i := 0; i+1 < len(inner); i += 2 {
		key, isAtom := inner[i].(wire.Atom)
		if !isAtom {
			return nil, false
		}
		items[strings.ToUpper(string(key))] = inner[i+1]
	}
	return items, true
}

func itemUID(items map[string]wire.Node) uint32 {
	a, isAtom := items["UID"].(wire.Atom)
	if !isAtom {
		return 0
	}
	n, err := strconv.ParseUint(string(a), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
