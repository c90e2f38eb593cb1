package imap

import (
	"context"
	"strings"

	"github.com/mailtide/mailtide/internal/rangeset"
	"github.com/mailtide/mailtide/internal/wire"
)

// Copy sends a UID COPY for the range without awaiting its completion,
// so several copies can be pipelined. The returned tag is awaited with
// AwaitOK; success of each copy is judged by its own tag.
func (s *Session) Copy(set rangeset.Range, mailbox string) (int, error) {
	return s.Send("UID COPY %s %s", set.String(), wire.EncodeMailbox(mailbox))
}

// AwaitOK waits for the completion of a previously sent command and
// reports whether it completed OK.
func (s *Session) AwaitOK(ctx context.Context, tag int) (bool, *Response, error) {
	resp, err := s.Await(ctx, tag)
	if err != nil {
		return false, nil, err
	}
	return resp.OK(), resp, nil
}

// Create makes a new mailbox on the server.
func (s *Session) Create(ctx context.Context, mailbox string) error {
	ok, resp, err := s.Run(ctx, "CREATE %s", wire.EncodeMailbox(mailbox))
	if err != nil {
		return err
	}
	if !ok {
		return &ProtocolError{Status: resp.Status, Text: resp.Text}
	}
	return nil
}

// MailboxInfo is one entry of a mailbox listing.
type MailboxInfo struct {
	Name      string
	Delimiter string
	Attrs     []string
}

// List returns the mailboxes matching the reference and pattern, with
// names decoded back from their 7-bit protocol form.
func (s *Session) List(ctx context.Context, ref, pattern string) ([]MailboxInfo, error) {
	ok, resp, err := s.Run(ctx, "LIST %s %s", wire.Quote(ref), wire.Quote(pattern))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ProtocolError{Status: resp.Status, Text: resp.Text}
	}

	var infos []MailboxInfo
	for _, line := range resp.Lines {
		if len(line) < 5 || atomAt(line, 0) != "*" ||
			!strings.EqualFold(string(atomAt(line, 1)), "LIST") {
			continue
		}
		attrs, _ := line[2].(wire.List)
		info := MailboxInfo{
			Name:  wire.DecodeMailbox(string(atomAt(line, 4))),
			Attrs: atomStrings(attrs),
		}
		if delim := atomAt(line, 3); !strings.EqualFold(string(delim), "NIL") {
			info.Delimiter = string(delim)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Noop sends a no-op probe.
func (s *Session) Noop(ctx context.Context) error {
	_, _, err := s.Run(ctx, "NOOP")
	return err
}
