package imap

import (
	"context"
	"strings"

	"github.com/mailtide/mailtide/internal/rangeset"
)

// FlagOp selects whether a store adds or removes flags.
type FlagOp string

const (
	FlagAdd    FlagOp = "+"
	FlagRemove FlagOp = "-"
)

// ExpungePolicy controls what Delete may do when the server lacks
// range-scoped expunge support.
type ExpungePolicy struct {
	AllowUnscoped bool
}

// StoreFlags applies a flag change to the given UID range. With silent
// set, no untagged flag notifications are requested.
func (s *Session) StoreFlags(ctx context.Context, set rangeset.Range, op FlagOp, flags []string, silent bool) error {
	if set.Empty() {
		return nil
	}
	item := string(op) + "FLAGS"
	if silent {
		item += ".SILENT"
	}
	ok, resp, err := s.Run(ctx, "UID STORE %s %s (%s)", set.String(), item, strings.Join(flags, " "))
	if err != nil {
		return err
	}
	if !ok {
		return &ProtocolError{Status: resp.Status, Text: resp.Text}
	}
	return nil
}

// Expunge permanently removes every article marked deleted in the
// selected mailbox, not just a targeted range.
func (s *Session) Expunge(ctx context.Context) error {
	ok, resp, err := s.Run(ctx, "EXPUNGE")
	if err != nil {
		return err
	}
	if !ok {
		return &ProtocolError{Status: resp.Status, Text: resp.Text}
	}
	return nil
}

// UIDExpunge removes only the marked-deleted articles within the given
// range, leaving concurrently marked articles outside it alone.
func (s *Session) UIDExpunge(ctx context.Context, set rangeset.Range) error {
	ok, resp, err := s.Run(ctx, "UID EXPUNGE %s", set.String())
	if err != nil {
		return err
	}
	if !ok {
		return &ProtocolError{Status: resp.Status, Text: resp.Text}
	}
	return nil
}

// Delete marks the range deleted (silently) and then expunges it as
// narrowly as the server and policy allow: a scoped expunge when the
// server guarantees range scoping, a full expunge when the policy
// permits it, otherwise the articles stay marked-deleted-but-present
// and ErrNotExpunged reports the condition.
func (s *Session) Delete(ctx context.Context, set rangeset.Range, policy ExpungePolicy) error {
	if set.Empty() {
		return nil
	}
	if err := s.StoreFlags(ctx, set, FlagAdd, []string{`\Deleted`}, true); err != nil {
		return err
	}
	if s.Capable("UIDPLUS") {
		return s.UIDExpunge(ctx, set)
	}
	if policy.AllowUnscoped {
		return s.Expunge(ctx)
	}
	return ErrNotExpunged
}
