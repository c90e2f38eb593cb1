// Package reconcile folds a freshly fetched flag listing into the
// locally persisted mailbox state. A partial fetch window never erases
// what is known about articles below it, and re-applying the same
// snapshot leaves the stored state unchanged.
package reconcile

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/imap"
	"github.com/mailtide/mailtide/internal/metadata"
	"github.com/mailtide/mailtide/internal/rangeset"
)

// markFlags maps local mark names to canonical protocol flag tokens.
// The mapping is fixed and bidirectional.
var markFlags = map[string]string{
	"read":    `\Seen`,
	"flagged": `\Flagged`,
	"replied": `\Answered`,
	"deleted": `\Deleted`,
	"draft":   `\Draft`,
	"expired": `$Expired`,
}

// markOrder fixes the iteration order over mark labels.
var markOrder = []string{"read", "flagged", "replied", "deleted", "draft", "expired"}

// FlagForMark returns the protocol flag token for a mark name.
func FlagForMark(mark string) (string, bool) {
	flag, ok := markFlags[strings.ToLower(mark)]
	return flag, ok
}

// MarkForFlag returns the mark name for a protocol flag token.
func MarkForFlag(flag string) (string, bool) {
	for mark, f := range markFlags {
		if strings.EqualFold(f, flag) {
			return mark, true
		}
	}
	return "", false
}

// Apply merges one flag snapshot into the stored info for its mailbox.
//
// For a partial fetch (StartUID > 1) the freshly fetched window
// supersedes stored data inside [StartUID, high] while everything below
// the window is preserved. An empty fresh set for a mark therefore
// clears that mark within the window but leaves the portion below it
// untouched; a mark absent from the response is treated the same way,
// since the snapshot's flag map covers every flag observed in the
// window.
func Apply(snap *imap.FlagsSnapshot, store metadata.Store) error {
	if snap.Mailbox == "" {
		return errors.New("reconcile: snapshot has no mailbox")
	}
	start := snap.StartUID
	if start == 0 {
		start = 1
	}

	high := snap.Exists.Max()
	if snap.UIDNext > 0 {
		high = snap.UIDNext - 1
	}
	low := snap.Exists.Min()
	if low == 0 {
		low = snap.UIDNext
	}

	prev, had, err := store.Info(snap.Mailbox)
	if err != nil {
		return errors.Wrapf(err, "reading info for %s", snap.Mailbox)
	}

	info := metadata.Info{UIDNext: snap.UIDNext}

	// Active range: a complete sync replaces it outright; a partial
	// sync only extends the upper bound, never the historical lower
	// bound.
	if start == 1 || !had {
		info.ActiveLo, info.ActiveHi = low, high
		if snap.Exists.Empty() {
			info.ActiveLo = snap.UIDNext
			info.ActiveHi = snap.UIDNext - 1
			if snap.UIDNext == 0 {
				info.ActiveLo, info.ActiveHi = 1, 0
			}
		}
	} else {
		info.ActiveLo = prev.ActiveLo
		info.ActiveHi = high
		if prev.ActiveHi > high {
			info.ActiveHi = prev.ActiveHi
		}
	}

	// Read range: unread is what exists and carries neither the read
	// nor the flagged label; read is its complement within the window.
	unread := snap.Exists.
		Subtract(markUIDs(snap, "read")).
		Subtract(markUIDs(snap, "flagged"))
	freshRead := unread.ComplementWithin(start, high)
	if start > 1 {
		info.Read = prev.Read.Intersect(rangeset.New(1, start-1)).Union(freshRead)
	} else {
		info.Read = freshRead
	}

	marks := map[string]rangeset.Range{}
	for _, mark := range markOrder {
		if mark == "read" {
			continue
		}
		fresh := markUIDs(snap, mark)
		merged := fresh
		if start > 1 {
			merged = prev.Marks[mark].Subtract(rangeset.New(start, high)).Union(fresh)
		}
		if !merged.Empty() {
			marks[mark] = merged
		}
	}
	if len(marks) > 0 {
		info.Marks = marks
	}

	return errors.Wrapf(store.SetInfo(snap.Mailbox, info), "storing info for %s", snap.Mailbox)
}

// markUIDs returns the freshly observed UID set carrying the mark's
// flag, falling back to the bare keyword encoding of the mark name when
// the canonical token is absent.
func markUIDs(snap *imap.FlagsSnapshot, mark string) rangeset.Range {
	flag := markFlags[mark]
	if r, ok := snap.Flags[strings.ToUpper(flag)]; ok {
		return r
	}
	return snap.Flags[strings.ToUpper(mark)]
}
