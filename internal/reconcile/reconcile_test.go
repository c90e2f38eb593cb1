package reconcile_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtide/mailtide/internal/imap"
	"github.com/mailtide/mailtide/internal/metadata"
	"github.com/mailtide/mailtide/internal/rangeset"
	"github.com/mailtide/mailtide/internal/reconcile"
)

func newStore(t *testing.T) metadata.Store {
	store, err := metadata.NewFileStore(filepath.Join(t.TempDir(), "mailboxinfo.json"))
	require.NoError(t, err)
	return store
}

func TestFlagMarkMapping(t *testing.T) {
	flag, ok := reconcile.FlagForMark("read")
	require.True(t, ok)
	assert.Equal(t, `\Seen`, flag)

	mark, ok := reconcile.MarkForFlag(`\FLAGGED`)
	require.True(t, ok)
	assert.Equal(t, "flagged", mark)

	_, ok = reconcile.FlagForMark("starred")
	assert.False(t, ok)
}

func TestApplyFullSync(t *testing.T) {
	store := newStore(t)

	snap := &imap.FlagsSnapshot{
		Mailbox:  "INBOX",
		Exists:   rangeset.New(1, 10),
		UIDNext:  11,
		StartUID: 1,
		Flags: map[string]rangeset.Range{
			`\SEEN`:    rangeset.New(1, 4),
			`\FLAGGED`: rangeset.FromNums(5),
		},
	}
	require.NoError(t, reconcile.Apply(snap, store))

	info, ok, err := store.Info("INBOX")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(1), info.ActiveLo)
	assert.Equal(t, uint32(10), info.ActiveHi)
	assert.Equal(t, uint32(11), info.UIDNext)

	// Unread is what exists without the read or flagged label; read is
	// its complement within the window.
	assert.Equal(t, "1:5", info.Read.String())
	assert.Equal(t, "5", info.Marks["flagged"].String())
}

func TestApplyIsIdempotent(t *testing.T) {
	store := newStore(t)

	snap := &imap.FlagsSnapshot{
		Mailbox:  "INBOX",
		Exists:   rangeset.New(3, 20),
		UIDNext:  21,
		StartUID: 1,
		Flags: map[string]rangeset.Range{
			`\SEEN`:     rangeset.New(3, 11),
			`\ANSWERED`: rangeset.New(4, 6),
		},
	}
	require.NoError(t, reconcile.Apply(snap, store))
	first, _, err := store.Info("INBOX")
	require.NoError(t, err)

	require.NoError(t, reconcile.Apply(snap, store))
	second, _, err := store.Info("INBOX")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestApplyPartialSyncPreservesBelowWindow(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetInfo("INBOX", metadata.Info{
		ActiveLo: 1,
		ActiveHi: 100,
		UIDNext:  101,
		Read:     rangeset.New(1, 100),
		Marks: map[string]rangeset.Range{
			"flagged": rangeset.New(10, 20),
		},
	}))

	snap := &imap.FlagsSnapshot{
		Mailbox:  "INBOX",
		Exists:   rangeset.New(80, 120),
		UIDNext:  121,
		StartUID: 80,
		Flags: map[string]rangeset.Range{
			`\SEEN`: rangeset.New(80, 90),
		},
	}
	require.NoError(t, reconcile.Apply(snap, store))

	info, _, err := store.Info("INBOX")
	require.NoError(t, err)

	// The window extends the upper bound only; the historical lower
	// bound is kept.
	assert.Equal(t, uint32(1), info.ActiveLo)
	assert.Equal(t, uint32(120), info.ActiveHi)

	// Read state below the fetch window is untouched; inside it the
	// fresh listing is authoritative.
	assert.Equal(t, "1:90", info.Read.String())

	// The flagged mark was absent from the window, so it is cleared
	// within [80,120] but preserved below.
	assert.Equal(t, "10:20", info.Marks["flagged"].String())
}

func TestApplyEmptyFreshSetClearsWindowOnly(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetInfo("INBOX", metadata.Info{
		ActiveLo: 1,
		ActiveHi: 60,
		UIDNext:  61,
		Marks: map[string]rangeset.Range{
			"flagged": rangeset.New(1, 50),
		},
	}))

	snap := &imap.FlagsSnapshot{
		Mailbox:  "INBOX",
		Exists:   rangeset.New(40, 60),
		UIDNext:  61,
		StartUID: 40,
		Flags:    map[string]rangeset.Range{},
	}
	require.NoError(t, reconcile.Apply(snap, store))

	info, _, err := store.Info("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "1:39", info.Marks["flagged"].String())
}

func TestApplyBareKeywordFallback(t *testing.T) {
	store := newStore(t)

	// A server without keyword flag support reports the mark as a bare
	// upper-cased keyword instead of the canonical token.
	snap := &imap.FlagsSnapshot{
		Mailbox:  "INBOX",
		Exists:   rangeset.New(1, 5),
		UIDNext:  6,
		StartUID: 1,
		Flags: map[string]rangeset.Range{
			"EXPIRED": rangeset.New(2, 3),
		},
	}
	require.NoError(t, reconcile.Apply(snap, store))

	info, _, err := store.Info("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "2:3", info.Marks["expired"].String())
}

func TestApplyEmptyMailbox(t *testing.T) {
	store := newStore(t)

	snap := &imap.FlagsSnapshot{
		Mailbox:  "INBOX",
		UIDNext:  43,
		StartUID: 1,
		Flags:    map[string]rangeset.Range{},
	}
	require.NoError(t, reconcile.Apply(snap, store))

	info, _, err := store.Info("INBOX")
	require.NoError(t, err)

	// The empty active range anchors at UIDNEXT so the next sync
	// resumes from the right place. Vanished articles count as read.
	assert.Equal(t, uint32(43), info.ActiveLo)
	assert.Equal(t, uint32(42), info.ActiveHi)
	assert.Equal(t, "1:42", info.Read.String())
}
