package metadata_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtide/mailtide/internal/metadata"
	"github.com/mailtide/mailtide/internal/rangeset"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailboxinfo.json")

	store, err := metadata.NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := store.Info("INBOX")
	require.NoError(t, err)
	assert.False(t, ok)

	info := metadata.Info{
		ActiveLo: 10,
		ActiveHi: 250,
		UIDNext:  251,
		Read:     rangeset.New(10, 200),
		Marks: map[string]rangeset.Range{
			"flagged": rangeset.FromNums(42, 99),
		},
	}
	require.NoError(t, store.SetInfo("INBOX", info))
	require.NoError(t, store.SetInfo("Archive", metadata.Info{ActiveLo: 1, ActiveHi: 5}))

	// A fresh store reads back what was persisted.
	reopened, err := metadata.NewFileStore(path)
	require.NoError(t, err)

	got, ok, err := reopened.Info("INBOX")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info, got)

	names, err := reopened.Mailboxes()
	require.NoError(t, err)
	assert.Equal(t, []string{"Archive", "INBOX"}, names)
}

func TestFileStoreRangesSerializeCompactly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailboxinfo.json")

	store, err := metadata.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetInfo("INBOX", metadata.Info{
		ActiveLo: 1,
		ActiveHi: 9,
		Read:     rangeset.FromNums(1, 2, 3, 7),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"1:3,7"`)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailboxinfo.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := metadata.NewFileStore(path)
	assert.Error(t, err)
}
