// Package metadata persists the per-mailbox state consumed by the
// reading application: the active UID range, the read range, and the
// named mark ranges. The on-disk format is a single JSON file keyed by
// mailbox short name.
package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/rangeset"
)

// Info is the stored record for one mailbox.
type Info struct {
	ActiveLo uint32                    `json:"active_lo"`
	ActiveHi uint32                    `json:"active_hi"`
	UIDNext  uint32                    `json:"uidnext,omitempty"`
	Read     rangeset.Range            `json:"read,omitempty"`
	Marks    map[string]rangeset.Range `json:"marks,omitempty"`
}

// Store provides read/write access to mailbox info records.
type Store interface {
	Info(mailbox string) (Info, bool, error)
	SetInfo(mailbox string, info Info) error
	Mailboxes() ([]string, error)
}

// FileStore keeps all records in one JSON file, loaded at open time and
// written through on every update.
type FileStore struct {
	path string

	mu    sync.Mutex
	infos map[string]Info
}

// NewFileStore opens (or creates) the store backed by the given file.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, infos: map[string]Info{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading mailbox info %s", path)
	}
	if err := json.Unmarshal(data, &s.infos); err != nil {
		return nil, errors.Wrapf(err, "decoding mailbox info %s", path)
	}
	return s, nil
}

// Info returns the stored record for a mailbox, reporting whether one
// exists.
func (s *FileStore) Info(mailbox string) (Info, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infos[mailbox]
	return info, ok, nil
}

// SetInfo stores the record for a mailbox and writes the file through.
func (s *FileStore) SetInfo(mailbox string, info Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos[mailbox] = info
	return s.save()
}

// Mailboxes returns the sorted names of all mailboxes with stored
// records.
func (s *FileStore) Mailboxes() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.infos))
	for name := range s.infos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// save writes the whole map atomically via a temp file and rename.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.infos, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding mailbox info")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mailboxinfo-*")
	if err != nil {
		return errors.Wrap(err, "writing mailbox info")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "writing mailbox info")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "writing mailbox info")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "writing mailbox info")
}
