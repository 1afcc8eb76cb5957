package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"parley/internal/domain"
)

const groupsFilename = "group_sessions.json"

// GroupFileStore persists sender-key state per (group, sender) to disk.
type GroupFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewGroupFileStore returns a GroupFileStore rooted at dir.
func NewGroupFileStore(dir string) *GroupFileStore {
	return &GroupFileStore{dir: dir}
}

// SaveGroupSession writes the sender-key state for (groupID, senderID).
func (s *GroupFileStore) SaveGroupSession(groupID, senderID string, st domain.SenderKeyState) error {
	blob, err := st.MarshalBinary()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, groupsFilename)
	m := map[string]taggedBlob{}
	_ = readJSON(path, &m)
	m[groupID+"/"+senderID] = taggedBlob{Type: tagSenderKeyState, Data: blob}
	return writeJSON(path, m, 0o600)
}

// LoadGroupSession retrieves the sender-key state for (groupID, senderID).
func (s *GroupFileStore) LoadGroupSession(groupID, senderID string) (domain.SenderKeyState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, groupsFilename)
	m := map[string]taggedBlob{}
	if err := readJSON(path, &m); err != nil {
		return domain.SenderKeyState{}, false, err
	}
	tb, ok := m[groupID+"/"+senderID]
	if !ok {
		return domain.SenderKeyState{}, false, nil
	}
	if tb.Type != tagSenderKeyState {
		return domain.SenderKeyState{}, false, fmt.Errorf("%w: group session %s/%s has type %q", domain.ErrPersistenceCorrupt, groupID, senderID, tb.Type)
	}
	var st domain.SenderKeyState
	if err := st.UnmarshalBinary(tb.Data); err != nil {
		return domain.SenderKeyState{}, false, fmt.Errorf("%w: group session %s/%s: %v", domain.ErrPersistenceCorrupt, groupID, senderID, err)
	}
	return st, true, nil
}

// Compile-time assertion that GroupFileStore implements domain.GroupStore.
var _ domain.GroupStore = (*GroupFileStore)(nil)
