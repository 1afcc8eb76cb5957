package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"parley/internal/domain"
)

const sessionsFilename = "sessions.json"

// SessionFileStore persists per-peer Double Ratchet state to disk through the
// versioned binary codec.
type SessionFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir}
}

// SaveSession writes the ratchet state for (userID, peerID).
func (s *SessionFileStore) SaveSession(userID, peerID string, st domain.RatchetState) error {
	blob, err := st.MarshalBinary()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	m := map[string]taggedBlob{}
	_ = readJSON(path, &m)
	m[userID+"/"+peerID] = taggedBlob{Type: tagRatchetState, Data: blob}
	return writeJSON(path, m, 0o600)
}

// LoadSession retrieves the ratchet state for (userID, peerID). A blob that
// fails to decode surfaces domain.ErrPersistenceCorrupt.
func (s *SessionFileStore) LoadSession(userID, peerID string) (domain.RatchetState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	m := map[string]taggedBlob{}
	if err := readJSON(path, &m); err != nil {
		return domain.RatchetState{}, false, err
	}
	tb, ok := m[userID+"/"+peerID]
	if !ok {
		return domain.RatchetState{}, false, nil
	}
	if tb.Type != tagRatchetState {
		return domain.RatchetState{}, false, fmt.Errorf("%w: session %s/%s has type %q", domain.ErrPersistenceCorrupt, userID, peerID, tb.Type)
	}
	var st domain.RatchetState
	if err := st.UnmarshalBinary(tb.Data); err != nil {
		return domain.RatchetState{}, false, fmt.Errorf("%w: session %s/%s: %v", domain.ErrPersistenceCorrupt, userID, peerID, err)
	}
	return st, true, nil
}

// DeleteSession removes the stored state for (userID, peerID), forcing a fresh
// handshake on the next exchange.
func (s *SessionFileStore) DeleteSession(userID, peerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	m := map[string]taggedBlob{}
	if err := readJSON(path, &m); err != nil {
		return err
	}
	delete(m, userID+"/"+peerID)
	return writeJSON(path, m, 0o600)
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)
