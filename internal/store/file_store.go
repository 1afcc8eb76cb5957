package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"parley/internal/domain"
)

const (
	keysFilename = "keys.json"

	identityKeyName = "identity"
	prekeysKeyName  = "prekeys"

	// localUser namespaces the single device identity this store holds.
	localUser = "local"
)

// taggedBlob wraps every byte array with a type tag before it reaches disk;
// JSON base64-encodes the data on the way through.
type taggedBlob struct {
	Type string `json:"type"`
	Data []byte `json:"data"`
}

const (
	tagSealedKey      = "sealed_key"
	tagRatchetState   = "ratchet_state"
	tagSenderKeyState = "sender_key_state"
)

// FileStore keeps key material on disk under a single directory.
// It implements domain.KeyStore, domain.IdentityStore and domain.PreKeyStore.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// SaveKey stores data under (userID, keyName).
func (s *FileStore) SaveKey(userID, keyName string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyLocked(userID, keyName, tagSealedKey, data)
}

// LoadKey retrieves the data stored under (userID, keyName).
func (s *FileStore) LoadKey(userID, keyName string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, _, ok, err := s.loadKeyLocked(userID, keyName)
	return b, ok, err
}

func (s *FileStore) saveKeyLocked(userID, keyName, tag string, data []byte) error {
	path := filepath.Join(s.dir, keysFilename)
	m := map[string]taggedBlob{}
	_ = readJSON(path, &m)
	m[userID+"/"+keyName] = taggedBlob{Type: tag, Data: data}
	return writeJSON(path, m, 0o600)
}

func (s *FileStore) loadKeyLocked(userID, keyName string) ([]byte, string, bool, error) {
	path := filepath.Join(s.dir, keysFilename)
	m := map[string]taggedBlob{}
	if err := readJSON(path, &m); err != nil {
		return nil, "", false, err
	}
	tb, ok := m[userID+"/"+keyName]
	if !ok {
		return nil, "", false, nil
	}
	return tb.Data, tb.Type, true, nil
}

// ---------- Identity ----------

// SaveIdentity seals the identity under the passphrase and stores it.
func (s *FileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	sealed, err := seal(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyLocked(localUser, identityKeyName, tagSealedKey, sealed)
}

// LoadIdentity decrypts and returns the local identity.
func (s *FileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	sealed, _, ok, err := s.loadKeyLocked(localUser, identityKeyName)
	s.mu.Unlock()
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		return domain.Identity{}, fmt.Errorf("no identity found; run init first")
	}
	raw, err := open(passphrase, sealed)
	if err != nil {
		return domain.Identity{}, err
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: identity: %v", domain.ErrPersistenceCorrupt, err)
	}
	return id, nil
}

// ---------- PreKey bundle ----------

// SavePreKeyBundle seals the private bundle material under the passphrase.
func (s *FileStore) SavePreKeyBundle(passphrase string, b domain.PreKeyBundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	sealed, err := seal(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyLocked(localUser, prekeysKeyName, tagSealedKey, sealed)
}

// LoadPreKeyBundle decrypts and returns the private bundle material.
func (s *FileStore) LoadPreKeyBundle(passphrase string) (domain.PreKeyBundle, bool, error) {
	s.mu.Lock()
	sealed, _, ok, err := s.loadKeyLocked(localUser, prekeysKeyName)
	s.mu.Unlock()
	if err != nil || !ok {
		return domain.PreKeyBundle{}, false, err
	}
	raw, err := open(passphrase, sealed)
	if err != nil {
		return domain.PreKeyBundle{}, false, err
	}
	var b domain.PreKeyBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.PreKeyBundle{}, false, fmt.Errorf("%w: prekey bundle: %v", domain.ErrPersistenceCorrupt, err)
	}
	return b, true, nil
}

// Compile-time assertions.
var (
	_ domain.KeyStore      = (*FileStore)(nil)
	_ domain.IdentityStore = (*FileStore)(nil)
	_ domain.PreKeyStore   = (*FileStore)(nil)
)
