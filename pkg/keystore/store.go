// Package keystore persists account keys under a backend's keystore path.
package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/altuslabsxyz/workspaces-go/internal/fileio"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// Common errors for keystore operations.
var (
	ErrNotFound          = errors.New("credentials not found")
	ErrInvalidCredential = errors.New("invalid credential file")
)

// Store loads and saves account keys.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the key of id, or ErrNotFound.
	Load(id types.AccountID) (types.SecretKey, error)

	// Save writes the key of id, replacing any previous one.
	Save(id types.AccountID, sk types.SecretKey) error

	// Delete removes the key of id. Deleting a missing key is not an error.
	Delete(id types.AccountID) error
}

// credentialFile is the on-disk format, one file per account.
type credentialFile struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
	SecretKey  string `json:"secret_key,omitempty"`
}

// FileStore keeps one "<account id>.json" file per account in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store's directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the credential file of id.
func (s *FileStore) Path(id types.AccountID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

// Load reads the key of id.
func (s *FileStore) Load(id types.AccountID) (types.SecretKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cf, err := fileio.LoadJSON[credentialFile](s.Path(id))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return types.SecretKey{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case fileio.IsParseError(err):
		return types.SecretKey{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case err != nil:
		return types.SecretKey{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	if cf.AccountID != "" && cf.AccountID != id.String() {
		return types.SecretKey{}, fmt.Errorf("%w: %s belongs to %s", ErrInvalidCredential, s.Path(id), cf.AccountID)
	}

	encoded := cf.PrivateKey
	if encoded == "" {
		encoded = cf.SecretKey
	}
	sk, err := types.ParseSecretKey(encoded)
	if err != nil {
		return types.SecretKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidCredential, s.Path(id), err)
	}
	if cf.PublicKey != "" && cf.PublicKey != sk.PublicKey().String() {
		return types.SecretKey{}, fmt.Errorf("%w: %s: public key does not match", ErrInvalidCredential, s.Path(id))
	}
	return sk, nil
}

// Save writes the key of id with owner-only permissions.
func (s *FileStore) Save(id types.AccountID, sk types.SecretKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fileio.SaveJSON(s.Path(id), credentialFile{
		AccountID:  id.String(),
		PublicKey:  sk.PublicKey().String(),
		PrivateKey: sk.Encode(),
	}, 0o600, 0o700)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Delete removes the key of id.
func (s *FileStore) Delete(id types.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// List returns the accounts with stored keys, sorted.
func (s *FileStore) List() ([]types.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []types.AccountID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := types.ParseAccountID(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// MemoryStore keeps keys in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[types.AccountID]types.SecretKey
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[types.AccountID]types.SecretKey)}
}

func (s *MemoryStore) Load(id types.AccountID) (types.SecretKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.keys[id]
	if !ok {
		return types.SecretKey{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sk, nil
}

func (s *MemoryStore) Save(id types.AccountID, sk types.SecretKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = sk
	return nil
}

func (s *MemoryStore) Delete(id types.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	return nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
