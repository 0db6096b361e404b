package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "aigent-client/errors"
)

// Session holds the bearer token pair for the current login plus the user's
// theme preference. Tokens are opaque; no validation happens client-side.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Theme        string `json:"theme,omitempty"`
}

// Authenticated reports whether protected calls may carry a bearer token.
// An absent access token means every protected call is unauthenticated.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Store is the token store contract: pure storage, no token inspection.
type Store interface {
	Get() Session
	Set(accessToken, refreshToken string) error
	SetAccess(accessToken string) error
	SetTheme(theme string) error
	Clear() error
}

// FileStore persists the session as a JSON file so it survives restarts.
type FileStore struct {
	mu   sync.Mutex
	path string
	cur  Session
}

// NewFileStore loads any persisted session from path. A missing or
// unreadable file yields an empty session rather than an error: a corrupt
// token file is equivalent to being logged out.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, apperrors.WrapError(err, "read session file")
	}
	if err := json.Unmarshal(data, &fs.cur); err != nil {
		fs.cur = Session{}
	}
	return fs, nil
}

func (fs *FileStore) Get() Session {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.cur
}

func (fs *FileStore) Set(accessToken, refreshToken string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.cur.AccessToken = accessToken
	fs.cur.RefreshToken = refreshToken
	return fs.persist()
}

// SetAccess replaces only the access token, as happens after a refresh.
func (fs *FileStore) SetAccess(accessToken string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.cur.AccessToken = accessToken
	return fs.persist()
}

func (fs *FileStore) SetTheme(theme string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.cur.Theme = theme
	return fs.persist()
}

// Clear drops the tokens but keeps the theme preference, which is cosmetic
// and not tied to the login.
func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.cur.AccessToken = ""
	fs.cur.RefreshToken = ""
	return fs.persist()
}

func (fs *FileStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return apperrors.WrapError(err, "create session dir")
	}
	data, err := json.MarshalIndent(fs.cur, "", "  ")
	if err != nil {
		return apperrors.WrapError(err, "encode session")
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return apperrors.WrapError(err, "write session file")
	}
	return os.Rename(tmp, fs.path)
}

// MemoryStore is an in-process store used by tests.
type MemoryStore struct {
	mu  sync.Mutex
	cur Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (ms *MemoryStore) Get() Session {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.cur
}

func (ms *MemoryStore) Set(accessToken, refreshToken string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cur.AccessToken = accessToken
	ms.cur.RefreshToken = refreshToken
	return nil
}

func (ms *MemoryStore) SetAccess(accessToken string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cur.AccessToken = accessToken
	return nil
}

func (ms *MemoryStore) SetTheme(theme string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cur.Theme = theme
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cur.AccessToken = ""
	ms.cur.RefreshToken = ""
	return nil
}
