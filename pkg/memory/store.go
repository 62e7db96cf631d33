package memory

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionKeyVersion = "v1"

// SessionIdentity is the canonical addressing for one conversation.
type SessionIdentity struct {
	Channel string
	ChatID  string
	ActorID string
}

func (id SessionIdentity) valid() bool {
	return strings.TrimSpace(id.Channel) != "" &&
		strings.TrimSpace(id.ChatID) != "" &&
		strings.TrimSpace(id.ActorID) != ""
}

func (id SessionIdentity) canonical() string {
	return strings.ToLower(strings.TrimSpace(id.Channel)) + "|" +
		strings.TrimSpace(id.ChatID) + "|" +
		strings.TrimSpace(id.ActorID)
}

// SessionKey derives the stable opaque session id for this identity.
func (id SessionIdentity) SessionKey() string {
	sum := sha1.Sum([]byte(id.canonical()))
	return sessionKeyVersion + ":" + hex.EncodeToString(sum[:16])
}

// FileStore persists one JSON record per session id under dir.
// A per-session mutex serializes load-mutate-save so concurrent
// requests for the same session cannot lose updates.
type FileStore struct {
	dir string

	mu        sync.Mutex
	sessions  map[string]*sync.Mutex
	ephemeral string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:      dir,
		sessions: make(map[string]*sync.Mutex),
	}
}

// ResolveSessionID returns the stable session id for identity. An
// incomplete identity (bare REPL use) falls back to an id derived once
// per process from ambient entropy and cached for the store's lifetime.
func (s *FileStore) ResolveSessionID(identity SessionIdentity) string {
	if identity.valid() {
		return identity.SessionKey()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ephemeral == "" {
		seed := fmt.Sprintf("%d|%d|%s", time.Now().UnixNano(), os.Getpid(), uuid.NewString())
		sum := sha1.Sum([]byte(seed))
		s.ephemeral = sessionKeyVersion + ":" + hex.EncodeToString(sum[:16])
	}
	return s.ephemeral
}

// Lock acquires the per-session mutex; the caller must invoke the
// returned release func when its load-mutate-save cycle is done.
func (s *FileStore) Lock(sessionID string) func() {
	s.mu.Lock()
	m, ok := s.sessions[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.sessions[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Load reads the persisted record for sessionID. A missing file is the
// normal new-user path and yields a default-initialized profile; a
// present but unreadable record is an error.
func (s *FileStore) Load(sessionID string) (*Profile, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return NewProfile(), nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	profile := NewProfile()
	if err := json.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return profile, nil
}

// Save overwrites the record for sessionID atomically (temp file plus
// rename) so a concurrent reader never sees a partial write.
func (s *FileStore) Save(sessionID string, profile *Profile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	target := s.path(sessionID)
	tmp, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// reSessionID is the exact shape ResolveSessionID mints. Callers
// accepting session ids from the outside (the gateway) must not trust
// any other shape.
var reSessionID = regexp.MustCompile(`^v1:[0-9a-f]{32}$`)

// ValidSessionID reports whether id has the shape this store mints.
func ValidSessionID(id string) bool {
	return reSessionID.MatchString(id)
}

var reSafeFileID = regexp.MustCompile(`^[A-Za-z0-9:_-]+$`)

func (s *FileStore) path(sessionID string) string {
	// Session ids carry a "v1:" prefix; keep filenames shell-friendly.
	// An id with path separators or other hostile bytes must never
	// climb out of the store directory, so anything off-shape is
	// re-keyed by its hash.
	if !reSafeFileID.MatchString(sessionID) {
		sum := sha1.Sum([]byte(sessionID))
		sessionID = "h-" + hex.EncodeToString(sum[:16])
	}
	name := strings.ReplaceAll(sessionID, ":", "-") + ".json"
	return filepath.Join(s.dir, name)
}
