// Package store is the Storage Server's per-file state: the tokenized
// body, sentence lock table, one-slot undo snapshot, and checkpoint
// catalog, each guarded by a single per-file mutex and backed on disk
// in a fixed layout: a main body file, a "<name>.undo" sidecar, a
// "<name>.meta" sidecar, and a "<name>.checkpoint.<tag>" file per
// checkpoint.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/internal/wire"
	"github.com/shrey715/network-file-system-sub002/ss/lockmgr"
	"github.com/shrey715/network-file-system-sub002/ss/sentence"
)

// CheckpointSuffix is the reserved per-checkpoint file suffix component;
// the full name is CheckpointSuffix + "." + tag.
const CheckpointSuffix = ".checkpoint"

const (
	undoSuffix = ".undo"
	metaSuffix = ".meta"
)

// Info is the caller-visible snapshot of a file's metadata (INFO op).
type Info struct {
	Owner      string
	WordCount  int
	CharCount  int
	LastAccess time.Time
	CreatedAt  time.Time
}

// CheckpointInfo describes one entry from LISTCHECKPOINTS.
type CheckpointInfo struct {
	Tag       string
	CreatedAt time.Time
}

// fileState is the in-memory, disk-backed state of a single hosted file.
// Every field is only ever touched while mu is held — this is the single
// per-file mutex covering the lock table, body, undo slot, and
// checkpoint directory together.
type fileState struct {
	mu         sync.Mutex
	key        string // "<folder>/<basename>", unique across this SS
	owner      string
	createdAt  time.Time
	lastAccess time.Time
	body       string
	hasUndo    bool
	locks      *lockmgr.Table
}

// FileStore manages every file hosted by this Storage Server.
type FileStore struct {
	baseDir string

	mu    sync.RWMutex
	files map[string]*fileState
}

// Open prepares a FileStore rooted at baseDir, creating it if needed.
func Open(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir, files: make(map[string]*fileState)}, nil
}

func (s *FileStore) bodyPath(key string) string    { return filepath.Join(s.baseDir, key) }
func (s *FileStore) metaPath(key string) string    { return s.bodyPath(key) + metaSuffix }
func (s *FileStore) undoPath(key string) string    { return s.bodyPath(key) + undoSuffix }
func (s *FileStore) checkpointBody(key, tag string) string {
	return s.bodyPath(key) + CheckpointSuffix + "." + tag
}
func (s *FileStore) checkpointMeta(key, tag string) string {
	return s.checkpointBody(key, tag) + metaSuffix
}

// validKey rejects path traversal; NM is expected to have already validated
// filename/foldername syntax, this is SS's own defense.
func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return nserrors.New(nserrors.InvalidFilename, "invalid file key %q", key)
	}
	return nil
}

func (s *FileStore) lookup(key string) (*fileState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[key]
	return f, ok
}

// Has reports whether key is currently hosted by this store.
func (s *FileStore) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// Create materializes a brand-new, empty file owned by owner.
func (s *FileStore) Create(key, owner string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[key]; exists {
		return nserrors.New(nserrors.FileExists, "file %q already hosted", key)
	}

	now := time.Now()
	if err := writeSync(s.bodyPath(key), nil); err != nil {
		return fmt.Errorf("create body for %q: %w", key, err)
	}
	if err := writeJSON(s.metaPath(key), fileMeta{Owner: owner, CreatedAt: now}); err != nil {
		return fmt.Errorf("create meta for %q: %w", key, err)
	}

	s.files[key] = &fileState{key: key, owner: owner, createdAt: now, lastAccess: now, locks: lockmgr.NewTable()}
	return nil
}

// Adopt registers a file this SS already has on disk (from a prior run or
// a restart reconciliation), without recreating it.
func (s *FileStore) Adopt(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[key]; exists {
		return nil
	}

	body, err := readFile(s.bodyPath(key))
	if err != nil {
		return fmt.Errorf("read body for %q: %w", key, err)
	}
	var meta fileMeta
	if err := readJSON(s.metaPath(key), &meta); err != nil {
		return fmt.Errorf("read meta for %q: %w", key, err)
	}
	_, statErr := os.Stat(s.undoPath(key))

	s.files[key] = &fileState{
		key: key, owner: meta.Owner, createdAt: meta.CreatedAt, lastAccess: meta.CreatedAt,
		body: string(body), hasUndo: statErr == nil, locks: lockmgr.NewTable(),
	}
	return nil
}

// Inventory lists every file key currently hosted, for SS→NM registration.
func (s *FileStore) Inventory() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Delete removes a file's body, undo snapshot, checkpoints, and in-memory
// state.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[key]
	if !ok {
		return nserrors.New(nserrors.FileNotFound, "file %q not hosted here", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	_ = os.Remove(s.bodyPath(key))
	_ = os.Remove(s.metaPath(key))
	_ = os.Remove(s.undoPath(key))
	matches, _ := filepath.Glob(s.bodyPath(key) + CheckpointSuffix + ".*")
	for _, m := range matches {
		_ = os.Remove(m)
	}

	delete(s.files, key)
	return nil
}

func (s *FileStore) require(key string) (*fileState, error) {
	f, ok := s.lookup(key)
	if !ok {
		return nil, nserrors.New(nserrors.FileNotFound, "file %q not hosted here", key)
	}
	return f, nil
}

// Read returns the current byte image of key.
func (s *FileStore) Read(key string) (string, error) {
	f, err := s.require(key)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAccess = time.Now()
	return f.body, nil
}

// Info returns derived counts and metadata for key.
func (s *FileStore) Info(key string) (Info, error) {
	f, err := s.require(key)
	if err != nil {
		return Info{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return Info{
		Owner:      f.owner,
		WordCount:  sentence.WordCount(f.body),
		CharCount:  sentence.CharCount(f.body),
		LastAccess: f.lastAccess,
		CreatedAt:  f.createdAt,
	}, nil
}

// StreamWords returns every word in document order, for STREAM.
func (s *FileStore) StreamWords(key string) ([]string, error) {
	f, err := s.require(key)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return sentence.StreamWords(f.body), nil
}

func (s *FileStore) persistBody(key, body string) error {
	return writeSync(s.bodyPath(key), []byte(body))
}

// WriteLock grants the exclusive lock on (key, sentenceIdx) to user and
// takes a fresh undo snapshot of the entire file body, overwriting any
// prior snapshot.
func (s *FileStore) WriteLock(key string, sentenceIdx int, user string) error {
	f, err := s.require(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := sentence.SentenceAt(f.body, sentenceIdx); err != nil {
		return err
	}
	if err := f.locks.TryLock(sentenceIdx, user); err != nil {
		return err
	}
	if err := writeSync(s.undoPath(key), []byte(f.body)); err != nil {
		return fmt.Errorf("snapshot undo for %q: %w", key, err)
	}
	f.hasUndo = true
	return nil
}

// WriteWord applies one SS_WRITE_WORD mutation, re-deriving the byte image
// and persisting it.
func (s *FileStore) WriteWord(key string, sentenceIdx, wordIdx int, user, content string) error {
	f, err := s.require(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.locks.CheckHolder(sentenceIdx, user); err != nil {
		return err
	}

	var newBody string
	if wordIdx == wire.WordReplaceAll {
		newBody, err = sentence.ReplaceSentence(f.body, sentenceIdx, content)
	} else {
		newBody, err = sentence.ReplaceWord(f.body, sentenceIdx, wordIdx, content)
	}
	if err != nil {
		return err
	}

	if err := s.persistBody(key, newBody); err != nil {
		return fmt.Errorf("persist body for %q: %w", key, err)
	}
	f.body = newBody
	f.lastAccess = time.Now()
	return nil
}

// WriteUnlock releases (key, sentenceIdx), the ETIRW path.
func (s *FileStore) WriteUnlock(key string, sentenceIdx int, user string) error {
	f, err := s.require(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks.Unlock(sentenceIdx, user)
}

// ReleaseConnection drops every lock user holds on key, for implicit
// unlock-on-disconnect. Applied mutations stand.
func (s *FileStore) ReleaseConnection(key, user string) {
	f, ok := s.lookup(key)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks.ReleaseAll(user)
}

// Undo restores key's body from its one-slot undo snapshot and clears it.
func (s *FileStore) Undo(key string) error {
	f, err := s.require(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasUndo {
		return nserrors.New(nserrors.NoUndoAvailable, "no undo snapshot for %q", key)
	}
	snapshot, err := readFile(s.undoPath(key))
	if err != nil {
		return fmt.Errorf("read undo snapshot for %q: %w", key, err)
	}
	if err := s.persistBody(key, string(snapshot)); err != nil {
		return fmt.Errorf("persist undone body for %q: %w", key, err)
	}
	if err := os.Remove(s.undoPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear undo snapshot for %q: %w", key, err)
	}
	f.body = string(snapshot)
	f.hasUndo = false
	return nil
}

// Checkpoint stores an immutable copy of key's current body under tag.
func (s *FileStore) Checkpoint(key, tag string) error {
	f, err := s.require(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(s.checkpointBody(key, tag)); err == nil {
		return nserrors.New(nserrors.CheckpointExists, "checkpoint %q already exists for %q", tag, key)
	}
	if err := writeSync(s.checkpointBody(key, tag), []byte(f.body)); err != nil {
		return fmt.Errorf("write checkpoint %q for %q: %w", tag, key, err)
	}
	return writeJSON(s.checkpointMeta(key, tag), checkpointMeta{Tag: tag, CreatedAt: time.Now()})
}

// ViewCheckpoint returns the stored body for (key, tag).
func (s *FileStore) ViewCheckpoint(key, tag string) (string, error) {
	if _, err := s.require(key); err != nil {
		return "", err
	}
	body, err := readFile(s.checkpointBody(key, tag))
	if err != nil {
		return "", nserrors.New(nserrors.CheckpointNotFound, "checkpoint %q not found for %q", tag, key)
	}
	return string(body), nil
}

// Revert atomically replaces key's current body with checkpoint tag's body
// and clears the undo snapshot: reverting is NOT itself undoable. Existing
// checkpoints, including tag itself, remain valid and addressable
// afterward.
func (s *FileStore) Revert(key, tag string) error {
	f, err := s.require(key)
	if err != nil {
		return err
	}
	body, err := readFile(s.checkpointBody(key, tag))
	if err != nil {
		return nserrors.New(nserrors.CheckpointNotFound, "checkpoint %q not found for %q", tag, key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := s.persistBody(key, string(body)); err != nil {
		return fmt.Errorf("persist reverted body for %q: %w", key, err)
	}
	if err := os.Remove(s.undoPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear undo snapshot for %q: %w", key, err)
	}
	f.body = string(body)
	f.hasUndo = false
	return nil
}

// ListCheckpoints enumerates every checkpoint tag for key with its
// creation time.
func (s *FileStore) ListCheckpoints(key string) ([]CheckpointInfo, error) {
	if _, err := s.require(key); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(s.bodyPath(key) + CheckpointSuffix + ".*" + metaSuffix)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints for %q: %w", key, err)
	}

	infos := make([]CheckpointInfo, 0, len(matches))
	for _, m := range matches {
		var meta checkpointMeta
		if err := readJSON(m, &meta); err != nil {
			continue
		}
		infos = append(infos, CheckpointInfo{Tag: meta.Tag, CreatedAt: meta.CreatedAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos, nil
}
