package store

import (
	"testing"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCreateReadInfo(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))

	body, err := s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "", body)

	info, err := s.Info("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "alice", info.Owner)
	require.Equal(t, 0, info.WordCount)
	require.Equal(t, 0, info.CharCount)
}

func TestCreateDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	err := s.Create("hello.txt", "alice")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.FileExists, ce.Code)
}

func TestWriteLockWordUnlockRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))

	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, -1, "alice", "Hello world. Bye."))
	require.NoError(t, s.WriteUnlock("hello.txt", 0, "alice"))

	body, err := s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello world. Bye.", body)

	info, err := s.Info("hello.txt")
	require.NoError(t, err)
	require.Equal(t, 3, info.WordCount)
	require.Equal(t, 17, info.CharCount)
}

func TestWriteWordRequiresHolder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))

	err := s.WriteWord("hello.txt", 0, -1, "bob", "Hi.")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.NotLockHolder, ce.Code)
}

func TestSecondLockerGetsAlreadyLocked(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))

	err := s.WriteLock("hello.txt", 0, "bob")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.AlreadyLocked, ce.Code)
}

func TestDisconnectRetainsWritesAndFreesLock(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, -1, "alice", "Partial"))

	s.ReleaseConnection("hello.txt", "alice")

	body, err := s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Partial", body)

	require.NoError(t, s.WriteLock("hello.txt", 0, "bob"))
}

func TestLockWithNoWordWritesIsNoopAndUndoIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice")) // body still empty
	require.NoError(t, s.WriteUnlock("hello.txt", 0, "alice"))

	body, err := s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "", body)

	require.NoError(t, s.Undo("hello.txt"))
	body, err = s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "", body)
}

func TestUndoRevertsToPreLockState(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, -1, "alice", "Hello world. Bye."))
	require.NoError(t, s.WriteUnlock("hello.txt", 0, "alice"))

	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, 0, "alice", "Hi"))

	body, err := s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hi world. Bye.", body)

	require.NoError(t, s.Undo("hello.txt"))
	body, err = s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello world. Bye.", body)

	err = s.Undo("hello.txt")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.NoUndoAvailable, ce.Code)
}

func TestCheckpointAndRevert(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, -1, "alice", "Hello world. Bye."))
	require.NoError(t, s.WriteUnlock("hello.txt", 0, "alice"))

	require.NoError(t, s.Checkpoint("hello.txt", "v1"))

	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, 0, "alice", "Hi"))
	require.NoError(t, s.WriteUnlock("hello.txt", 0, "alice"))

	body, err := s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hi world. Bye.", body)

	require.NoError(t, s.Revert("hello.txt", "v1"))
	body, err = s.Read("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello world. Bye.", body)

	// Checkpoint remains valid/addressable after revert.
	viewed, err := s.ViewCheckpoint("hello.txt", "v1")
	require.NoError(t, err)
	require.Equal(t, "Hello world. Bye.", viewed)

	list, err := s.ListCheckpoints("hello.txt")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "v1", list[0].Tag)
}

func TestCheckpointDuplicateTagFails(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.Checkpoint("hello.txt", "v1"))
	err := s.Checkpoint("hello.txt", "v1")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.CheckpointExists, ce.Code)
}

func TestDeleteRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.Checkpoint("hello.txt", "v1"))
	require.NoError(t, s.Delete("hello.txt"))

	require.False(t, s.Has("hello.txt"))
	_, err := s.Read("hello.txt")
	require.Error(t, err)
}

func TestStreamWordsOrder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("hello.txt", "alice"))
	require.NoError(t, s.WriteLock("hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("hello.txt", 0, -1, "alice", "Hello world. Bye."))
	require.NoError(t, s.WriteUnlock("hello.txt", 0, "alice"))

	words, err := s.StreamWords("hello.txt")
	require.NoError(t, err)
	require.Equal(t, []string{"Hello", "world.", "Bye."}, words)
}

func TestFolderScopedKeysDoNotCollide(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("docs/hello.txt", "alice"))
	require.NoError(t, s.Create("notes/hello.txt", "bob"))

	require.NoError(t, s.WriteLock("docs/hello.txt", 0, "alice"))
	require.NoError(t, s.WriteWord("docs/hello.txt", 0, -1, "alice", "In docs."))

	body, err := s.Read("notes/hello.txt")
	require.NoError(t, err)
	require.Equal(t, "", body)
}
