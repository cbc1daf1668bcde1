package lockmgr

import (
	"testing"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/stretchr/testify/require"
)

func TestTryLockAndContention(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.TryLock(0, "alice"))

	err := tbl.TryLock(0, "bob")
	require.Error(t, err)
	ce, ok := nserrors.As(err)
	require.True(t, ok)
	require.Equal(t, nserrors.AlreadyLocked, ce.Code)

	require.NoError(t, tbl.TryLock(0, "alice"))
}

func TestUnlockThenRelock(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.TryLock(0, "alice"))
	require.NoError(t, tbl.Unlock(0, "alice"))
	require.NoError(t, tbl.TryLock(0, "bob"))
}

func TestCheckHolderMismatch(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.TryLock(0, "alice"))

	err := tbl.CheckHolder(0, "bob")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.NotLockHolder, ce.Code)
}

func TestReleaseAll(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.TryLock(0, "alice"))
	require.NoError(t, tbl.TryLock(1, "alice"))
	tbl.ReleaseAll("alice")

	require.NoError(t, tbl.TryLock(0, "bob"))
	require.NoError(t, tbl.TryLock(1, "bob"))
}

func TestUnlockNotHolderFails(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.TryLock(0, "alice"))
	require.Error(t, tbl.Unlock(0, "bob"))
}
