package access

import (
	"testing"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/nm/namespace"
	"github.com/stretchr/testify/require"
)

func testRecord() *namespace.FileRecord {
	return &namespace.FileRecord{
		Name: "a.txt", Folder: "", Owner: "alice",
		ACL: map[string]namespace.ACLEntry{"bob": {Read: true}},
	}
}

func TestEffectiveOwnerIsFull(t *testing.T) {
	read, write := Effective(testRecord(), "alice")
	require.True(t, read)
	require.True(t, write)
}

func TestEffectiveACLEntry(t *testing.T) {
	read, write := Effective(testRecord(), "bob")
	require.True(t, read)
	require.False(t, write)
}

func TestEffectiveNoEntryIsNone(t *testing.T) {
	read, write := Effective(testRecord(), "carol")
	require.False(t, read)
	require.False(t, write)
}

func TestCheckDeniesMissingWrite(t *testing.T) {
	err := Check(testRecord(), "bob", NeedWrite)
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.PermissionDenied, ce.Code)
}

func TestCheckAllowsOwnerEverything(t *testing.T) {
	require.NoError(t, Check(testRecord(), "alice", NeedReadWrite))
}

func TestRequireOwnerRejectsNonOwner(t *testing.T) {
	err := RequireOwner(testRecord(), "bob")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.NotOwner, ce.Code)
}
