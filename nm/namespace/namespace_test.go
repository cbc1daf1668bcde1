package namespace

import (
	"testing"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/stretchr/testify/require"
)

func newTestNamespace(t *testing.T) *Namespace {
	t.Helper()
	ns, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ns.Close() })
	return ns
}

func TestCreateAndGetFile(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "hello.txt", "alice", "ss-1"))

	rec, err := ns.GetFile("", "hello.txt")
	require.NoError(t, err)
	require.Equal(t, "alice", rec.Owner)
	require.Equal(t, "ss-1", rec.SSID)
}

func TestCreateDuplicateFileFails(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "hello.txt", "alice", "ss-1"))
	err := ns.CreateFile("", "hello.txt", "alice", "ss-1")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.FileExists, ce.Code)
}

func TestCreateFileRejectsReservedSuffix(t *testing.T) {
	ns := newTestNamespace(t)
	err := ns.CreateFile("", "hello.meta", "alice", "ss-1")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.InvalidFilename, ce.Code)
}

func TestCreateAndViewFolder(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFolder("docs", "alice"))
	require.NoError(t, ns.CreateFile("docs", "a.txt", "alice", "ss-1"))

	folder, names, err := ns.ViewFolder("docs")
	require.NoError(t, err)
	require.Equal(t, "alice", folder.Owner)
	require.Equal(t, []string{"a.txt"}, names)
}

func TestCreateFolderRequiresParent(t *testing.T) {
	ns := newTestNamespace(t)
	err := ns.CreateFolder("a/b", "alice")
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.FolderNotFound, ce.Code)
}

func TestMoveFile(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFolder("docs", "alice"))
	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))
	require.NoError(t, ns.MoveFile("", "a.txt", "docs"))

	_, err := ns.GetFile("", "a.txt")
	require.Error(t, err)
	rec, err := ns.GetFile("docs", "a.txt")
	require.NoError(t, err)
	require.Equal(t, "docs", rec.Folder)
}

func TestGrantRevokeACL(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))
	require.NoError(t, ns.Grant("", "a.txt", "bob", true, false))

	rec, err := ns.GetFile("", "a.txt")
	require.NoError(t, err)
	require.Equal(t, ACLEntry{Read: true, Write: false}, rec.ACL["bob"])

	require.NoError(t, ns.Revoke("", "a.txt", "bob"))
	rec, err = ns.GetFile("", "a.txt")
	require.NoError(t, err)
	_, ok := rec.ACL["bob"]
	require.False(t, ok)
}

func TestAccessRequestWorkflow(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))

	_, err := ns.RequestAccess("", "a.txt", "bob", true, false)
	require.NoError(t, err)

	reqs, err := ns.ViewRequests("", "a.txt")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, "bob", reqs[0].User)

	require.NoError(t, ns.ApproveRequest("", "a.txt", "bob"))
	rec, err := ns.GetFile("", "a.txt")
	require.NoError(t, err)
	require.Equal(t, ACLEntry{Read: true, Write: false}, rec.ACL["bob"])
	require.Empty(t, rec.Pending)
}

func TestAccessRequestAlreadyHasAccess(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))
	require.NoError(t, ns.Grant("", "a.txt", "bob", true, false))

	flags, err := ns.RequestAccess("", "a.txt", "bob", true, false)
	require.Error(t, err)
	ce, _ := nserrors.As(err)
	require.Equal(t, nserrors.AlreadyHasAccess, ce.Code)
	require.Equal(t, uint32(1), flags)
}

func TestDenyRequestClearsPendingNotACL(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))
	_, err := ns.RequestAccess("", "a.txt", "bob", true, true)
	require.NoError(t, err)

	require.NoError(t, ns.DenyRequest("", "a.txt", "bob"))
	rec, err := ns.GetFile("", "a.txt")
	require.NoError(t, err)
	require.Empty(t, rec.Pending)
	_, ok := rec.ACL["bob"]
	require.False(t, ok)
}

func TestRegisterSSReconciliationDropsMissingFiles(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))
	require.NoError(t, ns.CreateFile("", "b.txt", "alice", "ss-1"))

	dropped, err := ns.RegisterSS("ss-1", "127.0.0.1:9001", []string{"a.txt"})
	require.NoError(t, err)
	require.Equal(t, []string{"b.txt"}, dropped)

	_, err = ns.GetFile("", "b.txt")
	require.Error(t, err)
	_, err = ns.GetFile("", "a.txt")
	require.NoError(t, err)
}

func TestLeastLoadedAlivePicksFewestFiles(t *testing.T) {
	ns := newTestNamespace(t)
	_, err := ns.RegisterSS("ss-1", "127.0.0.1:9001", nil)
	require.NoError(t, err)
	_, err = ns.RegisterSS("ss-2", "127.0.0.1:9002", nil)
	require.NoError(t, err)

	require.NoError(t, ns.CreateFile("", "a.txt", "alice", "ss-1"))

	best, ok := ns.LeastLoadedAlive()
	require.True(t, ok)
	require.Equal(t, "ss-2", best)
}

func TestNamespacePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ns, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, ns.CreateFolder("docs", "alice"))
	require.NoError(t, ns.CreateFile("docs", "a.txt", "alice", "ss-1"))
	require.NoError(t, ns.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.GetFile("docs", "a.txt")
	require.NoError(t, err)
	require.Equal(t, "alice", rec.Owner)
}
