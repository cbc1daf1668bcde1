package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shrey715/network-file-system-sub002/internal/metrics"
	"github.com/shrey715/network-file-system-sub002/internal/wire"
	ssserver "github.com/shrey715/network-file-system-sub002/ss/server"
)

func startTestNM(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := Config{
		ListenAddr:       "127.0.0.1:0",
		DataDir:          t.TempDir(),
		LivenessInterval: time.Hour,
		SSDialTimeout:    2 * time.Second,
	}
	srv, err := New(cfg, metrics.NewNMMetrics())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.cfg.ListenAddr = ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	return srv, srv.cfg.ListenAddr
}

func startTestSS(t *testing.T, nmAddr string) string {
	t.Helper()
	cfg := ssserver.Config{
		ListenAddr:        "127.0.0.1:0",
		NMAddr:            nmAddr,
		BaseDir:           t.TempDir(),
		HeartbeatInterval: time.Hour,
	}
	srv, err := ssserver.New(cfg, metrics.NewSSMetrics())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.Serve(ctx) }()
	time.Sleep(100 * time.Millisecond)
	return addr
}

func dialNM(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// startCluster launches an SS then an NM configured to accept its
// registration, waiting until the SS is visible to NM as ALIVE.
func startCluster(t *testing.T) (nmAddr string) {
	t.Helper()
	nm, nmAddrLocal := startTestNM(t)
	startTestSS(t, nmAddrLocal)

	require.Eventually(t, func() bool {
		_, ok := nm.ns.LeastLoadedAlive()
		return ok
	}, 3*time.Second, 20*time.Millisecond)
	return nmAddrLocal
}

func TestNMConnectClientAndView(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	req := wire.Request(wire.OpConnectClient, "alice")
	resp, err := wire.Call(conn, req)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	viewReq := wire.Request(wire.OpView, "alice")
	resp, err = wire.Call(conn, viewReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)
	require.Contains(t, string(resp.Payload), "alice")
}

func TestNMCreateLocateAndReadRoundTrip(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "hello.txt"
	resp, err := wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	locateReq := wire.Request(wire.OpRead, "alice")
	locateReq.Header.Filename = "hello.txt"
	resp, err = wire.Call(conn, locateReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)
	ssAddr := string(resp.Payload)
	require.NotEmpty(t, ssAddr)

	ssConn := dialNM(t, ssAddr)
	readReq := wire.Request(wire.OpSSRead, "alice")
	readReq.Header.Filename = "hello.txt"
	resp, err = wire.Call(ssConn, readReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)
	require.Equal(t, "", string(resp.Payload))
}

func TestNMReadDeniedForNonOwnerWithoutACL(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "secret.txt"
	resp, err := wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	locateReq := wire.Request(wire.OpRead, "bob")
	locateReq.Header.Filename = "secret.txt"
	resp, err = wire.Call(conn, locateReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgError, resp.Header.Type)
}

func TestNMGrantThenReadSucceeds(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "shared.txt"
	resp, err := wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	grantReq := wire.Request(wire.OpAddAccess, "alice")
	grantReq.Header.Filename = "shared.txt"
	grantReq.Payload = []byte("bob|true|false")
	resp, err = wire.Call(conn, grantReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	locateReq := wire.Request(wire.OpRead, "bob")
	locateReq.Header.Filename = "shared.txt"
	resp, err = wire.Call(conn, locateReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)
}

func TestNMRequestAccessWorkflow(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "doc.txt"
	resp, err := wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	reqAccess := wire.Request(wire.OpRequestAccess, "bob")
	reqAccess.Header.Filename = "doc.txt"
	reqAccess.Header.Flags = wire.FlagRead
	resp, err = wire.Call(conn, reqAccess)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	viewReq := wire.Request(wire.OpViewRequests, "alice")
	viewReq.Header.Filename = "doc.txt"
	resp, err = wire.Call(conn, viewReq)
	require.NoError(t, err)
	require.Contains(t, string(resp.Payload), "bob")

	approveReq := wire.Request(wire.OpApproveRequest, "alice")
	approveReq.Header.Filename = "doc.txt"
	approveReq.Header.CheckpointTag = "bob"
	resp, err = wire.Call(conn, approveReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	locateReq := wire.Request(wire.OpRead, "bob")
	locateReq.Header.Filename = "doc.txt"
	resp, err = wire.Call(conn, locateReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)
}

func TestNMCheckpointCreateViewRevertList(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "versioned.txt"
	resp, err := wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	ckReq := wire.Request(wire.OpCheckpoint, "alice")
	ckReq.Header.Filename = "versioned.txt"
	ckReq.Header.CheckpointTag = "v1"
	resp, err = wire.Call(conn, ckReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	listReq := wire.Request(wire.OpListCheckpoints, "alice")
	listReq.Header.Filename = "versioned.txt"
	resp, err = wire.Call(conn, listReq)
	require.NoError(t, err)
	require.Contains(t, string(resp.Payload), "v1")

	viewReq := wire.Request(wire.OpViewCheckpoint, "alice")
	viewReq.Header.Filename = "versioned.txt"
	viewReq.Header.CheckpointTag = "v1"
	resp, err = wire.Call(conn, viewReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)

	revertReq := wire.Request(wire.OpRevert, "alice")
	revertReq.Header.Filename = "versioned.txt"
	revertReq.Header.CheckpointTag = "v1"
	resp, err = wire.Call(conn, revertReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)
}

func TestNMMoveFile(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	mkdirReq := wire.Request(wire.OpCreateFolder, "alice")
	mkdirReq.Header.Foldername = "archive"
	resp, err := wire.Call(conn, mkdirReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "note.txt"
	resp, err = wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	moveReq := wire.Request(wire.OpMove, "alice")
	moveReq.Header.Filename = "note.txt"
	moveReq.Payload = []byte("archive")
	resp, err = wire.Call(conn, moveReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	viewReq := wire.Request(wire.OpViewFolder, "alice")
	viewReq.Header.Foldername = "archive"
	resp, err = wire.Call(conn, viewReq)
	require.NoError(t, err)
	require.Contains(t, string(resp.Payload), "note.txt")
}

func TestNMDeleteRemovesFileAndFansOutToSS(t *testing.T) {
	nmAddr := startCluster(t)
	conn := dialNM(t, nmAddr)

	createReq := wire.Request(wire.OpCreate, "alice")
	createReq.Header.Filename = "gone.txt"
	resp, err := wire.Call(conn, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	delReq := wire.Request(wire.OpDelete, "alice")
	delReq.Header.Filename = "gone.txt"
	resp, err = wire.Call(conn, delReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	locateReq := wire.Request(wire.OpRead, "alice")
	locateReq.Header.Filename = "gone.txt"
	resp, err = wire.Call(conn, locateReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgError, resp.Header.Type)
}
