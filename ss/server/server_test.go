package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shrey715/network-file-system-sub002/internal/metrics"
	"github.com/shrey715/network-file-system-sub002/internal/wire"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := Config{
		ListenAddr:        "127.0.0.1:0",
		BaseDir:           t.TempDir(),
		HeartbeatInterval: time.Hour,
		ExecOutputCap:     4096,
		ExecTimeout:       time.Second,
	}
	srv, err := New(cfg, metrics.NewSSMetrics())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	realLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.cfg.ListenAddr = realLn.Addr().String()
	realLn.Close()

	go func() {
		_ = srv.Serve(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	return srv, srv.cfg.ListenAddr
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSSReadRoundTrip(t *testing.T) {
	srv, addr := startTestServer(t)
	require.NoError(t, srv.store.Create("hello.txt", "alice"))

	conn := dial(t, addr)
	req := wire.Request(wire.OpSSRead, "alice")
	req.Header.Filename = "hello.txt"
	resp, err := wire.Call(conn, req)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, resp.Header.Type)
	require.Equal(t, "", string(resp.Payload))
}

func TestSSWriteLockWordUnlockFlow(t *testing.T) {
	srv, addr := startTestServer(t)
	require.NoError(t, srv.store.Create("hello.txt", "alice"))

	conn := dial(t, addr)

	lockReq := wire.Request(wire.OpSSWriteLock, "alice")
	lockReq.Header.Filename = "hello.txt"
	lockReq.Header.SentenceIndex = 0
	resp, err := wire.Call(conn, lockReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	wordReq := wire.Request(wire.OpSSWriteWord, "alice")
	wordReq.Header.Filename = "hello.txt"
	wordReq.Header.SentenceIndex = 0
	wordReq.Header.WordIndex = -1
	wordReq.Payload = []byte("Hello world.")
	resp, err = wire.Call(conn, wordReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	unlockReq := wire.Request(wire.OpSSWriteUnlock, "alice")
	unlockReq.Header.Filename = "hello.txt"
	unlockReq.Header.SentenceIndex = 0
	resp, err = wire.Call(conn, unlockReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	readReq := wire.Request(wire.OpSSRead, "alice")
	readReq.Header.Filename = "hello.txt"
	resp, err = wire.Call(conn, readReq)
	require.NoError(t, err)
	require.Equal(t, "Hello world.", string(resp.Payload))
}

func TestSSWriteLockContentionReturnsError(t *testing.T) {
	srv, addr := startTestServer(t)
	require.NoError(t, srv.store.Create("hello.txt", "alice"))

	connA := dial(t, addr)
	connB := dial(t, addr)

	lockA := wire.Request(wire.OpSSWriteLock, "alice")
	lockA.Header.Filename = "hello.txt"
	lockA.Header.SentenceIndex = 0
	resp, err := wire.Call(connA, lockA)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	lockB := wire.Request(wire.OpSSWriteLock, "bob")
	lockB.Header.Filename = "hello.txt"
	lockB.Header.SentenceIndex = 0
	resp, err = wire.Call(connB, lockB)
	require.NoError(t, err)
	require.Equal(t, wire.MsgError, resp.Header.Type)
}

func TestSSStreamEmitsWordsThenStop(t *testing.T) {
	srv, addr := startTestServer(t)
	require.NoError(t, srv.store.Create("doc.txt", "alice"))
	require.NoError(t, srv.store.WriteLock("doc.txt", 0, "alice"))
	require.NoError(t, srv.store.WriteWord("doc.txt", 0, -1, "alice", "Hello world."))
	require.NoError(t, srv.store.WriteUnlock("doc.txt", 0, "alice"))

	conn := dial(t, addr)
	req := wire.Request(wire.OpStream, "alice")
	req.Header.Filename = "doc.txt"
	require.NoError(t, wire.WriteMessage(conn, req))

	first, err := wire.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, wire.MsgResponse, first.Header.Type)
	require.Equal(t, "Hello", string(first.Payload))

	second, err := wire.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, "world.", string(second.Payload))

	stop, err := wire.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, wire.MsgStop, stop.Header.Type)
}

func TestSSExecDisabledByDefault(t *testing.T) {
	srv, addr := startTestServer(t)
	require.NoError(t, srv.store.Create("script.txt", "alice"))

	conn := dial(t, addr)
	req := wire.Request(wire.OpExec, "alice")
	req.Header.Filename = "script.txt"
	resp, err := wire.Call(conn, req)
	require.NoError(t, err)
	require.Equal(t, wire.MsgError, resp.Header.Type)
}

func TestSSDisconnectReleasesLock(t *testing.T) {
	srv, addr := startTestServer(t)
	require.NoError(t, srv.store.Create("hello.txt", "alice"))

	conn := dial(t, addr)
	lockReq := wire.Request(wire.OpSSWriteLock, "alice")
	lockReq.Header.Filename = "hello.txt"
	lockReq.Header.SentenceIndex = 0
	resp, err := wire.Call(conn, lockReq)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	conn2 := dial(t, addr)
	lockReq2 := wire.Request(wire.OpSSWriteLock, "bob")
	lockReq2.Header.Filename = "hello.txt"
	lockReq2.Header.SentenceIndex = 0
	resp, err = wire.Call(conn2, lockReq2)
	require.NoError(t, err)
	require.Equal(t, wire.MsgAck, resp.Header.Type)
}
