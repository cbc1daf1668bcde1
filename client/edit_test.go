package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shrey715/network-file-system-sub002/internal/metrics"
	nmserver "github.com/shrey715/network-file-system-sub002/nm/server"
	ssserver "github.com/shrey715/network-file-system-sub002/ss/server"
)

func startTestNM(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cfg := nmserver.Config{
		ListenAddr:       addr,
		DataDir:          t.TempDir(),
		LivenessInterval: time.Hour,
		SSDialTimeout:    2 * time.Second,
	}
	srv, err := nmserver.New(cfg, metrics.NewNMMetrics())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	return addr
}

func startTestSS(t *testing.T, nmAddr string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cfg := ssserver.Config{
		ListenAddr:        addr,
		NMAddr:            nmAddr,
		BaseDir:           t.TempDir(),
		HeartbeatInterval: time.Hour,
	}
	srv, err := ssserver.New(cfg, metrics.NewSSMetrics())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()
	time.Sleep(100 * time.Millisecond)
}

func startTestCluster(t *testing.T) (nmAddr string) {
	t.Helper()
	nmAddr = startTestNM(t)
	startTestSS(t, nmAddr)
	time.Sleep(150 * time.Millisecond) // let the SS's registration land
	return nmAddr
}

func TestEditSessionLockWordUnlock(t *testing.T) {
	nmAddr := startTestCluster(t)

	c, err := Dial(nmAddr, "alice", time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.CreateFile("", "hello.txt"))

	es, err := c.BeginEdit("", "hello.txt")
	require.NoError(t, err)
	defer es.Close()

	require.NoError(t, es.Lock(0))
	require.NoError(t, es.WriteWord(0, -1, "Hello world."))
	require.NoError(t, es.Unlock(0))

	body, err := c.Read("", "hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello world.", body)
}
