package server

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/shrey715/network-file-system-sub002/internal/wire"
)

// registerWithNM dials the Name Manager once and announces this node's
// stable id, listen address, and current file inventory, so NM can
// reconcile its namespace against what this node actually hosts. A
// re-registering SS never silently keeps stale file-to-SS bindings.
func (s *Server) registerWithNM() error {
	if s.cfg.NMAddr == "" {
		return nil
	}
	conn, err := net.DialTimeout("tcp", s.cfg.NMAddr, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := wire.Request(wire.OpRegisterSS, s.id)
	req.Header.Filename = s.cfg.ListenAddr
	req.Payload = []byte(strings.Join(s.store.Inventory(), "\n"))

	resp, err := wire.Call(conn, req)
	if err != nil {
		return err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return cerr
	}
	s.log.Info("registered with nm", "nm_addr", s.cfg.NMAddr, "files", len(s.store.Inventory()))
	return nil
}

// heartbeatLoop periodically announces liveness to NM until ctx is
// canceled, at the interval the HEARTBEAT op expects.
func (s *Server) heartbeatLoop(ctx context.Context) {
	interval := s.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sendHeartbeat(); err != nil {
				s.log.Warn("heartbeat to nm failed", "error", err)
			}
		}
	}
}

func (s *Server) sendHeartbeat() error {
	if s.cfg.NMAddr == "" {
		return nil
	}
	conn, err := net.DialTimeout("tcp", s.cfg.NMAddr, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := wire.Request(wire.OpHeartbeat, s.id)
	resp, err := wire.Call(conn, req)
	if err != nil {
		return err
	}
	return wire.AsError(resp)
}
