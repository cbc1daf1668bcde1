// Package server is the Name Manager's TCP accept loop and opcode
// dispatch. It is the only component that talks to both clients and
// Storage Servers: client-facing namespace operations are handled here
// directly, data-path operations are locate-only (NM hands back the
// hosting SS's address), and a handful of namespace mutations fan out a
// second request to the hosting SS before committing locally.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shrey715/network-file-system-sub002/internal/logging"
	"github.com/shrey715/network-file-system-sub002/internal/metrics"
	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/internal/wire"
	"github.com/shrey715/network-file-system-sub002/nm/access"
	"github.com/shrey715/network-file-system-sub002/nm/namespace"
	"github.com/shrey715/network-file-system-sub002/nm/placement"
	"github.com/shrey715/network-file-system-sub002/ss/sentence"
)

// Config configures the Name Manager process.
type Config struct {
	ListenAddr        string
	DataDir           string
	LivenessInterval  time.Duration
	SSDialTimeout     time.Duration
}

// Server is the Name Manager node.
type Server struct {
	cfg     Config
	ns      *namespace.Namespace
	log     *slog.Logger
	metrics *metrics.NMMetrics

	// livenessInterval and ssDialTimeout mirror cfg's fields of the same
	// name but are read/written atomically so internal/config can
	// hot-reload them from the NM's Lock/Placement sub-config without
	// pausing in-flight connections or the liveness sweep.
	livenessInterval atomic.Int64
	ssDialTimeout    atomic.Int64
}

// New opens the namespace backing store at cfg.DataDir.
func New(cfg Config, m *metrics.NMMetrics) (*Server, error) {
	ns, err := namespace.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if cfg.LivenessInterval <= 0 {
		cfg.LivenessInterval = 10 * time.Second
	}
	if cfg.SSDialTimeout <= 0 {
		cfg.SSDialTimeout = 5 * time.Second
	}
	s := &Server{cfg: cfg, ns: ns, log: logging.Named("nm"), metrics: m}
	s.livenessInterval.Store(int64(cfg.LivenessInterval))
	s.ssDialTimeout.Store(int64(cfg.SSDialTimeout))
	return s, nil
}

// SetLivenessInterval retunes the SS dead-threshold used by the next
// liveness sweep. Safe to call concurrently with Serve.
func (s *Server) SetLivenessInterval(d time.Duration) {
	if d > 0 {
		s.livenessInterval.Store(int64(d))
	}
}

// SetSSDialTimeout retunes the timeout NM uses when fanning a request out
// to a Storage Server. Safe to call concurrently with Serve.
func (s *Server) SetSSDialTimeout(d time.Duration) {
	if d > 0 {
		s.ssDialTimeout.Store(int64(d))
	}
}

// Namespace exposes the underlying namespace, mainly for admin tooling
// and tests.
func (s *Server) Namespace() *namespace.Namespace { return s.ns }

// Serve accepts and dispatches connections, and runs the liveness sweep,
// until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go s.livenessLoop(ctx)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

// livenessLoop ticks at a fixed cadence but recomputes the dead-threshold
// from the atomically-held, hot-reloadable interval on every tick, so a
// config change takes effect on the next tick rather than requiring the
// ticker itself to be rebuilt.
func (s *Server) livenessLoop(ctx context.Context) {
	const tick = time.Second
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ns.SweepLiveness(time.Duration(s.livenessInterval.Load()))
			if s.metrics != nil {
				for state, n := range s.ns.CountsByState() {
					s.metrics.SSNodesByState.WithLabelValues(state.String()).Set(float64(n))
				}
			}
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	var registeredUser string
	defer func() {
		if registeredUser != "" {
			s.ns.UnregisterClient(registeredUser)
		}
	}()

	for {
		msg, err := wire.ReadMessage(rw)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("connection read error", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}

		rc := logging.NewRequestContext(uuid.NewString(), conn.RemoteAddr().String()).
			WithOp(msg.Header.Op.String(), msg.Header.Username, msg.Header.Filename)
		start := time.Now()

		err = s.dispatch(ctx, rw, msg, &registeredUser)
		if ferr := rw.Flush(); ferr != nil {
			return
		}

		errCode := nserrors.CodeOf(err).String()
		logging.LogRequest(logging.WithContext(ctx, rc), s.log, errCode)
		s.metrics.ObserveOp(msg.Header.Op.String(), errCode, time.Since(start))
	}
}

func (s *Server) dispatch(ctx context.Context, w io.Writer, msg *wire.Message, registeredUser *string) error {
	h := msg.Header
	switch h.Op {
	case wire.OpConnectClient:
		return s.handleConnectClient(w, h, registeredUser)
	case wire.OpRegisterSS:
		return s.handleRegisterSS(w, msg)
	case wire.OpHeartbeat:
		return s.handleHeartbeat(w, h)
	case wire.OpView:
		return s.handleView(w)
	case wire.OpList:
		return s.handleList(w, h)
	case wire.OpInfo:
		return s.handleInfo(w, h)
	case wire.OpCreate:
		return s.handleCreate(w, h)
	case wire.OpDelete:
		return s.handleDelete(w, h)
	case wire.OpRead:
		return s.handleLocate(w, h, access.NeedRead)
	case wire.OpWrite:
		return s.handleLocate(w, h, access.NeedWrite)
	case wire.OpUndo:
		return s.handleLocate(w, h, access.NeedWrite)
	case wire.OpStream:
		return s.handleLocate(w, h, access.NeedRead)
	case wire.OpExec:
		return s.handleLocate(w, h, access.NeedRead)
	case wire.OpAddAccess:
		return s.handleGrant(w, h, string(msg.Payload))
	case wire.OpRemAccess:
		return s.handleRevoke(w, h)
	case wire.OpRequestAccess:
		return s.handleRequestAccess(w, h)
	case wire.OpViewRequests:
		return s.handleViewRequests(w, h)
	case wire.OpApproveRequest:
		return s.handleApproveRequest(w, h)
	case wire.OpDenyRequest:
		return s.handleDenyRequest(w, h)
	case wire.OpCreateFolder:
		return s.handleCreateFolder(w, h)
	case wire.OpMove:
		return s.handleMove(w, h, string(msg.Payload))
	case wire.OpViewFolder:
		return s.handleViewFolder(w, h)
	case wire.OpCheckpoint:
		return s.handleCheckpoint(w, h)
	case wire.OpViewCheckpoint:
		return s.handleViewCheckpoint(w, h)
	case wire.OpRevert:
		return s.handleRevert(w, h)
	case wire.OpListCheckpoints:
		return s.handleListCheckpoints(w, h)
	default:
		err := nserrors.New(nserrors.InvalidRequest, "nm does not handle opcode %s", h.Op)
		s.reply(w, err)
		return err
	}
}

func (s *Server) reply(w io.Writer, err error) {
	if err != nil {
		ce, ok := nserrors.As(err)
		if !ok {
			ce = nserrors.New(nserrors.FileOperationFailed, "%v", err)
		}
		_ = wire.WriteError(w, ce)
		return
	}
	_ = wire.WriteAck(w)
}

// dialSS performs one request/response round trip against a Storage
// Server, used both for NM-fan-out opcodes and for INFO's aggregation.
func (s *Server) dialSS(addr string, req *wire.Message) (*wire.Message, error) {
	conn, err := net.DialTimeout("tcp", addr, time.Duration(s.ssDialTimeout.Load()))
	if err != nil {
		return nil, nserrors.New(nserrors.SSUnavailable, "dial ss %s: %v", addr, err)
	}
	defer conn.Close()
	resp, err := wire.Call(conn, req)
	if err != nil {
		return nil, nserrors.New(nserrors.SSUnavailable, "call ss %s: %v", addr, err)
	}
	return resp, nil
}

func (s *Server) fileAndSS(folder, name string) (namespace.FileRecord, namespace.SSRecord, error) {
	rec, err := s.ns.GetFile(folder, name)
	if err != nil {
		return namespace.FileRecord{}, namespace.SSRecord{}, err
	}
	ss, ok := s.ns.SSByID(rec.SSID)
	if !ok || ss.State != namespace.SSAlive {
		return rec, namespace.SSRecord{}, nserrors.New(nserrors.SSUnavailable, "storage server for %q is unavailable", rec.Key())
	}
	return rec, ss, nil
}

// ---- Client sessions -------------------------------------------------

func (s *Server) handleConnectClient(w io.Writer, h wire.Header, registeredUser *string) error {
	if err := s.ns.RegisterClient(h.Username, ""); err != nil {
		s.reply(w, err)
		return err
	}
	*registeredUser = h.Username
	s.reply(w, nil)
	return nil
}

func (s *Server) handleView(w io.Writer) error {
	users := s.ns.ListUsers()
	err := wire.WriteResponse(w, []byte(strings.Join(users, "\n")))
	return err
}

// ---- SS registry -------------------------------------------------------

func (s *Server) handleRegisterSS(w io.Writer, msg *wire.Message) error {
	var inventory []string
	if len(msg.Payload) > 0 {
		inventory = strings.Split(string(msg.Payload), "\n")
	}
	dropped, err := s.ns.RegisterSS(msg.Header.Username, msg.Header.Filename, inventory)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if len(dropped) > 0 {
		s.log.Warn("ss registration dropped stale file records", "ss", msg.Header.Username, "count", len(dropped))
	}
	s.reply(w, nil)
	return nil
}

func (s *Server) handleHeartbeat(w io.Writer, h wire.Header) error {
	err := s.ns.Heartbeat(h.Username)
	s.reply(w, err)
	return err
}

// ---- Folders -------------------------------------------------------------

func (s *Server) handleCreateFolder(w io.Writer, h wire.Header) error {
	err := s.ns.CreateFolder(h.Foldername, h.Username)
	s.reply(w, err)
	return err
}

func (s *Server) handleViewFolder(w io.Writer, h wire.Header) error {
	folder, names, err := s.ns.ViewFolder(h.Foldername)
	if err != nil {
		s.reply(w, err)
		return err
	}
	payload := fmt.Sprintf("owner=%s\n%s", folder.Owner, strings.Join(names, "\n"))
	return wire.WriteResponse(w, []byte(payload))
}

// handleMove reads the destination folder from the payload: MaxPath (256
// bytes) doesn't fit in the header's MaxTag (32-byte) slot, so MOVE is one
// of the few ops that needs its payload for something other than file
// content.
func (s *Server) handleMove(w io.Writer, h wire.Header, destFolder string) error {
	rec, err := s.ns.GetFile(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, access.NeedWrite); err != nil {
		s.reply(w, err)
		return err
	}
	err = s.ns.MoveFile(h.Foldername, h.Filename, destFolder)
	s.reply(w, err)
	return err
}

// ---- Files -------------------------------------------------------------

func (s *Server) handleCreate(w io.Writer, h wire.Header) error {
	ssid, err := placement.Choose(s.ns)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := s.ns.CreateFile(h.Foldername, h.Filename, h.Username, ssid); err != nil {
		s.reply(w, err)
		return err
	}
	ss, _ := s.ns.SSByID(ssid)

	req := wire.Request(wire.OpCreate, h.Username)
	req.Header.Filename = h.Filename
	req.Header.Foldername = h.Foldername
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil || wire.AsError(resp) != nil {
		s.ns.RollbackFile(h.Foldername, h.Filename)
		if err == nil {
			err = wire.AsError(resp)
		}
		s.reply(w, err)
		return err
	}
	s.reply(w, nil)
	return nil
}

func (s *Server) handleDelete(w io.Writer, h wire.Header) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.RequireOwner(&rec, h.Username); err != nil {
		s.reply(w, err)
		return err
	}

	req := wire.Request(wire.OpSSDelete, h.Username)
	req.Header.Filename = h.Filename
	req.Header.Foldername = h.Foldername
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		s.reply(w, cerr)
		return cerr
	}
	err = s.ns.DeleteFile(h.Foldername, h.Filename)
	s.reply(w, err)
	return err
}

func (s *Server) handleInfo(w io.Writer, h wire.Header) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, access.NeedRead); err != nil {
		s.reply(w, err)
		return err
	}

	req := wire.Request(wire.OpSSRead, h.Username)
	req.Header.Filename = h.Filename
	req.Header.Foldername = h.Foldername
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		s.reply(w, cerr)
		return cerr
	}
	body := string(resp.Payload)
	wc, cc := sentence.WordCount(body), sentence.CharCount(body)
	s.ns.UpdateCounts(h.Foldername, h.Filename, wc, cc)

	payload := fmt.Sprintf("owner=%s words=%d chars=%d", rec.Owner, wc, cc)
	return wire.WriteResponse(w, []byte(payload))
}

// handleList renders NM's own cached per-file counts rather than dialing
// every hosting SS: counts reflect the last INFO on each file, not a
// live re-read. Accepted as a staleness tradeoff for `-l`.
func (s *Server) handleList(w io.Writer, h wire.Header) error {
	all := h.Flags&wire.FlagAll != 0
	long := h.Flags&wire.FlagLong != 0
	recs := s.ns.ListFiles(h.Foldername, h.Username, all)

	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		if long {
			lines = append(lines, fmt.Sprintf("%s\t%s\t%d\t%d", r.Name, r.Owner, r.WordCount, r.CharCount))
		} else {
			lines = append(lines, r.Name)
		}
	}
	return wire.WriteResponse(w, []byte(strings.Join(lines, "\n")))
}

// ---- Data-path locate-only ops ------------------------------------------

func (s *Server) handleLocate(w io.Writer, h wire.Header, need access.Bits) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, need); err != nil {
		s.reply(w, err)
		return err
	}
	return wire.WriteResponse(w, []byte(ss.Addr))
}

// ---- ACL & access requests -----------------------------------------------

func (s *Server) handleGrant(w io.Writer, h wire.Header, payload string) error {
	rec, err := s.ns.GetFile(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.RequireOwner(&rec, h.Username); err != nil {
		s.reply(w, err)
		return err
	}
	target, read, write := decodeGrantPayload(payload)
	err = s.ns.Grant(h.Foldername, h.Filename, target, read, write)
	s.reply(w, err)
	return err
}

func (s *Server) handleRevoke(w io.Writer, h wire.Header) error {
	rec, err := s.ns.GetFile(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.RequireOwner(&rec, h.Username); err != nil {
		s.reply(w, err)
		return err
	}
	err = s.ns.Revoke(h.Foldername, h.Filename, h.CheckpointTag) // CheckpointTag slot reused to carry the target username
	s.reply(w, err)
	return err
}

func (s *Server) handleRequestAccess(w io.Writer, h wire.Header) error {
	read := h.Flags&wire.FlagRead != 0
	write := h.Flags&wire.FlagWrite != 0
	flags, err := s.ns.RequestAccess(h.Foldername, h.Filename, h.Username, read, write)
	if err != nil {
		if ce, ok := nserrors.As(err); ok && ce.Code == nserrors.AlreadyHasAccess {
			_ = wire.WriteError(w, ce.WithFlags(flags))
			return err
		}
		s.reply(w, err)
		return err
	}
	if s.metrics != nil {
		s.metrics.AccessRequests.Inc()
	}
	s.reply(w, nil)
	return nil
}

func (s *Server) handleViewRequests(w io.Writer, h wire.Header) error {
	rec, err := s.ns.GetFile(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.RequireOwner(&rec, h.Username); err != nil {
		s.reply(w, err)
		return err
	}
	reqs, err := s.ns.ViewRequests(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, fmt.Sprintf("%s\tread=%v\twrite=%v", r.User, r.Read, r.Write))
	}
	return wire.WriteResponse(w, []byte(strings.Join(lines, "\n")))
}

func (s *Server) handleApproveRequest(w io.Writer, h wire.Header) error {
	rec, err := s.ns.GetFile(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.RequireOwner(&rec, h.Username); err != nil {
		s.reply(w, err)
		return err
	}
	err = s.ns.ApproveRequest(h.Foldername, h.Filename, h.CheckpointTag) // target user carried in CheckpointTag slot
	s.reply(w, err)
	return err
}

func (s *Server) handleDenyRequest(w io.Writer, h wire.Header) error {
	rec, err := s.ns.GetFile(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.RequireOwner(&rec, h.Username); err != nil {
		s.reply(w, err)
		return err
	}
	err = s.ns.DenyRequest(h.Foldername, h.Filename, h.CheckpointTag)
	s.reply(w, err)
	return err
}

// ---- Checkpoints ---------------------------------------------------------

func (s *Server) handleCheckpoint(w io.Writer, h wire.Header) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, access.NeedWrite); err != nil {
		s.reply(w, err)
		return err
	}

	req := wire.Request(wire.OpSSCheckpoint, h.Username)
	req.Header.Filename, req.Header.Foldername, req.Header.CheckpointTag = h.Filename, h.Foldername, h.CheckpointTag
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		s.reply(w, cerr)
		return cerr
	}
	err = s.ns.RecordCheckpoint(h.Foldername, h.Filename, h.CheckpointTag)
	s.reply(w, err)
	return err
}

func (s *Server) handleViewCheckpoint(w io.Writer, h wire.Header) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, access.NeedRead); err != nil {
		s.reply(w, err)
		return err
	}

	req := wire.Request(wire.OpSSRead, h.Username)
	req.Header.Filename, req.Header.Foldername, req.Header.CheckpointTag = h.Filename, h.Foldername, h.CheckpointTag
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		s.reply(w, cerr)
		return cerr
	}
	return wire.WriteResponse(w, resp.Payload)
}

func (s *Server) handleRevert(w io.Writer, h wire.Header) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, access.NeedWrite); err != nil {
		s.reply(w, err)
		return err
	}

	req := wire.Request(wire.OpSSRevert, h.Username)
	req.Header.Filename, req.Header.Foldername, req.Header.CheckpointTag = h.Filename, h.Foldername, h.CheckpointTag
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil {
		s.reply(w, err)
		return err
	}
	cerr := wire.AsError(resp)
	s.reply(w, cerr)
	return cerr
}

func (s *Server) handleListCheckpoints(w io.Writer, h wire.Header) error {
	rec, ss, err := s.fileAndSS(h.Foldername, h.Filename)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if err := access.Check(&rec, h.Username, access.NeedRead); err != nil {
		s.reply(w, err)
		return err
	}

	req := wire.Request(wire.OpSSRead, h.Username)
	req.Header.Filename, req.Header.Foldername = h.Filename, h.Foldername
	req.Header.Flags = wire.FlagCheckpointList
	resp, err := s.dialSS(ss.Addr, req)
	if err != nil {
		s.reply(w, err)
		return err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		s.reply(w, cerr)
		return cerr
	}
	return wire.WriteResponse(w, resp.Payload)
}

// decodeGrantPayload parses ADDACCESS's payload, "username|read|write",
// since a grant target's own read/write bits don't fit the header's
// reserved flag bits (those are occupied by LIST's -a/-l on that opcode
// family already, and reusing them would collide semantically).
func decodeGrantPayload(payload string) (user string, read, write bool) {
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) < 1 {
		return "", false, false
	}
	user = parts[0]
	if len(parts) > 1 {
		read, _ = strconv.ParseBool(parts[1])
	}
	if len(parts) > 2 {
		write, _ = strconv.ParseBool(parts[2])
	}
	return user, read, write
}
