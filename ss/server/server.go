// Package server is the Storage Server's TCP accept loop and opcode
// dispatch for both client↔SS data-path traffic and NM↔SS fan-out
// traffic, plus its heartbeat sender.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shrey715/network-file-system-sub002/internal/logging"
	"github.com/shrey715/network-file-system-sub002/internal/metrics"
	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/internal/wire"
	"github.com/shrey715/network-file-system-sub002/ss/store"
)

// Config configures one Storage Server process.
type Config struct {
	ListenAddr        string
	NMAddr            string
	BaseDir           string
	HeartbeatInterval time.Duration
	AllowExec         bool
	ExecOutputCap     int
	ExecTimeout       time.Duration
}

// Server is one Storage Server node.
type Server struct {
	cfg     Config
	store   *store.FileStore
	id      string
	log     *slog.Logger
	metrics *metrics.SSMetrics
}

// New opens the file store at cfg.BaseDir and assigns this node its
// stable id (generated on first run, persisted thereafter).
func New(cfg Config, m *metrics.SSMetrics) (*Server, error) {
	fs, err := store.Open(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	id, err := loadOrCreateNodeID(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	if cfg.ExecOutputCap == 0 {
		cfg.ExecOutputCap = 64 << 10
	}
	if cfg.ExecTimeout == 0 {
		cfg.ExecTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg, store: fs, id: id, log: logging.Named("ss"), metrics: m}, nil
}

// ID returns this node's stable id.
func (s *Server) ID() string { return s.id }

// Serve accepts and dispatches connections until ctx is canceled.
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

	if err := s.registerWithNM(); err != nil {
		s.log.Warn("initial registration with NM failed", "error", err)
	}
	go s.heartbeatLoop(ctx)

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

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	heldFiles := make(map[string]struct{})
	lastUser := ""
	defer func() {
		for key := range heldFiles {
			s.store.ReleaseConnection(key, lastUser)
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
		if msg.Header.Username != "" {
			lastUser = msg.Header.Username
		}

		rc := logging.NewRequestContext(uuid.NewString(), conn.RemoteAddr().String()).
			WithOp(msg.Header.Op.String(), msg.Header.Username, msg.Header.Filename)
		start := time.Now()

		err = s.dispatch(ctx, rw, msg, heldFiles)
		if ferr := rw.Flush(); ferr != nil {
			return
		}

		errCode := nserrors.CodeOf(err).String()
		logging.LogRequest(logging.WithContext(ctx, rc), s.log, errCode)
		s.metrics.ObserveOp(msg.Header.Op.String(), time.Since(start))
	}
}

func (s *Server) dispatch(ctx context.Context, w io.Writer, msg *wire.Message, heldFiles map[string]struct{}) error {
	key := fileKey(msg.Header.Foldername, msg.Header.Filename)
	user := msg.Header.Username

	var err error
	switch msg.Header.Op {
	case wire.OpCreate:
		// NM forwards the bare CREATE opcode here after reserving the
		// namespace entry, to have the hosting SS materialize the empty
		// file body (no dedicated SS_CREATE opcode exists).
		err = s.store.Create(key, user)
	case wire.OpSSRead:
		err = s.handleRead(w, msg, key)
		if err != nil {
			s.reply(w, err)
		}
		return err
	case wire.OpSSWriteLock:
		err = s.store.WriteLock(key, int(msg.Header.SentenceIndex), user)
		if err == nil {
			heldFiles[key] = struct{}{}
		} else if ce, ok := nserrors.As(err); ok && ce.Code == nserrors.AlreadyLocked && s.metrics != nil {
			s.metrics.LockContention.Inc()
		}
	case wire.OpSSWriteWord:
		content := wire.UnescapeNewlines(string(msg.Payload))
		err = s.store.WriteWord(key, int(msg.Header.SentenceIndex), int(msg.Header.WordIndex), user, content)
	case wire.OpSSWriteUnlock:
		err = s.store.WriteUnlock(key, int(msg.Header.SentenceIndex), user)
	case wire.OpUndo:
		err = s.store.Undo(key)
	case wire.OpStream:
		err = s.handleStream(w, key)
		if err != nil {
			s.reply(w, err)
		}
		return err
	case wire.OpExec:
		err = s.handleExec(ctx, w, key)
		if err != nil {
			s.reply(w, err)
		}
		return err
	case wire.OpSSDelete:
		err = s.store.Delete(key)
	case wire.OpSSCheckpoint:
		err = s.store.Checkpoint(key, msg.Header.CheckpointTag)
		if err == nil && s.metrics != nil {
			s.metrics.Checkpoints.Inc()
		}
	case wire.OpSSRevert:
		err = s.store.Revert(key, msg.Header.CheckpointTag)
	default:
		err = nserrors.New(nserrors.InvalidRequest, "ss does not handle opcode %s", msg.Header.Op)
	}

	s.reply(w, err)
	return err
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

func (s *Server) handleRead(w io.Writer, msg *wire.Message, key string) error {
	switch {
	case msg.Header.Flags&wire.FlagCheckpointList != 0:
		infos, err := s.store.ListCheckpoints(key)
		if err != nil {
			return err
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
		var payload []byte
		for _, c := range infos {
			payload = append(payload, []byte(fmt.Sprintf("%s|%d\n", c.Tag, c.CreatedAt.UnixNano()))...)
		}
		return wire.WriteResponse(w, payload)
	case msg.Header.CheckpointTag != "":
		body, err := s.store.ViewCheckpoint(key, msg.Header.CheckpointTag)
		if err != nil {
			return err
		}
		return wire.WriteResponse(w, []byte(body))
	default:
		body, err := s.store.Read(key)
		if err != nil {
			return err
		}
		return wire.WriteResponse(w, []byte(body))
	}
}

// handleStream emits one RESPONSE per word in document order, then STOP.
func (s *Server) handleStream(w io.Writer, key string) error {
	words, err := s.store.StreamWords(key)
	if err != nil {
		return err
	}
	for _, word := range words {
		if err := wire.WriteResponse(w, []byte(word)); err != nil {
			return err
		}
	}
	return wire.WriteStop(w)
}

// handleExec runs the file body through a shell, bounding output size and
// runtime. Acknowledged dangerous; hardened builds may gate it off
// entirely via AllowExec.
func (s *Server) handleExec(ctx context.Context, w io.Writer, key string) error {
	if !s.cfg.AllowExec {
		return nserrors.New(nserrors.PermissionDenied, "EXEC is disabled on this node")
	}
	body, err := s.store.Read(key)
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecTimeout)
	defer cancel()
	cmd := exec.CommandContext(execCtx, "sh", "-c", body)
	out, _ := cmd.CombinedOutput()
	if len(out) > s.cfg.ExecOutputCap {
		out = out[:s.cfg.ExecOutputCap]
	}
	return wire.WriteResponse(w, out)
}

func fileKey(folder, name string) string {
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
