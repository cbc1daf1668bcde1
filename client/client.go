// Package client is the Go client library used by cmd/nfsclient and by
// integration tests: it dials the Name Manager for every namespace
// operation, and for the data-path operations (READ/WRITE/UNDO/STREAM/
// EXEC) follows NM's locate response to dial the hosting Storage Server
// directly.
package client

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shrey715/network-file-system-sub002/internal/wire"
)

// Client is a connected session against one Name Manager, under one
// username, for the lifetime of the process. Usernames are unique
// among current sessions.
type Client struct {
	nmAddr      string
	username    string
	dialTimeout time.Duration
	conn        net.Conn
}

// Dial connects to the Name Manager at nmAddr and registers username as
// a connected client (CONNECT_CLIENT).
func Dial(nmAddr, username string, dialTimeout time.Duration) (*Client, error) {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	conn, err := net.DialTimeout("tcp", nmAddr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial nm %s: %w", nmAddr, err)
	}
	c := &Client{nmAddr: nmAddr, username: username, dialTimeout: dialTimeout, conn: conn}

	resp, err := wire.Call(conn, wire.Request(wire.OpConnectClient, username))
	if err != nil {
		conn.Close()
		return nil, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		conn.Close()
		return nil, cerr
	}
	return c, nil
}

// Close ends the session's connection to NM.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) callNM(req *wire.Message) (*wire.Message, error) {
	return wire.Call(c.conn, req)
}

func respErr(resp *wire.Message, err error) error {
	if err != nil {
		return err
	}
	return wire.AsError(resp)
}

// ---- Sessions --------------------------------------------------------

// View lists the usernames currently connected to NM.
func (c *Client) View() ([]string, error) {
	resp, err := c.callNM(wire.Request(wire.OpView, c.username))
	if err != nil {
		return nil, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return nil, cerr
	}
	return splitNonEmpty(string(resp.Payload)), nil
}

// ---- Folders -----------------------------------------------------------

// CreateFolder creates a folder at path; its parent must already exist.
func (c *Client) CreateFolder(path string) error {
	req := wire.Request(wire.OpCreateFolder, c.username)
	req.Header.Foldername = path
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// ViewFolder returns a folder's owner and the names of files it directly
// contains.
func (c *Client) ViewFolder(path string) (owner string, files []string, err error) {
	req := wire.Request(wire.OpViewFolder, c.username)
	req.Header.Foldername = path
	resp, err := c.callNM(req)
	if err != nil {
		return "", nil, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return "", nil, cerr
	}
	lines := strings.SplitN(string(resp.Payload), "\n", 2)
	owner = strings.TrimPrefix(lines[0], "owner=")
	if len(lines) > 1 {
		files = splitNonEmpty(lines[1])
	}
	return owner, files, nil
}

// Move relocates a file to destFolder.
func (c *Client) Move(folder, name, destFolder string) error {
	req := wire.Request(wire.OpMove, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	req.Payload = []byte(destFolder)
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// ---- Files ------------------------------------------------------------

// CreateFile reserves and materializes a new empty file.
func (c *Client) CreateFile(folder, name string) error {
	req := wire.Request(wire.OpCreate, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// DeleteFile removes a file, fanning out to its hosting SS.
func (c *Client) DeleteFile(folder, name string) error {
	req := wire.Request(wire.OpDelete, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// FileInfo is the owner/word-count/char-count summary INFO returns.
type FileInfo struct {
	Owner string
	Words int
	Chars int
}

// Info returns a file's owner and derived counts.
func (c *Client) Info(folder, name string) (FileInfo, error) {
	req := wire.Request(wire.OpInfo, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := c.callNM(req)
	if err != nil {
		return FileInfo{}, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return FileInfo{}, cerr
	}
	return parseInfoPayload(string(resp.Payload)), nil
}

func parseInfoPayload(payload string) FileInfo {
	var fi FileInfo
	for _, field := range strings.Fields(payload) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "owner":
			fi.Owner = kv[1]
		case "words":
			fi.Words, _ = strconv.Atoi(kv[1])
		case "chars":
			fi.Chars, _ = strconv.Atoi(kv[1])
		}
	}
	return fi
}

// List returns files in folder: only the caller's own (owned or
// ACL-granted) files unless all is true; includes owner/word/char
// columns when long is true.
func (c *Client) List(folder string, all, long bool) ([]string, error) {
	req := wire.Request(wire.OpList, c.username)
	req.Header.Foldername = folder
	if all {
		req.Header.Flags |= wire.FlagAll
	}
	if long {
		req.Header.Flags |= wire.FlagLong
	}
	resp, err := c.callNM(req)
	if err != nil {
		return nil, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return nil, cerr
	}
	return splitNonEmpty(string(resp.Payload)), nil
}

// ---- Data-path locate + one-shot SS calls -------------------------------

// locate asks NM which Storage Server hosts (folder, name) for the given
// data-path opcode, and returns its address.
func (c *Client) locate(op wire.OpCode, folder, name string) (string, error) {
	req := wire.Request(op, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := c.callNM(req)
	if err != nil {
		return "", err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return "", cerr
	}
	return string(resp.Payload), nil
}

func (c *Client) dialSS(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, c.dialTimeout)
}

// Read fetches a file's full current body.
func (c *Client) Read(folder, name string) (string, error) {
	ssAddr, err := c.locate(wire.OpRead, folder, name)
	if err != nil {
		return "", err
	}
	conn, err := c.dialSS(ssAddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	req := wire.Request(wire.OpSSRead, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := wire.Call(conn, req)
	if err != nil {
		return "", err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return "", cerr
	}
	return string(resp.Payload), nil
}

// Undo restores a file's body to the snapshot the Storage Server took
// when the most recent write lock on that file was granted.
func (c *Client) Undo(folder, name string) error {
	ssAddr, err := c.locate(wire.OpUndo, folder, name)
	if err != nil {
		return err
	}
	conn, err := c.dialSS(ssAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := wire.Request(wire.OpUndo, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := wire.Call(conn, req)
	return respErr(resp, err)
}

// Stream reads a file word by word until the Storage Server sends STOP.
func (c *Client) Stream(folder, name string) ([]string, error) {
	ssAddr, err := c.locate(wire.OpStream, folder, name)
	if err != nil {
		return nil, err
	}
	conn, err := c.dialSS(ssAddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := wire.Request(wire.OpStream, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	if err := wire.WriteMessage(conn, req); err != nil {
		return nil, err
	}

	var words []string
	for {
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			return nil, err
		}
		switch msg.Header.Type {
		case wire.MsgStop:
			return words, nil
		case wire.MsgError:
			return nil, wire.AsError(msg)
		default:
			words = append(words, string(msg.Payload))
		}
	}
}

// Exec runs a file's contents through the hosting Storage Server's shell,
// if that node has EXEC enabled.
func (c *Client) Exec(folder, name string) (string, error) {
	ssAddr, err := c.locate(wire.OpExec, folder, name)
	if err != nil {
		return "", err
	}
	conn, err := c.dialSS(ssAddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	req := wire.Request(wire.OpExec, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := wire.Call(conn, req)
	if err != nil {
		return "", err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return "", cerr
	}
	return string(resp.Payload), nil
}

// ---- ACL & access requests -----------------------------------------------

// Grant sets user's read/write bits on a file. Owner only.
func (c *Client) Grant(folder, name, user string, read, write bool) error {
	req := wire.Request(wire.OpAddAccess, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	req.Payload = []byte(fmt.Sprintf("%s|%t|%t", user, read, write))
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// Revoke removes user's ACL entry. Owner only.
func (c *Client) Revoke(folder, name, user string) error {
	req := wire.Request(wire.OpRemAccess, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	req.Header.CheckpointTag = user
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// RequestAccess files a pending request for the caller's own read/write
// bits on a file the caller doesn't own.
func (c *Client) RequestAccess(folder, name string, read, write bool) error {
	req := wire.Request(wire.OpRequestAccess, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	if read {
		req.Header.Flags |= wire.FlagRead
	}
	if write {
		req.Header.Flags |= wire.FlagWrite
	}
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// ViewRequests lists the pending access requests on a file. Owner only.
func (c *Client) ViewRequests(folder, name string) ([]string, error) {
	req := wire.Request(wire.OpViewRequests, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := c.callNM(req)
	if err != nil {
		return nil, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return nil, cerr
	}
	return splitNonEmpty(string(resp.Payload)), nil
}

// ApproveRequest grants user's pending request. Owner only.
func (c *Client) ApproveRequest(folder, name, user string) error {
	req := wire.Request(wire.OpApproveRequest, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	req.Header.CheckpointTag = user
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// DenyRequest clears user's pending request without granting it. Owner only.
func (c *Client) DenyRequest(folder, name, user string) error {
	req := wire.Request(wire.OpDenyRequest, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	req.Header.CheckpointTag = user
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// ---- Checkpoints -----------------------------------------------------

// Checkpoint creates a named, immutable snapshot of a file's current body.
func (c *Client) Checkpoint(folder, name, tag string) error {
	req := wire.Request(wire.OpCheckpoint, c.username)
	req.Header.Foldername, req.Header.Filename, req.Header.CheckpointTag = folder, name, tag
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// ViewCheckpoint returns the body a named checkpoint captured.
func (c *Client) ViewCheckpoint(folder, name, tag string) (string, error) {
	req := wire.Request(wire.OpViewCheckpoint, c.username)
	req.Header.Foldername, req.Header.Filename, req.Header.CheckpointTag = folder, name, tag
	resp, err := c.callNM(req)
	if err != nil {
		return "", err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return "", cerr
	}
	return string(resp.Payload), nil
}

// Revert replaces a file's current body with a named checkpoint's,
// without invalidating any other checkpoint.
func (c *Client) Revert(folder, name, tag string) error {
	req := wire.Request(wire.OpRevert, c.username)
	req.Header.Foldername, req.Header.Filename, req.Header.CheckpointTag = folder, name, tag
	resp, err := c.callNM(req)
	return respErr(resp, err)
}

// CheckpointInfo is one entry in a file's checkpoint catalog.
type CheckpointInfo struct {
	Tag       string
	CreatedAt time.Time
}

// ListCheckpoints returns a file's checkpoints in creation order.
func (c *Client) ListCheckpoints(folder, name string) ([]CheckpointInfo, error) {
	req := wire.Request(wire.OpListCheckpoints, c.username)
	req.Header.Foldername, req.Header.Filename = folder, name
	resp, err := c.callNM(req)
	if err != nil {
		return nil, err
	}
	if cerr := wire.AsError(resp); cerr != nil {
		return nil, cerr
	}
	var out []CheckpointInfo
	for _, line := range splitNonEmpty(string(resp.Payload)) {
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		nanos, _ := strconv.ParseInt(parts[1], 10, 64)
		out = append(out, CheckpointInfo{Tag: parts[0], CreatedAt: time.Unix(0, nanos)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
