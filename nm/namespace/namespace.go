package namespace

import (
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
)

// Namespace is the Name Manager's single shared structure: folders,
// files, ACLs, pending requests, and the SS registry, guarded by one
// reader-writer lock. Mutators that touch more than one
// field (e.g. approve = move pending→ACL and clear pending) execute as
// a single critical section.
type Namespace struct {
	db *badger.DB

	mu       sync.RWMutex
	folders  map[string]*Folder
	files    map[string]*FileRecord
	ssNodes  map[string]*SSRecord
	sessions map[string]*Session // keyed by username, never persisted
}

// Open loads (or initializes) a namespace backed by a badger database at dir.
func Open(dir string) (*Namespace, error) {
	db, err := openBadger(dir)
	if err != nil {
		return nil, err
	}
	folders, files, ssNodes, err := loadAll(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, ok := folders[""]; !ok {
		root := &Folder{Path: "", Owner: "", CreatedAt: time.Now()}
		if err := putJSON(db, folderKey(""), root); err != nil {
			db.Close()
			return nil, err
		}
		folders[""] = root
	}
	return &Namespace{
		db:       db,
		folders:  folders,
		files:    files,
		ssNodes:  ssNodes,
		sessions: make(map[string]*Session),
	}, nil
}

// Close releases the underlying badger database.
func (ns *Namespace) Close() error { return ns.db.Close() }

// ---- Client sessions ----------------------------------------------------

// RegisterClient opens a session for username, failing if one is already
// connected under that name.
func (ns *Namespace) RegisterClient(username, remoteAddr string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, exists := ns.sessions[username]; exists {
		return nserrors.New(nserrors.InvalidRequest, "user %q already connected", username)
	}
	ns.sessions[username] = &Session{Username: username, RemoteAddr: remoteAddr, RegisteredAt: time.Now()}
	return nil
}

// UnregisterClient closes username's session, e.g. on TCP disconnect.
func (ns *Namespace) UnregisterClient(username string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	delete(ns.sessions, username)
}

// ListUsers returns the currently connected usernames, sorted.
func (ns *Namespace) ListUsers() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	out := make([]string, 0, len(ns.sessions))
	for u := range ns.sessions {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ---- Folders --------------------------------------------------------------

// CreateFolder adds a new folder, requiring its parent to already exist.
func (ns *Namespace) CreateFolder(path, owner string) error {
	if err := ValidateFolderPath(path); err != nil {
		return err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, exists := ns.folders[path]; exists {
		return nserrors.New(nserrors.FolderExists, "folder %q already exists", path)
	}
	parent := ParentPath(path)
	if _, ok := ns.folders[parent]; !ok {
		return nserrors.New(nserrors.FolderNotFound, "parent folder %q does not exist", parent)
	}
	f := &Folder{Path: path, Owner: owner, CreatedAt: time.Now()}
	if err := putJSON(ns.db, folderKey(path), f); err != nil {
		return err
	}
	ns.folders[path] = f
	return nil
}

// ViewFolder returns a folder and the names of files it directly contains.
func (ns *Namespace) ViewFolder(path string) (*Folder, []string, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	f, ok := ns.folders[path]
	if !ok {
		return nil, nil, nserrors.New(nserrors.FolderNotFound, "folder %q not found", path)
	}
	var names []string
	for _, rec := range ns.files {
		if rec.Folder == path {
			names = append(names, rec.Name)
		}
	}
	sort.Strings(names)
	cp := *f
	return &cp, names, nil
}

// ---- Files ------------------------------------------------------------

// CreateFile reserves a new file record owned by owner, hosted on ssid.
// Call RollbackFile if the SS fails to materialize the body afterward.
func (ns *Namespace) CreateFile(folder, name, owner, ssid string) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, ok := ns.folders[folder]; !ok {
		return nserrors.New(nserrors.FolderNotFound, "folder %q does not exist", folder)
	}
	key := fileKey(folder, name)
	if _, exists := ns.files[key]; exists {
		return nserrors.New(nserrors.FileExists, "file %q already exists", key)
	}

	rec := &FileRecord{
		Name: name, Folder: folder, Owner: owner, SSID: ssid,
		LastAccess:  time.Now(),
		ACL:         make(map[string]ACLEntry),
		Pending:     make(map[string]PendingRequest),
		Checkpoints: make(map[string]CheckpointRef),
	}
	if err := putJSON(ns.db, fileRecKey(key), rec); err != nil {
		return err
	}
	ns.files[key] = rec
	if ss, ok := ns.ssNodes[ssid]; ok {
		ss.Files[key] = struct{}{}
	}
	return nil
}

// RollbackFile removes a just-reserved file record.
func (ns *Namespace) RollbackFile(folder, name string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	key := fileKey(folder, name)
	if rec, ok := ns.files[key]; ok {
		if ss, ok := ns.ssNodes[rec.SSID]; ok {
			delete(ss.Files, key)
		}
	}
	delete(ns.files, key)
	_ = deleteKey(ns.db, fileRecKey(key))
}

// DeleteFile removes a file record. Callers must verify ownership via
// nm/access before calling, and must have already had the SS delete the
// body.
func (ns *Namespace) DeleteFile(folder, name string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	key := fileKey(folder, name)
	rec, ok := ns.files[key]
	if !ok {
		return nserrors.New(nserrors.FileNotFound, "file %q not found", key)
	}
	if ss, ok := ns.ssNodes[rec.SSID]; ok {
		delete(ss.Files, key)
	}
	delete(ns.files, key)
	return deleteKey(ns.db, fileRecKey(key))
}

// GetFile returns a copy of the file record at (folder, name).
func (ns *Namespace) GetFile(folder, name string) (FileRecord, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	rec, ok := ns.files[fileKey(folder, name)]
	if !ok {
		return FileRecord{}, nserrors.New(nserrors.FileNotFound, "file %q not found", fileKey(folder, name))
	}
	return cloneFileRecord(rec), nil
}

// ListFiles returns file records in folder. If all is false, only files
// owned by username (or with an ACL entry for username) are returned.
func (ns *Namespace) ListFiles(folder, username string, all bool) []FileRecord {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	var out []FileRecord
	for _, rec := range ns.files {
		if rec.Folder != folder {
			continue
		}
		if !all {
			_, hasACL := rec.ACL[username]
			if rec.Owner != username && !hasACL {
				continue
			}
		}
		out = append(out, cloneFileRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MoveFile relocates a file record to a new folder, preserving its key
// in the new namespace ((folder, basename) must remain unique).
func (ns *Namespace) MoveFile(folder, name, newFolder string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.folders[newFolder]; !ok {
		return nserrors.New(nserrors.FolderNotFound, "folder %q does not exist", newFolder)
	}
	oldKey := fileKey(folder, name)
	rec, ok := ns.files[oldKey]
	if !ok {
		return nserrors.New(nserrors.FileNotFound, "file %q not found", oldKey)
	}
	newKey := fileKey(newFolder, name)
	if _, exists := ns.files[newKey]; exists {
		return nserrors.New(nserrors.FileExists, "file %q already exists", newKey)
	}

	moved := cloneFileRecord(rec)
	moved.Folder = newFolder
	if err := putJSON(ns.db, fileRecKey(newKey), &moved); err != nil {
		return err
	}
	if err := deleteKey(ns.db, fileRecKey(oldKey)); err != nil {
		return err
	}
	delete(ns.files, oldKey)
	ns.files[newKey] = &moved
	return nil
}

// touchAccessCounts updates a file's derived counts and last-access
// time, called by nm/server's INFO handler after it re-reads the body
// from the SS.
func (ns *Namespace) touchAccessCounts(folder, name string, wordCount, charCount int) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, ok := ns.files[fileKey(folder, name)]
	if !ok {
		return
	}
	rec.WordCount, rec.CharCount, rec.LastAccess = wordCount, charCount, time.Now()
	_ = putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

// UpdateCounts is the exported form of touchAccessCounts.
func (ns *Namespace) UpdateCounts(folder, name string, wordCount, charCount int) {
	ns.touchAccessCounts(folder, name, wordCount, charCount)
}

func cloneFileRecord(rec *FileRecord) FileRecord {
	cp := *rec
	cp.ACL = make(map[string]ACLEntry, len(rec.ACL))
	for k, v := range rec.ACL {
		cp.ACL[k] = v
	}
	cp.Pending = make(map[string]PendingRequest, len(rec.Pending))
	for k, v := range rec.Pending {
		cp.Pending[k] = v
	}
	cp.Checkpoints = make(map[string]CheckpointRef, len(rec.Checkpoints))
	for k, v := range rec.Checkpoints {
		cp.Checkpoints[k] = v
	}
	return cp
}

// ---- ACL & access requests ----------------------------------------------

// Grant sets user's ACL bits on (folder, name).
func (ns *Namespace) Grant(folder, name, user string, read, write bool) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, err := ns.requireFile(folder, name)
	if err != nil {
		return err
	}
	rec.ACL[user] = ACLEntry{Read: read, Write: write}
	return putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

// Revoke removes user's ACL entry on (folder, name), if any.
func (ns *Namespace) Revoke(folder, name, user string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, err := ns.requireFile(folder, name)
	if err != nil {
		return err
	}
	delete(rec.ACL, user)
	return putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

// RequestAccess files a pending request for user on (folder, name),
// superseding any prior pending request.
// If user already holds the requested bits, it fails with
// ALREADY_HAS_ACCESS, reporting the current bits via the returned flags.
func (ns *Namespace) RequestAccess(folder, name, user string, read, write bool) (uint32, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, err := ns.requireFile(folder, name)
	if err != nil {
		return 0, err
	}

	curRead, curWrite := rec.Owner == user, rec.Owner == user
	if !curRead && !curWrite {
		if e, ok := rec.ACL[user]; ok {
			curRead, curWrite = e.Read, e.Write
		}
	}
	if (!read || curRead) && (!write || curWrite) {
		flags := effectiveFlags(curRead, curWrite)
		return flags, alreadyHasAccessErr(user, flags)
	}

	rec.Pending[user] = PendingRequest{User: user, Read: read, Write: write, Timestamp: time.Now()}
	return 0, putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

func effectiveFlags(read, write bool) uint32 {
	var f uint32
	if read {
		f |= 1 << 0
	}
	if write {
		f |= 1 << 1
	}
	return f
}

func alreadyHasAccessErr(user string, flags uint32) error {
	return nserrors.New(nserrors.AlreadyHasAccess, "%q already has the requested access", user).WithFlags(flags)
}

// ViewRequests returns the pending requests on (folder, name), sorted by user.
func (ns *Namespace) ViewRequests(folder, name string) ([]PendingRequest, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	rec, ok := ns.files[fileKey(folder, name)]
	if !ok {
		return nil, nserrors.New(nserrors.FileNotFound, "file %q not found", fileKey(folder, name))
	}
	out := make([]PendingRequest, 0, len(rec.Pending))
	for _, p := range rec.Pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out, nil
}

// ApproveRequest moves user's pending request into the ACL in a single
// critical section.
func (ns *Namespace) ApproveRequest(folder, name, user string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, err := ns.requireFile(folder, name)
	if err != nil {
		return err
	}
	req, ok := rec.Pending[user]
	if !ok {
		return nserrors.New(nserrors.InvalidRequest, "no pending request from %q", user)
	}
	rec.ACL[user] = ACLEntry{Read: req.Read, Write: req.Write}
	delete(rec.Pending, user)
	return putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

// DenyRequest clears user's pending request without mutating the ACL.
func (ns *Namespace) DenyRequest(folder, name, user string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, err := ns.requireFile(folder, name)
	if err != nil {
		return err
	}
	if _, ok := rec.Pending[user]; !ok {
		return nserrors.New(nserrors.InvalidRequest, "no pending request from %q", user)
	}
	delete(rec.Pending, user)
	return putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

func (ns *Namespace) requireFile(folder, name string) (*FileRecord, error) {
	rec, ok := ns.files[fileKey(folder, name)]
	if !ok {
		return nil, nserrors.New(nserrors.FileNotFound, "file %q not found", fileKey(folder, name))
	}
	return rec, nil
}

// ---- Checkpoint cache ----------------------------------------------------

// RecordCheckpoint updates NM's (file, tag) existence cache after the SS
// ACKs a checkpoint creation. NM's catalog tracks (file, tag) existence
// only as a cache; the SS remains authoritative.
func (ns *Namespace) RecordCheckpoint(folder, name, tag string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	rec, err := ns.requireFile(folder, name)
	if err != nil {
		return err
	}
	rec.Checkpoints[tag] = CheckpointRef{Tag: tag, CreatedAt: time.Now()}
	return putJSON(ns.db, fileRecKey(rec.Key()), rec)
}

// ListCheckpoints returns NM's cached checkpoint catalog for (folder, name).
func (ns *Namespace) ListCheckpoints(folder, name string) ([]CheckpointRef, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	rec, ok := ns.files[fileKey(folder, name)]
	if !ok {
		return nil, nserrors.New(nserrors.FileNotFound, "file %q not found", fileKey(folder, name))
	}
	out := make([]CheckpointRef, 0, len(rec.Checkpoints))
	for _, c := range rec.Checkpoints {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- SS registry -----------------------------------------------------

// RegisterSS registers (or re-registers, across a restart) a Storage
// Server under a stable id, reconciling its reported inventory against
// NM's namespace: any file
// record still pointing at this id whose name is absent from inventory
// is dropped, logged as an invariant repair rather than crashing NM.
func (ns *Namespace) RegisterSS(id, addr string, inventory []string) (dropped []string, err error) {
	if id == "" {
		id = uuid.NewString()
	}
	inv := make(map[string]struct{}, len(inventory))
	for _, k := range inventory {
		inv[k] = struct{}{}
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	for key, rec := range ns.files {
		if rec.SSID != id {
			continue
		}
		if _, hosted := inv[key]; !hosted {
			dropped = append(dropped, key)
			delete(ns.files, key)
			_ = deleteKey(ns.db, fileRecKey(key))
		}
	}

	rec := &SSRecord{ID: id, Addr: addr, State: SSAlive, LastHeartbeat: time.Now(), Files: make(map[string]struct{}, len(inv))}
	for key := range inv {
		if _, stillOurs := ns.files[key]; stillOurs {
			rec.Files[key] = struct{}{}
		}
	}
	ns.ssNodes[id] = rec
	if err := putJSON(ns.db, ssKey(id), persistedSS{ID: id, Addr: addr}); err != nil {
		return dropped, err
	}
	return dropped, nil
}

// Heartbeat marks id as freshly alive.
func (ns *Namespace) Heartbeat(id string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ss, ok := ns.ssNodes[id]
	if !ok {
		return nserrors.New(nserrors.SSUnavailable, "ss %q not registered", id)
	}
	ss.State = SSAlive
	ss.LastHeartbeat = time.Now()
	return nil
}

// SweepLiveness promotes SS nodes to SUSPECT/DEAD based on elapsed time
// since their last heartbeat: three missed intervals → SUSPECT, one more
// missed interval → DEAD.
func (ns *Namespace) SweepLiveness(interval time.Duration) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	now := time.Now()
	for _, ss := range ns.ssNodes {
		elapsed := now.Sub(ss.LastHeartbeat)
		switch {
		case elapsed > 4*interval:
			ss.State = SSDead
		case elapsed > 3*interval:
			ss.State = SSSuspect
		}
	}
}

// SSByID returns a copy of the SS record for id.
func (ns *Namespace) SSByID(id string) (SSRecord, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	ss, ok := ns.ssNodes[id]
	if !ok {
		return SSRecord{}, false
	}
	cp := *ss
	cp.Files = make(map[string]struct{}, len(ss.Files))
	for k := range ss.Files {
		cp.Files[k] = struct{}{}
	}
	return cp, true
}

// CountsByState tallies registered SS nodes by liveness state, for the
// admin metrics gauge.
func (ns *Namespace) CountsByState() map[SSState]int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	counts := map[SSState]int{SSAlive: 0, SSSuspect: 0, SSDead: 0}
	for _, ss := range ns.ssNodes {
		counts[ss.State]++
	}
	return counts
}

// LeastLoadedAlive returns the id of the ALIVE SS with the fewest hosted
// files, tie-broken by smallest id.
func (ns *Namespace) LeastLoadedAlive() (string, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	best, bestCount := "", -1
	for id, ss := range ns.ssNodes {
		if ss.State != SSAlive {
			continue
		}
		n := len(ss.Files)
		if bestCount == -1 || n < bestCount || (n == bestCount && id < best) {
			best, bestCount = id, n
		}
	}
	return best, best != ""
}
