package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const idFileName = ".node_id"

// loadOrCreateNodeID returns this SS's stable id, favoring stable ids plus
// lookup over direct pointers, persisting a freshly generated one on
// first startup so restarts re-register under the same id and NM's
// inventory reconciliation can recognize them.
func loadOrCreateNodeID(baseDir string) (string, error) {
	path := filepath.Join(baseDir, idFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", err
	}
	return id, nil
}
