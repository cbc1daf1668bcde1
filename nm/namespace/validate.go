package namespace

import (
	"strings"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/internal/wire"
)

// reservedSuffixes are forbidden at file creation because they collide
// with the SS's persisted sidecar layout.
var reservedSuffixes = []string{".meta", ".undo", ".stats"}

// ValidateFilename enforces the filename rules.
func ValidateFilename(name string) error {
	if name == "" || len(name) > wire.MaxFilename {
		return nserrors.New(nserrors.InvalidFilename, "filename %q: empty or exceeds %d bytes", name, wire.MaxFilename)
	}
	if strings.Contains(name, "/") || strings.ContainsRune(name, 0) {
		return nserrors.New(nserrors.InvalidFilename, "filename %q: contains '/' or NUL", name)
	}
	for _, suf := range reservedSuffixes {
		if strings.HasSuffix(name, suf) {
			return nserrors.New(nserrors.InvalidFilename, "filename %q: reserved suffix %q", name, suf)
		}
	}
	if strings.Contains(name, ".checkpoint.") || strings.HasSuffix(name, ".checkpoint") {
		return nserrors.New(nserrors.InvalidFilename, "filename %q: reserved checkpoint suffix", name)
	}
	return nil
}

// ValidateFolderPath enforces the folder path rules. It does not check
// parent existence; callers check that against the namespace.
func ValidateFolderPath(path string) error {
	if path == "" {
		return nil // root
	}
	if len(path) > wire.MaxPath {
		return nserrors.New(nserrors.InvalidFilename, "folder path %q exceeds %d bytes", path, wire.MaxPath)
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return nserrors.New(nserrors.InvalidFilename, "folder path %q: no leading/trailing slash", path)
	}
	for _, comp := range strings.Split(path, "/") {
		if comp == "" || comp == "." || comp == ".." {
			return nserrors.New(nserrors.InvalidFilename, "folder path %q: empty or relative component %q", path, comp)
		}
	}
	return nil
}

// ParentPath returns the parent folder path of path ("" for a top-level folder).
func ParentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// ValidateCheckpointTag enforces the checkpoint tag rules.
func ValidateCheckpointTag(tag string) error {
	if tag == "" || len(tag) > wire.MaxTag {
		return nserrors.New(nserrors.InvalidRequest, "checkpoint tag %q: empty or exceeds %d bytes", tag, wire.MaxTag)
	}
	for _, r := range tag {
		if r <= 0x20 || r > 0x7e {
			return nserrors.New(nserrors.InvalidRequest, "checkpoint tag %q: non-printable-ASCII or whitespace", tag)
		}
	}
	return nil
}
