// Package nserrors defines the error taxonomy shared by the Name Manager,
// Storage Server, and wire codec. It is a leaf package: it must never import
// nm, ss, or wire, so that all three can depend on it without a cycle.
package nserrors

import "fmt"

// Code identifies the kind of failure a request produced. Values mirror the
// wire protocol's error_code enum one-to-one.
type Code uint8

const (
	Success Code = iota
	FileNotFound
	FileExists
	InvalidFilename
	InvalidIndex
	PermissionDenied
	NotOwner
	NotLockHolder
	AlreadyLocked
	NoUndoAvailable
	SSUnavailable
	NetworkError
	FileOperationFailed
	FolderNotFound
	FolderExists
	CheckpointExists
	CheckpointNotFound
	AlreadyHasAccess
	PayloadTooLarge
	InvalidRequest
)

// String renders the code using its canonical wire token.
func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case FileNotFound:
		return "FILE_NOT_FOUND"
	case FileExists:
		return "FILE_EXISTS"
	case InvalidFilename:
		return "INVALID_FILENAME"
	case InvalidIndex:
		return "INVALID_INDEX"
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case NotOwner:
		return "NOT_OWNER"
	case NotLockHolder:
		return "NOT_LOCK_HOLDER"
	case AlreadyLocked:
		return "ALREADY_LOCKED"
	case NoUndoAvailable:
		return "NO_UNDO_AVAILABLE"
	case SSUnavailable:
		return "SS_UNAVAILABLE"
	case NetworkError:
		return "NETWORK_ERROR"
	case FileOperationFailed:
		return "FILE_OPERATION_FAILED"
	case FolderNotFound:
		return "FOLDER_NOT_FOUND"
	case FolderExists:
		return "FOLDER_EXISTS"
	case CheckpointExists:
		return "CHECKPOINT_EXISTS"
	case CheckpointNotFound:
		return "CHECKPOINT_NOT_FOUND"
	case AlreadyHasAccess:
		return "ALREADY_HAS_ACCESS"
	case PayloadTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case InvalidRequest:
		return "INVALID_REQUEST"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is a coded failure returned by NM/SS operations. Handlers translate
// it directly into an ERROR wire frame; Flags carries the extra payload
// AlreadyHasAccess needs (the caller's current ACL bits).
type Error struct {
	Code    Code
	Message string
	Flags   uint32
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a coded error with a message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithFlags attaches flag bits to an existing coded error (used for
// ALREADY_HAS_ACCESS, which reports the caller's current permission bits).
func (e *Error) WithFlags(flags uint32) *Error {
	return &Error{Code: e.Code, Message: e.Message, Flags: flags}
}

// As extracts a *Error from err, or reports (nil, false) if err is not one.
func As(err error) (*Error, bool) {
	ce, ok := err.(*Error)
	return ce, ok
}

// CodeOf returns the coded error's Code, or FileOperationFailed for any
// uncoded error — the catch-all for invariant violations and unexpected
// failures that must not crash the server.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return FileOperationFailed
}
