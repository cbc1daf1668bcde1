// Package access implements the Name Manager's effective-permission
// algorithm: owner gets everything, ACL entries grant
// read/write bits, everyone else gets nothing.
package access

import (
	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/nm/namespace"
)

// Bits is the subset of {read, write} a caller needs for an operation.
type Bits struct {
	Read  bool
	Write bool
}

var (
	NeedRead       = Bits{Read: true}
	NeedWrite      = Bits{Write: true}
	NeedReadWrite  = Bits{Read: true, Write: true}
	NeedOwnership  = Bits{} // checked separately via RequireOwner
)

// Effective returns the (read, write) bits user has on a file:
// owner → full; ACL entry → its bits; else → none.
func Effective(rec *namespace.FileRecord, user string) (read, write bool) {
	if rec.Owner == user {
		return true, true
	}
	if e, ok := rec.ACL[user]; ok {
		return e.Read, e.Write
	}
	return false, false
}

// Check verifies user holds at least the bits required, returning
// PERMISSION_DENIED otherwise.
func Check(rec *namespace.FileRecord, user string, need Bits) error {
	read, write := Effective(rec, user)
	if need.Read && !read {
		return nserrors.New(nserrors.PermissionDenied, "%q lacks read access to %q", user, rec.Key())
	}
	if need.Write && !write {
		return nserrors.New(nserrors.PermissionDenied, "%q lacks write access to %q", user, rec.Key())
	}
	return nil
}

// RequireOwner enforces the ownership-only operations: delete, grant,
// revoke, approve, deny, viewrequests.
func RequireOwner(rec *namespace.FileRecord, user string) error {
	if rec.Owner != user {
		return nserrors.New(nserrors.NotOwner, "%q is not the owner of %q", user, rec.Key())
	}
	return nil
}
