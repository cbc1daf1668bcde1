// Package lockmgr implements the sentence-lock table for a single file:
// WRITE_LOCK/WRITE_WORD/WRITE_UNLOCK holder tracking.
//
// Table is intentionally not thread-safe on its own: a single per-file
// mutex guards the lock table together with the body,
// undo slot, and checkpoint directory, so ss/store.FileStore owns that
// mutex and calls Table's methods from inside its critical sections.
package lockmgr

import "github.com/shrey715/network-file-system-sub002/internal/nserrors"

// Table tracks, for one file, which user (if any) holds each sentence's
// exclusive lock.
type Table struct {
	holders map[int]string
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{holders: make(map[int]string)}
}

// TryLock grants the lock on sentence to user, or returns ALREADY_LOCKED if
// another user already holds it. Re-locking a sentence you already hold is
// a no-op success — the write-lock call is also how an undo snapshot gets
// refreshed, see ss/store.
func (t *Table) TryLock(sentence int, user string) error {
	if holder, locked := t.holders[sentence]; locked && holder != user {
		return nserrors.New(nserrors.AlreadyLocked, "sentence %d is held by %s", sentence, holder)
	}
	t.holders[sentence] = user
	return nil
}

// CheckHolder returns NOT_LOCK_HOLDER unless user currently holds sentence.
func (t *Table) CheckHolder(sentence int, user string) error {
	holder, locked := t.holders[sentence]
	if !locked || holder != user {
		return nserrors.New(nserrors.NotLockHolder, "sentence %d is not held by %s", sentence, user)
	}
	return nil
}

// Unlock releases sentence if user is its current holder.
func (t *Table) Unlock(sentence int, user string) error {
	if err := t.CheckHolder(sentence, user); err != nil {
		return err
	}
	delete(t.holders, sentence)
	return nil
}

// ReleaseAll drops every lock user holds in this table, for
// connection-loss cleanup.
func (t *Table) ReleaseAll(user string) {
	for s, holder := range t.holders {
		if holder == user {
			delete(t.holders, s)
		}
	}
}

// HolderOf reports the current holder of sentence, if any.
func (t *Table) HolderOf(sentence int) (string, bool) {
	holder, ok := t.holders[sentence]
	return holder, ok
}
