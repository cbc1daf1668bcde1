// Package placement selects the Storage Server that hosts a newly
// created file: the ALIVE node with the fewest hosted files, ties
// broken by smallest id.
package placement

import (
	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
	"github.com/shrey715/network-file-system-sub002/nm/namespace"
)

// Choose picks a target SS for a new file, failing with SS_UNAVAILABLE
// if no SS is currently ALIVE.
func Choose(ns *namespace.Namespace) (string, error) {
	id, ok := ns.LeastLoadedAlive()
	if !ok {
		return "", nserrors.New(nserrors.SSUnavailable, "no ALIVE storage server available for placement")
	}
	return id, nil
}
