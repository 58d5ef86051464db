// Package snapshot holds the caller-supplied view of the codebase being
// edited. A snapshot is immutable within one orchestration run; edits are
// returned to the caller, never written back here.
package snapshot

import "sort"

// Snapshot maps file path to file content.
type Snapshot map[string]string

// Paths returns all file paths in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a shallow copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for p, c := range s {
		out[p] = c
	}
	return out
}

// Len returns the number of files.
func (s Snapshot) Len() int {
	return len(s)
}
