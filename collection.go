// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import "io"

// FileCollection is the common interface implemented by everything that can
// answer "what files do you have, and can I read one": a ZIP archive, a
// filesystem directory, or an ordered stack of other collections. Callers
// that only need to browse or extract files can depend on this interface
// without caring whether the backing store is an archive or a directory
// tree (spec §6).
type FileCollection interface {
	// Entries returns every entry currently known to the collection. The
	// returned slice must not be mutated by the caller.
	Entries() []*FileEntry

	// GetEntry looks up a single entry by name under the given match
	// policy, returning nil if nothing matches.
	GetEntry(name string, mp MatchPath) *FileEntry

	// GetInputStream opens a entry for reading, by name. It returns nil,
	// nil if no entry matches.
	GetInputStream(name string, mp MatchPath) (io.ReadCloser, error)

	// Size returns the number of entries in the collection.
	Size() int

	// Name identifies the collection, e.g. the archive path or directory
	// root, for diagnostics.
	Name() string

	// IsValid reports whether the collection is still usable: false once
	// Close has been called or the backing source failed to load.
	IsValid() bool

	// MustBeValid returns a KindStateError if the collection is no longer
	// valid; nil otherwise. It exists alongside IsValid for callers that
	// want to fail fast with a typed error rather than branch on a bool.
	MustBeValid() error

	// Close releases any resources (open files) held by the collection.
	// Entries already retrieved via GetEntry/Entries remain valid.
	Close() error

	// Clone returns an independent collection over the same logical data,
	// so concurrent callers can each hold their own cursor/stream state
	// (spec §5).
	Clone() (FileCollection, error)
}

// sizeLimit pairs a byte-size threshold with two methods/levels: one for
// entries under the limit, one for entries at or over it. This backs the
// per-collection setMethod/setLevel helpers that zipios++-style collections
// expose for tuning small-file vs. large-file tradeoffs in bulk.
type sizeLimit struct {
	limit uint32
	small Method
	large Method
}

type levelLimit struct {
	limit uint32
	small CompressionLevel
	large CompressionLevel
}

// choose returns small for entries strictly under the configured limit and
// large otherwise, per spec §4.J.
func (sl sizeLimit) choose(size uint32) Method {
	if size < sl.limit {
		return sl.small
	}
	return sl.large
}

func (ll levelLimit) choose(size uint32) CompressionLevel {
	if size < ll.limit {
		return ll.small
	}
	return ll.large
}

// applyMethodLimit sets each non-directory entry's method according to a
// size threshold, backing the setMethod helper exposed by the concrete
// collection types (spec §4.J). Directory entries are left untouched: they
// are always STORED per the §3 invariant, and SetMethod on them is already
// a no-op.
func applyMethodLimit(entries []*FileEntry, limit uint32, small, large Method) {
	sl := sizeLimit{limit: limit, small: small, large: large}
	for _, e := range entries {
		if e.IsDirectory() {
			continue
		}
		e.SetMethod(sl.choose(e.Size()))
	}
}

// applyLevelLimit is the setLevel counterpart of applyMethodLimit.
func applyLevelLimit(entries []*FileEntry, limit uint32, small, large CompressionLevel) {
	ll := levelLimit{limit: limit, small: small, large: large}
	for _, e := range entries {
		if e.IsDirectory() {
			continue
		}
		_ = e.SetLevel(ll.choose(e.Size()))
	}
}
