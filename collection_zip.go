// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ZipCollection is a FileCollection backed by a parsed ZIP archive. Reading
// a stream serializes access to the underlying VirtualSeeker (spec §5: a
// generic io.ReadWriteSeeker has a single cursor, so concurrent
// GetInputStream calls must not race on it); Clone opens an independent
// reader when the source supports reopening, giving true concurrent access.
type ZipCollection struct {
	mu     sync.Mutex
	name   string
	reader *Reader
	reopen func() (io.ReadWriteSeeker, error)
	valid  bool
}

// NewZipCollection parses the archive visible through vs and names the
// collection name (typically the archive's path). reopen, if non-nil, is
// used by Clone to produce an independent source for the cloned collection;
// pass nil if the source cannot be reopened, in which case Clone fails.
func NewZipCollection(name string, vs *VirtualSeeker, reopen func() (io.ReadWriteSeeker, error)) (*ZipCollection, error) {
	r, err := OpenReader(vs)
	if err != nil {
		return nil, err
	}
	return &ZipCollection{name: name, reader: r, reopen: reopen, valid: true}, nil
}

func (c *ZipCollection) mustBeValid() error {
	if !c.valid {
		return wrapf(KindStateError, "zipCollection", nil, "collection %q is closed", c.name)
	}
	return nil
}

// Entries implements FileCollection.
func (c *ZipCollection) Entries() []*FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return nil
	}
	return c.reader.Entries()
}

// GetEntry implements FileCollection.
func (c *ZipCollection) GetEntry(name string, mp MatchPath) *FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return nil
	}
	return c.reader.Find(name, mp)
}

// GetInputStream implements FileCollection. Because ZIP entry data is
// accessed by seeking the shared VirtualSeeker, the returned stream holds
// the collection's lock for its whole lifetime and must be closed before
// another stream can be opened from the same ZipCollection; use Clone to
// read multiple entries concurrently.
func (c *ZipCollection) GetInputStream(name string, mp MatchPath) (io.ReadCloser, error) {
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return nil, wrapf(KindStateError, "zipCollection.GetInputStream", nil, "collection %q is closed", c.name)
	}
	rc, err := c.reader.GetInputStream(name, mp)
	if err != nil || rc == nil {
		c.mu.Unlock()
		return nil, err
	}
	return &lockedStream{rc: rc, unlock: c.mu.Unlock}, nil
}

// lockedStream releases a held mutex exactly once, when the stream is closed.
type lockedStream struct {
	rc     io.ReadCloser
	unlock func()
	closed bool
}

func (s *lockedStream) Read(p []byte) (int, error) { return s.rc.Read(p) }

func (s *lockedStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.unlock()
	return s.rc.Close()
}

// Size implements FileCollection.
func (c *ZipCollection) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return 0
	}
	return len(c.reader.Entries())
}

// Name implements FileCollection.
func (c *ZipCollection) Name() string { return c.name }

// IsValid implements FileCollection.
func (c *ZipCollection) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// MustBeValid implements FileCollection.
func (c *ZipCollection) MustBeValid() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mustBeValid()
}

// Close implements FileCollection. It does not close the underlying source;
// VirtualSeeker has no notion of ownership over it.
func (c *ZipCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	return nil
}

// SetMethod applies a size threshold across every non-directory entry's
// compression method (spec §4.J): entries smaller than limit get small,
// the rest get large.
func (c *ZipCollection) SetMethod(limit uint32, small, large Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return
	}
	applyMethodLimit(c.reader.Entries(), limit, small, large)
}

// SetLevel is the compression-level counterpart of SetMethod.
func (c *ZipCollection) SetLevel(limit uint32, small, large CompressionLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return
	}
	applyLevelLimit(c.reader.Entries(), limit, small, large)
}

// OpenAll fans out a read-and-process call across names concurrently,
// giving fn an independent stream per name (spec §5: a caller that wants
// true parallel reads needs independent seek cursors, not just independent
// goroutines sharing one VirtualSeeker). When the collection was built with
// a reopen function, each goroutine works against its own Clone so no two
// goroutines ever contend on the same underlying seeker; without one, calls
// fall back to the shared collection's serialized GetInputStream, which is
// still correct but offers no real concurrency. An error does not cancel
// the other reads: every name is processed, and the first error returned
// by any of them is returned, per errgroup.Group's first-error-wins
// semantics.
func (c *ZipCollection) OpenAll(names []string, mp MatchPath, fn func(name string, r io.Reader) error) error {
	c.mu.Lock()
	reopenable := c.reopen != nil
	c.mu.Unlock()

	var g errgroup.Group
	for _, name := range names {
		name := name
		g.Go(func() error {
			var coll FileCollection = c
			if reopenable {
				cloned, err := c.Clone()
				if err != nil {
					return err
				}
				coll = cloned
				defer coll.Close()
			}
			stream, err := coll.GetInputStream(name, mp)
			if err != nil {
				return err
			}
			if stream == nil {
				return wrapf(KindStateError, "zipCollection.OpenAll", nil, "entry %q not found", name)
			}
			defer stream.Close()
			return fn(name, stream)
		})
	}
	return g.Wait()
}

// Clone implements FileCollection by reopening the archive through the
// reopen function supplied at construction time, giving the clone its own
// VirtualSeeker and Reader so it can be used concurrently with the original.
func (c *ZipCollection) Clone() (FileCollection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mustBeValid(); err != nil {
		return nil, err
	}
	if c.reopen == nil {
		return nil, wrapf(KindUnsupported, "zipCollection.Clone", nil, "collection %q has no reopen source", c.name)
	}
	src, err := c.reopen()
	if err != nil {
		return nil, wrapf(KindIoShort, "zipCollection.Clone", err, "reopen %q", c.name)
	}
	vs := NewVirtualSeeker(src, 0, -1)
	return NewZipCollection(c.name, vs, c.reopen)
}
