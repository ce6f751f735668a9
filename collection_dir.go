// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DirectoryCollection is a FileCollection backed by a directory on disk: its
// entries are FileEntry values probed from the filesystem rather than
// parsed from a central directory, so every entry is directory-backed in
// the sense of spec §3 (size/method/crc32 mutations are ignored — they are
// read directly off the filesystem instead of being stored).
type DirectoryCollection struct {
	mu        sync.Mutex
	root      string
	recursive bool
	entries   []*FileEntry
	byName    map[string]*FileEntry
	valid     bool
}

// NewDirectoryCollection walks root (recursively if recursive is true,
// otherwise only its immediate children) and builds one FileEntry per
// filesystem entry found, using paths relative to root with "/" separators
// regardless of host OS.
func NewDirectoryCollection(root string, recursive bool) (*DirectoryCollection, error) {
	c := &DirectoryCollection{root: root, recursive: recursive, byName: make(map[string]*FileEntry)}
	if err := c.scan(); err != nil {
		return nil, err
	}
	c.valid = true
	return c, nil
}

// scan walks the tree breadth-first (spec §4.J): every entry at a given
// depth is probed and recorded before descending into any of that depth's
// subdirectories. With recursive=false, only the root's immediate children
// are probed.
func (c *DirectoryCollection) scan() error {
	queue := []string{c.root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			return wrapf(KindIoShort, "directoryCollection.scan", err, "read dir %q", dir)
		}

		var subdirs []string
		for _, d := range dirEntries {
			full := filepath.Join(dir, d.Name())
			info, err := d.Info()
			if err != nil {
				return wrapf(KindIoShort, "directoryCollection.scan", err, "stat %q", full)
			}

			rel, err := filepath.Rel(c.root, full)
			if err != nil {
				return wrapf(KindIoShort, "directoryCollection.scan", err, "relativize %q", full)
			}
			rel = filepath.ToSlash(rel)

			var e *FileEntry
			if d.IsDir() {
				e = NewDirEntry(rel)
				subdirs = append(subdirs, full)
			} else {
				e = NewFileEntry(rel)
				e.SetSize(uint32(info.Size()))
				e.SetCompressedSize(uint32(info.Size()))
				e.SetMethod(Stored)
				e.backing = backingDirectory
			}
			e.SetModTime(info.ModTime().Unix())

			c.entries = append(c.entries, e)
			c.byName[e.Name()] = e
		}

		if c.recursive {
			queue = append(queue, subdirs...)
		}
	}

	return nil
}

// Entries implements FileCollection.
func (c *DirectoryCollection) Entries() []*FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return nil
	}
	return c.entries
}

// GetEntry implements FileCollection.
func (c *DirectoryCollection) GetEntry(name string, mp MatchPath) *FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return nil
	}
	if mp == MatchFull {
		return c.byName[name]
	}
	for _, e := range c.entries {
		if matchName(e.Name(), name, mp) {
			return e
		}
	}
	return nil
}

// GetInputStream implements FileCollection by opening the file directly
// from disk; each call gets an independent *os.File, so concurrent reads of
// different (or the same) entry need no locking beyond what the OS gives
// os.Open for free.
func (c *DirectoryCollection) GetInputStream(name string, mp MatchPath) (io.ReadCloser, error) {
	e := c.GetEntry(name, mp)
	if e == nil {
		return nil, nil
	}
	if e.IsDirectory() {
		return nil, wrapf(KindStateError, "directoryCollection.GetInputStream", nil, "%q is a directory", name)
	}
	f, err := os.Open(filepath.Join(c.root, filepath.FromSlash(e.Name())))
	if err != nil {
		return nil, wrapf(KindIoShort, "directoryCollection.GetInputStream", err, "open %q", e.Name())
	}
	return f, nil
}

// Size implements FileCollection.
func (c *DirectoryCollection) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Name implements FileCollection.
func (c *DirectoryCollection) Name() string { return c.root }

// IsValid implements FileCollection.
func (c *DirectoryCollection) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// MustBeValid implements FileCollection.
func (c *DirectoryCollection) MustBeValid() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return wrapf(KindStateError, "directoryCollection", nil, "collection %q is closed", c.root)
	}
	return nil
}

// Close implements FileCollection. A DirectoryCollection holds no open
// handles between calls, so Close only marks the collection invalid.
func (c *DirectoryCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	return nil
}

// Clone implements FileCollection by re-scanning the same root directory.
func (c *DirectoryCollection) Clone() (FileCollection, error) {
	c.mu.Lock()
	root, recursive, valid := c.root, c.recursive, c.valid
	c.mu.Unlock()
	if !valid {
		return nil, wrapf(KindStateError, "directoryCollection.Clone", nil, "collection %q is closed", root)
	}
	return NewDirectoryCollection(root, recursive)
}
