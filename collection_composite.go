// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"sync"
)

// CompositeCollection stacks several FileCollections in priority order: the
// first collection to hold a matching entry wins, mirroring a search PATH.
// This lets a caller overlay, say, a directory of loose override files on
// top of a base archive without flattening them into one collection first.
type CompositeCollection struct {
	mu       sync.Mutex
	name     string
	children []FileCollection
	valid    bool
}

// NewCompositeCollection stacks children in the given order: children[0] is
// searched first.
func NewCompositeCollection(name string, children ...FileCollection) *CompositeCollection {
	return &CompositeCollection{name: name, children: children, valid: true}
}

// AddCollection appends a collection to the bottom of the search order.
func (c *CompositeCollection) AddCollection(child FileCollection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = append(c.children, child)
}

// Entries implements FileCollection, concatenating every child's entries in
// search order. An entry present in more than one child appears once per
// child — callers that want dedup'd "what does getEntry actually resolve
// to" semantics should use GetEntry instead.
func (c *CompositeCollection) Entries() []*FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return nil
	}
	var all []*FileEntry
	for _, child := range c.children {
		all = append(all, child.Entries()...)
	}
	return all
}

// GetEntry implements FileCollection, returning the first match found by
// searching children in order.
func (c *CompositeCollection) GetEntry(name string, mp MatchPath) *FileEntry {
	c.mu.Lock()
	children := append([]FileCollection(nil), c.children...)
	valid := c.valid
	c.mu.Unlock()
	if !valid {
		return nil
	}
	for _, child := range children {
		if e := child.GetEntry(name, mp); e != nil {
			return e
		}
	}
	return nil
}

// GetInputStream implements FileCollection, delegating to the first child
// whose GetEntry finds a match.
func (c *CompositeCollection) GetInputStream(name string, mp MatchPath) (io.ReadCloser, error) {
	c.mu.Lock()
	children := append([]FileCollection(nil), c.children...)
	valid := c.valid
	c.mu.Unlock()
	if !valid {
		return nil, wrapf(KindStateError, "compositeCollection.GetInputStream", nil, "collection %q is closed", c.name)
	}
	for _, child := range children {
		if e := child.GetEntry(name, mp); e != nil {
			return child.GetInputStream(name, mp)
		}
	}
	return nil, nil
}

// Size implements FileCollection as the sum of every child's Size.
func (c *CompositeCollection) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, child := range c.children {
		total += child.Size()
	}
	return total
}

// Name implements FileCollection.
func (c *CompositeCollection) Name() string { return c.name }

// IsValid implements FileCollection.
func (c *CompositeCollection) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// MustBeValid implements FileCollection.
func (c *CompositeCollection) MustBeValid() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return wrapf(KindStateError, "compositeCollection", nil, "collection %q is closed", c.name)
	}
	return nil
}

// Close implements FileCollection, closing every child and collecting the
// first error encountered (if any) while still attempting to close the rest.
func (c *CompositeCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	var firstErr error
	for _, child := range c.children {
		if err := child.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// methodLeveler is implemented by collection types whose entries can
// usefully have bulk method/level thresholds applied (§4.J); DirectoryCollection
// deliberately does not implement it, since all its entries are
// directory-backed and such mutations are no-ops by invariant.
type methodLeveler interface {
	SetMethod(limit uint32, small, large Method)
	SetLevel(limit uint32, small, large CompressionLevel)
}

// SetMethod forwards the threshold to every child that supports it.
func (c *CompositeCollection) SetMethod(limit uint32, small, large Method) {
	c.mu.Lock()
	children := append([]FileCollection(nil), c.children...)
	c.mu.Unlock()
	for _, child := range children {
		if ml, ok := child.(methodLeveler); ok {
			ml.SetMethod(limit, small, large)
		}
	}
}

// SetLevel forwards the threshold to every child that supports it.
func (c *CompositeCollection) SetLevel(limit uint32, small, large CompressionLevel) {
	c.mu.Lock()
	children := append([]FileCollection(nil), c.children...)
	c.mu.Unlock()
	for _, child := range children {
		if ml, ok := child.(methodLeveler); ok {
			ml.SetLevel(limit, small, large)
		}
	}
}

// Clone implements FileCollection by cloning every child into a new stack
// with the same search order.
func (c *CompositeCollection) Clone() (FileCollection, error) {
	c.mu.Lock()
	children := append([]FileCollection(nil), c.children...)
	valid := c.valid
	c.mu.Unlock()
	if !valid {
		return nil, wrapf(KindStateError, "compositeCollection.Clone", nil, "collection %q is closed", c.name)
	}

	clones := make([]FileCollection, 0, len(children))
	for _, child := range children {
		cc, err := child.Clone()
		if err != nil {
			return nil, err
		}
		clones = append(clones, cc)
	}
	return NewCompositeCollection(c.name, clones...), nil
}
