// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMethodLimitSkipsDirectories(t *testing.T) {
	file := NewFileEntry("small.txt")
	file.SetSize(5)
	dir := NewDirEntry("sub")

	applyMethodLimit([]*FileEntry{file, dir}, 10, Stored, Deflated)
	assert.Equal(t, Stored, file.Method())
	assert.Equal(t, Stored, dir.Method(), "directory entries are always STORED regardless of the limit")
}

func TestApplyMethodLimitStrictlyLessThan(t *testing.T) {
	atLimit := NewFileEntry("at-limit.bin")
	atLimit.SetSize(100)
	overLimit := NewFileEntry("over-limit.bin")
	overLimit.SetSize(101)
	underLimit := NewFileEntry("under-limit.bin")
	underLimit.SetSize(99)

	applyMethodLimit([]*FileEntry{atLimit, overLimit, underLimit}, 100, Stored, Deflated)

	assert.Equal(t, Deflated, atLimit.Method(), "size equal to the limit must use the large setting")
	assert.Equal(t, Deflated, overLimit.Method())
	assert.Equal(t, Stored, underLimit.Method())
}

func TestZipCollectionGetInputStreamAndClose(t *testing.T) {
	contents := map[string]string{"one.txt": "first entry", "two.txt": "second entry, a bit longer"}
	order := []string{"one.txt", "two.txt"}
	src := buildArchive(t, contents, order, "")

	vs := NewVirtualSeeker(src, 0, -1)
	coll, err := NewZipCollection("test.zip", vs, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, coll.Size())
	assert.True(t, coll.IsValid())

	stream, err := coll.GetInputStream("one.txt", MatchFull)
	require.NoError(t, err)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "first entry", string(got))
	require.NoError(t, stream.Close())

	require.NoError(t, coll.Close())
	assert.False(t, coll.IsValid())
	require.Error(t, coll.MustBeValid())

	_, err = coll.GetInputStream("one.txt", MatchFull)
	require.Error(t, err)
}

func TestZipCollectionOpenAllFansOutWithIndependentCursors(t *testing.T) {
	contents := map[string]string{
		"one.txt":   "first entry content",
		"two.txt":   "second entry content",
		"three.txt": "third entry content",
	}
	order := []string{"one.txt", "two.txt", "three.txt"}
	src := buildArchive(t, contents, order, "")

	// Each reopen must hand back an independent source: a shared
	// *bytes.Reader has no concurrency safety of its own, so OpenAll's
	// whole point (independent cursors per goroutine) depends on this.
	reopen := func() (io.ReadWriteSeeker, error) {
		return newMemSource(append([]byte(nil), src.buf...)), nil
	}
	coll, err := NewZipCollection("fanout.zip", NewVirtualSeeker(src, 0, -1), reopen)
	require.NoError(t, err)

	var mu sync.Mutex
	got := make(map[string]string)

	err = coll.OpenAll(order, MatchFull, func(name string, r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		mu.Lock()
		got[name] = string(data)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, contents, got)
}

func TestZipCollectionOpenAllPropagatesMissingEntry(t *testing.T) {
	src := buildArchive(t, map[string]string{"a.txt": "a"}, []string{"a.txt"}, "")
	coll, err := NewZipCollection("missing.zip", NewVirtualSeeker(src, 0, -1), nil)
	require.NoError(t, err)

	err = coll.OpenAll([]string{"a.txt", "missing.txt"}, MatchFull, func(name string, r io.Reader) error {
		_, err := io.ReadAll(r)
		return err
	})
	require.Error(t, err)
}

func TestZipCollectionCloneWithoutReopenFails(t *testing.T) {
	src := buildArchive(t, map[string]string{"a.txt": "a"}, []string{"a.txt"}, "")
	vs := NewVirtualSeeker(src, 0, -1)
	coll, err := NewZipCollection("no-reopen.zip", vs, nil)
	require.NoError(t, err)

	_, err = coll.Clone()
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, KindUnsupported, zerr.Kind)
}

func TestZipCollectionCloneWithReopen(t *testing.T) {
	src := buildArchive(t, map[string]string{"a.txt": "a content"}, []string{"a.txt"}, "")
	vs := NewVirtualSeeker(src, 0, -1)
	reopen := func() (io.ReadWriteSeeker, error) {
		return newMemSource(append([]byte(nil), src.buf...)), nil
	}
	coll, err := NewZipCollection("reopenable.zip", vs, reopen)
	require.NoError(t, err)

	clone, err := coll.Clone()
	require.NoError(t, err)
	assert.Equal(t, coll.Size(), clone.Size())
}

func TestDirectoryCollectionBreadthFirstAndInvariants(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "root.txt"), []byte("rootdata"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "nested.txt"), []byte("nesteddata"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("topdata"), 0o644))

	coll, err := NewDirectoryCollection(root, true)
	require.NoError(t, err)
	require.NoError(t, coll.MustBeValid())

	entries := coll.Entries()
	require.Len(t, entries, 4)
	names := make([]string, len(entries))
	for i, en := range entries {
		names[i] = en.Name()
	}
	// Breadth-first: every root-level entry precedes anything inside sub/.
	assert.Equal(t, []string{"root.txt", "sub/", "top.txt", "sub/nested.txt"}, names)

	e := coll.GetEntry("root.txt", MatchFull)
	require.NotNil(t, e)
	assert.Equal(t, uint32(len("rootdata")), e.Size())

	// Directory-backed invariant: mutating size is a silent no-op.
	e.SetSize(999999)
	assert.Equal(t, uint32(len("rootdata")), e.Size())

	stream, err := coll.GetInputStream("sub/nested.txt", MatchFull)
	require.NoError(t, err)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "nesteddata", string(got))
	require.NoError(t, stream.Close())

	require.NoError(t, coll.Close())
	assert.False(t, coll.IsValid())
}

func TestDirectoryCollectionNonRecursiveOnlyTopLevel(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep.txt"), []byte("y"), 0o644))

	coll, err := NewDirectoryCollection(root, false)
	require.NoError(t, err)
	assert.Nil(t, coll.GetEntry("sub/deep.txt", MatchFull))
	assert.NotNil(t, coll.GetEntry("top.txt", MatchFull))
}

func TestCompositeCollectionFirstHitWins(t *testing.T) {
	srcA := buildArchive(t, map[string]string{"shared.txt": "from A"}, []string{"shared.txt"}, "")
	srcB := buildArchive(t, map[string]string{"shared.txt": "from B", "onlyB.txt": "b only"}, []string{"shared.txt", "onlyB.txt"}, "")

	collA, err := NewZipCollection("a.zip", NewVirtualSeeker(srcA, 0, -1), nil)
	require.NoError(t, err)
	collB, err := NewZipCollection("b.zip", NewVirtualSeeker(srcB, 0, -1), nil)
	require.NoError(t, err)

	composite := NewCompositeCollection("stack", collA, collB)
	assert.Equal(t, collA.Size()+collB.Size(), composite.Size())

	e := composite.GetEntry("shared.txt", MatchFull)
	require.NotNil(t, e)

	stream, err := composite.GetInputStream("shared.txt", MatchFull)
	require.NoError(t, err)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "from A", string(got), "the first collection in the stack must win on a name collision")
	require.NoError(t, stream.Close())

	assert.NotNil(t, composite.GetEntry("onlyB.txt", MatchFull))
	require.NoError(t, composite.Close())
}
