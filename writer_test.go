// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"testing"

	"github.com/onyxlabs/zipcore/internal/ziprecord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAddEntryRejectsOverlappingEntries(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs)

	_, err := w.AddEntry(NewFileEntry("a.txt"))
	require.NoError(t, err)

	_, err = w.AddEntry(NewFileEntry("b.txt"))
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, KindStateError, zerr.Kind)
}

func TestWriterCloseEntryRequiresOpenEntry(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs)

	err := w.CloseEntry()
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, KindStateError, zerr.Kind)
}

func TestWriterDoubleCloseRejected(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs)
	require.NoError(t, w.Close())

	err := w.Close()
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, KindStateError, zerr.Kind)
}

func TestWriterFinalizesOpenEntryOnClose(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs)

	fw, err := w.AddEntry(NewFileEntry("implicit.txt"))
	require.NoError(t, err)
	_, err = fw.Write([]byte("closed implicitly"))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.Len(t, w.Entries(), 1)
	assert.Equal(t, uint32(len("closed implicitly")), w.Entries()[0].Size())
}

func TestWriterWithDefaultLevelAppliesToUnsetEntries(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs, WithDefaultLevel(LevelSmallest))

	e := NewFileEntry("a.txt") // Level() is LevelDefault until set explicitly.
	fw, err := w.AddEntry(e)
	require.NoError(t, err)
	_, err = fw.Write([]byte("entry content compressed at the writer-wide default level"))
	require.NoError(t, err)
	require.NoError(t, w.CloseEntry())
	require.NoError(t, w.Close())

	r, err := OpenReader(NewVirtualSeeker(src, 0, -1))
	require.NoError(t, err)
	stream, err := r.GetInputStream("a.txt", MatchFull)
	require.NoError(t, err)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "entry content compressed at the writer-wide default level", string(got))
}

func TestOpenReaderWithBackBufferChunkSize(t *testing.T) {
	src := buildArchive(t, map[string]string{"a.txt": "a"}, []string{"a.txt"}, "")
	r, err := OpenReader(NewVirtualSeeker(src, 0, -1), WithBackBufferChunkSize(4))
	require.NoError(t, err)
	assert.Len(t, r.Entries(), 1)
}

func TestWriterLevelNoneDowngradesMethodToStored(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs)

	// Method left at its default (Deflated); only the level says "don't
	// compress". AddEntry must still produce a readable archive.
	e := NewFileEntry("a.txt")
	require.NoError(t, e.SetLevel(LevelNone))
	fw, err := w.AddEntry(e)
	require.NoError(t, err)
	_, err = fw.Write([]byte("uncompressed payload"))
	require.NoError(t, err)
	require.NoError(t, w.CloseEntry())
	require.NoError(t, w.Close())

	assert.Equal(t, Stored, w.Entries()[0].Method())

	r, err := OpenReader(NewVirtualSeeker(src, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, Stored, r.Entries()[0].Method())
	stream, err := r.GetInputStream("a.txt", MatchFull)
	require.NoError(t, err)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "uncompressed payload", string(got))
	require.NoError(t, stream.Close())
}

func TestWriterBacktrackingRewritesLocalHeaderSizes(t *testing.T) {
	src := newMemSource(nil)
	vs := NewVirtualSeeker(src, 0, -1)
	w := NewWriter(vs)

	e := NewFileEntry("a.txt")
	require.NoError(t, e.SetLevel(LevelDefault))
	fw, err := w.AddEntry(e)
	require.NoError(t, err)
	payload := []byte("content that compresses reasonably well, reasonably well")
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.CloseEntry())
	require.NoError(t, w.Close())

	// Re-read the local header directly to confirm it carries real,
	// non-placeholder sizes once CloseEntry has backpatched it.
	vsRead := NewVirtualSeeker(src, 0, -1)
	_, err = vsRead.VSeek(0, io.SeekStart)
	require.NoError(t, err)
	lh, err := ziprecord.ReadLocalFileHeader(vsRead)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), lh.UncompressedSize)
	assert.NotEqual(t, uint32(0), lh.CompressedSize)
	assert.Equal(t, w.Entries()[0].CRC32(), lh.CRC32)

	r, err := OpenReader(vsRead)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), r.Entries()[0].Size())
	assert.NotEqual(t, uint32(0), r.Entries()[0].CompressedSize())
}
