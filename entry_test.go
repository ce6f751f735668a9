// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirEntryNormalizesTrailingSlash(t *testing.T) {
	e := NewDirEntry("assets")
	assert.Equal(t, "assets/", e.Name())
	assert.True(t, e.IsDirectory())
	assert.Equal(t, Stored, e.Method())
}

func TestDirectoryBackedEntryIgnoresMutations(t *testing.T) {
	e := NewFileEntry("data.bin")
	e.backing = backingDirectory

	e.SetSize(123)
	e.SetCompressedSize(123)
	e.SetCRC32(0xDEADBEEF)
	e.SetMethod(Stored)
	e.SetExtra([]byte{1, 2, 3})

	assert.Equal(t, uint32(0), e.Size())
	assert.Equal(t, uint32(0), e.CompressedSize())
	assert.False(t, e.HasCRC())
	assert.Equal(t, Deflated, e.Method(), "NewFileEntry's default method must survive the ignored SetMethod")
	assert.Nil(t, e.Extra())

	// Comment and time are the two exceptions (spec §3 invariant).
	e.SetComment("still works")
	e.SetModTime(1000000000)
	assert.Equal(t, "still works", e.Comment())
	assert.NotEqual(t, uint32(0), e.DOSTime())
}

func TestDirectoryEntryNameAlwaysIgnoresSizeMutation(t *testing.T) {
	e := NewFileEntry("folder/")
	require.True(t, e.IsDirectory())
	e.SetSize(42)
	assert.Equal(t, uint32(0), e.Size(), "a name ending in / is always directory-shaped, regardless of backing")
}

func TestSetLevelValidation(t *testing.T) {
	e := NewFileEntry("a.txt")

	require.NoError(t, e.SetLevel(LevelSmallest))
	assert.Equal(t, LevelSmallest, e.Level())

	require.NoError(t, e.SetLevel(42))
	assert.Equal(t, CompressionLevel(42), e.Level())

	err := e.SetLevel(CompressionLevel(999))
	require.Error(t, err)
	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, KindInvalidLevel, zerr.Kind)
}

func TestEntryCloneIsIndependent(t *testing.T) {
	e := NewFileEntry("a.txt")
	e.SetExtra([]byte{9, 9, 9})
	e.SetComment("original")

	clone := e.Clone()
	clone.SetComment("changed")
	clone.Extra()[0] = 1

	assert.Equal(t, "original", e.Comment())
	assert.Equal(t, byte(9), e.Extra()[0], "mutating the clone's extra slice must not alias the original")
}

func TestEntryEqual(t *testing.T) {
	a := NewFileEntry("a.txt")
	a.SetSize(10)
	a.SetCompressedSize(10)
	a.SetCRC32(7)

	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.SetComment("differs")
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

func TestModTimeRoundTripsThroughDOSTime(t *testing.T) {
	e := NewFileEntry("a.txt")
	e.SetModTime(1592213444) // even-second timestamp, see dostime_test.go
	assert.Equal(t, int64(1592213444), e.ModTime())
}
