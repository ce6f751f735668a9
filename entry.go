// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import "strings"

// Method identifies the on-disk compression algorithm of an entry. Only
// Stored and Deflated are supported end-to-end; any other value parsed from
// a central directory record is preserved for round-tripping metadata but
// cannot be opened for reading.
type Method uint16

const (
	Stored   Method = 0
	Deflated Method = 8
)

// backing distinguishes how a FileEntry's mutations are honored: entries
// that come from a filesystem probe (§3 invariant) silently ignore
// mutations of everything except comment and time.
type backing int

const (
	backingMemory backing = iota
	backingDirectory
)

// FileEntry is the metadata record for one archive member, as specified in
// spec §3. It is created either by probing the filesystem (NewDirEntry) or
// by parsing a central-directory record (the reader's job); both paths
// populate the same struct so the rest of the package never has to care
// which kind of collection an entry came from.
type FileEntry struct {
	name    string
	comment string

	size           uint32
	compressedSize uint32
	crc32          uint32
	hasCRC         bool
	method         Method
	level          CompressionLevel
	dosTime        uint32
	extra          []byte

	entryOffset int64
	headerSize  uint32

	backing backing
}

// NewFileEntry creates a regular (non-directory) entry with the given
// logical name. The method defaults to Deflated at LevelDefault; callers
// typically override these via SetMethod/SetLevel before handing the entry
// to a Writer.
func NewFileEntry(name string) *FileEntry {
	return &FileEntry{
		name:   name,
		method: Deflated,
		level:  LevelDefault,
	}
}

// NewDirEntry creates a directory entry. Per the §3 invariant, a directory
// entry always reports size=compressedSize=crc32=0 and method=Stored; its
// name is normalized to end in "/".
func NewDirEntry(name string) *FileEntry {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return &FileEntry{
		name:    name,
		method:  Stored,
		backing: backingDirectory,
	}
}

// Name returns the entry's logical path.
func (e *FileEntry) Name() string { return e.name }

// SetName renames the entry. The name is not otherwise validated; callers
// adding entries to a collection are responsible for rejecting duplicates.
func (e *FileEntry) SetName(name string) { e.name = name }

// IsDirectory reports whether the entry represents a directory, i.e. its
// name ends in "/".
func (e *FileEntry) IsDirectory() bool { return strings.HasSuffix(e.name, "/") }

// Comment returns the entry's per-entry comment.
func (e *FileEntry) Comment() string { return e.comment }

// SetComment sets the entry's comment. Unlike most other setters, this one
// is honored even for directory-backed entries (§3 invariant).
func (e *FileEntry) SetComment(c string) { e.comment = c }

// Size returns the uncompressed length in bytes.
func (e *FileEntry) Size() uint32 { return e.size }

// SetSize sets the uncompressed length. Ignored for directory-backed
// entries and for directory entries (name ends in "/").
func (e *FileEntry) SetSize(n uint32) {
	if e.backing == backingDirectory || e.IsDirectory() {
		return
	}
	e.size = n
}

// CompressedSize returns the compressed length in bytes (equal to Size for
// Stored entries).
func (e *FileEntry) CompressedSize() uint32 { return e.compressedSize }

// SetCompressedSize sets the compressed length. Ignored for
// directory-backed entries and for directory entries.
func (e *FileEntry) SetCompressedSize(n uint32) {
	if e.backing == backingDirectory || e.IsDirectory() {
		return
	}
	e.compressedSize = n
}

// CRC32 returns the CRC-32 of the uncompressed data, valid only if HasCRC.
func (e *FileEntry) CRC32() uint32 { return e.crc32 }

// HasCRC reports whether CRC32 carries an authoritative value yet.
func (e *FileEntry) HasCRC() bool { return e.hasCRC }

// SetCRC32 sets the CRC-32 and marks it authoritative. Ignored for
// directory-backed entries and for directory entries.
func (e *FileEntry) SetCRC32(crc uint32) {
	if e.backing == backingDirectory || e.IsDirectory() {
		return
	}
	e.crc32 = crc
	e.hasCRC = true
}

// Method returns the entry's compression method.
func (e *FileEntry) Method() Method { return e.method }

// SetMethod sets the compression method. Ignored for directory-backed
// entries and for directory entries, which are always Stored.
func (e *FileEntry) SetMethod(m Method) {
	if e.backing == backingDirectory || e.IsDirectory() {
		return
	}
	e.method = m
}

// Level returns the entry's configured compression level.
func (e *FileEntry) Level() CompressionLevel { return e.level }

// SetLevel sets the compression level, returning an error if lvl is outside
// the accepted set (spec §3).
func (e *FileEntry) SetLevel(lvl CompressionLevel) error {
	if !ValidLevel(lvl) {
		return wrapf(KindInvalidLevel, "entry.SetLevel", nil, "level %d out of range", int(lvl))
	}
	e.level = lvl
	return nil
}

// DOSTime returns the packed MS-DOS date/time.
func (e *FileEntry) DOSTime() uint32 { return e.dosTime }

// SetDOSTime sets the packed MS-DOS date/time directly. Honored
// unconditionally, including for directory-backed entries (§3 invariant:
// only comment and time mutate on a directory entry).
func (e *FileEntry) SetDOSTime(d uint32) { e.dosTime = d }

// SetModTime is a convenience wrapper around SetDOSTime that takes Unix
// seconds and converts via the DOS time codec (§4.B).
func (e *FileEntry) SetModTime(unixSeconds int64) { e.dosTime = unixToDOS(unixSeconds) }

// ModTime returns the entry's modification time as Unix seconds.
func (e *FileEntry) ModTime() int64 { return dosToUnix(e.dosTime) }

// Extra returns the opaque extra-field bytes, round-tripped verbatim.
func (e *FileEntry) Extra() []byte { return e.extra }

// SetExtra sets the opaque extra-field bytes. Ignored for directory-backed
// entries and for directory entries.
func (e *FileEntry) SetExtra(b []byte) {
	if e.backing == backingDirectory || e.IsDirectory() {
		return
	}
	e.extra = append([]byte(nil), b...)
}

// EntryOffset returns the byte offset, within the virtual view, of the
// entry's local header. Zero until the entry has been read from or written
// to an archive.
func (e *FileEntry) EntryOffset() int64 { return e.entryOffset }

// HeaderSize returns the cached size of the local header for this entry.
// Zero until the entry has been written by a Writer or its local header has
// been parsed by opening it for reading through a Reader.
func (e *FileEntry) HeaderSize() uint32 { return e.headerSize }

// Clone returns a deep, independent copy of e: mutating the clone never
// affects the original, and vice versa (spec §9 ownership note).
func (e *FileEntry) Clone() *FileEntry {
	clone := *e
	clone.extra = append([]byte(nil), e.extra...)
	return &clone
}

// Equal reports whether two entries have identical name, comment, size,
// compressed size, CRC-32, method, DOS time, extra bytes, and directory-ness
// (spec §3).
func (e *FileEntry) Equal(other *FileEntry) bool {
	if other == nil {
		return false
	}
	if e.name != other.name ||
		e.comment != other.comment ||
		e.size != other.size ||
		e.compressedSize != other.compressedSize ||
		e.crc32 != other.crc32 ||
		e.method != other.method ||
		e.dosTime != other.dosTime ||
		e.IsDirectory() != other.IsDirectory() {
		return false
	}
	return string(e.extra) == string(other.extra)
}
