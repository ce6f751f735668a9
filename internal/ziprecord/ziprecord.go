// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ziprecord encodes and decodes the three on-disk record types
// that make up a ZIP archive: the local file header, the central-directory
// file header, and the end-of-central-directory record. It has no
// knowledge of compression, streaming, or virtual offsets — callers supply
// already-positioned io.Reader/io.Writer values, typically a VirtualSeeker.
package ziprecord

import (
	"bytes"
	"fmt"
	"io"

	"github.com/onyxlabs/zipcore/internal/ioprim"
)

// Each record type is identified by a 4-byte little-endian signature
// beginning with the marker 0x4b50 ("PK").
const (
	LocalFileHeaderSignature  uint32 = 0x04034b50
	CentralDirectorySignature uint32 = 0x02014b50
	EndOfCentralDirSignature  uint32 = 0x06054b50
)

// LocalFileHeaderLen is the fixed-size portion of a local file header,
// excluding the variable-length filename and extra field.
const LocalFileHeaderLen = 30

// CentralDirectoryLen is the fixed-size portion of a central directory file
// header, excluding filename, extra field, and comment.
const CentralDirectoryLen = 46

// EndOfCentralDirLen is the fixed-size portion of the EOCD record,
// excluding the trailing comment.
const EndOfCentralDirLen = 22

// LocalFileHeader is the per-entry record prefixed to each entry's
// compressed bytes.
type LocalFileHeader struct {
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	DOSTime          uint32
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Filename         string
	Extra            []byte
}

// Encode serializes h, including the signature, filename, and extra field.
func (h LocalFileHeader) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(LocalFileHeaderLen + len(h.Filename) + len(h.Extra))

	_ = ioprim.WriteUint32(&buf, LocalFileHeaderSignature)
	_ = ioprim.WriteUint16(&buf, h.VersionNeeded)
	_ = ioprim.WriteUint16(&buf, h.Flags)
	_ = ioprim.WriteUint16(&buf, h.Method)
	_ = ioprim.WriteUint32(&buf, h.DOSTime)
	_ = ioprim.WriteUint32(&buf, h.CRC32)
	_ = ioprim.WriteUint32(&buf, h.CompressedSize)
	_ = ioprim.WriteUint32(&buf, h.UncompressedSize)
	_ = ioprim.WriteUint16(&buf, uint16(len(h.Filename)))
	_ = ioprim.WriteUint16(&buf, uint16(len(h.Extra)))
	_ = ioprim.WriteBytes(&buf, []byte(h.Filename))
	_ = ioprim.WriteBytes(&buf, h.Extra)

	return buf.Bytes()
}

// ReadLocalFileHeader reads and validates a local file header's signature,
// then decodes the fixed fields plus filename and extra bytes.
func ReadLocalFileHeader(r io.Reader) (LocalFileHeader, error) {
	sig, err := ioprim.ReadUint32(r)
	if err != nil {
		return LocalFileHeader{}, fmt.Errorf("read local file header signature: %w", err)
	}
	if sig != LocalFileHeaderSignature {
		return LocalFileHeader{}, fmt.Errorf("bad local file header signature %#x", sig)
	}

	h := LocalFileHeader{}
	readU16 := func() uint16 {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = ioprim.ReadUint16(r)
		return v
	}
	readU32 := func() uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = ioprim.ReadUint32(r)
		return v
	}

	h.VersionNeeded = readU16()
	h.Flags = readU16()
	h.Method = readU16()
	h.DOSTime = readU32()
	h.CRC32 = readU32()
	h.CompressedSize = readU32()
	h.UncompressedSize = readU32()
	filenameLen := readU16()
	extraLen := readU16()
	if err != nil {
		return LocalFileHeader{}, fmt.Errorf("read local file header: %w", err)
	}

	name, err := ioprim.ReadBytes(r, int(filenameLen))
	if err != nil {
		return LocalFileHeader{}, fmt.Errorf("read local header filename: %w", err)
	}
	h.Filename = string(name)

	extra, err := ioprim.ReadBytes(r, int(extraLen))
	if err != nil {
		return LocalFileHeader{}, fmt.Errorf("read local header extra field: %w", err)
	}
	h.Extra = extra

	return h, nil
}

// CentralDirectoryHeader is the per-entry record in the central directory.
type CentralDirectoryHeader struct {
	VersionMadeBy     uint16
	VersionNeeded     uint16
	Flags             uint16
	Method            uint16
	DOSTime           uint32
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	DiskNumberStart   uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32
	Filename          string
	Extra             []byte
	Comment           string
}

// Encode serializes d, including the signature, filename, extra, and
// comment.
func (d CentralDirectoryHeader) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(CentralDirectoryLen + len(d.Filename) + len(d.Extra) + len(d.Comment))

	_ = ioprim.WriteUint32(&buf, CentralDirectorySignature)
	_ = ioprim.WriteUint16(&buf, d.VersionMadeBy)
	_ = ioprim.WriteUint16(&buf, d.VersionNeeded)
	_ = ioprim.WriteUint16(&buf, d.Flags)
	_ = ioprim.WriteUint16(&buf, d.Method)
	_ = ioprim.WriteUint32(&buf, d.DOSTime)
	_ = ioprim.WriteUint32(&buf, d.CRC32)
	_ = ioprim.WriteUint32(&buf, d.CompressedSize)
	_ = ioprim.WriteUint32(&buf, d.UncompressedSize)
	_ = ioprim.WriteUint16(&buf, uint16(len(d.Filename)))
	_ = ioprim.WriteUint16(&buf, uint16(len(d.Extra)))
	_ = ioprim.WriteUint16(&buf, uint16(len(d.Comment)))
	_ = ioprim.WriteUint16(&buf, d.DiskNumberStart)
	_ = ioprim.WriteUint16(&buf, d.InternalAttrs)
	_ = ioprim.WriteUint32(&buf, d.ExternalAttrs)
	_ = ioprim.WriteUint32(&buf, d.LocalHeaderOffset)
	_ = ioprim.WriteBytes(&buf, []byte(d.Filename))
	_ = ioprim.WriteBytes(&buf, d.Extra)
	_ = ioprim.WriteBytes(&buf, []byte(d.Comment))

	return buf.Bytes()
}

// ReadCentralDirectoryHeader reads and validates a central directory file
// header's signature, then decodes the fixed fields plus filename, extra
// field, and comment.
func ReadCentralDirectoryHeader(r io.Reader) (CentralDirectoryHeader, error) {
	sig, err := ioprim.ReadUint32(r)
	if err != nil {
		return CentralDirectoryHeader{}, fmt.Errorf("read central directory signature: %w", err)
	}
	if sig != CentralDirectorySignature {
		return CentralDirectoryHeader{}, fmt.Errorf("bad central directory signature %#x", sig)
	}

	var d CentralDirectoryHeader
	readU16 := func(field string) uint16 {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = ioprim.ReadUint16(r)
		if err != nil {
			err = fmt.Errorf("read central directory %s: %w", field, err)
		}
		return v
	}
	readU32 := func(field string) uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = ioprim.ReadUint32(r)
		if err != nil {
			err = fmt.Errorf("read central directory %s: %w", field, err)
		}
		return v
	}

	d.VersionMadeBy = readU16("version made by")
	d.VersionNeeded = readU16("version needed")
	d.Flags = readU16("flags")
	d.Method = readU16("method")
	d.DOSTime = readU32("dos time")
	d.CRC32 = readU32("crc32")
	d.CompressedSize = readU32("compressed size")
	d.UncompressedSize = readU32("uncompressed size")
	filenameLen := readU16("filename length")
	extraLen := readU16("extra length")
	commentLen := readU16("comment length")
	d.DiskNumberStart = readU16("disk number start")
	d.InternalAttrs = readU16("internal attrs")
	d.ExternalAttrs = readU32("external attrs")
	d.LocalHeaderOffset = readU32("local header offset")
	if err != nil {
		return CentralDirectoryHeader{}, err
	}

	name, err := ioprim.ReadBytes(r, int(filenameLen))
	if err != nil {
		return CentralDirectoryHeader{}, fmt.Errorf("read central directory filename: %w", err)
	}
	d.Filename = string(name)

	extra, err := ioprim.ReadBytes(r, int(extraLen))
	if err != nil {
		return CentralDirectoryHeader{}, fmt.Errorf("read central directory extra field: %w", err)
	}
	d.Extra = extra

	comment, err := ioprim.ReadBytes(r, int(commentLen))
	if err != nil {
		return CentralDirectoryHeader{}, fmt.Errorf("read central directory comment: %w", err)
	}
	d.Comment = string(comment)

	return d, nil
}

// EndOfCentralDir is the archive trailer.
type EndOfCentralDir struct {
	DiskNumber       uint16
	DiskWithCD       uint16
	EntriesThisDisk  uint16
	EntriesTotal     uint16
	CentralDirSize   uint32
	CentralDirOffset uint32
	Comment          string
}

// Encode serializes e, including the signature and comment.
func (e EndOfCentralDir) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(EndOfCentralDirLen + len(e.Comment))

	_ = ioprim.WriteUint32(&buf, EndOfCentralDirSignature)
	_ = ioprim.WriteUint16(&buf, e.DiskNumber)
	_ = ioprim.WriteUint16(&buf, e.DiskWithCD)
	_ = ioprim.WriteUint16(&buf, e.EntriesThisDisk)
	_ = ioprim.WriteUint16(&buf, e.EntriesTotal)
	_ = ioprim.WriteUint32(&buf, e.CentralDirSize)
	_ = ioprim.WriteUint32(&buf, e.CentralDirOffset)
	_ = ioprim.WriteUint16(&buf, uint16(len(e.Comment)))
	_ = ioprim.WriteBytes(&buf, []byte(e.Comment))

	return buf.Bytes()
}

// ReadEndOfCentralDir decodes the fixed fields and trailing comment of an
// EOCD record, starting right after the 4-byte signature (callers that
// located the signature via a back-buffer scan have already consumed it).
func ReadEndOfCentralDir(r io.Reader) (EndOfCentralDir, error) {
	var e EndOfCentralDir
	var err error

	readU16 := func() uint16 {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = ioprim.ReadUint16(r)
		return v
	}
	readU32 := func() uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = ioprim.ReadUint32(r)
		return v
	}

	e.DiskNumber = readU16()
	e.DiskWithCD = readU16()
	e.EntriesThisDisk = readU16()
	e.EntriesTotal = readU16()
	e.CentralDirSize = readU32()
	e.CentralDirOffset = readU32()
	commentLen := readU16()
	if err != nil {
		return EndOfCentralDir{}, fmt.Errorf("read end of central directory: %w", err)
	}

	comment, err := ioprim.ReadBytes(r, int(commentLen))
	if err != nil {
		return EndOfCentralDir{}, fmt.Errorf("read end of central directory comment: %w", err)
	}
	e.Comment = string(comment)

	return e, nil
}
