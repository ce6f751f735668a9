// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"encoding/binary"
	"io"
)

// eocdSignature is the 4-byte little-endian End-of-Central-Directory marker.
const eocdSignature uint32 = 0x06054b50

// maxEOCDCommentLen is the largest comment a well-formed EOCD can carry
// (the comment-length field is 16 bits).
const maxEOCDCommentLen = 65535

// eocdFixedLen is the size of the EOCD record excluding its trailing comment.
const eocdFixedLen = 22

// defaultBackBufferChunk is the default chunk size used while scanning
// backwards for the EOCD signature.
const defaultBackBufferChunk = 1024

// BackBuffer locates a trailing signature near the end of a virtual window
// by reading chunk_size bytes at a time, working backwards from the end,
// and prepending each chunk to an in-memory buffer until the signature is
// found, the window start is reached, or the buffer exceeds the sanity
// limit (22 + 65535 bytes, the largest an EOCD record plus comment can be).
//
// readPointer names a position within the accumulated buffer and is kept
// valid across ReadChunk calls: each call prepends chunk_size new bytes in
// front of what is already buffered, so a caller's index into the buffer
// would be invalidated unless it is shifted forward by the same amount.
// This mirrors zipios++'s BackBuffer::readChunk bookkeeping.
type BackBuffer struct {
	vs        *VirtualSeeker
	chunkSize int
	buf       []byte
	filePos   int64 // current read cursor, relative to the window, counting down
}

// NewBackBuffer creates a scanner over vs starting at the window's end.
// chunkSize <= 0 selects the default of 1 KiB.
func NewBackBuffer(vs *VirtualSeeker, chunkSize int) (*BackBuffer, error) {
	if chunkSize <= 0 {
		chunkSize = defaultBackBufferChunk
	}
	size, err := vs.Size()
	if err != nil {
		return nil, err
	}
	return &BackBuffer{vs: vs, chunkSize: chunkSize, filePos: size}, nil
}

// ReadChunk reads the next chunk (moving towards the window start) and
// prepends it to the buffer, returning the number of new bytes read. It
// returns 0 once the window start has already been reached. readPointer is
// advanced by the number of bytes read so it keeps pointing at the same
// logical buffer position as before the prepend.
func (b *BackBuffer) ReadChunk(readPointer *int) (int, error) {
	if b.filePos <= 0 {
		return 0, nil
	}

	n := b.chunkSize
	if int64(n) > b.filePos {
		n = int(b.filePos)
	}
	b.filePos -= int64(n)

	if _, err := b.vs.VSeek(b.filePos, io.SeekStart); err != nil {
		return 0, err
	}

	chunk := make([]byte, n)
	if _, err := io.ReadFull(b.vs, chunk); err != nil {
		return 0, wrapf(KindIoShort, "backbuffer.ReadChunk", err, "read %d bytes at %d", n, b.filePos)
	}

	b.buf = append(chunk, b.buf...)
	*readPointer += n

	return n, nil
}

// FindEOCD scans backwards for the EOCD signature and returns its offset
// relative to the window. Callers re-read the EOCD record and comment by
// seeking to that offset.
func (b *BackBuffer) FindEOCD() (int64, error) {
	searchLimit := maxEOCDCommentLen + eocdFixedLen
	readPointer := 0

	for {
		n, err := b.ReadChunk(&readPointer)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, wrapf(KindNotAZip, "backbuffer.FindEOCD", nil, "end of central directory signature not found")
		}

		if off, ok := b.searchBuffer(); ok {
			return off, nil
		}

		if len(b.buf) > searchLimit {
			return 0, wrapf(KindNotAZip, "backbuffer.FindEOCD", nil, "exceeded maximum EOCD comment length while searching")
		}
	}
}

// searchBuffer scans the accumulated buffer back to front for the EOCD
// signature and returns the last candidate whose comment-length field is
// consistent with the amount of buffered data (handles stray signature
// bytes inside an archive comment).
func (b *BackBuffer) searchBuffer() (int64, bool) {
	buf := b.buf
	for p := len(buf) - 4; p >= 0; p-- {
		if binary.LittleEndian.Uint32(buf[p:p+4]) != eocdSignature {
			continue
		}
		if p+eocdFixedLen > len(buf) {
			// Not enough buffered yet to read the fixed EOCD fields; keep
			// scanning earlier candidates in this same buffer.
			continue
		}
		commentLen := int(binary.LittleEndian.Uint16(buf[p+20 : p+22]))
		if p+eocdFixedLen+commentLen == len(buf) {
			return b.offsetOf(p), true
		}
	}
	return 0, false
}

// offsetOf converts a position inside the in-memory buffer into a virtual
// offset relative to the window.
func (b *BackBuffer) offsetOf(p int) int64 {
	return b.filePos + int64(p)
}
