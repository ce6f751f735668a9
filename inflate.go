// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"bufio"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// defaultInflateBufferSize is the size of the bufio.Reader interposed
// between the upstream source and the flate codec, batching the small reads
// flate.Reader issues into fewer calls against the (typically seek-backed)
// upstream VirtualSeeker.
const defaultInflateBufferSize = 1024

// InflateReader is a read-only byte-stream adapter that decodes raw
// (headerless) DEFLATE data read from an upstream io.Reader, maintaining a
// running CRC-32 over every decompressed byte it hands back. It does not
// itself verify the CRC or the decompressed length against anything — that
// is the job of the entry reader (component H), which compares the final
// Sum32() and BytesRead() against the central-directory record once the
// stream has been fully consumed.
type InflateReader struct {
	upstream io.Reader
	bufSize  int
	fr       io.ReadCloser // klauspost/compress/flate raw decoder
	crc      uint32
	read     int64
}

// NewInflateReader wraps upstream, which must yield raw DEFLATE data with no
// zlib or gzip framing, reading through a bufio.Reader of the default size.
func NewInflateReader(upstream io.Reader) *InflateReader {
	return NewInflateReaderSize(upstream, defaultInflateBufferSize)
}

// NewInflateReaderSize is like NewInflateReader but lets the caller size the
// interposed bufio.Reader explicitly.
func NewInflateReaderSize(upstream io.Reader, bufSize int) *InflateReader {
	if bufSize <= 0 {
		bufSize = defaultInflateBufferSize
	}
	return &InflateReader{
		upstream: upstream,
		bufSize:  bufSize,
		fr:       flate.NewReader(bufio.NewReaderSize(upstream, bufSize)),
		crc:      0,
	}
}

// Read decompresses into p, advancing the running CRC-32 over every byte
// returned.
func (r *InflateReader) Read(p []byte) (int, error) {
	n, err := r.fr.Read(p)
	if n > 0 {
		r.crc = crc32.Update(r.crc, crc32.IEEETable, p[:n])
		r.read += int64(n)
	}
	return n, err
}

// Sum32 returns the CRC-32 accumulated so far.
func (r *InflateReader) Sum32() uint32 { return r.crc }

// BytesRead returns the number of decompressed bytes yielded so far.
func (r *InflateReader) BytesRead() int64 { return r.read }

// Close releases the underlying flate decoder. It does not close upstream.
func (r *InflateReader) Close() error { return r.fr.Close() }

// Reset discards all buffered state and CRC accumulation and reinitializes
// the codec against a new upstream reader, so a single InflateReader
// instance can be reused to decode successive entries in the same archive.
// A new bufio.Reader of the configured size is allocated for the new
// upstream; the codec itself is reset in place when it supports it.
func (r *InflateReader) Reset(upstream io.Reader) {
	r.upstream = upstream
	buffered := bufio.NewReaderSize(upstream, r.bufSize)
	if resetter, ok := r.fr.(flate.Resetter); ok {
		_ = resetter.Reset(buffered, nil)
	} else {
		r.fr = flate.NewReader(buffered)
	}
	r.crc = 0
	r.read = 0
}

// storedReader is the pass-through counterpart of InflateReader used when an
// entry's method is STORED: no decompression, but the same CRC/length
// bookkeeping so callers can treat STORED and DEFLATED uniformly.
type storedReader struct {
	upstream io.Reader
	crc      uint32
	read     int64
}

func newStoredReader(upstream io.Reader) *storedReader {
	return &storedReader{upstream: upstream, crc: 0}
}

func (r *storedReader) Read(p []byte) (int, error) {
	n, err := r.upstream.Read(p)
	if n > 0 {
		r.crc = crc32.Update(r.crc, crc32.IEEETable, p[:n])
		r.read += int64(n)
	}
	return n, err
}

func (r *storedReader) Sum32() uint32    { return r.crc }
func (r *storedReader) BytesRead() int64 { return r.read }
func (r *storedReader) Close() error     { return nil }
