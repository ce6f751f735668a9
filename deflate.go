// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// CompressionLevel mirrors the enum of spec §3: a handful of named presets
// plus the integer range 1..100 mapped linearly onto zlib's 1..9.
type CompressionLevel int

const (
	LevelDefault  CompressionLevel = -1
	LevelSmallest CompressionLevel = -2
	LevelFastest  CompressionLevel = -3
	LevelNone     CompressionLevel = 0
)

// ValidLevel reports whether lvl is one of the named presets or within the
// accepted [1,100] integer range.
func ValidLevel(lvl CompressionLevel) bool {
	switch lvl {
	case LevelDefault, LevelSmallest, LevelFastest, LevelNone:
		return true
	}
	return lvl >= 1 && lvl <= 100
}

// zlibLevel maps a CompressionLevel onto the 0..9 scale flate.NewWriter
// expects, per the table in spec §4.F.
func zlibLevel(lvl CompressionLevel) int {
	switch lvl {
	case LevelDefault:
		return flate.DefaultCompression
	case LevelSmallest:
		return flate.BestCompression
	case LevelFastest:
		return flate.BestSpeed
	case LevelNone:
		return flate.NoCompression
	}
	// 1..100 -> 1..9, formula from the original zipios++ deflate filter.
	return ((int(lvl)-1)*8+11/2)/99 + 1
}

// DeflateWriter is a write-only byte-stream adapter that compresses data
// written to it with raw (headerless) DEFLATE before forwarding it
// downstream, maintaining a running CRC-32 and byte count over the
// *uncompressed* bytes seen.
//
// When the level is LevelNone, the codec is bypassed: bytes are copied
// straight downstream, so the result is a true zero-overhead stored payload
// with none of the codec's stored-block headers or end-of-stream marker.
type DeflateWriter struct {
	downstream  io.Writer
	fw          *flate.Writer
	crc         uint32
	written     int64
	bytesToSkip int
	store       bool
	closed      bool
}

// NewDeflateWriter creates a writer that compresses at the given level and
// writes the compressed bytes to downstream.
func NewDeflateWriter(downstream io.Writer, level CompressionLevel) (*DeflateWriter, error) {
	if !ValidLevel(level) {
		return nil, wrapf(KindInvalidLevel, "deflate.NewDeflateWriter", nil, "level %d out of range", int(level))
	}

	d := &DeflateWriter{downstream: downstream}
	if level == LevelNone {
		d.store = true
		return d, nil
	}
	fw, err := flate.NewWriter(skipWriter{d}, zlibLevel(level))
	if err != nil {
		return nil, wrapf(KindStateError, "deflate.NewDeflateWriter", err, "init codec")
	}
	d.fw = fw
	return d, nil
}

// skipWriter is where the flate.Writer's compressed output lands; it drops
// the leading bytesToSkip bytes (zero for every writer NewDeflateWriter
// builds) before forwarding the rest to the real downstream writer.
type skipWriter struct{ d *DeflateWriter }

func (s skipWriter) Write(p []byte) (int, error) {
	total := len(p)
	if s.d.bytesToSkip > 0 {
		skip := s.d.bytesToSkip
		if skip > len(p) {
			skip = len(p)
		}
		p = p[skip:]
		s.d.bytesToSkip -= skip
	}
	if len(p) > 0 {
		if _, err := s.d.downstream.Write(p); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Write compresses p, updating the CRC-32 and byte count over the
// uncompressed input.
func (d *DeflateWriter) Write(p []byte) (int, error) {
	if d.closed {
		return 0, wrapf(KindStateError, "deflate.Write", nil, "write after close")
	}
	var n int
	var err error
	if d.store {
		n, err = d.downstream.Write(p)
	} else {
		n, err = d.fw.Write(p)
	}
	if n > 0 {
		d.crc = crc32.Update(d.crc, crc32.IEEETable, p[:n])
		d.written += int64(n)
	}
	return n, err
}

// Sum32 returns the CRC-32 of the uncompressed bytes written so far.
func (d *DeflateWriter) Sum32() uint32 { return d.crc }

// BytesWritten returns the number of uncompressed bytes written so far.
func (d *DeflateWriter) BytesWritten() int64 { return d.written }

// Close flushes the codec until it signals completion. It is idempotent:
// calling Close a second time is a no-op. If zero bytes were ever written
// (an empty entry), the codec's own output is discarded to avoid emitting a
// spurious 2-byte empty-stream marker, matching the historical zipios++
// behavior of swallowing the Z_DATA_ERROR that zlib raises in that case.
func (d *DeflateWriter) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.written == 0 || d.store {
		// Nothing was ever fed to the codec (or LevelNone bypassed it);
		// there is nothing meaningful to flush, and closing a
		// freshly-initialized flate.Writer would otherwise emit a 2-byte
		// empty-stream marker we don't want.
		return nil
	}
	return d.fw.Close()
}

// storedWriter is the pass-through counterpart of DeflateWriter used when an
// entry's method is STORED: bytes are copied through unmodified, but the
// same CRC/length bookkeeping is maintained.
type storedWriter struct {
	downstream io.Writer
	crc        uint32
	written    int64
}

func newStoredWriter(downstream io.Writer) *storedWriter {
	return &storedWriter{downstream: downstream}
}

func (w *storedWriter) Write(p []byte) (int, error) {
	n, err := w.downstream.Write(p)
	if n > 0 {
		w.crc = crc32.Update(w.crc, crc32.IEEETable, p[:n])
		w.written += int64(n)
	}
	return n, err
}

func (w *storedWriter) Sum32() uint32       { return w.crc }
func (w *storedWriter) BytesWritten() int64 { return w.written }
func (w *storedWriter) Close() error        { return nil }
