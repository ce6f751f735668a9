// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"

	"github.com/onyxlabs/zipcore/internal/ziprecord"
)

// writerState tracks what may legally happen next on a Writer, catching the
// double-close / write-after-close / add-after-close misuses that spec §7
// classifies as KindStateError.
type writerState int

const (
	writerOpen writerState = iota
	writerEntryOpen
	writerClosed
)

// pendingEntry tracks the bookkeeping needed to backpatch a local header
// once an entry's compressed size and CRC-32 are known.
type pendingEntry struct {
	entry        *FileEntry
	method       Method // effective method actually written, may differ from entry.Method()
	localOffset  int64  // absolute within the virtual window
	dataOffset   int64
	filterWriter interface {
		io.Writer
		Sum32() uint32
		BytesWritten() int64
		Close() error
	}
}

// Writer builds a ZIP archive one entry at a time: AddEntry opens a new
// member and returns an io.Writer for its uncompressed bytes; writing to
// entries must be strictly sequential (spec §5: no interleaving). Close
// finalizes the current entry if needed, then emits the central directory
// and EOCD record.
type Writer struct {
	vs      *VirtualSeeker
	state   writerState
	entries []*FileEntry
	comment string

	defaultLevel CompressionLevel
	current      *pendingEntry
}

// WriterOption is a functional option for configuring a Writer at
// construction time, in the teacher's AddOption/ExtractOption idiom.
type WriterOption func(w *Writer)

// WithDefaultLevel overrides the compression level applied to entries added
// with AddEntry whose own Level() is still LevelDefault, letting a caller
// set an archive-wide default (e.g. LevelSmallest for a "maximize
// compression" mode) without touching every entry individually.
func WithDefaultLevel(lvl CompressionLevel) WriterOption {
	return func(w *Writer) { w.defaultLevel = lvl }
}

// NewWriter creates a Writer that emits its archive into vs, starting at the
// window's current offset.
func NewWriter(vs *VirtualSeeker, opts ...WriterOption) *Writer {
	w := &Writer{vs: vs, defaultLevel: LevelDefault}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetComment sets the archive-wide comment emitted in the EOCD record.
func (w *Writer) SetComment(c string) { w.comment = c }

// AddEntry begins a new archive member described by e (its Method and Level
// are read at this point; later mutations to e do not affect the entry
// already being written). It writes a placeholder local header immediately
// and returns a writer for the entry's uncompressed content. The previous
// entry, if any, must already be closed via CloseEntry.
func (w *Writer) AddEntry(e *FileEntry) (io.Writer, error) {
	if w.state == writerClosed {
		return nil, wrapf(KindStateError, "writer.AddEntry", nil, "write after close")
	}
	if w.state == writerEntryOpen {
		return nil, wrapf(KindStateError, "writer.AddEntry", nil, "previous entry not closed")
	}

	localOffset, err := w.vs.VTell()
	if err != nil {
		return nil, wrapf(KindIoShort, "writer.AddEntry", err, "tell before local header")
	}

	lvl := e.Level()
	if lvl == LevelDefault {
		lvl = w.defaultLevel
	}

	// A LevelNone entry's payload is the raw uncompressed bytes, which is
	// only valid on read if the method recorded alongside it is Stored,
	// not Deflated; it is then written through storedWriter below.
	method := e.Method()
	if !e.IsDirectory() && method != Stored && lvl == LevelNone {
		method = Stored
	}

	lh := ziprecord.LocalFileHeader{
		VersionNeeded: 20,
		Method:        uint16(method),
		DOSTime:       e.DOSTime(),
		Filename:      e.Name(),
		Extra:         e.Extra(),
	}
	if _, err := w.vs.Write(lh.Encode()); err != nil {
		return nil, wrapf(KindIoShort, "writer.AddEntry", err, "write local header for %q", e.Name())
	}

	dataOffset, err := w.vs.VTell()
	if err != nil {
		return nil, wrapf(KindIoShort, "writer.AddEntry", err, "tell after local header")
	}

	var fw interface {
		io.Writer
		Sum32() uint32
		BytesWritten() int64
		Close() error
	}

	if e.IsDirectory() || method == Stored {
		fw = newStoredWriter(w.vs)
	} else {
		dw, err := NewDeflateWriter(w.vs, lvl)
		if err != nil {
			return nil, err
		}
		fw = dw
	}

	w.current = &pendingEntry{entry: e, method: method, localOffset: localOffset, dataOffset: dataOffset, filterWriter: fw}
	w.state = writerEntryOpen
	return fw, nil
}

// CloseEntry finalizes the entry currently open for writing: it flushes the
// compression filter, records the resulting compressed size and CRC-32 on
// the entry, rewrites the local header in place with the now-known values,
// and repositions past the entry's compressed data so the next AddEntry
// starts cleanly.
func (w *Writer) CloseEntry() error {
	if w.state != writerEntryOpen {
		return wrapf(KindStateError, "writer.CloseEntry", nil, "no entry open")
	}
	p := w.current
	w.current = nil
	w.state = writerOpen

	if err := p.filterWriter.Close(); err != nil {
		return wrapf(KindStateError, "writer.CloseEntry", err, "flush entry %q", p.entry.Name())
	}

	endOffset, err := w.vs.VTell()
	if err != nil {
		return wrapf(KindIoShort, "writer.CloseEntry", err, "tell after entry data")
	}
	actualCompressedSize := endOffset - p.dataOffset

	p.entry.SetSize(uint32(p.filterWriter.BytesWritten()))
	p.entry.SetCompressedSize(uint32(actualCompressedSize))
	p.entry.SetCRC32(p.filterWriter.Sum32())
	p.entry.SetMethod(p.method)
	p.entry.entryOffset = p.localOffset
	p.entry.headerSize = ziprecord.LocalFileHeaderLen + uint32(len(p.entry.Name())) + uint32(len(p.entry.Extra()))

	if _, err := w.vs.VSeek(endOffset, io.SeekStart); err != nil {
		return wrapf(KindIoShort, "writer.CloseEntry", err, "seek past entry data")
	}
	if err := w.rewriteLocalHeader(p); err != nil {
		return err
	}

	w.entries = append(w.entries, p.entry)
	return nil
}

// rewriteLocalHeader seeks back to the entry's local header and rewrites it
// now that compressed size and CRC-32 are known, then restores the write
// cursor to the end of the entry's data.
func (w *Writer) rewriteLocalHeader(p *pendingEntry) error {
	resumeAt, err := w.vs.VTell()
	if err != nil {
		return wrapf(KindIoShort, "writer.rewriteLocalHeader", err, "tell before rewrite")
	}

	if _, err := w.vs.VSeek(p.localOffset, io.SeekStart); err != nil {
		return wrapf(KindIoShort, "writer.rewriteLocalHeader", err, "seek to local header")
	}

	lh := ziprecord.LocalFileHeader{
		VersionNeeded:    20,
		Method:           uint16(p.entry.Method()),
		DOSTime:          p.entry.DOSTime(),
		CRC32:            p.entry.CRC32(),
		CompressedSize:   p.entry.CompressedSize(),
		UncompressedSize: p.entry.Size(),
		Filename:         p.entry.Name(),
		Extra:            p.entry.Extra(),
	}
	if _, err := w.vs.Write(lh.Encode()); err != nil {
		return wrapf(KindIoShort, "writer.rewriteLocalHeader", err, "rewrite local header for %q", p.entry.Name())
	}

	if _, err := w.vs.VSeek(resumeAt, io.SeekStart); err != nil {
		return wrapf(KindIoShort, "writer.rewriteLocalHeader", err, "restore cursor after rewrite")
	}
	return nil
}

// Close finalizes any entry still open, then emits the central directory
// and end-of-central-directory record. It is not idempotent: calling Close
// twice returns KindStateError.
func (w *Writer) Close() error {
	if w.state == writerClosed {
		return wrapf(KindStateError, "writer.Close", nil, "already closed")
	}
	if w.state == writerEntryOpen {
		if err := w.CloseEntry(); err != nil {
			return err
		}
	}
	w.state = writerClosed

	cdStart, err := w.vs.VTell()
	if err != nil {
		return wrapf(KindIoShort, "writer.Close", err, "tell before central directory")
	}

	for _, e := range w.entries {
		cd := ziprecord.CentralDirectoryHeader{
			VersionMadeBy:     20,
			VersionNeeded:     20,
			Method:            uint16(e.Method()),
			DOSTime:           e.DOSTime(),
			CRC32:             e.CRC32(),
			CompressedSize:    e.CompressedSize(),
			UncompressedSize:  e.Size(),
			LocalHeaderOffset: uint32(e.EntryOffset()),
			Filename:          e.Name(),
			Extra:             e.Extra(),
			Comment:           e.Comment(),
		}
		if _, err := w.vs.Write(cd.Encode()); err != nil {
			return wrapf(KindIoShort, "writer.Close", err, "write central directory entry for %q", e.Name())
		}
	}

	cdEnd, err := w.vs.VTell()
	if err != nil {
		return wrapf(KindIoShort, "writer.Close", err, "tell after central directory")
	}

	eocd := ziprecord.EndOfCentralDir{
		EntriesThisDisk:  uint16(len(w.entries)),
		EntriesTotal:     uint16(len(w.entries)),
		CentralDirSize:   uint32(cdEnd - cdStart),
		CentralDirOffset: uint32(cdStart),
		Comment:          w.comment,
	}
	if _, err := w.vs.Write(eocd.Encode()); err != nil {
		return wrapf(KindIoShort, "writer.Close", err, "write end of central directory")
	}
	return nil
}

// Entries returns the entries committed so far via CloseEntry, in the order
// they were added.
func (w *Writer) Entries() []*FileEntry { return w.entries }
