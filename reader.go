// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"strings"

	"github.com/onyxlabs/zipcore/internal/ziprecord"
)

// MatchPath controls how Reader/FileCollection entry lookups compare names.
type MatchPath int

const (
	// MatchFull compares the full logical path.
	MatchFull MatchPath = iota
	// MatchIgnoreDir strips leading directory components and compares
	// only the basename.
	MatchIgnoreDir
)

func matchName(candidate, want string, mp MatchPath) bool {
	if mp == MatchFull {
		return candidate == want
	}
	return baseName(candidate) == baseName(want)
}

func baseName(name string) string {
	name = strings.TrimSuffix(name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Reader parses an existing ZIP archive's central directory and hands back
// decompressing streams for individual entries. It operates entirely
// through a VirtualSeeker, so it works identically whether the archive
// starts at byte 0 of its source or is embedded at some offset inside a
// larger file.
type Reader struct {
	vs      *VirtualSeeker
	entries []*FileEntry
	comment string

	backBufferChunk int
	inflateBufSize  int
}

// ReaderOption is a functional option for configuring a Reader at open
// time, in the teacher's AddOption/ExtractOption idiom.
type ReaderOption func(r *Reader)

// WithBackBufferChunkSize overrides the chunk size the back-buffer scanner
// uses while searching for the end-of-central-directory signature. The
// default, defaultBackBufferChunk, suits archives with short or no
// comments; a larger value trades memory for fewer seeks on archives
// expected to carry long comments.
func WithBackBufferChunkSize(n int) ReaderOption {
	return func(r *Reader) { r.backBufferChunk = n }
}

// WithInflateBufferSize overrides the size of the bufio.Reader each opened
// DEFLATEd entry's InflateReader interposes between the codec and the
// VirtualSeeker (see NewInflateReaderSize).
func WithInflateBufferSize(n int) ReaderOption {
	return func(r *Reader) { r.inflateBufSize = n }
}

// OpenReader parses the archive visible through vs: it locates the EOCD via
// the back-buffer scanner, reads the central directory, and populates
// Entries(). The source is not retained open beyond what vs already wraps;
// closing is the caller's responsibility.
func OpenReader(vs *VirtualSeeker, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{vs: vs, backBufferChunk: defaultBackBufferChunk, inflateBufSize: defaultInflateBufferSize}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) load() error {
	bb, err := NewBackBuffer(r.vs, r.backBufferChunk)
	if err != nil {
		return err
	}
	eocdOffset, err := bb.FindEOCD()
	if err != nil {
		return err
	}

	if _, err := r.vs.VSeek(eocdOffset+4, io.SeekStart); err != nil {
		return wrapf(KindIoShort, "reader.load", err, "seek to eocd fields")
	}
	eocd, err := ziprecord.ReadEndOfCentralDir(r.vs)
	if err != nil {
		return wrapf(KindMalformed, "reader.load", err, "decode end of central directory")
	}
	r.comment = eocd.Comment

	if _, err := r.vs.VSeek(int64(eocd.CentralDirOffset), io.SeekStart); err != nil {
		return wrapf(KindMalformed, "reader.load", err, "seek to central directory")
	}

	entries := make([]*FileEntry, 0, eocd.EntriesTotal)
	for i := uint16(0); i < eocd.EntriesTotal; i++ {
		cd, err := ziprecord.ReadCentralDirectoryHeader(r.vs)
		if err != nil {
			return wrapf(KindMalformed, "reader.load", err, "decode central directory entry %d", i)
		}
		entries = append(entries, fileEntryFromCentralDir(cd))
	}
	r.entries = entries
	return nil
}

func fileEntryFromCentralDir(cd ziprecord.CentralDirectoryHeader) *FileEntry {
	e := &FileEntry{
		name:           cd.Filename,
		comment:        cd.Comment,
		size:           cd.UncompressedSize,
		compressedSize: cd.CompressedSize,
		crc32:          cd.CRC32,
		hasCRC:         true,
		method:         Method(cd.Method),
		level:          LevelDefault,
		dosTime:        cd.DOSTime,
		extra:          cd.Extra,
		entryOffset:    int64(cd.LocalHeaderOffset),
	}
	return e
}

// Comment returns the archive-wide comment recorded in the EOCD.
func (r *Reader) Comment() string { return r.comment }

// Entries returns the parsed entries in central-directory order. The slice
// is shared with the Reader; callers that need to mutate should Clone
// individual entries first.
func (r *Reader) Entries() []*FileEntry { return r.entries }

// Find looks up an entry by name, honoring the given match policy. Ties
// resolve to the first occurrence. Returns nil if no entry matches.
func (r *Reader) Find(name string, mp MatchPath) *FileEntry {
	for _, e := range r.entries {
		if matchName(e.name, name, mp) {
			return e
		}
	}
	return nil
}

// GetInputStream locates the named entry, parses and validates its local
// header, and returns a stream that decompresses the entry's data (or
// passes it straight through for Stored entries) while verifying, at
// end-of-stream, that both the CRC-32 and total length match the
// central-directory record. It returns nil with no error if name is not
// found; it returns a *Error with KindMalformed if the entry exists but its
// local header is damaged.
func (r *Reader) GetInputStream(name string, mp MatchPath) (io.ReadCloser, error) {
	e := r.Find(name, mp)
	if e == nil {
		return nil, nil
	}
	return r.openEntry(e)
}

func (r *Reader) openEntry(e *FileEntry) (io.ReadCloser, error) {
	if _, err := r.vs.VSeek(e.entryOffset, io.SeekStart); err != nil {
		return nil, wrapf(KindMalformed, "reader.openEntry", err, "seek to local header of %q", e.name)
	}
	lh, err := ziprecord.ReadLocalFileHeader(r.vs)
	if err != nil {
		return nil, wrapf(KindMalformed, "reader.openEntry", err, "decode local header of %q", e.name)
	}

	dataOffset := e.entryOffset + ziprecord.LocalFileHeaderLen + int64(len(lh.Filename)) + int64(len(lh.Extra))
	e.headerSize = uint32(dataOffset - e.entryOffset)
	if _, err := r.vs.VSeek(dataOffset, io.SeekStart); err != nil {
		return nil, wrapf(KindMalformed, "reader.openEntry", err, "seek to data of %q", e.name)
	}

	limited := io.LimitReader(r.vs, int64(e.compressedSize))

	var body interface {
		io.Reader
		Sum32() uint32
		BytesRead() int64
	}

	switch e.method {
	case Stored:
		body = newStoredReader(limited)
	case Deflated:
		body = NewInflateReaderSize(limited, r.inflateBufSize)
	default:
		return nil, wrapf(KindUnsupportedMethod, "reader.openEntry", nil, "method %d for %q", e.method, e.name)
	}

	return &verifyingStream{entry: e, body: body}, nil
}

// verifyingStream wraps an InflateReader/storedReader, checking the
// accumulated CRC-32 and byte count against the entry's recorded values the
// moment the upstream reader reports io.EOF.
type verifyingStream struct {
	entry *FileEntry
	body  interface {
		io.Reader
		Sum32() uint32
		BytesRead() int64
	}
	verified bool
}

func (s *verifyingStream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if err == io.EOF && !s.verified {
		s.verified = true
		if verr := s.verify(); verr != nil {
			return n, verr
		}
	}
	return n, err
}

func (s *verifyingStream) verify() error {
	if s.body.BytesRead() != int64(s.entry.size) {
		return wrapf(KindCorrupt, "reader.verify", nil,
			"entry %q: decompressed %d bytes, want %d", s.entry.name, s.body.BytesRead(), s.entry.size)
	}
	if s.entry.hasCRC && s.body.Sum32() != s.entry.crc32 {
		return wrapf(KindCorrupt, "reader.verify", nil,
			"entry %q: crc32 %#x, want %#x", s.entry.name, s.body.Sum32(), s.entry.crc32)
	}
	return nil
}

func (s *verifyingStream) Close() error {
	if c, ok := s.body.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
