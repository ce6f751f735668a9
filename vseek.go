// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import "io"

// VirtualSeeker exposes a bounded [offset, endOffset] sub-range of an
// underlying io.ReadSeeker (or io.WriteSeeker, for the writer side) as if it
// were the whole source. Every read and seek performed by the back-buffer
// scanner, the inflate/deflate filters, the entry header codec and the
// archive reader/writer goes through a VirtualSeeker instance rather than
// touching the underlying source directly, so a ZIP archive embedded at an
// arbitrary byte offset inside a larger file (e.g. a self-extracting
// executable) is indistinguishable from a standalone archive.
//
// endOffset pins the window to an absolute physical offset when >= 0. Pass
// -1 to mean "the physical end of src, whatever that turns out to be" —
// the only negative value the type accepts; there is no support for "N
// bytes before the physical end".
type VirtualSeeker struct {
	src       io.ReadWriteSeeker
	offset    int64 // start of the window, absolute in the underlying source
	endOffset int64 // absolute end of the window; -1 means "physical EOF"
}

// NewVirtualSeeker builds a window over src starting at offset. If end >= 0
// it is the absolute physical end of the window; pass -1 to mean "the
// physical end of src". Any other negative value is normalized to -1.
func NewVirtualSeeker(src io.ReadWriteSeeker, offset, end int64) *VirtualSeeker {
	if end < 0 {
		end = -1
	}
	return &VirtualSeeker{src: src, offset: offset, endOffset: end}
}

// physicalEnd resolves the absolute physical offset of the window's end,
// querying the underlying source's real end the first time it's needed.
func (v *VirtualSeeker) physicalEnd() (int64, error) {
	if v.endOffset >= 0 {
		return v.endOffset, nil
	}
	cur, err := v.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := v.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := v.src.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// VSeek repositions within the virtual window. whence follows io.Seeker
// semantics, but io.SeekStart is relative to the window's offset and
// io.SeekEnd is relative to the window's end, not the underlying source's.
func (v *VirtualSeeker) VSeek(pos int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = v.offset + pos
	case io.SeekCurrent:
		cur, err := v.src.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		abs = cur + pos
	case io.SeekEnd:
		end, err := v.physicalEnd()
		if err != nil {
			return 0, err
		}
		abs = end + pos
	default:
		return 0, wrapf(KindStateError, "vseek.VSeek", nil, "invalid whence %d", whence)
	}

	if abs < v.offset {
		return 0, wrapf(KindStateError, "vseek.VSeek", nil, "seek before window start")
	}

	if _, err := v.src.Seek(abs, io.SeekStart); err != nil {
		return 0, err
	}
	return abs - v.offset, nil
}

// VTell returns the current position relative to the window's offset.
func (v *VirtualSeeker) VTell() (int64, error) {
	abs, err := v.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return abs - v.offset, nil
}

// Read reads directly from the current position, without repositioning.
func (v *VirtualSeeker) Read(p []byte) (int, error) { return v.src.Read(p) }

// Write writes directly at the current position, without repositioning.
func (v *VirtualSeeker) Write(p []byte) (int, error) { return v.src.Write(p) }

// Size returns the logical size of the window (end - offset).
func (v *VirtualSeeker) Size() (int64, error) {
	end, err := v.physicalEnd()
	if err != nil {
		return 0, err
	}
	return end - v.offset, nil
}

// Offset returns the absolute physical offset this window starts at.
func (v *VirtualSeeker) Offset() int64 { return v.offset }
