// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the failure modes a caller can usefully branch on.
// It intentionally does not distinguish which component raised the error;
// use errors.Is against the Kind-carrying sentinel comparisons below, or
// inspect Error.Kind directly.
type ErrorKind int

const (
	// KindIoShort means an underlying read returned fewer bytes than required.
	KindIoShort ErrorKind = iota
	// KindNotAZip means the End-of-Central-Directory record was not found.
	KindNotAZip
	// KindMalformed means a signature mismatch, bad field length, or a
	// truncated record was encountered while parsing.
	KindMalformed
	// KindCorrupt means a decompressed entry's length or CRC-32 does not
	// match the value recorded in the central directory.
	KindCorrupt
	// KindUnsupportedMethod means a per-entry compression method outside
	// {STORED, DEFLATED} was requested or encountered.
	KindUnsupportedMethod
	// KindInvalidLevel means a compression level outside the accepted
	// range was assigned to an entry.
	KindInvalidLevel
	// KindStateError means double-init, write-after-close, or read past
	// end of a stream.
	KindStateError
	// KindUnsupported means ZIP64, encryption, or split archives were
	// requested; these are explicit non-goals of this implementation.
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindIoShort:
		return "io short read"
	case KindNotAZip:
		return "not a zip archive"
	case KindMalformed:
		return "malformed record"
	case KindCorrupt:
		return "corrupt entry"
	case KindUnsupportedMethod:
		return "unsupported compression method"
	case KindInvalidLevel:
		return "invalid compression level"
	case KindStateError:
		return "invalid state"
	case KindUnsupported:
		return "unsupported feature"
	default:
		return "unknown error"
	}
}

// Error is the error type returned across package boundaries. It carries a
// Kind so callers can branch with errors.Is/errors.As without depending on
// message text, and it wraps the underlying cause (which, for I/O failures,
// may itself carry a stack trace courtesy of github.com/pkg/errors).
type Error struct {
	Kind ErrorKind
	Op   string // component/operation that raised the error, e.g. "reader.findEOCD"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("zipcore: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("zipcore: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrKind(KindCorrupt)) style comparisons.
func (e *Error) Is(target error) bool {
	kindErr, ok := target.(*Error)
	if !ok {
		return false
	}
	return kindErr.Kind == e.Kind && kindErr.Err == nil
}

// ErrKind returns a sentinel usable with errors.Is to check a *Error's Kind,
// e.g. errors.Is(err, zipcore.ErrKind(zipcore.KindCorrupt)).
func ErrKind(k ErrorKind) error { return &Error{Kind: k} }

// wrapf builds an *Error, attaching a stack trace to the cause via
// github.com/pkg/errors so a %+v format on the returned error prints the
// original failure site even after it has crossed several layers of
// virtual seeker / back-buffer / inflate filter.
func wrapf(kind ErrorKind, op string, cause error, format string, args ...interface{}) *Error {
	var err error
	if cause != nil {
		err = errors.Wrapf(cause, format, args...)
	} else if format != "" {
		err = errors.Errorf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
