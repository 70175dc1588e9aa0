// Copyright 2024 The pffparse Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pff

import "fmt"

// Kind identifies the category of a parsing failure. Kinds are stable and
// callers may switch on them; the wrapped Cause is only for diagnostics.
type Kind int

const (
	// KindUnknown is never produced by this package; it exists so the zero
	// value of Kind is not a valid error category.
	KindUnknown Kind = iota

	// KindIO means the underlying Source failed a ReadAt or Size call.
	KindIO

	// KindInvalidSignature means a magic number, signature byte, or variant
	// sentinel did not match any recognized value.
	KindInvalidSignature

	// KindUnsupportedVariant means the data-version or file-type byte does
	// not name a variant this package understands.
	KindUnsupportedVariant

	// KindCrcMismatch means a payload's weak CRC did not match its stored
	// footer value. Surfaced as a Flag unless StrictValidation is set.
	KindCrcMismatch

	// KindSizeMismatch means a declared size disagreed with the size read.
	KindSizeMismatch

	// KindIdentifierMismatch means a block's back-pointer disagreed with
	// its block-id.
	KindIdentifierMismatch

	// KindCorruptInput means a structural invariant was violated: data-array
	// sizes don't sum, a heap reference falls outside its segment, branch
	// key ordering is broken, and similar.
	KindCorruptInput

	// KindMissingDescriptor means a descriptor id was absent from both the
	// live and recovered descriptor indexes.
	KindMissingDescriptor

	// KindUnsupportedValueType means a table value-type/size combination is
	// not one this package's §4.9.2 rules recognize.
	KindUnsupportedValueType

	// KindDecryptionFailed means a codec processed a byte count different
	// from its input size.
	KindDecryptionFailed

	// KindInvalidInput means a caller-supplied argument (an unknown
	// encryption mode name, an out-of-range index) was invalid.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindUnsupportedVariant:
		return "unsupported_variant"
	case KindCrcMismatch:
		return "crc_mismatch"
	case KindSizeMismatch:
		return "size_mismatch"
	case KindIdentifierMismatch:
		return "identifier_mismatch"
	case KindCorruptInput:
		return "corrupt_input"
	case KindMissingDescriptor:
		return "missing_descriptor"
	case KindUnsupportedValueType:
		return "unsupported_value_type"
	case KindDecryptionFailed:
		return "decryption_failed"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned across this package. It
// replaces the linked error-list pattern of the reference implementation
// with a single enumerated Kind plus an optional chained Cause.
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pff: %s: %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("pff: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &Error{Kind: KindCrcMismatch}) matches any error of that
// Kind in err's chain. Kind itself is not an error; KindOf extracts it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// KindOf extracts the Kind of err, or KindUnknown if err is nil or was not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if err == nil {
		return KindUnknown
	}
	if asError(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
