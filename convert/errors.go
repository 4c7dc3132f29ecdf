// errors.go defines the conversion failure taxonomy. Every terminal
// pipeline failure carries a FailureKind so the batch layer can match
// outcomes without inspecting error strings.

package convert

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a file failed to convert.
type FailureKind int

const (
	// FailureNone marks a successful conversion.
	FailureNone FailureKind = iota
	// MalformedContainer: the input is not a readable compound file,
	// or its directory structure is corrupt.
	MalformedContainer
	// AttachmentTooDeep: embedded messages nest beyond the bound.
	AttachmentTooDeep
	// RenderingFailed: the HTML-to-PDF engine rejected the body.
	RenderingFailed
	// AssemblyFailed: a merge fragment was not a well-formed PDF; an
	// internal contract violation, not a per-attachment problem.
	AssemblyFailed
	// Cancelled: the conversion was abandoned by a cancelled context.
	Cancelled
	// WriteFailed: the output file could not be written.
	WriteFailed
)

// String returns the stable name used in reports and JSON output.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case MalformedContainer:
		return "malformed_container"
	case AttachmentTooDeep:
		return "attachment_too_deep"
	case RenderingFailed:
		return "rendering_failed"
	case AssemblyFailed:
		return "assembly_failed"
	case Cancelled:
		return "cancelled"
	case WriteFailed:
		return "write_failed"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Error is a conversion failure tagged with its kind.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// failf wraps err (or formats a new error) with a kind tag.
func failf(kind FailureKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error, returning
// FailureNone for nil and defaulting to MalformedContainer for
// untagged errors from the parsing layers.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return MalformedContainer
}
