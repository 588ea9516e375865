// Package bperr defines the error taxonomy shared by every bppkg component.
//
// Lower layers classify failures into one of the kinds below; the installer
// is the only layer allowed to turn a classified error into a partial-success
// tally instead of aborting.
package bperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation covers bad names, versions, and malformed manifests.
	// Validation failures always abort before any mutation.
	KindValidation
	// KindSecurity covers checksum mismatches, untrusted signers, invalid
	// signatures, path traversal, and disallowed URL schemes or hosts.
	KindSecurity
	// KindNetwork covers transport, HTTP status, and timeout failures.
	KindNetwork
	// KindDependency covers version conflicts and circular dependencies.
	KindDependency
	// KindPackage covers generic precondition failures such as a missing
	// manifest.
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindSecurity:
		return "security error"
	case KindNetwork:
		return "network error"
	case KindDependency:
		return "dependency error"
	case KindPackage:
		return "package error"
	default:
		return "error"
	}
}

// Error is a classified error. Pkg names the package the failure concerns
// when one is known.
type Error struct {
	Kind Kind
	Pkg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Pkg != "" {
		return fmt.Sprintf("%s: package %q: %v", e.Kind, e.Pkg, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and an optional package name.
func New(kind Kind, pkg string, err error) *Error {
	if err == nil {
		panic("bperr: nil underlying error")
	}
	return &Error{Kind: kind, Pkg: pkg, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, pkg, format string, args ...any) *Error {
	return New(kind, pkg, fmt.Errorf(format, args...))
}

func Validationf(format string, args ...any) *Error {
	return Newf(KindValidation, "", format, args...)
}

func Securityf(format string, args ...any) *Error {
	return Newf(KindSecurity, "", format, args...)
}

func Networkf(format string, args ...any) *Error {
	return Newf(KindNetwork, "", format, args...)
}

func Dependencyf(format string, args ...any) *Error {
	return Newf(KindDependency, "", format, args...)
}

func Packagef(format string, args ...any) *Error {
	return Newf(KindPackage, "", format, args...)
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindUnknown if none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains a classified error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
