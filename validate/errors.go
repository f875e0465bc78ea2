/*
Copyright 2021 The cert-manager Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package validate implements the path validator: build a Path from the
// leaf, walk it anchor-to-leaf enforcing extension and temporal constraints,
// fold Name Constraints, check revocation, then verify signatures
// leaf-ward.
package validate

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrorKind is one of the closed set of error kinds this package
// produces. It is a kind, not a Go error type, so a single *Error
// wrapping type carries it alongside a field path and a human-readable
// detail, the same shape field.ErrorList-style validators produce
// before reducing to an aggregate message, just reduced here to a
// single first error.
type ErrorKind string

const (
	ErrOutOfMemory          ErrorKind = "OutOfMemory"
	ErrExtensionNotFound    ErrorKind = "ExtensionNotFound"
	ErrIssuerNotFound       ErrorKind = "IssuerNotFound"
	ErrPathTooLong          ErrorKind = "PathTooLong"
	ErrParentNotCA          ErrorKind = "ParentNotCA"
	ErrCAPathTooDeep        ErrorKind = "CAPathTooDeep"
	ErrKUCertMissing        ErrorKind = "KUCertMissing"
	ErrCertUsedBeforeTime   ErrorKind = "CertUsedBeforeTime"
	ErrCertUsedAfterTime    ErrorKind = "CertUsedAfterTime"
	ErrVerifyConstraints    ErrorKind = "VerifyConstraints"
	ErrNameConstraintError  ErrorKind = "NameConstraintError"
	ErrRangeUnsupported     ErrorKind = "RangeUnsupported"
	ErrPathAlgorithmChanged ErrorKind = "PathAlgorithmChanged" // reserved, never produced
	ErrBadSignature         ErrorKind = "BadSignature"
	ErrRevoked              ErrorKind = "Revoked"
	ErrRevokeUnknown        ErrorKind = "RevokeUnknown"
	ErrInvalidArgument      ErrorKind = "InvalidArgument"
	ErrDecodeError          ErrorKind = "DecodeError"
	// ErrUnhandledCriticalExtension closes a gap some RFC 5280 validators
	// leave open: an unrecognized critical extension must fail the path,
	// not be silently ignored.
	ErrUnhandledCriticalExtension ErrorKind = "UnhandledCriticalExtension"
)

// Error wraps an ErrorKind with an optional structured field path (which
// extension, which subtree index) and a human-readable detail, mirroring
// field.Error's shape without pulling in its exact type (field.Error's
// constructors assume a validated-object context this core doesn't
// have).
type Error struct {
	Kind   ErrorKind
	Path   *field.Path
	Detail string
}

func (e *Error) Error() string {
	if e.Path != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path.String(), e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is supports errors.Is(err, &Error{Kind: SomeKind}): any *Error target
// with the same Kind matches, whatever its Path and Detail.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// newError is the constructor every check below funnels through.
func newError(kind ErrorKind, path *field.Path, detail string, args ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Detail: fmt.Sprintf(detail, args...)}
}
