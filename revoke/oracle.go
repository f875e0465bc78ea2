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

// Package revoke defines the revocation consumer interface ("Oracle")
// that a verification context attaches to check a certificate's
// revocation status, plus a reference in-memory implementation used
// throughout this repository's own test suite.
package revoke

import (
	"time"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/certstore"
)

// Outcome is an Oracle's verdict for a single (subject, issuer) edge in
// a path.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRevoked
	OutcomeUnknown
)

// Oracle is the one-operation revocation consumer interface: given the
// working store (every certificate in the path merged with the
// candidate pool), the verification time, and a subject/issuer edge,
// report whether the subject has been revoked by that issuer.
type Oracle interface {
	Check(store certstore.CertStore, now time.Time, subject, issuer *cert.Certificate) (Outcome, error)
}
