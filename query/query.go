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

// Package query implements the certificate query language: a bitmask of
// predicates plus typed argument slots, evaluated conjunctively against
// a single certificate by Evaluate. It is the language the path builder
// and CertStore.Find both compile down to.
package query

import (
	"math/big"
	"strings"

	"github.com/cert-manager/x509path/cert"
)

// Option is a single predicate bit. Options combine into a Query.Mask by
// OR; Evaluate requires every set bit to hold.
type Option uint32

const (
	MatchCertificate Option = 1 << iota
	MatchSerial
	MatchIssuerName
	MatchSubjectName
	MatchSubjectKeyID
	FindIssuerCert
	PrivateKey
	KUDigitalSignature
	KUNonRepudiation
	KUKeyEncipherment
	KUDataEncipherment
	KUKeyAgreement
	KUKeyCertSign
	KUCRLSign
	MatchLocalKeyID
	NoMatchPath
	MatchFriendlyName
	MatchFunction
	MatchKeyHashSHA1
	Anchor
)

// knownMask is every bit Evaluate understands. Any bit outside it fails
// the match, per the closed predicate set's forward-compatibility guard.
const knownMask = MatchCertificate | MatchSerial | MatchIssuerName | MatchSubjectName |
	MatchSubjectKeyID | FindIssuerCert | PrivateKey |
	KUDigitalSignature | KUNonRepudiation | KUKeyEncipherment | KUDataEncipherment |
	KUKeyAgreement | KUKeyCertSign | KUCRLSign |
	MatchLocalKeyID | NoMatchPath | MatchFriendlyName | MatchFunction |
	MatchKeyHashSHA1 | Anchor

// kuOptions maps each KU_* option bit to the KeyUsage extension bit
// position it requires be set (RFC 5280 §4.2.1.3).
var kuOptions = map[Option]uint{
	KUDigitalSignature: 0,
	KUNonRepudiation:   1,
	KUKeyEncipherment:  2,
	KUDataEncipherment: 3,
	KUKeyAgreement:     4,
	KUKeyCertSign:      5,
	KUCRLSign:          6,
}

// Query is a descriptor with a predicate bitmask and the typed slots
// each predicate consults.
type Query struct {
	Mask Option

	SubjectCert  *cert.Certificate
	IssuerName   cert.Name
	SubjectName  cert.Name
	Serial       *big.Int
	SubjectKeyID []byte
	LocalKeyID   []byte
	FriendlyName string
	KeyHashSHA1  [20]byte
	Path         PathLike
	CustomFn     func(*cert.Certificate) int

	// AllowSelfSigned is forwarded to IsParent's allowSelfSigned
	// parameter for a FindIssuerCert match. Callers leave this false
	// unless the verify context's AllowProxyCert flag is set.
	AllowSelfSigned bool
}

// PathLike is the minimal view Query needs of a built path: membership
// testing for NoMatchPath. The path package's Path type satisfies this
// without query importing path (which imports certstore, which would
// cycle back through query).
type PathLike interface {
	Contains(c *cert.Certificate) bool
}

// Clear resets q to its zero value, the equivalent of query_clear.
func Clear(q *Query) {
	*q = Query{}
}

// MatchOption adds opt to the query's predicate mask. The caller is
// responsible for populating the slot the option consults before
// evaluating.
func (q *Query) MatchOption(opt Option) {
	q.Mask |= opt
}

// Evaluate is the query language's single pure predicate: every set bit
// in q.Mask must hold against c, and any bit outside knownMask fails the
// match outright.
func Evaluate(q Query, c *cert.Certificate) bool {
	if q.Mask&^knownMask != 0 {
		return false
	}

	if q.Mask&MatchCertificate != 0 && !cert.Cmp(c, q.SubjectCert) {
		return false
	}
	if q.Mask&MatchSerial != 0 {
		if cert.Serial(c) == nil || q.Serial == nil || cert.Serial(c).Cmp(q.Serial) != 0 {
			return false
		}
	}
	if q.Mask&MatchIssuerName != 0 && !cert.NameEqual(cert.Issuer(c), q.IssuerName) {
		return false
	}
	if q.Mask&MatchSubjectName != 0 && !cert.NameEqual(cert.Subject(c), q.SubjectName) {
		return false
	}
	if q.Mask&MatchSubjectKeyID != 0 {
		ski, ok := subjectKeyID(c)
		if !ok || string(ski) != string(q.SubjectKeyID) {
			return false
		}
	}
	if q.Mask&FindIssuerCert != 0 {
		if q.SubjectCert == nil || IsParent(q.SubjectCert, c, q.AllowSelfSigned) != 0 {
			return false
		}
	}
	if q.Mask&PrivateKey != 0 && cert.PrivateKey(c) == nil {
		return false
	}
	for opt, bit := range kuOptions {
		if q.Mask&opt == 0 {
			continue
		}
		ku, ok := keyUsage(c)
		if !ok || ku&(1<<bit) == 0 {
			return false
		}
	}
	if q.Mask&MatchLocalKeyID != 0 {
		id, ok := cert.LocalKeyID(c)
		if !ok || string(id) != string(q.LocalKeyID) {
			return false
		}
	}
	if q.Mask&NoMatchPath != 0 && q.Path != nil && q.Path.Contains(c) {
		return false
	}
	if q.Mask&MatchFriendlyName != 0 && !strings.EqualFold(cert.FriendlyName(c), q.FriendlyName) {
		return false
	}
	if q.Mask&MatchFunction != 0 {
		if q.CustomFn == nil || q.CustomFn(c) != 0 {
			return false
		}
	}
	if q.Mask&MatchKeyHashSHA1 != 0 && cert.KeyHashSHA1(c) != q.KeyHashSHA1 {
		return false
	}
	if q.Mask&Anchor != 0 {
		// Reserved: a negative filter enforced by the path builder/store
		// iteration order, not by the predicate evaluator.
		return false
	}
	return true
}

func subjectKeyID(c *cert.Certificate) ([]byte, bool) {
	ext, ok := cert.FindExtension(cert.Extensions(c), cert.OIDExtSubjectKeyIdentifier)
	if !ok {
		return nil, false
	}
	ski, err := cert.DecodeSubjectKeyIdentifier(ext.Value)
	if err != nil {
		return nil, false
	}
	return ski, true
}

// AKIState distinguishes "no AuthorityKeyIdentifier extension at all"
// from "extension present but its keyIdentifier sub-field is absent".
// RFC 5280 permits AKI to name the issuer by authorityCertIssuer /
// authorityCertSerialNumber instead of keyIdentifier; IsParent treats
// that as an outright rejection, never as "AKI not found".
type AKIState int

const (
	AKIAbsent  AKIState = iota // no AuthorityKeyIdentifier extension present
	AKINoKeyID                 // extension present, keyIdentifier sub-field absent
	AKIPresent                 // extension present with a usable keyIdentifier
)

// AuthorityKeyID reads c's AuthorityKeyIdentifier extension, reporting
// which of the three AKIState cases applies.
func AuthorityKeyID(c *cert.Certificate) ([]byte, AKIState) {
	ext, ok := cert.FindExtension(cert.Extensions(c), cert.OIDExtAuthorityKeyID)
	if !ok {
		return nil, AKIAbsent
	}
	kid, has, err := cert.DecodeAuthorityKeyIdentifier(ext.Value)
	if err != nil || !has {
		return nil, AKINoKeyID
	}
	return kid, AKIPresent
}

func keyUsage(c *cert.Certificate) (uint16, bool) {
	ext, ok := cert.FindExtension(cert.Extensions(c), cert.OIDExtKeyUsage)
	if !ok {
		return 0, false
	}
	ku, err := cert.DecodeKeyUsage(ext.Value)
	if err != nil {
		return 0, false
	}
	return ku, true
}

// IsParent is the parent predicate used while building a certification
// path: it reports 0 when issuer could plausibly have signed subject.
func IsParent(subject, issuer *cert.Certificate, allowSelfSigned bool) int {
	if cert.NameCompare(cert.Issuer(subject), cert.Subject(issuer)) != 0 {
		return 1
	}

	aki, akiState := AuthorityKeyID(subject)
	ski, hasSKI := subjectKeyID(issuer)

	switch akiState {
	case AKIAbsent:
		if !hasSKI {
			return 0
		}
		if allowSelfSigned {
			return 0
		}
		return -1
	case AKINoKeyID:
		return -1
	default: // AKIPresent
		if !hasSKI {
			return -1
		}
		if string(aki) == string(ski) {
			return 0
		}
		return -1
	}
}
