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

// Package nameconstraint implements the Name Constraints matcher: an
// accumulator of permitted/excluded GeneralName subtrees, folded in as
// CA certificates are walked, and checked against every certificate
// beneath them.
package nameconstraint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cert-manager/x509path/cert"
)

// ErrRangeUnsupported is returned for a GeneralSubtree with both
// Minimum and Maximum set. RFC 5280 permits the range but this matcher
// does not evaluate it, so such a constraint fails closed.
var ErrRangeUnsupported = errors.New("nameconstraint: subtree minimum/maximum range not supported")

// ErrUnsupportedConstraintType is returned when a permitted or excluded
// subtree names a GeneralName kind this matcher does not evaluate
// (uri, iPAddress, registeredID) and the certificate presents a name of
// that same kind. Such constraints fail closed; like any other kind, a
// constraint whose kind the certificate does not present is not applied.
var ErrUnsupportedConstraintType = errors.New("nameconstraint: unsupported constraint name type")

// ConstraintError reports that a certificate violates an accumulated
// name constraint, naming the offending subtree's kind for diagnostics.
type ConstraintError struct {
	Kind   cert.GeneralNameKind
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("nameconstraint: %s", e.Reason)
}

// Accumulator is the ordered list of NameConstraints extension values
// folded in as CA certificates are walked anchor-to-leaf.
type Accumulator struct {
	values []cert.NameConstraintsValue
}

// Fold appends nc to the accumulator. Order matters only for
// diagnostics; every stored value is evaluated independently.
func (a *Accumulator) Fold(nc cert.NameConstraintsValue) {
	a.values = append(a.values, nc)
}

// Check evaluates every accumulated NameConstraints value against c:
// the certificate's subject name is checked as a synthetic
// directoryName, and every GeneralName in its SubjectAltName
// extension(s) is checked under its own kind.
func (a *Accumulator) Check(c *cert.Certificate) error {
	presented, err := presentedNames(c)
	if err != nil {
		return err
	}

	for _, nc := range a.values {
		if err := checkOne(nc, presented); err != nil {
			return err
		}
	}
	return nil
}

// presentedNames collects the certificate's subject (as a synthetic
// directoryName) and every GeneralName from its SubjectAltName
// extension(s). A malformed certificate may carry more than one such
// extension; all of them are iterated rather than assuming uniqueness.
func presentedNames(c *cert.Certificate) ([]cert.GeneralName, error) {
	var names []cert.GeneralName
	// A null subject presents no directoryName at all, exempting it
	// from directoryName constraints entirely.
	if subject := cert.Subject(c); !subject.IsNull() {
		names = append(names, cert.GeneralName{Kind: cert.GeneralNameDirectory, DirectoryName: subject})
	}

	for _, ext := range cert.FindAllExtensions(cert.Extensions(c), cert.OIDExtSubjectAltName) {
		gns, err := cert.DecodeGeneralNames(ext.Value)
		if err != nil {
			return nil, fmt.Errorf("nameconstraint: decoding SubjectAltName: %w", err)
		}
		names = append(names, gns...)
	}
	return names, nil
}

func checkOne(nc cert.NameConstraintsValue, presented []cert.GeneralName) error {
	if len(nc.Permitted) > 0 {
		ok, err := anyKindApplies(nc.Permitted, presented)
		if err != nil {
			return err
		}
		if ok {
			matched, err := matchesAny(nc.Permitted, presented)
			if err != nil {
				return err
			}
			if !matched {
				return &ConstraintError{Kind: nc.Permitted[0].Base.Kind, Reason: "certificate presents no name within any permitted subtree"}
			}
		}
	}

	if len(nc.Excluded) > 0 {
		matched, err := matchesAny(nc.Excluded, presented)
		if err != nil {
			return err
		}
		if matched {
			return &ConstraintError{Kind: nc.Excluded[0].Base.Kind, Reason: "certificate presents a name within an excluded subtree"}
		}
	}

	return nil
}

// anyKindApplies reports whether the certificate presents at least one
// name of a kind any subtree in subtrees constrains: a permitted-subtrees
// constraint of type T only restricts certificates presenting a name of
// type T.
func anyKindApplies(subtrees []cert.GeneralSubtree, presented []cert.GeneralName) (bool, error) {
	kinds := map[cert.GeneralNameKind]bool{}
	for _, st := range subtrees {
		if st.Minimum != nil && st.Maximum != nil {
			return false, ErrRangeUnsupported
		}
		kinds[st.Base.Kind] = true
	}
	for _, p := range presented {
		if kinds[p.Kind] {
			return true, nil
		}
	}
	return false, nil
}

func matchesAny(subtrees []cert.GeneralSubtree, presented []cert.GeneralName) (bool, error) {
	for _, st := range subtrees {
		if st.Minimum != nil && st.Maximum != nil {
			return false, ErrRangeUnsupported
		}
		for _, p := range presented {
			if p.Kind != st.Base.Kind {
				continue
			}
			ok, err := matchOne(st.Base, p)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func matchOne(pattern, presented cert.GeneralName) (bool, error) {
	switch pattern.Kind {
	case cert.GeneralNameRFC822:
		return matchRFC822(pattern.RFC822Name, presented.RFC822Name), nil
	case cert.GeneralNameDNS:
		return matchDNS(pattern.DNSName, presented.DNSName), nil
	case cert.GeneralNameDirectory:
		return pattern.DirectoryName.IsPrefixOf(presented.DirectoryName), nil
	case cert.GeneralNameOtherName:
		return pattern.OtherName.TypeID == presented.OtherName.TypeID &&
			string(pattern.OtherName.Value) == string(presented.OtherName.Value), nil
	case cert.GeneralNameURI, cert.GeneralNameIPAddress, cert.GeneralNameRegisteredID:
		return false, ErrUnsupportedConstraintType
	default:
		return false, ErrUnsupportedConstraintType
	}
}

// matchRFC822 implements the rfc822Name matching rule: a pattern
// containing "@" must match the mailbox exactly (case-insensitive);
// otherwise the pattern is a domain and the mailbox's domain part must
// equal it or end with "." + pattern.
func matchRFC822(pattern, presented string) bool {
	if strings.Contains(pattern, "@") {
		return strings.EqualFold(pattern, presented)
	}
	domain := presented
	if i := strings.LastIndex(presented, "@"); i >= 0 {
		domain = presented[i+1:]
	}
	domain = strings.ToLower(domain)
	pattern = strings.ToLower(pattern)
	return domain == pattern || strings.HasSuffix(domain, "."+pattern)
}

// matchDNS implements the dNSName matching rule: pattern must be a
// suffix of presented, case-insensitively, either byte-exact or a
// proper suffix. No leading-dot boundary is required before the
// suffix; that looseness is a deliberate choice, not an oversight (see
// DESIGN.md).
func matchDNS(pattern, presented string) bool {
	pattern = strings.ToLower(pattern)
	presented = strings.ToLower(presented)
	return presented == pattern || strings.HasSuffix(presented, pattern)
}
