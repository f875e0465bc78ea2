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

package nameconstraint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cert-manager/x509path/cert"
)

func dnsName(name string) cert.GeneralName {
	return cert.GeneralName{Kind: cert.GeneralNameDNS, DNSName: name}
}

func rfc822(addr string) cert.GeneralName {
	return cert.GeneralName{Kind: cert.GeneralNameRFC822, RFC822Name: addr}
}

func certWithSAN(subject cert.Name, sans []cert.GeneralName) *cert.Certificate {
	d := cert.Decoded{TBS: cert.TBSCertificate{Version: 3, Subject: subject}}
	if len(sans) > 0 {
		d.TBS.Extensions = []cert.Extension{
			{OID: cert.OIDExtSubjectAltName, Value: encodeGeneralNames(sans)},
		}
	}
	c := cert.FromDecoded(d)
	return c
}

// encodeGeneralNames produces a minimal DER SEQUENCE OF GeneralName
// covering just the three CHOICE tags this test suite exercises
// (rfc822Name [1], dNSName [2], uniformResourceIdentifier [6]), enough
// to round-trip through cert.DecodeGeneralNames without needing a full
// ASN.1 encoder.
func encodeGeneralNames(names []cert.GeneralName) []byte {
	var body []byte
	for _, n := range names {
		switch n.Kind {
		case cert.GeneralNameRFC822:
			body = append(body, tlv(0x81, []byte(n.RFC822Name))...)
		case cert.GeneralNameDNS:
			body = append(body, tlv(0x82, []byte(n.DNSName))...)
		case cert.GeneralNameURI:
			body = append(body, tlv(0x86, []byte(n.URI))...)
		}
	}
	return append(tlvHeader(0x30, len(body)), body...)
}

func tlv(tag byte, content []byte) []byte {
	return append(tlvHeader(tag, len(content)), content...)
}

func tlvHeader(tag byte, length int) []byte {
	if length < 128 {
		return []byte{tag, byte(length)}
	}
	return []byte{tag, 0x81, byte(length)}
}

func Test_Accumulator_permittedDNS(t *testing.T) {
	a := &Accumulator{}
	a.Fold(cert.NameConstraintsValue{
		Permitted: []cert.GeneralSubtree{{Base: dnsName("example.com")}},
	})

	ok := certWithSAN(nil, []cert.GeneralName{dnsName("api.example.com")})
	defer cert.Release(ok)
	assert.NoError(t, a.Check(ok))

	bad := certWithSAN(nil, []cert.GeneralName{dnsName("example.org")})
	defer cert.Release(bad)

	err := a.Check(bad)
	require.Error(t, err)
	var constraintErr *ConstraintError
	assert.True(t, errors.As(err, &constraintErr))
}

func Test_Accumulator_excludedDNS(t *testing.T) {
	a := &Accumulator{}
	a.Fold(cert.NameConstraintsValue{
		Excluded: []cert.GeneralSubtree{{Base: dnsName("bad.example.com")}},
	})

	ok := certWithSAN(nil, []cert.GeneralName{dnsName("good.example.com")})
	defer cert.Release(ok)
	assert.NoError(t, a.Check(ok))

	bad := certWithSAN(nil, []cert.GeneralName{dnsName("sub.bad.example.com")})
	defer cert.Release(bad)
	assert.Error(t, a.Check(bad))
}

func Test_Accumulator_constraintInapplicableWhenKindNotPresented(t *testing.T) {
	a := &Accumulator{}
	a.Fold(cert.NameConstraintsValue{
		Permitted: []cert.GeneralSubtree{{Base: dnsName("example.com")}},
	})

	// Certificate presents only an rfc822Name: the dNSName-typed
	// permitted-subtrees constraint does not apply to it at all.
	c := certWithSAN(nil, []cert.GeneralName{rfc822("person@example.org")})
	defer cert.Release(c)
	assert.NoError(t, a.Check(c))
}

func Test_Accumulator_rangeUnsupported(t *testing.T) {
	min := 1
	a := &Accumulator{}
	a.Fold(cert.NameConstraintsValue{
		Permitted: []cert.GeneralSubtree{{Base: dnsName("example.com"), Minimum: &min, Maximum: &min}},
	})

	c := certWithSAN(nil, []cert.GeneralName{dnsName("api.example.com")})
	defer cert.Release(c)
	assert.ErrorIs(t, a.Check(c), ErrRangeUnsupported)
}

func Test_Accumulator_unsupportedKindFailsClosed(t *testing.T) {
	a := &Accumulator{}
	a.Fold(cert.NameConstraintsValue{
		Permitted: []cert.GeneralSubtree{{Base: cert.GeneralName{Kind: cert.GeneralNameURI, URI: "https://example.com"}}},
	})

	c := certWithSAN(nil, []cert.GeneralName{{Kind: cert.GeneralNameURI, URI: "https://example.com/path"}})
	defer cert.Release(c)
	assert.ErrorIs(t, a.Check(c), ErrUnsupportedConstraintType)
}

func Test_matchRFC822(t *testing.T) {
	assert.True(t, matchRFC822("example.com", "person@example.com"))
	assert.True(t, matchRFC822("example.com", "person@sub.example.com"))
	assert.False(t, matchRFC822("example.com", "person@notexample.com"))
	assert.True(t, matchRFC822("person@example.com", "PERSON@EXAMPLE.COM"))
}

func Test_matchDNS_looseNoDotBoundary(t *testing.T) {
	// No leading-dot boundary is required before the suffix;
	// "ampleexample.com" matches "example.com" because it is a
	// byte-suffix, not a label-suffix. That looseness is deliberate
	// (see DESIGN.md).
	assert.True(t, matchDNS("example.com", "ampleexample.com"))
	assert.True(t, matchDNS("example.com", "api.example.com"))
	assert.True(t, matchDNS("example.com", "example.com"))
	assert.False(t, matchDNS("example.com", "example.org"))
}
