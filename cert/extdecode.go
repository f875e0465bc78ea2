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

package cert

import (
	"encoding/asn1"
	"errors"

	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ErrMalformedExtension is returned when an extension's DER value does
// not match the structure its OID implies.
var ErrMalformedExtension = errors.New("cert: malformed extension value")

// ErrUnsupportedGeneralName is returned by the GeneralName decoder for
// CHOICE alternatives this core does not represent (x400Address,
// ediPartyName). Callers decoding a SubjectAltName list skip these;
// callers decoding a name-constraints subtree treat it as fatal, fail
// closed.
var ErrUnsupportedGeneralName = errors.New("cert: unsupported GeneralName alternative")

var (
	tagOtherName    = casn1.Tag(0).ContextSpecific().Constructed()
	tagRFC822       = casn1.Tag(1).ContextSpecific()
	tagDNSName      = casn1.Tag(2).ContextSpecific()
	tagDirectory    = casn1.Tag(4).ContextSpecific().Constructed()
	tagURI          = casn1.Tag(6).ContextSpecific()
	tagIPAddress    = casn1.Tag(7).ContextSpecific()
	tagRegisteredID = casn1.Tag(8).ContextSpecific()

	tagPermittedSubtrees = casn1.Tag(0).ContextSpecific().Constructed()
	tagExcludedSubtrees  = casn1.Tag(1).ContextSpecific().Constructed()
	tagSubtreeMinimum    = casn1.Tag(0).ContextSpecific()
	tagSubtreeMaximum    = casn1.Tag(1).ContextSpecific()
	tagAKIKeyIdentifier  = casn1.Tag(0).ContextSpecific()
)

// DecodeKeyUsage decodes a KeyUsage (BIT STRING) extension value into a
// bitmask where bit i (from the low bit) corresponds to the i-th named
// bit in RFC 5280 §4.2.1.3 (bit 5 == keyCertSign).
func DecodeKeyUsage(value []byte) (uint16, error) {
	in := cryptobyte.String(value)
	var bits asn1.BitString
	if !in.ReadASN1BitString(&bits) {
		return 0, ErrMalformedExtension
	}
	var ku uint16
	for i := 0; i < bits.BitLength && i < 16; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		if byteIdx < len(bits.Bytes) && bits.Bytes[byteIdx]&(1<<bitIdx) != 0 {
			ku |= 1 << uint(i)
		}
	}
	return ku, nil
}

const KeyUsageKeyCertSign = 1 << 5

// DecodeBasicConstraints decodes a BasicConstraints extension value.
func DecodeBasicConstraints(value []byte) (ca bool, pathLen *int, err error) {
	in := cryptobyte.String(value)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, casn1.SEQUENCE) {
		return false, nil, ErrMalformedExtension
	}
	if seq.PeekASN1Tag(casn1.BOOLEAN) {
		if !seq.ReadASN1Boolean(&ca) {
			return false, nil, ErrMalformedExtension
		}
	}
	if !seq.Empty() {
		var n int64
		if !seq.ReadASN1Integer(&n) {
			return false, nil, ErrMalformedExtension
		}
		v := int(n)
		pathLen = &v
	}
	return ca, pathLen, nil
}

// DecodeAuthorityKeyIdentifier decodes an AuthorityKeyIdentifier
// extension value, returning only the keyIdentifier field, the only
// field the path builder and validator consult.
func DecodeAuthorityKeyIdentifier(value []byte) (keyID []byte, hasKeyID bool, err error) {
	in := cryptobyte.String(value)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, casn1.SEQUENCE) {
		return nil, false, ErrMalformedExtension
	}
	if seq.PeekASN1Tag(tagAKIKeyIdentifier) {
		var kid cryptobyte.String
		if !seq.ReadASN1(&kid, tagAKIKeyIdentifier) {
			return nil, false, ErrMalformedExtension
		}
		return []byte(kid), true, nil
	}
	return nil, false, nil
}

// DecodeSubjectKeyIdentifier decodes a SubjectKeyIdentifier extension
// value (a bare OCTET STRING).
func DecodeSubjectKeyIdentifier(value []byte) ([]byte, error) {
	in := cryptobyte.String(value)
	var octets cryptobyte.String
	if !in.ReadASN1(&octets, casn1.OCTET_STRING) {
		return nil, ErrMalformedExtension
	}
	return []byte(octets), nil
}

// DecodeExtKeyUsage decodes an ExtKeyUsage (SEQUENCE OF OID) extension
// value.
func DecodeExtKeyUsage(value []byte) ([]OID, error) {
	in := cryptobyte.String(value)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, casn1.SEQUENCE) {
		return nil, ErrMalformedExtension
	}
	var out []OID
	for !seq.Empty() {
		var id asn1.ObjectIdentifier
		if !seq.ReadASN1ObjectIdentifier(&id) {
			return nil, ErrMalformedExtension
		}
		out = append(out, OID(id.String()))
	}
	return out, nil
}

// DecodeGeneralNames decodes a GeneralNames (SEQUENCE OF GeneralName)
// value, as found in a SubjectAltName extension. Unsupported CHOICE
// alternatives (x400Address, ediPartyName) are skipped rather than
// rejected: they're a presented name, not a constraint, and the matcher
// only ever needs to find a *match*, never an exhaustive accounting of
// every SAN entry.
func DecodeGeneralNames(value []byte) ([]GeneralName, error) {
	in := cryptobyte.String(value)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, casn1.SEQUENCE) {
		return nil, ErrMalformedExtension
	}
	var out []GeneralName
	for !seq.Empty() {
		gn, err := decodeGeneralName(&seq)
		if errors.Is(err, ErrUnsupportedGeneralName) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, gn)
	}
	return out, nil
}

// DecodeNameConstraints decodes a NameConstraints extension value.
func DecodeNameConstraints(value []byte) (NameConstraintsValue, error) {
	in := cryptobyte.String(value)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, casn1.SEQUENCE) {
		return NameConstraintsValue{}, ErrMalformedExtension
	}
	var nc NameConstraintsValue
	if seq.PeekASN1Tag(tagPermittedSubtrees) {
		var sub cryptobyte.String
		if !seq.ReadASN1(&sub, tagPermittedSubtrees) {
			return nc, ErrMalformedExtension
		}
		subtrees, err := decodeGeneralSubtrees(sub)
		if err != nil {
			return nc, err
		}
		nc.Permitted = subtrees
	}
	if seq.PeekASN1Tag(tagExcludedSubtrees) {
		var sub cryptobyte.String
		if !seq.ReadASN1(&sub, tagExcludedSubtrees) {
			return nc, ErrMalformedExtension
		}
		subtrees, err := decodeGeneralSubtrees(sub)
		if err != nil {
			return nc, err
		}
		nc.Excluded = subtrees
	}
	return nc, nil
}

func decodeGeneralSubtrees(s cryptobyte.String) ([]GeneralSubtree, error) {
	var out []GeneralSubtree
	for !s.Empty() {
		var seq cryptobyte.String
		if !s.ReadASN1(&seq, casn1.SEQUENCE) {
			return nil, ErrMalformedExtension
		}
		base, err := decodeGeneralName(&seq)
		if err != nil {
			return nil, err
		}
		st := GeneralSubtree{Base: base}
		if n, ok, err := readImplicitInt(&seq, tagSubtreeMinimum); err != nil {
			return nil, err
		} else if ok {
			v := int(n)
			st.Minimum = &v
		}
		if n, ok, err := readImplicitInt(&seq, tagSubtreeMaximum); err != nil {
			return nil, err
		} else if ok {
			v := int(n)
			st.Maximum = &v
		}
		out = append(out, st)
	}
	return out, nil
}

// readImplicitInt reads an IMPLICIT-tagged INTEGER, re-wrapping its raw
// content bytes with a universal INTEGER tag so cryptobyte's integer
// reader can parse it. Limited to small values (single-byte length),
// which covers every GeneralSubtree min/max this core expects to see in
// practice.
func readImplicitInt(s *cryptobyte.String, tag casn1.Tag) (int64, bool, error) {
	if !s.PeekASN1Tag(tag) {
		return 0, false, nil
	}
	var content cryptobyte.String
	if !s.ReadASN1(&content, tag) {
		return 0, false, ErrMalformedExtension
	}
	if len(content) >= 128 {
		return 0, false, ErrMalformedExtension
	}
	wrapped := cryptobyte.String(append([]byte{0x02, byte(len(content))}, content...))
	var n int64
	if !wrapped.ReadASN1Integer(&n) {
		return 0, false, ErrMalformedExtension
	}
	return n, true, nil
}

func decodeGeneralName(s *cryptobyte.String) (GeneralName, error) {
	switch {
	case s.PeekASN1Tag(tagOtherName):
		var inner cryptobyte.String
		if !s.ReadASN1(&inner, tagOtherName) {
			return GeneralName{}, ErrMalformedExtension
		}
		var oid asn1.ObjectIdentifier
		if !inner.ReadASN1ObjectIdentifier(&oid) {
			return GeneralName{}, ErrMalformedExtension
		}
		var val cryptobyte.String
		if !inner.ReadASN1(&val, casn1.Tag(0).ContextSpecific().Constructed()) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{
			Kind:      GeneralNameOtherName,
			OtherName: OtherName{TypeID: OID(oid.String()), Value: []byte(val)},
		}, nil

	case s.PeekASN1Tag(tagRFC822):
		var v cryptobyte.String
		if !s.ReadASN1(&v, tagRFC822) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{Kind: GeneralNameRFC822, RFC822Name: string(v)}, nil

	case s.PeekASN1Tag(tagDNSName):
		var v cryptobyte.String
		if !s.ReadASN1(&v, tagDNSName) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{Kind: GeneralNameDNS, DNSName: string(v)}, nil

	case s.PeekASN1Tag(tagDirectory):
		var v cryptobyte.String
		if !s.ReadASN1(&v, tagDirectory) {
			return GeneralName{}, ErrMalformedExtension
		}
		name, err := decodeNameRDNSequence([]byte(v))
		if err != nil {
			return GeneralName{}, err
		}
		return GeneralName{Kind: GeneralNameDirectory, DirectoryName: name}, nil

	case s.PeekASN1Tag(tagURI):
		var v cryptobyte.String
		if !s.ReadASN1(&v, tagURI) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{Kind: GeneralNameURI, URI: string(v)}, nil

	case s.PeekASN1Tag(tagIPAddress):
		var v cryptobyte.String
		if !s.ReadASN1(&v, tagIPAddress) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{Kind: GeneralNameIPAddress, IPAddress: []byte(v)}, nil

	case s.PeekASN1Tag(tagRegisteredID):
		var v cryptobyte.String
		if !s.ReadASN1(&v, tagRegisteredID) {
			return GeneralName{}, ErrMalformedExtension
		}
		wrapped := cryptobyte.String(append([]byte{0x06, byte(len(v))}, v...))
		var oid asn1.ObjectIdentifier
		if !wrapped.ReadASN1ObjectIdentifier(&oid) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{Kind: GeneralNameRegisteredID, RegisteredID: OID(oid.String())}, nil

	default:
		var any cryptobyte.String
		var tag casn1.Tag
		if !s.ReadAnyASN1Element(&any, &tag) {
			return GeneralName{}, ErrMalformedExtension
		}
		return GeneralName{}, ErrUnsupportedGeneralName
	}
}

// decodeNameRDNSequence parses the content bytes of a directoryName
// GeneralName (equivalently, a bare Name RDNSequence) into a Name.
func decodeNameRDNSequence(raw []byte) (Name, error) {
	in := cryptobyte.String(raw)
	var name Name
	for !in.Empty() {
		var rdnSet cryptobyte.String
		if !in.ReadASN1(&rdnSet, casn1.SET) {
			return nil, ErrMalformedExtension
		}
		var rdn RDN
		for !rdnSet.Empty() {
			var atav cryptobyte.String
			if !rdnSet.ReadASN1(&atav, casn1.SEQUENCE) {
				return nil, ErrMalformedExtension
			}
			var oid asn1.ObjectIdentifier
			if !atav.ReadASN1ObjectIdentifier(&oid) {
				return nil, ErrMalformedExtension
			}
			var val cryptobyte.String
			var valTag casn1.Tag
			if !atav.ReadAnyASN1(&val, &valTag) {
				return nil, ErrMalformedExtension
			}
			rdn = append(rdn, RDNAttribute{Type: OID(oid.String()), Value: string(val)})
		}
		name = append(name, rdn)
	}
	return name, nil
}
