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

// Package x509adapt bridges the standard library's crypto/x509 parser
// into this repository's own cert.Decoded shape. It renames and reshapes
// fields crypto/x509 already parsed; the one thing it decodes itself is
// the SubjectPublicKeyInfo BIT STRING contents, read with cryptobyte.
package x509adapt

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/cert-manager/x509path/cert"
)

// FromParsed adapts an already-parsed standard library certificate into
// this core's Decoded shape, ready for cert.FromDecoded.
func FromParsed(x *x509.Certificate) cert.Decoded {
	return cert.Decoded{
		TBS: cert.TBSCertificate{
			Version:      x.Version,
			SerialNumber: x.SerialNumber,
			Issuer:       adaptName(x.Issuer),
			Subject:      adaptName(x.Subject),
			Validity: cert.Validity{
				NotBefore: x.NotBefore,
				NotAfter:  x.NotAfter,
			},
			SPKI: cert.SubjectPublicKeyInfo{
				Algorithm:    cert.OID(x.PublicKeyAlgorithm.String()),
				PublicKey:    x.PublicKey,
				RawBitString: spkiBitStringBytes(x.RawSubjectPublicKeyInfo),
			},
			Extensions: adaptExtensions(x.Extensions),
		},
		SignatureAlgorithm: sigAlgOID(x.SignatureAlgorithm),
		SignatureBits:      x.Signature,
		RawTBS:             x.RawTBSCertificate,
	}
}

// sigAlgOID maps crypto/x509's SignatureAlgorithm enum back to the
// dotted OID form Decoded.SignatureAlgorithm carries. Algorithms the
// validator cannot check fall back to the enum's display name, which
// still compares stably under cert.Cmp but is rejected by signature
// verification.
func sigAlgOID(alg x509.SignatureAlgorithm) cert.OID {
	switch alg {
	case x509.SHA256WithRSA:
		return cert.OIDSigSHA256WithRSA
	case x509.SHA384WithRSA:
		return cert.OIDSigSHA384WithRSA
	case x509.SHA512WithRSA:
		return cert.OIDSigSHA512WithRSA
	case x509.ECDSAWithSHA256:
		return cert.OIDSigECDSAWithSHA256
	case x509.ECDSAWithSHA384:
		return cert.OIDSigECDSAWithSHA384
	case x509.ECDSAWithSHA512:
		return cert.OIDSigECDSAWithSHA512
	case x509.PureEd25519:
		return cert.OIDSigEd25519
	default:
		return cert.OID(alg.String())
	}
}

// spkiBitStringBytes extracts the raw BIT STRING content octets from a
// SubjectPublicKeyInfo (dropping the AlgorithmIdentifier wrapper and the
// BIT STRING's unused-bits length octet), the exact bytes MatchKeyHashSHA1
// hashes. Falls back to the whole SPKI DER if it doesn't parse, so a
// malformed input degrades to a stable (if spec-incorrect) hash rather
// than panicking.
func spkiBitStringBytes(rawSPKI []byte) []byte {
	in := cryptobyte.String(rawSPKI)
	var seq cryptobyte.String
	if !in.ReadASN1(&seq, casn1.SEQUENCE) {
		return rawSPKI
	}
	var algID cryptobyte.String
	if !seq.ReadASN1(&algID, casn1.SEQUENCE) {
		return rawSPKI
	}
	var bits asn1.BitString
	if !seq.ReadASN1BitString(&bits) {
		return rawSPKI
	}
	return bits.Bytes
}

func adaptExtensions(exts []pkix.Extension) []cert.Extension {
	out := make([]cert.Extension, len(exts))
	for i, e := range exts {
		out[i] = cert.Extension{
			OID:      cert.OID(e.Id.String()),
			Critical: e.Critical,
			Value:    e.Value,
		}
	}
	return out
}

func adaptName(n pkix.Name) cert.Name {
	var name cert.Name
	for _, rdnSet := range n.ToRDNSequence() {
		var rdn cert.RDN
		for _, atv := range rdnSet {
			rdn = append(rdn, cert.RDNAttribute{
				Type:  cert.OID(atv.Type.String()),
				Value: fmt.Sprintf("%v", atv.Value),
			})
		}
		name = append(name, rdn)
	}
	return name
}
