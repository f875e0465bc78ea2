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

package validate

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/cert-manager/x509path/cert"
)

// Signature verification is built on the standard library's crypto/rsa,
// crypto/ecdsa and crypto/ed25519 directly: there is no higher-level
// ecosystem signature-verification library that doesn't simply wrap
// these same stdlib primitives, so this is the one concern in the
// repository built straight on the standard library rather than a
// third-party package (see DESIGN.md). The algorithm OIDs live in the
// cert package, shared with the crypto/x509 bridge.

// VerifySignature checks that sig over data verifies under signer's
// subject public key and the given algorithm, the Go shape of
// verify_signature(spki, algorithm, tbs_bytes, sig_bits) -> ok | fail.
func VerifySignature(signer *cert.Certificate, alg cert.OID, data, sig []byte) error {
	return verifySignature(signer, alg, data, sig)
}

func verifySignature(signer *cert.Certificate, alg cert.OID, tbs, sig []byte) error {
	pub := cert.SPKI(signer).PublicKey

	switch alg {
	case cert.OIDSigSHA256WithRSA, cert.OIDSigSHA384WithRSA, cert.OIDSigSHA512WithRSA:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return newError(ErrBadSignature, nil, "signature algorithm %s requires an RSA public key", alg)
		}
		h, hashed := hashTBS(alg, tbs)
		if err := rsa.VerifyPKCS1v15(rsaPub, h, hashed, sig); err != nil {
			return newError(ErrBadSignature, nil, "RSA signature verification failed: %v", err)
		}
		return nil

	case cert.OIDSigECDSAWithSHA256, cert.OIDSigECDSAWithSHA384, cert.OIDSigECDSAWithSHA512:
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return newError(ErrBadSignature, nil, "signature algorithm %s requires an ECDSA public key", alg)
		}
		_, hashed := hashTBS(alg, tbs)
		if !ecdsa.VerifyASN1(ecPub, hashed, sig) {
			return newError(ErrBadSignature, nil, "ECDSA signature verification failed")
		}
		return nil

	case cert.OIDSigEd25519:
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return newError(ErrBadSignature, nil, "signature algorithm %s requires an Ed25519 public key", alg)
		}
		if !ed25519.Verify(edPub, tbs, sig) {
			return newError(ErrBadSignature, nil, "Ed25519 signature verification failed")
		}
		return nil

	default:
		return newError(ErrBadSignature, nil, "unsupported signature algorithm %s", alg)
	}
}

func hashTBS(alg cert.OID, tbs []byte) (crypto.Hash, []byte) {
	switch alg {
	case cert.OIDSigSHA384WithRSA, cert.OIDSigECDSAWithSHA384:
		sum := sha512.Sum384(tbs)
		return crypto.SHA384, sum[:]
	case cert.OIDSigSHA512WithRSA, cert.OIDSigECDSAWithSHA512:
		sum := sha512.Sum512(tbs)
		return crypto.SHA512, sum[:]
	default:
		sum := sha256.Sum256(tbs)
		return crypto.SHA256, sum[:]
	}
}
