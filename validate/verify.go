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
	"errors"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/certstore"
	"github.com/cert-manager/x509path/nameconstraint"
	pathpkg "github.com/cert-manager/x509path/path"
	"github.com/cert-manager/x509path/query"
	"github.com/cert-manager/x509path/revoke"
	"github.com/cert-manager/x509path/verify"
)

// recognizedCritical is every extension OID this validator knows how to
// interpret. A critical extension outside this set is rejected rather
// than silently accepted (see DESIGN.md).
var recognizedCritical = map[cert.OID]bool{
	cert.OIDExtKeyUsage:             true,
	cert.OIDExtBasicConstraints:     true,
	cert.OIDExtSubjectKeyIdentifier: true,
	cert.OIDExtAuthorityKeyID:       true,
	cert.OIDExtSubjectAltName:       true,
	cert.OIDExtNameConstraints:      true,
	cert.OIDExtExtendedKeyUsage:     true,
}

// VerifyPath builds the path, walks it anchor-to-leaf enforcing
// constraints and folding Name Constraints, checks revocation, then
// verifies signatures leaf-ward.
//
// The anchor-to-leaf walk stops at the first violation, which is logged
// at V(1) and returned; later certificates are not examined.
func VerifyPath(ctx *verify.Context, leaf *cert.Certificate, pool certstore.CertStore) error {
	log := ctx.Logger()

	p, err := pathpkg.Build(leaf, pool, ctx)
	if err != nil {
		if errors.Is(err, pathpkg.ErrIssuerNotFound) {
			return newError(ErrIssuerNotFound, nil, "no issuer certificate found for %v", cert.Subject(leaf))
		}
		if errors.Is(err, pathpkg.ErrPathTooLong) {
			return newError(ErrPathTooLong, nil, "path exceeds max depth %d", ctx.MaxDepth())
		}
		return newError(ErrInvalidArgument, nil, "building path: %v", err)
	}
	defer p.Release()

	n := len(p)
	now := ctx.Now()
	accum := &nameconstraint.Accumulator{}

	for i := n - 1; i >= 0; i-- {
		c := p[i]
		fldPath := field.NewPath("path").Index(i)

		if err := checkCriticalExtensions(c, fldPath); err != nil {
			log.V(1).Info("unhandled critical extension", "error", err)
			return err
		}

		v := cert.CertValidity(c)
		if now.Before(v.NotBefore) {
			err := newError(ErrCertUsedBeforeTime, fldPath, "certificate not valid until %s", v.NotBefore)
			log.V(1).Info("validity violation", "error", err)
			return err
		}
		if now.After(v.NotAfter) {
			err := newError(ErrCertUsedAfterTime, fldPath, "certificate expired at %s", v.NotAfter)
			log.V(1).Info("validity violation", "error", err)
			return err
		}

		isCA, pathLen := basicConstraints(c)

		if i != 0 {
			ku, ok := keyUsage(c)
			if !ok || ku&kuKeyCertSignBit == 0 {
				err := newError(ErrKUCertMissing, fldPath, "issuer certificate missing keyCertSign key usage")
				log.V(1).Info("key usage violation", "error", err)
				return err
			}
			if !isCA {
				err := newError(ErrParentNotCA, fldPath, "issuer certificate lacks cA basic constraint")
				log.V(1).Info("basic constraints violation", "error", err)
				return err
			}
			if pathLen != nil {
				intermediates := i - 1
				if *pathLen < intermediates {
					err := newError(ErrCAPathTooDeep, fldPath, "pathLenConstraint %d violated by %d intermediate certificates", *pathLen, intermediates)
					log.V(1).Info("path length violation", "error", err)
					return err
				}
			}
		}

		selfSignedBridge := isSelfSigned(c) && i != n-1
		if !selfSignedBridge {
			if err := accum.Check(c); err != nil {
				wrapped := newError(ErrVerifyConstraints, fldPath, "%v", err)
				log.V(1).Info("name constraints violation", "error", wrapped)
				return wrapped
			}
		}

		if ncExt, ok := cert.FindExtension(cert.Extensions(c), cert.OIDExtNameConstraints); ok {
			if !isCA {
				err := newError(ErrVerifyConstraints, fldPath, "NameConstraints extension present on non-CA certificate")
				log.V(1).Info("name constraints violation", "error", err)
				return err
			}
			nc, decErr := cert.DecodeNameConstraints(ncExt.Value)
			if decErr != nil {
				err := newError(ErrDecodeError, fldPath, "decoding NameConstraints: %v", decErr)
				log.V(1).Info("decode error", "error", err)
				return err
			}
			accum.Fold(nc)
		}
	}

	if ctx.Revoke() != nil {
		if err := checkRevocation(ctx, p, pool); err != nil {
			return err
		}
	}

	return checkSignatures(p)
}

const kuKeyCertSignBit = 1 << 5

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

func basicConstraints(c *cert.Certificate) (isCA bool, pathLen *int) {
	ext, ok := cert.FindExtension(cert.Extensions(c), cert.OIDExtBasicConstraints)
	if !ok {
		return false, nil
	}
	ca, pl, err := cert.DecodeBasicConstraints(ext.Value)
	if err != nil {
		return false, nil
	}
	return ca, pl
}

func isSelfSigned(c *cert.Certificate) bool {
	return cert.NameEqual(cert.Subject(c), cert.Issuer(c)) && query.IsParent(c, c, true) == 0
}

func checkCriticalExtensions(c *cert.Certificate, fldPath *field.Path) error {
	for idx, ext := range cert.Extensions(c) {
		if ext.Critical && !recognizedCritical[ext.OID] {
			return newError(ErrUnhandledCriticalExtension, fldPath.Child("extensions").Index(idx),
				"unrecognized critical extension %s", ext.OID)
		}
	}
	return nil
}

func checkRevocation(ctx *verify.Context, p pathpkg.Path, pool certstore.CertStore) error {
	working := certstore.NewMemoryStore()
	for _, c := range p {
		working.Add(cert.Share(c))
	}
	for _, c := range pool.All() {
		working.Add(cert.Share(c))
	}
	defer working.Close()

	n := len(p)
	for i := 0; i < n-1; i++ {
		outcome, err := ctx.Revoke().Check(working, ctx.Now(), p[i], p[i+1])
		if err != nil {
			return newError(ErrRevoked, nil, "revocation oracle error: %v", err)
		}
		switch outcome {
		case revoke.OutcomeRevoked:
			return newError(ErrRevoked, nil, "certificate %v revoked by %v", cert.Subject(p[i]), cert.Subject(p[i+1]))
		case revoke.OutcomeUnknown:
			if ctx.Flags&verify.VerifyMissingOk == 0 {
				return newError(ErrRevokeUnknown, nil, "revocation status of %v unknown", cert.Subject(p[i]))
			}
		}
	}
	return nil
}

func checkSignatures(p pathpkg.Path) error {
	n := len(p)
	for i := n - 1; i >= 0; i-- {
		c := p[i]
		signerIdx := i + 1
		if signerIdx > n-1 {
			signerIdx = n - 1
		}
		signer := p[signerIdx]
		if err := verifySignature(signer, cert.SignatureAlgorithm(c), cert.RawTBS(c), cert.SignatureBits(c)); err != nil {
			return err
		}
	}
	return nil
}
