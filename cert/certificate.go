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

// Package cert implements the reference-counted Certificate value: a
// decoded X.509 TBS structure plus the signature envelope, an attribute
// bag, and an optional private key handle. Decoding raw DER into the
// typed TBSCertificate below is assumed to have already happened by the
// time FromDecoded is called; this package owns everything downstream
// of that.
package cert

import (
	"bytes"
	"crypto"
	"crypto/sha1" //nolint:gosec // SHA-1 keyhash matching is a legacy query predicate, not a security boundary.
	"fmt"
	"math/big"
	"sync/atomic"
	"time"
)

// Extension is a single X.509 certificate extension: an OID, a
// criticality flag, and opaque DER-encoded value bytes. The validator
// and matcher decode the value on demand by OID rather than eagerly
// parsing every extension into a tagged variant.
type Extension struct {
	OID      OID
	Critical bool
	Value    []byte
}

// SubjectPublicKeyInfo carries the already-decoded public key alongside
// the raw BIT STRING contents, the latter needed verbatim for
// MatchKeyHashSHA1 (a hash over the raw bytes, not a re-encoding).
type SubjectPublicKeyInfo struct {
	Algorithm    OID
	PublicKey    crypto.PublicKey
	RawBitString []byte
}

// Validity is a certificate's notBefore/notAfter window.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// TBSCertificate is the decoded "to be signed" body of a certificate.
type TBSCertificate struct {
	// Version is the DER-encoded version plus one (so v1 == 1, v3 == 3).
	// Absent in the DER defaults to 1, an encoding quirk callers must
	// preserve when populating this field from a decoded structure.
	Version      int
	SerialNumber *big.Int
	Issuer       Name
	Subject      Name
	Validity     Validity
	SPKI         SubjectPublicKeyInfo
	Extensions   []Extension
}

// Decoded is the product of the external decode<T> collaborator: a parsed
// TBSCertificate plus the signature envelope and the exact raw TBS bytes
// that were signed (needed byte-for-byte by signature verification).
type Decoded struct {
	TBS                TBSCertificate
	SignatureAlgorithm OID
	SignatureBits      []byte
	RawTBS             []byte
}

// Certificate is a shared-ownership handle around a Decoded certificate,
// an attribute bag, an optional friendly name, and an optional private
// key. Every Certificate in circulation (store entries, path entries)
// is a Share of the same underlying value.
type Certificate struct {
	refcount *int32

	decoded      *Decoded
	friendlyName *string
	localKeyID   []byte
	privateKey   crypto.Signer
	attrs        map[OID][]byte
}

// FromDecoded deep-copies the decoded structure so the caller may drop its
// own reference, and returns a Certificate with refcount 1.
func FromDecoded(d Decoded) *Certificate {
	cp := d
	cp.TBS.Extensions = append([]Extension(nil), d.TBS.Extensions...)
	cp.TBS.Issuer = append(Name(nil), d.TBS.Issuer...)
	cp.TBS.Subject = append(Name(nil), d.TBS.Subject...)
	cp.RawTBS = append([]byte(nil), d.RawTBS...)
	cp.SignatureBits = append([]byte(nil), d.SignatureBits...)
	if d.TBS.SerialNumber != nil {
		cp.TBS.SerialNumber = new(big.Int).Set(d.TBS.SerialNumber)
	}

	rc := int32(1)
	return &Certificate{
		refcount: &rc,
		decoded:  &cp,
		attrs:    make(map[OID][]byte),
	}
}

// Clone produces an independent Certificate (refcount 1) carrying a copy
// of c's TBS structure, per the Certificate lifecycle: "created by decode
// or by cloning another certificate's TBS". The clone does not carry the
// source's private key, friendly name, or attribute bag: it is a fresh
// identity built from the same signed content.
func Clone(c *Certificate) *Certificate {
	return FromDecoded(*c.decoded)
}

// Share increments the reference count and returns the same logical
// certificate. It is the only supported way to hand a Certificate to a
// second owner (a Path entry, a second CertStore, ...).
func Share(c *Certificate) *Certificate {
	if c == nil {
		return nil
	}
	n := atomic.AddInt32(c.refcount, 1)
	if n <= 1 {
		panic("cert: share of a certificate with a non-positive refcount (use-after-free)")
	}
	return c
}

// Release decrements the reference count. Release of a nil certificate is
// a no-op, matching the external interface's idempotent free-of-null
// contract. Decrementing past zero is a fatal programmer error.
func Release(c *Certificate) {
	if c == nil {
		return
	}
	n := atomic.AddInt32(c.refcount, -1)
	if n < 0 {
		panic("cert: refcount underflow (double free)")
	}
	if n == 0 {
		c.attrs = nil
		c.privateKey = nil
		c.friendlyName = nil
		c.localKeyID = nil
	}
}

// Subject returns the certificate's subject name.
func Subject(c *Certificate) Name { return c.decoded.TBS.Subject }

// Issuer returns the certificate's issuer name.
func Issuer(c *Certificate) Name { return c.decoded.TBS.Issuer }

// Serial returns the certificate's serial number.
func Serial(c *Certificate) *big.Int { return c.decoded.TBS.SerialNumber }

// Version returns the certificate's version, defaulting to 1 per the DER
// encoding quirk noted on TBSCertificate.Version.
func Version(c *Certificate) int {
	if c.decoded.TBS.Version <= 0 {
		return 1
	}
	return c.decoded.TBS.Version
}

// Extensions returns the certificate's extension list, empty below
// version 3: extensions are a v3 construct and are never consulted on
// v1/v2 certificates.
func Extensions(c *Certificate) []Extension {
	if Version(c) < 3 {
		return nil
	}
	return c.decoded.TBS.Extensions
}

// SPKI returns the certificate's subject public key info.
func SPKI(c *Certificate) SubjectPublicKeyInfo { return c.decoded.TBS.SPKI }

// CertValidity returns the certificate's notBefore/notAfter window.
func CertValidity(c *Certificate) Validity { return c.decoded.TBS.Validity }

// SignatureAlgorithm returns the OID of the algorithm that produced
// SignatureBits over RawTBS.
func SignatureAlgorithm(c *Certificate) OID { return c.decoded.SignatureAlgorithm }

// SignatureBits returns the raw signature bytes.
func SignatureBits(c *Certificate) []byte { return c.decoded.SignatureBits }

// RawTBS returns the exact bytes that were signed.
func RawTBS(c *Certificate) []byte { return c.decoded.RawTBS }

// SetPrivateKey attaches a private key handle to the certificate.
func SetPrivateKey(c *Certificate, key crypto.Signer) { c.privateKey = key }

// PrivateKey returns the attached private key handle, or nil.
func PrivateKey(c *Certificate) crypto.Signer { return c.privateKey }

// SetAttribute attaches an opaque attribute to the certificate, keyed by
// OID. First-writer-wins: a second call with the same OID is a no-op.
func SetAttribute(c *Certificate, oid OID, value []byte) {
	if _, ok := c.attrs[oid]; ok {
		return
	}
	c.attrs[oid] = value
}

// Attribute returns the attribute stored under oid, if any.
func Attribute(c *Certificate, oid OID) ([]byte, bool) {
	v, ok := c.attrs[oid]
	return v, ok
}

// SetLocalKeyID sets the PKCS#9 localKeyId attribute consulted by
// MatchLocalKeyID. Exposed distinctly from SetAttribute because it's
// kept in a dedicated slot rather than the general attribute bag.
func SetLocalKeyID(c *Certificate, id []byte) { c.localKeyID = id }

// LocalKeyID returns the PKCS#9 localKeyId attribute, if set.
func LocalKeyID(c *Certificate) ([]byte, bool) {
	if c.localKeyID == nil {
		return nil, false
	}
	return c.localKeyID, true
}

// SetFriendlyName sets the certificate's friendly name.
func SetFriendlyName(c *Certificate, name string) { c.friendlyName = &name }

// FriendlyName returns the certificate's friendly name. If unset, it
// attempts to decode a PKCS#9 friendlyName attribute (a BMPString),
// mapping any codepoint above 0xFF to 'X' (lossy but deterministic). If
// no such attribute exists either, returns "".
func FriendlyName(c *Certificate) string {
	if c.friendlyName != nil {
		return *c.friendlyName
	}
	raw, ok := c.attrs[OIDPKCS9FriendlyName]
	if !ok {
		return ""
	}
	name := decodeBMPStringLossy(raw)
	c.friendlyName = &name
	return name
}

// decodeBMPStringLossy decodes a DER BMPString (UCS-2BE code units) into
// ASCII, substituting 'X' for any codepoint above 0xFF.
func decodeBMPStringLossy(raw []byte) string {
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-len(raw)%2]
	}
	out := make([]byte, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		cp := uint16(raw[i])<<8 | uint16(raw[i+1])
		if cp > 0xFF {
			out = append(out, 'X')
		} else {
			out = append(out, byte(cp))
		}
	}
	return string(out)
}

// Cmp reports structural equality over signature bits, signature
// algorithm, and raw TBS bytes only; friendly names and attributes never
// participate.
func Cmp(a, b *Certificate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.decoded.SignatureAlgorithm == b.decoded.SignatureAlgorithm &&
		bytes.Equal(a.decoded.SignatureBits, b.decoded.SignatureBits) &&
		bytes.Equal(a.decoded.RawTBS, b.decoded.RawTBS)
}

// KeyHashSHA1 returns the SHA-1 digest over the raw subject public key
// bit-string bytes (length in bytes, not bits), used by
// MatchKeyHashSHA1.
func KeyHashSHA1(c *Certificate) [20]byte {
	return sha1.Sum(c.decoded.TBS.SPKI.RawBitString)
}

// CheckEKU reports whether the certificate's Extended Key Usage
// extension permits the given purpose oid. If allowAny is set, the
// anyExtendedKeyUsage OID also satisfies any requested purpose. A
// certificate with no EKU extension at all is treated as unrestricted
// (matches any purpose), per RFC 5280's "absence implies all purposes".
func CheckEKU(c *Certificate, oid OID, allowAny bool) bool {
	ext, ok := FindExtension(Extensions(c), OIDExtExtendedKeyUsage)
	if !ok {
		return true
	}
	ekus, err := DecodeExtKeyUsage(ext.Value)
	if err != nil {
		return false
	}
	for _, e := range ekus {
		if e == oid || (allowAny && e == OIDEKUAny) {
			return true
		}
	}
	return false
}

// FindExtension returns the first extension matching oid.
func FindExtension(exts []Extension, oid OID) (Extension, bool) {
	for _, e := range exts {
		if e.OID == oid {
			return e, true
		}
	}
	return Extension{}, false
}

// FindAllExtensions returns every extension matching oid. A certificate
// may carry more than one instance of the same extension OID (malformed,
// but the matcher is specified to iterate all such occurrences rather
// than assume uniqueness, e.g. for NameConstraints accumulation).
func FindAllExtensions(exts []Extension, oid OID) []Extension {
	var out []Extension
	for _, e := range exts {
		if e.OID == oid {
			out = append(out, e)
		}
	}
	return out
}

// String implements fmt.Stringer for debug logging.
func (c *Certificate) String() string {
	return fmt.Sprintf("Certificate{subject=%v serial=%v}", Subject(c), Serial(c))
}
