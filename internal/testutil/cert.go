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

// Package testutil builds real, signed X.509 certificates for this
// repository's own test suites, using crypto/x509 and crypto/ecdsa the
// same way this repository's assumed-external decode collaborator
// would produce them in a real deployment.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/x509adapt"
)

// oidAuthorityKeyId is the AuthorityKeyIdentifier extension OID.
// crypto/x509.CreateCertificate always overrides Certificate.AuthorityKeyId
// with the parent's SubjectKeyId whenever the parent has one (see its
// buildCertExtensions), so a test that wants a deliberately mismatched
// AKI has to supply the extension itself via ExtraExtensions: the
// stdlib only auto-derives when the OID isn't already present there.
var oidAuthorityKeyId = asn1.ObjectIdentifier{2, 5, 29, 35}

type authKeyId struct {
	Id []byte `asn1:"optional,tag:0"`
}

// Spec describes one certificate to generate.
type Spec struct {
	CommonName      string
	NotBefore       time.Time
	NotAfter        time.Time
	IsCA            bool
	PathLen         int
	HasPathLen      bool
	KeyUsage        x509.KeyUsage
	DNSNames        []string
	SubjectKeyID    []byte
	AuthorityKeyID  []byte // overrides the stdlib-derived value when non-nil
	NameConstraints *NameConstraintsSpec
	SerialNumber    int64
}

// NameConstraintsSpec configures the permitted/excluded DNS subtrees
// crypto/x509 knows how to encode, enough to drive this repository's
// dNSName matcher tests without hand-rolling DER.
type NameConstraintsSpec struct {
	PermittedDNSDomains []string
	ExcludedDNSDomains  []string
}

// Issued is a generated certificate: the repository's own Certificate
// value plus the private key, so a test can use it as a parent for a
// further Issued certificate.
type Issued struct {
	Cert *cert.Certificate
	Key  *ecdsa.PrivateKey
	X509 *x509.Certificate
}

var serialCounter int64 = 1

// New generates a certificate per spec, signed by parent (or
// self-signed if parent is nil).
func New(spec Spec, parent *Issued) (*Issued, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	serial := spec.SerialNumber
	if serial == 0 {
		serialCounter++
		serial = serialCounter
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: spec.CommonName},
		NotBefore:             spec.NotBefore,
		NotAfter:              spec.NotAfter,
		KeyUsage:              spec.KeyUsage,
		BasicConstraintsValid: true,
		IsCA:                  spec.IsCA,
		DNSNames:              spec.DNSNames,
		SubjectKeyId:          spec.SubjectKeyID,
	}
	if spec.HasPathLen {
		template.MaxPathLen = spec.PathLen
		template.MaxPathLenZero = spec.PathLen == 0
	}
	if spec.AuthorityKeyID != nil {
		akiValue, err := asn1.Marshal(authKeyId{Id: spec.AuthorityKeyID})
		if err != nil {
			return nil, fmt.Errorf("marshaling AuthorityKeyId override: %w", err)
		}
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:    oidAuthorityKeyId,
			Value: akiValue,
		})
	}
	if spec.NameConstraints != nil {
		template.PermittedDNSDomains = spec.NameConstraints.PermittedDNSDomains
		template.ExcludedDNSDomains = spec.NameConstraints.ExcludedDNSDomains
		template.PermittedDNSDomainsCritical = false
	}

	parentTemplate := template
	signerKey := key
	if parent != nil {
		parentTemplate = parent.X509
		signerKey = parent.Key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parentTemplate, &key.PublicKey, signerKey)
	if err != nil {
		return nil, fmt.Errorf("creating certificate: %w", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing generated certificate: %w", err)
	}

	return &Issued{
		Cert: cert.FromDecoded(x509adapt.FromParsed(parsed)),
		Key:  key,
		X509: parsed,
	}, nil
}
