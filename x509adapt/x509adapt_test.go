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

package x509adapt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cert-manager/x509path/cert"
)

func selfSignedDER(t *testing.T) (*x509.Certificate, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "leaf"},
		NotBefore:             time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return parsed, der
}

func Test_spkiBitStringBytes_matchesManualSHA1(t *testing.T) {
	parsed, _ := selfSignedDER(t)

	got := spkiBitStringBytes(parsed.RawSubjectPublicKeyInfo)
	assert.NotEqual(t, parsed.RawSubjectPublicKeyInfo, got, "must strip the AlgorithmIdentifier wrapper, not hash the whole SPKI")

	// The extracted bytes must be exactly what KeyHashSHA1 hashes once
	// adapted into a Certificate.
	c := cert.FromDecoded(FromParsed(parsed))
	defer cert.Release(c)

	want := sha1.Sum(got)
	assert.Equal(t, want, cert.KeyHashSHA1(c))
}

func Test_spkiBitStringBytes_fallsBackOnGarbage(t *testing.T) {
	garbage := []byte{0x01, 0x02, 0x03}
	assert.Equal(t, garbage, spkiBitStringBytes(garbage))
}

func Test_FromParsed_roundTripsCoreFields(t *testing.T) {
	parsed, _ := selfSignedDER(t)
	d := FromParsed(parsed)

	assert.Equal(t, parsed.Version, d.TBS.Version)
	assert.Equal(t, parsed.SerialNumber, d.TBS.SerialNumber)
	assert.Equal(t, parsed.RawTBSCertificate, d.RawTBS)
	assert.Equal(t, parsed.Signature, d.SignatureBits)
}

func Test_FromParsed_signatureAlgorithmIsDottedOID(t *testing.T) {
	// A P-256 self-signed certificate is signed with ecdsa-with-SHA256;
	// the adapted value must be the dotted OID the validator dispatches
	// on, not crypto/x509's display name.
	parsed, _ := selfSignedDER(t)
	d := FromParsed(parsed)
	assert.Equal(t, cert.OIDSigECDSAWithSHA256, d.SignatureAlgorithm)
}
