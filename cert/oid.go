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

// OID is an ASN.1 object identifier in dotted-decimal string form. The core
// never needs arithmetic over OID components, only equality and use as a
// map key, so the dotted string is sufficient and avoids pulling in a
// dedicated OID type from the assumed-external decode layer.
type OID string

// Well-known extension OIDs consulted by the validator and matcher.
const (
	OIDExtKeyUsage              OID = "2.5.29.15"
	OIDExtBasicConstraints      OID = "2.5.29.19"
	OIDExtSubjectKeyIdentifier  OID = "2.5.29.14"
	OIDExtAuthorityKeyID        OID = "2.5.29.35"
	OIDExtSubjectAltName        OID = "2.5.29.17"
	OIDExtNameConstraints       OID = "2.5.29.30"
	OIDExtExtendedKeyUsage      OID = "2.5.29.37"
	OIDEKUAny                   OID = "2.5.29.37.0"
	OIDPKCS9FriendlyName        OID = "1.2.840.113549.1.9.20"
	OIDPKCS9LocalKeyID          OID = "1.2.840.113549.1.9.21"
	OIDAttrCommonName           OID = "2.5.4.3"
	OIDAttrSerialNumber         OID = "2.5.4.5"
	OIDAttrCountry              OID = "2.5.4.6"
	OIDAttrLocality             OID = "2.5.4.7"
	OIDAttrProvince             OID = "2.5.4.8"
	OIDAttrOrganization         OID = "2.5.4.10"
	OIDAttrOrganizationalUnit   OID = "2.5.4.11"
)

// Signature algorithm OIDs shared by the validator's signature check and
// the crypto/x509 bridge that populates Decoded.SignatureAlgorithm.
const (
	OIDSigSHA256WithRSA   OID = "1.2.840.113549.1.1.11"
	OIDSigSHA384WithRSA   OID = "1.2.840.113549.1.1.12"
	OIDSigSHA512WithRSA   OID = "1.2.840.113549.1.1.13"
	OIDSigECDSAWithSHA256 OID = "1.2.840.10045.4.3.2"
	OIDSigECDSAWithSHA384 OID = "1.2.840.10045.4.3.3"
	OIDSigECDSAWithSHA512 OID = "1.2.840.10045.4.3.4"
	OIDSigEd25519         OID = "1.3.101.112"
)
