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

// GeneralNameKind discriminates the CHOICE alternatives of GeneralName
// (RFC 5280 §4.2.1.6). Per design note "GeneralName -> enum of kinds",
// this is a sum type rather than a class hierarchy: exactly one of the
// typed fields on GeneralName is meaningful for a given Kind.
type GeneralNameKind int

const (
	GeneralNameOtherName GeneralNameKind = iota
	GeneralNameRFC822
	GeneralNameDNS
	GeneralNameDirectory
	GeneralNameURI
	GeneralNameIPAddress
	GeneralNameRegisteredID
)

// OtherName is the otherName CHOICE alternative: an arbitrary OID-tagged
// value, compared by the matcher as an exact (type, bytes) pair.
type OtherName struct {
	TypeID OID
	Value  []byte
}

// GeneralName is one of the seven CHOICE alternatives this package
// supports. x400Address and ediPartyName are not represented: they
// essentially never appear in SubjectAltName in practice. The decoder
// reports them as ErrUnsupportedGeneralName; DecodeGeneralNames skips
// them, while DecodeNameConstraints fails on them.
type GeneralName struct {
	Kind GeneralNameKind

	OtherName     OtherName
	RFC822Name    string
	DNSName       string
	DirectoryName Name
	URI           string
	IPAddress     []byte
	RegisteredID  OID
}

// GeneralSubtree is a single entry of a permitted or excluded subtree: a
// base GeneralName pattern plus an (almost always absent) min/max range.
type GeneralSubtree struct {
	Base    GeneralName
	Minimum *int
	Maximum *int
}

// NameConstraintsValue is the decoded value of a single NameConstraints
// extension instance.
type NameConstraintsValue struct {
	Permitted []GeneralSubtree
	Excluded  []GeneralSubtree
}
