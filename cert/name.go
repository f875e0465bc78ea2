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

import "strings"

// RDNAttribute is a single attribute-type/value pair within a Relative
// Distinguished Name, e.g. {CN, "example.com"}.
type RDNAttribute struct {
	Type  OID
	Value string
}

// RDN is a Relative Distinguished Name: a SET of attribute/value pairs.
// RFC 5280 permits multi-valued RDNs (e.g. CN+serialNumber); equality is
// defined as set-equality over the member attributes.
type RDN []RDNAttribute

// Name is an X.501 distinguished name: a SEQUENCE of RDNs.
type Name []RDN

// IsNull reports whether the name is the empty sequence, which the path
// builder treats specially (an empty subject forces AKI-based parent
// lookup rather than name-based).
func (n Name) IsNull() bool {
	return len(n) == 0
}

// normalizeDirectoryString approximates RFC 4518 string preparation: fold
// case and collapse interior whitespace. It is intentionally not a full
// implementation of Unicode string preparation (see DESIGN.md).
func normalizeDirectoryString(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func rdnAttrEqual(a, b RDNAttribute) bool {
	return a.Type == b.Type && normalizeDirectoryString(a.Value) == normalizeDirectoryString(b.Value)
}

// rdnEqual reports whether two RDNs are equal as sets of attribute/value
// pairs (order within the RDN does not matter, per X.501).
func rdnEqual(a, b RDN) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if rdnAttrEqual(av, bv) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NameEqual implements the X.501 name comparison used throughout the
// validator: issuer/subject linkage (is_parent_cmp), MatchIssuerName and
// MatchSubjectName. The name constraints matcher uses IsPrefixOf instead.
func NameEqual(a, b Name) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !rdnEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// NameCompare returns 0 if the names are equal and a non-zero value
// otherwise, mirroring is_parent_cmp's use of a name comparator that
// reports ordering rather than a bare boolean. The core never relies on
// the sign of a non-zero result, only on zero-ness.
func NameCompare(a, b Name) int {
	if NameEqual(a, b) {
		return 0
	}
	return 1
}

// String renders the name as a slash-separated sequence of RDNs, each a
// "+"-joined set of type=value pairs: a debug/key form, not a
// canonical RFC 4514 string (which this core has no need to produce).
func (n Name) String() string {
	rdns := make([]string, len(n))
	for i, rdn := range n {
		attrs := make([]string, len(rdn))
		for j, a := range rdn {
			attrs[j] = string(a.Type) + "=" + a.Value
		}
		rdns[i] = strings.Join(attrs, "+")
	}
	return strings.Join(rdns, "/")
}

// IsPrefixOf reports whether name prefix is a component-wise prefix of
// name, used by the directoryName name-constraints matcher: the pattern's
// RDN sequence must be a prefix of the certificate's RDN sequence.
func (prefix Name) IsPrefixOf(name Name) bool {
	if len(prefix) > len(name) {
		return false
	}
	for i := range prefix {
		if !rdnEqual(prefix[i], name[i]) {
			return false
		}
	}
	return true
}
