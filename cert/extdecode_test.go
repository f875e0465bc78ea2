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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DecodeKeyUsage(t *testing.T) {
	// BIT STRING, 2 unused bits, value 0x04 -> bit 5 (keyCertSign) set.
	value := []byte{0x03, 0x02, 0x02, 0x04}
	ku, err := DecodeKeyUsage(value)
	require.NoError(t, err)
	assert.NotZero(t, ku&(1<<5))
	assert.Zero(t, ku&(1<<0))
}

func Test_DecodeBasicConstraints(t *testing.T) {
	tests := map[string]struct {
		value      []byte
		expCA      bool
		expPathLen *int
	}{
		"cA true, no path length": {
			value: []byte{0x30, 0x03, 0x01, 0x01, 0xFF},
			expCA: true,
		},
		"cA true, path length 0": {
			value:      []byte{0x30, 0x06, 0x01, 0x01, 0xFF, 0x02, 0x01, 0x00},
			expCA:      true,
			expPathLen: intPtr(0),
		},
		"empty sequence, cA defaults false": {
			value: []byte{0x30, 0x00},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ca, pathLen, err := DecodeBasicConstraints(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.expCA, ca)
			if tc.expPathLen == nil {
				assert.Nil(t, pathLen)
			} else {
				require.NotNil(t, pathLen)
				assert.Equal(t, *tc.expPathLen, *pathLen)
			}
		})
	}
}

func Test_DecodeAuthorityKeyIdentifier(t *testing.T) {
	value := []byte{0x30, 0x05, 0x80, 0x03, 0xAA, 0xBB, 0xCC}
	kid, ok, err := DecodeAuthorityKeyIdentifier(value)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, kid)
}

func Test_DecodeAuthorityKeyIdentifier_absent(t *testing.T) {
	value := []byte{0x30, 0x00}
	_, ok, err := DecodeAuthorityKeyIdentifier(value)
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_DecodeSubjectKeyIdentifier(t *testing.T) {
	value := []byte{0x04, 0x03, 0xAA, 0xBB, 0xCC}
	ski, err := DecodeSubjectKeyIdentifier(value)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, ski)
}

func Test_DecodeExtKeyUsage(t *testing.T) {
	// SEQUENCE OF OID { serverAuth (1.3.6.1.5.5.7.3.1) }
	value := []byte{
		0x30, 0x0A,
		0x06, 0x08, 0x2B, 0x06, 0x01, 0x05, 0x05, 0x07, 0x03, 0x01,
	}
	ekus, err := DecodeExtKeyUsage(value)
	require.NoError(t, err)
	require.Len(t, ekus, 1)
	assert.Equal(t, OID("1.3.6.1.5.5.7.3.1"), ekus[0])
}

func Test_DecodeNameConstraints_empty(t *testing.T) {
	value := []byte{0x30, 0x00}
	nc, err := DecodeNameConstraints(value)
	require.NoError(t, err)
	assert.Empty(t, nc.Permitted)
	assert.Empty(t, nc.Excluded)
}

func Test_DecodeGeneralNames_multipleEntries(t *testing.T) {
	rfc822 := []byte("a@example.com")
	dns := []byte("example.com")
	value := append([]byte{0x30, byte(2 + len(rfc822) + 2 + len(dns)), 0x81, byte(len(rfc822))}, rfc822...)
	value = append(value, 0x82, byte(len(dns)))
	value = append(value, dns...)

	got, err := DecodeGeneralNames(value)
	require.NoError(t, err)

	want := []GeneralName{
		{Kind: GeneralNameRFC822, RFC822Name: "a@example.com"},
		{Kind: GeneralNameDNS, DNSName: "example.com"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeGeneralNames mismatch (-want +got):\n%s", diff)
	}
}

func intPtr(v int) *int { return &v }
