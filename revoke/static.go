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

package revoke

import (
	"math/big"
	"sync"
	"time"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/certstore"
)

// StaticOracle is a fixed, in-memory RevokeOracle: a set of revoked
// serial numbers keyed by issuer name, checked against whatever store
// it's handed. It plays the same role in this repository's test suite
// that the fake approver/evaluator implementations play in this
// codebase's own tests: a reference double for an interface only the
// consumer side of which is specified.
type StaticOracle struct {
	mu      sync.Mutex
	revoked map[string]map[string]struct{} // issuer name string -> serial string -> present
	unknown map[string]map[string]struct{}
}

// NewStaticOracle constructs an Oracle with nothing revoked.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		revoked: make(map[string]map[string]struct{}),
		unknown: make(map[string]map[string]struct{}),
	}
}

// Revoke marks serial, issued by issuerName, as revoked.
func (o *StaticOracle) Revoke(issuerName cert.Name, serial *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := issuerName.String()
	if o.revoked[key] == nil {
		o.revoked[key] = make(map[string]struct{})
	}
	o.revoked[key][serial.String()] = struct{}{}
}

// MarkUnknown records that serial's status under issuerName cannot be
// determined, producing OutcomeUnknown rather than OutcomeOK.
func (o *StaticOracle) MarkUnknown(issuerName cert.Name, serial *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := issuerName.String()
	if o.unknown[key] == nil {
		o.unknown[key] = make(map[string]struct{})
	}
	o.unknown[key][serial.String()] = struct{}{}
}

// Check implements Oracle. now and store are accepted per the
// interface contract but unused: a static, pre-seeded revocation set
// needs neither the working store nor the verification clock to answer.
func (o *StaticOracle) Check(_ certstore.CertStore, _ time.Time, subject, issuer *cert.Certificate) (Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := cert.Subject(issuer).String()
	serial := cert.Serial(subject)
	if serial == nil {
		return OutcomeUnknown, nil
	}
	if set, ok := o.unknown[key]; ok {
		if _, ok := set[serial.String()]; ok {
			return OutcomeUnknown, nil
		}
	}
	if set, ok := o.revoked[key]; ok {
		if _, ok := set[serial.String()]; ok {
			return OutcomeRevoked, nil
		}
	}
	return OutcomeOK, nil
}
