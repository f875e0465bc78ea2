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

package certstore

import (
	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/query"
)

func init() {
	Backends.Register("MEMORY", newMemoryStore)
}

func newMemoryStore(_ string, _ uint32) (CertStore, error) {
	return &memoryStore{}, nil
}

// memoryStore is the only CertStore backend this repository ships. Its
// iteration order is insertion order, matching the snapshot-on-call
// guarantee the resource model requires: once handed to a verify call,
// a store is not written to again.
type memoryStore struct {
	certs []*cert.Certificate
}

// NewMemoryStore constructs a MEMORY-backed store directly, without
// going through the scheme registry. This is the path most callers use, since
// an in-memory pool built up certificate-by-certificate rarely needs a
// URI at all.
func NewMemoryStore() CertStore {
	return &memoryStore{}
}

func (s *memoryStore) Add(c *cert.Certificate) {
	s.certs = append(s.certs, c)
}

func (s *memoryStore) Find(q query.Query) (*cert.Certificate, error) {
	for _, c := range s.certs {
		if query.Evaluate(q, c) {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) Merge(other CertStore) {
	for _, c := range other.All() {
		s.certs = append(s.certs, cert.Share(c))
	}
}

func (s *memoryStore) All() []*cert.Certificate {
	out := make([]*cert.Certificate, len(s.certs))
	copy(out, s.certs)
	return out
}

func (s *memoryStore) Contains(c *cert.Certificate) bool {
	for _, existing := range s.certs {
		if cert.Cmp(existing, c) {
			return true
		}
	}
	return false
}

func (s *memoryStore) Close() {
	for _, c := range s.certs {
		cert.Release(c)
	}
	s.certs = nil
}
