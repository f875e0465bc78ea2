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

// Package certstore defines the CertStore capability ("given a query,
// iterate matching certificates") and a registry that resolves a
// scheme-prefixed backend URI (MEMORY:, FILE:, PKCS12:, PKCS11:, DIR:)
// to a constructor, modeled on the self-registering approver registry
// this repository's ambient stack is built around.
package certstore

import (
	"errors"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/query"
)

// ErrNotFound is returned by Find when no certificate in the store
// satisfies the query.
var ErrNotFound = errors.New("certstore: no matching certificate")

// CertStore is the capability the path builder and validator depend on:
// a populated collection of certificates that can be queried and
// iterated. Backends beyond MEMORY (FILE, PKCS12, PKCS11, DIR) are
// external collaborators implementing this same interface.
type CertStore interface {
	// Add inserts a certificate share into the store. The store takes
	// ownership of the share it is given; callers that want to keep
	// their own reference must cert.Share it first.
	Add(c *cert.Certificate)

	// Find returns the first certificate satisfying q, in store
	// iteration order, or ErrNotFound.
	Find(q query.Query) (*cert.Certificate, error)

	// Merge copies every certificate from other into this store,
	// sharing rather than cloning each one.
	Merge(other CertStore)

	// All returns every certificate currently in the store, in
	// iteration order. The slice is a snapshot at call time.
	All() []*cert.Certificate

	// Contains reports whether c (by cert.Cmp) is already present,
	// the store-level half of the query language's NoMatchPath/anchor
	// membership tests.
	Contains(c *cert.Certificate) bool

	// Close releases every certificate share the store owns. Per the
	// resource model, a store that is not shared-writable still owns
	// the shares handed to Add and must release them on teardown.
	Close()
}
