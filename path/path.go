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

// Package path builds a certificate chain: a leaf-to-anchor ordered
// sequence of certificate shares, found by repeatedly querying a
// candidate pool and a trust-anchor store for a plausible issuer.
package path

import (
	"fmt"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/certstore"
	"github.com/cert-manager/x509path/query"
	"github.com/cert-manager/x509path/verify"
)

// Path is an ordered sequence of certificate shares: index 0 is the
// leaf, the last element is the anchor (which may be the leaf itself,
// for a self-signed anchor certificate).
type Path []*cert.Certificate

// Contains reports whether c (by cert.Cmp) already appears in the
// path, the path's half of the query language's NoMatchPath
// predicate. It satisfies query.PathLike.
func (p Path) Contains(c *cert.Certificate) bool {
	for _, existing := range p {
		if cert.Cmp(existing, c) {
			return true
		}
	}
	return false
}

// Release drops the path's own share of every certificate it holds.
// Callers that want to keep a certificate beyond the path's lifetime
// must cert.Share it first.
func (p Path) Release() {
	for _, c := range p {
		cert.Release(c)
	}
}

// ErrIssuerNotFound is returned when no candidate in the pool or trust
// anchors satisfies the parent query for the current path tip.
var ErrIssuerNotFound = fmt.Errorf("path: issuer certificate not found")

// ErrPathTooLong is returned when the path would exceed the verify
// context's max depth before reaching an anchor.
var ErrPathTooLong = fmt.Errorf("path: exceeds maximum depth")

// Build constructs a candidate certification path starting from leaf,
// repeatedly searching pool then ctx's trust anchors for a plausible
// issuer, stopping when the current tip is itself found among the
// anchors (by exact MatchCertificate).
func Build(leaf *cert.Certificate, pool certstore.CertStore, ctx *verify.Context) (Path, error) {
	anchors := ctx.TrustAnchors()

	p := Path{cert.Share(leaf)}
	current := leaf

	for {
		if anchors != nil {
			anchorQ := query.Query{Mask: query.MatchCertificate, SubjectCert: current}
			if _, err := anchors.Find(anchorQ); err == nil {
				break
			}
		}

		q := query.Query{Mask: query.NoMatchPath | query.KUKeyCertSign, Path: p}

		subject := cert.Subject(current)
		if !subject.IsNull() {
			q.Mask |= query.FindIssuerCert
			q.SubjectCert = current
			q.AllowSelfSigned = ctx.Flags&verify.AllowProxyCert != 0
		} else {
			aki, akiState := query.AuthorityKeyID(current)
			if akiState != query.AKIPresent {
				p.Release()
				return nil, ErrIssuerNotFound
			}
			q.Mask |= query.MatchSubjectKeyID
			q.SubjectKeyID = aki
		}

		parent, err := pool.Find(q)
		if err != nil && anchors != nil {
			parent, err = anchors.Find(q)
		}
		if err != nil {
			p.Release()
			return nil, ErrIssuerNotFound
		}

		p = append(p, cert.Share(parent))
		if len(p) > ctx.MaxDepth() {
			p.Release()
			return nil, ErrPathTooLong
		}
		current = parent
	}

	return p, nil
}
