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

// Package verify holds the VerifyContext: trust anchors, clock, depth
// bound, and an optional revocation oracle, attached once before a
// verify call and never mutated during one.
package verify

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/cert-manager/x509path/certstore"
	"github.com/cert-manager/x509path/revoke"
)

// Flag is a bit in Context.Flags.
type Flag uint32

const (
	// TimeExplicit means Now was set by the caller rather than
	// defaulted from the wall clock at verify time.
	TimeExplicit Flag = 1 << iota
	// AllowProxyCert relaxes the parent predicate's self-signed branch
	// during path building: query.IsParent's allowSelfSigned parameter
	// is set from this flag (see path.Build), so an issuer candidate
	// with a SubjectKeyIdentifier but no matching AuthorityKeyIdentifier
	// on the subject can still be accepted by name alone.
	AllowProxyCert
	// VerifyMissingOk downgrades a RevokeOracle "unknown" result from a
	// hard failure to a pass.
	VerifyMissingOk
)

const defaultMaxDepth = 30

// Context is the verification context, constructed empty and populated
// by its Attach*/Set* methods before a verify call. No field is mutated
// once a verify call is underway.
type Context struct {
	Flags Flag

	trustAnchors certstore.CertStore
	now          time.Time
	maxDepth     int
	revoke       revoke.Oracle
	log          logr.Logger
}

// New constructs an empty Context with the default max depth and a
// no-op logger, mirroring context_init/verify_ctx_new.
func New() *Context {
	return &Context{
		maxDepth: defaultMaxDepth,
		log:      logr.Discard(),
	}
}

// AttachAnchors sets the trust anchor store, the Go shape of
// verify_ctx_attach_anchors.
func (c *Context) AttachAnchors(anchors certstore.CertStore) {
	c.trustAnchors = anchors
}

// TrustAnchors returns the attached trust anchor store, or nil if none
// has been attached.
func (c *Context) TrustAnchors() certstore.CertStore {
	return c.trustAnchors
}

// AttachRevoke sets the revocation oracle consulted during §4.6.
func (c *Context) AttachRevoke(oracle revoke.Oracle) {
	c.revoke = oracle
}

// Revoke returns the attached revocation oracle, or nil if none has
// been attached.
func (c *Context) Revoke() revoke.Oracle {
	return c.revoke
}

// SetTime pins the verification clock and sets the TimeExplicit flag.
func (c *Context) SetTime(t time.Time) {
	c.now = t
	c.Flags |= TimeExplicit
}

// Now returns the verification clock: the pinned time if TimeExplicit
// is set, otherwise the wall clock at call time.
func (c *Context) Now() time.Time {
	if c.Flags&TimeExplicit != 0 {
		return c.now
	}
	return time.Now()
}

// SetMaxDepth overrides the default path-length bound (30).
func (c *Context) SetMaxDepth(d int) {
	c.maxDepth = d
}

// MaxDepth returns the path-length bound.
func (c *Context) MaxDepth() int {
	return c.maxDepth
}

// SetLogger attaches a logger used for verbose diagnostics: the path
// validator logs the violation it returns at V(1). Path building and
// query matching do not log.
func (c *Context) SetLogger(log logr.Logger) {
	c.log = log
}

// Logger returns the attached logger, defaulting to a discard logger.
func (c *Context) Logger() logr.Logger {
	return c.log
}
