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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// Constructor builds a CertStore from the scheme-specific remainder of a
// backend URI (the part after "SCHEME:") plus open flags.
type Constructor func(tag string, flags uint32) (CertStore, error)

// Registry resolves a backend URI's scheme to the Constructor that
// knows how to open it. Backend packages register themselves into
// Backends from their own init(), exactly as this codebase's approver
// implementations self-register into the shared approver registry
// rather than being wired up by a central switch statement.
type Registry struct {
	mu       sync.Mutex
	byScheme map[string]Constructor
}

// Backends is the process-wide registry; Backends.Open resolves a URI
// against it.
// It ships pre-populated with the MEMORY scheme; other schemes (FILE,
// PKCS12, PKCS11, DIR) are registered by their own backend packages.
var Backends = NewRegistry()

// NewRegistry constructs an empty registry. Exposed primarily for tests
// that want isolation from the process-wide Backends registry.
func NewRegistry() *Registry {
	return &Registry{byScheme: make(map[string]Constructor)}
}

// Register adds scheme to the registry. It panics on a duplicate
// scheme: registering two backends under the same name is a build-time
// wiring mistake, not a condition a caller can recover from, the same
// way this codebase's shared registry panics on a duplicate approver
// name.
func (r *Registry) Register(scheme string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scheme = strings.ToUpper(scheme)
	if _, exists := r.byScheme[scheme]; exists {
		panic(fmt.Sprintf("certstore: backend scheme %q already registered", scheme))
	}
	r.byScheme[scheme] = ctor
}

// Schemes lists every registered scheme, sorted, for CLI help text and
// diagnostics.
func (r *Registry) Schemes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byScheme))
	for s := range r.byScheme {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open resolves a scheme-prefixed backend URI (e.g. "MEMORY:default",
// "FILE:/etc/pki/bundle.pem") to an opened CertStore, the Go shape of
// certs_init(backend_uri, flags). log, if non-nil, receives a debug
// line naming the resolved scheme, never on a per-certificate hot
// path, only once per store open.
func (r *Registry) Open(uri string, flags uint32, log logr.Logger) (CertStore, error) {
	scheme, tag, ok := strings.Cut(uri, ":")
	if !ok {
		return nil, fmt.Errorf("certstore: malformed backend URI %q, want SCHEME:tag", uri)
	}
	scheme = strings.ToUpper(scheme)

	r.mu.Lock()
	ctor, ok := r.byScheme[scheme]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("certstore: unknown backend scheme %q", scheme)
	}
	log.V(1).Info("opening certificate store backend", "scheme", scheme)
	return ctor(tag, flags)
}
