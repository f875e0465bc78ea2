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

// Package validate_test holds the build-then-verify integration
// scenarios S1-S6, one Ginkgo spec per scenario, mirroring the
// multi-step suite style of this codebase's own internal/test package.
package validate_test

import (
	"crypto/x509"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cert-manager/x509path/certstore"
	"github.com/cert-manager/x509path/internal/testutil"
	"github.com/cert-manager/x509path/validate"
	"github.com/cert-manager/x509path/verify"
)

var (
	validFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	validTo   = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	checkTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

var _ = Describe("VerifyPath", func() {
	var (
		anchors certstore.CertStore
		pool    certstore.CertStore
		ctx     *verify.Context
	)

	BeforeEach(func() {
		anchors = certstore.NewMemoryStore()
		pool = certstore.NewMemoryStore()
		ctx = verify.New()
		ctx.AttachAnchors(anchors)
		ctx.SetTime(checkTime)
	})

	AfterEach(func() {
		anchors.Close()
		pool.Close()
	})

	// S1: a self-signed anchor certificate verifies against an empty
	// pool, path length 1.
	It("accepts a self-signed anchor against an empty pool", func() {
		a, err := testutil.New(testutil.Spec{
			CommonName: "root", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		anchors.Add(a.Cert)

		Expect(validate.VerifyPath(ctx, a.Cert, pool)).To(Succeed())
	})

	// S2: a two-deep chain (leaf -> intermediate -> anchor) verifies.
	It("accepts a two-deep chain", func() {
		root, err := testutil.New(testutil.Spec{
			CommonName: "root", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		inter, err := testutil.New(testutil.Spec{
			CommonName: "inter", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, HasPathLen: true, PathLen: 0,
			KeyUsage: x509.KeyUsageCertSign,
		}, root)
		Expect(err).NotTo(HaveOccurred())

		leaf, err := testutil.New(testutil.Spec{
			CommonName: "leaf", NotBefore: validFrom, NotAfter: validTo,
			KeyUsage: x509.KeyUsageDigitalSignature,
		}, inter)
		Expect(err).NotTo(HaveOccurred())

		anchors.Add(root.Cert)
		pool.Add(inter.Cert)

		Expect(validate.VerifyPath(ctx, leaf.Cert, pool)).To(Succeed())
	})

	// S3: adding a further intermediate below a pathLenConstraint=0
	// certificate violates the depth bound.
	It("rejects a chain violating an intermediate's pathLenConstraint", func() {
		root, err := testutil.New(testutil.Spec{
			CommonName: "root", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		inter, err := testutil.New(testutil.Spec{
			CommonName: "inter", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, HasPathLen: true, PathLen: 0,
			KeyUsage: x509.KeyUsageCertSign,
		}, root)
		Expect(err).NotTo(HaveOccurred())

		mid, err := testutil.New(testutil.Spec{
			CommonName: "mid", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, inter)
		Expect(err).NotTo(HaveOccurred())

		leaf, err := testutil.New(testutil.Spec{
			CommonName: "leaf", NotBefore: validFrom, NotAfter: validTo,
			KeyUsage: x509.KeyUsageDigitalSignature,
		}, mid)
		Expect(err).NotTo(HaveOccurred())

		anchors.Add(root.Cert)
		pool.Add(inter.Cert)
		pool.Add(mid.Cert)

		err = validate.VerifyPath(ctx, leaf.Cert, pool)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, &validate.Error{Kind: validate.ErrCAPathTooDeep})).To(BeTrue())
	})

	// S4: an expired leaf fails with CertUsedAfterTime.
	It("rejects a chain with an expired leaf", func() {
		root, err := testutil.New(testutil.Spec{
			CommonName: "root", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		inter, err := testutil.New(testutil.Spec{
			CommonName: "inter", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, HasPathLen: true, PathLen: 0,
			KeyUsage: x509.KeyUsageCertSign,
		}, root)
		Expect(err).NotTo(HaveOccurred())

		expiredLeaf, err := testutil.New(testutil.Spec{
			CommonName: "leaf", NotBefore: validFrom,
			NotAfter: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			KeyUsage: x509.KeyUsageDigitalSignature,
		}, inter)
		Expect(err).NotTo(HaveOccurred())

		anchors.Add(root.Cert)
		pool.Add(inter.Cert)

		err = validate.VerifyPath(ctx, expiredLeaf.Cert, pool)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, &validate.Error{Kind: validate.ErrCertUsedAfterTime})).To(BeTrue())
	})

	// S5: name constraints permit or reject the leaf's SAN.
	It("enforces a permitted dNSName subtree", func() {
		root, err := testutil.New(testutil.Spec{
			CommonName: "root", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		inter, err := testutil.New(testutil.Spec{
			CommonName: "inter", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
			NameConstraints: &testutil.NameConstraintsSpec{
				PermittedDNSDomains: []string{"example.com"},
			},
		}, root)
		Expect(err).NotTo(HaveOccurred())

		anchors.Add(root.Cert)
		pool.Add(inter.Cert)

		goodLeaf, err := testutil.New(testutil.Spec{
			CommonName: "leaf", NotBefore: validFrom, NotAfter: validTo,
			KeyUsage: x509.KeyUsageDigitalSignature,
			DNSNames:  []string{"api.example.com"},
		}, inter)
		Expect(err).NotTo(HaveOccurred())
		Expect(validate.VerifyPath(ctx, goodLeaf.Cert, pool)).To(Succeed())

		badLeaf, err := testutil.New(testutil.Spec{
			CommonName: "leaf2", NotBefore: validFrom, NotAfter: validTo,
			KeyUsage: x509.KeyUsageDigitalSignature,
			DNSNames:  []string{"example.org"},
		}, inter)
		Expect(err).NotTo(HaveOccurred())

		err = validate.VerifyPath(ctx, badLeaf.Cert, pool)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, &validate.Error{Kind: validate.ErrVerifyConstraints})).To(BeTrue())
	})

	// S6: an AKI/SKI mismatch means the builder cannot select the
	// intermediate as an issuer at all.
	It("fails to find an issuer when AKI and SKI mismatch", func() {
		root, err := testutil.New(testutil.Spec{
			CommonName: "root", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		inter, err := testutil.New(testutil.Spec{
			CommonName: "inter", NotBefore: validFrom, NotAfter: validTo,
			IsCA: true, KeyUsage: x509.KeyUsageCertSign,
			SubjectKeyID: []byte{0xBB, 0xBB},
		}, root)
		Expect(err).NotTo(HaveOccurred())

		leaf, err := testutil.New(testutil.Spec{
			CommonName: "leaf", NotBefore: validFrom, NotAfter: validTo,
			KeyUsage:       x509.KeyUsageDigitalSignature,
			AuthorityKeyID: []byte{0xAA, 0xAA},
		}, inter)
		Expect(err).NotTo(HaveOccurred())

		anchors.Add(root.Cert)
		pool.Add(inter.Cert)

		err = validate.VerifyPath(ctx, leaf.Cert, pool)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, &validate.Error{Kind: validate.ErrIssuerNotFound})).To(BeTrue())
	})
})
