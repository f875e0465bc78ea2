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

// Package app wires the x509vfy command: a thin adapter over the
// cert/certstore/path/validate/verify packages. It owns no verification
// logic of its own, only flag parsing, file loading, and result
// formatting.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cert-manager/x509path/cert"
	"github.com/cert-manager/x509path/certstore"
	"github.com/cert-manager/x509path/cmd/x509vfy/app/options"
	pathpkg "github.com/cert-manager/x509path/path"
	"github.com/cert-manager/x509path/validate"
	"github.com/cert-manager/x509path/verify"
)

const helpOutput = "Build and verify X.509 certificate paths against a pool and a set of trust anchors."

// NewCommand constructs the root x509vfy command and its subcommands.
func NewCommand(_ context.Context) *cobra.Command {
	opts := options.New()

	cmd := &cobra.Command{
		Use:   "x509vfy",
		Short: helpOutput,
		Long:  helpOutput,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Complete()
		},
	}

	opts.Prepare(cmd)

	cmd.AddCommand(newBuildPathCommand(opts))
	cmd.AddCommand(newVerifyPathCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))

	return cmd
}

func newBuildPathCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "build-path",
		Short: "Build a certificate path from the leaf to a trust anchor.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.Logr
			ctx, leaf, pool, err := setup(opts)
			if err != nil {
				return err
			}

			p, err := pathpkg.Build(leaf, pool, ctx)
			if err != nil {
				log.Error(err, "failed to build path")
				os.Exit(1)
			}
			defer p.Release()

			for i, c := range p {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %v\n", i, cert.Subject(c))
			}
			return nil
		},
	}
}

func newVerifyPathCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-path",
		Short: "Build and validate a certificate path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.Logr
			ctx, leaf, pool, err := setup(opts)
			if err != nil {
				return err
			}

			if err := validate.VerifyPath(ctx, leaf, pool); err != nil {
				log.Error(err, "certificate path failed to verify")
				os.Exit(1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func newInspectCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the subject, issuer, and extensions of the leaf certificate.",
		RunE: func(cmd *cobra.Command, args []string) error {
			certs, err := loadCertificates(opts.LeafPath)
			if err != nil {
				return err
			}
			for _, c := range certs {
				fmt.Fprintf(cmd.OutOrStdout(), "subject: %v\n", cert.Subject(c))
				fmt.Fprintf(cmd.OutOrStdout(), "issuer:  %v\n", cert.Issuer(c))
				for _, e := range cert.Extensions(c) {
					fmt.Fprintf(cmd.OutOrStdout(), "  extension %s (critical=%v)\n", e.OID, e.Critical)
				}
			}
			return nil
		},
	}
}

// setup loads the leaf, pool, and anchor certificates named by opts and
// constructs a ready-to-use verify.Context. The caller owns the
// returned leaf/pool and must release them (the pool's Close does
// this for the pooled certificates; the leaf is owned by the caller
// since build-path and verify-path both need it directly).
func setup(opts *options.Options) (*verify.Context, *cert.Certificate, certstore.CertStore, error) {
	leafCerts, err := loadCertificates(opts.LeafPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(leafCerts) == 0 {
		return nil, nil, nil, fmt.Errorf("no certificate found in %s", opts.LeafPath)
	}
	leaf := leafCerts[0]

	pool := certstore.NewMemoryStore()
	for _, p := range opts.PoolPaths {
		certs, err := loadCertificates(p)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, c := range certs {
			pool.Add(c)
		}
	}

	anchors := certstore.NewMemoryStore()
	for _, a := range opts.AnchorPaths {
		certs, err := loadCertificates(a)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, c := range certs {
			anchors.Add(c)
		}
	}

	ctx := verify.New()
	ctx.AttachAnchors(anchors)
	ctx.SetMaxDepth(opts.MaxDepth)
	ctx.SetLogger(opts.Logr)

	if opts.Time != "" {
		t, err := time.Parse(time.RFC3339, opts.Time)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing --time: %w", err)
		}
		ctx.SetTime(t)
	}

	return ctx, leaf, pool, nil
}
