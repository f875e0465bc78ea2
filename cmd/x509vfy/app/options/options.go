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

package options

import (
	"flag"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/klogr"
)

// Options are the flags shared by every x509vfy subcommand: a leaf
// certificate, the pool and trust-anchor bundles to search, an optional
// pinned verification time, and the logging verbosity.
type Options struct {
	// logLevel is the verbosity level the driver will write logs at.
	logLevel string

	// LeafPath is the PEM file holding the end-entity certificate to
	// build or verify a path for.
	LeafPath string

	// PoolPaths are PEM bundles searched for intermediate certificates.
	PoolPaths []string

	// AnchorPaths are PEM bundles of trusted root certificates.
	AnchorPaths []string

	// Time, if set, pins the verification clock instead of the wall
	// clock (RFC3339), the CLI surface for VerifyContext.SetTime.
	Time string

	// MaxDepth overrides the default path-length bound.
	MaxDepth int

	// Logr is the shared base logger.
	Logr logr.Logger
}

func New() *Options {
	return &Options{MaxDepth: 30}
}

func (o *Options) Prepare(cmd *cobra.Command) *Options {
	o.addFlags(cmd)
	return o
}

func (o *Options) Complete() error {
	klog.InitFlags(nil)
	log := klogr.New()
	if err := flag.Set("v", o.logLevel); err != nil {
		return fmt.Errorf("failed to set log level: %s", err)
	}
	o.Logr = log
	return nil
}

func (o *Options) addFlags(cmd *cobra.Command) {
	var nfs cliflag.NamedFlagSets

	o.addAppFlags(nfs.FlagSet("App"))

	usageFmt := "Usage:\n  %s\n"
	cmd.SetUsageFunc(func(cmd *cobra.Command) error {
		fmt.Fprintf(cmd.OutOrStderr(), usageFmt, cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStderr(), nfs, 0)
		return nil
	})

	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n"+usageFmt, cmd.Long, cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStdout(), nfs, 0)
	})

	fs := cmd.Flags()
	for _, f := range nfs.FlagSets {
		fs.AddFlagSet(f)
	}
}

func (o *Options) addAppFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.logLevel, "log-level", "v", "1",
		"Log level (1-5).")

	fs.StringVar(&o.LeafPath, "leaf", "",
		"PEM file holding the end-entity certificate.")

	fs.StringArrayVar(&o.PoolPaths, "pool", nil,
		"PEM bundle to search for intermediate certificates. May be repeated.")

	fs.StringArrayVar(&o.AnchorPaths, "anchor", nil,
		"PEM bundle of trusted root certificates. May be repeated.")

	fs.StringVar(&o.Time, "time", "",
		"RFC3339 timestamp to pin the verification clock to, instead of the wall clock.")

	fs.IntVar(&o.MaxDepth, "max-depth", 30,
		"Maximum certificate path length.")
}
