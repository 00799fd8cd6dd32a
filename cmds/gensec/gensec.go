// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// gensec builds one FFS section from a list of input files, with the
// command line of the EDK2 GenSec tool.
//
// Synopsis:
//
//	gensec -o OUTPUT [-s SECTIONTYPE] [options] [INPUT...]
//
// Examples:
//
//	gensec -s EFI_SECTION_PE32 -o driver.pe32 driver.efi
//	gensec -s EFI_SECTION_USER_INTERFACE -n Shell -o shell.ui
//	gensec -s EFI_SECTION_COMPRESSION -c PI_STD -o body.sec driver.pe32 shell.ui
//	gensec -s EFI_SECTION_GUID_DEFINED -o body.sec --sectionalign 4K driver.pe32
//
// The EFI standard compressor (PI_STD) and GUID tools are external
// programs. They are configured with --tiano and --guidtools, or the
// FVTOOLS_TIANO, FVTOOLS_GUIDTOOLS and FVTOOLS_TOOL_TIMEOUT environment
// variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/gensec"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/guided"
	"github.com/linuxboot/fvtools/pkg/log"
)

type options struct {
	output       string
	sectionType  string
	compress     string
	vendor       string
	headerLength uint64
	attributes   []string
	name         string
	buildNumber  uint16
	sectionAlign []string
	dummy        string
	verbose      bool
	quiet        bool
	debug        int
	encodeGuided bool
}

func newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("gensec", flag.ContinueOnError)
	fs.StringVarP(&opts.output, "outputfile", "o", "", "file to write the section to")
	fs.StringVarP(&opts.sectionType, "sectiontype", "s", "EFI_SECTION_ALL", "section type, e.g. EFI_SECTION_PE32")
	fs.StringVarP(&opts.compress, "compress", "c", "PI_STD", "compression of EFI_SECTION_COMPRESSION [PI_NONE, PI_STD]")
	fs.StringVarP(&opts.vendor, "vendor", "g", "", "GUID of EFI_SECTION_GUID_DEFINED or EFI_SECTION_FREEFORM_SUBTYPE_GUID")
	fs.Uint64VarP(&opts.headerLength, "HeaderLength", "l", 0, "length of the GUID specific header in the section data")
	fs.StringArrayVarP(&opts.attributes, "attributes", "r", nil, "GUID-defined section attribute [NONE, PROCESSING_REQUIRED, AUTH_STATUS_VALID]")
	fs.StringVarP(&opts.name, "name", "n", "", "name of EFI_SECTION_USER_INTERFACE, version of EFI_SECTION_VERSION")
	fs.Uint16VarP(&opts.buildNumber, "buildnumber", "j", 0, "build number of EFI_SECTION_VERSION")
	fs.StringArrayVar(&opts.sectionAlign, "sectionalign", nil, "alignment of the i-th input [0, 1, 2, 4, ... 1K, ... 16M]")
	fs.StringVar(&opts.dummy, "dummy", "", "file compared with the GUID-defined section data")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "print informational messages")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "print errors only")
	fs.IntVarP(&opts.debug, "debug", "d", 0, "debug level [0-9]")
	fs.BoolVar(&opts.encodeGuided, "encode-guided", false, "run the GUID tool over the inputs of EFI_SECTION_GUID_DEFINED")
	fs.String("guidtools", "", "GUID tool definition file")
	fs.Duration("tool-timeout", compression.DefaultToolTimeout, "timeout of external tools")
	fs.String("tiano", "TianoCompress", "EFI standard compression tool")
	return fs
}

// config merges flags with FVTOOLS_* environment variables.
func config(fs *flag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("FVTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"guidtools", "tool-timeout", "tiano"} {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			panic(err)
		}
	}
	return v
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string) error {
	log.SetComponent("gensec")

	var opts options
	fs := newFlagSet(&opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	log.SetVerbosity(opts.quiet, opts.verbose, opts.debug)
	if opts.debug < 0 || opts.debug > 9 {
		return fmt.Errorf("debug level %d is not in [0, 9]", opts.debug)
	}
	if opts.output == "" {
		return errors.New("no output file, use -o")
	}

	v := config(fs)
	timeout := v.GetDuration("tool-timeout")

	req, err := request(&opts, fs.Args())
	if err != nil {
		return err
	}

	registry := guided.NewRegistry(compression.DefaultTools)
	if path := v.GetString("guidtools"); path != "" {
		if err := registry.LoadToolDefinitionsFile(path, timeout); err != nil {
			return err
		}
	}
	b := &gensec.Builder{
		Codec:  &compression.SystemTiano{Path: v.GetString("tiano"), Timeout: timeout},
		Lookup: registry,
	}

	section, err := b.Build(ctx, *req)
	if err != nil {
		return fmt.Errorf("building %v: %w", req.Type, err)
	}
	if err := os.WriteFile(opts.output, section, 0o644); err != nil {
		return err
	}
	log.Infof("wrote %v section of 0x%x bytes to %s", req.Type, len(section), opts.output)
	return nil
}

// request turns the command line into a build request.
func request(opts *options, inputs []string) (*gensec.Request, error) {
	typ, ok := ffs.NamesToSectionType[strings.ToUpper(opts.sectionType)]
	if !ok {
		return nil, fmt.Errorf("unknown section type %q", opts.sectionType)
	}
	req := &gensec.Request{
		Type:             typ,
		Name:             opts.name,
		BuildNumber:      opts.buildNumber,
		GUIDHeaderLength: opts.headerLength,
		EncodeWithTool:   opts.encodeGuided,
	}

	var err error
	if req.Compression, err = compression.ParseType(strings.ToUpper(opts.compress)); err != nil {
		return nil, err
	}
	if opts.vendor != "" {
		g, err := guid.Parse(opts.vendor)
		if err != nil {
			return nil, err
		}
		req.GUID = *g
	}
	if len(opts.attributes) > 0 {
		var attrs guided.Attributes
		for _, name := range opts.attributes {
			a, err := guided.ParseAttribute(name)
			if err != nil {
				return nil, err
			}
			attrs |= a
		}
		req.GUIDAttributes = &attrs
	}
	if opts.dummy != "" {
		if req.DummyData, err = os.ReadFile(opts.dummy); err != nil {
			return nil, err
		}
	}

	if len(opts.sectionAlign) > len(inputs) {
		return nil, fmt.Errorf("%d section alignments for %d input files", len(opts.sectionAlign), len(inputs))
	}
	for i, path := range inputs {
		in := gensec.Input{}
		if in.Data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
		if i < len(opts.sectionAlign) {
			if in.Align, err = gensec.ParseAlignment(opts.sectionAlign[i]); err != nil {
				return nil, err
			}
		}
		req.Inputs = append(req.Inputs, in)
	}
	return req, nil
}

