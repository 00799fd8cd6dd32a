// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compression implements the compression section and the
// compressors used by GUID-defined sections.
//
// The EFI standard algorithm is not implemented here. It is reached
// through the Codec interface, usually backed by an external tool.
package compression

import (
	"strings"

	"github.com/linuxboot/fvtools/pkg/guid"
)

// Compressor defines a single compression scheme (such as LZMA).
type Compressor interface {
	// Name is typically the name of a class.
	Name() string

	// Decode and Encode obey "x == Decode(Encode(x))".
	Decode(encodedData []byte) ([]byte, error)
	Encode(decodedData []byte) ([]byte, error)
}

// Well-known GUIDs for GUIDed sections containing compressed data.
var (
	LZMAGUID    = *guid.MustParse("EE4E5898-3914-4259-9D6E-DC7BD79403CF")
	LZMAX86GUID = *guid.MustParse("D42AE6BD-1352-4BFB-909A-CA72A6EAE889")
	BROTLIGUID  = *guid.MustParse("3D532050-5CDA-4FD0-879E-0F7F630D5AFB")
)

// Tools holds the paths of optional system compressors. An empty XZPath
// selects the internal LZMA implementation.
type Tools struct {
	XZPath     string
	BrotliPath string
}

// DefaultTools uses the internal LZMA encoder and brotli from $PATH.
var DefaultTools = Tools{BrotliPath: "brotli"}

// CompressorFromGUID returns a Compressor for the corresponding GUIDed
// Section, or nil if the GUID is unknown.
func (t Tools) CompressorFromGUID(g *guid.GUID) Compressor {
	switch *g {
	case LZMAGUID:
		if t.XZPath != "" {
			return &SystemLZMA{t.XZPath}
		}
		return &LZMA{}
	case LZMAX86GUID:
		if t.XZPath != "" {
			// The x86 filter could be left to xz with -f86, it is not
			// the bottleneck.
			return &LZMAX86{&SystemLZMA{t.XZPath}}
		}
		return &LZMAX86{&LZMA{}}
	case BROTLIGUID:
		if t.BrotliPath != "" {
			return &SystemBROTLI{t.BrotliPath}
		}
	}
	return nil
}

// CompressorFromGUID is DefaultTools.CompressorFromGUID.
func CompressorFromGUID(g *guid.GUID) Compressor {
	return DefaultTools.CompressorFromGUID(g)
}

// Builtin returns the in-process compressor called name (LZMA, LZMAX86,
// LZ4 or ZLIB, case insensitive), or nil.
func Builtin(name string) Compressor {
	switch strings.ToUpper(name) {
	case "LZMA":
		return &LZMA{}
	case "LZMAX86":
		return &LZMAX86{&LZMA{}}
	case "LZ4":
		return &LZ4{}
	case "ZLIB":
		return &ZLIB{}
	}
	return nil
}
