// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guided

import (
	"context"
	"fmt"
	"time"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

// Decoder undoes the processing a GUID-defined section requires.
type Decoder interface {
	Decode(ctx context.Context, data []byte) ([]byte, error)
}

// Encoder applies the processing of a GUID-defined section.
type Encoder interface {
	Encode(ctx context.Context, data []byte) ([]byte, error)
}

// Lookup finds the decoder registered for a section GUID.
type Lookup interface {
	DecoderFor(g guid.GUID) (Decoder, error)
}

// EncoderLookup finds the encoder registered for a section GUID.
type EncoderLookup interface {
	EncoderFor(g guid.GUID) (Encoder, error)
}

// Tool runs an EDK2-style external tool, `Path -d -o <out> <in>` to
// decode and `Path -e -o <out> <in>` to encode.
type Tool struct {
	Path    string
	Timeout time.Duration
}

// Decode implements Decoder.
func (t *Tool) Decode(ctx context.Context, data []byte) ([]byte, error) {
	return compression.RunFileTool(ctx, t.Path, t.Timeout, compression.ToolDecode, data)
}

// Encode implements Encoder.
func (t *Tool) Encode(ctx context.Context, data []byte) ([]byte, error) {
	return compression.RunFileTool(ctx, t.Path, t.Timeout, compression.ToolEncode, data)
}

// compressorCodec adapts an in-process compressor.
type compressorCodec struct {
	compression.Compressor
}

func (c compressorCodec) Decode(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Compressor.Decode(data)
}

func (c compressorCodec) Encode(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Compressor.Encode(data)
}

// Extract returns the content of a GUID-defined section. CRC32 sections
// are verified, sections without PROCESSING_REQUIRED are returned as they
// are. Anything else is handed to the decoder lookup finds.
func Extract(ctx context.Context, section []byte, lookup Lookup) ([]byte, error) {
	s, err := ParseSection(section)
	if err != nil {
		return nil, err
	}
	if s.GUID == CRC32GUID {
		return VerifyCRC32(section)
	}
	if s.Attributes&ProcessingRequired == 0 {
		return s.Data(section), nil
	}
	if lookup == nil {
		return nil, fmt.Errorf("no decoder for GUID %v: %w", s.GUID, ffs.ErrNotFound)
	}
	dec, err := lookup.DecoderFor(s.GUID)
	if err != nil {
		return nil, err
	}
	out, err := dec.Decode(ctx, s.Data(section))
	if err != nil {
		return nil, fmt.Errorf("extracting GUID %v section: %w", s.GUID, err)
	}
	return out, nil
}
