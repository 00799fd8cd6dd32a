// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gensec composes a single section from a list of input files.
//
// Inputs are concatenated on 4-byte boundaries. An input that declares an
// alignment and holds a PE32, TE or GUID-defined section is preceded by a
// RAW section sized so that the executable payload lands on that alignment.
package gensec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/guided"
	"github.com/linuxboot/fvtools/pkg/log"
)

// Input is one input file.
type Input struct {
	Data []byte
	// Align is the alignment of the section payload, 0 for none.
	Align uint64
}

// Request describes the section to build.
type Request struct {
	// Type is the section to build. SectionTypeAll only concatenates the
	// inputs.
	Type   ffs.SectionType
	Inputs []Input

	// Compression is the method of a compression section.
	Compression compression.Type

	// GUID of a GUID-defined or freeform subtype section. The zero GUID
	// and the CRC32 GUID build a CRC32 section.
	GUID guid.GUID
	// GUIDAttributes overrides the default PROCESSING_REQUIRED attribute.
	GUIDAttributes *guided.Attributes
	// GUIDHeaderLength is the length of the GUID specific header at the
	// start of the section data.
	GUIDHeaderLength uint64
	// EncodeWithTool runs the encoder registered for GUID over the inputs.
	EncodeWithTool bool
	// DummyData, if the section data ends with it, leaves the section
	// without PROCESSING_REQUIRED and makes everything before it the GUID
	// header.
	DummyData []byte

	// Name is the user interface name, or the version string.
	Name        string
	BuildNumber uint16
}

// Builder builds sections.
type Builder struct {
	// Codec compresses Standard compression sections.
	Codec compression.Codec
	// Lookup finds encoders for EncodeWithTool.
	Lookup guided.EncoderLookup
}

// Build returns the section described by req.
func (b *Builder) Build(ctx context.Context, req Request) ([]byte, error) {
	switch req.Type {
	case ffs.SectionTypeVersion:
		if len(req.Inputs) != 0 {
			return nil, fmt.Errorf("%v takes no input files: %w", req.Type, ffs.ErrInvalidParameter)
		}
		return ffs.NewVersionSection(req.BuildNumber, req.Name)
	case ffs.SectionTypeUserInterface:
		if len(req.Inputs) != 0 {
			return nil, fmt.Errorf("%v takes no input files: %w", req.Type, ffs.ErrInvalidParameter)
		}
		if req.Name == "" {
			return nil, fmt.Errorf("%v needs a name: %w", req.Type, ffs.ErrInvalidParameter)
		}
		return ffs.NewUserInterfaceSection(req.Name)
	case ffs.SectionTypeAll:
		return Concatenate(req.Inputs)
	case ffs.SectionTypeCompression:
		data, err := Concatenate(req.Inputs)
		if err != nil {
			return nil, err
		}
		return compression.BuildCompressionSection(ctx, data, req.Compression, b.Codec)
	case ffs.SectionTypeGUIDDefined:
		data, err := Concatenate(req.Inputs)
		if err != nil {
			return nil, err
		}
		return b.guidDefined(ctx, req, data)
	case ffs.SectionTypeFreeformSubtypeGUID:
		data, err := leafInput(req)
		if err != nil {
			return nil, err
		}
		return ffs.NewSection(req.Type, append(append([]byte{}, req.GUID[:]...), data...))
	case ffs.SectionTypePE32, ffs.SectionTypePIC, ffs.SectionTypeTE,
		ffs.SectionTypeDXEDepEx, ffs.SectionTypePEIDepEx, ffs.SectionMMDepEx,
		ffs.SectionTypeCompatibility16, ffs.SectionTypeFirmwareVolumeImage, ffs.SectionTypeRaw:
		data, err := leafInput(req)
		if err != nil {
			return nil, err
		}
		return ffs.NewSection(req.Type, data)
	}
	return nil, fmt.Errorf("can't build a %v section: %w", req.Type, ffs.ErrInvalidParameter)
}

func leafInput(req Request) ([]byte, error) {
	if len(req.Inputs) != 1 {
		return nil, fmt.Errorf("%v needs exactly one input file, got %d: %w", req.Type, len(req.Inputs), ffs.ErrInvalidParameter)
	}
	return req.Inputs[0].Data, nil
}

func (b *Builder) guidDefined(ctx context.Context, req Request, data []byte) ([]byte, error) {
	if req.GUID.IsZero() || req.GUID == guided.CRC32GUID {
		log.Debugf("building a CRC32 section")
		return guided.BuildCRC32(data)
	}

	if req.EncodeWithTool {
		if b.Lookup == nil {
			return nil, fmt.Errorf("no encoder for GUID %v: %w", req.GUID, ffs.ErrNotFound)
		}
		enc, err := b.Lookup.EncoderFor(req.GUID)
		if err != nil {
			return nil, err
		}
		if data, err = enc.Encode(ctx, data); err != nil {
			return nil, fmt.Errorf("encoding for GUID %v: %w", req.GUID, err)
		}
	}

	attrs := guided.ProcessingRequired
	if req.GUIDAttributes != nil {
		attrs = *req.GUIDAttributes
	}
	headerLength := req.GUIDHeaderLength
	if len(req.DummyData) > 0 {
		if bytes.HasSuffix(data, req.DummyData) {
			headerLength = uint64(len(data) - len(req.DummyData))
			attrs &^= guided.ProcessingRequired
		} else {
			attrs |= guided.ProcessingRequired
		}
	}
	return guided.BuildSection(req.GUID, attrs, headerLength, data)
}

// teHeaderSize is sizeof(EFI_TE_IMAGE_HEADER).
const teHeaderSize = 40

// teStrippedSizeOffset is the offset of StrippedSize in the TE header.
const teStrippedSizeOffset = 6

var teSignature = []byte("VZ")

// Concatenate joins inputs, padding each to 4 bytes and inserting RAW pad
// sections in front of aligned inputs.
func Concatenate(inputs []Input) ([]byte, error) {
	var out []byte
	for i, in := range inputs {
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		if in.Align > 1 {
			pad, err := alignmentPad(uint64(len(out)), in)
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
			out = append(out, pad...)
		}
		out = append(out, in.Data...)
	}
	return out, nil
}

// alignmentPad returns the RAW section to place at offset size so that
// the payload of in starts on its alignment.
func alignmentPad(size uint64, in Input) ([]byte, error) {
	if len(in.Data) < ffs.SectionHeaderMinLength {
		return nil, nil
	}
	h, err := ffs.ParseSectionHeader(in.Data)
	if err != nil {
		return nil, nil
	}

	headerSize := int64(h.HeaderSize())
	var teOffset int64
	switch h.Type {
	case ffs.SectionTypePE32:
	case ffs.SectionTypeTE:
		te := in.Data[h.HeaderSize():]
		if len(te) >= teHeaderSize && bytes.HasPrefix(te, teSignature) {
			stripped := binary.LittleEndian.Uint16(te[teStrippedSizeOffset:])
			if stripped > teHeaderSize {
				teOffset = int64(stripped) - teHeaderSize
			}
		}
	case ffs.SectionTypeGUIDDefined:
		s, err := guided.ParseSection(in.Data)
		if err != nil {
			return nil, err
		}
		if s.Attributes&guided.ProcessingRequired == 0 {
			headerSize = int64(s.DataOffset)
		}
	default:
		log.Debugf("%v input is not padded to 0x%x", h.Type, in.Align)
		return nil, nil
	}

	align := int64(in.Align)
	base := int64(size)
	if (base+headerSize+teOffset)%align == 0 {
		return nil, nil
	}
	offset := (base+ffs.SectionHeaderMinLength+headerSize+teOffset+align-1)&^(align-1) - base - headerSize - teOffset
	log.Debugf("padding %v input at 0x%x with 0x%x bytes for alignment 0x%x", h.Type, size, offset, align)

	pad := make([]byte, offset)
	if _, err := ffs.WriteSectionHeader(pad, ffs.SectionTypeRaw, uint64(offset)); err != nil {
		return nil, err
	}
	return pad, nil
}
