// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/log"
)

// Type is the compression type byte of a compression section.
type Type uint8

// Compression types.
const (
	NotCompressed Type = 0x00
	Standard      Type = 0x01
)

func (t Type) String() string {
	switch t {
	case NotCompressed:
		return "PI_NONE"
	case Standard:
		return "PI_STD"
	}
	return fmt.Sprintf("UNKNOWN (%#x)", uint8(t))
}

// ParseType accepts the names printed by Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "PI_NONE":
		return NotCompressed, nil
	case "PI_STD":
		return Standard, nil
	}
	return 0, fmt.Errorf("unknown compression type %q: %w", s, ffs.ErrInvalidParameter)
}

// compressionFieldsSize is the length of the fields that follow the common
// header: uncompressed length and compression type.
const compressionFieldsSize = 5

// Section is the decoded header of an EFI_SECTION_COMPRESSION.
type Section struct {
	Header             ffs.SectionHeader
	UncompressedLength uint32
	Type               Type
}

// DataOffset is where the compressed stream starts.
func (s *Section) DataOffset() uint64 {
	return s.Header.HeaderSize() + compressionFieldsSize
}

// ParseSection decodes the header of a compression section.
func ParseSection(section []byte) (*Section, error) {
	h, err := ffs.ParseSectionHeader(section)
	if err != nil {
		return nil, err
	}
	if h.Type != ffs.SectionTypeCompression {
		return nil, fmt.Errorf("section type %v is not a compression section: %w", h.Type, ffs.ErrInvalidParameter)
	}
	s := &Section{Header: h}
	if h.Size < s.DataOffset() || h.Size > uint64(len(section)) {
		return nil, fmt.Errorf("compression section size 0x%x in buffer of 0x%x: %w",
			h.Size, len(section), ffs.ErrVolumeCorrupted)
	}
	fields := section[h.HeaderSize():]
	s.UncompressedLength = binary.LittleEndian.Uint32(fields)
	s.Type = Type(fields[4])
	return s, nil
}

// BuildCompressionSection returns a compression section holding data
// compressed with method. The codec is only needed for Standard.
func BuildCompressionSection(ctx context.Context, data []byte, method Type, codec Codec) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("0x%x bytes don't fit a compression section: %w", len(data), ffs.ErrInvalidParameter)
	}

	var payload []byte
	switch method {
	case NotCompressed:
		payload = data
	case Standard:
		if codec == nil {
			return nil, fmt.Errorf("no codec for %v: %w", method, ffs.ErrInvalidParameter)
		}
		var err error
		if payload, err = compressWithRetry(ctx, codec, data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("compression type %v: %w", method, ffs.ErrInvalidParameter)
	}

	narrow := uint64(ffs.SectionHeaderMinLength + compressionFieldsSize + len(payload))
	hdrLen := ffs.SectionHeaderLen(narrow)
	total := hdrLen + compressionFieldsSize + uint64(len(payload))
	section := make([]byte, total)
	if _, err := ffs.WriteSectionHeader(section, ffs.SectionTypeCompression, total); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(section[hdrLen:], uint32(len(data)))
	section[hdrLen+4] = uint8(method)
	copy(section[hdrLen+compressionFieldsSize:], payload)
	return section, nil
}

// compressWithRetry makes a first attempt with a buffer as large as the
// input and retries once with the size the codec asks for.
func compressWithRetry(ctx context.Context, codec Codec, data []byte) ([]byte, error) {
	dst := make([]byte, len(data))
	n, err := codec.Compress(ctx, data, dst)
	var tooSmall *ffs.BufferTooSmallError
	if errors.As(err, &tooSmall) {
		log.Debugf("compression needs 0x%x bytes, retrying", tooSmall.Required)
		dst = make([]byte, tooSmall.Required)
		n, err = codec.Compress(ctx, data, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("compressing 0x%x bytes: %w", len(data), err)
	}
	return dst[:n], nil
}

// UnwrapCompressionSection returns the decompressed content of a
// compression section.
func UnwrapCompressionSection(ctx context.Context, section []byte, codec Codec) ([]byte, error) {
	s, err := ParseSection(section)
	if err != nil {
		return nil, err
	}
	payload := section[s.DataOffset():s.Header.Size]

	switch s.Type {
	case NotCompressed:
		if uint64(len(payload)) != uint64(s.UncompressedLength) {
			return nil, fmt.Errorf("uncompressed payload of 0x%x bytes, header says 0x%x: %w",
				len(payload), s.UncompressedLength, ffs.ErrVolumeCorrupted)
		}
		return payload, nil
	case Standard:
		if codec == nil {
			return nil, fmt.Errorf("no codec for %v: %w", s.Type, ffs.ErrInvalidParameter)
		}
		dstSize, scratchSize, err := codec.GetInfo(payload)
		if err != nil {
			return nil, fmt.Errorf("reading compressed stream info: %w", err)
		}
		if dstSize != s.UncompressedLength {
			return nil, fmt.Errorf("stream decompresses to 0x%x bytes, header says 0x%x: %w",
				dstSize, s.UncompressedLength, ffs.ErrVolumeCorrupted)
		}
		dst := make([]byte, dstSize)
		scratch := make([]byte, scratchSize)
		if err := codec.Decompress(ctx, payload, dst, scratch); err != nil {
			return nil, fmt.Errorf("decompressing: %w", err)
		}
		return dst, nil
	}
	return nil, fmt.Errorf("compression type %v: %w", s.Type, ffs.ErrInvalidParameter)
}
