// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guided builds and unwraps GUID-defined sections.
package guided

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

// Attributes of a GUID-defined section.
type Attributes uint16

// GUID-defined section attributes.
const (
	ProcessingRequired Attributes = 0x01
	AuthStatusValid    Attributes = 0x02
)

var attributeNames = map[string]Attributes{
	"NONE":                0,
	"PROCESSING_REQUIRED": ProcessingRequired,
	"AUTH_STATUS_VALID":   AuthStatusValid,
}

// ParseAttribute returns the attribute bit for one of NONE,
// PROCESSING_REQUIRED or AUTH_STATUS_VALID.
func ParseAttribute(name string) (Attributes, error) {
	a, ok := attributeNames[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("unknown GUID-defined section attribute %q: %w", name, ffs.ErrInvalidParameter)
	}
	return a, nil
}

func (a Attributes) String() string {
	var names []string
	if a&ProcessingRequired != 0 {
		names = append(names, "PROCESSING_REQUIRED")
	}
	if a&AuthStatusValid != 0 {
		names = append(names, "AUTH_STATUS_VALID")
	}
	if rest := a &^ (ProcessingRequired | AuthStatusValid); rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint16(rest)))
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// CRC32GUID identifies the GUID-defined section whose payload is protected
// by a CRC32 stored right after the header.
var CRC32GUID = *guid.MustParse("FC1BCDB0-7D31-49AA-936A-A4600D9DD083")

// guidFieldsSize covers GUID, data offset and attributes following the
// common header.
const (
	guidFieldsSize = guid.Size + 4
	crc32Size      = 4
)

// Section is the decoded header of an EFI_SECTION_GUID_DEFINED.
type Section struct {
	Header     ffs.SectionHeader
	GUID       guid.GUID
	DataOffset uint16
	Attributes Attributes
}

// ParseSection decodes and bounds checks the header of a GUID-defined
// section.
func ParseSection(section []byte) (*Section, error) {
	h, err := ffs.ParseSectionHeader(section)
	if err != nil {
		return nil, err
	}
	if h.Type != ffs.SectionTypeGUIDDefined {
		return nil, fmt.Errorf("section type %v is not GUID-defined: %w", h.Type, ffs.ErrInvalidParameter)
	}
	fieldsEnd := h.HeaderSize() + guidFieldsSize
	if h.Size < fieldsEnd || h.Size > uint64(len(section)) {
		return nil, fmt.Errorf("GUID-defined section size 0x%x in buffer of 0x%x: %w",
			h.Size, len(section), ffs.ErrVolumeCorrupted)
	}
	fields := section[h.HeaderSize():]
	s := &Section{
		Header:     h,
		DataOffset: binary.LittleEndian.Uint16(fields[guid.Size:]),
		Attributes: Attributes(binary.LittleEndian.Uint16(fields[guid.Size+2:])),
	}
	copy(s.GUID[:], fields)
	if uint64(s.DataOffset) < fieldsEnd || uint64(s.DataOffset) > h.Size {
		return nil, fmt.Errorf("GUID-defined section data offset 0x%x outside [0x%x, 0x%x]: %w",
			s.DataOffset, fieldsEnd, h.Size, ffs.ErrVolumeCorrupted)
	}
	return s, nil
}

// Data returns the bytes from the data offset to the end of section.
func (s *Section) Data(section []byte) []byte {
	return section[s.DataOffset:s.Header.Size]
}

// BuildSection wraps data in a GUID-defined section. The first
// headerLength bytes of data are a GUID specific header, the data offset
// points past them.
func BuildSection(g guid.GUID, attributes Attributes, headerLength uint64, data []byte) ([]byte, error) {
	if headerLength > uint64(len(data)) {
		return nil, fmt.Errorf("GUID header length 0x%x exceeds 0x%x bytes of data: %w",
			headerLength, len(data), ffs.ErrInvalidParameter)
	}
	return build(g, attributes, headerLength, 0, data)
}

func build(g guid.GUID, attributes Attributes, headerLength uint64, reserved uint64, data []byte) ([]byte, error) {
	narrow := ffs.SectionHeaderMinLength + guidFieldsSize + reserved + uint64(len(data))
	hdrLen := ffs.SectionHeaderLen(narrow)
	dataOffset := hdrLen + guidFieldsSize + reserved + headerLength
	if dataOffset > 0xFFFF {
		return nil, fmt.Errorf("data offset 0x%x does not fit 16 bits: %w", dataOffset, ffs.ErrInvalidParameter)
	}
	total := hdrLen + guidFieldsSize + reserved + uint64(len(data))
	section := make([]byte, total)
	if _, err := ffs.WriteSectionHeader(section, ffs.SectionTypeGUIDDefined, total); err != nil {
		return nil, err
	}
	fields := section[hdrLen:]
	copy(fields, g[:])
	binary.LittleEndian.PutUint16(fields[guid.Size:], uint16(dataOffset))
	binary.LittleEndian.PutUint16(fields[guid.Size+2:], uint16(attributes))
	copy(section[hdrLen+guidFieldsSize+reserved:], data)
	return section, nil
}

// BuildCRC32 wraps payload in a CRC32 GUID-defined section.
func BuildCRC32(payload []byte) ([]byte, error) {
	section, err := build(CRC32GUID, AuthStatusValid, 0, crc32Size, payload)
	if err != nil {
		return nil, err
	}
	s, err := ParseSection(section)
	if err != nil {
		return nil, err
	}
	crcOffset := s.Header.HeaderSize() + guidFieldsSize
	binary.LittleEndian.PutUint32(section[crcOffset:], crc32.ChecksumIEEE(payload))
	return section, nil
}

// VerifyCRC32 checks the CRC32 of a CRC32 GUID-defined section and returns
// its payload. A mismatch is reported as ffs.ErrAborted.
func VerifyCRC32(section []byte) ([]byte, error) {
	s, err := ParseSection(section)
	if err != nil {
		return nil, err
	}
	if s.GUID != CRC32GUID {
		return nil, fmt.Errorf("section GUID %v is not CRC32: %w", s.GUID, ffs.ErrInvalidParameter)
	}
	crcOffset := s.Header.HeaderSize() + guidFieldsSize
	if uint64(s.DataOffset) < crcOffset+crc32Size {
		return nil, fmt.Errorf("CRC32 section data offset 0x%x leaves no room for the CRC: %w",
			s.DataOffset, ffs.ErrVolumeCorrupted)
	}
	payload := s.Data(section)
	want := binary.LittleEndian.Uint32(section[crcOffset:])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, fmt.Errorf("CRC32 is 0x%08x, section says 0x%08x: %w", got, want, ffs.ErrAborted)
	}
	return payload, nil
}
