// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"encoding/binary"
	"fmt"

	"github.com/linuxboot/fvtools/pkg/bytes"
)

// SectionType holds a section type value
type SectionType uint8

// UEFI Section types
const (
	SectionTypeAll                 SectionType = 0x00
	SectionTypeCompression         SectionType = 0x01
	SectionTypeGUIDDefined         SectionType = 0x02
	SectionTypeDisposable          SectionType = 0x03
	SectionTypePE32                SectionType = 0x10
	SectionTypePIC                 SectionType = 0x11
	SectionTypeTE                  SectionType = 0x12
	SectionTypeDXEDepEx            SectionType = 0x13
	SectionTypeVersion             SectionType = 0x14
	SectionTypeUserInterface       SectionType = 0x15
	SectionTypeCompatibility16     SectionType = 0x16
	SectionTypeFirmwareVolumeImage SectionType = 0x17
	SectionTypeFreeformSubtypeGUID SectionType = 0x18
	SectionTypeRaw                 SectionType = 0x19
	SectionTypePEIDepEx            SectionType = 0x1b
	SectionMMDepEx                 SectionType = 0x1c
)

var sectionNames = map[SectionType]string{
	SectionTypeAll:                 "EFI_SECTION_ALL",
	SectionTypeCompression:         "EFI_SECTION_COMPRESSION",
	SectionTypeGUIDDefined:         "EFI_SECTION_GUID_DEFINED",
	SectionTypeDisposable:          "EFI_SECTION_DISPOSABLE",
	SectionTypePE32:                "EFI_SECTION_PE32",
	SectionTypePIC:                 "EFI_SECTION_PIC",
	SectionTypeTE:                  "EFI_SECTION_TE",
	SectionTypeDXEDepEx:            "EFI_SECTION_DXE_DEPEX",
	SectionTypeVersion:             "EFI_SECTION_VERSION",
	SectionTypeUserInterface:       "EFI_SECTION_USER_INTERFACE",
	SectionTypeCompatibility16:     "EFI_SECTION_COMPATIBILITY16",
	SectionTypeFirmwareVolumeImage: "EFI_SECTION_FIRMWARE_VOLUME_IMAGE",
	SectionTypeFreeformSubtypeGUID: "EFI_SECTION_FREEFORM_SUBTYPE_GUID",
	SectionTypeRaw:                 "EFI_SECTION_RAW",
	SectionTypePEIDepEx:            "EFI_SECTION_PEI_DEPEX",
	SectionMMDepEx:                 "EFI_SECTION_MM_DEPEX",
}

// NamesToSectionType maps section type names to their values.
var NamesToSectionType map[string]SectionType

func init() {
	NamesToSectionType = make(map[string]SectionType, len(sectionNames))
	for k, v := range sectionNames {
		NamesToSectionType[v] = k
	}
}

// String creates a string representation for the section type.
func (s SectionType) String() string {
	if t, ok := sectionNames[s]; ok {
		return t
	}
	return fmt.Sprintf("UNKNOWN (%#x)", uint8(s))
}

// Common section header lengths.
const (
	SectionHeaderMinLength    = 0x04
	SectionExtHeaderMinLength = 0x08
)

// HeaderVariant tells the narrow section header from the wide one that
// carries a 32-bit extended size.
type HeaderVariant uint8

// Header variants.
const (
	Narrow HeaderVariant = iota
	Wide
)

func (v HeaderVariant) String() string {
	if v == Wide {
		return "wide"
	}
	return "narrow"
}

// SectionHeader is the decoded common header of a section.
type SectionHeader struct {
	Variant HeaderVariant
	Type    SectionType
	// Size is the total size of the section, header included.
	Size uint64
}

// HeaderSize returns the length of the common header.
func (h SectionHeader) HeaderSize() uint64 {
	if h.Variant == Wide {
		return SectionExtHeaderMinLength
	}
	return SectionHeaderMinLength
}

// ParseSectionHeader decodes the common header at the start of buf. The
// header is wide iff the 3-byte size holds the sentinel.
func ParseSectionHeader(buf []byte) (SectionHeader, error) {
	size, err := EffectiveSize(buf, HeaderKindSection)
	if err != nil {
		return SectionHeader{}, err
	}
	h := SectionHeader{Type: SectionType(buf[3]), Size: size}
	if Read3Size(read3(buf)) == SizeSentinel {
		h.Variant = Wide
	}
	return h, nil
}

// SectionHeaderLen returns the common header length of a section whose
// total size would be narrowTotal with a narrow header.
func SectionHeaderLen(narrowTotal uint64) uint64 {
	if narrowTotal >= SizeSentinel {
		return SectionExtHeaderMinLength
	}
	return SectionHeaderMinLength
}

// WriteSectionHeader writes a common header for a section of the given
// total size into buf and returns the header length. The wide layout is
// used when size doesn't fit the 3-byte field.
func WriteSectionHeader(buf []byte, typ SectionType, size uint64) (uint64, error) {
	if size > 0xFFFFFFFF {
		return 0, fmt.Errorf("section size 0x%x: %w", size, ErrInvalidParameter)
	}
	hdrLen := uint64(SectionHeaderMinLength)
	if size >= SizeSentinel {
		hdrLen = SectionExtHeaderMinLength
	}
	if uint64(len(buf)) < hdrLen || size < hdrLen {
		return 0, &BufferTooSmallError{Required: hdrLen}
	}
	sz := Write3Size(size)
	copy(buf, sz[:])
	buf[3] = uint8(typ)
	if hdrLen == SectionExtHeaderMinLength {
		binary.LittleEndian.PutUint32(buf[4:], uint32(size))
	}
	return hdrLen, nil
}

// NewSection returns a leaf section of type typ holding data.
func NewSection(typ SectionType, data []byte) ([]byte, error) {
	hdrLen := SectionHeaderLen(SectionHeaderMinLength + uint64(len(data)))
	section := make([]byte, hdrLen+uint64(len(data)))
	if _, err := WriteSectionHeader(section, typ, uint64(len(section))); err != nil {
		return nil, err
	}
	copy(section[hdrLen:], data)
	return section, nil
}

// SectionData returns the bytes following the common header of section.
func SectionData(section []byte) ([]byte, error) {
	h, err := ParseSectionHeader(section)
	if err != nil {
		return nil, err
	}
	if h.Size < h.HeaderSize() || h.Size > uint64(len(section)) {
		return nil, fmt.Errorf("section size 0x%x in buffer of 0x%x: %w", h.Size, len(section), ErrVolumeCorrupted)
	}
	return section[h.HeaderSize():h.Size], nil
}

// NextSection returns the section found at the 4-byte aligned cursor and
// moves the cursor past it. ErrNotFound is returned when the header or the
// section would overrun region, or when the recorded size can't even hold
// a header.
func NextSection(region []byte, cursor *uint64) (bytes.Range, error) {
	off := Align4(*cursor)
	regionLen := uint64(len(region))
	if off+SectionHeaderMinLength > regionLen {
		return bytes.Range{}, ErrNotFound
	}
	h, err := ParseSectionHeader(region[off:])
	if err != nil {
		return bytes.Range{}, fmt.Errorf("%v: %w", err, ErrNotFound)
	}
	if h.Size < h.HeaderSize() {
		return bytes.Range{}, ErrNotFound
	}
	r, err := bytes.NewRange(regionLen, off, h.Size)
	if err != nil {
		return bytes.Range{}, ErrNotFound
	}
	*cursor = r.End()
	return r, nil
}

// FindSectionByType returns the first section of type typ in region.
func FindSectionByType(region []byte, typ SectionType) (bytes.Range, error) {
	var cursor uint64
	for {
		r, err := NextSection(region, &cursor)
		if err != nil {
			return bytes.Range{}, fmt.Errorf("section %v: %w", typ, err)
		}
		if SectionType(region[r.Offset+3]) == typ {
			return r, nil
		}
	}
}

// CountSections returns the number of well-formed sections in region.
func CountSections(region []byte) int {
	var cursor uint64
	count := 0
	for {
		if _, err := NextSection(region, &cursor); err != nil {
			return count
		}
		count++
	}
}

// IsPadding reports whether buf starts with a 4-byte erased run. Such runs
// show up between sections of erased images and are skipped 4 bytes at a
// time.
func IsPadding(buf []byte, polarity uint8) bool {
	if len(buf) < SectionHeaderMinLength {
		return false
	}
	return bytes.IsErased(buf[:SectionHeaderMinLength], polarity)
}
