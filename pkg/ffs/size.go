// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"encoding/binary"
	"fmt"
)

// SizeSentinel in a 3-byte size field means the real size is stored in an
// extended field.
const SizeSentinel = 0xFFFFFF

// HeaderKind selects which header layout EffectiveSize decodes.
type HeaderKind int

// Supported header kinds.
const (
	HeaderKindSection HeaderKind = iota
	HeaderKindFile
)

// Read3Size reads a 3-byte size and returns it as a uint64
func Read3Size(size [3]uint8) uint64 {
	return uint64(size[2])<<16 |
		uint64(size[1])<<8 | uint64(size[0])
}

// Write3Size writes a size into a 3-byte array. Sizes that don't fit
// are written as the sentinel.
func Write3Size(size uint64) [3]uint8 {
	if size >= SizeSentinel {
		return [3]uint8{0xFF, 0xFF, 0xFF}
	}
	return [3]uint8{uint8(size), uint8(size >> 8), uint8(size >> 16)}
}

func read3(buf []byte) [3]uint8 {
	return [3]uint8{buf[0], buf[1], buf[2]}
}

// Align aligns an address
func Align(val uint64, base uint64) uint64 {
	return (val + base - 1) & ^(base - 1)
}

// Align4 aligns an address to 4 bytes
func Align4(val uint64) uint64 {
	return Align(val, 4)
}

// Align8 aligns an address to 8 bytes
func Align8(val uint64) uint64 {
	return Align(val, 8)
}

// EffectiveSize returns the total size recorded in a file or section
// header, following the extended size field when the narrow one can't
// hold it.
func EffectiveSize(header []byte, kind HeaderKind) (uint64, error) {
	switch kind {
	case HeaderKindSection:
		if len(header) < SectionHeaderMinLength {
			return 0, fmt.Errorf("section header of %d bytes: %w", len(header), ErrVolumeCorrupted)
		}
		size := Read3Size(read3(header))
		if size != SizeSentinel {
			return size, nil
		}
		if len(header) < SectionExtHeaderMinLength {
			return 0, fmt.Errorf("extended section header of %d bytes: %w", len(header), ErrVolumeCorrupted)
		}
		return uint64(binary.LittleEndian.Uint32(header[4:8])), nil
	case HeaderKindFile:
		if len(header) < FileHeaderMinLength {
			return 0, fmt.Errorf("file header of %d bytes: %w", len(header), ErrVolumeCorrupted)
		}
		if header[fileAttributesOffset]&FileAttribLargeFile == 0 {
			return Read3Size(read3(header[fileSizeOffset:])), nil
		}
		if len(header) < FileHeaderExtMinLength {
			return 0, fmt.Errorf("extended file header of %d bytes: %w", len(header), ErrVolumeCorrupted)
		}
		return binary.LittleEndian.Uint64(header[fileExtendedSizeOffset:]), nil
	}
	return 0, fmt.Errorf("header kind %d: %w", kind, ErrInvalidParameter)
}
