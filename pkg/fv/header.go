// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fv reads, builds and modifies firmware volumes held in a flat
// byte buffer owned by the caller.
//
// Nothing is cached between calls: every operation re-reads the header,
// including the erase polarity, from the buffer it is given.
package fv

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

// FirmwareVolume constants
const (
	FixedHeaderSize  = 56
	MinSize          = FixedHeaderSize + blockEntrySize // +8 for the null block that terminates the block list
	ExtHeaderMinSize = 20

	// MaxSize is the first volume size considered corrupted.
	MaxSize = 0x40000000

	// AttribErasePolarity is set when erased flash reads as 0xFF.
	AttribErasePolarity = 0x800

	blockEntrySize       = 8
	lengthOffset         = 32
	attributesOffset     = 44
	headerLenOffset      = 48
	checksumOffset       = 50
	extHeaderOffsetField = 52
)

// Signature is the magic at offset 40 of every volume.
var Signature = binary.LittleEndian.Uint32([]byte("_FVH"))

// Valid FV GUIDs
var (
	FFS1 = guid.MustParse("7a9354d9-0468-444a-81ce-0bf617d890df")
	FFS2 = guid.MustParse("8c8ce578-8a3d-4f1c-9935-896185c32dd3")
	FFS3 = guid.MustParse("5473c07a-3dcb-4dca-bd6f-1e9689e7349a")
)

// FVGUIDs holds common FV type names
var FVGUIDs = map[guid.GUID]string{
	*FFS1: "FFS1",
	*FFS2: "FFS2",
	*FFS3: "FFS3",
}

// Block describes number and size of the firmware volume blocks
type Block struct {
	Count uint32
	Size  uint32
}

// FixedHeader contains the fixed fields of a firmware volume header
type FixedHeader struct {
	_               [16]uint8
	FileSystemGUID  guid.GUID
	Length          uint64
	Signature       uint32
	Attributes      uint32
	HeaderLen       uint16
	Checksum        uint16
	ExtHeaderOffset uint16
	Reserved        uint8 `json:"-"`
	Revision        uint8
}

// ExtHeader contains the fields of an extended firmware volume header
type ExtHeader struct {
	FVName        guid.GUID
	ExtHeaderSize uint32
}

// Header is a decoded volume header with its block map.
type Header struct {
	FixedHeader
	// Blocks excludes the terminating entry.
	Blocks []Block
	// Ext is nil when the volume has no extended header.
	Ext *ExtHeader
}

// ErasePolarity returns the byte erased flash reads as.
func (h *Header) ErasePolarity() uint8 {
	if h.Attributes&AttribErasePolarity != 0 {
		return 0xFF
	}
	return 0
}

// Size returns the volume size described by the block map.
func (h *Header) Size() uint64 {
	var size uint64
	for _, b := range h.Blocks {
		size += uint64(b.Count) * uint64(b.Size)
	}
	return size
}

// ParseHeader decodes the header at the start of fv.
func ParseHeader(fv []byte) (*Header, error) {
	if len(fv) < MinSize {
		return nil, fmt.Errorf("volume of 0x%x bytes is smaller than a header: %w", len(fv), ffs.ErrVolumeCorrupted)
	}
	h := &Header{}
	if err := binary.Read(bytes.NewReader(fv[:FixedHeaderSize]), binary.LittleEndian, &h.FixedHeader); err != nil {
		return nil, err
	}
	if h.Signature != Signature {
		return nil, fmt.Errorf("bad volume signature %#08x: %w", h.Signature, ffs.ErrVolumeCorrupted)
	}
	blocks, _, err := blockMap(fv)
	if err != nil {
		return nil, err
	}
	h.Blocks = blocks

	if off := uint64(h.ExtHeaderOffset); off != 0 {
		if off+ExtHeaderMinSize > uint64(len(fv)) {
			return nil, fmt.Errorf("extended header at 0x%x outside volume: %w", off, ffs.ErrVolumeCorrupted)
		}
		h.Ext = &ExtHeader{}
		if err := binary.Read(bytes.NewReader(fv[off:off+ExtHeaderMinSize]), binary.LittleEndian, h.Ext); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// blockMap returns the block map entries and the offset of the
// terminating entry. The map must end within the header and the buffer.
func blockMap(fv []byte) ([]Block, uint64, error) {
	if len(fv) < MinSize {
		return nil, 0, fmt.Errorf("volume of 0x%x bytes is smaller than a header: %w", len(fv), ffs.ErrVolumeCorrupted)
	}
	limit := uint64(binary.LittleEndian.Uint16(fv[headerLenOffset:]))
	if limit > uint64(len(fv)) {
		limit = uint64(len(fv))
	}
	var blocks []Block
	for off := uint64(FixedHeaderSize); off+blockEntrySize <= limit; off += blockEntrySize {
		b := Block{
			Count: binary.LittleEndian.Uint32(fv[off:]),
			Size:  binary.LittleEndian.Uint32(fv[off+4:]),
		}
		if b.Count == 0 && b.Size == 0 {
			return blocks, off, nil
		}
		blocks = append(blocks, b)
	}
	return nil, 0, fmt.Errorf("block map not terminated within 0x%x bytes: %w", limit, ffs.ErrVolumeCorrupted)
}

// Size returns the volume size as the sum of its block map.
func Size(fv []byte) (uint64, error) {
	blocks, _, err := blockMap(fv)
	if err != nil {
		return 0, err
	}
	var size uint64
	for _, b := range blocks {
		size += uint64(b.Count) * uint64(b.Size)
		if size >= MaxSize {
			return 0, fmt.Errorf("block map adds up to 0x%x or more: %w", uint64(MaxSize), ffs.ErrVolumeCorrupted)
		}
	}
	if size == 0 {
		return 0, fmt.Errorf("block map adds up to zero: %w", ffs.ErrVolumeCorrupted)
	}
	return size, nil
}

// ErasePolarity returns 0xFF or 0 according to the volume attributes.
func ErasePolarity(fv []byte) (uint8, error) {
	if len(fv) < FixedHeaderSize {
		return 0, fmt.Errorf("volume of 0x%x bytes is smaller than a header: %w", len(fv), ffs.ErrVolumeCorrupted)
	}
	if binary.LittleEndian.Uint32(fv[attributesOffset:])&AttribErasePolarity != 0 {
		return 0xFF, nil
	}
	return 0, nil
}

func headerLen(fv []byte) uint64 {
	return uint64(binary.LittleEndian.Uint16(fv[headerLenOffset:]))
}

// ChecksumHeader recomputes the 16-bit header checksum in place.
func ChecksumHeader(fv []byte) error {
	if len(fv) < MinSize {
		return fmt.Errorf("volume of 0x%x bytes is smaller than a header: %w", len(fv), ffs.ErrVolumeCorrupted)
	}
	hl := headerLen(fv)
	if hl < MinSize || hl > uint64(len(fv)) || hl%2 != 0 {
		return fmt.Errorf("header length 0x%x in volume of 0x%x: %w", hl, len(fv), ffs.ErrVolumeCorrupted)
	}
	sum, err := ffs.ChecksumHeader16(fv[:hl], checksumOffset)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(fv[checksumOffset:], sum)
	return nil
}

// ChecksumFile recomputes the checksums of the FFS file at the start of
// file.
func ChecksumFile(file []byte) error {
	return ffs.ChecksumFile(file)
}

// volume is what the scanning and editing operations need from a header.
type volume struct {
	size      uint64
	headerLen uint64
	polarity  uint8
}

func inspect(fv []byte) (volume, error) {
	size, err := Size(fv)
	if err != nil {
		return volume{}, err
	}
	if size > uint64(len(fv)) {
		return volume{}, fmt.Errorf("volume size 0x%x exceeds buffer of 0x%x: %w", size, len(fv), ffs.ErrVolumeCorrupted)
	}
	hl := headerLen(fv)
	if hl < MinSize || hl > size {
		return volume{}, fmt.Errorf("header length 0x%x in volume of 0x%x: %w", hl, size, ffs.ErrVolumeCorrupted)
	}
	polarity, err := ErasePolarity(fv)
	if err != nil {
		return volume{}, err
	}
	return volume{size: size, headerLen: hl, polarity: polarity}, nil
}
