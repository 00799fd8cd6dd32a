// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"bytes"
	"encoding/binary"
	"fmt"

	fvbytes "github.com/linuxboot/fvtools/pkg/bytes"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

// Defaults used by New.
const (
	DefaultBlockSize  = 4096
	DefaultAttributes = 0x0004FEFF
	DefaultRevision   = 2
)

// padFileName names the pad file that carries the extended header.
var padFileName = *guid.MustParse("FFFFFFFF-FFFF-FFFF-FFFF-FFFFFFFFFFFF")

// Options describes a volume built by New. Zero values select the
// defaults.
type Options struct {
	Size           uint64
	BlockSize      uint32
	Attributes     uint32
	FileSystemGUID *guid.GUID
	// Name, when set, is stored in an extended header.
	Name *guid.GUID
}

// New returns an empty, erased volume.
func New(opts Options) ([]byte, error) {
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Attributes == 0 {
		opts.Attributes = DefaultAttributes
	}
	if opts.FileSystemGUID == nil {
		opts.FileSystemGUID = FFS2
	}
	if opts.Size == 0 || opts.Size%uint64(opts.BlockSize) != 0 || opts.Size >= MaxSize {
		return nil, fmt.Errorf("volume size 0x%x with blocks of 0x%x: %w", opts.Size, opts.BlockSize, ffs.ErrInvalidParameter)
	}

	h := FixedHeader{
		FileSystemGUID: *opts.FileSystemGUID,
		Length:         opts.Size,
		Signature:      Signature,
		Attributes:     opts.Attributes,
		Revision:       DefaultRevision,
	}
	blocks := []Block{{Count: uint32(opts.Size / uint64(opts.BlockSize)), Size: opts.BlockSize}, {}}
	h.HeaderLen = uint16(FixedHeaderSize + blockEntrySize*len(blocks))
	if uint64(h.HeaderLen) > opts.Size {
		return nil, fmt.Errorf("volume size 0x%x can't hold the header: %w", opts.Size, ffs.ErrInvalidParameter)
	}

	var pad []byte
	if opts.Name != nil {
		// The extended header lives in a pad file right after the header.
		h.ExtHeaderOffset = h.HeaderLen + ffs.FileHeaderMinLength
		var err error
		if pad, err = extHeaderPadFile(*opts.Name, polarityOf(opts.Attributes)); err != nil {
			return nil, err
		}
	}

	header := new(bytes.Buffer)
	if err := binary.Write(header, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("unable to construct binary header of new firmware volume: got %v", err)
	}
	for _, b := range blocks {
		if err := binary.Write(header, binary.LittleEndian, b); err != nil {
			return nil, fmt.Errorf("unable to construct binary header of new firmware volume: got %v", err)
		}
	}

	buf := make([]byte, opts.Size)
	fvbytes.Erase(buf, polarityOf(opts.Attributes))
	copy(buf, header.Bytes())
	if err := ChecksumHeader(buf); err != nil {
		return nil, err
	}
	if pad != nil {
		if err := AddFile(buf, pad); err != nil {
			return nil, fmt.Errorf("adding extended header: %w", err)
		}
	}
	return buf, nil
}

func polarityOf(attributes uint32) uint8 {
	if attributes&AttribErasePolarity != 0 {
		return 0xFF
	}
	return 0
}

func extHeaderPadFile(name guid.GUID, polarity uint8) ([]byte, error) {
	ext := new(bytes.Buffer)
	if err := binary.Write(ext, binary.LittleEndian, ExtHeader{FVName: name, ExtHeaderSize: ExtHeaderMinSize}); err != nil {
		return nil, err
	}
	hdr := ffs.NewFileHeader(padFileName, ffs.FVFileTypePad, 0, uint64(ext.Len()), polarity)
	file := append(hdr, ext.Bytes()...)
	if err := ffs.ChecksumFile(file); err != nil {
		return nil, err
	}
	return file, nil
}
