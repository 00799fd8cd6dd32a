// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"encoding/binary"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/fvtools/pkg/bytes"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/log"
)

// ShrinkWrapBlockSize is the block size a shrink-wrapped volume uses.
const ShrinkWrapBlockSize = 0x80

// Extend returns a copy of the volume grown by at least minSize bytes.
// Whole blocks of the first block map entry are added and the new space
// is erased. fv itself is left untouched.
func Extend(fv []byte, minSize uint64) ([]byte, error) {
	v, err := inspect(fv)
	if err != nil {
		return nil, err
	}
	blocks, _, err := blockMap(fv)
	if err != nil {
		return nil, err
	}
	first := blocks[0]
	if first.Size == 0 {
		return nil, fmt.Errorf("first block map entry has zero length: %w", ffs.ErrVolumeCorrupted)
	}
	count := (minSize + uint64(first.Size) - 1) / uint64(first.Size)
	newSize := v.size + count*uint64(first.Size)
	if newSize >= MaxSize || uint64(first.Count)+count > 0xFFFFFFFF {
		return nil, fmt.Errorf("extending 0x%x by 0x%x: %w", v.size, minSize, ffs.ErrOutOfResources)
	}

	extended := make([]byte, newSize)
	copy(extended, fv[:v.size])
	bytes.Erase(extended[v.size:], v.polarity)
	binary.LittleEndian.PutUint64(extended[lengthOffset:], newSize)
	binary.LittleEndian.PutUint32(extended[FixedHeaderSize:], first.Count+uint32(count))
	if err := ChecksumHeader(extended); err != nil {
		return nil, err
	}
	log.Debugf("extended volume from %s to %s", humanize.IBytes(v.size), humanize.IBytes(newSize))
	return extended, nil
}

// UnifyBlockSizes rewrites the block map as a single entry of blockSize
// blocks. The volume size must be a multiple of blockSize.
func UnifyBlockSizes(fv []byte, blockSize uint32) error {
	if blockSize == 0 {
		return fmt.Errorf("block size 0: %w", ffs.ErrInvalidParameter)
	}
	size, err := Size(fv)
	if err != nil {
		return err
	}
	_, terminator, err := blockMap(fv)
	if err != nil {
		return err
	}
	if size%uint64(blockSize) != 0 {
		return fmt.Errorf("volume size 0x%x is not a multiple of 0x%x: %w", size, blockSize, ffs.ErrInvalidParameter)
	}

	for i := uint64(FixedHeaderSize); i < terminator; i++ {
		fv[i] = 0
	}
	binary.LittleEndian.PutUint32(fv[FixedHeaderSize:], uint32(size/uint64(blockSize)))
	binary.LittleEndian.PutUint32(fv[FixedHeaderSize+4:], blockSize)
	return ChecksumHeader(fv)
}

// ShrinkWrap returns a copy of the volume cut right after its last file,
// rounded up to ShrinkWrapBlockSize. A VTF at the end of the volume keeps
// it from shrinking.
func ShrinkWrap(fv []byte) ([]byte, error) {
	shrunk, err := Duplicate(fv)
	if err != nil {
		return nil, err
	}
	if err := UnifyBlockSizes(shrunk, ShrinkWrapBlockSize); err != nil {
		return nil, err
	}
	v, err := inspect(shrunk)
	if err != nil {
		return nil, err
	}
	end, err := lastFileEnd(shrunk, v)
	if err != nil {
		return nil, err
	}
	count := (end + ShrinkWrapBlockSize - 1) / ShrinkWrapBlockSize
	newSize := count * ShrinkWrapBlockSize

	shrunk = shrunk[:newSize]
	binary.LittleEndian.PutUint32(shrunk[FixedHeaderSize:], uint32(count))
	binary.LittleEndian.PutUint64(shrunk[lengthOffset:], newSize)
	if err := ChecksumHeader(shrunk); err != nil {
		return nil, err
	}
	log.Debugf("shrank volume from %s to %s", humanize.IBytes(v.size), humanize.IBytes(newSize))
	return shrunk, nil
}
