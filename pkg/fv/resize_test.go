// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/bytes"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

func TestExtend(t *testing.T) {
	fv := newVolume(t, 0x4000)
	require.NoError(t, AddFile(fv, newFile(t, fileA, 0x100)))
	orig := append([]byte{}, fv...)

	extended, err := Extend(fv, 0x500)
	require.NoError(t, err)
	require.Len(t, extended, 0x5000)
	require.Equal(t, orig, fv, "the original buffer must not change")

	size, err := Size(extended)
	require.NoError(t, err)
	require.EqualValues(t, 0x5000, size)
	require.EqualValues(t, 0x5000, binary.LittleEndian.Uint64(extended[lengthOffset:]))
	require.True(t, bytes.IsErased(extended[0x4000:], 0xFF))

	// Only the header fields change in the original range.
	require.Equal(t, orig[0x48:0x4000], extended[0x48:0x4000])
	require.Equal(t, []guid.GUID{fileA}, fileNames(t, extended))
	require.NoError(t, Validate(extended))
}

func TestExtendExactBlocks(t *testing.T) {
	fv := newVolume(t, 0x2000)
	extended, err := Extend(fv, 0x2000)
	require.NoError(t, err)
	require.Len(t, extended, 0x4000)
}

func TestUnifyBlockSizes(t *testing.T) {
	fv := newVolume(t, 0x4000)
	require.NoError(t, UnifyBlockSizes(fv, 0x200))
	h, err := ParseHeader(fv)
	require.NoError(t, err)
	require.Equal(t, []Block{{Count: 0x20, Size: 0x200}}, h.Blocks)
	require.NoError(t, Validate(fv))

	err = UnifyBlockSizes(fv, 0x3000)
	require.True(t, errors.Is(err, ffs.ErrInvalidParameter))
	err = UnifyBlockSizes(fv, 0)
	require.True(t, errors.Is(err, ffs.ErrInvalidParameter))
}

func TestUnifyBlockSizesMultipleRuns(t *testing.T) {
	buf := make([]byte, 0x2400)
	bytes.Erase(buf, 0xFF)
	hdr := headerWithBlocks(Block{Count: 2, Size: 0x1000}, Block{Count: 8, Size: 0x80})
	copy(buf, hdr)
	binary.LittleEndian.PutUint64(buf[lengthOffset:], 0x2400)
	binary.LittleEndian.PutUint32(buf[attributesOffset:], DefaultAttributes)

	require.NoError(t, UnifyBlockSizes(buf, 0x400))
	blocks, terminator, err := blockMap(buf)
	require.NoError(t, err)
	require.Equal(t, []Block{{Count: 9, Size: 0x400}}, blocks)
	require.EqualValues(t, FixedHeaderSize+blockEntrySize, terminator)
	require.NoError(t, Validate(buf))
}

func TestShrinkWrap(t *testing.T) {
	fv := newVolume(t, 0x4000)
	require.NoError(t, AddFile(fv, newFile(t, fileA, 0x100)))
	require.NoError(t, AddFile(fv, newFile(t, fileB, 0x30)))

	shrunk, err := ShrinkWrap(fv)
	require.NoError(t, err)
	// The files end at 0x160+0x48 = 0x1A8.
	require.Len(t, shrunk, 0x200)
	h, err := ParseHeader(shrunk)
	require.NoError(t, err)
	require.Equal(t, []Block{{Count: 4, Size: ShrinkWrapBlockSize}}, h.Blocks)
	require.EqualValues(t, 0x200, h.Length)
	require.Equal(t, []guid.GUID{fileA, fileB}, fileNames(t, shrunk))
	require.NoError(t, Validate(shrunk))

	empty, err := ShrinkWrap(newVolume(t, 0x1000))
	require.NoError(t, err)
	require.Len(t, empty, ShrinkWrapBlockSize)
}

func TestShrinkWrapKeepsVtf(t *testing.T) {
	fv := newVolume(t, 0x1000)
	require.NoError(t, AddVtfFile(fv, newFile(t, fileC, 0x28)))
	shrunk, err := ShrinkWrap(fv)
	require.NoError(t, err)
	require.Len(t, shrunk, 0x1000)
}
