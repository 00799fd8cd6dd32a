// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/ffs"
)

func TestSize(t *testing.T) {
	var tests = []struct {
		name   string
		blocks []Block
		want   uint64
		err    error
	}{
		{"single run", []Block{{Count: 4, Size: 0x1000}}, 0x4000, nil},
		{"two runs", []Block{{Count: 2, Size: 0x1000}, {Count: 8, Size: 0x80}}, 0x2400, nil},
		{"empty map", nil, 0, ffs.ErrVolumeCorrupted},
		{"zero blocks", []Block{{Count: 0, Size: 0x1000}}, 0, ffs.ErrVolumeCorrupted},
		{"one GiB", []Block{{Count: 0x4000, Size: 0x10000}}, 0, ffs.ErrVolumeCorrupted},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			size, err := Size(headerWithBlocks(test.blocks...))
			if test.err != nil {
				require.True(t, errors.Is(err, test.err), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, size)
		})
	}
}

func TestSizeUnterminatedMap(t *testing.T) {
	buf := headerWithBlocks(Block{Count: 4, Size: 0x1000})
	// Header length that cuts off the terminator.
	binary.LittleEndian.PutUint16(buf[headerLenOffset:], FixedHeaderSize+blockEntrySize)
	_, err := Size(buf)
	require.True(t, errors.Is(err, ffs.ErrVolumeCorrupted))

	_, err = Size(buf[:10])
	require.True(t, errors.Is(err, ffs.ErrVolumeCorrupted))
}

func TestNewAndParseHeader(t *testing.T) {
	name := volumeName
	fv, err := New(Options{Size: 0x8000, Name: &name})
	require.NoError(t, err)
	require.Len(t, fv, 0x8000)

	h, err := ParseHeader(fv)
	require.NoError(t, err)
	require.Equal(t, *FFS2, h.FileSystemGUID)
	require.EqualValues(t, 0x8000, h.Length)
	require.EqualValues(t, 0x48, h.HeaderLen)
	require.EqualValues(t, 0x60, h.ExtHeaderOffset)
	require.Equal(t, []Block{{Count: 8, Size: 0x1000}}, h.Blocks)
	require.EqualValues(t, 0x8000, h.Size())
	require.EqualValues(t, 0xFF, h.ErasePolarity())
	require.NotNil(t, h.Ext)
	require.Equal(t, volumeName, h.Ext.FVName)

	sum, err := ffs.Checksum16(fv[:h.HeaderLen])
	require.NoError(t, err)
	require.Zero(t, sum)
	require.NoError(t, Validate(fv))

	files, err := Files(fv)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.EqualValues(t, 0x48, files[0].Offset)
}

func TestNewErrors(t *testing.T) {
	for _, opts := range []Options{
		{},
		{Size: 0x1001},
		{Size: 0x40, BlockSize: 0x40},
		{Size: MaxSize},
	} {
		_, err := New(opts)
		require.True(t, errors.Is(err, ffs.ErrInvalidParameter), "%+v", opts)
	}
}

func TestNewPolarityZero(t *testing.T) {
	fv, err := New(Options{Size: 0x1000, Attributes: DefaultAttributes &^ AttribErasePolarity})
	require.NoError(t, err)
	polarity, err := ErasePolarity(fv)
	require.NoError(t, err)
	require.Zero(t, polarity)
	require.Zero(t, fv[len(fv)-1])
}

func TestChecksumHeaderIdempotent(t *testing.T) {
	fv := newVolume(t, 0x2000)
	before := append([]byte{}, fv[:0x48]...)
	require.NoError(t, ChecksumHeader(fv))
	require.Equal(t, before, fv[:0x48])

	fv[attributesOffset] ^= 0x01
	require.NoError(t, ChecksumHeader(fv))
	sum, err := ffs.Checksum16(fv[:0x48])
	require.NoError(t, err)
	require.Zero(t, sum)
}

func TestParseHeaderBadSignature(t *testing.T) {
	fv := newVolume(t, 0x1000)
	fv[40] = 'X'
	_, err := ParseHeader(fv)
	require.True(t, errors.Is(err, ffs.ErrVolumeCorrupted))
}
