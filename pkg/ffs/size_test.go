// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWrite3Size(t *testing.T) {
	var tests = []struct {
		val  uint64
		want [3]uint8
	}{
		{0, [3]uint8{0, 0, 0}},
		{0x18, [3]uint8{0x18, 0, 0}},
		{0x123456, [3]uint8{0x56, 0x34, 0x12}},
		{0xFFFFFE, [3]uint8{0xFE, 0xFF, 0xFF}},
		{0xFFFFFF, [3]uint8{0xFF, 0xFF, 0xFF}},
		{0x1000000, [3]uint8{0xFF, 0xFF, 0xFF}},
	}
	for _, test := range tests {
		got := Write3Size(test.val)
		require.Equal(t, test.want, got, "Write3Size(%#x)", test.val)
		if test.val < SizeSentinel {
			require.Equal(t, test.val, Read3Size(got))
		}
	}
}

func TestEffectiveSizeSection(t *testing.T) {
	narrow := []byte{0x10, 0x00, 0x00, byte(SectionTypeRaw)}
	size, err := EffectiveSize(narrow, HeaderKindSection)
	require.NoError(t, err)
	require.EqualValues(t, 0x10, size)

	wide := []byte{0xFF, 0xFF, 0xFF, byte(SectionTypeRaw), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(wide[4:], 0xFFFFFF+4)
	size, err = EffectiveSize(wide, HeaderKindSection)
	require.NoError(t, err)
	require.EqualValues(t, 0xFFFFFF+4, size)

	_, err = EffectiveSize(wide[:6], HeaderKindSection)
	require.True(t, errors.Is(err, ErrVolumeCorrupted))
	_, err = EffectiveSize(narrow[:2], HeaderKindSection)
	require.True(t, errors.Is(err, ErrVolumeCorrupted))
}

func TestEffectiveSizeFile(t *testing.T) {
	hdr := make([]byte, FileHeaderExtMinLength)
	copy(hdr[fileSizeOffset:], []byte{0x00, 0x10, 0x00})
	size, err := EffectiveSize(hdr, HeaderKindFile)
	require.NoError(t, err)
	require.EqualValues(t, 0x1000, size)

	hdr[fileAttributesOffset] = FileAttribLargeFile
	binary.LittleEndian.PutUint64(hdr[fileExtendedSizeOffset:], 0x2000000)
	size, err = EffectiveSize(hdr, HeaderKindFile)
	require.NoError(t, err)
	require.EqualValues(t, 0x2000000, size)

	_, err = EffectiveSize(hdr[:FileHeaderMinLength], HeaderKindFile)
	require.True(t, errors.Is(err, ErrVolumeCorrupted))
}

func TestAlign(t *testing.T) {
	var tests = []struct {
		val, base, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{0x19, 8, 0x20},
		{0x1001, 0x1000, 0x2000},
	}
	for _, test := range tests {
		require.Equal(t, test.want, Align(test.val, test.base))
	}
}
