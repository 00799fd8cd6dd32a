// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/bytes"
)

func mustSection(t *testing.T, typ SectionType, data []byte) []byte {
	t.Helper()
	s, err := NewSection(typ, data)
	require.NoError(t, err)
	return s
}

func TestParseSectionHeader(t *testing.T) {
	s := mustSection(t, SectionTypePE32, make([]byte, 12))
	h, err := ParseSectionHeader(s)
	require.NoError(t, err)
	require.Equal(t, SectionHeader{Variant: Narrow, Type: SectionTypePE32, Size: 16}, h)
	require.EqualValues(t, 4, h.HeaderSize())
}

func TestWriteSectionHeaderWide(t *testing.T) {
	buf := make([]byte, 8)
	hdrLen, err := WriteSectionHeader(buf, SectionTypeRaw, SizeSentinel)
	require.NoError(t, err)
	require.EqualValues(t, 8, hdrLen)

	h, err := ParseSectionHeader(buf)
	require.NoError(t, err)
	require.Equal(t, Wide, h.Variant)
	require.EqualValues(t, SizeSentinel, h.Size)
	require.EqualValues(t, 8, h.HeaderSize())

	hdrLen, err = WriteSectionHeader(buf, SectionTypeRaw, SizeSentinel-1)
	require.NoError(t, err)
	require.EqualValues(t, 4, hdrLen)

	_, err = WriteSectionHeader(buf[:2], SectionTypeRaw, 0x10)
	require.True(t, errors.Is(err, ErrBufferTooSmall))
}

func TestSectionHeaderLen(t *testing.T) {
	require.EqualValues(t, 4, SectionHeaderLen(SizeSentinel-1))
	require.EqualValues(t, 8, SectionHeaderLen(SizeSentinel))
}

func TestNextSection(t *testing.T) {
	var region []byte
	region = append(region, mustSection(t, SectionTypeUserInterface, []byte{'a', 0, 0, 0, 0})...) // 9 bytes
	region = append(region, 0, 0, 0)                                                              // align
	region = append(region, mustSection(t, SectionTypeRaw, []byte{1, 2, 3, 4})...)
	region = append(region, mustSection(t, SectionTypePE32, nil)...)

	var cursor uint64
	var got bytes.Ranges
	for {
		r, err := NextSection(region, &cursor)
		if err != nil {
			require.True(t, errors.Is(err, ErrNotFound))
			break
		}
		require.Zero(t, r.Offset%4)
		got = append(got, r)
	}
	require.Equal(t, bytes.Ranges{{Offset: 0, Length: 9}, {Offset: 12, Length: 8}, {Offset: 20, Length: 4}}, got)
	require.Equal(t, 3, CountSections(region))

	r, err := FindSectionByType(region, SectionTypeRaw)
	require.NoError(t, err)
	data, err := SectionData(region[r.Offset:r.End()])
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = FindSectionByType(region, SectionTypeTE)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestNextSectionMalformed(t *testing.T) {
	var tests = []struct {
		name   string
		region []byte
	}{
		{"empty", nil},
		{"short header", []byte{4, 0, 0}},
		{"size below header", []byte{2, 0, 0, byte(SectionTypeRaw)}},
		{"overrun", []byte{0x20, 0, 0, byte(SectionTypeRaw), 0, 0}},
		{"truncated wide header", []byte{0xFF, 0xFF, 0xFF, byte(SectionTypeRaw), 0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var cursor uint64
			_, err := NextSection(test.region, &cursor)
			require.True(t, errors.Is(err, ErrNotFound))
			require.Zero(t, cursor)
		})
	}
}

func TestNextSectionTerminates(t *testing.T) {
	random := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(random)
	ones := make([]byte, 4096)
	bytes.Erase(ones, 0xFF)
	for _, region := range [][]byte{make([]byte, 4096), ones, random} {
		var cursor uint64
		iterations := 0
		for {
			if _, err := NextSection(region, &cursor); err != nil {
				break
			}
			iterations++
			require.LessOrEqual(t, iterations, len(region))
		}
	}
}

func TestIsPadding(t *testing.T) {
	require.True(t, IsPadding([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0}, 0xFF))
	require.False(t, IsPadding([]byte{0xFF, 0xFF, 0xFF, 0x19}, 0xFF))
	require.False(t, IsPadding([]byte{0xFF, 0xFF}, 0xFF))
}

func TestSectionTypeNames(t *testing.T) {
	require.Equal(t, "EFI_SECTION_GUID_DEFINED", SectionTypeGUIDDefined.String())
	require.Equal(t, SectionTypeTE, NamesToSectionType["EFI_SECTION_TE"])
	require.Equal(t, "UNKNOWN (0x42)", SectionType(0x42).String())
}

func TestUTF16(t *testing.T) {
	b, err := EncodeUTF16("Shell")
	require.NoError(t, err)
	require.Equal(t, []byte{'S', 0, 'h', 0, 'e', 0, 'l', 0, 'l', 0, 0, 0}, b)
	s, err := DecodeUTF16(append(b, 'x', 0))
	require.NoError(t, err)
	require.Equal(t, "Shell", s)

	v, err := NewVersionSection(0x1234, "1.0")
	require.NoError(t, err)
	require.Equal(t, []byte{0x0e, 0, 0, byte(SectionTypeVersion), 0x34, 0x12, '1', 0, '.', 0, '0', 0, 0, 0}, v)
}
