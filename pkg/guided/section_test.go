// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guided

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

var vendorGUID = *guid.MustParse("A31280AD-481E-41B6-95E8-127F4C984779")

func TestBuildCRC32(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5A}, 100)
	section, err := BuildCRC32(payload)
	require.NoError(t, err)

	s, err := ParseSection(section)
	require.NoError(t, err)
	require.Equal(t, CRC32GUID, s.GUID)
	require.Equal(t, AuthStatusValid, s.Attributes)
	require.EqualValues(t, 0x1C, s.DataOffset)
	require.EqualValues(t, 0x1C+100, s.Header.Size)

	got, err := VerifyCRC32(section)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	for _, i := range []int{0x1C, 0x1C + 50, len(section) - 1} {
		flipped := append([]byte{}, section...)
		flipped[i] ^= 0x01
		_, err := VerifyCRC32(flipped)
		require.True(t, errors.Is(err, ffs.ErrAborted), "flip at %#x", i)
	}
}

func TestBuildCRC32Wide(t *testing.T) {
	payload := make([]byte, ffs.SizeSentinel)
	section, err := BuildCRC32(payload)
	require.NoError(t, err)
	s, err := ParseSection(section)
	require.NoError(t, err)
	require.Equal(t, ffs.Wide, s.Header.Variant)
	require.EqualValues(t, 0x20, s.DataOffset)
	_, err = VerifyCRC32(section)
	require.NoError(t, err)
}

func TestBuildSection(t *testing.T) {
	data := []byte{0xDE, 0xAD, 1, 2, 3}
	section, err := BuildSection(vendorGUID, ProcessingRequired, 2, data)
	require.NoError(t, err)
	s, err := ParseSection(section)
	require.NoError(t, err)
	require.Equal(t, vendorGUID, s.GUID)
	require.EqualValues(t, 24+2, s.DataOffset)
	require.Equal(t, []byte{1, 2, 3}, s.Data(section))

	_, err = BuildSection(vendorGUID, 0, 6, data)
	require.True(t, errors.Is(err, ffs.ErrInvalidParameter))
}

func TestParseSectionErrors(t *testing.T) {
	section, err := BuildSection(vendorGUID, 0, 0, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	badOffset := append([]byte{}, section...)
	badOffset[20] = 0x40
	_, err = ParseSection(badOffset)
	require.True(t, errors.Is(err, ffs.ErrVolumeCorrupted))

	_, err = ParseSection(section[:20])
	require.True(t, errors.Is(err, ffs.ErrVolumeCorrupted))

	raw, err := ffs.NewSection(ffs.SectionTypeRaw, make([]byte, 30))
	require.NoError(t, err)
	_, err = ParseSection(raw)
	require.True(t, errors.Is(err, ffs.ErrInvalidParameter))
}

func TestAttributes(t *testing.T) {
	var tests = []struct {
		name string
		want Attributes
	}{
		{"NONE", 0},
		{"PROCESSING_REQUIRED", ProcessingRequired},
		{"auth_status_valid", AuthStatusValid},
	}
	for _, test := range tests {
		got, err := ParseAttribute(test.name)
		require.NoError(t, err)
		require.Equal(t, test.want, got)
	}
	_, err := ParseAttribute("SIGNED")
	require.True(t, errors.Is(err, ffs.ErrInvalidParameter))
	require.Equal(t, "PROCESSING_REQUIRED|AUTH_STATUS_VALID", (ProcessingRequired | AuthStatusValid).String())
	require.Equal(t, "NONE", Attributes(0).String())
}

// reverseDecoder is an in-memory stand-in for an external tool.
type reverseDecoder struct {
	calls int
}

func (d *reverseDecoder) Decode(ctx context.Context, data []byte) ([]byte, error) {
	d.calls++
	out := make([]byte, len(data))
	for i, b := range data {
		out[len(data)-1-i] = b
	}
	return out, nil
}

type fakeLookup map[guid.GUID]Decoder

func (l fakeLookup) DecoderFor(g guid.GUID) (Decoder, error) {
	if d, ok := l[g]; ok {
		return d, nil
	}
	return nil, ffs.ErrNotFound
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	dec := &reverseDecoder{}
	lookup := fakeLookup{vendorGUID: dec}

	crc, err := BuildCRC32([]byte{1, 2, 3})
	require.NoError(t, err)
	got, err := Extract(ctx, crc, lookup)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	plain, err := BuildSection(vendorGUID, AuthStatusValid, 0, []byte{1, 2, 3})
	require.NoError(t, err)
	got, err = Extract(ctx, plain, lookup)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)
	require.Zero(t, dec.calls)

	processed, err := BuildSection(vendorGUID, ProcessingRequired, 0, []byte{1, 2, 3})
	require.NoError(t, err)
	got, err = Extract(ctx, processed, lookup)
	require.NoError(t, err)
	require.Equal(t, []byte{3, 2, 1}, got)
	require.Equal(t, 1, dec.calls)

	unknown, err := BuildSection(guid.FromName("unknown"), ProcessingRequired, 0, []byte{1})
	require.NoError(t, err)
	_, err = Extract(ctx, unknown, lookup)
	require.True(t, errors.Is(err, ffs.ErrNotFound))
	_, err = Extract(ctx, unknown, nil)
	require.True(t, errors.Is(err, ffs.ErrNotFound))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(compression.Tools{})
	dec, err := r.DecoderFor(compression.LZMAGUID)
	require.NoError(t, err)
	enc, err := r.EncoderFor(compression.LZMAGUID)
	require.NoError(t, err)

	ctx := context.Background()
	encoded, err := enc.Encode(ctx, []byte("lzma in a guided section"))
	require.NoError(t, err)
	decoded, err := dec.Decode(ctx, encoded)
	require.NoError(t, err)
	require.Equal(t, []byte("lzma in a guided section"), decoded)

	_, err = r.DecoderFor(compression.BROTLIGUID)
	require.True(t, errors.Is(err, ffs.ErrNotFound))

	defs := `# GUID                                NAME    TOOL
a31280ad-481e-41b6-95e8-127f4c984779   TIANO   TianoCompress

EE4E5898-3914-4259-9D6E-DC7BD79403CF   LZMA    LzmaCompress  # overrides the builtin
`
	require.NoError(t, r.LoadToolDefinitions(strings.NewReader(defs), time.Second))
	dec, err = r.DecoderFor(vendorGUID)
	require.NoError(t, err)
	require.Equal(t, &Tool{Path: "TianoCompress", Timeout: time.Second}, dec)
	dec, err = r.DecoderFor(compression.LZMAGUID)
	require.NoError(t, err)
	require.Equal(t, &Tool{Path: "LzmaCompress", Timeout: time.Second}, dec)

	names := []string{}
	for _, e := range r.Entries() {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"LZMA", "LZMAX86", "TIANO"}, names)

	require.Error(t, r.LoadToolDefinitions(strings.NewReader("a31280ad-481e-41b6-95e8-127f4c984779 TIANO\n"), 0))
	require.Error(t, r.LoadToolDefinitions(strings.NewReader("nothex TIANO TianoCompress\n"), 0))
}

func TestRegistryBuiltin(t *testing.T) {
	r := &Registry{}
	lz4GUID := guid.FromName("lz4")
	defs := "acb2d7b1-8d1b-4c83-9c1f-ea4dbb1b3d7e ZLIB builtin:zlib\n" +
		lz4GUID.String() + " LZ4 builtin:LZ4\n"
	require.NoError(t, r.LoadToolDefinitions(strings.NewReader(defs), 0))

	ctx := context.Background()
	for _, e := range r.Entries() {
		t.Run(e.Name, func(t *testing.T) {
			encoded, err := e.Encoder.Encode(ctx, []byte("builtin compressor"))
			require.NoError(t, err)
			decoded, err := e.Decoder.Decode(ctx, encoded)
			require.NoError(t, err)
			require.Equal(t, []byte("builtin compressor"), decoded)
		})
	}
	_, err := r.DecoderFor(lz4GUID)
	require.NoError(t, err)

	err = r.LoadToolDefinitions(strings.NewReader(lz4GUID.String()+" X builtin:snappy\n"), 0)
	require.True(t, errors.Is(err, ffs.ErrInvalidParameter))
}
