// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"math/rand"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/guid"
)

// testData mixes random bytes with x86-looking call instructions so the
// BCJ filter has something to rewrite.
func testData() []byte {
	r := rand.New(rand.NewSource(42))
	data := make([]byte, 64*1024)
	r.Read(data[:len(data)/2])
	for i := len(data) / 2; i < len(data)-5; i += 7 {
		data[i] = 0xE8
		data[i+1] = byte(i)
		data[i+2] = byte(i >> 8)
		data[i+4] = 0x00
	}
	return data
}

func TestEncodeDecode(t *testing.T) {
	var tests = []struct {
		name       string
		compressor Compressor
		needs      string
	}{
		{"LZMA", &LZMA{}, ""},
		{"LZMAX86", &LZMAX86{&LZMA{}}, ""},
		{"LZ4", &LZ4{}, ""},
		{"ZLIB", &ZLIB{}, ""},
		{"SystemLZMA", &SystemLZMA{"xz"}, "xz"},
		{"SystemLZMAX86", &LZMAX86{&SystemLZMA{"xz"}}, "xz"},
		{"SystemBROTLI", &SystemBROTLI{"brotli"}, "brotli"},
	}
	inputs := map[string][]byte{
		"empty":  {},
		"text":   bytes.Repeat([]byte("firmware volume "), 100),
		"binary": testData(),
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.needs != "" {
				if _, err := exec.LookPath(tt.needs); err != nil {
					t.Skipf("%s not installed", tt.needs)
				}
			}
			for name, want := range inputs {
				encoded, err := tt.compressor.Encode(want)
				require.NoError(t, err, name)
				got, err := tt.compressor.Decode(encoded)
				require.NoError(t, err, name)
				require.True(t, bytes.Equal(want, got), "%s: got %d bytes, want %d bytes", name, len(got), len(want))
			}
		})
	}
}

func TestX86Convert(t *testing.T) {
	want := testData()
	data := append([]byte{}, want...)
	x86Convert(data, 0, true)
	require.NotEqual(t, want, data)
	x86Convert(data, 0, false)
	require.Equal(t, want, data)

	short := []byte{0xE8, 1, 2, 3}
	x86Convert(short, 0, true)
	require.Equal(t, []byte{0xE8, 1, 2, 3}, short)
}

func TestX86ConvertCall(t *testing.T) {
	// call +0x10 at offset 0 becomes call to absolute 0x15.
	data := []byte{0xE8, 0x10, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90, 0x90}
	x86Convert(data, 0, true)
	require.Equal(t, []byte{0xE8, 0x15, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90, 0x90}, data)
}

func TestZLIBHeader(t *testing.T) {
	encoded, err := (&ZLIB{}).Encode([]byte("abc"))
	require.NoError(t, err)
	encoded[zlibSizeOffset]++
	_, err = (&ZLIB{}).Decode(encoded)
	require.Error(t, err)

	_, err = (&ZLIB{}).Decode(make([]byte, 10))
	require.Error(t, err)
}

func TestCompressorFromGUID(t *testing.T) {
	var tests = []struct {
		tools Tools
		g     guid.GUID
		want  string
	}{
		{DefaultTools, LZMAGUID, "*compression.LZMA"},
		{DefaultTools, LZMAX86GUID, "*compression.LZMAX86"},
		{DefaultTools, BROTLIGUID, "*compression.SystemBROTLI"},
		{Tools{XZPath: "xz"}, LZMAGUID, "*compression.SystemLZMA"},
		{Tools{}, BROTLIGUID, "<nil>"},
		{DefaultTools, guid.Zero, "<nil>"},
	}
	for _, test := range tests {
		g := test.g
		c := test.tools.CompressorFromGUID(&g)
		require.Equal(t, test.want, typeName(c))
	}
}

func typeName(c Compressor) string {
	if c == nil {
		return "<nil>"
	}
	switch c.(type) {
	case *LZMA:
		return "*compression.LZMA"
	case *LZMAX86:
		return "*compression.LZMAX86"
	case *SystemBROTLI:
		return "*compression.SystemBROTLI"
	case *SystemLZMA:
		return "*compression.SystemLZMA"
	}
	return c.Name()
}
