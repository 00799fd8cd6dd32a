// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
)

var (
	volumeName = *guid.MustParse("4F1C52D3-D824-4D2A-A2F0-EC40C23C5916")
	fileA      = *guid.MustParse("1BA0062E-C779-4582-8566-336AE8F78F09")
	fileB      = *guid.MustParse("DF1CCEF6-F301-4A63-9661-FC6030DCC880")
	fileC      = *guid.MustParse("B601F8C4-43B7-4784-95B1-F4226CB40CEE")
)

// headerWithBlocks returns a bare header carrying the given block map
// followed by the terminating entry.
func headerWithBlocks(blocks ...Block) []byte {
	hl := FixedHeaderSize + blockEntrySize*(len(blocks)+1)
	buf := make([]byte, hl)
	binary.LittleEndian.PutUint32(buf[40:], Signature)
	binary.LittleEndian.PutUint16(buf[headerLenOffset:], uint16(hl))
	for i, b := range blocks {
		binary.LittleEndian.PutUint32(buf[FixedHeaderSize+8*i:], b.Count)
		binary.LittleEndian.PutUint32(buf[FixedHeaderSize+8*i+4:], b.Size)
	}
	return buf
}

func newVolume(t *testing.T, size uint64) []byte {
	t.Helper()
	fv, err := New(Options{Size: size})
	require.NoError(t, err)
	return fv
}

func newFile(t *testing.T, name guid.GUID, dataLen int) []byte {
	t.Helper()
	data := make([]byte, dataLen)
	for i := range data {
		data[i] = byte(i)
	}
	hdr := ffs.NewFileHeader(name, ffs.FVFileTypeDriver, ffs.FileAttribChecksum, uint64(dataLen), 0xFF)
	file := append(hdr, data...)
	require.NoError(t, ffs.ChecksumFile(file))
	return file
}

func fileNames(t *testing.T, fv []byte) []guid.GUID {
	t.Helper()
	files, err := Files(fv)
	require.NoError(t, err)
	var names []guid.GUID
	for _, r := range files {
		names = append(names, guid.GUID(fv[r.Offset:r.Offset+guid.Size]))
	}
	return names
}
