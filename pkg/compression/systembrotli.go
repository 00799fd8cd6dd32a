// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
)

const brotliHeaderSize = 0x10

// brotliScratchSize is what the firmware decompressor asks for. EDK2
// derives it from brotli internals, 0x03000000 has been enough so far.
const brotliScratchSize = 0x03000000

// SystemBROTLI implements Compressor and calls out to the system's brotli.
type SystemBROTLI struct {
	brotliPath string
}

// Name returns the type of compression employed.
func (c *SystemBROTLI) Name() string {
	return "BROTLI"
}

// Decode decodes a byte slice of BROTLI data.
func (c *SystemBROTLI) Decode(encodedData []byte) ([]byte, error) {
	if len(encodedData) < brotliHeaderSize {
		return nil, fmt.Errorf("BROTLI.Decode: %d bytes is shorter than the header", len(encodedData))
	}
	cmd := exec.Command(c.brotliPath, "--stdout", "-d")
	cmd.Stdin = bytes.NewReader(encodedData[brotliHeaderSize:])
	decodedData, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", c.brotliPath, err)
	}
	if want := binary.LittleEndian.Uint64(encodedData); want != uint64(len(decodedData)) {
		return nil, fmt.Errorf("BROTLI.Decode: got 0x%x bytes, header says 0x%x", len(decodedData), want)
	}
	return decodedData, nil
}

// Encode encodes a byte slice with BROTLI. The output starts with the
// decoded size and the scratch size, 8 bytes each.
func (c *SystemBROTLI) Encode(decodedData []byte) ([]byte, error) {
	cmd := exec.Command(c.brotliPath, "--stdout", "-q", "9")
	cmd.Stdin = bytes.NewReader(decodedData)
	encodedData, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", c.brotliPath, err)
	}

	header := make([]byte, brotliHeaderSize)
	binary.LittleEndian.PutUint64(header, uint64(len(decodedData)))
	binary.LittleEndian.PutUint64(header[8:], brotliScratchSize)
	return append(header, encodedData...), nil
}
