// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
)

// lzmaSizeOffset is where the .lzma header records the decoded size.
const lzmaSizeOffset = 5

// SystemLZMA implements Compressor and calls out to xz for encoding.
// Decoding stays in Go: xz reports an error on streams that carry both a
// size and an end marker, which is what Encode produces.
type SystemLZMA struct {
	xzPath string
}

// Name returns the type of compression employed.
func (c *SystemLZMA) Name() string {
	return "LZMA"
}

// Decode decodes a byte slice of LZMA data.
func (c *SystemLZMA) Decode(encodedData []byte) ([]byte, error) {
	return (&LZMA{}).Decode(encodedData)
}

// Encode encodes a byte slice with LZMA.
func (c *SystemLZMA) Encode(decodedData []byte) ([]byte, error) {
	cmd := exec.Command(c.xzPath, "--format=lzma", "-7", "--stdout")
	cmd.Stdin = bytes.NewReader(decodedData)
	encodedData, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", c.xzPath, err)
	}
	if len(encodedData) < lzmaSizeOffset+8 {
		return nil, fmt.Errorf("%s produced %d bytes, too short for an lzma header", c.xzPath, len(encodedData))
	}

	// xz marks the size as unknown. Some firmware decoders allocate
	// whatever the header says, so write the real size.
	binary.LittleEndian.PutUint64(encodedData[lzmaSizeOffset:], uint64(len(decodedData)))
	return encodedData, nil
}
