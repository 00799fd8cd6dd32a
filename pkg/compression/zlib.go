// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
)

const (
	zlibCompressionLevel  = 9
	zlibSectionHeaderSize = 256
	zlibSizeOffset        = 20
)

// ZLIB implements Compressor. The stream is preceded by a 256 byte header
// recording the compressed size.
type ZLIB struct{}

// Name returns the type of compression employed.
func (c *ZLIB) Name() string {
	return "ZLIB"
}

// Decode decodes a byte slice of ZLIB data.
func (c *ZLIB) Decode(encodedData []byte) ([]byte, error) {
	if len(encodedData) < zlibSectionHeaderSize {
		return nil, errors.New("ZLIB.Decode: missing section header")
	}

	size := binary.LittleEndian.Uint32(encodedData[zlibSizeOffset:])
	if size != uint32(len(encodedData)-zlibSectionHeaderSize) {
		return nil, errors.New("ZLIB.Decode: size mismatch")
	}

	r, err := zlib.NewReader(bytes.NewReader(encodedData[zlibSectionHeaderSize:]))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Encode encodes a byte slice with ZLIB.
func (c *ZLIB) Encode(decodedData []byte) ([]byte, error) {
	encoded := bytes.NewBuffer(make([]byte, zlibSectionHeaderSize))

	w, err := zlib.NewWriterLevel(encoded, zlibCompressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(decodedData); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	out := encoded.Bytes()
	binary.LittleEndian.PutUint32(out[zlibSizeOffset:], uint32(len(out)-zlibSectionHeaderSize))
	return out, nil
}
