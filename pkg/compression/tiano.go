// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/linuxboot/fvtools/pkg/ffs"
)

// Codec is the EFI standard compression algorithm.
type Codec interface {
	// Compress writes the compressed form of src into dst and returns its
	// length. A *ffs.BufferTooSmallError reports the size dst needs.
	Compress(ctx context.Context, src, dst []byte) (int, error)
	// GetInfo reads the destination and scratch sizes Decompress needs.
	GetInfo(src []byte) (dstSize, scratchSize uint32, err error)
	// Decompress fills dst, which is exactly dstSize bytes long.
	Decompress(ctx context.Context, src, dst, scratch []byte) error
}

// Stream header of the EFI standard algorithm.
const (
	tianoHeaderSize = 8
	// tianoScratchSize matches the scratch area of the reference decoder.
	tianoScratchSize = 13393
)

// SystemTiano implements Codec with an external EDK2-style compressor,
// usually TianoCompress.
type SystemTiano struct {
	Path    string
	Timeout time.Duration
}

// Compress runs the tool in encode mode.
func (c *SystemTiano) Compress(ctx context.Context, src, dst []byte) (int, error) {
	out, err := RunFileTool(ctx, c.Path, c.Timeout, ToolEncode, src)
	if err != nil {
		return 0, err
	}
	if len(out) > len(dst) {
		return 0, &ffs.BufferTooSmallError{Required: uint64(len(out))}
	}
	return copy(dst, out), nil
}

// GetInfo reads the 8 byte stream header.
func (c *SystemTiano) GetInfo(src []byte) (uint32, uint32, error) {
	return tianoGetInfo(src)
}

func tianoGetInfo(src []byte) (uint32, uint32, error) {
	if len(src) < tianoHeaderSize {
		return 0, 0, fmt.Errorf("compressed stream of %d bytes: %w", len(src), ffs.ErrVolumeCorrupted)
	}
	compressed := binary.LittleEndian.Uint32(src)
	if uint64(compressed)+tianoHeaderSize > uint64(len(src)) {
		return 0, 0, fmt.Errorf("compressed size 0x%x exceeds stream of 0x%x: %w",
			compressed, len(src), ffs.ErrVolumeCorrupted)
	}
	return binary.LittleEndian.Uint32(src[4:]), tianoScratchSize, nil
}

// Decompress runs the tool in decode mode.
func (c *SystemTiano) Decompress(ctx context.Context, src, dst, scratch []byte) error {
	out, err := RunFileTool(ctx, c.Path, c.Timeout, ToolDecode, src)
	if err != nil {
		return err
	}
	if len(out) != len(dst) {
		return fmt.Errorf("%s produced 0x%x bytes, want 0x%x: %w", c.Path, len(out), len(dst), ffs.ErrVolumeCorrupted)
	}
	copy(dst, out)
	return nil
}
