// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"encoding/binary"
	"fmt"
)

// FileChecksumFixed is stored as the data checksum of files without
// FileAttribChecksum.
const FileChecksumFixed = 0xAA

// Checksum8 does a 8 bit checksum of the slice passed in.
func Checksum8(buf []byte) uint8 {
	var sum uint8
	for _, val := range buf {
		sum += val
	}
	return sum
}

// Checksum16 does a 16 bit checksum of the byte slice passed in.
func Checksum16(buf []byte) (uint16, error) {
	if len(buf)%2 != 0 {
		return 0, fmt.Errorf("byte slice does not have even length, not able to do 16 bit checksum. Length was %v: %w",
			len(buf), ErrInvalidParameter)
	}
	var sum uint16
	for i := 0; i < len(buf); i += 2 {
		sum += binary.LittleEndian.Uint16(buf[i:])
	}
	return sum, nil
}

// ChecksumHeader16 computes the value to store in the 16-bit checksum
// field at checksumOffset so the words of header sum to zero. The field
// itself is treated as zero.
func ChecksumHeader16(header []byte, checksumOffset int) (uint16, error) {
	if checksumOffset < 0 || checksumOffset+2 > len(header) {
		return 0, fmt.Errorf("checksum field at %d outside header of %d bytes: %w",
			checksumOffset, len(header), ErrInvalidParameter)
	}
	sum, err := Checksum16(header)
	if err != nil {
		return 0, err
	}
	sum -= binary.LittleEndian.Uint16(header[checksumOffset:])
	return 0 - sum, nil
}

// ChecksumFile recomputes both checksums of an FFS file in place. The
// state byte does not take part in the sums.
func ChecksumFile(file []byte) error {
	hdrLen, size, err := fileBounds(file)
	if err != nil {
		return err
	}
	file = file[:size]

	state := file[fileStateOffset]
	file[fileStateOffset] = 0
	file[fileHeaderChecksumOffset] = 0
	file[fileDataChecksumOffset] = 0

	file[fileHeaderChecksumOffset] = 0 - Checksum8(file[:hdrLen])
	if file[fileAttributesOffset]&FileAttribChecksum != 0 {
		file[fileDataChecksumOffset] = 0 - Checksum8(file[hdrLen:])
	} else {
		file[fileDataChecksumOffset] = FileChecksumFixed
	}

	file[fileStateOffset] = state
	return nil
}

// VerifyFile checks both checksums of an FFS file without modifying it.
func VerifyFile(file []byte) error {
	hdrLen, size, err := fileBounds(file)
	if err != nil {
		return err
	}
	file = file[:size]

	hdr := make([]byte, hdrLen)
	copy(hdr, file)
	hdr[fileStateOffset] = 0
	hdr[fileDataChecksumOffset] = 0
	if sum := Checksum8(hdr); sum != 0 {
		return fmt.Errorf("file header checksum mismatch, sum is 0x%02x: %w", sum, ErrVolumeCorrupted)
	}

	if file[fileAttributesOffset]&FileAttribChecksum == 0 {
		if got := file[fileDataChecksumOffset]; got != FileChecksumFixed {
			return fmt.Errorf("file data checksum is 0x%02x, want fixed 0x%02x: %w",
				got, FileChecksumFixed, ErrVolumeCorrupted)
		}
		return nil
	}
	if sum := Checksum8(file[hdrLen:]) + file[fileDataChecksumOffset]; sum != 0 {
		return fmt.Errorf("file data checksum mismatch, sum is 0x%02x: %w", sum, ErrVolumeCorrupted)
	}
	return nil
}

func fileBounds(file []byte) (hdrLen, size uint64, err error) {
	if hdrLen, err = FileHeaderSize(file); err != nil {
		return 0, 0, err
	}
	if size, err = FileSize(file); err != nil {
		return 0, 0, err
	}
	if size < hdrLen || size > uint64(len(file)) {
		return 0, 0, fmt.Errorf("file size 0x%x with header 0x%x in buffer of 0x%x: %w",
			size, hdrLen, len(file), ErrVolumeCorrupted)
	}
	return hdrLen, size, nil
}
