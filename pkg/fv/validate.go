// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/fvtools/pkg/ffs"
)

// Validate checks the header and every file of a volume and reports all
// problems found.
func Validate(fv []byte) error {
	var result *multierror.Error

	h, err := ParseHeader(fv)
	if err != nil {
		return err
	}
	v, err := inspect(fv)
	if err != nil {
		return err
	}
	if h.Length != v.size {
		result = multierror.Append(result, fmt.Errorf("length field 0x%x disagrees with block map 0x%x: %w",
			h.Length, v.size, ffs.ErrVolumeCorrupted))
	}
	if v.headerLen%2 != 0 {
		result = multierror.Append(result, fmt.Errorf("odd header length 0x%x: %w", v.headerLen, ffs.ErrVolumeCorrupted))
	} else if sum, err := ffs.Checksum16(fv[:v.headerLen]); err != nil || sum != 0 {
		result = multierror.Append(result, fmt.Errorf("header checksum 0x%04x does not sum to zero: %w",
			binary.LittleEndian.Uint16(fv[checksumOffset:]), ffs.ErrVolumeCorrupted))
	}
	if h.Ext != nil && uint64(h.ExtHeaderOffset)+uint64(h.Ext.ExtHeaderSize) > v.size {
		result = multierror.Append(result, fmt.Errorf("extended header at 0x%x (+0x%x) outside volume: %w",
			h.ExtHeaderOffset, h.Ext.ExtHeaderSize, ffs.ErrVolumeCorrupted))
	}

	files, err := Files(fv)
	if err != nil {
		return multierror.Append(result, err).ErrorOrNil()
	}
	for _, r := range files {
		if r.Offset%8 != 0 {
			result = multierror.Append(result, fmt.Errorf("file at 0x%x is not 8-byte aligned: %w", r.Offset, ffs.ErrVolumeCorrupted))
		}
		if err := ffs.VerifyFile(fv[r.Offset:r.End()]); err != nil {
			result = multierror.Append(result, fmt.Errorf("file at 0x%x: %w", r.Offset, err))
		}
	}
	if a, b, ok := files.Overlapping(); ok {
		result = multierror.Append(result, fmt.Errorf("files %v and %v overlap: %w", a, b, ffs.ErrVolumeCorrupted))
	}
	return result.ErrorOrNil()
}
