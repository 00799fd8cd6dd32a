// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fv

import (
	"errors"
	"fmt"

	"github.com/linuxboot/fvtools/pkg/bytes"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/log"
)

// newFileSize validates a file about to be added and returns its size.
func newFileSize(file []byte) (uint64, error) {
	hdrLen, err := ffs.FileHeaderSize(file)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ffs.ErrInvalidParameter)
	}
	size, err := ffs.FileSize(file)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ffs.ErrInvalidParameter)
	}
	if size < hdrLen || size > uint64(len(file)) {
		return 0, fmt.Errorf("file size 0x%x in buffer of 0x%x: %w", size, len(file), ffs.ErrInvalidParameter)
	}
	return size, nil
}

// AddFile copies file into the first 8-byte aligned erased region large
// enough to hold it. Files with a valid header are stepped over.
func AddFile(fv []byte, file []byte) error {
	v, err := inspect(fv)
	if err != nil {
		return err
	}
	size, err := newFileSize(file)
	if err != nil {
		return err
	}

	for off := ffs.Align8(v.headerLen); off+size <= v.size; off = ffs.Align8(off) {
		if ffs.TestState(fv[off+ffs.FileHeaderMinLength-1], v.polarity, ffs.FileStateHeaderValid) {
			existing, err := ffs.FileSize(fv[off:v.size])
			if err != nil || existing == 0 || off+existing > v.size {
				return fmt.Errorf("file at 0x%x has size 0x%x: %w", off, existing, ffs.ErrVolumeCorrupted)
			}
			off += existing
			continue
		}
		if bytes.IsErased(fv[off:off+size], v.polarity) {
			copy(fv[off:], file[:size])
			log.Debugf("added file %v at %#x", guid.GUID(file[:guid.Size]), off)
			return nil
		}
		off++
	}
	return fmt.Errorf("no free space for 0x%x bytes: %w", size, ffs.ErrOutOfResources)
}

// AddFileWithExtend adds file, growing the volume by the file size when it
// doesn't fit. The returned buffer replaces fv.
func AddFileWithExtend(fv []byte, file []byte) ([]byte, error) {
	err := AddFile(fv, file)
	if err == nil {
		return fv, nil
	}
	if !errors.Is(err, ffs.ErrOutOfResources) {
		return nil, err
	}
	size, err := newFileSize(file)
	if err != nil {
		return nil, err
	}
	extended, err := Extend(fv, size)
	if err != nil {
		return nil, err
	}
	if err := AddFile(extended, file); err != nil {
		return nil, err
	}
	return extended, nil
}

// AddVtfFile places file flush against the end of the volume, as the
// volume top file must be. The region has to be erased and lie past the
// last file. An existing VTF is not moved.
func AddVtfFile(fv []byte, file []byte) error {
	v, err := inspect(fv)
	if err != nil {
		return err
	}
	size, err := newFileSize(file)
	if err != nil {
		return err
	}
	if size%8 != 0 {
		return fmt.Errorf("VTF size 0x%x is not 8-byte aligned: %w", size, ffs.ErrInvalidParameter)
	}
	if size > v.size {
		return fmt.Errorf("VTF of 0x%x bytes in volume of 0x%x: %w", size, v.size, ffs.ErrOutOfResources)
	}
	end, err := lastFileEnd(fv, v)
	if err != nil {
		return err
	}
	off := v.size - size
	if off < end {
		return fmt.Errorf("VTF at 0x%x would overlap files ending at 0x%x: %w", off, end, ffs.ErrOutOfResources)
	}
	if !bytes.IsErased(fv[off:v.size], v.polarity) {
		return fmt.Errorf("end of volume at 0x%x is not erased: %w", off, ffs.ErrOutOfResources)
	}
	copy(fv[off:], file[:size])
	fv[off+ffs.FileHeaderMinLength-1] = ffs.StateDataValid(v.polarity)
	return nil
}

// RemoveFileNew erases the file called name in place.
func RemoveFileNew(fv []byte, name guid.GUID) error {
	v, err := inspect(fv)
	if err != nil {
		return err
	}
	r, err := FindFileByName(fv, name)
	if err != nil {
		return err
	}
	bytes.Erase(fv[r.Offset:r.End()], v.polarity)
	return nil
}

// RemoveFile rebuilds the volume without the file called name. The other
// files are packed from the start of the volume, dropping deleted files
// and gaps.
func RemoveFile(fv []byte, name guid.GUID) error {
	if _, err := FindFileByName(fv, name); err != nil {
		return err
	}
	scratch, err := Duplicate(fv)
	if err != nil {
		return err
	}
	if err := ClearAllFiles(scratch); err != nil {
		return err
	}

	var key uint64
	for {
		r, err := FindNextFile(fv, &key)
		if errors.Is(err, ffs.ErrNotFound) {
			break
		}
		if err != nil {
			return err
		}
		file := fv[r.Offset:r.End()]
		if guid.GUID(file[:guid.Size]) == name {
			continue
		}
		if err := AddFile(scratch, file); err != nil {
			return err
		}
	}
	copy(fv, scratch)
	return nil
}

// Duplicate returns a copy of the volume, cut to the size of its block
// map.
func Duplicate(fv []byte) ([]byte, error) {
	v, err := inspect(fv)
	if err != nil {
		return nil, err
	}
	dup := make([]byte, v.size)
	copy(dup, fv)
	return dup, nil
}

// ClearAllFiles erases everything after the volume header.
func ClearAllFiles(fv []byte) error {
	v, err := inspect(fv)
	if err != nil {
		return err
	}
	bytes.Erase(fv[v.headerLen:v.size], v.polarity)
	return nil
}
