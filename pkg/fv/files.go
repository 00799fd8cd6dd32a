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
)

// FindNextFile returns the next file whose data is valid, starting at the
// 8-byte aligned offset *key, and moves *key past it. A zero key starts
// right after the volume header. ffs.ErrNotFound ends the iteration.
//
// Files under construction or with an invalid header are stepped over one
// byte at a time, deleted and superseded files by their size.
func FindNextFile(fv []byte, key *uint64) (bytes.Range, error) {
	v, err := inspect(fv)
	if err != nil {
		return bytes.Range{}, err
	}
	if *key == 0 {
		*key = v.headerLen
	}
	for *key = ffs.Align8(*key); *key+ffs.FileHeaderMinLength < v.size; *key = ffs.Align8(*key) {
		file := fv[*key:v.size]
		state := file[ffs.FileHeaderMinLength-1]

		if !ffs.TestState(state, v.polarity, ffs.FileStateHeaderValid) ||
			ffs.TestState(state, v.polarity, ffs.FileStateHeaderInvalid) {
			*key++
			continue
		}

		size, err := ffs.FileSize(file)
		if err != nil {
			*key++
			continue
		}
		hdrLen, _ := ffs.FileHeaderSize(file)

		if ffs.TestState(state, v.polarity, ffs.FileStateMarkedForUpdate) ||
			ffs.TestState(state, v.polarity, ffs.FileStateDeleted) {
			if size < hdrLen {
				size = 1
			}
			*key += size
			continue
		}

		if ffs.TestState(state, v.polarity, ffs.FileStateDataValid) && size >= hdrLen && size <= uint64(len(file)) {
			r := bytes.Range{Offset: *key, Length: size}
			*key += size
			return r, nil
		}
		*key++
	}
	return bytes.Range{}, ffs.ErrNotFound
}

// Files returns the spans of all valid files in volume order.
func Files(fv []byte) (bytes.Ranges, error) {
	var files bytes.Ranges
	var key uint64
	for {
		r, err := FindNextFile(fv, &key)
		if errors.Is(err, ffs.ErrNotFound) {
			return files, nil
		}
		if err != nil {
			return nil, err
		}
		files = append(files, r)
	}
}

// FindFileByName returns the first valid file called name.
func FindFileByName(fv []byte, name guid.GUID) (bytes.Range, error) {
	return findFile(fv, func(file []byte) bool {
		return guid.GUID(file[:guid.Size]) == name
	}, name.String())
}

// FindFileByType returns the first valid file of type typ.
func FindFileByType(fv []byte, typ ffs.FileType) (bytes.Range, error) {
	return findFile(fv, func(file []byte) bool {
		h, err := ffs.ParseFileHeader(file)
		return err == nil && h.Type == typ
	}, typ.String())
}

func findFile(fv []byte, match func([]byte) bool, what string) (bytes.Range, error) {
	var key uint64
	for {
		r, err := FindNextFile(fv, &key)
		if err != nil {
			if errors.Is(err, ffs.ErrNotFound) {
				return bytes.Range{}, fmt.Errorf("file %s: %w", what, err)
			}
			return bytes.Range{}, err
		}
		if match(fv[r.Offset:r.End()]) {
			return r, nil
		}
	}
}

// lastFileEnd returns the end of the last valid file, or the header
// length when the volume holds no file.
func lastFileEnd(fv []byte, v volume) (uint64, error) {
	end := v.headerLen
	var key uint64
	for {
		r, err := FindNextFile(fv, &key)
		if errors.Is(err, ffs.ErrNotFound) {
			return end, nil
		}
		if err != nil {
			return 0, err
		}
		if r.End() > end {
			end = r.End()
		}
	}
}
