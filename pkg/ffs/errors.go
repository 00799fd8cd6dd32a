// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"errors"
	"fmt"
)

// Error kinds shared by every package operating on volumes and sections.
// Callers test for them with errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotFound         = errors.New("not found")
	ErrVolumeCorrupted  = errors.New("volume corrupted")
	ErrOutOfResources   = errors.New("out of resources")
	ErrBufferTooSmall   = errors.New("buffer too small")
	ErrAborted          = errors.New("aborted")
)

// BufferTooSmallError is returned by codecs when the destination buffer
// cannot hold the result. Required is the size that would have been enough.
type BufferTooSmallError struct {
	Required uint64
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("%v: need 0x%x bytes", ErrBufferTooSmall, e.Required)
}

// Is makes errors.Is(err, ErrBufferTooSmall) match.
func (e *BufferTooSmallError) Is(target error) bool {
	return target == ErrBufferTooSmall
}
