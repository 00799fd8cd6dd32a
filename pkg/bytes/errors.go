// Copyright 2017-2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytes

import (
	"fmt"
)

// ErrEndLessThanStart means `endIdx` value is less than `startIdx` value
type ErrEndLessThanStart struct {
	StartIdx uint64
	EndIdx   uint64
}

func (err *ErrEndLessThanStart) Error() string {
	return fmt.Sprintf("end index is less than start index: %d < %d",
		err.EndIdx, err.StartIdx)
}

// ErrEndGreaterThanLength means `endIdx` is greater than the length.
type ErrEndGreaterThanLength struct {
	Length uint64
	EndIdx uint64
}

func (err *ErrEndGreaterThanLength) Error() string {
	return fmt.Sprintf("end index is outside of the bounds: %d > %d",
		err.EndIdx, err.Length)
}

// ErrOverflow means offset+length does not fit into 64 bits.
type ErrOverflow struct {
	Offset uint64
	Length uint64
}

func (err *ErrOverflow) Error() string {
	return fmt.Sprintf("range overflows: offset %#x + length %#x", err.Offset, err.Length)
}
