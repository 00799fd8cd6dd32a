// Copyright 2019 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytes provides spans over flat byte buffers and the bounds checks
// that guard them.
package bytes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Range is an offset+length pair referencing bytes of a buffer owned by
// somebody else.
type Range struct {
	Offset uint64
	Length uint64
}

func (r Range) String() string {
	return fmt.Sprintf(`{"Offset":"0x%x", "Length":"0x%x"}`, r.Offset, r.Length)
}

// End returns the exclusive end offset of the range.
func (r Range) End() uint64 {
	return r.Offset + r.Length
}

// Intersect returns True if ranges "r" and "cmp" has at least
// one byte with the same offset.
func (r Range) Intersect(cmp Range) bool {
	if r.Length == 0 || cmp.Length == 0 {
		return false
	}
	if r.End() <= cmp.Offset {
		return false
	}
	if r.Offset >= cmp.End() {
		return false
	}
	return true
}

// Check verifies that the range fits into a buffer of length bufLen.
func (r Range) Check(bufLen uint64) error {
	end := r.Offset + r.Length
	if end < r.Offset {
		return &ErrOverflow{Offset: r.Offset, Length: r.Length}
	}
	return CheckBounds(bufLen, r.Offset, end)
}

// Slice returns the bytes referenced by the range. The range is validated
// against buf first.
func (r Range) Slice(buf []byte) ([]byte, error) {
	if err := r.Check(uint64(len(buf))); err != nil {
		return nil, err
	}
	return buf[r.Offset:r.End()], nil
}

// NewRange validates the span [offset, offset+length) against a buffer of
// length bufLen and returns it.
func NewRange(bufLen, offset, length uint64) (Range, error) {
	r := Range{Offset: offset, Length: length}
	if err := r.Check(bufLen); err != nil {
		return Range{}, err
	}
	return r, nil
}

// CheckBounds checks if starting index `startIdx`, ending index `endIdx` and
// the buffer length pass sanity checks:
// * startIdx <= endIdx
// * endIdx <= length
func CheckBounds(length, startIdx, endIdx uint64) error {
	var result *multierror.Error
	if endIdx < startIdx {
		result = multierror.Append(result, &ErrEndLessThanStart{StartIdx: startIdx, EndIdx: endIdx})
	}
	if endIdx > length {
		result = multierror.Append(result, &ErrEndGreaterThanLength{Length: length, EndIdx: endIdx})
	}
	return result.ErrorOrNil()
}

// Ranges is a helper to manipulate multiple `Range`-s at once
type Ranges []Range

func (s Ranges) String() string {
	r := make([]string, 0, len(s))
	for _, oneRange := range s {
		r = append(r, oneRange.String())
	}
	return `[` + strings.Join(r, `, `) + `]`
}

// Sort sorts the slice by field Offset
func (s Ranges) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Offset < s[j].Offset
	})
}

// IsIn returns if the index is covered by this ranges
func (s Ranges) IsIn(index uint64) bool {
	for _, r := range s {
		// Offset is inclusive, End is exclusive, like slice indices.
		if r.Offset <= index && index < r.End() {
			return true
		}
	}
	return false
}

// Overlapping returns the first pair of ranges sharing at least one byte.
func (s Ranges) Overlapping() (Range, Range, bool) {
	for i := range s {
		for j := i + 1; j < len(s); j++ {
			if s[i].Intersect(s[j]) {
				return s[i], s[j], true
			}
		}
	}
	return Range{}, Range{}, false
}

// IsErased checks that every byte of buf equals the erase polarity byte.
func IsErased(buf []byte, polarity byte) bool {
	for _, c := range buf {
		if c != polarity {
			return false
		}
	}
	return true
}

// Erase sets every byte of buf to the erase polarity byte.
func Erase(buf []byte, polarity byte) {
	for i := range buf {
		buf[i] = polarity
	}
}
