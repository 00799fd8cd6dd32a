// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gensec

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/linuxboot/fvtools/pkg/ffs"
)

// MaxAlignment is the largest section alignment an input may ask for.
const MaxAlignment = 16 << 20

// ParseAlignment reads an alignment such as "8", "4K" or "1M". Zero means
// no alignment.
func ParseAlignment(s string) (uint64, error) {
	str := strings.ToUpper(strings.TrimSpace(s))
	mult := uint64(1)
	switch {
	case strings.HasSuffix(str, "K"):
		mult, str = 1<<10, strings.TrimSuffix(str, "K")
	case strings.HasSuffix(str, "M"):
		mult, str = 1<<20, strings.TrimSuffix(str, "M")
	}
	n, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("alignment %q: %v: %w", s, err, ffs.ErrInvalidParameter)
	}
	align := n * mult
	if align != 0 && (bits.OnesCount64(align) != 1 || align > MaxAlignment) {
		return 0, fmt.Errorf("alignment %q is not a power of two up to 16M: %w", s, ffs.ErrInvalidParameter)
	}
	return align, nil
}
