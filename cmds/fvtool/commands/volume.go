// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/fvtools/pkg/guid"
)

// Volume is the option naming the firmware volume file a command works on.
type Volume struct {
	Path string `short:"f" long:"fv" description:"path to the firmware volume" required:"true"`
}

// Read returns the content of the volume file.
func (v *Volume) Read() ([]byte, error) {
	data, err := os.ReadFile(v.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to read the firmware volume file '%s': %w", v.Path, err)
	}
	return data, nil
}

// Write replaces the volume file with data.
func (v *Volume) Write(data []byte) error {
	if err := os.WriteFile(v.Path, data, 0o644); err != nil {
		return fmt.Errorf("unable to write the firmware volume file '%s': %w", v.Path, err)
	}
	return nil
}

// ParseSize accepts plain or 0x prefixed numbers and human sizes such as
// "64KiB".
func ParseSize(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 0, 64); err == nil {
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, ErrArgs{Err: fmt.Errorf("size '%s': %w", s, err)}
	}
	return n, nil
}

// ParseGUID is guid.Parse returning ErrArgs.
func ParseGUID(s string) (guid.GUID, error) {
	g, err := guid.Parse(s)
	if err != nil {
		return guid.GUID{}, ErrArgs{Err: err}
	}
	return *g, nil
}
