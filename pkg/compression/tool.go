// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/log"
)

// DefaultToolTimeout bounds a single external tool run.
const DefaultToolTimeout = 60 * time.Second

// Tool modes understood by EDK2-style tools.
const (
	ToolEncode = "-e"
	ToolDecode = "-d"
)

// RunFileTool exchanges data with an EDK2-style tool through temp files.
// It writes input to a fresh file, runs `path <mode> -o <output> <input>`
// and returns the content of the output file. Both files are removed on
// every path. A tool exiting with an error is reported as ffs.ErrAborted.
func RunFileTool(ctx context.Context, path string, timeout time.Duration, mode string, input []byte) (_ []byte, err error) {
	if path == "" {
		return nil, fmt.Errorf("no tool configured")
	}
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	dir, err := os.MkdirTemp("", "fvtools")
	if err != nil {
		return nil, err
	}
	inPath := filepath.Join(dir, "input")
	outPath := filepath.Join(dir, "output")
	defer func() {
		var cleanup *multierror.Error
		for _, p := range []string{inPath, outPath, dir} {
			if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
				cleanup = multierror.Append(cleanup, rmErr)
			}
		}
		if cleanupErr := cleanup.ErrorOrNil(); cleanupErr != nil {
			err = multierror.Append(err, cleanupErr)
		}
	}()

	if err := os.WriteFile(inPath, input, 0600); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, mode, "-o", outPath, inPath)
	log.Debugf("running %v", cmd.Args)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", path, mode, ctx.Err())
		}
		return nil, fmt.Errorf("%s %s: %v: %s: %w", path, mode, err, out, ffs.ErrAborted)
	}
	return os.ReadFile(outPath)
}
