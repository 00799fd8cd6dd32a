// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guided

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/fvtools/pkg/compression"
)

func TestToolExtract(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	// Decoding drops the first byte of the input.
	script := "#!/bin/sh\n[ \"$1\" = \"-d\" ] || exit 2\ntail -c +2 \"$4\" > \"$3\"\n"
	path := filepath.Join(t.TempDir(), "decode.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0700))

	r := NewRegistry(compression.Tools{})
	r.Register(Entry{GUID: vendorGUID, Name: "DROP", Decoder: &Tool{Path: path, Timeout: 5 * time.Second}})

	section, err := BuildSection(vendorGUID, ProcessingRequired, 0, []byte{0xFF, 'o', 'k'})
	require.NoError(t, err)
	got, err := Extract(context.Background(), section, r)
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), got)

	_, err = r.EncoderFor(vendorGUID)
	require.Error(t, err)
}
