// Copyright 2019 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guid2english

import (
	"io"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/transform"

	"github.com/linuxboot/fvtools/pkg/fv"
	"github.com/linuxboot/fvtools/pkg/guid"
)

const (
	shellGUID   = "7C04A583-9E3E-4F1C-AD65-E05268D0B4D1"
	smbusGUID   = "D5125E0F-1226-444F-A218-0085996ED5DA"
	unknownGUID = "FFF4A583-9E3E-4F1C-BD65-E05268D0B4D1"
)

var testNames = map[guid.GUID]string{
	*guid.MustParse(shellGUID): "Shell",
	*guid.MustParse(smbusGUID): "Smbus",
}

func translate(t *testing.T, tmpl, input string) string {
	t.Helper()
	mapper := NewTemplateMapper(template.Must(template.New("guid2english").Parse(tmpl)), testNames)
	out, err := io.ReadAll(transform.NewReader(strings.NewReader(input), New(mapper)))
	require.NoError(t, err)
	return string(out)
}

func TestTransformer(t *testing.T) {
	const named = "{{.GUID}} ({{.Name}})"

	for _, tc := range []struct {
		name  string
		tmpl  string
		input string
		want  string
	}{
		{"empty", "", "", ""},
		{"GUID only", "{{.GUID}}", shellGUID, shellGUID},
		{"name only", "{{.Name}}", shellGUID, "Shell"},
		{"lower case input", named, strings.ToLower(shellGUID), shellGUID + " (Shell)"},
		{"unknown", named, strings.ToLower(unknownGUID), unknownGUID + " (UNKNOWN)"},
		{"conditional", "{{if .IsKnown}}{{.Name}}{{else}}?{{end}}", unknownGUID + " " + smbusGUID, "? Smbus"},
		{"no GUID", named, "FV header at 0x1000, no GUIDs here", "FV header at 0x1000, no GUIDs here"},
		{"trailing hex", named, "checksum deadbeef", "checksum deadbeef"},
		{
			"embedded in lines",
			named,
			"file " + shellGUID + " ok\nfile " + unknownGUID + " missing\n",
			"file " + shellGUID + " (Shell) ok\nfile " + unknownGUID + " (UNKNOWN) missing\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, translate(t, tc.tmpl, tc.input))
		})
	}
}

// transform.NewReader works on 4096 byte buffers.
func TestTransformerBufferBoundaries(t *testing.T) {
	const named = "{{.GUID}} ({{.Name}})"
	filler := strings.Repeat("ghijklmnopqrstuvwxyz", 204)
	shell := shellGUID + " (Shell)"

	for _, tc := range []struct {
		name  string
		tmpl  string
		input string
		want  string
	}{
		{"output grows past dst", named, strings.Repeat(shellGUID, 112), strings.Repeat(shell, 112)},
		{"GUID across the boundary", named, filler + shellGUID, filler + shell},
		{"two buffers of filler", named, filler + filler + shellGUID, filler + filler + shell},
		{"GUID ends the buffer", named, filler[:4096-36] + shellGUID, filler[:4096-36] + shell},
		{
			"GUID at both ends",
			"{{.GUID}} {{.GUID}} ({{.Name}})",
			shellGUID + filler[:4096-72] + shellGUID,
			shellGUID + " " + shell + filler[:4096-72] + shellGUID + " " + shell,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, translate(t, tc.tmpl, tc.input))
		})
	}
}

func TestKnown(t *testing.T) {
	tmpl := template.Must(template.New("guid2english").Parse("{{.Name}}"))
	out, _, err := transform.String(New(NewTemplateMapper(tmpl, nil)),
		"fs "+fv.FFS2.String()+" crc FC1BCDB0-7D31-49AA-936A-A4600D9DD083")
	require.NoError(t, err)
	require.Equal(t, "fs FFS2 crc CRC32", out)
}
