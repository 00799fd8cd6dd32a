// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package show

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/transform"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/fv"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/guid2english"
	"github.com/linuxboot/fvtools/pkg/guided"
	"github.com/linuxboot/fvtools/pkg/log"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	Format  *string `long:"format" description:"output format [text, json]"`
	English bool    `short:"e" long:"english" description:"print the names of known GUIDs"`

	out io.Writer
}

type Format int

const (
	FormatUndefined = Format(iota)
	FormatText
	FormatJSON
)

func ParseFormat(s string) Format {
	switch strings.Trim(strings.ToLower(s), " ") {
	case "text":
		return FormatText
	case "json":
		return FormatJSON
	}
	return FormatUndefined
}

// File is one row of the file listing.
type File struct {
	Offset uint64
	Size   uint64
	Name   guid.GUID
	Type   ffs.FileType
	State  ffs.FileState
	// Alignment of the file data requested by the attributes.
	Alignment uint64
	UI        string `json:",omitempty"`
}

// Volume is what show prints.
type Volume struct {
	Header *fv.Header
	Files  []File
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the volume header and files"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}

	format := FormatText
	if cmd.Format != nil {
		format = ParseFormat(*cmd.Format)
		if format == FormatUndefined {
			return commands.ErrArgs{Err: fmt.Errorf("unknown format '%s'", *cmd.Format)}
		}
	}

	data, err := cmd.Read()
	if err != nil {
		return err
	}
	volume, err := Describe(data)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cmd.out != nil {
		out = cmd.out
	}
	var english *transform.Writer
	if cmd.English {
		english = transform.NewWriter(out, englishNames())
		out = english
	}
	switch format {
	case FormatText:
		volume.Render(out)
	case FormatJSON:
		b, err := json.Marshal(volume)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", b)
	}
	if english != nil {
		return english.Close()
	}
	return nil
}

func englishNames() transform.Transformer {
	names := guid2english.Known()
	for _, e := range guided.NewRegistry(compression.DefaultTools).Entries() {
		names[e.GUID] = e.Name
	}
	tmpl := template.Must(template.New("show").Parse("{{.GUID}}{{if .IsKnown}} ({{.Name}}){{end}}"))
	return guid2english.New(guid2english.NewTemplateMapper(tmpl, names))
}

// Describe decodes the header and the valid files of a volume.
func Describe(data []byte) (*Volume, error) {
	h, err := fv.ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the volume header: %w", err)
	}
	ranges, err := fv.Files(data)
	if err != nil {
		return nil, fmt.Errorf("unable to list files: %w", err)
	}

	v := &Volume{Header: h}
	for _, r := range ranges {
		file := data[r.Offset:r.End()]
		fh, err := ffs.ParseFileHeader(file)
		if err != nil {
			return nil, err
		}
		v.Files = append(v.Files, File{
			Offset:    r.Offset,
			Size:      r.Length,
			Name:      fh.Name,
			Type:      fh.Type,
			State:     ffs.HighestState(fh.State, h.ErasePolarity()),
			Alignment: fh.Alignment(),
			UI:        fileUI(file),
		})
	}
	return v, nil
}

// fileUI returns the user interface name of a file. A name that can't be
// decoded is left empty.
func fileUI(file []byte) string {
	ui, err := ffs.FileName(file)
	if err != nil {
		log.Debugf("no user interface name: %v", err)
	}
	return ui
}

// Render prints the volume as two tables.
func (v *Volume) Render(w io.Writer) {
	h := table.NewWriter()
	h.SetOutputMirror(w)
	h.SetTitle("Firmware Volume")
	fsName := v.Header.FileSystemGUID.String()
	if name, ok := fv.FVGUIDs[v.Header.FileSystemGUID]; ok {
		fsName = fmt.Sprintf("%s (%s)", fsName, name)
	}
	h.AppendRow(table.Row{"File System", fsName})
	h.AppendRow(table.Row{"Size", fmt.Sprintf("%#x (%s)", v.Header.Size(), humanize.IBytes(v.Header.Size()))})
	h.AppendRow(table.Row{"Attributes", fmt.Sprintf("%#08x", v.Header.Attributes)})
	h.AppendRow(table.Row{"Erase Polarity", fmt.Sprintf("%#02x", v.Header.ErasePolarity())})
	h.AppendRow(table.Row{"Header Length", fmt.Sprintf("%#x", v.Header.HeaderLen)})
	h.AppendRow(table.Row{"Revision", v.Header.Revision})
	for i, b := range v.Header.Blocks {
		h.AppendRow(table.Row{fmt.Sprintf("Blocks[%d]", i), fmt.Sprintf("%d x %#x", b.Count, b.Size)})
	}
	if v.Header.Ext != nil {
		h.AppendRow(table.Row{"Name", v.Header.Ext.FVName.String()})
	}
	h.Render()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Files")
	t.AppendHeader(table.Row{"Offset", "Size", "Name", "Type", "State", "Align", "UI"})
	var used uint64
	for _, f := range v.Files {
		t.AppendRow(table.Row{
			fmt.Sprintf("%#x", f.Offset),
			humanize.IBytes(f.Size),
			f.Name.String(),
			f.Type.String(),
			f.State.String(),
			humanize.IBytes(f.Alignment),
			f.UI,
		})
		used += f.Size
	}
	t.AppendFooter(table.Row{"", humanize.IBytes(used), fmt.Sprintf("%d files", len(v.Files))})
	t.Render()
}
