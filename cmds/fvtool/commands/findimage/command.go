// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package findimage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/guided"
	"github.com/linuxboot/fvtools/pkg/log"
	"github.com/linuxboot/fvtools/pkg/parse"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	Name        string        `short:"n" long:"name" description:"name GUID of the file" required:"true"`
	Output      string        `short:"o" long:"output" description:"path to write the image to" required:"true"`
	GUIDTools   string        `long:"guidtools" env:"FVTOOLS_GUIDTOOLS" description:"GUID tool definition file"`
	Tiano       string        `long:"tiano" env:"FVTOOLS_TIANO" default:"TianoCompress" description:"EFI standard compression tool"`
	ToolTimeout time.Duration `long:"tool-timeout" env:"FVTOOLS_TOOL_TIMEOUT" default:"60s" description:"timeout of external tools"`
	MaxDepth    int           `long:"max-depth" description:"maximal section nesting" default:"16"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "extracts the first PE32 or TE image of a file"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Compression and GUID-defined sections are unwrapped on the way to the image."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}
	name, err := commands.ParseGUID(cmd.Name)
	if err != nil {
		return err
	}

	registry := guided.NewRegistry(compression.DefaultTools)
	if cmd.GUIDTools != "" {
		if err := registry.LoadToolDefinitionsFile(cmd.GUIDTools, cmd.ToolTimeout); err != nil {
			return err
		}
	}
	p := &parse.Parser{
		Codec:    &compression.SystemTiano{Path: cmd.Tiano, Timeout: cmd.ToolTimeout},
		Lookup:   registry,
		MaxDepth: cmd.MaxDepth,
	}

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	img, err := p.FindImageInVolume(context.Background(), volume, name)
	if err != nil {
		return fmt.Errorf("no image in file %v: %w", name, err)
	}
	log.Infof("found %v image of 0x%x bytes at depth %d", img.Type, len(img.Data), img.Depth)
	return os.WriteFile(cmd.Output, img.Data, 0o644)
}
