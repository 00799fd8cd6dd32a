// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packageraw

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/log"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	Name     string `short:"n" long:"name" description:"name GUID of the file, derived from the input file name if empty"`
	Output   string `short:"o" long:"output" description:"path of the FFS file to write" required:"true"`
	Polarity uint8  `short:"p" long:"polarity" description:"erase polarity of the target volume" default:"255"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "wraps a raw file in a FREEFORM FFS file"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return `The FFS file holds the input in a single RAW section and can be added with 'fvtool add'.
Without --name the file GUID is derived from the base name of the input, so
packaging the same file twice gives the same GUID.`
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 1 {
		return commands.ErrArgs{Err: fmt.Errorf("expected exactly one raw file")}
	}
	if cmd.Polarity != 0 && cmd.Polarity != 0xFF {
		return commands.ErrArgs{Err: fmt.Errorf("erase polarity must be 0 or 255")}
	}
	name := guid.FromName(filepath.Base(args[0]))
	if cmd.Name != "" {
		parsed, err := commands.ParseGUID(cmd.Name)
		if err != nil {
			return err
		}
		name = parsed
	} else {
		log.Infof("using name %v for '%s'", name, args[0])
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("unable to read '%s': %w", args[0], err)
	}
	file, err := ffs.PackageFreeformRawFile(name, raw, cmd.Polarity)
	if err != nil {
		return fmt.Errorf("unable to package '%s': %w", args[0], err)
	}
	return os.WriteFile(cmd.Output, file, 0o644)
}
