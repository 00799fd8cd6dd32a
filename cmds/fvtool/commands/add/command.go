// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package add

import (
	"fmt"
	"os"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	Extend bool `short:"e" long:"extend" description:"grow the volume when a file doesn't fit"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "adds FFS files to the volume"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Each file is placed in the first 8-byte aligned free space large enough to hold it."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) == 0 {
		return commands.ErrArgs{Err: fmt.Errorf("no FFS file given")}
	}

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	for _, path := range args {
		file, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read the FFS file '%s': %w", path, err)
		}
		if cmd.Extend {
			volume, err = fv.AddFileWithExtend(volume, file)
		} else {
			err = fv.AddFile(volume, file)
		}
		if err != nil {
			return fmt.Errorf("unable to add '%s': %w", path, err)
		}
	}
	return cmd.Write(volume)
}
