// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package addvtf

import (
	"fmt"
	"os"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "adds a volume top file"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The file is placed so that it ends at the end of the volume. An existing volume top file is not moved."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 1 {
		return commands.ErrArgs{Err: fmt.Errorf("expected exactly one FFS file")}
	}

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	file, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("unable to read the FFS file '%s': %w", args[0], err)
	}
	if err := fv.AddVtfFile(volume, file); err != nil {
		return fmt.Errorf("unable to add the volume top file: %w", err)
	}
	return cmd.Write(volume)
}
