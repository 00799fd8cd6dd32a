// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extend

import (
	"fmt"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	Size string `short:"s" long:"size" description:"number of bytes to add, rounded up to whole blocks" required:"true"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "grows the volume"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Blocks of the first block map entry are appended and erased."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}
	size, err := commands.ParseSize(cmd.Size)
	if err != nil {
		return err
	}

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	extended, err := fv.Extend(volume, size)
	if err != nil {
		return fmt.Errorf("unable to extend the volume: %w", err)
	}
	return cmd.Write(extended)
}
