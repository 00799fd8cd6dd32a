// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remove

import (
	"fmt"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	Name string `short:"n" long:"name" description:"name GUID of the file" required:"true"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "removes a file and moves the following files down"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The volume is rebuilt without the file. Files after it keep their order and alignment."
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

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	if err := fv.RemoveFile(volume, name); err != nil {
		return fmt.Errorf("unable to remove file %v: %w", name, err)
	}
	return cmd.Write(volume)
}
