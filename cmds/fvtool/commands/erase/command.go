// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package erase

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
	return "marks a file deleted and erases it"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The file is erased in place, other files are not moved."
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
	if err := fv.RemoveFileNew(volume, name); err != nil {
		return fmt.Errorf("unable to remove file %v: %w", name, err)
	}
	return cmd.Write(volume)
}
