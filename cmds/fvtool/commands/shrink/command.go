// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shrink

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
	"github.com/linuxboot/fvtools/pkg/log"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "cuts the volume after its last file"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The block map is rewritten with 128 byte blocks. A volume top file keeps the volume at its size."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if err := commands.NoExtraArgs(args); err != nil {
		return err
	}

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	shrunk, err := fv.ShrinkWrap(volume)
	if err != nil {
		return fmt.Errorf("unable to shrink the volume: %w", err)
	}
	log.Infof("volume shrunk from %s to %s",
		humanize.IBytes(uint64(len(volume))), humanize.IBytes(uint64(len(shrunk))))
	return cmd.Write(shrunk)
}
