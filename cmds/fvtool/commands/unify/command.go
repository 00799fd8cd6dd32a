// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unify

import (
	"fmt"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	BlockSize string `short:"b" long:"block-size" description:"new block size" required:"true"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "rewrites the block map with a single block size"
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
	blockSize, err := commands.ParseSize(cmd.BlockSize)
	if err != nil {
		return err
	}
	if blockSize > 0xFFFFFFFF {
		return commands.ErrArgs{Err: fmt.Errorf("block size 0x%x does not fit 32 bits", blockSize)}
	}

	volume, err := cmd.Read()
	if err != nil {
		return err
	}
	if err := fv.UnifyBlockSizes(volume, uint32(blockSize)); err != nil {
		return fmt.Errorf("unable to unify block sizes: %w", err)
	}
	return cmd.Write(volume)
}
