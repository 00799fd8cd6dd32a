// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package create

import (
	"fmt"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/pkg/fv"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	commands.Volume
	Size       string  `short:"s" long:"size" description:"volume size, e.g. 0x10000 or 64KiB" required:"true"`
	BlockSize  string  `short:"b" long:"block-size" description:"block size" default:"4096"`
	Attributes *uint32 `short:"a" long:"attributes" description:"volume attributes (default 0x4FEFF)"`
	FFS3       bool    `long:"ffs3" description:"use the FFS3 file system GUID"`
	Name       *string `short:"n" long:"name" description:"volume name GUID, stored in an extended header"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "creates an empty firmware volume"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "The volume is erased according to the erase polarity attribute. An existing file is overwritten."
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
	blockSize, err := commands.ParseSize(cmd.BlockSize)
	if err != nil {
		return err
	}
	if blockSize > 0xFFFFFFFF {
		return commands.ErrArgs{Err: fmt.Errorf("block size 0x%x does not fit 32 bits", blockSize)}
	}

	opts := fv.Options{Size: size, BlockSize: uint32(blockSize)}
	if cmd.Attributes != nil {
		opts.Attributes = *cmd.Attributes
	}
	if cmd.FFS3 {
		opts.FileSystemGUID = fv.FFS3
	}
	if cmd.Name != nil {
		name, err := commands.ParseGUID(*cmd.Name)
		if err != nil {
			return err
		}
		opts.Name = &name
	}

	volume, err := fv.New(opts)
	if err != nil {
		return fmt.Errorf("unable to create the volume: %w", err)
	}
	return cmd.Write(volume)
}
