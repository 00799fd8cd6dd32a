// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// fvtool creates, inspects and edits UEFI firmware volumes.
//
// Synopsis:
//
//	fvtool create -f FV_FILE --size SIZE [options]
//	fvtool show -f FV_FILE [--format=json]
//	fvtool add -f FV_FILE [--extend] FFS_FILE...
//	fvtool add-vtf -f FV_FILE FFS_FILE
//	fvtool remove -f FV_FILE -n NAME
//	fvtool erase -f FV_FILE -n NAME
//	fvtool extend -f FV_FILE --size SIZE
//	fvtool unify -f FV_FILE --block-size SIZE
//	fvtool shrink -f FV_FILE
//	fvtool validate -f FV_FILE
//	fvtool find-image -f FV_FILE -n NAME -o OUTPUT
//	fvtool package-raw -n NAME -o FFS_FILE RAW_FILE
//
// An example:
//
//	fvtool create -f dxe.fv --size 1MiB --name 5C60F367-A505-419A-859E-2A4FF6CA6FE5
//	fvtool package-raw -n 9E21FD93-9C72-4C15-8C4B-E77F1DB2D792 -o blob.ffs blob.bin
//	fvtool add -f dxe.fv blob.ffs
//	fvtool remove -f dxe.fv -n 9E21FD93-9C72-4C15-8C4B-E77F1DB2D792
//	fvtool shrink -f dxe.fv
//	fvtool show -f dxe.fv
//
// Description:
//
//	create:      Creates an empty volume
//	show:        Prints the volume header and files
//	add:         Adds FFS files in free space
//	add-vtf:     Adds a volume top file at the end of the volume
//	remove:      Removes a file and packs the files after it
//	erase:       Marks a file deleted and erases it in place
//	extend:      Grows the volume
//	unify:       Rewrites the block map with a single block size
//	shrink:      Cuts the volume after the last file
//	validate:    Checks headers, checksums and file placement
//	find-image:  Extracts the first PE32 or TE image of a file
//	package-raw: Wraps a raw file in a FREEFORM FFS file
package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/fvtools/cmds/fvtool/commands"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/add"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/addvtf"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/create"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/erase"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/extend"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/findimage"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/packageraw"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/remove"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/show"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/shrink"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/unify"
	"github.com/linuxboot/fvtools/cmds/fvtool/commands/validate"
	"github.com/linuxboot/fvtools/pkg/log"
)

var (
	knownCommands = map[string]commands.Command{
		"create":      &create.Command{},
		"show":        &show.Command{},
		"add":         &add.Command{},
		"add-vtf":     &addvtf.Command{},
		"remove":      &remove.Command{},
		"erase":       &erase.Command{},
		"extend":      &extend.Command{},
		"unify":       &unify.Command{},
		"shrink":      &shrink.Command{},
		"validate":    &validate.Command{},
		"find-image":  &findimage.Command{},
		"package-raw": &packageraw.Command{},
	}
)

type globalOptions struct {
	Verbose bool `short:"v" long:"verbose" description:"print informational messages"`
	Debug   bool `short:"d" long:"debug" description:"print debug messages"`
}

func main() {
	log.SetComponent("fvtool")

	var opts globalOptions
	flagsParser := flags.NewParser(&opts, flags.Default)
	flagsParser.CommandHandler = func(command flags.Commander, args []string) error {
		debugLevel := 0
		if opts.Debug {
			debugLevel = 1
		}
		log.SetVerbosity(false, opts.Verbose, debugLevel)
		if command == nil {
			return nil
		}
		return command.Execute(args)
	}
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	// parse arguments and execute the appropriate command
	if _, err := flagsParser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.Fatalf("%v", err)
	}
}
