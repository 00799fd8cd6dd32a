// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guided

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/log"
)

// Entry is one registered GUID.
type Entry struct {
	GUID    guid.GUID
	Name    string
	Decoder Decoder
	Encoder Encoder
}

// Registry maps section GUIDs to decoders and encoders.
type Registry struct {
	entries map[guid.GUID]Entry
}

// NewRegistry returns a registry knowing the compressed section GUIDs
// that tools can handle in-process.
func NewRegistry(tools compression.Tools) *Registry {
	r := &Registry{entries: make(map[guid.GUID]Entry)}
	for _, g := range []guid.GUID{compression.LZMAGUID, compression.LZMAX86GUID, compression.BROTLIGUID} {
		g := g
		c := tools.CompressorFromGUID(&g)
		if c == nil {
			continue
		}
		codec := compressorCodec{c}
		r.Register(Entry{GUID: g, Name: c.Name(), Decoder: codec, Encoder: codec})
	}
	return r
}

// Register adds or replaces the entry for e.GUID.
func (r *Registry) Register(e Entry) {
	if r.entries == nil {
		r.entries = make(map[guid.GUID]Entry)
	}
	r.entries[e.GUID] = e
}

// DecoderFor implements Lookup.
func (r *Registry) DecoderFor(g guid.GUID) (Decoder, error) {
	e, ok := r.entries[g]
	if !ok || e.Decoder == nil {
		return nil, fmt.Errorf("no decoder registered for GUID %v: %w", g, ffs.ErrNotFound)
	}
	return e.Decoder, nil
}

// EncoderFor implements EncoderLookup.
func (r *Registry) EncoderFor(g guid.GUID) (Encoder, error) {
	e, ok := r.entries[g]
	if !ok || e.Encoder == nil {
		return nil, fmt.Errorf("no encoder registered for GUID %v: %w", g, ffs.ErrNotFound)
	}
	return e.Encoder, nil
}

// Entries returns the registered entries sorted by name.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].GUID.String() < entries[j].GUID.String()
	})
	return entries
}

// BuiltinPrefix in the TOOL column of a tool definition selects an
// in-process compressor, as in "builtin:LZ4".
const BuiltinPrefix = "builtin:"

// LoadToolDefinitions reads "GUID NAME TOOL" lines and registers an
// external Tool for each. Blank lines and text after '#' are ignored.
// Entries from the file replace in-process ones.
func (r *Registry) LoadToolDefinitions(rd io.Reader, timeout time.Duration) error {
	scanner := bufio.NewScanner(rd)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return fmt.Errorf("line %d: want GUID NAME TOOL, got %d fields: %w", lineNo, len(fields), ffs.ErrInvalidParameter)
		}
		g, err := guid.Parse(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: %v: %w", lineNo, err, ffs.ErrInvalidParameter)
		}
		if name, ok := strings.CutPrefix(fields[2], BuiltinPrefix); ok {
			c := compression.Builtin(name)
			if c == nil {
				return fmt.Errorf("line %d: unknown builtin compressor %q: %w", lineNo, name, ffs.ErrInvalidParameter)
			}
			log.Debugf("GUID %v (%s) handled by builtin %s", *g, fields[1], c.Name())
			r.Register(Entry{GUID: *g, Name: fields[1], Decoder: compressorCodec{c}, Encoder: compressorCodec{c}})
			continue
		}
		tool := &Tool{Path: fields[2], Timeout: timeout}
		log.Debugf("GUID %v (%s) handled by %s", *g, fields[1], tool.Path)
		r.Register(Entry{GUID: *g, Name: fields[1], Decoder: tool, Encoder: tool})
	}
	return scanner.Err()
}

// LoadToolDefinitionsFile is LoadToolDefinitions on a file.
func (r *Registry) LoadToolDefinitionsFile(path string, timeout time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := r.LoadToolDefinitions(f, timeout); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
