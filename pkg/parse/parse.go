// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parse searches nested sections for the first executable image.
package parse

import (
	"context"
	"errors"
	"fmt"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/ffs"
	"github.com/linuxboot/fvtools/pkg/fv"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/guided"
	"github.com/linuxboot/fvtools/pkg/log"
)

// DefaultMaxDepth bounds how deep encapsulation sections are followed.
const DefaultMaxDepth = 16

// Image is an executable section found by the parser.
type Image struct {
	Type ffs.SectionType
	// Data is the section content after the common header.
	Data []byte
	// Depth counts the encapsulation sections around the image.
	Depth int
}

// Parser finds PE32 and TE images. Codec and Lookup may be nil, in which
// case compressed and tool-processed sections are skipped.
type Parser struct {
	Codec    compression.Codec
	Lookup   guided.Lookup
	MaxDepth int
}

func (p *Parser) maxDepth() int {
	if p.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return p.MaxDepth
}

// FindImage returns the first PE32 or TE section in sections, looking
// into compression and GUID-defined sections. It returns ffs.ErrAborted
// if there is none.
func (p *Parser) FindImage(ctx context.Context, sections []byte) (*Image, error) {
	return p.find(ctx, sections, 0)
}

func (p *Parser) find(ctx context.Context, sections []byte, depth int) (*Image, error) {
	if depth > p.maxDepth() {
		return nil, fmt.Errorf("sections nested deeper than %d: %w", p.maxDepth(), ffs.ErrVolumeCorrupted)
	}
	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cursor = ffs.Align4(cursor)
		if cursor < uint64(len(sections)) && ffs.IsPadding(sections[cursor:], 0xFF) {
			cursor += ffs.SectionHeaderMinLength
			continue
		}
		r, err := ffs.NextSection(sections, &cursor)
		if err != nil {
			return nil, fmt.Errorf("no PE32 or TE section: %w", ffs.ErrAborted)
		}
		section := sections[r.Offset:r.End()]
		h, err := ffs.ParseSectionHeader(section)
		if err != nil {
			return nil, err
		}

		switch h.Type {
		case ffs.SectionTypePE32, ffs.SectionTypeTE:
			return &Image{Type: h.Type, Data: section[h.HeaderSize():], Depth: depth}, nil
		case ffs.SectionTypeCompression:
			if p.Codec == nil {
				log.Debugf("skipping compression section at %#x, no codec", r.Offset)
				continue
			}
			inner, err := compression.UnwrapCompressionSection(ctx, section, p.Codec)
			if err != nil {
				log.Debugf("compression section at %#x: %v", r.Offset, err)
				continue
			}
			img, err := p.find(ctx, inner, depth+1)
			if err == nil || errors.Is(err, ffs.ErrVolumeCorrupted) || ctx.Err() != nil {
				return img, err
			}
		case ffs.SectionTypeGUIDDefined:
			inner, err := p.extract(ctx, section)
			if err != nil {
				log.Debugf("GUID-defined section at %#x: %v", r.Offset, err)
				continue
			}
			img, err := p.find(ctx, inner, depth+1)
			if err == nil || errors.Is(err, ffs.ErrVolumeCorrupted) || ctx.Err() != nil {
				return img, err
			}
		default:
			// RAW, PIC, volume images, depex, version, UI and unknown
			// types don't contain images we look for.
		}
	}
}

// extract returns the sections inside a GUID-defined section. CRC32
// sections are entered at their data offset without checking the CRC.
func (p *Parser) extract(ctx context.Context, section []byte) ([]byte, error) {
	s, err := guided.ParseSection(section)
	if err != nil {
		return nil, err
	}
	if s.GUID == guided.CRC32GUID {
		return s.Data(section), nil
	}
	return guided.Extract(ctx, section, p.Lookup)
}

// FindImageInFile searches the sections of an FFS file.
func (p *Parser) FindImageInFile(ctx context.Context, file []byte) (*Image, error) {
	hdrLen, err := ffs.FileHeaderSize(file)
	if err != nil {
		return nil, err
	}
	size, err := ffs.FileSize(file)
	if err != nil {
		return nil, err
	}
	if size < hdrLen || size > uint64(len(file)) {
		return nil, fmt.Errorf("file size 0x%x in buffer of 0x%x: %w", size, len(file), ffs.ErrVolumeCorrupted)
	}
	return p.FindImage(ctx, file[hdrLen:size])
}

// FindImageInVolume searches the file with the given name in a volume.
func (p *Parser) FindImageInVolume(ctx context.Context, volume []byte, name guid.GUID) (*Image, error) {
	r, err := fv.FindFileByName(volume, name)
	if err != nil {
		return nil, err
	}
	return p.FindImageInFile(ctx, volume[r.Offset:r.End()])
}
