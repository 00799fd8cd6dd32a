// Copyright 2019 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guid2english provides a transform.Transformer which replaces all
// GUIDs in the input with their known English representation.
package guid2english

import (
	"bytes"
	"regexp"
	"text/template"

	"golang.org/x/text/transform"

	"github.com/linuxboot/fvtools/pkg/compression"
	"github.com/linuxboot/fvtools/pkg/fv"
	"github.com/linuxboot/fvtools/pkg/guid"
	"github.com/linuxboot/fvtools/pkg/guided"
	"github.com/linuxboot/fvtools/pkg/log"
)

var guidRegex = regexp.MustCompile(
	"[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}",
)

// partialGUIDRegex matches what could be the start of a GUID cut by the
// end of the source buffer.
var partialGUIDRegex = regexp.MustCompile(
	"[-a-fA-F0-9]{1,36}$",
)

// Known returns the names of the GUIDs fvtools knows about.
func Known() map[guid.GUID]string {
	names := map[guid.GUID]string{
		compression.LZMAGUID:    "LZMA",
		compression.LZMAX86GUID: "LZMAX86",
		compression.BROTLIGUID:  "BROTLI",
		guided.CRC32GUID:        "CRC32",
	}
	for g, name := range fv.FVGUIDs {
		names[g] = name
	}
	return names
}

// Mapper converts a GUID to a string.
type Mapper interface {
	Map(guid.GUID) []byte
}

// TemplateMapper implements mapper using Go's text/template package. The
// template can refer to the following variables:
//   - {{.GUID}}: The GUID being mapped
//   - {{.Name}}: The English name of the GUID or "UNKNOWN"
//   - {{.IsKnown}}: Set to true when the English name is known
type TemplateMapper struct {
	tmpl  *template.Template
	names map[guid.GUID]string
}

// NewTemplateMapper creates a new TemplateMapper given a Template and the
// names to use. Nil names selects Known.
func NewTemplateMapper(tmpl *template.Template, names map[guid.GUID]string) *TemplateMapper {
	if names == nil {
		names = Known()
	}
	return &TemplateMapper{
		tmpl:  tmpl,
		names: names,
	}
}

// Map implements the Mapper.Map() function.
func (f *TemplateMapper) Map(g guid.GUID) []byte {
	name, isKnown := f.names[g]
	if !isKnown {
		name = "UNKNOWN"
	}

	b := &bytes.Buffer{}
	err := f.tmpl.Execute(b, struct {
		GUID    guid.GUID
		Name    string
		IsKnown bool
	}{
		GUID:    g,
		Name:    name,
		IsKnown: isKnown,
	})
	if err != nil {
		// Keep the stream going, a broken template only loses the name.
		log.Errorf("Error in template: %v", err)
	}
	return b.Bytes()
}

// Transformer replaces all the GUIDs using the Mapper interface.
type Transformer struct {
	mapper Mapper
}

// New creates a new Transformer with the given Mapper.
func New(m Mapper) *Transformer {
	return &Transformer{
		mapper: m,
	}
}

func (t *Transformer) mapMatch(match []byte) []byte {
	g, err := guid.Parse(string(match))
	if err != nil {
		return match
	}
	return t.mapper.Map(*g)
}

// Transform implements transform.Transformer.Transform(). Outside of EOF
// it handles at most one GUID per call, and holds back a tail of src that
// may be the start of a GUID.
func (t *Transformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if atEOF {
		out := guidRegex.ReplaceAllFunc(src, t.mapMatch)
		if len(out) <= len(dst) {
			return copy(dst, out), len(src), nil
		}
		// Too much for dst, go step by step.
		nDst, nSrc, err = t.Transform(dst, src, false)
		if err == transform.ErrShortSrc {
			err = transform.ErrShortDst
		}
		return nDst, nSrc, err
	}

	loc := guidRegex.FindIndex(src)
	if loc == nil {
		end := len(src)
		if tail := partialGUIDRegex.FindIndex(src); tail != nil {
			end, err = tail[0], transform.ErrShortSrc
		}
		n := copy(dst, src[:end])
		if n < end {
			return n, n, transform.ErrShortDst
		}
		return n, n, err
	}

	if n := copy(dst, src[:loc[0]]); n < loc[0] {
		return n, n, transform.ErrShortDst
	}
	mapped := t.mapMatch(src[loc[0]:loc[1]])
	if loc[0]+len(mapped) > len(dst) {
		return loc[0], loc[0], transform.ErrShortDst
	}
	copy(dst[loc[0]:], mapped)
	return loc[0] + len(mapped), loc[1], transform.ErrShortSrc
}

// Reset implements transform.Transformer.Reset().
func (t *Transformer) Reset() {
}
