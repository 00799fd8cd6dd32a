// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUTF16 returns s as NUL-terminated UTF-16LE.
func EncodeUTF16(s string) ([]byte, error) {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %q as UTF-16: %w", s, err)
	}
	return append(b, 0, 0), nil
}

// DecodeUTF16 decodes UTF-16LE up to the first NUL character.
func DecodeUTF16(b []byte) (string, error) {
	end := len(b) &^ 1
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			end = i
			break
		}
	}
	s, err := utf16le.NewDecoder().Bytes(b[:end])
	if err != nil {
		return "", fmt.Errorf("decoding UTF-16: %w", err)
	}
	return string(s), nil
}

// NewUserInterfaceSection returns an EFI_SECTION_USER_INTERFACE section
// carrying name.
func NewUserInterfaceSection(name string) ([]byte, error) {
	data, err := EncodeUTF16(name)
	if err != nil {
		return nil, err
	}
	return NewSection(SectionTypeUserInterface, data)
}

// NewVersionSection returns an EFI_SECTION_VERSION section carrying a
// build number and a version string.
func NewVersionSection(buildNumber uint16, version string) ([]byte, error) {
	str, err := EncodeUTF16(version)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 2, 2+len(str))
	binary.LittleEndian.PutUint16(data, buildNumber)
	return NewSection(SectionTypeVersion, append(data, str...))
}

// FileName returns the string of the first user interface section of a
// file, or an empty string if there is none.
func FileName(file []byte) (string, error) {
	hdrLen, size, err := fileBounds(file)
	if err != nil {
		return "", err
	}
	payload := file[hdrLen:size]
	r, err := FindSectionByType(payload, SectionTypeUserInterface)
	if err != nil {
		return "", nil
	}
	data, err := SectionData(payload[r.Offset:r.End()])
	if err != nil {
		return "", err
	}
	return DecodeUTF16(data)
}
