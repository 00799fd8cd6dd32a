// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"encoding/binary"
	"fmt"

	"github.com/linuxboot/fvtools/pkg/guid"
)

// FileType represents the type of an FFS file.
type FileType uint8

// UEFI FV File types.
const (
	FVFileTypeAll FileType = iota
	FVFileTypeRaw
	FVFileTypeFreeForm
	FVFileTypeSECCore
	FVFileTypePEICore
	FVFileTypeDXECore
	FVFileTypePEIM
	FVFileTypeDriver
	FVFileTypeCombinedPEIMDriver
	FVFileTypeApplication
	FVFileTypeSMM
	FVFileTypeVolumeImage
	FVFileTypeCombinedSMMDXE
	FVFileTypeSMMCore
	FVFileTypeSMMStandalone
	FVFileTypeSMMCoreStandalone
	FVFileTypeOEMMin   FileType = 0xC0
	FVFileTypeOEMMax   FileType = 0xDF
	FVFileTypeDebugMin FileType = 0xE0
	FVFileTypeDebugMax FileType = 0xEF
	FVFileTypePad      FileType = 0xF0
	FVFileTypeFFSMin   FileType = 0xF0
	FVFileTypeFFSMax   FileType = 0xFF
)

var fileTypeNames = map[FileType]string{
	FVFileTypeAll:                "EFI_FV_FILETYPE_ALL",
	FVFileTypeRaw:                "EFI_FV_FILETYPE_RAW",
	FVFileTypeFreeForm:           "EFI_FV_FILETYPE_FREEFORM",
	FVFileTypeSECCore:            "EFI_FV_FILETYPE_SECURITY_CORE",
	FVFileTypePEICore:            "EFI_FV_FILETYPE_PEI_CORE",
	FVFileTypeDXECore:            "EFI_FV_FILETYPE_DXE_CORE",
	FVFileTypePEIM:               "EFI_FV_FILETYPE_PEIM",
	FVFileTypeDriver:             "EFI_FV_FILETYPE_DRIVER",
	FVFileTypeCombinedPEIMDriver: "EFI_FV_FILETYPE_COMBINED_PEIM_DRIVER",
	FVFileTypeApplication:        "EFI_FV_FILETYPE_APPLICATION",
	FVFileTypeSMM:                "EFI_FV_FILETYPE_MM",
	FVFileTypeVolumeImage:        "EFI_FV_FILETYPE_FIRMWARE_VOLUME_IMAGE",
	FVFileTypeCombinedSMMDXE:     "EFI_FV_FILETYPE_COMBINED_MM_DXE",
	FVFileTypeSMMCore:            "EFI_FV_FILETYPE_MM_CORE",
	FVFileTypeSMMStandalone:      "EFI_FV_FILETYPE_MM_STANDALONE",
	FVFileTypeSMMCoreStandalone:  "EFI_FV_FILETYPE_MM_CORE_STANDALONE",
	FVFileTypePad:                "EFI_FV_FILETYPE_FFS_PAD",
}

// NamesToFileType maps from common file type strings to the actual type.
var NamesToFileType map[string]FileType

func init() {
	NamesToFileType = make(map[string]FileType, len(fileTypeNames))
	for k, v := range fileTypeNames {
		NamesToFileType[v] = k
	}
}

// String creates a string representation for the file type.
func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	switch {
	case t >= FVFileTypeOEMMin && t <= FVFileTypeOEMMax:
		return fmt.Sprintf("EFI_FV_FILETYPE_OEM (%#x)", uint8(t))
	case t >= FVFileTypeDebugMin && t <= FVFileTypeDebugMax:
		return fmt.Sprintf("EFI_FV_FILETYPE_DEBUG (%#x)", uint8(t))
	case t >= FVFileTypeFFSMin:
		return fmt.Sprintf("EFI_FV_FILETYPE_FFS (%#x)", uint8(t))
	}
	return fmt.Sprintf("UNKNOWN (%#x)", uint8(t))
}

// FFS file header layout.
const (
	FileHeaderMinLength    = 0x18
	FileHeaderExtMinLength = 0x20

	fileHeaderChecksumOffset = 16
	fileDataChecksumOffset   = 17
	fileTypeOffset           = 18
	fileAttributesOffset     = 19
	fileSizeOffset           = 20
	fileStateOffset          = 23
	fileExtendedSizeOffset   = 24
)

// File attributes.
const (
	FileAttribLargeFile  uint8 = 0x01
	FileAttribAlignment2 uint8 = 0x02
	FileAttribFixed      uint8 = 0x04
	FileAttribAlignment  uint8 = 0x38
	FileAttribChecksum   uint8 = 0x40
)

const fileAttribAlignShift = 3

// FileState is one lifecycle bit of the state byte.
type FileState uint8

// File state bits, in the order a file passes through them.
const (
	FileStateHeaderConstruction FileState = 0x01
	FileStateHeaderValid        FileState = 0x02
	FileStateDataValid          FileState = 0x04
	FileStateMarkedForUpdate    FileState = 0x08
	FileStateDeleted            FileState = 0x10
	FileStateHeaderInvalid      FileState = 0x20
)

var fileStateNames = map[FileState]string{
	FileStateHeaderConstruction: "EFI_FILE_HEADER_CONSTRUCTION",
	FileStateHeaderValid:        "EFI_FILE_HEADER_VALID",
	FileStateDataValid:          "EFI_FILE_DATA_VALID",
	FileStateMarkedForUpdate:    "EFI_FILE_MARKED_FOR_UPDATE",
	FileStateDeleted:            "EFI_FILE_DELETED",
	FileStateHeaderInvalid:      "EFI_FILE_HEADER_INVALID",
}

func (s FileState) String() string {
	if name, ok := fileStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN (%#x)", uint8(s))
}

// TestState reports whether bit is set in the state byte once the erase
// polarity has been taken into account.
func TestState(state uint8, polarity uint8, bit FileState) bool {
	if polarity != 0 {
		state = ^state
	}
	return state&uint8(bit) == uint8(bit)
}

// HighestState returns the most advanced lifecycle bit set in the state
// byte, or 0 if none.
func HighestState(state uint8, polarity uint8) FileState {
	if polarity != 0 {
		state = ^state
	}
	for bit := uint8(0x80); bit != 0; bit >>= 1 {
		if state&bit != 0 {
			return FileState(bit)
		}
	}
	return 0
}

// StateDataValid returns the state byte of a completely written file.
func StateDataValid(polarity uint8) uint8 {
	state := uint8(FileStateHeaderConstruction | FileStateHeaderValid | FileStateDataValid)
	if polarity != 0 {
		return ^state
	}
	return state
}

// FileHeaderSize returns 0x20 for files with the large file attribute and
// 0x18 otherwise.
func FileHeaderSize(file []byte) (uint64, error) {
	if len(file) < FileHeaderMinLength {
		return 0, fmt.Errorf("file header of %d bytes: %w", len(file), ErrVolumeCorrupted)
	}
	if file[fileAttributesOffset]&FileAttribLargeFile != 0 {
		return FileHeaderExtMinLength, nil
	}
	return FileHeaderMinLength, nil
}

// FileSize returns the total size of the file, header included.
func FileSize(file []byte) (uint64, error) {
	return EffectiveSize(file, HeaderKindFile)
}

// FileHeader holds the decoded fields of an FFS file header.
type FileHeader struct {
	Name         guid.GUID
	HeaderSum    uint8
	DataSum      uint8
	Type         FileType
	Attributes   uint8
	State        uint8
	HeaderLength uint64
	Size         uint64
}

// Alignment returns the data alignment requested by the attributes.
func (h *FileHeader) Alignment() uint64 {
	exp := uint64(h.Attributes&FileAttribAlignment) >> fileAttribAlignShift
	if h.Attributes&FileAttribAlignment2 != 0 {
		return 1 << (exp + 17)
	}
	return [...]uint64{1, 16, 128, 512, 1024, 4 * 1024, 32 * 1024, 64 * 1024}[exp]
}

// Checksummed reports whether the payload is covered by the data checksum.
func (h *FileHeader) Checksummed() bool {
	return h.Attributes&FileAttribChecksum != 0
}

// ParseFileHeader decodes the header at the start of file.
func ParseFileHeader(file []byte) (*FileHeader, error) {
	hdrLen, err := FileHeaderSize(file)
	if err != nil {
		return nil, err
	}
	size, err := FileSize(file)
	if err != nil {
		return nil, err
	}
	h := &FileHeader{
		HeaderSum:    file[fileHeaderChecksumOffset],
		DataSum:      file[fileDataChecksumOffset],
		Type:         FileType(file[fileTypeOffset]),
		Attributes:   file[fileAttributesOffset],
		State:        file[fileStateOffset],
		HeaderLength: hdrLen,
		Size:         size,
	}
	copy(h.Name[:], file[:guid.Size])
	return h, nil
}

// NewFileHeader lays out a file header with the given name, type and
// attributes for a payload of dataLen bytes. The large file layout is
// chosen when the narrow size field can't hold the total size. The size
// is not padded, checksums are left for ChecksumFile.
func NewFileHeader(name guid.GUID, typ FileType, attributes uint8, dataLen uint64, polarity uint8) []byte {
	size := FileHeaderMinLength + dataLen
	hdrLen := uint64(FileHeaderMinLength)
	if size >= SizeSentinel {
		hdrLen = FileHeaderExtMinLength
		size += FileHeaderExtMinLength - FileHeaderMinLength
		attributes |= FileAttribLargeFile
	} else {
		attributes &^= FileAttribLargeFile
	}

	hdr := make([]byte, hdrLen)
	copy(hdr, name[:])
	hdr[fileTypeOffset] = uint8(typ)
	hdr[fileAttributesOffset] = attributes
	sz := Write3Size(size)
	if hdrLen == FileHeaderExtMinLength {
		sz = [3]uint8{}
		binary.LittleEndian.PutUint64(hdr[fileExtendedSizeOffset:], size)
	}
	copy(hdr[fileSizeOffset:], sz[:])
	hdr[fileStateOffset] = StateDataValid(polarity)
	return hdr
}

// PackageFreeformRawFile builds a complete FREEFORM file holding raw in a
// single RAW section. The result is padded to 8 bytes and checksummed.
func PackageFreeformRawFile(name guid.GUID, raw []byte, polarity uint8) ([]byte, error) {
	section, err := NewSection(SectionTypeRaw, raw)
	if err != nil {
		return nil, err
	}
	dataLen := Align8(FileHeaderMinLength+uint64(len(section))) - FileHeaderMinLength
	hdr := NewFileHeader(name, FVFileTypeFreeForm, 0, dataLen, polarity)

	file := make([]byte, uint64(len(hdr))+dataLen)
	copy(file, hdr)
	copy(file[len(hdr):], section)
	if err := ChecksumFile(file); err != nil {
		return nil, err
	}
	return file, nil
}

// FileRawData returns the payload of a RAW file, or the data of the first
// RAW section of any other file.
func FileRawData(file []byte) ([]byte, error) {
	hdrLen, size, err := fileBounds(file)
	if err != nil {
		return nil, err
	}
	payload := file[hdrLen:size]
	if FileType(file[fileTypeOffset]) == FVFileTypeRaw {
		return payload, nil
	}
	r, err := FindSectionByType(payload, SectionTypeRaw)
	if err != nil {
		return nil, err
	}
	return SectionData(payload[r.Offset:r.End()])
}
