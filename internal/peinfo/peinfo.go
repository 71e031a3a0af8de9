// Package peinfo extracts version numbers and export names from portable
// executables without loading them.
package peinfo

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Data directory indexes from the PE optional header.
const (
	exportTableIndex   = 0
	resourceTableIndex = 2
)

const exportDirectorySize = 40

// fixedFileInfoSignature opens a VS_FIXEDFILEINFO block inside the
// version resource.
const fixedFileInfoSignature = 0xFEEF04BD

// ErrNoVersion marks executables without a version resource.
var ErrNoVersion = errors.New("no version resource")

// Version is the four-part file version from VS_FIXEDFILEINFO.
type Version [4]uint16

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, part := range v {
		parts[i] = strconv.Itoa(int(part))
	}
	return strings.Join(parts, ".")
}

// Short drops the build part, matching how mod managers report their own
// version.
func (v Version) Short() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (v Version) IsZero() bool {
	return v == Version{}
}

// ReadVersion returns the file version of the executable at path.
func ReadVersion(fs afero.Fs, path string) (Version, error) {
	file, err := fs.Open(path)
	if err != nil {
		return Version{}, err
	}
	defer file.Close()

	return readVersion(file)
}

// ReadExports lists the function names exported by the executable at
// path. A file without an export table yields an empty list.
func ReadExports(fs afero.Fs, path string) ([]string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readExports(file)
}

func readVersion(r io.ReaderAt) (Version, error) {
	peFile, err := pe.NewFile(r)
	if err != nil {
		return Version{}, err
	}
	defer peFile.Close()

	directory, err := dataDirectory(peFile, resourceTableIndex)
	if err != nil || directory.VirtualAddress == 0 {
		return Version{}, ErrNoVersion
	}

	cache := newSectionCache(peFile)
	data, err := cache.bytesAt(directory.VirtualAddress)
	if err != nil {
		return Version{}, ErrNoVersion
	}

	// VS_FIXEDFILEINFO sits somewhere inside the resource tree and is
	// 4-byte aligned, so scanning beats walking the directory levels.
	for offset := 0; offset+16 <= len(data); offset += 4 {
		if binary.LittleEndian.Uint32(data[offset:]) != fixedFileInfoSignature {
			continue
		}
		ms := binary.LittleEndian.Uint32(data[offset+8:])
		ls := binary.LittleEndian.Uint32(data[offset+12:])
		return Version{uint16(ms >> 16), uint16(ms), uint16(ls >> 16), uint16(ls)}, nil
	}

	return Version{}, ErrNoVersion
}

func readExports(r io.ReaderAt) ([]string, error) {
	peFile, err := pe.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer peFile.Close()

	directory, err := dataDirectory(peFile, exportTableIndex)
	if err != nil {
		return nil, err
	}
	if directory.VirtualAddress == 0 {
		return nil, nil
	}

	cache := newSectionCache(peFile)
	table, err := cache.bytesAt(directory.VirtualAddress)
	if err != nil {
		return nil, err
	}
	if len(table) < exportDirectorySize {
		return nil, errors.New("export directory truncated")
	}

	nameCount := binary.LittleEndian.Uint32(table[24:])
	namesRVA := binary.LittleEndian.Uint32(table[32:])

	names := make([]string, 0, nameCount)
	for i := uint32(0); i < nameCount; i++ {
		pointer, err := cache.bytesAt(namesRVA + 4*i)
		if err != nil {
			return nil, err
		}
		if len(pointer) < 4 {
			return nil, errors.New("export name table truncated")
		}

		entry, err := cache.bytesAt(binary.LittleEndian.Uint32(pointer))
		if err != nil {
			return nil, err
		}
		names = append(names, readCString(entry))
	}

	return names, nil
}

func dataDirectory(peFile *pe.File, index int) (pe.DataDirectory, error) {
	switch header := peFile.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		if uint32(index) < header.NumberOfRvaAndSizes {
			return header.DataDirectory[index], nil
		}
	case *pe.OptionalHeader32:
		if uint32(index) < header.NumberOfRvaAndSizes {
			return header.DataDirectory[index], nil
		}
	}
	return pe.DataDirectory{}, errors.New("optional header has no such data directory")
}

// sectionCache resolves RVAs to section bytes, reading each section from
// disk at most once.
type sectionCache struct {
	peFile *pe.File
	loaded map[uint32][]byte
}

func newSectionCache(peFile *pe.File) *sectionCache {
	return &sectionCache{peFile: peFile, loaded: make(map[uint32][]byte)}
}

// bytesAt returns the section bytes from rva to the end of its section.
func (c *sectionCache) bytesAt(rva uint32) ([]byte, error) {
	for _, section := range c.peFile.Sections {
		size := section.VirtualSize
		if size == 0 {
			size = section.Size
		}
		if rva < section.VirtualAddress || rva >= section.VirtualAddress+size {
			continue
		}

		data, ok := c.loaded[section.VirtualAddress]
		if !ok {
			var err error
			data, err = section.Data()
			if err != nil {
				return nil, err
			}
			c.loaded[section.VirtualAddress] = data
		}

		offset := rva - section.VirtualAddress
		if offset >= uint32(len(data)) {
			return nil, fmt.Errorf("rva %#x beyond raw section data", rva)
		}
		return data[offset:], nil
	}

	return nil, fmt.Errorf("no section holds rva %#x", rva)
}

func readCString(data []byte) string {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return string(data)
	}
	return string(data[:end])
}
