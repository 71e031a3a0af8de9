// Package ba2 reads and patches Bethesda Archive 2 headers.
package ba2

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/models"
)

// HeaderSize is the fixed length of a BA2 header.
const HeaderSize = 12

// ErrNotArchive marks files that are too short or lack the BTDX magic.
var ErrNotArchive = errors.New("not in Bethesda Archive 2 format")

// VersionError reports a version byte the game cannot read.
type VersionError struct {
	Version uint8
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("archive version (%d) is not valid for Fallout 4", e.Version)
}

func (e *VersionError) Is(target error) bool {
	var other *VersionError
	if !errors.As(target, &other) {
		return false
	}
	return e.Version == other.Version
}

// FormatError reports an unrecognized content field, where GNRL or DX10
// is expected.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("archive format (%q) is not valid for Fallout 4", e.Format)
}

func (e *FormatError) Is(target error) bool {
	var other *FormatError
	if !errors.As(target, &other) {
		return false
	}
	return e.Format == other.Format
}

// Header is the fixed 12-byte prefix of a BA2 file.
type Header struct {
	Version models.ArchiveVersion
	Format  models.Magic
}

// InstallType reports the game generation the archive targets.
func (h Header) InstallType() models.InstallType {
	return h.Version.InstallType()
}

// ReadHeader parses the 12-byte header of the archive at path. Open and
// read failures pass through untouched; malformed headers come back as
// ErrNotArchive, *VersionError or *FormatError.
func ReadHeader(fs afero.Fs, path string) (Header, error) {
	file, err := fs.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer file.Close()

	return ParseHeader(file)
}

// ParseHeader reads and validates a 12-byte archive header from r.
func ParseHeader(r io.Reader) (Header, error) {
	head := make([]byte, HeaderSize)
	read, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Header{}, err
	}
	if read != HeaderSize || string(head[:4]) != models.BTDX.String() {
		return Header{}, ErrNotArchive
	}

	header := Header{
		Version: models.ArchiveVersion(head[4]),
		Format:  models.Magic(head[8:12]),
	}

	switch header.Version {
	case models.ArchiveVersionOG, models.ArchiveVersionNG7, models.ArchiveVersionNG:
	default:
		return Header{}, &VersionError{Version: head[4]}
	}

	switch header.Format {
	case models.GNRL, models.DX10:
	default:
		return Header{}, &FormatError{Format: string(head[8:12])}
	}

	return header, nil
}
