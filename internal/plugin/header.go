// Package plugin reads Fallout 4 plugin (module) headers.
package plugin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/models"
)

const headerSize = 34

// Field offsets within the 34-byte prefix.
const (
	flagsOffset   = 8
	hedrOffset    = 24
	versionOffset = 30
)

var (
	// ErrNotModule marks files that are too short or lack the TES4 magic.
	ErrNotModule = errors.New("not in TES4 format")
	// ErrNoHeaderRecord marks files whose HEDR subrecord is absent.
	ErrNoHeaderRecord = errors.New("module has no HEDR record")
)

// The two HEDR versions Fallout 4 reads, kept as their little-endian
// float32 encodings so valid files never need a float comparison.
var (
	version095 = []byte{0x33, 0x33, 0x73, 0x3f}
	version100 = []byte{0x00, 0x00, 0x80, 0x3f}
)

// Known HEDR versions of other Bethesda games, used to hint where an
// out-of-range plugin likely came from.
var versionSupport = map[string][]string{
	"Fallout 3":              {"0.94"},
	"Fallout: New Vegas":     {"0.94", "1.32", "1.33", "1.34"},
	"Skyrim":                 {"0.94", "1.7", "1.71"},
	"Skyrim Special Edition": {"0.94", "1.7", "1.71"},
	"Starfield":              {"0.96"},
}

// Header is the parsed 34-byte prefix of a plugin file. Valid is true
// only for the 0.95 and 1.00 versions the game accepts; other versions
// still parse so the caller can count the plugin and report it.
type Header struct {
	Flags   models.ModuleFlag
	Version float32
	Valid   bool
}

// Light reports whether the plugin loads into the light (ESL) index
// space, either by header flag or by file extension.
func (h Header) Light(name string) bool {
	return h.Flags.Has(models.ModuleFlagLight) || strings.EqualFold(filepath.Ext(name), ".esl")
}

// ReadHeader parses the header of the plugin at path. Open and read
// failures pass through untouched; malformed headers come back as
// ErrNotModule or ErrNoHeaderRecord.
func ReadHeader(fs afero.Fs, path string) (Header, error) {
	file, err := fs.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer file.Close()

	return ParseHeader(file)
}

// ParseHeader reads and validates a 34-byte plugin header from r.
func ParseHeader(r io.Reader) (Header, error) {
	head := make([]byte, headerSize)
	read, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Header{}, err
	}
	if read != headerSize || string(head[:4]) != models.TES4.String() {
		return Header{}, ErrNotModule
	}
	if string(head[hedrOffset:hedrOffset+4]) != models.HEDR.String() {
		return Header{}, ErrNoHeaderRecord
	}

	header := Header{
		Flags: models.ModuleFlag(binary.LittleEndian.Uint32(head[flagsOffset : flagsOffset+4])),
	}

	versionRaw := head[versionOffset : versionOffset+4]
	switch {
	case bytes.Equal(versionRaw, version095):
		header.Version = 0.95
		header.Valid = true
	case bytes.Equal(versionRaw, version100):
		header.Version = 1.0
		header.Valid = true
	default:
		bits := binary.LittleEndian.Uint32(versionRaw)
		header.Version = roundVersion(math.Float32frombits(bits))
	}

	return header, nil
}

// SupportedGames lists the games whose engines read plugins of the given
// version, sorted for stable output.
func SupportedGames(version float32) []string {
	rendered := FormatVersion(version)

	var games []string
	for game, versions := range versionSupport {
		for _, candidate := range versions {
			if candidate == rendered {
				games = append(games, game)
				break
			}
		}
	}

	sort.Strings(games)
	return games
}

// FormatVersion renders a HEDR version without trailing zeros.
func FormatVersion(version float32) string {
	return strconv.FormatFloat(float64(version), 'f', -1, 32)
}

func roundVersion(version float32) float32 {
	return float32(math.Round(float64(version)*100) / 100)
}
