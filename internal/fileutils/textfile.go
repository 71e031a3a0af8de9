package fileutils

import (
	"bytes"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
)

// TextEncoding identifies how a text file was encoded on disk, so edits
// can be written back the same way the tool that owns the file wrote it.
type TextEncoding int

const (
	UTF8 TextEncoding = iota
	UTF8BOM
	UTF16LE
	UTF16BE
)

// ReadTextFile reads a text file that may carry a UTF-8 or UTF-16 byte
// order mark. Tool-generated INIs on Windows come in all three flavors.
func ReadTextFile(filesystem afero.Fs, path string) (string, error) {
	text, _, err := ReadTextFileEncoding(filesystem, path)
	return text, err
}

// ReadTextFileEncoding reads a text file and reports the encoding found,
// for callers that rewrite the file afterwards.
func ReadTextFileEncoding(filesystem afero.Fs, path string) (string, TextEncoding, error) {
	data, err := afero.ReadFile(filesystem, path)
	if err != nil {
		return "", UTF8, err
	}
	return DecodeText(data)
}

// WriteTextFile encodes text the given way and writes it to path.
func WriteTextFile(filesystem afero.Fs, path string, text string, encoding TextEncoding) error {
	data, err := EncodeText(text, encoding)
	if err != nil {
		return err
	}
	return afero.WriteFile(filesystem, path, data, os.FileMode(0644))
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText decodes raw file bytes into a string, honoring a leading
// byte order mark. Data without a mark is assumed UTF-8.
func DecodeText(data []byte) (string, TextEncoding, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), UTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", UTF16LE, err
		}
		return string(decoded), UTF16LE, nil
	case bytes.HasPrefix(data, bomUTF16BE):
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", UTF16BE, err
		}
		return string(decoded), UTF16BE, nil
	default:
		return string(data), UTF8, nil
	}
}

// EncodeText encodes a string back into file bytes, restoring the byte
// order mark the encoding calls for.
func EncodeText(text string, encoding TextEncoding) ([]byte, error) {
	switch encoding {
	case UTF8BOM:
		return append(append([]byte{}, bomUTF8...), text...), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	default:
		return []byte(text), nil
	}
}
