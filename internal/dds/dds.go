// Package dds reads DDS texture headers.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/models"
)

// headerSize is the fixed dwSize value of a DDS_HEADER.
const headerSize = 124

// Pixel format flag bits from ddraw.h.
const (
	ddpfAlphaPixels    = 0x1
	ddpfFourCC         = 0x4
	ddpfPaletteIndexed = 0x20
	ddpfRGB            = 0x40
	ddpfLuminance      = 0x20000
)

// Offsets within the 124-byte header, which starts at dwSize.
const (
	heightOffset   = 8
	widthOffset    = 12
	pfFlagsOffset  = 76
	fourCCOffset   = 80
	bitCountOffset = 84
)

// DXGI_FORMAT values from dxgiformat.h, limited to what the game ships.
const (
	dxgiRGBA8Typeless uint32 = 27
	dxgiRGBA8UNorm    uint32 = 28
	dxgiRGBA8SRGB     uint32 = 29
	dxgiBC1Typeless   uint32 = 70
	dxgiBC1UNorm      uint32 = 71
	dxgiBC4Typeless   uint32 = 79
	dxgiBC4UNorm      uint32 = 80
	dxgiBC5Typeless   uint32 = 82
	dxgiBC5UNorm      uint32 = 83
	dxgiBC5SNorm      uint32 = 84
	dxgiBC6HUF16      uint32 = 95
	dxgiBC6HSF16      uint32 = 96
	dxgiBC7Typeless   uint32 = 97
	dxgiBC7UNorm      uint32 = 98
	dxgiBC7SRGB       uint32 = 99
)

var (
	// ErrNotTexture marks files without the DDS magic.
	ErrNotTexture = errors.New("not a DDS texture")
	// ErrUnsupported marks headers the game's formats do not cover.
	ErrUnsupported = errors.New("unsupported DDS layout")
)

// Info describes a parsed texture header.
type Info struct {
	Width       uint32
	Height      uint32
	Mode        string
	PixelFormat string
}

// NPOT reports whether either dimension is not a power of two. The
// engine mip-maps such textures poorly, so the scanner calls them out.
func (i Info) NPOT() bool {
	return !powerOfTwo(i.Width) || !powerOfTwo(i.Height)
}

// ReadInfo parses the texture header of the file at path.
func ReadInfo(fs afero.Fs, path string) (Info, error) {
	file, err := fs.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	return ParseInfo(file)
}

// ParseInfo reads a DDS header from r and classifies its pixel format.
func ParseInfo(r io.Reader) (Info, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return Info{}, ErrNotTexture
	}
	if string(magic) != models.DDS.String() {
		return Info{}, ErrNotTexture
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Info{}, fmt.Errorf("incomplete header: %w", ErrUnsupported)
	}

	if size := binary.LittleEndian.Uint32(header[0:4]); size != headerSize {
		return Info{}, fmt.Errorf("header size %d: %w", size, ErrUnsupported)
	}

	info := Info{
		Height: binary.LittleEndian.Uint32(header[heightOffset : heightOffset+4]),
		Width:  binary.LittleEndian.Uint32(header[widthOffset : widthOffset+4]),
	}

	pfFlags := binary.LittleEndian.Uint32(header[pfFlagsOffset : pfFlagsOffset+4])
	fourCC := string(header[fourCCOffset : fourCCOffset+4])
	bitCount := binary.LittleEndian.Uint32(header[bitCountOffset : bitCountOffset+4])

	switch {
	case pfFlags&ddpfRGB != 0:
		if pfFlags&ddpfAlphaPixels != 0 {
			info.Mode = "RGBA"
		} else {
			info.Mode = "RGB"
		}

	case pfFlags&ddpfLuminance != 0:
		switch {
		case bitCount == 8:
			info.Mode = "L"
		case bitCount == 16 && pfFlags&ddpfAlphaPixels != 0:
			info.Mode = "LA"
		default:
			return Info{}, fmt.Errorf("luminance bit count %d: %w", bitCount, ErrUnsupported)
		}

	case pfFlags&ddpfPaletteIndexed != 0:
		info.Mode = "P"

	case pfFlags&ddpfFourCC != 0:
		if err := classifyFourCC(r, fourCC, &info); err != nil {
			return Info{}, err
		}

	default:
		return Info{}, fmt.Errorf("pixel format flags %#x: %w", pfFlags, ErrUnsupported)
	}

	return info, nil
}

// classifyFourCC resolves compressed formats. DX10 headers carry the
// real format in an extension block right after the main header.
func classifyFourCC(r io.Reader, fourCC string, info *Info) error {
	switch fourCC {
	case "DXT1":
		info.Mode, info.PixelFormat = "RGBA", "DXT1"
	case "DXT3":
		info.Mode, info.PixelFormat = "RGBA", "DXT3"
	case "DXT5":
		info.Mode, info.PixelFormat = "RGBA", "DXT5"
	case "BC4U", "ATI1":
		info.Mode, info.PixelFormat = "L", "BC4"
	case "BC5S":
		info.Mode, info.PixelFormat = "RGB", "BC5S"
	case "BC5U", "ATI2":
		info.Mode, info.PixelFormat = "RGB", "BC5"
	case "DX10":
		extension := make([]byte, 4)
		if _, err := io.ReadFull(r, extension); err != nil {
			return fmt.Errorf("missing DX10 extension header: %w", ErrUnsupported)
		}
		return classifyDXGI(binary.LittleEndian.Uint32(extension), info)
	default:
		return fmt.Errorf("pixel format %q: %w", fourCC, ErrUnsupported)
	}

	return nil
}

func classifyDXGI(format uint32, info *Info) error {
	switch format {
	case dxgiBC1Typeless, dxgiBC1UNorm:
		info.Mode, info.PixelFormat = "RGBA", "BC1"
	case dxgiBC4Typeless, dxgiBC4UNorm:
		info.Mode, info.PixelFormat = "L", "BC4"
	case dxgiBC5Typeless, dxgiBC5UNorm:
		info.Mode, info.PixelFormat = "RGB", "BC5"
	case dxgiBC5SNorm:
		info.Mode, info.PixelFormat = "RGB", "BC5S"
	case dxgiBC6HUF16:
		info.Mode, info.PixelFormat = "RGB", "BC6H"
	case dxgiBC6HSF16:
		info.Mode, info.PixelFormat = "RGB", "BC6HS"
	case dxgiBC7Typeless, dxgiBC7UNorm, dxgiBC7SRGB:
		info.Mode, info.PixelFormat = "RGBA", "BC7"
	case dxgiRGBA8Typeless, dxgiRGBA8UNorm, dxgiRGBA8SRGB:
		info.Mode = "RGBA"
	default:
		return fmt.Errorf("DXGI format %d: %w", format, ErrUnsupported)
	}

	return nil
}

func powerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
