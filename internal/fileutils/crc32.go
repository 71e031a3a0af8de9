package fileutils

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/spf13/afero"
)

const hashChunkSize = 64 * 1024

// HashOptions control how much of a file contributes to its checksum.
type HashOptions struct {
	// SkipHeader drops the leading N bytes before hashing.
	SkipHeader int
	// MaxChunks stops hashing after N chunks when > 0.
	MaxChunks int
}

// CRC32 hashes a whole file and returns the zero padded uppercase hex sum.
func CRC32(ctx context.Context, filesystem afero.Fs, path string) (string, error) {
	return CRC32WithOptions(ctx, filesystem, path, HashOptions{})
}

// CRC32WithOptions hashes a file in chunks, honouring cancellation between
// chunks.
func CRC32WithOptions(ctx context.Context, filesystem afero.Fs, path string, options HashOptions) (string, error) {
	file, err := filesystem.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	if options.SkipHeader > 0 {
		if _, err := file.Seek(int64(options.SkipHeader), io.SeekStart); err != nil {
			return "", err
		}
	}

	checksum := crc32.NewIEEE()
	buffer := make([]byte, hashChunkSize)
	chunks := 0

	for options.MaxChunks <= 0 || chunks < options.MaxChunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		read, readErr := file.Read(buffer)
		if read > 0 {
			_, _ = checksum.Write(buffer[:read])
			chunks++
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}

	return FormatCRC(checksum.Sum32()), nil
}

// FormatCRC renders a checksum the way patch manifests list them.
func FormatCRC(sum uint32) string {
	return fmt.Sprintf("%08X", sum)
}
