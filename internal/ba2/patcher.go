package ba2

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/models"
)

const versionOffset = 4

// PatchOutcome classifies one archive patch attempt.
type PatchOutcome int

const (
	Patched PatchOutcome = iota
	BadMagic
	AlreadyPatched
	UnknownVersion
	NotFound
	NoPermission
	OSError
)

// Failed reports whether the outcome counts against the failure tally.
// Already-patched archives do: they were selected by mistake.
func (o PatchOutcome) Failed() bool {
	return o != Patched
}

// PatchResult is the per-file outcome of a patch run.
type PatchResult struct {
	Path    string
	Name    string
	Outcome PatchOutcome
	Version uint8
}

// Summary tallies a patch run.
type Summary struct {
	Patched int
	Failed  int
}

// PatchAll patches every path in order, invoking progress after each file.
// Cancellation is checked between files; the summary covers work done so
// far when the context ends early.
func PatchAll(ctx context.Context, fs afero.Fs, paths []string, desired models.ArchiveVersion, progress func(PatchResult)) (Summary, error) {
	var summary Summary

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := PatchFile(fs, path, desired)
		if result.Outcome.Failed() {
			summary.Failed++
		} else {
			summary.Patched++
		}

		if progress != nil {
			progress(result)
		}
	}

	return summary, nil
}

// PatchFile rewrites the version byte of one archive in place. Read-only
// attributes are cleared first since some mod managers set them on
// deployed files.
func PatchFile(fs afero.Fs, path string, desired models.ArchiveVersion) PatchResult {
	result := PatchResult{Path: path, Name: filepath.Base(path)}

	if err := clearReadOnly(fs, path); err != nil {
		result.Outcome = classifyOSError(err)
		return result
	}

	file, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		result.Outcome = classifyOSError(err)
		return result
	}
	defer file.Close()

	head := make([]byte, versionOffset+1)
	if _, err := file.ReadAt(head, 0); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			result.Outcome = BadMagic
		} else {
			result.Outcome = classifyOSError(err)
		}
		return result
	}
	if string(head[:4]) != models.BTDX.String() {
		result.Outcome = BadMagic
		return result
	}

	oldVersions, newVersion := versionBytes(desired)
	current := head[versionOffset]
	result.Version = current

	if current == newVersion {
		result.Outcome = AlreadyPatched
		return result
	}
	if !containsByte(oldVersions, current) {
		result.Outcome = UnknownVersion
		return result
	}

	if _, err := file.WriteAt([]byte{newVersion}, versionOffset); err != nil {
		result.Outcome = classifyOSError(err)
		return result
	}

	result.Outcome = Patched
	return result
}

// FilterNames keeps the paths whose base name contains filter, compared
// case-insensitively. An empty filter keeps everything.
func FilterNames(paths []string, filter string) []string {
	if filter == "" {
		return paths
	}

	filter = strings.ToLower(filter)
	matched := make([]string, 0, len(paths))
	for _, path := range paths {
		if strings.Contains(strings.ToLower(filepath.Base(path)), filter) {
			matched = append(matched, path)
		}
	}

	return matched
}

// versionBytes maps the desired generation to the version bytes eligible
// for patching and the byte written in their place. Both Next-Gen
// revisions downgrade to v1; only v1 upgrades to v8.
func versionBytes(desired models.ArchiveVersion) (oldVersions []uint8, newVersion uint8) {
	if desired == models.ArchiveVersionOG {
		return []uint8{uint8(models.ArchiveVersionNG7), uint8(models.ArchiveVersionNG)}, uint8(models.ArchiveVersionOG)
	}
	return []uint8{uint8(models.ArchiveVersionOG)}, uint8(models.ArchiveVersionNG)
}

func containsByte(haystack []uint8, needle uint8) bool {
	for _, candidate := range haystack {
		if candidate == needle {
			return true
		}
	}
	return false
}

func clearReadOnly(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode()
	if mode&0o200 != 0 {
		return nil
	}
	return fs.Chmod(path, mode|0o200)
}

func classifyOSError(err error) PatchOutcome {
	switch {
	case os.IsNotExist(err):
		return NotFound
	case os.IsPermission(err):
		return NoPermission
	default:
		return OSError
	}
}
