// Package globalerrors defines shared cross-component error types.
package globalerrors

import (
	"fmt"
)

type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("File not found: %s", e.Path)
}

func (e *FileNotFoundError) Is(target error) bool {
	t, ok := target.(*FileNotFoundError)
	if !ok {
		return false
	}
	return e.Path == t.Path
}

//

type CRCMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("CRC mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *CRCMismatchError) Is(target error) bool {
	t, ok := target.(*CRCMismatchError)
	if !ok {
		return false
	}
	return e.Path == t.Path && e.Expected == t.Expected && e.Actual == t.Actual
}

//

type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("Download failed for %s", e.URL)
}

func (e *DownloadError) Is(target error) bool {
	t, ok := target.(*DownloadError)
	if !ok {
		return false
	}
	return e.URL == t.URL
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func DownloadErrorWrap(err error, url string) error {
	return &DownloadError{
		URL: url,
		Err: err,
	}
}
