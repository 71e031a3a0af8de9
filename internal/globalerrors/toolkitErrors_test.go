package globalerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileNotFoundError_Error(t *testing.T) {
	err := &FileNotFoundError{Path: "Data/Fallout4.esm"}
	expected := "File not found: Data/Fallout4.esm"
	assert.Equal(t, expected, err.Error())
}

func TestFileNotFoundError_Is(t *testing.T) {
	err1 := &FileNotFoundError{Path: "Fallout4.exe"}
	err2 := &FileNotFoundError{Path: "Fallout4.exe"}
	err3 := &FileNotFoundError{Path: "Fallout4Launcher.exe"}
	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(errors.New("some other error")))
}

func TestCRCMismatchError_Error(t *testing.T) {
	err := &CRCMismatchError{Path: "Fallout4.exe", Expected: "C6053902", Actual: "C5965A2E"}
	expected := "CRC mismatch for Fallout4.exe: expected C6053902, got C5965A2E"
	assert.Equal(t, expected, err.Error())
}

func TestCRCMismatchError_Is(t *testing.T) {
	err1 := &CRCMismatchError{Path: "Fallout4.exe", Expected: "C6053902", Actual: "C5965A2E"}
	err2 := &CRCMismatchError{Path: "Fallout4.exe", Expected: "C6053902", Actual: "C5965A2E"}
	err3 := &CRCMismatchError{Path: "Fallout4.exe", Expected: "C6053902", Actual: "00000000"}
	err4 := &CRCMismatchError{Path: "steam_api64.dll", Expected: "C6053902", Actual: "00000000"}
	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err3.Is(err4))
	assert.False(t, err1.Is(errors.New("some other error")))
}

func TestDownloadError_Error(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &DownloadError{URL: "https://example.com/patch.xdelta", Err: underlyingErr}
	expected := "Download failed for https://example.com/patch.xdelta"
	assert.Equal(t, expected, err.Error())
}

func TestDownloadError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &DownloadError{URL: "https://example.com/patch.xdelta", Err: underlyingErr}
	assert.Equal(t, underlyingErr, err.Unwrap())
}

func TestDownloadErrorWrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := DownloadErrorWrap(underlyingErr, "https://example.com/patch.xdelta")
	expected := &DownloadError{URL: "https://example.com/patch.xdelta", Err: underlyingErr}
	assert.Equal(t, expected, err)
}

func TestDownloadError_Is(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err1 := &DownloadError{URL: "https://example.com/a.xdelta", Err: underlyingErr}
	err2 := &DownloadError{URL: "https://example.com/a.xdelta", Err: underlyingErr}
	err3 := &DownloadError{URL: "https://example.com/b.xdelta", Err: underlyingErr}
	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(errors.New("some other error")))
}
