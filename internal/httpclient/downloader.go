package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/fileutils"
	"github.com/collective-modding/cm-toolkit/internal/perf"
)

// ProgressMsg reports download progress as a 0..1 ratio. Delivered to the
// Sender so a bubbletea progress bar can render it.
type ProgressMsg float64

// ProgressErrMsg reports a failed download to the Sender.
type ProgressErrMsg struct{ Err error }

type progressWriter struct {
	total      int
	downloaded int
	onProgress func(float64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.downloaded += len(p)
	if pw.total > 0 && pw.onProgress != nil {
		pw.onProgress(float64(pw.downloaded) / float64(pw.total))
	}
	return len(p), nil
}

type Sender interface {
	Send(msg tea.Msg)
}

// DownloadFile streams url to destination, reporting progress through
// program. Partial files are removed on write failures.
func DownloadFile(ctx context.Context, url string, destination string, client Doer, program Sender, filesystem ...afero.Fs) error {
	region := perf.StartRegionWithDetails("io.download.file", &perf.PerformanceDetails{
		"file": url,
	})
	defer region.End()

	fs := fileutils.InitFilesystem(filesystem...)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	response, err := client.Do(request)
	if err != nil {
		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			return timeoutErr
		}
		return fmt.Errorf("failed to download file: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		statusErr := fmt.Errorf("download request failed with status %d", response.StatusCode)
		if closeErr := drainAndClose(response.Body); closeErr != nil {
			return errors.Join(statusErr, closeErr)
		}
		return statusErr
	}

	file, err := fs.Create(destination)
	if err != nil {
		createErr := fmt.Errorf("failed to create file: %w", err)
		if closeErr := drainAndClose(response.Body); closeErr != nil {
			return errors.Join(createErr, closeErr)
		}
		return createErr
	}

	pw := &progressWriter{
		total: int(response.ContentLength),
		onProgress: func(ratio float64) {
			if program != nil {
				program.Send(ProgressMsg(ratio))
			}
		},
	}

	_, copyErr := io.Copy(file, io.TeeReader(response.Body, pw))
	bodyErr := response.Body.Close()
	fileErr := file.Close()

	if copyErr != nil {
		writeErr := fmt.Errorf("failed to write file: %w", copyErr)
		if program != nil {
			program.Send(ProgressErrMsg{Err: writeErr})
		}
		if removeErr := fs.Remove(destination); removeErr != nil {
			return errors.Join(writeErr, fmt.Errorf("failed to remove partial file: %w", removeErr))
		}
		return writeErr
	}
	if bodyErr != nil {
		return bodyErr
	}
	return fileErr
}
