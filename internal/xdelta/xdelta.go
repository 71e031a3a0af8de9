// Package xdelta shells out to the xdelta3 executable for VCDIFF binary
// deltas. The toolkit never reimplements the format; the value is in the
// native tool.
package xdelta

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	pkgErrors "github.com/pkg/errors"

	"github.com/collective-modding/cm-toolkit/internal/perf"
)

// ExecutableName is the delta tool resolved from PATH.
const ExecutableName = "xdelta3"

// ErrXdeltaNotFound reports that the xdelta3 executable is not installed
// or not on PATH.
var ErrXdeltaNotFound = errors.New("xdelta3 executable not found in PATH")

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Codec runs xdelta3 encode and decode operations. The command runner is
// a function field so tests can fake the executable.
type Codec struct {
	run runFunc
}

func New() *Codec {
	return &Codec{run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := exec.CommandContext(ctx, name, args...)
	return command.CombinedOutput()
}

// Decode applies patchFile to sourceFile and writes the result to
// outputFile.
func (c *Codec) Decode(ctx context.Context, sourceFile string, patchFile string, outputFile string) error {
	region := perf.StartRegionWithDetails("io.xdelta.decode", &perf.PerformanceDetails{
		"source": sourceFile,
		"patch":  patchFile,
	})
	defer region.End()

	return c.invoke(ctx, "decode", "-d", "-f", "-s", sourceFile, patchFile, outputFile)
}

// Encode computes the delta from sourceFile to targetFile and writes it
// to patchFile.
func (c *Codec) Encode(ctx context.Context, sourceFile string, targetFile string, patchFile string) error {
	region := perf.StartRegionWithDetails("io.xdelta.encode", &perf.PerformanceDetails{
		"source": sourceFile,
		"target": targetFile,
	})
	defer region.End()

	return c.invoke(ctx, "encode", "-e", "-f", "-s", sourceFile, targetFile, patchFile)
}

func (c *Codec) invoke(ctx context.Context, operation string, args ...string) error {
	output, err := c.run(ctx, ExecutableName, args...)
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ErrXdeltaNotFound
	}
	if detail := strings.TrimSpace(string(output)); detail != "" {
		return pkgErrors.Wrapf(err, "xdelta3 %s failed: %s", operation, detail)
	}
	return pkgErrors.Wrapf(err, "xdelta3 %s failed", operation)
}
