package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/joho/godotenv/autoload"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/cmd/cmt"
	"github.com/collective-modding/cm-toolkit/internal/lifecycle"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
)

const (
	perfLifecycleStartup  = "app.lifecycle.startup"
	perfLifecycleExecute  = "app.lifecycle.execute"
	perfLifecycleShutdown = "app.lifecycle.shutdown"
)

type shutdownTrigger string

const (
	shutdownTriggerExit   shutdownTrigger = "exit"
	shutdownTriggerSignal shutdownTrigger = "signal"
)

type runDeps struct {
	execute           func(context.Context) error
	telemetryInit     func()
	telemetryShutdown func(context.Context)
	register          func(lifecycle.Handler) lifecycle.HandlerID
	unregister        func(lifecycle.HandlerID)
	args              []string
}

func defaultRunDeps() runDeps {
	return runDeps{
		execute:           cmt.ExecuteContext,
		telemetryInit:     telemetry.Init,
		telemetryShutdown: telemetry.Shutdown,
		register:          lifecycle.Register,
		unregister:        lifecycle.Unregister,
		args:              os.Args[1:],
	}
}

func main() {
	os.Exit(runWithDeps(defaultRunDeps()))
}

func runWithDeps(deps runDeps) int {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	exportCfg := perfExportConfigFromArgs(deps.args, cwd)
	if exportCfg.enabled || perf.EnabledFromEnv() {
		if initErr := perf.Init(perf.Config{Enabled: true}); initErr != nil {
			exportCfg.enabled = false
		}
	}

	ctx := context.Background()

	startupCtx, startupSpan := perf.StartSpan(ctx, perfLifecycleStartup)
	deps.telemetryInit()
	telemetry.SetPerfBaseDir(exportCfg.baseDir)

	// Shutdown runs exactly once, whether the run finishes or a signal
	// cuts it short.
	var shutdownOnce sync.Once
	shutdown := func(trigger shutdownTrigger, sig os.Signal) {
		shutdownOnce.Do(func() {
			attrs := []attribute.KeyValue{attribute.String("trigger", string(trigger))}
			if sig != nil {
				attrs = append(attrs, attribute.String("signal", sig.String()))
			}
			_, span := perf.StartSpan(ctx, perfLifecycleShutdown, perf.WithAttributes(attrs...))
			deps.telemetryShutdown(ctx)
			span.End()
			exportPerf(exportCfg)
		})
	}

	handlerID := deps.register(func(sig os.Signal) {
		shutdown(shutdownTriggerSignal, sig)
	})
	startupSpan.End()

	executeCtx, executeSpan := perf.StartSpan(startupCtx, perfLifecycleExecute)
	err = deps.execute(executeCtx)
	executeSpan.SetAttributes(attribute.Bool("success", err == nil))
	executeSpan.End()

	shutdown(shutdownTriggerExit, nil)
	deps.unregister(handlerID)

	if err != nil {
		return 1
	}
	return 0
}

type perfExportConfig struct {
	enabled bool
	debug   bool
	baseDir string
	outDir  string
}

// perfExportConfigFromArgs inspects the raw CLI arguments before cobra
// parses them, so span collection covers the whole run. The export lands
// next to the settings file unless --perf-out-dir points elsewhere.
func perfExportConfigFromArgs(args []string, cwd string) perfExportConfig {
	cfg := perfExportConfig{}
	settingsPath := ""
	outDir := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--perf":
			cfg.enabled = true
		case arg == "--debug":
			cfg.debug = true
		case arg == "--settings" && i+1 < len(args):
			settingsPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--settings="):
			settingsPath = strings.TrimPrefix(arg, "--settings=")
		case arg == "--perf-out-dir" && i+1 < len(args):
			outDir = args[i+1]
			i++
		case strings.HasPrefix(arg, "--perf-out-dir="):
			outDir = strings.TrimPrefix(arg, "--perf-out-dir=")
		}
	}

	baseDir := cwd
	if settingsPath != "" {
		resolved := settingsPath
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(cwd, resolved)
		}
		if abs, err := filepath.Abs(resolved); err == nil {
			resolved = abs
		}
		baseDir = filepath.Dir(resolved)
	}
	cfg.baseDir = baseDir

	switch {
	case outDir == "":
		cfg.outDir = baseDir
	case filepath.IsAbs(outDir):
		cfg.outDir = outDir
	default:
		cfg.outDir = filepath.Join(baseDir, outDir)
	}

	return cfg
}

// exportPerf writes the collected region log as a diagnostic artifact.
// Best effort: a failed export never changes the exit code.
func exportPerf(cfg perfExportConfig) {
	if !cfg.enabled {
		return
	}
	_, _ = perf.ExportToFile(cfg.outDir, cfg.baseDir, perf.GetPerformanceLog())
}
