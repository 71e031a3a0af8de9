// Package telemetry buffers command results during a run and delivers a
// single anonymous session event to PostHog on shutdown. It stays inert
// unless an API key is configured and the user has not opted out.
package telemetry

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/globalerrors"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
)

const (
	disableEnvVar       = "CMT_DISABLE_TELEMETRY"
	machineIDEnvVar     = "MACHINE_ID"
	unknownMachineID    = "unknown"
	defaultFlushTimeout = 2 * time.Second
	defaultPosthogHost  = "https://eu.i.posthog.com"
)

// Client is the part of the posthog client surface telemetry relies on.
type Client interface {
	io.Closer
	Enqueue(posthog.Message) error
}

type debugLogger interface {
	Debugf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}

// CommandTelemetry describes a single finished command invocation.
type CommandTelemetry struct {
	Command     string
	Success     bool
	Error       error
	Extra       map[string]interface{}
	Arguments   map[string]interface{}
	Duration    time.Duration
	ExitCode    int
	Interactive bool
}

type recordedCommand struct {
	Name          string
	Success       bool
	ExitCode      int
	Interactive   bool
	ErrorCategory string
	ErrorMessage  string
	Arguments     map[string]interface{}
	Extra         map[string]interface{}
	Duration      time.Duration
}

type telemetrySnapshot struct {
	client       Client
	machineID    string
	logger       debugLogger
	flushTimeout time.Duration
	enabled      bool
}

type telemetryState struct {
	mu              sync.Mutex
	client          Client
	machineID       string
	logger          debugLogger
	flushTimeout    time.Duration
	enabled         bool
	closed          bool
	commands        []recordedCommand
	sessionNameHint string
	perfBaseDir     string
}

func (s *telemetryState) snapshot() telemetrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return telemetrySnapshot{
		client:       s.client,
		machineID:    s.machineID,
		logger:       s.logger,
		flushTimeout: s.flushTimeout,
		enabled:      s.enabled,
	}
}

var (
	state telemetryState

	// Overridable seams for tests.
	clientBuilder     = defaultClientFactory
	machineIDProvider = defaultMachineIDProvider
	baseLogger        debugLogger
	baseFlushTimeout  = defaultFlushTimeout
)

// Init configures the telemetry client. Telemetry stays disabled when the
// user opted out via the environment, no API key is configured, or the
// client cannot be constructed.
func Init() {
	if optedOut() {
		disable()
		return
	}

	apiKey := environment.PosthogAPIKey()
	if apiKey == "" {
		disable()
		return
	}

	logger := baseLogger
	if logger == nil {
		logger = noopLogger{}
	}

	flushTimeout := baseFlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}

	client, err := clientBuilder(apiKey, defaultPosthogHost)
	if err != nil {
		logger.Debugf("telemetry disabled: %v", err)
		disable()
		return
	}

	state.mu.Lock()
	state.client = client
	state.machineID = resolveMachineID()
	state.logger = logger
	state.flushTimeout = flushTimeout
	state.enabled = true
	state.closed = false
	state.commands = nil
	state.mu.Unlock()
}

// Reset clears all telemetry state and restores the default seams.
// Primarily for tests.
func Reset() {
	state.mu.Lock()
	state.client = nil
	state.machineID = ""
	state.logger = nil
	state.flushTimeout = 0
	state.enabled = false
	state.closed = false
	state.commands = nil
	state.sessionNameHint = ""
	state.perfBaseDir = ""
	state.mu.Unlock()

	clientBuilder = defaultClientFactory
	machineIDProvider = defaultMachineIDProvider
	baseLogger = nil
	baseFlushTimeout = defaultFlushTimeout
}

// Capture sends a single event immediately. Most callers should prefer
// RecordCommand so their result rides along on the session event instead.
func Capture(event string, properties map[string]interface{}) {
	captureWithSnapshot(state.snapshot(), event, properties)
}

// RecordCommand buffers a finished command for the end-of-session event.
// Nothing is sent over the wire until Shutdown.
func RecordCommand(telemetry CommandTelemetry) {
	name := strings.TrimSpace(telemetry.Command)
	if name == "" {
		return
	}

	recorded := recordedCommand{
		Name:        name,
		Success:     telemetry.Success,
		ExitCode:    commandExitCode(telemetry),
		Interactive: telemetry.Interactive,
		Arguments:   telemetry.Arguments,
		Extra:       telemetry.Extra,
		Duration:    telemetry.Duration,
	}
	if telemetry.Error != nil {
		recorded.ErrorCategory = errorCategory(telemetry.Error)
		recorded.ErrorMessage = telemetry.Error.Error()
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.enabled {
		return
	}
	state.commands = append(state.commands, recorded)
}

// SetSessionNameHint suggests a name for the session event, used when no
// command name can be derived from recorded commands or performance spans.
func SetSessionNameHint(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	state.mu.Lock()
	state.sessionNameHint = name
	state.mu.Unlock()
}

// SetPerfBaseDir sets the directory performance span paths are reported
// relative to, so session events never contain absolute local paths.
func SetPerfBaseDir(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	state.mu.Lock()
	state.perfBaseDir = dir
	state.mu.Unlock()
}

// Shutdown emits the session event and closes the client, honouring the
// flush timeout. Only the first call has any effect.
func Shutdown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	state.mu.Lock()
	if state.closed || state.client == nil || !state.enabled {
		state.mu.Unlock()
		return
	}
	state.closed = true
	snap := telemetrySnapshot{
		client:       state.client,
		machineID:    state.machineID,
		logger:       state.logger,
		flushTimeout: state.flushTimeout,
		enabled:      state.enabled,
	}
	commands := make([]recordedCommand, len(state.commands))
	copy(commands, state.commands)
	hint := state.sessionNameHint
	perfBaseDir := state.perfBaseDir
	state.mu.Unlock()

	performance := sessionPerformance(perfBaseDir)

	canonical, _ := topCommandNameFromPerformance(performance)
	if canonical != "" && len(commands) == 1 && strings.HasPrefix(canonical, commands[0].Name) {
		// A recorded alias or abbreviation resolves to the span's full name.
		commands[0].Name = canonical
	}

	properties := map[string]interface{}{
		"type":        "session",
		"performance": performance,
		"commands":    buildCommandSummaries(commands, performance),
	}
	if durations, err := perf.GetSessionDurations(); err == nil {
		properties["total_time_ms"] = durations.Total.Milliseconds()
		properties["work_time_ms"] = durations.Work.Milliseconds()
	}

	captureWithSnapshot(snap, resolveSessionName(hint, canonical, commands), properties)
	closeClient(ctx, snap)
}

func captureWithSnapshot(snap telemetrySnapshot, event string, properties map[string]interface{}) {
	if !snap.enabled || snap.client == nil || event == "" {
		return
	}

	props := make(map[string]interface{}, len(properties)+1)
	for key, value := range properties {
		props[key] = value
	}
	props["version"] = environment.AppVersion()

	err := snap.client.Enqueue(posthog.Capture{
		DistinctId: snap.machineID,
		Event:      event,
		Properties: props,
	})
	if err != nil {
		snapshotLogger(snap).Debugf("telemetry enqueue failed: %v", err)
	}
}

func closeClient(ctx context.Context, snap telemetrySnapshot) {
	timeout := snap.flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- snap.client.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			snapshotLogger(snap).Debugf("telemetry client close failed: %v", err)
		}
	case <-time.After(timeout):
		snapshotLogger(snap).Debugf("telemetry flush timed out after %s", timeout)
	}
}

func snapshotLogger(snap telemetrySnapshot) debugLogger {
	if snap.logger == nil {
		return noopLogger{}
	}
	return snap.logger
}

func sessionPerformance(baseDir string) []*perf.ExportSpan {
	spans, err := perf.GetSpans()
	if err != nil {
		return nil
	}

	tree := perf.BuildSpanTree(spans)
	if baseDir != "" {
		perf.NormalizeSpanTree(tree, baseDir)
	}
	return tree
}

func resolveSessionName(hint string, canonical string, commands []recordedCommand) string {
	if len(commands) > 1 {
		return "tui"
	}

	if len(commands) == 1 {
		if name := strings.TrimSpace(commands[0].Name); name != "" {
			return name
		}
	}

	if canonical != "" {
		return canonical
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint
	}
	return "unknown"
}

func buildCommandSummaries(commands []recordedCommand, performance []*perf.ExportSpan) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(commands))

	for _, command := range commands {
		summary := map[string]interface{}{
			"name":        command.Name,
			"success":     command.Success,
			"exit_code":   command.ExitCode,
			"interactive": command.Interactive,
		}
		if command.Extra != nil {
			summary["extra"] = command.Extra
		}
		if command.ErrorCategory != "" {
			summary["error_category"] = command.ErrorCategory
		}
		if command.ErrorMessage != "" {
			summary["error"] = command.ErrorMessage
		}
		if command.Arguments != nil {
			summary["arguments"] = command.Arguments
		}

		duration := command.Duration
		known := duration > 0
		if !known {
			duration, known = commandDurationFromPerf(command.Name, performance)
		}
		if known {
			summary["duration_ms"] = duration.Milliseconds()
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

func commandNameFromPerfSpan(spanName string) (string, bool) {
	const prefix = "app.command."
	if !strings.HasPrefix(spanName, prefix) {
		return "", false
	}

	name := strings.TrimPrefix(spanName, prefix)
	if name == "" || strings.Contains(name, ".") {
		return "", false
	}
	return name, true
}

// topCommandNameFromPerformance finds the command span closest to the root
// of the performance tree, breaking ties by start time.
func topCommandNameFromPerformance(performance []*perf.ExportSpan) (string, bool) {
	bestName := ""
	bestDepth := 0
	bestStart := time.Time{}
	found := false

	var walk func(spans []*perf.ExportSpan, depth int)
	walk = func(spans []*perf.ExportSpan, depth int) {
		for _, span := range spans {
			if span == nil {
				continue
			}
			if name, ok := commandNameFromPerfSpan(span.Name); ok {
				better := !found ||
					depth < bestDepth ||
					(depth == bestDepth && span.StartTime.Before(bestStart))
				if better {
					bestName = name
					bestDepth = depth
					bestStart = span.StartTime
					found = true
				}
			}
			walk(span.Children, depth+1)
		}
	}
	walk(performance, 0)

	return bestName, found
}

func commandDurationFromPerf(name string, performance []*perf.ExportSpan) (time.Duration, bool) {
	if name == "" || len(performance) == 0 {
		return 0, false
	}

	target := "app.command." + name
	bestEnd := time.Time{}
	duration := time.Duration(0)
	found := false

	var walk func(spans []*perf.ExportSpan)
	walk = func(spans []*perf.ExportSpan) {
		for _, span := range spans {
			if span == nil {
				continue
			}
			if span.Name == target && (!found || span.EndTime.After(bestEnd)) {
				bestEnd = span.EndTime
				duration = time.Duration(span.DurationNS)
				found = true
			}
			walk(span.Children)
		}
	}
	walk(performance)

	return duration, found
}

func commandExitCode(telemetry CommandTelemetry) int {
	if telemetry.ExitCode != 0 {
		return telemetry.ExitCode
	}
	if telemetry.Success {
		return 0
	}
	return 1
}

func errorCategory(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var notFound *globalerrors.FileNotFoundError
	if errors.As(err, &notFound) {
		return "file_not_found"
	}
	var crcMismatch *globalerrors.CRCMismatchError
	if errors.As(err, &crcMismatch) {
		return "crc_mismatch"
	}
	var download *globalerrors.DownloadError
	if errors.As(err, &download) {
		return "download_error"
	}

	return "unknown"
}

func optedOut() bool {
	value := os.Getenv(disableEnvVar)
	if value == "" {
		return false
	}

	disabled, err := strconv.ParseBool(value)
	return err == nil && disabled
}

func resolveMachineID() string {
	if id := os.Getenv(machineIDEnvVar); id != "" {
		return id
	}

	id, err := machineIDProvider()
	if err != nil || id == "" {
		return unknownMachineID
	}
	return id
}

func disable() {
	state.mu.Lock()
	state.client = nil
	state.enabled = false
	state.mu.Unlock()
}

func defaultClientFactory(apiKey string, endpoint string) (Client, error) {
	return posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
}

func defaultMachineIDProvider() (string, error) {
	return machineid.ID()
}
