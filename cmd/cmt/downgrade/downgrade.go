package downgrade

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/collective-modding/cm-toolkit/internal/config"
	downgradelib "github.com/collective-modding/cm-toolkit/internal/downgrade"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/hashcache"
	"github.com/collective-modding/cm-toolkit/internal/httpclient"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	"github.com/collective-modding/cm-toolkit/internal/tui"
	"github.com/collective-modding/cm-toolkit/internal/xdelta"
)

var errStepsFailed = errors.New("some binaries could not be patched")

type downgradeOptions struct {
	SettingsPath string
	GamePath     string
	Target       string
	KeepBackups  bool
	DeleteDeltas bool
	PatchDir     string
	Quiet        bool
	Debug        bool
}

// engine is the part of the downgrader the command drives.
type engine interface {
	Versions(ctx context.Context) []downgradelib.FileVersion
	Run(ctx context.Context, options downgradelib.Options) ([]downgradelib.StepResult, error)
}

type downgradeDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	engineLog *logger.EngineLog
	telemetry func(telemetry.CommandTelemetry)

	newGame   func(afero.Fs, string) (*game.Game, error)
	newEngine func(fs afero.Fs, gamePath string, cacheDir string, log *logger.EngineLog) (engine, func())
}

// defaultEngine wires the production downgrader: the CRC cache stored
// next to the settings file, the rate-limited HTTP client, and the
// xdelta3 binary. An unopenable cache degrades to direct hashing.
func defaultEngine(fs afero.Fs, gamePath string, cacheDir string, log *logger.EngineLog) (engine, func()) {
	cache, err := hashcache.Open(filepath.Join(cacheDir, hashcache.FileName))
	if err != nil {
		log.Warning("downgrade", "hash cache unavailable", map[string]any{"error": err.Error()})
	}
	client := httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0))
	d := downgradelib.New(fs, gamePath, cache, client, xdelta.New(), log)
	return d, func() { _ = cache.Close() }
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downgrade",
		Short: i18n.T("cmd.downgrade.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.downgrade")
			defer span.End()

			settingsPath, err := cmd.Flags().GetString("settings")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			gamePath, err := cmd.Flags().GetString("game-path")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			target, err := cmd.Flags().GetString("target")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			keepBackups, err := cmd.Flags().GetBool("keep-backups")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			deleteDeltas, err := cmd.Flags().GetBool("delete-deltas")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			patchDir, err := cmd.Flags().GetString("patch-dir")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			quiet, err := cmd.Flags().GetBool("quiet")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				return err
			}

			log := logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug)

			deps := downgradeDeps{
				fs:        afero.NewOsFs(),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				newGame:   game.New,
				newEngine: defaultEngine,
			}

			payload, err := runDowngrade(ctx, cmd, downgradeOptions{
				SettingsPath: settingsPath,
				GamePath:     gamePath,
				Target:       target,
				KeepBackups:  keepBackups,
				DeleteDeltas: deleteDeltas,
				PatchDir:     patchDir,
				Quiet:        quiet,
				Debug:        debug,
			}, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))

			if err != nil {
				cmd.SilenceUsage = true
				if errors.Is(err, game.ErrGameNotFound) || errors.Is(err, errStepsFailed) {
					// Already reported through the logger.
					cmd.SilenceErrors = true
				}
			}

			if deps.telemetry != nil {
				deps.telemetry(payload)
			}
			return err
		},
	}

	cmd.Flags().String("target", "og", i18n.T("cmd.downgrade.flag.target"))
	cmd.Flags().Bool("keep-backups", true, i18n.T("cmd.downgrade.flag.keep_backups"))
	cmd.Flags().Bool("delete-deltas", true, i18n.T("cmd.downgrade.flag.delete_deltas"))
	cmd.Flags().String("patch-dir", "", i18n.T("cmd.downgrade.flag.patch_dir"))

	return cmd
}

func runDowngrade(ctx context.Context, cmd *cobra.Command, opts downgradeOptions, deps downgradeDeps) (telemetry.CommandTelemetry, error) {
	desired, err := parseTarget(opts.Target)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "downgrade", Success: false, ExitCode: 1, Error: err}, err
	}

	meta := config.NewMetadata(opts.SettingsPath)
	cfg, err := config.LoadSettings(deps.fs, meta)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "downgrade", Success: false, ExitCode: 1, Error: err}, err
	}

	// Flags override the persisted cleanup settings only when given.
	keepBackups := cfg.KeepBackups
	if cmd.Flags().Changed("keep-backups") {
		keepBackups = opts.KeepBackups
	}
	deleteDeltas := cfg.DeleteDeltas
	if cmd.Flags().Changed("delete-deltas") {
		deleteDeltas = opts.DeleteDeltas
	}
	patchDir := opts.PatchDir
	if patchDir == "" {
		patchDir = meta.Dir()
	}

	arguments := map[string]interface{}{
		"target":        strings.ToLower(opts.Target),
		"keep_backups":  keepBackups,
		"delete_deltas": deleteDeltas,
	}

	g, err := deps.newGame(deps.fs, opts.GamePath)
	if err != nil {
		deps.logger.Error(i18n.T("cmd.downgrade.game_not_found"))
		return telemetry.CommandTelemetry{Command: "downgrade", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
	}

	engineLog := deps.engineLog
	if engineLog == nil {
		engineLog = logger.EngineLogFor(cmd.ErrOrStderr(), cfg.LogLevel, opts.Debug)
	}

	eng, cleanup := deps.newEngine(deps.fs, g.GamePath, meta.Dir(), engineLog)
	defer cleanup()

	var group downgradelib.Group
	for _, version := range eng.Versions(ctx) {
		if version.Group != group {
			group = version.Group
			deps.logger.Log(i18n.T("cmd.downgrade.group", i18n.Tvars{
				Data: &i18n.TData{"group": string(group)},
			}), false)
		}
		deps.logger.Log(i18n.T("cmd.downgrade.entry", i18n.Tvars{
			Data: &i18n.TData{
				"name":    fmt.Sprintf("%-36s", version.Name),
				"install": string(version.Install),
			},
		}), false)
	}

	results, err := eng.Run(ctx, downgradelib.Options{
		Desired:      desired,
		KeepBackups:  keepBackups,
		DeleteDeltas: deleteDeltas,
		PatchDir:     patchDir,
		Progress:     &progressLogger{log: deps.logger},
	})

	colorize := tui.IsTerminalWriter(cmd.OutOrStdout())
	patched, skipped, failed := 0, 0, 0
	for _, result := range results {
		switch result.Outcome {
		case downgradelib.OutcomePatched:
			patched++
			deps.logger.Log(fmt.Sprintf("%s %s", tui.SuccessIcon(colorize), result.Message), false)
		case downgradelib.OutcomeFailed:
			failed++
			deps.logger.Log(fmt.Sprintf("%s %s", tui.ErrorIcon(colorize), result.Message), false)
		default:
			skipped++
			deps.logger.Log(result.Message, false)
		}
	}

	extra := map[string]interface{}{
		"patched": patched,
		"skipped": skipped,
		"failed":  failed,
	}

	if err != nil {
		return telemetry.CommandTelemetry{
			Command:   "downgrade",
			Success:   false,
			ExitCode:  1,
			Error:     err,
			Arguments: arguments,
			Extra:     extra,
		}, err
	}

	deps.logger.Log(i18n.T("cmd.downgrade.summary", i18n.Tvars{
		Data: &i18n.TData{
			"target":  string(desired),
			"patched": patched,
			"skipped": skipped,
			"failed":  failed,
		},
	}), true)

	if failed > 0 {
		return telemetry.CommandTelemetry{
			Command:   "downgrade",
			Success:   false,
			ExitCode:  1,
			Error:     errStepsFailed,
			Arguments: arguments,
			Extra:     extra,
		}, errStepsFailed
	}

	return telemetry.CommandTelemetry{
		Command:   "downgrade",
		Success:   true,
		ExitCode:  0,
		Arguments: arguments,
		Extra:     extra,
	}, nil
}

func parseTarget(target string) (models.InstallType, error) {
	switch strings.ToLower(target) {
	case "og":
		return models.OG, nil
	case "ng":
		return models.NG, nil
	}
	return models.Unknown, fmt.Errorf("unknown target version: %s", target)
}

// progressLogger turns download progress messages into debug log lines
// at ten percent steps.
type progressLogger struct {
	log  *logger.Logger
	last int
}

func (p *progressLogger) Send(msg tea.Msg) {
	progress, ok := msg.(httpclient.ProgressMsg)
	if !ok {
		return
	}
	step := int(float64(progress) * 10)
	if step == p.last {
		return
	}
	p.last = step
	p.log.Debug(i18n.T("cmd.downgrade.progress", i18n.Tvars{
		Data: &i18n.TData{"percent": step * 10},
	}))
}
