package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/scanner"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	"github.com/collective-modding/cm-toolkit/internal/tui"
)

type scanOptions struct {
	SettingsPath string
	GamePath     string
	Quiet        bool
	Debug        bool
}

type scanDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	engineLog *logger.EngineLog
	telemetry func(telemetry.CommandTelemetry)

	newGame  func(afero.Fs, string) (*game.Game, error)
	overview func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error)
	run      func(ctx context.Context, fs afero.Fs, g *game.Game, settings scanner.Settings, overviewProblems []*models.ProblemInfo, log *logger.EngineLog) <-chan scanner.Event
}

func defaultOverview(ctx context.Context, fs afero.Fs, g *game.Game) ([]*models.ProblemInfo, error) {
	return g.Overview(ctx, fs)
}

func defaultRun(ctx context.Context, fs afero.Fs, g *game.Game, settings scanner.Settings, overviewProblems []*models.ProblemInfo, log *logger.EngineLog) <-chan scanner.Event {
	return scanner.New(fs, g, settings, overviewProblems, log).Run(ctx)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: i18n.T("cmd.scan.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.scan")
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

			deps := scanDeps{
				fs:        afero.NewOsFs(),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				newGame:   game.New,
				overview:  defaultOverview,
				run:       defaultRun,
			}

			payload, err := runScan(ctx, cmd, scanOptions{
				SettingsPath: settingsPath,
				GamePath:     gamePath,
				Quiet:        quiet,
				Debug:        debug,
			}, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))

			if err != nil {
				cmd.SilenceUsage = true
				if errors.Is(err, game.ErrGameNotFound) {
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

	for _, stage := range models.AllScanSettings() {
		cmd.Flags().Bool(stage.FlagName(), true, i18n.T("cmd.scan.flag.stage", i18n.Tvars{
			Data: &i18n.TData{"stage": stage.Label()},
		}))
	}

	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, opts scanOptions, deps scanDeps) (telemetry.CommandTelemetry, error) {
	meta := config.NewMetadata(opts.SettingsPath)
	cfg, err := config.LoadSettings(deps.fs, meta)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "scan", Success: false, ExitCode: 1, Error: err}, err
	}

	// Stage flags override the persisted toggles only when given.
	for _, stage := range models.AllScanSettings() {
		if !cmd.Flags().Changed(stage.FlagName()) {
			continue
		}
		enabled, flagErr := cmd.Flags().GetBool(stage.FlagName())
		if flagErr != nil {
			return telemetry.CommandTelemetry{Command: "scan", Success: false, ExitCode: 1, Error: flagErr}, flagErr
		}
		cfg.SetScanEnabled(stage, enabled)
	}

	g, err := deps.newGame(deps.fs, opts.GamePath)
	if err != nil {
		deps.logger.Error(i18n.T("cmd.scan.game_not_found"))
		return telemetry.CommandTelemetry{Command: "scan", Success: false, ExitCode: 1, Error: err}, err
	}

	// The overview pass feeds the scanner: enabled modules and archives,
	// BA2 suffixes, and the OverviewIssues findings all come from it.
	overviewProblems, err := deps.overview(ctx, deps.fs, g)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "scan", Success: false, ExitCode: 1, Error: err}, err
	}

	settings := scanner.NewSettings(cfg, g.Manager)
	if err := settings.LoadPathIgnores(deps.fs, g, cfg.IgnorePatterns...); err != nil {
		return telemetry.CommandTelemetry{Command: "scan", Success: false, ExitCode: 1, Error: err}, err
	}

	engineLog := deps.engineLog
	if engineLog == nil {
		engineLog = logger.EngineLogFor(cmd.ErrOrStderr(), cfg.LogLevel, opts.Debug)
	}

	colorize := tui.IsTerminalWriter(cmd.OutOrStdout())

	var stats scanner.Stats
	var scanErr error
	for event := range deps.run(ctx, deps.fs, g, settings, overviewProblems, engineLog) {
		switch event := event.(type) {
		case scanner.StageChanged:
			deps.logger.Log(i18n.T("cmd.scan.stage", i18n.Tvars{
				Data: &i18n.TData{"stage": event.Stage},
			}), false)
		case scanner.FolderProgress:
			deps.logger.Debug(i18n.T("cmd.scan.folder", i18n.Tvars{
				Data: &i18n.TData{
					"folder": event.Folder,
					"index":  event.Index + 1,
					"total":  event.Total,
				},
			}))
		case scanner.ProblemsFound:
			for _, problem := range event.Problems {
				printProblem(deps.logger, colorize, problem)
			}
		case scanner.Done:
			stats = event.Stats
			scanErr = event.Err
		}
	}

	arguments := map[string]interface{}{
		"stages": stageNames(cfg),
	}

	if scanErr != nil {
		return telemetry.CommandTelemetry{
			Command:   "scan",
			Success:   false,
			ExitCode:  1,
			Error:     scanErr,
			Arguments: arguments,
		}, scanErr
	}

	deps.logger.Log(i18n.T("cmd.scan.summary", i18n.Tvars{
		Data: &i18n.TData{
			"files":    stats.FilesScanned,
			"problems": stats.ProblemsFound,
		},
	}), true)

	return telemetry.CommandTelemetry{
		Command:   "scan",
		Success:   true,
		ExitCode:  0,
		Arguments: arguments,
		Extra: map[string]interface{}{
			"files_scanned":  stats.FilesScanned,
			"problems_found": stats.ProblemsFound,
		},
	}, nil
}

func printProblem(log *logger.Logger, colorize bool, problem *models.ProblemInfo) {
	log.Log(fmt.Sprintf("%s %s", tui.ErrorIcon(colorize), i18n.T("cmd.scan.problem", i18n.Tvars{
		Data: &i18n.TData{
			"type": string(problem.Type),
			"path": problem.RelativePath,
			"mod":  problem.Mod,
		},
	})), false)

	if problem.Summary != "" {
		log.Log(i18n.T("cmd.scan.problem.summary", i18n.Tvars{
			Data: &i18n.TData{"summary": problem.Summary},
		}), false)
	}
	if problem.Solution != "" {
		log.Log(i18n.T("cmd.scan.problem.solution", i18n.Tvars{
			Data: &i18n.TData{"solution": string(problem.Solution)},
		}), false)
	}
}

func stageNames(cfg config.Settings) []string {
	stages := cfg.EnabledScans()
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, string(stage))
	}
	return names
}
