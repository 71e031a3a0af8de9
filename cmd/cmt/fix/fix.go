package fix

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/autofix"
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

var errFixesFailed = errors.New("some fixes could not be applied")

type fixOptions struct {
	SettingsPath string
	GamePath     string
	Yes          bool
	Quiet        bool
	Debug        bool
}

type fixDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	engineLog *logger.EngineLog
	telemetry func(telemetry.CommandTelemetry)

	newGame  func(afero.Fs, string) (*game.Game, error)
	overview func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error)
	run      func(ctx context.Context, fs afero.Fs, g *game.Game, settings scanner.Settings, overviewProblems []*models.ProblemInfo, log *logger.EngineLog) <-chan scanner.Event
	newFixer func(fs afero.Fs, log *logger.EngineLog) *autofix.Fixer
}

func defaultOverview(ctx context.Context, fs afero.Fs, g *game.Game) ([]*models.ProblemInfo, error) {
	return g.Overview(ctx, fs)
}

func defaultRun(ctx context.Context, fs afero.Fs, g *game.Game, settings scanner.Settings, overviewProblems []*models.ProblemInfo, log *logger.EngineLog) <-chan scanner.Event {
	return scanner.New(fs, g, settings, overviewProblems, log).Run(ctx)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: i18n.T("cmd.fix.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.fix")
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
			yes, err := cmd.Flags().GetBool("yes")
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

			deps := fixDeps{
				fs:        afero.NewOsFs(),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				newGame:   game.New,
				overview:  defaultOverview,
				run:       defaultRun,
				newFixer:  autofix.New,
			}

			payload, err := runFix(ctx, cmd, fixOptions{
				SettingsPath: settingsPath,
				GamePath:     gamePath,
				Yes:          yes,
				Quiet:        quiet,
				Debug:        debug,
			}, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))

			if err != nil {
				cmd.SilenceUsage = true
				if errors.Is(err, game.ErrGameNotFound) || errors.Is(err, errFixesFailed) {
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

	cmd.Flags().BoolP("yes", "y", false, i18n.T("cmd.fix.flag.yes"))

	return cmd
}

func runFix(ctx context.Context, cmd *cobra.Command, opts fixOptions, deps fixDeps) (telemetry.CommandTelemetry, error) {
	meta := config.NewMetadata(opts.SettingsPath)
	cfg, err := config.LoadSettings(deps.fs, meta)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "fix", Success: false, ExitCode: 1, Error: err}, err
	}

	g, err := deps.newGame(deps.fs, opts.GamePath)
	if err != nil {
		deps.logger.Error(i18n.T("cmd.fix.game_not_found"))
		return telemetry.CommandTelemetry{Command: "fix", Success: false, ExitCode: 1, Error: err}, err
	}

	overviewProblems, err := deps.overview(ctx, deps.fs, g)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "fix", Success: false, ExitCode: 1, Error: err}, err
	}

	settings := scanner.NewSettings(cfg, g.Manager)
	if err := settings.LoadPathIgnores(deps.fs, g, cfg.IgnorePatterns...); err != nil {
		return telemetry.CommandTelemetry{Command: "fix", Success: false, ExitCode: 1, Error: err}, err
	}

	engineLog := deps.engineLog
	if engineLog == nil {
		engineLog = logger.EngineLogFor(cmd.ErrOrStderr(), cfg.LogLevel, opts.Debug)
	}

	var problems []*models.ProblemInfo
	var scanErr error
	for event := range deps.run(ctx, deps.fs, g, settings, overviewProblems, engineLog) {
		switch event := event.(type) {
		case scanner.StageChanged:
			deps.logger.Debug(event.Stage)
		case scanner.ProblemsFound:
			problems = append(problems, event.Problems...)
		case scanner.Done:
			scanErr = event.Err
		}
	}
	if scanErr != nil {
		return telemetry.CommandTelemetry{Command: "fix", Success: false, ExitCode: 1, Error: scanErr}, scanErr
	}

	fixer := deps.newFixer(deps.fs, engineLog)
	var fixable []*models.ProblemInfo
	for _, problem := range problems {
		if fixer.Fixable(problem) {
			fixable = append(fixable, problem)
		}
	}

	extra := map[string]interface{}{
		"problems_found": len(problems),
		"fixable":        len(fixable),
		"fixed":          0,
		"failed":         0,
	}
	arguments := map[string]interface{}{"yes": opts.Yes}

	if len(fixable) == 0 {
		deps.logger.Log(i18n.T("cmd.fix.nothing", i18n.Tvars{Count: len(problems)}), true)
		return telemetry.CommandTelemetry{
			Command:   "fix",
			Success:   true,
			ExitCode:  0,
			Arguments: arguments,
			Extra:     extra,
		}, nil
	}

	for _, problem := range fixable {
		deps.logger.Log(i18n.T("cmd.fix.candidate", i18n.Tvars{
			Data: &i18n.TData{
				"type":     string(problem.Type),
				"path":     problem.RelativePath,
				"solution": string(problem.Solution),
			},
		}), false)
	}

	if !opts.Yes && !askConfirm(cmd, len(fixable)) {
		deps.logger.Log(i18n.T("cmd.fix.cancelled"), true)
		return telemetry.CommandTelemetry{
			Command:   "fix",
			Success:   true,
			ExitCode:  0,
			Arguments: arguments,
			Extra:     extra,
		}, nil
	}

	colorize := tui.IsTerminalWriter(cmd.OutOrStdout())

	results := fixer.ApplyAll(ctx, fixable, func(index, total int, path string) {
		deps.logger.Debug(i18n.T("cmd.fix.applying", i18n.Tvars{
			Data: &i18n.TData{
				"index": index + 1,
				"total": total,
				"path":  path,
			},
		}))
	})

	fixed, failed := 0, 0
	for i, result := range results {
		icon := tui.SuccessIcon(colorize)
		if result.Success {
			fixed++
		} else {
			failed++
			icon = tui.ErrorIcon(colorize)
		}
		deps.logger.Log(fmt.Sprintf("%s %s", icon, i18n.T("cmd.fix.result", i18n.Tvars{
			Data: &i18n.TData{
				"path":    fixable[i].RelativePath,
				"details": result.Details,
			},
		})), false)
	}

	deps.logger.Log(i18n.T("cmd.fix.summary", i18n.Tvars{
		Data: &i18n.TData{
			"fixed":  fixed,
			"failed": failed,
		},
	}), true)

	extra["fixed"] = fixed
	extra["failed"] = failed

	if failed > 0 {
		return telemetry.CommandTelemetry{
			Command:   "fix",
			Success:   false,
			ExitCode:  1,
			Error:     errFixesFailed,
			Arguments: arguments,
			Extra:     extra,
		}, errFixesFailed
	}

	return telemetry.CommandTelemetry{
		Command:   "fix",
		Success:   true,
		ExitCode:  0,
		Arguments: arguments,
		Extra:     extra,
	}, nil
}

// askConfirm prints the y/N question and reads one answer line. Anything
// but an explicit yes keeps hands off the files.
func askConfirm(cmd *cobra.Command, count int) bool {
	fmt.Fprint(cmd.OutOrStdout(), i18n.T("cmd.fix.confirm", i18n.Tvars{Count: count})+" ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
