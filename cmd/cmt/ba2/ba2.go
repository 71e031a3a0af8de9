package ba2

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	ba2lib "github.com/collective-modding/cm-toolkit/internal/ba2"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	"github.com/collective-modding/cm-toolkit/internal/tui"
)

var errPatchesFailed = errors.New("some archives could not be patched")

type ba2Options struct {
	GamePath string
	Target   string
	Filter   string
	Quiet    bool
	Debug    bool
}

type ba2Deps struct {
	fs        afero.Fs
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)

	newGame  func(afero.Fs, string) (*game.Game, error)
	overview func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error)
	patchAll func(ctx context.Context, fs afero.Fs, paths []string, desired models.ArchiveVersion, progress func(ba2lib.PatchResult)) (ba2lib.Summary, error)
}

func defaultOverview(ctx context.Context, fs afero.Fs, g *game.Game) ([]*models.ProblemInfo, error) {
	return g.Overview(ctx, fs)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ba2",
		Short: i18n.T("cmd.ba2.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.ba2")
			defer span.End()

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
			filter, err := cmd.Flags().GetString("filter")
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

			deps := ba2Deps{
				fs:        afero.NewOsFs(),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				newGame:   game.New,
				overview:  defaultOverview,
				patchAll:  ba2lib.PatchAll,
			}

			payload, err := runBA2(ctx, cmd, ba2Options{
				GamePath: gamePath,
				Target:   target,
				Filter:   filter,
				Quiet:    quiet,
				Debug:    debug,
			}, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))

			if err != nil {
				cmd.SilenceUsage = true
				if errors.Is(err, game.ErrGameNotFound) || errors.Is(err, errPatchesFailed) {
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

	cmd.Flags().String("target", "", i18n.T("cmd.ba2.flag.target"))
	cmd.Flags().String("filter", "", i18n.T("cmd.ba2.flag.filter"))
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runBA2(ctx context.Context, cmd *cobra.Command, opts ba2Options, deps ba2Deps) (telemetry.CommandTelemetry, error) {
	desired, err := parseTarget(opts.Target)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "ba2", Success: false, ExitCode: 1, Error: err}, err
	}

	arguments := map[string]interface{}{
		"target":   strings.ToLower(opts.Target),
		"filtered": opts.Filter != "",
	}

	g, err := deps.newGame(deps.fs, opts.GamePath)
	if err != nil {
		deps.logger.Error(i18n.T("cmd.ba2.game_not_found"))
		return telemetry.CommandTelemetry{Command: "ba2", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
	}

	// The overview pass classifies every enabled archive by generation.
	if _, err := deps.overview(ctx, deps.fs, g); err != nil {
		return telemetry.CommandTelemetry{Command: "ba2", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
	}

	paths := ba2lib.FilterNames(candidates(g, desired), opts.Filter)
	if len(paths) == 0 {
		deps.logger.Log(i18n.T("cmd.ba2.nothing", i18n.Tvars{
			Data: &i18n.TData{"target": string(desired.InstallType())},
		}), true)
		return telemetry.CommandTelemetry{
			Command:   "ba2",
			Success:   true,
			ExitCode:  0,
			Arguments: arguments,
			Extra:     map[string]interface{}{"candidates": 0, "patched": 0, "failed": 0},
		}, nil
	}

	colorize := tui.IsTerminalWriter(cmd.OutOrStdout())

	summary, err := deps.patchAll(ctx, deps.fs, paths, desired, func(result ba2lib.PatchResult) {
		icon := tui.SuccessIcon(colorize)
		if result.Outcome.Failed() {
			icon = tui.ErrorIcon(colorize)
		}
		deps.logger.Log(fmt.Sprintf("%s %s", icon, i18n.T("cmd.ba2.entry", i18n.Tvars{
			Data: &i18n.TData{
				"name":    result.Name,
				"outcome": i18n.T(outcomeKey(result.Outcome)),
			},
		})), false)
	})

	extra := map[string]interface{}{
		"candidates": len(paths),
		"patched":    summary.Patched,
		"failed":     summary.Failed,
	}

	if err != nil {
		return telemetry.CommandTelemetry{
			Command:   "ba2",
			Success:   false,
			ExitCode:  1,
			Error:     err,
			Arguments: arguments,
			Extra:     extra,
		}, err
	}

	deps.logger.Log(i18n.T("cmd.ba2.summary", i18n.Tvars{
		Data: &i18n.TData{
			"patched": summary.Patched,
			"failed":  summary.Failed,
		},
	}), true)

	if summary.Failed > 0 {
		return telemetry.CommandTelemetry{
			Command:   "ba2",
			Success:   false,
			ExitCode:  1,
			Error:     errPatchesFailed,
			Arguments: arguments,
			Extra:     extra,
		}, errPatchesFailed
	}

	return telemetry.CommandTelemetry{
		Command:   "ba2",
		Success:   true,
		ExitCode:  0,
		Arguments: arguments,
		Extra:     extra,
	}, nil
}

func parseTarget(target string) (models.ArchiveVersion, error) {
	switch strings.ToLower(target) {
	case "og":
		return models.ArchiveVersionOG, nil
	case "ng":
		return models.ArchiveVersionNG, nil
	}
	return 0, fmt.Errorf("unknown target version: %s", target)
}

// candidates selects the enabled archives of the opposite generation,
// sorted for stable output.
func candidates(g *game.Game, desired models.ArchiveVersion) []string {
	source := g.ArchivesNG
	if desired == models.ArchiveVersionNG {
		source = g.ArchivesOG
	}

	paths := make([]string, 0, len(source))
	for path := range source {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func outcomeKey(outcome ba2lib.PatchOutcome) string {
	switch outcome {
	case ba2lib.Patched:
		return "cmd.ba2.outcome.patched"
	case ba2lib.AlreadyPatched:
		return "cmd.ba2.outcome.already"
	case ba2lib.BadMagic:
		return "cmd.ba2.outcome.bad_magic"
	case ba2lib.UnknownVersion:
		return "cmd.ba2.outcome.unknown_version"
	case ba2lib.NotFound:
		return "cmd.ba2.outcome.not_found"
	case ba2lib.NoPermission:
		return "cmd.ba2.outcome.no_permission"
	default:
		return "cmd.ba2.outcome.os_error"
	}
}
