package overview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/constants"
	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/sysinfo"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	"github.com/collective-modding/cm-toolkit/internal/tui"
)

type overviewOptions struct {
	GamePath string
	Quiet    bool
	Debug    bool
}

type overviewDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)

	newGame  func(afero.Fs, string) (*game.Game, error)
	overview func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error)
	collect  func(context.Context) sysinfo.Specs
}

func defaultOverview(ctx context.Context, fs afero.Fs, g *game.Game) ([]*models.ProblemInfo, error) {
	return g.Overview(ctx, fs)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview",
		Short: i18n.T("cmd.overview.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.overview")
			defer span.End()

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

			deps := overviewDeps{
				fs:        afero.NewOsFs(),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				newGame:   game.New,
				overview:  defaultOverview,
				collect:   sysinfo.Collect,
			}

			payload, err := runOverview(ctx, cmd, overviewOptions{
				GamePath: gamePath,
				Quiet:    quiet,
				Debug:    debug,
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

	return cmd
}

func runOverview(ctx context.Context, cmd *cobra.Command, opts overviewOptions, deps overviewDeps) (telemetry.CommandTelemetry, error) {
	specs := deps.collect(ctx)

	g, err := deps.newGame(deps.fs, opts.GamePath)
	if err != nil {
		deps.logger.Error(i18n.T("cmd.overview.game_not_found"))
		return telemetry.CommandTelemetry{Command: "overview", Success: false, ExitCode: 1, Error: err}, err
	}

	problems, err := deps.overview(ctx, deps.fs, g)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "overview", Success: false, ExitCode: 1, Error: err}, err
	}

	printHeader(deps.logger, specs)
	printGame(deps.logger, g)
	printBinaries(deps.logger, g)
	printCounts(deps.logger, cmd.OutOrStdout(), g)
	printProblems(deps.logger, cmd.OutOrStdout(), problems)

	return telemetry.CommandTelemetry{
		Command:  "overview",
		Success:  true,
		ExitCode: 0,
		Arguments: map[string]interface{}{
			"explicit_game_path": opts.GamePath != "",
		},
		Extra: map[string]interface{}{
			"os":           specs.OS,
			"cpu":          specs.CPU,
			"ram_gb":       specs.RAMGB,
			"wine":         specs.UsingWine,
			"install_type": string(g.InstallType),
			"problems":     len(problems),
		},
	}, nil
}

func printHeader(log *logger.Logger, specs sysinfo.Specs) {
	log.Log(i18n.T("cmd.overview.header", i18n.Tvars{
		Data: &i18n.TData{
			"title":   constants.AppTitle,
			"version": environment.AppVersion(),
		},
	}), false)
	log.Log(i18n.T("cmd.overview.system", i18n.Tvars{
		Data: &i18n.TData{
			"os":  specs.OS,
			"cpu": specs.CPU,
			"ram": specs.RAMGB,
		},
	}), false)
}

func printGame(log *logger.Logger, g *game.Game) {
	log.Log(i18n.T("cmd.overview.game", i18n.Tvars{
		Data: &i18n.TData{
			"path":    g.GamePath,
			"install": string(g.InstallType),
		},
	}), false)

	if g.Manager != nil {
		log.Log(i18n.T("cmd.overview.manager", i18n.Tvars{
			Data: &i18n.TData{
				"name":    string(g.Manager.Name),
				"version": g.Manager.Version,
			},
		}), false)
	} else {
		log.Log(i18n.T("cmd.overview.no_manager"), false)
	}
}

func printBinaries(log *logger.Logger, g *game.Game) {
	log.Log(i18n.T("cmd.overview.binaries.header"), false)

	for _, base := range game.BaseFiles() {
		name := filepath.Base(base.Name)
		info := g.FileInfo[name]

		version := info.Version
		if version == "" {
			version = "-"
		}

		log.Log(i18n.T("cmd.overview.binaries.entry", i18n.Tvars{
			Data: &i18n.TData{
				"name":    fmt.Sprintf("%-22s", name),
				"version": fmt.Sprintf("%-12s", version),
				"install": string(info.InstallType),
			},
		}), false)
	}
}

func printCounts(log *logger.Logger, out io.Writer, g *game.Game) {
	colorize := tui.IsTerminalWriter(out)

	log.Log(i18n.T("cmd.overview.modules", i18n.Tvars{
		Data: &i18n.TData{
			"full":      countWithLimit(colorize, g.CountFull, constants.MaxModulesFull),
			"light":     countWithLimit(colorize, g.CountLight, constants.MaxModulesLight),
			"v95":       g.CountV1,
			"unreadable": len(g.ModulesUnreadable),
		},
	}), false)

	log.Log(i18n.T("cmd.overview.archives", i18n.Tvars{
		Data: &i18n.TData{
			"general":  countWithLimit(colorize, g.CountGNRL, constants.MaxArchivesGNRL),
			"textures": g.CountDX10,
			"og":       len(g.ArchivesOG),
			"ng":       len(g.ArchivesNG),
		},
	}), false)
}

// countWithLimit renders "count / limit", flagged when the count has
// crossed the warning threshold.
func countWithLimit(colorize bool, count, limit int) string {
	text := fmt.Sprintf("%d / %d", count, limit)
	if game.LimitWarning(count, limit) {
		return fmt.Sprintf("%s %s", text, tui.ErrorIcon(colorize))
	}
	return text
}

func printProblems(log *logger.Logger, out io.Writer, problems []*models.ProblemInfo) {
	if len(problems) == 0 {
		log.Log(i18n.T("cmd.overview.no_problems"), false)
		return
	}

	colorize := tui.IsTerminalWriter(out)
	log.Log(i18n.T("cmd.overview.problems.header", i18n.Tvars{Count: len(problems)}), false)

	sorted := make([]*models.ProblemInfo, len(problems))
	copy(sorted, problems)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		return sorted[i].RelativePath < sorted[j].RelativePath
	})

	for _, problem := range sorted {
		log.Log(fmt.Sprintf("%s %s", tui.ErrorIcon(colorize), i18n.T("cmd.overview.problems.entry", i18n.Tvars{
			Data: &i18n.TData{
				"type":    string(problem.Type),
				"path":    problem.RelativePath,
				"summary": problem.Summary,
			},
		})), false)
		if problem.Solution != "" {
			log.Log(i18n.T("cmd.overview.problems.solution", i18n.Tvars{
				Data: &i18n.TData{"solution": string(problem.Solution)},
			}), false)
		}
	}
}
