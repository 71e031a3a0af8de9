package f4se

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	f4selib "github.com/collective-modding/cm-toolkit/internal/f4se"
	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	"github.com/collective-modding/cm-toolkit/internal/tui"
)

type f4seOptions struct {
	GamePath string
	Quiet    bool
	Debug    bool
}

type f4seDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)

	newGame  func(afero.Fs, string) (*game.Game, error)
	overview func(context.Context, afero.Fs, *game.Game) ([]*models.ProblemInfo, error)
	scan     func(ctx context.Context, fs afero.Fs, pluginsDir string) (map[string]*models.DLLInfo, error)
}

func defaultOverview(ctx context.Context, fs afero.Fs, g *game.Game) ([]*models.ProblemInfo, error) {
	return g.Overview(ctx, fs)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "f4se",
		Short: i18n.T("cmd.f4se.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.f4se")
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

			deps := f4seDeps{
				fs:        afero.NewOsFs(),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				newGame:   game.New,
				overview:  defaultOverview,
				scan:      f4selib.ScanPlugins,
			}

			payload, err := runF4SE(ctx, cmd, f4seOptions{
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

func runF4SE(ctx context.Context, cmd *cobra.Command, opts f4seOptions, deps f4seDeps) (telemetry.CommandTelemetry, error) {
	g, err := deps.newGame(deps.fs, opts.GamePath)
	if err != nil {
		deps.logger.Error(i18n.T("cmd.f4se.game_not_found"))
		return telemetry.CommandTelemetry{Command: "f4se", Success: false, ExitCode: 1, Error: err}, err
	}

	// The overview pass fixes the install generation the verdicts are
	// judged against.
	if _, err := deps.overview(ctx, deps.fs, g); err != nil {
		return telemetry.CommandTelemetry{Command: "f4se", Success: false, ExitCode: 1, Error: err}, err
	}

	arguments := map[string]interface{}{
		"explicit_game_path": opts.GamePath != "",
	}

	if g.F4SEPath == "" {
		deps.logger.Log(i18n.T("cmd.f4se.not_installed"), true)
		return telemetry.CommandTelemetry{
			Command:   "f4se",
			Success:   true,
			ExitCode:  0,
			Arguments: arguments,
			Extra:     map[string]interface{}{"dlls": 0, "plugins": 0, "incompatible": 0},
		}, nil
	}

	infos, err := deps.scan(ctx, deps.fs, g.F4SEPath)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "f4se", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
	}

	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)

	deps.logger.Log(i18n.T("cmd.f4se.header", i18n.Tvars{
		Data: &i18n.TData{
			"install": string(g.InstallType),
			"count":   len(names),
		},
	}), false)

	colorize := tui.IsTerminalWriter(cmd.OutOrStdout())
	plugins, incompatible := 0, 0

	for _, name := range names {
		info := infos[name]
		if info == nil || !info.IsF4SE {
			deps.logger.Log(i18n.T("cmd.f4se.entry.skipped", i18n.Tvars{
				Data: &i18n.TData{"name": fmt.Sprintf("%-40s", name)},
			}), false)
			continue
		}

		plugins++
		icon := tui.SuccessIcon(colorize)
		if !f4selib.Compatible(info, g.InstallType) {
			incompatible++
			icon = tui.ErrorIcon(colorize)
		}

		deps.logger.Log(fmt.Sprintf("%s %s", icon, i18n.T("cmd.f4se.entry", i18n.Tvars{
			Data: &i18n.TData{
				"name": fmt.Sprintf("%-40s", name),
				"og":   supportCell(info.SupportsOG),
				"ng":   supportCell(info.SupportsNG),
			},
		})), false)
	}

	deps.logger.Log(i18n.T("cmd.f4se.summary", i18n.Tvars{
		Data: &i18n.TData{
			"plugins":      plugins,
			"incompatible": incompatible,
		},
	}), true)

	return telemetry.CommandTelemetry{
		Command:   "f4se",
		Success:   true,
		ExitCode:  0,
		Arguments: arguments,
		Extra: map[string]interface{}{
			"dlls":         len(names),
			"plugins":      plugins,
			"incompatible": incompatible,
			"install_type": string(g.InstallType),
		},
	}, nil
}

func supportCell(value *bool) string {
	if value != nil && *value {
		return "yes"
	}
	return "no"
}
