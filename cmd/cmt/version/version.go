package version

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/httpclient"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	"github.com/collective-modding/cm-toolkit/internal/update"
)

type versionOptions struct {
	SettingsPath string
	Quiet        bool
	Debug        bool
}

type versionDeps struct {
	fs        afero.Fs
	client    httpclient.Doer
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)

	check func(ctx context.Context, doer httpclient.Doer, source string, currentVersion string) []update.Available
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("cmd.version.short"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.version")
			defer span.End()

			settingsPath, err := cmd.Flags().GetString("settings")
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

			deps := versionDeps{
				fs:        afero.NewOsFs(),
				client:    httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0)),
				logger:    log,
				telemetry: telemetry.RecordCommand,
				check:     update.Check,
			}

			payload, err := runVersion(ctx, cmd, versionOptions{
				SettingsPath: settingsPath,
				Quiet:        quiet,
				Debug:        debug,
			}, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))

			if err != nil {
				cmd.SilenceUsage = true
			}

			if deps.telemetry != nil {
				deps.telemetry(payload)
			}
			return err
		},
	}

	return cmd
}

func runVersion(ctx context.Context, cmd *cobra.Command, opts versionOptions, deps versionDeps) (telemetry.CommandTelemetry, error) {
	fmt.Fprintln(cmd.OutOrStdout(), environment.AppVersion())

	meta := config.NewMetadata(opts.SettingsPath)
	cfg, err := config.LoadSettings(deps.fs, meta)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "version", Success: false, ExitCode: 1, Error: err}, err
	}

	payload := telemetry.CommandTelemetry{
		Command:  "version",
		Success:  true,
		ExitCode: 0,
		Arguments: map[string]interface{}{
			"update_source": cfg.UpdateSource,
		},
	}

	if cfg.UpdateSource == config.UpdateSourceNone {
		return payload, nil
	}

	found := deps.check(ctx, deps.client, cfg.UpdateSource, environment.AppVersion())
	if len(found) == 0 {
		deps.logger.Log(i18n.T("cmd.version.up_to_date"), false)
		return payload, nil
	}

	for _, available := range found {
		deps.logger.Log(i18n.T("cmd.version.update_available", i18n.Tvars{
			Data: &i18n.TData{
				"version": available.Version,
				"source":  available.Source,
				"url":     available.URL,
			},
		}), true)
	}

	return payload, nil
}
