package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/config"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
)

type settingsOptions struct {
	SettingsPath string
	Action       string
	Args         []string
	Quiet        bool
	Debug        bool
}

type settingsDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: i18n.T("cmd.settings.short"),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: i18n.T("cmd.settings.list.short"),
		Args:  cobra.NoArgs,
		RunE:  runAction("list"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: i18n.T("cmd.settings.get.short"),
		Args:  cobra.ExactArgs(1),
		RunE:  runAction("get"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: i18n.T("cmd.settings.set.short"),
		Args:  cobra.ExactArgs(2),
		RunE:  runAction("set"),
	})

	return cmd
}

// runAction builds the RunE shared by the subcommands. All three report
// under one command name; the action travels in the telemetry arguments.
func runAction(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_, span := perf.StartSpan(cmd.Context(), "app.command.settings",
			perf.WithAttributes(attribute.String("action", action)))
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

		deps := settingsDeps{
			fs:        afero.NewOsFs(),
			logger:    log,
			telemetry: telemetry.RecordCommand,
		}

		payload, err := runSettings(settingsOptions{
			SettingsPath: settingsPath,
			Action:       action,
			Args:         args,
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
	}
}

func runSettings(opts settingsOptions, deps settingsDeps) (telemetry.CommandTelemetry, error) {
	arguments := map[string]interface{}{"action": opts.Action}
	if len(opts.Args) > 0 {
		arguments["key"] = opts.Args[0]
	}

	meta := config.NewMetadata(opts.SettingsPath)
	cfg, err := config.LoadSettings(deps.fs, meta)
	if err != nil {
		return telemetry.CommandTelemetry{Command: "settings", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
	}

	switch opts.Action {
	case "list":
		for _, key := range config.Keys() {
			deps.logger.Log(renderEntry(cfg, key), false)
		}
	case "get":
		key := opts.Args[0]
		if _, ok := cfg.Value(key); !ok {
			err := fmt.Errorf("unknown settings key: %s", key)
			return telemetry.CommandTelemetry{Command: "settings", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
		}
		deps.logger.Log(renderEntry(cfg, key), false)
	case "set":
		key := opts.Args[0]
		if !cfg.Apply(key, normalizeValue(opts.Args[1])) {
			err := fmt.Errorf("unknown settings key: %s", key)
			if _, ok := cfg.Value(key); ok {
				err = fmt.Errorf("invalid value for %s: %s", key, opts.Args[1])
			}
			return telemetry.CommandTelemetry{Command: "settings", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
		}
		if err := config.SaveSettings(deps.fs, meta, cfg); err != nil {
			return telemetry.CommandTelemetry{Command: "settings", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
		}
		deps.logger.Log(renderEntry(cfg, key), false)
	}

	return telemetry.CommandTelemetry{Command: "settings", Success: true, ExitCode: 0, Arguments: arguments}, nil
}

// renderEntry prints a key and its value as it appears on disk.
func renderEntry(cfg config.Settings, key string) string {
	value, _ := cfg.Value(key)
	rendered, err := json.Marshal(value)
	if err != nil {
		rendered = []byte(fmt.Sprint(value))
	}
	return i18n.T("cmd.settings.entry", i18n.Tvars{
		Data: &i18n.TData{
			"key":   fmt.Sprintf("%-26s", key),
			"value": string(rendered),
		},
	})
}

// normalizeValue accepts raw JSON or a bare string, so INFO works as well
// as "INFO" on the shell.
func normalizeValue(value string) json.RawMessage {
	trimmed := strings.TrimSpace(value)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(value)
	if err != nil {
		return json.RawMessage(value)
	}
	return quoted
}
