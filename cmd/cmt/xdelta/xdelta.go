package xdelta

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/perf"
	"github.com/collective-modding/cm-toolkit/internal/telemetry"
	xdeltalib "github.com/collective-modding/cm-toolkit/internal/xdelta"
)

type xdeltaOptions struct {
	Mode  string
	Args  []string
	Quiet bool
	Debug bool
}

type xdeltaDeps struct {
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)

	encode func(ctx context.Context, sourceFile string, targetFile string, patchFile string) error
	decode func(ctx context.Context, sourceFile string, patchFile string, outputFile string) error
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xdelta",
		Short: i18n.T("cmd.xdelta.short"),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <source> <target> <patch>",
		Short: i18n.T("cmd.xdelta.encode.short"),
		Args:  cobra.ExactArgs(3),
		RunE:  runMode("encode"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <source> <patch> <output>",
		Short: i18n.T("cmd.xdelta.decode.short"),
		Args:  cobra.ExactArgs(3),
		RunE:  runMode("decode"),
	})

	return cmd
}

// runMode builds the RunE shared by encode and decode. Both report under
// one command name; the mode travels in the telemetry arguments.
func runMode(mode string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, span := perf.StartSpan(cmd.Context(), "app.command.xdelta",
			perf.WithAttributes(attribute.String("mode", mode)))
		defer span.End()

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

		codec := xdeltalib.New()
		deps := xdeltaDeps{
			logger:    log,
			telemetry: telemetry.RecordCommand,
			encode:    codec.Encode,
			decode:    codec.Decode,
		}

		payload, err := runXdelta(ctx, xdeltaOptions{
			Mode:  mode,
			Args:  args,
			Quiet: quiet,
			Debug: debug,
		}, deps)
		span.SetAttributes(attribute.Bool("success", err == nil))

		if err != nil {
			cmd.SilenceUsage = true
			if errors.Is(err, xdeltalib.ErrXdeltaNotFound) {
				// Already reported through the logger.
				cmd.SilenceErrors = true
			}
		}

		if deps.telemetry != nil {
			deps.telemetry(payload)
		}
		return err
	}
}

func runXdelta(ctx context.Context, opts xdeltaOptions, deps xdeltaDeps) (telemetry.CommandTelemetry, error) {
	arguments := map[string]interface{}{"mode": opts.Mode}

	var err error
	if opts.Mode == "encode" {
		err = deps.encode(ctx, opts.Args[0], opts.Args[1], opts.Args[2])
	} else {
		err = deps.decode(ctx, opts.Args[0], opts.Args[1], opts.Args[2])
	}

	if err != nil {
		if errors.Is(err, xdeltalib.ErrXdeltaNotFound) {
			deps.logger.Error(i18n.T("cmd.xdelta.missing_binary"))
		}
		return telemetry.CommandTelemetry{Command: "xdelta", Success: false, ExitCode: 1, Error: err, Arguments: arguments}, err
	}

	deps.logger.Log(i18n.T("cmd.xdelta.done", i18n.Tvars{
		Data: &i18n.TData{"file": opts.Args[2]},
	}), false)

	return telemetry.CommandTelemetry{Command: "xdelta", Success: true, ExitCode: 0, Arguments: arguments}, nil
}
