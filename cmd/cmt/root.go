package cmt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	ba2Cmd "github.com/collective-modding/cm-toolkit/cmd/cmt/ba2"
	downgradeCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/downgrade"
	f4seCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/f4se"
	fixCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/fix"
	overviewCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/overview"
	scanCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/scan"
	settingsCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/settings"
	versionCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/version"
	xdeltaCmd "github.com/collective-modding/cm-toolkit/cmd/cmt/xdelta"
	"github.com/collective-modding/cm-toolkit/internal/constants"
	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/i18n"
	"github.com/collective-modding/cm-toolkit/internal/tui"
)

func Command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     constants.CommandName,
		Short:   i18n.T("app.description"),
		Version: environment.AppVersion(),
		RunE:    runRoot,
	}
	cobra.MousetrapHelpText = "" // allow the app to run in windows by clicking the exe

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().String("settings", "", i18n.T("cmd.flag.settings"))
	rootCmd.PersistentFlags().String("game-path", "", i18n.T("cmd.flag.game_path"))
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, i18n.T("cmd.flag.quiet"))
	rootCmd.PersistentFlags().Bool("debug", false, i18n.T("cmd.flag.debug"))
	rootCmd.PersistentFlags().Bool("perf", false, i18n.T("cmd.flag.perf"))
	rootCmd.PersistentFlags().String("perf-out-dir", "", i18n.T("cmd.flag.perf_out_dir"))

	rootCmd.AddCommand(overviewCmd.Command())
	rootCmd.AddCommand(scanCmd.Command())
	rootCmd.AddCommand(fixCmd.Command())
	rootCmd.AddCommand(ba2Cmd.Command())
	rootCmd.AddCommand(downgradeCmd.Command())
	rootCmd.AddCommand(xdeltaCmd.Command())
	rootCmd.AddCommand(f4seCmd.Command())
	rootCmd.AddCommand(settingsCmd.Command())
	rootCmd.AddCommand(versionCmd.Command())

	translateDefaultHelpFacilities(rootCmd)
	fixFlagUsageAlignment(rootCmd)

	return rootCmd
}

func translateDefaultHelpFacilities(rootCmd *cobra.Command) {
	subcommands := rootCmd.Commands()
	allCommands := make([]*cobra.Command, 0, len(subcommands)+1)
	allCommands = append(allCommands, rootCmd)
	allCommands = append(allCommands, subcommands...)

	for _, cmd := range allCommands {
		cmd.InitDefaultHelpFlag()
		flags := cmd.Flags()
		flags.Lookup("help").Usage = i18n.T("cmd.help.template", i18n.Tvars{
			Data: &i18n.TData{"command": cmd.Name()},
		})
	}

	rootCmd.InitDefaultHelpCmd()
	helpCmd, _, e := rootCmd.Find([]string{"help"})

	if e == nil {
		helpCmd.Short = i18n.T("cmd.help.usage.short")
		helpCmd.Long = i18n.T("cmd.help.usage.long", i18n.Tvars{
			Data: &i18n.TData{"appName": rootCmd.Name()},
		})
		helpCmd.Run = func(c *cobra.Command, args []string) {
			cmd, _, e := c.Root().Find(args)
			if cmd == nil || e != nil {
				c.PrintErrln(i18n.T("cmd.help.error", i18n.Tvars{
					Data: &i18n.TData{"topic": fmt.Sprintf("%#q", args)},
				}) + "\n")
				cobra.CheckErr(c.Root().Usage())
			} else {
				cmd.InitDefaultHelpFlag()    // make possible 'help' flag to be shown
				cmd.InitDefaultVersionFlag() // make possible 'version' flag to be shown
				cobra.CheckErr(cmd.Help())
			}
		}
	}
}

func fixFlagUsageAlignment(rootCmd *cobra.Command) {
	width, _, _ := term.GetSize(int(os.Stdout.Fd()))
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.ReplaceAll(usageTemplate, ".FlagUsages", fmt.Sprintf(".FlagUsagesWrapped %d", width))
	rootCmd.SetUsageTemplate(usageTemplate)
}

func Execute() error {
	return Command().Execute()
}

func ExecuteContext(ctx context.Context) error {
	return Command().ExecuteContext(ctx)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	// Without a terminal on both ends the menu cannot render.
	if !tui.ShouldUseTUI(quiet, cmd.InOrStdin(), cmd.OutOrStdout()) {
		return cmd.Help()
	}

	model, err := tui.RunApp(cmd.InOrStdin(), cmd.OutOrStdout()).Run()
	if err != nil {
		return err
	}

	choice := tui.ChosenCommand(model)
	if choice == "" {
		return nil
	}

	root := cmd.Root()
	root.SetArgs([]string{choice})
	return root.ExecuteContext(cmd.Context())
}
