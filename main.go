package main

import (
	"fmt"
	"os"

	"github.com/safedep/cage/cmd/backends"
	"github.com/safedep/cage/cmd/presets"
	"github.com/safedep/cage/cmd/run"
	"github.com/safedep/cage/cmd/version"
	"github.com/safedep/cage/config"
	"github.com/safedep/dry/log"
	"github.com/spf13/cobra"
)

var debug bool

func main() {
	cmd := &cobra.Command{
		Use:              "cage",
		Short:            "Run untrusted commands inside an isolation sandbox",
		TraverseChildren: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				os.Setenv("APP_LOG_LEVEL", "debug")
			}

			log.InitZapLogger("cage", "")

			if err := config.WriteTemplateConfig(); err != nil {
				log.Debugf("failed to write template config: %v", err)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}

			return fmt.Errorf("cage: %s is not a valid command", args[0])
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(run.NewRunCommand())
	cmd.AddCommand(backends.NewBackendsCommand())
	cmd.AddCommand(presets.NewPresetsCommand())
	cmd.AddCommand(version.NewVersionCommand())

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
