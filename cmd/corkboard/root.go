package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"corkboard/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "corkboard",
		Short:         "Realtime shared work-board server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newStatusCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newDepsCommand(&configFlag))
	rootCmd.AddCommand(newHashPasswordCommand())
	rootCmd.AddCommand(newTestPushCommand(&configFlag))

	return rootCmd
}

func loadConfig(configFlag *string) (*config.Config, string, error) {
	path := ""
	if configFlag != nil {
		path = *configFlag
	}
	cfg, resolvedPath, _, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load configuration: %w", err)
	}
	return cfg, resolvedPath, nil
}
