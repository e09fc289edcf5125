package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"corkboard/internal/deps"
)

func newDepsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check availability of the external converter tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configFlag)
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.ForProcessing(cfg))

			rows := make([][]string, 0, len(statuses))
			missingRequired := false
			for _, status := range statuses {
				state := "ok"
				switch {
				case !status.Available && status.Optional:
					state = "disabled"
				case !status.Available:
					state = "missing"
					missingRequired = true
				}
				detail := status.Detail
				if detail == "" {
					detail = status.Command
				}
				rows = append(rows, []string{status.Name, state, detail})
			}

			out := cmd.OutOrStdout()
			if isTerminalOutput() {
				fmt.Fprintln(out, renderTable([]string{"Tool", "State", "Detail"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			} else {
				for _, row := range rows {
					fmt.Fprintf(out, "%s: %s (%s)\n", row[0], row[1], row[2])
				}
			}

			if missingRequired {
				return fmt.Errorf("required tools are missing")
			}
			return nil
		},
	}
}
