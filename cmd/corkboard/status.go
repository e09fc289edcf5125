package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type healthReport struct {
	OK          bool `json:"ok"`
	Connections int  `json:"connections"`
	Sessions    int  `json:"sessions"`
	Documents   int  `json:"documents"`
	PushEnabled bool `json:"pushEnabled"`
}

func newStatusCommand(configFlag *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configFlag)
			if err != nil {
				return err
			}

			report, err := fetchHealth(cfg.Server.Bind)
			if err != nil {
				return fmt.Errorf("corkboard is not reachable at %s: %w", cfg.Server.Bind, err)
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}

			renderStatus(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")

	return cmd
}

func fetchHealth(bind string) (*healthReport, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + bind + "/api/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &report, nil
}

func renderStatus(cmd *cobra.Command, report *healthReport) {
	state := "healthy"
	if !report.OK {
		state = "degraded"
	}
	push := "disabled"
	if report.PushEnabled {
		push = "enabled"
	}

	rows := [][]string{
		{"State", state},
		{"Connections", strconv.Itoa(report.Connections)},
		{"Sessions", strconv.Itoa(report.Sessions)},
		{"Documents", strconv.Itoa(report.Documents)},
		{"Push", push},
	}

	out := cmd.OutOrStdout()
	if isTerminalOutput() {
		fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
	}
}

func isTerminalOutput() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
