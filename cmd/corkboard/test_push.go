package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"corkboard/internal/logging"
	"corkboard/internal/push"
	"corkboard/internal/store"
)

func newTestPushCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-push",
		Short: "Send a test notification to every push subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configFlag)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			svc := push.NewService(cfg, st, logging.NewNop())
			if !svc.Enabled() {
				return fmt.Errorf("push is not configured: set vapid_public_key and vapid_private_key")
			}

			sent, err := svc.SendTest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered test notification to %d subscription(s)\n", sent)
			return nil
		},
	}
}
