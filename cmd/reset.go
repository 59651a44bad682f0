package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear local event log, resume positions and snapshots",
	Long: "Clear locally stored data. Server-side progress is not affected.\n" +
		"Without --course every course is cleared, which requires --yes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		yes, _ := cmd.Flags().GetBool("yes")
		if courseID == "" && !yes {
			return errors.New("refusing to clear all courses without --yes")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		events, err := s.EventRepo().DeleteEvents(ctx, courseID)
		if err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		positions, err := s.WatchRepo().DeletePositions(ctx, courseID)
		if err != nil {
			return fmt.Errorf("delete positions: %w", err)
		}
		if courseID != "" {
			if err := s.SnapshotRepo().Prune(ctx, courseID, 0); err != nil {
				return fmt.Errorf("delete snapshots: %w", err)
			}
		}

		fmt.Printf("Removed %d events and %d positions.\n", events, positions)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("course", "", "Only clear data of this course")
	resetCmd.Flags().Bool("yes", false, "Confirm clearing every course")
}
