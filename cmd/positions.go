package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions <course-id>",
	Short: "List stored video resume positions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		positions, err := s.WatchRepo().Positions(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("query positions: %w", err)
		}
		if len(positions) == 0 {
			fmt.Println("No stored positions.")
			return nil
		}

		fmt.Printf("%-16s  %-16s  %9s  %9s  %5s  %s\n", "Module", "Lesson", "Position", "Duration", "Pct", "Updated")
		fmt.Println(strings.Repeat("─", 80))
		for _, p := range positions {
			pct := 0
			if p.DurationSecs > 0 {
				pct = int(100 * p.PositionSecs / p.DurationSecs)
			}
			fmt.Printf("%-16s  %-16s  %9s  %9s  %4d%%  %s\n",
				clip(p.ModuleID, 16),
				clip(p.LessonID, 16),
				formatSecs(p.PositionSecs),
				formatSecs(p.DurationSecs),
				pct,
				p.UpdatedAt.Local().Format("2006-01-02 15:04"),
			)
		}
		return nil
	},
}

func formatSecs(secs float64) string {
	total := int(secs)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
