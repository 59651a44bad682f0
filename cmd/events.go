package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the local log of backend calls",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent progress events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		courseID, _ := cmd.Flags().GetString("course")

		if kind != "" && !store.ValidKind(kind) {
			names := make([]string, len(store.AllKinds))
			for i, k := range store.AllKinds {
				names[i] = string(k)
			}
			return fmt.Errorf("unknown kind %q (want one of %s)", kind, strings.Join(names, ", "))
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

		events, err := s.EventRepo().QueryProgressEvents(cmd.Context(), store.QueryOpts{
			Limit:    limit,
			CourseID: courseID,
			Kind:     store.ProgressEventKind(kind),
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No progress events found.")
			return nil
		}

		// Header.
		fmt.Printf("%-5s  %-19s  %-17s  %-16s  %-12s  %-5s  %-6s  %s\n",
			"ID", "Timestamp", "Kind", "Course", "Lesson", "Code", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 100))

		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			code := "-"
			if e.StatusCode != 0 {
				code = fmt.Sprint(e.StatusCode)
			}
			fmt.Printf("%-5d  %-19s  %-17s  %-16s  %-12s  %-5s  %-6d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Kind,
				clip(e.CourseID, 16),
				clip(e.LessonID, 12),
				code,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var eventsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View a single progress event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
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

		e, err := s.EventRepo().ProgressEvent(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		fmt.Printf("ID:        %d\n", e.ID)
		fmt.Printf("Sequence:  %d\n", e.Sequence)
		fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Session:   %s\n", e.SessionID)
		fmt.Printf("Kind:      %s\n", e.Kind)
		fmt.Printf("Course:    %s\n", e.CourseID)
		if e.LessonID != "" {
			fmt.Printf("Lesson:    %s\n", e.LessonID)
		}
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Success:   %v\n", e.Success)
		if e.StatusCode != 0 {
			fmt.Printf("Status:    %d\n", e.StatusCode)
		}
		if e.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", e.ErrorMessage)
		}
		if e.Detail != "" {
			fmt.Println(strings.Repeat("─", 60))
			fmt.Println(e.Detail)
		}
		return nil
	},
}

func init() {
	eventsListCmd.Flags().Int("limit", 20, "Maximum number of events to show")
	eventsListCmd.Flags().String("kind", "", "Filter by kind (course_load, lesson_completed, video_progress, completion_check, certificate)")
	eventsListCmd.Flags().String("course", "", "Filter by course ID")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsViewCmd)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
