package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status <course-id>",
	Short: "Print course progress and certificate eligibility",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")
		if offline {
			return runOfflineStatus(cmd, args[0])
		}
		return runStatus(cmd, args[0])
	},
}

func init() {
	statusCmd.Flags().Bool("offline", false, "Print the last stored snapshot without contacting the server")
}

func runStatus(cmd *cobra.Command, courseID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sessionID := session.NewSessionID()
	backend, err := newBackend(cfg, st.EventRepo(), sessionID, log)
	if err != nil {
		return err
	}

	sess, err := session.Load(cmd.Context(), session.Deps{
		Backend:       backend,
		Watch:         st.WatchRepo(),
		Snapshots:     st.SnapshotRepo(),
		Log:           log,
		ReportTimeout: cfg.ReportTimeout,
		SessionID:     sessionID,
	}, courseID)
	if err != nil {
		return err
	}
	defer sess.Close()

	printStatus(cmd.OutOrStdout(), sess)
	return nil
}

func printStatus(w io.Writer, sess *session.Session) {
	g := sess.Graph()
	stats := sess.Stats()
	e := sess.Eligibility()

	fmt.Fprintf(w, "%s (%s)\n", g.Title(), g.ID())
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, m := range g.Modules() {
		fmt.Fprintf(w, "%-40s  %3d%%  %d/%d\n", m.Name, m.Progress(), m.CompletedLessons(), m.TotalLessons())
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "Progress:     %d%% (%d of %d lessons, %d remaining)\n",
		stats.CompletionPercentage, stats.CompletedLessons, stats.TotalLessons, stats.RemainingLessons)
	if pos, ok := g.FindFirstIncompleteLesson(); ok {
		fmt.Fprintf(w, "Resume at:    %s\n", describeLesson(g, pos))
	}
	fmt.Fprintf(w, "Certificate:  %s\n", certificateState(e, stats))
	if g.HasFinalExam() {
		fmt.Fprintf(w, "Final exam:   %s\n", yesNo(e.FinalExamUnlocked, "unlocked", "locked"))
	}
	if st, ok := sess.CompletionStatus(); ok && st.IsCompleted != e.IsComplete {
		fmt.Fprintln(w, "Warning:      server completion status disagrees with the course data")
	}
}

func runOfflineStatus(cmd *cobra.Command, courseID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.SnapshotRepo().Latest(cmd.Context(), courseID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return errors.New("no stored progress for this course; run `coursetrack status` online first")
	}

	w := cmd.OutOrStdout()
	d := snap.Data
	fmt.Fprintf(w, "%s (%s), as of %s\n", d.Title, snap.CourseID, snap.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Progress:     %d%% (%d of %d lessons)\n", d.CompletionPercentage, d.CompletedLessons, d.TotalLessons)
	if d.ResumeLessonID != "" {
		fmt.Fprintf(w, "Resume at:    %s/%s\n", d.ResumeModuleID, d.ResumeLessonID)
	}
	fmt.Fprintf(w, "Certificate:  %s\n", yesNo(d.HasCertificate, "issued", "not issued"))
	return nil
}

func describeLesson(g *course.Graph, pos course.Position) string {
	l, err := g.Lesson(pos.ModuleID, pos.LessonID)
	if err != nil || l.Title == "" {
		return pos.String()
	}
	return fmt.Sprintf("%s (%s)", l.Title, pos)
}

func certificateState(e course.Eligibility, stats course.Stats) string {
	switch {
	case e.CanView:
		return "issued"
	case e.CanRequest:
		return "available to request"
	default:
		return fmt.Sprintf("locked, %d lessons remaining", stats.RemainingLessons)
	}
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
