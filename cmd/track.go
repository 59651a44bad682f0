package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/app"
	"github.com/abhisek/coursetrack/internal/session"
)

var trackCmd = &cobra.Command{
	Use:   "track <course-id>",
	Short: "Open the course tracking view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrack(cmd, args[0])
	},
}

// runTrack opens the store, builds the backend stack and launches the TUI.
// The course itself is loaded inside the TUI so failures can be retried.
func runTrack(cmd *cobra.Command, courseID string) error {
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
	log = log.With("session", sessionID)
	backend, err := newBackend(cfg, st.EventRepo(), sessionID, log)
	if err != nil {
		return err
	}

	deps := session.Deps{
		Backend:       backend,
		Watch:         st.WatchRepo(),
		Snapshots:     st.SnapshotRepo(),
		Log:           log,
		ReportTimeout: cfg.ReportTimeout,
		SessionID:     sessionID,
	}
	load := func(ctx context.Context) (*session.Session, error) {
		return session.Load(ctx, deps, courseID)
	}

	log.Info("starting tracker", "course", courseID, "api", cfg.APIURL)
	return app.Run(cmd.Context(), load, st.EventRepo(), log)
}
