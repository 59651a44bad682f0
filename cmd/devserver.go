package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/devserver"
	"github.com/abhisek/coursetrack/internal/logger"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory course API with a demo course",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Server logs go to stderr; no TUI owns the terminal here.
		log, err := logger.New(cfg.LogMode, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		if cfg.LogMode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := devserver.New(devserver.WithToken(cfg.APIToken), devserver.WithLogger(log))
		log.Info("devserver listening", "addr", cfg.DevServerAddr, "demo_course", devserver.DemoCourseID)
		fmt.Fprintf(cmd.OutOrStdout(), "Serving demo course %q on http://%s\n", devserver.DemoCourseID, cfg.DevServerAddr)
		return srv.ListenAndServe(ctx, cfg.DevServerAddr)
	},
}

func init() {
	devserverCmd.Flags().String("addr", "", "Listen address (overrides COURSETRACK_DEVSERVER_ADDR)")
}
