package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/config"
	"github.com/abhisek/coursetrack/internal/logger"
	"github.com/abhisek/coursetrack/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "coursetrack",
	Short: "Track course progress from the terminal",
	Long: "coursetrack — terminal client for an LMS course: modules, lessons, progress,\n" +
		"video playback tracking and certificate eligibility.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		if courseID == "" {
			return errors.New("no course selected: pass --course <id> or run `coursetrack track <id>`")
		}
		return runTrack(cmd, courseID)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides COURSETRACK_DB env var)")
	pf.String("api-url", "", "Base URL of the course API (overrides COURSETRACK_API_URL)")
	pf.String("token", "", "Bearer token for the course API (overrides COURSETRACK_API_TOKEN)")
	pf.String("log-file", "", "Log file path (overrides COURSETRACK_LOG_FILE)")
	pf.String("env-file", "", "Load environment variables from this file before resolving config")

	rootCmd.Flags().String("course", "", "Course ID to open")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(devserverCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration from flags, environment and env file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(cmd.Flags(), envFile)
}

// resolveDBPath returns the database path using --db / COURSETRACK_DB,
// then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func openStore(cfg config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// newLogger writes to the configured log file, or the default state path.
func newLogger(cfg config.Config) (*logger.Logger, error) {
	path := cfg.LogFile
	if path == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	log, err := logger.New(cfg.LogMode, path)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// newBackend builds the HTTP client decorated with retries for reads and
// the local event log.
func newBackend(cfg config.Config, events store.EventRepo, sessionID string, log *logger.Logger) (api.Backend, error) {
	client, err := api.NewClient(cfg.APIURL,
		api.WithToken(cfg.APIToken),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	rc := api.DefaultRetryConfig()
	rc.MaxAttempts = cfg.RetryAttempts

	var b api.Backend = api.WithRetry(client, rc)
	if events != nil {
		b = api.WithEventLog(b, events, sessionID, log)
	}
	return b, nil
}
