package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/campaign-studio/config"
	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/utils"
	"github.com/AndrewDonelson/campaign-studio/pkg/logger"
)

// app is the state shared by the subcommands
type app struct {
	cfg *config.Config
	db  *sql.DB
}

var (
	state    app
	devMode  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "campaignctl",
	Short:        "Manage campaign briefs and generated assets",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("dev") {
			cfg.AIDevMode = devMode
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.New(cfg.Environment, cfg.LogLevel)

		if err := utils.EnsureDataDirectories(cfg.StoragePath); err != nil {
			return err
		}
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return err
		}
		if err := database.SeedLanguages(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to seed languages: %w", err)
		}

		state = app{cfg: cfg, db: db}
		return nil
	},
}

// execute runs the command line and closes the database afterwards. Cobra
// skips post-run hooks when a command fails, so the close happens here.
func execute() (err error) {
	defer func() {
		if cerr := closeState(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return rootCmd.Execute()
}

func closeState() error {
	db := state.db
	state.db = nil
	if db == nil {
		return nil
	}
	return db.Close()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "use mock images and translations instead of OpenAI")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(statusCmd, importCmd, generateCmd, exportCmd)
}
