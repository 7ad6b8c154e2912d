package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/robotd/internal/app"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the control loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, baseDir, err := loadConfig()
			if err != nil {
				return err
			}

			log.Info().Str("config", configPath).Msg("Starting robotd")

			application, err := app.New(cfg, baseDir)
			if err != nil {
				log.Error().Err(err).Msg("Failed to create application")
				return err
			}
			defer application.Close()

			// Context that cancels on shutdown signal
			ctx := app.SignalContext()

			if err := application.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Application stopped with error")
				return err
			}
			return nil
		},
	}
}
