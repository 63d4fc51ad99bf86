package main

import (
	"taskmanager/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		s, err := server.Init(cfg, log, version)
		if err != nil {
			log.Error("server initialization failed", zap.Error(err))
			return err
		}
		return s.Run()
	},
}
