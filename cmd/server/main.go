package main

import (
	"fmt"
	"os"

	"taskmanager/internal/config"
	"taskmanager/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title           Task Manager API
// @version         1.0
// @description     Multi-tenant task manager with e-mail verification and an admin console.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

// @schemes http

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "taskmanager",
	Short:         "Task manager API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

func main() {
	// Without a subcommand the binary serves, as before.
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"serve"})
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
