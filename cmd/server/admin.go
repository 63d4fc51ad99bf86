package main

import (
	"errors"
	"fmt"
	"strings"

	"taskmanager/internal/auth"
	"taskmanager/internal/database"
	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a verified administrator account",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login e-mail (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password, at least 8 characters (required)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DB, cfg.App.LogLevel, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	sessions := service.NewSessions(tokens, issuer)
	verify := service.NewVerificationService(users, sessions, notify.New(cfg.Mail, log), cfg.App.FrontendURL, log)
	authSvc := service.NewAuthService(users, tokens, issuer, sessions, verify, log)

	res, err := authSvc.Register(cmd.Context(), service.RegisterInput{
		Name:     adminName,
		Email:    adminEmail,
		Password: adminPassword,
		Role:     model.RoleAdmin,
	})
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		var b strings.Builder
		for field, msgs := range verr.Fields {
			fmt.Fprintf(&b, "\n  %s: %s", field, strings.Join(msgs, " "))
		}
		return fmt.Errorf("invalid admin account:%s", b.String())
	}
	if err != nil {
		return err
	}

	log.Info("admin account created", zap.String("user_id", res.User.ID.String()), zap.String("email", res.User.Email))
	return nil
}
