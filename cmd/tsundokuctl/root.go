// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/taibuivan/tsundoku/internal/covers"
	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/config"
	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
	"github.com/taibuivan/tsundoku/internal/users/auth"
)

// app holds the services the commands operate on.
type app struct {
	authService  *auth.Service
	coverService *covers.Service
}

// appLoader builds the services once flags are parsed.
type appLoader func(cmd *cobra.Command) (*app, error)

// loadApp wires the services from the environment, mirroring cmd/api.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName+"ctl"))

	repository := library.NewFileRepository(cfg.DataFile, library.Defaults{
		Password:     cfg.DefaultPassword,
		ComicVineKey: cfg.ComicVineAPIKey,
	}, logger)

	signer, err := sec.NewSessionSigner(cfg.SessionSecret, constants.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	policy := auth.Policy{
		MaxAttempts:     cfg.LoginMaxAttempts,
		LockoutDuration: cfg.LoginLockout,
		AttemptWindow:   cfg.LoginWindow,
		Delays:          cfg.LoginDelays,
	}

	cache := covers.NewCache(cfg.CoversDir, nil, cfg.ImageFetchTimeout, logger)

	return &app{
		authService:  auth.NewService(repository, policy, signer),
		coverService: covers.NewService(cache, repository, covers.DefaultProxyHosts, logger),
	}, nil
}

// newRootCommand assembles the command tree. Services are built lazily so
// --help works without a configured environment.
func newRootCommand(load appLoader) *cobra.Command {
	var current *app

	root := &cobra.Command{
		Use:           "tsundokuctl",
		Short:         "Maintenance tasks for a Tsundoku library",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := load(cmd)
			if err != nil {
				return fmt.Errorf("tsundokuctl: %w", err)
			}
			current = built
			return nil
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")

	services := func() *app { return current }

	root.AddCommand(
		newSetPasswordCommand(services),
		newUnlockCommand(services),
		newSecurityCommand(services),
		newCoversCommand(services),
	)

	return root
}
