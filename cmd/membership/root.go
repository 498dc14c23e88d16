// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/membership/internal/config"
)

var configFile string

// NewRootCmd creates the root command for the membership CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Account registration, login and recovery service",
		Long: `membership runs user accounts for an application: registration with
email confirmation, password and Facebook login, session tokens, lockout
after repeated failures, and password reset by email.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/membership/config.yaml when present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads --config, the configuration flags and the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.Resolve(configFile), cmd.Flags())
	if err != nil {
		return config.Config{}, oops.With("operation", "load configuration").Wrap(err)
	}
	return cfg, nil
}
