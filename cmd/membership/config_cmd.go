// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"net/url"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/membership/internal/config"
)

const redacted = "[REDACTED]"

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the service configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err //nolint:wrapcheck // already carries a code
			}
			cmd.Println("Configuration is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(toDocument(redact(cfg)))
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // already carries a code
			}
			cmd.Println(string(data))
			return nil
		},
	})

	return cmd
}

// redact blanks every secret in cfg.
func redact(cfg config.Config) config.Config {
	cfg.Database.URL = redactURL(cfg.Database.URL)
	for _, s := range []*string{&cfg.Security.Salt, &cfg.Mail.SMTP.Password, &cfg.Facebook.AppSecret} {
		if *s != "" {
			*s = redacted
		}
	}
	return cfg
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}

// toDocument mirrors the file layout so `config show` output can be used
// as a config file.
func toDocument(cfg config.Config) map[string]any {
	return map[string]any{
		"database": map[string]any{
			"url":              cfg.Database.URL,
			"max_conns":        cfg.Database.MaxConns,
			"connect_attempts": cfg.Database.ConnectAttempts,
			"in_memory":        cfg.Database.InMemory,
		},
		"http":    map[string]any{"addr": cfg.HTTP.Addr},
		"metrics": map[string]any{"addr": cfg.Metrics.Addr},
		"log":     map[string]any{"format": cfg.Log.Format, "level": cfg.Log.Level},
		"security": map[string]any{
			"salt":                cfg.Security.Salt,
			"max_failed_attempts": cfg.Security.MaxFailedAttempts,
			"session_ttl":         cfg.Security.SessionTTL.String(),
			"reset_code_ttl":      cfg.Security.ResetCodeTTL.String(),
		},
		"mail": map[string]any{
			"app_name":      cfg.Mail.AppName,
			"support_email": cfg.Mail.SupportEmail,
			"support_name":  cfg.Mail.SupportName,
			"verify_url":    cfg.Mail.VerifyURL,
			"reset_url":     cfg.Mail.ResetURL,
			"smtp": map[string]any{
				"host":     cfg.Mail.SMTP.Host,
				"port":     cfg.Mail.SMTP.Port,
				"username": cfg.Mail.SMTP.Username,
				"password": cfg.Mail.SMTP.Password,
			},
		},
		"facebook": map[string]any{
			"app_id":     cfg.Facebook.AppID,
			"app_secret": cfg.Facebook.AppSecret,
			"graph_url":  cfg.Facebook.GraphURL,
		},
	}
}
