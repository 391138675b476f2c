// Package cmd implements the §6.4 CLI sibling: a thin wrapper over
// internal/remote exposing list/get/add/edit/delete/pause/resume per
// entity kind, plus login.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autokuma/autokuma/internal/remote"
)

var rootCmd = &cobra.Command{
	Use:   "autokuma-cli [command] [options]",
	Short: "Command-line client for an Uptime Kuma server managed by AutoKuma",
}

func init() {
	rootCmd.PersistentFlags().String("url", "", "Uptime Kuma base URL")
	rootCmd.PersistentFlags().String("username", "", "Username for credential login")
	rootCmd.PersistentFlags().String("password", "", "Password for credential login")
	rootCmd.PersistentFlags().String("mfa-token", "", "Single-use 2FA code")
	rootCmd.PersistentFlags().String("mfa-secret", "", "2FA TOTP seed")
	rootCmd.PersistentFlags().String("token", "", "Pre-obtained session token")
	rootCmd.PersistentFlags().String("data-dir", "./data", "Directory holding the cached auth token")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format: json or yaml")
	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newLoginCmd())
	for _, kind := range entityKinds {
		rootCmd.AddCommand(newKindCmd(kind))
	}
}

// Execute runs the root command, exiting non-zero on any failed
// operation (§6.4 "Exit codes: 0 success, non-zero on any failed
// operation").
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openSession(ctx context.Context) (*remote.Session, error) {
	cfg := remote.Config{
		URL:            viper.GetString("url"),
		ConnectTimeout: 30 * time.Second,
		CallTimeout:    30 * time.Second,
	}
	creds := remote.Credentials{
		Username:  viper.GetString("username"),
		Password:  viper.GetString("password"),
		MFAToken:  viper.GetString("mfa-token"),
		MFASecret: viper.GetString("mfa-secret"),
		AuthToken: viper.GetString("token"),
	}
	return remote.Open(ctx, cfg, creds, viper.GetString("data-dir"))
}
