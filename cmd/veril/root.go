// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Veril CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "veril",
		Short: "Veril - account authentication service",
		Long: `Veril is an account authentication service providing signup with
email verification, account activation, and token-based login.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
