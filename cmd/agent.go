// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/priscom/paybridge/internal/bridge"
	"github.com/priscom/paybridge/internal/config"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the backend job agent without the HTTP API",
	Long: `Connect to the booking backend's job feed and process payment jobs,
without exposing the local HTTP API.

Useful on kiosks where only the backend drives the devices and no local
integration needs the HTTP surface.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent()
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent() error {
	cfg := config.Load()

	reg := bridge.NewRegistry(cfg)
	defer reg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newWorker(cfg, reg).Run(ctx)
	return nil
}
