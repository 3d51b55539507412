// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "paybridge",
	Short: "Fiscal register and card terminal bridge",
	Long: `Paybridge connects Datecs fiscal cash registers and SmartPay card
terminals to the booking system.

It exposes a local HTTP API for direct device operations and runs an agent
that pulls payment jobs from the booking backend, drives the devices, and
reports the outcome of every job.

Configuration is taken from the environment (HTTP_PORT, DEV_A_PORT,
POS_DEV_A, AGENT_BACKEND_URL, ...); every variable has a working default
for the standard two-device agency layout.`,
	Version: "1.4.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
