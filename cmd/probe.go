// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/priscom/paybridge/internal/config"
	"github.com/priscom/paybridge/pkg/datecs"
	"github.com/priscom/paybridge/pkg/serialqueue"
	"github.com/priscom/paybridge/pkg/smartpay"
)

var (
	probeDev     string
	probeTimeout int
	probeFiscal  bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test a card terminal or cash register connection",
	Long: `Send a single info request to a configured card terminal and print the
response tags, or check that a cash register's serial port opens with
--fiscal.

The terminal answers an info request without cashier interaction, so this
is the quickest way to verify cabling and protocol settings after setup.

Exit codes:
  0 - Device answered
  1 - No response (port error, handshake refused, or timeout)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe()
	},
}

func init() {
	probeCmd.Flags().StringVarP(&probeDev, "dev", "d", "A", "Card terminal label (A or B)")
	probeCmd.Flags().IntVarP(&probeTimeout, "timeout", "t", 10, "Response timeout in seconds")
	probeCmd.Flags().BoolVar(&probeFiscal, "fiscal", false, "Probe a cash register instead of a card terminal")
	rootCmd.AddCommand(probeCmd)
}

func runProbe() error {
	cfg := config.Load()

	if probeFiscal {
		return runProbeFiscal(cfg)
	}

	var term *smartpay.Terminal
	for _, d := range cfg.POS {
		if d.Label == probeDev {
			term = &smartpay.Terminal{
				Label:            d.Label,
				Path:             d.Path,
				Baud:             d.Baud,
				HandshakeTimeout: d.HandshakeTimeout,
				TxTimeout:        time.Duration(probeTimeout) * time.Second,
			}
		}
	}
	if term == nil {
		return fmt.Errorf("unknown card terminal %q, use A or B", probeDev)
	}

	fmt.Printf("Paybridge - Terminal Probe\n")
	fmt.Printf("Terminal: %s on %s @ %d baud\n", term.Label, term.Path, term.Baud)
	fmt.Printf("Waiting for info response...\n\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(probeTimeout+5)*time.Second)
	defer cancel()

	result, err := term.Info(ctx)
	if err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("SUCCESS: Terminal answered\n")
	for tag, value := range result.TagsASCII() {
		fmt.Printf("  %s: %s\n", tag, value)
	}
	return nil
}

func runProbeFiscal(cfg config.Config) error {
	var dev *config.FiscalDevice
	for i, d := range cfg.Fiscal {
		if d.ID == probeDev {
			dev = &cfg.Fiscal[i]
		}
	}
	if dev == nil {
		return fmt.Errorf("unknown cash register %q, use A or B", probeDev)
	}

	fmt.Printf("Paybridge - Register Probe\n")
	fmt.Printf("Register: %s on %s @ %d baud\n", dev.ID, dev.Path, dev.Baud)

	reg := datecs.Open(serialqueue.Config{
		ID:              dev.ID,
		Path:            dev.Path,
		Baud:            dev.Baud,
		ResponseTimeout: dev.ResponseTimeout,
		Retries:         dev.Retries,
		RetryDelay:      dev.RetryDelay,
	})
	defer reg.Close()

	if !reg.Connected() {
		fmt.Printf("FAILED: serial port did not open\n")
		os.Exit(1)
	}
	fmt.Printf("SUCCESS: serial port opened\n")
	return nil
}
