// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com
//
// Paybridge - Fiscal Register and Card Terminal Bridge
//
// Connects Datecs fiscal cash registers and SmartPay card terminals to the
// booking system over a local HTTP API and a backend job agent.

package main

import (
	"os"

	"github.com/priscom/paybridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
