// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}
	if len(cfg.Fiscal) != 2 || len(cfg.POS) != 2 {
		t.Fatalf("devices = %d fiscal, %d pos, expected 2+2", len(cfg.Fiscal), len(cfg.POS))
	}

	a := cfg.Fiscal[0]
	if a.ID != "A" || a.Path != "/dev/ttyUSB0" || a.Baud != 115200 {
		t.Errorf("fiscal A = %+v", a)
	}
	if a.ResponseTimeout != 6*time.Second || a.Retries != 2 || a.RetryDelay != 150*time.Millisecond {
		t.Errorf("fiscal A timing = %+v", a)
	}
	if cfg.Fiscal[1].Path != "/dev/ttyUSB1" {
		t.Errorf("fiscal B path = %q", cfg.Fiscal[1].Path)
	}

	p := cfg.POS[0]
	if p.Label != "A" || p.Path != "/dev/ttyACM0" {
		t.Errorf("pos A = %+v", p)
	}
	if p.HandshakeTimeout != 2500*time.Millisecond || p.TxTimeout != 200*time.Second {
		t.Errorf("pos A timing = %+v", p)
	}

	ag := cfg.Agent
	if ag.BackendURL != "http://localhost:5000" || ag.DefaultDev != "A" {
		t.Errorf("agent = %+v", ag)
	}
	if ag.Operator != "30" || ag.Password != "0030" || ag.Till != "1" {
		t.Errorf("agent session = %+v", ag)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("DEV_B_PORT", "/dev/ttyS5")
	t.Setenv("DEV_B_TIMEOUT_MS", "2000")
	t.Setenv("DEV_B_RETRIES", "5")
	t.Setenv("POS_TX_TIMEOUT_MS", "60000")
	t.Setenv("AGENT_DEV", "B")

	cfg := Load()
	if cfg.HTTPPort != 8088 {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}

	b := cfg.Fiscal[1]
	if b.Path != "/dev/ttyS5" || b.ResponseTimeout != 2*time.Second || b.Retries != 5 {
		t.Errorf("fiscal B = %+v", b)
	}
	// A keeps the globals.
	if cfg.Fiscal[0].Retries != 2 {
		t.Errorf("fiscal A retries = %d", cfg.Fiscal[0].Retries)
	}

	if cfg.POS[0].TxTimeout != 60*time.Second {
		t.Errorf("pos tx timeout = %v", cfg.POS[0].TxTimeout)
	}
	if cfg.Agent.DefaultDev != "B" {
		t.Errorf("agent dev = %q", cfg.Agent.DefaultDev)
	}
}

func TestLoad_RetriesClampedToOne(t *testing.T) {
	t.Setenv("CMD_RETRIES", "0")
	cfg := Load()
	if cfg.Fiscal[0].Retries != 1 {
		t.Errorf("Retries = %d, expected clamp to 1", cfg.Fiscal[0].Retries)
	}
}

func TestLoad_MalformedIntFallsBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")
	cfg := Load()
	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d, expected default", cfg.HTTPPort)
	}
}
