// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

// Package config loads the bridge configuration from the environment.
// Every knob has a documented default so a bare process starts with the
// standard two-device agency layout.
package config

import (
	"os"
	"strconv"
	"time"
)

// FiscalDevice configures one cash register endpoint.
type FiscalDevice struct {
	ID              string
	Path            string
	Baud            int
	ResponseTimeout time.Duration
	Retries         int
	RetryDelay      time.Duration
}

// POSDevice configures one card terminal endpoint.
type POSDevice struct {
	Label            string
	Path             string
	Baud             int
	HandshakeTimeout time.Duration
	TxTimeout        time.Duration
}

// Agent configures the job worker's link to the booking backend.
type Agent struct {
	BackendURL string
	Key        string
	Operator   string
	Password   string
	Till       string
	DefaultDev string
}

// Config is the full bridge configuration.
type Config struct {
	HTTPPort int
	Fiscal   []FiscalDevice
	POS      []POSDevice
	Agent    Agent
}

// Environment variables and defaults:
//
//	HTTP_PORT               9000
//	DEFAULT_BAUD            115200
//	RESPONSE_TIMEOUT_MS     6000
//	CMD_RETRIES             2 (min 1)
//	CMD_RETRY_DELAY_MS      150
//	DEV_A_PORT / DEV_B_PORT /dev/ttyUSB0, /dev/ttyUSB1
//	DEV_A_BAUD / DEV_B_BAUD DEFAULT_BAUD
//	DEV_<ID>_TIMEOUT_MS, DEV_<ID>_RETRIES, DEV_<ID>_RETRY_DELAY_MS
//	POS_DEV_A / POS_DEV_B   /dev/ttyACM0, /dev/ttyACM1
//	POS_BAUD                115200
//	POS_ENQ_ACK_TIMEOUT_MS  2500
//	POS_TX_TIMEOUT_MS       200000
//	AGENT_BACKEND_URL       http://localhost:5000
//	AGENT_KEY               (empty)
//	AGENT_DEV               A
//	FISCAL_OPERATOR         30
//	FISCAL_PASSWORD         0030
//	FISCAL_TILL             1
func Load() Config {
	defaultBaud := envInt("DEFAULT_BAUD", 115200)
	respTimeout := time.Duration(envInt("RESPONSE_TIMEOUT_MS", 6000)) * time.Millisecond
	retries := envInt("CMD_RETRIES", 2)
	if retries < 1 {
		retries = 1
	}
	retryDelay := time.Duration(envInt("CMD_RETRY_DELAY_MS", 150)) * time.Millisecond

	fiscal := []FiscalDevice{
		fiscalDevice("A", envStr("DEV_A_PORT", "/dev/ttyUSB0"), defaultBaud, respTimeout, retries, retryDelay),
		fiscalDevice("B", envStr("DEV_B_PORT", "/dev/ttyUSB1"), defaultBaud, respTimeout, retries, retryDelay),
	}

	posBaud := envInt("POS_BAUD", 115200)
	posHandshake := time.Duration(envInt("POS_ENQ_ACK_TIMEOUT_MS", 2500)) * time.Millisecond
	posTx := time.Duration(envInt("POS_TX_TIMEOUT_MS", 200000)) * time.Millisecond
	pos := []POSDevice{
		{Label: "A", Path: envStr("POS_DEV_A", "/dev/ttyACM0"), Baud: posBaud, HandshakeTimeout: posHandshake, TxTimeout: posTx},
		{Label: "B", Path: envStr("POS_DEV_B", "/dev/ttyACM1"), Baud: posBaud, HandshakeTimeout: posHandshake, TxTimeout: posTx},
	}

	return Config{
		HTTPPort: envInt("HTTP_PORT", 9000),
		Fiscal:   fiscal,
		POS:      pos,
		Agent: Agent{
			BackendURL: envStr("AGENT_BACKEND_URL", "http://localhost:5000"),
			Key:        envStr("AGENT_KEY", ""),
			Operator:   envStr("FISCAL_OPERATOR", "30"),
			Password:   envStr("FISCAL_PASSWORD", "0030"),
			Till:       envStr("FISCAL_TILL", "1"),
			DefaultDev: envStr("AGENT_DEV", "A"),
		},
	}
}

// fiscalDevice applies the per-device env overrides on top of the globals.
func fiscalDevice(id, path string, baud int, timeout time.Duration, retries int, delay time.Duration) FiscalDevice {
	d := FiscalDevice{
		ID:              id,
		Path:            path,
		Baud:            envInt("DEV_"+id+"_BAUD", baud),
		ResponseTimeout: timeout,
		Retries:         retries,
		RetryDelay:      delay,
	}
	if v := envInt("DEV_"+id+"_TIMEOUT_MS", 0); v > 0 {
		d.ResponseTimeout = time.Duration(v) * time.Millisecond
	}
	if v := envInt("DEV_"+id+"_RETRIES", 0); v >= 1 {
		d.Retries = v
	}
	if v := envInt("DEV_"+id+"_RETRY_DELAY_MS", -1); v >= 0 {
		d.RetryDelay = time.Duration(v) * time.Millisecond
	}
	return d
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
