// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

// Package bridge exposes the fiscal registers and card terminals over HTTP
// and owns the process-wide device registry.
package bridge

import (
	"fmt"
	"strings"

	"github.com/priscom/paybridge/internal/config"
	"github.com/priscom/paybridge/pkg/datecs"
	"github.com/priscom/paybridge/pkg/serialqueue"
	"github.com/priscom/paybridge/pkg/smartpay"
)

// Registry holds every device the process owns, keyed by label. It is built
// once at startup and passed by handle; there is no ambient global state.
type Registry struct {
	fiscal map[string]*datecs.Register
	pos    map[string]*smartpay.Terminal
}

// NewRegistry opens all configured devices. Registers with unreachable
// ports stay in the registry as disconnected, so requests for them fail
// fast with a clear status instead of hanging.
func NewRegistry(cfg config.Config) *Registry {
	r := &Registry{
		fiscal: make(map[string]*datecs.Register),
		pos:    make(map[string]*smartpay.Terminal),
	}
	for _, d := range cfg.Fiscal {
		r.fiscal[strings.ToUpper(d.ID)] = datecs.Open(serialqueue.Config{
			ID:              d.ID,
			Path:            d.Path,
			Baud:            d.Baud,
			ResponseTimeout: d.ResponseTimeout,
			Retries:         d.Retries,
			RetryDelay:      d.RetryDelay,
		})
	}
	for _, p := range cfg.POS {
		r.pos[strings.ToUpper(p.Label)] = &smartpay.Terminal{
			Label:            p.Label,
			Path:             p.Path,
			Baud:             p.Baud,
			HandshakeTimeout: p.HandshakeTimeout,
			TxTimeout:        p.TxTimeout,
		}
	}
	return r
}

// NewRegistryFromDevices wires an explicit device set (tests).
func NewRegistryFromDevices(fiscal map[string]*datecs.Register, pos map[string]*smartpay.Terminal) *Registry {
	if fiscal == nil {
		fiscal = map[string]*datecs.Register{}
	}
	if pos == nil {
		pos = map[string]*smartpay.Terminal{}
	}
	return &Registry{fiscal: fiscal, pos: pos}
}

// Fiscal returns the register with the given label.
func (r *Registry) Fiscal(label string) (*datecs.Register, error) {
	reg, ok := r.fiscal[strings.ToUpper(label)]
	if !ok {
		return nil, fmt.Errorf("unknown device %q, use dev=A or dev=B", label)
	}
	return reg, nil
}

// POS returns the terminal with the given label.
func (r *Registry) POS(label string) (*smartpay.Terminal, error) {
	t, ok := r.pos[strings.ToUpper(label)]
	if !ok {
		return nil, fmt.Errorf("unknown device %q, use dev=A or dev=B", label)
	}
	return t, nil
}

// FiscalLabels lists registered fiscal device labels.
func (r *Registry) FiscalLabels() []string {
	labels := make([]string, 0, len(r.fiscal))
	for l := range r.fiscal {
		labels = append(labels, l)
	}
	return labels
}

// Close releases every open device.
func (r *Registry) Close() {
	for _, reg := range r.fiscal {
		reg.Close()
	}
}
