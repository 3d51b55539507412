// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package agent

import (
	"fmt"

	"github.com/priscom/paybridge/internal/bridge"
)

// registrySource adapts the bridge's device registry to the orchestrator's
// DeviceSource. A register whose port never opened is rejected here, before
// any receipt step runs.
type registrySource struct {
	reg *bridge.Registry
}

// NewRegistrySource exposes a bridge registry to the orchestrator.
func NewRegistrySource(reg *bridge.Registry) DeviceSource {
	return &registrySource{reg: reg}
}

func (s *registrySource) FiscalDevice(label string) (FiscalDevice, error) {
	dev, err := s.reg.Fiscal(label)
	if err != nil {
		return nil, err
	}
	if !dev.Connected() {
		return nil, fmt.Errorf("fiscal register %s is not connected (%s)", dev.ID(), dev.Path())
	}
	return dev, nil
}

func (s *registrySource) CardTerminal(label string) (CardTerminal, error) {
	return s.reg.POS(label)
}
