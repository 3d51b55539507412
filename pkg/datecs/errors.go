// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package datecs

import (
	"fmt"
	"strings"
)

// DeviceError is a command the register received, understood and rejected
// with a numeric error code.
type DeviceError struct {
	Code string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("fiscal device error %s", e.Code)
}

// PaperError is the subset of device errors caused by a consumable or
// printer-mechanism fault. Callers surface these to the operator ("reload
// paper") instead of aborting the sale.
type PaperError struct {
	Code string
}

func (e *PaperError) Error() string {
	return fmt.Sprintf("%s (code %s)", PaperMessage(e.Code), e.Code)
}

// Message returns the operator-facing cause.
func (e *PaperError) Message() string { return PaperMessage(e.Code) }

// IsPaperCode reports whether the error string contains one of the known
// paper/printer fault codes.
func IsPaperCode(code string) bool {
	return strings.Contains(code, CodeNoPaper) ||
		strings.Contains(code, CodePrinterFault) ||
		strings.Contains(code, CodePaperJam)
}

// PaperMessage maps a paper fault code to a human-readable cause.
func PaperMessage(code string) string {
	switch {
	case strings.Contains(code, CodeNoPaper), strings.Contains(code, CodePaperJam):
		return "no paper in the fiscal register"
	case strings.Contains(code, CodePrinterFault):
		return "printer error / cover open"
	default:
		return "printer or paper error"
	}
}

// classify wraps a register error code in the most specific error type.
func classify(code string) error {
	if IsPaperCode(code) {
		return &PaperError{Code: code}
	}
	return &DeviceError{Code: code}
}
