// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package datecs

import (
	"strconv"
	"strings"
)

// taxClasses maps the letter tax groups printed on receipts to the numeric
// codes the register expects.
var taxClasses = map[string]string{
	"A": "1", "B": "2", "C": "3", "D": "4", "E": "5", "F": "6", "G": "7",
}

// TaxClass normalizes a caller-supplied tax group. Letters A-G map to 1-7,
// digits 1-7 pass through, anything else falls back to class "1". The
// fallback is deliberate: a receipt with the default tax group beats no
// receipt at all.
func TaxClass(in string) string {
	t := strings.ToUpper(strings.TrimSpace(in))
	if mapped, ok := taxClasses[t]; ok {
		return mapped
	}
	if len(t) == 1 && t[0] >= '1' && t[0] <= '7' {
		return t
	}
	return "1"
}

// PayMode normalizes a caller-supplied payment mode. The symbolic names
// "cash" and "card" map to the register's mode digits; a bare digit passes
// through for callers that already speak device codes; anything unknown is
// treated as cash rather than rejected.
func PayMode(in string) string {
	s := strings.ToLower(strings.TrimSpace(in))
	switch s {
	case "cash":
		return PayModeCash
	case "card":
		return PayModeCard
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return s
	}
	return PayModeCash
}

// MoneyDot formats an amount string for the register: decimal comma
// tolerated on input, exactly two decimals and a dot separator on output.
// Unparseable input formats as 0.00.
func MoneyDot(in string) string {
	s := strings.TrimSpace(strings.ReplaceAll(in, ",", "."))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		n = 0
	}
	return strconv.FormatFloat(n, 'f', 2, 64)
}

// QtyDot formats a quantity with the three decimals the sale command wants.
// Empty or unparseable input means one unit.
func QtyDot(in string) string {
	s := strings.TrimSpace(strings.ReplaceAll(in, ",", "."))
	if s == "" {
		return "1.000"
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		n = 1
	}
	return strconv.FormatFloat(n, 'f', 3, 64)
}
