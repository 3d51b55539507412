// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"fmt"
	"log"
	"math"
	"strings"
)

// FormatAmount renders a major-unit amount as the 12 ASCII digits of minor
// currency units the terminal expects: 1.00 -> "000000000100".
func FormatAmount(amount float64) string {
	minor := int64(math.Round(amount * 100))
	if minor < 0 {
		minor = 0
	}
	return fmt.Sprintf("%012d", minor)
}

// formatUniqueID zero-pads or clips a transaction identifier to 12 digits.
func formatUniqueID(id string) string {
	if len(id) >= 12 {
		return id[:12]
	}
	return strings.Repeat("0", 12-len(id)) + id
}

// ExtraTag is a caller-supplied TLV record appended to a refund request.
// The tag is spelled as a hex string ("0xA012").
type ExtraTag struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// BuildInfo builds the TLV payload of a "get terminal information" request,
// used as a connectivity probe.
func BuildInfo() []byte {
	return AppendTLV(nil, TagOperation, []byte{OpInfo})
}

// BuildSale builds the TLV payload of a card sale. uniqueID may be empty;
// a zero placeholder is sent so the terminal still journals an identifier.
func BuildSale(amount float64, currencyName, currencyCode, uniqueID string) []byte {
	if currencyName == "" {
		currencyName = DefaultCurrencyName
	}
	if currencyCode == "" {
		currencyCode = DefaultCurrencyCode
	}
	if uniqueID == "" {
		uniqueID = "1"
	}
	tlv := AppendTLV(nil, TagOperation, []byte{OpSale})
	tlv = AppendTLV(tlv, TagAmount, []byte(FormatAmount(amount)))
	tlv = AppendTLV(tlv, TagCurrencyName, []byte(currencyName))
	tlv = AppendTLV(tlv, TagCurrencyCode, []byte(currencyCode))
	tlv = AppendTLV(tlv, TagUniqueID, []byte(formatUniqueID(uniqueID)))
	tlv = AppendTLV(tlv, TagCashback, []byte("000000000000"))
	return tlv
}

// BuildRefund builds the TLV payload of a card refund. uniqueID is optional;
// extra carries any additional acquirer-specific records. Malformed extra
// tags are skipped with a log line rather than failing the refund.
func BuildRefund(amount float64, currencyName, currencyCode, uniqueID string, extra []ExtraTag) []byte {
	if currencyName == "" {
		currencyName = DefaultCurrencyName
	}
	if currencyCode == "" {
		currencyCode = DefaultCurrencyCode
	}
	tlv := AppendTLV(nil, TagOperation, []byte{OpRefund})
	tlv = AppendTLV(tlv, TagAmount, []byte(FormatAmount(amount)))
	tlv = AppendTLV(tlv, TagCurrencyName, []byte(currencyName))
	tlv = AppendTLV(tlv, TagCurrencyCode, []byte(currencyCode))
	if uniqueID != "" {
		tlv = AppendTLV(tlv, TagUniqueID, []byte(formatUniqueID(uniqueID)))
	}
	for _, e := range extra {
		if strings.TrimSpace(e.Tag) == "" {
			continue
		}
		tag, err := ParseTag(e.Tag)
		if err != nil {
			log.Printf("smartpay: skipping refund extra tag: %v", err)
			continue
		}
		tlv = AppendTLV(tlv, tag, []byte(e.Value))
	}
	return tlv
}
