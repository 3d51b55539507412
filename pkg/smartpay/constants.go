// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

// Package smartpay implements the SmartPay ECR link protocol for card
// payment terminals: an ENQ/ACK handshake followed by TLV frames protected
// by CRC-16/BUYPASS.
package smartpay

// Link control bytes
const (
	ENQ = 0x05
	ACK = 0x06
	NAK = 0x15
	EOT = 0x04
	STX = 0x02
	ETX = 0x03
)

// Request tags (ECR -> terminal)
const (
	TagOperation    = 0xA000
	TagAmount       = 0xA001
	TagCurrencyName = 0xA002
	TagCurrencyCode = 0xA003
	TagCashback     = 0xA007
	TagUniqueID     = 0xA008
)

// Response tags (terminal -> ECR)
const (
	TagResult   = 0xA100 // one-byte terminal result, 0x00 = accepted
	TagHostCode = 0xA107 // two-character host response code, ASCII
	TagMessage  = 0xA108 // free-text terminal message
	TagCardFlag = 0xA10C // "**" when the card was never presented
)

// Operation codes carried in TagOperation.
const (
	OpInfo   = 0x01
	OpSale   = 0x02
	OpRefund = 0x03
)

// Host response codes that count as an approval together with a zero
// terminal result.
var approvedHostCodes = map[string]bool{
	"00": true,
	"Y1": true,
	"Y3": true,
}

// Default currency for built requests.
const (
	DefaultCurrencyName = "RON"
	DefaultCurrencyCode = "946"
)

// enqAttempts is how many times ENQ is sent before the handshake is
// declared failed (initial send plus NAK-triggered resends).
const enqAttempts = 3
