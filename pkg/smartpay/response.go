// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Result is a parsed terminal response.
type Result struct {
	Tags     map[uint16][]byte
	Approved bool
	// ErrorCode is the terminal result byte (tag A100) in upper-case hex,
	// empty when the tag is absent.
	ErrorCode string
	// HostResp is the host response code (tag A107) as text, empty when
	// absent.
	HostResp string
}

// ParseResult decodes a response TLV payload and applies the approval rule:
// a transaction is approved only when the terminal result is hex 00 AND the
// host code is one of the accepted values.
func ParseResult(tlv []byte) *Result {
	r := &Result{Tags: ParseTLV(tlv)}
	if v, ok := r.Tags[TagResult]; ok {
		r.ErrorCode = strings.ToUpper(hex.EncodeToString(v))
	}
	if v, ok := r.Tags[TagHostCode]; ok {
		r.HostResp = string(v)
	}
	r.Approved = r.ErrorCode == "00" && approvedHostCodes[r.HostResp]
	return r
}

// TagsASCII renders all response tags as printable strings keyed by their
// documented names, for diagnostics and HTTP payloads.
func (r *Result) TagsASCII() map[string]string {
	out := make(map[string]string, len(r.Tags))
	for tag, v := range r.Tags {
		out[TagString(tag)] = string(v)
	}
	return out
}

// Message patterns the terminal prints when the cardholder walked away or
// the card was never read. Firmware versions vary the wording.
var (
	unregisteredPattern = regexp.MustCompile(`(?i)NEINREGISTRAT|NOT\s*REGISTERED`)
	cancelledPattern    = regexp.MustCompile(`(?i)ANULAT\s+DE\s+CATRE\s+DETINATORUL\s+DE\s+CARD`)
	noCardPattern       = regexp.MustCompile(`(?i)NO\s*CARD|CARD\s*NOT\s*PRESENT|INSERT\s*CARD|PRESENT\s*CARD|INTRODUC|APROPIE|TIMEOUT`)
)

// Operator-facing decline reasons.
const (
	msgUnregistered    = "unregistered terminal"
	msgCardNotInserted = "card not inserted"
	msgDeclined        = "transaction declined"
)

// hostCodeMessages maps the known host response codes to decline reasons.
var hostCodeMessages = map[string]string{
	"51": "insufficient funds",
	"05": "transaction declined",
	"54": "expired card",
	"91": "host unavailable, try again",
	"96": "system error, try again",
}

// DeclineMessage derives a human-readable decline reason from a response.
// The precedence is deliberate and load-bearing - terminals frequently omit
// tags, and the order below is what distinguishes "card never presented"
// from a genuine host decline:
//
//  1. free-text terminal message, with special cases for an unregistered
//     terminal and cardholder-cancel / card-timeout wording
//  2. card-absent indicator tag (A10C == "**")
//  3. host code CC, observed when the card entry timer expires
//  4. terminal result 01 with no message and no host code
//  5. known host code table
//  6. any other non-zero terminal result
//  7. generic decline
func DeclineMessage(r *Result) string {
	text := strings.TrimSpace(string(r.Tags[TagMessage]))
	if text != "" {
		if unregisteredPattern.MatchString(text) {
			return msgUnregistered
		}
		if cancelledPattern.MatchString(text) || noCardPattern.MatchString(text) {
			return msgCardNotInserted
		}
	}

	if strings.TrimSpace(string(r.Tags[TagCardFlag])) == "**" {
		return msgCardNotInserted
	}

	host := strings.ToUpper(strings.TrimSpace(r.HostResp))
	if host == "CC" {
		return msgCardNotInserted
	}

	code := strings.ToUpper(r.ErrorCode)
	if code == "01" && text == "" && host == "" {
		return msgCardNotInserted
	}

	if msg, ok := hostCodeMessages[host]; ok {
		return msg
	}

	if code != "" && code != "00" {
		return fmt.Sprintf("POS terminal error (A100=%s)", code)
	}

	return msgDeclined
}
