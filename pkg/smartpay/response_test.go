// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"testing"
)

// buildResult assembles a response the way the terminal would, from a list
// of tag/value pairs.
func buildResult(pairs map[uint16]string) *Result {
	var tlv []byte
	for tag, v := range pairs {
		tlv = AppendTLV(tlv, tag, []byte(v))
	}
	return ParseResult(tlv)
}

// ============================================================
// Approval Rule Tests
// ============================================================

func TestParseResult_Approval(t *testing.T) {
	tests := []struct {
		name     string
		result   string // raw A100 byte value
		hostCode string
		approved bool
	}{
		{"zero result host 00", "\x00", "00", true},
		{"zero result host Y1", "\x00", "Y1", true},
		{"zero result host Y3", "\x00", "Y3", true},
		{"zero result declined host", "\x00", "51", false},
		{"nonzero result approved host", "\x01", "00", false},
		{"zero result missing host", "\x00", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := map[uint16]string{TagResult: tt.result}
			if tt.hostCode != "" {
				pairs[TagHostCode] = tt.hostCode
			}
			r := buildResult(pairs)
			if r.Approved != tt.approved {
				t.Errorf("Approved = %v, expected %v (A100=%s A107=%s)",
					r.Approved, tt.approved, r.ErrorCode, r.HostResp)
			}
		})
	}
}

func TestParseResult_MissingTags(t *testing.T) {
	r := ParseResult(nil)
	if r.Approved {
		t.Errorf("empty response must not be approved")
	}
	if r.ErrorCode != "" || r.HostResp != "" {
		t.Errorf("absent tags must decode as empty strings, got %q/%q", r.ErrorCode, r.HostResp)
	}
}

func TestParseResult_HexErrorCode(t *testing.T) {
	r := buildResult(map[uint16]string{TagResult: "\x0a"})
	if r.ErrorCode != "0A" {
		t.Errorf("ErrorCode = %q, expected upper-case hex", r.ErrorCode)
	}
}

// ============================================================
// Decline Message Tests
// ============================================================

func TestDeclineMessage(t *testing.T) {
	tests := []struct {
		name     string
		pairs    map[uint16]string
		expected string
	}{
		{
			name:     "unregistered terminal, Romanian wording",
			pairs:    map[uint16]string{TagResult: "\x01", TagMessage: "TERMINAL NEINREGISTRAT"},
			expected: msgUnregistered,
		},
		{
			name:     "unregistered terminal, English wording",
			pairs:    map[uint16]string{TagResult: "\x01", TagMessage: "TERMINAL NOT REGISTERED"},
			expected: msgUnregistered,
		},
		{
			name:     "cardholder cancelled",
			pairs:    map[uint16]string{TagResult: "\x01", TagMessage: "ANULAT DE CATRE DETINATORUL DE CARD"},
			expected: msgCardNotInserted,
		},
		{
			name:     "card entry timeout wording",
			pairs:    map[uint16]string{TagResult: "\x01", TagMessage: "TIMEOUT CITIRE CARD"},
			expected: msgCardNotInserted,
		},
		{
			name:     "card absent flag",
			pairs:    map[uint16]string{TagResult: "\x01", TagCardFlag: "**"},
			expected: msgCardNotInserted,
		},
		{
			name:     "host code CC means entry timer expired",
			pairs:    map[uint16]string{TagResult: "\x01", TagHostCode: "CC"},
			expected: msgCardNotInserted,
		},
		{
			name:     "bare result 01 with nothing else",
			pairs:    map[uint16]string{TagResult: "\x01"},
			expected: msgCardNotInserted,
		},
		{
			name:     "insufficient funds",
			pairs:    map[uint16]string{TagResult: "\x01", TagHostCode: "51", TagMessage: "REFUZAT"},
			expected: "insufficient funds",
		},
		{
			name:     "expired card",
			pairs:    map[uint16]string{TagResult: "\x01", TagHostCode: "54", TagMessage: "REFUZAT"},
			expected: "expired card",
		},
		{
			name:     "host unavailable",
			pairs:    map[uint16]string{TagResult: "\x01", TagHostCode: "91", TagMessage: "EROARE"},
			expected: "host unavailable, try again",
		},
		{
			name:     "unknown terminal result",
			pairs:    map[uint16]string{TagResult: "\x7f", TagMessage: "EROARE INTERNA"},
			expected: "POS terminal error (A100=7F)",
		},
		{
			name:     "no tags at all",
			pairs:    nil,
			expected: msgDeclined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeclineMessage(buildResult(tt.pairs)); got != tt.expected {
				t.Errorf("DeclineMessage = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestDeclineMessage_MessageWinsOverCardFlag(t *testing.T) {
	r := buildResult(map[uint16]string{
		TagResult:   "\x01",
		TagMessage:  "TERMINAL NEINREGISTRAT",
		TagCardFlag: "**",
	})
	if got := DeclineMessage(r); got != msgUnregistered {
		t.Errorf("DeclineMessage = %q, message text must take precedence", got)
	}
}

func TestTagsASCII(t *testing.T) {
	r := buildResult(map[uint16]string{TagHostCode: "00", TagMessage: "APPROVED"})
	out := r.TagsASCII()
	if out["A107"] != "00" || out["A108"] != "APPROVED" {
		t.Errorf("TagsASCII = %v", out)
	}
}
