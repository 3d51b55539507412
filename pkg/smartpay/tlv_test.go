// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"bytes"
	"testing"
)

// ============================================================
// TLV Encoding Tests
// ============================================================

func TestAppendTLV(t *testing.T) {
	tlv := AppendTLV(nil, TagAmount, []byte("000000001550"))
	expected := append([]byte{0xA0, 0x01, 12}, "000000001550"...)
	if !bytes.Equal(tlv, expected) {
		t.Errorf("TLV = %v, expected %v", tlv, expected)
	}
}

func TestParseTLV_RoundTrip(t *testing.T) {
	tlv := AppendTLV(nil, TagOperation, []byte{OpSale})
	tlv = AppendTLV(tlv, TagAmount, []byte("000000000100"))
	tlv = AppendTLV(tlv, TagCurrencyName, []byte("RON"))

	tags := ParseTLV(tlv)
	if len(tags) != 3 {
		t.Fatalf("parsed %d tags, expected 3", len(tags))
	}
	if !bytes.Equal(tags[TagOperation], []byte{OpSale}) {
		t.Errorf("operation = %v", tags[TagOperation])
	}
	if string(tags[TagAmount]) != "000000000100" {
		t.Errorf("amount = %q", tags[TagAmount])
	}
	if string(tags[TagCurrencyName]) != "RON" {
		t.Errorf("currency = %q", tags[TagCurrencyName])
	}
}

func TestParseTLV_IgnoresTrailingGarbage(t *testing.T) {
	tlv := AppendTLV(nil, TagResult, []byte{0x00})
	tlv = append(tlv, 0xA1, 0x07) // truncated record, no length byte
	tags := ParseTLV(tlv)
	if len(tags) != 1 {
		t.Errorf("parsed %d tags, expected truncated record ignored", len(tags))
	}
}

func TestParseTLV_TruncatedValue(t *testing.T) {
	// Declares 5 value bytes but carries 2.
	tags := ParseTLV([]byte{0xA1, 0x08, 5, 'A', 'B'})
	if len(tags) != 0 {
		t.Errorf("parsed %d tags from truncated value", len(tags))
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		in       string
		expected uint16
		wantErr  bool
	}{
		{"0xA012", 0xA012, false},
		{"A012", 0xA012, false},
		{"0xa10c", 0xA10C, false},
		{" A000 ", 0xA000, false},
		{"", 0, true},
		{"ZZZZ", 0, true},
		{"12345", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTag(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTag(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseTag(%q) = 0x%04X, expected 0x%04X", tt.in, got, tt.expected)
			}
		})
	}
}

// ============================================================
// Frame Tests
// ============================================================

func TestWrapFrame_Structure(t *testing.T) {
	tlv := BuildInfo()
	frame := WrapFrame(tlv)

	if frame[0] != STX {
		t.Errorf("frame[0] = 0x%02X, expected STX", frame[0])
	}
	if got := int(frame[1])<<8 | int(frame[2]); got != len(tlv) {
		t.Errorf("declared length %d, expected %d", got, len(tlv))
	}
	if frame[3+len(tlv)] != ETX {
		t.Errorf("no ETX after payload")
	}
	crc := CRC16(tlv)
	if frame[len(frame)-2] != byte(crc>>8) || frame[len(frame)-1] != byte(crc) {
		t.Errorf("frame CRC does not match payload CRC 0x%04X", crc)
	}
}

func TestVerifyFrame_RoundTrip(t *testing.T) {
	tlv := BuildSale(15.50, "", "", "42")
	got, err := VerifyFrame(WrapFrame(tlv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, tlv) {
		t.Errorf("payload mismatch")
	}
}

func TestVerifyFrame_Errors(t *testing.T) {
	good := WrapFrame(BuildInfo())

	corruptCRC := append([]byte(nil), good...)
	corruptCRC[len(corruptCRC)-1] ^= 0xFF

	badSTX := append([]byte(nil), good...)
	badSTX[0] = 0x00

	tests := []struct {
		name  string
		frame []byte
	}{
		{"too short", []byte{STX, 0x00}},
		{"no STX", badSTX},
		{"length mismatch", good[:len(good)-1]},
		{"CRC mismatch", corruptCRC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyFrame(tt.frame); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestFrameAccumulator(t *testing.T) {
	frame := WrapFrame(BuildInfo())

	var acc frameAccumulator
	for i, b := range frame {
		done := acc.feed(b)
		if done != (i == len(frame)-1) {
			t.Fatalf("feed(byte %d) = %v", i, done)
		}
	}
	if !bytes.Equal(acc.payload(), BuildInfo()) {
		t.Errorf("payload mismatch after accumulation")
	}
}
