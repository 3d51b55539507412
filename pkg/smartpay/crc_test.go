// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package smartpay

import (
	"testing"
)

// ============================================================
// CRC Tests
// ============================================================

func TestCRC16_Empty(t *testing.T) {
	if crc := CRC16(nil); crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%04X", crc)
	}
}

func TestCRC16_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0xFEE8, // Standard CRC-16/BUYPASS check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x0000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CRC16(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", tt.expected, crc)
			}
		})
	}
}

func TestCRC16_Deterministic(t *testing.T) {
	data := []byte{0xA0, 0x00, 0x01, 0x02}
	if CRC16(data) != CRC16(data) {
		t.Errorf("CRC should be deterministic")
	}
}

func TestCRC16_DetectsSingleBitFlip(t *testing.T) {
	data := []byte("000000001550RON946")
	base := CRC16(data)

	for i := range data {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), data...)
			corrupted[i] ^= 1 << bit
			if CRC16(corrupted) == base {
				t.Errorf("bit flip at byte %d bit %d not detected", i, bit)
			}
		}
	}
}
